/*
Package audiomix composes audio files into new audio files.

# Concept

Every operation is a pull-based filter graph driven by a pump:

	Input - decoder of a file;
	Graph - filters that convert, delay, trim, fade, pad and mix signal;
	Output - encoder with its muxer.

Inputs are decoded frame by frame and pushed into graph sources. The pump
drains the sink, stamps frames and passes them to the encoder. When the
sink has nothing ready it returns ErrNeedMore and the pump feeds sources
that have been starved the most.

# Sequences

Narrated sequences are built by the timeline package. It computes where
every segment starts and how background is looped under the voice. Each
segment gets its own sub-graph, and the queue sequencer forwards the front
sub-graph into the shared mix until it's exhausted.

# Errors

Failures are classified by Kind. Status converts any error into the
integer status returned to callers: 0 on success, negative value otherwise.
*/
package audiomix
