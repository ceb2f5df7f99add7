package pump

import (
	"errors"
	"io"

	"github.com/pipelined/audiomix"
	"github.com/pipelined/audiomix/filter"
	"github.com/pipelined/audiomix/internal/release"
	"github.com/pipelined/audiomix/metric"
)

// Context binds a decoded input to its graph entry node. It tracks
// presentation time of decoded frames in samples.
type Context struct {
	audiomix.UID
	Input  audiomix.Input
	Source *filter.Node
	// Sink is the exit node of per-segment graph. It's set only for
	// contexts in a queue.
	Sink *filter.Node
	// Release is executed when queue pops the context.
	Release *release.Pool

	CurrentPTS int64
	finished   bool
	measure    metric.MeasureFunc
}

// NewContext returns context of input linked to the source node.
func NewContext(in audiomix.Input, source *filter.Node) *Context {
	return &Context{
		UID:    audiomix.NewUID(),
		Input:  in,
		Source: source,
	}
}

// Finished reports whether input is exhausted and the end of stream was
// pushed into the source.
func (c *Context) Finished() bool {
	return c.finished
}

// Starved reports whether graph requested frames the source didn't have.
func (c *Context) Starved() bool {
	return !c.finished && c.Source.FailedRequests() > 0
}

// decode reads up to limit frames from input and pushes them into the
// source node. When input is exhausted, end of stream is pushed.
func (c *Context) decode(limit int) (int, error) {
	if c.measure == nil {
		c.measure = metric.Meter(c.Input, c.Input.Format().SampleRate)
	}
	for i := 0; i < limit; i++ {
		f, err := c.Input.Decode()
		if errors.Is(err, io.EOF) {
			c.finished = true
			if err := c.Source.Push(nil); err != nil {
				return i, audiomix.NewError(audiomix.KindUnknown, "push", err)
			}
			return i, nil
		}
		if err != nil {
			return i, audiomix.NewError(audiomix.KindDecode, "decode", err)
		}
		f.PTS = c.CurrentPTS
		c.CurrentPTS += int64(f.NumSamples())
		c.measure(int64(f.NumSamples()), 0)
		if err := c.Source.Push(f); err != nil {
			return i, audiomix.NewError(audiomix.KindUnknown, "push", err)
		}
	}
	return limit, nil
}
