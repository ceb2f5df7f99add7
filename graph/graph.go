// Package graph builds transform graphs out of filter nodes.
package graph

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/pipelined/audiomix"
	"github.com/pipelined/audiomix/filter"
)

// Loudness normalization targets.
const (
	LoudnessTarget    = -16.0
	LoudnessTruePeak  = -2.0
	LoudnessRange     = 7
	loudnormParamsFmt = "I=%.1f:TP=%.1f:LRA=%d:dual_mono=false"
)

// ErrNoInputs is returned when mix or concat has nothing to join.
var ErrNoInputs = errors.New("no inputs")

// MixFormat is the format every track is converted to before mixing.
func MixFormat(sampleRate int) audiomix.Format {
	return audiomix.Format{
		SampleFormat: audiomix.SampleFormatFltP,
		SampleRate:   sampleRate,
		NumChannels:  1,
	}
}

// Builder allocates and links nodes in a single graph. Builder doesn't
// roll back on failures, the caller must free the whole graph.
type Builder struct {
	graph *filter.Graph
}

// New returns builder of a new graph.
func New() *Builder {
	return &Builder{graph: filter.NewGraph()}
}

// Graph returns the graph under construction.
func (b *Builder) Graph() *filter.Graph {
	return b.graph
}

// Free releases the graph.
func (b *Builder) Free() error {
	b.graph.Free()
	return nil
}

// Config finalizes the graph.
func (b *Builder) Config() error {
	if err := b.graph.Config(); err != nil {
		return audiomix.NewError(audiomix.KindGraphBuild, "config", err)
	}
	return nil
}

// node allocates a node, initializes it and links inputs in order.
func (b *Builder) node(kind, params string, inputs ...*filter.Node) (*filter.Node, error) {
	n, err := b.graph.Alloc(kind, "")
	if err != nil {
		return nil, audiomix.NewError(audiomix.KindGraphBuild, "alloc "+kind, err)
	}
	if err := n.Init(params); err != nil {
		return nil, audiomix.NewError(audiomix.KindGraphBuild, "init "+kind, err)
	}
	for i, in := range inputs {
		if err := filter.Link(in, 0, n, i); err != nil {
			return nil, audiomix.NewError(audiomix.KindGraphBuild, "link "+kind, err)
		}
	}
	return n, nil
}

func formatParams(f audiomix.Format) string {
	return fmt.Sprintf("sample_fmts=%s:sample_rates=%d:channel_layouts=%d", f.SampleFormat, f.SampleRate, f.NumChannels)
}

// Input allocates a source node for frames of provided format.
func (b *Builder) Input(f audiomix.Format) (*filter.Node, error) {
	return b.node("source", fmt.Sprintf("sample_fmt=%s:sample_rate=%d:channels=%d:time_base=1/%d",
		f.SampleFormat, f.SampleRate, f.NumChannels, f.SampleRate))
}

// FormatForMix converts track to the mix format.
func (b *Builder) FormatForMix(in *filter.Node, sampleRate int) (*filter.Node, error) {
	return b.node("normalize", formatParams(MixFormat(sampleRate)), in)
}

// FormatForOutput converts track to the encoder format.
func (b *Builder) FormatForOutput(in *filter.Node, f audiomix.Format) (*filter.Node, error) {
	return b.node("normalize", formatParams(f), in)
}

// Pad appends silence of provided length.
func (b *Builder) Pad(in *filter.Node, samples int64) (*filter.Node, error) {
	return b.node("pad", fmt.Sprintf("pad_len=%d", samples), in)
}

// PadWhole extends track with silence up to provided length.
func (b *Builder) PadWhole(in *filter.Node, samples int64) (*filter.Node, error) {
	return b.node("pad", fmt.Sprintf("whole_len=%d", samples), in)
}

// Trim cuts track at provided sample.
func (b *Builder) Trim(in *filter.Node, end int64) (*filter.Node, error) {
	return b.node("trim", fmt.Sprintf("end_sample=%d", end), in)
}

// Fade applies linear fade.
func (b *Builder) Fade(in *filter.Node, out bool, start, length int64) (*filter.Node, error) {
	t := 0
	if out {
		t = 1
	}
	return b.node("fade", fmt.Sprintf("type=%d:start_sample=%d:nb_samples=%d", t, start, length), in)
}

// Delay prepends silence of provided length. Delay is passed to the node
// in milliseconds.
func (b *Builder) Delay(in *filter.Node, samples int64, sampleRate int) (*filter.Node, error) {
	ms := float64(samples) / float64(sampleRate) * 1000
	return b.node("delay", "delays="+strconv.FormatFloat(ms, 'f', -1, 64), in)
}

// Volume scales amplitude.
func (b *Builder) Volume(in *filter.Node, v float64) (*filter.Node, error) {
	return b.node("volume", "volume="+strconv.FormatFloat(v, 'g', -1, 64), in)
}

// Split duplicates track. Every output is a separate passthrough node.
func (b *Builder) Split(in *filter.Node, count int) ([]*filter.Node, error) {
	s, err := b.node("split", strconv.Itoa(count), in)
	if err != nil {
		return nil, err
	}
	outputs := make([]*filter.Node, 0, count)
	for i := 0; i < count; i++ {
		n, err := b.node("passthrough", "")
		if err != nil {
			return nil, err
		}
		if err := filter.Link(s, i, n, 0); err != nil {
			return nil, audiomix.NewError(audiomix.KindGraphBuild, "link split", err)
		}
		outputs = append(outputs, n)
	}
	return outputs, nil
}

// Mix sums tracks. Order of inputs defines mix channels.
func (b *Builder) Mix(inputs ...*filter.Node) (*filter.Node, error) {
	if len(inputs) == 0 {
		return nil, audiomix.NewError(audiomix.KindGraphBuild, "mix", ErrNoInputs)
	}
	return b.node("mix", fmt.Sprintf("inputs=%d", len(inputs)), inputs...)
}

// Concat plays tracks one after another.
func (b *Builder) Concat(inputs ...*filter.Node) (*filter.Node, error) {
	if len(inputs) == 0 {
		return nil, audiomix.NewError(audiomix.KindGraphBuild, "concat", ErrNoInputs)
	}
	return b.node("concat", fmt.Sprintf("n=%d:v=0:a=1", len(inputs)), inputs...)
}

// LoudNorm normalizes loudness of the track.
func (b *Builder) LoudNorm(in *filter.Node) (*filter.Node, error) {
	return b.node("loudnorm", fmt.Sprintf(loudnormParamsFmt, LoudnessTarget, LoudnessTruePeak, LoudnessRange), in)
}

// Output allocates a sink node. Non-zero frame size makes the sink emit
// frames of exactly that size, except for the last one.
func (b *Builder) Output(in *filter.Node, frameSize int) (*filter.Node, error) {
	params := ""
	if frameSize > 0 {
		params = fmt.Sprintf("frame_size=%d", frameSize)
	}
	return b.node("sink", params, in)
}

// Ref points to output pad of a node created by earlier spec.
type Ref struct {
	Node int
	Pad  int
}

// Spec declares a node. Inputs are linked in order.
type Spec struct {
	Kind   string
	Name   string
	Params string
	Inputs []Ref
}

// Build allocates nodes for all specs and links them. Returned nodes have
// the same order as specs.
func (b *Builder) Build(specs []Spec) ([]*filter.Node, error) {
	nodes := make([]*filter.Node, 0, len(specs))
	for i, s := range specs {
		op := fmt.Sprintf("build %s #%d", s.Kind, i)
		n, err := b.graph.Alloc(s.Kind, s.Name)
		if err != nil {
			return nil, audiomix.NewError(audiomix.KindGraphBuild, op, err)
		}
		if err := n.Init(s.Params); err != nil {
			return nil, audiomix.NewError(audiomix.KindGraphBuild, op, err)
		}
		for pad, ref := range s.Inputs {
			if ref.Node < 0 || ref.Node >= len(nodes) {
				return nil, audiomix.NewError(audiomix.KindGraphBuild, op,
					fmt.Errorf("%w: reference to node %d", filter.ErrInvalidPad, ref.Node))
			}
			if err := filter.Link(nodes[ref.Node], ref.Pad, n, pad); err != nil {
				return nil, audiomix.NewError(audiomix.KindGraphBuild, op, err)
			}
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}
