package graph_test

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pipelined/audiomix"
	"github.com/pipelined/audiomix/filter"
	"github.com/pipelined/audiomix/graph"
)

var stereo = audiomix.Format{
	SampleFormat: audiomix.SampleFormatS16,
	SampleRate:   1000,
	NumChannels:  2,
}

func pullAll(t *testing.T, sink *filter.Node) audiomix.Buffer {
	t.Helper()
	var result audiomix.Buffer
	for {
		f, err := sink.Pull()
		if err == io.EOF {
			return result
		}
		if !assert.NoError(t, err) {
			return result
		}
		result = result.Append(f.Buffer)
	}
}

func TestBuilder(t *testing.T) {
	b := graph.New()
	defer b.Free()

	in, err := b.Input(stereo)
	assert.NoError(t, err)
	mixed, err := b.FormatForMix(in, 1000)
	assert.NoError(t, err)
	delayed, err := b.Delay(mixed, 2, 1000)
	assert.NoError(t, err)
	padded, err := b.Pad(delayed, 1)
	assert.NoError(t, err)
	out, err := b.FormatForOutput(padded, audiomix.Format{
		SampleFormat: audiomix.SampleFormatS16,
		SampleRate:   1000,
		NumChannels:  1,
	})
	assert.NoError(t, err)
	sink, err := b.Output(out, 2)
	assert.NoError(t, err)
	assert.NoError(t, b.Config())
	assert.Equal(t, 1, sink.Format().NumChannels)

	assert.NoError(t, in.Push(&audiomix.Frame{Buffer: audiomix.Buffer{{0.5, 0.25}, {0.5, 0.25}}}))
	assert.NoError(t, in.Push(nil))
	assert.Equal(t, audiomix.Buffer{{0, 0, 0.5, 0.25, 0}}, pullAll(t, sink))
}

func TestSplitMix(t *testing.T) {
	b := graph.New()
	defer b.Free()

	in, err := b.Input(graph.MixFormat(1000))
	assert.NoError(t, err)
	outputs, err := b.Split(in, 2)
	assert.NoError(t, err)
	assert.Len(t, outputs, 2)
	quiet, err := b.Volume(outputs[1], 0)
	assert.NoError(t, err)
	faded, err := b.Fade(outputs[0], true, 0, 2)
	assert.NoError(t, err)
	mix, err := b.Mix(faded, quiet)
	assert.NoError(t, err)
	volume, err := b.Volume(mix, 2)
	assert.NoError(t, err)
	trimmed, err := b.Trim(volume, 2)
	assert.NoError(t, err)
	sink, err := b.Output(trimmed, 0)
	assert.NoError(t, err)
	assert.NoError(t, b.Config())

	assert.NoError(t, in.Push(&audiomix.Frame{Buffer: audiomix.Buffer{{1, 1, 1}}}))
	assert.NoError(t, in.Push(nil))
	assert.Equal(t, audiomix.Buffer{{1, 0.5}}, pullAll(t, sink))
}

func TestConcatPadWhole(t *testing.T) {
	b := graph.New()
	defer b.Free()

	a, err := b.Input(graph.MixFormat(1000))
	assert.NoError(t, err)
	c, err := b.Input(graph.MixFormat(1000))
	assert.NoError(t, err)
	padded, err := b.PadWhole(a, 3)
	assert.NoError(t, err)
	concat, err := b.Concat(padded, c)
	assert.NoError(t, err)
	sink, err := b.Output(concat, 0)
	assert.NoError(t, err)
	assert.NoError(t, b.Config())

	assert.NoError(t, a.Push(&audiomix.Frame{Buffer: audiomix.Buffer{{1}}}))
	assert.NoError(t, a.Push(nil))
	assert.NoError(t, c.Push(&audiomix.Frame{Buffer: audiomix.Buffer{{2}}}))
	assert.NoError(t, c.Push(nil))
	assert.Equal(t, audiomix.Buffer{{1, 0, 0, 2}}, pullAll(t, sink))
}

func TestBuild(t *testing.T) {
	b := graph.New()
	defer b.Free()

	nodes, err := b.Build([]graph.Spec{
		{Kind: "source", Name: "in", Params: "sample_rate=1000:channels=1"},
		{Kind: "volume", Params: "volume=0.5", Inputs: []graph.Ref{{Node: 0}}},
		{Kind: "loudnorm", Params: "I=-16:TP=-2:LRA=7", Inputs: []graph.Ref{{Node: 1}}},
		{Kind: "sink", Name: "out", Inputs: []graph.Ref{{Node: 2}}},
	})
	assert.NoError(t, err)
	assert.Len(t, nodes, 4)
	assert.Equal(t, "in", nodes[0].Name())
	assert.Equal(t, "loudnorm", nodes[2].Kind())
	assert.NoError(t, b.Config())
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		description string
		specs       []graph.Spec
	}{
		{
			description: "unknown kind",
			specs:       []graph.Spec{{Kind: "chorus"}},
		},
		{
			description: "invalid params",
			specs:       []graph.Spec{{Kind: "volume", Params: "volume=x"}},
		},
		{
			description: "forward reference",
			specs: []graph.Spec{
				{Kind: "source", Params: "sample_rate=1000:channels=1"},
				{Kind: "sink", Inputs: []graph.Ref{{Node: 2}}},
			},
		},
		{
			description: "invalid pad",
			specs: []graph.Spec{
				{Kind: "source", Params: "sample_rate=1000:channels=1"},
				{Kind: "sink", Inputs: []graph.Ref{{Node: 0, Pad: 1}}},
			},
		},
	}
	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			b := graph.New()
			defer b.Free()
			_, err := b.Build(test.specs)
			assert.ErrorIs(t, err, audiomix.ErrGraphBuild)
			assert.Equal(t, -22, audiomix.Status(err))
		})
	}
}

func TestConfigError(t *testing.T) {
	b := graph.New()
	defer b.Free()
	_, err := b.Input(graph.MixFormat(1000))
	assert.NoError(t, err)
	err = b.Config()
	assert.ErrorIs(t, err, audiomix.ErrGraphBuild)
	assert.ErrorIs(t, err, filter.ErrUnlinked)

	_, err = b.Mix()
	assert.ErrorIs(t, err, graph.ErrNoInputs)
}

func TestVolumePrecision(t *testing.T) {
	for _, v := range []float64{1e-7, 0.1234567891, 2} {
		b := graph.New()
		in, err := b.Input(graph.MixFormat(1000))
		assert.NoError(t, err)
		vol, err := b.Volume(in, v)
		assert.NoError(t, err)
		sink, err := b.Output(vol, 0)
		assert.NoError(t, err)
		assert.NoError(t, b.Config())

		assert.NoError(t, in.Push(&audiomix.Frame{Buffer: audiomix.Buffer{{1}}}))
		assert.NoError(t, in.Push(nil))
		result := pullAll(t, sink)
		assert.InDelta(t, v, result[0][0], 1e-15)
		assert.NoError(t, b.Free())
	}
}
