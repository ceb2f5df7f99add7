package filter_test

import (
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pipelined/audiomix"
	"github.com/pipelined/audiomix/filter"
)

const monoSource = "sample_fmt=fltp:sample_rate=1000:channels=1"

type node struct {
	kind   string
	params string
}

// chain builds source -> nodes -> sink graph.
func chain(t *testing.T, source string, nodes ...node) (*filter.Node, *filter.Node) {
	t.Helper()
	g := filter.NewGraph()
	t.Cleanup(g.Free)
	nodes = append([]node{{"source", source}}, append(nodes, node{"sink", ""})...)
	var prev *filter.Node
	var first *filter.Node
	for _, n := range nodes {
		cur, err := g.Alloc(n.kind, "")
		assert.NoError(t, err)
		assert.NoError(t, cur.Init(n.params))
		if prev != nil {
			assert.NoError(t, filter.Link(prev, 0, cur, 0))
		} else {
			first = cur
		}
		prev = cur
	}
	assert.NoError(t, g.Config())
	return first, prev
}

func mono(values ...float64) audiomix.Buffer {
	return audiomix.Buffer{values}
}

func push(t *testing.T, src *filter.Node, buffers ...audiomix.Buffer) {
	t.Helper()
	for _, b := range buffers {
		assert.NoError(t, src.Push(&audiomix.Frame{Buffer: b}))
	}
	assert.NoError(t, src.Push(nil))
}

// drain pulls sink until end of stream.
func drain(t *testing.T, sink *filter.Node) (result audiomix.Buffer, sizes []int) {
	t.Helper()
	for {
		f, err := sink.Pull()
		if err == io.EOF {
			return
		}
		if !assert.NoError(t, err) {
			return
		}
		sizes = append(sizes, f.NumSamples())
		result = result.Append(f.Buffer)
	}
}

func assertBuffer(t *testing.T, expected, result audiomix.Buffer) {
	t.Helper()
	if !assert.Equal(t, expected.NumChannels(), result.NumChannels()) {
		return
	}
	for c := range expected {
		assert.InDeltaSlice(t, expected[c], result[c], 1e-9, "channel %d", c)
	}
}

func TestNodes(t *testing.T) {
	tests := []struct {
		description string
		nodes       []node
		input       []audiomix.Buffer
		expected    audiomix.Buffer
	}{
		{
			description: "pad length",
			nodes:       []node{{"pad", "pad_len=2"}},
			input:       []audiomix.Buffer{mono(1, 2)},
			expected:    mono(1, 2, 0, 0),
		},
		{
			description: "pad whole length",
			nodes:       []node{{"pad", "whole_len=5:packet_size=2"}},
			input:       []audiomix.Buffer{mono(1, 2)},
			expected:    mono(1, 2, 0, 0, 0),
		},
		{
			description: "pad shorter than input",
			nodes:       []node{{"pad", "whole_len=1"}},
			input:       []audiomix.Buffer{mono(1, 2)},
			expected:    mono(1, 2),
		},
		{
			description: "trim end",
			nodes:       []node{{"trim", "end_sample=3"}},
			input:       []audiomix.Buffer{mono(1, 2), mono(3, 4)},
			expected:    mono(1, 2, 3),
		},
		{
			description: "trim range",
			nodes:       []node{{"trim", "start_sample=1:end_sample=3"}},
			input:       []audiomix.Buffer{mono(1), mono(2, 3, 4)},
			expected:    mono(2, 3),
		},
		{
			description: "fade out",
			nodes:       []node{{"fade", "type=out:start_sample=1:nb_samples=2"}},
			input:       []audiomix.Buffer{mono(1, 1), mono(1, 1)},
			expected:    mono(1, 1, 0.5, 0),
		},
		{
			description: "fade in",
			nodes:       []node{{"fade", "t=in:ss=0:ns=2"}},
			input:       []audiomix.Buffer{mono(1, 1, 1, 1)},
			expected:    mono(0, 0.5, 1, 1),
		},
		{
			description: "delay milliseconds",
			nodes:       []node{{"delay", "delays=2"}},
			input:       []audiomix.Buffer{mono(1)},
			expected:    mono(0, 0, 1),
		},
		{
			description: "delay samples",
			nodes:       []node{{"delay", "3S"}},
			input:       []audiomix.Buffer{mono(1)},
			expected:    mono(0, 0, 0, 1),
		},
		{
			description: "volume",
			nodes:       []node{{"volume", "volume=0.5"}},
			input:       []audiomix.Buffer{mono(1, -0.5)},
			expected:    mono(0.5, -0.25),
		},
		{
			description: "passthrough",
			nodes:       []node{{"passthrough", ""}},
			input:       []audiomix.Buffer{mono(1), mono(2)},
			expected:    mono(1, 2),
		},
		{
			description: "upmix",
			nodes:       []node{{"normalize", "channels=stereo"}},
			input:       []audiomix.Buffer{mono(1, 2)},
			expected:    audiomix.Buffer{{1, 2}, {1, 2}},
		},
		{
			description: "downsample",
			nodes:       []node{{"normalize", "sample_rate=500"}},
			input:       []audiomix.Buffer{mono(0, 1), mono(2, 3)},
			expected:    mono(0, 2),
		},
		{
			description: "upsample",
			nodes:       []node{{"normalize", "sample_rate=2000"}},
			input:       []audiomix.Buffer{mono(0, 1)},
			expected:    mono(0, 0.5, 1, 1),
		},
		{
			description: "quantize",
			nodes:       []node{{"normalize", "sample_fmt=s16"}},
			input:       []audiomix.Buffer{mono(0.5, 0.00001, 2)},
			expected:    mono(0.5, 0, 32767.0/32768.0),
		},
	}

	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			src, sink := chain(t, monoSource, test.nodes...)
			push(t, src, test.input...)
			result, _ := drain(t, sink)
			assertBuffer(t, test.expected, result)
		})
	}
}

func TestDownmix(t *testing.T) {
	src, sink := chain(t, "sample_rate=1000:channels=2", node{"normalize", "channels=1"})
	push(t, src, audiomix.Buffer{{1, 0}, {0, 1}})
	result, _ := drain(t, sink)
	assertBuffer(t, mono(0.5, 0.5), result)
}

func TestSinkFrameSize(t *testing.T) {
	g := filter.NewGraph()
	defer g.Free()
	src, _ := g.Alloc("source", "in")
	assert.NoError(t, src.Init(monoSource))
	sink, _ := g.Alloc("sink", "out")
	assert.NoError(t, sink.Init("sample_rate=1000:channels=mono:frame_size=3"))
	assert.NoError(t, filter.Link(src, 0, sink, 0))
	assert.NoError(t, g.Config())

	push(t, src, mono(1, 2), mono(3, 4), mono(5))
	result, sizes := drain(t, sink)
	assertBuffer(t, mono(1, 2, 3, 4, 5), result)
	assert.Equal(t, []int{3, 2}, sizes)
}

// multi builds graph where n sources are linked into one node.
func multi(t *testing.T, kind, params string, n int) ([]*filter.Node, *filter.Node) {
	t.Helper()
	g := filter.NewGraph()
	t.Cleanup(g.Free)
	m, err := g.Alloc(kind, "")
	assert.NoError(t, err)
	assert.NoError(t, m.Init(params))
	sources := make([]*filter.Node, n)
	for i := range sources {
		sources[i], err = g.Alloc("source", "")
		assert.NoError(t, err)
		assert.NoError(t, sources[i].Init(monoSource))
		assert.NoError(t, filter.Link(sources[i], 0, m, i))
	}
	sink, _ := g.Alloc("sink", "")
	assert.NoError(t, sink.Init(""))
	assert.NoError(t, filter.Link(m, 0, sink, 0))
	assert.NoError(t, g.Config())
	return sources, sink
}

func TestMix(t *testing.T) {
	tests := []struct {
		description string
		params      string
		inputs      [][]audiomix.Buffer
		expected    audiomix.Buffer
	}{
		{
			description: "longest",
			params:      "inputs=2",
			inputs: [][]audiomix.Buffer{
				{mono(1, 1, 1, 1)},
				{mono(0.5, 0.5)},
			},
			expected: mono(0.75, 0.75, 1, 1),
		},
		{
			description: "shortest",
			params:      "inputs=2:duration=shortest",
			inputs: [][]audiomix.Buffer{
				{mono(1, 1), mono(1, 1)},
				{mono(0.5, 0.5)},
			},
			expected: mono(0.75, 0.75),
		},
		{
			description: "three inputs",
			params:      "inputs=3",
			inputs: [][]audiomix.Buffer{
				{mono(0.3)},
				{mono(0.6)},
				{mono(0.9, 0.9)},
			},
			expected: mono(0.6, 0.9),
		},
	}
	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			sources, sink := multi(t, "mix", test.params, len(test.inputs))
			for i := range sources {
				push(t, sources[i], test.inputs[i]...)
			}
			result, _ := drain(t, sink)
			assertBuffer(t, test.expected, result)
		})
	}
}

func TestConcat(t *testing.T) {
	sources, sink := multi(t, "concat", "n=3:v=0:a=1", 3)
	push(t, sources[0], mono(1))
	push(t, sources[1])
	push(t, sources[2], mono(2, 3), mono(4))
	result, _ := drain(t, sink)
	assertBuffer(t, mono(1, 2, 3, 4), result)
}

func TestSplit(t *testing.T) {
	g := filter.NewGraph()
	defer g.Free()
	alloc := func(kind, params string) *filter.Node {
		n, err := g.Alloc(kind, "")
		assert.NoError(t, err)
		assert.NoError(t, n.Init(params))
		return n
	}
	src := alloc("source", monoSource)
	split := alloc("split", "2")
	vol := alloc("volume", "volume=0.5")
	mix := alloc("mix", "inputs=2")
	sink := alloc("sink", "")
	assert.NoError(t, filter.Link(src, 0, split, 0))
	assert.NoError(t, filter.Link(split, 0, mix, 0))
	assert.NoError(t, filter.Link(split, 1, vol, 0))
	assert.NoError(t, filter.Link(vol, 0, mix, 1))
	assert.NoError(t, filter.Link(mix, 0, sink, 0))
	assert.NoError(t, g.Config())

	push(t, src, mono(1, 1), mono(-1))
	result, _ := drain(t, sink)
	assertBuffer(t, mono(0.75, 0.75, -0.75), result)
}

func square(amplitude float64, size int) audiomix.Buffer {
	b := audiomix.EmptyBuffer(1, size)
	for i := range b[0] {
		b[0][i] = amplitude
		if i%2 == 1 {
			b[0][i] = -amplitude
		}
	}
	return b
}

func TestLoudNorm(t *testing.T) {
	t.Run("target loudness", func(t *testing.T) {
		src, sink := chain(t, monoSource, node{"loudnorm", "I=-16:TP=-2:LRA=7"})
		push(t, src, square(0.1, 2000))
		result, _ := drain(t, sink)
		assert.Equal(t, 2000, result.Size())
		// mean square of result must match -16 LUFS.
		expected := math.Sqrt(math.Pow(10, (-16+0.691)/10))
		assert.InDelta(t, expected, math.Abs(result[0][0]), 1e-6)
	})
	t.Run("true peak ceiling", func(t *testing.T) {
		src, sink := chain(t, monoSource, node{"loudnorm", "I=-16:TP=-2"})
		in := square(0.05, 2000)
		in[0][1000] = 1
		push(t, src, in)
		result, _ := drain(t, sink)
		assert.InDelta(t, math.Pow(10, -2.0/20), result[0][1000], 1e-9)
	})
	t.Run("silence", func(t *testing.T) {
		src, sink := chain(t, monoSource, node{"loudnorm", ""})
		push(t, src, mono(0, 0, 0))
		result, _ := drain(t, sink)
		assertBuffer(t, mono(0, 0, 0), result)
	})
}

func TestFailedRequests(t *testing.T) {
	src, sink := chain(t, monoSource, node{"volume", "volume=1"})
	_, err := sink.Pull()
	assert.Equal(t, audiomix.ErrNeedMore, err)
	_, err = sink.Pull()
	assert.Equal(t, audiomix.ErrNeedMore, err)
	assert.Equal(t, 2, src.FailedRequests())
	assert.Equal(t, 0, sink.FailedRequests())

	assert.NoError(t, src.Push(&audiomix.Frame{Buffer: mono(1)}))
	assert.Equal(t, 0, src.FailedRequests())
	f, err := sink.Pull()
	assert.NoError(t, err)
	assert.Equal(t, int64(0), f.PTS)

	assert.NoError(t, src.Push(nil))
	_, err = sink.Pull()
	assert.Equal(t, io.EOF, err)
	assert.ErrorIs(t, src.Push(nil), filter.ErrClosed)
}

func TestMixRequestsAllInputs(t *testing.T) {
	sources, sink := multi(t, "mix", "inputs=3", 3)
	_, err := sink.Pull()
	assert.Equal(t, audiomix.ErrNeedMore, err)
	for _, src := range sources {
		assert.Equal(t, 1, src.FailedRequests())
	}

	// only the empty input is requested again.
	push(t, sources[0], mono(1))
	push(t, sources[1], mono(1))
	_, err = sink.Pull()
	assert.Equal(t, audiomix.ErrNeedMore, err)
	assert.Equal(t, 0, sources[0].FailedRequests())
	assert.Equal(t, 0, sources[1].FailedRequests())
	assert.Equal(t, 2, sources[2].FailedRequests())
}

func TestKinds(t *testing.T) {
	assert.ElementsMatch(t, []string{
		"source", "sink", "normalize", "pad", "trim", "fade", "delay", "volume",
		"split", "passthrough", "mix", "concat", "loudnorm",
	}, filter.Kinds())
}

func TestGraphErrors(t *testing.T) {
	t.Run("unknown kind", func(t *testing.T) {
		_, err := filter.NewGraph().Alloc("reverb", "")
		assert.ErrorIs(t, err, filter.ErrUnknownKind)
	})
	t.Run("invalid args", func(t *testing.T) {
		for kind, params := range map[string]string{
			"volume":   "volume=loud",
			"pad":      "pad_len=1:whole_len=2",
			"source":   "sample_rate=44100",
			"trim":     "end_sample=5:foo=1",
			"fade":     "type=sideways",
			"mix":      "inputs=0",
			"concat":   "n=2:v=1",
			"delay":    "",
			"sink":     "sample_fmt=s24",
			"split":    "2:3",
			"loudnorm": "I=10",
		} {
			n, err := filter.NewGraph().Alloc(kind, "")
			assert.NoError(t, err)
			assert.ErrorIs(t, n.Init(params), filter.ErrInvalidArgs, kind)
		}
	})
	t.Run("unlinked pad", func(t *testing.T) {
		g := filter.NewGraph()
		src, _ := g.Alloc("source", "")
		assert.NoError(t, src.Init(monoSource))
		assert.ErrorIs(t, g.Config(), filter.ErrUnlinked)
	})
	t.Run("pad linked twice", func(t *testing.T) {
		g := filter.NewGraph()
		src, _ := g.Alloc("source", "")
		assert.NoError(t, src.Init(monoSource))
		a, _ := g.Alloc("sink", "")
		assert.NoError(t, a.Init(""))
		b, _ := g.Alloc("sink", "")
		assert.NoError(t, b.Init(""))
		assert.NoError(t, filter.Link(src, 0, a, 0))
		assert.ErrorIs(t, filter.Link(src, 0, b, 0), filter.ErrPadLinked)
		assert.ErrorIs(t, filter.Link(src, 1, b, 0), filter.ErrInvalidPad)
	})
	t.Run("not configured", func(t *testing.T) {
		g := filter.NewGraph()
		src, _ := g.Alloc("source", "")
		assert.NoError(t, src.Init(monoSource))
		assert.ErrorIs(t, src.Push(nil), filter.ErrNotConfigured)
	})
	t.Run("mix formats", func(t *testing.T) {
		g := filter.NewGraph()
		a, _ := g.Alloc("source", "")
		assert.NoError(t, a.Init(monoSource))
		b, _ := g.Alloc("source", "")
		assert.NoError(t, b.Init("sample_rate=2000:channels=1"))
		m, _ := g.Alloc("mix", "")
		assert.NoError(t, m.Init("inputs=2"))
		s, _ := g.Alloc("sink", "")
		assert.NoError(t, s.Init(""))
		assert.NoError(t, filter.Link(a, 0, m, 0))
		assert.NoError(t, filter.Link(b, 0, m, 1))
		assert.NoError(t, filter.Link(m, 0, s, 0))
		assert.ErrorIs(t, g.Config(), filter.ErrFormat)
	})
	t.Run("sink format", func(t *testing.T) {
		g := filter.NewGraph()
		a, _ := g.Alloc("source", "")
		assert.NoError(t, a.Init(monoSource))
		s, _ := g.Alloc("sink", "")
		assert.NoError(t, s.Init("sample_rate=44100"))
		assert.NoError(t, filter.Link(a, 0, s, 0))
		assert.ErrorIs(t, g.Config(), filter.ErrFormat)
	})
	t.Run("push format", func(t *testing.T) {
		src, _ := chain(t, monoSource)
		err := src.Push(&audiomix.Frame{Buffer: audiomix.EmptyBuffer(2, 1)})
		assert.ErrorIs(t, err, filter.ErrFormat)
	})
	t.Run("freed", func(t *testing.T) {
		g := filter.NewGraph()
		g.Free()
		_, err := g.Alloc("source", "")
		assert.ErrorIs(t, err, filter.ErrFreed)
	})
}
