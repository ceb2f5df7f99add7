package filter

import (
	"io"
	"math"

	"github.com/pipelined/audiomix"
)

func init() {
	register("normalize", func() filter { return &normalize{} })
}

// normalize converts channel layout, sample rate and sample format. Zero
// target fields keep input values.
type normalize struct {
	target audiomix.Format
	in     audiomix.Format
	out    audiomix.Format
	rs     *resampler
}

func (f *normalize) init(a args) error {
	var err error
	f.target, err = a.format()
	return err
}

func (f *normalize) pads() (int, int) { return 1, 1 }

func (f *normalize) configure(n *Node) error {
	f.in = n.input(0)
	f.out = f.in
	if f.target.SampleFormat != "" {
		f.out.SampleFormat = f.target.SampleFormat
	}
	if f.target.SampleRate != 0 {
		f.out.SampleRate = f.target.SampleRate
	}
	if f.target.NumChannels != 0 {
		f.out.NumChannels = f.target.NumChannels
	}
	if f.in.SampleRate != f.out.SampleRate {
		f.rs = newResampler(f.in.SampleRate, f.out.SampleRate, f.out.NumChannels)
	}
	n.format = f.out
	return nil
}

func (f *normalize) pull(n *Node, _ int) (*audiomix.Frame, error) {
	for {
		if f.rs != nil && f.rs.done {
			return nil, io.EOF
		}
		in, err := n.pullInput(0)
		if isEOF(err) && f.rs != nil {
			f.rs.done = true
			b := f.rs.flush()
			if b.Size() == 0 {
				return nil, io.EOF
			}
			return f.frame(b), nil
		}
		if err != nil {
			return nil, err
		}
		b := remix(in.Buffer, f.out.NumChannels)
		if f.rs != nil {
			b = f.rs.process(b)
			if b.Size() == 0 {
				continue
			}
		}
		return f.frame(b), nil
	}
}

func (f *normalize) frame(b audiomix.Buffer) *audiomix.Frame {
	if depth := f.out.SampleFormat.BitDepth(); depth > 0 {
		quantize(b, depth)
	}
	return &audiomix.Frame{Buffer: b, SampleRate: f.out.SampleRate}
}

// remix maps input channels to the output layout. Downmix averages input
// channels folded onto the same output channel, upmix repeats them.
func remix(b audiomix.Buffer, numChannels int) audiomix.Buffer {
	inChannels := b.NumChannels()
	if inChannels == numChannels {
		return b
	}
	size := b.Size()
	out := audiomix.EmptyBuffer(numChannels, size)
	if inChannels < numChannels {
		for c := range out {
			copy(out[c], b[c%inChannels])
		}
		return out
	}
	counts := make([]float64, numChannels)
	for c := range b {
		oc := c % numChannels
		counts[oc]++
		for i, v := range b[c] {
			out[oc][i] += v
		}
	}
	for c := range out {
		for i := range out[c] {
			out[c][i] /= counts[c]
		}
	}
	return out
}

// quantize rounds samples to the grid of integer format.
func quantize(b audiomix.Buffer, bitDepth int) {
	scale := float64(int64(1) << uint(bitDepth-1))
	for c := range b {
		for i, v := range b[c] {
			s := math.Round(v * scale)
			if s > scale-1 {
				s = scale - 1
			} else if s < -scale {
				s = -scale
			}
			b[c][i] = s / scale
		}
	}
}

// resampler converts sample rate with linear interpolation. It's stateful
// so the stream is continuous across frame boundaries.
type resampler struct {
	step     float64
	consumed int64
	produced int64
	last     []float64
	done     bool
}

func newResampler(inRate, outRate, numChannels int) *resampler {
	return &resampler{
		step: float64(inRate) / float64(outRate),
		last: make([]float64, numChannels),
	}
}

// sample returns input sample at absolute position. Position is either
// the last sample of previous buffer or inside the current one.
func (r *resampler) sample(b audiomix.Buffer, c int, pos int64) float64 {
	if pos < r.consumed {
		return r.last[c]
	}
	return b[c][pos-r.consumed]
}

func (r *resampler) process(b audiomix.Buffer) audiomix.Buffer {
	size := int64(b.Size())
	if size == 0 {
		return nil
	}
	var out audiomix.Buffer = make([][]float64, len(r.last))
	for {
		pos := float64(r.produced) * r.step
		i0 := int64(pos)
		if i0+1 > r.consumed+size-1 {
			break
		}
		frac := pos - float64(i0)
		for c := range out {
			v := r.sample(b, c, i0)*(1-frac) + r.sample(b, c, i0+1)*frac
			out[c] = append(out[c], v)
		}
		r.produced++
	}
	for c := range r.last {
		r.last[c] = b[c][size-1]
	}
	r.consumed += size
	return out
}

// flush emits samples positioned at the tail of input.
func (r *resampler) flush() audiomix.Buffer {
	var out audiomix.Buffer = make([][]float64, len(r.last))
	if r.consumed == 0 {
		return out
	}
	for {
		pos := float64(r.produced) * r.step
		if int64(pos) > r.consumed-1 {
			break
		}
		for c := range out {
			out[c] = append(out[c], r.last[c])
		}
		r.produced++
	}
	return out
}
