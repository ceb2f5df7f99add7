package filter

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pipelined/audiomix"
)

// defaultPacketSize is number of samples in generated silence frames.
const defaultPacketSize = 4096

func init() {
	register("pad", func() filter { return &pad{} })
	register("trim", func() filter { return &trim{} })
	register("fade", func() filter { return &fade{} })
	register("delay", func() filter { return &delay{} })
	register("volume", func() filter { return &volume{} })
}

// pad appends silence after the end of input. Either pad_len samples are
// appended or the stream is extended up to whole_len samples. Without
// both parameters silence is appended forever.
type pad struct {
	padLen     int64
	wholeLen   int64
	packetSize int
	seen       int64
	padded     int64
	inputEOF   bool
	format     audiomix.Format
}

func (p *pad) init(a args) (err error) {
	if p.padLen, err = a.int64(-1, "pad_len"); err != nil {
		return err
	}
	if p.wholeLen, err = a.int64(-1, "whole_len"); err != nil {
		return err
	}
	if p.padLen >= 0 && p.wholeLen >= 0 {
		return fmt.Errorf("%w: pad_len and whole_len are exclusive", ErrInvalidArgs)
	}
	if p.packetSize, err = a.int(defaultPacketSize, "packet_size"); err != nil {
		return err
	}
	if p.packetSize <= 0 {
		return fmt.Errorf("%w: packet_size=%d", ErrInvalidArgs, p.packetSize)
	}
	return nil
}

func (p *pad) pads() (int, int) { return 1, 1 }

func (p *pad) configure(n *Node) error {
	p.format = n.input(0)
	n.format = p.format
	return nil
}

func (p *pad) remaining() int64 {
	switch {
	case p.padLen >= 0:
		return p.padLen - p.padded
	case p.wholeLen >= 0:
		return p.wholeLen - p.seen - p.padded
	}
	return math.MaxInt64
}

func (p *pad) pull(n *Node, _ int) (*audiomix.Frame, error) {
	if !p.inputEOF {
		f, err := n.pullInput(0)
		if err == nil {
			p.seen += int64(f.NumSamples())
			return f, nil
		}
		if !isEOF(err) {
			return nil, err
		}
		p.inputEOF = true
	}
	r := p.remaining()
	if r <= 0 {
		return nil, io.EOF
	}
	size := p.packetSize
	if r < int64(size) {
		size = int(r)
	}
	p.padded += int64(size)
	return audiomix.NewFrame(p.format, size), nil
}

// trim passes samples in range [start_sample, end_sample).
type trim struct {
	start int64
	end   int64
	pos   int64
}

func (t *trim) init(a args) (err error) {
	if t.end, err = a.int64(-1, "end_sample"); err != nil {
		return err
	}
	if t.start, err = a.int64(0, "start_sample"); err != nil {
		return err
	}
	if t.start < 0 || t.end >= 0 && t.end < t.start {
		return fmt.Errorf("%w: trim range [%d, %d)", ErrInvalidArgs, t.start, t.end)
	}
	return nil
}

func (t *trim) pads() (int, int) { return 1, 1 }

func (t *trim) configure(n *Node) error {
	n.format = n.input(0)
	return nil
}

func (t *trim) pull(n *Node, _ int) (*audiomix.Frame, error) {
	for {
		if t.end >= 0 && t.pos >= t.end {
			return nil, io.EOF
		}
		f, err := n.pullInput(0)
		if err != nil {
			return nil, err
		}
		size := int64(f.NumSamples())
		from, to := t.pos, t.pos+size
		t.pos = to
		if to <= t.start {
			continue
		}
		lo := int64(0)
		if from < t.start {
			lo = t.start - from
		}
		hi := size
		if t.end >= 0 && to > t.end {
			hi = t.end - from
		}
		if lo == 0 && hi == size {
			return f, nil
		}
		f.Buffer = f.Buffer.Slice(int(lo), int(hi-lo))
		return f, nil
	}
}

// fade applies linear gain ramp of nb_samples length starting at
// start_sample.
type fade struct {
	out    bool
	start  int64
	length int64
	pos    int64
}

func (f *fade) init(a args) (err error) {
	switch t := a.string("in", "type", "t"); strings.ToLower(t) {
	case "in", "0":
		f.out = false
	case "out", "1":
		f.out = true
	default:
		return fmt.Errorf("%w: fade type %q", ErrInvalidArgs, t)
	}
	if f.start, err = a.int64(0, "start_sample", "ss"); err != nil {
		return err
	}
	if f.length, err = a.int64(44100, "nb_samples", "ns"); err != nil {
		return err
	}
	if f.start < 0 || f.length <= 0 {
		return fmt.Errorf("%w: fade start=%d length=%d", ErrInvalidArgs, f.start, f.length)
	}
	return nil
}

func (f *fade) pads() (int, int) { return 1, 1 }

func (f *fade) configure(n *Node) error {
	n.format = n.input(0)
	return nil
}

// gain returns fade multiplier at absolute position.
func (f *fade) gain(pos int64) float64 {
	var g float64
	switch {
	case pos < f.start:
		g = 0
	case pos >= f.start+f.length:
		g = 1
	default:
		g = float64(pos-f.start) / float64(f.length)
	}
	if f.out {
		return 1 - g
	}
	return g
}

func (f *fade) pull(n *Node, _ int) (*audiomix.Frame, error) {
	fr, err := n.pullInput(0)
	if err != nil {
		return nil, err
	}
	size := int64(fr.NumSamples())
	if f.pos+size > f.start || !f.out {
		for i := int64(0); i < size; i++ {
			g := f.gain(f.pos + i)
			if g == 1 {
				continue
			}
			for c := range fr.Buffer {
				fr.Buffer[c][i] *= g
			}
		}
	}
	f.pos += size
	return fr, nil
}

// delay prepends silence. Delay is set in milliseconds, or in samples with
// S suffix. Multiple per-channel values separated by | are accepted, the
// first one is applied to all channels.
type delay struct {
	ms        float64
	inSamples bool
	samples   int64
	left      int64
	format    audiomix.Format
}

func (d *delay) init(a args) error {
	v, ok := a.lookupAny("delays")
	if !ok {
		return fmt.Errorf("%w: delay requires delays", ErrInvalidArgs)
	}
	v = strings.SplitN(v, "|", 2)[0]
	var (
		s   string
		err error
	)
	if s, d.inSamples = strings.CutSuffix(v, "S"); d.inSamples {
		d.samples, err = strconv.ParseInt(s, 10, 64)
	} else {
		d.ms, err = strconv.ParseFloat(s, 64)
	}
	if err != nil || d.samples < 0 || d.ms < 0 {
		return fmt.Errorf("%w: delays=%q", ErrInvalidArgs, v)
	}
	return nil
}

func (d *delay) pads() (int, int) { return 1, 1 }

func (d *delay) configure(n *Node) error {
	d.format = n.input(0)
	if !d.inSamples {
		d.samples = int64(math.Round(d.ms * float64(d.format.SampleRate) / 1000))
	}
	d.left = d.samples
	n.format = d.format
	return nil
}

func (d *delay) pull(n *Node, _ int) (*audiomix.Frame, error) {
	if d.left > 0 {
		size := int64(defaultPacketSize)
		if d.left < size {
			size = d.left
		}
		d.left -= size
		return audiomix.NewFrame(d.format, int(size)), nil
	}
	return n.pullInput(0)
}

// volume multiplies samples by linear gain.
type volume struct {
	gain float64
}

func (v *volume) init(a args) (err error) {
	if v.gain, err = a.float(1, "volume"); err != nil {
		return err
	}
	if v.gain < 0 || math.IsNaN(v.gain) || math.IsInf(v.gain, 0) {
		return fmt.Errorf("%w: volume=%v", ErrInvalidArgs, v.gain)
	}
	return nil
}

func (v *volume) pads() (int, int) { return 1, 1 }

func (v *volume) configure(n *Node) error {
	n.format = n.input(0)
	return nil
}

func (v *volume) pull(n *Node, _ int) (*audiomix.Frame, error) {
	f, err := n.pullInput(0)
	if err != nil || v.gain == 1 {
		return f, err
	}
	for c := range f.Buffer {
		for i := range f.Buffer[c] {
			f.Buffer[c][i] *= v.gain
		}
	}
	return f, nil
}
