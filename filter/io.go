package filter

import (
	"fmt"
	"io"

	"github.com/pipelined/audiomix"
)

func init() {
	register("source", func() filter { return &source{} })
	register("sink", func() filter { return &sink{} })
}

// source is a graph entry point. Frames pushed into it are queued until
// downstream pulls them.
type source struct {
	format audiomix.Format
	queue  []*audiomix.Frame
	eof    bool
	failed int
}

func (s *source) init(a args) error {
	f, err := a.format()
	if err != nil {
		return err
	}
	if f.SampleRate == 0 || f.NumChannels == 0 {
		return fmt.Errorf("%w: source requires sample_rate and channels", ErrInvalidArgs)
	}
	if f.SampleFormat == "" {
		f.SampleFormat = audiomix.SampleFormatFltP
	}
	// frames are timed in samples, time base is accepted for compatibility.
	a.namedAny("time_base")
	s.format = f
	return nil
}

func (s *source) pads() (int, int) { return 0, 1 }

func (s *source) configure(n *Node) error {
	n.format = s.format
	return nil
}

func (s *source) push(n *Node, f *audiomix.Frame) error {
	if s.eof {
		return fmt.Errorf("%w: %v", ErrClosed, n)
	}
	s.failed = 0
	if f == nil {
		s.eof = true
		return nil
	}
	if f.NumChannels() != s.format.NumChannels {
		return fmt.Errorf("%w: %v expects %d channels, got %d", ErrFormat, n, s.format.NumChannels, f.NumChannels())
	}
	if f.SampleRate != 0 && f.SampleRate != s.format.SampleRate {
		return fmt.Errorf("%w: %v expects %dHz, got %dHz", ErrFormat, n, s.format.SampleRate, f.SampleRate)
	}
	s.queue = append(s.queue, f)
	return nil
}

func (s *source) pull(n *Node, _ int) (*audiomix.Frame, error) {
	if len(s.queue) > 0 {
		f := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		return f, nil
	}
	if s.eof {
		return nil, io.EOF
	}
	s.failed++
	return nil, audiomix.ErrNeedMore
}

// sink is a graph exit point. If frame size is set, every frame except
// the last one has exactly that number of samples.
type sink struct {
	want      audiomix.Format
	frameSize int
	pending   audiomix.Buffer
	eof       bool
	pts       int64
}

func (s *sink) init(a args) error {
	f, err := a.format()
	if err != nil {
		return err
	}
	s.want = f
	if s.frameSize, err = a.int(0, "frame_size"); err != nil {
		return err
	}
	if s.frameSize < 0 {
		return fmt.Errorf("%w: frame_size=%d", ErrInvalidArgs, s.frameSize)
	}
	return nil
}

func (s *sink) pads() (int, int) { return 1, 0 }

func (s *sink) configure(n *Node) error {
	in := n.input(0)
	if s.want.SampleRate != 0 && s.want.SampleRate != in.SampleRate ||
		s.want.NumChannels != 0 && s.want.NumChannels != in.NumChannels ||
		s.want.SampleFormat != "" && s.want.SampleFormat != in.SampleFormat {
		return fmt.Errorf("%w: sink wants %v, input is %v", ErrFormat, s.want, in)
	}
	n.format = in
	return nil
}

func (s *sink) pull(n *Node, _ int) (*audiomix.Frame, error) {
	if s.frameSize == 0 {
		f, err := n.pullInput(0)
		if err != nil {
			return nil, err
		}
		return s.stamp(n, f), nil
	}
	for !s.eof && s.pending.Size() < s.frameSize {
		f, err := n.pullInput(0)
		if isEOF(err) {
			s.eof = true
			break
		}
		if err != nil {
			return nil, err
		}
		s.pending = s.pending.Append(f.Buffer)
	}
	if s.pending.Size() == 0 {
		return nil, io.EOF
	}
	b := s.pending.Slice(0, s.frameSize)
	s.pending = s.pending.Slice(b.Size(), s.pending.Size())
	return s.stamp(n, &audiomix.Frame{Buffer: b}), nil
}

func (s *sink) stamp(n *Node, f *audiomix.Frame) *audiomix.Frame {
	f.PTS = s.pts
	f.SampleRate = n.format.SampleRate
	s.pts += int64(f.NumSamples())
	return f
}
