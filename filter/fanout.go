package filter

import (
	"errors"
	"fmt"
	"io"

	"github.com/pipelined/audiomix"
)

func init() {
	register("split", func() filter { return &split{} })
	register("passthrough", func() filter { return &passthrough{} })
	register("mix", func() filter { return &mix{} })
	register("concat", func() filter { return &concat{} })
}

// split duplicates input to every output pad. Frames not yet pulled by an
// output are queued for it.
type split struct {
	outputs int
	queues  [][]*audiomix.Frame
	eof     bool
}

func (s *split) init(a args) (err error) {
	if s.outputs, err = a.int(2, "outputs"); err != nil {
		return err
	}
	if s.outputs < 1 {
		return fmt.Errorf("%w: outputs=%d", ErrInvalidArgs, s.outputs)
	}
	s.queues = make([][]*audiomix.Frame, s.outputs)
	return nil
}

func (s *split) pads() (int, int) { return 1, s.outputs }

func (s *split) configure(n *Node) error {
	n.format = n.input(0)
	return nil
}

func (s *split) pull(n *Node, pad int) (*audiomix.Frame, error) {
	if q := s.queues[pad]; len(q) > 0 {
		s.queues[pad] = q[1:]
		return q[0], nil
	}
	if s.eof {
		return nil, io.EOF
	}
	f, err := n.pullInput(0)
	if isEOF(err) {
		s.eof = true
	}
	if err != nil {
		return nil, err
	}
	for i := range s.queues {
		if i != pad {
			s.queues[i] = append(s.queues[i], &audiomix.Frame{
				Buffer:     f.Buffer.Copy(),
				PTS:        f.PTS,
				SampleRate: f.SampleRate,
			})
		}
	}
	return f, nil
}

// passthrough forwards frames unchanged.
type passthrough struct{}

func (passthrough) init(args) error  { return nil }
func (passthrough) pads() (int, int) { return 1, 1 }

func (passthrough) configure(n *Node) error {
	n.format = n.input(0)
	return nil
}

func (passthrough) pull(n *Node, _ int) (*audiomix.Frame, error) {
	return n.pullInput(0)
}

// mix duration modes.
const (
	mixLongest  = "longest"
	mixShortest = "shortest"
	mixFirst    = "first"
)

// mix sums inputs sample-wise. Every sample is divided by the number of
// inputs active at its position.
type mix struct {
	inputs   int
	duration string
	fifo     []audiomix.Buffer
	eof      []bool
	format   audiomix.Format
	pts      int64
}

func (m *mix) init(a args) (err error) {
	if m.inputs, err = a.int(2, "inputs"); err != nil {
		return err
	}
	if m.inputs < 1 {
		return fmt.Errorf("%w: inputs=%d", ErrInvalidArgs, m.inputs)
	}
	switch m.duration = a.string(mixLongest, "duration"); m.duration {
	case mixLongest, mixShortest, mixFirst:
	default:
		return fmt.Errorf("%w: duration=%q", ErrInvalidArgs, m.duration)
	}
	m.fifo = make([]audiomix.Buffer, m.inputs)
	m.eof = make([]bool, m.inputs)
	return nil
}

func (m *mix) pads() (int, int) { return m.inputs, 1 }

func (m *mix) configure(n *Node) error {
	m.format = n.input(0)
	for i := 1; i < m.inputs; i++ {
		if !m.format.Compatible(n.input(i)) {
			return fmt.Errorf("%w: mix input %d is %v, input 0 is %v", ErrFormat, i, n.input(i), m.format)
		}
	}
	n.format = m.format
	return nil
}

// finished reports whether input has no more samples.
func (m *mix) finished(i int) bool {
	return m.eof[i] && m.fifo[i].Size() == 0
}

func (m *mix) done() bool {
	switch m.duration {
	case mixFirst:
		return m.finished(0)
	case mixShortest:
		for i := range m.fifo {
			if m.finished(i) {
				return true
			}
		}
		return false
	}
	for i := range m.fifo {
		if !m.finished(i) {
			return false
		}
	}
	return true
}

// pull requests frames from every empty input before reporting that more
// input is needed, so all starved sources are known after a single pull.
func (m *mix) pull(n *Node, _ int) (*audiomix.Frame, error) {
	var needMore error
	for i := range m.fifo {
		for !m.eof[i] && m.fifo[i].Size() == 0 {
			f, err := n.pullInput(i)
			if isEOF(err) {
				m.eof[i] = true
				break
			}
			if errors.Is(err, audiomix.ErrNeedMore) {
				needMore = err
				break
			}
			if err != nil {
				return nil, err
			}
			m.fifo[i] = m.fifo[i].Append(f.Buffer)
		}
	}
	if m.done() {
		return nil, io.EOF
	}
	if needMore != nil {
		return nil, needMore
	}
	// Output is limited by the shortest input that still has data coming.
	size := -1
	for i := range m.fifo {
		if !m.eof[i] && (size < 0 || m.fifo[i].Size() < size) {
			size = m.fifo[i].Size()
		}
	}
	if size < 0 {
		for i := range m.fifo {
			if m.fifo[i].Size() > size {
				size = m.fifo[i].Size()
			}
		}
	}
	out := audiomix.NewFrame(m.format, size)
	active := make([]float64, size)
	for i := range m.fifo {
		b := m.fifo[i]
		l := b.Size()
		if l > size {
			l = size
		}
		for c := range out.Buffer {
			for j := 0; j < l; j++ {
				out.Buffer[c][j] += b[c][j]
			}
		}
		for j := 0; j < l; j++ {
			active[j]++
		}
		m.fifo[i] = b.Slice(l, b.Size())
	}
	for c := range out.Buffer {
		for j := range out.Buffer[c] {
			out.Buffer[c][j] /= active[j]
		}
	}
	out.PTS = m.pts
	m.pts += int64(size)
	return out, nil
}

// concat plays inputs one after another.
type concat struct {
	inputs  int
	current int
	pos     int64
}

func (c *concat) init(a args) (err error) {
	if c.inputs, err = a.int(2, "n"); err != nil {
		return err
	}
	if c.inputs < 1 {
		return fmt.Errorf("%w: n=%d", ErrInvalidArgs, c.inputs)
	}
	v, err := a.int(0, "v")
	if err != nil {
		return err
	}
	au, err := a.int(1, "a")
	if err != nil {
		return err
	}
	if v != 0 || au != 1 {
		return fmt.Errorf("%w: only one audio stream is supported", ErrInvalidArgs)
	}
	return nil
}

func (c *concat) pads() (int, int) { return c.inputs, 1 }

func (c *concat) configure(n *Node) error {
	f := n.input(0)
	for i := 1; i < c.inputs; i++ {
		if !f.Compatible(n.input(i)) {
			return fmt.Errorf("%w: concat input %d is %v, input 0 is %v", ErrFormat, i, n.input(i), f)
		}
	}
	n.format = f
	return nil
}

func (c *concat) pull(n *Node, _ int) (*audiomix.Frame, error) {
	for c.current < c.inputs {
		f, err := n.pullInput(c.current)
		if isEOF(err) {
			c.current++
			continue
		}
		if err != nil {
			return nil, err
		}
		f.PTS = c.pos
		c.pos += int64(f.NumSamples())
		return f, nil
	}
	return nil, io.EOF
}
