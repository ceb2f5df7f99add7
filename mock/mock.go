// Package mock provides mocks of decoders and encoders and allows to
// execute pipeline tests without files.
package mock

import (
	"io"

	"github.com/pipelined/audiomix"
)

const (
	defaultFrameSize  = 512
	defaultSampleRate = 44100
)

type counter struct {
	frames  int64
	samples int64
}

func (c *counter) advance(size int) {
	c.frames++
	c.samples += int64(size)
}

// Count returns number of frames and samples processed.
func (c *counter) Count() (int64, int64) {
	return c.frames, c.samples
}

// Hooks allows to mock resource handling.
type Hooks struct {
	Closed       bool
	ErrorOnClose error
}

// Input mocks audiomix.Input. It decodes Limit samples of constant value.
type Input struct {
	counter
	Limit       int
	FrameSize   int
	Value       float64
	NumChannels int
	SampleRate  int
	// Unknown hides duration so it must be measured by decoding.
	Unknown     bool
	ErrorOnCall error
	Hooks
}

// Format returns format of decoded frames.
func (m *Input) Format() audiomix.Format {
	f := audiomix.Format{
		SampleFormat: audiomix.SampleFormatFltP,
		SampleRate:   m.SampleRate,
		NumChannels:  m.NumChannels,
	}
	if f.SampleRate == 0 {
		f.SampleRate = defaultSampleRate
	}
	if f.NumChannels == 0 {
		f.NumChannels = 1
	}
	return f
}

// Duration returns the limit.
func (m *Input) Duration() (int64, bool) {
	if m.Unknown {
		return 0, false
	}
	return int64(m.Limit), true
}

// Decode returns next frame.
func (m *Input) Decode() (*audiomix.Frame, error) {
	if m.ErrorOnCall != nil {
		return nil, m.ErrorOnCall
	}
	left := m.Limit - int(m.samples)
	if left <= 0 {
		return nil, io.EOF
	}
	size := m.FrameSize
	if size == 0 {
		size = defaultFrameSize
	}
	if left < size {
		size = left
	}
	f := audiomix.NewFrame(m.Format(), size)
	for i := range f.Buffer {
		for j := range f.Buffer[i] {
			f.Buffer[i][j] = m.Value
		}
	}
	m.advance(size)
	return f, nil
}

// Close marks input closed.
func (m *Input) Close() error {
	m.Closed = true
	return m.ErrorOnClose
}

// Output mocks audiomix.Output. Encoder holds Delay frames before emitting
// packets, each packet carries one frame.
type Output struct {
	counter
	OutputFormat audiomix.Format
	Size         int
	Delay        int
	ErrorOnCall  error
	ErrorOnWrite error
	Hooks

	HeaderWritten  bool
	TrailerWritten bool
	Flushes        int

	queue   []*audiomix.Frame
	ready   []audiomix.Buffer
	packets []*audiomix.Packet
	buffer  audiomix.Buffer
}

// Format returns output format.
func (m *Output) Format() audiomix.Format {
	return m.OutputFormat
}

// FrameSize returns encoder frame size.
func (m *Output) FrameSize() int {
	return m.Size
}

// WriteHeader marks header written.
func (m *Output) WriteHeader() error {
	m.HeaderWritten = true
	return nil
}

// Encode queues frame and returns a packet if encoder delay is exceeded.
func (m *Output) Encode(f *audiomix.Frame) (*audiomix.Packet, error) {
	if m.ErrorOnCall != nil {
		return nil, m.ErrorOnCall
	}
	if f == nil {
		m.Flushes++
		if len(m.queue) == 0 {
			return nil, nil
		}
	} else {
		m.queue = append(m.queue, f)
		if len(m.queue) <= m.Delay {
			return nil, nil
		}
	}
	next := m.queue[0]
	m.queue = m.queue[1:]
	m.ready = append(m.ready, next.Buffer)
	return &audiomix.Packet{Duration: int64(next.NumSamples())}, nil
}

// WritePacket stores the packet and its samples.
func (m *Output) WritePacket(p *audiomix.Packet) error {
	if m.ErrorOnWrite != nil {
		return m.ErrorOnWrite
	}
	b := m.ready[0]
	m.ready = m.ready[1:]
	m.packets = append(m.packets, p)
	m.buffer = m.buffer.Append(b)
	m.advance(b.Size())
	return nil
}

// WriteTrailer marks trailer written.
func (m *Output) WriteTrailer() error {
	m.TrailerWritten = true
	return nil
}

// Close marks output closed.
func (m *Output) Close() error {
	m.Closed = true
	return m.ErrorOnClose
}

// Packets returns written packets.
func (m *Output) Packets() []*audiomix.Packet {
	return m.packets
}

// Buffer returns written samples.
func (m *Output) Buffer() audiomix.Buffer {
	return m.buffer
}
