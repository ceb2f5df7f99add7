package audiomix

import (
	"fmt"

	"github.com/go-audio/audio"
)

// SampleFormat names the way samples are stored by codecs. Frames always
// carry float64 samples, the format defines the quantization applied when
// the signal is normalized for an encoder.
type SampleFormat string

// Supported sample formats.
const (
	SampleFormatS16  SampleFormat = "s16"
	SampleFormatS16P SampleFormat = "s16p"
	SampleFormatS32  SampleFormat = "s32"
	SampleFormatFlt  SampleFormat = "flt"
	SampleFormatFltP SampleFormat = "fltp"
)

// BitDepth returns bit depth of integer formats and 0 for float formats.
func (f SampleFormat) BitDepth() int {
	switch f {
	case SampleFormatS16, SampleFormatS16P:
		return 16
	case SampleFormatS32:
		return 32
	}
	return 0
}

// Valid reports whether format is known.
func (f SampleFormat) Valid() bool {
	switch f {
	case SampleFormatS16, SampleFormatS16P, SampleFormatS32, SampleFormatFlt, SampleFormatFltP:
		return true
	}
	return false
}

// Format describes signal properties.
type Format struct {
	SampleFormat SampleFormat
	SampleRate   int
	NumChannels  int
}

// String returns format in the same notation filter parameters use.
func (f Format) String() string {
	return fmt.Sprintf("%s/%dHz/%dch", f.SampleFormat, f.SampleRate, f.NumChannels)
}

// Compatible reports whether two formats can be linked without conversion.
func (f Format) Compatible(o Format) bool {
	return f.SampleRate == o.SampleRate && f.NumChannels == o.NumChannels
}

// Frame is a block of decoded samples travelling through the graph.
type Frame struct {
	Buffer
	PTS        int64
	SampleRate int
}

// NewFrame returns a frame of silence.
func NewFrame(f Format, size int) *Frame {
	return &Frame{
		Buffer:     EmptyBuffer(f.NumChannels, size),
		SampleRate: f.SampleRate,
	}
}

// NumSamples returns number of samples per channel in the frame.
func (f *Frame) NumSamples() int {
	if f == nil {
		return 0
	}
	return f.Size()
}

// Packet is an encoded unit emitted by an output encoder. Compressed codecs
// fill Data, PCM codecs fill PCM.
type Packet struct {
	Data     []byte
	PCM      *audio.IntBuffer
	PTS      int64
	DTS      int64
	Duration int64
}

// Input is a decodable audio source.
type Input interface {
	// Format returns format of decoded frames.
	Format() Format
	// Decode returns next frame. io.EOF is returned when input is exhausted.
	Decode() (*Frame, error)
	// Duration returns number of samples if it's known without decoding.
	Duration() (int64, bool)
	Close() error
}

// Output is an encoder with its muxer.
type Output interface {
	// Format returns the format encoder expects.
	Format() Format
	// FrameSize returns fixed number of samples per encoded frame, zero if
	// encoder accepts any size.
	FrameSize() int
	WriteHeader() error
	// Encode consumes a frame and returns a packet if one is ready. Nil
	// frame flushes encoder. Nil packet means no output was produced.
	Encode(*Frame) (*Packet, error)
	WritePacket(*Packet) error
	WriteTrailer() error
	Close() error
}
