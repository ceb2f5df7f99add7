// Package streamer adapts beep streamers to audiomix inputs.
package streamer

import (
	"io"

	"github.com/gopxl/beep/v2"

	"github.com/pipelined/audiomix"
)

// frameSize is number of samples per channel in decoded frames.
const frameSize = 1024

// Input decodes beep stream. Beep streams are always stereo, mono sources
// have equal channels, so only the first one is used.
type Input struct {
	s      beep.StreamSeekCloser
	format audiomix.Format
	buf    [][2]float64
	pts    int64
}

// New returns input for the stream.
func New(s beep.StreamSeekCloser, f beep.Format) *Input {
	sf := audiomix.SampleFormatS16
	if f.Precision > 2 {
		sf = audiomix.SampleFormatS32
	}
	numChannels := f.NumChannels
	if numChannels > 2 || numChannels < 1 {
		numChannels = 2
	}
	return &Input{
		s: s,
		format: audiomix.Format{
			SampleFormat: sf,
			SampleRate:   int(f.SampleRate),
			NumChannels:  numChannels,
		},
		buf: make([][2]float64, frameSize),
	}
}

// Format returns format of decoded frames.
func (in *Input) Format() audiomix.Format {
	return in.format
}

// Duration returns number of samples per channel.
func (in *Input) Duration() (int64, bool) {
	l := in.s.Len()
	if l <= 0 {
		return 0, false
	}
	return int64(l), true
}

// Decode reads next frame.
func (in *Input) Decode() (*audiomix.Frame, error) {
	n, ok := in.s.Stream(in.buf)
	if n == 0 {
		if err := in.s.Err(); err != nil {
			return nil, err
		}
		if !ok {
			return nil, io.EOF
		}
	}
	f := audiomix.NewFrame(in.format, n)
	for i := 0; i < n; i++ {
		for c := range f.Buffer {
			f.Buffer[c][i] = in.buf[i][c]
		}
	}
	f.PTS = in.pts
	in.pts += int64(n)
	return f, nil
}

// Close releases the stream.
func (in *Input) Close() error {
	return in.s.Close()
}
