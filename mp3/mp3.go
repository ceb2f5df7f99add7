// Package mp3 decodes mp3 files with go-mp3 and encodes them with lame.
package mp3

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"

	"github.com/pipelined/audiomix"
)

const (
	// decoder always provides stereo 16-bit samples.
	decodedChannels = 2
	bytesPerSample  = 2 * decodedChannels
	// FrameSize is number of samples per channel in mp3 frame.
	FrameSize = 1152
)

// ErrEmpty is returned when file has no audio frames.
var ErrEmpty = errors.New("mp3 has no frames")

// Input decodes mp3 file.
type Input struct {
	f   *os.File
	d   *mp3.Decoder
	buf []byte
	pts int64
	eof bool
}

// Open opens mp3 file for decoding.
func Open(path string) (*Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	d, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%v: %w", path, err)
	}
	if d.SampleRate() <= 0 {
		f.Close()
		return nil, fmt.Errorf("%v: %w", path, ErrEmpty)
	}

	return &Input{
		f:   f,
		d:   d,
		buf: make([]byte, FrameSize*bytesPerSample),
	}, nil
}

// Format returns format of decoded frames.
func (in *Input) Format() audiomix.Format {
	return audiomix.Format{
		SampleFormat: audiomix.SampleFormatS16,
		SampleRate:   in.d.SampleRate(),
		NumChannels:  decodedChannels,
	}
}

// Duration returns number of samples per channel. It's known only for
// seekable sources.
func (in *Input) Duration() (int64, bool) {
	l := in.d.Length()
	if l < 0 {
		return 0, false
	}
	return l / bytesPerSample, true
}

// Decode reads next frame.
func (in *Input) Decode() (*audiomix.Frame, error) {
	if in.eof {
		return nil, io.EOF
	}
	read, err := io.ReadFull(in.d, in.buf)
	switch err {
	case nil:
	case io.EOF, io.ErrUnexpectedEOF:
		in.eof = true
		if read < bytesPerSample {
			return nil, io.EOF
		}
	default:
		return nil, err
	}

	size := read / bytesPerSample
	ints := make([]int16, size*decodedChannels)
	for i := range ints {
		ints[i] = int16(uint16(in.buf[2*i]) | uint16(in.buf[2*i+1])<<8)
	}
	f := audiomix.NewFrame(in.Format(), size)
	f.ReadInts16(ints)
	f.PTS = in.pts
	in.pts += int64(size)
	return f, nil
}

// Close closes the file.
func (in *Input) Close() error {
	return in.f.Close()
}
