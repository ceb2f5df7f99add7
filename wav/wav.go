// Package wav reads and writes PCM wav files.
package wav

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/pipelined/audiomix"
)

// frameSize is number of samples per channel in decoded frames.
const frameSize = 1024

// Supported bit depths.
const (
	BitDepth16 = 16
	BitDepth24 = 24
	BitDepth32 = 32
)

var (
	// ErrUnsupportedBitDepth is returned when unsupported bit depth is used.
	ErrUnsupportedBitDepth = errors.New("only 16, 24 and 32 bit depth is supported")
	// ErrInvalidFile is returned when file is not a valid wav.
	ErrInvalidFile = errors.New("wav is not valid")
)

func validBitDepth(bitDepth int) bool {
	return bitDepth == BitDepth16 || bitDepth == BitDepth24 || bitDepth == BitDepth32
}

func sampleFormat(bitDepth int) audiomix.SampleFormat {
	if bitDepth == BitDepth16 {
		return audiomix.SampleFormatS16
	}
	return audiomix.SampleFormatS32
}

// Input decodes wav file.
type Input struct {
	file     *os.File
	decoder  *wav.Decoder
	format   audiomix.Format
	bitDepth int
	ib       *audio.IntBuffer
	pts      int64
}

// Open opens wav file for decoding.
func Open(path string) (*Input, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		if err := file.Close(); err != nil {
			return nil, fmt.Errorf("%w, failed to close the file %v: %v", ErrInvalidFile, path, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, path)
	}
	bitDepth := int(decoder.BitDepth)
	if !validBitDepth(bitDepth) {
		file.Close()
		return nil, fmt.Errorf("%w: %v has %d bits", ErrUnsupportedBitDepth, path, bitDepth)
	}
	numChannels := int(decoder.NumChans)
	return &Input{
		file:     file,
		decoder:  decoder,
		bitDepth: bitDepth,
		format: audiomix.Format{
			SampleFormat: sampleFormat(bitDepth),
			SampleRate:   int(decoder.SampleRate),
			NumChannels:  numChannels,
		},
		ib: &audio.IntBuffer{
			Format:         decoder.Format(),
			Data:           make([]int, frameSize*numChannels),
			SourceBitDepth: bitDepth,
		},
	}, nil
}

// Format returns format of decoded frames.
func (in *Input) Format() audiomix.Format {
	return in.format
}

// Duration returns number of samples per channel declared in header.
func (in *Input) Duration() (int64, bool) {
	d, err := in.decoder.Duration()
	if err != nil {
		return 0, false
	}
	return int64(math.Round(d.Seconds() * float64(in.format.SampleRate))), true
}

// Decode reads next frame.
func (in *Input) Decode() (*audiomix.Frame, error) {
	read, err := in.decoder.PCMBuffer(in.ib)
	if err != nil {
		return nil, err
	}
	if read == 0 {
		return nil, io.EOF
	}
	numChannels := in.format.NumChannels
	size := read / numChannels
	f := audiomix.NewFrame(in.format, size)
	scale := float64(int64(1) << uint(in.bitDepth-1))
	for i := 0; i < size*numChannels; i++ {
		f.Buffer[i%numChannels][i/numChannels] = float64(in.ib.Data[i]) / scale
	}
	f.PTS = in.pts
	in.pts += int64(size)
	return f, nil
}

// Close closes the file.
func (in *Input) Close() error {
	return in.file.Close()
}

// Output encodes frames into wav file.
type Output struct {
	file     *os.File
	encoder  *wav.Encoder
	format   audiomix.Format
	bitDepth int
}

// Create creates wav file. Sample format of provided format is ignored,
// samples are stored with provided bit depth.
func Create(path string, f audiomix.Format, bitDepth int) (*Output, error) {
	if !validBitDepth(bitDepth) {
		return nil, ErrUnsupportedBitDepth
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	f.SampleFormat = sampleFormat(bitDepth)
	return &Output{
		file:     file,
		encoder:  wav.NewEncoder(file, f.SampleRate, bitDepth, f.NumChannels, 1),
		format:   f,
		bitDepth: bitDepth,
	}, nil
}

// Format returns format of frames encoder expects.
func (o *Output) Format() audiomix.Format {
	return o.format
}

// FrameSize returns zero, PCM accepts frames of any size.
func (o *Output) FrameSize() int {
	return 0
}

// WriteHeader does nothing, header is written with first samples.
func (o *Output) WriteHeader() error {
	return nil
}

// Encode converts frame into PCM packet. PCM has no delay, so nil frame
// produces no packet.
func (o *Output) Encode(f *audiomix.Frame) (*audiomix.Packet, error) {
	if f == nil || f.NumSamples() == 0 {
		return nil, nil
	}
	return &audiomix.Packet{
		PCM: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: o.format.NumChannels,
				SampleRate:  o.format.SampleRate,
			},
			Data:           f.Ints(o.bitDepth),
			SourceBitDepth: o.bitDepth,
		},
		Duration: int64(f.NumSamples()),
	}, nil
}

// WritePacket writes PCM samples.
func (o *Output) WritePacket(p *audiomix.Packet) error {
	return o.encoder.Write(p.PCM)
}

// WriteTrailer finalizes wav header.
func (o *Output) WriteTrailer() error {
	return o.encoder.Close()
}

// Close closes the file.
func (o *Output) Close() error {
	return o.file.Close()
}
