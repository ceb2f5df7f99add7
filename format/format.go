// Package format opens decoders and creates encoders by file name.
package format

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pipelined/audiomix"
	"github.com/pipelined/audiomix/flac"
	"github.com/pipelined/audiomix/graph"
	"github.com/pipelined/audiomix/internal/release"
	"github.com/pipelined/audiomix/mp3"
	"github.com/pipelined/audiomix/pump"
	"github.com/pipelined/audiomix/vorbis"
	"github.com/pipelined/audiomix/wav"
)

var (
	// ErrUnsupportedInput is returned for files without registered decoder.
	ErrUnsupportedInput = errors.New("unsupported input file")
	// ErrUnsupportedOutput is returned for unknown output file types.
	ErrUnsupportedOutput = errors.New("unsupported output file type")
)

// OpenFunc opens input file.
type OpenFunc func(path string) (audiomix.Input, error)

// CreateFunc creates output file of provided format. Bit rate is ignored
// by lossless encoders.
type CreateFunc func(path string, f audiomix.Format, bitRate int) (audiomix.Output, error)

var (
	mu       sync.RWMutex
	decoders = map[string]OpenFunc{}
	encoders = map[string]CreateFunc{}
)

func init() {
	audiomix.Register(func() {
		RegisterInput(".wav", func(path string) (audiomix.Input, error) {
			return wav.Open(path)
		})
		RegisterInput(".mp3", func(path string) (audiomix.Input, error) {
			return mp3.Open(path)
		})
		RegisterInput(".flac", func(path string) (audiomix.Input, error) {
			return flac.Open(path)
		})
		RegisterInput(".ogg", func(path string) (audiomix.Input, error) {
			return vorbis.Open(path)
		})
		RegisterOutput("wav", func(path string, f audiomix.Format, _ int) (audiomix.Output, error) {
			return wav.Create(path, f, wav.BitDepth16)
		})
		RegisterOutput("mp3", func(path string, f audiomix.Format, bitRate int) (audiomix.Output, error) {
			if bitRate <= 0 {
				bitRate = mp3.DefaultBitRate
			}
			return mp3.Create(path, f, bitRate, mp3.DefaultQuality)
		})
	})
}

// RegisterInput adds decoder for files with provided extension.
func RegisterInput(ext string, fn OpenFunc) {
	mu.Lock()
	defer mu.Unlock()
	decoders[strings.ToLower(ext)] = fn
}

// RegisterOutput adds encoder for provided file type.
func RegisterOutput(fileType string, fn CreateFunc) {
	mu.Lock()
	defer mu.Unlock()
	encoders[normalizeType(fileType)] = fn
}

func normalizeType(fileType string) string {
	return strings.TrimPrefix(strings.ToLower(fileType), ".")
}

// OpenInput opens decoder chosen by file extension.
func OpenInput(path string) (audiomix.Input, error) {
	audiomix.Init()
	mu.RLock()
	fn, ok := decoders[strings.ToLower(filepath.Ext(path))]
	mu.RUnlock()
	if !ok {
		return nil, audiomix.NewError(audiomix.KindOpen, "open input", fmt.Errorf("%w: %s", ErrUnsupportedInput, path))
	}
	in, err := fn(path)
	if err != nil {
		return nil, audiomix.NewError(audiomix.KindOpen, "open input", err)
	}
	return in, nil
}

// CreateOutput creates encoder of provided file type. Sample format of
// encoder is chosen by encoder itself.
func CreateOutput(path, fileType string, bitRate int, f audiomix.Format) (audiomix.Output, error) {
	audiomix.Init()
	mu.RLock()
	fn, ok := encoders[normalizeType(fileType)]
	mu.RUnlock()
	if !ok {
		return nil, audiomix.NewError(audiomix.KindOpen, "create output", fmt.Errorf("%w: %s", ErrUnsupportedOutput, fileType))
	}
	out, err := fn(path, f, bitRate)
	if err != nil {
		return nil, audiomix.NewError(audiomix.KindOpen, "create output", err)
	}
	return out, nil
}

// Duration returns number of samples the file has at provided sample
// rate. Header value is used when the file already has that rate,
// otherwise the file is decoded and resampled.
func Duration(path string, sampleRate int) (int64, error) {
	in, err := OpenInput(path)
	if err != nil {
		return 0, err
	}
	defer in.Close()
	return InputDuration(in, sampleRate)
}

// InputDuration returns duration of open input at provided sample rate.
// Input is consumed if its duration is measured by decoding.
func InputDuration(in audiomix.Input, sampleRate int) (n int64, err error) {
	if in.Format().SampleRate == sampleRate {
		if d, ok := in.Duration(); ok {
			return d, nil
		}
	}

	var pool release.Pool
	defer func() { err = pool.ReleaseWith(err) }()
	b := graph.New()
	pool.Defer(b.Free)
	src, err := b.Input(in.Format())
	if err != nil {
		return 0, err
	}
	mix, err := b.FormatForMix(src, sampleRate)
	if err != nil {
		return 0, err
	}
	sink, err := b.Output(mix, 0)
	if err != nil {
		return 0, err
	}
	if err := b.Config(); err != nil {
		return 0, err
	}

	c := counter{format: graph.MixFormat(sampleRate)}
	if err := pump.New(&c, sink).Run(pump.NewContext(in, src)); err != nil {
		return 0, err
	}
	return c.samples, nil
}

// counter is an output that only counts samples.
type counter struct {
	format  audiomix.Format
	samples int64
}

func (c *counter) Format() audiomix.Format { return c.format }

func (c *counter) FrameSize() int { return 0 }

func (c *counter) WriteHeader() error { return nil }

func (c *counter) Encode(f *audiomix.Frame) (*audiomix.Packet, error) {
	if f == nil {
		return nil, nil
	}
	return &audiomix.Packet{Duration: int64(f.NumSamples())}, nil
}

func (c *counter) WritePacket(p *audiomix.Packet) error {
	c.samples += p.Duration
	return nil
}

func (c *counter) WriteTrailer() error { return nil }

func (c *counter) Close() error { return nil }
