// Package capture records audio from input device into live encoder.
package capture

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
	"github.com/sirupsen/logrus"

	"github.com/pipelined/audiomix"
	"github.com/pipelined/audiomix/log"
)

// DefaultBufferSize is number of samples per channel read at once.
const DefaultBufferSize = 1024

// ErrRunning is returned when recorder is started twice.
var ErrRunning = errors.New("recorder is running")

var logger = log.GetLogger()

// Device reads interleaved 16-bit samples.
type Device interface {
	Start() error
	// Read fills the buffer.
	Read([]int16) error
	Stop() error
	Close() error
}

// Encoder consumes recorded PCM bytes.
type Encoder interface {
	Begin() error
	Append([]byte) error
	End() error
}

// portaudioDevice reads default input device.
type portaudioDevice struct {
	stream *portaudio.Stream
	buf    []int16
}

// DefaultDevice opens default input device. Buffer size is number of
// samples per channel in single read.
func DefaultDevice(sampleRate, numChannels, bufferSize int) (Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	d := portaudioDevice{
		buf: make([]int16, bufferSize*numChannels),
	}
	var err error
	d.stream, err = portaudio.OpenDefaultStream(numChannels, 0, float64(sampleRate), bufferSize, &d.buf)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	return &d, nil
}

func (d *portaudioDevice) Start() error {
	return d.stream.Start()
}

func (d *portaudioDevice) Read(buf []int16) error {
	err := d.stream.Read()
	if err != nil && !errors.Is(err, portaudio.InputOverflowed) {
		return err
	}
	copy(buf, d.buf)
	return nil
}

func (d *portaudioDevice) Stop() error {
	return d.stream.Stop()
}

// Close closes the stream and terminates portaudio.
func (d *portaudioDevice) Close() error {
	if err := d.stream.Close(); err != nil {
		return err
	}
	return portaudio.Terminate()
}

// Recorder moves samples from device into encoder until the context is
// done. Amplitude is measured as RMS of every 100 milliseconds.
type Recorder struct {
	audiomix.UID
	Device      Device
	Encoder     Encoder
	SampleRate  int
	NumChannels int
	BufferSize  int
	// OnAmplitude is called from the recording goroutine.
	OnAmplitude func(int)

	amplitude atomic.Int64
	running   atomic.Bool
	errc      chan error
	once      sync.Once
	log       *logrus.Entry
}

// NewRecorder returns recorder of the device.
func NewRecorder(d Device, e Encoder, sampleRate, numChannels int) *Recorder {
	uid := audiomix.NewUID()
	return &Recorder{
		UID:         uid,
		Device:      d,
		Encoder:     e,
		SampleRate:  sampleRate,
		NumChannels: numChannels,
		BufferSize:  DefaultBufferSize,
		log:         log.Op(logger, "record", uid.ID()),
	}
}

// Amplitude returns the last measured RMS amplitude.
func (r *Recorder) Amplitude() int {
	return int(r.amplitude.Load())
}

// Start begins encoder, starts device and records in a separate
// goroutine. Recording stops when the context is done.
func (r *Recorder) Start(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	if err := r.Encoder.Begin(); err != nil {
		r.Device.Close()
		return err
	}
	if err := r.Device.Start(); err != nil {
		r.Device.Close()
		r.Encoder.End()
		return err
	}
	r.errc = make(chan error, 1)
	go func() {
		r.errc <- r.record(ctx)
		close(r.errc)
	}()
	return nil
}

// Wait blocks until recording is done and returns its error.
func (r *Recorder) Wait() error {
	if r.errc == nil {
		return nil
	}
	var err error
	r.once.Do(func() {
		err = <-r.errc
	})
	return err
}

func (r *Recorder) record(ctx context.Context) (err error) {
	defer func() {
		var errs audiomix.Errors
		if err != nil {
			errs = append(errs, err)
		}
		if stopErr := r.Device.Stop(); stopErr != nil {
			errs = append(errs, stopErr)
		}
		if closeErr := r.Device.Close(); closeErr != nil {
			errs = append(errs, closeErr)
		}
		if endErr := r.Encoder.End(); endErr != nil {
			errs = append(errs, endErr)
		}
		err = errs.Ret()
	}()

	size := r.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	buf := make([]int16, size*r.NumChannels)
	data := make([]byte, 2*len(buf))
	window := r.SampleRate / 10 * r.NumChannels
	var (
		sum   float64
		count int
	)
	for {
		select {
		case <-ctx.Done():
			r.log.Debug("stopped")
			return nil
		default:
		}
		if err := r.Device.Read(buf); err != nil {
			return err
		}
		for i, v := range buf {
			binary.LittleEndian.PutUint16(data[2*i:], uint16(v))
			sum += float64(v) * float64(v)
			count++
			if count >= window {
				amp := int(math.Sqrt(sum / float64(count)))
				r.amplitude.Store(int64(amp))
				if r.OnAmplitude != nil {
					r.OnAmplitude(amp)
				}
				sum, count = 0, 0
			}
		}
		if err := r.Encoder.Append(data); err != nil {
			return err
		}
	}
}
