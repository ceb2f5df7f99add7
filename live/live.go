// Package live encodes raw PCM appended in arbitrary chunks. Bytes are
// aligned, converted into frames and pushed through the output graph as
// soon as they arrive.
package live

import (
	"encoding/binary"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/pipelined/audiomix"
	"github.com/pipelined/audiomix/chunk"
	"github.com/pipelined/audiomix/config"
	"github.com/pipelined/audiomix/filter"
	"github.com/pipelined/audiomix/format"
	"github.com/pipelined/audiomix/graph"
	"github.com/pipelined/audiomix/internal/release"
	"github.com/pipelined/audiomix/log"
	"github.com/pipelined/audiomix/pump"
)

const bytesPerSample = 2

var (
	// ErrNotStarted is returned when data is appended before Begin.
	ErrNotStarted = errors.New("encoder is not started")
	// ErrStarted is returned when Begin is called twice.
	ErrStarted = errors.New("encoder is already started")
	// ErrEnded is returned when encoder is used after End.
	ErrEnded = errors.New("encoder is ended")
)

var logger = log.GetLogger()

// Encoder appends interleaved signed 16-bit little-endian PCM to the
// output file. Input has the sample rate and channels of the output.
type Encoder struct {
	audiomix.UID
	path string
	cfg  *config.Config

	mu      sync.Mutex
	pool    release.Pool
	queue   *chunk.Queue
	source  *filter.Node
	pump    *pump.Pump
	format  audiomix.Format
	pts     int64
	started bool
	ended   bool
	log     *logrus.Entry
}

// New returns encoder of the file. Nothing is created until Begin.
func New(path string, cfg *config.Config) *Encoder {
	uid := audiomix.NewUID()
	return &Encoder{
		UID:   uid,
		path:  path,
		cfg:   cfg,
		queue: chunk.New(cfg.AlignUnit),
		format: audiomix.Format{
			SampleFormat: audiomix.SampleFormatS16,
			SampleRate:   cfg.SampleRate,
			NumChannels:  cfg.Channels,
		},
		log: log.Op(log.WithLevel(cfg.LogLevel), "live", uid.ID()),
	}
}

// Format returns format of appended data.
func (e *Encoder) Format() audiomix.Format {
	return e.format
}

// Begin creates output file and graph.
func (e *Encoder) Begin() (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ended {
		return ErrEnded
	}
	if e.started {
		return ErrStarted
	}
	defer func() {
		if err != nil {
			e.pool.Release()
		}
	}()

	out, err := format.CreateOutput(e.path, e.cfg.OutputFileType, e.cfg.BitRate, e.cfg.OutputFormat())
	if err != nil {
		return err
	}
	e.pool.Defer(out.Close)

	b := graph.New()
	e.pool.Defer(b.Free)
	src, err := b.Input(e.format)
	if err != nil {
		return err
	}
	conv, err := b.FormatForOutput(src, out.Format())
	if err != nil {
		return err
	}
	sink, err := b.Output(conv, out.FrameSize())
	if err != nil {
		return err
	}
	if err := b.Config(); err != nil {
		return err
	}
	if err := out.WriteHeader(); err != nil {
		return audiomix.NewError(audiomix.KindEncode, "write header", err)
	}

	e.source = src
	e.pump = pump.New(out, sink)
	e.started = true
	e.log.Debugf("started %s", e.path)
	return nil
}

// Append queues data and encodes every complete aligned block.
func (e *Encoder) Append(data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.check(); err != nil {
		return err
	}
	e.queue.Enqueue(data)
	block, ok := e.queue.ExtractAligned()
	if !ok {
		return nil
	}
	return e.encode(block)
}

// End encodes the remaining whole samples, flushes encoder, writes
// trailer and closes the file.
func (e *Encoder) End() (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.check(); err != nil {
		return err
	}
	e.ended = true
	defer func() { err = e.pool.ReleaseWith(err) }()

	if rest := e.queue.Drain(bytesPerSample * e.format.NumChannels); len(rest) > 0 {
		if err := e.encode(rest); err != nil {
			return err
		}
	}
	if err := e.source.Push(nil); err != nil {
		return audiomix.NewError(audiomix.KindUnknown, "push", err)
	}
	if err := e.pump.Drain(); err != nil {
		return err
	}
	if err := e.pump.Flush(); err != nil {
		return err
	}
	if err := e.pump.Output.WriteTrailer(); err != nil {
		return audiomix.NewError(audiomix.KindEncode, "write trailer", err)
	}
	e.log.Debugf("ended %s: %d samples", e.path, e.pump.PacketPTS)
	return nil
}

// Close releases resources of encoder that wasn't ended. The output is
// left incomplete.
func (e *Encoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ended {
		return nil
	}
	e.ended = true
	return e.pool.Release()
}

func (e *Encoder) check() error {
	if e.ended {
		return ErrEnded
	}
	if !e.started {
		return ErrNotStarted
	}
	return nil
}

// encode converts whole samples into a frame, pushes it and encodes
// everything the graph has ready.
func (e *Encoder) encode(data []byte) error {
	ints := make([]int16, len(data)/bytesPerSample)
	for i := range ints {
		ints[i] = int16(binary.LittleEndian.Uint16(data[i*bytesPerSample:]))
	}
	f := audiomix.NewFrame(e.format, len(ints)/e.format.NumChannels)
	f.ReadInts16(ints)
	f.PTS = e.pts
	e.pts += int64(f.NumSamples())
	if err := e.source.Push(f); err != nil {
		return audiomix.NewError(audiomix.KindUnknown, "push", err)
	}
	if err := e.pump.Drain(); err != nil && !errors.Is(err, audiomix.ErrNeedMore) {
		return err
	}
	return nil
}
