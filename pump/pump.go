// Package pump moves frames from decoders through a transform graph into
// an encoder. Graph is pulled from the sink, when it starves the pump
// decodes a bounded batch of frames for every source the graph requested
// frames from, then resumes pulling.
package pump

import (
	"errors"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/pipelined/audiomix"
	"github.com/pipelined/audiomix/filter"
	"github.com/pipelined/audiomix/log"
	"github.com/pipelined/audiomix/metric"
)

// DefaultBatchSize limits number of frames decoded for a single starved
// source before other sources are evaluated.
const DefaultBatchSize = 128

// ErrStalled is returned when sink needs more frames, but no source
// requested any.
var ErrStalled = errors.New("graph is stalled")

var logger = log.GetLogger()

// Pump encodes output of a graph sink.
type Pump struct {
	audiomix.UID
	Clock
	Output    audiomix.Output
	Sink      *filter.Node
	BatchSize int

	log     *logrus.Entry
	measure metric.MeasureFunc
}

// New returns pump that writes output of the sink.
func New(out audiomix.Output, sink *filter.Node) *Pump {
	uid := audiomix.NewUID()
	return &Pump{
		UID:       uid,
		Output:    out,
		Sink:      sink,
		BatchSize: DefaultBatchSize,
		log:       log.Op(logger, "pump", uid.ID()),
	}
}

// Run pumps frames until all contexts are finished and encoder is
// flushed. Output header and trailer are written.
func (p *Pump) Run(contexts ...*Context) error {
	return p.run(func() (bool, error) {
		fed := false
		for _, c := range contexts {
			if !c.Starved() {
				continue
			}
			n, err := c.decode(p.batchSize())
			if err != nil {
				return false, err
			}
			p.log.Debugf("decoded %d frames for context %s", n, c.ID())
			fed = true
		}
		return fed, nil
	})
}

func (p *Pump) batchSize() int {
	if p.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return p.BatchSize
}

// run is the state machine shared by plain and queued pumping. Feed is
// called every time the sink is starved and reports whether any source
// was fed.
func (p *Pump) run(feed func() (bool, error)) error {
	p.measure = metric.Meter(p.Output, p.Output.Format().SampleRate)
	if err := p.Output.WriteHeader(); err != nil {
		return audiomix.NewError(audiomix.KindEncode, "write header", err)
	}
	for {
		err := p.Drain()
		if err == nil {
			break
		}
		if !errors.Is(err, audiomix.ErrNeedMore) {
			return err
		}
		fed, err := feed()
		if err != nil {
			return err
		}
		if !fed {
			return audiomix.NewError(audiomix.KindUnknown, "pump", ErrStalled)
		}
	}
	if err := p.Flush(); err != nil {
		return err
	}
	if err := p.Output.WriteTrailer(); err != nil {
		return audiomix.NewError(audiomix.KindEncode, "write trailer", err)
	}
	p.log.Debugf("done: %d samples encoded", p.PacketPTS)
	return nil
}

// Drain pulls every ready frame from the sink and encodes it. It returns
// nil when sink reached end of stream and audiomix.ErrNeedMore when the
// graph needs more input.
func (p *Pump) Drain() error {
	for {
		f, err := p.Sink.Pull()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, audiomix.ErrNeedMore) {
			return err
		}
		if err != nil {
			return audiomix.NewError(audiomix.KindUnknown, "pull", err)
		}
		p.stampFrame(f)
		if _, err := p.encode(f); err != nil {
			return err
		}
	}
}

// Flush sends end of stream to encoder until it stops producing packets.
func (p *Pump) Flush() error {
	for {
		pts := p.PacketPTS
		ok, err := p.encode(nil)
		if err != nil {
			return err
		}
		if !ok || p.PacketPTS == pts {
			return nil
		}
	}
}

// encode passes frame to encoder and writes packet if there is one.
func (p *Pump) encode(f *audiomix.Frame) (bool, error) {
	pkt, err := p.Output.Encode(f)
	if err != nil {
		return false, audiomix.NewError(audiomix.KindEncode, "encode", err)
	}
	if pkt == nil {
		return false, nil
	}
	p.stampPacket(pkt)
	if err := p.Output.WritePacket(pkt); err != nil {
		return false, audiomix.NewError(audiomix.KindEncode, "write packet", err)
	}
	if p.measure != nil {
		p.measure(pkt.Duration, int64(len(pkt.Data)))
	}
	return true, nil
}
