// Package compose implements audio composition operations. Every
// operation opens its inputs and output, builds a transform graph and
// pumps it until the output is complete. Resources are released on every
// exit path, output file is indeterminate on failure.
package compose

import (
	"github.com/sirupsen/logrus"

	"github.com/pipelined/audiomix"
	"github.com/pipelined/audiomix/config"
	"github.com/pipelined/audiomix/filter"
	"github.com/pipelined/audiomix/format"
	"github.com/pipelined/audiomix/graph"
	"github.com/pipelined/audiomix/internal/release"
	"github.com/pipelined/audiomix/log"
	"github.com/pipelined/audiomix/pump"
)

// mixTail is silence appended to mixed tracks, in seconds.
const mixTail = 2

// Composer runs operations with shared configuration.
type Composer struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// New returns composer. Nil config means defaults.
func New(cfg *config.Config) *Composer {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Composer{
		cfg:    cfg,
		logger: log.WithLevel(cfg.LogLevel),
	}
}

// Config returns composer configuration.
func (c *Composer) Config() *config.Config {
	return c.cfg
}

// operation holds resources of a single call.
type operation struct {
	audiomix.UID
	pool release.Pool
	log  *logrus.Entry
}

func (c *Composer) operation(name string) *operation {
	uid := audiomix.NewUID()
	return &operation{
		UID: uid,
		log: log.Op(c.logger, name, uid.ID()),
	}
}

// finish releases resources and logs result.
func (op *operation) finish(err error) error {
	err = op.pool.ReleaseWith(err)
	if err != nil {
		op.log.WithField("status", audiomix.Status(err)).Warnf("failed: %v", err)
		return err
	}
	op.log.Debug("done")
	return nil
}

func (op *operation) openInput(path string) (audiomix.Input, error) {
	in, err := format.OpenInput(path)
	if err != nil {
		return nil, err
	}
	op.pool.Defer(in.Close)
	return in, nil
}

func (c *Composer) createOutput(op *operation, path string) (audiomix.Output, error) {
	out, err := format.CreateOutput(path, c.cfg.OutputFileType, c.cfg.BitRate, c.cfg.OutputFormat())
	if err != nil {
		return nil, err
	}
	op.pool.Defer(out.Close)
	return out, nil
}

func (op *operation) graph() *graph.Builder {
	b := graph.New()
	op.pool.Defer(b.Free)
	return b
}

// output converts track into encoder format and terminates the graph.
func output(b *graph.Builder, in *filter.Node, out audiomix.Output) (*filter.Node, error) {
	n, err := b.FormatForOutput(in, out.Format())
	if err != nil {
		return nil, err
	}
	sink, err := b.Output(n, out.FrameSize())
	if err != nil {
		return nil, err
	}
	if err := b.Config(); err != nil {
		return nil, err
	}
	return sink, nil
}

func (c *Composer) pump(out audiomix.Output, sink *filter.Node) *pump.Pump {
	p := pump.New(out, sink)
	p.BatchSize = c.cfg.BatchSize
	return p
}

// duration measures file in samples of the output rate.
func (c *Composer) duration(path string) (int64, error) {
	return format.Duration(path, c.cfg.SampleRate)
}

// Mix mixes two files. Both tracks are padded to the longer one plus two
// seconds of silence.
func (c *Composer) Mix(a, b, outPath string) (err error) {
	op := c.operation("mix")
	defer func() { err = op.finish(err) }()

	d1, err := c.duration(a)
	if err != nil {
		return err
	}
	d2, err := c.duration(b)
	if err != nil {
		return err
	}
	whole := d1
	if d2 > whole {
		whole = d2
	}
	whole += mixTail * int64(c.cfg.SampleRate)
	op.log.Debugf("mix %s and %s: %d samples", a, b, whole)

	inputs := make([]audiomix.Input, 0, 2)
	for _, path := range []string{a, b} {
		in, err := op.openInput(path)
		if err != nil {
			return err
		}
		inputs = append(inputs, in)
	}
	out, err := c.createOutput(op, outPath)
	if err != nil {
		return err
	}

	g := op.graph()
	contexts := make([]*pump.Context, 0, len(inputs))
	tracks := make([]*filter.Node, 0, len(inputs))
	for _, in := range inputs {
		src, err := g.Input(in.Format())
		if err != nil {
			return err
		}
		n, err := g.FormatForMix(src, c.cfg.SampleRate)
		if err != nil {
			return err
		}
		if n, err = g.PadWhole(n, whole); err != nil {
			return err
		}
		contexts = append(contexts, pump.NewContext(in, src))
		tracks = append(tracks, n)
	}
	mix, err := g.Mix(tracks...)
	if err != nil {
		return err
	}
	sink, err := output(g, mix, out)
	if err != nil {
		return err
	}
	return c.pump(out, sink).Run(contexts...)
}

// Concat plays files one after another with silence gap between them.
func (c *Composer) Concat(files []string, gapSeconds float64, outPath string) (err error) {
	op := c.operation("concat")
	defer func() { err = op.finish(err) }()
	if len(files) == 0 {
		return audiomix.NewError(audiomix.KindGraphBuild, "concat", graph.ErrNoInputs)
	}

	inputs := make([]audiomix.Input, 0, len(files))
	for _, path := range files {
		in, err := op.openInput(path)
		if err != nil {
			return err
		}
		inputs = append(inputs, in)
	}
	out, err := c.createOutput(op, outPath)
	if err != nil {
		return err
	}

	gap := audiomix.SamplesOf(c.cfg.SampleRate, gapSeconds)
	g := op.graph()
	contexts := make([]*pump.Context, 0, len(inputs))
	tracks := make([]*filter.Node, 0, len(inputs))
	for i, in := range inputs {
		src, err := g.Input(in.Format())
		if err != nil {
			return err
		}
		n, err := g.FormatForOutput(src, out.Format())
		if err != nil {
			return err
		}
		if gap > 0 && i < len(inputs)-1 {
			if n, err = g.Pad(n, gap); err != nil {
				return err
			}
		}
		contexts = append(contexts, pump.NewContext(in, src))
		tracks = append(tracks, n)
	}
	concat, err := g.Concat(tracks...)
	if err != nil {
		return err
	}
	sink, err := output(g, concat, out)
	if err != nil {
		return err
	}
	return c.pump(out, sink).Run(contexts...)
}

// LoudNorm normalizes loudness of the file.
func (c *Composer) LoudNorm(inPath, outPath string) (err error) {
	op := c.operation("loudnorm")
	defer func() { err = op.finish(err) }()
	return c.single(op, inPath, outPath, func(g *graph.Builder, src *filter.Node) (*filter.Node, error) {
		return g.LoudNorm(src)
	})
}

// Convert re-encodes the file into output format.
func (c *Composer) Convert(inPath, outPath string) (err error) {
	op := c.operation("convert")
	defer func() { err = op.finish(err) }()
	return c.single(op, inPath, outPath, func(_ *graph.Builder, src *filter.Node) (*filter.Node, error) {
		return src, nil
	})
}

// single runs graph of one input. Transform is applied before conversion
// into the output format.
func (c *Composer) single(op *operation, inPath, outPath string, transform func(*graph.Builder, *filter.Node) (*filter.Node, error)) error {
	in, err := op.openInput(inPath)
	if err != nil {
		return err
	}
	out, err := c.createOutput(op, outPath)
	if err != nil {
		return err
	}
	g := op.graph()
	src, err := g.Input(in.Format())
	if err != nil {
		return err
	}
	n, err := transform(g, src)
	if err != nil {
		return err
	}
	sink, err := output(g, n, out)
	if err != nil {
		return err
	}
	return c.pump(out, sink).Run(pump.NewContext(in, src))
}
