package compose

import (
	"errors"

	"github.com/pipelined/audiomix"
	"github.com/pipelined/audiomix/filter"
	"github.com/pipelined/audiomix/format"
	"github.com/pipelined/audiomix/graph"
	"github.com/pipelined/audiomix/internal/release"
	"github.com/pipelined/audiomix/pump"
	"github.com/pipelined/audiomix/timeline"
)

// masterGain compensates mix averaging of foreground and background.
const masterGain = 2

// ErrPageWithoutVoice is returned when intro or ending page is requested
// without voice pages.
var ErrPageWithoutVoice = errors.New("intro or ending page without voice pages")

// CombineRequest describes narrated sequence. Empty effect or background
// path means it's absent.
type CombineRequest struct {
	LeadEffect  string
	TrailEffect string
	// HasIntroPage marks the first voice page as intro.
	HasIntroPage bool
	// HasEndingPage marks the last voice page as ending.
	HasEndingPage    bool
	VoicePages       []string
	GapSeconds       float64
	Background       string
	BackgroundVolume float64
}

// Validate checks that page flags refer to existing voice pages.
func (r CombineRequest) Validate() error {
	if (r.HasIntroPage || r.HasEndingPage) && len(r.VoicePages) == 0 {
		return ErrPageWithoutVoice
	}
	return nil
}

// Segments returns ordered segments of the request without durations.
// Single page marked both as intro and ending is an intro.
func (r CombineRequest) Segments() []timeline.Segment {
	var segments []timeline.Segment
	if r.LeadEffect != "" {
		segments = append(segments, timeline.Segment{Source: r.LeadEffect, Role: timeline.LeadEffect})
	}
	for i, page := range r.VoicePages {
		role := timeline.Voice
		switch {
		case i == 0 && r.HasIntroPage:
			role = timeline.IntroPage
		case i == len(r.VoicePages)-1 && r.HasEndingPage:
			role = timeline.EndingPage
		}
		segments = append(segments, timeline.Segment{Source: page, Role: role})
	}
	if r.TrailEffect != "" {
		segments = append(segments, timeline.Segment{Source: r.TrailEffect, Role: timeline.TrailEffect})
	}
	if r.Background != "" {
		segments = append(segments, timeline.Segment{Source: r.Background, Role: timeline.Background})
	}
	return segments
}

// Timeline measures durations of request segments and computes timeline.
func (c *Composer) Timeline(r CombineRequest) (timeline.Timeline, error) {
	if err := r.Validate(); err != nil {
		return timeline.Timeline{}, audiomix.NewError(audiomix.KindUnknown, "timeline", err)
	}
	segments := r.Segments()
	for i := range segments {
		d, err := c.duration(segments[i].Source)
		if err != nil {
			return timeline.Timeline{}, err
		}
		segments[i].Duration = d
	}
	p := c.cfg.Policy()
	p.GapSeconds = r.GapSeconds
	p.BackgroundVolume = r.BackgroundVolume
	t, err := timeline.Compose(segments, p)
	if err != nil {
		return timeline.Timeline{}, audiomix.NewError(audiomix.KindUnknown, "timeline", err)
	}
	return t, nil
}

// Combine composes foreground sequence with looped background. Foreground
// and background are separate queues of per-segment graphs, each queue
// feeds one input of the mix graph.
func (c *Composer) Combine(r CombineRequest, outPath string) (err error) {
	op := c.operation("combine")
	defer func() { err = op.finish(err) }()

	t, err := c.Timeline(r)
	if err != nil {
		return err
	}
	op.log.Debugf("timeline: whole %d, background delay %d, pad %d, trim %d, loops %d",
		t.WholeDuration, t.BackgroundDelayStart, t.BackgroundPadEnd, t.BackgroundTrimEnd, t.BackgroundLoops)

	queues := make([]*pump.Queue, 0, 2)
	for _, plan := range [][]timeline.Placement{t.ForegroundPlan(), t.BackgroundPlan()} {
		contexts, err := c.segmentContexts(op, plan)
		if err != nil {
			return err
		}
		if len(contexts) == 0 {
			continue
		}
		q := pump.NewQueue(nil, contexts...)
		op.pool.Defer(q.Release)
		queues = append(queues, q)
	}
	out, err := c.createOutput(op, outPath)
	if err != nil {
		return err
	}

	g := op.graph()
	mixFormat := graph.MixFormat(c.cfg.SampleRate)
	fgSrc, err := g.Input(mixFormat)
	if err != nil {
		return err
	}
	queues[0].Dest = fgSrc
	last := fgSrc
	if len(queues) > 1 {
		bgSrc, err := g.Input(mixFormat)
		if err != nil {
			return err
		}
		queues[1].Dest = bgSrc
		bg, err := g.Volume(bgSrc, r.BackgroundVolume)
		if err != nil {
			return err
		}
		if last, err = g.Mix(fgSrc, bg); err != nil {
			return err
		}
		if last, err = g.Volume(last, masterGain); err != nil {
			return err
		}
	}
	sink, err := output(g, last, out)
	if err != nil {
		return err
	}
	return c.pump(out, sink).RunQueues(queues)
}

// segmentContexts opens inputs of placements and builds their graphs.
// Every context owns its input and graph. Built contexts are released if
// any of them fails.
func (c *Composer) segmentContexts(op *operation, plan []timeline.Placement) (contexts []*pump.Context, err error) {
	defer func() {
		if err == nil {
			return
		}
		errs := audiomix.Errors{err}
		for _, ctx := range contexts {
			if rerr := ctx.Release.Release(); rerr != nil {
				errs = append(errs, rerr)
			}
		}
		err = errs
		if len(errs) == 1 {
			err = errs[0]
		}
		contexts = nil
	}()
	for _, pl := range plan {
		ctx, err := c.segmentContext(pl)
		if err != nil {
			return contexts, err
		}
		contexts = append(contexts, ctx)
		op.log.Debugf("%v %s: delay %d, trim %d, fade %d+%d, pad %d",
			pl.Role, pl.Source, pl.Delay, pl.TrimEnd, pl.FadeStart, pl.FadeLength, pl.Pad)
	}
	return contexts, nil
}

func (c *Composer) segmentContext(pl timeline.Placement) (ctx *pump.Context, err error) {
	pool := &release.Pool{}
	defer func() {
		if err != nil {
			err = pool.ReleaseWith(err)
		}
	}()
	in, err := format.OpenInput(pl.Source)
	if err != nil {
		return nil, err
	}
	pool.Defer(in.Close)

	g := graph.New()
	pool.Defer(g.Free)
	src, err := g.Input(in.Format())
	if err != nil {
		return nil, err
	}
	n, err := g.FormatForMix(src, c.cfg.SampleRate)
	if err != nil {
		return nil, err
	}
	steps := []struct {
		apply bool
		fn    func(*filter.Node) (*filter.Node, error)
	}{
		{pl.Delay > 0, func(n *filter.Node) (*filter.Node, error) {
			return g.Delay(n, pl.Delay, c.cfg.SampleRate)
		}},
		{pl.TrimEnd > 0, func(n *filter.Node) (*filter.Node, error) {
			return g.Trim(n, pl.TrimEnd)
		}},
		{pl.FadeLength > 0, func(n *filter.Node) (*filter.Node, error) {
			return g.Fade(n, true, pl.FadeStart, pl.FadeLength)
		}},
		{pl.Pad > 0, func(n *filter.Node) (*filter.Node, error) {
			return g.Pad(n, pl.Pad)
		}},
	}
	for _, s := range steps {
		if !s.apply {
			continue
		}
		if n, err = s.fn(n); err != nil {
			return nil, err
		}
	}
	sink, err := g.Output(n, 0)
	if err != nil {
		return nil, err
	}
	if err := g.Config(); err != nil {
		return nil, err
	}

	ctx = pump.NewContext(in, src)
	ctx.Sink = sink
	ctx.Release = pool
	return ctx, nil
}
