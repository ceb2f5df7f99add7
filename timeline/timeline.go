// Package timeline computes alignment offsets for composed audio. All
// values are in samples at the output sample rate.
package timeline

import (
	"errors"
	"fmt"
)

// Role defines the place of a segment in a composition.
type Role int

// Segment roles.
const (
	LeadEffect Role = iota
	IntroPage
	Voice
	EndingPage
	TrailEffect
	Background
)

var roleNames = [...]string{"lead-effect", "intro-page", "voice", "ending-page", "trail-effect", "background"}

func (r Role) String() string {
	if int(r) < len(roleNames) {
		return roleNames[r]
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// effect reports whether duration of role is capped.
func (r Role) effect() bool {
	return r == LeadEffect || r == TrailEffect
}

// Segment is an ordered unit of input audio.
type Segment struct {
	Source   string
	Duration int64
	Role     Role
}

// BackgroundLoop defines how background is handled when it has no room
// between the delayed start and padded end.
type BackgroundLoop int

const (
	// LoopAtLeastOnce plays background at least once, untrimmed, even if
	// foreground leaves no room for it.
	LoopAtLeastOnce BackgroundLoop = iota
	// LoopOnlyWhenNeeded drops background if it has no room.
	LoopOnlyWhenNeeded
)

// Default policy values.
const (
	DefaultSampleRate        = 44100
	DefaultMaxEffectDuration = 15 * DefaultSampleRate
	DefaultFadeDuration      = 5 * DefaultSampleRate
)

// Policy holds composition constants.
type Policy struct {
	SampleRate        int
	GapSeconds        float64
	MaxEffectDuration int64
	FadeDuration      int64
	BackgroundVolume  float64
	BackgroundLoop    BackgroundLoop
}

// DefaultPolicy returns policy with reference constants.
func DefaultPolicy() Policy {
	return Policy{
		SampleRate:        DefaultSampleRate,
		MaxEffectDuration: DefaultMaxEffectDuration,
		FadeDuration:      DefaultFadeDuration,
		BackgroundVolume:  1,
	}
}

// Gap returns gap length in samples.
func (p Policy) Gap() int64 {
	return int64(p.GapSeconds * float64(p.SampleRate))
}

// Cap returns duration of segment after effect capping.
func (p Policy) Cap(s Segment) int64 {
	if s.Role.effect() && p.MaxEffectDuration > 0 && s.Duration > p.MaxEffectDuration {
		return p.MaxEffectDuration
	}
	return s.Duration
}

// Timeline is a set of computed alignment offsets.
type Timeline struct {
	Gap int64
	// LeadDelay is background delay contributed by the lead effect.
	LeadDelay int64
	// TailPad is background padding contributed by the trail effect.
	TailPad                 int64
	BackgroundDelayStart    int64
	BackgroundPadEnd        int64
	BackgroundTrimEnd       int64
	BackgroundDuration      int64
	BackgroundWholeDuration int64
	BackgroundLoops         int
	WholeDuration           int64

	foreground []Segment
	background *Segment
	policy     Policy
}

// Errors returned by Compose.
var (
	ErrNegativeDuration   = errors.New("negative segment duration")
	ErrNegativeGap        = errors.New("negative gap")
	ErrEmptyBackground    = errors.New("background has zero duration")
	ErrMultipleBackground = errors.New("more than one background segment")
	ErrNoForeground       = errors.New("no foreground segments")
	ErrSegmentOrder       = errors.New("segments are out of order")
)

// Compose computes timeline for ordered segments. Foreground segments must
// follow the role order: lead effect, intro page, voice pages, ending page,
// trail effect. Background segment can be placed anywhere.
func Compose(segments []Segment, p Policy) (Timeline, error) {
	if p.GapSeconds < 0 {
		return Timeline{}, fmt.Errorf("%w: %v seconds", ErrNegativeGap, p.GapSeconds)
	}
	t := Timeline{
		Gap:    p.Gap(),
		policy: p,
	}
	last := LeadEffect
	for i := range segments {
		s := segments[i]
		if s.Duration < 0 {
			return Timeline{}, fmt.Errorf("%w: %v %q", ErrNegativeDuration, s.Role, s.Source)
		}
		if s.Role == Background {
			if t.background != nil {
				return Timeline{}, ErrMultipleBackground
			}
			t.background = &segments[i]
			continue
		}
		if s.Role < last || (s.Role == last && s.Role != Voice && len(t.foreground) > 0) {
			return Timeline{}, fmt.Errorf("%w: %v after %v", ErrSegmentOrder, s.Role, last)
		}
		last = s.Role
		t.foreground = append(t.foreground, s)
	}
	if len(t.foreground) == 0 {
		return Timeline{}, ErrNoForeground
	}

	for _, s := range t.foreground {
		d := p.Cap(s)
		switch s.Role {
		case LeadEffect:
			t.LeadDelay = d + t.Gap
			t.BackgroundDelayStart += t.LeadDelay
		case IntroPage:
			t.BackgroundDelayStart += d + t.Gap
		case EndingPage:
			t.BackgroundPadEnd += d
		case TrailEffect:
			t.TailPad = d + t.Gap
			t.BackgroundPadEnd += t.TailPad
		}
		t.WholeDuration += d + t.Gap
	}
	t.WholeDuration -= t.Gap

	if t.background == nil {
		return t, nil
	}
	t.BackgroundDuration = t.background.Duration
	if t.BackgroundDuration <= 0 {
		return Timeline{}, ErrEmptyBackground
	}
	t.BackgroundWholeDuration = t.WholeDuration - t.BackgroundDelayStart - t.BackgroundPadEnd
	if t.BackgroundWholeDuration <= 0 {
		if p.BackgroundLoop == LoopAtLeastOnce {
			t.BackgroundLoops = 1
		}
		return t, nil
	}
	t.BackgroundLoops = int((t.BackgroundWholeDuration + t.BackgroundDuration - 1) / t.BackgroundDuration)
	if r := t.BackgroundWholeDuration % t.BackgroundDuration; r != 0 {
		t.BackgroundTrimEnd = t.BackgroundDuration - r
	}
	return t, nil
}

// Foreground returns foreground segments in playback order.
func (t Timeline) Foreground() []Segment {
	return append([]Segment(nil), t.foreground...)
}

// HasBackground reports whether background is played.
func (t Timeline) HasBackground() bool {
	return t.background != nil && t.BackgroundLoops > 0
}

// Background returns background segment if present.
func (t Timeline) Background() (Segment, bool) {
	if t.background == nil {
		return Segment{}, false
	}
	return *t.background, true
}

// Placement defines transforms applied to a single segment. Zero values
// mean the transform is not applied.
type Placement struct {
	Segment
	// Delay is silence inserted before the segment.
	Delay int64
	// TrimEnd is the sample index where segment is cut. It's counted after
	// delay is applied.
	TrimEnd int64
	// FadeStart and FadeLength define linear fade out.
	FadeStart  int64
	FadeLength int64
	// Pad is silence appended after the segment.
	Pad int64
}

// ForegroundPlan returns placements of foreground segments. Effects are
// trimmed to the cap and faded out, every segment except the last one is
// followed by a gap.
func (t Timeline) ForegroundPlan() []Placement {
	plan := make([]Placement, 0, len(t.foreground))
	for i, s := range t.foreground {
		pl := Placement{Segment: s}
		if s.Role.effect() && t.policy.MaxEffectDuration > 0 {
			pl.TrimEnd = t.policy.MaxEffectDuration
			pl.FadeLength = t.policy.FadeDuration
			pl.FadeStart = max64(t.policy.MaxEffectDuration-t.policy.FadeDuration, 0)
		}
		if i < len(t.foreground)-1 {
			pl.Pad = t.Gap
		}
		plan = append(plan, pl)
	}
	return plan
}

// BackgroundPlan returns placements of background loop iterations. The
// first iteration is delayed, the last one is trimmed, faded out and padded.
func (t Timeline) BackgroundPlan() []Placement {
	if !t.HasBackground() {
		return nil
	}
	plan := make([]Placement, t.BackgroundLoops)
	for i := range plan {
		plan[i].Segment = *t.background
	}
	plan[0].Delay = t.BackgroundDelayStart

	last := &plan[len(plan)-1]
	length := t.BackgroundDuration
	if t.BackgroundTrimEnd > 0 {
		length -= t.BackgroundTrimEnd
		if len(plan) == 1 {
			length += t.BackgroundDelayStart
		}
		last.TrimEnd = length
	} else if len(plan) == 1 {
		length += t.BackgroundDelayStart
	}
	last.FadeLength = t.policy.FadeDuration
	last.FadeStart = max64(length-t.policy.FadeDuration, 0)
	last.Pad = t.BackgroundPadEnd
	return plan
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
