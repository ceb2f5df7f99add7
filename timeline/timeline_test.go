package timeline_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipelined/audiomix/timeline"
)

const sampleRate = 44100

func seconds(s float64) int64 {
	return int64(s * sampleRate)
}

func policy(gap float64) timeline.Policy {
	p := timeline.DefaultPolicy()
	p.GapSeconds = gap
	return p
}

func TestCombineScenario(t *testing.T) {
	segments := []timeline.Segment{
		{Source: "lead.mp3", Duration: seconds(20), Role: timeline.LeadEffect},
		{Source: "page1.mp3", Duration: seconds(10), Role: timeline.Voice},
		{Source: "music.mp3", Duration: seconds(6), Role: timeline.Background},
	}
	tl, err := timeline.Compose(segments, policy(1))
	require.NoError(t, err)

	assert.Equal(t, seconds(1), tl.Gap)
	assert.Equal(t, seconds(16), tl.BackgroundDelayStart)
	assert.Equal(t, seconds(16), tl.LeadDelay)
	assert.Equal(t, int64(0), tl.BackgroundPadEnd)
	assert.Equal(t, seconds(26), tl.WholeDuration)
	assert.Equal(t, seconds(10), tl.BackgroundWholeDuration)
	assert.Equal(t, 2, tl.BackgroundLoops)
	assert.Equal(t, seconds(2), tl.BackgroundTrimEnd)

	plan := tl.BackgroundPlan()
	require.Len(t, plan, 2)
	assert.Equal(t, seconds(16), plan[0].Delay)
	assert.Equal(t, int64(0), plan[0].TrimEnd)
	assert.Equal(t, seconds(4), plan[1].TrimEnd)
	assert.Equal(t, int64(0), plan[1].FadeStart)
	assert.Equal(t, seconds(5), plan[1].FadeLength)
}

func TestEffectCapping(t *testing.T) {
	p := policy(0.5)
	contribution := func(d int64) int64 {
		tl, err := timeline.Compose([]timeline.Segment{
			{Source: "lead", Duration: d, Role: timeline.LeadEffect},
			{Source: "voice", Duration: seconds(3), Role: timeline.Voice},
			{Source: "trail", Duration: d, Role: timeline.TrailEffect},
		}, p)
		require.NoError(t, err)
		assert.Equal(t, tl.LeadDelay, tl.TailPad)
		return tl.LeadDelay - tl.Gap
	}
	for _, d := range []int64{0, seconds(1), seconds(14.9), seconds(15), seconds(15.1), seconds(40), seconds(600)} {
		expected := d
		if d > p.MaxEffectDuration {
			expected = p.MaxEffectDuration
		}
		assert.Equal(t, expected, contribution(d), "duration %d", d)
	}
	assert.Equal(t, contribution(seconds(16)), contribution(seconds(160)))
}

func TestWholeDuration(t *testing.T) {
	tests := []struct {
		description string
		segments    []timeline.Segment
		gap         float64
		whole       int64
		delay       int64
		pad         int64
	}{
		{
			description: "concat three clips",
			segments: []timeline.Segment{
				{Duration: seconds(1), Role: timeline.Voice},
				{Duration: seconds(1), Role: timeline.Voice},
				{Duration: seconds(1), Role: timeline.Voice},
			},
			gap:   0.5,
			whole: seconds(4),
		},
		{
			description: "intro and ending pages",
			segments: []timeline.Segment{
				{Duration: seconds(2), Role: timeline.LeadEffect},
				{Duration: seconds(3), Role: timeline.IntroPage},
				{Duration: seconds(10), Role: timeline.Voice},
				{Duration: seconds(4), Role: timeline.EndingPage},
				{Duration: seconds(20), Role: timeline.TrailEffect},
			},
			gap:   1,
			whole: seconds(2 + 3 + 10 + 4 + 15 + 4),
			delay: seconds(2 + 1 + 3 + 1),
			pad:   seconds(4 + 15 + 1),
		},
		{
			description: "single segment",
			segments: []timeline.Segment{
				{Duration: seconds(7), Role: timeline.Voice},
			},
			gap:   3,
			whole: seconds(7),
		},
	}
	for _, test := range tests {
		tl, err := timeline.Compose(test.segments, policy(test.gap))
		require.NoError(t, err, test.description)
		assert.Equal(t, test.whole, tl.WholeDuration, test.description)
		assert.Equal(t, test.delay, tl.BackgroundDelayStart, test.description)
		assert.Equal(t, test.pad, tl.BackgroundPadEnd, test.description)
		assert.False(t, tl.HasBackground(), test.description)

		plan := tl.ForegroundPlan()
		require.Len(t, plan, len(test.segments), test.description)
		assert.Equal(t, int64(0), plan[len(plan)-1].Pad, test.description)
		for _, pl := range plan[:len(plan)-1] {
			assert.Equal(t, tl.Gap, pl.Pad, test.description)
		}
	}
}

func TestBackgroundTrimProperty(t *testing.T) {
	p := policy(0.25)
	for _, voice := range []int64{1, 999, seconds(1), seconds(3.3), seconds(17), seconds(61)} {
		for _, bg := range []int64{1, 7, seconds(0.5), seconds(2), seconds(6), seconds(100)} {
			tl, err := timeline.Compose([]timeline.Segment{
				{Duration: seconds(2), Role: timeline.LeadEffect},
				{Duration: voice, Role: timeline.Voice},
				{Duration: voice, Role: timeline.Voice},
				{Duration: bg, Role: timeline.Background},
			}, p)
			require.NoError(t, err)
			assert.True(t, tl.BackgroundTrimEnd >= 0 && tl.BackgroundTrimEnd < bg, "trim %d bg %d", tl.BackgroundTrimEnd, bg)
			if tl.BackgroundWholeDuration > 0 {
				assert.Equal(t, tl.BackgroundWholeDuration, int64(tl.BackgroundLoops)*bg-tl.BackgroundTrimEnd)
			}
		}
	}
}

func TestExactMultiple(t *testing.T) {
	tl, err := timeline.Compose([]timeline.Segment{
		{Duration: seconds(12), Role: timeline.Voice},
		{Duration: seconds(4), Role: timeline.Background},
	}, policy(0))
	require.NoError(t, err)
	assert.Equal(t, 3, tl.BackgroundLoops)
	assert.Equal(t, int64(0), tl.BackgroundTrimEnd)
	plan := tl.BackgroundPlan()
	require.Len(t, plan, 3)
	assert.Equal(t, int64(0), plan[2].TrimEnd)
	assert.Equal(t, int64(0), plan[2].FadeStart)
	assert.Equal(t, seconds(5), plan[2].FadeLength)
}

func TestBackgroundLoopPolicy(t *testing.T) {
	segments := []timeline.Segment{
		{Duration: seconds(3), Role: timeline.LeadEffect},
		{Duration: seconds(2), Role: timeline.IntroPage},
		{Duration: seconds(5), Role: timeline.Background},
	}
	p := policy(1)
	p.BackgroundLoop = timeline.LoopAtLeastOnce
	tl, err := timeline.Compose(segments, p)
	require.NoError(t, err)
	assert.True(t, tl.BackgroundWholeDuration <= 0)
	assert.Equal(t, 1, tl.BackgroundLoops)
	assert.Equal(t, int64(0), tl.BackgroundTrimEnd)
	plan := tl.BackgroundPlan()
	require.Len(t, plan, 1)
	assert.Equal(t, tl.BackgroundDelayStart, plan[0].Delay)
	assert.Equal(t, tl.BackgroundDelayStart+seconds(5)-seconds(5), plan[0].FadeStart)

	p.BackgroundLoop = timeline.LoopOnlyWhenNeeded
	tl, err = timeline.Compose(segments, p)
	require.NoError(t, err)
	assert.Equal(t, 0, tl.BackgroundLoops)
	assert.False(t, tl.HasBackground())
	assert.Nil(t, tl.BackgroundPlan())
}

func TestComposeErrors(t *testing.T) {
	tests := []struct {
		segments []timeline.Segment
		err      error
	}{
		{
			segments: nil,
			err:      timeline.ErrNoForeground,
		},
		{
			segments: []timeline.Segment{{Duration: -1, Role: timeline.Voice}},
			err:      timeline.ErrNegativeDuration,
		},
		{
			segments: []timeline.Segment{
				{Duration: 1, Role: timeline.Voice},
				{Duration: 0, Role: timeline.Background},
			},
			err: timeline.ErrEmptyBackground,
		},
		{
			segments: []timeline.Segment{
				{Duration: 1, Role: timeline.Voice},
				{Duration: 1, Role: timeline.Background},
				{Duration: 1, Role: timeline.Background},
			},
			err: timeline.ErrMultipleBackground,
		},
		{
			segments: []timeline.Segment{
				{Duration: 1, Role: timeline.Voice},
				{Duration: 1, Role: timeline.LeadEffect},
			},
			err: timeline.ErrSegmentOrder,
		},
	}
	for _, test := range tests {
		_, err := timeline.Compose(test.segments, policy(1))
		assert.True(t, errors.Is(err, test.err), "expected %v got %v", test.err, err)
	}

	_, err := timeline.Compose([]timeline.Segment{
		{Duration: 10, Role: timeline.Voice},
		{Duration: 10, Role: timeline.Voice},
	}, policy(-0.5))
	assert.True(t, errors.Is(err, timeline.ErrNegativeGap), "expected %v got %v", timeline.ErrNegativeGap, err)
}
