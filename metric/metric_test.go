package metric_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pipelined/audiomix/metric"
)

type decoder struct{}

func TestMeter(t *testing.T) {
	sampleRate := 44100
	var tests = []struct {
		component        interface{}
		routines         int
		frames           int
		frameSize        int64
		expectedSamples  string
		expectedRuns     string
		expectedDuration string
	}{
		{
			component:        "test.decode",
			routines:         2,
			frames:           10,
			frameSize:        4410,
			expectedSamples:  "88200",
			expectedRuns:     "2",
			expectedDuration: `"2s"`,
		},
		{
			component:        &decoder{},
			routines:         3,
			frames:           1,
			frameSize:        441,
			expectedSamples:  "1323",
			expectedRuns:     "3",
			expectedDuration: `"30ms"`,
		},
	}
	measure := func(fn metric.MeasureFunc, wg *sync.WaitGroup, frames int, frameSize int64) {
		defer wg.Done()
		for i := 0; i < frames; i++ {
			fn(frameSize, 2*frameSize)
		}
	}

	for _, c := range tests {
		wg := &sync.WaitGroup{}
		wg.Add(c.routines)
		for i := 0; i < c.routines; i++ {
			go measure(metric.Meter(c.component, sampleRate), wg, c.frames, c.frameSize)
		}
		wg.Wait()
		values := metric.Get(c.component)
		assert.Equal(t, c.expectedSamples, values[metric.SampleCounter])
		assert.Equal(t, c.expectedRuns, values[metric.RunCounter])
		assert.Equal(t, c.expectedDuration, values[metric.DurationCounter])
	}
	assert.Equal(t, "metric_test.decoder", metric.Type(decoder{}))
	assert.Contains(t, metric.GetAll(), "test.decode")
}
