// Package metric publishes counters of decoded and encoded streams with
// expvar. Counters are aggregated per component type.
package metric

import (
	"expvar"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pipelined/audiomix"
)

const label = "audiomix"

const (
	// RunCounter counts how many times component type was metered.
	RunCounter = "Runs"
	// FrameCounter counts frames or packets.
	FrameCounter = "Frames"
	// SampleCounter counts samples per channel.
	SampleCounter = "Samples"
	// ByteCounter counts encoded bytes.
	ByteCounter = "Bytes"
	// DurationCounter counts duration of signal.
	DurationCounter = "Duration"
	// LatencyCounter measures time between measure calls.
	LatencyCounter = "Latency"
)

var (
	components = metrics{
		m: make(map[string]*metric),
	}

	counters = []string{
		RunCounter,
		FrameCounter,
		SampleCounter,
		ByteCounter,
		DurationCounter,
		LatencyCounter,
	}
)

// MeasureFunc captures counters of a single frame or packet.
type MeasureFunc func(samples, bytes int64)

// Meter registers a new run of the component and returns measure closure.
// Latency is measured from this call.
func Meter(component interface{}, sampleRate int) MeasureFunc {
	m := components.get(Type(component))
	m.runs.Add(1)
	calledAt := time.Now()
	return func(samples, bytes int64) {
		m.latency.set(time.Since(calledAt))
		m.frames.Add(1)
		m.samples.Add(samples)
		m.bytes.Add(bytes)
		if sampleRate > 0 {
			m.duration.add(audiomix.DurationOf(sampleRate, samples))
		}
		calledAt = time.Now()
	}
}

// Get returns counter values of the component type.
func Get(component interface{}) map[string]string {
	return getCounters(Type(component))
}

// GetAll returns counters of all metered component types.
func GetAll() map[string]map[string]string {
	m := make(map[string]map[string]string)
	for _, t := range Types() {
		m[t] = getCounters(t)
	}
	return m
}

// Types returns sorted list of metered component types.
func Types() []string {
	components.Lock()
	defer components.Unlock()
	types := make([]string, 0, len(components.m))
	for t := range components.m {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func getCounters(componentType string) map[string]string {
	m := make(map[string]string)
	for _, counter := range counters {
		if v := expvar.Get(key(componentType, counter)); v != nil {
			m[counter] = v.String()
		}
	}
	return m
}

// Type returns component type name used as metric key.
func Type(component interface{}) string {
	if s, ok := component.(string); ok {
		return s
	}
	rv := reflect.ValueOf(component)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	return rv.Type().String()
}

type metrics struct {
	sync.Mutex
	m map[string]*metric
}

func (m *metrics) get(componentType string) *metric {
	m.Lock()
	defer m.Unlock()
	if v, ok := m.m[componentType]; ok {
		return v
	}
	v := newMetric(componentType)
	m.m[componentType] = v
	return v
}

type metric struct {
	runs     *expvar.Int
	frames   *expvar.Int
	samples  *expvar.Int
	bytes    *expvar.Int
	latency  *duration
	duration *duration
}

func newMetric(componentType string) *metric {
	m := &metric{
		runs:     expvar.NewInt(key(componentType, RunCounter)),
		frames:   expvar.NewInt(key(componentType, FrameCounter)),
		samples:  expvar.NewInt(key(componentType, SampleCounter)),
		bytes:    expvar.NewInt(key(componentType, ByteCounter)),
		latency:  &duration{},
		duration: &duration{},
	}
	expvar.Publish(key(componentType, LatencyCounter), m.latency)
	expvar.Publish(key(componentType, DurationCounter), m.duration)
	return m
}

func key(componentType, counter string) string {
	return fmt.Sprintf("%s.%s.%s", label, componentType, counter)
}

// duration allows to format time.Duration metric values.
type duration struct {
	d int64
}

func (v *duration) String() string {
	return fmt.Sprintf("%q", time.Duration(atomic.LoadInt64(&v.d)))
}

func (v *duration) add(delta time.Duration) {
	atomic.AddInt64(&v.d, int64(delta))
}

func (v *duration) set(value time.Duration) {
	atomic.StoreInt64(&v.d, int64(value))
}
