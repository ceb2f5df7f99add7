package streamer_test

import (
	"errors"
	"io"
	"testing"

	"github.com/gopxl/beep/v2"
	"github.com/stretchr/testify/assert"

	"github.com/pipelined/audiomix"
	"github.com/pipelined/audiomix/internal/streamer"
)

// stream is a beep stream of constant samples.
type stream struct {
	left, right float64
	len, pos    int
	err         error
	closed      bool
}

func (s *stream) Stream(samples [][2]float64) (int, bool) {
	if s.err != nil {
		return 0, false
	}
	n := 0
	for ; n < len(samples) && s.pos < s.len; n++ {
		samples[n] = [2]float64{s.left, s.right}
		s.pos++
	}
	return n, n > 0
}

func (s *stream) Err() error       { return s.err }
func (s *stream) Len() int         { return s.len }
func (s *stream) Position() int    { return s.pos }
func (s *stream) Seek(p int) error { s.pos = p; return nil }
func (s *stream) Close() error     { s.closed = true; return nil }

func TestInput(t *testing.T) {
	tests := []struct {
		description string
		format      beep.Format
		expected    audiomix.Format
		channels    []float64
	}{
		{
			description: "mono",
			format:      beep.Format{SampleRate: 22050, NumChannels: 1, Precision: 2},
			expected:    audiomix.Format{SampleFormat: audiomix.SampleFormatS16, SampleRate: 22050, NumChannels: 1},
			channels:    []float64{0.5},
		},
		{
			description: "stereo 24 bit",
			format:      beep.Format{SampleRate: 48000, NumChannels: 2, Precision: 3},
			expected:    audiomix.Format{SampleFormat: audiomix.SampleFormatS32, SampleRate: 48000, NumChannels: 2},
			channels:    []float64{0.5, -0.5},
		},
	}
	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			s := &stream{left: 0.5, right: -0.5, len: 1500}
			in := streamer.New(s, test.format)
			assert.Equal(t, test.expected, in.Format())
			d, ok := in.Duration()
			assert.True(t, ok)
			assert.Equal(t, int64(1500), d)

			var sizes []int
			for {
				f, err := in.Decode()
				if err == io.EOF {
					break
				}
				assert.NoError(t, err)
				sizes = append(sizes, f.NumSamples())
				for c, v := range test.channels {
					assert.Equal(t, v, f.Buffer[c][0])
				}
			}
			assert.Equal(t, []int{1024, 476}, sizes)
			assert.NoError(t, in.Close())
			assert.True(t, s.closed)
		})
	}
}

func TestInputError(t *testing.T) {
	errStream := errors.New("broken stream")
	in := streamer.New(&stream{err: errStream}, beep.Format{SampleRate: 44100, NumChannels: 2, Precision: 2})
	_, err := in.Decode()
	assert.Equal(t, errStream, err)
}
