package mock_test

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pipelined/audiomix"
	"github.com/pipelined/audiomix/mock"
)

func TestInput(t *testing.T) {
	tests := []struct {
		mock.Input
		frames  int64
		samples int64
	}{
		{
			Input:   mock.Input{Limit: 100, FrameSize: 10, Value: 0.5},
			frames:  10,
			samples: 100,
		},
		{
			Input:   mock.Input{Limit: 25, FrameSize: 10, Value: 0.7, NumChannels: 2},
			frames:  3,
			samples: 25,
		},
	}
	for _, test := range tests {
		in := test.Input
		for {
			f, err := in.Decode()
			if err == io.EOF {
				break
			}
			assert.NoError(t, err)
			assert.Equal(t, in.Format().NumChannels, f.NumChannels())
			assert.Equal(t, test.Value, f.Buffer[0][0])
		}
		frames, samples := in.Count()
		assert.Equal(t, test.frames, frames)
		assert.Equal(t, test.samples, samples)
	}
}

func TestOutputDelay(t *testing.T) {
	out := &mock.Output{Delay: 2}
	for i := 0; i < 3; i++ {
		p, err := out.Encode(&audiomix.Frame{Buffer: audiomix.Buffer{{float64(i)}}})
		assert.NoError(t, err)
		if i < 2 {
			assert.Nil(t, p)
			continue
		}
		assert.NoError(t, out.WritePacket(p))
	}
	for {
		p, err := out.Encode(nil)
		assert.NoError(t, err)
		if p == nil {
			break
		}
		assert.NoError(t, out.WritePacket(p))
	}
	assert.Equal(t, audiomix.Buffer{{0, 1, 2}}, out.Buffer())
	assert.Len(t, out.Packets(), 3)
	assert.Equal(t, 3, out.Flushes)
}
