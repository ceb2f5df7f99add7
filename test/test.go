// Package test contains helper functions useful for testing audiomix
// packages. Fixtures are generated into temporary directories.
package test

import (
	"errors"
	"io"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pipelined/audiomix"
	"github.com/pipelined/audiomix/wav"
)

// Signal defines generated fixture.
type Signal struct {
	SampleRate  int
	NumChannels int
	// Samples is number of samples per channel.
	Samples int
	// Value is a constant amplitude. Zero value produces sine.
	Value float64
	// Frequency of the sine, 440 by default.
	Frequency float64
}

func (s Signal) sample(i int) float64 {
	if s.Value != 0 {
		return s.Value
	}
	freq := s.Frequency
	if freq == 0 {
		freq = 440
	}
	return 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(s.SampleRate))
}

// Wav writes 16-bit wav fixture into directory and returns its path.
func Wav(t testing.TB, dir, name string, s Signal) string {
	t.Helper()
	path := filepath.Join(dir, name)
	out, err := wav.Create(path, audiomix.Format{
		SampleRate:  s.SampleRate,
		NumChannels: s.NumChannels,
	}, wav.BitDepth16)
	require.NoError(t, err)
	defer out.Close()

	b := audiomix.EmptyBuffer(s.NumChannels, s.Samples)
	for c := range b {
		for i := range b[c] {
			b[c][i] = s.sample(i)
		}
	}
	p, err := out.Encode(&audiomix.Frame{Buffer: b})
	require.NoError(t, err)
	if p != nil {
		require.NoError(t, out.WritePacket(p))
	}
	require.NoError(t, out.WriteTrailer())
	return path
}

// Clip writes mono constant-value clip of provided length in seconds.
func Clip(t testing.TB, dir, name string, sampleRate int, seconds, value float64) string {
	t.Helper()
	return Wav(t, dir, name, Signal{
		SampleRate:  sampleRate,
		NumChannels: 1,
		Samples:     int(seconds * float64(sampleRate)),
		Value:       value,
	})
}

// ReadWav decodes the whole wav file.
func ReadWav(t testing.TB, path string) (audiomix.Format, audiomix.Buffer) {
	t.Helper()
	in, err := wav.Open(path)
	require.NoError(t, err)
	defer in.Close()

	var b audiomix.Buffer
	for {
		f, err := in.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		b = b.Append(f.Buffer)
	}
	return in.Format(), b
}

// WavDuration returns number of samples per channel stored in wav header.
func WavDuration(t testing.TB, path string) int64 {
	t.Helper()
	in, err := wav.Open(path)
	require.NoError(t, err)
	defer in.Close()
	d, ok := in.Duration()
	require.True(t, ok)
	return d
}
