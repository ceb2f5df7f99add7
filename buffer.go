package audiomix

import "time"

// Buffer is a non-interleaved signal. First dimension is for channels.
type Buffer [][]float64

// maxInt16 is used to convert 16-bit ints to floats and back.
const maxInt16 = 0x8000

// EmptyBuffer returns a buffer of silence with defined dimensions.
func EmptyBuffer(numChannels int, size int) Buffer {
	b := make([][]float64, numChannels)
	for i := range b {
		b[i] = make([]float64, size)
	}
	return b
}

// NumChannels returns number of channels in this buffer.
func (b Buffer) NumChannels() int {
	return len(b)
}

// Size returns number of samples per channel.
func (b Buffer) Size() int {
	if len(b) == 0 {
		return 0
	}
	return len(b[0])
}

// Append buffers. Result has the number of channels of the receiver, or of
// the source if receiver is empty.
func (b Buffer) Append(source Buffer) Buffer {
	if b == nil {
		b = make([][]float64, source.NumChannels())
	}
	for i := range source {
		if i >= len(b) {
			break
		}
		b[i] = append(b[i], source[i]...)
	}
	return b
}

// Slice creates a new copy of buffer from start position with defined
// length. If buffer doesn't have enough samples, shorten block is returned.
//
// If start is out of bounds, nil is returned.
func (b Buffer) Slice(start int, length int) Buffer {
	if b == nil || start >= b.Size() || start < 0 {
		return nil
	}
	end := start + length
	if end > b.Size() {
		end = b.Size()
	}
	result := make([][]float64, b.NumChannels())
	for i := range b {
		result[i] = make([]float64, end-start)
		copy(result[i], b[i][start:end])
	}
	return result
}

// Copy returns a deep copy of the buffer.
func (b Buffer) Copy() Buffer {
	return b.Slice(0, b.Size())
}

// ReadInts16 reads interleaved 16-bit samples into the buffer. Buffer size
// is reduced if not enough samples provided.
func (b Buffer) ReadInts16(ints []int16) {
	numChannels := b.NumChannels()
	if numChannels == 0 {
		return
	}
	size := len(ints) / numChannels
	for i := range b {
		if size < len(b[i]) {
			b[i] = b[i][:size]
		}
		for j := 0; j < size && j < len(b[i]); j++ {
			b[i][j] = float64(ints[j*numChannels+i]) / maxInt16
		}
	}
}

// Ints16 returns interleaved 16-bit representation of the buffer. Samples
// are clipped to the int16 range.
func (b Buffer) Ints16() []int16 {
	numChannels := b.NumChannels()
	size := b.Size()
	ints := make([]int16, size*numChannels)
	for i := range b {
		for j, v := range b[i] {
			ints[j*numChannels+i] = clip16(v)
		}
	}
	return ints
}

// Ints returns interleaved int representation of the buffer scaled to
// provided bit depth.
func (b Buffer) Ints(bitDepth int) []int {
	numChannels := b.NumChannels()
	size := b.Size()
	scale := float64(int64(1) << uint(bitDepth-1))
	max := scale - 1
	ints := make([]int, size*numChannels)
	for i := range b {
		for j, v := range b[i] {
			s := v * scale
			if s > max {
				s = max
			} else if s < -scale {
				s = -scale
			}
			ints[j*numChannels+i] = int(s)
		}
	}
	return ints
}

func clip16(v float64) int16 {
	s := v * maxInt16
	if s > maxInt16-1 {
		return maxInt16 - 1
	}
	if s < -maxInt16 {
		return -maxInt16
	}
	return int16(s)
}

// DurationOf returns time duration of samples at this sample rate.
func DurationOf(sampleRate int, samples int64) time.Duration {
	return time.Duration(float64(samples) / float64(sampleRate) * float64(time.Second))
}

// SamplesOf returns number of samples in duration at this sample rate.
func SamplesOf(sampleRate int, seconds float64) int64 {
	return int64(seconds * float64(sampleRate))
}
