// Package chunk queues raw PCM bytes and extracts them in blocks aligned
// to a fixed unit.
package chunk

// DefaultUnit is the alignment unit in bytes.
const DefaultUnit = 2048

// Queue is a FIFO of byte chunks. It owns copies of enqueued data.
type Queue struct {
	unit   int
	chunks [][]byte
	size   int
}

// New returns queue with provided alignment unit. Non-positive unit means
// DefaultUnit.
func New(unit int) *Queue {
	if unit <= 0 {
		unit = DefaultUnit
	}
	return &Queue{unit: unit}
}

// Unit returns alignment unit.
func (q *Queue) Unit() int {
	return q.unit
}

// Len returns number of queued bytes.
func (q *Queue) Len() int {
	return q.size
}

// Enqueue appends a copy of data to the queue.
func (q *Queue) Enqueue(data []byte) {
	if len(data) == 0 {
		return
	}
	q.chunks = append(q.chunks, append([]byte(nil), data...))
	q.size += len(data)
}

// ExtractAligned returns the largest multiple of unit bytes from the front
// of the queue. False is returned if less than one unit is queued.
func (q *Queue) ExtractAligned() ([]byte, bool) {
	if q.size < q.unit {
		return nil, false
	}
	return q.take(q.size - q.size%q.unit), true
}

// Drain returns all queued bytes rounded down to multiple of sampleSize.
// The incomplete sample is discarded and the queue is emptied.
func (q *Queue) Drain(sampleSize int) []byte {
	if sampleSize <= 0 {
		sampleSize = 1
	}
	b := q.take(q.size - q.size%sampleSize)
	q.chunks = nil
	q.size = 0
	return b
}

// take removes n bytes from the front of the queue. Chunk crossing the
// boundary is split, its remainder stays at the front.
func (q *Queue) take(n int) []byte {
	out := make([]byte, 0, n)
	for len(out) < n {
		c := q.chunks[0]
		if need := n - len(out); len(c) > need {
			out = append(out, c[:need]...)
			q.chunks[0] = c[need:]
			break
		}
		out = append(out, c...)
		q.chunks[0] = nil
		q.chunks = q.chunks[1:]
	}
	q.size -= n
	return out
}
