package pump

import (
	"errors"
	"io"

	"github.com/pipelined/audiomix"
	"github.com/pipelined/audiomix/filter"
)

// Queue is an ordered list of contexts that present as a single source
// to the shared destination node. Each context has its own graph, frames
// of its sink are forwarded into destination. Destination receives end of
// stream once, after the last context is finished.
type Queue struct {
	Dest     *filter.Node
	contexts []*Context
	pts      int64
	done     bool
}

// NewQueue returns queue that feeds the destination node.
func NewQueue(dest *filter.Node, contexts ...*Context) *Queue {
	return &Queue{
		Dest:     dest,
		contexts: contexts,
	}
}

// Push appends context to the queue.
func (q *Queue) Push(c *Context) {
	q.contexts = append(q.contexts, c)
}

// Len returns number of contexts left.
func (q *Queue) Len() int {
	return len(q.contexts)
}

// Front returns the context currently feeding destination.
func (q *Queue) Front() *Context {
	if len(q.contexts) == 0 {
		return nil
	}
	return q.contexts[0]
}

// Finished reports whether destination received end of stream.
func (q *Queue) Finished() bool {
	return q.done
}

// Release releases resources of all contexts left in the queue.
func (q *Queue) Release() error {
	var errs audiomix.Errors
	for _, c := range q.contexts {
		if c.Release != nil {
			if err := c.Release.Release(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	q.contexts = nil
	return errs.Ret()
}

// pop removes front context and releases its resources. End of stream is
// pushed into destination when queue becomes empty.
func (q *Queue) pop() error {
	c := q.contexts[0]
	q.contexts[0] = nil
	q.contexts = q.contexts[1:]
	if c.Release != nil {
		if err := c.Release.Release(); err != nil {
			return audiomix.NewError(audiomix.KindUnknown, "release", err)
		}
	}
	if len(q.contexts) > 0 {
		return nil
	}
	q.done = true
	if err := q.Dest.Push(nil); err != nil {
		return audiomix.NewError(audiomix.KindUnknown, "push", err)
	}
	return nil
}

// forward drains front context sink into destination. It decodes one
// batch into the front context when its graph is starved. Contexts are
// popped as their sinks reach end of stream.
func (q *Queue) forward(batch int) error {
	decoded := false
	for !q.done {
		c := q.Front()
		if c == nil {
			q.done = true
			if err := q.Dest.Push(nil); err != nil {
				return audiomix.NewError(audiomix.KindUnknown, "push", err)
			}
			return nil
		}
		f, err := c.Sink.Pull()
		switch {
		case err == nil:
			f.PTS = q.pts
			q.pts += int64(f.NumSamples())
			if err := q.Dest.Push(f); err != nil {
				return audiomix.NewError(audiomix.KindUnknown, "push", err)
			}
			// destination has a frame now, let the graph consume it.
			decoded = true
		case errors.Is(err, io.EOF):
			if err := q.pop(); err != nil {
				return err
			}
		case errors.Is(err, audiomix.ErrNeedMore):
			if decoded || !c.Starved() {
				return nil
			}
			if _, err := c.decode(batch); err != nil {
				return err
			}
			decoded = true
		default:
			return audiomix.NewError(audiomix.KindUnknown, "pull", err)
		}
	}
	return nil
}

// RunQueues pumps frames of queued contexts into their destinations until
// the sink reaches end of stream. Plain contexts feed the graph directly.
func (p *Pump) RunQueues(queues []*Queue, contexts ...*Context) error {
	return p.run(func() (bool, error) {
		fed := false
		for _, q := range queues {
			if q.done || q.Dest.FailedRequests() == 0 {
				continue
			}
			if err := q.forward(p.batchSize()); err != nil {
				return false, err
			}
			fed = true
		}
		for _, c := range contexts {
			if !c.Starved() {
				continue
			}
			if _, err := c.decode(p.batchSize()); err != nil {
				return false, err
			}
			fed = true
		}
		return fed, nil
	})
}
