// Package poll is the seam between the HTTP listener and the route table.
// Listener goroutines park requests in a Queue; a single Poller takes them
// off one at a time and runs the handler synchronously.
package poll

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/airheads/glider-panel/internal/route"
)

// ErrStopped is returned to submitters once the poller has shut down.
var ErrStopped = errors.New("poller stopped")

// pending is a request waiting for the poller, with a buffered reply slot so
// the poller never blocks on a submitter that already gave up.
type pending struct {
	req   route.Request
	reply chan route.Response
}

// Queue holds requests in arrival order.
type Queue struct {
	ch       chan *pending
	stopOnce sync.Once
	stopped  chan struct{}
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 1
	}
	return &Queue{
		ch:      make(chan *pending, size),
		stopped: make(chan struct{}),
	}
}

// Submit enqueues req and waits for its response. It blocks while the queue
// is full and returns ctx.Err() if the caller gives up first. A request
// without an ID is given one.
func (q *Queue) Submit(ctx context.Context, req route.Request) (route.Response, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	p := &pending{
		req:   req,
		reply: make(chan route.Response, 1),
	}

	select {
	case <-q.stopped:
		return route.Response{}, ErrStopped
	default:
	}

	select {
	case q.ch <- p:
	case <-q.stopped:
		return route.Response{}, ErrStopped
	case <-ctx.Done():
		return route.Response{}, ctx.Err()
	}

	select {
	case resp := <-p.reply:
		return resp, nil
	case <-q.stopped:
		return route.Response{}, ErrStopped
	case <-ctx.Done():
		return route.Response{}, ctx.Err()
	}
}

// Ready reports whether a request is waiting. The poller checks it before
// taking one.
func (q *Queue) Ready() bool {
	return len(q.ch) > 0
}

// next returns the oldest waiting request without blocking.
func (q *Queue) next() (*pending, bool) {
	select {
	case p := <-q.ch:
		return p, true
	default:
		return nil, false
	}
}

// stop wakes every submitter with ErrStopped. Safe to call more than once.
func (q *Queue) stop() {
	q.stopOnce.Do(func() { close(q.stopped) })
}
