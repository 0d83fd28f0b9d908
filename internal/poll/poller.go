package poll

import (
	"context"
	"log"
	"time"

	"github.com/airheads/glider-panel/internal/route"
)

// DefaultInterval is the idle time between polls.
const DefaultInterval = 500 * time.Millisecond

// Dispatcher is what the poller hands requests to.
type Dispatcher interface {
	Dispatch(route.Request) route.Response
}

// Poller services at most one queued request per tick.
type Poller struct {
	queue    *Queue
	routes   Dispatcher
	interval time.Duration
}

func NewPoller(q *Queue, routes Dispatcher, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{queue: q, routes: routes, interval: interval}
}

// ServiceOne takes the oldest waiting request, if any, dispatches it and
// delivers the response. It reports whether a request was serviced.
func (p *Poller) ServiceOne() bool {
	if !p.queue.Ready() {
		return false
	}
	req, ok := p.queue.next()
	if !ok {
		return false
	}

	resp := p.routes.Dispatch(req.req)
	req.reply <- resp
	log.Printf("[POLL] %s %s %s -> %d", req.req.ID, req.req.Method, req.req.Path, resp.Status)
	return true
}

// Run polls until ctx is done, then stops the queue so waiting submitters
// return ErrStopped.
func (p *Poller) Run(ctx context.Context) {
	defer p.queue.stop()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ServiceOne()
		}
	}
}
