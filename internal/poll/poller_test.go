package poll

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airheads/glider-panel/internal/route"
)

// echo answers every request with its own path and records the order seen.
type echo struct {
	mu   sync.Mutex
	seen []string
	ids  []string
}

func (e *echo) Dispatch(r route.Request) route.Response {
	e.mu.Lock()
	e.seen = append(e.seen, r.Path)
	e.ids = append(e.ids, r.ID)
	e.mu.Unlock()
	return route.Text(http.StatusOK, r.Path)
}

// waitQueued blocks until n requests sit in the queue.
func waitQueued(t *testing.T, q *Queue, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return len(q.ch) == n }, time.Second, time.Millisecond)
}

func submitAsync(q *Queue, path string) <-chan route.Response {
	out := make(chan route.Response, 1)
	go func() {
		resp, err := q.Submit(context.Background(), route.Request{Method: http.MethodGet, Path: path})
		if err == nil {
			out <- resp
		}
		close(out)
	}()
	return out
}

func TestServiceOneIdle(t *testing.T) {
	q := NewQueue(4)
	p := NewPoller(q, &echo{}, time.Hour)

	assert.False(t, q.Ready())
	assert.False(t, p.ServiceOne())
}

func TestServiceOneAtMostOne(t *testing.T) {
	q := NewQueue(4)
	e := &echo{}
	p := NewPoller(q, e, time.Hour)

	first := submitAsync(q, "/a")
	waitQueued(t, q, 1)
	second := submitAsync(q, "/b")
	waitQueued(t, q, 2)
	assert.True(t, q.Ready())

	require.True(t, p.ServiceOne())
	assert.Equal(t, "/a", string((<-first).Body))
	assert.Equal(t, 1, len(q.ch))

	require.True(t, p.ServiceOne())
	assert.Equal(t, "/b", string((<-second).Body))

	assert.False(t, q.Ready())
	assert.False(t, p.ServiceOne())
	assert.Equal(t, []string{"/a", "/b"}, e.seen)
}

func TestSubmitAssignsID(t *testing.T) {
	q := NewQueue(4)
	e := &echo{}
	p := NewPoller(q, e, time.Hour)

	errs := make(chan error, 2)
	go func() {
		_, err := q.Submit(context.Background(), route.Request{Path: "/fresh"})
		errs <- err
	}()
	waitQueued(t, q, 1)
	go func() {
		_, err := q.Submit(context.Background(), route.Request{ID: "abc-123", Path: "/kept"})
		errs <- err
	}()
	waitQueued(t, q, 2)

	require.True(t, p.ServiceOne())
	require.True(t, p.ServiceOne())
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	require.Len(t, e.ids, 2)
	assert.Len(t, e.ids[0], 36)
	assert.Equal(t, "abc-123", e.ids[1])
}

func TestRunServicesInArrivalOrder(t *testing.T) {
	q := NewQueue(8)
	e := &echo{}

	var outs []<-chan route.Response
	for _, path := range []string{"/1", "/2", "/3"} {
		outs = append(outs, submitAsync(q, path))
		waitQueued(t, q, len(outs))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go NewPoller(q, e, time.Millisecond).Run(ctx)

	for i, out := range outs {
		select {
		case resp := <-out:
			assert.Equal(t, http.StatusOK, resp.Status)
		case <-time.After(time.Second):
			t.Fatalf("request %d not serviced", i)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	assert.Equal(t, []string{"/1", "/2", "/3"}, e.seen)
}

func TestSubmitCancelled(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Submit(ctx, route.Request{Path: "/"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAbandonedRequestDoesNotBlockPoller(t *testing.T) {
	q := NewQueue(1)
	p := NewPoller(q, &echo{}, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, err := q.Submit(ctx, route.Request{Path: "/gone"})
		errs <- err
	}()
	waitQueued(t, q, 1)
	cancel()
	assert.ErrorIs(t, <-errs, context.Canceled)

	assert.True(t, p.ServiceOne())
}

func TestRunStopReleasesSubmitters(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		NewPoller(q, &echo{}, time.Hour).Run(ctx)
		close(done)
	}()

	errs := make(chan error, 1)
	go func() {
		_, err := q.Submit(context.Background(), route.Request{Path: "/late"})
		errs <- err
	}()
	waitQueued(t, q, 1)

	cancel()
	<-done

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrStopped)
	case <-time.After(time.Second):
		t.Fatal("submitter not released")
	}

	_, err := q.Submit(context.Background(), route.Request{Path: "/after"})
	assert.ErrorIs(t, err, ErrStopped)
}
