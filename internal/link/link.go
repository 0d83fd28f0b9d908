// Package link forwards panel state to the flight controller over a serial
// line, one text command per change:
//
//	a 0|1    flight control off/on
//	c        calibrate/zero now
//	r N      rudder setpoint, degrees
//	e N      elevator setpoint, degrees
//	kr G     rudder gain
//	ke G     elevator gain
package link

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/tarm/serial"

	"github.com/airheads/glider-panel/internal/share"
)

const (
	openAttempts = 5
	openDelay    = 2 * time.Second
	queueSize    = 256
)

// Open opens the flight controller port, retrying a few times while the
// device enumerates.
func Open(ctx context.Context, name string, baud int) (io.ReadWriteCloser, error) {
	cfg := &serial.Config{
		Name:        name,
		Baud:        baud,
		ReadTimeout: 2 * time.Second,
	}

	var lastErr error
	for attempt := 0; attempt < openAttempts; attempt++ {
		port, err := serial.OpenPort(cfg)
		if err == nil {
			if err := port.Flush(); err != nil {
				log.Printf("[SERIAL] Flush %s: %v", name, err)
			}
			return port, nil
		}
		lastErr = err
		log.Printf("[SERIAL] Open %s attempt %d/%d: %v", name, attempt+1, openAttempts, err)

		if attempt < openAttempts-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(openDelay):
			}
		}
	}
	return nil, fmt.Errorf("open serial %s: %w", name, lastErr)
}

// Opener reopens the port after a write fails, e.g. when the USB cable was
// pulled and plugged back in.
type Opener func(ctx context.Context) (io.ReadWriteCloser, error)

// Link turns store changes into commands on port.
type Link struct {
	store       *share.Store
	reopen      Opener
	reopenDelay time.Duration

	mu         sync.Mutex
	port       io.ReadWriteCloser
	writeQueue chan string
	resync     chan struct{}
}

// New returns a link writing to port. reopen may be nil, in which case
// write errors are only logged.
func New(port io.ReadWriteCloser, store *share.Store, reopen Opener) *Link {
	return &Link{
		store:       store,
		reopen:      reopen,
		reopenDelay: time.Second,
		port:        port,
		writeQueue:  make(chan string, queueSize),
		resync:      make(chan struct{}, 1),
	}
}

// Run sends the full state once, then a command for each change, until ctx
// is done. After the port is reopened the full state is sent again. It
// closes the port on return.
func (l *Link) Run(ctx context.Context) {
	changes, stop := l.store.Watch()
	defer stop()
	defer l.closePort()

	done := make(chan struct{})
	go func() {
		defer close(done)
		l.write(ctx)
	}()

	var last *share.Snapshot
	for {
		last = l.sync(last)

		select {
		case <-ctx.Done():
			<-done
			return
		case <-changes:
		case <-l.resync:
			last = nil
		}
	}
}

// sync queues commands for every field that differs from prev. A nil prev
// sends everything.
func (l *Link) sync(prev *share.Snapshot) *share.Snapshot {
	// take the request first so a calibrate set during this pass is not lost
	if l.store.Calibrate.Swap(false) {
		l.trySend("c\n")
	}

	cur := l.store.Snapshot()
	cur.Calibrate = false

	if prev == nil || prev.FlightControl != cur.FlightControl {
		on := 0
		if cur.FlightControl {
			on = 1
		}
		l.trySend(fmt.Sprintf("a %d\n", on))
	}
	if prev == nil || prev.Rudder != cur.Rudder {
		l.trySend(fmt.Sprintf("r %d\n", cur.Rudder))
	}
	if prev == nil || prev.Elevator != cur.Elevator {
		l.trySend(fmt.Sprintf("e %d\n", cur.Elevator))
	}
	if prev == nil || prev.RudderGain != cur.RudderGain {
		l.trySend(fmt.Sprintf("kr %.3f\n", cur.RudderGain))
	}
	if prev == nil || prev.ElevatorGain != cur.ElevatorGain {
		l.trySend(fmt.Sprintf("ke %.3f\n", cur.ElevatorGain))
	}
	return &cur
}

// write drains the queue onto the port.
func (l *Link) write(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-l.writeQueue:
			l.mu.Lock()
			_, err := l.port.Write([]byte(cmd))
			l.mu.Unlock()
			if err != nil {
				log.Printf("[SERIAL] Write %q: %v", cmd, err)
				if !l.reconnect(ctx) {
					return
				}
			}
		}
	}
}

// reconnect closes the failed port and reopens it until it succeeds or ctx
// is done. Commands queued for the old port are dropped and Run is asked to
// resend the full state.
func (l *Link) reconnect(ctx context.Context) bool {
	if l.reopen == nil {
		return true
	}
	l.closePort()

	for {
		port, err := l.reopen(ctx)
		if err == nil {
			l.mu.Lock()
			l.port = port
			l.mu.Unlock()
			log.Printf("[SERIAL] Port reopened, resending state")

			l.drain()
			select {
			case l.resync <- struct{}{}:
			default:
			}
			return true
		}
		log.Printf("[SERIAL] Reopen failed: %v", err)

		select {
		case <-ctx.Done():
			return false
		case <-time.After(l.reopenDelay):
		}
	}
}

func (l *Link) drain() {
	for {
		select {
		case <-l.writeQueue:
		default:
			return
		}
	}
}

func (l *Link) closePort() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.port != nil {
		if err := l.port.Close(); err != nil {
			log.Printf("[SERIAL] Close: %v", err)
		}
		l.port = nil
	}
}

// trySend queues cmd without blocking. If the queue is full the command is
// dropped.
func (l *Link) trySend(cmd string) {
	select {
	case l.writeQueue <- cmd:
	default:
		log.Printf("[SERIAL] Write queue full, dropping %q", cmd)
	}
}
