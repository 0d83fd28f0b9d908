package share

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagDefaults(t *testing.T) {
	s := NewStore()

	assert.False(t, s.FlightControl.Get())
	assert.False(t, s.Calibrate.Get())
	assert.Equal(t, 0, s.Rudder.Get())
	assert.Equal(t, 0, s.Elevator.Get())
	assert.Equal(t, DefaultGain, s.RudderGain.Get())
	assert.Equal(t, DefaultGain, s.ElevatorGain.Get())
	assert.Equal(t, "flight-control-enabled", s.FlightControl.Name())
	assert.Equal(t, "calibrate-requested", s.Calibrate.Name())
}

func TestFlagLastWriteWins(t *testing.T) {
	s := NewStore()

	s.FlightControl.Set(true)
	assert.True(t, s.FlightControl.Get())

	s.FlightControl.Set(false)
	assert.False(t, s.FlightControl.Get())
}

func TestFlagSwap(t *testing.T) {
	s := NewStore()
	s.Calibrate.Set(true)

	assert.True(t, s.Calibrate.Swap(false))
	assert.False(t, s.Calibrate.Swap(false))
	assert.False(t, s.Calibrate.Get())
}

func TestResetGains(t *testing.T) {
	s := NewStore()
	s.RudderGain.Set(2.5)
	s.ElevatorGain.Set(0)

	s.ResetGains()

	assert.Equal(t, DefaultGain, s.RudderGain.Get())
	assert.Equal(t, DefaultGain, s.ElevatorGain.Get())
}

func TestWriteVisibleAcrossGoroutines(t *testing.T) {
	s := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			s.Rudder.Set(v)
			_ = s.Snapshot()
		}(i)
	}
	wg.Wait()

	s.Rudder.Set(42)
	done := make(chan int)
	go func() { done <- s.Rudder.Get() }()
	assert.Equal(t, 42, <-done)
}

func TestSnapshot(t *testing.T) {
	s := NewStore()
	s.FlightControl.Set(true)
	s.Rudder.Set(-30)
	s.ElevatorGain.Set(1.25)

	assert.Equal(t, Snapshot{
		FlightControl: true,
		Rudder:        -30,
		RudderGain:    DefaultGain,
		ElevatorGain:  1.25,
	}, s.Snapshot())
}

func TestWatchCoalesces(t *testing.T) {
	s := NewStore()
	ch, stop := s.Watch()
	defer stop()

	s.Rudder.Set(1)
	s.Rudder.Set(2)
	s.Rudder.Set(3)

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no change notification")
	}

	select {
	case <-ch:
		t.Fatal("notifications should coalesce")
	default:
	}
}

func TestWatchStop(t *testing.T) {
	s := NewStore()
	ch, stop := s.Watch()
	stop()
	stop()

	s.FlightControl.Set(true)

	select {
	case <-ch:
		t.Fatal("stopped watcher was notified")
	default:
	}
	require.Empty(t, s.watchers)
}

func TestWatchIgnoresUnchangedWrites(t *testing.T) {
	s := NewStore()
	ch, stop := s.Watch()
	defer stop()

	s.FlightControl.Set(false)
	s.RudderGain.Set(DefaultGain)
	s.Calibrate.Swap(false)

	select {
	case <-ch:
		t.Fatal("unchanged write notified watchers")
	default:
	}
}
