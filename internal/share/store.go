package share

import "sync"

const (
	// DefaultGain is the loop gain used until the panel sets one.
	DefaultGain = 0.5

	// SurfaceLimit bounds manual rudder and elevator setpoints, in degrees.
	SurfaceLimit = 90
)

// Snapshot is a copy of every flag at one moment. Flags are read one at a
// time, so a snapshot taken during writes may mix old and new values.
type Snapshot struct {
	FlightControl bool    `json:"flight_control"`
	Calibrate     bool    `json:"calibrate"`
	Rudder        int     `json:"rudder"`
	Elevator      int     `json:"elevator"`
	RudderGain    float64 `json:"rudder_gain"`
	ElevatorGain  float64 `json:"elevator_gain"`
}

// Store groups the flags shared between the web panel and the control tasks.
// Create one per process with NewStore and pass it by reference.
type Store struct {
	FlightControl *Flag[bool]
	Calibrate     *Flag[bool]
	Rudder        *Flag[int]
	Elevator      *Flag[int]
	RudderGain    *Flag[float64]
	ElevatorGain  *Flag[float64]

	mu       sync.Mutex
	watchers map[int]chan struct{}
	nextID   int
}

func NewStore() *Store {
	s := &Store{watchers: make(map[int]chan struct{})}
	s.FlightControl = newFlag("flight-control-enabled", false, s.notify)
	s.Calibrate = newFlag("calibrate-requested", false, s.notify)
	s.Rudder = newFlag("rudder", 0, s.notify)
	s.Elevator = newFlag("elevator", 0, s.notify)
	s.RudderGain = newFlag("rudder-gain", DefaultGain, s.notify)
	s.ElevatorGain = newFlag("elevator-gain", DefaultGain, s.notify)
	return s
}

func (s *Store) Snapshot() Snapshot {
	return Snapshot{
		FlightControl: s.FlightControl.Get(),
		Calibrate:     s.Calibrate.Get(),
		Rudder:        s.Rudder.Get(),
		Elevator:      s.Elevator.Get(),
		RudderGain:    s.RudderGain.Get(),
		ElevatorGain:  s.ElevatorGain.Get(),
	}
}

// ResetGains restores both loop gains to DefaultGain.
func (s *Store) ResetGains() {
	s.RudderGain.Reset()
	s.ElevatorGain.Reset()
}

// Watch returns a channel that receives after any flag write. Notifications
// coalesce: a slow reader sees one pending signal, not one per write.
// Call the returned func to stop watching.
func (s *Store) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
			// already signalled
		}
	}
}
