package time

import (
	"time"

	cmtsync "github.com/cometbft/flowcontrol/libs/sync"
)

// MockableSource is a Source that follows the system clock until it is Set,
// after which it only moves when told to.
type MockableSource struct {
	mtx   cmtsync.Mutex
	faked bool
	time  time.Time
}

var _ Source = (*MockableSource)(nil)

// NewMockableSource returns a source frozen at t.
func NewMockableSource(t time.Time) *MockableSource {
	s := &MockableSource{}
	s.Set(t)
	return s
}

// Set freezes the source at t.
func (s *MockableSource) Set(t time.Time) {
	s.mtx.Lock()
	s.faked = true
	s.time = Canonical(t)
	s.mtx.Unlock()
}

// Advance moves a frozen source forward by d. A negative d moves it back,
// which is how tests simulate a misbehaving wall clock.
func (s *MockableSource) Advance(d time.Duration) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if !s.faked {
		s.faked = true
		s.time = Now()
	}
	s.time = s.time.Add(d)
}

// Sync makes the source follow the system clock again.
func (s *MockableSource) Sync() {
	s.mtx.Lock()
	s.faked = false
	s.mtx.Unlock()
}

func (s *MockableSource) Now() time.Time {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.faked {
		return s.time
	}
	return Now()
}
