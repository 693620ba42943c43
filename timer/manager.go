// Package timer implements the fixed-size timer table spec.md section 4.3
// describes: 254 slots, one-shot and periodic ("tick") timers keyed by a
// small integer id, delivering expirations as a signal carrying that id.
//
// Grounded verbatim on original_source/src/timer.c's CreateTimer/
// CreateTick/DeleteTimer (slot bounds, delete-before-recreate), with the
// POSIX timer_create/SIGEV_SIGNAL delivery mechanism replaced by the
// standard library's time.AfterFunc/time.Ticker, per spec.md section 9's
// explicit allowance for a channel populated by a timer-service goroutine
// in place of real-time signals.
package timer

import (
	"errors"
	"sync"
	"time"
)

// MaxID is the highest valid timer slot id. Slot 0 is reserved by spec.md
// section 3 for "no active timer" and is never a valid argument here.
const MaxID = 254

// ErrNotFound is returned by CreateOneShot, CreateTick, and Delete when
// the requested id is outside [1, MaxID].
var ErrNotFound = errors.New("timer: id not found")

type slot struct {
	oneShot *time.Timer
	tick    *time.Ticker
	stop    chan struct{} // closed to stop the tick-forwarding goroutine
}

// Manager owns the 254-slot timer table. All mutation happens on whichever
// goroutine calls CreateOneShot/CreateTick/Delete; per spec.md section 5
// that is always the engine's single event-loop goroutine, so the table
// itself needs no locking for that traffic. A mutex is still kept because
// Delete can race with a timer's own expiration callback, which runs on a
// goroutine the time package manages.
type Manager struct {
	mu      sync.Mutex
	slots   [MaxID + 1]*slot
	deliver func(id int)
}

// NewManager creates a timer manager that calls deliver(id) from its own
// goroutine every time a one-shot or tick timer in [1, MaxID] fires. The
// engine's event loop wires deliver to push a timer event onto its event
// channel, rather than receiving a real-time signal.
func NewManager(deliver func(id int)) *Manager {
	return &Manager{deliver: deliver}
}

func validID(id int) bool {
	return id >= 1 && id <= MaxID
}

// CreateOneShot installs a timer that delivers id once after ms
// milliseconds. ms == 0 fires immediately (on the next scheduler tick). If
// id already holds a live timer, it is deleted first, matching
// original_source/src/timer.c's CreateTimer.
func (m *Manager) CreateOneShot(id, ms int) error {
	if !validID(id) {
		return ErrNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.deleteLocked(id)

	s := &slot{}
	s.oneShot = time.AfterFunc(time.Duration(ms)*time.Millisecond, func() {
		m.fire(id)
	})
	m.slots[id] = s
	return nil
}

// CreateTick installs a timer that delivers id every ms milliseconds until
// deleted, matching original_source/src/timer.c's CreateTick.
func (m *Manager) CreateTick(id, ms int) error {
	if !validID(id) {
		return ErrNotFound
	}
	if ms <= 0 {
		ms = 1
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.deleteLocked(id)

	s := &slot{
		tick: time.NewTicker(time.Duration(ms) * time.Millisecond),
		stop: make(chan struct{}),
	}
	m.slots[id] = s

	go func(ticker *time.Ticker, stop chan struct{}) {
		for {
			select {
			case <-ticker.C:
				m.fire(id)
			case <-stop:
				return
			}
		}
	}(s.tick, s.stop)

	return nil
}

// Delete cancels and frees the slot for id.
func (m *Manager) Delete(id int) error {
	if !validID(id) {
		return ErrNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.deleteLocked(id)
	return nil
}

func (m *Manager) deleteLocked(id int) {
	s := m.slots[id]
	if s == nil {
		return
	}
	if s.oneShot != nil {
		s.oneShot.Stop()
	}
	if s.tick != nil {
		s.tick.Stop()
		close(s.stop)
	}
	m.slots[id] = nil
}

func (m *Manager) fire(id int) {
	m.mu.Lock()
	live := m.slots[id] != nil
	if live && m.slots[id].oneShot != nil {
		// one-shot timers free their own slot once they fire
		m.slots[id] = nil
	}
	m.mu.Unlock()

	if live && m.deliver != nil {
		m.deliver(id)
	}
}

// StopAll cancels every live timer, used on engine shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := 1; id <= MaxID; id++ {
		m.deleteLocked(id)
	}
}
