// Package engine implements the state-machine runtime spec.md sections 3
// through 5 describe: the StateMachine/State/Transition data model and the
// single-threaded cooperative event loop that drives transitions as timer
// and variable-change events arrive.
//
// Grounded on the teacher's (anggasct/fluo) pkg/core/statemachine.go
// channel-fed event loop and pkg/core/core.go data types, and on
// original_source/src/engine.c for the exact flat-FSM dispatch algorithm
// spec.md section 4.4 requires.
package engine

import (
	"sync"

	"github.com/vartrigger/statemachine/eval"
	"github.com/vartrigger/statemachine/timer"
	"github.com/vartrigger/statemachine/varserver"
)

// StateMachine is exactly one per process, per spec.md section 3.
type StateMachine struct {
	Name        string
	Description string
	Verbose     bool

	VarServer varserver.Server
	Timers    *timer.Manager
	Eval      *eval.Evaluator

	mu      sync.RWMutex
	states  map[string]*State
	current *State

	observers []StateMachineObserver

	events   chan Event
	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewStateMachine creates an empty state machine bound to the given
// variable server. The timer manager is created internally and wired so
// its expirations are delivered back onto this machine's event channel —
// the "channel populated by a timer-service thread" spec.md section 9
// describes.
func NewStateMachine(name, description string, vs varserver.Server) *StateMachine {
	sm := &StateMachine{
		Name:        name,
		Description: description,
		VarServer:   vs,
		states:      make(map[string]*State),
		events:      make(chan Event, 64),
		stopCh:      make(chan struct{}),
	}
	sm.Timers = timer.NewManager(func(id int) {
		sm.dispatch(NewEvent(KindTimer, id))
	})
	sm.Eval = eval.NewEvaluator(vs, sm.Timers)
	sm.Eval.Warn = sm.notifyError
	return sm
}

// AddState registers a state. Called by the lang parser as it reduces
// each `state <id> { ... }` block.
func (sm *StateMachine) AddState(s *State) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.states[s.ID] = s
}

// FindState looks up a state by name, per spec.md section 4.4's FindState.
func (sm *StateMachine) FindState(name string) *State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.states[name]
}

// States returns a snapshot of every registered state, keyed by id.
func (sm *StateMachine) States() map[string]*State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	out := make(map[string]*State, len(sm.states))
	for k, v := range sm.states {
		out[k] = v
	}
	return out
}

// Current returns the currently active state, or nil before Start.
func (sm *StateMachine) Current() *State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.current
}

// AddObserver registers an observer to receive lifecycle callbacks.
func (sm *StateMachine) AddObserver(o StateMachineObserver) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.observers = append(sm.observers, o)
}

func (sm *StateMachine) notifyEnter(s *State) {
	for _, o := range sm.snapshotObservers() {
		o.OnStateEnter(s)
	}
}

func (sm *StateMachine) notifyExit(s *State) {
	for _, o := range sm.snapshotObservers() {
		o.OnStateExit(s)
	}
}

func (sm *StateMachine) notifyTransition(from, to *State, evt Event) {
	for _, o := range sm.snapshotObservers() {
		o.OnTransition(from, to, evt)
	}
}

func (sm *StateMachine) notifyProcessed(evt Event, result DispatchResult) {
	for _, o := range sm.snapshotObservers() {
		o.OnEventProcessed(evt, result)
	}
}

func (sm *StateMachine) notifyError(err error) {
	for _, o := range sm.snapshotObservers() {
		o.OnError(err)
	}
}

func (sm *StateMachine) snapshotObservers() []StateMachineObserver {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	out := make([]StateMachineObserver, len(sm.observers))
	copy(out, sm.observers)
	return out
}

// dispatch enqueues evt for the event loop. Called by the timer manager's
// delivery callback and by the variable server's subscription callback —
// the two producer goroutines spec.md section 9 describes. Events are never
// dropped: when the queue is full the producer blocks until the event loop
// makes room, and once Stop has been called the event is discarded.
func (sm *StateMachine) dispatch(evt Event) {
	select {
	case sm.events <- evt:
	case <-sm.stopCh:
	}
}
