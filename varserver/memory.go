package varserver

import (
	"sync"

	"github.com/vartrigger/statemachine/ast"
)

// MemoryServer is an in-process reference implementation of Server. It is
// not the out-of-scope external variable server spec.md describes — it is
// a stand-in that satisfies the same contract, used by cmd/statemachine
// when no external registry is configured and by every test in this
// module that needs a working Server.
//
// Grounded on the teacher's pkg/core.Context: a mutex-guarded map keyed by
// name, with the same "resolve a name once, then operate on the handle"
// shape, applied here to variable-modification subscriptions instead of
// arbitrary context data.
type MemoryServer struct {
	mu     sync.RWMutex
	open   bool
	byPath map[string]Handle
	values map[Handle]ast.Value
	subs   map[Handle][]func(Handle)
}

// NewMemoryServer creates an empty in-memory variable server. Variables
// must be declared with Declare before they can be found by FindByName.
func NewMemoryServer() *MemoryServer {
	return &MemoryServer{
		byPath: make(map[string]Handle),
		values: make(map[Handle]ast.Value),
		subs:   make(map[Handle][]func(Handle)),
	}
}

// Declare creates (or resets) a named variable with an initial value and
// returns its Handle. Handles are minted as a small dense integer — a
// deliberate departure from the teacher's pkg/core.NewEvent, which mints a
// fresh UUID per id; guard/ast code compares Handle values as plain ints on
// every dispatch, so a UUID-derived handle would need hashing back down to
// an int at each comparison for no behavioral benefit.
func (m *MemoryServer) Declare(path string, initial ast.Value) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h, ok := m.byPath[path]; ok {
		m.values[h] = initial
		return h
	}

	h := Handle(len(m.byPath) + 1)
	m.byPath[path] = h
	m.values[h] = initial
	return h
}

func (m *MemoryServer) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = true
	return nil
}

func (m *MemoryServer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = false
	return nil
}

func (m *MemoryServer) FindByName(path string) (Handle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.byPath[path]
	if !ok {
		return InvalidHandle, ErrNotFound
	}
	return h, nil
}

func (m *MemoryServer) Get(h Handle) (ast.Value, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[h]
	if !ok {
		return ast.Value{}, ErrNotFound
	}
	return v, nil
}

// Set stores the value and fans it out to every subscriber of h, the same
// way the teacher's StateMachine.notifyTransition fans a lifecycle event
// out to every registered observer.
func (m *MemoryServer) Set(h Handle, v ast.Value) error {
	m.mu.Lock()
	if _, ok := m.values[h]; !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	m.values[h] = v
	subs := append([]func(Handle){}, m.subs[h]...)
	m.mu.Unlock()

	for _, deliver := range subs {
		deliver(h)
	}
	return nil
}

func (m *MemoryServer) SubscribeModifications(h Handle, deliver func(h Handle)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.values[h]; !ok {
		return ErrNotFound
	}
	m.subs[h] = append(m.subs[h], deliver)
	return nil
}
