// Package varserver defines the contract the state machine engine uses to
// reach the external variable server described in spec.md section 4.7, and
// ships an in-memory reference implementation satisfying that contract so
// the rest of this module is runnable and testable without a real
// out-of-process registry.
package varserver

import (
	"errors"

	"github.com/vartrigger/statemachine/ast"
)

// ErrNotFound is returned by FindByName when no variable exists at the
// given path, and by Get/Set/SubscribeModifications for an invalid Handle.
var ErrNotFound = errors.New("varserver: not found")

// Handle identifies a variable once it has been resolved by name. Handle 0
// is never issued by a conforming Server and is used by callers as an
// "invalid handle" sentinel, mirroring spec.md section 3's reserved id 0
// for "no active timer".
type Handle int

// InvalidHandle is the sentinel returned by FindByName on failure.
const InvalidHandle Handle = 0

// Server is the contract spec.md section 4.7 requires of the variable
// server adapter: open/close a connection, resolve a path to a handle,
// get/set its typed value, and subscribe to modification notifications.
//
// The engine never assumes anything about transport; implementations may
// be in-process (see memory.go) or a thin client for an out-of-process
// registry.
type Server interface {
	Open() error
	Close() error

	// FindByName resolves a variable-server path (e.g. "/sys/alarm/armed")
	// to a stable Handle. Returns ErrNotFound if no such variable exists.
	FindByName(path string) (Handle, error)

	Get(h Handle) (ast.Value, error)
	Set(h Handle, v ast.Value) error

	// SubscribeModifications registers deliver to be invoked, with h as
	// its argument, every time the variable at h is modified by any
	// writer. A conforming Server delivers exactly one call per
	// modification; it does not coalesce or deduplicate subscriptions
	// registered by different callers for the same handle.
	SubscribeModifications(h Handle, deliver func(h Handle)) error
}
