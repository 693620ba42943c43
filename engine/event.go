package engine

import "github.com/google/uuid"

// EventKind distinguishes the two signal sources spec.md section 3
// defines: a timer expiration or a variable modification notification.
type EventKind int

const (
	KindTimer EventKind = iota
	KindVariable
)

func (k EventKind) String() string {
	if k == KindTimer {
		return "timer"
	}
	return "variable"
}

// Event is the pair (kind, id) the runtime dispatches, per spec.md's
// glossary entry for "Event". Adapted from the teacher's pkg/core.Event
// (name/id/timestamp/ID), trimmed to the two fields spec.md's data model
// actually needs; CorrelationID is stamped the same way the teacher stamps
// Event.ID in pkg/core/core.NewEvent, so the transition and processed lines
// LoggingObserver logs for the same signal can be tied back together — the
// dispatch algorithm itself never branches on it.
type Event struct {
	Kind          EventKind
	ID            int // timer slot id, or variable-server handle
	CorrelationID string
}

// NewEvent creates an Event with a fresh correlation id.
func NewEvent(kind EventKind, id int) Event {
	return Event{Kind: kind, ID: id, CorrelationID: uuid.New().String()}
}
