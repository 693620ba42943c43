// Package guard implements the soundness check spec.md section 4.5
// describes: before a guard expression is evaluated, decide whether the
// event that triggered dispatch is even referenced anywhere in its tree,
// so that a state with guards on unrelated variables does not fire on
// every unrelated notification.
//
// Grounded on original_source/src/engine.c's CheckInConditions, pulled out
// into its own package (per spec.md section 9) so it can be unit-tested
// against synthetic trees independent of the runtime loop.
package guard

import "github.com/vartrigger/statemachine/ast"

// EventKind distinguishes the two signal sources spec.md section 3
// defines. Declared here rather than imported from engine to keep this
// package free of a dependency on the runtime it is tested independently
// of; engine.EventKind values convert to this type at the call site.
type EventKind int

const (
	KindTimer EventKind = iota
	KindVariable
)

// References reports whether the event (kind, id) is referenced anywhere
// in node's tree: a KTimer leaf whose TimerID equals id under KindTimer,
// or a KSysVar leaf whose Handle equals id under KindVariable, or any child
// (Left, Right, and the KIf branches Then and Else) references it. This is
// the OR spec.md section 4.5 specifies, extended to the If branches.
func References(node *ast.Node, kind EventKind, id int) bool {
	if node == nil {
		return false
	}

	switch {
	case kind == KindTimer && node.Kind == ast.KTimer && node.TimerID == id:
		return true
	case kind == KindVariable && node.Kind == ast.KSysVar && node.Handle == id:
		return true
	}

	if References(node.Left, kind, id) {
		return true
	}
	if References(node.Right, kind, id) {
		return true
	}
	if References(node.Then, kind, id) {
		return true
	}
	if References(node.Else, kind, id) {
		return true
	}

	return false
}
