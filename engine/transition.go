package engine

import "github.com/vartrigger/statemachine/ast"

// Transition is an ordered (target-name, guard) pair belonging to a state,
// per spec.md section 3. Adapted from the teacher's pkg/core.Transition
// (From/To/Event/Guard/Action), with From dropped (spec.md: "No
// back-reference to the containing state"), To resolved lazily by name
// rather than eagerly by pointer (spec.md section 9: "Lookup-by-name at
// transition time is cheap and sidesteps resolution-before-fully-parsed
// issues"), and Guard/Action replaced by *ast.Node trees since guards here
// are DSL expressions, not Go closures.
type Transition struct {
	// TargetStateName is resolved against the owning StateMachine's
	// States map at the moment the transition fires, not at parse time.
	TargetStateName string

	// Guard is the expression-tree root. Evaluated in a boolean sense: a
	// nonzero/non-empty result means the transition fires.
	Guard *ast.Node

	// Line is the source line the transition was declared on, used in
	// diagnostics when TargetStateName fails to resolve.
	Line int
}

// NewTransition creates a transition targeting the named state, guarded
// by the given expression tree.
func NewTransition(target string, guard *ast.Node) *Transition {
	return &Transition{TargetStateName: target, Guard: guard}
}
