package engine

import "github.com/vartrigger/statemachine/ast"

// State is a named vertex in the machine, per spec.md section 3. Adapted
// from the teacher's pkg/states.BaseState, stripped of the hierarchy
// fields (Parent, IsComposite, Substates...) spec.md's Non-goals exclude —
// this is a flat FSM, so a State owns only its own entry/exit blocks and
// its outgoing transitions.
type State struct {
	ID string

	EntryDecls []ast.Decl
	EntryStmts *ast.Node // KSeq chain, may be nil

	ExitDecls []ast.Decl
	ExitStmts *ast.Node

	// Transitions is ordered; definition order is the evaluation order
	// (spec.md section 3, "Owns its blocks and transition list").
	Transitions []*Transition

	// HasEntry/HasExit record whether the parser found the entry/exit
	// block in the source, distinguishing "declared empty" from "block
	// omitted entirely". The parser reports an omitted block as a syntax
	// error; the runtime does not read these fields and runs a nil block
	// as empty.
	HasEntry bool
	HasExit  bool
}

// NewState creates an empty state with the given id.
func NewState(id string) *State {
	return &State{ID: id}
}
