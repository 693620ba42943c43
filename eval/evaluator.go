// Package eval implements the expression-evaluator contract spec.md
// section 4.6 describes: the "action library" the core state machine
// engine treats as an external collaborator. spec.md specifies only the
// contract; this package is one conforming implementation, grounded on
// go-pflow/tokenmodel/guard/eval.go's typed-value union and
// switch-on-node-kind dispatch structure.
package eval

import (
	"errors"
	"fmt"

	"github.com/vartrigger/statemachine/ast"
	"github.com/vartrigger/statemachine/timer"
	"github.com/vartrigger/statemachine/varserver"
)

// Evaluator evaluates expression trees against a variable server, a timer
// manager, and the engine's "active timer" register (spec.md section 4.4
// sets ActiveTimer before each dispatch and clears it after).
type Evaluator struct {
	VarServer   varserver.Server
	Timers      *timer.Manager
	ActiveTimer int

	// Warn reports a per-statement error that spec.md section 7 classifies
	// as non-fatal to the enclosing block (timer creation/deletion with an
	// invalid id) — EvalBlock calls it instead of aborting. Left nil, it is
	// a no-op; the engine wires it to its observer fan-out.
	Warn func(error)

	scope *Scope
}

// NewEvaluator creates an Evaluator bound to the given collaborators.
func NewEvaluator(vs varserver.Server, timers *timer.Manager) *Evaluator {
	return &Evaluator{VarServer: vs, Timers: timers}
}

// WithScope runs fn with the evaluator's local-variable scope temporarily
// set to scope, restoring whatever scope was active before. Entry/exit
// blocks each get their own Scope built from their declaration list, per
// spec.md section 4.2; guards are evaluated without a local scope.
func (e *Evaluator) WithScope(scope *Scope, fn func() error) error {
	prev := e.scope
	e.scope = scope
	defer func() { e.scope = prev }()
	return fn()
}

// EvalBlock evaluates a compound statement (a KSeq chain) to completion.
// Per spec.md section 7, "timer creation with invalid id" is returned as
// not-found to the action statement but evaluation of the enclosing block
// continues; every other statement error aborts the block. This is what
// EnterState/ExitState call against a state's entry/exit block (spec.md
// section 4.4 steps 3a/3d).
func (e *Evaluator) EvalBlock(block *ast.Node) error {
	for _, stmt := range ast.Statements(block) {
		if _, err := e.Eval(stmt); err != nil {
			if errors.Is(err, timer.ErrNotFound) {
				if e.Warn != nil {
					e.Warn(err)
				}
				continue
			}
			return err
		}
	}
	return nil
}

// Eval evaluates a single expression node and returns its value, updating
// node.Value as a side effect the same way the original C action library
// caches the "last computed typed value" on the node itself (except for
// KShell nodes, whose Value keeps the script text).
func (e *Evaluator) Eval(node *ast.Node) (ast.Value, error) {
	if node == nil {
		return ast.Value{}, nil
	}

	var result ast.Value
	var err error

	switch node.Kind {
	case KLiteralKind:
		result = node.Value

	case ast.KIdent:
		result, err = e.evalIdent(node)

	case ast.KSysVar:
		result, err = e.VarServer.Get(varserver.Handle(node.Handle))

	case ast.KTimer:
		result = ast.Int(int32(node.TimerID))

	case ast.KActiveTimer:
		result = ast.Int(int32(e.ActiveTimer))

	case ast.KCreateTimer:
		err = e.evalCreateTimer(node, false)

	case ast.KCreateTick:
		err = e.evalCreateTimer(node, true)

	case ast.KDeleteTimer:
		if derr := e.Timers.Delete(node.TimerID); derr != nil {
			err = fmt.Errorf("eval: delete timer %d: %w", node.TimerID, derr)
		}
		result = ast.Int(0)

	case ast.KBinary:
		result, err = e.evalBinary(node)

	case ast.KUnary:
		result, err = e.evalUnary(node)

	case ast.KAssign:
		result, err = e.evalAssign(node)

	case ast.KCast:
		result, err = e.evalCast(node)

	case ast.KIf:
		result, err = e.evalIf(node)

	case ast.KShell:
		result, err = e.evalShell(node)

	case ast.KSeq:
		err = e.EvalBlock(node)

	default:
		err = fmt.Errorf("eval: unhandled node kind %v", node.Kind)
	}

	// A KShell node's Value holds its script text, so it is not overwritten.
	if err == nil && node.Kind != ast.KShell {
		node.Value = result
	}
	return result, err
}

// KLiteralKind aliases ast.KLiteral so the switch above reads naturally;
// kept as a separate name only to avoid a stutter in the switch list.
const KLiteralKind = ast.KLiteral

func (e *Evaluator) evalIdent(node *ast.Node) (ast.Value, error) {
	if e.scope == nil || !e.scope.Declared(node.Name) {
		return ast.Value{}, fmt.Errorf("eval: line %d: %q is not a declared local", node.Line, node.Name)
	}
	return e.scope.Get(node.Name)
}

func (e *Evaluator) evalCreateTimer(node *ast.Node, tick bool) error {
	ms := 0
	if node.Left != nil {
		v, err := e.Eval(node.Left)
		if err != nil {
			return err
		}
		ms = int(v.AsInt())
	}

	var err error
	if tick {
		err = e.Timers.CreateTick(node.TimerID, ms)
	} else {
		err = e.Timers.CreateOneShot(node.TimerID, ms)
	}
	if err != nil {
		return fmt.Errorf("eval: create timer %d: %w", node.TimerID, err)
	}
	return nil
}

func (e *Evaluator) evalIf(node *ast.Node) (ast.Value, error) {
	cond, err := e.Eval(node.Left)
	if err != nil {
		return ast.Value{}, err
	}
	if cond.Truthy() {
		return e.Eval(node.Then)
	}
	if node.Else != nil {
		return e.Eval(node.Else)
	}
	return ast.Int(0), nil
}
