package engine

import (
	"fmt"

	"github.com/vartrigger/statemachine/eval"
	"github.com/vartrigger/statemachine/guard"
	"github.com/vartrigger/statemachine/varserver"
)

// initStateID is the single required entry point spec.md section 3's
// invariant names: "There shall exist exactly one state named init."
const initStateID = "init"

// Start resolves the init state, enters it, and launches the single
// consumer goroutine that drains events for the lifetime of the machine.
// Adapted from the teacher's pkg/core/statemachine.go Start, trimmed to
// the flat dispatch loop original_source/src/engine.c's main() runs.
//
// Variable-modification subscriptions are not established here: spec.md
// section 4.2 makes that a parse-time side effect ("every time a
// transition is completed, the parser walks the guard tree... requests a
// modification subscription"), so the lang parser calls SubscribeVariable
// directly as it reduces each transition, once per SYSVAR node — by
// design not deduplicated across nodes sharing a handle, per DESIGN.md's
// resolution of the subscription-idempotency open question.
func (sm *StateMachine) Start() error {
	init := sm.FindState(initStateID)
	if init == nil {
		sm.notifyError(ErrNoInitState)
		return ErrNoInitState
	}

	if err := sm.VarServer.Open(); err != nil {
		return fmt.Errorf("statemachine: open variable server: %w", err)
	}

	sm.EnterState(init)

	sm.wg.Add(1)
	go sm.processEvents()
	return nil
}

// SubscribeVariable registers a modification subscription for the given
// variable-server handle, fanning delivery onto this machine's event
// channel as a KindVariable event. Called by the lang parser once per
// SYSVAR node encountered in a guard tree (spec.md section 4.2).
func (sm *StateMachine) SubscribeVariable(handle int) error {
	h := varserver.Handle(handle)
	err := sm.VarServer.SubscribeModifications(h, func(h varserver.Handle) {
		sm.dispatch(NewEvent(KindVariable, int(h)))
	})
	if err != nil {
		return &MachineError{Code: ErrCodeSubscriptionFailed, Message: fmt.Sprintf("subscribe handle %d: %v", handle, err)}
	}
	return nil
}

// Stop halts the event loop and releases the timer manager and variable
// server. Safe to call multiple times.
func (sm *StateMachine) Stop() {
	sm.stopOnce.Do(func() {
		close(sm.stopCh)
	})
	sm.wg.Wait()
	sm.Timers.StopAll()
	_ = sm.VarServer.Close()
}

// processEvents is the single consumer goroutine spec.md section 9
// requires: it drains sm.events one at a time, fully finishing HandleEvent
// for one before dequeuing the next, so two signals never interleave.
func (sm *StateMachine) processEvents() {
	defer sm.wg.Done()
	for {
		select {
		case evt := <-sm.events:
			result := sm.HandleEvent(evt)
			sm.notifyProcessed(evt, result)
		case <-sm.stopCh:
			return
		}
	}
}

// HandleEvent runs the dispatch algorithm spec.md section 4.4 specifies in
// pseudocode: set the active-timer register, walk the current state's
// transitions in declaration order, fire the first whose guard both
// references the event and evaluates true, then clear the register.
// Adapted from original_source/src/engine.c's handle().
func (sm *StateMachine) HandleEvent(evt Event) DispatchResult {
	current := sm.Current()
	if current == nil {
		return ResultInvalid
	}

	if evt.Kind == KindTimer {
		sm.Eval.ActiveTimer = evt.ID
	}
	defer func() { sm.Eval.ActiveTimer = 0 }()

	kind := guard.KindVariable
	if evt.Kind == KindTimer {
		kind = guard.KindTimer
	}

	referenced := false
	for _, t := range current.Transitions {
		if !guard.References(t.Guard, kind, evt.ID) {
			continue
		}
		referenced = true

		fire, err := sm.Eval.Eval(t.Guard)
		if err != nil {
			sm.notifyError(fmt.Errorf("statemachine: guard on %s: %w", current.ID, err))
			return ResultInvalid
		}
		if !fire.Truthy() {
			continue
		}

		target := sm.FindState(t.TargetStateName)
		if target == nil {
			sm.notifyError(NewTargetNotFoundError(t.TargetStateName))
			return ResultTargetMissing
		}

		sm.ExitState(current)
		sm.EnterState(target)
		sm.notifyTransition(current, target, evt)
		return ResultOK
	}

	if !referenced {
		return ResultEventNotInGuard
	}
	return ResultGuardFalse
}

// EnterState makes s the current state and runs its entry block, per
// spec.md section 4.4 step 3a-3c. A nil entry block is treated as empty;
// this method does not read HasEntry and logs nothing for an omitted
// block (the parser reports that case as a syntax error).
func (sm *StateMachine) EnterState(s *State) {
	sm.mu.Lock()
	sm.current = s
	sm.mu.Unlock()

	if s.EntryStmts != nil {
		scope := eval.NewScope(s.EntryDecls)
		err := sm.Eval.WithScope(scope, func() error {
			return sm.Eval.EvalBlock(s.EntryStmts)
		})
		if err != nil {
			sm.notifyError(fmt.Errorf("statemachine: entry block of %s: %w", s.ID, err))
		}
	}

	sm.notifyEnter(s)
}

// ExitState runs s's exit block before the machine leaves it, per spec.md
// section 4.4 step 3d. Self-transitions (a state targeting itself) still
// run exit-then-entry in that order, per spec.md section 3's invariant.
func (sm *StateMachine) ExitState(s *State) {
	if s.ExitStmts != nil {
		scope := eval.NewScope(s.ExitDecls)
		err := sm.Eval.WithScope(scope, func() error {
			return sm.Eval.EvalBlock(s.ExitStmts)
		})
		if err != nil {
			sm.notifyError(fmt.Errorf("statemachine: exit block of %s: %w", s.ID, err))
		}
	}

	sm.notifyExit(s)
}
