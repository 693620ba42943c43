// Package debug renders a compiled state machine to Graphviz DOT, used by
// the -d flag of cmd/statemachine for inspecting a definition's graph
// without running it.
//
// Grounded on the teacher's visualization/dot.go DOTGenerator (header,
// per-state node loop, per-transition edge loop, style-via-options
// struct), trimmed to the flat-FSM node/edge set this engine has —
// composite/parallel/pseudostate styling dropped since spec.md's
// Non-goals exclude hierarchical states entirely.
package debug

import (
	"fmt"
	"strings"

	"github.com/vartrigger/statemachine/ast"
	"github.com/vartrigger/statemachine/engine"
)

// Options configures DOT generation, mirroring the subset of the
// teacher's DOTOptions that still applies to a flat machine.
type Options struct {
	RankDirection string // "TB", "LR", "BT", "RL"
	ShowGuards    bool
}

// DefaultOptions returns sensible defaults for DOT generation.
func DefaultOptions() Options {
	return Options{RankDirection: "LR", ShowGuards: true}
}

// Generate renders sm as a DOT digraph.
func Generate(sm *engine.StateMachine, opts Options) string {
	var b strings.Builder

	b.WriteString("digraph StateMachine {\n")
	fmt.Fprintf(&b, "  rankdir=%s;\n", opts.RankDirection)
	b.WriteString("  node [shape=box style=filled fillcolor=lightblue];\n")
	b.WriteString("  edge [fontsize=10];\n\n")

	states := sm.States()

	b.WriteString("  // states\n")
	for id, s := range states {
		fillColor := "lightblue"
		label := id
		if id == "init" {
			fillColor = "lightgreen"
			label += "\\n(init)"
		}
		label += fmt.Sprintf("\\nentry:%d exit:%d", len(ast.Statements(s.EntryStmts)), len(ast.Statements(s.ExitStmts)))
		fmt.Fprintf(&b, "  %q [fillcolor=%s label=%q];\n", id, fillColor, label)
	}

	b.WriteString("\n  // transitions\n")
	for id, s := range states {
		for _, t := range s.Transitions {
			label := ""
			if opts.ShowGuards {
				label = describeGuard(t)
			}
			fmt.Fprintf(&b, "  %q -> %q [label=%q];\n", id, t.TargetStateName, label)
		}
	}

	b.WriteString("}\n")
	return b.String()
}

// describeGuard gives a short human-readable label for a transition's
// guard tree without needing a full expression printer: just the line
// number, which is the only cheap invariant to surface here.
func describeGuard(t *engine.Transition) string {
	if t.Guard == nil {
		return ""
	}
	return fmt.Sprintf("line %d", t.Line)
}
