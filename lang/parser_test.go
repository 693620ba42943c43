package lang_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vartrigger/statemachine/ast"
	"github.com/vartrigger/statemachine/lang"
	"github.com/vartrigger/statemachine/varserver"
)

const minimalDef = `
statemachine {
  name: "test"
  description: "minimal"
  state init {
    entry { }
    transition { }
    exit { }
  }
}
`

func TestParseMinimalProgram(t *testing.T) {
	vs := varserver.NewMemoryServer()
	sm, err := lang.Parse(minimalDef, vs)
	require.NoError(t, err)
	require.NotNil(t, sm)
	assert.Equal(t, "test", sm.Name)
	assert.NotNil(t, sm.FindState("init"))
}

func TestParseMissingInitStateStillParses(t *testing.T) {
	vs := varserver.NewMemoryServer()
	def := `
statemachine {
  name: "x"
  description: "y"
  state other {
    entry { }
    transition { }
    exit { }
  }
}
`
	sm, err := lang.Parse(def, vs)
	require.NoError(t, err)
	assert.Nil(t, sm.FindState("init"))
}

func TestParseTransitionSubscribesGuardVariable(t *testing.T) {
	vs := varserver.NewMemoryServer()
	vs.Declare("/sys/test/a", ast.Int(0))

	def := `
statemachine {
  name: "x"
  description: "y"
  state init {
    entry { }
    transition {
      on : /sys/test/a == 1;
    }
    exit { }
  }
  state on {
    entry { }
    transition { }
    exit { }
  }
}
`
	sm, err := lang.Parse(def, vs)
	require.NoError(t, err)

	state := sm.FindState("init")
	require.Len(t, state.Transitions, 1)
	assert.Equal(t, "on", state.Transitions[0].TargetStateName)

	// The test registers no subscription of its own: the change can only
	// reach the machine through the one the parser registered.
	require.NoError(t, sm.Start())
	defer sm.Stop()
	h, err := vs.FindByName("/sys/test/a")
	require.NoError(t, err)
	require.NoError(t, vs.Set(h, ast.Int(1)))
	require.Eventually(t, func() bool { return sm.Current().ID == "on" }, time.Second, 5*time.Millisecond,
		"a modification subscription registered at parse time must deliver the change to the machine")
}

func TestParseTimerGuardRewrite(t *testing.T) {
	vs := varserver.NewMemoryServer()
	def := `
statemachine {
  name: "x"
  description: "y"
  state init {
    entry { }
    transition {
      on : timer 3;
    }
    exit { }
  }
  state on {
    entry { }
    transition { }
    exit { }
  }
}
`
	sm, err := lang.Parse(def, vs)
	require.NoError(t, err)

	guard := sm.FindState("init").Transitions[0].Guard
	require.Equal(t, ast.KBinary, guard.Kind)
	require.Equal(t, ast.OpEq, guard.Op)
	assert.Equal(t, ast.KTimer, guard.Left.Kind)
	assert.Equal(t, 3, guard.Left.TimerID)
	assert.Equal(t, ast.KActiveTimer, guard.Right.Kind)
}

func TestParseCreateAndDeleteTimerStatements(t *testing.T) {
	vs := varserver.NewMemoryServer()
	def := `
statemachine {
  name: "x"
  description: "y"
  state init {
    entry {
      create timer 1 1000;
      delete timer 1;
    }
    transition { }
    exit { }
  }
}
`
	sm, err := lang.Parse(def, vs)
	require.NoError(t, err)

	stmts := ast.Statements(sm.FindState("init").EntryStmts)
	require.Len(t, stmts, 2)
	assert.Equal(t, ast.KCreateTimer, stmts[0].Kind)
	assert.Equal(t, 1, stmts[0].TimerID)
	assert.Equal(t, ast.KDeleteTimer, stmts[1].Kind)
}

func TestParseCreateTickUsesKCreateTick(t *testing.T) {
	vs := varserver.NewMemoryServer()
	def := `
statemachine {
  name: "x"
  description: "y"
  state init {
    entry {
      create tick 2 500;
    }
    transition { }
    exit { }
  }
}
`
	sm, err := lang.Parse(def, vs)
	require.NoError(t, err)

	stmts := ast.Statements(sm.FindState("init").EntryStmts)
	require.Len(t, stmts, 1)
	assert.Equal(t, ast.KCreateTick, stmts[0].Kind)
}

func TestParseDeclarationsAndCast(t *testing.T) {
	vs := varserver.NewMemoryServer()
	def := `
statemachine {
  name: "x"
  description: "y"
  state init {
    entry {
      int count;
      count = (int) 3.9;
    }
    transition { }
    exit { }
  }
}
`
	sm, err := lang.Parse(def, vs)
	require.NoError(t, err)

	assert.Len(t, sm.FindState("init").EntryDecls, 1)
	stmts := ast.Statements(sm.FindState("init").EntryStmts)
	require.Len(t, stmts, 1)
	assert.Equal(t, ast.KAssign, stmts[0].Kind)
	assert.Equal(t, ast.KCast, stmts[0].Right.Kind)
	assert.Equal(t, ast.OpToInt, stmts[0].Right.Op)
}

func TestParseOperatorPrecedence(t *testing.T) {
	vs := varserver.NewMemoryServer()
	def := `
statemachine {
  name: "x"
  description: "y"
  state init {
    entry { }
    transition {
      on : 1 + 2 * 3 == 7;
    }
    exit { }
  }
  state on {
    entry { }
    transition { }
    exit { }
  }
}
`
	sm, err := lang.Parse(def, vs)
	require.NoError(t, err)

	guard := sm.FindState("init").Transitions[0].Guard
	require.Equal(t, ast.OpEq, guard.Op)
	// left side of == must be (1 + (2*3)), not ((1+2)*3)
	add := guard.Left
	require.Equal(t, ast.OpAdd, add.Op)
	assert.Equal(t, ast.OpMul, add.Right.Op)
}

func TestParseUseBeforeAssignIsNonFatal(t *testing.T) {
	vs := varserver.NewMemoryServer()
	def := `
statemachine {
  name: "x"
  description: "y"
  state init {
    entry {
      int count;
      count = count + 1;
    }
    transition { }
    exit { }
  }
}
`
	sm, err := lang.Parse(def, vs)
	// use-before-assign is recorded but must not flip errorFlag / block the
	// resulting machine from being usable.
	assert.NoError(t, err)
	require.NotNil(t, sm)
}
