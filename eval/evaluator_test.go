package eval_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vartrigger/statemachine/ast"
	"github.com/vartrigger/statemachine/eval"
	"github.com/vartrigger/statemachine/timer"
	"github.com/vartrigger/statemachine/varserver"
)

func newEvaluator() (*eval.Evaluator, *varserver.MemoryServer) {
	vs := varserver.NewMemoryServer()
	tm := timer.NewManager(func(int) {})
	return eval.NewEvaluator(vs, tm), vs
}

func lit(v ast.Value) *ast.Node { return &ast.Node{Kind: ast.KLiteral, Value: v} }

func TestEvalArithmeticPromotesToFloat(t *testing.T) {
	e, _ := newEvaluator()
	node := &ast.Node{Kind: ast.KBinary, Op: ast.OpAdd, Left: lit(ast.Int(1)), Right: lit(ast.Float(0.5))}

	v, err := e.Eval(node)
	require.NoError(t, err)
	assert.Equal(t, ast.VFloat, v.Kind)
	assert.Equal(t, 1.5, v.F)
}

func TestEvalDivisionByZeroErrors(t *testing.T) {
	e, _ := newEvaluator()
	node := &ast.Node{Kind: ast.KBinary, Op: ast.OpDiv, Left: lit(ast.Int(1)), Right: lit(ast.Int(0))}

	_, err := e.Eval(node)
	assert.Error(t, err)
}

func TestEvalStringOnlySupportsEqNeqAdd(t *testing.T) {
	e, _ := newEvaluator()

	add := &ast.Node{Kind: ast.KBinary, Op: ast.OpAdd, Left: lit(ast.String("a")), Right: lit(ast.String("b"))}
	v, err := e.Eval(add)
	require.NoError(t, err)
	assert.Equal(t, "ab", v.Str)

	sub := &ast.Node{Kind: ast.KBinary, Op: ast.OpSub, Left: lit(ast.String("a")), Right: lit(ast.String("b"))}
	_, err = e.Eval(sub)
	assert.Error(t, err)
}

func TestEvalAssignToLocalScope(t *testing.T) {
	e, _ := newEvaluator()
	scope := eval.NewScope([]ast.Decl{{Name: "x", Kind: ast.VInt}})

	assignNode := &ast.Node{
		Kind: ast.KAssign, Op: ast.OpAssign,
		Left:  &ast.Node{Kind: ast.KIdent, Name: "x"},
		Right: lit(ast.Int(5)),
	}

	err := e.WithScope(scope, func() error {
		_, err := e.Eval(assignNode)
		return err
	})
	require.NoError(t, err)
	assert.True(t, scope.Assigned("x"))

	v, err := scope.Get("x")
	require.NoError(t, err)
	assert.Equal(t, ast.Int(5), v)
}

func TestEvalAssignToSysVarWritesThroughVarServer(t *testing.T) {
	e, vs := newEvaluator()
	h := vs.Declare("/sys/test/a", ast.Int(0))

	assignNode := &ast.Node{
		Kind: ast.KAssign, Op: ast.OpAssign,
		Left:  &ast.Node{Kind: ast.KSysVar, Handle: int(h)},
		Right: lit(ast.Int(1)),
	}

	_, err := e.Eval(assignNode)
	require.NoError(t, err)

	v, err := vs.Get(h)
	require.NoError(t, err)
	assert.Equal(t, ast.Int(1), v)
}

func TestEvalActiveTimerReadsRegister(t *testing.T) {
	e, _ := newEvaluator()
	e.ActiveTimer = 7

	v, err := e.Eval(&ast.Node{Kind: ast.KActiveTimer})
	require.NoError(t, err)
	assert.Equal(t, ast.Int(7), v)
}

func TestEvalIfElse(t *testing.T) {
	e, _ := newEvaluator()

	node := &ast.Node{
		Kind: ast.KIf,
		Left: lit(ast.Int(0)),
		Then: lit(ast.Int(1)),
		Else: lit(ast.Int(2)),
	}
	v, err := e.Eval(node)
	require.NoError(t, err)
	assert.Equal(t, ast.Int(2), v)
}

func TestEvalCreateAndDeleteTimer(t *testing.T) {
	e, _ := newEvaluator()
	defer e.Timers.StopAll()

	create := &ast.Node{Kind: ast.KCreateTimer, TimerID: 1, Left: lit(ast.Int(1000))}
	_, err := e.Eval(create)
	require.NoError(t, err)

	del := &ast.Node{Kind: ast.KDeleteTimer, TimerID: 1}
	_, err = e.Eval(del)
	require.NoError(t, err)
}

func TestEvalBlockContinuesPastInvalidTimerID(t *testing.T) {
	e, _ := newEvaluator()
	defer e.Timers.StopAll()

	var warned error
	e.Warn = func(err error) { warned = err }

	scope := eval.NewScope([]ast.Decl{{Name: "x", Kind: ast.VInt}})
	badCreate := &ast.Node{Kind: ast.KCreateTimer, TimerID: 999, Left: lit(ast.Int(1000))}
	assign := &ast.Node{
		Kind: ast.KAssign, Op: ast.OpAssign,
		Left:  &ast.Node{Kind: ast.KIdent, Name: "x"},
		Right: lit(ast.Int(5)),
	}
	block := ast.Seq(badCreate, assign)

	err := e.WithScope(scope, func() error {
		return e.EvalBlock(block)
	})
	require.NoError(t, err, "an invalid timer id must not abort the rest of the block")
	require.Error(t, warned)

	v, err := scope.Get("x")
	require.NoError(t, err)
	assert.Equal(t, ast.Int(5), v, "the statement after the invalid-timer-id statement must still run")
}

func TestEvalIncDecPrePostfix(t *testing.T) {
	e, _ := newEvaluator()
	scope := eval.NewScope([]ast.Decl{{Name: "x", Kind: ast.VInt}})
	require.NoError(t, scope.Set("x", ast.Int(5)))

	target := &ast.Node{Kind: ast.KIdent, Name: "x"}
	postInc := &ast.Node{Kind: ast.KUnary, Op: ast.OpInc, Left: target, Postfix: true}

	err := e.WithScope(scope, func() error {
		v, err := e.Eval(postInc)
		if err != nil {
			return err
		}
		assert.Equal(t, ast.Int(5), v, "postfix increment returns the old value")
		return nil
	})
	require.NoError(t, err)

	v, _ := scope.Get("x")
	assert.Equal(t, ast.Int(6), v)

	preDec := &ast.Node{Kind: ast.KUnary, Op: ast.OpDec, Left: target}
	err = e.WithScope(scope, func() error {
		v, err := e.Eval(preDec)
		if err != nil {
			return err
		}
		assert.Equal(t, ast.Int(5), v, "prefix decrement returns the new value")
		return nil
	})
	require.NoError(t, err)

	v, _ = scope.Get("x")
	assert.Equal(t, ast.Int(5), v)
}

func TestEvalCastToShortTruncates(t *testing.T) {
	e, _ := newEvaluator()
	node := &ast.Node{Kind: ast.KCast, Op: ast.OpToShort, Left: lit(ast.Int(70000))}

	v, err := e.Eval(node)
	require.NoError(t, err)
	assert.Equal(t, ast.VShort, v.Kind)
	assert.Equal(t, int16(4464), v.S16, "70000 wraps to 70000-65536 in 16 bits")
}
