package eval

import (
	"fmt"

	"github.com/vartrigger/statemachine/ast"
	"github.com/vartrigger/statemachine/varserver"
)

// evalBinary implements spec.md section 4.6's "numeric operators follow C
// promotion rules across short/int/float". && and || use each operand's
// truthiness. Otherwise a string operand only participates in equality,
// inequality and + (concatenation); any other binary op on a string
// operand is an error.
func (e *Evaluator) evalBinary(node *ast.Node) (ast.Value, error) {
	left, err := e.Eval(node.Left)
	if err != nil {
		return ast.Value{}, err
	}
	right, err := e.Eval(node.Right)
	if err != nil {
		return ast.Value{}, err
	}

	switch node.Op {
	case ast.OpAnd:
		return boolValue(left.Truthy() && right.Truthy()), nil
	case ast.OpOr:
		return boolValue(left.Truthy() || right.Truthy()), nil
	}

	if left.Kind == ast.VString || right.Kind == ast.VString {
		return evalStringBinary(node.Op, left, right, node.Line)
	}

	kind := ast.Promote(left.Kind, right.Kind)

	switch node.Op {
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv:
		return arith(node.Op, left, right, kind, node.Line)
	case ast.OpEq, ast.OpNeq, ast.OpLt, ast.OpGt, ast.OpLte, ast.OpGte:
		return boolValue(compare(node.Op, left.AsFloat(), right.AsFloat())), nil
	case ast.OpBAnd, ast.OpBOr, ast.OpXor, ast.OpLShift, ast.OpRShift:
		return bitwise(node.Op, left.AsInt(), right.AsInt())
	default:
		return ast.Value{}, fmt.Errorf("eval: line %d: unsupported binary operator", node.Line)
	}
}

func boolValue(b bool) ast.Value {
	if b {
		return ast.Int(1)
	}
	return ast.Int(0)
}

func evalStringBinary(op ast.Operator, left, right ast.Value, line int) (ast.Value, error) {
	switch op {
	case ast.OpEq:
		return boolValue(left.String() == right.String()), nil
	case ast.OpNeq:
		return boolValue(left.String() != right.String()), nil
	case ast.OpAdd:
		return ast.String(left.String() + right.String()), nil
	default:
		return ast.Value{}, fmt.Errorf("eval: line %d: operator not valid on strings", line)
	}
}

func arith(op ast.Operator, left, right ast.Value, kind ast.ValueKind, line int) (ast.Value, error) {
	if kind == ast.VFloat {
		a, b := left.AsFloat(), right.AsFloat()
		switch op {
		case ast.OpAdd:
			return ast.Float(a + b), nil
		case ast.OpSub:
			return ast.Float(a - b), nil
		case ast.OpMul:
			return ast.Float(a * b), nil
		case ast.OpDiv:
			if b == 0 {
				return ast.Value{}, fmt.Errorf("eval: line %d: division by zero", line)
			}
			return ast.Float(a / b), nil
		}
	}

	a, b := left.AsInt(), right.AsInt()
	var r int32
	switch op {
	case ast.OpAdd:
		r = a + b
	case ast.OpSub:
		r = a - b
	case ast.OpMul:
		r = a * b
	case ast.OpDiv:
		if b == 0 {
			return ast.Value{}, fmt.Errorf("eval: line %d: division by zero", line)
		}
		r = a / b
	}

	if kind == ast.VShort {
		return ast.Short(int16(r)), nil
	}
	return ast.Int(r), nil
}

func compare(op ast.Operator, a, b float64) bool {
	switch op {
	case ast.OpEq:
		return a == b
	case ast.OpNeq:
		return a != b
	case ast.OpLt:
		return a < b
	case ast.OpGt:
		return a > b
	case ast.OpLte:
		return a <= b
	case ast.OpGte:
		return a >= b
	}
	return false
}

func bitwise(op ast.Operator, a, b int32) (ast.Value, error) {
	switch op {
	case ast.OpBAnd:
		return ast.Int(a & b), nil
	case ast.OpBOr:
		return ast.Int(a | b), nil
	case ast.OpXor:
		return ast.Int(a ^ b), nil
	case ast.OpLShift:
		return ast.Int(a << uint32(b)), nil
	case ast.OpRShift:
		return ast.Int(a >> uint32(b)), nil
	}
	return ast.Value{}, fmt.Errorf("eval: unsupported bitwise operator")
}

// evalUnary implements NOT, prefix/postfix INC/DEC.
func (e *Evaluator) evalUnary(node *ast.Node) (ast.Value, error) {
	switch node.Op {
	case ast.OpNot:
		v, err := e.Eval(node.Left)
		if err != nil {
			return ast.Value{}, err
		}
		return boolValue(!v.Truthy()), nil

	case ast.OpInc, ast.OpDec:
		return e.evalIncDec(node)

	default:
		return ast.Value{}, fmt.Errorf("eval: line %d: unsupported unary operator", node.Line)
	}
}

func (e *Evaluator) evalIncDec(node *ast.Node) (ast.Value, error) {
	old, err := e.Eval(node.Left)
	if err != nil {
		return ast.Value{}, err
	}

	delta := int32(1)
	if node.Op == ast.OpDec {
		delta = -1
	}

	var updated ast.Value
	switch old.Kind {
	case ast.VFloat:
		if node.Op == ast.OpInc {
			updated = ast.Float(old.F + 1)
		} else {
			updated = ast.Float(old.F - 1)
		}
	case ast.VShort:
		updated = ast.Short(old.S16 + int16(delta))
	default:
		updated = ast.Int(old.I + delta)
	}

	if err := e.assignTo(node.Left, updated); err != nil {
		return ast.Value{}, err
	}

	if node.Postfix {
		return old, nil
	}
	return updated, nil
}

// evalAssign implements the assignment family: '=', '*=', '/=', '+=',
// '-=', '&=', '|=', '^='. The left-hand side must be a KIdent (local) or
// KSysVar (variable-server handle).
func (e *Evaluator) evalAssign(node *ast.Node) (ast.Value, error) {
	rhs, err := e.Eval(node.Right)
	if err != nil {
		return ast.Value{}, err
	}

	if node.Op != ast.OpAssign {
		cur, err := e.Eval(node.Left)
		if err != nil {
			return ast.Value{}, err
		}
		rhs, err = combine(node.Op, cur, rhs, node.Line)
		if err != nil {
			return ast.Value{}, err
		}
	}

	if err := e.assignTo(node.Left, rhs); err != nil {
		return ast.Value{}, err
	}
	return rhs, nil
}

func combine(op ast.Operator, cur, rhs ast.Value, line int) (ast.Value, error) {
	switch op {
	case ast.OpMulAssign:
		return arith(ast.OpMul, cur, rhs, ast.Promote(cur.Kind, rhs.Kind), line)
	case ast.OpDivAssign:
		return arith(ast.OpDiv, cur, rhs, ast.Promote(cur.Kind, rhs.Kind), line)
	case ast.OpAddAssign:
		if cur.Kind == ast.VString || rhs.Kind == ast.VString {
			return evalStringBinary(ast.OpAdd, cur, rhs, line)
		}
		return arith(ast.OpAdd, cur, rhs, ast.Promote(cur.Kind, rhs.Kind), line)
	case ast.OpSubAssign:
		return arith(ast.OpSub, cur, rhs, ast.Promote(cur.Kind, rhs.Kind), line)
	case ast.OpBAndAssign:
		return bitwise(ast.OpBAnd, cur.AsInt(), rhs.AsInt())
	case ast.OpBOrAssign:
		return bitwise(ast.OpBOr, cur.AsInt(), rhs.AsInt())
	case ast.OpXorAssign:
		return bitwise(ast.OpXor, cur.AsInt(), rhs.AsInt())
	default:
		return ast.Value{}, fmt.Errorf("eval: line %d: unsupported compound assignment", line)
	}
}

func (e *Evaluator) assignTo(target *ast.Node, v ast.Value) error {
	switch target.Kind {
	case ast.KIdent:
		target.Assigned = true
		return e.scope.Set(target.Name, v)
	case ast.KSysVar:
		return e.VarServer.Set(varserver.Handle(target.Handle), v)
	default:
		return fmt.Errorf("eval: line %d: invalid assignment target", target.Line)
	}
}

// evalCast implements TO_FLOAT, TO_INT, TO_SHORT, TO_STRING.
func (e *Evaluator) evalCast(node *ast.Node) (ast.Value, error) {
	v, err := e.Eval(node.Left)
	if err != nil {
		return ast.Value{}, err
	}

	switch node.Op {
	case ast.OpToFloat:
		return ast.Float(v.AsFloat()), nil
	case ast.OpToInt:
		return ast.Int(v.AsInt()), nil
	case ast.OpToShort:
		return ast.Short(int16(v.AsInt())), nil
	case ast.OpToString:
		return ast.String(v.String()), nil
	default:
		return ast.Value{}, fmt.Errorf("eval: line %d: unsupported cast", node.Line)
	}
}
