// Package ast defines the expression tree produced by the lang parser and
// evaluated by the eval package.
package ast

import "fmt"

// ValueKind tags the active member of a Value.
type ValueKind int

const (
	// VNone is the zero value: no result has been computed yet.
	VNone ValueKind = iota
	VInt
	VShort
	VFloat
	VString
)

func (k ValueKind) String() string {
	switch k {
	case VInt:
		return "int"
	case VShort:
		return "short"
	case VFloat:
		return "float"
	case VString:
		return "string"
	default:
		return "none"
	}
}

// Value is the typed runtime value carried by an AST node, a local
// variable slot, or a variable-server entry. Exactly one of the numeric
// fields is meaningful, selected by Kind.
type Value struct {
	Kind ValueKind
	I    int32
	S16  int16
	F    float64
	Str  string
}

// Int wraps a plain int32 as an int-kind Value.
func Int(v int32) Value { return Value{Kind: VInt, I: v} }

// Short wraps an int16 as a short-kind Value.
func Short(v int16) Value { return Value{Kind: VShort, S16: v} }

// Float wraps a float64 as a float-kind Value.
func Float(v float64) Value { return Value{Kind: VFloat, F: v} }

// String wraps a string as a string-kind Value.
func String(v string) Value { return Value{Kind: VString, Str: v} }

// AsFloat promotes the value to float64 regardless of its stored kind.
// Strings promote to 0, matching the C source's treatment of a
// non-numeric operand in an arithmetic context.
func (v Value) AsFloat() float64 {
	switch v.Kind {
	case VInt:
		return float64(v.I)
	case VShort:
		return float64(v.S16)
	case VFloat:
		return v.F
	default:
		return 0
	}
}

// AsInt promotes the value to int32. Floats truncate toward zero.
func (v Value) AsInt() int32 {
	switch v.Kind {
	case VInt:
		return v.I
	case VShort:
		return int32(v.S16)
	case VFloat:
		return int32(v.F)
	default:
		return 0
	}
}

// Truthy is the boolean sense spec.md uses for guard evaluation: nonzero
// numeric result, or non-empty string.
func (v Value) Truthy() bool {
	switch v.Kind {
	case VString:
		return v.Str != ""
	default:
		return v.AsFloat() != 0
	}
}

// Promote returns the wider of two numeric kinds, following C promotion
// rules: short -> int -> float. Strings never promote; mixing a string
// with a numeric operand keeps the string's kind so callers can reject it.
func Promote(a, b ValueKind) ValueKind {
	if a == VString || b == VString {
		return VString
	}
	if a == VFloat || b == VFloat {
		return VFloat
	}
	if a == VInt || b == VInt {
		return VInt
	}
	return VShort
}

func (v Value) String() string {
	switch v.Kind {
	case VInt:
		return fmt.Sprintf("%d", v.I)
	case VShort:
		return fmt.Sprintf("%d", v.S16)
	case VFloat:
		return fmt.Sprintf("%g", v.F)
	case VString:
		return v.Str
	default:
		return "<none>"
	}
}
