package ast_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vartrigger/statemachine/ast"
)

func TestPromote(t *testing.T) {
	t.Run("string dominates everything", func(t *testing.T) {
		assert.Equal(t, ast.VString, ast.Promote(ast.VString, ast.VFloat))
		assert.Equal(t, ast.VString, ast.Promote(ast.VInt, ast.VString))
	})

	t.Run("float dominates numeric", func(t *testing.T) {
		assert.Equal(t, ast.VFloat, ast.Promote(ast.VInt, ast.VFloat))
		assert.Equal(t, ast.VFloat, ast.Promote(ast.VShort, ast.VFloat))
	})

	t.Run("int dominates short", func(t *testing.T) {
		assert.Equal(t, ast.VInt, ast.Promote(ast.VShort, ast.VInt))
	})

	t.Run("short is the floor", func(t *testing.T) {
		assert.Equal(t, ast.VShort, ast.Promote(ast.VShort, ast.VShort))
	})
}

func TestValueTruthy(t *testing.T) {
	assert.True(t, ast.Int(1).Truthy())
	assert.False(t, ast.Int(0).Truthy())
	assert.True(t, ast.String("x").Truthy())
	assert.False(t, ast.String("").Truthy())
}

func TestValueAsIntTruncatesFloat(t *testing.T) {
	assert.Equal(t, int32(3), ast.Float(3.9).AsInt())
}
