package ast_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vartrigger/statemachine/ast"
)

func TestArenaNewAndAt(t *testing.T) {
	a := ast.NewArena()

	n1, r1 := a.New(ast.KLiteral)
	n2, r2 := a.New(ast.KIdent)

	assert.Equal(t, 2, a.Len())
	assert.Same(t, n1, a.At(r1))
	assert.Same(t, n2, a.At(r2))
	assert.NotEqual(t, r1, r2)
}

func TestArenaAtOutOfRange(t *testing.T) {
	a := ast.NewArena()
	assert.Nil(t, a.At(ast.Ref(0)))
	assert.Nil(t, a.At(ast.Ref(-1)))
}

func TestSeqAndStatements(t *testing.T) {
	a := ast.NewArena()
	s1, _ := a.New(ast.KLiteral)
	s2, _ := a.New(ast.KLiteral)
	s3, _ := a.New(ast.KLiteral)

	seq := ast.Seq(s1, s2, s3)
	got := ast.Statements(seq)

	assert.Equal(t, []*ast.Node{s1, s2, s3}, got)
}

func TestStatementsOnEmptySeq(t *testing.T) {
	assert.Nil(t, ast.Statements(nil))
	assert.Nil(t, ast.Seq())
}
