package eval

import (
	"fmt"

	"github.com/vartrigger/statemachine/ast"
)

// Scope holds the local variable declaration table for one entry or exit
// block, per spec.md section 4.2. Grounded on the teacher's
// pkg/core/core.Context.Data map (name -> value, Get/Set with a presence
// flag), narrowed from `any` to ast.Value and extended with the
// use-before-assign bit spec.md section 4.2 requires.
type Scope struct {
	decls map[string]*slot
}

type slot struct {
	kind     ast.ValueKind
	value    ast.Value
	assigned bool
	line     int
}

// NewScope builds a Scope from the declaration list at the top of an
// entry/exit block.
func NewScope(decls []ast.Decl) *Scope {
	s := &Scope{decls: make(map[string]*slot, len(decls))}
	for _, d := range decls {
		s.decls[d.Name] = &slot{kind: d.Kind, line: d.Line}
	}
	return s
}

// Declared reports whether name was declared as a local in this scope.
func (s *Scope) Declared(name string) bool {
	_, ok := s.decls[name]
	return ok
}

// Assigned reports whether a declared local has been written at least
// once at run time. The parser's static use-before-assign diagnostic
// keeps its own table and does not call this.
func (s *Scope) Assigned(name string) bool {
	sl, ok := s.decls[name]
	return ok && sl.assigned
}

// Get reads a local's current value. Returns an error if name was never
// declared in this scope.
func (s *Scope) Get(name string) (ast.Value, error) {
	sl, ok := s.decls[name]
	if !ok {
		return ast.Value{}, fmt.Errorf("eval: undeclared local %q", name)
	}
	return sl.value, nil
}

// Set writes a local's value and marks it assigned.
func (s *Scope) Set(name string, v ast.Value) error {
	sl, ok := s.decls[name]
	if !ok {
		return fmt.Errorf("eval: undeclared local %q", name)
	}
	sl.value = v
	sl.assigned = true
	return nil
}
