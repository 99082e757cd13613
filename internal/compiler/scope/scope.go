package scope

import (
	"fmt"
	"strings"

	"github.com/btouchard/lemon/internal/compiler/registry"
)

// Stack holds the variables visible at the current point of a template.
// Bindings are pushed in groups; Pop removes exactly the most recent group.
type Stack struct {
	reg    *registry.Registry
	vars   []registry.Field
	frames []int // number of bindings pushed by each open group
}

func New(reg *registry.Registry) *Stack {
	return &Stack{reg: reg}
}

// Declare adds bindings outside of any group. They stay visible until the
// stack is discarded.
func (s *Stack) Declare(fields ...registry.Field) {
	if len(s.frames) > 0 {
		panic("scope: Declare inside an open group")
	}
	s.vars = append(s.vars, fields...)
}

// Push opens a group of bindings.
func (s *Stack) Push(fields ...registry.Field) {
	s.vars = append(s.vars, fields...)
	s.frames = append(s.frames, len(fields))
}

// Pop closes the most recent group and reports how many bindings it removed.
func (s *Stack) Pop() (int, error) {
	if len(s.frames) == 0 {
		return 0, fmt.Errorf("scope: pop without an open group")
	}
	n := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	s.vars = s.vars[:len(s.vars)-n]
	return n, nil
}

// Depth is the number of open groups.
func (s *Stack) Depth() int {
	return len(s.frames)
}

func (s *Stack) Len() int {
	return len(s.vars)
}

// Lookup finds the innermost binding of name.
func (s *Stack) Lookup(name string) (registry.Field, bool) {
	for i := len(s.vars) - 1; i >= 0; i-- {
		if s.vars[i].Name == name {
			return s.vars[i], true
		}
	}
	return registry.Field{}, false
}

// Resolve types a dotted variable path. Every segment but the last must be
// class typed, and every segment after the first must be a public field of
// the previous segment's class.
func (s *Stack) Resolve(path []string) (*registry.Type, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("empty variable path")
	}
	v, ok := s.Lookup(path[0])
	if !ok {
		return nil, fmt.Errorf("unknown variable %s", path[0])
	}

	typ := v.Type
	for i, seg := range path[1:] {
		prefix := strings.Join(path[:i+1], ".")
		if typ.Kind != registry.Class {
			return nil, fmt.Errorf("%s is %s, not a class, and has no field %s", prefix, typ, seg)
		}
		class, ok := s.reg.Get(typ.QualifiedName())
		if !ok {
			return nil, fmt.Errorf("unknown class %s", typ.QualifiedName())
		}
		f, ok := class.Field(seg)
		if !ok {
			return nil, fmt.Errorf("class %s has no field %s", class.QualifiedName(), seg)
		}
		if f.Access != registry.Public {
			return nil, fmt.Errorf("field %s of class %s is %s", seg, class.QualifiedName(), f.Access)
		}
		typ = f.Type
	}
	return typ, nil
}
