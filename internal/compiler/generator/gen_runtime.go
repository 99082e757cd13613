package generator

import (
	"fmt"

	"github.com/btouchard/lemon/internal/compiler/registry"
)

// Runtime names the helper library generated code links against.
type Runtime struct {
	Namespace string // e.g. "lemon"
	Header    string // e.g. "lemon.hpp"
}

func DefaultRuntime() Runtime {
	return Runtime{Namespace: "lemon", Header: "lemon.hpp"}
}

// Symbol qualifies a runtime function name.
func (r Runtime) Symbol(name string) string {
	if r.Namespace == "" {
		return name
	}
	return r.Namespace + "::" + name
}

func (r Runtime) call(name string, args ...string) string {
	s := r.Symbol(name) + "("
	for i, a := range args {
		if i > 0 {
			s += ", "
		}
		s += a
	}
	return s + ")"
}

// Stringify converts expr to std::string when its type needs it.
func (r Runtime) Stringify(expr string, t *registry.Type) string {
	if t.Kind == registry.String {
		return expr
	}
	return r.call("to_string", expr)
}

func (r Runtime) Escape(expr string) string { return r.call("escape", expr) }

func (r Runtime) Length(expr string) string { return r.call("length", expr) }

func (r Runtime) Safe(expr string) string { return r.call("safe", expr) }

// Default is the "default" filter; default is reserved in C++.
func (r Runtime) Default(expr, literal string) string {
	return r.call("default_", expr, literal)
}

// Truth renders the truthiness test of a value: non-empty for containers and
// strings, non-zero for integral types.
func Truth(expr string, t *registry.Type) (string, error) {
	switch {
	case t.Kind.IsContainer():
		return "!" + expr + ".empty()", nil
	case t.Kind.IsInteger():
		return expr + " != 0", nil
	}
	return "", fmt.Errorf("cannot test %s value %s for truth", t, expr)
}
