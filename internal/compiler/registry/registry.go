package registry

import (
	"fmt"
	"strings"
)

type Access int

const (
	Public Access = iota
	Protected
	Private
)

func (a Access) String() string {
	switch a {
	case Protected:
		return "protected"
	case Private:
		return "private"
	}
	return "public"
}

// Field is a typed declaration: a class member or a template variable.
type Field struct {
	Name       string
	TypeString string // type as written in the declaration
	Type       *Type
	Namespace  []string
	Access     Access
}

func (f Field) Kind() Kind {
	return f.Type.Kind
}

// ClassEntry is a registered class. Fields inherited from base classes are
// copied in front of the class's own fields when the class is declared.
type ClassEntry struct {
	Name      string
	Namespace []string
	Fields    []Field
}

func (c *ClassEntry) QualifiedName() string {
	return qualify(c.Namespace, c.Name)
}

// Field looks up a member by name.
func (c *ClassEntry) Field(name string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Registry is the set of known classes, keyed by qualified name.
type Registry struct {
	classes map[string]*ClassEntry
	order   []*ClassEntry
}

func New() *Registry {
	return &Registry{classes: make(map[string]*ClassEntry)}
}

// Add registers a completed class. Redeclaring a name in the same namespace
// is an error.
func (r *Registry) Add(c *ClassEntry) error {
	key := c.QualifiedName()
	if _, ok := r.classes[key]; ok {
		return fmt.Errorf("class %s already declared", key)
	}
	r.classes[key] = c
	r.order = append(r.order, c)
	return nil
}

// Get returns the class with the exact qualified name.
func (r *Registry) Get(qualified string) (*ClassEntry, bool) {
	c, ok := r.classes[strings.TrimPrefix(qualified, "::")]
	return c, ok
}

// Lookup resolves a possibly qualified name as written inside namespace
// scope. Like C++ unqualified lookup, the innermost enclosing namespace is
// tried first, then each outer one down to the global namespace. A leading
// "::" forces lookup from the global namespace.
func (r *Registry) Lookup(name string, scope []string) (*ClassEntry, bool) {
	if strings.HasPrefix(name, "::") {
		return r.Get(name)
	}
	for i := len(scope); i >= 0; i-- {
		if c, ok := r.classes[qualify(scope[:i], name)]; ok {
			return c, true
		}
	}
	return nil, false
}

// Classes returns the registered classes in declaration order.
func (r *Registry) Classes() []*ClassEntry {
	return r.order
}

func (r *Registry) Len() int {
	return len(r.order)
}
