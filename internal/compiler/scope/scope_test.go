package scope

import (
	"strings"
	"testing"

	"github.com/btouchard/lemon/internal/compiler/registry"
)

func fixture(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	address := &registry.ClassEntry{Name: "Address", Namespace: []string{"app"}, Fields: []registry.Field{
		{Name: "city", Type: registry.Primitive(registry.String)},
		{Name: "zip", Type: registry.Primitive(registry.Int)},
	}}
	user := &registry.ClassEntry{Name: "User", Namespace: []string{"app"}, Fields: []registry.Field{
		{Name: "name", Type: registry.Primitive(registry.String)},
		{Name: "address", Type: registry.ClassType(address)},
		{Name: "password", Type: registry.Primitive(registry.String), Access: registry.Private},
	}}
	for _, c := range []*registry.ClassEntry{address, user} {
		if err := reg.Add(c); err != nil {
			t.Fatal(err)
		}
	}
	return reg
}

func TestResolve(t *testing.T) {
	reg := fixture(t)
	user, _ := reg.Get("app::User")
	s := New(reg)
	s.Declare(registry.Field{Name: "user", Type: registry.ClassType(user)})

	tests := []struct {
		path     string
		expected string
		err      string
	}{
		{"user", "app::User", ""},
		{"user.name", "std::string", ""},
		{"user.address.city", "std::string", ""},
		{"user.address.zip", "int", ""},
		{"user.name.first", "", "not a class"},
		{"user.address.street", "", "has no field street"},
		{"user.password", "", "private"},
		{"nobody", "", "unknown variable nobody"},
	}

	for _, tt := range tests {
		typ, err := s.Resolve(strings.Split(tt.path, "."))
		if tt.err != "" {
			if err == nil || !strings.Contains(err.Error(), tt.err) {
				t.Errorf("Resolve(%s): expected error containing %q, got %v", tt.path, tt.err, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("Resolve(%s): %v", tt.path, err)
			continue
		}
		if typ.String() != tt.expected {
			t.Errorf("Resolve(%s) = %s, want %s", tt.path, typ, tt.expected)
		}
	}
}

func TestPushPopGroups(t *testing.T) {
	s := New(registry.New())
	s.Declare(registry.Field{Name: "x", Type: registry.Primitive(registry.Int)})

	s.Push(registry.Field{Name: "k", Type: registry.Primitive(registry.String)},
		registry.Field{Name: "x", Type: registry.Primitive(registry.Double)})
	s.Push(registry.Field{Name: "item", Type: registry.Primitive(registry.Long)})

	if s.Depth() != 2 || s.Len() != 4 {
		t.Fatalf("Depth() = %d, Len() = %d", s.Depth(), s.Len())
	}
	if f, _ := s.Lookup("x"); f.Kind() != registry.Double {
		t.Fatalf("inner binding must shadow outer one, got %s", f.Kind())
	}

	if n, err := s.Pop(); err != nil || n != 1 {
		t.Fatalf("Pop() = %d, %v", n, err)
	}
	if _, ok := s.Lookup("item"); ok {
		t.Fatal("item must be gone after pop")
	}
	if n, err := s.Pop(); err != nil || n != 2 {
		t.Fatalf("Pop() = %d, %v", n, err)
	}
	if f, _ := s.Lookup("x"); f.Kind() != registry.Int {
		t.Fatal("outer binding must be visible again")
	}
	if _, err := s.Pop(); err == nil {
		t.Fatal("pop without a group must fail")
	}
	if s.Len() != 1 {
		t.Fatalf("declared bindings must survive, Len() = %d", s.Len())
	}
}
