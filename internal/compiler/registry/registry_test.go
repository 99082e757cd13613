package registry

import "testing"

func TestTypeString(t *testing.T) {
	user := &ClassEntry{Name: "User", Namespace: []string{"app", "model"}}

	tests := []struct {
		typ      *Type
		expected string
	}{
		{Primitive(Int), "int"},
		{Primitive(ULongLong), "unsigned long long"},
		{Primitive(String), "std::string"},
		{ClassType(user), "app::model::User"},
		{Container(Vector, Primitive(Int)), "std::vector<int>"},
		{Container(Map, Primitive(String), Primitive(Int)), "std::map<std::string, int>"},
		{Container(Vector, Container(List, ClassType(user))), "std::vector<std::list<app::model::User> >"},
	}

	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.expected {
			t.Errorf("String() = %q, want %q", got, tt.expected)
		}
	}
}

func TestKindPredicates(t *testing.T) {
	tests := []struct {
		kind                        Kind
		integer, numeric, container bool
	}{
		{Bool, true, true, false},
		{Int, true, true, false},
		{ULongLong, true, true, false},
		{Double, false, true, false},
		{String, false, false, true},
		{Map, false, false, true},
		{Class, false, false, false},
		{Void, false, false, false},
	}

	for _, tt := range tests {
		if tt.kind.IsInteger() != tt.integer {
			t.Errorf("%s.IsInteger() = %v", tt.kind, !tt.integer)
		}
		if tt.kind.IsNumeric() != tt.numeric {
			t.Errorf("%s.IsNumeric() = %v", tt.kind, !tt.numeric)
		}
		if tt.kind.IsContainer() != tt.container {
			t.Errorf("%s.IsContainer() = %v", tt.kind, !tt.container)
		}
	}
}

func TestElemAndKey(t *testing.T) {
	m := Container(Map, Primitive(String), Primitive(Int))
	if m.Key().Kind != String || m.Elem().Kind != Int {
		t.Fatalf("map key/elem = %s/%s", m.Key(), m.Elem())
	}
	v := Container(Vector, Primitive(Double))
	if v.Elem().Kind != Double || v.Key() != nil {
		t.Fatalf("vector elem/key = %v/%v", v.Elem(), v.Key())
	}
	if Primitive(Int).Elem() != nil {
		t.Fatal("scalar has no element type")
	}
}

func TestRegistryLookup(t *testing.T) {
	r := New()
	global := &ClassEntry{Name: "Address"}
	inner := &ClassEntry{Name: "Address", Namespace: []string{"app"}}
	user := &ClassEntry{Name: "User", Namespace: []string{"app", "model"}}
	for _, c := range []*ClassEntry{global, inner, user} {
		if err := r.Add(c); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name  string
		scope []string
		want  *ClassEntry
	}{
		{"Address", nil, global},
		{"Address", []string{"app"}, inner},
		{"Address", []string{"app", "model"}, inner},
		{"::Address", []string{"app"}, global},
		{"User", []string{"app", "model"}, user},
		{"model::User", []string{"app"}, user},
		{"app::model::User", nil, user},
		{"User", []string{"app"}, nil},
	}

	for _, tt := range tests {
		got, ok := r.Lookup(tt.name, tt.scope)
		if tt.want == nil {
			if ok {
				t.Errorf("Lookup(%q, %v) = %s, want not found", tt.name, tt.scope, got.QualifiedName())
			}
			continue
		}
		if !ok || got != tt.want {
			t.Errorf("Lookup(%q, %v) did not find %s", tt.name, tt.scope, tt.want.QualifiedName())
		}
	}

	if r.Len() != 3 || r.Classes()[2] != user {
		t.Fatal("Classes() must keep declaration order")
	}
}

func TestRegistryDuplicate(t *testing.T) {
	r := New()
	if err := r.Add(&ClassEntry{Name: "User"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Add(&ClassEntry{Name: "User"}); err == nil {
		t.Fatal("expected duplicate class error")
	}
	if err := r.Add(&ClassEntry{Name: "User", Namespace: []string{"v2"}}); err != nil {
		t.Fatalf("same name in another namespace must be accepted: %v", err)
	}
}

func TestClassField(t *testing.T) {
	c := &ClassEntry{Name: "User", Fields: []Field{
		{Name: "name", Type: Primitive(String)},
		{Name: "age", Type: Primitive(Int), Access: Private},
	}}
	f, ok := c.Field("age")
	if !ok || f.Kind() != Int || f.Access != Private {
		t.Fatalf("Field(age) = %+v, %v", f, ok)
	}
	if _, ok := c.Field("email"); ok {
		t.Fatal("unexpected field email")
	}
}
