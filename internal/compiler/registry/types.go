package registry

import "strings"

// Kind is the closed set of value kinds a declared type can have.
type Kind int

const (
	Void Kind = iota
	Bool
	Char
	UChar
	Short
	UShort
	Int
	UInt
	Long
	ULong
	LongLong
	ULongLong
	Float
	Double
	String
	Vector
	List
	Map
	Set
	Class
)

var kindNames = [...]string{
	Void:      "void",
	Bool:      "bool",
	Char:      "char",
	UChar:     "unsigned char",
	Short:     "short",
	UShort:    "unsigned short",
	Int:       "int",
	UInt:      "unsigned int",
	Long:      "long",
	ULong:     "unsigned long",
	LongLong:  "long long",
	ULongLong: "unsigned long long",
	Float:     "float",
	Double:    "double",
	String:    "std::string",
	Vector:    "std::vector",
	List:      "std::list",
	Map:       "std::map",
	Set:       "std::set",
	Class:     "class",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsInteger covers every integral kind, bool and char included.
func (k Kind) IsInteger() bool {
	return k >= Bool && k <= ULongLong
}

func (k Kind) IsNumeric() bool {
	return k.IsInteger() || k == Float || k == Double
}

// IsContainer reports kinds that support emptiness tests and iteration
// (string included, as in std::string::empty).
func (k Kind) IsContainer() bool {
	return k >= String && k <= Set
}

func (k Kind) IsSequence() bool {
	return k == Vector || k == List || k == Set
}

// Type is a parsed type expression: a primitive, a container with its type
// arguments, or a reference to a registered class.
type Type struct {
	Kind      Kind
	Name      string   // class name, Class only
	Namespace []string // class namespace path, Class only
	Args      []*Type  // container type arguments
}

func Primitive(k Kind) *Type {
	return &Type{Kind: k}
}

func ClassType(c *ClassEntry) *Type {
	return &Type{Kind: Class, Name: c.Name, Namespace: append([]string(nil), c.Namespace...)}
}

func Container(k Kind, args ...*Type) *Type {
	return &Type{Kind: k, Args: args}
}

// QualifiedName is the fully qualified class name, without a leading "::".
func (t *Type) QualifiedName() string {
	return qualify(t.Namespace, t.Name)
}

// String renders the type as it must be spelled in generated code.
func (t *Type) String() string {
	switch t.Kind {
	case Class:
		return t.QualifiedName()
	case Vector, List, Map, Set:
		args := make([]string, len(t.Args))
		for i, a := range t.Args {
			args[i] = a.String()
		}
		s := t.Kind.String() + "<" + strings.Join(args, ", ")
		if strings.HasSuffix(s, ">") {
			s += " "
		}
		return s + ">"
	default:
		return t.Kind.String()
	}
}

// Elem is the type bound by a single-variable loop: the element of a
// sequence or the mapped value of a map.
func (t *Type) Elem() *Type {
	switch t.Kind {
	case Vector, List, Set:
		return t.Args[0]
	case Map:
		return t.Args[1]
	}
	return nil
}

// Key is the key type of a map.
func (t *Type) Key() *Type {
	if t.Kind == Map {
		return t.Args[0]
	}
	return nil
}

func qualify(ns []string, name string) string {
	if len(ns) == 0 {
		return name
	}
	return strings.Join(ns, "::") + "::" + name
}
