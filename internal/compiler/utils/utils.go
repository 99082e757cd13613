package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// RawDelimiter is the base delimiter of generated raw string literals.
const RawDelimiter = "lemon"

// RawLiteral wraps s in a C++ raw string literal so that its bytes appear
// unchanged in generated code. The delimiter is extended with a counter
// ("lemon1", "lemon2", ...) until its closing sequence does not occur in s.
func RawLiteral(s string) string {
	delim := RawDelimiter
	for n := 1; strings.Contains(s, ")"+delim+`"`); n++ {
		delim = RawDelimiter + strconv.Itoa(n)
	}
	return `R"` + delim + "(" + s + ")" + delim + `"`
}

// Quote renders s as an ordinary C++ string literal.
func Quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '?':
			// keeps "??x" from forming a trigraph
			b.WriteString(`\?`)
		default:
			if c < 0x20 || c == 0x7f {
				fmt.Fprintf(&b, `\%03o`, c)
			} else {
				b.WriteByte(c)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

// IteratorName names the n-th loop iterator of a render function.
func IteratorName(n int) string {
	return "it" + strconv.Itoa(n)
}

// IsIteratorName reports whether name has the shape produced by IteratorName.
func IsIteratorName(name string) bool {
	rest, ok := strings.CutPrefix(name, "it")
	if !ok || rest == "" {
		return false
	}
	for i := 0; i < len(rest); i++ {
		if rest[i] < '0' || rest[i] > '9' {
			return false
		}
	}
	return true
}

var cppKeywords = map[string]bool{}

func init() {
	for _, k := range strings.Fields(`alignas alignof and and_eq asm auto bitand bitor bool break case
		catch char char8_t char16_t char32_t class compl concept const consteval constexpr constinit
		const_cast continue co_await co_return co_yield decltype default delete do double
		dynamic_cast else enum explicit export extern false float for friend goto if inline int
		long mutable namespace new noexcept not not_eq nullptr operator or or_eq private protected
		public register reinterpret_cast requires return short signed sizeof static static_assert
		static_cast struct switch template this thread_local throw true try typedef typeid
		typename union unsigned using virtual void volatile wchar_t while xor xor_eq`) {
		cppKeywords[k] = true
	}
}

// IsKeyword reports whether name is reserved by C++ and so cannot name a
// generated function or variable.
func IsKeyword(name string) bool {
	return cppKeywords[name]
}
