package token

type TokenType string

type Position struct {
	Line   int
	Column int
}

type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
}

const (
	// Special
	ILLEGAL TokenType = "ILLEGAL"
	EOF     TokenType = "EOF"
	IDENT   TokenType = "IDENT"

	// Trivia (significant inside templates, skipped by the header reader)
	SPACE   TokenType = "SPACE"
	TAB     TokenType = "TAB"
	CR      TokenType = "CR"
	NEWLINE TokenType = "NEWLINE"

	// Punctuation
	LT          TokenType = "<"
	GT          TokenType = ">"
	LT_EQ       TokenType = "<="
	GT_EQ       TokenType = ">="
	EQ          TokenType = "=="
	NOT_EQ      TokenType = "!="
	ASSIGN      TokenType = "="
	BANG        TokenType = "!"
	COLON       TokenType = ":"
	DOUBLECOLON TokenType = "::"
	SEMICOLON   TokenType = ";"
	COMMA       TokenType = ","
	DOT         TokenType = "."
	PIPE        TokenType = "|"
	AMPERSAND   TokenType = "&"
	ASTERISK    TokenType = "*"
	MINUS       TokenType = "-"
	SLASH       TokenType = "/"
	BACKSLASH   TokenType = "\\"
	PERCENT     TokenType = "%"
	HASH        TokenType = "#"
	TILDE       TokenType = "~"
	QUESTION    TokenType = "?"
	DQUOTE      TokenType = "\""
	SQUOTE      TokenType = "'"
	BACKTICK    TokenType = "`"
	LPAREN      TokenType = "("
	RPAREN      TokenType = ")"
	LBRACE      TokenType = "{"
	RBRACE      TokenType = "}"
	LBRACKET    TokenType = "["
	RBRACKET    TokenType = "]"

	// Delimiters
	VAR_OPEN      TokenType = "{{"
	VAR_CLOSE     TokenType = "}}"
	TAG_OPEN      TokenType = "{%"
	TAG_CLOSE     TokenType = "%}"
	COMMENT_OPEN  TokenType = "<!--"
	COMMENT_CLOSE TokenType = "-->"
	LINE_COMMENT  TokenType = "//"
	BLOCK_OPEN    TokenType = "/*"
	BLOCK_CLOSE   TokenType = "*/"

	// Template keywords
	IF            TokenType = "IF"
	ELIF          TokenType = "ELIF"
	ELSE          TokenType = "ELSE"
	ENDIF         TokenType = "ENDIF"
	FOR           TokenType = "FOR"
	IN            TokenType = "IN"
	EMPTY         TokenType = "EMPTY"
	ENDFOR        TokenType = "ENDFOR"
	INCLUDE       TokenType = "INCLUDE"
	BLOCK         TokenType = "BLOCK"
	ENDBLOCK      TokenType = "ENDBLOCK"
	EXTENDS       TokenType = "EXTENDS"
	AUTOESCAPE    TokenType = "AUTOESCAPE"
	ENDAUTOESCAPE TokenType = "ENDAUTOESCAPE"
	AND           TokenType = "AND"
	OR            TokenType = "OR"
	NOT           TokenType = "NOT"

	// Primitive types
	BOOL     TokenType = "BOOL"
	CHAR     TokenType = "CHAR"
	SHORT    TokenType = "SHORT"
	INT      TokenType = "INT"
	LONG     TokenType = "LONG"
	UNSIGNED TokenType = "UNSIGNED"
	SIGNED   TokenType = "SIGNED"
	FLOAT    TokenType = "FLOAT"
	DOUBLE   TokenType = "DOUBLE"
	VOID     TokenType = "VOID"

	// Containers, always spelled std:: in generated code
	STRING TokenType = "STRING"
	VECTOR TokenType = "VECTOR"
	LIST   TokenType = "LIST"
	MAP    TokenType = "MAP"
	SET    TokenType = "SET"

	// Filters
	LENGTH  TokenType = "LENGTH"
	DEFAULT TokenType = "DEFAULT"
	SAFE    TokenType = "SAFE"
	ESCAPE  TokenType = "ESCAPE"

	// Declaration keywords
	CLASS     TokenType = "CLASS"
	STRUCT    TokenType = "STRUCT"
	PUBLIC    TokenType = "PUBLIC"
	PRIVATE   TokenType = "PRIVATE"
	PROTECTED TokenType = "PROTECTED"
	VIRTUAL   TokenType = "VIRTUAL"
	INLINE    TokenType = "INLINE"
	NAMESPACE TokenType = "NAMESPACE"
	CONST     TokenType = "CONST"
	STATIC    TokenType = "STATIC"
	EXPLICIT  TokenType = "EXPLICIT"
	FRIEND    TokenType = "FRIEND"
)

var keywords = map[string]TokenType{
	"if":            IF,
	"elif":          ELIF,
	"else":          ELSE,
	"endif":         ENDIF,
	"for":           FOR,
	"in":            IN,
	"empty":         EMPTY,
	"endfor":        ENDFOR,
	"include":       INCLUDE,
	"block":         BLOCK,
	"endblock":      ENDBLOCK,
	"extends":       EXTENDS,
	"autoescape":    AUTOESCAPE,
	"endautoescape": ENDAUTOESCAPE,
	"and":           AND,
	"or":            OR,
	"not":           NOT,
	"bool":          BOOL,
	"char":          CHAR,
	"short":         SHORT,
	"int":           INT,
	"long":          LONG,
	"unsigned":      UNSIGNED,
	"signed":        SIGNED,
	"float":         FLOAT,
	"double":        DOUBLE,
	"void":          VOID,
	"string":        STRING,
	"vector":        VECTOR,
	"list":          LIST,
	"map":           MAP,
	"set":           SET,
	"length":        LENGTH,
	"default":       DEFAULT,
	"safe":          SAFE,
	"escape":        ESCAPE,
	"class":         CLASS,
	"struct":        STRUCT,
	"public":        PUBLIC,
	"private":       PRIVATE,
	"protected":     PROTECTED,
	"virtual":       VIRTUAL,
	"inline":        INLINE,
	"namespace":     NAMESPACE,
	"const":         CONST,
	"static":        STATIC,
	"explicit":      EXPLICIT,
	"friend":        FRIEND,
}

// containers maps the names accepted after "std::" to their token type.
var containers = map[string]TokenType{
	"string": STRING,
	"vector": VECTOR,
	"list":   LIST,
	"map":    MAP,
	"set":    SET,
}

func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// LookupContainer reports the container token for a name qualified with std::.
func LookupContainer(name string) (TokenType, bool) {
	tok, ok := containers[name]
	return tok, ok
}

func (t TokenType) IsTrivia() bool {
	switch t {
	case SPACE, TAB, CR, NEWLINE:
		return true
	}
	return false
}

func (t TokenType) IsPrimitive() bool {
	switch t {
	case BOOL, CHAR, SHORT, INT, LONG, UNSIGNED, SIGNED, FLOAT, DOUBLE, VOID:
		return true
	}
	return false
}

func (t TokenType) IsContainer() bool {
	switch t {
	case STRING, VECTOR, LIST, MAP, SET:
		return true
	}
	return false
}

func (t TokenType) IsFilter() bool {
	switch t {
	case LENGTH, DEFAULT, SAFE, ESCAPE:
		return true
	}
	return false
}

func (t TokenType) IsComparison() bool {
	switch t {
	case LT, GT, LT_EQ, GT_EQ, EQ, NOT_EQ:
		return true
	}
	return false
}

// IsWord reports whether the token was spelled as an identifier-like word,
// so that keywords can still be used as names where the grammar allows it.
func (t Token) IsWord() bool {
	if t.Type == IDENT {
		return true
	}
	_, ok := keywords[t.Literal]
	return ok && LookupIdent(t.Literal) == t.Type
}
