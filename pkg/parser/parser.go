// Package parser turns packet declaration source into an AST the
// generator can walk. The grammar covers attribute-annotated struct and
// enum items plus type aliases; it does not attempt to be a full host
// language front end.
package parser

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

//
// AST
//

type File struct {
	Pos   lexer.Position
	Items []*Item `@@*`
}

type Item struct {
	Pos    lexer.Position
	Attrs  []*Attr    `@@*`
	Public bool       `@"pub"?`
	Struct *Struct    `( @@`
	Enum   *Enum      `| @@`
	Alias  *TypeAlias `| @@ )`
}

// An attribute takes one of three shapes: a bare word `#[name]`, a
// name-value pair `#[name = lit]`, or a list `#[name(arg, ...)]`.
type Attr struct {
	Pos  lexer.Position
	Name string    `"#" "[" @Ident`
	Eq   *AttrLit  `( @@`
	List *AttrList `| @@ )? "]"`
}

type AttrLit struct {
	Pos   lexer.Position
	Str   *string `"=" ( @String`
	Other *string `      | @(Int | Ident) )`
}

type AttrList struct {
	Pos  lexer.Position
	Args []*AttrArg `"(" ( @@ ( "," @@ )* )? ")"`
}

type AttrArg struct {
	Pos  lexer.Position
	Name string `@Ident`
}

type Struct struct {
	Pos    lexer.Position
	Name   string       `"struct" @Ident`
	Fields []*FieldDecl `"{" ( @@ ( "," @@ )* ","? )? "}"`
}

type Enum struct {
	Pos      lexer.Position
	Name     string     `"enum" @Ident`
	Variants []*Variant `"{" ( @@ ( "," @@ )* ","? )? "}"`
}

// A variant with a Body is struct-shaped; a tuple or bare variant parses
// but is rejected by the generator.
type Variant struct {
	Pos   lexer.Position
	Name  string       `@Ident`
	Body  *VariantBody `( @@`
	Tuple *TupleBody   `| @@ )?`
}

type VariantBody struct {
	Fields []*FieldDecl `"{" ( @@ ( "," @@ )* ","? )? "}"`
}

type TupleBody struct {
	Types []*TypeRef `"(" ( @@ ( "," @@ )* )? ")"`
}

// Primitive alias declarations (`type u4 = u8;`) may sit next to packet
// items; the generator skips them.
type TypeAlias struct {
	Pos    lexer.Position
	Name   string   `"type" @Ident`
	Target *TypeRef `"=" @@ ";"`
}

type FieldDecl struct {
	Pos   lexer.Position
	Attrs []*Attr  `@@*`
	Name  string   `@Ident ":"`
	Type  *TypeRef `@@`
}

type TypeRef struct {
	Pos      lexer.Position
	Ref      bool     `@"&"?`
	Lifetime string   `( "'" @Ident )?`
	Name     string   `@Ident`
	Param    *TypeRef `( "<" @@ ">" )?`
}

// String renders the type compactly: no spaces, except the one that
// follows a lifetime.
func (t *TypeRef) String() string {
	var sb strings.Builder
	if t.Ref {
		sb.WriteString("&")
	}
	if t.Lifetime != "" {
		sb.WriteString("'")
		sb.WriteString(t.Lifetime)
		sb.WriteString(" ")
	}
	sb.WriteString(t.Name)
	if t.Param != nil {
		sb.WriteString("<")
		sb.WriteString(t.Param.String())
		sb.WriteString(">")
	}
	return sb.String()
}

//
// Attribute shape helpers
//

// IsWord reports whether the attribute is a bare `#[name]`.
func (a *Attr) IsWord() bool {
	return a.Eq == nil && a.List == nil
}

// StringValue returns the string literal of a name-value attribute, or
// false when the attribute is not of the form `#[name = "literal"]`.
func (a *Attr) StringValue() (string, bool) {
	if a.Eq == nil || a.Eq.Str == nil {
		return "", false
	}
	return *a.Eq.Str, true
}

// HasAttr reports whether any attribute with the given name is present.
func (i *Item) HasAttr(name string) bool {
	for _, a := range i.Attrs {
		if a.Name == name {
			return true
		}
	}
	return false
}

//
// Parser
//

var fileParser = participle.MustBuild[File](
	participle.Lexer(lexer.MustSimple([]lexer.SimpleRule{
		{"Comment", `//[^\r\n]*`},
		{"String", `"(\\.|[^"])*"`},
		{"Keyword", `\b(pub|struct|enum|type)\b`},
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_]*`},
		{"Int", `\d+`},
		{"Punct", `#|\[|\]|[{}()<>,:;=&']`},
		{"Whitespace", `\s+`},
	})),
	participle.Elide("Whitespace", "Comment"),
	participle.Unquote("String"),
	participle.UseLookahead(4),
)

// Parse parses a declaration file. Syntax errors are returned as plain
// errors; everything semantic is left to the generator.
func Parse(input string) (*File, error) {
	return fileParser.ParseString("", input)
}
