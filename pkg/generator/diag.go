package generator

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// Kind classifies a diagnostic.
type Kind int

const (
	UnsupportedInput Kind = iota
	VisibilityError
	InvalidType
	InvalidDirective
	LayoutError
	UnsupportedLayout
	InvalidLengthExpr
)

func (k Kind) String() string {
	switch k {
	case UnsupportedInput:
		return "unsupported input"
	case VisibilityError:
		return "visibility error"
	case InvalidType:
		return "invalid type"
	case InvalidDirective:
		return "invalid directive"
	case LayoutError:
		return "layout error"
	case UnsupportedLayout:
		return "unsupported layout"
	case InvalidLengthExpr:
		return "invalid length expression"
	default:
		return "error"
	}
}

// Note attaches secondary context to a diagnostic, e.g. the span of the
// first payload when a second one is declared.
type Note struct {
	Pos lexer.Position
	Msg string
}

// Diagnostic is one reported compile problem, attached to the source
// span of the offending item.
type Diagnostic struct {
	Kind  Kind
	Pos   lexer.Position
	Msg   string
	Notes []Note
}

func (d *Diagnostic) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s: %s", d.Pos, d.Kind, d.Msg)
	for _, n := range d.Notes {
		fmt.Fprintf(&sb, "\n%s: note: %s", n.Pos, n.Msg)
	}
	return sb.String()
}

func (d *Diagnostic) note(pos lexer.Position, msg string) *Diagnostic {
	d.Notes = append(d.Notes, Note{Pos: pos, Msg: msg})
	return d
}

// Reporter is the diagnostic sink. Source problems are collected here
// and never surface as Go errors.
type Reporter struct {
	Diags []*Diagnostic
}

func (r *Reporter) errorf(kind Kind, pos lexer.Position, format string, args ...any) *Diagnostic {
	d := &Diagnostic{Kind: kind, Pos: pos, Msg: fmt.Sprintf(format, args...)}
	r.Diags = append(r.Diags, d)
	return d
}

// HasErrors reports whether any diagnostic has been collected.
func (r *Reporter) HasErrors() bool {
	return len(r.Diags) > 0
}
