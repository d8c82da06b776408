package generator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// The #[length] directive carries a small arithmetic expression over
// sibling field names, constants, and integers. It is rewritten into
// target source that, embedded in an accessor body, evaluates to a byte
// count: sibling names become `self.get_<name>() as usize` calls,
// all-uppercase identifiers become `<NAME> as usize` constants, and
// `::`-qualified path segments pass through verbatim.

const lengthExprErrMsg = `Only field names, constants, integers, basic arithmetic expressions (+ - * / %) and parentheses are allowed in the "length" attribute`

type exprTokenKind int

const (
	tokIdent exprTokenKind = iota
	tokInt
	tokOp
	tokPathSep
	tokOpen
	tokClose
)

// An expression token keeps the whitespace that preceded it so the
// rewritten expression renders with the user's spacing intact.
type exprToken struct {
	kind exprTokenKind
	lead string
	text string
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentRune(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func closerFor(open byte) byte {
	switch open {
	case '(':
		return ')'
	case '[':
		return ']'
	default:
		return '}'
	}
}

func scanLengthExpr(expr string) ([]exprToken, error) {
	var toks []exprToken
	var delims []byte
	i := 0
	for i < len(expr) {
		start := i
		for i < len(expr) && (expr[i] == ' ' || expr[i] == '\t' || expr[i] == '\r' || expr[i] == '\n') {
			i++
		}
		lead := expr[start:i]
		if i >= len(expr) {
			break
		}
		c := expr[i]
		switch {
		case isIdentStart(c):
			j := i
			for j < len(expr) && isIdentRune(expr[j]) {
				j++
			}
			toks = append(toks, exprToken{kind: tokIdent, lead: lead, text: expr[i:j]})
			i = j
		case isDigit(c):
			j := i
			for j < len(expr) && isDigit(expr[j]) {
				j++
			}
			toks = append(toks, exprToken{kind: tokInt, lead: lead, text: expr[i:j]})
			i = j
		case c == ':' && i+1 < len(expr) && expr[i+1] == ':':
			toks = append(toks, exprToken{kind: tokPathSep, lead: lead, text: "::"})
			i += 2
		case strings.IndexByte("+-*/%", c) >= 0:
			toks = append(toks, exprToken{kind: tokOp, lead: lead, text: string(c)})
			i++
		case c == '(' || c == '[' || c == '{':
			delims = append(delims, c)
			toks = append(toks, exprToken{kind: tokOpen, lead: lead, text: string(c)})
			i++
		case c == ')' || c == ']' || c == '}':
			if len(delims) == 0 || closerFor(delims[len(delims)-1]) != c {
				return nil, errors.New(lengthExprErrMsg)
			}
			delims = delims[:len(delims)-1]
			toks = append(toks, exprToken{kind: tokClose, lead: lead, text: string(c)})
			i++
		default:
			return nil, errors.New(lengthExprErrMsg)
		}
	}
	if len(delims) != 0 {
		return nil, errors.New(lengthExprErrMsg)
	}
	return toks, nil
}

// rewriteLengthExpr resolves a #[length] expression against the sibling
// field names of the annotated field. It reports InvalidLengthExpr
// diagnostics at pos and returns false when the expression is rejected.
func rewriteLengthExpr(r *Reporter, pos lexer.Position, expr string, fieldNames []string) (string, bool) {
	toks, err := scanLengthExpr(expr)
	if err != nil {
		r.errorf(InvalidLengthExpr, pos, "%s", err)
		return "", false
	}
	ok := true
	var sb strings.Builder
	for i, tok := range toks {
		sb.WriteString(tok.lead)
		switch tok.kind {
		case tokIdent:
			// a segment of a qualified path passes through verbatim
			if i+1 < len(toks) && toks[i+1].kind == tokPathSep {
				sb.WriteString(tok.text)
				break
			}
			if strings.ContainsFunc(tok.text, func(c rune) bool { return c >= 'a' && c <= 'z' }) {
				if containsName(fieldNames, tok.text) {
					fmt.Fprintf(&sb, "self.get_%s() as usize", tok.text)
				} else {
					r.errorf(InvalidLengthExpr, pos,
						"Field name must be a member of the struct and not the field itself")
					ok = false
				}
				break
			}
			// identifiers with no lowercase letters are constants
			fmt.Fprintf(&sb, "%s as usize", tok.text)
		default:
			sb.WriteString(tok.text)
		}
	}
	if !ok {
		return "", false
	}
	return sb.String(), true
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
