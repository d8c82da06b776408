package generator

import (
	"testing"

	"github.com/alecthomas/participle/v2/lexer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertRewrite(t *testing.T, expr string, fieldNames []string, expected string) {
	t.Helper()
	r := &Reporter{}
	got, ok := rewriteLengthExpr(r, lexer.Position{}, expr, fieldNames)
	require.True(t, ok, "expression %q should be accepted", expr)
	require.Empty(t, r.Diags)
	assert.Equal(t, expected, got)
}

func assertRewriteFails(t *testing.T, expr string, fieldNames []string) {
	t.Helper()
	r := &Reporter{}
	_, ok := rewriteLengthExpr(r, lexer.Position{}, expr, fieldNames)
	require.False(t, ok, "expression %q should be rejected", expr)
	require.NotEmpty(t, r.Diags)
	for _, d := range r.Diags {
		assert.Equal(t, InvalidLengthExpr, d.Kind)
	}
}

func TestRewriteExprKey(t *testing.T) {
	assertRewrite(t, "key", []string{"key"}, "self.get_key() as usize")
	assertRewrite(t, "another_key", []string{"another_key"}, "self.get_another_key() as usize")
	assertRewrite(t, "get_something", []string{"get_something"}, "self.get_get_something() as usize")
}

func TestRewriteExprNumbers(t *testing.T) {
	assertRewrite(t, "3", nil, "3")
	assertRewrite(t, "1 + 2", nil, "1 + 2")
	assertRewrite(t, "3 - 4", nil, "3 - 4")
	assertRewrite(t, "5 * 6", nil, "5 * 6")
	assertRewrite(t, "7 / 8", nil, "7 / 8")
	assertRewrite(t, "9 % 10", nil, "9 % 10")
	assertRewrite(t, "5 * 4 + 1 % 2 - 6 / 9", nil, "5 * 4 + 1 % 2 - 6 / 9")
	assertRewrite(t, "5*4+1%2-6/9", nil, "5*4+1%2-6/9")
	assertRewrite(t, "5* 4+1%   2-6/ 9", nil, "5* 4+1%   2-6/ 9")
}

func TestRewriteExprKeyAndNumbers(t *testing.T) {
	assertRewrite(t, "key + 4", []string{"key"}, "self.get_key() as usize + 4")
	assertRewrite(t, "another_key - 7 + 8 * 2 / 1 % 2", []string{"another_key"},
		"self.get_another_key() as usize - 7 + 8 * 2 / 1 % 2")
	assertRewrite(t, "2 * key - 4", []string{"key"}, "2 * self.get_key() as usize - 4")
}

func TestRewriteExprParentheses(t *testing.T) {
	assertRewrite(t, "()", nil, "()")
	assertRewrite(t, "(key)", []string{"key"}, "(self.get_key() as usize)")
	assertRewrite(t, "(key + 5)", []string{"key"}, "(self.get_key() as usize + 5)")
	assertRewrite(t, "key + 5 * (10 - another_key)", []string{"key", "another_key"},
		"self.get_key() as usize + 5 * (10 - self.get_another_key() as usize)")
	assertRewrite(t, "4 + 2 / (3 * (7 - 5))", nil, "4 + 2 / (3 * (7 - 5))")
}

func TestRewriteExprConstants(t *testing.T) {
	assertRewrite(t, "CONSTANT", nil, "CONSTANT as usize")
	assertRewrite(t, "std::u32::MIN", nil, "std::u32::MIN as usize")
	assertRewrite(t, "key * (4 + std::u32::MIN)", []string{"key"},
		"self.get_key() as usize * (4 + std::u32::MIN as usize)")
}

func TestRewriteExprRejectsUnknownFields(t *testing.T) {
	// the annotated field's own name is excluded from the sibling set
	assertRewriteFails(t, "key", nil)
	assertRewriteFails(t, "key + other", []string{"key"})
}

func TestRewriteExprRejectsIllegalTokens(t *testing.T) {
	assertRewriteFails(t, "key & 2", []string{"key"})
	assertRewriteFails(t, "1 << 2", nil)
	assertRewriteFails(t, "1 | 2", nil)
	assertRewriteFails(t, "key.len()", []string{"key"})
	assertRewriteFails(t, `"str"`, nil)
	assertRewriteFails(t, "$x", nil)
}

func TestRewriteExprRejectsUnbalancedDelimiters(t *testing.T) {
	assertRewriteFails(t, "(1", nil)
	assertRewriteFails(t, "1)", nil)
	assertRewriteFails(t, "(1]", nil)
}
