package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kustoforge/sql-to-kql/lib/sql/token"
)

func collect(t *testing.T, input string) []token.Token {
	t.Helper()
	l := New(input)
	var tokens []token.Token
	for {
		tok := l.NextToken()
		if tok.Type == token.EOF {
			return tokens
		}
		tokens = append(tokens, tok)
		require.Less(t, len(tokens), 1000, "lexer did not terminate")
	}
}

func TestOperators(t *testing.T) {
	tokens := collect(t, "= == <> != < <= > >= + - * / % . , ; ( )")

	want := []token.Token{
		{Type: token.EQ, Literal: "="},
		{Type: token.EQ, Literal: "=="},
		{Type: token.NEQ, Literal: "<>"},
		{Type: token.NEQ, Literal: "!="},
		{Type: token.LT, Literal: "<"},
		{Type: token.LTE, Literal: "<="},
		{Type: token.GT, Literal: ">"},
		{Type: token.GTE, Literal: ">="},
		{Type: token.PLUS, Literal: "+"},
		{Type: token.MINUS, Literal: "-"},
		{Type: token.STAR, Literal: "*"},
		{Type: token.SLASH, Literal: "/"},
		{Type: token.PERCENT, Literal: "%"},
		{Type: token.DOT, Literal: "."},
		{Type: token.COMMA, Literal: ","},
		{Type: token.SEMICOLON, Literal: ";"},
		{Type: token.LPAREN, Literal: "("},
		{Type: token.RPAREN, Literal: ")"},
	}
	require.Len(t, tokens, len(want))
	for i, w := range want {
		assert.Equal(t, w.Type, tokens[i].Type, "token %d", i)
		assert.Equal(t, w.Literal, tokens[i].Literal, "token %d", i)
	}
}

func TestStringLiterals(t *testing.T) {
	tokens := collect(t, `'single' "double" 'it''s'`)
	require.Len(t, tokens, 3)

	assert.Equal(t, token.STRING, tokens[0].Type)
	assert.Equal(t, "single", tokens[0].Literal)

	// double quotes delimit string literals in this dialect
	assert.Equal(t, token.STRING, tokens[1].Type)
	assert.Equal(t, "double", tokens[1].Literal)

	assert.Equal(t, token.STRING, tokens[2].Type)
	assert.Equal(t, "it's", tokens[2].Literal)
}

func TestKeywordsCaseInsensitive(t *testing.T) {
	tokens := collect(t, "Select disTinct rlike From")
	require.Len(t, tokens, 4)
	assert.Equal(t, token.SELECT, tokens[0].Type)
	assert.Equal(t, token.DISTINCT, tokens[1].Type)
	assert.Equal(t, token.RLIKE, tokens[2].Type)
	assert.Equal(t, token.FROM, tokens[3].Type)
}

func TestIdentifiersKeepCase(t *testing.T) {
	tokens := collect(t, "SELECT EventID FROM apt29Host")
	require.Len(t, tokens, 4)
	assert.Equal(t, "EventID", tokens[1].Literal)
	assert.Equal(t, "apt29Host", tokens[3].Literal)
}

func TestCommentsSkipped(t *testing.T) {
	input := `SELECT a -- trailing comment
	FROM /* block
	comment */ t`
	tokens := collect(t, input)
	require.Len(t, tokens, 4)
	assert.Equal(t, token.SELECT, tokens[0].Type)
	assert.Equal(t, "a", tokens[1].Literal)
	assert.Equal(t, token.FROM, tokens[2].Type)
	assert.Equal(t, "t", tokens[3].Literal)
}

func TestNumbers(t *testing.T) {
	tokens := collect(t, "10 3.14")
	require.Len(t, tokens, 2)
	assert.Equal(t, token.NUMBER, tokens[0].Type)
	assert.Equal(t, "10", tokens[0].Literal)
	assert.Equal(t, token.NUMBER, tokens[1].Type)
	assert.Equal(t, "3.14", tokens[1].Literal)
}

func TestPositions(t *testing.T) {
	l := New("SELECT\n  a")
	sel := l.NextToken()
	assert.Equal(t, 1, sel.Pos.Line)
	assert.Equal(t, 1, sel.Pos.Column)

	a := l.NextToken()
	assert.Equal(t, 2, a.Pos.Line)
	assert.Equal(t, 3, a.Pos.Column)
}

func TestUnterminatedStringIsIllegal(t *testing.T) {
	tokens := collect(t, "'abc")
	require.Len(t, tokens, 1)
	assert.Equal(t, token.ILLEGAL, tokens[0].Type)
	assert.Equal(t, "abc", tokens[0].Literal)

	tokens = collect(t, `WHERE x = "abc`)
	last := tokens[len(tokens)-1]
	assert.Equal(t, token.ILLEGAL, last.Type)
}
