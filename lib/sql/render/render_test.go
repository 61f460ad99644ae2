package render_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kustoforge/sql-to-kql/lib/sql/parser"
	"github.com/kustoforge/sql-to-kql/lib/sql/render"
)

func whereExpr(t *testing.T, predicate string) string {
	t.Helper()
	stmt, err := parser.Parse("SELECT a FROM t WHERE " + predicate)
	require.NoError(t, err)
	require.NotNil(t, stmt.Where)
	return render.Expr(stmt.Where)
}

func TestExprCanonicalText(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"a.b = 1", "a.b = 1"},
		{"x BETWEEN 1 AND 10", "x BETWEEN 1 AND 10"},
		{"x NOT LIKE '%exe'", "x NOT LIKE '%exe'"},
		{"x RLIKE '.*'", "x RLIKE '.*'"},
		{"x IN ('a', 'b')", "x IN ('a', 'b')"},
		{"LOWER(x) = 'it''s'", "LOWER(x) = 'it''s'"},
		{"NOT x = 1 AND y > 2", "NOT x = 1 AND y > 2"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, whereExpr(t, tc.in))
	}
}

func TestExprCountDistinct(t *testing.T) {
	stmt, err := parser.Parse("SELECT COUNT(DISTINCT EventID) FROM t")
	require.NoError(t, err)
	assert.Equal(t, "COUNT(DISTINCT EventID)", render.Expr(stmt.Columns[0].Expr))
}
