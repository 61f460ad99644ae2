package parser_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kustoforge/sql-to-kql/lib/sql/ast"
	"github.com/kustoforge/sql-to-kql/lib/sql/parser"
)

func mustParse(t *testing.T, sql string) *ast.SelectStatement {
	t.Helper()
	stmt, err := parser.Parse(sql)
	require.NoError(t, err)
	require.NotNil(t, stmt)
	return stmt
}

func parseError(t *testing.T, sql string) error {
	t.Helper()
	_, err := parser.Parse(sql)
	require.Error(t, err)
	return err
}

func TestParseSelectClauses(t *testing.T) {
	stmt := mustParse(t, `
		SELECT DISTINCT Message, Otherfield
		FROM apt29Host
		WHERE Channel = "Microsoft-Windows-Sysmon/Operational"
			AND EventID BETWEEN 1 AND 10
		GROUP BY EventID
		ORDER BY Message DESC, Otherfield
		LIMIT 10`)

	assert.True(t, stmt.Distinct)
	require.Len(t, stmt.Columns, 2)
	first, ok := stmt.Columns[0].Expr.(*ast.Identifier)
	require.True(t, ok)
	assert.Equal(t, "Message", first.Column())

	table, ok := stmt.From.(*ast.TableName)
	require.True(t, ok)
	assert.Equal(t, "apt29Host", table.Name.Column())

	root, ok := stmt.Where.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "AND", root.Operator)
	between, ok := root.Right.(*ast.BetweenExpr)
	require.True(t, ok)
	assert.False(t, between.Not)

	require.Len(t, stmt.GroupBy, 1)
	require.Len(t, stmt.OrderBy, 2)
	assert.Equal(t, ast.Descending, stmt.OrderBy[0].Direction)
	assert.Equal(t, ast.Ascending, stmt.OrderBy[1].Direction)

	require.NotNil(t, stmt.Limit)
	assert.Equal(t, 10, stmt.Limit.Count)
}

func TestParseAliases(t *testing.T) {
	stmt := mustParse(t, "SELECT EventID as ID, Message mssg FROM apt29Host a")
	require.Len(t, stmt.Columns, 2)
	assert.Equal(t, "ID", stmt.Columns[0].Alias)
	assert.Equal(t, "mssg", stmt.Columns[1].Alias)

	table, ok := stmt.From.(*ast.TableName)
	require.True(t, ok)
	assert.Equal(t, "a", table.Alias)
}

func TestParseQualifiedStar(t *testing.T) {
	stmt := mustParse(t, "SELECT a.*, b.x FROM t a INNER JOIN u b ON a.id = b.id")
	star, ok := stmt.Columns[0].Expr.(*ast.StarExpr)
	require.True(t, ok)
	require.NotNil(t, star.Table)
	assert.Equal(t, "a", star.Table.Column())
}

func TestParseInnerJoinWithSubquery(t *testing.T) {
	stmt := mustParse(t, `
		SELECT Message
		FROM apt29Host a
		INNER JOIN (SELECT ProcessGuid FROM apt29Host WHERE EventID = 1) b
		ON a.ParentProcessGuid = b.ProcessGuid AND a.Channel = b.Channel`)

	join, ok := stmt.From.(*ast.JoinExpr)
	require.True(t, ok)
	assert.Equal(t, ast.JoinInner, join.Type)

	sub, ok := join.Right.(*ast.SubqueryTable)
	require.True(t, ok)
	assert.Equal(t, "b", sub.Alias)
	require.NotNil(t, sub.Select.Where)

	on, ok := join.Condition.On.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "AND", on.Operator)
}

func TestParseUnion(t *testing.T) {
	stmt := mustParse(t, "SELECT a FROM t UNION SELECT a FROM u LIMIT 5")
	require.Len(t, stmt.SetOps, 1)
	op := stmt.SetOps[0]
	assert.Equal(t, ast.SetOpUnion, op.Operator)
	assert.False(t, op.All)
	require.NotNil(t, op.Select)
	// the trailing LIMIT binds to the right-hand select
	require.NotNil(t, op.Select.Limit)
	assert.Nil(t, stmt.Limit)

	stmt = mustParse(t, "SELECT a FROM t UNION ALL (SELECT a FROM u)")
	require.Len(t, stmt.SetOps, 1)
	assert.True(t, stmt.SetOps[0].All)
}

func TestParsePatternOperators(t *testing.T) {
	stmt := mustParse(t, `
		SELECT a FROM t
		WHERE LOWER(Image) LIKE '%cmd.exe'
			AND ParentImage RLIKE '.*3aka3%'
			AND EventID NOT IN ('4', '5')`)

	conjuncts := []ast.Expr{}
	var flatten func(e ast.Expr)
	flatten = func(e ast.Expr) {
		if bin, ok := e.(*ast.BinaryExpr); ok && bin.Operator == "AND" {
			flatten(bin.Left)
			flatten(bin.Right)
			return
		}
		conjuncts = append(conjuncts, e)
	}
	flatten(stmt.Where)
	require.Len(t, conjuncts, 3)

	like, ok := conjuncts[0].(*ast.LikeExpr)
	require.True(t, ok)
	fn, ok := like.Expr.(*ast.FuncCall)
	require.True(t, ok)
	assert.Equal(t, "LOWER", fn.Name.Column())

	rlike, ok := conjuncts[1].(*ast.RLikeExpr)
	require.True(t, ok)
	pattern, ok := rlike.Pattern.(*ast.StringLiteral)
	require.True(t, ok)
	assert.Equal(t, ".*3aka3%", pattern.Value)

	in, ok := conjuncts[2].(*ast.InExpr)
	require.True(t, ok)
	assert.True(t, in.Not)
	assert.Len(t, in.List, 2)
}

func TestParseCountDistinct(t *testing.T) {
	stmt := mustParse(t, "SELECT COUNT(DISTINCT EventID) FROM t")
	fn, ok := stmt.Columns[0].Expr.(*ast.FuncCall)
	require.True(t, ok)
	assert.Equal(t, "COUNT", fn.Name.Column())
	assert.True(t, fn.Distinct)
	require.Len(t, fn.Args, 1)
}

func TestMalformedQueries(t *testing.T) {
	cases := []struct {
		name string
		sql  string
	}{
		{"empty", ""},
		{"empty select list", "SELECT FROM t"},
		{"unbalanced from paren", "SELECT FROM ("},
		{"missing from", "SELECT a"},
		{"not a select", "DELETE FROM t"},
		{"unbalanced where paren", "SELECT a FROM t WHERE (a = 1"},
		{"trailing tokens", "SELECT a FROM t b c"},
		{"join without on", "SELECT a FROM t INNER JOIN u"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := parseError(t, tc.sql)
			var malformed *parser.MalformedQueryError
			assert.ErrorAs(t, err, &malformed, "got %v", err)
		})
	}
}

func TestUnsupportedConstructs(t *testing.T) {
	cases := []struct {
		name string
		sql  string
	}{
		{"cte", "WITH x AS (SELECT a FROM t) SELECT a FROM x"},
		{"having", "SELECT a FROM t GROUP BY a HAVING COUNT(a) > 1"},
		{"offset", "SELECT a FROM t LIMIT 10 OFFSET 5"},
		{"left join", "SELECT a FROM t LEFT JOIN u ON t.a = u.a"},
		{"cross join", "SELECT a FROM t CROSS JOIN u"},
		{"exists", "SELECT a FROM t WHERE EXISTS (SELECT b FROM u)"},
		{"in subquery", "SELECT a FROM t WHERE a IN (SELECT b FROM u)"},
		{"scalar subquery", "SELECT (SELECT b FROM u) FROM t"},
		{"intersect", "SELECT a FROM t INTERSECT SELECT a FROM u"},
		{"except", "SELECT a FROM t EXCEPT SELECT a FROM u"},
		{"is null", "SELECT a FROM t WHERE a IS NULL"},
		{"window function", "SELECT SUM(a) OVER w FROM t"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := parseError(t, tc.sql)
			var unsupported *parser.UnsupportedConstructError
			assert.ErrorAs(t, err, &unsupported, "got %v", err)
		})
	}
}

func TestParseErrorCarriesClause(t *testing.T) {
	err := parseError(t, "SELECT a FROM t LIMIT 2.5")
	var pe *parser.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "LIMIT", pe.Clause)
	assert.Equal(t, "2.5", pe.Fragment)

	err = parseError(t, "SELECT a FROM t LIMIT -1")
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "LIMIT", pe.Clause)
}

func TestParseErrorInExpression(t *testing.T) {
	err := parseError(t, "SELECT a FROM t WHERE a = ,")
	var pe *parser.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "WHERE", pe.Clause)
}

func TestDepthGuard(t *testing.T) {
	sql := "SELECT a FROM t WHERE "
	for i := 0; i < parser.MaxParserDepth+10; i++ {
		sql += "("
	}
	sql += "a"
	_, err := parser.Parse(sql)
	require.Error(t, err)
	var malformed *parser.MalformedQueryError
	assert.True(t, errors.As(err, &malformed))
}

func TestParseNotBindsLooserThanComparison(t *testing.T) {
	stmt := mustParse(t, "SELECT a FROM t WHERE NOT Channel = 'X'")
	not, ok := stmt.Where.(*ast.UnaryExpr)
	require.True(t, ok)
	assert.Equal(t, "NOT", not.Operator)

	cmp, ok := not.Expr.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "=", cmp.Operator)
}

func TestUnterminatedStringRejected(t *testing.T) {
	err := parseError(t, "SELECT a FROM t WHERE x = 'abc")
	var pe *parser.ParseError
	assert.True(t, errors.As(err, &pe))
}
