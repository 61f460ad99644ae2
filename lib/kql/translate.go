// Package kql translates SQL SELECT statements into Kusto Query
// Language pipelines. Translation is purely syntactic: no schema or
// catalog is consulted, and the output is a single pipe-delimited KQL
// query string.
package kql

import (
	"github.com/kustoforge/sql-to-kql/lib/sql/lexer"
	"github.com/kustoforge/sql-to-kql/lib/sql/parser"
)

// Translate converts a SQL SELECT statement to a KQL query. The
// optional targetTables mapping renames every matching table reference,
// including those inside subqueries.
func Translate(sql string, targetTables map[string]string) (string, error) {
	p := parser.New(lexer.New(sql))
	stmt := p.ParseStatement()
	if errs := p.Errors(); len(errs) > 0 {
		return "", errs[0]
	}

	pipe, err := TranslateSelectStatement(stmt, targetTables)
	if err != nil {
		return "", err
	}
	return pipe.String(), nil
}
