// Package render turns AST nodes back into canonical SQL text. The
// translator uses it for diagnostics and for carrying computed
// expressions through unchanged.
package render

import (
	"strings"

	"github.com/kustoforge/sql-to-kql/lib/sql/ast"
)

// Expr renders an expression as canonical SQL.
func Expr(e ast.Expr) string {
	var b strings.Builder
	writeExpr(&b, e)
	return b.String()
}

func writeExpr(b *strings.Builder, e ast.Expr) {
	switch expr := e.(type) {
	case *ast.Identifier:
		b.WriteString(strings.Join(expr.Parts, "."))
	case *ast.NumericLiteral:
		b.WriteString(expr.Value)
	case *ast.StringLiteral:
		b.WriteByte('\'')
		b.WriteString(strings.ReplaceAll(expr.Value, "'", "''"))
		b.WriteByte('\'')
	case *ast.BooleanLiteral:
		if expr.Value {
			b.WriteString("TRUE")
		} else {
			b.WriteString("FALSE")
		}
	case *ast.NullLiteral:
		b.WriteString("NULL")
	case *ast.StarExpr:
		if expr.Table != nil {
			b.WriteString(strings.Join(expr.Table.Parts, "."))
			b.WriteByte('.')
		}
		b.WriteByte('*')
	case *ast.BinaryExpr:
		writeExpr(b, expr.Left)
		b.WriteByte(' ')
		b.WriteString(expr.Operator)
		b.WriteByte(' ')
		writeExpr(b, expr.Right)
	case *ast.UnaryExpr:
		b.WriteString(expr.Operator)
		if expr.Operator != "-" {
			b.WriteByte(' ')
		}
		writeExpr(b, expr.Expr)
	case *ast.FuncCall:
		b.WriteString(strings.Join(expr.Name.Parts, "."))
		b.WriteByte('(')
		if expr.Distinct {
			b.WriteString("DISTINCT ")
		}
		for i, arg := range expr.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			writeExpr(b, arg)
		}
		b.WriteByte(')')
	case *ast.BetweenExpr:
		writeExpr(b, expr.Expr)
		if expr.Not {
			b.WriteString(" NOT")
		}
		b.WriteString(" BETWEEN ")
		writeExpr(b, expr.Lower)
		b.WriteString(" AND ")
		writeExpr(b, expr.Upper)
	case *ast.InExpr:
		writeExpr(b, expr.Expr)
		if expr.Not {
			b.WriteString(" NOT")
		}
		b.WriteString(" IN (")
		for i, item := range expr.List {
			if i > 0 {
				b.WriteString(", ")
			}
			writeExpr(b, item)
		}
		b.WriteByte(')')
	case *ast.LikeExpr:
		writeExpr(b, expr.Expr)
		if expr.Not {
			b.WriteString(" NOT")
		}
		b.WriteString(" LIKE ")
		writeExpr(b, expr.Pattern)
	case *ast.RLikeExpr:
		writeExpr(b, expr.Expr)
		if expr.Not {
			b.WriteString(" NOT")
		}
		b.WriteString(" RLIKE ")
		writeExpr(b, expr.Pattern)
	case nil:
	default:
		b.WriteString("<expr>")
	}
}
