package kql

import (
	"fmt"
	"strings"

	"github.com/kustoforge/sql-to-kql/lib/sql/ast"
	"github.com/kustoforge/sql-to-kql/lib/sql/render"
)

var comparisonOps = map[string]string{
	"=":  "==",
	"<>": "!=",
	"!=": "!=",
	"<":  "<",
	"<=": "<=",
	">":  ">",
	">=": ">=",
}

var arithmeticOps = map[string]string{
	"+": "+",
	"-": "-",
	"*": "*",
	"/": "/",
	"%": "%",
}

// scalarFuncs maps SQL scalar functions to their KQL spellings.
var scalarFuncs = map[string]string{
	"LOWER": "tolower",
	"UPPER": "toupper",
}

// quoteString renders a KQL single-quoted string literal. Backslashes
// pass through untouched so regex patterns survive verbatim.
func quoteString(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `\'`) + "'"
}

// renderPredicate renders a boolean expression for a where stage or an
// ON clause. Conjunctions stay on one line, joined with "and".
func renderPredicate(expr ast.Expr) (string, error) {
	switch e := expr.(type) {
	case *ast.BinaryExpr:
		switch e.Operator {
		case "AND", "OR":
			left, err := renderBooleanOperand(e.Left, e.Operator)
			if err != nil {
				return "", err
			}
			right, err := renderBooleanOperand(e.Right, e.Operator)
			if err != nil {
				return "", err
			}
			return left + " " + strings.ToLower(e.Operator) + " " + right, nil
		}
		if op, ok := comparisonOps[e.Operator]; ok {
			left, err := renderScalar(e.Left)
			if err != nil {
				return "", err
			}
			right, err := renderScalar(e.Right)
			if err != nil {
				return "", err
			}
			return left + " " + op + " " + right, nil
		}
		return "", &TranslationError{Message: fmt.Sprintf("translator: operator %s is not a predicate", e.Operator)}
	case *ast.UnaryExpr:
		if e.Operator != "NOT" {
			return "", &TranslationError{Message: fmt.Sprintf("translator: operator %s is not a predicate", e.Operator)}
		}
		inner, err := renderPredicate(e.Expr)
		if err != nil {
			return "", err
		}
		return "not (" + inner + ")", nil
	case *ast.BetweenExpr:
		return renderBetween(e)
	case *ast.InExpr:
		return renderIn(e)
	case *ast.LikeExpr:
		return renderLike(e)
	case *ast.RLikeExpr:
		return renderRLike(e)
	case *ast.Identifier, *ast.BooleanLiteral:
		return renderScalar(expr)
	default:
		return "", &TranslationError{Message: fmt.Sprintf("translator: unsupported predicate %s", render.Expr(expr))}
	}
}

// renderBooleanOperand parenthesizes an OR child under an AND parent so
// precedence survives the flat rendering.
func renderBooleanOperand(expr ast.Expr, parentOp string) (string, error) {
	text, err := renderPredicate(expr)
	if err != nil {
		return "", err
	}
	if parentOp == "AND" {
		if bin, ok := expr.(*ast.BinaryExpr); ok && bin.Operator == "OR" {
			return "(" + text + ")", nil
		}
	}
	return text, nil
}

func renderBetween(e *ast.BetweenExpr) (string, error) {
	subject, err := renderScalar(e.Expr)
	if err != nil {
		return "", err
	}
	lower, err := renderScalar(e.Lower)
	if err != nil {
		return "", err
	}
	upper, err := renderScalar(e.Upper)
	if err != nil {
		return "", err
	}
	op := "between"
	if e.Not {
		op = "!between"
	}
	return fmt.Sprintf("%s %s (%s .. %s)", subject, op, lower, upper), nil
}

func renderIn(e *ast.InExpr) (string, error) {
	subject, err := renderScalar(e.Expr)
	if err != nil {
		return "", err
	}
	items := make([]string, 0, len(e.List))
	for _, item := range e.List {
		text, err := renderScalar(item)
		if err != nil {
			return "", err
		}
		items = append(items, text)
	}
	op := "in"
	if e.Not {
		op = "!in"
	}
	return subject + " " + op + " (" + strings.Join(items, ", ") + ")", nil
}

// renderLike maps SQL wildcard placement onto KQL string operators:
// %x% becomes contains, %x endswith, x% startswith, and a bare pattern
// an equality test. The wildcard markers are stripped from the literal.
func renderLike(e *ast.LikeExpr) (string, error) {
	subject, err := renderScalar(e.Expr)
	if err != nil {
		return "", err
	}
	lit, ok := e.Pattern.(*ast.StringLiteral)
	if !ok {
		return "", &TranslationError{Message: "translator: LIKE requires a string literal pattern"}
	}
	pattern := lit.Value
	leading := strings.HasPrefix(pattern, "%")
	trailing := strings.HasSuffix(pattern, "%")
	core := strings.TrimSuffix(strings.TrimPrefix(pattern, "%"), "%")
	if strings.ContainsAny(core, "%_") {
		return "", &TranslationError{Message: fmt.Sprintf("translator: LIKE pattern %q has an interior wildcard", pattern)}
	}

	var op string
	switch {
	case leading && trailing:
		op = "contains"
	case leading:
		op = "endswith"
	case trailing:
		op = "startswith"
	default:
		op = "=="
	}
	if e.Not {
		if op == "==" {
			op = "!="
		} else {
			op = "!" + op
		}
	}
	return subject + " " + op + " " + quoteString(core), nil
}

func renderRLike(e *ast.RLikeExpr) (string, error) {
	subject, err := renderScalar(e.Expr)
	if err != nil {
		return "", err
	}
	lit, ok := e.Pattern.(*ast.StringLiteral)
	if !ok {
		return "", &TranslationError{Message: "translator: RLIKE requires a string literal pattern"}
	}
	text := subject + " matches regex " + quoteString(lit.Value)
	if e.Not {
		return "not (" + text + ")", nil
	}
	return text, nil
}

// renderScalar renders a value-producing expression. Qualified column
// references drop their table qualifier; ON clauses handle
// qualification separately.
func renderScalar(expr ast.Expr) (string, error) {
	switch e := expr.(type) {
	case *ast.Identifier:
		return e.Column(), nil
	case *ast.NumericLiteral:
		return e.Value, nil
	case *ast.StringLiteral:
		return quoteString(e.Value), nil
	case *ast.BooleanLiteral:
		if e.Value {
			return "true", nil
		}
		return "false", nil
	case *ast.FuncCall:
		if isAggregateCall(e) {
			return renderAggregate(e)
		}
		return renderScalarCall(e)
	case *ast.BinaryExpr:
		op, ok := arithmeticOps[e.Operator]
		if !ok {
			return renderPredicate(expr)
		}
		left, err := renderScalar(e.Left)
		if err != nil {
			return "", err
		}
		right, err := renderScalar(e.Right)
		if err != nil {
			return "", err
		}
		return left + " " + op + " " + right, nil
	case *ast.UnaryExpr:
		if e.Operator == "-" {
			inner, err := renderScalar(e.Expr)
			if err != nil {
				return "", err
			}
			return "-" + inner, nil
		}
		return renderPredicate(expr)
	default:
		return "", &TranslationError{Message: fmt.Sprintf("translator: unsupported expression %s", render.Expr(expr))}
	}
}

func renderScalarCall(fn *ast.FuncCall) (string, error) {
	name := strings.ToUpper(fn.Name.Column())
	kqlName, ok := scalarFuncs[name]
	if !ok {
		kqlName = fn.Name.Column()
	}
	args := make([]string, 0, len(fn.Args))
	for _, arg := range fn.Args {
		text, err := renderScalar(arg)
		if err != nil {
			return "", err
		}
		args = append(args, text)
	}
	return kqlName + "(" + strings.Join(args, ", ") + ")", nil
}

var aggregateFuncs = map[string]string{
	"COUNT": "count",
	"SUM":   "sum",
	"AVG":   "avg",
	"MIN":   "min",
	"MAX":   "max",
}

func isAggregateCall(fn *ast.FuncCall) bool {
	if fn == nil || len(fn.Name.Parts) == 0 {
		return false
	}
	_, ok := aggregateFuncs[strings.ToUpper(fn.Name.Column())]
	return ok
}

// renderAggregate renders an aggregate call, mapping COUNT(DISTINCT x)
// onto dcount(x).
func renderAggregate(fn *ast.FuncCall) (string, error) {
	name := strings.ToUpper(fn.Name.Column())
	kqlName, ok := aggregateFuncs[name]
	if !ok {
		return "", &TranslationError{Message: fmt.Sprintf("translator: unsupported aggregate %s", fn.Name.Column())}
	}
	if fn.Distinct {
		if name != "COUNT" {
			return "", &TranslationError{Message: fmt.Sprintf("translator: DISTINCT is not supported for %s", kqlName)}
		}
		kqlName = "dcount"
	}
	if len(fn.Args) == 0 {
		return kqlName + "()", nil
	}
	if len(fn.Args) != 1 {
		return "", &TranslationError{Message: fmt.Sprintf("translator: %s expects a single argument", kqlName)}
	}
	if _, ok := fn.Args[0].(*ast.StarExpr); ok {
		return kqlName + "()", nil
	}
	arg, err := renderScalar(fn.Args[0])
	if err != nil {
		return "", err
	}
	return kqlName + "(" + arg + ")", nil
}

// aggregateArgColumn names the column an unaliased aggregate result
// lands in, following the single identifier argument.
func aggregateArgColumn(fn *ast.FuncCall) string {
	if len(fn.Args) != 1 {
		return ""
	}
	if ident, ok := fn.Args[0].(*ast.Identifier); ok {
		return ident.Column()
	}
	return ""
}

// columnFinder locates the first column reference inside an
// expression, used to derive a name for an unaliased computed column.
type columnFinder struct {
	name string
}

func (f *columnFinder) Visit(node ast.Node) ast.Visitor {
	if f.name != "" {
		return nil
	}
	if ident, ok := node.(*ast.Identifier); ok {
		f.name = ident.Column()
		return nil
	}
	return f
}

func firstColumn(expr ast.Expr) string {
	finder := &columnFinder{}
	ast.Walk(finder, expr)
	return finder.name
}
