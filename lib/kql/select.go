package kql

import (
	"fmt"
	"strings"

	"github.com/kustoforge/sql-to-kql/lib/sql/ast"
	"github.com/kustoforge/sql-to-kql/lib/sql/render"
)

// TranslateSelectStatement lowers one parsed SELECT statement into a
// KQL pipeline. The table rename mapping is threaded explicitly through
// every recursive call so each subquery translates independently.
func TranslateSelectStatement(stmt *ast.SelectStatement, targetTables map[string]string) (*Pipeline, error) {
	if stmt == nil {
		return nil, &TranslationError{Message: "translator: nil statement"}
	}

	pipe, err := fromPipeline(stmt.From, targetTables)
	if err != nil {
		return nil, err
	}

	cols, err := classifyColumns(stmt.Columns)
	if err != nil {
		return nil, err
	}
	hasGroup := len(stmt.GroupBy) > 0

	// computed columns materialize before projection, one extend each
	for _, col := range cols {
		if col.extend != "" {
			pipe.add(StageExtend, "extend "+col.extend)
		}
	}

	if stmt.Where != nil {
		text, err := renderPredicate(stmt.Where)
		if err != nil {
			return nil, err
		}
		pipe.add(StageWhere, "where "+text)
	}

	if !hasGroup {
		// aggregates without GROUP BY become extend stages so the
		// projection can reference them by name
		for _, col := range cols {
			if col.agg == nil {
				continue
			}
			call, err := renderAggregate(col.agg)
			if err != nil {
				return nil, err
			}
			pipe.add(StageExtend, "extend "+col.name+" = "+call)
		}

		if project := projectStage(cols); project != "" {
			pipe.add(StageProject, project)
		}

		if stmt.Distinct {
			pipe.add(StageDistinct, "distinct *")
		}
	}

	dedupe := false
	for _, op := range stmt.SetOps {
		if op.Select == nil {
			return nil, &TranslationError{Message: "translator: UNION missing right-hand select"}
		}
		rhs, err := TranslateSelectStatement(op.Select, targetTables)
		if err != nil {
			return nil, err
		}
		pipe.add(StageUnion, "union ("+rhs.String()+"\n)")
		if !op.All {
			dedupe = true
		}
	}
	if dedupe {
		pipe.add(StageDistinct, "distinct *")
	}

	if hasGroup {
		text, err := summarizeStage(cols, stmt.GroupBy)
		if err != nil {
			return nil, err
		}
		pipe.add(StageSummarize, text)
	}

	if len(stmt.OrderBy) > 0 {
		text, err := orderByStage(stmt.OrderBy)
		if err != nil {
			return nil, err
		}
		pipe.add(StageOrderBy, text)
	}

	if stmt.Limit != nil {
		pipe.add(StageLimit, fmt.Sprintf("limit %d", stmt.Limit.Count))
	}

	return pipe, nil
}

// selectColumn is one classified select-list item.
type selectColumn struct {
	name   string        // output column name
	source string        // underlying column when the item is a plain rename
	agg    *ast.FuncCall // aggregate call, nil otherwise
	extend string        // extend stage body for a computed item
	star   bool
}

func classifyColumns(items []ast.SelectItem) ([]selectColumn, error) {
	cols := make([]selectColumn, 0, len(items))

	for _, item := range items {
		switch expr := item.Expr.(type) {
		case *ast.StarExpr:
			cols = append(cols, selectColumn{star: true})
		case *ast.Identifier:
			col := selectColumn{name: expr.Column()}
			if item.Alias != "" {
				col.name = item.Alias
				col.source = expr.Column()
			}
			cols = append(cols, col)
		case *ast.FuncCall:
			if isAggregateCall(expr) {
				name := item.Alias
				if name == "" {
					name = aggregateArgColumn(expr)
				}
				if name == "" {
					return nil, &TranslationError{Message: fmt.Sprintf("translator: aggregate %s requires an alias", render.Expr(expr))}
				}
				cols = append(cols, selectColumn{name: name, agg: expr})
				continue
			}
			col, err := computedColumn(item, expr)
			if err != nil {
				return nil, err
			}
			cols = append(cols, col)
		default:
			col, err := computedColumn(item, item.Expr)
			if err != nil {
				return nil, err
			}
			cols = append(cols, col)
		}
	}

	return cols, nil
}

func computedColumn(item ast.SelectItem, expr ast.Expr) (selectColumn, error) {
	name := item.Alias
	if name == "" {
		name = firstColumn(expr)
	}
	if name == "" {
		return selectColumn{}, &TranslationError{Message: fmt.Sprintf("translator: computed column %s requires an alias", render.Expr(expr))}
	}
	body, err := renderScalar(expr)
	if err != nil {
		return selectColumn{}, err
	}
	return selectColumn{name: name, extend: name + " = " + body}, nil
}

// projectStage renders the project operator, or "" when the select list
// keeps the whole row.
func projectStage(cols []selectColumn) string {
	if len(cols) == 0 {
		return ""
	}
	parts := make([]string, 0, len(cols))
	for _, col := range cols {
		if col.star {
			return ""
		}
		if col.source != "" && col.source != col.name {
			parts = append(parts, col.name+" = "+col.source)
			continue
		}
		parts = append(parts, col.name)
	}
	return "project " + strings.Join(parts, ", ")
}

// summarizeStage renders the summarize operator for a grouped select.
// Grouped columns already surface through the by clause; other plain
// columns are carried with any().
func summarizeStage(cols []selectColumn, groupBy []ast.Expr) (string, error) {
	groupNames := make([]string, 0, len(groupBy))
	grouped := make(map[string]struct{}, len(groupBy))
	for _, expr := range groupBy {
		name, err := renderScalar(expr)
		if err != nil {
			return "", err
		}
		groupNames = append(groupNames, name)
		grouped[name] = struct{}{}
	}

	items := make([]string, 0, len(cols))
	for _, col := range cols {
		if col.star {
			continue
		}
		if col.agg != nil {
			call, err := renderAggregate(col.agg)
			if err != nil {
				return "", err
			}
			if col.name != aggregateArgColumn(col.agg) {
				call = col.name + " = " + call
			}
			items = append(items, call)
			continue
		}
		underlying := col.name
		if col.source != "" {
			underlying = col.source
		}
		if _, ok := grouped[underlying]; ok {
			continue
		}
		item := "any(" + underlying + ")"
		if col.source != "" {
			item = col.name + " = " + item
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		return "summarize by " + strings.Join(groupNames, ", "), nil
	}
	return "summarize " + strings.Join(items, ", ") + " by " + strings.Join(groupNames, ", "), nil
}

func orderByStage(orderBy []ast.OrderItem) (string, error) {
	parts := make([]string, 0, len(orderBy))
	for _, item := range orderBy {
		text, err := renderScalar(item.Expr)
		if err != nil {
			return "", err
		}
		if item.Direction == ast.Descending {
			text += " desc"
		}
		parts = append(parts, text)
	}
	return "order by " + strings.Join(parts, ", "), nil
}

// fromPipeline builds the pipeline prefix for a FROM clause: the base
// source (table or nested subquery) followed by join stages.
func fromPipeline(from ast.TableExpr, targetTables map[string]string) (*Pipeline, error) {
	switch t := from.(type) {
	case *ast.TableName:
		if t.Name == nil || len(t.Name.Parts) == 0 {
			return nil, &TranslationError{Message: "translator: invalid table reference"}
		}
		name := t.Name.Column()
		if replacement, ok := targetTables[name]; ok {
			name = replacement
		}
		pipe := &Pipeline{}
		pipe.add(StageSource, name)
		return pipe, nil
	case *ast.SubqueryTable:
		return TranslateSelectStatement(t.Select, targetTables)
	case *ast.JoinExpr:
		if t.Type != ast.JoinInner {
			return nil, &TranslationError{Message: fmt.Sprintf("translator: %s JOIN is not supported", t.Type)}
		}
		left, err := fromPipeline(t.Left, targetTables)
		if err != nil {
			return nil, err
		}
		right, err := fromPipeline(t.Right, targetTables)
		if err != nil {
			return nil, err
		}
		cond, err := renderJoinOn(t.Condition.On, factorNames(t.Left), factorNames(t.Right))
		if err != nil {
			return nil, err
		}
		left.add(StageJoin, "join kind=inner ("+right.String()+") on "+cond)
		return left, nil
	case nil:
		return nil, &TranslationError{Message: "translator: missing FROM clause"}
	default:
		return nil, &TranslationError{Message: fmt.Sprintf("translator: unsupported FROM clause %T", t)}
	}
}

// sideNames is the set of names one join side answers to. Top names
// belong to the factor itself (table names and aliases); deep names
// come from tables nested inside subquery sources and only decide a
// qualifier no top name claims.
type sideNames struct {
	top  map[string]struct{}
	deep map[string]struct{}
}

// sourceNameCollector gathers every name reachable from a join side,
// including the tables referenced inside subquery sources.
type sourceNameCollector struct {
	names map[string]struct{}
}

func (c *sourceNameCollector) Visit(node ast.Node) ast.Visitor {
	switch n := node.(type) {
	case *ast.TableName:
		if n.Name != nil && len(n.Name.Parts) > 0 {
			c.names[strings.ToLower(n.Name.Column())] = struct{}{}
		}
		if n.Alias != "" {
			c.names[strings.ToLower(n.Alias)] = struct{}{}
		}
		return nil
	case *ast.SubqueryTable:
		if n.Alias != "" {
			c.names[strings.ToLower(n.Alias)] = struct{}{}
		}
	}
	return c
}

func factorNames(expr ast.TableExpr) sideNames {
	collector := &sourceNameCollector{names: make(map[string]struct{})}
	ast.Walk(collector, expr)
	return sideNames{top: topLevelNames(expr), deep: collector.names}
}

// topLevelNames collects the names of the factor itself, without
// descending into subqueries.
func topLevelNames(expr ast.TableExpr) map[string]struct{} {
	names := make(map[string]struct{})
	addTopLevelNames(expr, names)
	return names
}

func addTopLevelNames(expr ast.TableExpr, names map[string]struct{}) {
	switch t := expr.(type) {
	case *ast.TableName:
		if t.Name != nil && len(t.Name.Parts) > 0 {
			names[strings.ToLower(t.Name.Column())] = struct{}{}
		}
		if t.Alias != "" {
			names[strings.ToLower(t.Alias)] = struct{}{}
		}
	case *ast.SubqueryTable:
		if t.Alias != "" {
			names[strings.ToLower(t.Alias)] = struct{}{}
		}
	case *ast.JoinExpr:
		addTopLevelNames(t.Left, names)
		addTopLevelNames(t.Right, names)
	}
}

// renderJoinOn renders an ON predicate with $left/$right qualification.
// For an equality the operand belonging to the joined (right) source is
// rendered first, so operand order in the input never changes which
// physical source each column binds to.
func renderJoinOn(on ast.Expr, leftNames, rightNames sideNames) (string, error) {
	if on == nil {
		return "", &TranslationError{Message: "translator: JOIN requires an ON predicate"}
	}
	conjuncts := flattenAnd(on)
	parts := make([]string, 0, len(conjuncts))
	for _, conjunct := range conjuncts {
		part, err := renderJoinConjunct(conjunct, leftNames, rightNames)
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, " and "), nil
}

func flattenAnd(expr ast.Expr) []ast.Expr {
	if bin, ok := expr.(*ast.BinaryExpr); ok && bin.Operator == "AND" {
		return append(flattenAnd(bin.Left), flattenAnd(bin.Right)...)
	}
	return []ast.Expr{expr}
}

func renderJoinConjunct(expr ast.Expr, leftNames, rightNames sideNames) (string, error) {
	bin, ok := expr.(*ast.BinaryExpr)
	if !ok {
		return "", &TranslationError{Message: fmt.Sprintf("translator: unsupported JOIN condition %s", render.Expr(expr))}
	}
	op, ok := comparisonOps[bin.Operator]
	if !ok {
		return "", &TranslationError{Message: fmt.Sprintf("translator: unsupported JOIN operator %s", bin.Operator)}
	}

	leftSide := operandSide(bin.Left, leftNames, rightNames)
	rightSide := operandSide(bin.Right, leftNames, rightNames)
	switch {
	case leftSide == "" && rightSide == "":
		// unqualified predicate: the first-named operand belongs to
		// the joined source
		leftSide, rightSide = "right", "left"
	case leftSide == "":
		leftSide = oppositeSide(rightSide)
	case rightSide == "":
		rightSide = oppositeSide(leftSide)
	}

	first, err := renderJoinOperand(bin.Left, leftSide)
	if err != nil {
		return "", err
	}
	second, err := renderJoinOperand(bin.Right, rightSide)
	if err != nil {
		return "", err
	}
	if op == "==" && rightSide == "right" && leftSide != "right" {
		first, second = second, first
	}
	return first + " " + op + " " + second, nil
}

// operandSide resolves a qualifier against both join sides. Top-level
// names win over names shadowed inside a subquery, so an outer table
// reused within the other side's subquery still binds to its own side.
func operandSide(expr ast.Expr, leftNames, rightNames sideNames) string {
	ident, ok := expr.(*ast.Identifier)
	if !ok {
		return ""
	}
	qualifier := strings.ToLower(ident.Qualifier())
	if qualifier == "" {
		return ""
	}
	if _, ok := rightNames.top[qualifier]; ok {
		return "right"
	}
	if _, ok := leftNames.top[qualifier]; ok {
		return "left"
	}
	if _, ok := rightNames.deep[qualifier]; ok {
		return "right"
	}
	if _, ok := leftNames.deep[qualifier]; ok {
		return "left"
	}
	return ""
}

func oppositeSide(side string) string {
	if side == "right" {
		return "left"
	}
	return "right"
}

func renderJoinOperand(expr ast.Expr, side string) (string, error) {
	if ident, ok := expr.(*ast.Identifier); ok {
		return "$" + side + "." + ident.Column(), nil
	}
	return renderScalar(expr)
}
