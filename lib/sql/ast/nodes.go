package ast

// Node represents any AST element that can accept a Visitor.
type Node interface {
	Accept(Visitor)
}

// Statement is the root type for SQL statements.
type Statement interface {
	Node
	statementNode()
}

// Expr models SQL expressions.
type Expr interface {
	Node
	exprNode()
}

// TableExpr represents selectable table expressions.
type TableExpr interface {
	Node
	tableNode()
}

// SelectItem describes an item in the SELECT list.
type SelectItem struct {
	Expr  Expr
	Alias string
}

// OrderItem represents ORDER BY terms.
type OrderItem struct {
	Expr      Expr
	Direction OrderDirection
}

// OrderDirection enumerates ORDER BY directions.
type OrderDirection string

const (
	Ascending  OrderDirection = "ASC"
	Descending OrderDirection = "DESC"
)

// LimitClause captures the LIMIT row bound.
type LimitClause struct {
	Count int
}

// SelectStatement captures a SELECT query.
type SelectStatement struct {
	Distinct bool
	Columns  []SelectItem
	From     TableExpr
	Where    Expr
	GroupBy  []Expr
	OrderBy  []OrderItem
	Limit    *LimitClause
	SetOps   []SetOperation
}

func (*SelectStatement) statementNode() {}

// Identifier models possibly qualified identifiers.
type Identifier struct {
	Parts []string
}

func (Identifier) exprNode()  {}
func (Identifier) tableNode() {}

// Column returns the unqualified column name.
func (i *Identifier) Column() string {
	if i == nil || len(i.Parts) == 0 {
		return ""
	}
	return i.Parts[len(i.Parts)-1]
}

// Qualifier returns the table qualifier, if any.
func (i *Identifier) Qualifier() string {
	if i == nil || len(i.Parts) < 2 {
		return ""
	}
	return i.Parts[0]
}

// TableName represents a table reference with optional alias.
type TableName struct {
	Name  *Identifier
	Alias string
}

func (*TableName) tableNode() {}

// SubqueryTable wraps a subquery used as table expression.
type SubqueryTable struct {
	Select *SelectStatement
	Alias  string
}

func (*SubqueryTable) tableNode() {}

// JoinType enumerates ANSI join types recognized by the grammar.
type JoinType string

const (
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
	JoinRight JoinType = "RIGHT"
	JoinFull  JoinType = "FULL"
	JoinCross JoinType = "CROSS"
)

// JoinExpr represents a JOIN expression.
type JoinExpr struct {
	Left      TableExpr
	Right     TableExpr
	Type      JoinType
	Condition JoinCondition
}

func (*JoinExpr) tableNode() {}

// JoinCondition captures ON clauses.
type JoinCondition struct {
	On Expr
}

// SetOperator describes set combination types.
type SetOperator string

const (
	SetOpUnion SetOperator = "UNION"
)

// SetOperation joins the current SELECT with another via UNION.
type SetOperation struct {
	Operator SetOperator
	All      bool
	Select   *SelectStatement
}

// StarExpr denotes the wildcard selector.
type StarExpr struct {
	Table *Identifier
}

func (*StarExpr) exprNode() {}

// Literal kinds.
type (
	NumericLiteral struct{ Value string }
	StringLiteral  struct{ Value string }
	BooleanLiteral struct{ Value bool }
	NullLiteral    struct{}
)

func (*NumericLiteral) exprNode() {}
func (*StringLiteral) exprNode()  {}
func (*BooleanLiteral) exprNode() {}
func (*NullLiteral) exprNode()    {}

// BinaryExpr models binary operations like a+b or a AND b.
type BinaryExpr struct {
	Left     Expr
	Operator string
	Right    Expr
}

func (*BinaryExpr) exprNode() {}

// UnaryExpr models prefix operators.
type UnaryExpr struct {
	Operator string
	Expr     Expr
}

func (*UnaryExpr) exprNode() {}

// FuncCall models function invocations.
type FuncCall struct {
	Name     Identifier
	Distinct bool
	Args     []Expr
}

func (*FuncCall) exprNode() {}

// BetweenExpr models BETWEEN operations.
type BetweenExpr struct {
	Expr  Expr
	Lower Expr
	Upper Expr
	Not   bool
}

func (*BetweenExpr) exprNode() {}

// InExpr models IN and NOT IN over a literal list.
type InExpr struct {
	Expr Expr
	Not  bool
	List []Expr
}

func (*InExpr) exprNode() {}

// LikeExpr models LIKE expressions.
type LikeExpr struct {
	Expr    Expr
	Not     bool
	Pattern Expr
}

func (*LikeExpr) exprNode() {}

// RLikeExpr models RLIKE (regular-expression match) expressions.
type RLikeExpr struct {
	Expr    Expr
	Not     bool
	Pattern Expr
}

func (*RLikeExpr) exprNode() {}
