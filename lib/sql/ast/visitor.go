package ast

// Visitor is implemented by algorithms that walk the AST.
type Visitor interface {
	Visit(Node) Visitor
}

// Accept satisfies Node for SelectStatement.
func (s *SelectStatement) Accept(v Visitor) { Walk(v, s) }
func (i *Identifier) Accept(v Visitor)      { Walk(v, i) }
func (t *TableName) Accept(v Visitor)       { Walk(v, t) }
func (t *SubqueryTable) Accept(v Visitor)   { Walk(v, t) }
func (j *JoinExpr) Accept(v Visitor)        { Walk(v, j) }
func (s *StarExpr) Accept(v Visitor)        { Walk(v, s) }
func (n *NumericLiteral) Accept(v Visitor)  { Walk(v, n) }
func (s *StringLiteral) Accept(v Visitor)   { Walk(v, s) }
func (b *BooleanLiteral) Accept(v Visitor)  { Walk(v, b) }
func (n *NullLiteral) Accept(v Visitor)     { Walk(v, n) }
func (b *BinaryExpr) Accept(v Visitor)      { Walk(v, b) }
func (u *UnaryExpr) Accept(v Visitor)       { Walk(v, u) }
func (f *FuncCall) Accept(v Visitor)        { Walk(v, f) }
func (b *BetweenExpr) Accept(v Visitor)     { Walk(v, b) }
func (i *InExpr) Accept(v Visitor)          { Walk(v, i) }
func (l *LikeExpr) Accept(v Visitor)        { Walk(v, l) }
func (r *RLikeExpr) Accept(v Visitor)       { Walk(v, r) }

// Walk traverses the AST rooted at node using the provided visitor.
func Walk(v Visitor, node Node) {
	if node == nil || v == nil {
		return
	}
	if v = v.Visit(node); v == nil {
		return
	}

	switch n := node.(type) {
	case *SelectStatement:
		for i := range n.Columns {
			if n.Columns[i].Expr != nil {
				Walk(v, n.Columns[i].Expr)
			}
		}
		Walk(v, n.From)
		Walk(v, n.Where)
		for _, g := range n.GroupBy {
			Walk(v, g)
		}
		for _, o := range n.OrderBy {
			Walk(v, o.Expr)
		}
		for _, op := range n.SetOps {
			Walk(v, op.Select)
		}
	case *TableName:
		Walk(v, n.Name)
	case *SubqueryTable:
		Walk(v, n.Select)
	case *JoinExpr:
		Walk(v, n.Left)
		Walk(v, n.Right)
		Walk(v, n.Condition.On)
	case *StarExpr:
		Walk(v, n.Table)
	case *BinaryExpr:
		Walk(v, n.Left)
		Walk(v, n.Right)
	case *UnaryExpr:
		Walk(v, n.Expr)
	case *FuncCall:
		for i := range n.Args {
			Walk(v, n.Args[i])
		}
	case *BetweenExpr:
		Walk(v, n.Expr)
		Walk(v, n.Lower)
		Walk(v, n.Upper)
	case *InExpr:
		Walk(v, n.Expr)
		for _, item := range n.List {
			Walk(v, item)
		}
	case *LikeExpr:
		Walk(v, n.Expr)
		Walk(v, n.Pattern)
	case *RLikeExpr:
		Walk(v, n.Expr)
		Walk(v, n.Pattern)
	}
}
