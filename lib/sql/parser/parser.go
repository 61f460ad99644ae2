package parser

import (
	"strconv"
	"strings"

	"github.com/kustoforge/sql-to-kql/lib/sql/ast"
	"github.com/kustoforge/sql-to-kql/lib/sql/lexer"
	"github.com/kustoforge/sql-to-kql/lib/sql/token"
)

const (
	// MaxParserDepth limits recursion depth to prevent stack overflow
	MaxParserDepth = 100
	// MaxExpressionCount limits number of expressions in lists
	MaxExpressionCount = 1000
)

// Parser consumes SQL tokens and produces an AST for the SELECT subset
// understood by the KQL translator.
type Parser struct {
	l      *lexer.Lexer
	errors []error

	curToken  token.Token
	peekToken token.Token

	clause string // clause currently being parsed, for diagnostics
	depth  int    // current recursion depth
}

// New returns a parser over the provided lexer.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l, errors: make([]error, 0)}
	p.nextToken()
	p.nextToken()
	return p
}

// Parse is a convenience wrapper that lexes and parses a single SELECT
// statement, returning the first error encountered.
func Parse(sql string) (*ast.SelectStatement, error) {
	p := New(lexer.New(sql))
	stmt := p.ParseStatement()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, errs[0]
	}
	return stmt, nil
}

// Errors exposes parsing errors encountered so far.
func (p *Parser) Errors() []error {
	return p.errors
}

func (p *Parser) addMalformed(pos token.Position, msg string) {
	p.errors = append(p.errors, &MalformedQueryError{Pos: pos, Msg: msg})
}

func (p *Parser) addParse(pos token.Position, fragment, msg string) {
	p.errors = append(p.errors, &ParseError{Pos: pos, Clause: p.clause, Fragment: fragment, Msg: msg})
}

func (p *Parser) addUnsupported(pos token.Position, construct string) {
	p.errors = append(p.errors, &UnsupportedConstructError{Pos: pos, Construct: construct})
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t token.Type) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t token.Type) bool { return p.peekToken.Type == t }

func (p *Parser) expectPeek(t token.Type) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.addMalformed(p.peekToken.Pos, "expected "+string(t)+", got "+string(p.peekToken.Type))
	return false
}

// ParseStatement parses a single top-level SELECT statement.
func (p *Parser) ParseStatement() *ast.SelectStatement {
	var stmt *ast.SelectStatement

	switch p.curToken.Type {
	case token.SELECT:
		stmt = p.parseSelectStatement()
	case token.WITH:
		p.addUnsupported(p.curToken.Pos, "common table expression (WITH)")
	case token.EOF:
		p.addMalformed(p.curToken.Pos, "empty query")
	default:
		p.addMalformed(p.curToken.Pos, "statement must start with SELECT, got "+string(p.curToken.Type))
	}

	consumedSemicolon := p.consumeSemicolons()
	if !p.peekTokenIs(token.EOF) {
		tok := p.peekToken
		if consumedSemicolon {
			tok = p.curToken
		}
		p.addMalformed(tok.Pos, "unexpected "+string(tok.Type)+" after statement")
	}

	return stmt
}

func (p *Parser) consumeSemicolons() bool {
	consumed := false
	for p.curTokenIs(token.SEMICOLON) || p.peekTokenIs(token.SEMICOLON) {
		consumed = true
		p.nextToken()
	}
	return consumed
}

func (p *Parser) parseSelectStatement() *ast.SelectStatement {
	p.depth++
	if p.depth > MaxParserDepth {
		p.addMalformed(p.curToken.Pos, "maximum nesting depth exceeded")
		p.depth--
		return nil
	}
	defer func() { p.depth-- }()

	stmt := p.parseSelectCore()
	if stmt == nil {
		return nil
	}
	return p.parseSetOperations(stmt)
}

func (p *Parser) parseSelectCore() *ast.SelectStatement {
	stmt := &ast.SelectStatement{}
	p.clause = "SELECT"

	if p.peekTokenIs(token.DISTINCT) {
		p.nextToken()
		stmt.Distinct = true
	}

	if p.peekTokenIs(token.FROM) || p.peekTokenIs(token.EOF) {
		p.addMalformed(p.peekToken.Pos, "SELECT list is empty")
	} else {
		p.nextToken()
		stmt.Columns = p.parseSelectList()
	}

	if p.peekTokenIs(token.FROM) {
		p.expectPeek(token.FROM)
		p.clause = "FROM"
		p.nextToken()
		stmt.From = p.parseTableExpression()
	} else {
		p.addMalformed(p.peekToken.Pos, "missing FROM clause")
	}

	if p.peekTokenIs(token.WHERE) {
		p.expectPeek(token.WHERE)
		p.clause = "WHERE"
		p.nextToken()
		stmt.Where = p.parseExpression(lowest)
	}

	if p.peekTokenIs(token.GROUP) {
		p.expectPeek(token.GROUP)
		if p.expectPeek(token.BY) {
			p.clause = "GROUP BY"
			p.nextToken()
			stmt.GroupBy = p.parseExpressionList()
		}
	}

	if p.peekTokenIs(token.HAVING) {
		p.addUnsupported(p.peekToken.Pos, "HAVING")
		return stmt
	}

	if p.peekTokenIs(token.ORDER) {
		p.expectPeek(token.ORDER)
		if p.expectPeek(token.BY) {
			p.clause = "ORDER BY"
			p.nextToken()
			stmt.OrderBy = p.parseOrderList()
		}
	}

	if p.peekTokenIs(token.LIMIT) {
		p.expectPeek(token.LIMIT)
		p.clause = "LIMIT"
		stmt.Limit = p.parseLimitClause()
	}

	if p.peekTokenIs(token.OFFSET) {
		p.addUnsupported(p.peekToken.Pos, "OFFSET")
	}

	return stmt
}

func (p *Parser) parseLimitClause() *ast.LimitClause {
	negative := false
	if p.peekTokenIs(token.MINUS) {
		negative = true
		p.nextToken()
	}
	if !p.expectPeek(token.NUMBER) {
		return nil
	}
	count, err := strconv.Atoi(p.curToken.Literal)
	if err != nil || negative {
		p.addParse(p.curToken.Pos, p.curToken.Literal, "LIMIT requires a non-negative integer")
		return nil
	}
	return &ast.LimitClause{Count: count}
}

func (p *Parser) parseSetOperations(stmt *ast.SelectStatement) *ast.SelectStatement {
	for {
		switch p.peekToken.Type {
		case token.UNION:
		case token.INTERSECT, token.EXCEPT:
			p.addUnsupported(p.peekToken.Pos, string(p.peekToken.Type))
			return stmt
		default:
			return stmt
		}

		p.nextToken()
		all := false
		if p.peekTokenIs(token.ALL) {
			p.nextToken()
			all = true
		}

		var right *ast.SelectStatement
		if p.peekTokenIs(token.LPAREN) {
			p.expectPeek(token.LPAREN)
			if !p.expectPeek(token.SELECT) {
				return stmt
			}
			right = p.parseSelectStatement()
			if !p.expectPeek(token.RPAREN) {
				return stmt
			}
		} else {
			if !p.expectPeek(token.SELECT) {
				return stmt
			}
			right = p.parseSelectStatement()
		}

		stmt.SetOps = append(stmt.SetOps, ast.SetOperation{Operator: ast.SetOpUnion, All: all, Select: right})
	}
}

func (p *Parser) parseSelectList() []ast.SelectItem {
	items := make([]ast.SelectItem, 0)

	for {
		if len(items) >= MaxExpressionCount {
			p.addMalformed(p.curToken.Pos, "maximum expression count exceeded")
			break
		}

		var expr ast.Expr
		switch p.curToken.Type {
		case token.STAR:
			expr = &ast.StarExpr{}
		default:
			expr = p.parseExpression(lowest)
		}

		alias := p.parseAliasIfPresent()
		items = append(items, ast.SelectItem{Expr: expr, Alias: alias})

		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			p.nextToken()
			continue
		}
		break
	}

	return items
}

func (p *Parser) parseOrderList() []ast.OrderItem {
	items := make([]ast.OrderItem, 0)

	for {
		expr := p.parseExpression(lowest)
		direction := ast.Ascending
		if p.peekTokenIs(token.DESC) || p.peekTokenIs(token.ASC) {
			p.nextToken()
			if p.curTokenIs(token.DESC) {
				direction = ast.Descending
			}
		}
		items = append(items, ast.OrderItem{Expr: expr, Direction: direction})
		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			p.nextToken()
			continue
		}
		break
	}

	return items
}

func (p *Parser) parseExpressionList() []ast.Expr {
	exprs := []ast.Expr{p.parseExpression(lowest)}
	for p.peekTokenIs(token.COMMA) {
		if len(exprs) >= MaxExpressionCount {
			p.addMalformed(p.peekToken.Pos, "maximum expression count exceeded")
			break
		}
		p.nextToken()
		p.nextToken()
		exprs = append(exprs, p.parseExpression(lowest))
	}
	return exprs
}

func (p *Parser) parseAliasIfPresent() string {
	if p.peekTokenIs(token.AS) {
		p.nextToken()
		if !p.expectPeek(token.IDENT) {
			return ""
		}
		return p.curToken.Literal
	}
	if p.peekTokenIs(token.IDENT) {
		p.nextToken()
		return p.curToken.Literal
	}
	return ""
}

func (p *Parser) parseTableExpression() ast.TableExpr {
	left := p.parseTableFactor()

	for {
		switch p.peekToken.Type {
		case token.JOIN, token.INNER:
		case token.LEFT, token.RIGHT, token.FULL, token.CROSS:
			p.addUnsupported(p.peekToken.Pos, string(p.peekToken.Type)+" JOIN")
			return left
		default:
			return left
		}

		p.nextToken()
		if p.curTokenIs(token.INNER) {
			if !p.expectPeek(token.JOIN) {
				return left
			}
		}

		p.nextToken()
		right := p.parseTableFactor()
		join := &ast.JoinExpr{Left: left, Right: right, Type: ast.JoinInner}
		if p.peekTokenIs(token.ON) {
			p.expectPeek(token.ON)
			p.clause = "ON"
			p.nextToken()
			join.Condition.On = p.parseExpression(lowest)
		} else {
			p.addMalformed(p.peekToken.Pos, "JOIN requires an ON predicate")
		}
		left = join
	}
}

func (p *Parser) parseTableFactor() ast.TableExpr {
	switch p.curToken.Type {
	case token.IDENT:
		ident := p.parseQualifiedName()
		tbl := &ast.TableName{Name: ident}
		if alias := p.parseAliasIfPresent(); alias != "" {
			tbl.Alias = alias
		}
		return tbl
	case token.LPAREN:
		p.nextToken()
		switch p.curToken.Type {
		case token.SELECT:
			sub := p.parseSelectStatement()
			if !p.expectPeek(token.RPAREN) {
				return nil
			}
			return &ast.SubqueryTable{Select: sub, Alias: p.parseAliasIfPresent()}
		case token.WITH:
			p.addUnsupported(p.curToken.Pos, "common table expression (WITH)")
			return nil
		case token.EOF:
			p.addMalformed(p.curToken.Pos, "unbalanced parentheses in FROM clause")
			return nil
		default:
			nested := p.parseTableExpression()
			if !p.expectPeek(token.RPAREN) {
				return nested
			}
			return nested
		}
	case token.EOF:
		p.addMalformed(p.curToken.Pos, "missing table reference in FROM clause")
		return nil
	default:
		p.addMalformed(p.curToken.Pos, "unexpected "+string(p.curToken.Type)+" in FROM clause")
		return nil
	}
}

func (p *Parser) parseIdentifier() *ast.Identifier {
	return &ast.Identifier{Parts: []string{p.curToken.Literal}}
}

func (p *Parser) parseQualifiedName() *ast.Identifier {
	parts := []string{p.curToken.Literal}
	for p.peekTokenIs(token.DOT) {
		p.nextToken()
		if !p.expectPeek(token.IDENT) {
			return &ast.Identifier{Parts: parts}
		}
		parts = append(parts, p.curToken.Literal)
	}
	return &ast.Identifier{Parts: parts}
}

const (
	_ int = iota
	lowest
	precedenceOr
	precedenceAnd
	precedenceNot
	precedenceComparison
	precedenceSum
	precedenceProduct
	precedencePrefix
	precedenceCall
)

var precedences = map[token.Type]int{
	token.OR:      precedenceOr,
	token.AND:     precedenceAnd,
	token.NOT:     precedenceComparison,
	token.EQ:      precedenceComparison,
	token.NEQ:     precedenceComparison,
	token.LT:      precedenceComparison,
	token.LTE:     precedenceComparison,
	token.GT:      precedenceComparison,
	token.GTE:     precedenceComparison,
	token.IN:      precedenceComparison,
	token.BETWEEN: precedenceComparison,
	token.LIKE:    precedenceComparison,
	token.RLIKE:   precedenceComparison,
	token.IS:      precedenceComparison,
	token.PLUS:    precedenceSum,
	token.MINUS:   precedenceSum,
	token.STAR:    precedenceProduct,
	token.SLASH:   precedenceProduct,
	token.PERCENT: precedenceProduct,
	token.DOT:     precedenceCall,
	token.LPAREN:  precedenceCall,
	token.OVER:    precedenceCall,
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}
	return lowest
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.curToken.Type]; ok {
		return prec
	}
	return lowest
}

func (p *Parser) parseExpression(precedence int) ast.Expr {
	p.depth++
	if p.depth > MaxParserDepth {
		p.addMalformed(p.curToken.Pos, "expression nesting too deep")
		p.depth--
		return nil
	}
	defer func() { p.depth-- }()

	var left ast.Expr

	switch p.curToken.Type {
	case token.IDENT:
		// qualification and Table.* are handled by the infix DOT
		left = p.parseIdentifier()
	case token.NUMBER:
		left = &ast.NumericLiteral{Value: p.curToken.Literal}
	case token.STRING:
		left = &ast.StringLiteral{Value: p.curToken.Literal}
	case token.TRUE:
		left = &ast.BooleanLiteral{Value: true}
	case token.FALSE:
		left = &ast.BooleanLiteral{Value: false}
	case token.NULL:
		left = &ast.NullLiteral{}
	case token.STAR:
		left = &ast.StarExpr{}
	case token.MINUS:
		p.nextToken()
		expr := p.parseExpression(precedencePrefix)
		left = &ast.UnaryExpr{Operator: "-", Expr: expr}
	case token.NOT:
		// NOT binds looser than comparison: NOT a = b negates a = b
		p.nextToken()
		expr := p.parseExpression(precedenceNot)
		left = &ast.UnaryExpr{Operator: "NOT", Expr: expr}
	case token.LPAREN:
		p.nextToken()
		if p.curTokenIs(token.SELECT) {
			p.addUnsupported(p.curToken.Pos, "scalar subquery")
			return nil
		}
		expr := p.parseExpression(lowest)
		if !p.expectPeek(token.RPAREN) {
			return expr
		}
		left = expr
	case token.EXISTS:
		p.addUnsupported(p.curToken.Pos, "EXISTS subquery")
		return nil
	case token.SELECT:
		p.addUnsupported(p.curToken.Pos, "correlated subquery")
		return nil
	default:
		p.addParse(p.curToken.Pos, p.curToken.Literal, "unexpected "+string(p.curToken.Type)+" in expression")
		return nil
	}

	for {
		prec := p.peekPrecedence()
		if precedence >= prec {
			break
		}

		p.nextToken()
		left = p.parseInfixExpression(left)
	}

	return left
}

func (p *Parser) parseInfixExpression(left ast.Expr) ast.Expr {
	switch p.curToken.Type {
	case token.PLUS, token.MINUS, token.STAR, token.SLASH, token.PERCENT,
		token.NEQ, token.LT, token.LTE, token.GT, token.GTE,
		token.AND, token.OR:
		operator := strings.ToUpper(p.curToken.Literal)
		precedence := p.curPrecedence()
		p.nextToken()
		right := p.parseExpression(precedence)
		return &ast.BinaryExpr{Left: left, Operator: operator, Right: right}
	case token.EQ:
		// both = and == lex to EQ; normalize the operator spelling
		precedence := p.curPrecedence()
		p.nextToken()
		right := p.parseExpression(precedence)
		return &ast.BinaryExpr{Left: left, Operator: "=", Right: right}
	case token.IN:
		return p.parseInExpression(left, false)
	case token.LIKE:
		return p.parseLikeExpression(left, false)
	case token.RLIKE:
		return p.parseRLikeExpression(left, false)
	case token.BETWEEN:
		return p.parseBetweenExpression(left, false)
	case token.IS:
		p.addUnsupported(p.curToken.Pos, "IS NULL")
		return left
	case token.NOT:
		switch {
		case p.peekTokenIs(token.IN):
			p.nextToken()
			return p.parseInExpression(left, true)
		case p.peekTokenIs(token.LIKE):
			p.nextToken()
			return p.parseLikeExpression(left, true)
		case p.peekTokenIs(token.RLIKE):
			p.nextToken()
			return p.parseRLikeExpression(left, true)
		case p.peekTokenIs(token.BETWEEN):
			p.nextToken()
			return p.parseBetweenExpression(left, true)
		default:
			precedence := p.curPrecedence()
			p.nextToken()
			right := p.parseExpression(precedence)
			return &ast.BinaryExpr{Left: left, Operator: "NOT", Right: right}
		}
	case token.LPAREN:
		ident, ok := left.(*ast.Identifier)
		if !ok {
			return left
		}
		call := &ast.FuncCall{Name: *ident}
		if p.peekTokenIs(token.RPAREN) {
			p.expectPeek(token.RPAREN)
			return call
		}
		p.nextToken()
		if p.curTokenIs(token.DISTINCT) {
			call.Distinct = true
			p.nextToken()
		}
		call.Args = append(call.Args, p.parseExpression(lowest))
		for p.peekTokenIs(token.COMMA) {
			p.nextToken()
			p.nextToken()
			call.Args = append(call.Args, p.parseExpression(lowest))
		}
		p.expectPeek(token.RPAREN)
		return call
	case token.OVER:
		p.addUnsupported(p.curToken.Pos, "window function (OVER)")
		return left
	case token.DOT:
		ident, ok := left.(*ast.Identifier)
		if !ok {
			return left
		}
		p.nextToken()
		if p.curTokenIs(token.STAR) {
			return &ast.StarExpr{Table: ident}
		}
		if !p.curTokenIs(token.IDENT) {
			p.addParse(p.curToken.Pos, p.curToken.Literal, "expected identifier after '.'")
			return left
		}
		parts := append(append([]string{}, ident.Parts...), p.curToken.Literal)
		return &ast.Identifier{Parts: parts}
	default:
		return left
	}
}

func (p *Parser) parseInExpression(left ast.Expr, not bool) ast.Expr {
	expr := &ast.InExpr{Expr: left, Not: not}
	if !p.expectPeek(token.LPAREN) {
		return expr
	}
	p.nextToken()
	if p.curTokenIs(token.SELECT) {
		p.addUnsupported(p.curToken.Pos, "IN subquery")
		return expr
	}
	expr.List = append(expr.List, p.parseExpression(lowest))
	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		expr.List = append(expr.List, p.parseExpression(lowest))
	}
	p.expectPeek(token.RPAREN)
	return expr
}

func (p *Parser) parseLikeExpression(left ast.Expr, not bool) ast.Expr {
	p.nextToken()
	pattern := p.parseExpression(precedenceComparison)
	return &ast.LikeExpr{Expr: left, Not: not, Pattern: pattern}
}

func (p *Parser) parseRLikeExpression(left ast.Expr, not bool) ast.Expr {
	p.nextToken()
	pattern := p.parseExpression(precedenceComparison)
	return &ast.RLikeExpr{Expr: left, Not: not, Pattern: pattern}
}

func (p *Parser) parseBetweenExpression(left ast.Expr, not bool) ast.Expr {
	between := &ast.BetweenExpr{Expr: left, Not: not}
	p.nextToken()
	between.Lower = p.parseExpression(precedenceComparison)
	if !p.expectPeek(token.AND) {
		return between
	}
	p.nextToken()
	between.Upper = p.parseExpression(precedenceComparison)
	return between
}
