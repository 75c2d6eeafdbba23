package parser

import "github.com/EngineHub/WorldEdit-sub015/lang"

// Parse translates source text into an unbound syntax tree.
func Parse(src string) (*Program, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	return p.parseProgram()
}

// parser walks a fully lexed token slice. The cursor is a plain index so
// speculative parses can be rolled back by restoring it.
type parser struct {
	tokens   []Token
	pos      int
	loops    int
	switches int
}

func (p *parser) curr() Token {
	return p.tokens[p.pos]
}

func (p *parser) advance() Token {
	tok := p.tokens[p.pos]
	if tok.Type != tokenEOF {
		p.pos++
	}
	return tok
}

func (p *parser) expect(tt TokenType) (Token, error) {
	tok := p.curr()
	if tok.Type != tt {
		return Token{}, p.errorf(tok, "expected %s, found %s", tt, tok)
	}
	return p.advance(), nil
}

func (p *parser) parseProgram() (*Program, error) {
	start := p.curr()
	stmts, err := p.parseStatements(false)
	if err != nil {
		return nil, err
	}
	if tok := p.curr(); tok.Type != tokenEOF {
		return nil, p.errorf(tok, "extra %s at the end of the input", tok)
	}
	return &Program{Body: &BlockStmt{Stmts: stmts, Posn: start.Pos}}, nil
}

// parseStatements reads statements until a closing brace, a case label or
// the end of input. In single mode it reads exactly one statement.
func (p *parser) parseStatements(single bool) ([]Stmt, error) {
	var stmts []Stmt
loop:
	for {
		tok := p.curr()
		var (
			stmt       Stmt
			err        error
			expectSemi bool
		)
		switch tok.Type {
		case tokenEOF, tokenRBrace, tokenCase, tokenDefault:
			break loop
		case tokenSemicolon:
			p.advance()
			if !single {
				continue
			}
			stmt = &BlockStmt{Posn: tok.Pos}
		case tokenLBrace:
			stmt, err = p.parseBlock()
		case tokenIf:
			stmt, err = p.parseIfStmt()
		case tokenWhile:
			stmt, err = p.parseWhileStmt()
		case tokenDo:
			stmt, err = p.parseDoWhileStmt()
		case tokenFor:
			stmt, err = p.parseForStmt()
		case tokenBreak, tokenContinue:
			stmt, err = p.parseBranchStmt()
			if err == nil && p.curr().Type == tokenSemicolon {
				p.advance()
			}
		case tokenSwitch:
			stmt, err = p.parseSwitchStmt()
		case tokenReturn:
			stmt, err = p.parseReturnStmt()
			expectSemi = true
		default:
			var x Expr
			x, err = p.parseExpression(false)
			if err == nil {
				stmt = &ExprStmt{Expr: x, Posn: x.Pos()}
			}
			expectSemi = true
		}
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
		if expectSemi {
			if p.curr().Type != tokenSemicolon {
				break loop
			}
			p.advance()
		}
		if single {
			break
		}
	}
	if single && len(stmts) == 0 {
		tok := p.curr()
		return nil, p.errorf(tok, "statement expected, found %s", tok)
	}
	return stmts, nil
}

func (p *parser) parseStatement() (Stmt, error) {
	stmts, err := p.parseStatements(true)
	if err != nil {
		return nil, err
	}
	return stmts[0], nil
}

func (p *parser) parseBlock() (*BlockStmt, error) {
	lbrace, err := p.expect(tokenLBrace)
	if err != nil {
		return nil, err
	}
	stmts, err := p.parseStatements(false)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokenRBrace); err != nil {
		return nil, err
	}
	return &BlockStmt{Stmts: stmts, Posn: lbrace.Pos}, nil
}

// parseCondition reads a parenthesized expression.
func (p *parser) parseCondition() (Expr, error) {
	if tok := p.curr(); tok.Type != tokenLParen {
		return nil, p.errorf(tok, "expected %s, found %s", tokenLParen, tok)
	}
	return p.parseBracket()
}

func (p *parser) parseIfStmt() (Stmt, error) {
	ifTok := p.advance()
	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	then, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	var els Stmt
	if p.curr().Type == tokenElse {
		p.advance()
		els, err = p.parseStatement()
		if err != nil {
			return nil, err
		}
	}
	return &IfStmt{
		Cond: cond,
		Then: then,
		Else: els,
		Posn: ifTok.Pos,
	}, nil
}

func (p *parser) parseLoopBody() (Stmt, error) {
	p.loops++
	defer func() { p.loops-- }()
	return p.parseStatement()
}

func (p *parser) parseWhileStmt() (Stmt, error) {
	whTok := p.advance()
	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	body, err := p.parseLoopBody()
	if err != nil {
		return nil, err
	}
	return &WhileStmt{
		Cond: cond,
		Body: body,
		Posn: whTok.Pos,
	}, nil
}

func (p *parser) parseDoWhileStmt() (Stmt, error) {
	doTok := p.advance()
	body, err := p.parseLoopBody()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokenWhile); err != nil {
		return nil, err
	}
	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokenSemicolon); err != nil {
		return nil, err
	}
	return &WhileStmt{
		Cond:    cond,
		Body:    body,
		DoWhile: true,
		Posn:    doTok.Pos,
	}, nil
}

// parseForStmt first tries the three-clause form. When the initializer is
// not followed by ';' the cursor is rewound and the range form
// for (name = first, last) is parsed instead.
func (p *parser) parseForStmt() (Stmt, error) {
	forTok := p.advance()
	if _, err := p.expect(tokenLParen); err != nil {
		return nil, err
	}
	save := p.pos
	init, err := p.parseExpression(true)
	if err != nil {
		return nil, err
	}
	if p.curr().Type == tokenSemicolon {
		p.advance()
		return p.finishForStmt(forTok, init)
	}
	p.pos = save

	nameTok := p.curr()
	if nameTok.Type != tokenIdentifier {
		return nil, p.errorf(nameTok, "expected identifier, found %s", nameTok)
	}
	p.advance()
	if tok := p.curr(); tok.Type != tokenAssign {
		return nil, p.errorf(tok, "expected '=' or a term and ';', found %s", tok)
	}
	p.advance()
	first, err := p.parseExpression(false)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokenComma); err != nil {
		return nil, err
	}
	last, err := p.parseExpression(false)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokenRParen); err != nil {
		return nil, err
	}
	body, err := p.parseLoopBody()
	if err != nil {
		return nil, err
	}
	return &RangeForStmt{
		Counter: &IdentifierExpr{Name: nameTok.Lexeme, Posn: nameTok.Pos},
		First:   first,
		Last:    last,
		Body:    body,
		Posn:    forTok.Pos,
	}, nil
}

func (p *parser) finishForStmt(forTok Token, init Expr) (Stmt, error) {
	cond, err := p.parseExpression(true)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokenSemicolon); err != nil {
		return nil, err
	}
	step, err := p.parseExpression(true)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokenRParen); err != nil {
		return nil, err
	}
	body, err := p.parseLoopBody()
	if err != nil {
		return nil, err
	}
	return &ForStmt{
		Init: init,
		Cond: cond,
		Step: step,
		Body: body,
		Posn: forTok.Pos,
	}, nil
}

func (p *parser) parseBranchStmt() (Stmt, error) {
	tok := p.advance()
	cont := tok.Type == tokenContinue
	switch {
	case cont && p.loops == 0 && p.switches > 0:
		return nil, p.errorf(tok, "continue in a switch must be inside a loop")
	case cont && p.loops == 0:
		return nil, p.errorf(tok, "continue outside of a loop")
	case p.loops == 0 && p.switches == 0:
		return nil, p.errorf(tok, "break outside of a loop or switch")
	}
	return &BranchStmt{Continue: cont, Posn: tok.Pos}, nil
}

func (p *parser) parseReturnStmt() (Stmt, error) {
	retTok := p.advance()
	result, err := p.parseExpression(false)
	if err != nil {
		return nil, err
	}
	return &ReturnStmt{Result: result, Posn: retTok.Pos}, nil
}

func (p *parser) parseSwitchStmt() (Stmt, error) {
	swTok := p.advance()
	selector, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokenLBrace); err != nil {
		return nil, err
	}
	p.switches++
	defer func() { p.switches-- }()

	stmt := &SwitchStmt{Selector: selector, Posn: swTok.Pos}
	seen := make(map[float64]bool)
	for {
		tok := p.curr()
		switch tok.Type {
		case tokenRBrace:
			p.advance()
			return stmt, nil
		case tokenCase:
			if stmt.Default != nil {
				return nil, p.errorf(tok, "case after default")
			}
			p.advance()
			value, err := p.parseCaseValue()
			if err != nil {
				return nil, err
			}
			if seen[value] {
				return nil, p.errorf(tok, "duplicate cases for %s", lang.FormatNumber(value))
			}
			seen[value] = true
			body, err := p.parseClauseBody()
			if err != nil {
				return nil, err
			}
			stmt.Cases = append(stmt.Cases, &CaseClause{Value: value, Body: body, Posn: tok.Pos})
		case tokenDefault:
			if stmt.Default != nil {
				return nil, p.errorf(tok, "duplicate default case")
			}
			p.advance()
			body, err := p.parseClauseBody()
			if err != nil {
				return nil, err
			}
			stmt.Default = body
		default:
			return nil, p.errorf(tok, "expected 'case' or 'default', found %s", tok)
		}
	}
}

func (p *parser) parseCaseValue() (float64, error) {
	negative := false
	if p.curr().Type == tokenMinus {
		negative = true
		p.advance()
	}
	tok := p.curr()
	if tok.Type != tokenNumber {
		return 0, p.errorf(tok, "expected number, found %s", tok)
	}
	p.advance()
	if negative {
		return -tok.Number, nil
	}
	return tok.Number, nil
}

func (p *parser) parseClauseBody() (*BlockStmt, error) {
	colon, err := p.expect(tokenColon)
	if err != nil {
		return nil, err
	}
	stmts, err := p.parseStatements(false)
	if err != nil {
		return nil, err
	}
	return &BlockStmt{Stmts: stmts, Posn: colon.Pos}, nil
}

// errorf reports a parse error at tok. Errors at the end of input are
// marked incomplete.
func (p *parser) errorf(tok Token, format string, args ...interface{}) error {
	if tok.Type == tokenEOF {
		return newIncompleteError(ErrParse, tok.Pos, format, args...)
	}
	return newError(ErrParse, tok.Pos, format, args...)
}
