package parser

import "github.com/EngineHub/WorldEdit-sub015/lang"

// Binding strength of infix operators, loosest first.
const (
	precNone = iota
	precAssign
	precTernary
	precOr
	precAnd
	precEquality
	precRelational
	precShift
	precAdditive
	precMultiplicative
	precPower
)

var infixOps = map[TokenType]struct {
	op   lang.Op
	prec int
}{
	tokenAssign:        {lang.OpAssign, precAssign},
	tokenPlusAssign:    {lang.OpAddAssign, precAssign},
	tokenMinusAssign:   {lang.OpSubAssign, precAssign},
	tokenStarAssign:    {lang.OpMulAssign, precAssign},
	tokenSlashAssign:   {lang.OpDivAssign, precAssign},
	tokenPercentAssign: {lang.OpModAssign, precAssign},
	tokenCaretAssign:   {lang.OpPowAssign, precAssign},
	tokenQuestion:      {lang.OpInvalid, precTernary},
	tokenOrOr:          {lang.OpOr, precOr},
	tokenAndAnd:        {lang.OpAnd, precAnd},
	tokenEqualEqual:    {lang.OpEq, precEquality},
	tokenBangEqual:     {lang.OpNe, precEquality},
	tokenTildeEqual:    {lang.OpNear, precEquality},
	tokenLess:          {lang.OpLt, precRelational},
	tokenLessEqual:     {lang.OpLe, precRelational},
	tokenGreater:       {lang.OpGt, precRelational},
	tokenGreaterEqual:  {lang.OpGe, precRelational},
	tokenShiftLeft:     {lang.OpShl, precShift},
	tokenShiftRight:    {lang.OpShr, precShift},
	tokenPlus:          {lang.OpAdd, precAdditive},
	tokenMinus:         {lang.OpSub, precAdditive},
	tokenStar:          {lang.OpMul, precMultiplicative},
	tokenSlash:         {lang.OpDiv, precMultiplicative},
	tokenPercent:       {lang.OpMod, precMultiplicative},
	tokenCaret:         {lang.OpPow, precPower},
	tokenStarStar:      {lang.OpPow, precPower},
}

var prefixOps = map[TokenType]lang.Op{
	tokenPlus:       lang.OpPlus,
	tokenMinus:      lang.OpNeg,
	tokenBang:       lang.OpNot,
	tokenTilde:      lang.OpInv,
	tokenPlusPlus:   lang.OpPreInc,
	tokenMinusMinus: lang.OpPreDec,
}

var postfixOps = map[TokenType]lang.Op{
	tokenPlusPlus:   lang.OpPostInc,
	tokenMinusMinus: lang.OpPostDec,
	tokenBang:       lang.OpFactorial,
}

type itemKind uint8

const (
	itemOperand itemKind = iota
	itemPrefix
	itemPostfix
	itemInfix
)

// item is one element of the flat list built by the first phase of
// expression parsing.
type item struct {
	kind    itemKind
	operand Expr
	tok     Token
}

// parseExpression scans a maximal run of operands and operators into a flat
// list, then reduces the list by precedence. With canBeEmpty an empty run
// yields a nil expression.
func (p *parser) parseExpression(canBeEmpty bool) (Expr, error) {
	var items []item
	start := true
scan:
	for {
		tok := p.curr()
		if start {
			switch tok.Type {
			case tokenNumber:
				p.advance()
				items = append(items, item{kind: itemOperand, operand: &NumberExpr{
					Value:  tok.Number,
					Lexeme: tok.Lexeme,
					Posn:   tok.Pos,
				}})
			case tokenIdentifier:
				p.advance()
				var x Expr = &IdentifierExpr{Name: tok.Lexeme, Posn: tok.Pos}
				if p.curr().Type == tokenLParen {
					call, err := p.parseCall(tok)
					if err != nil {
						return nil, err
					}
					x = call
				}
				items = append(items, item{kind: itemOperand, operand: x})
			case tokenLParen:
				x, err := p.parseBracket()
				if err != nil {
					return nil, err
				}
				items = append(items, item{kind: itemOperand, operand: x})
			default:
				if _, ok := prefixOps[tok.Type]; !ok {
					break scan
				}
				p.advance()
				items = append(items, item{kind: itemPrefix, tok: tok})
				continue
			}
			start = false
			continue
		}
		if _, ok := postfixOps[tok.Type]; ok {
			p.advance()
			items = append(items, item{kind: itemPostfix, tok: tok})
			continue
		}
		if _, ok := infixOps[tok.Type]; ok || tok.Type == tokenColon {
			p.advance()
			items = append(items, item{kind: itemInfix, tok: tok})
			start = true
			continue
		}
		break
	}

	if len(items) == 0 {
		if canBeEmpty {
			return nil, nil
		}
		tok := p.curr()
		return nil, p.errorf(tok, "expression expected, found %s", tok)
	}
	if start {
		tok := p.curr()
		return nil, p.errorf(tok, "expression expected, found %s", tok)
	}
	return p.reduce(items)
}

// parseBracket reads ( expression ).
func (p *parser) parseBracket() (Expr, error) {
	lparen := p.advance()
	if p.curr().Type == tokenEOF {
		return nil, p.unmatched(lparen)
	}
	x, err := p.parseExpression(false)
	if err != nil {
		if IsIncomplete(err) {
			return nil, p.unmatched(lparen)
		}
		return nil, err
	}
	if p.curr().Type == tokenEOF {
		return nil, p.unmatched(lparen)
	}
	if _, err := p.expect(tokenRParen); err != nil {
		return nil, err
	}
	return x, nil
}

func (p *parser) unmatched(lparen Token) error {
	return newIncompleteError(ErrParse, lparen.Pos, "unmatched '('")
}

// parseCall reads the argument list of name and resolves the overload.
func (p *parser) parseCall(name Token) (Expr, error) {
	lparen := p.advance()
	var args []Expr
	if p.curr().Type == tokenRParen {
		p.advance()
	} else {
		for {
			if p.curr().Type == tokenEOF {
				return nil, p.unmatched(lparen)
			}
			arg, err := p.parseExpression(false)
			if err != nil {
				if IsIncomplete(err) {
					return nil, p.unmatched(lparen)
				}
				return nil, err
			}
			args = append(args, arg)
			tok := p.curr()
			if tok.Type == tokenComma {
				p.advance()
				continue
			}
			if tok.Type == tokenEOF {
				return nil, p.unmatched(lparen)
			}
			if _, err := p.expect(tokenRParen); err != nil {
				return nil, err
			}
			break
		}
	}

	fn, err := lang.LookupFunction(name.Lexeme, len(args), func(i int) bool {
		return assignable(args[i])
	})
	if err != nil {
		pos := name.Pos
		if cerr, ok := err.(*lang.CallError); ok && cerr.Arg >= 0 {
			pos = args[cerr.Arg].Pos()
		}
		return nil, newError(ErrParse, pos, "%v", err)
	}
	return &CallExpr{
		Name: name.Lexeme,
		Func: fn,
		Args: args,
		Posn: name.Pos,
	}, nil
}

// assignable reports whether x may be the target of an assignment.
func assignable(x Expr) bool {
	switch x := x.(type) {
	case *IdentifierExpr:
		return true
	case *CallExpr:
		return x.Func != nil && x.Func.Set != nil
	}
	return false
}

// reduce folds prefix and postfix operators into their operands and then
// builds the infix tree. Postfix operators bind tighter than prefix ones.
func (p *parser) reduce(items []item) (Expr, error) {
	var (
		operands []Expr
		ops      []Token
		prefixes []Token
	)
	for i := 0; i < len(items); i++ {
		it := items[i]
		switch it.kind {
		case itemPrefix:
			prefixes = append(prefixes, it.tok)
			continue
		case itemInfix:
			ops = append(ops, it.tok)
			continue
		}
		x := it.operand
		for i+1 < len(items) && items[i+1].kind == itemPostfix {
			i++
			var err error
			x, err = p.unary(items[i].tok, postfixOps[items[i].tok.Type], x)
			if err != nil {
				return nil, err
			}
		}
		for j := len(prefixes) - 1; j >= 0; j-- {
			var err error
			x, err = p.unary(prefixes[j], prefixOps[prefixes[j].Type], x)
			if err != nil {
				return nil, err
			}
		}
		prefixes = prefixes[:0]
		operands = append(operands, x)
	}

	r := &reducer{p: p, operands: operands, ops: ops}
	x, err := r.expr(precAssign)
	if err != nil {
		return nil, err
	}
	if r.next < len(r.ops) {
		tok := r.ops[r.next]
		return nil, p.errorf(tok, "unexpected %s", tok)
	}
	return x, nil
}

func (p *parser) unary(tok Token, op lang.Op, x Expr) (Expr, error) {
	if op.Assigns() && !assignable(x) {
		return nil, p.errorf(tok, "operand of %s must be assignable", tok)
	}
	return &UnaryExpr{Op: op, X: x, Posn: tok.Pos}, nil
}

// reducer climbs precedence over alternating operands and operators.
// Operand i precedes operator i.
type reducer struct {
	p        *parser
	operands []Expr
	ops      []Token
	next     int
}

func (r *reducer) expr(minPrec int) (Expr, error) {
	lhs := r.operands[r.next]
	for r.next < len(r.ops) {
		tok := r.ops[r.next]
		info, ok := infixOps[tok.Type]
		if !ok || info.prec < minPrec {
			break
		}
		r.next++

		if tok.Type == tokenQuestion {
			then, err := r.expr(precAssign)
			if err != nil {
				return nil, err
			}
			if r.next >= len(r.ops) || r.ops[r.next].Type != tokenColon {
				return nil, r.p.errorf(tok, "expected ':' for %s", tok)
			}
			r.next++
			els, err := r.expr(precTernary)
			if err != nil {
				return nil, err
			}
			lhs = &TernaryExpr{Cond: lhs, Then: then, Else: els, Posn: tok.Pos}
			continue
		}

		next := info.prec + 1
		if info.prec == precAssign {
			next = precAssign
		}
		rhs, err := r.expr(next)
		if err != nil {
			return nil, err
		}
		if info.op.Assigns() && !assignable(lhs) {
			return nil, r.p.errorf(tok, "left side of %s must be assignable", tok)
		}
		lhs = &BinaryExpr{Op: info.op, Lhs: lhs, Rhs: rhs, Posn: tok.Pos}
	}
	return lhs, nil
}
