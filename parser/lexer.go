package parser

import (
	"io"
	"strconv"
	"unicode"
	"unicode/utf8"
)

type lexer struct {
	src    string
	pos    int
	line   int
	column int
}

func newLexer(src string) *lexer {
	return &lexer{
		src:    src,
		line:   1,
		column: 1,
	}
}

// tokenize lexes the whole source. The returned slice always ends with an
// EOF token.
func tokenize(src string) ([]Token, error) {
	lx := newLexer(src)
	var tokens []Token
	for {
		tok, err := lx.nextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == tokenEOF {
			return tokens, nil
		}
	}
}

type runeState struct {
	pos    int
	line   int
	column int
}

func (lx *lexer) mark() runeState {
	return runeState{
		pos:    lx.pos,
		line:   lx.line,
		column: lx.column,
	}
}

func (lx *lexer) restore(state runeState) {
	lx.pos = state.pos
	lx.line = state.line
	lx.column = state.column
}

func (lx *lexer) readRune() (rune, runeState, error) {
	state := lx.mark()
	if lx.pos >= len(lx.src) {
		return 0, state, io.EOF
	}
	r, w := utf8.DecodeRuneInString(lx.src[lx.pos:])
	if r == utf8.RuneError && w == 1 {
		return 0, state, newError(ErrLex, positionFromState(state), "invalid UTF-8 encoding")
	}
	lx.pos += w
	if r == '\n' {
		lx.line++
		lx.column = 1
	} else {
		lx.column++
	}
	return r, state, nil
}

func (lx *lexer) peekRune() rune {
	state := lx.mark()
	r, _, err := lx.readRune()
	lx.restore(state)
	if err != nil {
		return 0
	}
	return r
}

func (lx *lexer) match(expected rune) bool {
	state := lx.mark()
	r, _, err := lx.readRune()
	if err != nil {
		return false
	}
	if r != expected {
		lx.restore(state)
		return false
	}
	return true
}

func (lx *lexer) skipWhitespace() error {
	for {
		r, state, err := lx.readRune()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		switch {
		case unicode.IsSpace(r):
			continue
		case r == '/' && lx.match('/'):
			lx.skipLine()
			continue
		case r == '/' && lx.match('*'):
			if err := lx.skipBlockComment(state); err != nil {
				return err
			}
			continue
		default:
			lx.restore(state)
			return nil
		}
	}
}

func (lx *lexer) skipLine() {
	for {
		r, _, err := lx.readRune()
		if err != nil || r == '\n' {
			return
		}
	}
}

func (lx *lexer) skipBlockComment(start runeState) error {
	for {
		r, _, err := lx.readRune()
		if err == io.EOF {
			return newIncompleteError(ErrLex, positionFromState(start), "unterminated block comment")
		}
		if err != nil {
			return err
		}
		if r == '*' && lx.match('/') {
			return nil
		}
	}
}

func (lx *lexer) nextToken() (Token, error) {
	if err := lx.skipWhitespace(); err != nil {
		return Token{}, err
	}

	start := lx.mark()
	r, _, err := lx.readRune()
	if err == io.EOF {
		return simpleToken(tokenEOF, start), nil
	}
	if err != nil {
		return Token{}, err
	}

	switch {
	case isIdentifierStart(r):
		return makeIdentifierToken(lx.scanIdentifier(start), start), nil
	case isDigit(r) || (r == '.' && isDigit(lx.peekRune())):
		return lx.scanNumber(start)
	}

	var tok Token
	switch r {
	case '+':
		if lx.match('+') {
			tok = simpleToken(tokenPlusPlus, start)
		} else if lx.match('=') {
			tok = simpleToken(tokenPlusAssign, start)
		} else {
			tok = simpleToken(tokenPlus, start)
		}
	case '-':
		if lx.match('-') {
			tok = simpleToken(tokenMinusMinus, start)
		} else if lx.match('=') {
			tok = simpleToken(tokenMinusAssign, start)
		} else {
			tok = simpleToken(tokenMinus, start)
		}
	case '*':
		if lx.match('*') {
			tok = simpleToken(tokenStarStar, start)
		} else if lx.match('=') {
			tok = simpleToken(tokenStarAssign, start)
		} else {
			tok = simpleToken(tokenStar, start)
		}
	case '/':
		if lx.match('=') {
			tok = simpleToken(tokenSlashAssign, start)
		} else {
			tok = simpleToken(tokenSlash, start)
		}
	case '%':
		if lx.match('=') {
			tok = simpleToken(tokenPercentAssign, start)
		} else {
			tok = simpleToken(tokenPercent, start)
		}
	case '^':
		if lx.match('=') {
			tok = simpleToken(tokenCaretAssign, start)
		} else {
			tok = simpleToken(tokenCaret, start)
		}
	case '=':
		if lx.match('=') {
			tok = simpleToken(tokenEqualEqual, start)
		} else {
			tok = simpleToken(tokenAssign, start)
		}
	case '!':
		if lx.match('=') {
			tok = simpleToken(tokenBangEqual, start)
		} else {
			tok = simpleToken(tokenBang, start)
		}
	case '~':
		if lx.match('=') {
			tok = simpleToken(tokenTildeEqual, start)
		} else {
			tok = simpleToken(tokenTilde, start)
		}
	case '<':
		if lx.match('<') {
			tok = simpleToken(tokenShiftLeft, start)
		} else if lx.match('=') {
			tok = simpleToken(tokenLessEqual, start)
		} else {
			tok = simpleToken(tokenLess, start)
		}
	case '>':
		if lx.match('>') {
			tok = simpleToken(tokenShiftRight, start)
		} else if lx.match('=') {
			tok = simpleToken(tokenGreaterEqual, start)
		} else {
			tok = simpleToken(tokenGreater, start)
		}
	case '&':
		if !lx.match('&') {
			return illegalToken(start, r)
		}
		tok = simpleToken(tokenAndAnd, start)
	case '|':
		if !lx.match('|') {
			return illegalToken(start, r)
		}
		tok = simpleToken(tokenOrOr, start)
	case '?':
		tok = simpleToken(tokenQuestion, start)
	case ':':
		tok = simpleToken(tokenColon, start)
	case '(':
		tok = simpleToken(tokenLParen, start)
	case ')':
		tok = simpleToken(tokenRParen, start)
	case '{':
		tok = simpleToken(tokenLBrace, start)
	case '}':
		tok = simpleToken(tokenRBrace, start)
	case ',':
		tok = simpleToken(tokenComma, start)
	case ';':
		tok = simpleToken(tokenSemicolon, start)
	default:
		return illegalToken(start, r)
	}
	return tok, nil
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentifierStart(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentifierPart(r rune) bool {
	return isIdentifierStart(r) || isDigit(r) || r == '_'
}

func (lx *lexer) scanIdentifier(start runeState) string {
	for {
		r, state, err := lx.readRune()
		if err != nil {
			break
		}
		if !isIdentifierPart(r) {
			lx.restore(state)
			break
		}
	}
	return lx.src[start.pos:lx.pos]
}

func (lx *lexer) skipDigits() {
	for isDigit(lx.peekRune()) {
		lx.readRune()
	}
}

// scanNumber reads digits, an optional fraction and an optional exponent.
// The first rune has already been consumed. A fraction needs at least one
// digit after the dot and an exponent needs at least one digit; otherwise
// the dot or exponent marker is left for the next token.
func (lx *lexer) scanNumber(start runeState) (Token, error) {
	lx.restore(start)
	lx.skipDigits()
	if lx.peekRune() == '.' {
		dot := lx.mark()
		lx.readRune()
		if isDigit(lx.peekRune()) {
			lx.skipDigits()
		} else {
			lx.restore(dot)
		}
	}
	if r := lx.peekRune(); r == 'e' || r == 'E' {
		exp := lx.mark()
		lx.readRune()
		if r := lx.peekRune(); r == '+' || r == '-' {
			lx.readRune()
		}
		if isDigit(lx.peekRune()) {
			lx.skipDigits()
		} else {
			lx.restore(exp)
		}
	}
	lexeme := lx.src[start.pos:lx.pos]
	value, err := strconv.ParseFloat(lexeme, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); !ok || ne.Err != strconv.ErrRange {
			return Token{}, newError(ErrLex, positionFromState(start), "invalid number %q", lexeme)
		}
	}
	return Token{
		Type:   tokenNumber,
		Lexeme: lexeme,
		Number: value,
		Pos:    positionFromState(start),
	}, nil
}

func makeIdentifierToken(lexeme string, start runeState) Token {
	if keywordType, ok := keywordToken(lexeme); ok {
		return Token{
			Type:   keywordType,
			Lexeme: lexeme,
			Pos:    positionFromState(start),
		}
	}
	return Token{
		Type:   tokenIdentifier,
		Lexeme: lexeme,
		Pos:    positionFromState(start),
	}
}

func simpleToken(tt TokenType, start runeState) Token {
	return Token{
		Type: tt,
		Pos:  positionFromState(start),
	}
}

func illegalToken(start runeState, r rune) (Token, error) {
	return Token{
		Type: tokenIllegal,
		Pos:  positionFromState(start),
	}, newError(ErrLex, positionFromState(start), "unknown character %q", r)
}

func positionFromState(state runeState) Position {
	return Position{
		Offset: state.pos,
		Line:   state.line,
		Column: state.column,
	}
}
