package parser

import (
	"errors"
	"testing"
)

func lexAllTokens(t *testing.T, src string) []Token {
	t.Helper()
	tokens, err := tokenize(src)
	if err != nil {
		t.Fatalf("unexpected lexer error: %v", err)
	}
	return tokens
}

func tokenTypes(tokens []Token) []TokenType {
	types := make([]TokenType, len(tokens))
	for i, tok := range tokens {
		types[i] = tok.Type
	}
	return types
}

func TestLexerIdentifiersAndKeywords(t *testing.T) {
	src := "if else while do for break continue return switch case default foo bar_1 x9"
	tokens := lexAllTokens(t, src)
	tokens = tokens[:len(tokens)-1] // drop EOF

	want := []struct {
		typ    TokenType
		lexeme string
	}{
		{tokenIf, "if"},
		{tokenElse, "else"},
		{tokenWhile, "while"},
		{tokenDo, "do"},
		{tokenFor, "for"},
		{tokenBreak, "break"},
		{tokenContinue, "continue"},
		{tokenReturn, "return"},
		{tokenSwitch, "switch"},
		{tokenCase, "case"},
		{tokenDefault, "default"},
		{tokenIdentifier, "foo"},
		{tokenIdentifier, "bar_1"},
		{tokenIdentifier, "x9"},
	}

	if len(tokens) != len(want) {
		t.Fatalf("expected %d tokens, got %d", len(want), len(tokens))
	}
	for i, w := range want {
		if tokens[i].Type != w.typ || tokens[i].Lexeme != w.lexeme {
			t.Fatalf("token %d: expected %v %q, got %v %q", i, w.typ, w.lexeme, tokens[i].Type, tokens[i].Lexeme)
		}
	}
	if len(Keywords) != 11 {
		t.Fatalf("expected 11 keywords, got %d", len(Keywords))
	}
}

func TestLexerNumbers(t *testing.T) {
	tests := []struct {
		src   string
		value float64
		rest  []TokenType
	}{
		{"42", 42, nil},
		{"3.25", 3.25, nil},
		{".5", 0.5, nil},
		{"1e3", 1000, nil},
		{"2.5E-1", 0.25, nil},
		{"7e+2", 700, nil},
		{"1e", 1, []TokenType{tokenIdentifier}},
		{"4.x", 4, []TokenType{tokenIllegal}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			tokens, err := tokenize(tt.src)
			if tt.rest != nil && tt.rest[0] == tokenIllegal {
				if err == nil {
					t.Fatalf("expected lex error for %q", tt.src)
				}
				return
			}
			if err != nil {
				t.Fatalf("tokenize(%q): %v", tt.src, err)
			}
			if tokens[0].Type != tokenNumber || tokens[0].Number != tt.value {
				t.Fatalf("expected number %v, got %v", tt.value, tokens[0])
			}
			got := tokenTypes(tokens[1 : len(tokens)-1])
			if len(got) != len(tt.rest) {
				t.Fatalf("expected trailing %v, got %v", tt.rest, got)
			}
			for i := range got {
				if got[i] != tt.rest[i] {
					t.Fatalf("expected trailing %v, got %v", tt.rest, got)
				}
			}
		})
	}
}

func TestLexerOperatorsAreGreedy(t *testing.T) {
	src := "+= ++ + -= -- - *= ** * /= / %= % ^= ^ == = != ! ~= ~ << <= < >> >= > && || ? : ( ) { } , ;"
	want := []TokenType{
		tokenPlusAssign, tokenPlusPlus, tokenPlus,
		tokenMinusAssign, tokenMinusMinus, tokenMinus,
		tokenStarAssign, tokenStarStar, tokenStar,
		tokenSlashAssign, tokenSlash,
		tokenPercentAssign, tokenPercent,
		tokenCaretAssign, tokenCaret,
		tokenEqualEqual, tokenAssign,
		tokenBangEqual, tokenBang,
		tokenTildeEqual, tokenTilde,
		tokenShiftLeft, tokenLessEqual, tokenLess,
		tokenShiftRight, tokenGreaterEqual, tokenGreater,
		tokenAndAnd, tokenOrOr,
		tokenQuestion, tokenColon,
		tokenLParen, tokenRParen, tokenLBrace, tokenRBrace,
		tokenComma, tokenSemicolon,
		tokenEOF,
	}
	got := tokenTypes(lexAllTokens(t, src))
	if len(got) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: expected %v, got %v", i, want[i], got[i])
		}
	}

	got = tokenTypes(lexAllTokens(t, "a+++b"))
	want = []TokenType{tokenIdentifier, tokenPlusPlus, tokenPlus, tokenIdentifier, tokenEOF}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("a+++b token %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestLexerSkipsComments(t *testing.T) {
	src := "a // line comment\n/* block\ncomment */ b"
	tokens := lexAllTokens(t, src)
	if len(tokens) != 3 {
		t.Fatalf("expected 2 identifiers and EOF, got %v", tokens)
	}
	if tokens[1].Lexeme != "b" {
		t.Fatalf("expected identifier b, got %v", tokens[1])
	}
	if tokens[1].Pos.Line != 3 || tokens[1].Pos.Column != 12 {
		t.Fatalf("expected b at 3:12, got %d:%d", tokens[1].Pos.Line, tokens[1].Pos.Column)
	}
	if tokens[1].Pos.Offset != len(src)-1 {
		t.Fatalf("expected b at offset %d, got %d", len(src)-1, tokens[1].Pos.Offset)
	}
}

func TestLexerErrors(t *testing.T) {
	tests := []struct {
		src        string
		offset     int
		incomplete bool
	}{
		{"#", 0, false},
		{"1 + $", 4, false},
		{"a & b", 2, false},
		{"a | b", 2, false},
		{"é", 0, false},
		{"1 /* open", 2, true},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := tokenize(tt.src)
			if err == nil {
				t.Fatalf("expected error for %q", tt.src)
			}
			if !errors.Is(err, ErrLex) {
				t.Fatalf("expected lex error, got %v", err)
			}
			pos, ok := ErrorPosition(err)
			if !ok || pos != tt.offset {
				t.Fatalf("expected error at %d, got %d (%v)", tt.offset, pos, err)
			}
			if IsIncomplete(err) != tt.incomplete {
				t.Fatalf("expected incomplete=%v, got %v", tt.incomplete, IsIncomplete(err))
			}
		})
	}
}
