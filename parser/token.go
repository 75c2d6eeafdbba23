package parser

import "fmt"

// TokenType enumerates lexical categories recognised by the lexer.
type TokenType int

const (
	tokenEOF TokenType = iota
	tokenIllegal

	tokenIdentifier
	tokenNumber

	// Keywords
	tokenIf
	tokenElse
	tokenWhile
	tokenDo
	tokenFor
	tokenBreak
	tokenContinue
	tokenReturn
	tokenSwitch
	tokenCase
	tokenDefault

	// Operators and punctuation
	tokenAssign        // =
	tokenPlusAssign    // +=
	tokenMinusAssign   // -=
	tokenStarAssign    // *=
	tokenSlashAssign   // /=
	tokenPercentAssign // %=
	tokenCaretAssign   // ^=
	tokenEqualEqual    // ==
	tokenBangEqual     // !=
	tokenTildeEqual    // ~=
	tokenPlus          // +
	tokenMinus         // -
	tokenPlusPlus      // ++
	tokenMinusMinus    // --
	tokenStar          // *
	tokenStarStar      // **
	tokenSlash         // /
	tokenPercent       // %
	tokenCaret         // ^
	tokenShiftLeft     // <<
	tokenShiftRight    // >>
	tokenLess          // <
	tokenLessEqual     // <=
	tokenGreater       // >
	tokenGreaterEqual  // >=
	tokenAndAnd        // &&
	tokenOrOr          // ||
	tokenBang          // !
	tokenTilde         // ~
	tokenQuestion      // ?
	tokenColon         // :
	tokenLParen        // (
	tokenRParen        // )
	tokenLBrace        // {
	tokenRBrace        // }
	tokenComma         // ,
	tokenSemicolon     // ;
)

// Token is a lexical token. Identifiers carry their text in Lexeme and
// numbers their parsed value in Number.
type Token struct {
	Type   TokenType
	Lexeme string
	Number float64
	Pos    Position
}

func (t Token) String() string {
	switch t.Type {
	case tokenIdentifier:
		return fmt.Sprintf("identifier '%s'", t.Lexeme)
	case tokenNumber:
		return fmt.Sprintf("number %s", t.Lexeme)
	}
	return t.Type.String()
}

func (t TokenType) String() string {
	switch t {
	case tokenEOF:
		return "end of input"
	case tokenIllegal:
		return "illegal token"
	case tokenIdentifier:
		return "identifier"
	case tokenNumber:
		return "number"
	case tokenIf:
		return "'if'"
	case tokenElse:
		return "'else'"
	case tokenWhile:
		return "'while'"
	case tokenDo:
		return "'do'"
	case tokenFor:
		return "'for'"
	case tokenBreak:
		return "'break'"
	case tokenContinue:
		return "'continue'"
	case tokenReturn:
		return "'return'"
	case tokenSwitch:
		return "'switch'"
	case tokenCase:
		return "'case'"
	case tokenDefault:
		return "'default'"
	case tokenAssign:
		return "'='"
	case tokenPlusAssign:
		return "'+='"
	case tokenMinusAssign:
		return "'-='"
	case tokenStarAssign:
		return "'*='"
	case tokenSlashAssign:
		return "'/='"
	case tokenPercentAssign:
		return "'%='"
	case tokenCaretAssign:
		return "'^='"
	case tokenEqualEqual:
		return "'=='"
	case tokenBangEqual:
		return "'!='"
	case tokenTildeEqual:
		return "'~='"
	case tokenPlus:
		return "'+'"
	case tokenMinus:
		return "'-'"
	case tokenPlusPlus:
		return "'++'"
	case tokenMinusMinus:
		return "'--'"
	case tokenStar:
		return "'*'"
	case tokenStarStar:
		return "'**'"
	case tokenSlash:
		return "'/'"
	case tokenPercent:
		return "'%'"
	case tokenCaret:
		return "'^'"
	case tokenShiftLeft:
		return "'<<'"
	case tokenShiftRight:
		return "'>>'"
	case tokenLess:
		return "'<'"
	case tokenLessEqual:
		return "'<='"
	case tokenGreater:
		return "'>'"
	case tokenGreaterEqual:
		return "'>='"
	case tokenAndAnd:
		return "'&&'"
	case tokenOrOr:
		return "'||'"
	case tokenBang:
		return "'!'"
	case tokenTilde:
		return "'~'"
	case tokenQuestion:
		return "'?'"
	case tokenColon:
		return "':'"
	case tokenLParen:
		return "'('"
	case tokenRParen:
		return "')'"
	case tokenLBrace:
		return "'{'"
	case tokenRBrace:
		return "'}'"
	case tokenComma:
		return "','"
	case tokenSemicolon:
		return "';'"
	default:
		return fmt.Sprintf("TokenType(%d)", int(t))
	}
}

// Keywords lists the reserved words in source order of the grammar.
var Keywords = []string{"if", "else", "while", "do", "for", "break", "continue", "return", "switch", "case", "default"}

func keywordToken(lexeme string) (TokenType, bool) {
	switch lexeme {
	case "if":
		return tokenIf, true
	case "else":
		return tokenElse, true
	case "while":
		return tokenWhile, true
	case "do":
		return tokenDo, true
	case "for":
		return tokenFor, true
	case "break":
		return tokenBreak, true
	case "continue":
		return tokenContinue, true
	case "return":
		return tokenReturn, true
	case "switch":
		return tokenSwitch, true
	case "case":
		return tokenCase, true
	case "default":
		return tokenDefault, true
	default:
		return tokenIllegal, false
	}
}
