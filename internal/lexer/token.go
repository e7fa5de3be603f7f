package lexer

import "fmt"

// Kind represents the type of a lexical token.
type Kind uint8

const (
	// Words and literals
	KindWord     Kind = iota // bare identifier or keyword: asc, desc, true
	KindString               // "text" (lexeme excludes the quotes)
	KindNumber               // 12, 0.5, 2.75
	KindProperty             // .a or .a.b.c
	KindFunction             // name(...) captured whole, parens balanced

	// Structural symbols
	KindColon // :
	KindComma // ,
	KindTilde // ~

	// Operators
	KindPlus    // +
	KindMinus   // -
	KindStar    // *
	KindSlash   // /
	KindAmp     // &
	KindPipe    // |
	KindLess    // <
	KindGreater // >
	KindEqual   // =

	// Grouping
	KindLParen   // (
	KindRParen   // )
	KindLBracket // [
	KindRBracket // ]
	KindLBrace   // {
	KindRBrace   // }

	// Reserved punctuation, recognized but not part of the grammar
	KindAt        // @
	KindHash      // #
	KindQuestion  // ?
	KindSemicolon // ;
)

var kindNames = map[Kind]string{
	KindWord:      "word",
	KindString:    "string",
	KindNumber:    "number",
	KindProperty:  "property",
	KindFunction:  "function",
	KindColon:     "':'",
	KindComma:     "','",
	KindTilde:     "'~'",
	KindPlus:      "'+'",
	KindMinus:     "'-'",
	KindStar:      "'*'",
	KindSlash:     "'/'",
	KindAmp:       "'&'",
	KindPipe:      "'|'",
	KindLess:      "'<'",
	KindGreater:   "'>'",
	KindEqual:     "'='",
	KindLParen:    "'('",
	KindRParen:    "')'",
	KindLBracket:  "'['",
	KindRBracket:  "']'",
	KindLBrace:    "'{'",
	KindRBrace:    "'}'",
	KindAt:        "'@'",
	KindHash:      "'#'",
	KindQuestion:  "'?'",
	KindSemicolon: "';'",
}

// String returns a readable name for the kind, used in syntax errors.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// symbols maps single characters 1:1 to token kinds.
var symbols = map[rune]Kind{
	':': KindColon,
	',': KindComma,
	'~': KindTilde,
	'+': KindPlus,
	'-': KindMinus,
	'*': KindStar,
	'/': KindSlash,
	'&': KindAmp,
	'|': KindPipe,
	'<': KindLess,
	'>': KindGreater,
	'=': KindEqual,
	'(': KindLParen,
	')': KindRParen,
	'[': KindLBracket,
	']': KindRBracket,
	'{': KindLBrace,
	'}': KindRBrace,
	'@': KindAt,
	'#': KindHash,
	'?': KindQuestion,
	';': KindSemicolon,
}

// Token is one lexical unit. Pos is the byte offset of the first
// character of the lexeme in the statement (the opening quote for strings).
type Token struct {
	Kind   Kind
	Lexeme string
	Pos    int
}

// String renders the token for diagnostics and the lex command.
func (t Token) String() string {
	switch t.Kind {
	case KindString:
		return fmt.Sprintf("%s %q @%d", t.Kind, t.Lexeme, t.Pos)
	case KindWord, KindNumber, KindProperty, KindFunction:
		return fmt.Sprintf("%s %s @%d", t.Kind, t.Lexeme, t.Pos)
	default:
		return fmt.Sprintf("%s @%d", t.Kind, t.Pos)
	}
}

// IsOperator reports whether the token is a binary operator.
func (t Token) IsOperator() bool {
	switch t.Kind {
	case KindPlus, KindMinus, KindStar, KindSlash, KindAmp, KindPipe,
		KindLess, KindGreater, KindEqual:
		return true
	default:
		return false
	}
}
