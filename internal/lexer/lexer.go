// Package lexer turns statement text into tokens.
//
// Lexing never fails: unknown characters become part of a word and an
// unterminated string runs to the end of input. The parser reports every
// syntax problem.
package lexer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	propertyPattern   = regexp.MustCompile(`^\.(\w+\.)*\w+$`)
	numberPattern     = regexp.MustCompile(`^-?\d*\.?\d+$`)
	identifierPattern = regexp.MustCompile(`^\w+$`)
)

// Lexer scans one statement. Use Lex for the common case.
type Lexer struct {
	input     string
	pos       int
	wordStart int
	word      strings.Builder
	tokens    []Token
}

// New creates a lexer over input.
func New(input string) *Lexer {
	return &Lexer{input: input}
}

// Lex scans text into tokens in source order.
func Lex(text string) []Token {
	return New(text).Run()
}

// Run scans the whole input and returns the tokens.
func (l *Lexer) Run() []Token {
	for l.pos < len(l.input) {
		r, width := utf8.DecodeRuneInString(l.input[l.pos:])

		switch {
		case unicode.IsSpace(r):
			l.flush()
			l.pos += width
		case r == '"':
			l.flush()
			l.scanString()
		case r == '(' && l.word.Len() > 0 && identifierPattern.MatchString(l.word.String()):
			l.scanFunction()
		default:
			if kind, ok := symbols[r]; ok {
				l.flush()
				l.emit(kind, string(r), l.pos)
				l.pos += width
				continue
			}
			if l.word.Len() == 0 {
				l.wordStart = l.pos
			}
			l.word.WriteRune(r)
			l.pos += width
		}
	}
	l.flush()
	return l.tokens
}

func (l *Lexer) emit(kind Kind, lexeme string, pos int) {
	l.tokens = append(l.tokens, Token{Kind: kind, Lexeme: lexeme, Pos: pos})
}

// flush classifies and emits the pending word, if any.
func (l *Lexer) flush() {
	if l.word.Len() == 0 {
		return
	}
	w := l.word.String()
	l.word.Reset()
	l.emit(Classify(w), w, l.wordStart)
}

// scanString consumes "..." verbatim, with no escape processing.
func (l *Lexer) scanString() {
	start := l.pos
	end := strings.IndexByte(l.input[start+1:], '"')
	if end < 0 {
		l.emit(KindString, l.input[start+1:], start)
		l.pos = len(l.input)
		return
	}
	l.emit(KindString, l.input[start+1:start+1+end], start)
	l.pos = start + 1 + end + 1
}

// scanFunction captures name(...) as one token. The name is the pending
// word and l.pos is at the opening paren. Parens inside quoted strings are
// not counted. Without a matching close the token runs to end of input.
func (l *Lexer) scanFunction() {
	start := l.wordStart
	l.word.Reset()

	depth := 0
	inString := false
	i := l.pos
	for ; i < len(l.input); i++ {
		c := l.input[i]
		if inString {
			if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth == 0 {
			i++
			break
		}
	}
	l.emit(KindFunction, l.input[start:i], start)
	l.pos = i
}

// Classify maps a whitespace-delimited word to property, number or word.
func Classify(w string) Kind {
	switch {
	case propertyPattern.MatchString(w):
		return KindProperty
	case numberPattern.MatchString(w):
		return KindNumber
	default:
		return KindWord
	}
}

// SplitFunction splits a function lexeme "name(inner)" into its parts.
// ok is false when the lexeme has no opening paren or no closing paren.
func SplitFunction(lexeme string) (name, inner string, ok bool) {
	open := strings.IndexByte(lexeme, '(')
	if open <= 0 || !strings.HasSuffix(lexeme, ")") || len(lexeme) < open+2 {
		return "", "", false
	}
	return lexeme[:open], lexeme[open+1 : len(lexeme)-1], true
}

// SplitArgs splits a function's inner text on commas that are outside
// quotes and nested parens. An empty or all-space inner text has no
// arguments. Each returned span keeps its offset into inner.
func SplitArgs(inner string) []Span {
	if strings.TrimSpace(inner) == "" {
		return nil
	}
	var spans []Span
	depth, start := 0, 0
	inString := false
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if inString {
			if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				spans = append(spans, Span{Text: inner[start:i], Offset: start})
				start = i + 1
			}
		}
	}
	return append(spans, Span{Text: inner[start:], Offset: start})
}

// Span is a slice of source text with its offset.
type Span struct {
	Text   string
	Offset int
}
