// Package rustsrc is a minimal Rust tokenizer used to find crate references.
//
// It is not a parser. It splits source into identifiers, punctuation and
// literals while skipping comments, so that callers can reason about token
// neighbours without being fooled by text inside strings or comments.
package rustsrc

import (
	"fmt"
	"unicode/utf8"
)

// TokenKind classifies a token.
type TokenKind int

const (
	// Ident is an identifier or keyword.
	Ident TokenKind = iota
	// Punct is a punctuation character, or "::".
	Punct
	// Literal is a string, char or numeric literal.
	Literal
	// Lifetime is a lifetime or loop label such as 'a.
	Lifetime
)

func (k TokenKind) String() string {
	switch k {
	case Ident:
		return "ident"
	case Punct:
		return "punct"
	case Literal:
		return "literal"
	case Lifetime:
		return "lifetime"
	default:
		return fmt.Sprintf("TokenKind(%d)", int(k))
	}
}

// Token is one lexical token. Start and End are byte offsets into the source.
// For raw identifiers Start points past the r# prefix and Raw is set.
type Token struct {
	Kind  TokenKind
	Text  string
	Start int
	End   int
	Raw   bool
}

// LexError reports source that could not be tokenized.
type LexError struct {
	Offset int
	Msg    string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("offset %d: %s", e.Offset, e.Msg)
}

type lexer struct {
	src    []byte
	pos    int
	tokens []Token
}

// Tokenize splits src into tokens, dropping whitespace and comments.
func Tokenize(src []byte) ([]Token, error) {
	l := &lexer{src: src}
	l.skipShebang()

	for l.pos < len(l.src) {
		c := l.src[l.pos]
		var err error
		switch {
		case isSpace(c):
			l.pos++
		case c == '/' && l.peek(1) == '/':
			l.skipLine()
		case c == '/' && l.peek(1) == '*':
			err = l.skipBlockComment()
		case c == '"':
			err = l.quoted(l.pos)
		case c == '\'':
			err = l.quote(l.pos)
		case isDigit(c):
			l.number()
		case isIdentStart(c):
			err = l.word()
		case c == ':' && l.peek(1) == ':':
			l.emit(Punct, l.pos, l.pos+2)
			l.pos += 2
		default:
			l.emit(Punct, l.pos, l.pos+1)
			l.pos++
		}
		if err != nil {
			return nil, err
		}
	}

	return l.tokens, nil
}

func (l *lexer) peek(n int) byte {
	if l.pos+n < len(l.src) {
		return l.src[l.pos+n]
	}
	return 0
}

func (l *lexer) emit(kind TokenKind, start, end int) {
	l.tokens = append(l.tokens, Token{Kind: kind, Text: string(l.src[start:end]), Start: start, End: end})
}

// skipShebang drops a leading #! line, but not an inner attribute #![...].
func (l *lexer) skipShebang() {
	if len(l.src) < 2 || l.src[0] != '#' || l.src[1] != '!' {
		return
	}
	for i := 2; i < len(l.src); i++ {
		if isSpace(l.src[i]) {
			continue
		}
		if l.src[i] == '[' {
			return
		}
		break
	}
	l.skipLine()
}

func (l *lexer) skipLine() {
	for l.pos < len(l.src) && l.src[l.pos] != '\n' {
		l.pos++
	}
}

// skipBlockComment skips a possibly nested /* */ comment.
func (l *lexer) skipBlockComment() error {
	start := l.pos
	depth := 0
	for l.pos < len(l.src) {
		switch {
		case l.src[l.pos] == '/' && l.peek(1) == '*':
			depth++
			l.pos += 2
		case l.src[l.pos] == '*' && l.peek(1) == '/':
			depth--
			l.pos += 2
			if depth == 0 {
				return nil
			}
		default:
			l.pos++
		}
	}
	return &LexError{Offset: start, Msg: "unterminated block comment"}
}

// quoted consumes a "..." literal whose opening quote is at l.pos. start is
// where the literal began, including any b or c prefix.
func (l *lexer) quoted(start int) error {
	l.pos++
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case '\\':
			l.pos += 2
		case '"':
			l.pos++
			l.emit(Literal, start, l.pos)
			return nil
		default:
			l.pos++
		}
	}
	return &LexError{Offset: start, Msg: "unterminated string literal"}
}

// rawQuoted consumes r#"..."# style literals. l.pos is at the first # or ".
func (l *lexer) rawQuoted(start int) error {
	hashes := 0
	for l.pos < len(l.src) && l.src[l.pos] == '#' {
		hashes++
		l.pos++
	}
	if l.pos >= len(l.src) || l.src[l.pos] != '"' {
		return &LexError{Offset: start, Msg: "malformed raw string literal"}
	}
	l.pos++

	for l.pos < len(l.src) {
		if l.src[l.pos] == '"' && l.closesRaw(hashes) {
			l.pos += 1 + hashes
			l.emit(Literal, start, l.pos)
			return nil
		}
		l.pos++
	}
	return &LexError{Offset: start, Msg: "unterminated raw string literal"}
}

func (l *lexer) closesRaw(hashes int) bool {
	for i := 1; i <= hashes; i++ {
		if l.peek(i) != '#' {
			return false
		}
	}
	return true
}

// quote handles a single quote at l.pos: a char literal, a lifetime, or a
// stray quote inside a macro.
func (l *lexer) quote(start int) error {
	next := l.peek(1)

	if next == '\\' {
		l.pos += 3
		for l.pos < len(l.src) && l.src[l.pos] != '\'' && l.src[l.pos] != '\n' {
			l.pos++
		}
		if l.pos >= len(l.src) || l.src[l.pos] != '\'' {
			return &LexError{Offset: start, Msg: "unterminated char literal"}
		}
		l.pos++
		l.emit(Literal, start, l.pos)
		return nil
	}

	_, size := utf8.DecodeRune(l.src[l.pos+1:])
	if size > 0 && l.pos+1+size < len(l.src) && l.src[l.pos+1+size] == '\'' {
		l.pos += 2 + size
		l.emit(Literal, start, l.pos)
		return nil
	}

	if isIdentStart(next) {
		l.pos++
		for l.pos < len(l.src) && isIdentContinue(l.src[l.pos]) {
			l.pos++
		}
		l.emit(Lifetime, start, l.pos)
		return nil
	}

	l.emit(Punct, l.pos, l.pos+1)
	l.pos++
	return nil
}

func (l *lexer) number() {
	start := l.pos
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if isIdentContinue(c) {
			l.pos++
			continue
		}
		if c == '.' && isDigit(l.peek(1)) {
			l.pos++
			continue
		}
		break
	}
	l.emit(Literal, start, l.pos)
}

// word lexes an identifier, a raw identifier, or a prefixed literal such as
// b"..", br#".."#, c"..", or b'x'.
func (l *lexer) word() error {
	start := l.pos

	if l.src[l.pos] == 'r' && l.peek(1) == '#' && isIdentStart(l.peek(2)) {
		l.pos += 2
		identStart := l.pos
		for l.pos < len(l.src) && isIdentContinue(l.src[l.pos]) {
			l.pos++
		}
		l.tokens = append(l.tokens, Token{
			Kind:  Ident,
			Text:  string(l.src[identStart:l.pos]),
			Start: identStart,
			End:   l.pos,
			Raw:   true,
		})
		return nil
	}

	for l.pos < len(l.src) && isIdentContinue(l.src[l.pos]) {
		l.pos++
	}

	next := byte(0)
	if l.pos < len(l.src) {
		next = l.src[l.pos]
	}

	switch string(l.src[start:l.pos]) {
	case "b", "c":
		if next == '"' {
			return l.quoted(start)
		}
		if next == '\'' && l.src[start] == 'b' {
			return l.quote(start)
		}
	case "r", "br", "cr":
		if next == '"' || next == '#' {
			return l.rawQuoted(start)
		}
	}

	l.emit(Ident, start, l.pos)
	return nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// Non-ASCII bytes are treated as identifier characters so that a match is
// never reported in the middle of a Unicode identifier.
func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentContinue(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
