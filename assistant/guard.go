package assistant

import (
	"strings"
	"unicode"
)

// CheckReadOnly accepts exactly one statement that starts with SELECT.
//
// It is a lexical check, not a parser: the trimmed text must begin with the
// "select" keyword, and any statement text after a semicolon outside quotes
// and comments is rejected. Executors still run queries read-only.
func CheckReadOnly(query string) error {
	body := strings.TrimSpace(query)
	if len(body) < len("select") || !strings.EqualFold(body[:len("select")], "select") {
		return ErrNotReadOnly
	}
	if rest := body[len("select"):]; rest != "" && isIdentRune(rune(rest[0])) {
		// "selection ..." is not a SELECT.
		return ErrNotReadOnly
	}
	if hasTrailingStatement(body) {
		return ErrMultipleStatements
	}
	return nil
}

// hasTrailingStatement reports whether anything but whitespace and comments
// follows the first top-level semicolon.
func hasTrailingStatement(q string) bool {
	for i := 0; i < len(q); i++ {
		switch c := q[i]; {
		case c == '\'' || c == '"':
			i = skipQuoted(q, i, c, c == '\'' && isEscapeStringPrefix(q, i))
		case c == '-' && strings.HasPrefix(q[i:], "--"):
			i = skipLineComment(q, i)
		case c == '/' && strings.HasPrefix(q[i:], "/*"):
			i = skipBlockComment(q, i)
		case c == '$' && (i == 0 || !isIdentByte(q[i-1])):
			i = skipDollarQuoted(q, i)
		case c == ';':
			rest := q[i+1:]
			for {
				rest = skipSpaceAndComments(rest)
				if strings.HasPrefix(rest, ";") {
					rest = rest[1:]
					continue
				}
				return rest != ""
			}
		}
	}
	return false
}

// skipSpaceAndComments trims leading whitespace, -- and /* */ comments.
func skipSpaceAndComments(s string) string {
	for {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
		switch {
		case strings.HasPrefix(s, "--"):
			s = s[skipLineComment(s, 0)+1:]
		case strings.HasPrefix(s, "/*"):
			s = s[skipBlockComment(s, 0)+1:]
		default:
			return s
		}
	}
}

// The skip helpers return the index of the last byte of the construct
// starting at i (or len(q)-1 when it is unterminated).

// With backslash set, \x inside the literal is an escape (E'...' strings).
func skipQuoted(q string, i int, quote byte, backslash bool) int {
	for j := i + 1; j < len(q); j++ {
		if backslash && q[j] == '\\' {
			j++
			continue
		}
		if q[j] == quote {
			if j+1 < len(q) && q[j+1] == quote {
				j++
				continue
			}
			return j
		}
	}
	return len(q) - 1
}

func skipLineComment(q string, i int) int {
	if j := strings.IndexByte(q[i:], '\n'); j >= 0 {
		return i + j
	}
	return len(q) - 1
}

func skipBlockComment(q string, i int) int {
	depth := 0
	for j := i; j < len(q)-1; j++ {
		switch {
		case q[j] == '/' && q[j+1] == '*':
			depth++
			j++
		case q[j] == '*' && q[j+1] == '/':
			depth--
			j++
			if depth == 0 {
				return j
			}
		}
	}
	return len(q) - 1
}

// skipDollarQuoted handles PostgreSQL $tag$ ... $tag$ strings.
func skipDollarQuoted(q string, i int) int {
	end := strings.IndexByte(q[i+1:], '$')
	if end < 0 {
		return i
	}
	tag := q[i : i+end+2]
	for _, r := range tag[1 : len(tag)-1] {
		if !isIdentRune(r) {
			return i
		}
	}
	if close := strings.Index(q[i+len(tag):], tag); close >= 0 {
		return i + len(tag) + close + len(tag) - 1
	}
	return len(q) - 1
}

// isEscapeStringPrefix reports whether the quote at i opens an E'...' literal:
// it follows a lone E or e that does not end a longer identifier.
func isEscapeStringPrefix(q string, i int) bool {
	if i == 0 || (q[i-1] != 'E' && q[i-1] != 'e') {
		return false
	}
	return i == 1 || !isIdentByte(q[i-2])
}

// isIdentByte reports whether b can continue an identifier. PostgreSQL
// allows $ after the first character, so a$b$ is a name, not a dollar quote.
func isIdentByte(b byte) bool {
	return b == '$' || b >= 0x80 || isIdentRune(rune(b))
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
