package envist

import (
	"fmt"
	"strings"
)

// declaration is the structured form of one physical line.
type declaration struct {
	key        string
	annotation *Descriptor
	value      string // trimmed, comment stripped, surrounding quotes removed
	empty      bool   // declared without a value (AcceptEmpty only)
}

// parseLine parses one physical line of an env file. It returns (nil, nil)
// for blank lines and full-line comments.
//
// Declaration shape: KEY [ '<' annotation '>' ] '=' VALUE [ '#' comment ].
// An unescaped '#' outside quotes truncates the value; "\#" is kept as a
// literal '#'.
func parseLine(line string, acceptEmpty bool) (*declaration, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return nil, nil
	}

	trimmed = stripComment(trimmed)

	var (
		key        string
		annotation *Descriptor
		rest       string // everything after the key (and annotation, if any)
	)

	open := indexOutsideQuotes(trimmed, '<')
	eq := indexOutsideQuotes(trimmed, '=')

	switch {
	case open >= 0 && (eq < 0 || open < eq):
		// Annotated declaration. Find the matching '>' for the first '<'.
		close := matchBracket(trimmed, open)
		if close < 0 {
			return nil, fmt.Errorf("%w: unbalanced type annotation in line %q", ErrParse, trimmed)
		}
		key = strings.TrimSpace(trimmed[:open])
		desc, err := ParseDescriptor(trimmed[open+1 : close])
		if err != nil {
			return nil, err
		}
		annotation = desc
		rest = strings.TrimSpace(trimmed[close+1:])
		if rest != "" && !strings.HasPrefix(rest, "=") {
			return nil, fmt.Errorf("%w: expected '=' after type annotation in line %q", ErrParse, trimmed)
		}

	case eq >= 0:
		key = strings.TrimSpace(trimmed[:eq])
		rest = trimmed[eq:]

	default:
		// Bare key, no '='. Only meaningful when empty values are accepted.
		if !acceptEmpty {
			return nil, fmt.Errorf("%w: missing '=' in line %q", ErrParse, trimmed)
		}
		key = trimmed
	}

	if !validKey(key) {
		return nil, fmt.Errorf("%w: invalid key %q", ErrParse, key)
	}

	var value string
	if strings.HasPrefix(rest, "=") {
		value = strings.TrimSpace(rest[1:])
	}

	if value == "" {
		if !acceptEmpty {
			return nil, fmt.Errorf("%w: empty value for key %q (set AcceptEmpty to allow)", ErrParse, key)
		}
		return &declaration{key: key, annotation: annotation, empty: true}, nil
	}

	return &declaration{key: key, annotation: annotation, value: unquote(value)}, nil
}

// stripComment removes an unescaped '#' and everything after it. Quoted
// regions are preserved and "\#" escapes are unwrapped to a literal '#'.
func stripComment(s string) string {
	var (
		b       strings.Builder
		inQuote rune
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inQuote != 0:
			if rune(c) == inQuote {
				inQuote = 0
			}
			b.WriteByte(c)
		case c == '"' || c == '\'':
			inQuote = rune(c)
			b.WriteByte(c)
		case c == '\\' && i+1 < len(s) && s[i+1] == '#':
			b.WriteByte('#')
			i++
		case c == '#':
			return strings.TrimSpace(b.String())
		default:
			b.WriteByte(c)
		}
	}
	return strings.TrimSpace(b.String())
}

// indexOutsideQuotes returns the index of the first occurrence of c that is
// not inside a quoted region, or -1.
func indexOutsideQuotes(s string, c byte) int {
	var inQuote rune
	for i := 0; i < len(s); i++ {
		switch {
		case inQuote != 0:
			if rune(s[i]) == inQuote {
				inQuote = 0
			}
		case s[i] == '"' || s[i] == '\'':
			inQuote = rune(s[i])
		case s[i] == c:
			return i
		}
	}
	return -1
}

// matchBracket returns the index of the '>' matching the '<' at open, or -1.
func matchBracket(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// validKey reports whether key matches [A-Za-z_][A-Za-z0-9_]*.
func validKey(key string) bool {
	if key == "" {
		return false
	}
	for i, r := range key {
		letter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
		digit := r >= '0' && r <= '9'
		if i == 0 && !letter {
			return false
		}
		if !letter && !digit {
			return false
		}
	}
	return true
}

// unquote strips one pair of matching surrounding quotes, if present.
func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
