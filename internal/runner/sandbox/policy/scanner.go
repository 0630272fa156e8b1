package policy

import (
	"fmt"
	"strings"
)

// logicalStatements splits source into logical statements with string literal
// contents and comments removed. Bracketed groups and backslash continuations
// join physical lines; ";" and the ":" of compound statement headers split
// them, so "if x: import os" yields "import os" as its own statement.
func logicalStatements(code string) ([]string, error) {
	var statements []string
	var cur strings.Builder

	flush := func() {
		if stmt := strings.TrimSpace(cur.String()); stmt != "" {
			statements = append(statements, stmt)
		}
		cur.Reset()
	}

	depth := 0
	i := 0
	n := len(code)
	for i < n {
		c := code[i]
		switch {
		case c == '#':
			for i < n && code[i] != '\n' {
				i++
			}
		case c == '\'' || c == '"':
			end, err := skipString(code, i)
			if err != nil {
				return nil, err
			}
			// Keep a placeholder so "from x import y" never fuses with a
			// neighboring literal.
			cur.WriteString(`""`)
			i = end
		case c == '\\':
			if i+1 < n && code[i+1] == '\n' {
				cur.WriteByte(' ')
				i += 2
				continue
			}
			if i+1 < n && code[i+1] == '\r' && i+2 < n && code[i+2] == '\n' {
				cur.WriteByte(' ')
				i += 3
				continue
			}
			return nil, fmt.Errorf("stray backslash at offset %d", i)
		case c == '\n':
			if depth == 0 {
				flush()
			} else {
				cur.WriteByte(' ')
			}
			i++
		case c == ';' && depth == 0:
			flush()
			i++
		case c == ':' && depth == 0:
			flush()
			i++
		case c == '(' || c == '[' || c == '{':
			depth++
			cur.WriteByte(c)
			i++
		case c == ')' || c == ']' || c == '}':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced bracket at offset %d", i)
			}
			cur.WriteByte(c)
			i++
		default:
			cur.WriteByte(c)
			i++
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced brackets at end of source")
	}
	flush()
	return statements, nil
}

// skipString advances past the string literal starting at the quote at
// position start and returns the index just after its closing quote.
func skipString(code string, start int) (int, error) {
	quote := code[start]

	// A backslash always escapes the next character for tokenization, even in
	// raw strings (r"\" is unterminated in Python too).
	triple := strings.HasPrefix(code[start:], strings.Repeat(string(quote), 3))
	if triple {
		closer := strings.Repeat(string(quote), 3)
		i := start + 3
		for i < len(code) {
			if code[i] == '\\' {
				i += 2
				continue
			}
			if strings.HasPrefix(code[i:], closer) {
				return i + 3, nil
			}
			i++
		}
		return 0, fmt.Errorf("unterminated triple-quoted string at offset %d", start)
	}

	i := start + 1
	for i < len(code) {
		switch code[i] {
		case '\\':
			i += 2
		case quote:
			return i + 1, nil
		case '\n':
			return 0, fmt.Errorf("unterminated string at offset %d", start)
		default:
			i++
		}
	}
	return 0, fmt.Errorf("unterminated string at offset %d", start)
}
