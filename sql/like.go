package sql

import (
	"strings"
	"unicode/utf8"
)

// ----------------------------------------------------------------------------
//
// SQL Like operator. Pushed down LIKE predicate is translated into a regex
// before it reaches the scanning program.
//
// The sql like's wildcard is relatively simple, basically supports 2 placeholder
//
// 1. %, represents zero, one or more sequnces of any characters
// 2. _, represents exactly one character
// 3. backslash escapes the next character, ie \% matches a literal %
//
// The generated regex is anchored on both side, and every literal character
// is put into a bracket expression so it is valid for both POSIX ERE (awk)
// and RE2.
//
// ----------------------------------------------------------------------------

func LikeToRegex(
	input string,
) string {
	buf := strings.Builder{}
	buf.WriteString("^")

	encodeC := func(c rune) {
		switch c {
		case '[', ']', '\\', '^', '/':
			buf.WriteRune('\\')
			buf.WriteRune(c)

		default:
			buf.WriteRune('[')
			buf.WriteRune(c)
			buf.WriteRune(']')
		}
	}

	l := len(input)

	for i := 0; i < l; {
		c, sz := utf8.DecodeRuneInString(input[i:])
		if c == utf8.RuneError {
			i++
			continue // skip it
		}
		i += sz

		switch c {
		case '%':
			buf.WriteString(".*")

		case '_':
			buf.WriteString(".")

		case '\\':
			if i < l {
				next, nsz := utf8.DecodeRuneInString(input[i:])
				encodeC(next)
				i += nsz
			} else {
				encodeC(c)
			}

		default:
			encodeC(c)
		}
	}

	buf.WriteString("$")
	return buf.String()
}
