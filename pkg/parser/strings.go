package parser

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// unquote decodes a quoted JavaScript string literal. Malformed escapes are
// kept as written.
func unquote(raw string) string {
	if len(raw) < 2 {
		return raw
	}
	body := raw[1 : len(raw)-1]
	if !strings.ContainsRune(body, '\\') {
		return body
	}

	var sb strings.Builder
	sb.Grow(len(body))
	for i := 0; i < len(body); i++ {
		ch := body[i]
		if ch != '\\' || i+1 >= len(body) {
			sb.WriteByte(ch)
			continue
		}
		i++
		switch esc := body[i]; esc {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'v':
			sb.WriteByte('\v')
		case '0':
			sb.WriteByte(0)
		case '\n':
			// line continuation
		case '\r':
			if i+1 < len(body) && body[i+1] == '\n' {
				i++
			}
		case 'x':
			if r, ok := hexRune(body, i+1, 2); ok {
				sb.WriteRune(r)
				i += 2
			} else {
				sb.WriteString(`\x`)
			}
		case 'u':
			r, width, ok := unicodeEscape(body, i+1)
			if !ok {
				sb.WriteString(`\u`)
				continue
			}
			i += width
			// Combine surrogate pairs written as two escapes.
			if r >= 0xD800 && r <= 0xDBFF && i+2 < len(body) && body[i+1] == '\\' && body[i+2] == 'u' {
				if lo, w2, ok := unicodeEscape(body, i+3); ok && lo >= 0xDC00 && lo <= 0xDFFF {
					r = (r-0xD800)<<10 + (lo - 0xDC00) + 0x10000
					i += 2 + w2
				}
			}
			if !utf8.ValidRune(r) {
				r = utf8.RuneError
			}
			sb.WriteRune(r)
		default:
			sb.WriteByte(esc)
		}
	}
	return sb.String()
}

// unicodeEscape reads the digits of `\uXXXX` or `\u{X...}` starting at i.
// It returns the rune and how many bytes were consumed.
func unicodeEscape(s string, i int) (rune, int, bool) {
	if i < len(s) && s[i] == '{' {
		end := strings.IndexByte(s[i:], '}')
		if end < 2 {
			return 0, 0, false
		}
		r, ok := hexRune(s, i+1, end-1)
		return r, end + 1, ok
	}
	r, ok := hexRune(s, i, 4)
	return r, 4, ok
}

func hexRune(s string, start, n int) (rune, bool) {
	if start+n > len(s) {
		return 0, false
	}
	v, err := strconv.ParseUint(s[start:start+n], 16, 32)
	if err != nil {
		return 0, false
	}
	return rune(v), true
}
