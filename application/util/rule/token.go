package rule

import (
	"bytes"
)

// IsTChar reports whether c may appear in a token.
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.6.2-2
func IsTChar(c rune) bool {
	if IsAlpha(c) || IsDigit(c) {
		return true
	}
	switch c {
	case '!', '#', '$', '%', '&', '\'', '*', '+',
		'-', '.', '^', '_', '`', '|', '~':
		return true
	}
	return false
}

func IsValidToken(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, c := range s {
		if !IsTChar(c) {
			return false
		}
	}
	return true
}

// Unquote strips the surrounding double quotes of a quoted-string and resolves its quoted-pairs.
// A token which isn't quoted is returned as a copy.
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.6.4
func Unquote(token []byte) []byte {
	if len(token) < 2 || token[0] != '"' || token[len(token)-1] != '"' {
		return bytes.Clone(token)
	}
	inner := token[1 : len(token)-1]

	buf := bytes.NewBuffer(make([]byte, 0, len(inner)))
	for i := 0; i < len(inner); i++ {
		if inner[i] == '\\' && i+1 < len(inner) {
			i++
		}
		buf.WriteByte(inner[i])
	}

	return buf.Bytes()
}
