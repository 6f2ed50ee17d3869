package similarity

import "strings"

// soundexDigits maps consonant classes per the classic Soundex algorithm.
var soundexDigits = map[rune]byte{
	'b': '1', 'f': '1', 'p': '1', 'v': '1',
	'c': '2', 'g': '2', 'j': '2', 'k': '2', 'q': '2', 's': '2', 'x': '2', 'z': '2',
	'd': '3', 't': '3',
	'l': '4',
	'm': '5', 'n': '5',
	'r': '6',
}

// soundex computes the 4-character Soundex code of an ASCII token. Tokens
// containing no ASCII letters have no phonetic code and return "".
func soundex(token string) string {
	token = strings.ToLower(token)

	first := rune(0)
	rest := token
	for i, r := range token {
		if r >= 'a' && r <= 'z' {
			first = r
			rest = token[i+1:]
			break
		}
	}
	if first == 0 {
		return ""
	}

	code := make([]byte, 0, 4)
	code = append(code, byte(first-'a'+'A'))

	last := soundexDigits[first]
	for _, r := range rest {
		d, ok := soundexDigits[r]
		switch {
		case ok && d != last:
			code = append(code, d)
			last = d
		case !ok && r != 'h' && r != 'w':
			// Vowels reset adjacency; h/w are transparent.
			last = 0
		}
		if len(code) == 4 {
			break
		}
	}

	for len(code) < 4 {
		code = append(code, '0')
	}
	return string(code)
}

// phoneticEqual reports whether two normalized names are token-for-token
// phonetically identical. Names of different token counts, or with tokens
// that carry no phonetic code, are never phonetically equal.
func phoneticEqual(a, b []string) bool {
	if len(a) == 0 || len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := soundex(a[i]), soundex(b[i])
		if ca == "" || ca != cb {
			return false
		}
	}
	return true
}
