package origins

import (
	"strings"
	"unicode/utf8"

	"github.com/gobwas/glob"
	"github.com/jub0bs/corsrw/cfgerrors"
)

// pathSep is the byte that neither an origin nor an origin pattern may end
// with; a browser never sends an Origin header ending with it, so such a
// rule could only ever be a configuration mistake.
const pathSep = "/"

// A Pattern represents a shell-style origin pattern, in which * matches
// any (possibly empty) sequence of bytes, ? matches any single character,
// and [...] matches any character of a class.
// Matching is case-sensitive and anchored at both ends.
// The zero value does not correspond to a valid pattern.
type Pattern struct {
	raw    string
	g      glob.Glob
	minLen int // length of the shortest origin that p can match
}

// ParsePattern compiles str into a [Pattern].
// If it fails, it returns a non-nil error and some invalid pattern.
func ParsePattern(str string) (Pattern, error) {
	if err := checkRule(str, "pattern"); err != nil {
		return Pattern{}, err
	}
	// glob's lexer takes a NUL byte for the end of input and would silently
	// ignore the rest of the pattern.
	if strings.IndexByte(str, 0) >= 0 {
		err := &cfgerrors.UnacceptableOriginError{
			Value:  str,
			Kind:   "pattern",
			Reason: "invalid",
		}
		return Pattern{}, err
	}
	// No separators: * must be free to span dots, colons, and slashes,
	// e.g. in "http://localhost:8*".
	g, err := glob.Compile(str)
	if err != nil {
		err := &cfgerrors.UnacceptableOriginError{
			Value:  str,
			Kind:   "pattern",
			Reason: "invalid",
		}
		return Pattern{}, err
	}
	p := Pattern{
		raw:    str,
		g:      g,
		minLen: minMatchLen(str),
	}
	return p, nil
}

// minMatchLen returns the length of the shortest string matched by str.
// Precondition: str is a syntactically valid pattern.
func minMatchLen(str string) int {
	n, _ := minSeqLen(str, false)
	return n
}

// minSeqLen consumes a sequence of terms and returns the minimum length of
// the strings it matches, along with the unconsumed rest of str.
// If nested, the sequence is an alternative of some {...} group and ends
// at the first unconsumed ',' or '}'.
func minSeqLen(str string, nested bool) (int, string) {
	var n int
	for len(str) > 0 {
		switch str[0] {
		case ',', '}':
			if nested {
				return n, str
			}
			n++
			str = str[1:]
		case '*':
			str = str[1:]
		case '?':
			n++
			str = str[1:]
		case '[':
			n++
			str = skipClass(str[1:])
		case '\\':
			if len(str) == 1 { // a trailing backslash matches nothing
				return n, ""
			}
			_, size := utf8.DecodeRuneInString(str[1:])
			n += size
			str = str[1+size:]
		case '{':
			str = str[1:]
			shortest := -1
			for len(str) > 0 {
				m, rest := minSeqLen(str, true)
				if shortest < 0 || m < shortest {
					shortest = m
				}
				if rest == "" {
					str = rest
					break
				}
				str = rest[1:]
				if rest[0] == '}' {
					break
				}
			}
			n += max(shortest, 0)
		default:
			n++
			str = str[1:]
		}
	}
	return n, str
}

// CheckOrigin reports, by means of a nil error, whether str is acceptable
// as an exact origin.
func CheckOrigin(str string) error {
	return checkRule(str, "origin")
}

func checkRule(str, kind string) error {
	switch {
	case str == "":
		return &cfgerrors.UnacceptableOriginError{
			Value:  str,
			Kind:   kind,
			Reason: "empty",
		}
	case strings.HasSuffix(str, pathSep):
		return &cfgerrors.UnacceptableOriginError{
			Value:  str,
			Kind:   kind,
			Reason: "slash",
		}
	default:
		return nil
	}
}

// skipClass returns what follows the ']' that closes the character class
// whose content starts str.
func skipClass(str string) string {
	for i := 0; i < len(str); i++ {
		switch str[i] {
		case '\\':
			i++
		case ']':
			return str[i+1:]
		}
	}
	return ""
}

// Matches reports whether origin is encompassed by p.
func (p *Pattern) Matches(origin string) bool {
	// Some of glob's matchers (e.g. prefix-suffix) let the parts of the
	// pattern overlap in short inputs; "a*a" must not match "a".
	if len(origin) < p.minLen {
		return false
	}
	return p.g.Match(origin)
}

// String returns the textual representation of p.
func (p *Pattern) String() string {
	return p.raw
}
