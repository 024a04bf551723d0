package expr

import "strings"

// reserved holds Lua keywords and the sandbox globals; they are never bound
// from state.
var reserved = map[string]bool{
	"and": true, "break": true, "do": true, "else": true, "elseif": true,
	"end": true, "false": true, "for": true, "function": true, "goto": true,
	"if": true, "in": true, "local": true, "nil": true, "not": true,
	"or": true, "repeat": true, "return": true, "then": true, "true": true,
	"until": true, "while": true,

	"_G": true, "_ENV": true, "_VERSION": true, "assert": true, "error": true,
	"getmetatable": true, "ipairs": true, "next": true, "pairs": true,
	"pcall": true, "print": true, "rawequal": true, "rawget": true,
	"rawlen": true, "rawset": true, "select": true, "setmetatable": true,
	"tonumber": true, "tostring": true, "type": true, "xpcall": true,
	"string": true, "table": true, "math": true, "bit32": true,
	"coroutine": true,
}

// freeNames returns the unqualified identifiers in src in first-use order,
// skipping strings, comments, numbers and field selectors.
func freeNames(src string) []string {
	var names []string
	seen := map[string]bool{}
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case strings.HasPrefix(src[i:], "--"):
			if end := longBracketEnd(src, i+2); end > 0 {
				i = end
			} else if nl := strings.IndexByte(src[i:], '\n'); nl >= 0 {
				i += nl
			} else {
				i = len(src)
			}
		case c == '"' || c == '\'':
			i = quotedEnd(src, i)
		case c == '[' && longBracketEnd(src, i) > 0:
			i = longBracketEnd(src, i)
		case isDigit(c):
			i++
			for i < len(src) && (isIdent(src[i]) || src[i] == '.' ||
				((src[i] == '+' || src[i] == '-') && strings.ContainsRune("eEpP", rune(src[i-1])))) {
				i++
			}
		case isIdentStart(c):
			j := i + 1
			for j < len(src) && isIdent(src[j]) {
				j++
			}
			name := src[i:j]
			if !reserved[name] && !isSelector(src, i) && !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
			i = j
		default:
			i++
		}
	}
	return names
}

// isSelector reports whether the identifier at i follows "." or ":".
// The concatenation operator ".." does not count.
func isSelector(src string, i int) bool {
	j := i - 1
	for j >= 0 && (src[j] == ' ' || src[j] == '\t' || src[j] == '\n' || src[j] == '\r') {
		j--
	}
	if j < 0 {
		return false
	}
	switch src[j] {
	case ':':
		return true
	case '.':
		return j == 0 || src[j-1] != '.'
	}
	return false
}

func quotedEnd(src string, i int) int {
	quote := src[i]
	for i++; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case quote:
			return i + 1
		}
	}
	return len(src)
}

// longBracketEnd returns the index after a [[...]] or [==[...]==] block
// starting at i, or -1 when none starts there.
func longBracketEnd(src string, i int) int {
	if i >= len(src) || src[i] != '[' {
		return -1
	}
	j := i + 1
	for j < len(src) && src[j] == '=' {
		j++
	}
	if j >= len(src) || src[j] != '[' {
		return -1
	}
	closing := "]" + strings.Repeat("=", j-i-1) + "]"
	if end := strings.Index(src[j+1:], closing); end >= 0 {
		return j + 1 + end + len(closing)
	}
	return len(src)
}

func isDigit(c byte) bool      { return c >= '0' && c <= '9' }
func isIdentStart(c byte) bool { return c == '_' || (c|0x20 >= 'a' && c|0x20 <= 'z') }
func isIdent(c byte) bool      { return isIdentStart(c) || isDigit(c) }
