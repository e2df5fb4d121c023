package expr

import (
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokName
	tokOp
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

// reserved words of general-purpose languages. None of them has a meaning in
// a pay formula, and their presence means someone is trying more than
// arithmetic.
var reserved = map[string]bool{
	"import": true, "from": true, "lambda": true, "def": true, "class": true,
	"if": true, "else": true, "elif": true, "for": true, "while": true,
	"in": true, "not": true, "and": true, "or": true, "is": true,
	"return": true, "yield": true, "with": true, "as": true, "global": true,
	"nonlocal": true, "del": true, "pass": true, "raise": true, "try": true,
	"except": true, "finally": true, "assert": true, "async": true, "await": true,
	"exec": true, "eval": true, "open": true, "compile": true, "getattr": true,
	"setattr": true, "globals": true, "locals": true, "vars": true,
	"True": true, "False": true, "None": true,
}

func tokenize(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case isDigit(c) || (c == '.' && i+1 < len(src) && isDigit(src[i+1])):
			start := i
			for i < len(src) && (isDigit(src[i]) || src[i] == '.') {
				i++
			}
			if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
				j := i + 1
				if j < len(src) && (src[j] == '+' || src[j] == '-') {
					j++
				}
				if j < len(src) && isDigit(src[j]) {
					i = j
					for i < len(src) && isDigit(src[i]) {
						i++
					}
				}
			}
			text := src[start:i]
			v, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, unsafe(start, "malformed number %q", text)
			}
			if i < len(src) && (isNameStart(src[i]) || src[i] == '.') {
				return nil, unsafe(i, "unexpected %q after number", src[i])
			}
			toks = append(toks, token{kind: tokNumber, text: text, num: v, pos: start})

		case isNameStart(c):
			start := i
			for i < len(src) && isNamePart(src[i]) {
				i++
			}
			name := src[start:i]
			if strings.HasPrefix(name, "__") || strings.HasSuffix(name, "__") {
				return nil, unsafe(start, "dunder name %q", name)
			}
			if reserved[name] {
				return nil, unsafe(start, "reserved word %q", name)
			}
			if i < len(src) && src[i] == '.' {
				return nil, unsafe(i, "attribute access on %q", name)
			}
			toks = append(toks, token{kind: tokName, text: name, pos: start})

		case c == '*' || c == '/':
			if i+1 < len(src) && src[i+1] == c {
				toks = append(toks, token{kind: tokOp, text: src[i : i+2], pos: i})
				i += 2
				continue
			}
			toks = append(toks, token{kind: tokOp, text: string(c), pos: i})
			i++

		case c == '+' || c == '-' || c == '%':
			toks = append(toks, token{kind: tokOp, text: string(c), pos: i})
			i++

		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		case c == ',':
			toks = append(toks, token{kind: tokComma, text: ",", pos: i})
			i++

		case c == '.':
			return nil, unsafe(i, "attribute access")
		case c == '[' || c == ']':
			return nil, unsafe(i, "indexing")
		case c == '{' || c == '}':
			return nil, unsafe(i, "collection literal")
		case c == '"' || c == '\'':
			return nil, unsafe(i, "string literal")
		case c == '=':
			return nil, unsafe(i, "assignment or comparison")
		case c == ';':
			return nil, unsafe(i, "statement separator")
		default:
			r := []rune(src[i:])[0]
			if unicode.IsSpace(r) {
				i += len(string(r))
				continue
			}
			return nil, unsafe(i, "unexpected character %q", r)
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(src)})
	return toks, nil
}

func isDigit(c byte) bool     { return c >= '0' && c <= '9' }
func isNameStart(c byte) bool { return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isNamePart(c byte) bool  { return isNameStart(c) || isDigit(c) }
