package csharp

import (
	"bytes"
	"strings"
)

// Preprocess evaluates conditional compilation directives against the
// given define symbols. Directive lines and lines in inactive regions
// are blanked; every newline is kept so line numbers stay valid.
//
// #define and #undef in active regions update the symbol set for the
// rest of the file. Malformed conditions evaluate to false. A '#' line
// that starts inside a block comment or a verbatim string is text.
func Preprocess(source []byte, defines []string) []byte {
	symbols := make(map[string]bool, len(defines))
	for _, d := range defines {
		if d = strings.TrimSpace(d); d != "" {
			symbols[d] = true
		}
	}

	var stack []condFrame
	active := func() bool {
		return len(stack) == 0 || stack[len(stack)-1].active
	}

	var out bytes.Buffer
	out.Grow(len(source))

	state := lexCode
	lines := bytes.SplitAfter(source, []byte("\n"))
	for _, line := range lines {
		body, eol := splitEOL(line)
		keyword, arg, ok := "", "", false
		if state == lexCode {
			keyword, arg, ok = parseDirective(body)
		}
		if !ok {
			if active() {
				out.Write(body)
				state = scanLine(body, state)
			}
			out.Write(eol)
			continue
		}

		switch keyword {
		case "if":
			parent := active()
			taken := parent && evalCondition(arg, symbols)
			stack = append(stack, condFrame{parentActive: parent, taken: taken, active: taken})
		case "elif":
			if len(stack) > 0 {
				f := &stack[len(stack)-1]
				f.active = f.parentActive && !f.taken && evalCondition(arg, symbols)
				f.taken = f.taken || f.active
			}
		case "else":
			if len(stack) > 0 {
				f := &stack[len(stack)-1]
				f.active = f.parentActive && !f.taken
				f.taken = true
			}
		case "endif":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case "define":
			if active() {
				if name := firstField(arg); name != "" {
					symbols[name] = true
				}
			}
		case "undef":
			if active() {
				delete(symbols, firstField(arg))
			}
		}
		out.Write(eol)
	}
	return out.Bytes()
}

type condFrame struct {
	parentActive bool
	taken        bool
	active       bool
}

type lexState int

const (
	lexCode lexState = iota
	lexBlockComment
	lexVerbatim
)

// scanLine returns the lexical state at the end of line given the state
// at its start. Only constructs that can span lines matter: block
// comments and verbatim strings. Regular strings, char literals and
// line comments are skipped so their contents cannot open either one.
func scanLine(line []byte, state lexState) lexState {
	for i := 0; i < len(line); {
		switch state {
		case lexBlockComment:
			end := bytes.Index(line[i:], []byte("*/"))
			if end < 0 {
				return state
			}
			i += end + 2
			state = lexCode
		case lexVerbatim:
			end := bytes.IndexByte(line[i:], '"')
			if end < 0 {
				return state
			}
			i += end + 1
			if i < len(line) && line[i] == '"' {
				i++
				continue
			}
			state = lexCode
		default:
			c := line[i]
			next := byte(0)
			if i+1 < len(line) {
				next = line[i+1]
			}
			switch {
			case c == '/' && next == '/':
				return state
			case c == '/' && next == '*':
				state = lexBlockComment
				i += 2
			case c == '@' && next == '"':
				state = lexVerbatim
				i += 2
			case (c == '@' && next == '$' || c == '$' && next == '@') && i+2 < len(line) && line[i+2] == '"':
				state = lexVerbatim
				i += 3
			case c == '"' || c == '\'':
				i = skipQuoted(line, i+1, c)
			default:
				i++
			}
		}
	}
	return state
}

// skipQuoted returns the index just past the closing quote, honouring
// backslash escapes, or len(line) when the literal is unterminated.
func skipQuoted(line []byte, i int, quote byte) int {
	for i < len(line) {
		switch line[i] {
		case '\\':
			i += 2
		case quote:
			return i + 1
		default:
			i++
		}
	}
	return len(line)
}

func splitEOL(line []byte) (body, eol []byte) {
	n := len(line)
	if n > 0 && line[n-1] == '\n' {
		n--
		if n > 0 && line[n-1] == '\r' {
			n--
		}
	}
	return line[:n], line[n:]
}

// parseDirective recognizes "#keyword rest", allowing whitespace before
// and after '#'. Trailing // comments are removed from rest.
func parseDirective(line []byte) (keyword, rest string, ok bool) {
	s := strings.TrimLeft(string(line), " \t")
	if !strings.HasPrefix(s, "#") {
		return "", "", false
	}
	s = strings.TrimLeft(s[1:], " \t")

	end := 0
	for end < len(s) && isIdentByte(s[end]) {
		end++
	}
	keyword, rest = s[:end], s[end:]
	if i := strings.Index(rest, "//"); i >= 0 {
		rest = rest[:i]
	}
	return keyword, strings.TrimSpace(rest), true
}

func firstField(s string) string {
	f := strings.Fields(s)
	if len(f) == 0 {
		return ""
	}
	return f[0]
}

// evalCondition evaluates a directive condition:
//
//	expr  = or
//	or    = and { "||" and }
//	and   = eq { "&&" eq }
//	eq    = unary { ("==" | "!=") unary }
//	unary = "!" unary | "(" or ")" | "true" | "false" | identifier
func evalCondition(expr string, symbols map[string]bool) bool {
	p := &condParser{tokens: tokenize(expr), symbols: symbols}
	v, ok := p.or()
	if !ok || p.pos != len(p.tokens) {
		return false
	}
	return v
}

type condParser struct {
	tokens  []string
	pos     int
	symbols map[string]bool
}

func (p *condParser) peek() string {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return ""
}

func (p *condParser) or() (bool, bool) {
	v, ok := p.and()
	for ok && p.peek() == "||" {
		p.pos++
		var r bool
		r, ok = p.and()
		v = v || r
	}
	return v, ok
}

func (p *condParser) and() (bool, bool) {
	v, ok := p.eq()
	for ok && p.peek() == "&&" {
		p.pos++
		var r bool
		r, ok = p.eq()
		v = v && r
	}
	return v, ok
}

func (p *condParser) eq() (bool, bool) {
	v, ok := p.unary()
	for ok && (p.peek() == "==" || p.peek() == "!=") {
		op := p.tokens[p.pos]
		p.pos++
		var r bool
		r, ok = p.unary()
		if op == "==" {
			v = v == r
		} else {
			v = v != r
		}
	}
	return v, ok
}

func (p *condParser) unary() (bool, bool) {
	tok := p.peek()
	switch {
	case tok == "":
		return false, false
	case tok == "!":
		p.pos++
		v, ok := p.unary()
		return !v, ok
	case tok == "(":
		p.pos++
		v, ok := p.or()
		if !ok || p.peek() != ")" {
			return false, false
		}
		p.pos++
		return v, true
	case tok == "true":
		p.pos++
		return true, true
	case tok == "false":
		p.pos++
		return false, true
	case isIdentByte(tok[0]):
		p.pos++
		return p.symbols[tok], true
	default:
		return false, false
	}
}

func tokenize(s string) []string {
	var tokens []string
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case isIdentByte(c):
			j := i
			for j < len(s) && isIdentByte(s[j]) {
				j++
			}
			tokens = append(tokens, s[i:j])
			i = j
		case i+1 < len(s) && (s[i:i+2] == "&&" || s[i:i+2] == "||" || s[i:i+2] == "==" || s[i:i+2] == "!="):
			tokens = append(tokens, s[i:i+2])
			i += 2
		case c == '!' || c == '(' || c == ')':
			tokens = append(tokens, string(c))
			i++
		default:
			// Unknown character; make the expression malformed.
			tokens = append(tokens, string(c))
			i++
		}
	}
	return tokens
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c >= 0x80
}
