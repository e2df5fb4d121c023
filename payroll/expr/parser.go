package expr

import "strconv"

const (
	// MaxLength bounds the source text of one expression.
	MaxLength = 1024
	// MaxDepth bounds nesting of parentheses, unary operators and calls.
	MaxDepth = 48
)

// functions is the whitelist with the accepted argument counts (max -1 is
// unbounded).
var functions = map[string]struct{ min, max int }{
	"min":   {2, -1},
	"max":   {2, -1},
	"round": {1, 2},
	"abs":   {1, 1},
	"int":   {1, 1},
	"float": {1, 1},
}

// Parse turns src into a tree of the closed node set.
//
// Grammar, loosest binding first:
//
//	expr    := term (("+" | "-") term)*
//	term    := unary (("*" | "/" | "//" | "%") unary)*
//	unary   := ("+" | "-") unary | power
//	power   := primary ("**" unary)?
//	primary := NUMBER | NAME | NAME "(" args ")" | "(" expr ")"
//
// "**" is right-associative and binds tighter than a unary minus on its
// left, so -2**2 is -4.
func Parse(src string) (Node, error) {
	if len(src) > MaxLength {
		return nil, unsafe(MaxLength, "expression longer than %d bytes", MaxLength)
	}
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	if len(toks) == 1 {
		return nil, unsafe(0, "empty expression")
	}
	p := &parser{toks: toks}
	n, err := p.expr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, unsafe(t.pos, "unexpected %q", t.text)
	}
	return n, nil
}

type parser struct {
	toks  []token
	i     int
	depth int
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) enter(pos int) error {
	p.depth++
	if p.depth > MaxDepth {
		return unsafe(pos, "nesting deeper than %d", MaxDepth)
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

func (p *parser) expr() (Node, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || (t.text != "+" && t.text != "-") {
			return left, nil
		}
		p.next()
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: t.text, Left: left, Right: right}
	}
}

func (p *parser) term() (Node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || (t.text != "*" && t.text != "/" && t.text != "//" && t.text != "%") {
			return left, nil
		}
		p.next()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: t.text, Left: left, Right: right}
	}
}

func (p *parser) unary() (Node, error) {
	t := p.peek()
	if t.kind == tokOp && (t.text == "+" || t.text == "-") {
		p.next()
		if err := p.enter(t.pos); err != nil {
			return nil, err
		}
		defer p.leave()
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		return Unary{Op: t.text, Operand: operand}, nil
	}
	return p.power()
}

func (p *parser) power() (Node, error) {
	base, err := p.primary()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	if t.kind != tokOp || t.text != "**" {
		return base, nil
	}
	p.next()
	if err := p.enter(t.pos); err != nil {
		return nil, err
	}
	defer p.leave()
	exp, err := p.unary()
	if err != nil {
		return nil, err
	}
	return Binary{Op: "**", Left: base, Right: exp}, nil
}

func (p *parser) primary() (Node, error) {
	t := p.next()
	var n Node
	switch t.kind {
	case tokNumber:
		n = Number{Value: t.num}

	case tokName:
		if p.peek().kind == tokLParen {
			return p.call(t)
		}
		n = Name{Ident: t.text}

	case tokLParen:
		if err := p.enter(t.pos); err != nil {
			return nil, err
		}
		inner, err := p.expr()
		p.leave()
		if err != nil {
			return nil, err
		}
		if c := p.next(); c.kind != tokRParen {
			return nil, unsafe(c.pos, "missing closing parenthesis")
		}
		n = inner

	case tokEOF:
		return nil, unsafe(t.pos, "unexpected end of expression")
	default:
		return nil, unsafe(t.pos, "unexpected %q", t.text)
	}

	if next := p.peek(); next.kind == tokLParen {
		return nil, unsafe(next.pos, "call on a non-function")
	}
	return n, nil
}

func (p *parser) call(name token) (Node, error) {
	arity, ok := functions[name.text]
	if !ok {
		return nil, unsafe(name.pos, "function %q is not allowed", name.text)
	}
	if err := p.enter(name.pos); err != nil {
		return nil, err
	}
	defer p.leave()

	p.next() // "("
	var args []Node
	if p.peek().kind != tokRParen {
		for {
			arg, err := p.expr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
	}
	if c := p.next(); c.kind != tokRParen {
		return nil, unsafe(c.pos, "missing closing parenthesis in call to %s", name.text)
	}
	if len(args) < arity.min || (arity.max >= 0 && len(args) > arity.max) {
		return nil, unsafe(name.pos, "%s takes %s, got %d", name.text, arityText(arity.min, arity.max), len(args))
	}
	if next := p.peek(); next.kind == tokLParen {
		return nil, unsafe(next.pos, "call on a non-function")
	}
	return Call{Func: name.text, Args: args}, nil
}

func arityText(lo, hi int) string {
	switch {
	case hi < 0:
		return "at least " + strconv.Itoa(lo) + " arguments"
	case lo == hi && lo == 1:
		return "1 argument"
	case lo == hi:
		return strconv.Itoa(lo) + " arguments"
	default:
		return strconv.Itoa(lo) + " to " + strconv.Itoa(hi) + " arguments"
	}
}
