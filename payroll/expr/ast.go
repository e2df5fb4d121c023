package expr

import (
	"sort"
	"strconv"
	"strings"
)

// Node is one of Number, Name, Unary, Binary or Call. The set is closed:
// the parser produces nothing else and Eval rejects anything else.
type Node interface {
	node()
	String() string
}

type Number struct {
	Value float64
}

type Name struct {
	Ident string
}

type Unary struct {
	Op      string // "+" or "-"
	Operand Node
}

type Binary struct {
	Op          string // + - * / // % **
	Left, Right Node
}

// Call is a call to a whitelisted function.
type Call struct {
	Func string
	Args []Node
}

func (Number) node() {}
func (Name) node()   {}
func (Unary) node()  {}
func (Binary) node() {}
func (Call) node()   {}

func (n Number) String() string { return strconv.FormatFloat(n.Value, 'g', -1, 64) }
func (n Name) String() string   { return n.Ident }
func (n Unary) String() string  { return "(" + n.Op + n.Operand.String() + ")" }
func (n Binary) String() string {
	return "(" + n.Left.String() + " " + n.Op + " " + n.Right.String() + ")"
}
func (n Call) String() string {
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.String()
	}
	return n.Func + "(" + strings.Join(args, ", ") + ")"
}

// Names returns the sorted, distinct variable names referenced by the tree.
func Names(root Node) []string {
	seen := map[string]bool{}
	var walk func(Node)
	walk = func(n Node) {
		switch n := n.(type) {
		case Name:
			seen[n.Ident] = true
		case Unary:
			walk(n.Operand)
		case Binary:
			walk(n.Left)
			walk(n.Right)
		case Call:
			for _, a := range n.Args {
				walk(a)
			}
		}
	}
	walk(root)

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
