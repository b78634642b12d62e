package symbolic

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
)

// maxExponent bounds integer powers so hostile input cannot blow up the
// polynomial arithmetic.
const maxExponent = 64

// maxConstBits bounds the size of a constant raised to a power.
const maxConstBits = 1 << 15

// converter turns a parsed expression tree into an exact rational function.
// Variables listed in bindings are substituted while converting.
type converter struct {
	bindings map[string]*ratfunc
}

// parseExpr normalises s and converts it to a rational function.
func (c *converter) parseExpr(s string) (*ratfunc, error) {
	norm, err := normalize(s)
	if err != nil {
		return nil, err
	}
	tree, err := parser.Parse(norm)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", norm, err)
	}
	return c.convert(tree.Node)
}

func (c *converter) convert(node ast.Node) (*ratfunc, error) {
	switch n := node.(type) {
	case *ast.IntegerNode:
		return ratInt(int64(n.Value)), nil
	case *ast.FloatNode:
		r, ok := new(big.Rat).SetString(strconv.FormatFloat(n.Value, 'g', -1, 64))
		if !ok {
			return nil, fmt.Errorf("invalid number %v", n.Value)
		}
		return ratConst(r), nil
	case *ast.IdentifierNode:
		if v, ok := c.bindings[n.Value]; ok {
			return v, nil
		}
		return ratVar(n.Value), nil
	case *ast.UnaryNode:
		x, err := c.convert(n.Node)
		if err != nil {
			return nil, err
		}
		switch n.Operator {
		case "-":
			return x.neg(), nil
		case "+":
			return x, nil
		}
		return nil, fmt.Errorf("unsupported unary operator %q", n.Operator)
	case *ast.BinaryNode:
		return c.binary(n)
	case *ast.CallNode:
		ident, ok := n.Callee.(*ast.IdentifierNode)
		if !ok {
			return nil, fmt.Errorf("unsupported call target")
		}
		return c.call(ident.Value, n.Arguments)
	case *ast.BuiltinNode:
		return c.call(n.Name, n.Arguments)
	}
	return nil, fmt.Errorf("unsupported expression %T", node)
}

func (c *converter) binary(n *ast.BinaryNode) (*ratfunc, error) {
	switch n.Operator {
	case "+", "-", "*", "/", "^", "**":
	default:
		return nil, fmt.Errorf("unsupported operator %q", n.Operator)
	}
	left, err := c.convert(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := c.convert(n.Right)
	if err != nil {
		return nil, err
	}
	switch n.Operator {
	case "+":
		return left.add(right), nil
	case "-":
		return left.sub(right), nil
	case "*":
		return left.mul(right), nil
	case "/":
		return left.quo(right)
	}
	return power(left, right)
}

// power evaluates base^exp exactly when the exponent is an integer or a half
// integer; anything else becomes an opaque pow atom.
func power(base, exp *ratfunc) (*ratfunc, error) {
	e, ok := exp.constant()
	if !ok {
		return ratVar(atomName("pow", []*ratfunc{base, exp})), nil
	}
	if e.IsInt() {
		if !e.Num().IsInt64() || abs64(e.Num().Int64()) > maxExponent {
			return nil, fmt.Errorf("exponent %s too large", e.RatString())
		}
		if b, ok := base.constant(); ok && int64(b.Num().BitLen()+b.Denom().BitLen())*abs64(e.Num().Int64()) > maxConstBits {
			return nil, errTooComplex
		}
		return base.powInt(int(e.Num().Int64()))
	}
	if e.Denom().Cmp(big.NewInt(2)) == 0 && e.Num().IsInt64() && abs64(e.Num().Int64()) <= maxExponent {
		root, err := sqrtOf(base)
		if err != nil {
			return nil, err
		}
		return root.powInt(int(e.Num().Int64()))
	}
	if b, ok := base.constant(); ok && b.Cmp(big.NewRat(1, 1)) == 0 {
		return ratInt(1), nil
	}
	return ratVar(atomName("pow", []*ratfunc{base, exp})), nil
}

func sqrtOf(x *ratfunc) (*ratfunc, error) {
	if v, ok := x.constant(); ok {
		return sqrtConst(v), nil
	}
	return ratVar(atomName("sqrt", []*ratfunc{x})), nil
}

func (c *converter) call(name string, args []ast.Node) (*ratfunc, error) {
	vals := make([]*ratfunc, 0, len(args))
	for _, a := range args {
		v, err := c.convert(a)
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	if name == "ln" {
		name = "log"
	}
	switch name {
	case "sqrt":
		if len(vals) != 1 {
			return nil, fmt.Errorf("sqrt expects one argument")
		}
		return sqrtOf(vals[0])
	case "abs":
		if len(vals) != 1 {
			return nil, fmt.Errorf("abs expects one argument")
		}
		if v, ok := vals[0].constant(); ok {
			return ratConst(v.Abs(v)), nil
		}
	case "exp", "cos", "cosh":
		if len(vals) == 1 && vals[0].isZero() {
			return ratInt(1), nil
		}
	case "sin", "tan", "sinh", "tanh", "asin", "atan", "arcsin", "arctan":
		if len(vals) == 1 && vals[0].isZero() {
			return ratInt(0), nil
		}
	case "log":
		if len(vals) == 1 {
			if v, ok := vals[0].constant(); ok && v.Cmp(big.NewRat(1, 1)) == 0 {
				return ratInt(0), nil
			}
		}
	}
	return ratVar(atomName(name, vals)), nil
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
