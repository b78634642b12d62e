package symbolic

import (
	"math/big"
	"strings"
)

const imaginaryUnit = "I"

// squareOf returns the value of name*name for algebraic atoms.
func squareOf(name string) (*big.Rat, bool) {
	if name == imaginaryUnit {
		return big.NewRat(-1, 1), true
	}
	if inner, ok := strings.CutPrefix(name, "sqrt("); ok {
		inner = strings.TrimSuffix(inner, ")")
		n, ok := new(big.Int).SetString(inner, 10)
		if ok && n.Sign() > 0 {
			return new(big.Rat).SetInt(n), true
		}
	}
	return nil, false
}

// sqrtConst returns the exact square root of a rational constant in the form
// c * sqrt(k) with k a square-free positive integer. Negative radicands carry
// the imaginary unit.
func sqrtConst(r *big.Rat) *ratfunc {
	if r.Sign() == 0 {
		return ratInt(0)
	}
	imag := r.Sign() < 0
	abs := new(big.Rat).Abs(r)

	// sqrt(p/q) = sqrt(p*q)/q
	pq := new(big.Int).Mul(abs.Num(), abs.Denom())
	outside, inside := extractSquare(pq)

	coef := new(big.Rat).SetFrac(outside, abs.Denom())
	out := ratConst(coef)
	if inside.Cmp(big.NewInt(1)) != 0 {
		out = out.mul(ratVar("sqrt(" + inside.String() + ")"))
	}
	if imag {
		out = out.mul(ratVar(imaginaryUnit))
	}
	return out
}

// extractSquare splits n into outside^2 * inside. Trial division is bounded so
// very large radicands keep their unfactored remainder inside the root.
func extractSquare(n *big.Int) (outside, inside *big.Int) {
	outside = big.NewInt(1)
	inside = new(big.Int).Set(n)
	if inside.BitLen() > 64 {
		return outside, inside
	}
	p := big.NewInt(2)
	sq := new(big.Int)
	rem := new(big.Int)
	quo := new(big.Int)
	for limit := 0; limit < 100000; limit++ {
		sq.Mul(p, p)
		if sq.Cmp(inside) > 0 {
			break
		}
		for {
			quo.QuoRem(inside, sq, rem)
			if rem.Sign() != 0 {
				break
			}
			inside.Set(quo)
			outside.Mul(outside, p)
		}
		p.Add(p, big.NewInt(1))
	}
	return outside, inside
}

// atomName builds the canonical key for an uninterpreted function application.
func atomName(fn string, args []*ratfunc) string {
	var b strings.Builder
	b.WriteString(fn)
	b.WriteByte('(')
	for i, a := range args {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(a.String())
	}
	b.WriteByte(')')
	return b.String()
}
