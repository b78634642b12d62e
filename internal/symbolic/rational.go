package symbolic

import (
	"errors"
	"math/big"
	"strings"
)

var errDivideByZero = errors.New("division by zero")

// ratfunc is a quotient of two polynomials. The denominator is never zero.
type ratfunc struct {
	num, den poly
}

func ratConst(r *big.Rat) *ratfunc {
	return &ratfunc{num: constPoly(r), den: constPoly(big.NewRat(1, 1))}
}

func ratInt(n int64) *ratfunc { return ratConst(big.NewRat(n, 1)) }

func ratVar(name string) *ratfunc {
	return &ratfunc{num: varPoly(name), den: constPoly(big.NewRat(1, 1))}
}

func (r *ratfunc) isZero() bool { return r.num.isZero() }

// constant reports the value of r when neither side has variables.
func (r *ratfunc) constant() (*big.Rat, bool) {
	n, ok := r.num.constant()
	if !ok {
		return nil, false
	}
	d, ok := r.den.constant()
	if !ok || d.Sign() == 0 {
		return nil, false
	}
	return n.Quo(n, d), true
}

func (r *ratfunc) add(o *ratfunc) *ratfunc {
	if r.den.equal(o.den) {
		return (&ratfunc{num: r.num.add(o.num), den: r.den}).normalize()
	}
	return (&ratfunc{
		num: r.num.mul(o.den).add(o.num.mul(r.den)),
		den: r.den.mul(o.den),
	}).normalize()
}

func (r *ratfunc) neg() *ratfunc { return &ratfunc{num: r.num.neg(), den: r.den} }

func (r *ratfunc) sub(o *ratfunc) *ratfunc { return r.add(o.neg()) }

func (r *ratfunc) mul(o *ratfunc) *ratfunc {
	return (&ratfunc{num: r.num.mul(o.num), den: r.den.mul(o.den)}).normalize()
}

func (r *ratfunc) quo(o *ratfunc) (*ratfunc, error) {
	if o.isZero() {
		return nil, errDivideByZero
	}
	return (&ratfunc{num: r.num.mul(o.den), den: r.den.mul(o.num)}).normalize(), nil
}

// powInt raises r to an integer power using square-and-multiply.
func (r *ratfunc) powInt(n int) (*ratfunc, error) {
	if n < 0 {
		if r.isZero() {
			return nil, errDivideByZero
		}
		inv := &ratfunc{num: r.den, den: r.num}
		return inv.normalize().powInt(-n)
	}
	out := ratInt(1)
	base := r
	for n > 0 {
		if n&1 == 1 {
			out = out.mul(base)
		}
		n >>= 1
		if n > 0 {
			base = base.mul(base)
		}
	}
	return out, nil
}

// normalize folds a constant denominator into the numerator and scales a
// polynomial denominator so its leading coefficient is 1. It does not cancel
// common polynomial factors; equality is decided by cross-multiplication.
func (r *ratfunc) normalize() *ratfunc {
	if r.num.isZero() {
		return &ratfunc{num: poly{}, den: constPoly(big.NewRat(1, 1))}
	}
	if d, ok := r.den.constant(); ok {
		inv := new(big.Rat).Inv(d)
		return &ratfunc{num: r.num.scale(inv), den: constPoly(big.NewRat(1, 1))}
	}
	lead, _ := r.den.leading()
	if lead.coef.Cmp(big.NewRat(1, 1)) == 0 {
		return r
	}
	inv := new(big.Rat).Inv(lead.coef)
	return &ratfunc{num: r.num.scale(inv), den: r.den.scale(inv)}
}

// equivalent reports whether r and o are the same rational function.
func (r *ratfunc) equivalent(o *ratfunc) bool {
	return r.num.mul(o.den).equal(o.num.mul(r.den))
}

// proportional reports whether r and o differ only by a non-zero constant
// factor. Two equations lhs = rhs are treated as the same statement when their
// differences are proportional.
func (r *ratfunc) proportional(o *ratfunc) bool {
	a := r.num.mul(o.den)
	b := o.num.mul(r.den)
	if a.isZero() || b.isZero() {
		return a.isZero() && b.isZero()
	}
	la, _ := a.leading()
	bt, ok := b[la.mono.key()]
	if !ok {
		return false
	}
	ratio := new(big.Rat).Quo(la.coef, bt.coef)
	return a.equal(b.scale(ratio))
}

// String is the canonical rendering used to key opaque atoms.
func (r *ratfunc) String() string {
	if d, ok := r.den.constant(); ok && d.Cmp(big.NewRat(1, 1)) == 0 {
		return r.num.String()
	}
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(r.num.String())
	b.WriteString(")/(")
	b.WriteString(r.den.String())
	b.WriteByte(')')
	return b.String()
}
