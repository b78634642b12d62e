package symbolic

import (
	"errors"
	"math/big"
	"sort"
	"strconv"
	"strings"
)

// maxMulWork bounds the term pairs a single polynomial product may visit.
const maxMulWork = 200_000

// errTooComplex is raised by mul when an expansion would exceed maxMulWork.
// The checker entry points recover it and report a parse failure.
var errTooComplex = errors.New("expression too complex to compare")

// factor is one variable raised to a positive integer power inside a monomial.
type factor struct {
	name string
	exp  int
}

// monomial is a product of factors sorted by name. The empty monomial is 1.
type monomial []factor

func (m monomial) key() string {
	if len(m) == 0 {
		return "1"
	}
	var b strings.Builder
	for i, f := range m {
		if i > 0 {
			b.WriteByte('*')
		}
		b.WriteString(f.name)
		if f.exp != 1 {
			b.WriteByte('^')
			b.WriteString(strconv.Itoa(f.exp))
		}
	}
	return b.String()
}

// term is a rational coefficient times a monomial.
type term struct {
	mono monomial
	coef *big.Rat
}

// poly is a multivariate polynomial over the rationals, keyed by monomial.
// Terms with a zero coefficient are never stored.
type poly map[string]term

func constPoly(r *big.Rat) poly {
	p := poly{}
	if r.Sign() != 0 {
		p["1"] = term{coef: new(big.Rat).Set(r)}
	}
	return p
}

func varPoly(name string) poly {
	m := monomial{{name: name, exp: 1}}
	return poly{m.key(): term{mono: m, coef: big.NewRat(1, 1)}}
}

func (p poly) isZero() bool { return len(p) == 0 }

// constant reports the value of p when it has no variables.
func (p poly) constant() (*big.Rat, bool) {
	switch len(p) {
	case 0:
		return new(big.Rat), true
	case 1:
		if t, ok := p["1"]; ok {
			return new(big.Rat).Set(t.coef), true
		}
	}
	return nil, false
}

func (p poly) addTerm(t term) {
	k := t.mono.key()
	if cur, ok := p[k]; ok {
		sum := new(big.Rat).Add(cur.coef, t.coef)
		if sum.Sign() == 0 {
			delete(p, k)
			return
		}
		p[k] = term{mono: cur.mono, coef: sum}
		return
	}
	if t.coef.Sign() == 0 {
		return
	}
	p[k] = term{mono: t.mono, coef: new(big.Rat).Set(t.coef)}
}

func (p poly) add(q poly) poly {
	out := make(poly, len(p)+len(q))
	for _, t := range p {
		out.addTerm(t)
	}
	for _, t := range q {
		out.addTerm(t)
	}
	return out
}

func (p poly) scale(r *big.Rat) poly {
	out := make(poly, len(p))
	if r.Sign() == 0 {
		return out
	}
	for k, t := range p {
		out[k] = term{mono: t.mono, coef: new(big.Rat).Mul(t.coef, r)}
	}
	return out
}

func (p poly) neg() poly { return p.scale(big.NewRat(-1, 1)) }

func (p poly) sub(q poly) poly { return p.add(q.neg()) }

func (p poly) mul(q poly) poly {
	if len(p)*len(q) > maxMulWork {
		panic(errTooComplex)
	}
	out := poly{}
	for _, a := range p {
		for _, b := range q {
			mono, mult := mulMonomials(a.mono, b.mono)
			coef := new(big.Rat).Mul(a.coef, b.coef)
			coef.Mul(coef, mult)
			out.addTerm(term{mono: mono, coef: coef})
		}
	}
	return out
}

func (p poly) equal(q poly) bool { return p.sub(q).isZero() }

// leading returns the term whose monomial key sorts first. It is used to
// normalise denominators and compare polynomials up to a constant factor.
func (p poly) leading() (term, bool) {
	if len(p) == 0 {
		return term{}, false
	}
	keys := p.keys()
	return p[keys[0]], true
}

func (p poly) keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String renders p deterministically so equal polynomials print identically.
func (p poly) String() string {
	if len(p) == 0 {
		return "0"
	}
	var b strings.Builder
	for i, k := range p.keys() {
		t := p[k]
		if i > 0 {
			b.WriteString(" + ")
		}
		b.WriteString(t.coef.RatString())
		if k != "1" {
			b.WriteByte('*')
			b.WriteString(k)
		}
	}
	return b.String()
}

// mulMonomials multiplies two monomials and applies the square reduction of
// algebraic atoms (I*I = -1, sqrt(k)*sqrt(k) = k). The returned rational is
// the coefficient produced by those reductions.
func mulMonomials(a, b monomial) (monomial, *big.Rat) {
	mult := big.NewRat(1, 1)
	out := make(monomial, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		var f factor
		switch {
		case j >= len(b) || (i < len(a) && a[i].name < b[j].name):
			f = a[i]
			i++
		case i >= len(a) || b[j].name < a[i].name:
			f = b[j]
			j++
		default:
			f = factor{name: a[i].name, exp: a[i].exp + b[j].exp}
			i++
			j++
		}
		if sq, ok := squareOf(f.name); ok && f.exp >= 2 {
			mult.Mul(mult, ratPow(sq, f.exp/2))
			f.exp %= 2
		}
		if f.exp > 0 {
			out = append(out, f)
		}
	}
	return out, mult
}

func ratPow(r *big.Rat, n int) *big.Rat {
	out := big.NewRat(1, 1)
	base := new(big.Rat).Set(r)
	for n > 0 {
		if n&1 == 1 {
			out.Mul(out, base)
		}
		base.Mul(base, base)
		n >>= 1
	}
	return out
}
