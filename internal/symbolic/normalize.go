package symbolic

import (
	"fmt"
	"strings"
	"unicode"
)

var latexReplacer = strings.NewReplacer(
	`\left`, "",
	`\right`, "",
	`\displaystyle`, "",
	`\,`, " ",
	`\;`, " ",
	`\:`, " ",
	`\!`, "",
	`\quad`, " ",
	`\qquad`, " ",
	`\cdot`, "*",
	`\times`, "*",
	`\ast`, "*",
	`\div`, "/",
	`\pi`, "pi",
	"·", "*",
	"×", "*",
	"÷", "/",
	"−", "-",
	"π", "pi",
	"$", "",
)

// knownFunctions are names that, when followed by "(", denote a call rather
// than implicit multiplication.
var knownFunctions = map[string]bool{
	"sqrt": true, "abs": true, "exp": true, "log": true, "ln": true,
	"sin": true, "cos": true, "tan": true, "sec": true, "csc": true, "cot": true,
	"asin": true, "acos": true, "atan": true, "arcsin": true, "arccos": true, "arctan": true,
	"sinh": true, "cosh": true, "tanh": true, "det": true, "Matrix": true,
}

// normalize rewrites LaTeX and loose notation into the expression grammar
// accepted by the parser.
func normalize(s string) (string, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, `\(`)
	s = strings.TrimSuffix(s, `\)`)
	s = strings.TrimPrefix(s, `\[`)
	s = strings.TrimSuffix(s, `\]`)
	s = latexReplacer.Replace(s)
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty expression")
	}
	out, err := expandLatex(s)
	if err != nil {
		return "", err
	}
	return insertImplicitMul(out), nil
}

// expandLatex rewrites brace-delimited LaTeX commands into plain notation.
func expandLatex(s string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '\\':
			j := i + 1
			for j < len(s) && isASCIILetter(s[j]) {
				j++
			}
			name := s[i+1 : j]
			if name == "" {
				return "", fmt.Errorf("unsupported LaTeX sequence at offset %d", i)
			}
			switch name {
			case "frac", "dfrac", "tfrac":
				num, next, err := readGroup(s, j)
				if err != nil {
					return "", err
				}
				den, next, err := readGroup(s, next)
				if err != nil {
					return "", err
				}
				n, err := expandLatex(num)
				if err != nil {
					return "", err
				}
				d, err := expandLatex(den)
				if err != nil {
					return "", err
				}
				fmt.Fprintf(&b, "((%s)/(%s))", n, d)
				i = next
			case "sqrt":
				index := ""
				k := skipSpaces(s, j)
				if k < len(s) && s[k] == '[' {
					end := strings.IndexByte(s[k:], ']')
					if end < 0 {
						return "", fmt.Errorf("unterminated root index")
					}
					index = s[k+1 : k+end]
					k += end + 1
				}
				arg, next, err := readGroup(s, k)
				if err != nil {
					return "", err
				}
				a, err := expandLatex(arg)
				if err != nil {
					return "", err
				}
				if index == "" {
					fmt.Fprintf(&b, "sqrt(%s)", a)
				} else {
					idx, err := expandLatex(index)
					if err != nil {
						return "", err
					}
					fmt.Fprintf(&b, "((%s)^(1/(%s)))", a, idx)
				}
				i = next
			case "operatorname", "mathrm", "text", "mathbf":
				arg, next, err := readGroup(s, j)
				if err != nil {
					return "", err
				}
				b.WriteString(strings.TrimSpace(arg))
				i = next
			default:
				b.WriteString(name)
				i = j
			}
		case c == '^' || c == '_':
			k := skipSpaces(s, i+1)
			if k < len(s) && s[k] == '{' {
				arg, next, err := readGroup(s, k)
				if err != nil {
					return "", err
				}
				a, err := expandLatex(arg)
				if err != nil {
					return "", err
				}
				if c == '^' {
					fmt.Fprintf(&b, "^(%s)", a)
				} else {
					b.WriteByte('_')
					b.WriteString(subscript(a))
				}
				i = next
				continue
			}
			b.WriteByte(c)
			i++
		case c == '{':
			b.WriteByte('(')
			i++
		case c == '}':
			b.WriteByte(')')
			i++
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), nil
}

// readGroup reads a {...} group starting at or after i. A bare single
// character is accepted as a group, matching LaTeX's \frac12 shorthand.
func readGroup(s string, i int) (string, int, error) {
	i = skipSpaces(s, i)
	if i >= len(s) {
		return "", i, fmt.Errorf("missing argument")
	}
	if s[i] != '{' {
		return s[i : i+1], i + 1, nil
	}
	depth := 0
	for j := i; j < len(s); j++ {
		switch s[j] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[i+1 : j], j + 1, nil
			}
		}
	}
	return "", i, fmt.Errorf("unbalanced braces")
}

func skipSpaces(s string, i int) int {
	for i < len(s) && s[i] == ' ' {
		i++
	}
	return i
}

func subscript(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool { return isASCIILetter(c) || c == '_' }

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }

type tokenKind int

const (
	tokNone tokenKind = iota
	tokNumber
	tokIdent
	tokOpen
	tokClose
	tokOther
)

// insertImplicitMul makes juxtaposition explicit: 2x, 2(x+1), (a)(b), x y.
func insertImplicitMul(s string) string {
	var b strings.Builder
	prev := tokNone
	prevIdent := ""
	spaced := false
	emit := func(tok string, mul bool) {
		if mul {
			b.WriteByte('*')
		} else if spaced {
			b.WriteByte(' ')
		}
		spaced = false
		b.WriteString(tok)
	}
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			spaced = prev != tokNone
			i++
		case isDigit(c) || (c == '.' && i+1 < len(s) && isDigit(s[i+1])):
			j := i
			for j < len(s) && (isDigit(s[j]) || s[j] == '.') {
				j++
			}
			emit(s[i:j], prev == tokIdent || prev == tokClose)
			prev = tokNumber
			i = j
		case isIdentStart(c):
			j := i
			for j < len(s) && isIdentPart(s[j]) {
				j++
			}
			prevIdent = s[i:j]
			emit(prevIdent, prev == tokNumber || prev == tokIdent || prev == tokClose)
			prev = tokIdent
			i = j
		case c == '(':
			emit("(", prev == tokNumber || prev == tokClose || (prev == tokIdent && !isCallable(prevIdent)))
			prev = tokOpen
			i++
		case c == ')':
			emit(")", false)
			prev = tokClose
			i++
		default:
			emit(string(c), false)
			prev = tokOther
			i++
		}
	}
	return b.String()
}

func isCallable(name string) bool {
	if knownFunctions[name] {
		return true
	}
	// Multi-letter names such as f1 or gcd read as calls; a single letter
	// before a parenthesis is a product.
	return len(name) > 1
}
