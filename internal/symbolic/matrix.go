package symbolic

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
)

// matrix is a rectangular grid of exact entries.
type matrix [][]*ratfunc

func (m matrix) shape() (int, int) {
	if len(m) == 0 {
		return 0, 0
	}
	return len(m), len(m[0])
}

var latexMatrixEnv = regexp.MustCompile(`(?s)\\begin\{([pbBvV]?matrix)\}(.*?)\\end\{[pbBvV]?matrix\}`)

// VerifyMatrix reports whether student and expected describe the same matrix.
// Accepted forms are nested lists ([[1,2],[3,4]]), Matrix([[...]]), one row
// per line or per ";", and LaTeX matrix environments. A flat list is a column
// vector.
func (c *Checker) VerifyMatrix(student, expected string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = c.recovered("matrix", r, matrixParseFailure())
		}
	}()

	s, err := parseMatrix(student)
	if err != nil {
		c.log().Debug("matrix parse failed", "side", "student", "error", err)
		return matrixParseFailure()
	}
	e, err := parseMatrix(expected)
	if err != nil {
		c.log().Debug("matrix parse failed", "side", "expected", "error", err)
		return matrixParseFailure()
	}

	incorrect := Result{Parsed: true, Feedback: fmt.Sprintf("Incorrect matrix. Expected:\n%s", strings.TrimSpace(expected))}
	sr, sc := s.shape()
	er, ec := e.shape()
	if sr != er || sc != ec {
		return incorrect
	}
	for i := range s {
		for j := range s[i] {
			if !s[i][j].sub(e[i][j]).isZero() {
				return incorrect
			}
		}
	}
	return Result{Correct: true, Parsed: true, Feedback: "Matrix is correct!"}
}

func matrixParseFailure() Result {
	return Result{Feedback: "Invalid matrix format."}
}

func parseMatrix(s string) (matrix, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty matrix")
	}
	if len(s) > MaxInputLength {
		return nil, fmt.Errorf("matrix exceeds %d characters", MaxInputLength)
	}
	s = strings.Trim(s, "$")
	if m := latexMatrixEnv.FindStringSubmatch(s); m != nil {
		return parseLatexMatrix(m[2])
	}
	if inner, ok := strings.CutPrefix(s, "Matrix("); ok {
		s = strings.TrimSuffix(strings.TrimSpace(inner), ")")
	}
	if rows := splitRows(s); len(rows) > 1 {
		return parseRows(rows)
	}
	return parseListMatrix(s)
}

func parseLatexMatrix(body string) (matrix, error) {
	var cells [][]string
	for _, row := range strings.Split(body, `\\`) {
		row = strings.TrimSpace(row)
		if row == "" {
			continue
		}
		cells = append(cells, strings.Split(row, "&"))
	}
	return buildMatrix(cells)
}

// splitRows splits s into rows on newlines or top-level semicolons.
func splitRows(s string) []string {
	var rows []string
	for _, line := range strings.Split(s, "\n") {
		for _, part := range splitTopLevel(line, ';') {
			if part = strings.TrimSpace(part); part != "" {
				rows = append(rows, strings.TrimSuffix(part, ","))
			}
		}
	}
	return rows
}

func parseRows(rows []string) (matrix, error) {
	cells := make([][]string, 0, len(rows))
	for _, row := range rows {
		row = strings.TrimSpace(row)
		row = strings.TrimPrefix(row, "[")
		row = strings.TrimSuffix(row, "]")
		row = strings.TrimPrefix(row, "[")
		row = strings.TrimSuffix(row, "]")
		var parts []string
		if strings.Contains(row, ",") {
			parts = splitTopLevel(row, ',')
		} else {
			parts = strings.Fields(row)
		}
		cells = append(cells, parts)
	}
	return buildMatrix(cells)
}

func buildMatrix(cells [][]string) (matrix, error) {
	if len(cells) == 0 {
		return nil, fmt.Errorf("empty matrix")
	}
	conv := &converter{}
	out := make(matrix, len(cells))
	for i, row := range cells {
		if len(row) != len(cells[0]) {
			return nil, fmt.Errorf("ragged matrix: row %d has %d entries, want %d", i, len(row), len(cells[0]))
		}
		out[i] = make([]*ratfunc, len(row))
		for j, cell := range row {
			v, err := conv.parseExpr(cell)
			if err != nil {
				return nil, fmt.Errorf("entry (%d,%d): %w", i, j, err)
			}
			out[i][j] = v
		}
	}
	return out, nil
}

// parseListMatrix handles bracketed list notation via the expression parser.
func parseListMatrix(s string) (matrix, error) {
	norm, err := normalize(s)
	if err != nil {
		return nil, err
	}
	tree, err := parser.Parse(norm)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", norm, err)
	}
	node := tree.Node
	if call, ok := node.(*ast.CallNode); ok && len(call.Arguments) == 1 {
		if id, ok := call.Callee.(*ast.IdentifierNode); ok && id.Value == "Matrix" {
			node = call.Arguments[0]
		}
	}
	arr, ok := node.(*ast.ArrayNode)
	if !ok || len(arr.Nodes) == 0 {
		return nil, fmt.Errorf("not a matrix")
	}

	conv := &converter{}
	_, nested := arr.Nodes[0].(*ast.ArrayNode)
	if !nested {
		out := make(matrix, len(arr.Nodes))
		for i, n := range arr.Nodes {
			v, err := conv.convert(n)
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
			out[i] = []*ratfunc{v}
		}
		return out, nil
	}

	out := make(matrix, len(arr.Nodes))
	for i, n := range arr.Nodes {
		row, ok := n.(*ast.ArrayNode)
		if !ok {
			return nil, fmt.Errorf("row %d is not a list", i)
		}
		if len(row.Nodes) == 0 || len(row.Nodes) != len(arr.Nodes[0].(*ast.ArrayNode).Nodes) {
			return nil, fmt.Errorf("ragged matrix at row %d", i)
		}
		out[i] = make([]*ratfunc, len(row.Nodes))
		for j, cell := range row.Nodes {
			v, err := conv.convert(cell)
			if err != nil {
				return nil, fmt.Errorf("entry (%d,%d): %w", i, j, err)
			}
			out[i][j] = v
		}
	}
	return out, nil
}
