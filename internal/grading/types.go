package grading

// QuestionType classifies a generated question.
type QuestionType string

const (
	TypeConceptual  QuestionType = "conceptual"
	TypeProcedural  QuestionType = "procedural"
	TypeApplication QuestionType = "application"
	TypeGeometric   QuestionType = "geometric"
	TypeOpenEnded   QuestionType = "open-ended"
)

// ValidTypes lists every question type the generator may emit.
var ValidTypes = []QuestionType{TypeConceptual, TypeProcedural, TypeApplication, TypeGeometric, TypeOpenEnded}

// IsValid reports whether t is a known question type.
func (t QuestionType) IsValid() bool {
	for _, v := range ValidTypes {
		if t == v {
			return true
		}
	}
	return false
}

// DefaultMaxMarks is the score of a question whose rubric names no marks.
const DefaultMaxMarks = 10.0

// RubricPart is one named component of a rubric.
type RubricPart struct {
	Name  string  `json:"name"`
	Marks float64 `json:"marks"`
}

// Rubric describes how many marks a question is worth.
type Rubric struct {
	FullMarks float64      `json:"full_marks,omitempty"`
	Parts     []RubricPart `json:"parts,omitempty"`
}

// Max returns the maximum marks for the rubric: FullMarks when positive,
// otherwise the sum of the parts, otherwise DefaultMaxMarks.
func (r Rubric) Max() float64 {
	return r.MaxOr(DefaultMaxMarks)
}

// MaxOr is Max with a caller-supplied default.
func (r Rubric) MaxOr(def float64) float64 {
	if r.FullMarks > 0 {
		return r.FullMarks
	}
	var sum float64
	for _, p := range r.Parts {
		sum += p.Marks
	}
	if sum > 0 {
		return sum
	}
	if def <= 0 {
		return DefaultMaxMarks
	}
	return def
}

// Question is a single item of an evaluation.
type Question struct {
	ID               string       `json:"qid"`
	Type             QuestionType `json:"type"`
	Prompt           string       `json:"prompt"`
	ExpectedSolution string       `json:"expected_solution"`
	Concept          string       `json:"concept,omitempty"`
	Rubric           Rubric       `json:"rubric"`
}

// Answer is a student's response to one question.
type Answer struct {
	QuestionID string `json:"qid"`
	Text       string `json:"answer"`
}

// Outcome is the graded result of one question.
type Outcome struct {
	QuestionID string  `json:"qid"`
	Obtained   float64 `json:"obtained"`
	Max        float64 `json:"possible"`
	Feedback   string  `json:"feedback"`

	// SymbolicChecked records that the symbolic checker was invoked and
	// SymbolicCorrect what it concluded, independent of the marks awarded.
	SymbolicChecked bool `json:"symbolic_checked"`
	SymbolicCorrect bool `json:"symbolic_correct"`

	// Grader names the path that produced the marks: "symbolic", "llm",
	// "heuristic" or "none".
	Grader string `json:"grader"`
}

// Summary is the aggregate result of grading an evaluation.
type Summary struct {
	OverallScore   float64            `json:"overall_score"`
	Misconceptions []string           `json:"misconceptions"`
	PerQuestion    map[string]Outcome `json:"grading"`

	// Order lists question IDs in the order they were graded.
	Order []string `json:"order"`
}

// Outcomes returns the per-question outcomes in grading order.
func (s Summary) Outcomes() []Outcome {
	out := make([]Outcome, 0, len(s.Order))
	for _, id := range s.Order {
		out = append(out, s.PerQuestion[id])
	}
	return out
}

// SymbolicUsed counts the questions the symbolic checker looked at.
func (s Summary) SymbolicUsed() int {
	n := 0
	for _, o := range s.PerQuestion {
		if o.SymbolicChecked {
			n++
		}
	}
	return n
}
