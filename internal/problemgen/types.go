package problemgen

import "github.com/Pavansyamala/agenticAItutor/internal/grading"

// DefaultTypes is the order question types are requested in.
var DefaultTypes = []grading.QuestionType{
	grading.TypeConceptual,
	grading.TypeProcedural,
	grading.TypeApplication,
	grading.TypeOpenEnded,
}

// DefaultCounts is how many questions of each type an evaluation asks for.
var DefaultCounts = map[grading.QuestionType]int{
	grading.TypeConceptual:  2,
	grading.TypeProcedural:  2,
	grading.TypeApplication: 1,
	grading.TypeOpenEnded:   1,
}

// Input holds all context needed to generate an evaluation.
type Input struct {
	// Topic is the subject the questions test.
	Topic string

	// Types lists the question types to request, in order. Empty means
	// DefaultTypes.
	Types []grading.QuestionType

	// Counts maps each type to the number of questions wanted. Types missing
	// from Counts use DefaultCounts, then 1.
	Counts map[grading.QuestionType]int

	// Context is background text integrated into the question prompts.
	Context string

	// PriorQuestions contains the prompts already asked in this thread.
	// Used for deduplication in the prompt and by the dedup validator.
	PriorQuestions []string

	// Misconceptions are the student's known weaknesses.
	Misconceptions []string
}

// typeCount is one entry of a generation plan.
type typeCount struct {
	Type  grading.QuestionType
	Count int
}

// plan resolves Types and Counts into the ordered list of requests.
func (in Input) plan() []typeCount {
	types := in.Types
	if len(types) == 0 {
		types = DefaultTypes
	}
	seen := make(map[grading.QuestionType]bool, len(types))
	out := make([]typeCount, 0, len(types))
	for _, t := range types {
		if !t.IsValid() || seen[t] {
			continue
		}
		seen[t] = true
		n, ok := in.Counts[t]
		if !ok {
			n, ok = DefaultCounts[t]
		}
		if !ok {
			n = 1
		}
		if n <= 0 {
			continue
		}
		out = append(out, typeCount{Type: t, Count: n})
	}
	return out
}

// Total returns the number of questions the input asks for.
func (in Input) Total() int {
	total := 0
	for _, tc := range in.plan() {
		total += tc.Count
	}
	return total
}
