package lessons

import "github.com/Pavansyamala/agenticAItutor/internal/mastery"

// Step is one timed segment of a lesson plan.
type Step struct {
	Step        string `json:"step"`
	DurationMin int    `json:"duration_min"`
	Content     string `json:"content"`
}

// Lesson is a teaching plan for one topic.
type Lesson struct {
	Topic           string         `json:"topic"`
	Plan            []Step         `json:"plan"`
	ExpectedMetrics map[string]any `json:"expected_metrics"`
	Metadata        map[string]any `json:"metadata"`
	// Fallback is set when the plan is the canned one.
	Fallback bool `json:"fallback"`
}

// Minutes returns the planned duration.
func (l *Lesson) Minutes() int {
	total := 0
	for _, s := range l.Plan {
		total += s.DurationMin
	}
	return total
}

// Input holds everything needed to plan a lesson.
type Input struct {
	StudentID      string
	Topic          string
	Mastery        mastery.Map
	Misconceptions []string
	TargetMastery  float64
	// Context is background text from the retrieval service.
	Context string
	// RemediationSteps and Mode carry the previous cycle's remediation plan
	// when the lesson is a re-teach.
	RemediationSteps []string
	Mode             string
}
