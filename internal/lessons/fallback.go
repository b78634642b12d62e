package lessons

import "fmt"

// FallbackHint is returned when no hint can be generated.
const FallbackHint = "Write down what is given and what is asked, then try the first step on a simpler version of the problem."

// FallbackLesson returns the canned three-step plan for in.Topic. When a
// remediation plan is attached its steps become the practice content.
func FallbackLesson(in Input) Lesson {
	topic := in.Topic
	if topic == "" {
		topic = "the topic"
	}
	practice := "Work through 3 practice problems on " + topic + ", annotating each step."
	if len(in.RemediationSteps) > 0 {
		practice = in.RemediationSteps[0]
		for _, s := range in.RemediationSteps[1:] {
			practice += " " + s
		}
	}
	target := in.TargetMastery
	if target <= 0 {
		target = DefaultTargetMastery
	}
	return Lesson{
		Topic: in.Topic,
		Plan: []Step{
			{
				Step:        "Review the core ideas",
				DurationMin: 5,
				Content:     fmt.Sprintf("Read a focused summary of the definitions and key relationships in %s.", topic),
			},
			{
				Step:        "Study a worked example",
				DurationMin: 5,
				Content:     fmt.Sprintf("Follow a fully worked %s problem and note why each step is taken.", topic),
			},
			{
				Step:        "Guided practice",
				DurationMin: 5,
				Content:     practice,
			},
		},
		ExpectedMetrics: map[string]any{"target_mastery": target},
		Metadata:        map[string]any{"source": "fallback"},
		Fallback:        true,
	}
}
