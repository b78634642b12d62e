package lessons

import (
	"encoding/json"
	"fmt"
	"strings"
)

const lessonSystemPrompt = `You are the teaching agent of an adaptive mathematics tutor for university and senior school students.
Plan a short lesson for the given topic that moves the student toward the target mastery.

Rules:
- Return a plan of 3 to 6 steps whose durations add up to no more than the time budget.
- Each step has a short title, a duration in minutes and the content the student works through.
- Target the listed misconceptions explicitly.
- If a remediation plan is given, build the lesson around its steps.
- Ground explanations in the background context when it is relevant.
- Use plain text or LaTeX for math.
- Return ONLY the JSON object.`

func buildLessonUserMessage(in Input, misconceptions string, maxMinutes int) string {
	payload := map[string]any{
		"student_id":     in.StudentID,
		"topic":          in.Topic,
		"target_mastery": in.TargetMastery,
		"student_profile": map[string]any{
			"mastery_map":    in.Mastery,
			"misconceptions": misconceptions,
		},
		"constraints": map[string]any{"max_lesson_minutes": maxMinutes},
	}
	if len(in.RemediationSteps) > 0 {
		payload["remediation"] = map[string]any{
			"steps":                  in.RemediationSteps,
			"recommended_tutor_mode": in.Mode,
		}
	}
	if in.Context != "" {
		payload["embedded_context"] = in.Context
	}
	b, _ := json.Marshal(payload)
	return fmt.Sprintf("Input JSON:\n%s\n\nReturn the required JSON ONLY.", b)
}

const hintSystemPrompt = `You are a mathematics tutor. Give one short hint for the question. Do not reveal the full solution. Return ONLY {"hint": "<text>"}.`

const compressionSystemPrompt = `You are summarizing a mathematics student's recurring misconceptions. Create a concise summary that keeps every distinct weakness.`

func buildCompressionUserMessage(items []string) string {
	var b strings.Builder
	b.WriteString("Misconceptions:\n")
	for _, m := range items {
		fmt.Fprintf(&b, "- %s\n", m)
	}
	b.WriteString(`
Instructions:
Summarize these in 2-3 sentences. Group related weaknesses and keep the topic names.
Do not include encouragement or advice; the summary is used internally for planning lessons.`)
	return b.String()
}
