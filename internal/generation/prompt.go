package generation

import (
	"fmt"
	"strings"
)

// SystemPrompt describes the JSON contract the model must follow.
const SystemPrompt = `You write quiz questions for university students from lecture material.

Answer with a single JSON object and nothing else:
{"questions":[{"type":"multiple_choice","text":"...","options":["...","...","...","..."],"correct_index":0,"explanation":"..."}]}

Rules:
- "type" is "multiple_choice" or "true_false".
- A multiple_choice question has exactly one correct option and three or four plausible distractors. Options are distinct.
- A true_false question is a declarative statement that is unambiguously true or false according to the lecture. Its options are ["True","False"]. Do not use hedging words such as sometimes, usually, often, might, possibly, probably, generally, rarely or arguably.
- "correct_index" is the zero-based index of the correct option.
- "explanation" cites the part of the lecture that supports the answer.
- Only ask about content of the lecture. Do not repeat questions.`

type PromptInput struct {
	Title          string
	Source         string
	MultipleChoice int
	TrueFalse      int
	// Avoid lists questions that were already accepted.
	Avoid []string
}

// BuildPrompt builds the user prompt of one generation round.
func BuildPrompt(input PromptInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Write %d multiple_choice and %d true_false questions", input.MultipleChoice, input.TrueFalse)
	if input.Title != "" {
		fmt.Fprintf(&b, " for the quiz %q", input.Title)
	}
	b.WriteString(" about the following lecture.\n\n")

	if len(input.Avoid) > 0 {
		b.WriteString("These questions already exist, do not repeat them:\n")
		for _, text := range input.Avoid {
			b.WriteString("- ")
			b.WriteString(text)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	b.WriteString("<lecture>\n")
	b.WriteString(input.Source)
	b.WriteString("\n</lecture>")

	return b.String()
}
