package prompt

import "fmt"

// Delimiters marking the embedded transcript inside the prompt.
const (
	BeginTranscript = "<transcript>"
	EndTranscript   = "</transcript>"
)

const template = `You are a clinical documentation assistant. The transcript below is a
patient-physician interview. Each line is numbered and attributed to a speaker.

%s
%s%s

Write a structured clinical summary with these sections:

1. CHIEF COMPLAINT
2. HISTORY OF PRESENT ILLNESS
3. REVIEW OF SYSTEMS
4. ASSESSMENT
5. PLAN

After every statement, cite the transcript line numbers that support it in
square brackets, for example [4, 17]. Use only information present in the
transcript; if a section has no supporting lines, write "Not discussed".`

// Build embeds the formatted dialogue into the fixed instruction template.
// The prompt is stateless and recomputed on every run.
func Build(dialogue string) string {
	return fmt.Sprintf(template, BeginTranscript, dialogue, EndTranscript)
}
