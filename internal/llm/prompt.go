package llm

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/ppiankov/schoolmon/internal/model"
)

// Rules shared by both prompts. The oracle is untrusted; these only lower the
// rejection rate, the verifier still checks everything.
const strictRules = `You are a STRICT, PRECISE school email extraction assistant. Your #1 job is ACCURACY. You must NEVER invent, guess, or assume information.

ABSOLUTE RULES:
1. ONLY extract information EXPLICITLY stated in the emails below.
2. NEVER infer, guess, or make up any dates, times, events, or details.
3. If a date is mentioned without a year, use the year from the email's DATE header.
4. If a time is NOT explicitly stated, set time to null. Do NOT guess times.
5. If an event is vague or you are unsure, set "confidence" to "low".
6. For EVERY event, you MUST include "source_quote" - the EXACT phrase from the email that mentions it. Copy word-for-word.
7. For EVERY fact in the summary, it MUST appear in the original email. Do NOT add context or background knowledge.
8. Do NOT combine information from different emails into a single event unless they clearly reference the same event.
9. If two emails give conflicting information about the same event, flag it as "low" confidence and mention the conflict.
`

const responseSchema = `RESPOND ONLY IN THIS JSON (no markdown, no backticks, no explanation):
{
  "summary": "Summary using ONLY facts from the emails",
  "events": [
    {
      "title": "Event Name (exactly as described in email)",
      "date": "YYYY-MM-DD",
      "time": "HH:MM or null",
      "end_time": "HH:MM or null",
      "description": "Detail from email only",
      "source_quote": "exact phrase from email mentioning this event and date",
      "confidence": "high or low"
    }
  ]
}

If nothing relevant: {"summary": null, "events": []}
`

var childPrompt = template.Must(template.New("child").Parse(strictRules + `
GRADE FILTER:
- Extracting for: {{.Subject.Name}} in {{.Subject.Grade}}
- ONLY include content relevant to {{.Subject.Grade}}
- School-wide content (all students) = include
- Other grades = SKIP entirely
- Ambiguous grade = include with confidence "low"

SUMMARY RULES:
- ONLY state facts from the emails - no filler, no assumptions
- Use the EXACT dates and names from the email
- If an action is required (sign form, bring something), say so
- Do NOT add helpful context that isn't in the email

EVENT RULES:
- Only create events for things with a SPECIFIC DATE mentioned in the email
- "next week" or "soon" WITHOUT a date = do NOT create an event, mention in summary only
- date format: YYYY-MM-DD (derive from the email content + email DATE header for year)
- time: HH:MM in 24h format, or null if no time stated
- source_quote: EXACT text from email (10-80 chars). This is mandatory.
- confidence: "high" if date+event clearly stated, "low" if anything is ambiguous

` + responseSchema + `
--- EMAILS ---
{{.Source}}
--- END ---`))

var townPrompt = template.Must(template.New("town").Parse(strictRules + `
CONTEXT:
- These are town/district-wide emails
- Family has: {{.Roster}}
- Include: snow days, closings, town events, policy changes, registration deadlines, schedule changes
- Skip: fundraising spam, irrelevant bureaucracy (unless parent action needed)

SUMMARY RULES:
- ONLY facts from emails. Use EXACT dates and names from the email.

EVENT RULES:
- Only create events for SPECIFIC DATES mentioned in the email
- time: HH:MM in 24h format, or null if no time stated
- source_quote: EXACT text from email (mandatory, 10-80 chars)
- confidence: "high" or "low"

` + responseSchema + `
--- EMAILS ---
{{.Source}}
--- END ---`))

type promptData struct {
	Subject model.Subject
	Roster  string
	Source  string
}

// BuildPrompt renders the extraction prompt for subject. roster lists every
// child and only feeds the town prompt.
func BuildPrompt(subject model.Subject, roster []model.Subject, source string) (string, error) {
	tmpl := childPrompt
	if subject.IsTown() {
		tmpl = townPrompt
	}

	data := promptData{
		Subject: subject,
		Roster:  Roster(roster),
		Source:  source,
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", tmpl.Name(), err)
	}
	return b.String(), nil
}

// Roster renders children as "Name (grade), Name (grade)"
func Roster(subjects []model.Subject) string {
	var parts []string
	for _, s := range subjects {
		if s.IsTown() {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", s.Name, s.Grade))
	}
	if len(parts) == 0 {
		return "(no children configured)"
	}
	return strings.Join(parts, ", ")
}
