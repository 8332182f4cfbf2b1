package scoring

import (
	_ "embed"
	"strings"

	"careaudit-backend/internal/careplan"
	"careaudit-backend/internal/shared/util"
)

var (
	//go:embed prompts/care_plan_system.txt
	carePlanSystem string
	//go:embed prompts/care_plan.txt
	carePlanTemplate string
	//go:embed prompts/daily_notes_system.txt
	dailyNotesSystem string
	//go:embed prompts/daily_notes.txt
	dailyNotesTemplate string
)

// maxPromptContent caps the section text sent to the oracle.
const maxPromptContent = 12000

// Rubric pairs a system instruction with a prompt template.
type Rubric struct {
	Name              string
	SystemInstruction string
	Template          string
}

// CarePlanRubric scores care plan sections.
var CarePlanRubric = Rubric{Name: "care_plan", SystemInstruction: strings.TrimSpace(carePlanSystem), Template: carePlanTemplate}

// DailyNotesRubric scores daily note entries.
var DailyNotesRubric = Rubric{Name: "daily_notes", SystemInstruction: strings.TrimSpace(dailyNotesSystem), Template: dailyNotesTemplate}

// BuildPrompt renders the rubric template for one section.
func (r Rubric) BuildPrompt(section careplan.Section, subject string) string {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = "the service user"
	}
	content := strings.TrimSpace(section.Content)
	content = util.TruncateUTF8(content, maxPromptContent)
	return strings.NewReplacer(
		"{{SUBJECT}}", subject,
		"{{SECTION_NAME}}", section.Name,
		"{{FIELDS}}", formatFields(section.Fields),
		"{{CONTENT}}", content,
	).Replace(r.Template)
}

func formatFields(f careplan.Fields) string {
	ordered := f.Ordered()
	if len(ordered) == 0 {
		return "(none detected)"
	}
	var b strings.Builder
	for _, fl := range ordered {
		b.WriteString("- ")
		b.WriteString(fl.Label)
		b.WriteString(": ")
		b.WriteString(fl.Value)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
