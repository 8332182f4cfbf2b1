package scoring

import "careaudit-backend/internal/careplan"

// Severity grades an issue.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityMajor    Severity = "MAJOR"
	SeverityMinor    Severity = "MINOR"
)

// Issue is a single finding within a section.
type Issue struct {
	IssueNumber     int      `json:"issue_number"`
	Severity        Severity `json:"severity"`
	Field           string   `json:"field"`
	CurrentText     string   `json:"current_text"`
	Problems        []string `json:"specific_problems"`
	MissingElements []string `json:"missing_elements"`
	IdealExample    string   `json:"ideal_example"`
	Regulation      string   `json:"cqc_regulation"`
	Recommendation  string   `json:"recommendation"`
}

// SectionResult is the scored outcome for one section. A score of 0 marks a failed analysis.
type SectionResult struct {
	SectionName      string            `json:"section_name"`
	Score            int               `json:"section_score"`
	ExtractedContent careplan.Fields   `json:"extracted_content"`
	Metadata         careplan.Metadata `json:"metadata"`
	Issues           []Issue           `json:"issues"`
}

// FailedResult is substituted when a section could not be scored.
func FailedResult(section careplan.Section) SectionResult {
	return SectionResult{
		SectionName:      section.Name,
		Score:            0,
		ExtractedContent: section.Fields,
		Metadata:         section.Metadata,
		Issues: []Issue{{
			IssueNumber:     1,
			Severity:        SeverityCritical,
			Field:           "Analysis",
			CurrentText:     "",
			Problems:        []string{"Analysis failed"},
			MissingElements: []string{},
			Regulation:      "",
			Recommendation:  "Retry analysis",
		}},
	}
}
