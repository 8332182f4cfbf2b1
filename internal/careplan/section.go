// Package careplan splits extracted care-plan text into labelled sections.
//
// Boundary detection is heuristic. Every pattern lives in a table in
// patterns.go so it can be tuned without touching callers.
package careplan

// FallbackSectionName names the single section produced when no boundary is found.
const FallbackSectionName = "General Care Plan"

// Section is one labelled slice of a care-plan document.
type Section struct {
	Name     string   `json:"section_name"`
	Content  string   `json:"content"`
	Offset   int      `json:"offset"`
	Fields   Fields   `json:"extracted_content"`
	Metadata Metadata `json:"metadata"`
}

// Fields holds the labelled values found inside a section.
type Fields struct {
	IdentifiedNeed  string            `json:"identified_need,omitempty"`
	PlannedOutcomes string            `json:"planned_outcomes,omitempty"`
	HowToAchieve    string            `json:"how_to_achieve,omitempty"`
	Risk            string            `json:"risk,omitempty"`
	Extra           map[string]string `json:"extra,omitempty"`
}

// IsEmpty reports whether no field was extracted.
func (f Fields) IsEmpty() bool {
	return f.IdentifiedNeed == "" && f.PlannedOutcomes == "" && f.HowToAchieve == "" && f.Risk == "" && len(f.Extra) == 0
}

// Metadata holds review metadata found inside a section.
type Metadata struct {
	NextReviewDate string `json:"next_review_date,omitempty"`
	LevelOfNeed    string `json:"level_of_need,omitempty"`
}

// FieldLabel pairs a display label with its value.
type FieldLabel struct {
	Label string
	Value string
}

// Ordered returns the known fields in display order followed by extras sorted by key.
func (f Fields) Ordered() []FieldLabel {
	out := make([]FieldLabel, 0, 4+len(f.Extra))
	for _, fl := range []FieldLabel{
		{Label: "Identified Need", Value: f.IdentifiedNeed},
		{Label: "Planned Outcomes", Value: f.PlannedOutcomes},
		{Label: "How to Achieve", Value: f.HowToAchieve},
		{Label: "Risk", Value: f.Risk},
	} {
		if fl.Value != "" {
			out = append(out, fl)
		}
	}
	for _, k := range sortedKeys(f.Extra) {
		out = append(out, FieldLabel{Label: k, Value: f.Extra[k]})
	}
	return out
}
