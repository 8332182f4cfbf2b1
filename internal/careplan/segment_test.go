package careplan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentSectionLabel(t *testing.T) {
	sections := Segment("Section: Nutrition\nIdentified Need: low appetite")

	require.Len(t, sections, 1)
	assert.Equal(t, "Nutrition", sections[0].Name)
	assert.Equal(t, "low appetite", sections[0].Fields.IdentifiedNeed)
	assert.Equal(t, 0, sections[0].Offset)
}

func TestSegmentFallback(t *testing.T) {
	for _, tc := range []struct {
		name string
		text string
	}{
		{name: "empty", text: ""},
		{name: "prose only", text: "resident enjoys the garden and walks daily with staff support"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			sections := Segment(tc.text)
			require.Len(t, sections, 1)
			assert.Equal(t, FallbackSectionName, sections[0].Name)
			assert.Equal(t, tc.text, sections[0].Content)
		})
	}
}

func TestSegmentMultipleSectionsCoverText(t *testing.T) {
	text := strings.Join([]string{
		"Section: Personal Care",
		"Identified Need: needs help washing in the morning and evening",
		"Planned Outcomes: stays clean and comfortable",
		"Section: Nutrition and Hydration",
		"Identified Need: low appetite, at risk of weight loss over winter",
		"How to Achieve: offer snacks between meals",
	}, "\n")

	sections := Segment(text)

	require.Len(t, sections, 2)
	assert.Equal(t, "Personal Care", sections[0].Name)
	assert.Equal(t, "Nutrition and Hydration", sections[1].Name)
	assert.Equal(t, text, sections[0].Content+sections[1].Content)
	assert.Equal(t, "stays clean and comfortable", sections[0].Fields.PlannedOutcomes)
	assert.Equal(t, "offer snacks between meals", sections[1].Fields.HowToAchieve)
}

func TestSegmentDropsCandidatesTooClose(t *testing.T) {
	text := "Section: Mobility Support\nSection: Falls Prevention\nwalks with a frame"

	sections := Segment(text)

	require.Len(t, sections, 1)
	assert.Equal(t, "Mobility Support", sections[0].Name)
}

func TestSegmentIgnoresShortAndStopWordNames(t *testing.T) {
	text := "Section: Diet\nsome text here\n\nSection: Signature\nsigned by nurse"

	sections := Segment(text)

	require.Len(t, sections, 1)
	assert.Equal(t, FallbackSectionName, sections[0].Name)
}

func TestSegmentAllCapsAndNumberedHeaders(t *testing.T) {
	text := "MEDICATION MANAGEMENT\n" +
		"Takes tablets with breakfast, support required from staff each morning.\n" +
		"2. Communication Needs\n" +
		"Wears hearing aids, check batteries weekly and speak clearly."

	sections := Segment(text)

	require.Len(t, sections, 2)
	assert.Equal(t, "MEDICATION MANAGEMENT", sections[0].Name)
	assert.Equal(t, "Communication Needs", sections[1].Name)
}

func TestExtractFieldsFirstOccurrenceWins(t *testing.T) {
	fields := ExtractFields("Risk: choking\nKeyworker: Sam\nRisk: falls")

	assert.Equal(t, "choking\nKeyworker: Sam", fields.Risk)
	assert.Equal(t, map[string]string{"Keyworker": "Sam"}, fields.Extra)
}

func TestExtractMetadata(t *testing.T) {
	md := ExtractMetadata("Review Date: 12/03/2025\nLevel of Need: 3 - High")

	assert.Equal(t, "12/03/2025", md.NextReviewDate)
	assert.Equal(t, "3 - High", md.LevelOfNeed)
}

func TestOrderedPutsKnownFieldsFirst(t *testing.T) {
	f := Fields{
		Risk:           "falls",
		IdentifiedNeed: "mobility",
		Extra:          map[string]string{"Zeta": "z", "Alpha": "a"},
	}

	got := f.Ordered()

	require.Len(t, got, 4)
	assert.Equal(t, []string{"Identified Need", "Risk", "Alpha", "Zeta"},
		[]string{got[0].Label, got[1].Label, got[2].Label, got[3].Label})
}

func TestValidate(t *testing.T) {
	warnings := Validate([]Section{
		{Name: "Nutrition", Content: "Identified Need: low appetite"},
		{Name: "AB", Content: "tiny"},
	})

	require.Len(t, warnings, 2)
	assert.Equal(t, "AB", warnings[0].Section)
	assert.Equal(t, "AB", warnings[1].Section)
}
