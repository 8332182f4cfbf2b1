package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careaudit-backend/internal/careplan"
	"careaudit-backend/internal/scoring"
)

type fakeScorer struct {
	scores map[string]int
	fail   map[string]bool
	calls  []string
}

func (f *fakeScorer) Score(ctx context.Context, section careplan.Section, subject string) (scoring.SectionResult, error) {
	f.calls = append(f.calls, section.Name)
	if f.fail[section.Name] {
		return scoring.SectionResult{}, errors.New("oracle unavailable")
	}
	score, ok := f.scores[section.Name]
	if !ok {
		score = 80
	}
	return scoring.SectionResult{
		SectionName:      section.Name,
		Score:            score,
		ExtractedContent: section.Fields,
		Metadata:         section.Metadata,
		Issues: []scoring.Issue{
			{IssueNumber: 1, Severity: scoring.SeverityMajor, Field: "Risk"},
			{IssueNumber: 2, Severity: scoring.SeverityMinor, Field: "Planned Outcomes"},
		},
	}, nil
}

const threeSections = "Section: Personal Care\n" +
	"Identified Need: needs support with washing and dressing each morning\n" +
	"Section: Nutrition and Hydration\n" +
	"Identified Need: low appetite and reluctant to drink during the day\n" +
	"Section: Medication Support\n" +
	"Identified Need: takes blood pressure tablets with breakfast daily"

func TestAnalyzeSingleNutritionSection(t *testing.T) {
	scorer := &fakeScorer{}
	var progress []string

	got, err := NewAggregator(scorer).Analyze(context.Background(), "Section: Nutrition\nIdentified Need: low appetite", "Margaret",
		func(ctx context.Context, msg string) { progress = append(progress, msg) })
	require.NoError(t, err)

	require.Len(t, got.Sections, 1)
	assert.Equal(t, "Nutrition", got.Sections[0].SectionName)
	assert.Equal(t, "low appetite", got.Sections[0].ExtractedContent.IdentifiedNeed)
	assert.Equal(t, 80, got.OverallScore)
	assert.Equal(t, KindCarePlan, got.Kind)
	assert.Equal(t, []string{
		"Segmenting document",
		"Analysing section 1/1: Nutrition",
		"Computing statistics",
	}, progress)
}

func TestAnalyzeIsolatesSectionFailures(t *testing.T) {
	scorer := &fakeScorer{
		scores: map[string]int{"Personal Care": 90, "Medication Support": 61},
		fail:   map[string]bool{"Nutrition and Hydration": true},
	}

	got, err := NewAggregator(scorer).Analyze(context.Background(), threeSections, "", nil)
	require.NoError(t, err)

	require.Len(t, got.Sections, 3)
	assert.Equal(t, []string{"Personal Care", "Nutrition and Hydration", "Medication Support"}, scorer.calls)
	failed := got.Sections[1]
	assert.Equal(t, 0, failed.Score)
	require.Len(t, failed.Issues, 1)
	assert.Equal(t, scoring.SeverityCritical, failed.Issues[0].Severity)
	assert.Equal(t, "Analysis", failed.Issues[0].Field)

	// round((90 + 0 + 61) / 3) = round(50.33)
	assert.Equal(t, 50, got.OverallScore)
	assert.Equal(t, Summary{SectionsAnalyzed: 3, CriticalIssues: 1, MajorIssues: 2, MinorIssues: 2}, got.Summary)
}

func TestAnalyzeStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAggregator(&fakeScorer{}).Analyze(ctx, threeSections, "", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name   string
		scores []int
		want   int
	}{
		{name: "no sections", scores: nil, want: 0},
		{name: "single", scores: []int{73}, want: 73},
		{name: "rounds half up", scores: []int{70, 71}, want: 71},
		{name: "rounds down", scores: []int{10, 10, 11}, want: 10},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			results := make([]scoring.SectionResult, 0, len(tc.scores))
			for _, s := range tc.scores {
				results = append(results, scoring.SectionResult{Score: s})
			}
			got, summary := Summarize(results)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, len(tc.scores), summary.SectionsAnalyzed)
		})
	}
}

func TestFindMissingSections(t *testing.T) {
	t.Run("nothing relevant", func(t *testing.T) {
		missing := FindMissingSections([]string{"General Care Plan", "About Me"})
		assert.Len(t, missing, RequiredSectionCount())
	})

	t.Run("substring both directions", func(t *testing.T) {
		missing := FindMissingSections([]string{"NUTRITION", "Medication Administration Record"})
		for _, m := range missing {
			assert.NotEqual(t, "Nutrition and Hydration", m.Name)
			assert.NotEqual(t, "Medication", m.Name)
		}
		assert.Len(t, missing, RequiredSectionCount()-2)
	})

	t.Run("every missing entry is complete", func(t *testing.T) {
		for _, m := range FindMissingSections(nil) {
			assert.NotEmpty(t, m.Justification)
			assert.True(t, strings.HasPrefix(m.Regulation, "Regulation "))
			assert.Contains(t, Priorities, m.Priority)
		}
	})
}
