package analysis

import (
	"context"
	"fmt"
	"math"

	"careaudit-backend/internal/careplan"
	"careaudit-backend/internal/scoring"
	"careaudit-backend/internal/shared/metrics"
	"careaudit-backend/internal/shared/telemetry"
)

// Aggregator scores every care plan section and builds the document analysis.
type Aggregator struct {
	scorer SectionScorer
}

// NewAggregator constructs an Aggregator.
func NewAggregator(scorer SectionScorer) *Aggregator {
	return &Aggregator{scorer: scorer}
}

// Analyze segments text, scores each section in order and checks the required
// section checklist. A section that fails to score is replaced by
// scoring.FailedResult and never aborts the others. Only context
// cancellation returns an error.
func (a *Aggregator) Analyze(ctx context.Context, text, subject string, onProgress ProgressFunc) (Analysis, error) {
	report(ctx, onProgress, "Segmenting document")
	sections := careplan.Segment(text)
	warnings := careplan.Validate(sections)

	results, err := scoreSections(ctx, a.scorer, sections, subject, onProgress)
	if err != nil {
		return Analysis{}, err
	}

	report(ctx, onProgress, "Computing statistics")
	names := make([]string, 0, len(sections))
	for _, s := range sections {
		names = append(names, s.Name)
	}
	out := Analysis{
		Kind:            KindCarePlan,
		Sections:        results,
		MissingSections: FindMissingSections(names),
		Warnings:        warnings,
	}
	out.OverallScore, out.Summary = Summarize(results)
	return out, nil
}

func scoreSections(ctx context.Context, scorer SectionScorer, sections []careplan.Section, subject string, onProgress ProgressFunc) ([]scoring.SectionResult, error) {
	results := make([]scoring.SectionResult, 0, len(sections))
	for i, section := range sections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report(ctx, onProgress, fmt.Sprintf("Analysing section %d/%d: %s", i+1, len(sections), section.Name))

		res, err := scorer.Score(ctx, section, subject)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			telemetry.Error("analysis.section_failed", map[string]any{
				"section": section.Name,
				"index":   i,
				"error":   err,
			})
			metrics.IncSectionScored("failed")
			results = append(results, scoring.FailedResult(section))
			continue
		}
		metrics.IncSectionScored("ok")
		results = append(results, res)
	}
	return results, nil
}

// Summarize returns round(mean(section scores)), 0 when there are no
// sections, and the issue counts by severity.
func Summarize(results []scoring.SectionResult) (int, Summary) {
	summary := Summary{SectionsAnalyzed: len(results)}
	if len(results) == 0 {
		return 0, summary
	}
	total := 0
	for _, r := range results {
		total += r.Score
		for _, issue := range r.Issues {
			switch issue.Severity {
			case scoring.SeverityCritical:
				summary.CriticalIssues++
			case scoring.SeverityMajor:
				summary.MajorIssues++
			default:
				summary.MinorIssues++
			}
		}
	}
	overall := int(math.Round(float64(total) / float64(len(results))))
	return overall, summary
}

func report(ctx context.Context, onProgress ProgressFunc, msg string) {
	if onProgress != nil {
		onProgress(ctx, msg)
	}
}
