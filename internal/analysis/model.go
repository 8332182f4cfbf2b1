// Package analysis turns document text into an aggregated, scored audit.
package analysis

import (
	"context"

	"careaudit-backend/internal/careplan"
	"careaudit-backend/internal/scoring"
)

// Kinds of audit.
const (
	KindCarePlan   = "care_plan"
	KindDailyNotes = "daily_notes"
)

// Summary counts issues across all sections.
type Summary struct {
	SectionsAnalyzed int `json:"total_sections_analyzed"`
	CriticalIssues   int `json:"critical_issues"`
	MajorIssues      int `json:"major_issues"`
	MinorIssues      int `json:"minor_issues"`
	SectionsSkipped  int `json:"sections_skipped,omitempty"`
}

// MissingSection is a required category with no matching section.
type MissingSection struct {
	Name          string `json:"section_name"`
	Justification string `json:"justification"`
	Regulation    string `json:"cqc_regulation"`
	Priority      string `json:"priority"`
}

// NameReplacement records how the subject's name was redacted.
type NameReplacement struct {
	Original     string `json:"original"`
	Replacement  string `json:"replacement"`
	Replacements int    `json:"replacements"`
}

// FileMetadata describes the source document.
type FileMetadata struct {
	FileName  string `json:"file_name"`
	Format    string `json:"format"`
	PageCount int    `json:"page_count,omitempty"`
	WordCount int    `json:"word_count"`
}

// Analysis is the whole-document result stored with a job.
type Analysis struct {
	Kind            string                  `json:"audit_kind"`
	OverallScore    int                     `json:"overall_score"`
	Summary         Summary                 `json:"summary"`
	Sections        []scoring.SectionResult `json:"sections"`
	MissingSections []MissingSection        `json:"missing_sections"`
	Warnings        []careplan.Warning      `json:"warnings,omitempty"`
	NameReplacement *NameReplacement        `json:"name_replacement,omitempty"`
	FileMetadata    *FileMetadata           `json:"file_metadata,omitempty"`
}

// ProgressFunc receives human-readable progress messages.
type ProgressFunc func(ctx context.Context, message string)

// SectionScorer scores one section.
type SectionScorer interface {
	Score(ctx context.Context, section careplan.Section, subject string) (scoring.SectionResult, error)
}

// Analyzer produces an Analysis from document text.
type Analyzer interface {
	Analyze(ctx context.Context, text, subject string, onProgress ProgressFunc) (Analysis, error)
}
