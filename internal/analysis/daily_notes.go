package analysis

import (
	"context"
	"regexp"
	"strings"

	"careaudit-backend/internal/careplan"
	"careaudit-backend/internal/shared/util"
)

const (
	dailyNotesFallbackName = "Daily Notes"
	defaultMaxEntries      = 31
	maxEntryNameLen        = 80
)

// entryStartPattern matches a line that opens a new daily note entry with a date.
var entryStartPattern = regexp.MustCompile(`(?im)^[ \t]*(?:(?:mon|tue|wed|thu|fri|sat|sun)[a-z]*,?[ \t]+)?\d{1,2}[/.\-]\d{1,2}[/.\-]\d{2,4}\b[^\r\n]*`)

// DailyNotes scores daily care notes entry by entry. It has no required
// section checklist.
type DailyNotes struct {
	scorer     SectionScorer
	maxEntries int
}

// NewDailyNotes constructs a DailyNotes analyzer. maxEntries <= 0 uses 31.
func NewDailyNotes(scorer SectionScorer, maxEntries int) *DailyNotes {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &DailyNotes{scorer: scorer, maxEntries: maxEntries}
}

// Analyze splits text into dated entries and scores the most recent maxEntries.
func (d *DailyNotes) Analyze(ctx context.Context, text, subject string, onProgress ProgressFunc) (Analysis, error) {
	report(ctx, onProgress, "Segmenting document")
	entries := SplitEntries(text)
	skipped := 0
	if len(entries) > d.maxEntries {
		skipped = len(entries) - d.maxEntries
		entries = entries[len(entries)-d.maxEntries:]
	}

	results, err := scoreSections(ctx, d.scorer, entries, subject, onProgress)
	if err != nil {
		return Analysis{}, err
	}

	report(ctx, onProgress, "Computing statistics")
	out := Analysis{
		Kind:            KindDailyNotes,
		Sections:        results,
		MissingSections: []MissingSection{},
		Warnings:        careplan.Validate(entries),
	}
	out.OverallScore, out.Summary = Summarize(results)
	out.Summary.SectionsSkipped = skipped
	return out, nil
}

// SplitEntries splits daily notes on date-stamped lines. Text before the first
// date joins the first entry. Text with no dates is one entry.
func SplitEntries(text string) []careplan.Section {
	locs := entryStartPattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []careplan.Section{{Name: dailyNotesFallbackName, Content: text}}
	}
	entries := make([]careplan.Section, 0, len(locs))
	for i, loc := range locs {
		start := loc[0]
		if i == 0 {
			start = 0
		}
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		entries = append(entries, careplan.Section{
			Name:    entryName(text[loc[0]:loc[1]]),
			Content: text[start:end],
			Offset:  start,
		})
	}
	return entries
}

func entryName(line string) string {
	name := strings.Join(strings.Fields(line), " ")
	if len(name) > maxEntryNameLen {
		name = strings.TrimSpace(util.TruncateUTF8(name, maxEntryNameLen))
	}
	return name
}
