package analysis

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const notes = "Resident: Margaret\n" +
	"01/03/2025 08:00 Jane (carer)\n" +
	"Assisted with wash, ate porridge.\n" +
	"Monday 02/03/2025\n" +
	"Refused lunch, GP informed.\n" +
	"03-03-25 night\n" +
	"Slept well."

func TestSplitEntries(t *testing.T) {
	entries := SplitEntries(notes)

	require.Len(t, entries, 3)
	assert.Equal(t, "01/03/2025 08:00 Jane (carer)", entries[0].Name)
	assert.Equal(t, 0, entries[0].Offset)
	assert.Contains(t, entries[0].Content, "Resident: Margaret")
	assert.Equal(t, "Monday 02/03/2025", entries[1].Name)
	assert.Equal(t, "03-03-25 night", entries[2].Name)
	assert.Equal(t, notes, entries[0].Content+entries[1].Content+entries[2].Content)
}

func TestSplitEntriesWithoutDates(t *testing.T) {
	entries := SplitEntries("no dates here")

	require.Len(t, entries, 1)
	assert.Equal(t, "Daily Notes", entries[0].Name)
}

func TestDailyNotesAnalyzeKeepsMostRecentEntries(t *testing.T) {
	scorer := &fakeScorer{}

	got, err := NewDailyNotes(scorer, 2).Analyze(context.Background(), notes, "Margaret", nil)
	require.NoError(t, err)

	assert.Equal(t, KindDailyNotes, got.Kind)
	assert.Equal(t, []string{"Monday 02/03/2025", "03-03-25 night"}, scorer.calls)
	assert.Equal(t, 1, got.Summary.SectionsSkipped)
	assert.Equal(t, 2, got.Summary.SectionsAnalyzed)
	assert.Empty(t, got.MissingSections)
	assert.Equal(t, 80, got.OverallScore)
}

func TestSplitEntriesLongHeaderKeepsValidUTF8(t *testing.T) {
	header := "01/03/2025 " + strings.Repeat("x", maxEntryNameLen-14) + "Zoë visited"
	entries := SplitEntries(header + "\nAte well.")

	require.Len(t, entries, 1)
	assert.True(t, utf8.ValidString(entries[0].Name))
	assert.LessOrEqual(t, len(entries[0].Name), maxEntryNameLen)
	assert.True(t, strings.HasSuffix(entries[0].Name, "Zo"))
}
