package redact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNames(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		first     string
		last      string
		wantText  string
		wantCount int
	}{
		{
			name:      "full name and possessive",
			text:      "John Smith moved in. John's room is upstairs.",
			first:     "John",
			last:      "Smith",
			wantText:  "Alex Jones moved in. Alex's room is upstairs.",
			wantCount: 2,
		},
		{
			name:      "case insensitive",
			text:      "JOHN smith said hello to john",
			first:     "John",
			last:      "Smith",
			wantText:  "Alex Jones said hello to Alex",
			wantCount: 2,
		},
		{
			name:      "whole words only",
			text:      "Johnson visited Smithfield",
			first:     "John",
			last:      "Smith",
			wantText:  "Johnson visited Smithfield",
			wantCount: 0,
		},
		{
			name:      "curly possessive and surname alone",
			text:      "Mr Smith’s chair. Smith prefers tea.",
			first:     "John",
			last:      "Smith",
			wantText:  "Mr Jones’s chair. Jones prefers tea.",
			wantCount: 2,
		},
		{
			name:      "accented first letter",
			text:      "Émile Dubois arrived; Émile was calm.",
			first:     "Émile",
			last:      "Dubois",
			wantText:  "Alex Jones arrived; Alex was calm.",
			wantCount: 2,
		},
		{
			name:      "accented last letter before punctuation",
			text:      "Josélyne met José.",
			first:     "José",
			last:      "Ruiz",
			wantText:  "Josélyne met Alex.",
			wantCount: 1,
		},
		{
			name:      "diaeresis before whitespace",
			text:      "Zoë is settled. ZOË's family visited Zoëtta.",
			first:     "Zoë",
			last:      "Ng",
			wantText:  "Alex is settled. Alex's family visited Zoëtta.",
			wantCount: 2,
		},
		{
			name:      "possessive followed by letters keeps the name match",
			text:      "John'sy said hi",
			first:     "John",
			last:      "Smith",
			wantText:  "Alex'sy said hi",
			wantCount: 1,
		},
		{
			name:      "empty names leave text untouched",
			text:      "nothing to change",
			wantText:  "nothing to change",
			wantCount: 0,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, n := Names(tc.text, tc.first, tc.last, "Alex", "Jones")
			assert.Equal(t, tc.wantText, got)
			assert.Equal(t, tc.wantCount, n)
		})
	}
}

func TestApplyRecordsMapping(t *testing.T) {
	res := Apply("Mary Brown's notes", "Mary", "Brown", "Sam", "Green")

	assert.Equal(t, "Sam Green's notes", res.Text)
	assert.Equal(t, 1, res.Replacements)
	assert.Equal(t, "Mary Brown", res.Original)
	assert.Equal(t, "Sam Green", res.Replacement)
}
