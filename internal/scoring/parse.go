package scoring

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrMalformedResponse is returned when the oracle output is not the expected JSON.
var ErrMalformedResponse = errors.New("malformed oracle response")

type parsedResponse struct {
	Score  int
	Issues []Issue
}

// parseResponse extracts the score and issues from raw oracle text.
// Markdown fences are stripped, scores clamped to 0..100, issues renumbered
// and severities normalised.
func parseResponse(raw string) (parsedResponse, error) {
	text := extractJSONObject(stripFences(raw))
	if text == "" || !gjson.Valid(text) {
		return parsedResponse{}, fmt.Errorf("%w: not valid JSON", ErrMalformedResponse)
	}
	root := gjson.Parse(text)
	scoreVal := root.Get("section_score")
	if !scoreVal.Exists() {
		scoreVal = root.Get("score")
	}
	if !scoreVal.Exists() || (scoreVal.Type != gjson.Number && scoreVal.Type != gjson.String) {
		return parsedResponse{}, fmt.Errorf("%w: missing section_score", ErrMalformedResponse)
	}

	out := parsedResponse{Score: clampScore(scoreVal.Float())}
	root.Get("issues").ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true
		}
		out.Issues = append(out.Issues, Issue{
			IssueNumber:     len(out.Issues) + 1,
			Severity:        normalizeSeverity(item.Get("severity").String()),
			Field:           strings.TrimSpace(item.Get("field").String()),
			CurrentText:     strings.TrimSpace(item.Get("current_text").String()),
			Problems:        stringList(item.Get("specific_problems")),
			MissingElements: stringList(item.Get("missing_elements")),
			IdealExample:    strings.TrimSpace(item.Get("ideal_example").String()),
			Regulation:      strings.TrimSpace(item.Get("cqc_regulation").String()),
			Recommendation:  strings.TrimSpace(item.Get("recommendation").String()),
		})
		return true
	})
	if out.Issues == nil {
		out.Issues = []Issue{}
	}
	return out, nil
}

// stripFences removes leading/trailing markdown code fences.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}

// extractJSONObject trims any prose around the outermost JSON object.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}

func clampScore(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	n := int(math.Round(v))
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

func normalizeSeverity(raw string) Severity {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "CRITICAL", "HIGH":
		return SeverityCritical
	case "MAJOR", "MEDIUM", "MODERATE":
		return SeverityMajor
	default:
		return SeverityMinor
	}
}

func stringList(v gjson.Result) []string {
	out := []string{}
	if !v.Exists() {
		return out
	}
	if !v.IsArray() {
		if s := strings.TrimSpace(v.String()); s != "" {
			out = append(out, s)
		}
		return out
	}
	v.ForEach(func(_, item gjson.Result) bool {
		if s := strings.TrimSpace(item.String()); s != "" {
			out = append(out, s)
		}
		return true
	})
	return out
}
