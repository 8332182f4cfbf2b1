package careplan

import "strings"

type fieldSlot int

const (
	slotNone fieldSlot = iota
	slotIdentifiedNeed
	slotPlannedOutcomes
	slotHowToAchieve
	slotRisk
)

func slotFor(label string) fieldSlot {
	l := strings.ToLower(strings.Join(strings.Fields(label), " "))
	switch {
	case strings.HasPrefix(l, "identified need"):
		return slotIdentifiedNeed
	case strings.HasPrefix(l, "planned outcome"):
		return slotPlannedOutcomes
	case strings.HasPrefix(l, "how to achieve"):
		return slotHowToAchieve
	case strings.HasPrefix(l, "risk"):
		return slotRisk
	default:
		return slotNone
	}
}

// ExtractFields pulls labelled values out of section content. Each value runs
// until the next known label or the end of content. The first occurrence wins.
func ExtractFields(content string) Fields {
	var f Fields
	matches := fieldLabelPattern.FindAllStringSubmatchIndex(content, -1)
	for i, m := range matches {
		labelStart, labelEnd := m[2], m[3]
		valueStart := m[1]
		valueEnd := len(content)
		if i+1 < len(matches) {
			valueEnd = matches[i+1][2]
		}
		if valueEnd < valueStart {
			continue
		}
		value := normalizeValue(content[valueStart:valueEnd])
		if value == "" {
			continue
		}
		switch slotFor(content[labelStart:labelEnd]) {
		case slotIdentifiedNeed:
			if f.IdentifiedNeed == "" {
				f.IdentifiedNeed = value
			}
		case slotPlannedOutcomes:
			if f.PlannedOutcomes == "" {
				f.PlannedOutcomes = value
			}
		case slotHowToAchieve:
			if f.HowToAchieve == "" {
				f.HowToAchieve = value
			}
		case slotRisk:
			if f.Risk == "" {
				f.Risk = value
			}
		}
	}
	f.Extra = extractExtra(content)
	return f
}

// ExtractMetadata finds the review date and level of need.
func ExtractMetadata(content string) Metadata {
	var md Metadata
	if m := reviewDatePattern.FindStringSubmatch(content); len(m) > 1 {
		md.NextReviewDate = m[1]
	}
	if m := levelOfNeedPattern.FindStringSubmatch(content); len(m) > 1 {
		md.LevelOfNeed = strings.Join(strings.Fields(m[1]), " ")
	}
	return md
}

// extractExtra collects "Label: value" lines whose label is not a known field,
// metadata or section marker.
func extractExtra(content string) map[string]string {
	var extra map[string]string
	for _, m := range extraFieldPattern.FindAllStringSubmatch(content, -1) {
		label := strings.Join(strings.Fields(m[1]), " ")
		if isReservedLabel(label) {
			continue
		}
		value := strings.TrimSpace(m[2])
		if value == "" {
			continue
		}
		if extra == nil {
			extra = make(map[string]string)
		}
		if _, seen := extra[label]; !seen {
			extra[label] = value
		}
	}
	return extra
}

func isReservedLabel(label string) bool {
	if slotFor(label) != slotNone {
		return true
	}
	l := strings.ToLower(label)
	return l == "section" || l == "review date" || l == "level of need"
}

func normalizeValue(raw string) string {
	lines := strings.Split(raw, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return strings.Join(out, "\n")
}
