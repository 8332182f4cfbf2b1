package careplan

import (
	"sort"
	"strings"
	"unicode/utf8"
)

type candidate struct {
	name    string
	offset  int
	pattern int
}

// Segment splits documentText into ordered sections. It never fails: text with
// no detectable headers becomes one section named FallbackSectionName.
func Segment(documentText string) []Section {
	candidates := detectBoundaries(documentText)
	if len(candidates) == 0 {
		return []Section{buildSection(FallbackSectionName, documentText, 0)}
	}

	sections := make([]Section, 0, len(candidates))
	for i, c := range candidates {
		end := len(documentText)
		if i+1 < len(candidates) {
			end = candidates[i+1].offset
		}
		sections = append(sections, buildSection(c.name, documentText[c.offset:end], c.offset))
	}
	return sections
}

// detectBoundaries runs every boundary pattern, filters names, sorts by offset
// and drops candidates closer than minSectionGap to the previously kept one.
func detectBoundaries(text string) []candidate {
	var all []candidate
	for pi, p := range boundaryPatterns {
		for _, m := range p.re.FindAllStringSubmatchIndex(text, -1) {
			if len(m) < 4 || m[2] < 0 {
				continue
			}
			name := cleanName(text[m[2]:m[3]])
			if !acceptName(name) {
				continue
			}
			if p.keep != nil && !p.keep(name) {
				continue
			}
			all = append(all, candidate{name: name, offset: lineStart(text, m[2]), pattern: pi})
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].offset != all[j].offset {
			return all[i].offset < all[j].offset
		}
		return all[i].pattern < all[j].pattern
	})

	kept := make([]candidate, 0, len(all))
	for _, c := range all {
		if len(kept) > 0 && c.offset-kept[len(kept)-1].offset < minSectionGap {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

func buildSection(name, content string, offset int) Section {
	return Section{
		Name:     name,
		Content:  content,
		Offset:   offset,
		Fields:   ExtractFields(content),
		Metadata: ExtractMetadata(content),
	}
}

func cleanName(raw string) string {
	name := strings.TrimSpace(raw)
	name = strings.TrimRight(name, ":-=_ \t")
	return strings.Join(strings.Fields(name), " ")
}

func acceptName(name string) bool {
	if utf8.RuneCountInString(name) < minCandidateNameLen {
		return false
	}
	_, stop := stopWords[strings.ToLower(name)]
	return !stop
}

func hasCareKeyword(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range careKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func lineStart(text string, idx int) int {
	if i := strings.LastIndexByte(text[:idx], '\n'); i >= 0 {
		return i + 1
	}
	return 0
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
