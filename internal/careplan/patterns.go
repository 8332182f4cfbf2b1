package careplan

import "regexp"

// boundaryPattern detects candidate section headers. The first submatch is the name.
type boundaryPattern struct {
	name string
	re   *regexp.Regexp
	// keep optionally filters a matched name.
	keep func(name string) bool
}

var boundaryPatterns = []boundaryPattern{
	{
		name: "section_label",
		re:   regexp.MustCompile(`(?im)^[ \t]*section[ \t]*[:\-][ \t]*([^\r\n]+?)[ \t]*\r?$`),
	},
	{
		name: "underlined_header",
		re:   regexp.MustCompile(`(?m)^[ \t]*([A-Z][^\r\n]{2,80}?)[ \t]*\r?\n[ \t]*[=\-_]{3,}[ \t]*\r?$`),
		keep: hasCareKeyword,
	},
	{
		name: "all_caps_line",
		re:   regexp.MustCompile(`(?m)^[ \t]*([A-Z][A-Z0-9 &/,'()\-]{9,80}?)[ \t]*:?[ \t]*\r?$`),
	},
	{
		name: "numbered_header",
		re:   regexp.MustCompile(`(?m)^[ \t]*\d{1,2}[.)][ \t]+([A-Z][^\r\n]{2,80}?)[ \t]*\r?$`),
	},
}

var careKeywords = []string{
	"care", "hygiene", "nutrition", "hydration", "mobility", "medication", "communication",
	"continence", "skin", "sleep", "falls", "risk", "social", "emotional", "mental",
	"cognition", "capacity", "consent", "dignity", "personal", "health", "wellbeing",
	"end of life", "breathing", "pain", "safeguarding", "behaviour", "activities",
}

// stopWords are generic words that look like headers but never name a section.
var stopWords = map[string]struct{}{
	"the": {}, "this": {}, "when": {}, "where": {}, "what": {}, "which": {},
	"there": {}, "these": {}, "those": {}, "please": {}, "signed": {}, "signature": {},
	"comments": {}, "continued": {}, "page": {}, "date": {}, "name": {}, "notes": {},
}

const (
	minCandidateNameLen = 6
	minSectionGap       = 50
	minValidNameLen     = 3
	minValidContentLen  = 10
)

// fieldLabelPattern finds labelled values. Label names are matched case-insensitively
// and must be followed by a colon or dash.
var fieldLabelPattern = regexp.MustCompile(`(?im)(?:^|[ \t])(identified needs?|planned outcomes?|how to achieve(?: outcomes?)?|risks?|review date|level of need)[ \t]*[:\-][ \t]*`)

var extraFieldPattern = regexp.MustCompile(`(?m)^[ \t]*([A-Z][A-Za-z /]{2,40}?)[ \t]*:[ \t]*([^\r\n]+?)[ \t]*\r?$`)

var reviewDatePattern = regexp.MustCompile(`(?i)review date[ \t]*[:\-]?[ \t]*(\d{1,2}/\d{1,2}/(?:\d{4}|\d{2}))\b`)

var levelOfNeedPattern = regexp.MustCompile(`(?i)level of need[ \t]*[:\-]?[ \t]*(\d+[ \t]*-[ \t]*[^\r\n]+)`)
