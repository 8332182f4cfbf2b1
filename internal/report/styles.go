package report

// RunStyle captures inline run formatting.
type RunStyle struct {
	Bold   bool
	Italic bool
	Size   int
	Color  string
}

const (
	TitleColor   = "1F3864"
	HeadingColor = "1F2937"
	MutedColor   = "6B7280"
	GreenColor   = "15803D"
	AmberColor   = "B45309"
	RedColor     = "B91C1C"

	TitleSize      = 40
	HeadingSize    = 28
	SubheadingSize = 24
	BodySize       = 21
	ScoreSize      = 48
)

// StyleMap centralizes formatting for report elements.
var StyleMap = map[string]RunStyle{
	"title":      {Bold: true, Size: TitleSize, Color: TitleColor},
	"heading":    {Bold: true, Size: HeadingSize, Color: HeadingColor},
	"subheading": {Bold: true, Size: SubheadingSize, Color: HeadingColor},
	"label":      {Bold: true, Size: BodySize},
	"body":       {Size: BodySize},
	"quote":      {Italic: true, Size: BodySize, Color: MutedColor},
	"meta":       {Italic: true, Size: BodySize - 2, Color: MutedColor},
}

// ScoreColor returns the traffic-light colour for a score: green at 85 and
// above, amber at 60 and above, red below.
func ScoreColor(score int) string {
	switch {
	case score >= 85:
		return GreenColor
	case score >= 60:
		return AmberColor
	default:
		return RedColor
	}
}

// Rating returns the CQC-style rating label for a score.
func Rating(score int) string {
	switch {
	case score >= 85:
		return "Good"
	case score >= 60:
		return "Requires Improvement"
	default:
		return "Inadequate"
	}
}
