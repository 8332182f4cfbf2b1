package careplan

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Warning flags a section that looks malformed. Warnings never reject a section.
type Warning struct {
	Section string `json:"section"`
	Message string `json:"message"`
}

// Validate reports sections whose name is too short or whose content is nearly empty.
func Validate(sections []Section) []Warning {
	var out []Warning
	for _, s := range sections {
		if utf8.RuneCountInString(strings.TrimSpace(s.Name)) < minValidNameLen {
			out = append(out, Warning{Section: s.Name, Message: fmt.Sprintf("section name shorter than %d characters", minValidNameLen)})
		}
		if utf8.RuneCountInString(strings.TrimSpace(s.Content)) < minValidContentLen {
			out = append(out, Warning{Section: s.Name, Message: fmt.Sprintf("section content shorter than %d characters", minValidContentLen)})
		}
	}
	return out
}
