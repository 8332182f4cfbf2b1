package analysis

import "strings"

// Priorities used for missing sections, in report order.
const (
	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityMedium   = "medium"
	PriorityLow      = "low"
)

// Priorities lists priorities from most to least urgent.
var Priorities = []string{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

type requiredSection struct {
	MissingSection
	keywords []string
}

// requiredSections is the CQC checklist a complete care plan is expected to cover.
var requiredSections = []requiredSection{
	{
		MissingSection: MissingSection{
			Name:          "Personal Care",
			Justification: "Care plans must describe how personal care and hygiene needs are met in line with the person's preferences.",
			Regulation:    "Regulation 9: Person-centred care",
			Priority:      PriorityHigh,
		},
		keywords: []string{"personal care", "hygiene", "washing"},
	},
	{
		MissingSection: MissingSection{
			Name:          "Nutrition and Hydration",
			Justification: "Nutritional and hydration needs, risks and preferences must be assessed and recorded.",
			Regulation:    "Regulation 14: Meeting nutritional and hydration needs",
			Priority:      PriorityCritical,
		},
		keywords: []string{"nutrition", "hydration", "eating", "diet"},
	},
	{
		MissingSection: MissingSection{
			Name:          "Medication",
			Justification: "Safe management of medicines requires a documented plan for administration, support and review.",
			Regulation:    "Regulation 12: Safe care and treatment",
			Priority:      PriorityCritical,
		},
		keywords: []string{"medication", "medicine"},
	},
	{
		MissingSection: MissingSection{
			Name:          "Mobility",
			Justification: "Mobility needs and moving and handling arrangements must be assessed to keep the person safe.",
			Regulation:    "Regulation 12: Safe care and treatment",
			Priority:      PriorityHigh,
		},
		keywords: []string{"mobility", "moving and handling", "transfers"},
	},
	{
		MissingSection: MissingSection{
			Name:          "Falls Prevention",
			Justification: "Falls risk must be assessed with control measures recorded and reviewed.",
			Regulation:    "Regulation 12: Safe care and treatment",
			Priority:      PriorityHigh,
		},
		keywords: []string{"falls"},
	},
	{
		MissingSection: MissingSection{
			Name:          "Skin Integrity",
			Justification: "Pressure area care and skin integrity risks must be assessed and managed.",
			Regulation:    "Regulation 12: Safe care and treatment",
			Priority:      PriorityHigh,
		},
		keywords: []string{"skin", "pressure"},
	},
	{
		MissingSection: MissingSection{
			Name:          "Continence",
			Justification: "Continence needs must be recorded to protect dignity and prevent avoidable harm.",
			Regulation:    "Regulation 10: Dignity and respect",
			Priority:      PriorityMedium,
		},
		keywords: []string{"continence", "toileting"},
	},
	{
		MissingSection: MissingSection{
			Name:          "Communication",
			Justification: "Communication needs must be identified so the person can be involved in decisions about their care.",
			Regulation:    "Regulation 9: Person-centred care",
			Priority:      PriorityMedium,
		},
		keywords: []string{"communication", "sensory"},
	},
	{
		MissingSection: MissingSection{
			Name:          "Mental Capacity and Consent",
			Justification: "Capacity to consent must be assessed and best-interest decisions recorded.",
			Regulation:    "Regulation 11: Need for consent",
			Priority:      PriorityCritical,
		},
		keywords: []string{"capacity", "consent", "best interest"},
	},
	{
		MissingSection: MissingSection{
			Name:          "Mental Health and Wellbeing",
			Justification: "Emotional and mental health needs must be considered as part of holistic, person-centred care.",
			Regulation:    "Regulation 9: Person-centred care",
			Priority:      PriorityMedium,
		},
		keywords: []string{"mental health", "wellbeing", "emotional", "cognition"},
	},
	{
		MissingSection: MissingSection{
			Name:          "Social and Activities",
			Justification: "Social, cultural and leisure needs should be planned to avoid isolation.",
			Regulation:    "Regulation 9: Person-centred care",
			Priority:      PriorityLow,
		},
		keywords: []string{"social", "activities", "hobbies"},
	},
	{
		MissingSection: MissingSection{
			Name:          "Sleep and Night Care",
			Justification: "Night-time routines and sleep needs should be recorded to support rest and safety.",
			Regulation:    "Regulation 9: Person-centred care",
			Priority:      PriorityLow,
		},
		keywords: []string{"sleep", "night"},
	},
	{
		MissingSection: MissingSection{
			Name:          "End of Life Care",
			Justification: "Advance wishes and end of life preferences should be discussed and recorded where appropriate.",
			Regulation:    "Regulation 9: Person-centred care",
			Priority:      PriorityMedium,
		},
		keywords: []string{"end of life", "advance care", "palliative"},
	},
	{
		MissingSection: MissingSection{
			Name:          "Risk Assessment",
			Justification: "Risks to health and safety must be assessed and everything reasonably practicable done to mitigate them.",
			Regulation:    "Regulation 12: Safe care and treatment",
			Priority:      PriorityCritical,
		},
		keywords: []string{"risk"},
	},
}

// RequiredSectionCount is the size of the checklist.
func RequiredSectionCount() int { return len(requiredSections) }

// FindMissingSections reports checklist categories that no section name matches.
// A name matches when it contains the category name or a keyword, or is contained in either.
func FindMissingSections(sectionNames []string) []MissingSection {
	lowered := make([]string, 0, len(sectionNames))
	for _, n := range sectionNames {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
			lowered = append(lowered, n)
		}
	}

	missing := []MissingSection{}
	for _, req := range requiredSections {
		if !matchesAny(lowered, req) {
			missing = append(missing, req.MissingSection)
		}
	}
	return missing
}

func matchesAny(names []string, req requiredSection) bool {
	terms := append([]string{strings.ToLower(req.Name)}, req.keywords...)
	for _, name := range names {
		for _, term := range terms {
			if strings.Contains(name, term) || strings.Contains(term, name) {
				return true
			}
		}
	}
	return false
}
