package models

import (
	"math"
	"strings"
)

// ===============================
// COMPLETION ENGINE
// ===============================

// Completion is the derived completeness of an application's required
// sections. The optional section never contributes.
type Completion struct {
	Percentage       int             `json:"completionPercentage"`
	Complete         bool            `json:"isComplete"`
	SectionsComplete map[string]bool `json:"sectionsComplete"`
	AnsweredFields   int             `json:"answeredFields"`
	RequiredFields   int             `json:"requiredFields"`
}

// IsAnswered reports whether a stored value counts as an answer for the
// given field spec: trimmed length >= MinAnswerLength for text, set
// membership for choice fields. URL and blob fields never count.
func IsAnswered(f FieldSpec, value interface{}) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}

	switch f.Kind {
	case FieldText:
		return len(strings.TrimSpace(s)) >= MinAnswerLength
	case FieldChoice:
		return containsString(f.Choices, s)
	default:
		return false
	}
}

// ComputeCompletion evaluates the stored sections against the section
// registry. sections maps section name to its stored data; a missing or
// nil section simply contributes zero answered fields.
func ComputeCompletion(sections map[string]SectionData) Completion {
	result := Completion{
		SectionsComplete: make(map[string]bool, len(RequiredSectionNames)),
		RequiredFields:   RequiredFieldCount(),
	}

	for _, name := range RequiredSectionNames {
		spec := sectionRegistry[name]
		data := sections[name]

		sectionComplete := true
		for _, f := range spec.Fields {
			if !f.Required {
				continue
			}
			if data != nil && IsAnswered(f, data[f.Key]) {
				result.AnsweredFields++
			} else {
				sectionComplete = false
			}
		}
		result.SectionsComplete[name] = sectionComplete
	}

	if result.RequiredFields > 0 {
		result.Percentage = int(math.Round(100 * float64(result.AnsweredFields) / float64(result.RequiredFields)))
	}
	result.Complete = result.AnsweredFields == result.RequiredFields

	return result
}

// SectionComplete evaluates a single section's stored data.
func SectionComplete(name string, data SectionData) bool {
	spec, ok := sectionRegistry[name]
	if !ok {
		return false
	}
	if name == SectionOptional {
		return true
	}
	for _, f := range spec.Fields {
		if !f.Required {
			continue
		}
		if data == nil || !IsAnswered(f, data[f.Key]) {
			return false
		}
	}
	return true
}
