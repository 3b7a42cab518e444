package models

import (
	"fmt"
	"net/url"
	"strings"
)

// ===============================
// SECTION REGISTRY
// ===============================

// Section names as stored and exposed over the API.
const (
	SectionWarmUp      = "warmUp"
	SectionCommitment  = "commitment"
	SectionPurpose     = "purpose"
	SectionExclusivity = "exclusivity"
	SectionOptional    = "optional"
)

// FieldKind describes how a field's value is validated and counted.
type FieldKind int

const (
	FieldText   FieldKind = iota // free text, answered when trimmed length >= MinAnswerLength
	FieldChoice                  // fixed choice, answered when the value is a member of Choices
	FieldURL                     // absolute http(s) URL, never required
	FieldBlob                    // large inline payload (data URI), never required
)

// MinAnswerLength is the minimum trimmed length for a text answer to count.
const MinAnswerLength = 10

// MaxTextLength bounds every free-text answer.
const MaxTextLength = 2000

// FieldSpec describes one question inside a section.
type FieldSpec struct {
	Key      string
	Kind     FieldKind
	Required bool
	MaxLen   int
	Choices  []string
	Question string
}

// SectionSpec describes a named section and its ordered fields.
type SectionSpec struct {
	Name   string
	Fields []FieldSpec
}

var yesNo = []string{"Yes", "No"}

var sectionRegistry = map[string]SectionSpec{
	SectionWarmUp: {
		Name: SectionWarmUp,
		Fields: []FieldSpec{
			{Key: "animalQuestion", Kind: FieldText, Required: true, MaxLen: MaxTextLength,
				Question: "If you were an animal in the jungle, which one would you be and why?"},
			{Key: "accomplishment", Kind: FieldText, Required: true, MaxLen: MaxTextLength,
				Question: "What's something you've accomplished that you're proud of but rarely talk about?"},
			{Key: "responseWhenLost", Kind: FieldText, Required: true, MaxLen: MaxTextLength,
				Question: "When you fall behind or feel lost, how do you typically respond?"},
		},
	},
	SectionCommitment: {
		Name: SectionCommitment,
		Fields: []FieldSpec{
			{Key: "canCommit", Kind: FieldChoice, Required: true, Choices: yesNo,
				Question: "Do you currently have the ability to commit at least 6 - 10 focused hours per week to live learning, assessments, and study?"},
			{Key: "incompleteCourses", Kind: FieldText, Required: true, MaxLen: MaxTextLength,
				Question: "Have you ever enrolled in a course or program and not completed it? If so, why?"},
			{Key: "finishedHardThing", Kind: FieldText, Required: true, MaxLen: MaxTextLength,
				Question: "Have you ever finished something hard that no one was forcing you to do? What was it?"},
		},
	},
	SectionPurpose: {
		Name: SectionPurpose,
		Fields: []FieldSpec{
			{Key: "whyTrade", Kind: FieldText, Required: true, MaxLen: MaxTextLength,
				Question: "Why do you want to learn how to trade? Be specific."},
			{Key: "lifeChange", Kind: FieldText, Required: true, MaxLen: MaxTextLength,
				Question: "What would change in your life if you became a consistently profitable trader?"},
			{Key: "doingFor", Kind: FieldText, Required: true, MaxLen: MaxTextLength,
				Question: "Who are you doing this for and why them?"},
			{Key: "disciplineMeaning", Kind: FieldText, Required: true, MaxLen: MaxTextLength,
				Question: "What does discipline mean to you?"},
		},
	},
	SectionExclusivity: {
		Name: SectionExclusivity,
		Fields: []FieldSpec{
			{Key: "preparedInvestment", Kind: FieldChoice, Required: true, Choices: yesNo,
				Question: "This program costs $X,XXX if accepted. Are you prepared to make that investment in your future?"},
			{Key: "strongCandidate", Kind: FieldText, Required: true, MaxLen: MaxTextLength,
				Question: "Why do you believe you're a strong candidate for acceptance into the program?"},
			{Key: "firstPerson", Kind: FieldText, Required: true, MaxLen: MaxTextLength,
				Question: "If accepted, who's the first person you would tell and why?"},
		},
	},
	SectionOptional: {
		Name: SectionOptional,
		Fields: []FieldSpec{
			{Key: "videoRecording", Kind: FieldBlob, MaxLen: 50000000},
			{Key: "videoUrl", Kind: FieldURL, MaxLen: 500},
			{Key: "twitter", Kind: FieldText, MaxLen: 100},
			{Key: "instagram", Kind: FieldText, MaxLen: 100},
			{Key: "linkedIn", Kind: FieldText, MaxLen: 200},
			{Key: "facebook", Kind: FieldText, MaxLen: 200},
			{Key: "profilePhoto", Kind: FieldBlob, MaxLen: 10000000},
			{Key: "fullName", Kind: FieldText, MaxLen: 100},
			{Key: "bio", Kind: FieldText, MaxLen: 1000},
		},
	},
}

// RequiredSectionNames lists sections that count toward completion, in form order.
var RequiredSectionNames = []string{
	SectionWarmUp,
	SectionCommitment,
	SectionPurpose,
	SectionExclusivity,
}

// SectionNames lists every section, required first, in form order.
var SectionNames = append(append([]string{}, RequiredSectionNames...), SectionOptional)

// GetSectionSpec returns the field table for a named section.
func GetSectionSpec(name string) (SectionSpec, bool) {
	spec, ok := sectionRegistry[name]
	return spec, ok
}

// IsRequiredSection reports whether the named section counts toward completion.
func IsRequiredSection(name string) bool {
	_, ok := sectionRegistry[name]
	return ok && name != SectionOptional
}

// RequiredFieldCount is the completion denominator across all required sections.
func RequiredFieldCount() int {
	n := 0
	for _, name := range RequiredSectionNames {
		for _, f := range sectionRegistry[name].Fields {
			if f.Required {
				n++
			}
		}
	}
	return n
}

// FieldError names the section and field that failed validation.
type FieldError struct {
	Section string `json:"section"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s.%s: %s", e.Section, e.Field, e.Message)
}

// ValidateSectionPayload checks an incoming partial update against the
// section's field table. Unknown sections, unknown keys, wrong types,
// over-length text and out-of-set choices are all rejected; a payload
// that validates is safe to merge as-is.
func ValidateSectionPayload(section string, fields map[string]interface{}) error {
	spec, ok := sectionRegistry[section]
	if !ok {
		return &FieldError{Section: section, Field: "", Message: "unknown section"}
	}

	byKey := make(map[string]FieldSpec, len(spec.Fields))
	for _, f := range spec.Fields {
		byKey[f.Key] = f
	}

	for key, raw := range fields {
		f, ok := byKey[key]
		if !ok {
			return &FieldError{Section: section, Field: key, Message: "unknown field"}
		}

		// Explicit null clears the answer; always allowed.
		if raw == nil {
			continue
		}

		value, ok := raw.(string)
		if !ok {
			return &FieldError{Section: section, Field: key, Message: "value must be a string"}
		}

		switch f.Kind {
		case FieldText:
			if len(value) > f.MaxLen {
				return &FieldError{Section: section, Field: key,
					Message: fmt.Sprintf("exceeds maximum length of %d characters", f.MaxLen)}
			}
		case FieldChoice:
			if !containsString(f.Choices, value) {
				return &FieldError{Section: section, Field: key,
					Message: fmt.Sprintf("must be one of: %s", strings.Join(f.Choices, ", "))}
			}
		case FieldURL:
			if len(value) > f.MaxLen {
				return &FieldError{Section: section, Field: key,
					Message: fmt.Sprintf("exceeds maximum length of %d characters", f.MaxLen)}
			}
			if value != "" && !isHTTPURL(value) {
				return &FieldError{Section: section, Field: key, Message: "must be a valid http(s) URL"}
			}
		case FieldBlob:
			if len(value) > f.MaxLen {
				return &FieldError{Section: section, Field: key,
					Message: fmt.Sprintf("exceeds maximum size of %d bytes", f.MaxLen)}
			}
		}
	}

	return nil
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
