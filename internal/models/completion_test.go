package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullSections() map[string]SectionData {
	return map[string]SectionData{
		SectionWarmUp: {
			"animalQuestion":   "A jaguar because it waits patiently",
			"accomplishment":   "I taught myself to play piano",
			"responseWhenLost": "I slow down and re-plan my week",
		},
		SectionCommitment: {
			"canCommit":         "Yes",
			"incompleteCourses": "Dropped a math MOOC during a busy year",
			"finishedHardThing": "Finished a marathon with no coach",
		},
		SectionPurpose: {
			"whyTrade":          "I want a skill with direct feedback",
			"lifeChange":        "Freedom to choose where I live",
			"doingFor":          "My younger sister, she believed in me",
			"disciplineMeaning": "Doing the work when nobody watches",
		},
		SectionExclusivity: {
			"preparedInvestment": "Yes",
			"strongCandidate":    "I have shown consistency for years",
			"firstPerson":        "My father, he funded my first course",
		},
	}
}

func TestRequiredFieldCount(t *testing.T) {
	assert.Equal(t, 13, RequiredFieldCount())
}

func TestIsAnswered(t *testing.T) {
	text := FieldSpec{Key: "q", Kind: FieldText, Required: true, MaxLen: MaxTextLength}
	choice := FieldSpec{Key: "c", Kind: FieldChoice, Required: true, Choices: yesNo}

	t.Run("text answers need ten trimmed characters", func(t *testing.T) {
		assert.False(t, IsAnswered(text, "short"))
		assert.False(t, IsAnswered(text, "  padded  "))
		assert.False(t, IsAnswered(text, "123456789"))
		assert.True(t, IsAnswered(text, "1234567890"))
		assert.True(t, IsAnswered(text, "  a real answer with substance  "))
	})

	t.Run("choice answers must match the set exactly", func(t *testing.T) {
		assert.True(t, IsAnswered(choice, "Yes"))
		assert.True(t, IsAnswered(choice, "No"))
		assert.False(t, IsAnswered(choice, "yes"))
		assert.False(t, IsAnswered(choice, "Maybe"))
		assert.False(t, IsAnswered(choice, ""))
	})

	t.Run("non-string values never count", func(t *testing.T) {
		assert.False(t, IsAnswered(text, nil))
		assert.False(t, IsAnswered(text, 42))
		assert.False(t, IsAnswered(choice, true))
	})

	t.Run("url and blob fields never count", func(t *testing.T) {
		urlField := FieldSpec{Key: "videoUrl", Kind: FieldURL}
		blobField := FieldSpec{Key: "videoRecording", Kind: FieldBlob}
		assert.False(t, IsAnswered(urlField, "https://example.com/video.webm"))
		assert.False(t, IsAnswered(blobField, "data:video/webm;base64,AAAA"))
	})
}

func TestComputeCompletion(t *testing.T) {
	t.Run("empty application", func(t *testing.T) {
		c := ComputeCompletion(map[string]SectionData{})

		assert.Equal(t, 0, c.Percentage)
		assert.False(t, c.Complete)
		assert.Equal(t, 0, c.AnsweredFields)
		assert.Equal(t, 13, c.RequiredFields)
		for _, name := range RequiredSectionNames {
			assert.False(t, c.SectionsComplete[name], name)
		}
	})

	t.Run("complete application", func(t *testing.T) {
		c := ComputeCompletion(fullSections())

		assert.Equal(t, 100, c.Percentage)
		assert.True(t, c.Complete)
		assert.Equal(t, 13, c.AnsweredFields)
		for _, name := range RequiredSectionNames {
			assert.True(t, c.SectionsComplete[name], name)
		}
	})

	t.Run("percentage rounds to nearest integer", func(t *testing.T) {
		sections := map[string]SectionData{
			SectionWarmUp: {
				"animalQuestion": "A jaguar because it waits patiently",
			},
		}
		// 1 of 13 answered
		c := ComputeCompletion(sections)
		assert.Equal(t, 8, c.Percentage)

		sections[SectionWarmUp]["accomplishment"] = "I taught myself to play piano"
		// 2 of 13 answered
		c = ComputeCompletion(sections)
		assert.Equal(t, 15, c.Percentage)
	})

	t.Run("one missing answer keeps the section incomplete", func(t *testing.T) {
		sections := fullSections()
		delete(sections[SectionPurpose], "disciplineMeaning")

		c := ComputeCompletion(sections)
		assert.Equal(t, 12, c.AnsweredFields)
		assert.Equal(t, 92, c.Percentage)
		assert.False(t, c.Complete)
		assert.False(t, c.SectionsComplete[SectionPurpose])
		assert.True(t, c.SectionsComplete[SectionWarmUp])
	})

	t.Run("optional section never contributes", func(t *testing.T) {
		sections := fullSections()
		sections[SectionOptional] = SectionData{
			"twitter": "@somebody",
			"bio":     "A long enough biography of a person",
		}

		c := ComputeCompletion(sections)
		assert.Equal(t, 13, c.AnsweredFields)
		assert.Equal(t, 100, c.Percentage)
		_, tracked := c.SectionsComplete[SectionOptional]
		assert.False(t, tracked)
	})
}

func TestSectionComplete(t *testing.T) {
	sections := fullSections()

	assert.True(t, SectionComplete(SectionWarmUp, sections[SectionWarmUp]))
	assert.False(t, SectionComplete(SectionWarmUp, SectionData{}))
	assert.False(t, SectionComplete(SectionWarmUp, nil))
	assert.False(t, SectionComplete("bogus", sections[SectionWarmUp]))

	t.Run("optional is always complete", func(t *testing.T) {
		assert.True(t, SectionComplete(SectionOptional, nil))
		assert.True(t, SectionComplete(SectionOptional, SectionData{"twitter": "@x"}))
	})
}

func TestSectionNamesOrdering(t *testing.T) {
	require.Len(t, SectionNames, 5)
	assert.Equal(t, SectionOptional, SectionNames[len(SectionNames)-1])
	assert.Equal(t, RequiredSectionNames, SectionNames[:4])
}
