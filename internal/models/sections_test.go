package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSectionSpec(t *testing.T) {
	spec, ok := GetSectionSpec(SectionWarmUp)
	require.True(t, ok)
	assert.Equal(t, SectionWarmUp, spec.Name)
	assert.Len(t, spec.Fields, 3)

	_, ok = GetSectionSpec("unknown")
	assert.False(t, ok)
}

func TestIsRequiredSection(t *testing.T) {
	for _, name := range RequiredSectionNames {
		assert.True(t, IsRequiredSection(name), name)
	}
	assert.False(t, IsRequiredSection(SectionOptional))
	assert.False(t, IsRequiredSection("unknown"))
}

func TestValidateSectionPayload(t *testing.T) {
	t.Run("valid text payload", func(t *testing.T) {
		err := ValidateSectionPayload(SectionWarmUp, map[string]interface{}{
			"animalQuestion": "A jaguar because it waits patiently",
		})
		assert.NoError(t, err)
	})

	t.Run("unknown section", func(t *testing.T) {
		err := ValidateSectionPayload("bogus", map[string]interface{}{})
		var fieldErr *FieldError
		require.ErrorAs(t, err, &fieldErr)
		assert.Equal(t, "bogus", fieldErr.Section)
	})

	t.Run("unknown field", func(t *testing.T) {
		err := ValidateSectionPayload(SectionWarmUp, map[string]interface{}{
			"notAField": "value",
		})
		var fieldErr *FieldError
		require.ErrorAs(t, err, &fieldErr)
		assert.Equal(t, "notAField", fieldErr.Field)
	})

	t.Run("null clears an answer", func(t *testing.T) {
		err := ValidateSectionPayload(SectionWarmUp, map[string]interface{}{
			"animalQuestion": nil,
		})
		assert.NoError(t, err)
	})

	t.Run("non-string value rejected", func(t *testing.T) {
		err := ValidateSectionPayload(SectionWarmUp, map[string]interface{}{
			"animalQuestion": 42,
		})
		assert.Error(t, err)
	})

	t.Run("over-length text rejected", func(t *testing.T) {
		err := ValidateSectionPayload(SectionWarmUp, map[string]interface{}{
			"animalQuestion": strings.Repeat("a", MaxTextLength+1),
		})
		assert.Error(t, err)
	})

	t.Run("choice must be in the set", func(t *testing.T) {
		err := ValidateSectionPayload(SectionCommitment, map[string]interface{}{
			"canCommit": "Yes",
		})
		assert.NoError(t, err)

		err = ValidateSectionPayload(SectionCommitment, map[string]interface{}{
			"canCommit": "Probably",
		})
		assert.Error(t, err)
	})

	t.Run("url validation", func(t *testing.T) {
		valid := map[string]interface{}{"videoUrl": "https://cdn.example.com/v.webm"}
		assert.NoError(t, ValidateSectionPayload(SectionOptional, valid))

		empty := map[string]interface{}{"videoUrl": ""}
		assert.NoError(t, ValidateSectionPayload(SectionOptional, empty))

		invalid := map[string]interface{}{"videoUrl": "not-a-url"}
		assert.Error(t, ValidateSectionPayload(SectionOptional, invalid))

		scheme := map[string]interface{}{"videoUrl": "ftp://example.com/v.webm"}
		assert.Error(t, ValidateSectionPayload(SectionOptional, scheme))
	})

	t.Run("oversized blob rejected", func(t *testing.T) {
		err := ValidateSectionPayload(SectionOptional, map[string]interface{}{
			"profilePhoto": strings.Repeat("x", 10000001),
		})
		assert.Error(t, err)
	})
}
