package intake_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zatekoja/feediq/internal/domain/entities"
	"github.com/zatekoja/feediq/internal/intake"
	apperrors "github.com/zatekoja/feediq/pkg/errors"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{name: "full name", input: "Maria Lopez", valid: true},
		{name: "four letters", input: "Anna", valid: true},
		{name: "two characters with dot", input: "J.", valid: true},
		{name: "empty", input: "", valid: false},
		{name: "single letter", input: "A", valid: false},
		{name: "short letters only", input: "Bob", valid: false},
		{name: "whitespace padded short", input: "  Al  ", valid: false},
		{name: "contains test", input: "Testy McTest", valid: false},
		{name: "keyboard mash", input: "asdfgh", valid: false},
		{name: "repeated letters", input: "Baaad", valid: false},
		{name: "qwerty", input: "Qwerty", valid: false},
		{name: "bbb fragment", input: "Abbbey", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := intake.ValidateName(tt.input)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, apperrors.ErrInvalidName)
		})
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		input string
		valid bool
	}{
		{input: "", valid: true},
		{input: "maria@shop.io", valid: true},
		{input: "first.last@sub.example.org", valid: true},
		{input: "not-an-email", valid: false},
		{input: "a@b", valid: false},
		{input: "a b@c.com", valid: false},
		{input: "test@example.com", valid: false},
		{input: "TEST@TEST.COM", valid: false},
		{input: "111@111.com", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := intake.ValidateEmail(tt.input)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, apperrors.ErrInvalidEmail)
		})
	}
}

func TestValidateRating(t *testing.T) {
	for rating := 1; rating <= 5; rating++ {
		assert.NoError(t, intake.ValidateRating(rating))
	}
	assert.ErrorIs(t, intake.ValidateRating(0), apperrors.ErrInvalidRating)
	assert.ErrorIs(t, intake.ValidateRating(6), apperrors.ErrInvalidRating)
	assert.ErrorIs(t, intake.ValidateRating(-1), apperrors.ErrInvalidRating)
}

func TestValidateComment(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{name: "meaningful", input: "Checkout was quick", valid: true},
		{name: "exactly five", input: "great", valid: true},
		{name: "too short", input: "meh", valid: false},
		{name: "short after trim", input: "   abc   ", valid: false},
		{name: "repeated character", input: "aaaaaa", valid: false},
		{name: "repeated punctuation", input: "!!!!!!!", valid: false},
		{name: "filler good", input: "good", valid: false},
		{name: "emoji counted by rune", input: "👍👍👍👍", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := intake.ValidateComment(tt.input)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, apperrors.ErrInvalidComment)
		})
	}
}

func TestValidateDraft(t *testing.T) {
	draft := entities.FeedbackDraft{Name: "Maria", Email: "", Rating: 4, Comment: "Lovely shop"}
	assert.NoError(t, intake.ValidateDraft(draft))

	draft.Rating = 9
	assert.ErrorIs(t, intake.ValidateDraft(draft), apperrors.ErrInvalidRating)
}

func TestValidationErrorsCarryUserMessage(t *testing.T) {
	err := intake.ValidateComment("ok")
	assert.Equal(t, "Please provide meaningful feedback (minimum 5 characters)", apperrors.UserMessage(err, "fallback"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}
