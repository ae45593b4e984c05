package intake

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/zatekoja/feediq/internal/domain/entities"
	apperrors "github.com/zatekoja/feediq/pkg/errors"
)

var (
	alphaOnly    = regexp.MustCompile(`^[A-Za-z]+$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	blockedNameFragments = []string{"test", "asdf", "qwer", "aaa", "bbb"}
	blockedEmails        = map[string]struct{}{
		"test@example.com": {},
		"111@111.com":      {},
		"test@test.com":    {},
	}
	blockedComments = map[string]struct{}{
		"ok":   {},
		"good": {},
		"nice": {},
	}
)

const (
	minNameLength      = 2
	minAlphaNameLength = 4
	minCommentLength   = 5
)

// ValidateName rejects obviously fake names.
func ValidateName(value string) error {
	trimmed := strings.TrimSpace(value)
	length := utf8.RuneCountInString(trimmed)
	if length < minNameLength {
		return apperrors.ErrInvalidName
	}
	if alphaOnly.MatchString(trimmed) && length < minAlphaNameLength {
		return apperrors.ErrInvalidName
	}

	lower := strings.ToLower(trimmed)
	for _, fragment := range blockedNameFragments {
		if strings.Contains(lower, fragment) {
			return apperrors.ErrInvalidName
		}
	}
	return nil
}

// ValidateEmail accepts the empty string, since email is optional.
func ValidateEmail(value string) error {
	if value == "" {
		return nil
	}
	if !emailPattern.MatchString(value) {
		return apperrors.ErrInvalidEmail
	}
	if _, blocked := blockedEmails[strings.ToLower(value)]; blocked {
		return apperrors.ErrInvalidEmail
	}
	return nil
}

// ValidateRating accepts the five offered star values.
func ValidateRating(rating int) error {
	if rating < 1 || rating > 5 {
		return apperrors.ErrInvalidRating
	}
	return nil
}

// ValidateComment rejects short, filler or single-character comments.
func ValidateComment(value string) error {
	trimmed := strings.TrimSpace(value)
	if utf8.RuneCountInString(trimmed) < minCommentLength {
		return apperrors.ErrInvalidComment
	}
	if _, blocked := blockedComments[strings.ToLower(trimmed)]; blocked {
		return apperrors.ErrInvalidComment
	}
	if isRepeatedRune(trimmed) {
		return apperrors.ErrInvalidComment
	}
	return nil
}

// ValidateDraft applies every field rule; nothing failing it may reach a store.
func ValidateDraft(draft entities.FeedbackDraft) error {
	if err := ValidateName(draft.Name); err != nil {
		return err
	}
	if err := ValidateEmail(draft.Email); err != nil {
		return err
	}
	if err := ValidateRating(draft.Rating); err != nil {
		return err
	}
	return ValidateComment(draft.Comment)
}

// isRepeatedRune reports whether s is one character repeated at least twice.
func isRepeatedRune(s string) bool {
	first, size := utf8.DecodeRuneInString(s)
	if size == 0 || len(s) == size {
		return false
	}
	for _, r := range s[size:] {
		if r != first {
			return false
		}
	}
	return true
}
