package models

import (
	"fmt"
	"regexp"
	"strings"
)

// ===============================
// VALIDATION ERRORS
// ===============================

// ValidationError represents a validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Value   interface{} `json:"value,omitempty"`
}

// Error implements the error interface
func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	return fmt.Sprintf("validation failed with %d errors", len(e))
}

// Add adds a validation error
func (e *ValidationErrors) Add(field, message, code string, value interface{}) {
	*e = append(*e, ValidationError{
		Field:   field,
		Message: message,
		Code:    code,
		Value:   value,
	})
}

// HasErrors returns true if there are validation errors
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator defines the validation interface
type Validator interface {
	Validate() ValidationErrors
}

// ===============================
// CORE VALIDATORS
// ===============================

// usernameRegex matches the same character class the mention parser scans
// for, so every valid username is mentionable as typed.
var usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)

// UsernameValidator validates usernames
func UsernameValidator(field, value string) *ValidationError {
	if value == "" {
		return &ValidationError{Field: field, Message: "username is required", Code: "required", Value: value}
	}
	if len(value) < 3 {
		return &ValidationError{Field: field, Message: "username must be at least 3 characters", Code: "too_short", Value: value}
	}
	if len(value) > 30 {
		return &ValidationError{Field: field, Message: "username must be 30 characters or less", Code: "too_long", Value: value}
	}
	if !usernameRegex.MatchString(value) {
		return &ValidationError{
			Field:   field,
			Message: "username can only contain letters, numbers, underscores, periods, and hyphens",
			Code:    "invalid_characters",
			Value:   value,
		}
	}
	return nil
}

// ContentValidator validates free-text content fields
func ContentValidator(field, value string, minLength, maxLength int) *ValidationError {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) < minLength {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%s must be at least %d characters", field, minLength),
			Code:    "too_short",
			Value:   value,
		}
	}
	if len(value) > maxLength {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%s must be %d characters or less", field, maxLength),
			Code:    "too_long",
			Value:   value,
		}
	}
	return nil
}

// IDValidator validates positive identifiers
func IDValidator(field string, value int64) *ValidationError {
	if value <= 0 {
		return &ValidationError{Field: field, Message: fmt.Sprintf("valid %s is required", field), Code: "invalid", Value: value}
	}
	return nil
}

// ===============================
// MODEL VALIDATORS
// ===============================

// Validate validates a Comment model
func (c *Comment) Validate() ValidationErrors {
	var errors ValidationErrors

	if err := ContentValidator("text", c.Text, 1, 10000); err != nil {
		errors = append(errors, *err)
	}
	if err := IDValidator("post_id", c.PostID); err != nil {
		errors = append(errors, *err)
	}
	if err := IDValidator("author_id", c.AuthorID); err != nil {
		errors = append(errors, *err)
	}
	if err := IDValidator("company_id", c.CompanyID); err != nil {
		errors = append(errors, *err)
	}
	if c.ParentCommentID != nil && *c.ParentCommentID <= 0 {
		errors.Add("parent_comment_id", "parent comment id must be positive when set", "invalid", *c.ParentCommentID)
	}

	return errors
}

// Validate validates a Notification model
func (n *Notification) Validate() ValidationErrors {
	var errors ValidationErrors

	if err := IDValidator("user_id", n.UserID); err != nil {
		errors = append(errors, *err)
	}
	if err := IDValidator("company_id", n.CompanyID); err != nil {
		errors = append(errors, *err)
	}
	if n.Type != NotificationTypeMention {
		errors.Add("type", "unsupported notification type", "invalid_value", n.Type)
	}
	if err := ContentValidator("title", n.Title, 1, 255); err != nil {
		errors = append(errors, *err)
	}
	if n.UserID == n.MentionedByID {
		errors.Add("user_id", "notification recipient cannot be the mentioning user", "self_mention", n.UserID)
	}

	return errors
}

// Validate validates a User model
func (u *User) Validate() ValidationErrors {
	var errors ValidationErrors

	if err := UsernameValidator("username", u.Username); err != nil {
		errors = append(errors, *err)
	}
	if err := IDValidator("company_id", u.CompanyID); err != nil {
		errors = append(errors, *err)
	}
	if u.Email == "" {
		errors.Add("email", "email is required", "required", u.Email)
	}

	return errors
}

// ValidateModel validates any model that implements the Validator interface
func ValidateModel(model Validator) error {
	if errors := model.Validate(); errors.HasErrors() {
		return errors
	}
	return nil
}

// SanitizeString trims and collapses whitespace and strips null bytes.
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	return strings.TrimSpace(input)
}
