package auth

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// specialChars is the punctuation set accepted by RequireSpecial.
const specialChars = `!@#$%^&*()_+-=[]{}|;'"\,./<>?`

// PasswordPolicy describes the rules a password must satisfy.
type PasswordPolicy struct {
	MinLength      int
	MaxLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireDigit   bool
	RequireSpecial bool
}

// DefaultPasswordPolicy returns the policy used when nothing is configured.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:    8,
		MaxLength:    128,
		RequireUpper: true,
		RequireLower: true,
		RequireDigit: true,
	}
}

// Reason identifies which policy rule rejected a password.
type Reason string

const (
	ReasonEmpty          Reason = "EMPTY_PASSWORD"
	ReasonTooShort       Reason = "TOO_SHORT"
	ReasonTooLong        Reason = "TOO_LONG"
	ReasonMissingUpper   Reason = "MISSING_UPPERCASE"
	ReasonMissingLower   Reason = "MISSING_LOWERCASE"
	ReasonMissingDigit   Reason = "MISSING_DIGIT"
	ReasonMissingSpecial Reason = "MISSING_SPECIAL_CHAR"
)

// PolicyViolation is returned by PasswordValidator.Validate.
// Limit carries the bound for TooShort and TooLong and is zero otherwise.
type PolicyViolation struct {
	Reason Reason
	Limit  int
}

func (v *PolicyViolation) Error() string {
	switch v.Reason {
	case ReasonEmpty:
		return "password is required"
	case ReasonTooShort:
		return fmt.Sprintf("password must be at least %d characters", v.Limit)
	case ReasonTooLong:
		return fmt.Sprintf("password must be at most %d characters", v.Limit)
	case ReasonMissingUpper:
		return "password must contain an uppercase letter"
	case ReasonMissingLower:
		return "password must contain a lowercase letter"
	case ReasonMissingDigit:
		return "password must contain a digit"
	case ReasonMissingSpecial:
		return "password must contain a special character"
	default:
		return "password does not satisfy the password policy"
	}
}

// PasswordValidator checks candidate passwords against a PasswordPolicy.
type PasswordValidator struct {
	policy PasswordPolicy
}

// NewPasswordValidator creates a validator for the given policy.
func NewPasswordValidator(policy PasswordPolicy) *PasswordValidator {
	return &PasswordValidator{policy: policy}
}

// Policy returns the policy the validator enforces.
func (v *PasswordValidator) Policy() PasswordPolicy {
	return v.policy
}

// CanonicalPassword returns the form of a raw password that is validated,
// hashed and compared on login.
func CanonicalPassword(raw string) string {
	return strings.TrimSpace(raw)
}

// Validate reports the first rule the candidate breaks, or nil.
// Rules run in a fixed order: length bounds, then upper, lower, digit, special.
func (v *PasswordValidator) Validate(candidate string) error {
	pw := CanonicalPassword(candidate)
	if pw == "" {
		return &PolicyViolation{Reason: ReasonEmpty}
	}

	length := utf8.RuneCountInString(pw)
	if length < v.policy.MinLength {
		return &PolicyViolation{Reason: ReasonTooShort, Limit: v.policy.MinLength}
	}
	if length > v.policy.MaxLength {
		return &PolicyViolation{Reason: ReasonTooLong, Limit: v.policy.MaxLength}
	}

	if v.policy.RequireUpper && !containsFunc(pw, unicode.IsUpper) {
		return &PolicyViolation{Reason: ReasonMissingUpper}
	}
	if v.policy.RequireLower && !containsFunc(pw, unicode.IsLower) {
		return &PolicyViolation{Reason: ReasonMissingLower}
	}
	if v.policy.RequireDigit && !containsFunc(pw, unicode.IsDigit) {
		return &PolicyViolation{Reason: ReasonMissingDigit}
	}
	if v.policy.RequireSpecial && !strings.ContainsAny(pw, specialChars) {
		return &PolicyViolation{Reason: ReasonMissingSpecial}
	}

	return nil
}

func containsFunc(s string, f func(rune) bool) bool {
	return strings.IndexFunc(s, f) >= 0
}
