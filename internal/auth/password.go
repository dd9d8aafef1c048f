package auth

import (
	"strings"
	"unicode"
)

// passwordSymbols is the fixed set of accepted special characters.
const passwordSymbols = "!@#$%^&*()-_=+[]{};:,.<>?"

const passwordMinLength = 8

// Dutch rule descriptions returned to the caller when a new password does
// not meet the policy.
const (
	ruleMinLength = "minimaal 8 tekens"
	ruleUppercase = "minimaal één hoofdletter"
	ruleLowercase = "minimaal één kleine letter"
	ruleDigit     = "minimaal één cijfer"
	ruleSymbol    = "minimaal één leesteken (" + passwordSymbols + ")"
)

// ValidatePasswordStrength checks the password policy and returns the list
// of violated rules. All rules are evaluated so the caller sees every unmet
// requirement at once; an empty slice means the password is acceptable.
func ValidatePasswordStrength(password string) []string {
	var violations []string

	if len(password) < passwordMinLength {
		violations = append(violations, ruleMinLength)
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(passwordSymbols, r):
			hasSymbol = true
		}
	}

	if !hasUpper {
		violations = append(violations, ruleUppercase)
	}
	if !hasLower {
		violations = append(violations, ruleLowercase)
	}
	if !hasDigit {
		violations = append(violations, ruleDigit)
	}
	if !hasSymbol {
		violations = append(violations, ruleSymbol)
	}
	return violations
}
