package password

import "strings"

// symbols is the set of special characters accepted by the complexity
// policy. Kept in sync with the client-side validation.
const symbols = "@$!%*#?&_-"

// MeetsPolicy reports whether the password contains at least one
// lowercase letter, one uppercase letter, one digit, and one symbol.
// Length bounds are enforced by request validation, not here.
func MeetsPolicy(password string) bool {
	var lower, upper, digit, symbol bool

	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(symbols, r):
			symbol = true
		}
	}

	return lower && upper && digit && symbol
}
