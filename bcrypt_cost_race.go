//go:build race

package accounts

import "golang.org/x/crypto/bcrypt"

// DefaultHashCost is the bcrypt cost used when none is configured
const DefaultHashCost = bcrypt.DefaultCost

func passwordHashCost() int {
	// Reduce cost for race-enabled builds so test suites can run with strict timeouts.
	return DefaultHashCost
}
