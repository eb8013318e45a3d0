//go:build !race

package accounts

// DefaultHashCost is the bcrypt cost used when none is configured
const DefaultHashCost = 12

func passwordHashCost() int {
	return DefaultHashCost
}
