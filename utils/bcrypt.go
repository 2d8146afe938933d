package utils

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes an operator password for storage on the users table.
func HashPassword(password string) ([]byte, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hashed, nil
}

// ComparePassword checks a login attempt against the stored hash. Callers
// treat any error as a credential mismatch.
func ComparePassword(hashed string, attempt string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(attempt)); err != nil {
		return fmt.Errorf("compare password: %w", err)
	}
	return nil
}
