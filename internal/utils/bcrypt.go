package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes a password with bcrypt.DefaultCost
func HashPassword(password string) (string, error) {
	return HashPasswordWithCost(password, bcrypt.DefaultCost)
}

// HashPasswordWithCost hashes a password with the given bcrypt cost
func HashPasswordWithCost(password string, cost int) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(bytes), err
}

// CheckPasswordHash compares a password with its hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// DefaultBcryptCost is used when no cost is configured.
const DefaultBcryptCost = bcrypt.DefaultCost
