package utils

import (
	"crypto/rand"
	"encoding/hex"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"hms/internal/models"
)

// passwordHistoryDepth is how many previous hashes a new password is
// checked against and how many are retained.
const passwordHistoryDepth = 3

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePasswordPolicy returns every rule the candidate violates, so the
// caller can report all of them at once.
func ValidatePasswordPolicy(password string) []string {
	var violations []string
	if len(password) < 8 {
		violations = append(violations, "must be at least 8 characters long")
	}
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	if !upper {
		violations = append(violations, "must contain an uppercase letter")
	}
	if !lower {
		violations = append(violations, "must contain a lowercase letter")
	}
	if !digit {
		violations = append(violations, "must contain a digit")
	}
	if !special {
		violations = append(violations, "must contain a special character")
	}
	return violations
}

// PasswordRecentlyUsed reports whether the candidate matches the current
// hash or any retained historical hash.
func PasswordRecentlyUsed(password, currentHash string, history []models.PasswordStamp) bool {
	if CheckPassword(password, currentHash) {
		return true
	}
	for _, stamp := range history {
		if CheckPassword(password, stamp.Hash) {
			return true
		}
	}
	return false
}

// RotatePasswordHistory pushes the outgoing hash onto the history and
// trims it to the retained depth, newest first.
func RotatePasswordHistory(history []models.PasswordStamp, outgoingHash string) []models.PasswordStamp {
	history = append([]models.PasswordStamp{{Hash: outgoingHash, ChangedAt: time.Now()}}, history...)
	if len(history) > passwordHistoryDepth {
		history = history[:passwordHistoryDepth]
	}
	return history
}

// GenerateToken returns a hex-encoded random token for verification and
// reset links.
func GenerateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
