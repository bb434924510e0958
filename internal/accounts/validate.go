package accounts

import (
	"math"
	"net/mail"
	"strings"

	"github.com/taskhub/backend/internal/apperror"
)

// NormalizeName trims name and rejects it when nothing is left.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperror.Validation("Name is required")
	}
	return name, nil
}

// NormalizeEmail trims and lower-cases email and checks it is a bare address.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", apperror.Validation("Email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return "", apperror.Validation("Email is invalid")
	}
	return email, nil
}

func ValidateAge(age int) error {
	if age < 0 || age > math.MaxInt32 {
		return apperror.Validation("Age must be a positive number")
	}
	return nil
}
