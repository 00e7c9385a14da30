package password

import (
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const MinLength = 8

func Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func Compare(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

// Validate returns the reasons plain is rejected, empty when it is acceptable.
func Validate(plain, username string) []string {
	var problems []string
	if len([]rune(plain)) < MinLength {
		problems = append(problems, "This password is too short. It must contain at least 8 characters.")
	}
	numeric := plain != ""
	for _, r := range plain {
		if !unicode.IsDigit(r) {
			numeric = false
			break
		}
	}
	if numeric {
		problems = append(problems, "This password is entirely numeric.")
	}
	if username != "" && strings.EqualFold(strings.TrimSpace(plain), strings.TrimSpace(username)) {
		problems = append(problems, "The password is too similar to the username.")
	}
	return problems
}
