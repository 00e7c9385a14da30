package service

import (
	"strings"

	"github.com/google/uuid"
)

// newSessionKey returns a 32 char hex key.
func newSessionKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewCSRFToken returns a random 64 char token for the double-submit cookie.
func NewCSRFToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "") + strings.ReplaceAll(uuid.NewString(), "-", "")
}
