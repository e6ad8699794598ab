package lib

import (
	"github.com/google/uuid"
)

// NewID generates a UUID version 4 string (RFC 4122)
func NewID() string {
	return uuid.NewString()
}

// ExitCode returns a pointer to code, for passing exit-code hints.
func ExitCode(code int) *int {
	return &code
}
