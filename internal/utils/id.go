package utils

import "github.com/google/uuid"

// NewID returns a random unique client identifier.
func NewID() string {
	return uuid.NewString()
}
