package utils

import "github.com/google/uuid"

// GenerateRequestID returns a fresh id for a provider request.
func GenerateRequestID() string {
	return uuid.NewString()
}
