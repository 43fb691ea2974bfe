package utils

import "github.com/google/uuid"

// UUIDGenerator produces client-side identifiers for conversations and
// messages. V7 keeps identifiers time-sortable, which the message ordering
// queries rely on as a tie-breaker.
type UUIDGenerator struct{}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

// Generate returns a V7 identifier, falling back to V4 if the monotonic
// clock source is unavailable.
func (g *UUIDGenerator) Generate() string {
	if v7, err := uuid.NewV7(); err == nil {
		return v7.String()
	}
	return uuid.NewString()
}
