package redis

import (
	"fmt"

	"github.com/google/uuid"
)

// KeyBuilder provides environment-aware Redis key building functionality
type KeyBuilder struct {
	prefix string // Environment prefix (staging/prod)
}

// NewKeyBuilder creates a new key builder with environment-based prefix
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	if environment == "development" || environment == "staging" {
		prefix = "staging"
	}

	return &KeyBuilder{
		prefix: prefix,
	}
}

// BuildKey constructs a Redis key with the environment prefix
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("%s:%s", kb.prefix, key)
}

// GetPrefix returns the current environment prefix
func (kb *KeyBuilder) GetPrefix() string {
	return kb.prefix
}

// KeySessionResults builds the key for a session's results snapshot.
func (kb *KeyBuilder) KeySessionResults(sessionID uuid.UUID) string {
	return kb.BuildKey(fmt.Sprintf(KeySessionResults, sessionID))
}

// KeyPublishedList builds the key for the published session listing.
func (kb *KeyBuilder) KeyPublishedList() string {
	return kb.BuildKey(KeyPublishedList)
}

// KeyCastIdempotency builds the cast-lock key for one voter in one session.
func (kb *KeyBuilder) KeyCastIdempotency(sessionID uuid.UUID, voter string) string {
	return kb.BuildKey(fmt.Sprintf(KeyCastIdempotency, sessionID, voter))
}

// KeyCustom builds a custom key with the environment prefix
func (kb *KeyBuilder) KeyCustom(format string, args ...interface{}) string {
	return kb.BuildKey(fmt.Sprintf(format, args...))
}
