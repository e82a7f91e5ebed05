package utils

import "github.com/google/uuid"

// GenerateID returns a random v4 UUID, the primary key format of every table.
func GenerateID() string {
	return uuid.NewString()
}

// IsValidUUID reports whether id is a UUID in the canonical hyphenated form.
func IsValidUUID(id string) bool {
	return len(id) == 36 && uuid.Validate(id) == nil
}
