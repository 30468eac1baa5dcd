package tool

import "github.com/google/uuid"

// GenerateUUIDV7 returns a time ordered UUID, used as the primary key of
// every row the service writes.
func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// IsUUID reports whether s parses as a UUID. Stores keyed by uuid columns
// treat anything else as a missing row.
func IsUUID(s string) bool {
	return uuid.Validate(s) == nil
}
