package bunx

import "github.com/google/uuid"

// NewUUIDv7 generates a time-ordered UUIDv7 string for text primary keys.
// It works the same on PostgreSQL and SQLite since neither needs a
// server-side generator. Panics only if the entropy source fails.
func NewUUIDv7() string {
	return uuid.Must(uuid.NewV7()).String()
}
