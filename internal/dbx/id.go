package dbx

import "github.com/google/uuid"

// CanonicalID returns id in the canonical UUID form PostgreSQL stores.
// ok is false when id cannot be a UUID, in which case no row can match it.
func CanonicalID(id string) (canonical string, ok bool) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return u.String(), true
}
