// Package storage holds the error vocabulary shared by identity persistence
// backends.
//
// # Backends
//
//   - storage/memory: mutex guarded maps, used by tests and local runs
//   - storage/sqlstore: database/sql over PostgreSQL (lib/pq) or SQLite
//     (mattn/go-sqlite3) with embedded goose migrations
//
// Both satisfy auth.UserStore and enforce uniqueness of email and API key.
// Lookups that match nothing return ErrNotFound; uniqueness violations
// return ErrConflict:
//
//	user, err := store.FindByEmail(ctx, email)
//	if errors.Is(err, storage.ErrNotFound) {
//		// unknown email
//	}
package storage
