package licensing

import (
	"context"
	"encoding/json"
)

// Load reads both tables into one Document
func (s *PGStore) Load(ctx context.Context) (*Document, error) {
	doc := NewDocument()

	rows, err := s.pool.Query(ctx,
		`SELECT key, tier, created_at, used_by, used_at, revoked FROM licenses`)
	if err != nil {
		return nil, &StorageError{Op: "load", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var rec LicenseRecord
		var usedBy *string

		if err := rows.Scan(&key, &rec.Tier, &rec.CreatedAt, &usedBy, &rec.UsedAt, &rec.Revoked); err != nil {
			return nil, &StorageError{Op: "load", Err: err}
		}
		if usedBy != nil {
			rec.UsedBy = *usedBy
		}
		doc.Licenses[key] = &rec
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "load", Err: err}
	}

	userRows, err := s.pool.Query(ctx,
		`SELECT id, license_key, tier, activated_at, old_licenses FROM users`)
	if err != nil {
		return nil, &StorageError{Op: "load", Err: err}
	}
	defer userRows.Close()

	for userRows.Next() {
		var id string
		var user UserRecord
		var oldLicenses []byte

		if err := userRows.Scan(&id, &user.LicenseKey, &user.Tier, &user.ActivatedAt, &oldLicenses); err != nil {
			return nil, &StorageError{Op: "load", Err: err}
		}
		if len(oldLicenses) > 0 {
			if err := json.Unmarshal(oldLicenses, &user.OldLicenses); err != nil {
				return nil, &StorageError{Op: "load", Err: err}
			}
		}
		doc.Users[id] = &user
	}
	if err := userRows.Err(); err != nil {
		return nil, &StorageError{Op: "load", Err: err}
	}

	return doc, nil
}

// Save rewrites the aggregate in a single transaction. Records are
// never deleted by lifecycle operations, so replacing both tables
// wholesale preserves the last-writer-wins document semantics.
func (s *PGStore) Save(ctx context.Context, doc *Document) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return &StorageError{Op: "save", Err: err}
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM licenses`); err != nil {
		return &StorageError{Op: "save", Err: err}
	}
	if _, err := tx.Exec(ctx, `DELETE FROM users`); err != nil {
		return &StorageError{Op: "save", Err: err}
	}

	for key, rec := range doc.Licenses {
		var usedBy *string
		if rec.UsedBy != "" {
			usedBy = &rec.UsedBy
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO licenses (key, tier, created_at, used_by, used_at, revoked)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			key, rec.Tier, rec.CreatedAt, usedBy, rec.UsedAt, rec.Revoked)
		if err != nil {
			return &StorageError{Op: "save", Err: err}
		}
	}

	for id, user := range doc.Users {
		oldLicenses, err := json.Marshal(user.OldLicenses)
		if err != nil {
			return &StorageError{Op: "save", Err: err}
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO users (id, license_key, tier, activated_at, old_licenses)
			 VALUES ($1, $2, $3, $4, $5)`,
			id, user.LicenseKey, user.Tier, user.ActivatedAt, oldLicenses)
		if err != nil {
			return &StorageError{Op: "save", Err: err}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return &StorageError{Op: "save", Err: err}
	}

	return nil
}
