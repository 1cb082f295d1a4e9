package baseline

import (
	"context"
	"database/sql"
	"fmt"
)

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store backed by PostgreSQL.
//
// Rows are written only through ApplyTx, which runs inside the result
// store's commit transaction so baselines and anomaly results move together.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed baseline store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Snapshot(ctx context.Context, vendorID, department, location string) (*Snapshot, error) {
	snap := &Snapshot{}

	rows, err := p.db.QueryContext(ctx, `
		SELECT kind, obs_count, mean, m2, updated_at
		FROM baselines
		WHERE (kind = 'vendor' AND key = $1) OR (kind = 'department' AND key = $2)
	`, vendorID, department)
	if err != nil {
		return nil, fmt.Errorf("snapshot baselines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var s Stats
		if err := rows.Scan(&kind, &s.Count, &s.Mean, &s.M2, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan baseline: %w", err)
		}
		switch Kind(kind) {
		case KindVendor:
			snap.Vendor = s
		case KindDepartment:
			snap.Department = s
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snapshot baselines: %w", err)
	}

	err = p.db.QueryRowContext(ctx, `
		SELECT obs_count FROM vendor_locations WHERE vendor_id = $1 AND location = $2
	`, vendorID, location).Scan(&snap.VendorLocationCount)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("snapshot vendor location: %w", err)
	}

	return snap, nil
}

func (p *PostgresStore) Get(ctx context.Context, kind Kind, key string) (Stats, error) {
	var s Stats
	err := p.db.QueryRowContext(ctx, `
		SELECT obs_count, mean, m2, updated_at FROM baselines WHERE kind = $1 AND key = $2
	`, string(kind), key).Scan(&s.Count, &s.Mean, &s.M2, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return Stats{}, ErrNotFound
	}
	if err != nil {
		return Stats{}, fmt.Errorf("get baseline: %w", err)
	}
	return s, nil
}

// ApplyTx applies a delta inside an existing transaction. The key's row is
// created first if missing, then locked with FOR UPDATE, so two commits for
// the same key serialize at the database even if application-level locking
// is bypassed. Without the ensure step a brand-new key would have no row to
// lock and concurrent first commits could overwrite each other.
func (p *PostgresStore) ApplyTx(ctx context.Context, tx *sql.Tx, delta Delta) error {
	for _, upd := range []struct {
		kind Kind
		key  string
	}{
		{KindVendor, delta.VendorID},
		{KindDepartment, delta.Department},
	} {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO baselines (kind, key) VALUES ($1, $2)
			ON CONFLICT (kind, key) DO NOTHING
		`, string(upd.kind), upd.key); err != nil {
			return fmt.Errorf("ensure baseline %s/%s: %w", upd.kind, upd.key, err)
		}

		var s Stats
		err := tx.QueryRowContext(ctx, `
			SELECT obs_count, mean, m2 FROM baselines WHERE kind = $1 AND key = $2 FOR UPDATE
		`, string(upd.kind), upd.key).Scan(&s.Count, &s.Mean, &s.M2)
		if err != nil {
			return fmt.Errorf("lock baseline %s/%s: %w", upd.kind, upd.key, err)
		}

		s.Add(delta.Amount)

		res, err := tx.ExecContext(ctx, `
			UPDATE baselines
			SET obs_count = $3, mean = $4, m2 = $5, updated_at = NOW()
			WHERE kind = $1 AND key = $2
		`, string(upd.kind), upd.key, s.Count, s.Mean, s.M2)
		if err != nil {
			return fmt.Errorf("update baseline %s/%s: %w", upd.kind, upd.key, err)
		}
		if n, err := res.RowsAffected(); err == nil && n != 1 {
			return fmt.Errorf("update baseline %s/%s: %d rows affected", upd.kind, upd.key, n)
		}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO vendor_locations (vendor_id, location, obs_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (vendor_id, location) DO UPDATE
		SET obs_count = vendor_locations.obs_count + 1
	`, delta.VendorID, delta.Location)
	if err != nil {
		return fmt.Errorf("upsert vendor location: %w", err)
	}

	return nil
}
