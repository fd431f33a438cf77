package storage

import (
	"database/sql"
	"time"
)

// Singleton lock operations. Every mutation is one conditional
// statement, so concurrent bot instances racing on the same record
// resolve at the storage layer.

// GetLock returns the current lock record, or nil if none exists.
func (r *Repository) GetLock() (*Lock, error) {
	l := &Lock{}
	var validUntil int64
	err := r.db.QueryRow(
		`SELECT holder_id, valid_until FROM singleton_lock WHERE id = 1`,
	).Scan(&l.HolderID, &validUntil)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	l.ValidUntil = time.Unix(validUntil, 0).UTC()
	return l, nil
}

// TryAcquireLock claims or refreshes leadership for holder in a single
// upsert. The update succeeds only when holder already owns the record
// or the record has expired; otherwise the caller stays a follower.
func (r *Repository) TryAcquireLock(holder string, now, validUntil time.Time) (bool, error) {
	result, err := r.db.Exec(
		`INSERT INTO singleton_lock (id, holder_id, valid_until) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			holder_id = excluded.holder_id,
			valid_until = excluded.valid_until
		 WHERE singleton_lock.holder_id = excluded.holder_id
			OR singleton_lock.valid_until < ?`,
		holder, validUntil.Unix(), now.Unix(),
	)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	return affected > 0, err
}

// ReleaseLock expires the lock immediately so a peer can take over
// without waiting out the validity window. Only the current holder's
// record is touched.
func (r *Repository) ReleaseLock(holder string, now time.Time) error {
	_, err := r.db.Exec(
		`UPDATE singleton_lock SET valid_until = ? WHERE holder_id = ?`,
		now.Unix(), holder,
	)
	return err
}
