package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Usage summarizes the store contents, optionally for one key prefix.
type Usage struct {
	Keys  int
	Bytes int64
}

// Get returns the value stored under key. A missing key is reported with ok=false.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, true, nil
}

// Set writes value under key. When a quota is configured and the write would
// push the total size past it, nothing is written and ErrQuotaExceeded is returned.
func (s *Store) Set(ctx context.Context, key, value string) error {
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin set tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if s.quota > 0 {
			var total, existing int64
			if err := tx.QueryRowContext(ctx,
				"SELECT COALESCE(SUM(length(CAST(key AS BLOB)) + length(CAST(value AS BLOB))), 0) FROM kv",
			).Scan(&total); err != nil {
				return fmt.Errorf("measure usage: %w", err)
			}
			if err := tx.QueryRowContext(ctx,
				"SELECT COALESCE(SUM(length(CAST(key AS BLOB)) + length(CAST(value AS BLOB))), 0) FROM kv WHERE key = ?", key,
			).Scan(&existing); err != nil {
				return fmt.Errorf("measure entry: %w", err)
			}
			if total-existing+int64(len(key)+len(value)) > s.quota {
				return fmt.Errorf("set %q: %w", key, ErrQuotaExceeded)
			}
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO kv (key, value, seq, updated_at)
VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM kv), CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, seq = excluded.seq, updated_at = excluded.updated_at`,
			key, value,
		); err != nil {
			return fmt.Errorf("set %q: %w", key, err)
		}
		return tx.Commit()
	})
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	return retryOnBusy(ctx, func() error {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
			return fmt.Errorf("delete %q: %w", key, err)
		}
		return nil
	})
}

// DeletePrefix removes every key starting with prefix and reports how many went.
func (s *Store) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			"DELETE FROM kv WHERE substr(key, 1, ?) = ?", len(prefix), prefix)
		if err != nil {
			return fmt.Errorf("delete prefix %q: %w", prefix, err)
		}
		removed, _ = res.RowsAffected()
		return nil
	})
	return int(removed), err
}

// EvictOldest removes up to n of the least recently written keys under prefix.
// Keys outside prefix are never touched.
func (s *Store) EvictOldest(ctx context.Context, prefix string, n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `
DELETE FROM kv WHERE key IN (
    SELECT key FROM kv WHERE substr(key, 1, ?) = ? ORDER BY seq ASC LIMIT ?
)`, len(prefix), prefix, n)
		if err != nil {
			return fmt.Errorf("evict %q: %w", prefix, err)
		}
		removed, _ = res.RowsAffected()
		return nil
	})
	return int(removed), err
}

// Keys lists the keys under prefix, oldest write first.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := retryOnBusy(ctx, func() error {
		keys = keys[:0]
		rows, err := s.db.QueryContext(ctx,
			"SELECT key FROM kv WHERE substr(key, 1, ?) = ? ORDER BY seq ASC", len(prefix), prefix)
		if err != nil {
			return fmt.Errorf("list keys: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var key string
			if err := rows.Scan(&key); err != nil {
				return fmt.Errorf("scan key: %w", err)
			}
			keys = append(keys, key)
		}
		return rows.Err()
	})
	return keys, err
}

// Usage reports the key count and byte size under prefix ("" for everything).
func (s *Store) Usage(ctx context.Context, prefix string) (Usage, error) {
	var usage Usage
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx, `
SELECT COUNT(1), COALESCE(SUM(length(CAST(key AS BLOB)) + length(CAST(value AS BLOB))), 0)
FROM kv WHERE substr(key, 1, ?) = ?`, len(prefix), prefix).Scan(&usage.Keys, &usage.Bytes)
	})
	if err != nil {
		return Usage{}, fmt.Errorf("usage %q: %w", prefix, err)
	}
	return usage, nil
}
