package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/taggeo/taggeo/pkg/taggeo/store"
)

// batchSize is the number of Puts grouped into one transaction.
const batchSize = 10000

// sqliteStore implements store.Table on a scratch SQLite database. The
// database lives in its own temporary directory, which Close removes:
// the table only spills memory to disk for the duration of one run.
type sqliteStore struct {
	db      *sql.DB
	dir     string
	tx      *sql.Tx
	put     *sql.Stmt
	pending int
}

// OpenScratch creates a scratch table under parent (os.TempDir() when empty).
func OpenScratch(ctx context.Context, parent string) (store.Table, error) {
	dir, err := os.MkdirTemp(parent, "taggeo-table-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "geotags.db"))
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	// Scratch data, no fsync needed
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=OFF",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			os.RemoveAll(dir)
			return nil, err
		}
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		os.RemoveAll(dir)
		return nil, err
	}

	return &sqliteStore{db: db, dir: dir}, nil
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS geotags (
	id INTEGER PRIMARY KEY,
	time INTEGER NOT NULL,
	latitude REAL NOT NULL,
	longitude REAL NOT NULL,
	domain_num INTEGER NOT NULL,
	url_num1 INTEGER NOT NULL,
	url_num2 INTEGER NOT NULL
);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// Close discards any pending batch, closes the database and removes its directory.
func (s *sqliteStore) Close() error {
	if s.tx != nil {
		s.put.Close()
		s.tx.Rollback()
		s.tx = nil
	}
	err := s.db.Close()
	if rmErr := os.RemoveAll(s.dir); err == nil {
		err = rmErr
	}
	return err
}

// Put upserts a record. Writes are batched; reads flush the batch first.
func (s *sqliteStore) Put(ctx context.Context, id uint64, rec store.GeoRecord) error {
	if s.tx == nil {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		const stmt = `
INSERT INTO geotags (id, time, latitude, longitude, domain_num, url_num1, url_num2)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	time=excluded.time,
	latitude=excluded.latitude,
	longitude=excluded.longitude,
	domain_num=excluded.domain_num,
	url_num1=excluded.url_num1,
	url_num2=excluded.url_num2;
`
		put, err := tx.PrepareContext(ctx, stmt)
		if err != nil {
			tx.Rollback()
			return err
		}
		s.tx, s.put = tx, put
	}

	_, err := s.put.ExecContext(ctx,
		int64(id),
		int64(rec.Time),
		rec.Latitude,
		rec.Longitude,
		int64(rec.DomainNum),
		int64(rec.URLNum1),
		int64(rec.URLNum2),
	)
	if err != nil {
		return fmt.Errorf("put %d: %w", id, err)
	}

	s.pending++
	if s.pending >= batchSize {
		return s.flush()
	}
	return nil
}

func (s *sqliteStore) flush() error {
	if s.tx == nil {
		return nil
	}
	s.put.Close()
	err := s.tx.Commit()
	s.tx, s.put, s.pending = nil, nil, 0
	if err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Get returns the record for id.
func (s *sqliteStore) Get(ctx context.Context, id uint64) (store.GeoRecord, bool, error) {
	if err := s.flush(); err != nil {
		return store.GeoRecord{}, false, err
	}

	row := s.db.QueryRowContext(ctx, `
SELECT time, latitude, longitude, domain_num, url_num1, url_num2
FROM geotags WHERE id = ?`, int64(id))

	rec, err := scanRecord(row.Scan)
	if err == sql.ErrNoRows {
		return store.GeoRecord{}, false, nil
	}
	if err != nil {
		return store.GeoRecord{}, false, err
	}
	return rec, true, nil
}

// Len returns the number of distinct ids.
func (s *sqliteStore) Len(ctx context.Context) (int, error) {
	if err := s.flush(); err != nil {
		return 0, err
	}
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM geotags`).Scan(&n)
	return n, err
}

// Each visits records in ascending id order.
func (s *sqliteStore) Each(ctx context.Context, fn func(id uint64, rec store.GeoRecord) error) error {
	if err := s.flush(); err != nil {
		return err
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, time, latitude, longitude, domain_num, url_num1, url_num2
FROM geotags ORDER BY id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		rec, err := scanRecord(func(dest ...any) error {
			return rows.Scan(append([]any{&id}, dest...)...)
		})
		if err != nil {
			return err
		}
		if err := fn(uint64(id), rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

func scanRecord(scan func(dest ...any) error) (store.GeoRecord, error) {
	var (
		rec     store.GeoRecord
		urlNum2 int64
	)
	err := scan(
		&rec.Time,
		&rec.Latitude,
		&rec.Longitude,
		&rec.DomainNum,
		&rec.URLNum1,
		&urlNum2,
	)
	rec.URLNum2 = uint64(urlNum2)
	return rec, err
}
