package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const DriverName = "sqlite3"

// SQLite keeps mapping tables as rows keyed (profile, tbl, key). Put
// replaces the whole table inside one transaction, preserving the
// whole-table-overwrite contract.
type SQLite struct {
	db *sqlx.DB
}

func NewSQLite(db *sql.DB) *SQLite {
	s := &SQLite{
		db: sqlx.NewDb(db, DriverName),
	}
	err := s.runMigrations()
	if err != nil {
		panic(fmt.Sprintf("sqlite: running migrations: %v", err))
	}
	return s
}

func (s *SQLite) runMigrations() error {
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS mappings (
		profile VARCHAR NOT NULL,
		tbl VARCHAR NOT NULL,
		key VARCHAR NOT NULL,
		value VARCHAR NOT NULL,
		PRIMARY KEY (profile, tbl, key)
	)`,
}

func (s *SQLite) Get(ctx context.Context, profile, table string) (map[string]string, error) {
	var rows []mappingRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT key, value FROM mappings WHERE profile = ? AND tbl = ?
	`, profile, table)
	if err != nil {
		return nil, err
	}

	m := make(map[string]string, len(rows))
	for _, r := range rows {
		m[r.Key] = r.Value
	}
	return m, nil
}

func (s *SQLite) Put(ctx context.Context, profile, table string, m map[string]string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM mappings WHERE profile = ? AND tbl = ?
	`, profile, table)
	if err != nil {
		return err
	}
	for k, v := range m {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO mappings (profile, tbl, key, value) VALUES (?, ?, ?, ?)
		`, profile, table, k, v)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLite) DeleteKey(ctx context.Context, profile, table, key string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM mappings WHERE profile = ? AND tbl = ? AND key = ?
	`, profile, table, key)
	return err
}

type mappingRow struct {
	Key   string `db:"key"`
	Value string `db:"value"`
}
