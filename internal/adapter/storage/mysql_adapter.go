package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/rl1809/vending-machine/internal/port"
)

const mysqlErrDuplicateEntry = 1062

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS machine_version (
		machine_id VARCHAR(64) NOT NULL PRIMARY KEY,
		version BIGINT UNSIGNED NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS machine_state (
		machine_id VARCHAR(64) NOT NULL,
		state_key VARCHAR(64) NOT NULL,
		payload BLOB NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (machine_id, state_key)
	)`,
}

// MySQLAdapter stores every key of one machine as a row and guards commits
// with a version row, bumped in the same transaction as the writes.
type MySQLAdapter struct {
	db        *sql.DB
	machineID string
}

func NewMySQLAdapter(db *sql.DB, machineID string) *MySQLAdapter {
	return &MySQLAdapter{db: db, machineID: machineID}
}

func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	for _, stmt := range mysqlSchema {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) Load(ctx context.Context, keys []string) (port.Snapshot, error) {
	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return port.Snapshot{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	snap := port.Snapshot{Values: make(map[string][]byte, len(keys))}
	err = tx.QueryRowContext(ctx, `
		SELECT version FROM machine_version WHERE machine_id = ?`, m.machineID,
	).Scan(&snap.Version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return port.Snapshot{}, fmt.Errorf("query version: %w", err)
	}
	if len(keys) == 0 {
		return snap, nil
	}

	args := make([]any, 0, len(keys)+1)
	args = append(args, m.machineID)
	for _, k := range keys {
		args = append(args, k)
	}
	rows, err := tx.QueryContext(ctx, `
		SELECT state_key, payload FROM machine_state
		WHERE machine_id = ? AND state_key IN (`+placeholders(len(keys))+`)`, args...,
	)
	if err != nil {
		return port.Snapshot{}, fmt.Errorf("query state: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var payload []byte
		if err := rows.Scan(&key, &payload); err != nil {
			return port.Snapshot{}, fmt.Errorf("scan state: %w", err)
		}
		snap.Values[key] = payload
	}
	if err := rows.Err(); err != nil {
		return port.Snapshot{}, fmt.Errorf("scan state: %w", err)
	}
	return snap, nil
}

func (m *MySQLAdapter) Commit(ctx context.Context, version uint64, values map[string][]byte) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := m.bumpVersion(ctx, tx, version); err != nil {
		return err
	}

	for key, payload := range values {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO machine_state (machine_id, state_key, payload, updated_at)
			VALUES (?, ?, ?, NOW())
			ON DUPLICATE KEY UPDATE payload = VALUES(payload), updated_at = NOW()`,
			m.machineID, key, payload,
		)
		if err != nil {
			return fmt.Errorf("upsert %s: %w", key, err)
		}
	}

	return tx.Commit()
}

func (m *MySQLAdapter) bumpVersion(ctx context.Context, tx *sql.Tx, version uint64) error {
	if version == 0 {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO machine_version (machine_id, version, updated_at) VALUES (?, 1, NOW())`,
			m.machineID,
		)
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry {
			return port.ErrVersionConflict
		}
		if err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
		return nil
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE machine_version
		SET version = version + 1, updated_at = NOW()
		WHERE machine_id = ? AND version = ?`,
		m.machineID, version,
	)
	if err != nil {
		return fmt.Errorf("update version: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return port.ErrVersionConflict
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
