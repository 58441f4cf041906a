package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/rl1809/vending-machine/internal/port"
)

type stateRecord struct {
	bun.BaseModel `bun:"table:machine_state,alias:ms"`

	MachineID string    `bun:"machine_id,pk"`
	Key       string    `bun:"state_key,pk"`
	Payload   []byte    `bun:"payload,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

type versionRecord struct {
	bun.BaseModel `bun:"table:machine_version,alias:mv"`

	MachineID string    `bun:"machine_id,pk"`
	Version   int64     `bun:"version,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// BunAdapter is the SQLite and PostgreSQL store. Same layout as MySQLAdapter,
// expressed through bun so one implementation serves both dialects.
type BunAdapter struct {
	db        *bun.DB
	machineID string
}

func NewBunAdapter(db *bun.DB, machineID string) *BunAdapter {
	return &BunAdapter{db: db, machineID: machineID}
}

func (b *BunAdapter) EnsureSchema(ctx context.Context) error {
	for _, model := range []any{(*versionRecord)(nil), (*stateRecord)(nil)} {
		if _, err := b.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

func (b *BunAdapter) Load(ctx context.Context, keys []string) (port.Snapshot, error) {
	snap := port.Snapshot{Values: make(map[string][]byte, len(keys))}

	err := b.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var version versionRecord
		err := tx.NewSelect().Model(&version).Where("machine_id = ?", b.machineID).Scan(ctx)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("query version: %w", err)
		default:
			snap.Version = uint64(version.Version)
		}
		if len(keys) == 0 {
			return nil
		}

		var records []stateRecord
		err = tx.NewSelect().
			Model(&records).
			Where("machine_id = ?", b.machineID).
			Where("state_key IN (?)", bun.In(keys)).
			Scan(ctx)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("query state: %w", err)
		}
		for _, r := range records {
			snap.Values[r.Key] = r.Payload
		}
		return nil
	})
	if err != nil {
		return port.Snapshot{}, err
	}
	return snap, nil
}

func (b *BunAdapter) Commit(ctx context.Context, version uint64, values map[string][]byte) error {
	now := time.Now().UTC()

	return b.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := b.bumpVersion(ctx, tx, version, now); err != nil {
			return err
		}
		if len(values) == 0 {
			return nil
		}

		records := make([]stateRecord, 0, len(values))
		for key, payload := range values {
			records = append(records, stateRecord{
				MachineID: b.machineID,
				Key:       key,
				Payload:   payload,
				UpdatedAt: now,
			})
		}
		_, err := tx.NewInsert().
			Model(&records).
			On("CONFLICT (machine_id, state_key) DO UPDATE").
			Set("payload = EXCLUDED.payload").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("upsert state: %w", err)
		}
		return nil
	})
}

func (b *BunAdapter) bumpVersion(ctx context.Context, tx bun.Tx, version uint64, now time.Time) error {
	var (
		result sql.Result
		err    error
	)
	if version == 0 {
		result, err = tx.NewInsert().
			Model(&versionRecord{MachineID: b.machineID, Version: 1, UpdatedAt: now}).
			On("CONFLICT (machine_id) DO NOTHING").
			Exec(ctx)
	} else {
		result, err = tx.NewUpdate().
			Model((*versionRecord)(nil)).
			Set("version = version + 1").
			Set("updated_at = ?", now).
			Where("machine_id = ?", b.machineID).
			Where("version = ?", int64(version)).
			Exec(ctx)
	}
	if err != nil {
		return fmt.Errorf("bump version: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return port.ErrVersionConflict
	}
	return nil
}
