package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	core "github.com/anhkiet307/swapstation/core/inventory"
	"github.com/anhkiet307/swapstation/core/model"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS pin_slots (
        id INTEGER PRIMARY KEY,
        station_id INTEGER NOT NULL,
        charge_percent REAL NOT NULL CHECK (charge_percent BETWEEN 0 AND 100),
        health_percent REAL NOT NULL CHECK (health_percent BETWEEN 0 AND 100),
        status TEXT NOT NULL,
        version INTEGER NOT NULL,
        updated_at INTEGER NOT NULL
    );
    CREATE INDEX IF NOT EXISTS pin_slots_station ON pin_slots (station_id);`

const sqliteColumns = `id, station_id, charge_percent, health_percent, status, version, updated_at`

// SQLiteStore persists pin slots in a SQLite database. A single connection
// is used so transactions are serialized.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteSlot(r rowScanner) (model.PinSlot, error) {
	var s model.PinSlot
	var status string
	var ts int64
	if err := r.Scan(&s.ID, &s.StationID, &s.ChargePercent, &s.HealthPercent, &status, &s.Version, &ts); err != nil {
		return model.PinSlot{}, err
	}
	s.Status = model.SlotStatus(status)
	s.UpdatedAt = time.Unix(0, ts).UTC()
	return s, nil
}

type sqlQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func fetchSQLite(ctx context.Context, q sqlQuerier, id int64) (model.PinSlot, error) {
	s, err := scanSQLiteSlot(q.QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM pin_slots WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.PinSlot{}, fmt.Errorf("slot %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return model.PinSlot{}, fmt.Errorf("fetch slot %d: %w", id, err)
	}
	return s, nil
}

func (s *SQLiteStore) FetchSlot(ctx context.Context, id int64) (model.PinSlot, error) {
	return fetchSQLite(ctx, s.db, id)
}

func (s *SQLiteStore) ListSlots(ctx context.Context, f core.Filter) ([]model.PinSlot, error) {
	var args []any
	query := `SELECT ` + sqliteColumns + ` FROM pin_slots WHERE 1=1`
	if f.StationID != 0 {
		query += ` AND station_id = ?`
		args = append(args, f.StationID)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	query += ` ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	res := []model.PinSlot{}
	for rows.Next() {
		slot, err := scanSQLiteSlot(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, slot model.PinSlot) (model.PinSlot, error) {
	if err := slot.Validate(); err != nil {
		return model.PinSlot{}, err
	}
	var out model.PinSlot
	err := s.withTx(ctx, func(t *sqliteTx) error {
		_, err := t.tx.ExecContext(ctx, `INSERT INTO pin_slots (`+sqliteColumns+`)
            VALUES (?, ?, ?, ?, ?, 1, ?)
            ON CONFLICT(id) DO UPDATE SET
                station_id = excluded.station_id,
                charge_percent = excluded.charge_percent,
                health_percent = excluded.health_percent,
                status = excluded.status,
                version = pin_slots.version + 1,
                updated_at = excluded.updated_at`,
			slot.ID, slot.StationID, slot.ChargePercent, slot.HealthPercent, string(slot.Status), s.now().UnixNano())
		if err != nil {
			return fmt.Errorf("upsert slot %d: %w", slot.ID, err)
		}
		out, err = fetchSQLite(ctx, t.tx, slot.ID)
		return err
	})
	return out, err
}

// WithTx runs fn inside a database transaction. A rollback that fails after
// fn returned an error is reported as core.ErrRollbackFailed.
func (s *SQLiteStore) WithTx(ctx context.Context, fn func(core.Tx) error) error {
	return s.withTx(ctx, func(t *sqliteTx) error { return fn(t) })
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(*sqliteTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(&sqliteTx{tx: tx, now: s.now}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w: %v (original error: %w)", core.ErrRollbackFailed, rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

type sqliteTx struct {
	tx  *sql.Tx
	now func() time.Time
}

// FetchForUpdate reads the slot. The single connection already holds the
// database for the duration of the transaction.
func (t *sqliteTx) FetchForUpdate(ctx context.Context, id int64) (model.PinSlot, error) {
	return fetchSQLite(ctx, t.tx, id)
}

func (t *sqliteTx) WriteSlot(ctx context.Context, slot model.PinSlot, expectedVersion int64) (model.PinSlot, error) {
	res, err := t.tx.ExecContext(ctx, `UPDATE pin_slots
        SET charge_percent = ?, health_percent = ?, version = version + 1, updated_at = ?
        WHERE id = ? AND version = ?`,
		slot.ChargePercent, slot.HealthPercent, t.now().UnixNano(), slot.ID, expectedVersion)
	if err != nil {
		return model.PinSlot{}, fmt.Errorf("write slot %d: %w", slot.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.PinSlot{}, fmt.Errorf("write slot %d: %w", slot.ID, err)
	}
	cur, err := fetchSQLite(ctx, t.tx, slot.ID)
	if err != nil {
		return model.PinSlot{}, err
	}
	if n == 0 {
		return model.PinSlot{}, fmt.Errorf("slot %d at version %d, expected %d: %w", slot.ID, cur.Version, expectedVersion, core.ErrConcurrentModification)
	}
	return cur, nil
}
