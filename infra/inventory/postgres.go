package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	core "github.com/anhkiet307/swapstation/core/inventory"
	"github.com/anhkiet307/swapstation/core/model"
)

// PostgresSchema creates the pin_slots table.
const PostgresSchema = `CREATE TABLE IF NOT EXISTS pin_slots (
    id BIGINT PRIMARY KEY,
    station_id BIGINT NOT NULL,
    charge_percent DOUBLE PRECISION NOT NULL CHECK (charge_percent BETWEEN 0 AND 100),
    health_percent DOUBLE PRECISION NOT NULL CHECK (health_percent BETWEEN 0 AND 100),
    status TEXT NOT NULL,
    version BIGINT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS pin_slots_station ON pin_slots (station_id);`

const pgColumns = `id, station_id, charge_percent, health_percent, status, version, updated_at`

// NewPool creates and pings a new pgx connection pool.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// PostgresStore persists pin slots in PostgreSQL. Transactions lock rows
// with SELECT ... FOR UPDATE.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore wraps an open pool. When migrate is true the schema is
// created if missing.
func NewPostgresStore(ctx context.Context, db *pgxpool.Pool, migrate bool) (*PostgresStore, error) {
	if migrate {
		if _, err := db.Exec(ctx, PostgresSchema); err != nil {
			return nil, fmt.Errorf("migrate pin_slots: %w", err)
		}
	}
	return &PostgresStore{db: db}, nil
}

type pgQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanPGSlot(r pgx.Row) (model.PinSlot, error) {
	var s model.PinSlot
	var status string
	if err := r.Scan(&s.ID, &s.StationID, &s.ChargePercent, &s.HealthPercent, &status, &s.Version, &s.UpdatedAt); err != nil {
		return model.PinSlot{}, err
	}
	s.Status = model.SlotStatus(status)
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}

func fetchPG(ctx context.Context, q pgQuerier, id int64, suffix string) (model.PinSlot, error) {
	s, err := scanPGSlot(q.QueryRow(ctx, `SELECT `+pgColumns+` FROM pin_slots WHERE id = $1`+suffix, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.PinSlot{}, fmt.Errorf("slot %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return model.PinSlot{}, fmt.Errorf("fetch slot %d: %w", id, err)
	}
	return s, nil
}

func (s *PostgresStore) FetchSlot(ctx context.Context, id int64) (model.PinSlot, error) {
	return fetchPG(ctx, s.db, id, "")
}

func (s *PostgresStore) ListSlots(ctx context.Context, f core.Filter) ([]model.PinSlot, error) {
	q := `SELECT ` + pgColumns + ` FROM pin_slots WHERE true`
	args := make([]any, 0, 2)
	if f.StationID != 0 {
		args = append(args, f.StationID)
		q += fmt.Sprintf(" AND station_id = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		q += fmt.Sprintf(" AND status = $%d", len(args))
	}
	q += ` ORDER BY id`
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.PinSlot{}
	for rows.Next() {
		slot, err := scanPGSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, slot)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Upsert(ctx context.Context, slot model.PinSlot) (model.PinSlot, error) {
	if err := slot.Validate(); err != nil {
		return model.PinSlot{}, err
	}
	out, err := scanPGSlot(s.db.QueryRow(ctx, `INSERT INTO pin_slots (id, station_id, charge_percent, health_percent, status, version, updated_at)
        VALUES ($1, $2, $3, $4, $5, 1, now())
        ON CONFLICT (id) DO UPDATE SET
            station_id = EXCLUDED.station_id,
            charge_percent = EXCLUDED.charge_percent,
            health_percent = EXCLUDED.health_percent,
            status = EXCLUDED.status,
            version = pin_slots.version + 1,
            updated_at = now()
        RETURNING `+pgColumns,
		slot.ID, slot.StationID, slot.ChargePercent, slot.HealthPercent, string(slot.Status)))
	if err != nil {
		return model.PinSlot{}, fmt.Errorf("upsert slot %d: %w", slot.ID, err)
	}
	return out, nil
}

// WithTx opens a transaction and executes fn within it.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(core.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	return runPGTx(ctx, tx, fn)
}

// runPGTx runs fn and commits tx. A transaction that was never committed is
// discarded by the server when its connection dies, so a failed rollback
// does not leave partial writes and is not reported as ErrRollbackFailed.
func runPGTx(ctx context.Context, tx pgx.Tx, fn func(core.Tx) error) error {
	// roll back on panic
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
	}()

	if err := fn(&pgTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) FetchForUpdate(ctx context.Context, id int64) (model.PinSlot, error) {
	return fetchPG(ctx, t.tx, id, " FOR UPDATE")
}

func (t *pgTx) WriteSlot(ctx context.Context, slot model.PinSlot, expectedVersion int64) (model.PinSlot, error) {
	out, err := scanPGSlot(t.tx.QueryRow(ctx, `UPDATE pin_slots
        SET charge_percent = $1, health_percent = $2, version = version + 1, updated_at = now()
        WHERE id = $3 AND version = $4
        RETURNING `+pgColumns,
		slot.ChargePercent, slot.HealthPercent, slot.ID, expectedVersion))
	if errors.Is(err, pgx.ErrNoRows) {
		cur, ferr := fetchPG(ctx, t.tx, slot.ID, "")
		if ferr != nil {
			return model.PinSlot{}, ferr
		}
		return model.PinSlot{}, fmt.Errorf("slot %d at version %d, expected %d: %w", slot.ID, cur.Version, expectedVersion, core.ErrConcurrentModification)
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "40001" {
			return model.PinSlot{}, fmt.Errorf("write slot %d: %w: %w", slot.ID, core.ErrConcurrentModification, err)
		}
		return model.PinSlot{}, fmt.Errorf("write slot %d: %w", slot.ID, err)
	}
	return out, nil
}
