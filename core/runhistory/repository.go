package runhistory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nativecov/nativecov/integration/database/pg"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, letting Repository
// methods participate in a caller-managed transaction transparently.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists Run and Dump records to PostgreSQL. Wrap ctx with
// pg.WithTx before calling a Repository method to have it participate in an
// existing transaction.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a Repository backed by pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) q(ctx context.Context) querier {
	if tx, ok := pg.TxFromContext(ctx); ok {
		return tx
	}
	return r.pool
}

// CreateRun inserts a new run row in the "running" state.
func (r *Repository) CreateRun(ctx context.Context, run Run) error {
	const q = `INSERT INTO runs (id, root_pid, command_line, started_at, crash_count, status)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q(ctx).Exec(ctx, q, run.ID, run.RootPID, run.CommandLine, run.StartedAt, run.CrashCount, run.Status)
	if err != nil {
		return fmt.Errorf("runhistory: create run: %w", err)
	}
	return nil
}

// FinishRun records the final exit code and status of a run.
func (r *Repository) FinishRun(ctx context.Context, id uuid.UUID, exitCode int, status Status) error {
	const q = `UPDATE runs SET finished_at = now(), exit_code = $2, status = $3 WHERE id = $1`
	_, err := r.q(ctx).Exec(ctx, q, id, exitCode, status)
	if err != nil {
		return fmt.Errorf("runhistory: finish run: %w", err)
	}
	return nil
}

// IncrementCrashCount bumps a run's crash counter by one.
func (r *Repository) IncrementCrashCount(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE runs SET crash_count = crash_count + 1 WHERE id = $1`
	_, err := r.q(ctx).Exec(ctx, q, id)
	if err != nil {
		return fmt.Errorf("runhistory: increment crash count: %w", err)
	}
	return nil
}

// GetRun fetches a run by id.
func (r *Repository) GetRun(ctx context.Context, id uuid.UUID) (Run, error) {
	const q = `SELECT id, root_pid, command_line, started_at, finished_at, exit_code, crash_count, status
		FROM runs WHERE id = $1`
	var run Run
	err := r.q(ctx).QueryRow(ctx, q, id).Scan(
		&run.ID, &run.RootPID, &run.CommandLine, &run.StartedAt,
		&run.FinishedAt, &run.ExitCode, &run.CrashCount, &run.Status,
	)
	if err != nil {
		return Run{}, fmt.Errorf("runhistory: get run: %w", err)
	}
	return run, nil
}

// RecordDump inserts a dump row associated with a run.
func (r *Repository) RecordDump(ctx context.Context, dump Dump) error {
	const q = `INSERT INTO dumps (id, run_id, pid, exception_kind, exception_code, captured_at, content_hash, location)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q(ctx).Exec(ctx, q,
		dump.ID, dump.RunID, dump.PID, dump.ExceptionKind, dump.ExceptionCode,
		dump.CapturedAt, dump.ContentHash, dump.Location,
	)
	if err != nil {
		return fmt.Errorf("runhistory: record dump: %w", err)
	}
	return nil
}

// ListDumps returns every dump captured for a run, most recent first.
func (r *Repository) ListDumps(ctx context.Context, runID uuid.UUID) ([]Dump, error) {
	const q = `SELECT id, run_id, pid, exception_kind, exception_code, captured_at, content_hash, location
		FROM dumps WHERE run_id = $1 ORDER BY captured_at DESC`
	rows, err := r.q(ctx).Query(ctx, q, runID)
	if err != nil {
		return nil, fmt.Errorf("runhistory: list dumps: %w", err)
	}
	defer rows.Close()

	var dumps []Dump
	for rows.Next() {
		var d Dump
		if err := rows.Scan(&d.ID, &d.RunID, &d.PID, &d.ExceptionKind, &d.ExceptionCode, &d.CapturedAt, &d.ContentHash, &d.Location); err != nil {
			return nil, fmt.Errorf("runhistory: scan dump: %w", err)
		}
		dumps = append(dumps, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("runhistory: list dumps: %w", err)
	}
	return dumps, nil
}
