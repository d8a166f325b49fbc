package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/retry"

	"registro/internal/folio"
	"registro/internal/model"
)

var (
	ErrParticipantNotFound = errors.New("participant not found")
	ErrFolioConflict       = errors.New("folio conflict")
)

// allocRetry bounds the recovery from a folio uniqueness violation: the
// whole registration transaction is re-run, recomputing the maximum suffix.
var allocRetry = retry.Strategy{Attempts: 3, Delay: 50 * time.Millisecond, Backoff: 2}

type Repository interface {
	Register(ctx context.Context, p *model.Participant) error
	UpdateFolio(ctx context.Context, id int64, folioValue string) error
	ListAll(ctx context.Context) ([]model.Participant, error)
	ListForExport(ctx context.Context) ([]model.Participant, error)
	FindByFolio(ctx context.Context, folioValue string) (*model.Participant, error)
	FindByID(ctx context.Context, id int64) (*model.Participant, error)
	CountAll(ctx context.Context) (int, error)
	CountByPlantel(ctx context.Context) ([]GroupCount, error)
	CountByRole(ctx context.Context) ([]GroupCount, error)
	MigrateUp(migrationsDir string) error
	MigrateDown(migrationsDir string) error
}

type GroupCount struct {
	Value string
	Total int
}

type repository struct {
	db  *dbpg.DB
	log *zerolog.Logger
}

func NewRepository(db *dbpg.DB, log *zerolog.Logger) (Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.Master.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	return &repository{db: db, log: log}, nil
}

func (r *repository) MigrateUp(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		if _, err := r.db.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file, err)
		}
	}

	r.log.Info().Msgf("Migrations applied successfully from %s", migrationsDir)
	return nil
}

func (r *repository) MigrateDown(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.down.sql"))
	if err != nil {
		return fmt.Errorf("failed to read rollback files: %w", err)
	}

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read rollback file %s: %w", file, err)
		}

		if _, err := r.db.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to rollback migration %s: %w", file, err)
		}
	}

	r.log.Info().Msgf("Migrations rolled back successfully from %s", migrationsDir)
	return nil
}

// Register persists a validated participant and stamps its folio in a single
// transaction. A uniqueness violation on the folio index means another
// writer won the race despite the lock; the transaction is retried with a
// freshly recomputed suffix a bounded number of times.
func (r *repository) Register(ctx context.Context, p *model.Participant) error {
	var fatal error
	err := retry.Do(func() error {
		err := r.registerTx(ctx, p)
		if err != nil && !errors.Is(err, ErrFolioConflict) {
			// Only folio conflicts are worth another attempt.
			fatal = err
			return nil
		}
		return err
	}, allocRetry)
	if fatal != nil {
		return fatal
	}
	if err != nil {
		r.log.Error().Err(err).Str("plantel", p.Plantel).Msg("folio allocation retries exhausted")
		return err
	}
	return nil
}

func (r *repository) registerTx(ctx context.Context, p *model.Participant) error {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if pnc := recover(); pnc != nil {
			_ = tx.Rollback()
			panic(pnc)
		}
	}()

	prefix := folio.Prefix(p.Plantel)

	// Serializes read-max-then-stamp per prefix. Scanning the existing rows
	// FOR UPDATE is not enough: a concurrent insert is invisible to the
	// blocked reader, and an empty prefix has no rows to lock at all.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, prefix); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to take folio lock: %w", err)
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO participants (full_name, plantel, child_name, grado, role, clave, email)
		VALUES ($1, $2, $3, $4, $5, '', $6)
		RETURNING id, created_at
	`, p.FullName, p.Plantel, p.ChildName, p.Grade, p.Role, p.Email).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to create participant: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT clave FROM participants
		WHERE plantel = $1 AND clave <> ''
	`, p.Plantel)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to scan existing folios: %w", err)
	}

	var existing []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			rows.Close()
			_ = tx.Rollback()
			return fmt.Errorf("failed to scan folio: %w", err)
		}
		existing = append(existing, f)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		_ = tx.Rollback()
		return fmt.Errorf("failed to read folios: %w", err)
	}
	rows.Close()

	p.Folio = folio.Next(prefix, existing)

	if _, err := tx.ExecContext(ctx, `
		UPDATE participants SET clave = $1, updated_at = NOW() WHERE id = $2
	`, p.Folio, p.ID); err != nil {
		_ = tx.Rollback()
		if isUniqueViolation(err) {
			return ErrFolioConflict
		}
		return fmt.Errorf("failed to stamp folio: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return ErrFolioConflict
		}
		return fmt.Errorf("failed to commit registration: %w", err)
	}

	return nil
}

func (r *repository) UpdateFolio(ctx context.Context, id int64, folioValue string) error {
	var updated int64
	err := r.db.QueryRowContext(ctx, `
		UPDATE participants SET clave = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING id
	`, folioValue, id).Scan(&updated)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrFolioConflict
		}
		return fmt.Errorf("failed to update folio: %w", err)
	}
	return nil
}

const participantColumns = `id, full_name, plantel, child_name, grado, role, clave, email, created_at, updated_at`

func (r *repository) ListAll(ctx context.Context) ([]model.Participant, error) {
	return r.list(ctx, `
		SELECT `+participantColumns+`
		FROM participants
		ORDER BY created_at DESC, id DESC
	`)
}

// ListForExport orders rows the way the CSV is read by the organizers:
// grouped by plantel, then role, then name.
func (r *repository) ListForExport(ctx context.Context) ([]model.Participant, error) {
	return r.list(ctx, `
		SELECT `+participantColumns+`
		FROM participants
		ORDER BY plantel, role, full_name
	`)
}

func (r *repository) list(ctx context.Context, query string) ([]model.Participant, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var participants []model.Participant
	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(
			&p.ID, &p.FullName, &p.Plantel, &p.ChildName, &p.Grade,
			&p.Role, &p.Folio, &p.Email, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read participants: %w", err)
	}

	return participants, nil
}

func (r *repository) FindByFolio(ctx context.Context, folioValue string) (*model.Participant, error) {
	return r.findOne(ctx, `
		SELECT `+participantColumns+`
		FROM participants
		WHERE clave <> '' AND LOWER(clave) = LOWER($1)
	`, folioValue)
}

func (r *repository) FindByID(ctx context.Context, id int64) (*model.Participant, error) {
	return r.findOne(ctx, `
		SELECT `+participantColumns+`
		FROM participants
		WHERE id = $1
	`, id)
}

func (r *repository) findOne(ctx context.Context, query string, arg any) (*model.Participant, error) {
	var p model.Participant
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&p.ID, &p.FullName, &p.Plantel, &p.ChildName, &p.Grade,
		&p.Role, &p.Folio, &p.Email, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, ErrParticipantNotFound
	}
	return &p, nil
}

func (r *repository) CountAll(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM participants`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count participants: %w", err)
	}
	return count, nil
}

func (r *repository) CountByPlantel(ctx context.Context) ([]GroupCount, error) {
	return r.countGrouped(ctx, `
		SELECT plantel, COUNT(*) FROM participants
		GROUP BY plantel
		ORDER BY plantel
	`)
}

func (r *repository) CountByRole(ctx context.Context) ([]GroupCount, error) {
	return r.countGrouped(ctx, `
		SELECT role, COUNT(*) FROM participants
		GROUP BY role
		ORDER BY role
	`)
}

func (r *repository) countGrouped(ctx context.Context, query string) ([]GroupCount, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count grouped: %w", err)
	}
	defer rows.Close()

	var counts []GroupCount
	for rows.Next() {
		var gc GroupCount
		if err := rows.Scan(&gc.Value, &gc.Total); err != nil {
			return nil, fmt.Errorf("failed to scan group count: %w", err)
		}
		counts = append(counts, gc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read group counts: %w", err)
	}

	return counts, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
