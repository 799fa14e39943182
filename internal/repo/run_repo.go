package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/shaiso/SpiderChef/internal/domain"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS recipe_runs (
	id          uuid PRIMARY KEY,
	recipe      text NOT NULL,
	source      text,
	status      text NOT NULL,
	output      jsonb,
	error       text,
	started_at  timestamptz,
	finished_at timestamptz,
	created_at  timestamptz NOT NULL
)`

// RunRepo — репозиторий запусков рецептов.
type RunRepo struct {
	db DBTX
}

// NewRunRepo создаёт новый RunRepo.
func NewRunRepo(db DBTX) *RunRepo {
	return &RunRepo{db: db}
}

// EnsureSchema создаёт таблицу recipe_runs, если её нет.
func (r *RunRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Save сохраняет запуск. Повторное сохранение обновляет статус и результат.
func (r *RunRepo) Save(ctx context.Context, run *domain.Run) error {
	var outputJSON []byte
	if run.Output != nil {
		data, err := json.Marshal(run.Output)
		if err != nil {
			return fmt.Errorf("marshal output: %w", err)
		}
		outputJSON = data
	}

	query := `
		INSERT INTO recipe_runs (id, recipe, source, status, output, error, started_at, finished_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status, output = EXCLUDED.output, error = EXCLUDED.error,
		    started_at = EXCLUDED.started_at, finished_at = EXCLUDED.finished_at
	`
	_, err := r.db.Exec(ctx, query,
		run.ID,
		run.Recipe,
		nullString(run.Source),
		string(run.Status),
		outputJSON,
		nullString(run.Error),
		run.StartedAt,
		run.FinishedAt,
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// GetByID возвращает запуск по ID.
func (r *RunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	query := `
		SELECT id, recipe, source, status, output, error, started_at, finished_at, created_at
		FROM recipe_runs
		WHERE id = $1
	`
	var run domain.Run
	var source, runError *string
	var status string
	var outputJSON []byte

	err := r.db.QueryRow(ctx, query, id).Scan(
		&run.ID,
		&run.Recipe,
		&source,
		&status,
		&outputJSON,
		&runError,
		&run.StartedAt,
		&run.FinishedAt,
		&run.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}

	run.Status = domain.RunStatus(status)
	if outputJSON != nil {
		if err := json.Unmarshal(outputJSON, &run.Output); err != nil {
			return nil, fmt.Errorf("unmarshal output: %w", err)
		}
	}
	if source != nil {
		run.Source = *source
	}
	if runError != nil {
		run.Error = *runError
	}
	return &run, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
