package domain

import (
	"time"

	"github.com/google/uuid"
)

// Run — один запуск рецепта через cook.
//
// Сохраняется в PostgreSQL и публикуется в RabbitMQ, если они настроены.
type Run struct {
	// ID — уникальный идентификатор запуска.
	ID uuid.UUID `json:"id"`

	// Recipe — имя рецепта.
	Recipe string `json:"recipe"`

	// Source — путь к файлу рецепта.
	Source string `json:"source,omitempty"`

	// Status — текущий статус.
	Status RunStatus `json:"status"`

	// Output — результат последнего шага.
	Output any `json:"output,omitempty"`

	// Error — текст ошибки, если запуск завершился с FAILED.
	Error string `json:"error,omitempty"`

	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// CreatedAt — время создания запуска.
	CreatedAt time.Time `json:"created_at"`
}

// NewRun создаёт запуск в статусе PENDING.
func NewRun(recipe, source string) *Run {
	return &Run{
		ID:        uuid.New(),
		Recipe:    recipe,
		Source:    source,
		Status:    RunStatusPending,
		CreatedAt: time.Now(),
	}
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если запуск ещё не завершён.
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

// IsFinished возвращает true, если запуск завершён (в любом статусе).
func (r *Run) IsFinished() bool {
	return r.Status.IsTerminal()
}

// MarkRunning переводит запуск в статус RUNNING.
func (r *Run) MarkRunning() {
	now := time.Now()
	r.Status = RunStatusRunning
	r.StartedAt = &now
}

// MarkSucceeded переводит запуск в статус SUCCEEDED с результатом.
func (r *Run) MarkSucceeded(output any) {
	now := time.Now()
	r.Status = RunStatusSucceeded
	r.FinishedAt = &now
	r.Output = output
}

// MarkFailed переводит запуск в статус FAILED с ошибкой.
func (r *Run) MarkFailed(err string) {
	now := time.Now()
	r.Status = RunStatusFailed
	r.FinishedAt = &now
	r.Error = err
}

// MarkCancelled переводит запуск в статус CANCELLED.
func (r *Run) MarkCancelled() {
	now := time.Now()
	r.Status = RunStatusCancelled
	r.FinishedAt = &now
}
