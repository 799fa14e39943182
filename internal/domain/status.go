package domain

// RunStatus — статус запуска рецепта.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → SUCCEEDED
//	                  ↘ FAILED
//	                  ↘ CANCELLED
type RunStatus string

const (
	// RunStatusPending — запуск создан, шаги ещё не выполнялись.
	RunStatusPending RunStatus = "PENDING"

	// RunStatusRunning — рецепт готовится.
	RunStatusRunning RunStatus = "RUNNING"

	// RunStatusSucceeded — все шаги выполнены.
	RunStatusSucceeded RunStatus = "SUCCEEDED"

	// RunStatusFailed — шаг завершился ошибкой.
	RunStatusFailed RunStatus = "FAILED"

	// RunStatusCancelled — запуск прерван сигналом.
	RunStatusCancelled RunStatus = "CANCELLED"
)

// IsTerminal возвращает true, если статус финальный.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusSucceeded, RunStatusFailed, RunStatusCancelled:
		return true
	default:
		return false
	}
}
