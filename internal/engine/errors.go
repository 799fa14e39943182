package engine

import "errors"

// Ошибки разрешения данных.
var (
	// ErrUnresolvedVariable — в конфигурации шага остался ${...}, для которого нет переменной.
	ErrUnresolvedVariable = errors.New("unresolved variable")

	// ErrMissingValue — нет данных для извлечения или сравнения.
	ErrMissingValue = errors.New("missing value")

	// ErrConversion — значение не удалось преобразовать к нужному типу.
	ErrConversion = errors.New("value conversion failed")

	// ErrNoSession — контекст запуска не связан с сетевой сессией.
	ErrNoSession = errors.New("no network session")
)

// UnresolvedVariableError — ошибка с именем неразрешённого placeholder'а.
type UnresolvedVariableError struct {
	Token string // исходный токен, например "${id}"
	Name  string // имя переменной без ${}
}

// Error реализует интерфейс error.
func (e *UnresolvedVariableError) Error() string {
	return "variable '" + e.Name + "' not found in recipe variables (" + e.Token + ")"
}

// Unwrap возвращает базовую ошибку.
func (e *UnresolvedVariableError) Unwrap() error {
	return ErrUnresolvedVariable
}
