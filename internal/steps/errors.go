package steps

import (
	"context"
	"errors"
	"fmt"

	"github.com/shaiso/SpiderChef/internal/engine"
	"github.com/shaiso/SpiderChef/internal/transport"
)

// Ошибки шагов.
var (
	// ErrStepNotFound — тип шага не найден в реестре.
	ErrStepNotFound = errors.New("step type not found")

	// ErrInvalidConfig — невалидная конфигурация шага.
	ErrInvalidConfig = errors.New("invalid step config")

	// ErrStepCancelled — выполнение шага отменено.
	ErrStepCancelled = errors.New("step execution cancelled")

	// ErrInvalidInput — входное значение неподходящего типа.
	ErrInvalidInput = errors.New("invalid step input")
)

// ValidationError — ошибка конфигурации конкретного поля шага.
type ValidationError struct {
	StepType string
	Field    string
	Message  string
	Err      error
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.StepType == "" {
		return fmt.Sprintf("step definition: field %s: %s", e.Field, e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("step %s: field %s: %s", e.StepType, e.Field, e.Message)
	}
	return fmt.Sprintf("step %s: %s", e.StepType, e.Message)
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// invalidField создаёт ValidationError поверх ErrInvalidConfig.
func invalidField(stepType, field, message string) error {
	return &ValidationError{
		StepType: stepType,
		Field:    field,
		Message:  message,
		Err:      ErrInvalidConfig,
	}
}

// Виды ошибок, сохраняемые try_catch в переменную error_type.
const (
	KindUnresolvedVariable = "unresolved_variable"
	KindMissingValue       = "missing_value"
	KindConversion         = "conversion"
	KindBadStatus          = "bad_status"
	KindInvalidConfig      = "invalid_config"
	KindCancelled          = "cancelled"
	KindTransport          = "transport"
	KindInvalidInput       = "invalid_input"
	KindError              = "error"
)

// ErrorKind возвращает стабильное название вида ошибки.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, engine.ErrUnresolvedVariable):
		return KindUnresolvedVariable
	case errors.Is(err, engine.ErrMissingValue):
		return KindMissingValue
	case errors.Is(err, engine.ErrConversion):
		return KindConversion
	case errors.Is(err, transport.ErrBadStatus):
		return KindBadStatus
	case errors.Is(err, ErrInvalidConfig):
		return KindInvalidConfig
	case errors.Is(err, ErrStepCancelled), errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, transport.ErrRequest):
		return KindTransport
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	default:
		return KindError
	}
}

// isCancellation сообщает, что ошибка вызвана отменой запуска.
func isCancellation(err error) bool {
	return errors.Is(err, ErrStepCancelled) || errors.Is(err, context.Canceled)
}
