package recipe

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRecipe — рецепт не прошёл валидацию.
	ErrInvalidRecipe = errors.New("invalid recipe")

	// ErrUnknownFormat — неизвестный формат вывода.
	ErrUnknownFormat = errors.New("unknown output format")
)

// StepError — первая непойманная ошибка шага верхнего уровня.
type StepError struct {
	// Number — номер шага, начиная с 1.
	Number int
	Type   string
	Name   string
	Err    error
}

// Error реализует интерфейс error.
func (e *StepError) Error() string {
	if e.Name != "" && e.Name != e.Type {
		return fmt.Sprintf("step %d (%s %q): %v", e.Number, e.Type, e.Name, e.Err)
	}
	return fmt.Sprintf("step %d (%s): %v", e.Number, e.Type, e.Err)
}

// Unwrap возвращает исходную ошибку.
func (e *StepError) Unwrap() error {
	return e.Err
}
