package steps

import (
	"github.com/shaiso/SpiderChef/internal/engine"
)

const (
	// StepTypeSave — тип шага сохранения значения в переменную.
	StepTypeSave = "save"

	configVariable = "variable"
)

// SaveStep — сохраняет входное значение в переменную рецепта
// и возвращает его без изменений.
//
//	type: save
//	variable: next_page
type SaveStep struct {
	base
}

// NewSaveStep создаёт SaveStep.
func NewSaveStep(def Definition, _ *Registry) (Step, error) {
	b, err := newBase(def)
	if err != nil {
		return nil, err
	}
	s := &SaveStep{base: b}

	r := newFieldReader(s.stepType, b.config)
	r.Required(configVariable)
	if err := r.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// Apply сохраняет значение.
func (s *SaveStep) Apply(rc *engine.Context, cfg map[string]any, input any) (any, error) {
	r := newFieldReader(s.stepType, cfg)
	name := r.Required(configVariable)
	if err := r.Err(); err != nil {
		return nil, err
	}

	rc.Variables[name] = input
	return input, nil
}
