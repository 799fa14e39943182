package steps

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/shaiso/SpiderChef/internal/engine"
)

const (
	// StepTypeScript — тип шага JavaScript выражения.
	StepTypeScript = "script"

	configSource = "source"
)

// ScriptStep — вычисляет JavaScript (goja) и возвращает результат последнего выражения.
//
// В скрипте доступны value (входное значение) и vars (переменные рецепта).
//
//	type: script
//	source: value.map(p => p.price * 100)
type ScriptStep struct {
	base
}

// NewScriptStep создаёт ScriptStep.
func NewScriptStep(def Definition, _ *Registry) (Step, error) {
	b, err := newBase(def)
	if err != nil {
		return nil, err
	}
	s := &ScriptStep{base: b}

	if err := validateNow(b.config, func(cfg map[string]any) error {
		_, err := s.compile(cfg)
		return err
	}); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ScriptStep) compile(cfg map[string]any) (*goja.Program, error) {
	r := newFieldReader(s.stepType, cfg)
	source := r.Required(configSource)
	if err := r.Err(); err != nil {
		return nil, err
	}

	program, err := goja.Compile(s.Name(), source, false)
	if err != nil {
		return nil, invalidField(s.stepType, configSource, err.Error())
	}
	return program, nil
}

// Apply выполняет скрипт в новой среде goja.
func (s *ScriptStep) Apply(rc *engine.Context, cfg map[string]any, input any) (any, error) {
	program, err := s.compile(cfg)
	if err != nil {
		return nil, err
	}

	vm := goja.New()
	if err := vm.Set("value", plainValue(input)); err != nil {
		return nil, fmt.Errorf("script: bind value: %w", err)
	}
	if err := vm.Set("vars", plainValue(rc.Variables)); err != nil {
		return nil, fmt.Errorf("script: bind vars: %w", err)
	}

	result, err := vm.RunProgram(program)
	if err != nil {
		return nil, fmt.Errorf("%w: script: %v", ErrInvalidInput, err)
	}
	if result == nil || goja.IsUndefined(result) || goja.IsNull(result) {
		return nil, nil
	}
	return result.Export(), nil
}
