package steps

import (
	"context"

	"github.com/shaiso/SpiderChef/internal/engine"
)

const (
	// StepTypeTryCatch — тип шага обработки ошибок.
	StepTypeTryCatch = "try_catch"

	configTrySteps     = "try_steps"
	configCatchSteps   = "catch_steps"
	configFinallySteps = "finally_steps"
)

// TryCatchStep — структурная обработка ошибок над тремя списками шагов.
//
//	type: try_catch
//	try_steps: [...]
//	catch_steps: [...]     # запускаются с исходного входа
//	finally_steps: [...]   # запускаются всегда ровно один раз
//
// Ошибка в try_steps записывается в переменные error и error_type.
// Если catch_steps пуст, ошибка возвращается после выполнения finally_steps.
// Отмена запуска не перехватывается.
type TryCatchStep struct {
	base
	trySteps     []Step
	catchSteps   []Step
	finallySteps []Step
	mode         Mode
}

// NewTryCatchStep создаёт TryCatchStep, строя вложенные списки через реестр.
func NewTryCatchStep(def Definition, reg *Registry) (Step, error) {
	b, err := newBase(def, configTrySteps, configCatchSteps, configFinallySteps)
	if err != nil {
		return nil, err
	}
	s := &TryCatchStep{base: b}

	if _, ok := def[configTrySteps]; !ok {
		return nil, invalidField(s.stepType, configTrySteps, "is required")
	}

	lists := []struct {
		key  string
		dest *[]Step
	}{
		{configTrySteps, &s.trySteps},
		{configCatchSteps, &s.catchSteps},
		{configFinallySteps, &s.finallySteps},
	}
	for _, l := range lists {
		built, err := reg.BuildList(def[l.key])
		if err != nil {
			return nil, &ValidationError{StepType: s.stepType, Field: l.key, Message: err.Error(), Err: err}
		}
		*l.dest = built
	}

	s.mode = ListMode(s.trySteps, s.catchSteps, s.finallySteps)
	return s, nil
}

// Mode — suspending, если хотя бы один вложенный шаг suspending.
func (s *TryCatchStep) Mode() Mode {
	return s.mode
}

// Definition включает вложенные списки шагов.
func (s *TryCatchStep) Definition() Definition {
	def := s.base.Definition()
	def[configTrySteps] = Definitions(s.trySteps)
	def[configCatchSteps] = Definitions(s.catchSteps)
	def[configFinallySteps] = Definitions(s.finallySteps)
	return def
}

// Apply выполняет шаг, когда все вложенные шаги blocking.
func (s *TryCatchStep) Apply(rc *engine.Context, cfg map[string]any, input any) (any, error) {
	return s.Await(context.Background(), rc, cfg, input)
}

// Await выполняет try, при ошибке catch, затем finally.
func (s *TryCatchStep) Await(ctx context.Context, rc *engine.Context, _ map[string]any, input any) (any, error) {
	result, runErr := Run(ctx, rc, s.trySteps, input)

	if runErr != nil && !isCancellation(runErr) {
		kind := ErrorKind(runErr)
		rc.RecordError(runErr.Error(), kind)
		rc.Log().Error("error caught",
			"step_name", s.Name(),
			"error", runErr,
			"error_type", kind,
		)

		result = input
		if len(s.catchSteps) > 0 {
			result, runErr = Run(ctx, rc, s.catchSteps, input)
			if runErr != nil {
				result = input
			}
		}
	}

	// finally выполняется во всех ветках
	finalResult, finallyErr := Run(ctx, rc, s.finallySteps, result)
	if finallyErr != nil {
		return nil, finallyErr
	}
	if runErr != nil {
		return nil, runErr
	}
	return finalResult, nil
}
