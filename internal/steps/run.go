package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/shaiso/SpiderChef/internal/engine"
)

// Execute выполняет один шаг: подставляет переменные в копию конфигурации,
// затем вызывает Apply или Await в зависимости от режима шага.
func Execute(ctx context.Context, rc *engine.Context, step Step, input any) (any, error) {
	cfg, err := engine.SubstituteConfig(step.Config(), rc.Variables)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var out any

	switch step.Mode() {
	case ModeSuspending:
		s, ok := step.(Suspending)
		if !ok {
			return nil, fmt.Errorf("%w: %s declares suspending mode without Await", ErrInvalidConfig, step.Type())
		}
		out, err = s.Await(ctx, rc, cfg, input)
	default:
		b, ok := step.(Blocking)
		if !ok {
			return nil, fmt.Errorf("%w: %s declares blocking mode without Apply", ErrInvalidConfig, step.Type())
		}
		out, err = b.Apply(rc, cfg, input)
	}

	rc.ObserveStep(step.Type(), time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Run выполняет список шагов последовательно, передавая результат
// каждого шага следующему. Первая ошибка прерывает список.
func Run(ctx context.Context, rc *engine.Context, steps []Step, input any) (any, error) {
	value := input
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStepCancelled, err)
		}

		out, err := Execute(ctx, rc, step, value)
		if err != nil {
			return nil, err
		}
		value = out
	}
	return value, nil
}

// ListMode возвращает ModeSuspending, если хотя бы один шаг списка suspending.
func ListMode(lists ...[]Step) Mode {
	for _, steps := range lists {
		for _, s := range steps {
			if s.Mode() == ModeSuspending {
				return ModeSuspending
			}
		}
	}
	return ModeBlocking
}
