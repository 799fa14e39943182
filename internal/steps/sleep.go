package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/shaiso/SpiderChef/internal/engine"
)

const (
	// StepTypeSleep — тип шага задержки.
	StepTypeSleep = "sleep"

	defaultSleep = 3 * time.Second
)

// SleepStep — шаг задержки.
//
// Приостанавливает выполнение и возвращает входное значение без изменений.
// Поддерживает отмену через context.
//
// Конфигурация:
//
//	type: sleep
//	timeout: 1.5   # секунды, по умолчанию 3
type SleepStep struct {
	base
}

// NewSleepStep создаёт SleepStep.
func NewSleepStep(def Definition, _ *Registry) (Step, error) {
	b, err := newBase(def)
	if err != nil {
		return nil, err
	}
	s := &SleepStep{base: b}

	if err := validateNow(b.config, func(cfg map[string]any) error {
		_, err := s.parseDuration(cfg)
		return err
	}); err != nil {
		return nil, err
	}
	return s, nil
}

// Mode — sleep ожидает таймер.
func (s *SleepStep) Mode() Mode {
	return ModeSuspending
}

// Await выполняет задержку.
func (s *SleepStep) Await(ctx context.Context, _ *engine.Context, cfg map[string]any, input any) (any, error) {
	duration, err := s.parseDuration(cfg)
	if err != nil {
		return nil, err
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrStepCancelled, ctx.Err())
	case <-timer.C:
		return input, nil
	}
}

// parseDuration извлекает длительность из конфигурации.
func (s *SleepStep) parseDuration(cfg map[string]any) (time.Duration, error) {
	r := newFieldReader(s.stepType, cfg)
	sec := r.Float(configTimeout, defaultSleep.Seconds())
	if err := r.Err(); err != nil {
		return 0, err
	}
	if sec < 0 {
		return 0, invalidField(s.stepType, configTimeout, "must not be negative")
	}
	return time.Duration(sec * float64(time.Second)), nil
}
