package steps

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shaiso/SpiderChef/internal/engine"
	"github.com/shaiso/SpiderChef/internal/transport"
)

// literalStep возвращает значение поля value.
type literalStep struct{ base }

func (s *literalStep) Apply(_ *engine.Context, cfg map[string]any, _ any) (any, error) {
	return cfg["value"], nil
}

// failStep всегда возвращает ошибку с текстом message.
type failStep struct{ base }

func (s *failStep) Apply(_ *engine.Context, cfg map[string]any, _ any) (any, error) {
	msg, _ := cfg["message"].(string)
	return nil, errors.New(msg)
}

// captureErrorStep возвращает записанное сообщение ошибки.
type captureErrorStep struct{ base }

func (s *captureErrorStep) Apply(rc *engine.Context, _ map[string]any, _ any) (any, error) {
	return rc.Variables[engine.VarError], nil
}

// countingStep считает вызовы и возвращает вход.
type countingStep struct {
	base
	calls *int
}

func (s *countingStep) Apply(_ *engine.Context, _ map[string]any, input any) (any, error) {
	*s.calls++
	return input, nil
}

func simpleFactory(wrap func(base) Step) Factory {
	return func(def Definition, _ *Registry) (Step, error) {
		b, err := newBase(def)
		if err != nil {
			return nil, err
		}
		return wrap(b), nil
	}
}

// testRegistry — стандартный реестр и тестовые шаги literal, fail, capture_error, count.
func testRegistry(calls *int) *Registry {
	reg := DefaultRegistry()
	reg.Register("literal", simpleFactory(func(b base) Step { return &literalStep{b} }))
	reg.Register("fail", simpleFactory(func(b base) Step { return &failStep{b} }))
	reg.Register("capture_error", simpleFactory(func(b base) Step { return &captureErrorStep{b} }))
	reg.Register("count", simpleFactory(func(b base) Step { return &countingStep{base: b, calls: calls} }))
	return reg
}

func build(t *testing.T, reg *Registry, def Definition) Step {
	t.Helper()
	step, err := reg.Build(def)
	require.NoError(t, err)
	return step
}

func newTestContext() *engine.Context {
	return engine.NewContext("https://example.com", nil)
}

// staticSessions выдаёт одну и ту же сессию.
type staticSessions struct {
	session transport.Session
}

func (s staticSessions) Session(context.Context) (transport.Session, error) {
	return s.session, nil
}

func run(t *testing.T, rc *engine.Context, step Step, input any) any {
	t.Helper()
	out, err := Execute(context.Background(), rc, step, input)
	require.NoError(t, err)
	return out
}
