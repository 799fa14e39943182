package recipe

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cast"
	"golang.org/x/mod/semver"

	"github.com/shaiso/SpiderChef/internal/engine"
	"github.com/shaiso/SpiderChef/internal/steps"
	"github.com/shaiso/SpiderChef/internal/transport"
)

// Значения по умолчанию.
const (
	DefaultName        = "test_recipe"
	DefaultVersion     = "1.0.0"
	DefaultHTTPVersion = transport.HTTPVersion2
	DefaultEncoding    = "utf-8"
)

// Ключи документа рецепта.
const (
	keyName            = "name"
	keyVersion         = "version"
	keyBaseURL         = "base_url"
	keyHTTPVersion     = "http_version"
	keyImpersonate     = "impersonate"
	keyDefaultEncoding = "default_encoding"
	keyHeaders         = "headers"
	keyProxies         = "proxies"
	keyVariables       = "variables"
	keyRateLimit       = "rate_limit"
	keySteps           = "steps"
)

// Proxy — прокси, объявленный в рецепте.
// Пока не применяется к запросам.
type Proxy struct {
	URL      string `yaml:"proxy_url,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// Recipe — именованный конвейер шагов с сетевыми настройками.
type Recipe struct {
	Name    string
	Version string
	BaseURL string

	// HTTPVersion — "1", "1.1", "2" или "3".
	HTTPVersion string

	// Impersonate — профиль заголовков браузера.
	Impersonate string

	// DefaultEncoding — кодировка ответов без charset, "auto" для определения.
	DefaultEncoding string

	Headers map[string]string
	Proxies []Proxy

	// Variables — начальные переменные запуска.
	Variables map[string]any

	// RateLimit — максимум запросов в секунду, 0 — без ограничения.
	RateLimit float64

	Steps []steps.Step

	registry   *steps.Registry
	newSession SessionFactory
	logger     *slog.Logger
	observer   engine.Observer
}

// Option настраивает Recipe.
type Option func(*Recipe)

// WithRegistry задаёт реестр типов шагов.
func WithRegistry(reg *steps.Registry) Option {
	return func(r *Recipe) { r.registry = reg }
}

// WithSessionFactory подменяет создание сетевой сессии.
func WithSessionFactory(f SessionFactory) Option {
	return func(r *Recipe) { r.newSession = f }
}

// WithLogger задаёт логгер.
func WithLogger(l *slog.Logger) Option {
	return func(r *Recipe) { r.logger = l }
}

// WithObserver задаёт получателя метрик шагов.
func WithObserver(o engine.Observer) Option {
	return func(r *Recipe) { r.observer = o }
}

// New строит рецепт из декодированного документа.
//
// Шаги строятся через реестр сразу: неизвестный тип или невалидное поле
// приводят к ошибке до начала выполнения.
func New(doc map[string]any, opts ...Option) (*Recipe, error) {
	r := &Recipe{
		Name:            DefaultName,
		Version:         DefaultVersion,
		HTTPVersion:     DefaultHTTPVersion,
		Impersonate:     transport.DefaultProfile,
		DefaultEncoding: DefaultEncoding,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.applyDefaults()

	if err := r.decode(doc); err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}

	built, err := r.registry.BuildList(doc[keySteps])
	if err != nil {
		return nil, fmt.Errorf("%w: steps: %w", ErrInvalidRecipe, err)
	}
	r.Steps = built
	return r, nil
}

func (r *Recipe) applyDefaults() {
	if r.registry == nil {
		r.registry = steps.DefaultRegistry()
	}
	if r.newSession == nil {
		r.newSession = defaultSessionFactory
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
}

// decode переносит поля документа в рецепт. Неизвестные ключи игнорируются.
func (r *Recipe) decode(doc map[string]any) error {
	var err error
	str := func(key string, dst *string) {
		v, ok := doc[key]
		if !ok || v == nil || err != nil {
			return
		}
		s, cerr := cast.ToStringE(v)
		if cerr != nil {
			err = fmt.Errorf("%w: %s: %v", ErrInvalidRecipe, key, cerr)
			return
		}
		*dst = s
	}

	str(keyName, &r.Name)
	str(keyVersion, &r.Version)
	str(keyBaseURL, &r.BaseURL)
	str(keyHTTPVersion, &r.HTTPVersion)
	str(keyImpersonate, &r.Impersonate)
	str(keyDefaultEncoding, &r.DefaultEncoding)
	if err != nil {
		return err
	}

	if v, ok := doc[keyHeaders]; ok && v != nil {
		headers, cerr := cast.ToStringMapStringE(plainMap(v))
		if cerr != nil {
			return fmt.Errorf("%w: headers: %v", ErrInvalidRecipe, cerr)
		}
		r.Headers = headers
	}

	if v, ok := doc[keyVariables]; ok && v != nil {
		vars, cerr := cast.ToStringMapE(plainMap(v))
		if cerr != nil {
			return fmt.Errorf("%w: variables: %v", ErrInvalidRecipe, cerr)
		}
		r.Variables = vars
	}

	if v, ok := doc[keyRateLimit]; ok && v != nil {
		limit, cerr := cast.ToFloat64E(v)
		if cerr != nil {
			return fmt.Errorf("%w: rate_limit: %v", ErrInvalidRecipe, cerr)
		}
		r.RateLimit = limit
	}

	if v, ok := doc[keyProxies]; ok && v != nil {
		proxies, perr := decodeProxies(v)
		if perr != nil {
			return perr
		}
		r.Proxies = proxies
	}
	return nil
}

func decodeProxies(raw any) ([]Proxy, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: proxies: expected list, got %T", ErrInvalidRecipe, raw)
	}

	proxies := make([]Proxy, 0, len(list))
	for i, item := range list {
		m, err := cast.ToStringMapStringE(plainMap(item))
		if err != nil {
			return nil, fmt.Errorf("%w: proxies[%d]: %v", ErrInvalidRecipe, i, err)
		}
		proxies = append(proxies, Proxy{
			URL:      m["proxy_url"],
			Username: m["username"],
			Password: m["password"],
		})
	}
	return proxies, nil
}

// Validate проверяет поля рецепта кроме шагов.
func (r *Recipe) Validate() error {
	if !semver.IsValid("v" + r.Version) {
		return fmt.Errorf("%w: version %q is not a semantic version", ErrInvalidRecipe, r.Version)
	}
	if err := r.SessionConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecipe, err)
	}
	return nil
}

// SessionConfig возвращает настройки сетевой сессии рецепта.
func (r *Recipe) SessionConfig() transport.Config {
	return transport.Config{
		BaseURL:         r.BaseURL,
		HTTPVersion:     r.HTTPVersion,
		Impersonate:     r.Impersonate,
		DefaultEncoding: r.DefaultEncoding,
		Headers:         r.Headers,
		RateLimit:       r.RateLimit,
		Logger:          r.logger,
	}
}

// Registry возвращает реестр, по которому построены шаги.
func (r *Recipe) Registry() *steps.Registry {
	return r.registry
}

// Cook выполняет шаги по порядку, передавая результат каждого следующему.
//
// Возвращает результат последнего шага или первую непойманную ошибку
// в виде *StepError. Частичного результата нет.
func (r *Recipe) Cook(ctx context.Context) (any, error) {
	logger := r.logger.With("recipe", r.Name)

	sessions := &lazySession{cfg: r.SessionConfig(), factory: r.newSession}
	defer func() {
		if err := sessions.Close(); err != nil {
			logger.Warn("close session failed", "error", err)
		}
	}()

	rc := engine.NewContext(r.BaseURL, r.Variables).WithSessions(sessions)
	rc.Logger = logger
	rc.Observer = r.observer

	if len(r.Proxies) > 0 {
		logger.Warn("proxies are declared but not applied to requests", "count", len(r.Proxies))
	}

	start := time.Now()
	logger.Info("cooking recipe", "version", r.Version, "steps", len(r.Steps))

	var output any
	for i, step := range r.Steps {
		number := i + 1
		if err := ctx.Err(); err != nil {
			return nil, &StepError{Number: number, Type: step.Type(), Name: step.Name(),
				Err: fmt.Errorf("%w: %w", steps.ErrStepCancelled, err)}
		}

		logger.Info("running step",
			"step_number", number,
			"step_type", step.Type(),
			"step_name", step.Name(),
		)

		result, err := steps.Execute(ctx, rc, step, output)
		if err != nil {
			logger.Error("step failed",
				"step_number", number,
				"step_type", step.Type(),
				"error", err,
			)
			return nil, &StepError{Number: number, Type: step.Type(), Name: step.Name(), Err: err}
		}
		output = result
	}

	logger.Info("recipe finished", "duration", time.Since(start), "network", sessions.Opened())
	return output, nil
}
