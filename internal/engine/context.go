package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/shaiso/SpiderChef/internal/query"
	"github.com/shaiso/SpiderChef/internal/transport"
)

// Зарезервированные имена переменных.
const (
	// VarBaseURL — базовый адрес рецепта, доступен как ${base_url}.
	VarBaseURL = "base_url"

	// VarError — сообщение последней ошибки, пойманной try_catch.
	VarError = "error"

	// VarErrorType — вид последней ошибки, пойманной try_catch.
	VarErrorType = "error_type"
)

// SessionSource выдаёт сетевую сессию рецепта.
//
// Сессией владеет рецепт: шаги её только запрашивают,
// но никогда не создают и не закрывают.
type SessionSource interface {
	Session(ctx context.Context) (transport.Session, error)
}

// Observer получает события выполнения шагов (метрики).
type Observer interface {
	ObserveStep(stepType string, duration time.Duration, err error)
	ObserveResponse(statusCode int)
}

// Context — изменяемое состояние одного запуска рецепта.
//
// Общий для всех шагов, включая вложенные списки try_catch и extract_items.
// Передаётся по указателю и никогда не копируется.
// Блокировок нет: шаги выполняются строго последовательно.
type Context struct {
	// Variables — переменные запуска для подстановки ${name}.
	Variables map[string]any

	// BaseURL — адрес, относительно которого разрешаются пути.
	BaseURL string

	// Logger — логгер запуска.
	Logger *slog.Logger

	// Observer — получатель метрик, может быть nil.
	Observer Observer

	text    string
	hasText bool
	json    any
	tree    *query.Document

	sessions SessionSource
}

// NewContext создаёт контекст запуска.
// Переменные seed копируются, базовый адрес кладётся под ключ base_url.
func NewContext(baseURL string, seed map[string]any) *Context {
	vars := make(map[string]any, len(seed)+1)
	for k, v := range seed {
		vars[k] = v
	}
	vars[VarBaseURL] = baseURL

	return &Context{
		Variables: vars,
		BaseURL:   baseURL,
		Logger:    slog.Default(),
	}
}

// WithSessions связывает контекст с источником сетевой сессии.
func (c *Context) WithSessions(src SessionSource) *Context {
	c.sessions = src
	return c
}

// Session возвращает сетевую сессию рецепта.
func (c *Context) Session(ctx context.Context) (transport.Session, error) {
	if c.sessions == nil {
		return nil, ErrNoSession
	}
	return c.sessions.Session(ctx)
}

// Text возвращает последний полученный текст ответа.
func (c *Context) Text() (string, bool) {
	return c.text, c.hasText
}

// SetText сохраняет текст ответа и сбрасывает разобранное дерево.
func (c *Context) SetText(text string) {
	c.text = text
	c.hasText = true
	c.tree = nil
}

// JSON возвращает последний разобранный JSON ответа.
func (c *Context) JSON() any {
	return c.json
}

// SetJSON сохраняет разобранный JSON ответа.
func (c *Context) SetJSON(value any) {
	c.json = value
}

// Tree возвращает разобранный документ последнего текста ответа.
// Документ кэшируется до следующего SetText или явного rebuild.
func (c *Context) Tree(rebuild bool) (*query.Document, error) {
	if c.tree != nil && !rebuild {
		return c.tree, nil
	}
	if !c.hasText {
		return nil, ErrMissingValue
	}

	doc, err := query.Parse(c.text)
	if err != nil {
		return nil, err
	}
	c.tree = doc
	return doc, nil
}

// RecordError сохраняет сообщение и вид ошибки в переменные,
// перезаписывая предыдущие значения.
func (c *Context) RecordError(message, kind string) {
	c.Variables[VarError] = message
	c.Variables[VarErrorType] = kind
}

// Log возвращает логгер запуска.
func (c *Context) Log() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// ObserveStep передаёт событие шага наблюдателю, если он задан.
func (c *Context) ObserveStep(stepType string, duration time.Duration, err error) {
	if c.Observer != nil {
		c.Observer.ObserveStep(stepType, duration, err)
	}
}

// ObserveResponse передаёт код ответа наблюдателю, если он задан.
func (c *Context) ObserveResponse(statusCode int) {
	if c.Observer != nil {
		c.Observer.ObserveResponse(statusCode)
	}
}
