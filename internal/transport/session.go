package transport

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// Ошибки транспорта.
var (
	// ErrRequest — запрос не удалось выполнить (сеть, таймаут, DNS).
	ErrRequest = errors.New("http request failed")

	// ErrBadStatus — код ответа не входит в список допустимых.
	ErrBadStatus = errors.New("response status is not ok")

	// ErrInvalidConfig — невалидная конфигурация сессии.
	ErrInvalidConfig = errors.New("invalid session config")

	// ErrSessionClosed — сессия уже закрыта.
	ErrSessionClosed = errors.New("session closed")
)

// StatusError — ответ с недопустимым кодом статуса.
type StatusError struct {
	StatusCode int
}

// Error реализует интерфейс error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("response status %d is not ok", e.StatusCode)
}

// Unwrap возвращает базовую ошибку.
func (e *StatusError) Unwrap() error {
	return ErrBadStatus
}

// Версии HTTP протокола.
const (
	HTTPVersion10 = "1"
	HTTPVersion11 = "1.1"
	HTTPVersion2  = "2"
	HTTPVersion3  = "3"
)

// Session — сетевая сессия одного запуска рецепта.
type Session interface {
	// Do выполняет запрос и возвращает ответ с любым кодом статуса.
	Do(ctx context.Context, req *Request) (*Response, error)

	// Close освобождает ресурсы сессии.
	Close() error
}

// Request — параметры одного запроса.
type Request struct {
	Method  string
	Path    string
	Params  map[string]any
	Headers map[string]string

	// Form — тело application/x-www-form-urlencoded.
	Form map[string]string

	// Body — сырое тело запроса.
	Body string

	// JSON — тело, сериализуемое в application/json.
	JSON any

	Timeout time.Duration
}

// Response — ответ сервера.
type Response struct {
	StatusCode int
	Header     http.Header
	Text       string
}

// JSON разбирает текст ответа как JSON.
func (r *Response) JSON() (any, error) {
	var value any
	if err := json.Unmarshal([]byte(r.Text), &value); err != nil {
		return nil, fmt.Errorf("decode json response: %w", err)
	}
	return value, nil
}

// Config — настройки сессии, объявленные в рецепте.
type Config struct {
	BaseURL         string
	HTTPVersion     string
	Impersonate     string
	DefaultEncoding string
	Headers         map[string]string

	// RateLimit — максимум запросов в секунду, 0 — без ограничения.
	RateLimit float64

	Logger *slog.Logger
}

// Validate проверяет конфигурацию сессии.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base_url is required", ErrInvalidConfig)
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("%w: base_url: %v", ErrInvalidConfig, err)
	}

	switch c.HTTPVersion {
	case "", HTTPVersion10, HTTPVersion11, HTTPVersion2, HTTPVersion3:
	default:
		return fmt.Errorf("%w: unknown http_version %q", ErrInvalidConfig, c.HTTPVersion)
	}

	if c.Impersonate != "" && !HasProfile(c.Impersonate) {
		return fmt.Errorf("%w: unknown impersonate profile %q (known: %s)",
			ErrInvalidConfig, c.Impersonate, strings.Join(Profiles(), ", "))
	}

	if c.RateLimit < 0 {
		return fmt.Errorf("%w: rate_limit must not be negative", ErrInvalidConfig)
	}

	return nil
}

// RestySession — Session на основе resty.Client.
type RestySession struct {
	client   *resty.Client
	limiter  *rate.Limiter
	encoding string

	mu     sync.Mutex
	closed bool
}

// NewSession создаёт сессию по конфигурации рецепта.
func NewSession(cfg Config) (*RestySession, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTransport(buildTransport(cfg.HTTPVersion, logger))

	profile := cfg.Impersonate
	if profile == "" {
		profile = DefaultProfile
	}
	client.SetHeaders(ProfileHeaders(profile))
	client.SetHeaders(cfg.Headers)

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return &RestySession{
		client:   client,
		limiter:  limiter,
		encoding: cfg.DefaultEncoding,
	}, nil
}

// buildTransport настраивает http.Transport под версию протокола.
func buildTransport(version string, logger *slog.Logger) *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	switch version {
	case HTTPVersion10, HTTPVersion11:
		// Пустая TLSNextProto отключает HTTP/2
		transport.ForceAttemptHTTP2 = false
		transport.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
	case HTTPVersion3:
		logger.Warn("http_version 3 is not supported, falling back to HTTP/2")
		transport.ForceAttemptHTTP2 = true
	default:
		transport.ForceAttemptHTTP2 = true
	}

	return transport
}

// Do выполняет запрос.
func (s *RestySession) Do(ctx context.Context, req *Request) (*Response, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrSessionClosed
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %w", ErrRequest, err)
		}
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	r := s.client.R().SetContext(ctx).SetHeaders(req.Headers)
	if len(req.Params) > 0 {
		r.SetQueryParamsFromValues(EncodeParams(req.Params))
	}

	switch {
	case req.Form != nil:
		r.SetFormData(req.Form)
	case req.Body != "":
		r.SetBody(req.Body)
	case req.JSON != nil:
		r.SetHeader("Content-Type", "application/json").SetBody(req.JSON)
	}

	resp, err := r.Execute(method, req.Path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s %s: %w", ErrRequest, method, req.Path, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %s %s: %v", ErrRequest, method, req.Path, err)
	}

	text := DecodeBody(resp.Body(), resp.Header().Get("Content-Type"), s.encoding)

	return &Response{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Text:       text,
	}, nil
}

// Close закрывает простаивающие соединения. Повторный вызов ничего не делает.
func (s *RestySession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.client.GetClient().CloseIdleConnections()
	return nil
}

// EncodeParams преобразует параметры запроса в url.Values.
// Списки раскрываются в повторяющиеся ключи.
func EncodeParams(params map[string]any) url.Values {
	values := make(url.Values, len(params))

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		switch v := params[key].(type) {
		case []any:
			for _, item := range v {
				values.Add(key, paramString(item))
			}
		case []string:
			for _, item := range v {
				values.Add(key, item)
			}
		case nil:
		default:
			values.Set(key, paramString(v))
		}
	}
	return values
}

// paramString возвращает строковое значение параметра.
func paramString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprint(t)
	}
}
