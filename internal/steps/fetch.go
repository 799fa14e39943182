package steps

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/shaiso/SpiderChef/internal/engine"
	"github.com/shaiso/SpiderChef/internal/transport"
)

const (
	// StepTypeFetch — тип шага HTTP запроса.
	StepTypeFetch = "fetch"

	// Значения по умолчанию.
	defaultFetchTimeout = 5 * time.Second
)

// Ключи конфигурации fetch.
const (
	configMethod        = "method"
	configPath          = "path"
	configParams        = "params"
	configHeaders       = "headers"
	configData          = "data"
	configJSONData      = "json_data"
	configOKStatusCodes = "ok_status_codes"
	configTimeout       = "timeout"
	configReturnType    = "return_type"
	configAssignToBase  = "assign_to_base"
)

// Значения return_type для fetch.
const (
	returnText     = "text"
	returnJSON     = "json"
	returnResponse = "response"
)

// FetchStep — шаг HTTP запроса через сессию рецепта.
//
// Конфигурация:
//
//	type: fetch
//	method: POST              # GET (по умолчанию) или POST
//	path: /search             # относительно base_url рецепта
//	params: {q: "${query}"}   # списки раскрываются в повторяющиеся ключи
//	headers: {X-Token: abc}
//	data: {field: value}      # mapping — форма, строка — сырое тело
//	json_data: {key: value}   # тело POST, если data не задано
//	ok_status_codes: [200]
//	timeout: 5                # секунды
//	return_type: text         # text, json или response
//	assign_to_base: true      # сохранить ответ в контекст рецепта
//
// Код ответа вне ok_status_codes — ошибка *transport.StatusError.
type FetchStep struct {
	base
}

type fetchOptions struct {
	method       string
	path         string
	params       map[string]any
	headers      map[string]string
	form         map[string]string
	body         string
	jsonData     map[string]any
	okCodes      []int
	timeout      time.Duration
	returnType   string
	assignToBase bool
}

// NewFetchStep создаёт FetchStep.
func NewFetchStep(def Definition, _ *Registry) (Step, error) {
	b, err := newBase(def)
	if err != nil {
		return nil, err
	}
	s := &FetchStep{base: b}

	if err := validateNow(b.config, func(cfg map[string]any) error {
		_, err := s.parse(cfg)
		return err
	}); err != nil {
		return nil, err
	}
	return s, nil
}

// Mode — fetch ожидает сеть.
func (s *FetchStep) Mode() Mode {
	return ModeSuspending
}

func (s *FetchStep) parse(cfg map[string]any) (fetchOptions, error) {
	r := newFieldReader(s.stepType, cfg)

	opts := fetchOptions{
		method:       strings.ToUpper(r.String(configMethod, http.MethodGet)),
		path:         r.String(configPath, ""),
		params:       r.Map(configParams),
		headers:      r.StringMap(configHeaders),
		jsonData:     r.Map(configJSONData),
		okCodes:      r.IntList(configOKStatusCodes, []int{http.StatusOK}),
		returnType:   r.OneOf(configReturnType, returnText, returnText, returnJSON, returnResponse),
		assignToBase: r.Bool(configAssignToBase, true),
	}

	timeout := r.Float(configTimeout, defaultFetchTimeout.Seconds())
	opts.timeout = time.Duration(timeout * float64(time.Second))

	switch data := cfg[configData].(type) {
	case nil:
	case string:
		opts.body = data
	default:
		opts.form = r.StringMap(configData)
	}

	if err := r.Err(); err != nil {
		return fetchOptions{}, err
	}

	if opts.method != http.MethodGet && opts.method != http.MethodPost {
		return fetchOptions{}, invalidField(s.stepType, configMethod,
			fmt.Sprintf("must be GET or POST, got %q", opts.method))
	}
	if timeout <= 0 {
		return fetchOptions{}, invalidField(s.stepType, configTimeout, "must be positive")
	}
	if len(opts.okCodes) == 0 {
		opts.okCodes = []int{http.StatusOK}
	}
	return opts, nil
}

// Await выполняет запрос.
func (s *FetchStep) Await(ctx context.Context, rc *engine.Context, cfg map[string]any, input any) (any, error) {
	opts, err := s.parse(cfg)
	if err != nil {
		return nil, err
	}

	session, err := rc.Session(ctx)
	if err != nil {
		return nil, err
	}

	req := &transport.Request{
		Method:  opts.method,
		Path:    opts.path,
		Params:  opts.params,
		Headers: opts.headers,
		Timeout: opts.timeout,
	}
	if opts.method == http.MethodPost {
		switch {
		case len(opts.form) > 0:
			req.Form = opts.form
		case opts.body != "":
			req.Body = opts.body
		case opts.jsonData != nil:
			req.JSON = opts.jsonData
		default:
			req.JSON = map[string]any{}
		}
	}

	rc.Log().Debug("fetching",
		"method", opts.method,
		"path", opts.path,
	)

	resp, err := session.Do(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrStepCancelled, ctx.Err())
		}
		return nil, err
	}
	rc.ObserveResponse(resp.StatusCode)

	if !slices.Contains(opts.okCodes, resp.StatusCode) {
		return nil, &transport.StatusError{StatusCode: resp.StatusCode}
	}

	if opts.assignToBase {
		rc.SetText(resp.Text)
	}

	switch opts.returnType {
	case returnJSON:
		value, err := resp.JSON()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", engine.ErrConversion, err)
		}
		if opts.assignToBase {
			rc.SetJSON(value)
		}
		return value, nil
	case returnResponse:
		return responseValue(resp), nil
	default:
		return resp.Text, nil
	}
}

// responseValue представляет ответ как mapping {status_code, headers, text}.
func responseValue(resp *transport.Response) map[string]any {
	headers := make(map[string]any, len(resp.Header))
	for key, values := range resp.Header {
		headers[key] = strings.Join(values, ", ")
	}
	return map[string]any{
		"status_code": resp.StatusCode,
		"headers":     headers,
		"text":        resp.Text,
	}
}
