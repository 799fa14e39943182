package steps

import (
	"encoding/json"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/spf13/cast"

	"github.com/shaiso/SpiderChef/internal/engine"
)

// Типы шагов форматирования.
const (
	StepTypeJoinBaseURL      = "join_base_url"
	StepTypeToInt            = "to_int"
	StepTypeToFloat          = "to_float"
	StepTypeToStr            = "to_str"
	StepTypeFromJSON         = "from_json"
	StepTypeRemoveHTMLTags   = "remove_html_tags"
	StepTypeRemoveWhitespace = "remove_extra_whitespace"
	StepTypeRemoveCurrency   = "remove_currency_symbols"
	StepTypeToMoney          = "to_money"
)

// Ключи конфигурации шагов форматирования.
const (
	configBaseURL            = "base_url"
	configSuffix             = "suffix"
	configDecimalSeparator   = "decimal_separator"
	configThousandsSeparator = "thousands_separator"
)

var (
	whitespacePattern = regexp.MustCompile(`\s+`)

	// currencyPattern — всё, кроме цифр, разделителей и знака.
	currencyPattern = regexp.MustCompile(`[^\d.,\-]`)

	stripPolicy = bluemonday.StrictPolicy()
)

// transformFunc — преобразование входного значения.
type transformFunc func(rc *engine.Context, cfg map[string]any, input any) (any, error)

// TransformStep — blocking шаг, преобразующий входное значение одной функцией.
// Используется для всех шагов форматирования.
type TransformStep struct {
	base
	fn transformFunc
}

// Apply применяет преобразование.
func (s *TransformStep) Apply(rc *engine.Context, cfg map[string]any, input any) (any, error) {
	return s.fn(rc, cfg, input)
}

// transformFactory возвращает фабрику шага с заданным преобразованием.
// check проверяет конфигурацию при построении, может быть nil.
func transformFactory(fn transformFunc, check func(stepType string, cfg map[string]any) error) Factory {
	return func(def Definition, _ *Registry) (Step, error) {
		b, err := newBase(def)
		if err != nil {
			return nil, err
		}
		if check != nil {
			if err := validateNow(b.config, func(cfg map[string]any) error {
				return check(b.stepType, cfg)
			}); err != nil {
				return nil, err
			}
		}
		return &TransformStep{base: b, fn: fn}, nil
	}
}

// Фабрики шагов форматирования.
var (
	NewToIntStep            = transformFactory(toInt, nil)
	NewToFloatStep          = transformFactory(toFloat, nil)
	NewToStrStep            = transformFactory(toStr, nil)
	NewFromJSONStep         = transformFactory(fromJSON, nil)
	NewRemoveHTMLTagsStep   = transformFactory(stringTransform(removeHTMLTags), nil)
	NewRemoveWhitespaceStep = transformFactory(stringTransform(removeExtraWhitespace), nil)
	NewRemoveCurrencyStep   = transformFactory(stringTransform(removeCurrencySymbols), nil)
	NewJoinBaseURLStep      = transformFactory(joinBaseURL, checkJoinBaseURL)
	NewToMoneyStep          = transformFactory(toMoney, checkToMoney)
)

// toNumber разбирает число из входного значения.
func toNumber(input any) (float64, error) {
	if s, ok := input.(string); ok {
		input = strings.TrimSpace(s)
	}
	if input == nil {
		return 0, fmt.Errorf("%w: cannot convert absent value to number", engine.ErrMissingValue)
	}
	f, err := cast.ToFloat64E(input)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", engine.ErrConversion, err)
	}
	return f, nil
}

// toInt — целая часть числа.
func toInt(_ *engine.Context, _ map[string]any, input any) (any, error) {
	f, err := toNumber(input)
	if err != nil {
		return nil, err
	}
	return int(f), nil
}

func toFloat(_ *engine.Context, _ map[string]any, input any) (any, error) {
	return toNumber(input)
}

func toStr(_ *engine.Context, _ map[string]any, input any) (any, error) {
	if s, err := cast.ToStringE(input); err == nil {
		return s, nil
	}
	return engine.Stringify(input), nil
}

// fromJSON разбирает строку как JSON; остальные значения возвращаются как есть.
func fromJSON(_ *engine.Context, _ map[string]any, input any) (any, error) {
	s, ok := input.(string)
	if !ok {
		return input, nil
	}
	var value any
	if err := json.Unmarshal([]byte(s), &value); err != nil {
		return nil, fmt.Errorf("%w: from_json: %v", engine.ErrConversion, err)
	}
	return value, nil
}

// stringTransform применяет fn к строке или к каждой строке списка.
func stringTransform(fn func(string) string) transformFunc {
	return func(_ *engine.Context, _ map[string]any, input any) (any, error) {
		return mapStrings(input, fn)
	}
}

func mapStrings(input any, fn func(string) string) (any, error) {
	switch v := input.(type) {
	case string:
		return fn(v), nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			mapped, err := mapStrings(item, fn)
			if err != nil {
				return nil, err
			}
			out[i] = mapped
		}
		return out, nil
	case nil:
		return nil, fmt.Errorf("%w: expected string", engine.ErrMissingValue)
	default:
		return nil, fmt.Errorf("%w: expected string, got %T", ErrInvalidInput, input)
	}
}

func removeHTMLTags(s string) string {
	return html.UnescapeString(stripPolicy.Sanitize(s))
}

func removeExtraWhitespace(s string) string {
	return whitespacePattern.ReplaceAllString(s, " ")
}

func removeCurrencySymbols(s string) string {
	return currencyPattern.ReplaceAllString(s, "")
}

// joinBaseURL разрешает path+значение+suffix относительно базового адреса.
//
//	type: join_base_url
//	base_url: https://cdn.example.com   # по умолчанию base_url рецепта
//	path: /images/
//	suffix: .jpg
func joinBaseURL(rc *engine.Context, cfg map[string]any, input any) (any, error) {
	r := newFieldReader(StepTypeJoinBaseURL, cfg)
	baseURL := r.String(configBaseURL, "")
	prefix := r.String(configPath, "")
	suffix := r.String(configSuffix, "")
	if err := r.Err(); err != nil {
		return nil, err
	}
	if baseURL == "" {
		baseURL = rc.BaseURL
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, invalidField(StepTypeJoinBaseURL, configBaseURL, err.Error())
	}

	join := func(v any) (string, error) {
		ref, err := url.Parse(prefix + engine.Stringify(v) + suffix)
		if err != nil {
			return "", fmt.Errorf("%w: join_base_url: %v", ErrInvalidInput, err)
		}
		return base.ResolveReference(ref).String(), nil
	}

	if list, ok := input.([]any); ok {
		out := make([]any, len(list))
		for i, item := range list {
			joined, err := join(item)
			if err != nil {
				return nil, err
			}
			out[i] = joined
		}
		return out, nil
	}
	return join(input)
}

func checkJoinBaseURL(stepType string, cfg map[string]any) error {
	r := newFieldReader(stepType, cfg)
	baseURL := r.String(configBaseURL, "")
	r.String(configPath, "")
	r.String(configSuffix, "")
	if err := r.Err(); err != nil {
		return err
	}
	if _, err := url.Parse(baseURL); err != nil {
		return invalidField(stepType, configBaseURL, err.Error())
	}
	return nil
}

// toMoney разбирает денежную сумму с учётом разделителей.
//
//	type: to_money
//	decimal_separator: ","    # по умолчанию
//	thousands_separator: "."  # по умолчанию
//
// Примеры: "1.407,99 €" → 1407.99; с разделителями "." и ",": "$1,407.99" → 1407.99.
// Нераспознанное значение даёт nil и предупреждение в лог.
func toMoney(rc *engine.Context, cfg map[string]any, input any) (any, error) {
	if input == nil {
		return nil, nil
	}

	r := newFieldReader(StepTypeToMoney, cfg)
	decimal := r.String(configDecimalSeparator, ",")
	thousands := r.String(configThousandsSeparator, ".")
	if err := r.Err(); err != nil {
		return nil, err
	}

	value := removeCurrencySymbols(strings.TrimSpace(engine.Stringify(input)))

	switch {
	case decimal == "." && thousands == ",":
		value = strings.ReplaceAll(value, thousands, "")
	case decimal == "," && thousands == ".":
		value = strings.ReplaceAll(value, thousands, "")
		value = strings.ReplaceAll(value, decimal, ".")
	case decimal == "." && !strings.Contains(value, ","):
		// одна точка и не больше двух знаков после неё — дробная часть
		parts := strings.Split(value, ".")
		if !(len(parts) == 2 && len(parts[1]) <= 2) {
			value = strings.ReplaceAll(value, ".", "")
		}
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		rc.Log().Warn("could not convert value to money", "value", engine.Stringify(input))
		return nil, nil
	}
	return f, nil
}

func checkToMoney(stepType string, cfg map[string]any) error {
	r := newFieldReader(stepType, cfg)
	r.String(configDecimalSeparator, ",")
	r.String(configThousandsSeparator, ".")
	return r.Err()
}
