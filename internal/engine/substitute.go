package engine

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// placeholderPattern — токен вида ${name}.
var placeholderPattern = regexp.MustCompile(`\$\{([^}]*)\}`)

// HasPlaceholders проверяет, содержит ли значение хотя бы одну строку с "${".
// Рекурсивно обходит map, упорядоченные map и slice.
func HasPlaceholders(value any) bool {
	switch v := value.(type) {
	case string:
		return strings.Contains(v, "${")
	case *orderedmap.OrderedMap[string, any]:
		for pair := v.Oldest(); pair != nil; pair = pair.Next() {
			if HasPlaceholders(pair.Value) {
				return true
			}
		}
	case map[string]any:
		for _, val := range v {
			if HasPlaceholders(val) {
				return true
			}
		}
	case []any:
		for _, val := range v {
			if HasPlaceholders(val) {
				return true
			}
		}
	case map[string]string:
		for _, val := range v {
			if strings.Contains(val, "${") {
				return true
			}
		}
	case []string:
		for _, val := range v {
			if strings.Contains(val, "${") {
				return true
			}
		}
	}
	return false
}

// Substitute заменяет все ${name} в строке на строковое представление
// переменной из vars.
//
// Подстановка текстовая и однопроходная: значение переменной повторно
// не сканируется. Если для токена нет переменной, возвращается
// *UnresolvedVariableError с первым таким токеном.
func Substitute(s string, vars map[string]any) (string, error) {
	if !strings.Contains(s, "${") {
		return s, nil
	}

	var unresolved *UnresolvedVariableError
	result := placeholderPattern.ReplaceAllStringFunc(s, func(token string) string {
		name := token[2 : len(token)-1]
		value, ok := vars[name]
		if !ok {
			if unresolved == nil {
				unresolved = &UnresolvedVariableError{Token: token, Name: name}
			}
			return token
		}
		return Stringify(value)
	})

	if unresolved != nil {
		return "", unresolved
	}
	return result, nil
}

// SubstituteValue подставляет переменные в произвольное значение.
// Рекурсивно обрабатывает map, упорядоченные map (порядок ключей сохраняется)
// и slice, остальные типы возвращает как есть.
func SubstituteValue(value any, vars map[string]any) (any, error) {
	if value == nil {
		return nil, nil
	}

	switch v := value.(type) {
	case string:
		return Substitute(v, vars)

	case *orderedmap.OrderedMap[string, any]:
		if v == nil {
			return v, nil
		}
		result := orderedmap.New[string, any]()
		for pair := v.Oldest(); pair != nil; pair = pair.Next() {
			rendered, err := SubstituteValue(pair.Value, vars)
			if err != nil {
				return nil, err
			}
			result.Set(pair.Key, rendered)
		}
		return result, nil

	case map[string]any:
		result := make(map[string]any, len(v))
		for key, val := range v {
			rendered, err := SubstituteValue(val, vars)
			if err != nil {
				return nil, err
			}
			result[key] = rendered
		}
		return result, nil

	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			rendered, err := SubstituteValue(val, vars)
			if err != nil {
				return nil, err
			}
			result[i] = rendered
		}
		return result, nil

	case map[string]string:
		result := make(map[string]string, len(v))
		for key, val := range v {
			rendered, err := Substitute(val, vars)
			if err != nil {
				return nil, err
			}
			result[key] = rendered
		}
		return result, nil

	case []string:
		result := make([]string, len(v))
		for i, val := range v {
			rendered, err := Substitute(val, vars)
			if err != nil {
				return nil, err
			}
			result[i] = rendered
		}
		return result, nil

	default:
		return value, nil
	}
}

// SubstituteConfig подставляет переменные в конфигурацию шага.
// Исходная map не изменяется: каждый вызов получает свежую копию,
// поэтому шаг можно выполнять повторно с другими переменными.
func SubstituteConfig(config map[string]any, vars map[string]any) (map[string]any, error) {
	if config == nil {
		return make(map[string]any), nil
	}

	result := make(map[string]any, len(config))
	for key, val := range config {
		if !HasPlaceholders(val) {
			result[key] = val
			continue
		}
		rendered, err := SubstituteValue(val, vars)
		if err != nil {
			return nil, err
		}
		result[key] = rendered
	}
	return result, nil
}

// Stringify возвращает строковое представление значения для подстановки.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case fmt.Stringer:
		return v.String()
	case []any, map[string]any, json.Marshaler:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	default:
		return fmt.Sprint(v)
	}
}
