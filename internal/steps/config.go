package steps

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cast"

	"github.com/shaiso/SpiderChef/internal/engine"
)

// fieldReader читает типизированные поля конфигурации шага.
// Запоминает первую ошибку; после неё все методы возвращают значения по умолчанию.
type fieldReader struct {
	stepType string
	config   map[string]any
	err      error
}

func newFieldReader(stepType string, config map[string]any) *fieldReader {
	return &fieldReader{stepType: stepType, config: config}
}

// Err возвращает первую ошибку чтения.
func (r *fieldReader) Err() error {
	return r.err
}

func (r *fieldReader) fail(field, format string, args ...any) {
	if r.err == nil {
		r.err = invalidField(r.stepType, field, fmt.Sprintf(format, args...))
	}
}

// lookup возвращает значение поля, если оно задано и не null.
func (r *fieldReader) lookup(key string) (any, bool) {
	if r.err != nil {
		return nil, false
	}
	v, ok := r.config[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Has проверяет, задано ли поле (включая явный null).
func (r *fieldReader) Has(key string) bool {
	_, ok := r.config[key]
	return ok
}

// String читает строковое поле. Числа и bool приводятся к строке.
func (r *fieldReader) String(key, def string) string {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		r.fail(key, "expected string, got %T", v)
		return def
	}
	return s
}

// Required читает обязательное непустое строковое поле.
func (r *fieldReader) Required(key string) string {
	s := r.String(key, "")
	if s == "" && r.err == nil {
		r.fail(key, "is required")
	}
	return s
}

// OneOf читает строковое поле с перечислимым набором значений.
func (r *fieldReader) OneOf(key, def string, allowed ...string) string {
	s := r.String(key, def)
	if r.err != nil {
		return def
	}
	for _, a := range allowed {
		if s == a {
			return s
		}
	}
	r.fail(key, "must be one of %s, got %q", strings.Join(allowed, ", "), s)
	return def
}

// Int читает целое поле. Строки с числом допускаются (после подстановки).
func (r *fieldReader) Int(key string, def int) int {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		r.fail(key, "expected integer, got %v", v)
		return def
	}
	return n
}

// Float читает дробное поле.
func (r *fieldReader) Float(key string, def float64) float64 {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		r.fail(key, "expected number, got %v", v)
		return def
	}
	return f
}

// Bool читает булево поле.
func (r *fieldReader) Bool(key string, def bool) bool {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		r.fail(key, "expected boolean, got %v", v)
		return def
	}
	return b
}

// Index читает необязательный индекс.
// Отсутствующее поле даёт def, явный null — nil (возвращать весь список).
func (r *fieldReader) Index(key string, def *int) *int {
	if r.err != nil {
		return def
	}
	v, present := r.config[key]
	if !present {
		return def
	}
	if v == nil {
		return nil
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		r.fail(key, "expected integer or null, got %v", v)
		return def
	}
	return &n
}

// Map читает поле-mapping.
func (r *fieldReader) Map(key string) map[string]any {
	v, ok := r.lookup(key)
	if !ok {
		return nil
	}
	m, err := cast.ToStringMapE(v)
	if err != nil {
		r.fail(key, "expected mapping, got %T", v)
		return nil
	}
	return m
}

// StringMap читает mapping строк; нестроковые значения приводятся к строке.
func (r *fieldReader) StringMap(key string) map[string]string {
	m := r.Map(key)
	if m == nil {
		return nil
	}
	result := make(map[string]string, len(m))
	for k, v := range m {
		result[k] = engine.Stringify(v)
	}
	return result
}

// IntList читает список целых.
func (r *fieldReader) IntList(key string, def []int) []int {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	list, err := cast.ToIntSliceE(v)
	if err != nil {
		r.fail(key, "expected list of integers, got %v", v)
		return def
	}
	return list
}

// intPtr возвращает указатель на n.
func intPtr(n int) *int {
	return &n
}

// sortedKeys возвращает ключи map в алфавитном порядке.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
