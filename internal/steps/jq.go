package steps

import (
	"fmt"
	"sync"

	"github.com/itchyny/gojq"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/shaiso/SpiderChef/internal/engine"
)

// StepTypeJQ — тип шага jq запроса.
const StepTypeJQ = "jq"

// jqCache — скомпилированные jq запросы по тексту.
var jqCache sync.Map

func compileJQ(expr string) (*gojq.Code, error) {
	if cached, ok := jqCache.Load(expr); ok {
		return cached.(*gojq.Code), nil
	}
	parsed, err := gojq.Parse(expr)
	if err != nil {
		return nil, err
	}
	code, err := gojq.Compile(parsed)
	if err != nil {
		return nil, err
	}
	jqCache.Store(expr, code)
	return code, nil
}

// JQStep — jq запрос к JSON значению.
//
// Возвращает список всех выданных запросом значений
// или элемент по index с той же политикой, что у *_first шагов.
//
//	type: jq
//	expression: '.items[] | select(.price > 10) | .name'
//	use_previous_output: false   # запрос к последнему JSON ответа
type JQStep struct {
	base
}

// NewJQStep создаёт JQStep.
func NewJQStep(def Definition, _ *Registry) (Step, error) {
	b, err := newBase(def)
	if err != nil {
		return nil, err
	}
	s := &JQStep{base: b}

	if err := validateNow(b.config, func(cfg map[string]any) error {
		_, _, err := s.parse(cfg)
		return err
	}); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *JQStep) parse(cfg map[string]any) (*gojq.Code, *int, error) {
	r := newFieldReader(s.stepType, cfg)
	expr := r.Required(configExpression)
	index := r.Index(configIndex, nil)
	if err := r.Err(); err != nil {
		return nil, nil, err
	}

	code, err := compileJQ(expr)
	if err != nil {
		return nil, nil, invalidField(s.stepType, configExpression, err.Error())
	}
	return code, index, nil
}

// Apply выполняет запрос.
func (s *JQStep) Apply(rc *engine.Context, cfg map[string]any, input any) (any, error) {
	code, index, err := s.parse(cfg)
	if err != nil {
		return nil, err
	}

	source := input
	if !s.usePrevious {
		source = rc.JSON()
	}

	var items []any
	iter := code.Run(plainValue(source))
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			if halt, ok := err.(*gojq.HaltError); ok && halt.Value() == nil {
				break
			}
			return nil, fmt.Errorf("%w: jq: %v", ErrInvalidInput, err)
		}
		items = append(items, v)
	}
	if items == nil {
		items = []any{}
	}
	return pickIndex(items, index), nil
}

// plainValue приводит значение к типам, которые понимают gojq и goja:
// map[string]any, []any и скаляры.
func plainValue(value any) any {
	switch v := value.(type) {
	case *orderedmap.OrderedMap[string, any]:
		m := make(map[string]any, v.Len())
		for pair := v.Oldest(); pair != nil; pair = pair.Next() {
			m[pair.Key] = plainValue(pair.Value)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(v))
		for key, val := range v {
			m[key] = plainValue(val)
		}
		return m
	case map[string]string:
		m := make(map[string]any, len(v))
		for key, val := range v {
			m[key] = val
		}
		return m
	case []any:
		list := make([]any, len(v))
		for i, val := range v {
			list[i] = plainValue(val)
		}
		return list
	case []string:
		list := make([]any, len(v))
		for i, val := range v {
			list[i] = val
		}
		return list
	case int64:
		return int(v)
	case float32:
		return float64(v)
	default:
		return v
	}
}
