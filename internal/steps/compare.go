package steps

import (
	"fmt"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/shaiso/SpiderChef/internal/engine"
)

const (
	// StepTypeCompare — тип шага сравнения.
	StepTypeCompare = "compare"

	configLeftKey   = "left_key"
	configRightKey  = "right_key"
	configCompareTo = "compare_to"
	configCondition = "condition"
)

// Condition — отношение сравнения.
type Condition string

// Поддерживаемые отношения.
const (
	ConditionEq  Condition = "eq"
	ConditionGt  Condition = "gt"
	ConditionLt  Condition = "lt"
	ConditionGte Condition = "gte"
	ConditionLte Condition = "lte"
)

// ParseCondition проверяет название отношения.
func ParseCondition(s string) (Condition, error) {
	switch c := Condition(s); c {
	case ConditionEq, ConditionGt, ConditionLt, ConditionGte, ConditionLte:
		return c, nil
	default:
		return "", fmt.Errorf("unknown condition %q (expected eq, gt, lt, gte, lte)", s)
	}
}

// holds применяет отношение к результату сравнения (-1, 0, 1).
func (c Condition) holds(cmp int) bool {
	switch c {
	case ConditionEq:
		return cmp == 0
	case ConditionGt:
		return cmp > 0
	case ConditionLt:
		return cmp < 0
	case ConditionGte:
		return cmp >= 0
	case ConditionLte:
		return cmp <= 0
	default:
		return false
	}
}

// CompareStep — вычисляет отношение между двумя значениями и возвращает bool.
//
//	type: compare
//	left_key: meta.page     # путь в источнике; без него левый операнд — вход
//	right_key: meta.pages   # или compare_to: 10
//	condition: lt
//
// Источник — входное значение или последний JSON ответа (use_previous_output: false).
// Значение, найденное по ключу и не являющееся числом, заменяется своей длиной.
// Контекст не изменяется.
type CompareStep struct {
	base
}

type compareOptions struct {
	leftKey   string
	rightKey  string
	compareTo any
	condition Condition
}

// NewCompareStep создаёт CompareStep.
func NewCompareStep(def Definition, _ *Registry) (Step, error) {
	b, err := newBase(def)
	if err != nil {
		return nil, err
	}
	s := &CompareStep{base: b}

	r := newFieldReader(s.stepType, b.config)
	r.Required(configCondition)
	if err := r.Err(); err != nil {
		return nil, err
	}

	if err := validateNow(b.config, func(cfg map[string]any) error {
		_, err := s.parse(cfg)
		return err
	}); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *CompareStep) parse(cfg map[string]any) (compareOptions, error) {
	r := newFieldReader(s.stepType, cfg)
	opts := compareOptions{
		leftKey:   r.String(configLeftKey, ""),
		rightKey:  r.String(configRightKey, ""),
		compareTo: cfg[configCompareTo],
	}
	condition := r.Required(configCondition)
	if err := r.Err(); err != nil {
		return compareOptions{}, err
	}

	c, err := ParseCondition(condition)
	if err != nil {
		return compareOptions{}, invalidField(s.stepType, configCondition, err.Error())
	}
	opts.condition = c
	return opts, nil
}

// Apply выполняет сравнение.
func (s *CompareStep) Apply(rc *engine.Context, cfg map[string]any, input any) (any, error) {
	opts, err := s.parse(cfg)
	if err != nil {
		return nil, err
	}

	source := input
	if !s.usePrevious {
		source = rc.JSON()
	}

	var left operand
	if opts.leftKey != "" {
		left, err = keyOperand(source, opts.leftKey)
	} else {
		left, err = rawOperand(input)
	}
	if err != nil {
		return nil, fmt.Errorf("left value: %w", err)
	}

	var right operand
	switch {
	case opts.rightKey != "":
		right, err = keyOperand(source, opts.rightKey)
	case opts.compareTo != nil:
		right, err = rawOperand(opts.compareTo)
	default:
		err = fmt.Errorf("%w: right_key or compare_to is required", engine.ErrMissingValue)
	}
	if err != nil {
		return nil, fmt.Errorf("right value: %w", err)
	}

	return opts.condition.holds(left.compare(right)), nil
}

// operand — значение, приведённое к сравнимому виду: число или строка.
type operand struct {
	num   float64
	str   string
	isStr bool
}

func (a operand) compare(b operand) int {
	if a.isStr && b.isStr {
		return strings.Compare(a.str, b.str)
	}
	x, y := a.number(), b.number()
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

// number возвращает числовое значение: строка-число разбирается, иначе берётся длина.
func (a operand) number() float64 {
	if !a.isStr {
		return a.num
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(a.str), 64); err == nil {
		return f
	}
	return float64(len([]rune(a.str)))
}

// keyOperand находит значение по пути и приводит его к числу.
func keyOperand(source any, key string) (operand, error) {
	value := engine.Lookup(source, key)
	if value == nil {
		return operand{}, fmt.Errorf("%w: could not get value for key %q", engine.ErrMissingValue, key)
	}
	if n, ok := numeric(value); ok {
		return operand{num: n}, nil
	}
	if n, ok := length(value); ok {
		return operand{num: float64(n)}, nil
	}
	return operand{}, fmt.Errorf("%w: value for key %q is not comparable (%T)", ErrInvalidInput, key, value)
}

// rawOperand приводит явное значение: числа сравниваются как числа,
// строки — как строки, коллекции — по длине.
func rawOperand(value any) (operand, error) {
	if value == nil {
		return operand{}, fmt.Errorf("%w: nothing to compare", engine.ErrMissingValue)
	}
	if s, ok := value.(string); ok {
		return operand{str: s, isStr: true}, nil
	}
	if n, ok := numeric(value); ok {
		return operand{num: n}, nil
	}
	if n, ok := length(value); ok {
		return operand{num: float64(n)}, nil
	}
	return operand{}, fmt.Errorf("%w: value is not comparable (%T)", ErrInvalidInput, value)
}

func numeric(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func length(value any) (int, bool) {
	switch v := value.(type) {
	case string:
		return len([]rune(v)), true
	case []any:
		return len(v), true
	case []string:
		return len(v), true
	case map[string]any:
		return len(v), true
	case map[string]string:
		return len(v), true
	case *orderedmap.OrderedMap[string, any]:
		return v.Len(), true
	default:
		return 0, false
	}
}
