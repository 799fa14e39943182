package steps

import (
	"fmt"
	"sort"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Factory строит шаг по определению.
// Реестр передаётся для построения вложенных списков шагов.
type Factory func(def Definition, reg *Registry) (Step, error)

// Registry — реестр типов шагов.
//
// Сопоставляет тег типа с фабрикой. Потокобезопасен.
// Вложенные списки шагов строятся через тот же реестр,
// поэтому пользовательские типы доступны на любой глубине.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// DefaultRegistry создаёт реестр со всеми стандартными шагами.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	// Сеть и таймеры
	r.Register(StepTypeFetch, NewFetchStep)
	r.Register(StepTypeSleep, NewSleepStep)

	// Извлечение
	r.Register(StepTypeGet, NewGetStep)
	r.Register(StepTypeRegex, NewRegexStep)
	r.Register(StepTypeRegexFirst, NewRegexFirstStep)
	r.Register(StepTypeXpath, NewXpathStep)
	r.Register(StepTypeXpathFirst, NewXpathFirstStep)
	r.Register(StepTypeCSS, NewCSSStep)
	r.Register(StepTypeCSSFirst, NewCSSFirstStep)
	r.Register(StepTypeJQ, NewJQStep)
	r.Register(StepTypeExtractItems, NewExtractItemsStep)

	// Управление
	r.Register(StepTypeCompare, NewCompareStep)
	r.Register(StepTypeTryCatch, NewTryCatchStep)
	r.Register(StepTypeSave, NewSaveStep)
	r.Register(StepTypeScript, NewScriptStep)

	// Форматирование
	r.Register(StepTypeJoinBaseURL, NewJoinBaseURLStep)
	r.Register(StepTypeToInt, NewToIntStep)
	r.Register(StepTypeToFloat, NewToFloatStep)
	r.Register(StepTypeToStr, NewToStrStep)
	r.Register(StepTypeFromJSON, NewFromJSONStep)
	r.Register(StepTypeRemoveHTMLTags, NewRemoveHTMLTagsStep)
	r.Register(StepTypeRemoveWhitespace, NewRemoveWhitespaceStep)
	r.Register(StepTypeRemoveCurrency, NewRemoveCurrencyStep)
	r.Register(StepTypeToMoney, NewToMoneyStep)

	return r
}

// Register регистрирует фабрику шага.
// Если тип уже существует, фабрика будет перезаписана.
func (r *Registry) Register(stepType string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[stepType] = factory
}

// Get возвращает фабрику по типу.
// Возвращает ErrStepNotFound, если тип не зарегистрирован.
func (r *Registry) Get(stepType string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, exists := r.factories[stepType]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrStepNotFound, stepType)
	}

	return factory, nil
}

// Has проверяет, зарегистрирован ли тип.
func (r *Registry) Has(stepType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.factories[stepType]
	return exists
}

// Types возвращает список всех зарегистрированных типов шагов.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Count возвращает количество зарегистрированных типов.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories)
}

// Unregister удаляет тип из реестра.
func (r *Registry) Unregister(stepType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.factories, stepType)
}

// Clone возвращает независимую копию реестра.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clone := NewRegistry()
	for t, f := range r.factories {
		clone.factories[t] = f
	}
	return clone
}

// Build строит шаг по определению.
func (r *Registry) Build(def Definition) (Step, error) {
	raw, ok := def[keyType]
	if !ok {
		return nil, invalidField("", keyType, "step type is required")
	}
	stepType, ok := raw.(string)
	if !ok || stepType == "" {
		return nil, invalidField("", keyType, fmt.Sprintf("expected non-empty string, got %v", raw))
	}

	factory, err := r.Get(stepType)
	if err != nil {
		return nil, err
	}
	return factory(def, r)
}

// BuildList строит упорядоченный список шагов.
// Принимает []any (декодированный документ), []Definition или []map[string]any.
func (r *Registry) BuildList(raw any) ([]Step, error) {
	defs, err := toDefinitions(raw)
	if err != nil {
		return nil, err
	}

	steps := make([]Step, 0, len(defs))
	for i, def := range defs {
		step, err := r.Build(def)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// Definitions возвращает декларативную форму списка шагов.
func Definitions(steps []Step) []any {
	defs := make([]any, len(steps))
	for i, s := range steps {
		defs[i] = s.Definition()
	}
	return defs
}

// toDefinitions приводит сырое значение к списку определений.
func toDefinitions(raw any) ([]Definition, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []Definition:
		return v, nil
	case []map[string]any:
		defs := make([]Definition, len(v))
		for i, m := range v {
			defs[i] = m
		}
		return defs, nil
	case []any:
		defs := make([]Definition, len(v))
		for i, item := range v {
			def, ok := toDefinition(item)
			if !ok {
				return nil, fmt.Errorf("%w: step %d: expected mapping, got %T", ErrInvalidConfig, i+1, item)
			}
			defs[i] = def
		}
		return defs, nil
	default:
		return nil, fmt.Errorf("%w: expected list of steps, got %T", ErrInvalidConfig, raw)
	}
}

func toDefinition(v any) (Definition, bool) {
	switch m := v.(type) {
	case Definition:
		return m, true
	case map[string]any:
		return m, true
	case *orderedmap.OrderedMap[string, any]:
		def := make(Definition, m.Len())
		for pair := m.Oldest(); pair != nil; pair = pair.Next() {
			def[pair.Key] = pair.Value
		}
		return def, true
	default:
		return nil, false
	}
}
