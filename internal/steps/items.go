package steps

import (
	"context"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/shaiso/SpiderChef/internal/engine"
	"github.com/shaiso/SpiderChef/internal/query"
)

const (
	// StepTypeExtractItems — тип шага извлечения записей.
	StepTypeExtractItems = "extract_items"

	configExpressionType = "expression_type"
	configItems          = "items"
)

// Типы источника записей.
const (
	ExpressionJSON  = "json"
	ExpressionXPath = "xpath"
	ExpressionRegex = "regex"
	ExpressionCSS   = "css"
)

// itemField — именованное поле записи и его конвейер шагов.
type itemField struct {
	name  string
	steps []Step
}

// ExtractItemsStep — извлекает список записей и для каждой записи
// запускает конвейер каждого поля.
//
//	type: extract_items
//	expression: //div[@class="product"]
//	expression_type: xpath    # json, xpath, regex (по умолчанию), css
//	items:
//	  title:
//	    - type: xpath_first
//	      expression: .//h2/text()
//	  price:
//	    - type: xpath_first
//	      expression: .//p/text()
//	    - type: to_money
//
// Результат — список записей с полями в порядке объявления.
// Поля одной записи не видят результаты друг друга.
type ExtractItemsStep struct {
	base
	fields []itemField
	mode   Mode
}

// NewExtractItemsStep создаёт ExtractItemsStep.
func NewExtractItemsStep(def Definition, reg *Registry) (Step, error) {
	b, err := newBase(def, configItems)
	if err != nil {
		return nil, err
	}
	s := &ExtractItemsStep{base: b}

	r := newFieldReader(s.stepType, b.config)
	r.Required(configExpression)
	if err := r.Err(); err != nil {
		return nil, err
	}

	fields, err := s.buildFields(def[configItems], reg)
	if err != nil {
		return nil, err
	}
	s.fields = fields

	lists := make([][]Step, len(fields))
	for i, f := range fields {
		lists[i] = f.steps
	}
	s.mode = ListMode(lists...)

	if err := validateNow(b.config, func(cfg map[string]any) error {
		_, _, err := s.parse(cfg)
		return err
	}); err != nil {
		return nil, err
	}
	return s, nil
}

// buildFields строит поля в порядке объявления.
//
// Принимает список mapping'ов из одного ключа (форма загрузчика документов),
// упорядоченный mapping или обычный map (поля по алфавиту).
func (s *ExtractItemsStep) buildFields(raw any, reg *Registry) ([]itemField, error) {
	type entry struct {
		name string
		defs any
	}
	var entries []entry

	switch v := raw.(type) {
	case nil:
		return nil, invalidField(s.stepType, configItems, "is required")
	case []any:
		for _, item := range v {
			m, ok := item.(map[string]any)
			if !ok || len(m) != 1 {
				return nil, invalidField(s.stepType, configItems, fmt.Sprintf("expected single-key mapping, got %v", item))
			}
			for name, defs := range m {
				entries = append(entries, entry{name, defs})
			}
		}
	case *orderedmap.OrderedMap[string, any]:
		for pair := v.Oldest(); pair != nil; pair = pair.Next() {
			entries = append(entries, entry{pair.Key, pair.Value})
		}
	case map[string]any:
		for _, name := range sortedKeys(v) {
			entries = append(entries, entry{name, v[name]})
		}
	default:
		return nil, invalidField(s.stepType, configItems, fmt.Sprintf("expected mapping of field to steps, got %T", raw))
	}

	fields := make([]itemField, 0, len(entries))
	for _, e := range entries {
		built, err := reg.BuildList(e.defs)
		if err != nil {
			return nil, &ValidationError{StepType: s.stepType, Field: configItems + "." + e.name, Message: err.Error(), Err: err}
		}
		fields = append(fields, itemField{name: e.name, steps: built})
	}
	return fields, nil
}

func (s *ExtractItemsStep) parse(cfg map[string]any) (string, string, error) {
	r := newFieldReader(s.stepType, cfg)
	expr := r.Required(configExpression)
	kind := r.OneOf(configExpressionType, ExpressionRegex, ExpressionJSON, ExpressionXPath, ExpressionRegex, ExpressionCSS)
	if err := r.Err(); err != nil {
		return "", "", err
	}

	switch kind {
	case ExpressionRegex:
		if _, err := compileRegex(expr); err != nil {
			return "", "", invalidField(s.stepType, configExpression, err.Error())
		}
	case ExpressionXPath:
		if err := query.ValidateXPath(expr); err != nil {
			return "", "", invalidField(s.stepType, configExpression, err.Error())
		}
	case ExpressionCSS:
		if err := query.ValidateCSS(expr); err != nil {
			return "", "", invalidField(s.stepType, configExpression, err.Error())
		}
	}
	return expr, kind, nil
}

// Mode — suspending, если хотя бы одно поле содержит suspending шаг.
func (s *ExtractItemsStep) Mode() Mode {
	return s.mode
}

// Definition включает поля записи в порядке объявления.
func (s *ExtractItemsStep) Definition() Definition {
	def := s.base.Definition()
	items := orderedmap.New[string, any]()
	for _, f := range s.fields {
		items.Set(f.name, Definitions(f.steps))
	}
	def[configItems] = items
	return def
}

// Apply выполняет шаг, когда все вложенные шаги blocking.
func (s *ExtractItemsStep) Apply(rc *engine.Context, cfg map[string]any, input any) (any, error) {
	return s.Await(context.Background(), rc, cfg, input)
}

// Await извлекает записи и строит по ним результат.
func (s *ExtractItemsStep) Await(ctx context.Context, rc *engine.Context, cfg map[string]any, input any) (any, error) {
	expr, kind, err := s.parse(cfg)
	if err != nil {
		return nil, err
	}

	records, err := s.records(rc, kind, expr, input)
	if err != nil {
		return nil, err
	}

	outputs := make([]any, 0, len(records))
	if len(records) == 0 {
		return outputs, nil
	}

	for n, record := range records {
		rc.Log().Debug("extracting item", "item_number", n+1)

		out := orderedmap.New[string, any]()
		for _, f := range s.fields {
			rc.Log().Debug("extracting field", "item_number", n+1, "field", f.name)

			value, err := Run(ctx, rc, f.steps, record)
			if err != nil {
				return nil, fmt.Errorf("item %d: field %s: %w", n+1, f.name, err)
			}
			out.Set(f.name, value)
		}
		outputs = append(outputs, out)
	}
	return outputs, nil
}

// records извлекает список записей выбранной стратегией.
func (s *ExtractItemsStep) records(rc *engine.Context, kind, expr string, input any) ([]any, error) {
	switch kind {
	case ExpressionJSON:
		switch v := getValue(rc, s.usePrevious, expr, input).(type) {
		case nil:
			return nil, nil
		case []any:
			return v, nil
		default:
			return []any{v}, nil
		}
	case ExpressionXPath, ExpressionCSS:
		sel := selectorXPath
		if kind == ExpressionCSS {
			sel = selectorCSS
		}
		return documentValues(rc, s.usePrevious, sel, documentOptions{expr: expr, returnType: returnHTML}, input)
	default:
		re, err := compileRegex(expr)
		if err != nil {
			return nil, invalidField(s.stepType, configExpression, err.Error())
		}
		return regexValues(rc, s.usePrevious, re, input)
	}
}
