package steps

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/shaiso/SpiderChef/internal/engine"
	"github.com/shaiso/SpiderChef/internal/query"
)

// Типы шагов извлечения.
const (
	StepTypeGet        = "get"
	StepTypeRegex      = "regex"
	StepTypeRegexFirst = "regex_first"
	StepTypeXpath      = "xpath"
	StepTypeXpathFirst = "xpath_first"
	StepTypeCSS        = "css"
	StepTypeCSSFirst   = "css_first"
)

// Ключи конфигурации шагов извлечения.
const (
	configExpression  = "expression"
	configIndex       = "index"
	configRebuildTree = "rebuild_tree"
	configAttribute   = "attribute"
)

// Значения return_type для xpath и css.
const (
	returnHTML = "html"
)

// pickIndex применяет индекс к списку результатов.
//
// nil-индекс возвращает весь список. Индекс вне диапазона даёт пустой
// список, а не ошибку. Отрицательный индекс считается с конца.
func pickIndex(items []any, index *int) any {
	if index == nil {
		return items
	}
	i := *index
	if i < 0 {
		i += len(items)
	}
	if i < 0 || i >= len(items) {
		return []any{}
	}
	return items[i]
}

// GetStep — извлечение значения из JSON по пути.
//
//	type: get
//	expression: data.items[].id
//	use_previous_output: false   # читать последний JSON ответа вместо входа
type GetStep struct {
	base
}

// NewGetStep создаёт GetStep.
func NewGetStep(def Definition, _ *Registry) (Step, error) {
	b, err := newBase(def)
	if err != nil {
		return nil, err
	}
	r := newFieldReader(b.stepType, b.config)
	r.Required(configExpression)
	if err := r.Err(); err != nil {
		return nil, err
	}
	return &GetStep{base: b}, nil
}

// Apply извлекает значение.
func (s *GetStep) Apply(rc *engine.Context, cfg map[string]any, input any) (any, error) {
	r := newFieldReader(s.stepType, cfg)
	expr := r.Required(configExpression)
	if err := r.Err(); err != nil {
		return nil, err
	}

	return getValue(rc, s.usePrevious, expr, input), nil
}

func getValue(rc *engine.Context, usePrevious bool, expr string, input any) any {
	source := input
	if !usePrevious {
		source = rc.JSON()
	}
	return engine.Lookup(source, expr)
}

// regexCache — скомпилированные регулярные выражения по тексту.
var regexCache sync.Map

// compileRegex возвращает скомпилированное выражение из кэша.
func compileRegex(expr string) (*regexp.Regexp, error) {
	if cached, ok := regexCache.Load(expr); ok {
		return cached.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	regexCache.Store(expr, re)
	return re, nil
}

// RegexStep — все совпадения регулярного выражения.
//
// Без групп возвращается полное совпадение, с одной группой — её значение,
// с несколькими — список значений групп.
//
//	type: regex
//	expression: 'id="(\d+)"'
//	index: 0   # только regex_first по умолчанию
//	use_previous_output: false   # искать в последнем тексте ответа
type RegexStep struct {
	base
	defaultIndex *int
}

// NewRegexStep создаёт RegexStep.
func NewRegexStep(def Definition, _ *Registry) (Step, error) {
	return newRegexStep(def, nil)
}

// NewRegexFirstStep создаёт RegexStep с индексом 0 по умолчанию.
func NewRegexFirstStep(def Definition, _ *Registry) (Step, error) {
	return newRegexStep(def, intPtr(0))
}

func newRegexStep(def Definition, defaultIndex *int) (Step, error) {
	b, err := newBase(def)
	if err != nil {
		return nil, err
	}
	s := &RegexStep{base: b, defaultIndex: defaultIndex}

	if err := validateNow(b.config, func(cfg map[string]any) error {
		_, _, err := s.parse(cfg)
		return err
	}); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *RegexStep) parse(cfg map[string]any) (*regexp.Regexp, *int, error) {
	r := newFieldReader(s.stepType, cfg)
	expr := r.Required(configExpression)
	index := r.Index(configIndex, s.defaultIndex)
	if err := r.Err(); err != nil {
		return nil, nil, err
	}

	re, err := compileRegex(expr)
	if err != nil {
		return nil, nil, invalidField(s.stepType, configExpression, err.Error())
	}
	return re, index, nil
}

// Apply выполняет поиск.
func (s *RegexStep) Apply(rc *engine.Context, cfg map[string]any, input any) (any, error) {
	re, index, err := s.parse(cfg)
	if err != nil {
		return nil, err
	}

	items, err := regexValues(rc, s.usePrevious, re, input)
	if err != nil {
		return nil, err
	}
	return pickIndex(items, index), nil
}

// regexValues ищет совпадения в тексте ответа либо во входном значении.
func regexValues(rc *engine.Context, usePrevious bool, re *regexp.Regexp, input any) ([]any, error) {
	source := input
	if !usePrevious {
		if text, ok := rc.Text(); ok && text != "" {
			source = text
		}
	}

	var text string
	switch v := source.(type) {
	case nil:
		return nil, fmt.Errorf("%w: regex needs text input", engine.ErrMissingValue)
	case string:
		text = v
	default:
		return nil, fmt.Errorf("%w: regex expects string, got %T", ErrInvalidInput, source)
	}

	groups := re.NumSubexp()
	matches := re.FindAllStringSubmatch(text, -1)
	items := make([]any, 0, len(matches))
	for _, m := range matches {
		switch groups {
		case 0:
			items = append(items, m[0])
		case 1:
			items = append(items, m[1])
		default:
			tuple := make([]any, groups)
			for i := range tuple {
				tuple[i] = m[i+1]
			}
			items = append(items, tuple)
		}
	}
	return items, nil
}

// selectorKind — язык запроса к документу.
type selectorKind int

const (
	selectorXPath selectorKind = iota
	selectorCSS
)

// DocumentStep — запрос к HTML документу: XPath (xpath, xpath_first)
// или CSS селектор (css, css_first).
//
//	type: xpath
//	expression: //div[@class="product"]
//	return_type: html   # html (по умолчанию) или text
//	rebuild_tree: false # разобрать текст ответа заново
//	attribute: href     # только для css: значение атрибута
//	index: 0
//
// С use_previous_output (по умолчанию) строковый вход разбирается как документ,
// нестроковый даёт пустой список. Иначе используется кэшированное дерево
// последнего ответа.
type DocumentStep struct {
	base
	kind         selectorKind
	defaultIndex *int
}

type documentOptions struct {
	expr       string
	returnType string
	rebuild    bool
	attribute  string
	index      *int
}

// NewXpathStep создаёт шаг xpath.
func NewXpathStep(def Definition, _ *Registry) (Step, error) {
	return newDocumentStep(def, selectorXPath, nil)
}

// NewXpathFirstStep создаёт шаг xpath_first.
func NewXpathFirstStep(def Definition, _ *Registry) (Step, error) {
	return newDocumentStep(def, selectorXPath, intPtr(0))
}

// NewCSSStep создаёт шаг css.
func NewCSSStep(def Definition, _ *Registry) (Step, error) {
	return newDocumentStep(def, selectorCSS, nil)
}

// NewCSSFirstStep создаёт шаг css_first.
func NewCSSFirstStep(def Definition, _ *Registry) (Step, error) {
	return newDocumentStep(def, selectorCSS, intPtr(0))
}

func newDocumentStep(def Definition, kind selectorKind, defaultIndex *int) (Step, error) {
	b, err := newBase(def)
	if err != nil {
		return nil, err
	}
	s := &DocumentStep{base: b, kind: kind, defaultIndex: defaultIndex}

	if err := validateNow(b.config, func(cfg map[string]any) error {
		_, err := s.parse(cfg)
		return err
	}); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *DocumentStep) parse(cfg map[string]any) (documentOptions, error) {
	r := newFieldReader(s.stepType, cfg)
	opts := documentOptions{
		expr:       r.Required(configExpression),
		returnType: r.OneOf(configReturnType, returnHTML, returnHTML, returnText),
		rebuild:    r.Bool(configRebuildTree, false),
		attribute:  r.String(configAttribute, ""),
		index:      r.Index(configIndex, s.defaultIndex),
	}
	if err := r.Err(); err != nil {
		return documentOptions{}, err
	}

	validate := query.ValidateXPath
	if s.kind == selectorCSS {
		validate = query.ValidateCSS
	}
	if err := validate(opts.expr); err != nil {
		return documentOptions{}, invalidField(s.stepType, configExpression, err.Error())
	}
	return opts, nil
}

// Apply выполняет запрос.
func (s *DocumentStep) Apply(rc *engine.Context, cfg map[string]any, input any) (any, error) {
	opts, err := s.parse(cfg)
	if err != nil {
		return nil, err
	}

	items, err := documentValues(rc, s.usePrevious, s.kind, opts, input)
	if err != nil {
		return nil, err
	}
	return pickIndex(items, opts.index), nil
}

// documentValues выполняет запрос к документу и возвращает строки результатов.
func documentValues(rc *engine.Context, usePrevious bool, kind selectorKind, opts documentOptions, input any) ([]any, error) {
	var doc *query.Document
	if usePrevious {
		text, ok := input.(string)
		if !ok {
			return []any{}, nil
		}
		parsed, err := query.Parse(text)
		if err != nil {
			return nil, err
		}
		doc = parsed
	} else {
		cached, err := rc.Tree(opts.rebuild)
		if err != nil {
			return nil, fmt.Errorf("%w: no response text to query", err)
		}
		doc = cached
	}

	var (
		fragments []query.Fragment
		err       error
	)
	if kind == selectorCSS {
		fragments, err = doc.CSS(opts.expr)
	} else {
		fragments, err = doc.XPath(opts.expr)
	}
	if err != nil {
		return nil, err
	}

	items := make([]any, 0, len(fragments))
	for _, f := range fragments {
		switch {
		case opts.attribute != "":
			items = append(items, f.Attr(opts.attribute))
		case f.IsValue(), opts.returnType == returnText:
			items = append(items, f.Text())
		default:
			items = append(items, f.HTML())
		}
	}
	return items, nil
}
