package steps

import (
	"context"

	"github.com/shaiso/SpiderChef/internal/engine"
)

// Mode — режим выполнения шага.
type Mode int

const (
	// ModeBlocking — шаг выполняется до конца без ожидания внешних операций.
	ModeBlocking Mode = iota

	// ModeSuspending — шаг ожидает сеть или таймер и поддерживает отмену через context.
	ModeSuspending
)

// String возвращает название режима.
func (m Mode) String() string {
	if m == ModeSuspending {
		return "suspending"
	}
	return "blocking"
}

// Общие ключи определения шага.
const (
	keyType              = "type"
	keyName              = "name"
	keyUsePreviousOutput = "use_previous_output"
)

// Definition — декларативное описание шага: {type: "<tag>", ...поля}.
type Definition map[string]any

// Type возвращает тег типа шага.
func (d Definition) Type() string {
	s, _ := d[keyType].(string)
	return s
}

// Step — шаг рецепта.
//
// Каждый шаг реализует ровно один из Blocking или Suspending в зависимости
// от Mode. Контейнеры (try_catch, extract_items) реализуют оба и сообщают
// ModeSuspending, если хотя бы один вложенный шаг suspending.
type Step interface {
	// Type возвращает тег типа шага.
	Type() string

	// Name возвращает имя шага, по умолчанию тег типа.
	Name() string

	// Mode возвращает режим выполнения.
	Mode() Mode

	// Config возвращает исходную конфигурацию шага без вложенных списков шагов.
	// Подстановка переменных выполняется над копией перед каждым запуском.
	Config() map[string]any

	// Definition возвращает декларативную форму шага.
	Definition() Definition
}

// Blocking — шаг, выполняемый синхронно.
type Blocking interface {
	Step

	// Apply выполняет шаг над входным значением.
	// cfg — конфигурация с подставленными переменными.
	Apply(rc *engine.Context, cfg map[string]any, input any) (any, error)
}

// Suspending — шаг, ожидающий внешнюю операцию.
type Suspending interface {
	Step

	// Await выполняет шаг; должен проверять ctx.Done() во время ожидания.
	Await(ctx context.Context, rc *engine.Context, cfg map[string]any, input any) (any, error)
}

// base — общие поля всех шагов.
type base struct {
	stepType    string
	name        string
	usePrevious bool
	config      map[string]any
}

// newBase разбирает общие поля определения.
// Ключи из exclude (вложенные списки шагов) не попадают в Config.
func newBase(def Definition, exclude ...string) (base, error) {
	b := base{
		stepType:    def.Type(),
		usePrevious: true,
		config:      make(map[string]any, len(def)),
	}

	r := newFieldReader(b.stepType, map[string]any(def))
	b.name = r.String(keyName, "")
	b.usePrevious = r.Bool(keyUsePreviousOutput, true)
	if err := r.Err(); err != nil {
		return base{}, err
	}

	skip := map[string]bool{keyType: true, keyName: true, keyUsePreviousOutput: true}
	for _, key := range exclude {
		skip[key] = true
	}
	for key, val := range def {
		if !skip[key] {
			b.config[key] = val
		}
	}
	return b, nil
}

// Type возвращает тег типа шага.
func (b *base) Type() string {
	return b.stepType
}

// Name возвращает имя шага.
func (b *base) Name() string {
	if b.name == "" {
		return b.stepType
	}
	return b.name
}

// Mode по умолчанию blocking.
func (b *base) Mode() Mode {
	return ModeBlocking
}

// Config возвращает исходную конфигурацию.
func (b *base) Config() map[string]any {
	return b.config
}

// UsePreviousOutput сообщает, читает ли шаг данные из входного значения.
func (b *base) UsePreviousOutput() bool {
	return b.usePrevious
}

// Definition собирает декларативную форму шага.
func (b *base) Definition() Definition {
	def := make(Definition, len(b.config)+3)
	for key, val := range b.config {
		def[key] = val
	}
	def[keyType] = b.stepType
	if b.name != "" {
		def[keyName] = b.name
	}
	if !b.usePrevious {
		def[keyUsePreviousOutput] = false
	}
	return def
}

// validateNow запускает проверку конфигурации при построении шага,
// если в ней нет placeholder'ов. Иначе проверка откладывается до запуска.
func validateNow(config map[string]any, check func(map[string]any) error) error {
	if engine.HasPlaceholders(config) {
		return nil
	}
	return check(config)
}
