// Package steps содержит контракт шага, реестр типов и все стандартные шаги.
//
// # Обзор
//
// Шаг — единица работы рецепта. Каждый шаг:
//   - Получает конфигурацию с подставленными переменными ${name}
//   - Получает входное значение (результат предыдущего шага)
//   - Возвращает новое значение конвейера
//
// # Режимы выполнения
//
// Шаг объявляет режим через Mode():
//
//	type Blocking interface {
//	    Apply(rc *engine.Context, cfg map[string]any, input any) (any, error)
//	}
//
//	type Suspending interface {
//	    Await(ctx context.Context, rc *engine.Context, cfg map[string]any, input any) (any, error)
//	}
//
// Execute выбирает Apply или Await по режиму. Контейнеры (try_catch,
// extract_items) реализуют оба метода и становятся suspending,
// если suspending хотя бы один вложенный шаг.
//
// # Registry
//
// Registry сопоставляет тег типа с фабрикой:
//
//	registry := steps.DefaultRegistry()
//	step, err := registry.Build(steps.Definition{"type": "get", "expression": "data.items"})
//	if errors.Is(err, steps.ErrStepNotFound) {
//	    // неизвестный тип
//	}
//
// Неизвестный тег — ошибка построения, а не выполнения.
//
// # Типы шагов
//
//   - fetch, sleep — сеть и таймер (suspending)
//   - get, regex, regex_first, xpath, xpath_first, css, css_first, jq — извлечение
//   - extract_items — записи и конвейеры полей
//   - compare, try_catch, save, script — управление
//   - to_int, to_float, to_str, from_json, remove_html_tags,
//     remove_extra_whitespace, remove_currency_symbols, join_base_url, to_money — форматирование
//
// # Политика индексов
//
// Шаги *_first (и любой шаг с index) возвращают пустой список,
// если индекс вне диапазона. Явный index: null возвращает весь список.
package steps
