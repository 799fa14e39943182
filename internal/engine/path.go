package engine

import (
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// spreadMarker — сегмент пути "[]": остаток пути применяется к каждому элементу списка.
const spreadMarker = "[]"

// Lookup извлекает значение по пути вида "a.b.0" или "a[0].b".
//
// Путь с маркером "[]" ("items[].name") возвращает список
// значений, извлечённых из каждого элемента.
// Отсутствующий ключ или индекс даёт nil.
func Lookup(value any, path string) any {
	if path == "" {
		return value
	}

	if strings.Contains(path, spreadMarker) {
		return lookupSpread(value, strings.ReplaceAll(path, spreadMarker, ""))
	}

	for _, segment := range splitPath(path) {
		child, ok := childOf(value, segment)
		if !ok {
			return nil
		}
		value = child
	}
	return value
}

// lookupSpread реализует обход с маркером "[]": после того как значение
// стало списком, каждый следующий сегмент применяется к его элементам.
func lookupSpread(value any, path string) any {
	for _, segment := range strings.Split(path, ".") {
		if segment == "" {
			continue
		}
		switch v := value.(type) {
		case []any:
			mapped := make([]any, len(v))
			for i, item := range v {
				mapped[i] = Lookup(item, segment)
			}
			value = mapped
		case nil:
			return nil
		default:
			if isMapping(v) {
				value = Lookup(v, segment)
			}
		}
	}
	return value
}

// splitPath разбивает путь на сегменты: "a[0].b" → ["a", "0", "b"].
func splitPath(path string) []string {
	parts := strings.Split(path, ".")
	segments := make([]string, 0, len(parts))

	for _, part := range parts {
		for part != "" {
			open := strings.IndexByte(part, '[')
			if open < 0 {
				segments = append(segments, part)
				break
			}
			if open > 0 {
				segments = append(segments, part[:open])
			}
			closing := strings.IndexByte(part[open:], ']')
			if closing < 0 {
				segments = append(segments, part[open:])
				break
			}
			segments = append(segments, part[open+1:open+closing])
			part = part[open+closing+1:]
		}
	}
	return segments
}

// childOf возвращает дочернее значение по имени ключа или индексу.
func childOf(value any, segment string) (any, bool) {
	switch v := value.(type) {
	case map[string]any:
		child, ok := v[segment]
		return child, ok
	case *orderedmap.OrderedMap[string, any]:
		return v.Get(segment)
	case map[string]string:
		child, ok := v[segment]
		return child, ok
	case []any:
		idx, err := strconv.Atoi(segment)
		if err != nil {
			return nil, false
		}
		if idx < 0 {
			idx += len(v)
		}
		if idx < 0 || idx >= len(v) {
			return nil, false
		}
		return v[idx], true
	default:
		return nil, false
	}
}

// isMapping проверяет, поддерживает ли значение доступ по ключу.
func isMapping(value any) bool {
	switch value.(type) {
	case map[string]any, *orderedmap.OrderedMap[string, any], map[string]string:
		return true
	default:
		return false
	}
}
