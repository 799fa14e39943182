package recipe

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Template возвращает документ нового рецепта.
func Template(name string) *orderedmap.OrderedMap[string, any] {
	if name == "" {
		name = "Example"
	}
	doc := orderedmap.New[string, any]()
	doc.Set(keyBaseURL, "https://example.com")
	doc.Set(keyName, name)
	doc.Set(keySteps, []any{
		map[string]any{"type": "fetch", "path": "/hello"},
	})
	return doc
}

// MarshalTemplate сериализует шаблон нового рецепта в YAML.
func MarshalTemplate(name string) ([]byte, error) {
	return encodeYAML(Template(name))
}
