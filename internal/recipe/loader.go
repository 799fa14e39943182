package recipe

import (
	"fmt"
	"os"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
)

// Ключи, значения которых в определении шага сохраняют порядок полей.
const keyItems = "items"

// Load читает рецепт из YAML файла.
func Load(path string, opts ...Option) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recipe: %w", err)
	}
	return Parse(data, opts...)
}

// Parse разбирает рецепт из YAML документа.
func Parse(data []byte, opts ...Option) (*Recipe, error) {
	doc, err := decodeDocument(data)
	if err != nil {
		return nil, err
	}
	return New(doc, opts...)
}

// decodeDocument декодирует YAML в map[string]any.
//
// Mapping items внутри определения шага превращается в упорядоченный
// mapping, чтобы поля записей extract_items сохраняли порядок объявления.
func decodeDocument(data []byte) (map[string]any, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: parse yaml: %v", ErrInvalidRecipe, err)
	}
	if root.Kind == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidRecipe)
	}

	value, err := nodeValue(&root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecipe, err)
	}
	doc, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected mapping at top level, got %T", ErrInvalidRecipe, value)
	}
	return doc, nil
}

func nodeValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return nodeValue(n.Content[0])
	case yaml.AliasNode:
		return nodeValue(n.Alias)
	case yaml.SequenceNode:
		list := make([]any, 0, len(n.Content))
		for _, child := range n.Content {
			v, err := nodeValue(child)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil
	case yaml.MappingNode:
		return mappingValue(n)
	default:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return v, nil
	}
}

func mappingValue(n *yaml.Node) (map[string]any, error) {
	m := make(map[string]any, len(n.Content)/2)
	isStep := false
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == "type" {
			isStep = true
		}
	}

	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		if key.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: mapping key must be a scalar", key.Line)
		}

		if isStep && key.Value == keyItems && val.Kind == yaml.MappingNode {
			om, err := orderedValue(val)
			if err != nil {
				return nil, err
			}
			m[key.Value] = om
			continue
		}

		v, err := nodeValue(val)
		if err != nil {
			return nil, err
		}
		m[key.Value] = v
	}
	return m, nil
}

func orderedValue(n *yaml.Node) (*orderedmap.OrderedMap[string, any], error) {
	om := orderedmap.New[string, any]()
	for i := 0; i+1 < len(n.Content); i += 2 {
		v, err := nodeValue(n.Content[i+1])
		if err != nil {
			return nil, err
		}
		om.Set(n.Content[i].Value, v)
	}
	return om, nil
}

// plainMap приводит упорядоченный mapping к обычному.
func plainMap(v any) any {
	om, ok := v.(*orderedmap.OrderedMap[string, any])
	if !ok {
		return v
	}
	m := make(map[string]any, om.Len())
	for pair := om.Oldest(); pair != nil; pair = pair.Next() {
		m[pair.Key] = pair.Value
	}
	return m
}
