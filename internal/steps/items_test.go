package steps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// recordKeys возвращает ключи записи в порядке вставки.
func recordKeys(t *testing.T, v any) []string {
	t.Helper()
	om, ok := v.(*orderedmap.OrderedMap[string, any])
	require.True(t, ok, "record must be an ordered map, got %T", v)

	var keys []string
	for pair := om.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

func recordValue(t *testing.T, v any, key string) any {
	t.Helper()
	om := v.(*orderedmap.OrderedMap[string, any])
	value, ok := om.Get(key)
	require.True(t, ok, "missing field %s", key)
	return value
}

func TestExtractItems_XPath(t *testing.T) {
	r := DefaultRegistry()
	rc := newTestContext()

	step := build(t, r, Definition{
		"type":            "extract_items",
		"expression":      `//div[@class="product"]`,
		"expression_type": "xpath",
		"items": []any{
			map[string]any{"title": []any{
				map[string]any{"type": "xpath_first", "expression": ".//h2/text()"},
			}},
			map[string]any{"price": []any{
				map[string]any{"type": "xpath_first", "expression": ".//p/text()"},
				map[string]any{"type": "to_money", "decimal_separator": ".", "thousands_separator": ","},
			}},
		},
	})

	out := run(t, rc, step, productsPage)
	records, ok := out.([]any)
	require.True(t, ok)
	require.Len(t, records, 2)

	assert.Equal(t, []string{"title", "price"}, recordKeys(t, records[0]))
	assert.Equal(t, "Product 1", recordValue(t, records[0], "title"))
	assert.Equal(t, 10.99, recordValue(t, records[0], "price"))
	assert.Equal(t, "Product 2", recordValue(t, records[1], "title"))
	assert.Equal(t, 20.5, recordValue(t, records[1], "price"))
}

func TestExtractItems_TableRows(t *testing.T) {
	page := `<html><body><table>
<tr><td>Dune</td><td>$10.99</td></tr>
<tr><td>Emma</td><td>$5.00</td></tr>
</table></body></html>`

	step := build(t, DefaultRegistry(), Definition{
		"type":            "extract_items",
		"expression":      "//table//tr",
		"expression_type": "xpath",
		"items": []any{
			map[string]any{"title": []any{
				map[string]any{"type": "xpath_first", "expression": ".//td[1]/text()"},
			}},
			map[string]any{"price": []any{
				map[string]any{"type": "xpath_first", "expression": ".//td[2]/text()"},
			}},
		},
	})

	out := run(t, newTestContext(), step, page)
	records, ok := out.([]any)
	require.True(t, ok)
	require.Len(t, records, 2)

	assert.Equal(t, "Dune", recordValue(t, records[0], "title"))
	assert.Equal(t, "$10.99", recordValue(t, records[0], "price"))
	assert.Equal(t, "Emma", recordValue(t, records[1], "title"))
	assert.Equal(t, "$5.00", recordValue(t, records[1], "price"))
}

func TestExtractItems_DeclaredOrderPreserved(t *testing.T) {
	r := DefaultRegistry()
	rc := newTestContext()

	step := build(t, r, Definition{
		"type":            "extract_items",
		"expression":      "rows",
		"expression_type": "json",
		"items": []any{
			map[string]any{"zeta": []any{map[string]any{"type": "get", "expression": "z"}}},
			map[string]any{"alpha": []any{map[string]any{"type": "get", "expression": "a"}}},
			map[string]any{"mid": []any{map[string]any{"type": "get", "expression": "m"}}},
		},
	})

	out := run(t, rc, step, map[string]any{
		"rows": []any{map[string]any{"z": 1, "a": 2, "m": 3}},
	})
	records := out.([]any)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, recordKeys(t, records[0]))

	// Definition сохраняет порядок полей
	items := step.Definition()["items"].(*orderedmap.OrderedMap[string, any])
	var keys []string
	for pair := items.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, keys)
}

func TestExtractItems_EmptySourceSkipsFields(t *testing.T) {
	calls := 0
	r := testRegistry(&calls)
	rc := newTestContext()

	for _, def := range []Definition{
		{"type": "extract_items", "expression": "//article", "expression_type": "xpath"},
		{"type": "extract_items", "expression": "missing", "expression_type": "json"},
		{"type": "extract_items", "expression": `nothing-(\d+)`},
	} {
		def["items"] = []any{map[string]any{"field": []any{map[string]any{"type": "count"}}}}
		step := build(t, r, def)

		var input any = productsPage
		if def["expression_type"] == "json" {
			input = map[string]any{}
		}
		assert.Equal(t, []any{}, run(t, rc, step, input))
	}
	assert.Equal(t, 0, calls)
}

func TestExtractItems_RegexDefault(t *testing.T) {
	r := DefaultRegistry()
	rc := newTestContext()

	step := build(t, r, Definition{
		"type":       "extract_items",
		"expression": `item=(\w+)`,
		"items": map[string]any{
			"upper": []any{map[string]any{"type": "script", "source": "value.toUpperCase()"}},
			"raw":   []any{map[string]any{"type": "to_str"}},
		},
	})

	records := run(t, rc, step, "item=a item=b").([]any)
	require.Len(t, records, 2)
	// обычный map упорядочивается по имени поля
	assert.Equal(t, []string{"raw", "upper"}, recordKeys(t, records[0]))
	assert.Equal(t, "B", recordValue(t, records[1], "upper"))
}

func TestExtractItems_JSONSingleRecord(t *testing.T) {
	r := DefaultRegistry()
	rc := newTestContext()
	rc.SetJSON(map[string]any{"product": map[string]any{"id": 7}})

	step := build(t, r, Definition{
		"type":                "extract_items",
		"expression":          "product",
		"expression_type":     "json",
		"use_previous_output": false,
		"items": []any{
			map[string]any{"id": []any{map[string]any{"type": "get", "expression": "id"}}},
		},
	})

	records := run(t, rc, step, nil).([]any)
	require.Len(t, records, 1)
	assert.Equal(t, 7, recordValue(t, records[0], "id"))
}

func TestExtractItems_FieldsDoNotSeeEachOther(t *testing.T) {
	r := testRegistry(nil)
	rc := newTestContext()

	step := build(t, r, Definition{
		"type":            "extract_items",
		"expression":      "rows",
		"expression_type": "json",
		"items": []any{
			map[string]any{"first": []any{map[string]any{"type": "literal", "value": "one"}}},
			map[string]any{"second": []any{map[string]any{"type": "get", "expression": "first"}}},
		},
	})

	records := run(t, rc, step, map[string]any{"rows": []any{map[string]any{"n": 1}}}).([]any)
	assert.Nil(t, recordValue(t, records[0], "second"))
}

func TestExtractItems_PerRecordSubstitution(t *testing.T) {
	r := DefaultRegistry()
	rc := newTestContext()

	step := build(t, r, Definition{
		"type":            "extract_items",
		"expression":      "ids",
		"expression_type": "json",
		"items": []any{
			map[string]any{"url": []any{
				map[string]any{"type": "save", "variable": "id"},
				map[string]any{"type": "join_base_url", "path": "/item/${id}/"},
			}},
		},
	})

	records := run(t, rc, step, map[string]any{"ids": []any{"a", "b"}}).([]any)
	require.Len(t, records, 2)
	assert.Equal(t, "https://example.com/item/a/a", recordValue(t, records[0], "url"))
	assert.Equal(t, "https://example.com/item/b/b", recordValue(t, records[1], "url"))
}

func TestExtractItems_Config(t *testing.T) {
	r := DefaultRegistry()

	_, err := r.Build(Definition{"type": "extract_items", "expression": "x"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = r.Build(Definition{"type": "extract_items", "expression": "x", "expression_type": "sql", "items": map[string]any{}})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = r.Build(Definition{"type": "extract_items", "expression": "x", "items": []any{map[string]any{"a": nil, "b": nil}}})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	step := build(t, r, Definition{
		"type":       "extract_items",
		"expression": "x",
		"items":      map[string]any{"a": []any{map[string]any{"type": "fetch"}}},
	})
	assert.Equal(t, ModeSuspending, step.Mode())
	assert.NotContains(t, step.Config(), "items")
}
