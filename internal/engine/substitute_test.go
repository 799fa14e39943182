package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

func TestSubstitute(t *testing.T) {
	vars := map[string]any{
		"base_url": "https://example.com",
		"page":     float64(2),
		"id":       42,
		"flag":     true,
		"empty":    nil,
	}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no placeholders", "/products", "/products"},
		{"single", "${base_url}/products", "https://example.com/products"},
		{"float without fraction", "/page/${page}", "/page/2"},
		{"int", "/item/${id}", "/item/42"},
		{"bool", "${flag}", "true"},
		{"nil is empty", "[${empty}]", "[]"},
		{"several", "${base_url}/${id}?p=${page}", "https://example.com/42?p=2"},
		{"dollar without brace", "$5 off", "$5 off"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Substitute(tt.input, vars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSubstitute_SinglePass(t *testing.T) {
	vars := map[string]any{"a": "${b}", "b": "nested"}

	got, err := Substitute("${a}", vars)
	require.NoError(t, err)
	assert.Equal(t, "${b}", got)
}

func TestSubstitute_Unresolved(t *testing.T) {
	_, err := Substitute("/x/${missing}/${other}", map[string]any{})
	require.Error(t, err)

	var unresolved *UnresolvedVariableError
	require.True(t, errors.As(err, &unresolved))
	assert.Equal(t, "missing", unresolved.Name)
	assert.Equal(t, "${missing}", unresolved.Token)
	assert.ErrorIs(t, err, ErrUnresolvedVariable)
	assert.Contains(t, err.Error(), "missing")
}

func TestSubstituteValue_Nested(t *testing.T) {
	vars := map[string]any{"q": "shoes", "n": 3}

	input := map[string]any{
		"params":  map[string]any{"query": "${q}", "limit": "${n}"},
		"list":    []any{"${q}", 1, nil},
		"headers": map[string]string{"X-Q": "${q}"},
		"plain":   7,
	}

	got, err := SubstituteValue(input, vars)
	require.NoError(t, err)

	want := map[string]any{
		"params":  map[string]any{"query": "shoes", "limit": "3"},
		"list":    []any{"shoes", 1, nil},
		"headers": map[string]string{"X-Q": "shoes"},
		"plain":   7,
	}
	assert.Equal(t, want, got)
}

func TestSubstituteValue_OrderedMap(t *testing.T) {
	items := orderedmap.New[string, any]()
	items.Set("zeta", "${q}")
	items.Set("alpha", []any{"${n}"})
	config := map[string]any{"json_data": map[string]any{"items": items}}

	require.True(t, HasPlaceholders(config))

	got, err := SubstituteConfig(config, map[string]any{"q": "shoes", "n": 3})
	require.NoError(t, err)

	rendered, ok := got["json_data"].(map[string]any)["items"].(*orderedmap.OrderedMap[string, any])
	require.True(t, ok)
	var keys []string
	for pair := rendered.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	assert.Equal(t, []string{"zeta", "alpha"}, keys)
	assert.Equal(t, "shoes", rendered.Value("zeta"))
	assert.Equal(t, []any{"3"}, rendered.Value("alpha"))
	assert.Equal(t, "${q}", items.Value("zeta"))

	_, err = SubstituteValue(items, nil)
	assert.ErrorIs(t, err, ErrUnresolvedVariable)
}

func TestSubstituteConfig_DoesNotMutate(t *testing.T) {
	config := map[string]any{"path": "/p/${page}", "nested": map[string]any{"v": "${page}"}}

	first, err := SubstituteConfig(config, map[string]any{"page": 1})
	require.NoError(t, err)
	second, err := SubstituteConfig(config, map[string]any{"page": 2})
	require.NoError(t, err)

	assert.Equal(t, "/p/1", first["path"])
	assert.Equal(t, "/p/2", second["path"])
	assert.Equal(t, "/p/${page}", config["path"])
	assert.Equal(t, "${page}", config["nested"].(map[string]any)["v"])
}

func TestSubstituteConfig_Idempotent(t *testing.T) {
	config := map[string]any{"path": "/static", "n": 1}

	once, err := SubstituteConfig(config, nil)
	require.NoError(t, err)
	twice, err := SubstituteConfig(once, nil)
	require.NoError(t, err)

	assert.Equal(t, config, once)
	assert.Equal(t, once, twice)
}

func TestHasPlaceholders(t *testing.T) {
	assert.True(t, HasPlaceholders("${x}"))
	assert.True(t, HasPlaceholders([]any{"a", map[string]any{"b": "${y}"}}))
	assert.True(t, HasPlaceholders(map[string]string{"h": "${z}"}))
	assert.False(t, HasPlaceholders("plain"))
	assert.False(t, HasPlaceholders(12))
	assert.False(t, HasPlaceholders(nil))
}

func TestStringify(t *testing.T) {
	om := orderedmap.New[string, any]()
	om.Set("b", 1)
	om.Set("a", 2)

	assert.Equal(t, "", Stringify(nil))
	assert.Equal(t, "1.5", Stringify(1.5))
	assert.Equal(t, "10", Stringify(float64(10)))
	assert.Equal(t, "false", Stringify(false))
	assert.Equal(t, `[1,"x"]`, Stringify([]any{1, "x"}))
	assert.Equal(t, `{"b":1,"a":2}`, Stringify(om))
}
