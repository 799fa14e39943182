package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContext(t *testing.T) {
	seed := map[string]any{"page": 1}
	rc := NewContext("https://example.com", seed)

	assert.Equal(t, "https://example.com", rc.Variables[VarBaseURL])
	assert.Equal(t, 1, rc.Variables["page"])

	rc.Variables["page"] = 2
	assert.Equal(t, 1, seed["page"], "seed must be copied")
	_, ok := seed[VarBaseURL]
	assert.False(t, ok)
}

func TestContext_TreeInvalidation(t *testing.T) {
	rc := NewContext("", nil)

	_, err := rc.Tree(false)
	assert.ErrorIs(t, err, ErrMissingValue)

	rc.SetText("<p>first</p>")
	first, err := rc.Tree(false)
	require.NoError(t, err)

	cached, err := rc.Tree(false)
	require.NoError(t, err)
	assert.Same(t, first, cached)

	rebuilt, err := rc.Tree(true)
	require.NoError(t, err)
	assert.NotSame(t, first, rebuilt)

	rc.SetText("<p>second</p>")
	fresh, err := rc.Tree(false)
	require.NoError(t, err)
	assert.NotSame(t, rebuilt, fresh)

	frags, err := fresh.XPath("//p")
	require.NoError(t, err)
	require.Len(t, frags, 1)
	assert.Equal(t, "second", frags[0].Text())
}

func TestContext_RecordErrorOverwrites(t *testing.T) {
	rc := NewContext("", nil)

	rc.RecordError("first", "error")
	rc.RecordError("second", "bad_status")

	assert.Equal(t, "second", rc.Variables[VarError])
	assert.Equal(t, "bad_status", rc.Variables[VarErrorType])
}

func TestContext_SessionWithoutSource(t *testing.T) {
	rc := NewContext("", nil)

	_, err := rc.Session(context.Background())
	assert.True(t, errors.Is(err, ErrNoSession))
}

type countingObserver struct {
	steps     int
	responses []int
}

func (o *countingObserver) ObserveStep(string, time.Duration, error) { o.steps++ }
func (o *countingObserver) ObserveResponse(code int)                 { o.responses = append(o.responses, code) }

func TestContext_Observer(t *testing.T) {
	rc := NewContext("", nil)

	// без наблюдателя вызовы безопасны
	rc.ObserveStep("get", time.Millisecond, nil)
	rc.ObserveResponse(200)

	obs := &countingObserver{}
	rc.Observer = obs
	rc.ObserveStep("get", time.Millisecond, nil)
	rc.ObserveResponse(404)

	assert.Equal(t, 1, obs.steps)
	assert.Equal(t, []int{404}, obs.responses)
}
