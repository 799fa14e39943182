package steps

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/SpiderChef/internal/engine"
	"github.com/shaiso/SpiderChef/internal/transport"
)

func newFetchContext(t *testing.T, handler http.HandlerFunc) *engine.Context {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	session, err := transport.NewSession(transport.Config{BaseURL: srv.URL})
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	return engine.NewContext(srv.URL, nil).WithSessions(staticSessions{session: session})
}

func TestFetchStep_Text(t *testing.T) {
	rc := newFetchContext(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/hello", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("page"))
		w.Write([]byte("<h1>hi</h1>"))
	})
	rc.Variables["page"] = 3

	step := build(t, DefaultRegistry(), Definition{
		"type":   "fetch",
		"path":   "/hello",
		"params": map[string]any{"page": "${page}"},
	})
	assert.Equal(t, ModeSuspending, step.Mode())

	out := run(t, rc, step, nil)
	assert.Equal(t, "<h1>hi</h1>", out)

	text, ok := rc.Text()
	assert.True(t, ok)
	assert.Equal(t, "<h1>hi</h1>", text)
}

func TestFetchStep_JSON(t *testing.T) {
	rc := newFetchContext(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[{"id":1},{"id":2}]}`))
	})

	steps, err := DefaultRegistry().BuildList([]any{
		map[string]any{"type": "fetch", "path": "/api", "return_type": "json"},
		map[string]any{"type": "get", "expression": "items[].id", "use_previous_output": false},
	})
	require.NoError(t, err)

	out, err := Run(context.Background(), rc, steps, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{float64(1), float64(2)}, out)
}

func TestFetchStep_AssignToBaseFalse(t *testing.T) {
	rc := newFetchContext(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"a":1}`))
	})
	rc.SetText("previous")

	step := build(t, DefaultRegistry(), Definition{
		"type":           "fetch",
		"return_type":    "json",
		"assign_to_base": false,
	})

	assert.Equal(t, map[string]any{"a": float64(1)}, run(t, rc, step, nil))
	text, _ := rc.Text()
	assert.Equal(t, "previous", text)
	assert.Nil(t, rc.JSON())
}

func TestFetchStep_BadStatus(t *testing.T) {
	rc := newFetchContext(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	step := build(t, DefaultRegistry(), Definition{"type": "fetch", "path": "/missing"})
	_, err := Execute(context.Background(), rc, step, nil)
	require.Error(t, err)

	var statusErr *transport.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, KindBadStatus, ErrorKind(err))

	allowed := build(t, DefaultRegistry(), Definition{"type": "fetch", "path": "/missing", "ok_status_codes": []any{200, 404}})
	assert.Equal(t, "", run(t, rc, allowed, nil))
}

func TestFetchStep_PostBodies(t *testing.T) {
	var contentType, body string
	rc := newFetchContext(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		contentType = r.Header.Get("Content-Type")
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
	})
	r := DefaultRegistry()

	run(t, rc, build(t, r, Definition{"type": "fetch", "method": "POST", "data": map[string]any{"q": "x"}}), nil)
	assert.Contains(t, contentType, "application/x-www-form-urlencoded")
	assert.Equal(t, "q=x", body)

	run(t, rc, build(t, r, Definition{"type": "fetch", "method": "POST", "data": "raw-body"}), nil)
	assert.Equal(t, "raw-body", body)

	run(t, rc, build(t, r, Definition{"type": "fetch", "method": "post", "json_data": map[string]any{"k": "v"}}), nil)
	assert.Contains(t, contentType, "application/json")
	assert.JSONEq(t, `{"k":"v"}`, body)

	run(t, rc, build(t, r, Definition{"type": "fetch", "method": "POST"}), nil)
	assert.JSONEq(t, `{}`, body)
}

func TestFetchStep_ResponseReturnType(t *testing.T) {
	rc := newFetchContext(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Custom", "yes")
		w.Write([]byte("body"))
	})

	step := build(t, DefaultRegistry(), Definition{"type": "fetch", "return_type": "response"})
	out := run(t, rc, step, nil).(map[string]any)

	assert.Equal(t, http.StatusOK, out["status_code"])
	assert.Equal(t, "body", out["text"])
	assert.Equal(t, "yes", out["headers"].(map[string]any)["X-Custom"])
}

func TestFetchStep_InvalidConfig(t *testing.T) {
	r := DefaultRegistry()

	_, err := r.Build(Definition{"type": "fetch", "method": "DELETE"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = r.Build(Definition{"type": "fetch", "return_type": "xml"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = r.Build(Definition{"type": "fetch", "timeout": 0})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestFetchStep_NoSession(t *testing.T) {
	step := build(t, DefaultRegistry(), Definition{"type": "fetch"})

	_, err := Execute(context.Background(), newTestContext(), step, nil)
	assert.ErrorIs(t, err, engine.ErrNoSession)
}

func TestSleepStep(t *testing.T) {
	r := DefaultRegistry()

	step := build(t, r, Definition{"type": "sleep", "timeout": 0.05})
	assert.Equal(t, ModeSuspending, step.Mode())

	start := time.Now()
	assert.Equal(t, "keep", run(t, newTestContext(), step, "keep"))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	_, err := r.Build(Definition{"type": "sleep", "timeout": -1})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSleepStep_Cancelled(t *testing.T) {
	step := build(t, DefaultRegistry(), Definition{"type": "sleep", "timeout": 10})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Execute(ctx, newTestContext(), step, nil)
	assert.ErrorIs(t, err, ErrStepCancelled)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&engine.UnresolvedVariableError{Name: "x", Token: "${x}"}, KindUnresolvedVariable},
		{engine.ErrMissingValue, KindMissingValue},
		{engine.ErrConversion, KindConversion},
		{&transport.StatusError{StatusCode: 500}, KindBadStatus},
		{invalidField("get", "expression", "is required"), KindInvalidConfig},
		{ErrStepCancelled, KindCancelled},
		{context.Canceled, KindCancelled},
		{transport.ErrRequest, KindTransport},
		{ErrInvalidInput, KindInvalidInput},
		{errors.New("other"), KindError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorKind(tt.err))
	}
}
