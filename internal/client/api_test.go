package client_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hiroki-koketsu/todo-service/internal/client"
	"github.com/hiroki-koketsu/todo-service/internal/handler"
	"github.com/hiroki-koketsu/todo-service/internal/repository"
	"github.com/hiroki-koketsu/todo-service/internal/telemetry"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	repo := repository.NewMemoryRepository()
	metrics, err := telemetry.NewMetrics(noop.NewMeterProvider().Meter("test"), repo.Count)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(handler.NewRouter(handler.NewTodoHandler(repo, logger, metrics), []string{"*"}))
	t.Cleanup(srv.Close)
	return srv
}

func newAPI(t *testing.T, baseURL string) *client.API {
	t.Helper()
	api, err := client.NewAPI(baseURL, 5*time.Second, zerolog.Nop())
	require.NoError(t, err)
	return api
}

func statusOf(t *testing.T, err error) *client.StatusError {
	t.Helper()
	var se *client.StatusError
	require.ErrorAs(t, err, &se)
	return se
}

func TestNewAPIRejectsRelativeURL(t *testing.T) {
	_, err := client.NewAPI("/api", time.Second, zerolog.Nop())
	assert.Error(t, err)
}

func TestAPIRoundTrip(t *testing.T) {
	srv := newServer(t)
	api := newAPI(t, srv.URL+"/api/")
	ctx := context.Background()

	todos, err := api.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, todos)
	assert.Empty(t, todos)

	deadline := time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC)
	created, err := api.Create(ctx, "Buy milk", &deadline)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Buy milk", created.Text)
	assert.False(t, created.Completed)
	require.NotNil(t, created.Deadline)
	assert.True(t, deadline.Equal(*created.Deadline))

	got, err := api.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	edited, err := api.Edit(ctx, created.ID, client.EditRequest{Text: "Buy oat milk"})
	require.NoError(t, err)
	assert.Equal(t, "Buy oat milk", edited.Text)
	assert.Nil(t, edited.Deadline)

	toggled, err := api.Toggle(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Completed)

	require.NoError(t, api.Delete(ctx, created.ID))

	_, err = api.Get(ctx, created.ID)
	se := statusOf(t, err)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Equal(t, "Todo not found", se.Message)
}

func TestAPIClearCompleted(t *testing.T) {
	srv := newServer(t)
	api := newAPI(t, srv.URL+"/api")
	ctx := context.Background()

	for _, text := range []string{"a", "b", "c"} {
		todo, err := api.Create(ctx, text, nil)
		require.NoError(t, err)
		if text != "b" {
			_, err = api.Toggle(ctx, todo.ID)
			require.NoError(t, err)
		}
	}

	n, err := api.ClearCompleted(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	todos, err := api.List(ctx)
	require.NoError(t, err)
	require.Len(t, todos, 1)
	assert.Equal(t, "b", todos[0].Text)
}

func TestAPIErrors(t *testing.T) {
	srv := newServer(t)
	api := newAPI(t, srv.URL+"/api")
	ctx := context.Background()

	_, err := api.Create(ctx, "   ", nil)
	se := statusOf(t, err)
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Equal(t, "Todo text is required", se.Message)

	_, err = api.Toggle(ctx, "not-an-id")
	se = statusOf(t, err)
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Equal(t, "Invalid todo ID", se.Message)

	todo, err := api.Create(ctx, "x", nil)
	require.NoError(t, err)
	_, err = api.Edit(ctx, todo.ID, client.EditRequest{Text: ""})
	se = statusOf(t, err)
	assert.Equal(t, "Todo text cannot be empty", se.Message)
}

func TestAPIHealth(t *testing.T) {
	srv := newServer(t)
	api := newAPI(t, srv.URL+"/api")

	health, err := api.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "OK", health.Status)
	assert.Equal(t, "Server is running", health.Message)
}

func TestAPIFallbackMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newAPI(t, srv.URL).List(context.Background())
	se := statusOf(t, err)
	assert.Equal(t, http.StatusBadGateway, se.Code)
	assert.Equal(t, "Bad Gateway", se.Message)
}

func TestAPISendsRequestID(t *testing.T) {
	var (
		mu  sync.Mutex
		ids []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		ids = append(ids, r.Header.Get("X-Request-Id"))
		mu.Unlock()
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"success":true,"count":0,"data":[]}`)
	}))
	defer srv.Close()

	api := newAPI(t, srv.URL)
	for i := 0; i < 2; i++ {
		_, err := api.List(context.Background())
		require.NoError(t, err)
	}

	require.Len(t, ids, 2)
	assert.NotEmpty(t, ids[0])
	assert.NotEqual(t, ids[0], ids[1])
}

func TestAPIUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newAPI(t, url).List(context.Background())
	require.Error(t, err)
	var se *client.StatusError
	assert.NotErrorAs(t, err, &se)
}
