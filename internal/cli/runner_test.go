package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
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

type harness struct {
	runner *Runner
	out    *bytes.Buffer
	errOut *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	repo := repository.NewMemoryRepository()
	metrics, err := telemetry.NewMetrics(noop.NewMeterProvider().Meter("test"), repo.Count)
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(handler.NewRouter(handler.NewTodoHandler(repo, logger, metrics), []string{"*"}))
	t.Cleanup(srv.Close)

	api, err := client.NewAPI(srv.URL+"/api", 5*time.Second, zerolog.Nop())
	require.NoError(t, err)

	h := &harness{out: &bytes.Buffer{}, errOut: &bytes.Buffer{}}
	h.runner = &Runner{
		API:   api,
		Store: client.NewStore(api, zerolog.Nop()),
		Out:   h.out,
		Err:   h.errOut,
		Now:   func() time.Time { return time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC) },
	}
	return h
}

// run executes args and returns the exit code; output buffers are reset first.
func (h *harness) run(args ...string) int {
	h.out.Reset()
	h.errOut.Reset()
	return h.runner.Run(context.Background(), args)
}

func TestRunUsage(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, 2, h.run())
	assert.Contains(t, h.out.String(), "Subcommands:")

	assert.Equal(t, 0, h.run("help"))

	assert.Equal(t, 2, h.run("frobnicate"))
	assert.Contains(t, h.errOut.String(), "unknown subcommand: frobnicate")

	assert.Equal(t, 2, h.run("add"))
	assert.Equal(t, 2, h.run("done"))
	assert.Equal(t, 2, h.run("done", "x"))
	assert.Contains(t, h.errOut.String(), "not a number")
	assert.Equal(t, 2, h.run("due", "1", "someday"))
}

func TestRunAddListAndToggle(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, 0, h.run("add", "Buy", "milk"))
	assert.Contains(t, h.out.String(), "added")
	require.Equal(t, 0, h.run("add", "--due", "2029-06-01", "Pay", "rent"))

	require.Equal(t, 0, h.run("ls"))
	out := h.out.String()
	assert.Contains(t, out, "Buy milk")
	assert.Contains(t, out, "due 2029-06-01 overdue")
	assert.Contains(t, out, "Total 2")

	require.Equal(t, 0, h.run("done", "2"))
	require.Equal(t, 0, h.run("ls"))
	assert.Contains(t, h.out.String(), "] 1/2")
}

func TestRunEditDueAndRemove(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, 0, h.run("add", "--due", "2031-02-03", "draft"))

	require.Equal(t, 0, h.run("edit", "1", "final", "copy"))
	todos := h.runner.Store.Todos()
	require.Len(t, todos, 1)
	assert.Equal(t, "final copy", todos[0].Text)
	require.NotNil(t, todos[0].Deadline)

	require.Equal(t, 0, h.run("due", "1", "-"))
	assert.Nil(t, h.runner.Store.Todos()[0].Deadline)

	assert.Equal(t, 2, h.run("rm", "5"))
	assert.Contains(t, h.errOut.String(), "index out of range: have 1, got 5")

	require.Equal(t, 0, h.run("rm", "1"))
	require.Equal(t, 0, h.run("ls"))
	assert.Contains(t, h.out.String(), "no todos")
}

func TestRunClear(t *testing.T) {
	h := newHarness(t)
	for _, text := range []string{"a", "b", "c"} {
		require.Equal(t, 0, h.run("add", text))
	}
	require.Equal(t, 0, h.run("done", "1"))
	require.Equal(t, 0, h.run("done", "2"))

	require.Equal(t, 0, h.run("clear"))
	assert.Contains(t, h.out.String(), "2 completed todo(s) removed")
	assert.Len(t, h.runner.Store.Todos(), 1)
}

func TestRunClearReportsServerCount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// Completed by another client; this runner never loaded them.
	for _, text := range []string{"a", "b"} {
		todo, err := h.runner.API.Create(ctx, text, nil)
		require.NoError(t, err)
		_, err = h.runner.API.Toggle(ctx, todo.ID)
		require.NoError(t, err)
	}

	require.Equal(t, 0, h.run("clear"))
	assert.Contains(t, h.out.String(), "2 completed todo(s) removed")
}

func TestRunEmptyText(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, 2, h.run("add", "  "))
	assert.Contains(t, h.errOut.String(), "add: empty text")
}

func TestRunServiceDown(t *testing.T) {
	h := newHarness(t)
	api, err := client.NewAPI("http://127.0.0.1:1/api", time.Second, zerolog.Nop())
	require.NoError(t, err)
	h.runner.API = api
	h.runner.Store = client.NewStore(api, zerolog.Nop())

	assert.Equal(t, 1, h.run("ls"))
	assert.Contains(t, h.errOut.String(), client.MsgLoadFailed)

	assert.Equal(t, 1, h.run("health"))
}

func TestRunHealth(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, 0, h.run("health"))
	assert.Contains(t, h.out.String(), "OK: Server is running")
}
