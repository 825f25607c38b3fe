package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hiroki-koketsu/todo-service/internal/logging"
	"github.com/hiroki-koketsu/todo-service/internal/model"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const requestIDHeader = "X-Request-Id"

// API is the single HTTP layer between the client and the todo service.
// Every call unwraps the response envelope; a failed call returns the
// envelope's error text.
type API struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     logging.Logger
}

// NewAPI creates an API for baseURL, e.g. http://localhost:3001/api.
func NewAPI(baseURL string, timeout time.Duration, logger logging.Logger) (*API, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api url %q must be absolute", baseURL)
	}
	return &API{
		baseURL: u,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}, nil
}

// EditRequest is the body sent by Edit. A nil Deadline clears the deadline.
type EditRequest struct {
	Text     string     `json:"text"`
	Deadline *time.Time `json:"deadline"`
}

// List returns every todo, newest first.
func (a *API) List(ctx context.Context) ([]Todo, error) {
	var todos []Todo
	if err := a.do(ctx, http.MethodGet, "todos", nil, &todos); err != nil {
		return nil, err
	}
	if todos == nil {
		todos = []Todo{}
	}
	return todos, nil
}

// Get returns one todo.
func (a *API) Get(ctx context.Context, id string) (Todo, error) {
	var todo Todo
	err := a.do(ctx, http.MethodGet, "todos/"+id, nil, &todo)
	return todo, err
}

// Create adds a todo with an optional deadline.
func (a *API) Create(ctx context.Context, text string, deadline *time.Time) (Todo, error) {
	body := struct {
		Text     string     `json:"text"`
		Deadline *time.Time `json:"deadline,omitempty"`
	}{Text: text, Deadline: deadline}

	var todo Todo
	err := a.do(ctx, http.MethodPost, "todos", body, &todo)
	return todo, err
}

// Edit replaces the text and deadline of a todo.
func (a *API) Edit(ctx context.Context, id string, req EditRequest) (Todo, error) {
	var todo Todo
	err := a.do(ctx, http.MethodPut, "todos/"+id, req, &todo)
	return todo, err
}

// Toggle flips the completion flag of a todo.
func (a *API) Toggle(ctx context.Context, id string) (Todo, error) {
	var todo Todo
	err := a.do(ctx, http.MethodPatch, "todos/"+id+"/toggle", nil, &todo)
	return todo, err
}

// Delete removes a todo.
func (a *API) Delete(ctx context.Context, id string) error {
	return a.do(ctx, http.MethodDelete, "todos/"+id, nil, nil)
}

// ClearCompleted removes every completed todo and returns how many went.
func (a *API) ClearCompleted(ctx context.Context) (int64, error) {
	var res model.DeleteCompletedResult
	if err := a.do(ctx, http.MethodDelete, "todos", nil, &res); err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Health checks that the service is up.
func (a *API) Health(ctx context.Context) (model.Health, error) {
	var health model.Health
	req, err := a.newRequest(ctx, http.MethodGet, "health", nil)
	if err != nil {
		return health, err
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return health, a.fail(req, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return health, a.fail(req, errors.New(http.StatusText(resp.StatusCode)))
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return health, a.fail(req, fmt.Errorf("decode health: %w", err))
	}
	return health, nil
}

// do sends a request and decodes the envelope's data into out.
func (a *API) do(ctx context.Context, method, path string, body, out any) error {
	req, err := a.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return a.fail(req, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return a.fail(req, fmt.Errorf("read response: %w", err))
	}

	var env model.RawEnvelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 400 {
			return a.fail(req, fmt.Errorf("decode response: %w", err))
		}
	}

	if resp.StatusCode >= 400 || !env.Success {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		if msg == "" {
			msg = "API request failed"
		}
		return a.fail(req, &StatusError{Code: resp.StatusCode, Message: msg})
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return a.fail(req, fmt.Errorf("decode data: %w", err))
		}
	}
	return nil
}

func (a *API) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL.JoinPath(path).String(), reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, uuid.NewString())
	return req, nil
}

func (a *API) fail(req *http.Request, err error) error {
	a.logger.Error().
		Err(err).
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("request_id", req.Header.Get(requestIDHeader)).
		Msg("API Error")
	return err
}

// StatusError is a non-2xx response from the service.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string { return e.Message }
