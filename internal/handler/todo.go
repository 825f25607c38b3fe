package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hiroki-koketsu/todo-service/internal/model"
	"github.com/hiroki-koketsu/todo-service/internal/repository"
	"github.com/hiroki-koketsu/todo-service/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/hiroki-koketsu/todo-service/internal/handler")

const (
	routeTodos  = "/api/todos"
	routeTodo   = "/api/todos/{id}"
	routeToggle = "/api/todos/{id}/toggle"
)

// TodoHandler handles HTTP requests for todos.
type TodoHandler struct {
	repo    repository.Repository
	logger  *slog.Logger
	metrics *telemetry.Metrics
}

// NewTodoHandler creates a new TodoHandler.
func NewTodoHandler(repo repository.Repository, logger *slog.Logger, metrics *telemetry.Metrics) *TodoHandler {
	return &TodoHandler{
		repo:    repo,
		logger:  logger,
		metrics: metrics,
	}
}

// Routes returns the chi router with todo routes.
func (h *TodoHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Delete("/", h.DeleteCompleted)
	r.Get("/{id}", h.GetByID)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Patch("/{id}/toggle", h.Toggle)

	return r
}

// List returns all todos, newest first.
func (h *TodoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	ctx, span := tracer.Start(ctx, "TodoHandler.List")
	defer span.End()

	h.logger.InfoContext(ctx, "listing all todos")

	todos, err := h.repo.List(ctx)
	if err != nil {
		h.fail(ctx, w, span, err, http.MethodGet, routeTodos, start)
		return
	}

	count := len(todos)
	span.SetAttributes(attribute.Int("todo.count", count))
	h.logger.InfoContext(ctx, "todos listed", slog.Int("count", count))

	h.respondJSON(w, http.StatusOK, model.Envelope[any]{Success: true, Count: &count, Data: todos})
	h.recordMetrics(ctx, http.MethodGet, routeTodos, http.StatusOK, start)
}

// Create adds a new todo.
func (h *TodoHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	ctx, span := tracer.Start(ctx, "TodoHandler.Create")
	defer span.End()

	var req model.CreateTodoRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(ctx, w, span, err, http.MethodPost, routeTodos, start)
		return
	}

	if err := req.Validate(); err != nil {
		h.fail(ctx, w, span, err, http.MethodPost, routeTodos, start)
		return
	}

	h.logger.InfoContext(ctx, "creating todo", slog.String("text", *req.Text))

	todo, err := h.repo.Create(ctx, &req)
	if err != nil {
		h.fail(ctx, w, span, err, http.MethodPost, routeTodos, start)
		return
	}

	span.SetAttributes(attribute.String("todo.id", todo.ID.Hex()))
	h.logger.InfoContext(ctx, "todo created", slog.String("id", todo.ID.Hex()))

	h.respondJSON(w, http.StatusCreated, model.Envelope[any]{Success: true, Data: todo})
	h.recordMetrics(ctx, http.MethodPost, routeTodos, http.StatusCreated, start)
}

// GetByID returns a todo by ID.
func (h *TodoHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	id := chi.URLParam(r, "id")

	ctx, span := tracer.Start(ctx, "TodoHandler.GetByID",
		trace.WithAttributes(attribute.String("todo.id", id)),
	)
	defer span.End()

	h.logger.InfoContext(ctx, "getting todo", slog.String("id", id))

	todo, err := h.repo.GetByID(ctx, id)
	if err != nil {
		h.fail(ctx, w, span, err, http.MethodGet, routeTodo, start)
		return
	}

	h.respondJSON(w, http.StatusOK, model.Envelope[any]{Success: true, Data: todo})
	h.recordMetrics(ctx, http.MethodGet, routeTodo, http.StatusOK, start)
}

// Update modifies the text, completion flag or deadline of a todo.
func (h *TodoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	id := chi.URLParam(r, "id")

	ctx, span := tracer.Start(ctx, "TodoHandler.Update",
		trace.WithAttributes(attribute.String("todo.id", id)),
	)
	defer span.End()

	var req model.UpdateTodoRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(ctx, w, span, err, http.MethodPut, routeTodo, start)
		return
	}

	if err := req.Validate(); err != nil {
		h.fail(ctx, w, span, err, http.MethodPut, routeTodo, start)
		return
	}

	h.logger.InfoContext(ctx, "updating todo", slog.String("id", id))

	todo, err := h.repo.Update(ctx, id, &req)
	if err != nil {
		h.fail(ctx, w, span, err, http.MethodPut, routeTodo, start)
		return
	}

	h.logger.InfoContext(ctx, "todo updated", slog.String("id", id))

	h.respondJSON(w, http.StatusOK, model.Envelope[any]{Success: true, Data: todo})
	h.recordMetrics(ctx, http.MethodPut, routeTodo, http.StatusOK, start)
}

// Toggle flips the completion flag of a todo. The request body is ignored.
func (h *TodoHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	id := chi.URLParam(r, "id")

	ctx, span := tracer.Start(ctx, "TodoHandler.Toggle",
		trace.WithAttributes(attribute.String("todo.id", id)),
	)
	defer span.End()

	todo, err := h.repo.Toggle(ctx, id)
	if err != nil {
		h.fail(ctx, w, span, err, http.MethodPatch, routeToggle, start)
		return
	}

	h.logger.InfoContext(ctx, "todo toggled",
		slog.String("id", id),
		slog.Bool("completed", todo.Completed),
	)

	h.respondJSON(w, http.StatusOK, model.Envelope[any]{Success: true, Data: todo})
	h.recordMetrics(ctx, http.MethodPatch, routeToggle, http.StatusOK, start)
}

// Delete removes a todo.
func (h *TodoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	id := chi.URLParam(r, "id")

	ctx, span := tracer.Start(ctx, "TodoHandler.Delete",
		trace.WithAttributes(attribute.String("todo.id", id)),
	)
	defer span.End()

	h.logger.InfoContext(ctx, "deleting todo", slog.String("id", id))

	if err := h.repo.Delete(ctx, id); err != nil {
		h.fail(ctx, w, span, err, http.MethodDelete, routeTodo, start)
		return
	}

	h.logger.InfoContext(ctx, "todo deleted", slog.String("id", id))

	h.respondJSON(w, http.StatusOK, model.Envelope[any]{
		Success: true,
		Data:    struct{}{},
		Message: "Todo deleted successfully",
	})
	h.recordMetrics(ctx, http.MethodDelete, routeTodo, http.StatusOK, start)
}

// DeleteCompleted removes every completed todo.
func (h *TodoHandler) DeleteCompleted(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	ctx, span := tracer.Start(ctx, "TodoHandler.DeleteCompleted")
	defer span.End()

	n, err := h.repo.DeleteCompleted(ctx)
	if err != nil {
		h.fail(ctx, w, span, err, http.MethodDelete, routeTodos, start)
		return
	}

	span.SetAttributes(attribute.Int64("todo.deleted", n))
	h.logger.InfoContext(ctx, "completed todos deleted", slog.Int64("count", n))

	h.respondJSON(w, http.StatusOK, model.Envelope[any]{
		Success: true,
		Data:    model.DeleteCompletedResult{DeletedCount: n},
		Message: fmt.Sprintf("%d completed todo(s) deleted successfully", n),
	})
	h.recordMetrics(ctx, http.MethodDelete, routeTodos, http.StatusOK, start)
}

// Health returns a health check response.
func (h *TodoHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, model.Health{Status: "OK", Message: "Server is running"})
}

// NotFound answers requests for unknown routes.
func (h *TodoHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.logger.WarnContext(r.Context(), "route not found", slog.String("path", r.URL.Path))
	h.respondError(w, http.StatusNotFound, "Route not found")
}

// MethodNotAllowed answers requests with an unsupported method.
func (h *TodoHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.logger.WarnContext(r.Context(), "method not allowed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
	h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// fail maps err to a status code, logs it and writes the error envelope.
func (h *TodoHandler) fail(ctx context.Context, w http.ResponseWriter, span trace.Span, err error, method, route string, start time.Time) {
	var status int
	switch kind := model.KindOf(err); kind {
	case model.KindValidation, model.KindInvalidID:
		status = http.StatusBadRequest
		h.logger.WarnContext(ctx, "bad request", slog.String("kind", kind.String()), slog.Any("error", err))
	case model.KindNotFound:
		status = http.StatusNotFound
		h.logger.WarnContext(ctx, "todo not found", slog.Any("error", err))
	case model.KindStore:
		status = http.StatusInternalServerError
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.logger.ErrorContext(ctx, "store failure", slog.Any("error", err))
	default:
		panic(fmt.Sprintf("unhandled error kind %v", kind))
	}

	h.respondError(w, status, err.Error())
	h.recordMetrics(ctx, method, route, status, start)
}

func (h *TodoHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			h.logger.Error("failed to encode response", slog.Any("error", err))
		}
	}
}

func (h *TodoHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, model.Envelope[any]{Success: false, Error: message})
}

func (h *TodoHandler) recordMetrics(ctx context.Context, method, route string, status int, start time.Time) {
	duration := time.Since(start).Seconds()

	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	)

	h.metrics.RequestCounter.Add(ctx, 1, attrs)
	h.metrics.RequestDuration.Record(ctx, duration, attrs)
}

// decodeBody reads a JSON body. An empty body decodes as {}.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return model.Validation("Invalid request body: "+err.Error(), err)
}
