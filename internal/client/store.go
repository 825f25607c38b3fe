package client

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/hiroki-koketsu/todo-service/internal/logging"
)

// User-facing failure messages.
const (
	MsgLoadFailed   = "Failed to load todos. Make sure the server is running."
	MsgAddFailed    = "Failed to add todo"
	MsgToggleFailed = "Failed to update todo"
	MsgEditFailed   = "Failed to edit todo"
	MsgDeleteFailed = "Failed to delete todo"
	MsgClearFailed  = "Failed to clear completed todos"
)

// ErrEmptyText is returned by Add for whitespace-only input. No request is
// made.
var ErrEmptyText = errors.New("todo text is empty")

// Service is the part of the API the Store needs.
type Service interface {
	List(ctx context.Context) ([]Todo, error)
	Create(ctx context.Context, text string, deadline *time.Time) (Todo, error)
	Toggle(ctx context.Context, id string) (Todo, error)
	Edit(ctx context.Context, id string, req EditRequest) (Todo, error)
	Delete(ctx context.Context, id string) error
	ClearCompleted(ctx context.Context) (int64, error)
}

// Store holds the client's list of todos. The list changes only after a
// successful round trip; a failure records the last error and leaves the list
// untouched. Any successful call clears the last error.
//
// The mutex guards state only while a result is applied, never across a
// network call, so concurrent actions run concurrent requests.
type Store struct {
	svc    Service
	logger logging.Logger

	mu      sync.RWMutex
	todos   []Todo
	lastErr string
}

// NewStore creates an empty Store backed by svc.
func NewStore(svc Service, logger logging.Logger) *Store {
	return &Store{svc: svc, logger: logger, todos: []Todo{}}
}

// Todos returns a snapshot of the list.
func (s *Store) Todos() []Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Todo, len(s.todos))
	copy(out, s.todos)
	return out
}

// Stats derives the counters from the current list.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ComputeStats(s.todos)
}

// LastError returns the most recent user-facing failure, or "".
func (s *Store) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Load replaces the list with the server's. On failure the list is emptied.
func (s *Store) Load(ctx context.Context) error {
	todos, err := s.svc.List(ctx)
	if err != nil {
		s.apply(func([]Todo) []Todo { return []Todo{} })
		return s.failed(MsgLoadFailed, "Error loading todos", err)
	}
	s.succeeded(func([]Todo) []Todo { return todos })
	return nil
}

// Add creates a todo and appends it to the list.
func (s *Store) Add(ctx context.Context, text string, deadline *time.Time) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}
	created, err := s.svc.Create(ctx, text, deadline)
	if err != nil {
		return s.failed(MsgAddFailed, "Error adding todo", err)
	}
	s.succeeded(func(todos []Todo) []Todo { return Append(todos, created) })
	return nil
}

// Toggle flips a todo on the server and patches its completed flag.
func (s *Store) Toggle(ctx context.Context, id string) error {
	updated, err := s.svc.Toggle(ctx, id)
	if err != nil {
		return s.failed(MsgToggleFailed, "Error toggling todo", err)
	}
	s.succeeded(func(todos []Todo) []Todo { return PatchCompleted(todos, updated) })
	return nil
}

// Edit sends new text and deadline and patches them locally.
func (s *Store) Edit(ctx context.Context, id, text string, deadline *time.Time) error {
	updated, err := s.svc.Edit(ctx, id, EditRequest{Text: strings.TrimSpace(text), Deadline: deadline})
	if err != nil {
		return s.failed(MsgEditFailed, "Error editing todo", err)
	}
	s.succeeded(func(todos []Todo) []Todo { return PatchEdit(todos, updated) })
	return nil
}

// Delete removes a todo on the server and then locally.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.svc.Delete(ctx, id); err != nil {
		return s.failed(MsgDeleteFailed, "Error deleting todo", err)
	}
	s.succeeded(func(todos []Todo) []Todo { return Remove(todos, id) })
	return nil
}

// ClearCompleted removes every completed todo on the server and then locally.
// It returns the number the server deleted, which may differ from the local
// count when another client changed the list.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	n, err := s.svc.ClearCompleted(ctx)
	if err != nil {
		return 0, s.failed(MsgClearFailed, "Error clearing completed", err)
	}
	s.succeeded(RemoveCompleted)
	return n, nil
}

func (s *Store) apply(fn func([]Todo) []Todo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.todos = fn(s.todos)
}

func (s *Store) succeeded(fn func([]Todo) []Todo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.todos = fn(s.todos)
	s.lastErr = ""
}

func (s *Store) failed(msg, logMsg string, err error) error {
	s.logger.Error().Err(err).Msg(logMsg)

	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()

	return &ActionError{Message: msg, Err: err}
}

// ActionError is a failed Store action: a user-facing message plus the cause.
type ActionError struct {
	Message string
	Err     error
}

func (e *ActionError) Error() string { return e.Message + ": " + e.Err.Error() }

func (e *ActionError) Unwrap() error { return e.Err }
