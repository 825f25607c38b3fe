package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hiroki-koketsu/todo-service/internal/model"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type memoryEntry struct {
	todo model.Todo
	seq  uint64
}

// MemoryRepository provides an in-memory storage for todos.
type MemoryRepository struct {
	mu    sync.RWMutex
	todos map[primitive.ObjectID]*memoryEntry
	seq   uint64
	now   func() time.Time
}

// NewMemoryRepository creates a new MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		todos: make(map[primitive.ObjectID]*memoryEntry),
		now:   storeNow,
	}
}

// storeNow matches the millisecond precision of BSON dates.
func storeNow() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// Create adds a new todo to the repository.
func (r *MemoryRepository) Create(ctx context.Context, req *model.CreateTodoRequest) (*model.Todo, error) {
	ctx, span := tracer.Start(ctx, "MemoryRepository.Create")
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.seq++
	e := &memoryEntry{
		todo: model.Todo{
			ID:        primitive.NewObjectID(),
			Text:      *req.Text,
			Completed: false,
			Deadline:  req.DeadlineValue(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		seq: r.seq,
	}
	r.todos[e.todo.ID] = e

	span.SetAttributes(attribute.String("todo.id", e.todo.ID.Hex()))
	return e.clone(), nil
}

// GetByID retrieves a todo by its ID.
func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*model.Todo, error) {
	ctx, span := tracer.Start(ctx, "MemoryRepository.GetByID",
		trace.WithAttributes(attribute.String("todo.id", id)),
	)
	defer span.End()

	r.mu.RLock()
	defer r.mu.RUnlock()

	e, err := r.lookup(id)
	if err != nil {
		span.SetAttributes(attribute.Bool("todo.found", false))
		return nil, err
	}

	span.SetAttributes(attribute.Bool("todo.found", true))
	return e.clone(), nil
}

// List returns all todos in the repository, newest first.
func (r *MemoryRepository) List(ctx context.Context) ([]*model.Todo, error) {
	ctx, span := tracer.Start(ctx, "MemoryRepository.List")
	defer span.End()

	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*memoryEntry, 0, len(r.todos))
	for _, e := range r.todos {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.todo.CreatedAt.Equal(b.todo.CreatedAt) {
			return a.todo.CreatedAt.After(b.todo.CreatedAt)
		}
		return a.seq > b.seq
	})

	todos := make([]*model.Todo, 0, len(entries))
	for _, e := range entries {
		todos = append(todos, e.clone())
	}

	span.SetAttributes(attribute.Int("todo.count", len(todos)))
	return todos, nil
}

// Update modifies an existing todo.
func (r *MemoryRepository) Update(ctx context.Context, id string, req *model.UpdateTodoRequest) (*model.Todo, error) {
	ctx, span := tracer.Start(ctx, "MemoryRepository.Update",
		trace.WithAttributes(attribute.String("todo.id", id)),
	)
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.lookup(id)
	if err != nil {
		span.SetAttributes(attribute.Bool("todo.found", false))
		return nil, err
	}

	if req.Text.Set {
		e.todo.Text = *req.Text.Value
	}
	if req.Completed.Set {
		e.todo.Completed = req.Completed.Value
	}
	if req.Deadline.Set {
		e.todo.Deadline = req.Deadline.Time
	}
	e.todo.UpdatedAt = r.now()

	span.SetAttributes(attribute.Bool("todo.found", true))
	return e.clone(), nil
}

// Toggle flips the completed flag of a todo.
func (r *MemoryRepository) Toggle(ctx context.Context, id string) (*model.Todo, error) {
	ctx, span := tracer.Start(ctx, "MemoryRepository.Toggle",
		trace.WithAttributes(attribute.String("todo.id", id)),
	)
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.lookup(id)
	if err != nil {
		span.SetAttributes(attribute.Bool("todo.found", false))
		return nil, err
	}

	e.todo.Completed = !e.todo.Completed
	e.todo.UpdatedAt = r.now()

	span.SetAttributes(
		attribute.Bool("todo.found", true),
		attribute.Bool("todo.completed", e.todo.Completed),
	)
	return e.clone(), nil
}

// Delete removes a todo from the repository.
func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "MemoryRepository.Delete",
		trace.WithAttributes(attribute.String("todo.id", id)),
	)
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.lookup(id)
	if err != nil {
		span.SetAttributes(attribute.Bool("todo.found", false))
		return err
	}

	delete(r.todos, e.todo.ID)
	span.SetAttributes(attribute.Bool("todo.found", true))
	return nil
}

// DeleteCompleted removes every completed todo.
func (r *MemoryRepository) DeleteCompleted(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "MemoryRepository.DeleteCompleted")
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, e := range r.todos {
		if e.todo.Completed {
			delete(r.todos, id)
			n++
		}
	}

	span.SetAttributes(attribute.Int64("todo.deleted", n))
	return n, nil
}

// Count returns the current number of todos.
func (r *MemoryRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.todos)), nil
}

func (r *MemoryRepository) lookup(id string) (*memoryEntry, error) {
	oid, err := model.ParseID(id)
	if err != nil {
		return nil, err
	}
	e, ok := r.todos[oid]
	if !ok {
		return nil, model.ErrTodoNotFound
	}
	return e, nil
}

func (e *memoryEntry) clone() *model.Todo {
	t := e.todo
	if t.Deadline != nil {
		d := *t.Deadline
		t.Deadline = &d
	}
	return &t
}
