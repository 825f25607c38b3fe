package repository

import (
	"context"

	"github.com/hiroki-koketsu/todo-service/internal/model"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/hiroki-koketsu/todo-service/internal/repository")

// Repository is the persistence contract for todos. Implementations return
// *model.Error values so callers can switch on model.KindOf.
type Repository interface {
	// List returns all todos, newest first.
	List(ctx context.Context) ([]*model.Todo, error)
	GetByID(ctx context.Context, id string) (*model.Todo, error)
	// Create stores a validated request; completed always starts false.
	Create(ctx context.Context, req *model.CreateTodoRequest) (*model.Todo, error)
	// Update applies the fields present in a validated request.
	Update(ctx context.Context, id string, req *model.UpdateTodoRequest) (*model.Todo, error)
	// Toggle flips completed and returns the updated todo.
	Toggle(ctx context.Context, id string) (*model.Todo, error)
	Delete(ctx context.Context, id string) error
	// DeleteCompleted removes every completed todo and reports how many.
	DeleteCompleted(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, error)
}
