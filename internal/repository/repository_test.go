package repository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/hiroki-koketsu/todo-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func strPtr(s string) *string { return &s }

func create(t *testing.T, repo Repository, text string) *model.Todo {
	t.Helper()
	req := &model.CreateTodoRequest{Text: strPtr(text)}
	require.NoError(t, req.Validate())
	todo, err := repo.Create(context.Background(), req)
	require.NoError(t, err)
	return todo
}

// testRepository exercises the behaviour every Repository must share.
func testRepository(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()

	t.Run("create then get", func(t *testing.T) {
		repo := newRepo(t)
		created := create(t, repo, "  Trimmed Todo  ")

		got, err := repo.GetByID(ctx, created.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, "Trimmed Todo", got.Text)
		assert.False(t, got.Completed)
		assert.Nil(t, got.Deadline)
		assert.False(t, got.CreatedAt.IsZero())
		assert.Equal(t, got.CreatedAt, got.UpdatedAt)
	})

	t.Run("list newest first", func(t *testing.T) {
		repo := newRepo(t)
		empty, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, empty)

		first := create(t, repo, "Test Todo 1")
		second := create(t, repo, "Test Todo 2")

		todos, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, todos, 2)
		assert.Equal(t, second.ID, todos[0].ID)
		assert.Equal(t, first.ID, todos[1].ID)
	})

	t.Run("not found and invalid id", func(t *testing.T) {
		repo := newRepo(t)
		missing := primitive.NewObjectID().Hex()

		_, err := repo.GetByID(ctx, missing)
		assert.ErrorIs(t, err, model.ErrTodoNotFound)
		_, err = repo.GetByID(ctx, "invalid-id")
		assert.ErrorIs(t, err, model.ErrInvalidID)

		_, err = repo.Toggle(ctx, missing)
		assert.ErrorIs(t, err, model.ErrTodoNotFound)
		_, err = repo.Update(ctx, "invalid-id", &model.UpdateTodoRequest{})
		assert.ErrorIs(t, err, model.ErrInvalidID)

		assert.ErrorIs(t, repo.Delete(ctx, missing), model.ErrTodoNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, "invalid-id"), model.ErrInvalidID)
	})

	t.Run("update leaves omitted fields", func(t *testing.T) {
		repo := newRepo(t)
		todo := create(t, repo, "Original")

		deadline := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
		req := &model.UpdateTodoRequest{
			Completed: model.Truthy{Set: true, Value: true},
			Deadline:  model.NullableTime{Set: true, Time: &deadline},
		}
		updated, err := repo.Update(ctx, todo.ID.Hex(), req)
		require.NoError(t, err)
		assert.Equal(t, "Original", updated.Text)
		assert.True(t, updated.Completed)
		require.NotNil(t, updated.Deadline)
		assert.True(t, deadline.Equal(*updated.Deadline))
		assert.False(t, updated.UpdatedAt.Before(todo.UpdatedAt))

		updated, err = repo.Update(ctx, todo.ID.Hex(), &model.UpdateTodoRequest{
			Text:     model.StringOf("Updated"),
			Deadline: model.NullableTime{Set: true},
		})
		require.NoError(t, err)
		assert.Equal(t, "Updated", updated.Text)
		assert.True(t, updated.Completed)
		assert.Nil(t, updated.Deadline)
	})

	t.Run("toggle is an involution", func(t *testing.T) {
		repo := newRepo(t)
		todo := create(t, repo, "Flip me")

		once, err := repo.Toggle(ctx, todo.ID.Hex())
		require.NoError(t, err)
		assert.True(t, once.Completed)

		twice, err := repo.Toggle(ctx, todo.ID.Hex())
		require.NoError(t, err)
		assert.False(t, twice.Completed)
		assert.Equal(t, todo.Text, twice.Text)
	})

	t.Run("delete", func(t *testing.T) {
		repo := newRepo(t)
		todo := create(t, repo, "Delete me")

		require.NoError(t, repo.Delete(ctx, todo.ID.Hex()))
		_, err := repo.GetByID(ctx, todo.ID.Hex())
		assert.ErrorIs(t, err, model.ErrTodoNotFound)
	})

	t.Run("delete completed removes exactly the completed subset", func(t *testing.T) {
		repo := newRepo(t)
		n, err := repo.DeleteCompleted(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		a := create(t, repo, "Todo 1")
		b := create(t, repo, "Todo 2")
		c := create(t, repo, "Todo 3")
		for _, todo := range []*model.Todo{a, c} {
			_, err := repo.Toggle(ctx, todo.ID.Hex())
			require.NoError(t, err)
		}

		n, err = repo.DeleteCompleted(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		todos, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, todos, 1)
		assert.Equal(t, b.ID, todos[0].ID)
		assert.False(t, todos[0].Completed)

		count, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}

func TestMemoryRepository(t *testing.T) {
	testRepository(t, func(t *testing.T) Repository {
		return NewMemoryRepository()
	})
}

func TestMemoryRepositoryReturnsCopies(t *testing.T) {
	repo := NewMemoryRepository()
	todo := create(t, repo, "Original")
	todo.Text = "mutated"

	got, err := repo.GetByID(context.Background(), todo.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "Original", got.Text)
}

func TestMongoRepository(t *testing.T) {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := Connect(ctx, uri)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	db := client.Database("todo_service_test")
	testRepository(t, func(t *testing.T) Repository {
		coll := db.Collection(fmt.Sprintf("todos_%d", time.Now().UnixNano()))
		t.Cleanup(func() { _ = coll.Drop(context.Background()) })

		repo := NewMongoRepository(coll)
		require.NoError(t, repo.EnsureIndexes(ctx))
		return repo
	})
}
