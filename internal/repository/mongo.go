package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hiroki-koketsu/todo-service/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Connect opens a MongoDB client for uri and verifies the connection with a
// ping. Commands are traced through otelmongo.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, errors.New("mongodb uri is empty")
	}

	opts := options.Client().
		ApplyURI(uri).
		SetMonitor(otelmongo.NewMonitor())

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return client, nil
}

// MongoRepository stores todos in a MongoDB collection.
type MongoRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewMongoRepository creates a MongoRepository over the given collection.
func NewMongoRepository(coll *mongo.Collection) *MongoRepository {
	return &MongoRepository{coll: coll, now: storeNow}
}

// EnsureIndexes creates the index backing the newest-first listing.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create createdAt index: %w", err)
	}
	return nil
}

// List returns all todos, newest first.
func (r *MongoRepository) List(ctx context.Context) ([]*model.Todo, error) {
	ctx, span := tracer.Start(ctx, "MongoRepository.List")
	defer span.End()

	opts := options.Find().SetSort(bson.D{
		{Key: "createdAt", Value: -1},
		{Key: "_id", Value: -1},
	})
	cur, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, model.StoreError(fmt.Errorf("find todos: %w", err))
	}
	defer cur.Close(ctx)

	todos := make([]*model.Todo, 0)
	if err := cur.All(ctx, &todos); err != nil {
		return nil, model.StoreError(fmt.Errorf("decode todos: %w", err))
	}

	span.SetAttributes(attribute.Int("todo.count", len(todos)))
	return todos, nil
}

// GetByID retrieves a todo by its ID.
func (r *MongoRepository) GetByID(ctx context.Context, id string) (*model.Todo, error) {
	ctx, span := tracer.Start(ctx, "MongoRepository.GetByID",
		trace.WithAttributes(attribute.String("todo.id", id)),
	)
	defer span.End()

	oid, err := model.ParseID(id)
	if err != nil {
		return nil, err
	}

	var todo model.Todo
	if err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&todo); err != nil {
		return nil, r.notFound(span, err, "find todo")
	}

	span.SetAttributes(attribute.Bool("todo.found", true))
	return &todo, nil
}

// Create inserts a new todo.
func (r *MongoRepository) Create(ctx context.Context, req *model.CreateTodoRequest) (*model.Todo, error) {
	ctx, span := tracer.Start(ctx, "MongoRepository.Create")
	defer span.End()

	now := r.now()
	todo := &model.Todo{
		ID:        primitive.NewObjectID(),
		Text:      *req.Text,
		Completed: false,
		Deadline:  req.DeadlineValue(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := r.coll.InsertOne(ctx, todo); err != nil {
		return nil, model.StoreError(fmt.Errorf("insert todo: %w", err))
	}

	span.SetAttributes(attribute.String("todo.id", todo.ID.Hex()))
	return todo, nil
}

// Update applies the fields present in req.
func (r *MongoRepository) Update(ctx context.Context, id string, req *model.UpdateTodoRequest) (*model.Todo, error) {
	ctx, span := tracer.Start(ctx, "MongoRepository.Update",
		trace.WithAttributes(attribute.String("todo.id", id)),
	)
	defer span.End()

	oid, err := model.ParseID(id)
	if err != nil {
		return nil, err
	}

	set := bson.D{{Key: "updatedAt", Value: r.now()}}
	var unset bson.D
	if req.Text.Set {
		set = append(set, bson.E{Key: "text", Value: *req.Text.Value})
	}
	if req.Completed.Set {
		set = append(set, bson.E{Key: "completed", Value: req.Completed.Value})
	}
	if req.Deadline.Set {
		if req.Deadline.Time != nil {
			set = append(set, bson.E{Key: "deadline", Value: *req.Deadline.Time})
		} else {
			unset = append(unset, bson.E{Key: "deadline", Value: ""})
		}
	}

	update := bson.D{{Key: "$set", Value: set}}
	if len(unset) > 0 {
		update = append(update, bson.E{Key: "$unset", Value: unset})
	}

	return r.findOneAndUpdate(ctx, span, oid, update, "update todo")
}

// Toggle flips completed atomically with an aggregation pipeline update.
func (r *MongoRepository) Toggle(ctx context.Context, id string) (*model.Todo, error) {
	ctx, span := tracer.Start(ctx, "MongoRepository.Toggle",
		trace.WithAttributes(attribute.String("todo.id", id)),
	)
	defer span.End()

	oid, err := model.ParseID(id)
	if err != nil {
		return nil, err
	}

	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "completed", Value: bson.D{{Key: "$not", Value: bson.A{"$completed"}}}},
			{Key: "updatedAt", Value: r.now()},
		}}},
	}
	todo, err := r.findOneAndUpdate(ctx, span, oid, pipeline, "toggle todo")
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Bool("todo.completed", todo.Completed))
	return todo, nil
}

// Delete removes a todo by its ID.
func (r *MongoRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "MongoRepository.Delete",
		trace.WithAttributes(attribute.String("todo.id", id)),
	)
	defer span.End()

	oid, err := model.ParseID(id)
	if err != nil {
		return err
	}

	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return model.StoreError(fmt.Errorf("delete todo: %w", err))
	}
	if res.DeletedCount == 0 {
		span.SetAttributes(attribute.Bool("todo.found", false))
		return model.ErrTodoNotFound
	}

	span.SetAttributes(attribute.Bool("todo.found", true))
	return nil
}

// DeleteCompleted removes every completed todo.
func (r *MongoRepository) DeleteCompleted(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "MongoRepository.DeleteCompleted")
	defer span.End()

	res, err := r.coll.DeleteMany(ctx, bson.D{{Key: "completed", Value: true}})
	if err != nil {
		return 0, model.StoreError(fmt.Errorf("delete completed todos: %w", err))
	}

	span.SetAttributes(attribute.Int64("todo.deleted", res.DeletedCount))
	return res.DeletedCount, nil
}

// Count returns the current number of todos.
func (r *MongoRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.EstimatedDocumentCount(ctx)
	if err != nil {
		return 0, model.StoreError(fmt.Errorf("count todos: %w", err))
	}
	return n, nil
}

func (r *MongoRepository) findOneAndUpdate(ctx context.Context, span trace.Span, oid primitive.ObjectID, update any, op string) (*model.Todo, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var todo model.Todo
	err := r.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: oid}}, update, opts).Decode(&todo)
	if err != nil {
		return nil, r.notFound(span, err, op)
	}

	span.SetAttributes(attribute.Bool("todo.found", true))
	return &todo, nil
}

func (r *MongoRepository) notFound(span trace.Span, err error, op string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		span.SetAttributes(attribute.Bool("todo.found", false))
		return model.ErrTodoNotFound
	}
	return model.StoreError(fmt.Errorf("%s: %w", op, err))
}
