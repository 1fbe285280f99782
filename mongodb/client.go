// Package mongodb implements domain.Store on MongoDB.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/v2/mongo/otelmongo"
	"go.pilab.hu/taskboard/domain"
)

// Store is a MongoDB backed domain.Store.
type Store struct {
	client *mongo.Client
	db     *mongo.Database

	users    *mongo.Collection
	projects *mongo.Collection
	apiKeys  *mongo.Collection
	clients  *mongo.Collection
	codes    *mongo.Collection
	tokens   *mongo.Collection
	tasks    *mongo.Collection
	labels   *mongo.Collection
	comments *mongo.Collection
}

var _ domain.Store = (*Store)(nil)

// Connect dials uri, verifies the primary and ensures indexes on dbName.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	if uri == "" || dbName == "" {
		return nil, errors.New("mongodb uri and database name must be provided")
	}

	log.Info().Str("database", dbName).Msg("Initializing MongoDB client")
	clientOptions := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetMonitor(otelmongo.NewMonitor())

	client, err := mongo.Connect(clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB primary: %w", err)
	}

	store := NewStore(client, client.Database(dbName))
	if err := store.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	log.Info().Msg("MongoDB client initialized successfully.")
	return store, nil
}

// NewStore wraps an existing database handle. client may be nil when the
// caller owns the connection.
func NewStore(client *mongo.Client, db *mongo.Database) *Store {
	return &Store{
		client:   client,
		db:       db,
		users:    db.Collection(UsersCollection),
		projects: db.Collection(ProjectsCollection),
		apiKeys:  db.Collection(APIKeysCollection),
		clients:  db.Collection(ClientsCollection),
		codes:    db.Collection(CodesCollection),
		tokens:   db.Collection(TokensCollection),
		tasks:    db.Collection(TasksCollection),
		labels:   db.Collection(LabelsCollection),
		comments: db.Collection(CommentsCollection),
	}
}

// Ping checks the primary with a short timeout. Used by health checks.
func (s *Store) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.db.Client().Ping(pingCtx, readpref.Primary())
}

// Close disconnects the client if the store owns it.
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	log.Info().Msg("Closing MongoDB connection.")
	return s.client.Disconnect(ctx)
}

// notFound maps mongo.ErrNoDocuments to domain.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrNotFound
	}
	return err
}

// insertErr maps duplicate key errors (11000, 11001) to domain.ErrAlreadyExists.
func insertErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrAlreadyExists
	}
	return fmt.Errorf("inserting %s: %w", what, err)
}
