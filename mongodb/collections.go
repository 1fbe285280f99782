package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	UsersCollection    = "users"
	ProjectsCollection = "projects"
	APIKeysCollection  = "api_keys"
	ClientsCollection  = "oauth_clients"
	CodesCollection    = "oauth_codes"
	TokensCollection   = "oauth_tokens"
	TasksCollection    = "tasks"
	LabelsCollection   = "labels"
	CommentsCollection = "comments"
)

// EnsureIndexes creates the secondary indexes. CreateMany is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[*mongo.Collection][]mongo.IndexModel{
		s.projects: {
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		s.apiKeys: {
			{Keys: bson.D{{Key: "key_hash", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "project_id", Value: 1}}},
		},
		s.codes: {
			{Keys: bson.D{{Key: "expires_at", Value: 1}}},
		},
		s.tokens: {
			{Keys: bson.D{{Key: "expires_at", Value: 1}}},
			{Keys: bson.D{{Key: "project_id", Value: 1}}},
		},
		s.tasks: {
			{Keys: bson.D{{Key: "project_id", Value: 1}, {Key: "position", Value: 1}}},
		},
		s.labels: {
			{
				Keys:    bson.D{{Key: "project_id", Value: 1}, {Key: "name", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		s.comments: {
			{Keys: bson.D{{Key: "task_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
	}

	for coll, models := range indexes {
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("creating indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}
