package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.pilab.hu/taskboard/domain"
)

func (s *Store) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	_, err := s.apiKeys.InsertOne(ctx, key)
	return insertErr(err, "api key")
}

func (s *Store) ListAPIKeys(ctx context.Context, projectID string) ([]*domain.APIKey, error) {
	cursor, err := s.apiKeys.Find(ctx, bson.M{"project_id": projectID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("listing api keys: %w", err)
	}
	keys := make([]*domain.APIKey, 0)
	if err := cursor.All(ctx, &keys); err != nil {
		return nil, fmt.Errorf("decoding api keys: %w", err)
	}
	return keys, nil
}

func (s *Store) DeleteAPIKey(ctx context.Context, projectID, id string) error {
	res, err := s.apiKeys.DeleteOne(ctx, bson.M{"_id": id, "project_id": projectID})
	if err != nil {
		return fmt.Errorf("deleting api key: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) TouchAPIKey(ctx context.Context, keyHash string, at time.Time) (*domain.APIKey, error) {
	var k domain.APIKey
	err := s.apiKeys.FindOneAndUpdate(ctx,
		bson.M{"key_hash": keyHash},
		bson.M{"$set": bson.M{"last_used_at": at}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&k)
	if err != nil {
		return nil, notFound(err)
	}
	return &k, nil
}

func (s *Store) GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	var k domain.APIKey
	if err := s.apiKeys.FindOne(ctx, bson.M{"key_hash": keyHash}).Decode(&k); err != nil {
		return nil, notFound(err)
	}
	return &k, nil
}
