package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.pilab.hu/taskboard/domain"
)

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) error {
	_, err := s.comments.InsertOne(ctx, comment)
	return insertErr(err, "comment")
}

func (s *Store) ListComments(ctx context.Context, taskID string) ([]*domain.Comment, error) {
	cursor, err := s.comments.Find(ctx, bson.M{"task_id": taskID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}
	comments := make([]*domain.Comment, 0)
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, fmt.Errorf("decoding comments: %w", err)
	}
	return comments, nil
}
