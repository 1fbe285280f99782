package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.pilab.hu/taskboard/domain"
)

func (s *Store) CreateLabel(ctx context.Context, label *domain.Label) error {
	_, err := s.labels.InsertOne(ctx, label)
	return insertErr(err, "label")
}

func (s *Store) GetLabel(ctx context.Context, id string) (*domain.Label, error) {
	var l domain.Label
	if err := s.labels.FindOne(ctx, bson.M{"_id": id}).Decode(&l); err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}

func (s *Store) ListLabels(ctx context.Context, projectID string) ([]*domain.Label, error) {
	cursor, err := s.labels.Find(ctx, bson.M{"project_id": projectID},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("listing labels: %w", err)
	}
	labels := make([]*domain.Label, 0)
	if err := cursor.All(ctx, &labels); err != nil {
		return nil, fmt.Errorf("decoding labels: %w", err)
	}
	return labels, nil
}

// DeleteLabel also pulls the label from every task that carries it.
func (s *Store) DeleteLabel(ctx context.Context, id string) error {
	res, err := s.labels.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("deleting label: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	_, err = s.tasks.UpdateMany(ctx, bson.M{"label_ids": id}, bson.M{"$pull": bson.M{"label_ids": id}})
	if err != nil {
		return fmt.Errorf("unlinking label: %w", err)
	}
	return nil
}
