package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.pilab.hu/taskboard/domain"
)

func taskSort(sort string) bson.D {
	switch sort {
	case "due":
		return bson.D{{Key: "no_due", Value: 1}, {Key: "due_date", Value: 1}, {Key: "priority", Value: -1}}
	case "created":
		return bson.D{{Key: "created_at", Value: -1}}
	default:
		return bson.D{{Key: "position", Value: 1}, {Key: "created_at", Value: -1}}
	}
}

func taskFilter(projectID string, filter domain.TaskFilter) bson.M {
	q := bson.M{"project_id": projectID}
	if text := strings.TrimSpace(filter.Query); text != "" {
		pattern := bson.Regex{Pattern: regexp.QuoteMeta(text), Options: "i"}
		q["$or"] = bson.A{bson.M{"title": pattern}, bson.M{"description": pattern}}
	}
	if filter.Status != "" {
		q["status"] = string(filter.Status)
	}
	if filter.Priority != 0 {
		q["priority"] = filter.Priority
	}
	return q
}

// CreateTask reads the current max position and inserts after it. Two
// concurrent creates in one project may share a position; Reorder repairs it.
func (s *Store) CreateTask(ctx context.Context, task *domain.Task) error {
	var last domain.Task
	err := s.tasks.FindOne(ctx, bson.M{"project_id": task.ProjectID},
		options.FindOne().SetSort(bson.D{{Key: "position", Value: -1}}).SetProjection(bson.M{"position": 1}),
	).Decode(&last)
	switch {
	case err == nil:
		task.Position = last.Position + 1
	case errors.Is(err, mongo.ErrNoDocuments):
		task.Position = 0
	default:
		return fmt.Errorf("computing task position: %w", err)
	}

	_, err = s.tasks.InsertOne(ctx, task)
	return insertErr(err, "task")
}

func (s *Store) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	var t domain.Task
	if err := s.tasks.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// ListTasks uses an aggregation so undated tasks can sort after dated ones.
func (s *Store) ListTasks(ctx context.Context, projectID string, filter domain.TaskFilter) ([]*domain.Task, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: taskFilter(projectID, filter)}},
		{{Key: "$addFields", Value: bson.M{
			"no_due": bson.M{"$cond": bson.A{bson.M{"$ifNull": bson.A{"$due_date", false}}, 0, 1}},
		}}},
		{{Key: "$sort", Value: taskSort(filter.Sort)}},
	}
	if filter.Limit > 0 {
		pipeline = append(pipeline,
			bson.D{{Key: "$skip", Value: int64(max(filter.Offset, 0))}},
			bson.D{{Key: "$limit", Value: int64(filter.Limit)}},
		)
	}
	pipeline = append(pipeline, bson.D{{Key: "$project", Value: bson.M{"no_due": 0}}})

	cursor, err := s.tasks.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	tasks := make([]*domain.Task, 0)
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("decoding tasks: %w", err)
	}
	return tasks, nil
}

func (s *Store) CountTasks(ctx context.Context, projectID string, filter domain.TaskFilter) (int, error) {
	n, err := s.tasks.CountDocuments(ctx, taskFilter(projectID, filter))
	if err != nil {
		return 0, fmt.Errorf("counting tasks: %w", err)
	}
	return int(n), nil
}

// UpdateTask sets every mutable field and unsets the nil ones. Label links are left alone.
func (s *Store) UpdateTask(ctx context.Context, task *domain.Task) error {
	set := bson.M{
		"title":       task.Title,
		"description": task.Description,
		"status":      string(task.Status),
		"priority":    task.Priority,
		"position":    task.Position,
		"completed":   task.Completed,
		"updated_at":  task.UpdatedAt,
	}
	unset := bson.M{}
	setOrUnset := func(field string, present bool, value func() any) {
		if present {
			set[field] = value()
		} else {
			unset[field] = ""
		}
	}
	setOrUnset("due_date", task.DueDate != nil, func() any { return *task.DueDate })
	setOrUnset("assignee", task.Assignee != nil, func() any { return *task.Assignee })
	setOrUnset("claimed_by", task.ClaimedBy != nil, func() any { return *task.ClaimedBy })
	setOrUnset("claimed_at", task.ClaimedAt != nil, func() any { return *task.ClaimedAt })

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	res, err := s.tasks.UpdateOne(ctx, bson.M{"_id": task.ID}, update)
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.tasks.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	if _, err := s.comments.DeleteMany(ctx, bson.M{"task_id": id}); err != nil {
		return fmt.Errorf("deleting task comments: %w", err)
	}
	return nil
}

// ReorderTasks applies all position updates in one ordered bulk write.
func (s *Store) ReorderTasks(ctx context.Context, projectID string, orderedIDs []string) error {
	if len(orderedIDs) == 0 {
		return nil
	}
	n, err := s.tasks.CountDocuments(ctx, bson.M{"project_id": projectID, "_id": bson.M{"$in": orderedIDs}})
	if err != nil {
		return fmt.Errorf("checking reorder set: %w", err)
	}
	if int(n) != len(orderedIDs) {
		return domain.ErrNotFound
	}

	models := make([]mongo.WriteModel, 0, len(orderedIDs))
	for i, id := range orderedIDs {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": id, "project_id": projectID}).
			SetUpdate(bson.M{"$set": bson.M{"position": i}}))
	}
	if _, err := s.tasks.BulkWrite(ctx, models); err != nil {
		return fmt.Errorf("reordering tasks: %w", err)
	}
	return nil
}

func (s *Store) SetTaskLabels(ctx context.Context, taskID string, labelIDs []string) error {
	if labelIDs == nil {
		labelIDs = []string{}
	}
	res, err := s.tasks.UpdateOne(ctx, bson.M{"_id": taskID}, bson.M{"$set": bson.M{"label_ids": labelIDs}})
	if err != nil {
		return fmt.Errorf("setting task labels: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
