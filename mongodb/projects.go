package mongodb

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.pilab.hu/taskboard/domain"
)

var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

func (s *Store) CreateProject(ctx context.Context, project *domain.Project) error {
	_, err := s.projects.InsertOne(ctx, project)
	return insertErr(err, "project")
}

func (s *Store) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	var p domain.Project
	if err := s.projects.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *Store) ListProjects(ctx context.Context, ownerID string) ([]*domain.Project, error) {
	cursor, err := s.projects.Find(ctx, bson.M{"owner_id": ownerID}, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	projects := make([]*domain.Project, 0)
	if err := cursor.All(ctx, &projects); err != nil {
		return nil, fmt.Errorf("decoding projects: %w", err)
	}
	return projects, nil
}

func (s *Store) UpdateProject(ctx context.Context, id string, patch domain.ProjectPatch) (*domain.Project, error) {
	set := bson.M{}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if len(set) == 0 {
		return s.GetProject(ctx, id)
	}

	var p domain.Project
	err := s.projects.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&p)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// DeleteProject removes the project and its dependents one collection at a
// time. Tokens and codes bound to it fall back to the owner's default project.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	res, err := s.projects.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}

	var taskIDs []string
	cursor, err := s.tasks.Find(ctx, bson.M{"project_id": id}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return fmt.Errorf("finding project tasks: %w", err)
	}
	defer cursor.Close(ctx)
	for cursor.Next(ctx) {
		if v, ok := cursor.Current.Lookup("_id").StringValueOK(); ok {
			taskIDs = append(taskIDs, v)
		}
	}
	if err := cursor.Err(); err != nil {
		return fmt.Errorf("reading project tasks: %w", err)
	}

	if len(taskIDs) > 0 {
		if _, err := s.comments.DeleteMany(ctx, bson.M{"task_id": bson.M{"$in": taskIDs}}); err != nil {
			return fmt.Errorf("deleting project comments: %w", err)
		}
	}
	for _, coll := range []string{TasksCollection, LabelsCollection, APIKeysCollection} {
		if _, err := s.db.Collection(coll).DeleteMany(ctx, bson.M{"project_id": id}); err != nil {
			return fmt.Errorf("deleting project %s: %w", coll, err)
		}
	}
	unset := bson.M{"$unset": bson.M{"project_id": ""}}
	if _, err := s.tokens.UpdateMany(ctx, bson.M{"project_id": id}, unset); err != nil {
		return fmt.Errorf("unbinding tokens: %w", err)
	}
	if _, err := s.codes.UpdateMany(ctx, bson.M{"project_id": id}, unset); err != nil {
		return fmt.Errorf("unbinding codes: %w", err)
	}

	log.Debug().Str("project_id", id).Int("tasks", len(taskIDs)).Msg("Project deleted")
	return nil
}

func (s *Store) LatestProject(ctx context.Context, ownerID string) (*domain.Project, error) {
	var p domain.Project
	err := s.projects.FindOne(ctx, bson.M{"owner_id": ownerID}, options.FindOne().SetSort(newestFirst)).Decode(&p)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}
