package sqlstore

import (
	"context"
	"fmt"

	"go.pilab.hu/taskboard/domain"
)

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) error {
	_, err := s.exec(ctx,
		`INSERT INTO comments (id, task_id, author, author_type, body, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		comment.ID, comment.TaskID, comment.Author, string(comment.AuthorType), comment.Body,
		toMillis(comment.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting comment: %w", err)
	}
	return nil
}

func (s *Store) ListComments(ctx context.Context, taskID string) ([]*domain.Comment, error) {
	rows, err := s.query(ctx, `
		SELECT id, task_id, author, author_type, body, created_at
		FROM comments WHERE task_id = ? ORDER BY created_at ASC, id ASC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}
	defer rows.Close()

	comments := make([]*domain.Comment, 0)
	for rows.Next() {
		var (
			c          domain.Comment
			authorType string
			created    int64
		)
		if err := rows.Scan(&c.ID, &c.TaskID, &c.Author, &authorType, &c.Body, &created); err != nil {
			return nil, err
		}
		c.AuthorType = domain.AuthorType(authorType)
		c.CreatedAt = fromMillis(created)
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}
