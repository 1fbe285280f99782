package sqlstore

import (
	"context"
	"fmt"

	"go.pilab.hu/taskboard/domain"
)

func (s *Store) UpsertUser(ctx context.Context, user *domain.User) error {
	_, err := s.exec(ctx, `
		INSERT INTO users (id, name, email, avatar_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			avatar_url = excluded.avatar_url,
			updated_at = excluded.updated_at`,
		user.ID, user.Name, user.Email, user.AvatarURL,
		toMillis(user.CreatedAt), toMillis(user.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upserting user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var (
		u                domain.User
		created, updated int64
	)
	err := s.queryRow(ctx,
		`SELECT id, name, email, avatar_url, created_at, updated_at FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.AvatarURL, &created, &updated)
	if err != nil {
		return nil, notFound(err)
	}
	u.CreatedAt = fromMillis(created)
	u.UpdatedAt = fromMillis(updated)
	return &u, nil
}
