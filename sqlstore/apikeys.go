package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.pilab.hu/taskboard/domain"
)

const apiKeyColumns = `id, project_id, name, key_hash, key_prefix, created_at, last_used_at`

func scanAPIKey(row scanner) (*domain.APIKey, error) {
	var (
		k        domain.APIKey
		created  int64
		lastUsed sql.NullInt64
	)
	if err := row.Scan(&k.ID, &k.ProjectID, &k.Name, &k.KeyHash, &k.KeyPrefix, &created, &lastUsed); err != nil {
		return nil, notFound(err)
	}
	k.CreatedAt = fromMillis(created)
	k.LastUsedAt = timePtr(lastUsed)
	return &k, nil
}

func (s *Store) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	_, err := s.exec(ctx,
		`INSERT INTO api_keys (`+apiKeyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		key.ID, key.ProjectID, key.Name, key.KeyHash, key.KeyPrefix,
		toMillis(key.CreatedAt), nullableMillis(key.LastUsedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("inserting api key: %w", err)
	}
	return nil
}

func (s *Store) ListAPIKeys(ctx context.Context, projectID string) ([]*domain.APIKey, error) {
	rows, err := s.query(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE project_id = ? ORDER BY created_at DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing api keys: %w", err)
	}
	defer rows.Close()

	keys := make([]*domain.APIKey, 0)
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *Store) DeleteAPIKey(ctx context.Context, projectID, id string) error {
	res, err := s.exec(ctx, `DELETE FROM api_keys WHERE id = ? AND project_id = ?`, id, projectID)
	if err != nil {
		return fmt.Errorf("deleting api key: %w", err)
	}
	return expectOneRow(res)
}

func (s *Store) TouchAPIKey(ctx context.Context, keyHash string, at time.Time) (*domain.APIKey, error) {
	return scanAPIKey(s.queryRow(ctx,
		`UPDATE api_keys SET last_used_at = ? WHERE key_hash = ? RETURNING `+apiKeyColumns,
		toMillis(at), keyHash))
}

func (s *Store) GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	return scanAPIKey(s.queryRow(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE key_hash = ?`, keyHash))
}
