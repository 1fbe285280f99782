package sqlstore

import (
	"context"
	"fmt"

	"go.pilab.hu/taskboard/domain"
)

func scanLabel(row scanner) (*domain.Label, error) {
	var l domain.Label
	if err := row.Scan(&l.ID, &l.ProjectID, &l.Name, &l.Color); err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}

func (s *Store) CreateLabel(ctx context.Context, label *domain.Label) error {
	_, err := s.exec(ctx, `INSERT INTO labels (id, project_id, name, color) VALUES (?, ?, ?, ?)`,
		label.ID, label.ProjectID, label.Name, label.Color)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("inserting label: %w", err)
	}
	return nil
}

func (s *Store) GetLabel(ctx context.Context, id string) (*domain.Label, error) {
	return scanLabel(s.queryRow(ctx, `SELECT id, project_id, name, color FROM labels WHERE id = ?`, id))
}

func (s *Store) ListLabels(ctx context.Context, projectID string) ([]*domain.Label, error) {
	rows, err := s.query(ctx,
		`SELECT id, project_id, name, color FROM labels WHERE project_id = ? ORDER BY name`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing labels: %w", err)
	}
	defer rows.Close()

	labels := make([]*domain.Label, 0)
	for rows.Next() {
		l, err := scanLabel(rows)
		if err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}

func (s *Store) DeleteLabel(ctx context.Context, id string) error {
	res, err := s.exec(ctx, `DELETE FROM labels WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting label: %w", err)
	}
	return expectOneRow(res)
}
