package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"go.pilab.hu/taskboard/domain"
)

const projectColumns = `id, name, description, owner_id, created_at`

func scanProject(row scanner) (*domain.Project, error) {
	var (
		p       domain.Project
		created int64
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.OwnerID, &created); err != nil {
		return nil, notFound(err)
	}
	p.CreatedAt = fromMillis(created)
	return &p, nil
}

func (s *Store) CreateProject(ctx context.Context, project *domain.Project) error {
	_, err := s.exec(ctx,
		`INSERT INTO projects (`+projectColumns+`) VALUES (?, ?, ?, ?, ?)`,
		project.ID, project.Name, project.Description, project.OwnerID, toMillis(project.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("inserting project: %w", err)
	}
	return nil
}

func (s *Store) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	return scanProject(s.queryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id))
}

func (s *Store) ListProjects(ctx context.Context, ownerID string) ([]*domain.Project, error) {
	rows, err := s.query(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE owner_id = ? ORDER BY created_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	projects := make([]*domain.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *Store) UpdateProject(ctx context.Context, id string, patch domain.ProjectPatch) (*domain.Project, error) {
	res, err := s.exec(ctx, `
		UPDATE projects SET
			name = COALESCE(?, name),
			description = COALESCE(?, description)
		WHERE id = ?`,
		nullableString(patch.Name), nullableString(patch.Description), id)
	if err != nil {
		return nil, fmt.Errorf("updating project: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return nil, err
	}
	return s.GetProject(ctx, id)
}

// DeleteProject relies on ON DELETE CASCADE for project data. Tokens and codes
// bound to the project fall back to the owner's default project.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, s.dialect.rebind(`DELETE FROM projects WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("deleting project: %w", err)
		}
		if err := expectOneRow(res); err != nil {
			return err
		}
		for _, q := range []string{
			`UPDATE oauth_tokens SET project_id = NULL WHERE project_id = ?`,
			`UPDATE oauth_codes SET project_id = NULL WHERE project_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, s.dialect.rebind(q), id); err != nil {
				return fmt.Errorf("unbinding credentials: %w", err)
			}
		}
		return nil
	})
}

func (s *Store) LatestProject(ctx context.Context, ownerID string) (*domain.Project, error) {
	return scanProject(s.queryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE owner_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		ownerID))
}
