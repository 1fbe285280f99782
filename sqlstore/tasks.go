package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.pilab.hu/taskboard/domain"
)

const taskColumns = `id, project_id, title, description, status, priority, due_date, position,
	completed, assignee, claimed_by, claimed_at, created_at, updated_at`

var taskOrderBy = map[string]string{
	"position": "position ASC, created_at DESC",
	"due":      "CASE WHEN due_date IS NULL THEN 1 ELSE 0 END, due_date ASC, priority DESC",
	"created":  "created_at DESC",
}

func scanTask(row scanner) (*domain.Task, error) {
	var (
		t                            domain.Task
		status                       string
		completed                    int
		dueDate, assignee, claimedBy sql.NullString
		claimedAt                    sql.NullInt64
		created, updated             int64
	)
	err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &status, &t.Priority, &dueDate,
		&t.Position, &completed, &assignee, &claimedBy, &claimedAt, &created, &updated)
	if err != nil {
		return nil, notFound(err)
	}
	t.Status = domain.TaskStatus(status)
	t.Completed = completed != 0
	t.DueDate = stringPtr(dueDate)
	t.Assignee = stringPtr(assignee)
	t.ClaimedBy = stringPtr(claimedBy)
	t.ClaimedAt = timePtr(claimedAt)
	t.CreatedAt = fromMillis(created)
	t.UpdatedAt = fromMillis(updated)
	return &t, nil
}

// escapeLike escapes LIKE wildcards so the query matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func taskWhere(projectID string, filter domain.TaskFilter) (string, []any) {
	clauses := []string{"project_id = ?"}
	args := []any{projectID}

	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
		clauses = append(clauses, `(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Priority != 0 {
		clauses = append(clauses, "priority = ?")
		args = append(args, filter.Priority)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (s *Store) CreateTask(ctx context.Context, task *domain.Task) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var next int
		err := tx.QueryRowContext(ctx,
			s.dialect.rebind(`SELECT COALESCE(MAX(position), -1) + 1 FROM tasks WHERE project_id = ?`),
			task.ProjectID).Scan(&next)
		if err != nil {
			return fmt.Errorf("computing task position: %w", err)
		}
		task.Position = next

		_, err = tx.ExecContext(ctx, s.dialect.rebind(
			`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			task.ID, task.ProjectID, task.Title, task.Description, string(task.Status), task.Priority,
			nullableString(task.DueDate), task.Position, boolToInt(task.Completed),
			nullableString(task.Assignee), nullableString(task.ClaimedBy), nullableMillis(task.ClaimedAt),
			toMillis(task.CreatedAt), toMillis(task.UpdatedAt))
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrAlreadyExists
			}
			return fmt.Errorf("inserting task: %w", err)
		}

		return insertTaskLabels(ctx, tx, s.dialect, task.ID, task.LabelIDs)
	})
}

func (s *Store) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	task, err := scanTask(s.queryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	if err := s.attachLabels(ctx, []*domain.Task{task}); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *Store) ListTasks(ctx context.Context, projectID string, filter domain.TaskFilter) ([]*domain.Task, error) {
	where, args := taskWhere(projectID, filter)

	order, ok := taskOrderBy[filter.Sort]
	if !ok {
		order = taskOrderBy["position"]
	}
	query := `SELECT ` + taskColumns + ` FROM tasks` + where + ` ORDER BY ` + order
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, max(filter.Offset, 0))
	}

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]*domain.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.attachLabels(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *Store) CountTasks(ctx context.Context, projectID string, filter domain.TaskFilter) (int, error) {
	where, args := taskWhere(projectID, filter)
	var n int
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM tasks`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting tasks: %w", err)
	}
	return n, nil
}

func (s *Store) UpdateTask(ctx context.Context, task *domain.Task) error {
	res, err := s.exec(ctx, `
		UPDATE tasks SET
			title = ?, description = ?, status = ?, priority = ?, due_date = ?, position = ?,
			completed = ?, assignee = ?, claimed_by = ?, claimed_at = ?, updated_at = ?
		WHERE id = ?`,
		task.Title, task.Description, string(task.Status), task.Priority, nullableString(task.DueDate),
		task.Position, boolToInt(task.Completed), nullableString(task.Assignee),
		nullableString(task.ClaimedBy), nullableMillis(task.ClaimedAt), toMillis(task.UpdatedAt),
		task.ID)
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}
	return expectOneRow(res)
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.exec(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	return expectOneRow(res)
}

func (s *Store) ReorderTasks(ctx context.Context, projectID string, orderedIDs []string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			s.dialect.rebind(`UPDATE tasks SET position = ? WHERE id = ? AND project_id = ?`))
		if err != nil {
			return fmt.Errorf("preparing reorder: %w", err)
		}
		defer stmt.Close()

		for i, id := range orderedIDs {
			res, err := stmt.ExecContext(ctx, i, id, projectID)
			if err != nil {
				return fmt.Errorf("reordering task %s: %w", id, err)
			}
			if err := expectOneRow(res); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) SetTaskLabels(ctx context.Context, taskID string, labelIDs []string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			s.dialect.rebind(`DELETE FROM task_labels WHERE task_id = ?`), taskID); err != nil {
			return fmt.Errorf("clearing task labels: %w", err)
		}
		return insertTaskLabels(ctx, tx, s.dialect, taskID, labelIDs)
	})
}

func insertTaskLabels(ctx context.Context, tx *sql.Tx, d Dialect, taskID string, labelIDs []string) error {
	for _, labelID := range labelIDs {
		// A failed statement aborts a postgres transaction, so duplicates must not error.
		_, err := tx.ExecContext(ctx,
			d.rebind(`INSERT INTO task_labels (task_id, label_id) VALUES (?, ?) ON CONFLICT DO NOTHING`), taskID, labelID)
		if err != nil {
			return fmt.Errorf("linking label %s: %w", labelID, err)
		}
	}
	return nil
}

// attachLabels fills LabelIDs for tasks with a single IN query.
func (s *Store) attachLabels(ctx context.Context, tasks []*domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	byID := make(map[string]*domain.Task, len(tasks))
	args := make([]any, 0, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
		args = append(args, t.ID)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")
	rows, err := s.query(ctx,
		`SELECT task_id, label_id FROM task_labels WHERE task_id IN (`+placeholders+`) ORDER BY label_id`,
		args...)
	if err != nil {
		return fmt.Errorf("loading task labels: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var taskID, labelID string
		if err := rows.Scan(&taskID, &labelID); err != nil {
			return err
		}
		if t := byID[taskID]; t != nil {
			t.LabelIDs = append(t.LabelIDs, labelID)
		}
	}
	return rows.Err()
}
