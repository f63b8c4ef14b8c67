package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/task"
)

type taskRow struct {
	ID          string         `db:"id"`
	Title       string         `db:"title"`
	Description string         `db:"description"`
	Priority    string         `db:"priority"`
	Deadline    sql.NullTime   `db:"deadline"`
	Amount      float64        `db:"amount"`
	AssignedTo  sql.NullString `db:"assigned_to"`
	CreatedBy   string         `db:"created_by"`
	Status      string         `db:"status"`
	IsLocked    bool           `db:"is_locked"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (r taskRow) toModel() task.Task {
	t := task.Task{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Priority:    r.Priority,
		Amount:      r.Amount,
		CreatedBy:   r.CreatedBy,
		Status:      r.Status,
		IsLocked:    r.IsLocked,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.Deadline.Valid {
		d := r.Deadline.Time
		t.Deadline = &d
	}
	if r.AssignedTo.Valid {
		a := r.AssignedTo.String
		t.AssignedTo = &a
	}
	return t
}

const taskSelect = `
SELECT id, title, description, priority, deadline, amount, assigned_to, created_by,
       status, is_locked, created_at, updated_at
FROM tasks`

type taskRepository struct {
	db *sqlx.DB
}

var _ task.Repository = (*taskRepository)(nil) // interface compliance check

func NewTaskRepository(db *sqlx.DB) *taskRepository {
	return &taskRepository{db: db}
}

func (repo taskRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return task.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo taskRepository) CreateTask(ctx context.Context, t task.Task, exec ...core.DBExecutor) (task.Task, error) {
	t.ID = uuid.New().String()
	_, err := ext(repo.db, exec).ExecContext(ctx,
		`INSERT INTO tasks (id, title, description, priority, deadline, amount, assigned_to, created_by,
		                    status, is_locked, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		t.ID, t.Title, t.Description, t.Priority, nullTimePtr(t.Deadline), t.Amount, nullString(t.AssignedTo),
		t.CreatedBy, t.Status, t.IsLocked, t.CreatedAt.UTC(), t.UpdatedAt.UTC(),
	)
	if err != nil {
		return task.Task{}, errors.Wrap(err, "inserting task")
	}
	return t, nil
}

func (repo taskRepository) GetTask(ctx context.Context, id string, exec ...core.DBExecutor) (task.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return task.Task{}, task.ErrNotFound
	}
	var row taskRow
	if err := sqlx.GetContext(ctx, ext(repo.db, exec), &row, taskSelect+` WHERE id = $1`, id); err != nil {
		return task.Task{}, repo.trapNoRowsErr(err, "finding task")
	}
	return row.toModel(), nil
}

func (repo taskRepository) QueryTasks(ctx context.Context, filter *task.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]task.Task, error) {
	query := taskSelect + ` WHERE TRUE`
	var args []interface{}
	arg := func(v interface{}) string { args = append(args, v); return placeholder(len(args)) }

	if filter != nil {
		if filter.Search != "" {
			ph := arg("%" + filter.Search + "%")
			query += ` AND (title ILIKE ` + ph + ` OR description ILIKE ` + ph + `)`
		}
		if filter.Status != "" {
			query += ` AND status = ` + arg(filter.Status)
		}
		if filter.Priority != "" {
			query += ` AND priority = ` + arg(filter.Priority)
		}
		if filter.AssignedTo != "" {
			query += ` AND assigned_to = ` + arg(filter.AssignedTo)
		}
		if filter.CreatedBy != "" {
			query += ` AND created_by = ` + arg(filter.CreatedBy)
		}
		if !filter.DueFrom.IsZero() {
			query += ` AND deadline >= ` + arg(filter.DueFrom.UTC())
		}
		if !filter.DueTo.IsZero() {
			query += ` AND deadline <= ` + arg(filter.DueTo.UTC())
		}
	}
	query += orderBy(ordering, "created_at DESC")

	var rows []taskRow
	if err := sqlx.SelectContext(ctx, ext(repo.db, exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying tasks")
	}
	tasks := make([]task.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, row.toModel())
	}
	return tasks, nil
}

func (repo taskRepository) UpdateTask(ctx context.Context, t task.Task, exec ...core.DBExecutor) (task.Task, error) {
	res, err := ext(repo.db, exec).ExecContext(ctx,
		`UPDATE tasks SET title = $2, description = $3, priority = $4, deadline = $5, amount = $6,
		                  assigned_to = $7, updated_at = $8
		 WHERE id = $1`,
		t.ID, t.Title, t.Description, t.Priority, nullTimePtr(t.Deadline), t.Amount,
		nullString(t.AssignedTo), t.UpdatedAt.UTC(),
	)
	if err != nil {
		return task.Task{}, errors.Wrap(err, "updating task")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return task.Task{}, task.ErrNotFound
	}
	return repo.GetTask(ctx, t.ID, exec...)
}

func (repo taskRepository) SetTaskStatus(ctx context.Context, id, status string, lock *bool, exec ...core.DBExecutor) (task.Task, error) {
	query := `UPDATE tasks SET status = $2, updated_at = $3`
	args := []interface{}{id, status, time.Now().UTC()}
	if lock != nil {
		args = append(args, *lock)
		query += `, is_locked = ` + placeholder(len(args))
	}
	query += ` WHERE id = $1`

	res, err := ext(repo.db, exec).ExecContext(ctx, query, args...)
	if err != nil {
		return task.Task{}, errors.Wrap(err, "updating task status")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return task.Task{}, task.ErrNotFound
	}
	return repo.GetTask(ctx, id, exec...)
}

func (repo taskRepository) DeleteTasksByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	res, err := ext(repo.db, exec).ExecContext(ctx, `DELETE FROM tasks WHERE id = ANY($1)`, pqStringArray(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting tasks")
	}
	cnt, _ := res.RowsAffected()
	return int(cnt), nil
}
