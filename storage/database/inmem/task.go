package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/task"
)

type TaskRepository struct {
	db *DB
}

var _ task.Repository = (*TaskRepository)(nil)

func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (repo *TaskRepository) CreateTask(ctx context.Context, t task.Task, exec ...core.DBExecutor) (task.Task, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	t.ID = uuid.New().String()
	repo.db.tasks[t.ID] = &t
	return t, nil
}

func (repo *TaskRepository) GetTask(ctx context.Context, id string, exec ...core.DBExecutor) (task.Task, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if t, ok := repo.db.tasks[id]; ok {
		return *t, nil
	}
	return task.Task{}, task.ErrNotFound
}

func (repo *TaskRepository) QueryTasks(ctx context.Context, filter *task.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]task.Task, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	tasks := make([]task.Task, 0)
	for _, t := range repo.db.tasks {
		if filter != nil && !matchTask(*t, filter) {
			continue
		}
		tasks = append(tasks, *t)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].CreatedAt.After(tasks[j].CreatedAt) })
	return tasks, nil
}

func matchTask(t task.Task, filter *task.QueryFilter) bool {
	if filter.Status != "" && t.Status != filter.Status {
		return false
	}
	if filter.Priority != "" && t.Priority != filter.Priority {
		return false
	}
	if filter.AssignedTo != "" && !t.IsAssignedTo(filter.AssignedTo) {
		return false
	}
	if filter.CreatedBy != "" && t.CreatedBy != filter.CreatedBy {
		return false
	}
	if filter.Search != "" {
		s := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(t.Title), s) && !strings.Contains(strings.ToLower(t.Description), s) {
			return false
		}
	}
	if !filter.DueFrom.IsZero() && (t.Deadline == nil || t.Deadline.Before(filter.DueFrom)) {
		return false
	}
	if !filter.DueTo.IsZero() && (t.Deadline == nil || t.Deadline.After(filter.DueTo)) {
		return false
	}
	return true
}

func (repo *TaskRepository) UpdateTask(ctx context.Context, t task.Task, exec ...core.DBExecutor) (task.Task, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	stored, ok := repo.db.tasks[t.ID]
	if !ok {
		return task.Task{}, task.ErrNotFound
	}
	stored.Title = t.Title
	stored.Description = t.Description
	stored.Priority = t.Priority
	stored.Deadline = t.Deadline
	stored.Amount = t.Amount
	stored.AssignedTo = t.AssignedTo
	stored.UpdatedAt = t.UpdatedAt
	return *stored, nil
}

func (repo *TaskRepository) SetTaskStatus(ctx context.Context, id, status string, lock *bool, exec ...core.DBExecutor) (task.Task, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	stored, ok := repo.db.tasks[id]
	if !ok {
		return task.Task{}, task.ErrNotFound
	}
	stored.Status = status
	if lock != nil {
		stored.IsLocked = *lock
	}
	return *stored, nil
}

func (repo *TaskRepository) DeleteTasksByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.tasks[id]; ok {
			delete(repo.db.tasks, id)
			cnt++
			// FK ON DELETE CASCADE equivalents
			for sid, sub := range repo.db.submissions {
				if sub.TaskID == id {
					for rid, rev := range repo.db.reviews {
						if rev.SubmissionID == sid {
							delete(repo.db.reviews, rid)
						}
					}
					delete(repo.db.submissions, sid)
				}
			}
			for pid, pmt := range repo.db.payments {
				if pmt.TaskID == id {
					delete(repo.db.payments, pid)
				}
			}
		}
	}
	return cnt, nil
}
