package task

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/payment"
)

var (
	// errors
	ErrNotFound   = errors.New("task not found")
	ErrTaskLocked = errors.New("task is locked and can no longer be modified")
)

type (
	Repository interface {
		CreateTask(ctx context.Context, t Task, exec ...core.DBExecutor) (Task, error)
		GetTask(ctx context.Context, id string, exec ...core.DBExecutor) (Task, error)
		// QueryTasks applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Task.Title or Task.Description.
		QueryTasks(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Task, error)
		UpdateTask(ctx context.Context, t Task, exec ...core.DBExecutor) (Task, error)
		// SetTaskStatus updates the status machine fields only. lock is left
		// untouched when nil.
		SetTaskStatus(ctx context.Context, id, status string, lock *bool, exec ...core.DBExecutor) (Task, error)
		DeleteTasksByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
	}

	// AdminService is the task store as admins see it.
	AdminService interface {
		Create(ctx context.Context, actor core.Actor, nt NewTask) (Task, error)
		Update(ctx context.Context, actor core.Actor, id string, ut UpdateTask) (Task, error)
		Delete(ctx context.Context, actor core.Actor, ids ...string) error
		Get(ctx context.Context, actor core.Actor, id string) (Task, error)
		Query(ctx context.Context, actor core.Actor, filter *QueryFilter, ordering []core.DBOrdering) ([]Task, error)
	}

	// InstructorService is the task store as instructors see it: their own
	// assignments, plus flagging work as started.
	InstructorService interface {
		Get(ctx context.Context, actor core.Actor, id string) (Task, error)
		Query(ctx context.Context, actor core.Actor, filter *QueryFilter, ordering []core.DBOrdering) ([]Task, error)
		Start(ctx context.Context, actor core.Actor, id string) (Task, error)
	}

	Service interface {
		AdminService
		Start(ctx context.Context, actor core.Actor, id string) (Task, error)

		// SetReviewStatus is the review cascade's write path; it is the only
		// way a task reaches completed / locked.
		SetReviewStatus(ctx context.Context, id, status string, lock *bool) (Task, error)
	}

	service struct {
		repo   Repository
		paySvc payment.Service
		conf   *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, paySvc payment.Service, conf *core.Config) Service {
	return &service{
		repo:   repo,
		paySvc: paySvc,
		conf:   conf,
	}
}

// Create inserts the task and, when it is born assigned with an amount,
// opens the matching unpaid ledger entry. A ledger failure deletes the
// just-created task so no half-assignment survives.
func (svc *service) Create(ctx context.Context, actor core.Actor, nt NewTask) (Task, error) {
	if !actor.IsAdmin() {
		return Task{}, core.NewPermissionError("only admins can create tasks")
	}

	now := time.Now().UTC()
	t := Task{
		Title:       nt.Title,
		Description: nt.Description,
		Priority:    nt.Priority,
		Deadline:    nt.Deadline,
		Amount:      nt.Amount,
		AssignedTo:  nt.AssignedTo,
		CreatedBy:   actor.ID,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	t, err := svc.repo.CreateTask(ctx, t)
	if err != nil {
		return Task{}, pkgerrors.Wrap(err, "creating task")
	}

	if t.AssignedTo != nil && t.Amount > 0 {
		if err = svc.paySvc.OpenEntry(ctx, t.ID, *t.AssignedTo, t.Amount); err != nil {
			if _, delErr := svc.repo.DeleteTasksByID(ctx, []string{t.ID}); delErr != nil {
				return Task{}, core.NewDependencyError("rolling back task after payment failure", delErr)
			}
			return Task{}, core.NewDependencyError("opening payment entry", err)
		}
	}
	return t, nil
}

func (svc *service) Update(ctx context.Context, actor core.Actor, id string, ut UpdateTask) (Task, error) {
	if !actor.IsAdmin() {
		return Task{}, core.NewPermissionError("only admins can edit tasks")
	}

	t, err := svc.repo.GetTask(ctx, id)
	if err != nil {
		return Task{}, err
	}
	if t.IsLocked {
		return Task{}, core.NewStateError(ErrTaskLocked.Error())
	}

	if ut.Title != "" {
		t.Title = ut.Title
	}
	if ut.Description != nil {
		t.Description = *ut.Description
	}
	if ut.Priority != "" {
		t.Priority = ut.Priority
	}
	if ut.Deadline != nil {
		t.Deadline = ut.Deadline
	}
	var amountChanged bool
	if ut.Amount != nil && *ut.Amount != t.Amount {
		t.Amount = *ut.Amount
		amountChanged = true
	}
	if ut.AssignedTo != nil {
		t.AssignedTo = ut.AssignedTo
	}
	t.UpdatedAt = time.Now().UTC()

	t, err = svc.repo.UpdateTask(ctx, t)
	if err != nil {
		return Task{}, pkgerrors.Wrap(err, "updating task")
	}

	// Ledger amounts are snapshots taken at assignment time; editing a task
	// only reaches still-unpaid entries when resync is switched on.
	if amountChanged && svc.conf.PaymentResyncOnAmountEdit {
		if err = svc.paySvc.ResyncUnpaidEntry(ctx, t.ID, t.Amount); err != nil {
			return Task{}, core.NewDependencyError("resyncing payment amount", err)
		}
	}
	return t, nil
}

func (svc *service) Delete(ctx context.Context, actor core.Actor, ids ...string) error {
	if !actor.IsAdmin() {
		return core.NewPermissionError("only admins can delete tasks")
	}
	_, err := svc.repo.DeleteTasksByID(ctx, ids)
	return err
}

func (svc *service) Get(ctx context.Context, actor core.Actor, id string) (Task, error) {
	t, err := svc.repo.GetTask(ctx, id)
	if err != nil {
		return Task{}, err
	}
	if actor.IsInstructor() && !t.IsAssignedTo(actor.ID) {
		return Task{}, ErrNotFound
	}
	return t, nil
}

func (svc *service) Query(ctx context.Context, actor core.Actor, filter *QueryFilter, ordering []core.DBOrdering) ([]Task, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	if actor.IsInstructor() {
		// instructors only ever see their own assignments
		filter.AssignedTo = actor.ID
	} else if !actor.IsAdmin() {
		return nil, core.NewPermissionError("permission denied")
	}
	return svc.repo.QueryTasks(ctx, filter, ordering)
}

// Start flags an assignment as picked up: pending -> in_progress.
func (svc *service) Start(ctx context.Context, actor core.Actor, id string) (Task, error) {
	if !actor.IsInstructor() {
		return Task{}, core.NewPermissionError("only instructors can start tasks")
	}

	t, err := svc.repo.GetTask(ctx, id)
	if err != nil {
		return Task{}, err
	}
	if !t.IsAssignedTo(actor.ID) {
		return Task{}, ErrNotFound
	}
	if t.Status != StatusPending {
		return Task{}, core.NewStateError("only pending tasks can be started")
	}
	return svc.repo.SetTaskStatus(ctx, id, StatusInProgress, nil)
}

func (svc *service) SetReviewStatus(ctx context.Context, id, status string, lock *bool) (Task, error) {
	return svc.repo.SetTaskStatus(ctx, id, status, lock)
}
