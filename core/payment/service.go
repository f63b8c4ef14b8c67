package payment

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/kazi/core"
)

var (
	// errors
	ErrNotFound    = errors.New("payment not found")
	ErrAlreadyPaid = errors.New("payment has already been marked paid")
)

type (
	Repository interface {
		CreatePayment(ctx context.Context, pmt Payment, exec ...core.DBExecutor) (Payment, error)
		GetPayment(ctx context.Context, id string, exec ...core.DBExecutor) (Payment, error)
		// QueryPayments applies AND operation on available QueryFilter fields.
		QueryPayments(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Payment, error)
		UpdatePayment(ctx context.Context, pmt Payment, exec ...core.DBExecutor) (Payment, error)
		// UpdateUnpaidAmountByTask resets the amount on a task's still-unpaid entries.
		UpdateUnpaidAmountByTask(ctx context.Context, taskID string, amount float64, exec ...core.DBExecutor) (int, error)
	}

	// AdminService is the ledger as admins see it: settle entries and view
	// everything.
	AdminService interface {
		MarkPaid(ctx context.Context, actor core.Actor, id string, notes *string) (Payment, error)
		MarkManyPaid(ctx context.Context, actor core.Actor, ids []string, notes *string) []Result
		Query(ctx context.Context, actor core.Actor, filter *QueryFilter, ordering []core.DBOrdering) ([]Payment, error)
		Summarize(ctx context.Context, actor core.Actor, filter *QueryFilter) (Summary, error)
	}

	// InstructorService is the ledger as instructors see it: their own
	// earnings, read-only.
	InstructorService interface {
		Query(ctx context.Context, actor core.Actor, filter *QueryFilter, ordering []core.DBOrdering) ([]Payment, error)
		Summarize(ctx context.Context, actor core.Actor, filter *QueryFilter) (Summary, error)
	}

	Service interface {
		AdminService

		// OpenEntry records an unpaid entry for a task assignment. It is a
		// no-op when the task carries no amount or no assignee.
		OpenEntry(ctx context.Context, taskID, instructorID string, amount float64, exec ...core.DBExecutor) error
		// ResyncUnpaidEntry propagates a task amount edit to its still-unpaid
		// entries. Paid entries are never rewritten.
		ResyncUnpaidEntry(ctx context.Context, taskID string, amount float64) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) OpenEntry(ctx context.Context, taskID, instructorID string, amount float64, exec ...core.DBExecutor) error {
	if amount <= 0 || instructorID == "" {
		return nil
	}
	pmt := Payment{
		TaskID:       taskID,
		InstructorID: instructorID,
		Amount:       amount,
		Status:       StatusUnpaid,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := svc.repo.CreatePayment(ctx, pmt, exec...)
	return err
}

func (svc *service) ResyncUnpaidEntry(ctx context.Context, taskID string, amount float64) error {
	if amount < 0 {
		amount = 0
	}
	_, err := svc.repo.UpdateUnpaidAmountByTask(ctx, taskID, amount)
	return err
}

func (svc *service) MarkPaid(ctx context.Context, actor core.Actor, id string, notes *string) (Payment, error) {
	if !actor.IsAdmin() {
		return Payment{}, core.NewPermissionError("only admins can settle payments")
	}

	pmt, err := svc.repo.GetPayment(ctx, id)
	if err != nil {
		return Payment{}, err
	}
	if pmt.IsPaid() {
		return Payment{}, core.NewStateError(ErrAlreadyPaid.Error())
	}

	now := time.Now().UTC()
	pmt.Status = StatusPaid
	pmt.PaidAt = &now
	if notes != nil {
		pmt.Notes = notes
	}
	return svc.repo.UpdatePayment(ctx, pmt)
}

// MarkManyPaid settles each entry independently; one failure never aborts
// the rest.
func (svc *service) MarkManyPaid(ctx context.Context, actor core.Actor, ids []string, notes *string) []Result {
	results := make([]Result, 0, len(ids))
	for _, id := range ids {
		res := Result{ID: id}
		if _, err := svc.MarkPaid(ctx, actor, id, notes); err != nil {
			res.Error = err.Error()
		}
		results = append(results, res)
	}
	return results
}

func (svc *service) Query(ctx context.Context, actor core.Actor, filter *QueryFilter, ordering []core.DBOrdering) ([]Payment, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	if actor.IsInstructor() {
		// instructors only ever see their own entries
		filter.InstructorID = actor.ID
	} else if !actor.IsAdmin() {
		return nil, core.NewPermissionError("permission denied")
	}
	return svc.repo.QueryPayments(ctx, filter, ordering)
}

func (svc *service) Summarize(ctx context.Context, actor core.Actor, filter *QueryFilter) (Summary, error) {
	payments, err := svc.Query(ctx, actor, filter, nil)
	if err != nil {
		return Summary{}, err
	}

	var sum Summary
	for _, pmt := range payments {
		sum.TotalPayable += pmt.Amount
		if pmt.IsPaid() {
			sum.TotalPaid += pmt.Amount
		} else {
			sum.TotalDue += pmt.Amount
			sum.PendingCount++
		}
	}
	return sum, nil
}
