package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/payment"
)

type PaymentRepository struct {
	db *DB

	// FailWrites makes CreatePayment fail; used to exercise the task
	// creation rollback path.
	FailWrites bool
}

var _ payment.Repository = (*PaymentRepository)(nil)

func NewPaymentRepository(db *DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (repo *PaymentRepository) CreatePayment(ctx context.Context, pmt payment.Payment, exec ...core.DBExecutor) (payment.Payment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if repo.FailWrites {
		return payment.Payment{}, errInjectedFailure
	}

	pmt.ID = uuid.New().String()
	repo.db.payments[pmt.ID] = &pmt
	return pmt, nil
}

func (repo *PaymentRepository) GetPayment(ctx context.Context, id string, exec ...core.DBExecutor) (payment.Payment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if pmt, ok := repo.db.payments[id]; ok {
		return *pmt, nil
	}
	return payment.Payment{}, payment.ErrNotFound
}

func (repo *PaymentRepository) QueryPayments(ctx context.Context, filter *payment.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]payment.Payment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	payments := make([]payment.Payment, 0)
	for _, pmt := range repo.db.payments {
		if filter != nil {
			if filter.TaskID != "" && pmt.TaskID != filter.TaskID {
				continue
			}
			if filter.InstructorID != "" && pmt.InstructorID != filter.InstructorID {
				continue
			}
			if filter.Status != "" && pmt.Status != filter.Status {
				continue
			}
		}
		payments = append(payments, *pmt)
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].CreatedAt.After(payments[j].CreatedAt) })
	return payments, nil
}

func (repo *PaymentRepository) UpdatePayment(ctx context.Context, pmt payment.Payment, exec ...core.DBExecutor) (payment.Payment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	stored, ok := repo.db.payments[pmt.ID]
	if !ok {
		return payment.Payment{}, payment.ErrNotFound
	}
	stored.Amount = pmt.Amount
	stored.Status = pmt.Status
	stored.Notes = pmt.Notes
	stored.PaidAt = pmt.PaidAt
	return *stored, nil
}

func (repo *PaymentRepository) UpdateUnpaidAmountByTask(ctx context.Context, taskID string, amount float64, exec ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var cnt int
	for _, pmt := range repo.db.payments {
		if pmt.TaskID == taskID && pmt.Status == payment.StatusUnpaid {
			pmt.Amount = amount
			cnt++
		}
	}
	return cnt, nil
}
