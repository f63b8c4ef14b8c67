package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/payment"
)

type paymentRow struct {
	ID           string         `db:"id"`
	TaskID       string         `db:"task_id"`
	InstructorID string         `db:"instructor_id"`
	Amount       float64        `db:"amount"`
	Status       string         `db:"status"`
	Notes        sql.NullString `db:"notes"`
	PaidAt       sql.NullTime   `db:"paid_at"`
	CreatedAt    time.Time      `db:"created_at"`
}

func (r paymentRow) toModel() payment.Payment {
	pmt := payment.Payment{
		ID:           r.ID,
		TaskID:       r.TaskID,
		InstructorID: r.InstructorID,
		Amount:       r.Amount,
		Status:       r.Status,
		CreatedAt:    r.CreatedAt,
	}
	if r.Notes.Valid {
		n := r.Notes.String
		pmt.Notes = &n
	}
	if r.PaidAt.Valid {
		p := r.PaidAt.Time
		pmt.PaidAt = &p
	}
	return pmt
}

const paymentSelect = `
SELECT id, task_id, instructor_id, amount, status, notes, paid_at, created_at
FROM payments`

type paymentRepository struct {
	db *sqlx.DB
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *sqlx.DB) *paymentRepository {
	return &paymentRepository{db: db}
}

func (repo paymentRepository) CreatePayment(ctx context.Context, pmt payment.Payment, exec ...core.DBExecutor) (payment.Payment, error) {
	pmt.ID = uuid.New().String()
	_, err := ext(repo.db, exec).ExecContext(ctx,
		`INSERT INTO payments (id, task_id, instructor_id, amount, status, notes, paid_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		pmt.ID, pmt.TaskID, pmt.InstructorID, pmt.Amount, pmt.Status,
		nullString(pmt.Notes), nullTimePtr(pmt.PaidAt), pmt.CreatedAt.UTC(),
	)
	if err != nil {
		return payment.Payment{}, errors.Wrap(err, "inserting payment")
	}
	return pmt, nil
}

func (repo paymentRepository) GetPayment(ctx context.Context, id string, exec ...core.DBExecutor) (payment.Payment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return payment.Payment{}, payment.ErrNotFound
	}
	var row paymentRow
	if err := sqlx.GetContext(ctx, ext(repo.db, exec), &row, paymentSelect+` WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return payment.Payment{}, payment.ErrNotFound
		}
		return payment.Payment{}, errors.Wrap(err, "finding payment")
	}
	return row.toModel(), nil
}

func (repo paymentRepository) QueryPayments(ctx context.Context, filter *payment.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]payment.Payment, error) {
	query := paymentSelect + ` WHERE TRUE`
	var args []interface{}
	arg := func(v interface{}) string { args = append(args, v); return placeholder(len(args)) }

	if filter != nil {
		if filter.TaskID != "" {
			query += ` AND task_id = ` + arg(filter.TaskID)
		}
		if filter.InstructorID != "" {
			query += ` AND instructor_id = ` + arg(filter.InstructorID)
		}
		if filter.Status != "" {
			query += ` AND status = ` + arg(filter.Status)
		}
	}
	query += orderBy(ordering, "created_at DESC")

	var rows []paymentRow
	if err := sqlx.SelectContext(ctx, ext(repo.db, exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}
	payments := make([]payment.Payment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, row.toModel())
	}
	return payments, nil
}

func (repo paymentRepository) UpdatePayment(ctx context.Context, pmt payment.Payment, exec ...core.DBExecutor) (payment.Payment, error) {
	res, err := ext(repo.db, exec).ExecContext(ctx,
		`UPDATE payments SET amount = $2, status = $3, notes = $4, paid_at = $5 WHERE id = $1`,
		pmt.ID, pmt.Amount, pmt.Status, nullString(pmt.Notes), nullTimePtr(pmt.PaidAt),
	)
	if err != nil {
		return payment.Payment{}, errors.Wrap(err, "updating payment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return payment.Payment{}, payment.ErrNotFound
	}
	return pmt, nil
}

func (repo paymentRepository) UpdateUnpaidAmountByTask(ctx context.Context, taskID string, amount float64, exec ...core.DBExecutor) (int, error) {
	res, err := ext(repo.db, exec).ExecContext(ctx,
		`UPDATE payments SET amount = $2 WHERE task_id = $1 AND status = $3`,
		taskID, amount, payment.StatusUnpaid,
	)
	if err != nil {
		return 0, errors.Wrap(err, "resyncing unpaid payments")
	}
	cnt, _ := res.RowsAffected()
	return int(cnt), nil
}
