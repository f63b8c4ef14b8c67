package payment

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Statuses. A payment entry moves unpaid -> paid exactly once.
const (
	StatusUnpaid = "unpaid"
	StatusPaid   = "paid"
)

type Payment struct {
	ID           string     `json:"id"`
	TaskID       string     `json:"task_id"`
	InstructorID string     `json:"instructor_id"`
	Amount       float64    `json:"amount"`
	Status       string     `json:"status"`
	Notes        *string    `json:"notes"`
	PaidAt       *time.Time `json:"paid_at"` // UTC
	CreatedAt    time.Time  `json:"created_at"`
}

func (p *Payment) IsPaid() bool { return p.Status == StatusPaid }

// MarkPaidRequest carries the optional notes recorded when settling an entry.
type MarkPaidRequest struct {
	Notes *string `json:"notes" validate:"omitempty,max=1000"`
}

func (mp *MarkPaidRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(mp)
}

// MarkManyPaidRequest settles several entries in one call; each entry
// succeeds or fails on its own.
type MarkManyPaidRequest struct {
	IDs   []string `json:"ids" validate:"required,min=1,dive,uuid4"`
	Notes *string  `json:"notes" validate:"omitempty,max=1000"`
}

func (mp *MarkManyPaidRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(mp)
}

// Result reports the outcome of settling a single entry in a bulk call.
type Result struct {
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
}

// Summary holds ledger totals recomputed from the underlying rows.
type Summary struct {
	TotalPayable float64 `json:"total_payable"`
	TotalPaid    float64 `json:"total_paid"`
	TotalDue     float64 `json:"total_due"`
	PendingCount int     `json:"pending_count"`
}

type QueryFilter struct {
	TaskID       string `query:"task_id"`
	InstructorID string `query:"instructor_id"`
	Status       string `query:"status"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.TaskID == "" && qf.InstructorID == "" && qf.Status == ""
}
