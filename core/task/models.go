package task

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kazi/core"
)

// Statuses. Only the review cascade may move a task to approved, rejected,
// revision_required or completed.
const (
	StatusPending          = "pending"
	StatusInProgress       = "in_progress"
	StatusSubmitted        = "submitted"
	StatusApproved         = "approved"
	StatusRejected         = "rejected"
	StatusRevisionRequired = "revision_required"
	StatusCompleted        = "completed"
)

// Priorities
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	Deadline    *time.Time `json:"deadline"` // UTC
	Amount      float64    `json:"amount"`
	AssignedTo  *string    `json:"assigned_to"`
	CreatedBy   string     `json:"created_by"`
	Status      string     `json:"status"`
	IsLocked    bool       `json:"is_locked"`
	CreatedAt   time.Time  `json:"created_at"` // UTC
	UpdatedAt   time.Time  `json:"updated_at"` // UTC
}

func (t *Task) IsAssignedTo(userID string) bool {
	return t.AssignedTo != nil && *t.AssignedTo == userID
}

// NewTask contains information needed to create a new Task.
type NewTask struct {
	Title       string     `json:"title" validate:"required,max=255"`
	Description string     `json:"description"`
	Priority    string     `json:"priority" validate:"omitempty,oneof=low medium high"`
	Deadline    *time.Time `json:"deadline"`
	Amount      float64    `json:"amount" validate:"omitempty,gte=0"`
	AssignedTo  *string    `json:"assigned_to" validate:"omitempty,uuid4"`
}

func (nt *NewTask) Validate(validate *validator.Validate) error {
	nt.Title = core.CleanString(nt.Title)
	nt.Description = core.CleanString(nt.Description)
	if nt.Priority == "" {
		nt.Priority = PriorityMedium
	}
	if nt.Amount < 0 {
		nt.Amount = 0
	}
	return validate.Struct(nt)
}

// UpdateTask defines what information may be provided to modify an existing
// Task. Status and IsLocked are not writable here; the review cascade owns
// them.
type UpdateTask struct {
	Title       string     `json:"title" validate:"omitempty,max=255"`
	Description *string    `json:"description"`
	Priority    string     `json:"priority" validate:"omitempty,oneof=low medium high"`
	Deadline    *time.Time `json:"deadline"`
	Amount      *float64   `json:"amount" validate:"omitempty,gte=0"`
	AssignedTo  *string    `json:"assigned_to" validate:"omitempty,uuid4"`
}

func (ut *UpdateTask) Validate(validate *validator.Validate) error {
	ut.Title = core.CleanString(ut.Title)
	return validate.Struct(ut)
}

type QueryFilter struct {
	Search     string    `query:"search"`
	Status     string    `query:"status"`
	Priority   string    `query:"priority"`
	AssignedTo string    `query:"assigned_to"`
	CreatedBy  string    `query:"created_by"`
	DueFrom    time.Time `query:"due_from"`
	DueTo      time.Time `query:"due_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Status == "" && qf.Priority == "" &&
		qf.AssignedTo == "" && qf.CreatedBy == "" && qf.DueFrom.IsZero() && qf.DueTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
