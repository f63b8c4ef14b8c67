package review

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kazi/core"
)

// Verdicts
const (
	StatusApproved         = "approved"
	StatusRejected         = "rejected"
	StatusRevisionRequired = "revision_required"
)

// Review is an append-only verdict record; reviews are never edited or
// deleted once the cascade has committed.
type Review struct {
	ID           string    `json:"id"`
	SubmissionID string    `json:"submission_id"`
	ReviewerID   string    `json:"reviewer_id"`
	Status       string    `json:"status"`
	Comment      *string   `json:"comment"`
	CreatedAt    time.Time `json:"created_at"` // UTC
}

// NewReview contains information needed to record a verdict.
type NewReview struct {
	SubmissionID string  `json:"submission_id" validate:"required,uuid4"`
	Status       string  `json:"status" validate:"required,oneof=approved rejected revision_required"`
	Comment      *string `json:"comment" validate:"omitempty,max=2000"`
}

func (nr *NewReview) Validate(validate *validator.Validate) error {
	nr.SubmissionID = core.CleanString(nr.SubmissionID)
	if nr.Comment != nil {
		c := core.CleanString(*nr.Comment)
		if c == "" {
			nr.Comment = nil
		} else {
			nr.Comment = &c
		}
	}
	return validate.Struct(nr)
}

type QueryFilter struct {
	SubmissionID string `query:"submission_id"`
	ReviewerID   string `query:"reviewer_id"`
	Status       string `query:"status"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.SubmissionID == "" && qf.ReviewerID == "" && qf.Status == ""
}
