package submission

import (
	"io"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kazi/core"
)

// Statuses. A submission stays pending until the review engine records a
// verdict.
const (
	StatusPending          = "pending"
	StatusApproved         = "approved"
	StatusRejected         = "rejected"
	StatusRevisionRequired = "revision_required"
)

// Link types
const (
	LinkTypeGithub     = "github"
	LinkTypeDrive      = "drive"
	LinkTypeDocs       = "docs"
	LinkTypeOther      = "other"
	LinkTypeFileUpload = "file_upload"
)

type Submission struct {
	ID             string    `json:"id"`
	TaskID         string    `json:"task_id"`
	InstructorID   string    `json:"instructor_id"`
	SubmissionURL  *string   `json:"submission_url"`
	FileURL        *string   `json:"file_url"`
	LinkType       string    `json:"link_type"`
	RevisionNumber int       `json:"revision_number"`
	Status         string    `json:"status"`
	SubmittedAt    time.Time `json:"submitted_at"` // UTC
}

// FileUpload is an artifact streamed in with a submission.
type FileUpload struct {
	Name        string
	Size        int64
	ContentType string
	Content     io.Reader
}

func (f *FileUpload) Ext() string { return filepath.Ext(f.Name) }

// NewSubmission contains information needed to record a new Submission.
// Exactly one of SubmissionURL or File must be provided.
type NewSubmission struct {
	TaskID        string  `json:"task_id" validate:"required,uuid4"`
	SubmissionURL string  `json:"submission_url" validate:"omitempty,url"`
	LinkType      string  `json:"link_type" validate:"omitempty,oneof=github drive docs other"`
	File          *FileUpload `json:"-"`
}

func (ns *NewSubmission) Validate(validate *validator.Validate) error {
	ns.TaskID = core.CleanString(ns.TaskID)
	ns.SubmissionURL = core.CleanString(ns.SubmissionURL)

	if err := validate.Struct(ns); err != nil {
		return err
	}

	hasLink := ns.SubmissionURL != ""
	hasFile := ns.File != nil
	if hasLink == hasFile {
		msg := "provide either a submission link or a file, not both"
		return core.NewValidationError(nil,
			core.FieldError{Field: "submission_url", Error: msg},
			core.FieldError{Field: "file", Error: msg},
		)
	}

	if hasFile {
		if ns.File.Size > core.MaxUploadSize {
			return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "file exceeds the 50MB limit"})
		}
		ns.LinkType = LinkTypeFileUpload
	} else if ns.LinkType == "" {
		ns.LinkType = LinkTypeOther
	}
	return nil
}

type QueryFilter struct {
	TaskID       string `query:"task_id"`
	InstructorID string `query:"instructor_id"`
	Status       string `query:"status"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.TaskID == "" && qf.InstructorID == "" && qf.Status == ""
}
