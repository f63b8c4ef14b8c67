package submission

import (
	"context"
	"errors"
	"fmt"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/task"
)

var (
	// errors
	ErrNotFound = errors.New("submission not found")
	// ErrDuplicateRevision is returned by repositories when an insert loses
	// the (task, instructor, revision_number) uniqueness race.
	ErrDuplicateRevision = errors.New("revision number already taken")
)

// revision race: lose the uniqueness race, re-read the max and try again
const maxRevisionRetries = 3

type (
	Repository interface {
		// CreateSubmission returns ErrDuplicateRevision when the revision
		// number is already taken for the (task, instructor) pair.
		CreateSubmission(ctx context.Context, sub Submission, exec ...core.DBExecutor) (Submission, error)
		// NextRevisionNumber returns 1 + max(revision_number) for the pair.
		NextRevisionNumber(ctx context.Context, taskID, instructorID string, exec ...core.DBExecutor) (int, error)
		GetSubmission(ctx context.Context, id string, exec ...core.DBExecutor) (Submission, error)
		// QuerySubmissions applies AND operation on available QueryFilter fields.
		QuerySubmissions(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Submission, error)
		SetSubmissionStatus(ctx context.Context, id, status string, exec ...core.DBExecutor) (Submission, error)
		DeleteSubmissionsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
	}

	Service interface {
		Submit(ctx context.Context, actor core.Actor, ns NewSubmission) (Submission, error)
		Get(ctx context.Context, actor core.Actor, id string) (Submission, error)
		Query(ctx context.Context, actor core.Actor, filter *QueryFilter, ordering []core.DBOrdering) ([]Submission, error)
	}

	service struct {
		repo      Repository
		taskRepo  task.Repository
		fileStore core.FileStorage
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, taskRepo task.Repository, fileStore core.FileStorage) Service {
	return &service{
		repo:      repo,
		taskRepo:  taskRepo,
		fileStore: fileStore,
	}
}

// Submit records a new revision for the actor's task. The artifact (if any)
// is stored before the row is written; a store failure aborts the whole
// operation with nothing persisted.
func (svc *service) Submit(ctx context.Context, actor core.Actor, ns NewSubmission) (Submission, error) {
	if !actor.IsInstructor() {
		return Submission{}, core.NewPermissionError("only instructors can submit work")
	}

	t, err := svc.taskRepo.GetTask(ctx, ns.TaskID)
	if err != nil {
		if err == task.ErrNotFound {
			return Submission{}, core.NewValidationError(err, core.FieldError{Field: "task_id", Error: err.Error()})
		}
		return Submission{}, pkgerrors.Wrap(err, "finding task")
	}
	if !t.IsAssignedTo(actor.ID) {
		return Submission{}, core.NewPermissionError("task is not assigned to you")
	}
	if t.IsLocked {
		return Submission{}, core.NewValidationError(errors.New("task is locked; no further submissions are accepted"))
	}

	sub := Submission{
		TaskID:       ns.TaskID,
		InstructorID: actor.ID,
		LinkType:     ns.LinkType,
		Status:       StatusPending,
		SubmittedAt:  time.Now().UTC(),
	}
	if ns.SubmissionURL != "" {
		sub.SubmissionURL = &ns.SubmissionURL
	}

	// store the artifact first; the row only exists if its file does
	var filePath string
	if ns.File != nil {
		path := fmt.Sprintf("%s/%s/%d%s", actor.ID, ns.TaskID, time.Now().UnixNano(), ns.File.Ext())
		filePath, err = svc.fileStore.Save(ctx, path, ns.File.ContentType, ns.File.Size, ns.File.Content)
		if err != nil {
			return Submission{}, core.NewDependencyError("storing submission file", err)
		}
		sub.FileURL = &filePath
	}

	created, err := svc.createWithRetry(ctx, sub)
	if err != nil {
		svc.discardFile(ctx, filePath)
		return Submission{}, err
	}

	// flag the task as submitted; completed tasks are left alone
	if t.Status != task.StatusCompleted {
		if _, err = svc.taskRepo.SetTaskStatus(ctx, t.ID, task.StatusSubmitted, nil); err != nil {
			if _, delErr := svc.repo.DeleteSubmissionsByID(ctx, []string{created.ID}); delErr != nil {
				return Submission{}, core.NewDependencyError("rolling back submission after task update failure", delErr)
			}
			svc.discardFile(ctx, filePath)
			return Submission{}, core.NewDependencyError("updating task status", err)
		}
	}
	return created, nil
}

func (svc *service) createWithRetry(ctx context.Context, sub Submission) (Submission, error) {
	var lastErr error
	for attempt := 0; attempt < maxRevisionRetries; attempt++ {
		rev, err := svc.repo.NextRevisionNumber(ctx, sub.TaskID, sub.InstructorID)
		if err != nil {
			return Submission{}, pkgerrors.Wrap(err, "computing revision number")
		}
		sub.RevisionNumber = rev

		created, err := svc.repo.CreateSubmission(ctx, sub)
		if err == nil {
			return created, nil
		}
		if pkgerrors.Cause(err) != ErrDuplicateRevision {
			return Submission{}, pkgerrors.Wrap(err, "creating submission")
		}
		lastErr = err
	}
	return Submission{}, core.NewDependencyError("allocating revision number", lastErr)
}

func (svc *service) discardFile(ctx context.Context, path string) {
	if path == "" {
		return
	}
	_ = svc.fileStore.Remove(ctx, path)
}

func (svc *service) Get(ctx context.Context, actor core.Actor, id string) (Submission, error) {
	sub, err := svc.repo.GetSubmission(ctx, id)
	if err != nil {
		return Submission{}, err
	}
	if actor.IsInstructor() && sub.InstructorID != actor.ID {
		return Submission{}, ErrNotFound
	}
	return sub, nil
}

func (svc *service) Query(ctx context.Context, actor core.Actor, filter *QueryFilter, ordering []core.DBOrdering) ([]Submission, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	if actor.IsInstructor() {
		// instructors only ever see their own submissions
		filter.InstructorID = actor.ID
	} else if !actor.IsAdmin() {
		return nil, core.NewPermissionError("permission denied")
	}
	return svc.repo.QuerySubmissions(ctx, filter, ordering)
}
