package review

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/submission"
	"github.com/trezcool/kazi/core/task"
)

var (
	// errors
	ErrNotFound       = errors.New("review not found")
	ErrAlreadyDecided = errors.New("submission has already been reviewed")
)

// verdictCascade maps a review verdict to the task status it forces. The
// approved branch is the only path that completes and locks a task.
var verdictCascade = map[string]struct {
	taskStatus string
	lock       bool
}{
	StatusApproved:         {task.StatusCompleted, true},
	StatusRejected:         {task.StatusRejected, false},
	StatusRevisionRequired: {task.StatusRevisionRequired, false},
}

type (
	Repository interface {
		CreateReview(ctx context.Context, rev Review, exec ...core.DBExecutor) (Review, error)
		GetReview(ctx context.Context, id string, exec ...core.DBExecutor) (Review, error)
		// QueryReviews applies AND operation on available QueryFilter fields.
		QueryReviews(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Review, error)
		DeleteReviewsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
	}

	Service interface {
		// Review records a verdict on a pending submission and cascades it to
		// the submission and its task.
		Review(ctx context.Context, actor core.Actor, nr NewReview) (Review, error)
		// QuickReview is Review without a comment.
		QuickReview(ctx context.Context, actor core.Actor, submissionID, verdict string) (Review, error)
		Query(ctx context.Context, actor core.Actor, filter *QueryFilter, ordering []core.DBOrdering) ([]Review, error)
	}

	service struct {
		repo     Repository
		subRepo  submission.Repository
		taskRepo task.Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, subRepo submission.Repository, taskRepo task.Repository) Service {
	return &service{
		repo:     repo,
		subRepo:  subRepo,
		taskRepo: taskRepo,
	}
}

// Review appends the verdict, then moves the submission and its task.
// A later step failing undoes the earlier writes and names the failed step;
// the ledger is never touched from here.
func (svc *service) Review(ctx context.Context, actor core.Actor, nr NewReview) (Review, error) {
	if !actor.IsAdmin() {
		return Review{}, core.NewPermissionError("only admins can review submissions")
	}

	sub, err := svc.subRepo.GetSubmission(ctx, nr.SubmissionID)
	if err != nil {
		if pkgerrors.Cause(err) == submission.ErrNotFound {
			return Review{}, core.NewValidationError(err, core.FieldError{Field: "submission_id", Error: err.Error()})
		}
		return Review{}, pkgerrors.Wrap(err, "finding submission")
	}
	if sub.Status != submission.StatusPending {
		return Review{}, core.NewStateError(ErrAlreadyDecided.Error())
	}

	cascade, ok := verdictCascade[nr.Status]
	if !ok {
		return Review{}, core.NewValidationError(nil, core.FieldError{Field: "status", Error: "invalid verdict"})
	}

	rev := Review{
		SubmissionID: sub.ID,
		ReviewerID:   actor.ID,
		Status:       nr.Status,
		Comment:      nr.Comment,
		CreatedAt:    time.Now().UTC(),
	}
	rev, err = svc.repo.CreateReview(ctx, rev)
	if err != nil {
		return Review{}, pkgerrors.Wrap(err, "creating review")
	}

	if _, err = svc.subRepo.SetSubmissionStatus(ctx, sub.ID, nr.Status); err != nil {
		svc.dropReview(ctx, rev.ID)
		return Review{}, core.NewDependencyError("updating submission status", err)
	}

	lock := cascade.lock
	if _, err = svc.taskRepo.SetTaskStatus(ctx, sub.TaskID, cascade.taskStatus, &lock); err != nil {
		// revert the submission to pending before dropping the review
		if _, revErr := svc.subRepo.SetSubmissionStatus(ctx, sub.ID, submission.StatusPending); revErr != nil {
			return Review{}, core.NewDependencyError("reverting submission after task update failure", revErr)
		}
		svc.dropReview(ctx, rev.ID)
		return Review{}, core.NewDependencyError("updating task status", err)
	}
	return rev, nil
}

func (svc *service) QuickReview(ctx context.Context, actor core.Actor, submissionID, verdict string) (Review, error) {
	return svc.Review(ctx, actor, NewReview{SubmissionID: submissionID, Status: verdict})
}

func (svc *service) Query(ctx context.Context, actor core.Actor, filter *QueryFilter, ordering []core.DBOrdering) ([]Review, error) {
	if !actor.IsAdmin() {
		return nil, core.NewPermissionError("permission denied")
	}
	if filter == nil {
		filter = new(QueryFilter)
	}
	return svc.repo.QueryReviews(ctx, filter, ordering)
}

func (svc *service) dropReview(ctx context.Context, id string) {
	_, _ = svc.repo.DeleteReviewsByID(ctx, []string{id})
}
