package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/submission"
)

type SubmissionRepository struct {
	db *DB

	// NextRevisionHook runs after each NextRevisionNumber read but before the
	// number is returned; used to simulate a concurrent writer stealing the
	// revision between the read and the insert.
	NextRevisionHook func()
}

var _ submission.Repository = (*SubmissionRepository)(nil)

func NewSubmissionRepository(db *DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

func (repo *SubmissionRepository) CreateSubmission(ctx context.Context, sub submission.Submission, exec ...core.DBExecutor) (submission.Submission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	// UNIQUE (task_id, instructor_id, revision_number)
	for _, s := range repo.db.submissions {
		if s.TaskID == sub.TaskID && s.InstructorID == sub.InstructorID && s.RevisionNumber == sub.RevisionNumber {
			return submission.Submission{}, submission.ErrDuplicateRevision
		}
	}

	sub.ID = uuid.New().String()
	repo.db.submissions[sub.ID] = &sub
	return sub, nil
}

func (repo *SubmissionRepository) NextRevisionNumber(ctx context.Context, taskID, instructorID string, exec ...core.DBExecutor) (int, error) {
	repo.db.mutex.RLock()
	var max int
	for _, s := range repo.db.submissions {
		if s.TaskID == taskID && s.InstructorID == instructorID && s.RevisionNumber > max {
			max = s.RevisionNumber
		}
	}
	repo.db.mutex.RUnlock()

	// the hook may insert rows, so the read lock must be released first
	if repo.NextRevisionHook != nil {
		repo.NextRevisionHook()
	}
	return max + 1, nil
}

func (repo *SubmissionRepository) GetSubmission(ctx context.Context, id string, exec ...core.DBExecutor) (submission.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if sub, ok := repo.db.submissions[id]; ok {
		return *sub, nil
	}
	return submission.Submission{}, submission.ErrNotFound
}

func (repo *SubmissionRepository) QuerySubmissions(ctx context.Context, filter *submission.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]submission.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	subs := make([]submission.Submission, 0)
	for _, sub := range repo.db.submissions {
		if filter != nil {
			if filter.TaskID != "" && sub.TaskID != filter.TaskID {
				continue
			}
			if filter.InstructorID != "" && sub.InstructorID != filter.InstructorID {
				continue
			}
			if filter.Status != "" && sub.Status != filter.Status {
				continue
			}
		}
		subs = append(subs, *sub)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].SubmittedAt.After(subs[j].SubmittedAt) })
	return subs, nil
}

func (repo *SubmissionRepository) SetSubmissionStatus(ctx context.Context, id, status string, exec ...core.DBExecutor) (submission.Submission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	stored, ok := repo.db.submissions[id]
	if !ok {
		return submission.Submission{}, submission.ErrNotFound
	}
	stored.Status = status
	return *stored, nil
}

func (repo *SubmissionRepository) DeleteSubmissionsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.submissions[id]; ok {
			delete(repo.db.submissions, id)
			cnt++
		}
	}
	return cnt, nil
}
