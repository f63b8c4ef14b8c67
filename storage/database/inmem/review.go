package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/review"
)

type ReviewRepository struct {
	db *DB
}

var _ review.Repository = (*ReviewRepository)(nil)

func NewReviewRepository(db *DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (repo *ReviewRepository) CreateReview(ctx context.Context, rev review.Review, exec ...core.DBExecutor) (review.Review, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	rev.ID = uuid.New().String()
	repo.db.reviews[rev.ID] = &rev
	return rev, nil
}

func (repo *ReviewRepository) GetReview(ctx context.Context, id string, exec ...core.DBExecutor) (review.Review, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if rev, ok := repo.db.reviews[id]; ok {
		return *rev, nil
	}
	return review.Review{}, review.ErrNotFound
}

func (repo *ReviewRepository) QueryReviews(ctx context.Context, filter *review.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]review.Review, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	reviews := make([]review.Review, 0)
	for _, rev := range repo.db.reviews {
		if filter != nil {
			if filter.SubmissionID != "" && rev.SubmissionID != filter.SubmissionID {
				continue
			}
			if filter.ReviewerID != "" && rev.ReviewerID != filter.ReviewerID {
				continue
			}
			if filter.Status != "" && rev.Status != filter.Status {
				continue
			}
		}
		reviews = append(reviews, *rev)
	}
	sort.Slice(reviews, func(i, j int) bool { return reviews[i].CreatedAt.After(reviews[j].CreatedAt) })
	return reviews, nil
}

func (repo *ReviewRepository) DeleteReviewsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.reviews[id]; ok {
			delete(repo.db.reviews, id)
			cnt++
		}
	}
	return cnt, nil
}
