package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/review"
)

type reviewRow struct {
	ID           string         `db:"id"`
	SubmissionID string         `db:"submission_id"`
	ReviewerID   string         `db:"reviewer_id"`
	Status       string         `db:"status"`
	Comment      sql.NullString `db:"comment"`
	CreatedAt    time.Time      `db:"created_at"`
}

func (r reviewRow) toModel() review.Review {
	rev := review.Review{
		ID:           r.ID,
		SubmissionID: r.SubmissionID,
		ReviewerID:   r.ReviewerID,
		Status:       r.Status,
		CreatedAt:    r.CreatedAt,
	}
	if r.Comment.Valid {
		c := r.Comment.String
		rev.Comment = &c
	}
	return rev
}

const reviewSelect = `
SELECT id, submission_id, reviewer_id, status, comment, created_at
FROM reviews`

type reviewRepository struct {
	db *sqlx.DB
}

var _ review.Repository = (*reviewRepository)(nil) // interface compliance check

func NewReviewRepository(db *sqlx.DB) *reviewRepository {
	return &reviewRepository{db: db}
}

func (repo reviewRepository) CreateReview(ctx context.Context, rev review.Review, exec ...core.DBExecutor) (review.Review, error) {
	rev.ID = uuid.New().String()
	_, err := ext(repo.db, exec).ExecContext(ctx,
		`INSERT INTO reviews (id, submission_id, reviewer_id, status, comment, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rev.ID, rev.SubmissionID, rev.ReviewerID, rev.Status, nullString(rev.Comment), rev.CreatedAt.UTC(),
	)
	if err != nil {
		return review.Review{}, errors.Wrap(err, "inserting review")
	}
	return rev, nil
}

func (repo reviewRepository) GetReview(ctx context.Context, id string, exec ...core.DBExecutor) (review.Review, error) {
	if _, err := uuid.Parse(id); err != nil {
		return review.Review{}, review.ErrNotFound
	}
	var row reviewRow
	if err := sqlx.GetContext(ctx, ext(repo.db, exec), &row, reviewSelect+` WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return review.Review{}, review.ErrNotFound
		}
		return review.Review{}, errors.Wrap(err, "finding review")
	}
	return row.toModel(), nil
}

func (repo reviewRepository) QueryReviews(ctx context.Context, filter *review.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]review.Review, error) {
	query := reviewSelect + ` WHERE TRUE`
	var args []interface{}
	arg := func(v interface{}) string { args = append(args, v); return placeholder(len(args)) }

	if filter != nil {
		if filter.SubmissionID != "" {
			query += ` AND submission_id = ` + arg(filter.SubmissionID)
		}
		if filter.ReviewerID != "" {
			query += ` AND reviewer_id = ` + arg(filter.ReviewerID)
		}
		if filter.Status != "" {
			query += ` AND status = ` + arg(filter.Status)
		}
	}
	query += orderBy(ordering, "created_at DESC")

	var rows []reviewRow
	if err := sqlx.SelectContext(ctx, ext(repo.db, exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying reviews")
	}
	reviews := make([]review.Review, 0, len(rows))
	for _, row := range rows {
		reviews = append(reviews, row.toModel())
	}
	return reviews, nil
}

func (repo reviewRepository) DeleteReviewsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	res, err := ext(repo.db, exec).ExecContext(ctx, `DELETE FROM reviews WHERE id = ANY($1)`, pqStringArray(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting reviews")
	}
	cnt, _ := res.RowsAffected()
	return int(cnt), nil
}
