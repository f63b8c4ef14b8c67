package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/submission"
)

type submissionRow struct {
	ID             string         `db:"id"`
	TaskID         string         `db:"task_id"`
	InstructorID   string         `db:"instructor_id"`
	SubmissionURL  sql.NullString `db:"submission_url"`
	FileURL        sql.NullString `db:"file_url"`
	LinkType       string         `db:"link_type"`
	RevisionNumber int            `db:"revision_number"`
	Status         string         `db:"status"`
	SubmittedAt    time.Time      `db:"submitted_at"`
}

func (r submissionRow) toModel() submission.Submission {
	sub := submission.Submission{
		ID:             r.ID,
		TaskID:         r.TaskID,
		InstructorID:   r.InstructorID,
		LinkType:       r.LinkType,
		RevisionNumber: r.RevisionNumber,
		Status:         r.Status,
		SubmittedAt:    r.SubmittedAt,
	}
	if r.SubmissionURL.Valid {
		u := r.SubmissionURL.String
		sub.SubmissionURL = &u
	}
	if r.FileURL.Valid {
		f := r.FileURL.String
		sub.FileURL = &f
	}
	return sub
}

const submissionSelect = `
SELECT id, task_id, instructor_id, submission_url, file_url, link_type,
       revision_number, status, submitted_at
FROM submissions`

type submissionRepository struct {
	db *sqlx.DB
}

var _ submission.Repository = (*submissionRepository)(nil) // interface compliance check

func NewSubmissionRepository(db *sqlx.DB) *submissionRepository {
	return &submissionRepository{db: db}
}

func (repo submissionRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return submission.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo submissionRepository) CreateSubmission(ctx context.Context, sub submission.Submission, exec ...core.DBExecutor) (submission.Submission, error) {
	sub.ID = uuid.New().String()
	_, err := ext(repo.db, exec).ExecContext(ctx,
		`INSERT INTO submissions (id, task_id, instructor_id, submission_url, file_url, link_type,
		                          revision_number, status, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		sub.ID, sub.TaskID, sub.InstructorID, nullString(sub.SubmissionURL), nullString(sub.FileURL),
		sub.LinkType, sub.RevisionNumber, sub.Status, sub.SubmittedAt.UTC(),
	)
	if err != nil {
		// the (task, instructor, revision_number) uniqueness race
		if isUniqueViolation(err) {
			return submission.Submission{}, submission.ErrDuplicateRevision
		}
		return submission.Submission{}, errors.Wrap(err, "inserting submission")
	}
	return sub, nil
}

func (repo submissionRepository) NextRevisionNumber(ctx context.Context, taskID, instructorID string, exec ...core.DBExecutor) (int, error) {
	var max int
	err := sqlx.GetContext(ctx, ext(repo.db, exec), &max,
		`SELECT COALESCE(MAX(revision_number), 0) FROM submissions WHERE task_id = $1 AND instructor_id = $2`,
		taskID, instructorID,
	)
	if err != nil {
		return 0, errors.Wrap(err, "reading max revision number")
	}
	return max + 1, nil
}

func (repo submissionRepository) GetSubmission(ctx context.Context, id string, exec ...core.DBExecutor) (submission.Submission, error) {
	if _, err := uuid.Parse(id); err != nil {
		return submission.Submission{}, submission.ErrNotFound
	}
	var row submissionRow
	if err := sqlx.GetContext(ctx, ext(repo.db, exec), &row, submissionSelect+` WHERE id = $1`, id); err != nil {
		return submission.Submission{}, repo.trapNoRowsErr(err, "finding submission")
	}
	return row.toModel(), nil
}

func (repo submissionRepository) QuerySubmissions(ctx context.Context, filter *submission.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]submission.Submission, error) {
	query := submissionSelect + ` WHERE TRUE`
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
	query += orderBy(ordering, "submitted_at DESC")

	var rows []submissionRow
	if err := sqlx.SelectContext(ctx, ext(repo.db, exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	subs := make([]submission.Submission, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, row.toModel())
	}
	return subs, nil
}

func (repo submissionRepository) SetSubmissionStatus(ctx context.Context, id, status string, exec ...core.DBExecutor) (submission.Submission, error) {
	res, err := ext(repo.db, exec).ExecContext(ctx,
		`UPDATE submissions SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return submission.Submission{}, errors.Wrap(err, "updating submission status")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return submission.Submission{}, submission.ErrNotFound
	}
	return repo.GetSubmission(ctx, id, exec...)
}

func (repo submissionRepository) DeleteSubmissionsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	res, err := ext(repo.db, exec).ExecContext(ctx, `DELETE FROM submissions WHERE id = ANY($1)`, pqStringArray(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting submissions")
	}
	cnt, _ := res.RowsAffected()
	return int(cnt), nil
}
