package sqlxdb

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core/submission"
)

type submissionRepository struct {
	db *sqlx.DB
}

var _ submission.Repository = (*submissionRepository)(nil) // interface compliance check

func NewSubmissionRepository(db *sqlx.DB) submission.Repository {
	return &submissionRepository{db: db}
}

type submissionRow struct {
	ID           int          `db:"id"`
	AssignmentID int          `db:"assignment_id"`
	StudentID    int          `db:"student_id"`
	SubmittedAt  time.Time    `db:"submitted_at"`
	FileKey      string       `db:"file_key"`
	FileName     string       `db:"file_name"`
	FileURL      string       `db:"file_url"`
	Grade        null.Float64 `db:"grade"`
	Note         string       `db:"note"`
	GradedAt     null.Time    `db:"graded_at"`
}

func (r submissionRow) toSubmission() submission.Submission {
	return submission.Submission{
		ID:           r.ID,
		AssignmentID: r.AssignmentID,
		StudentID:    r.StudentID,
		SubmittedAt:  r.SubmittedAt,
		FileKey:      r.FileKey,
		FileName:     r.FileName,
		FileURL:      r.FileURL,
		Grade:        r.Grade,
		Note:         r.Note,
		GradedAt:     r.GradedAt,
	}
}

func (repo *submissionRepository) CreateSubmission(ctx context.Context, sub submission.Submission) (submission.Submission, error) {
	query := `
		INSERT INTO submission (assignment_id, student_id, submitted_at, file_key, file_name, file_url, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	err := repo.db.QueryRowContext(
		ctx, query, sub.AssignmentID, sub.StudentID, sub.SubmittedAt, sub.FileKey, sub.FileName, sub.FileURL, sub.Note,
	).Scan(&sub.ID)
	if err != nil {
		return submission.Submission{}, errors.Wrap(err, "inserting submission")
	}
	return sub, nil
}

func (repo *submissionRepository) GetSubmissionByID(ctx context.Context, id int) (submission.Submission, error) {
	var row submissionRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM submission WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return submission.Submission{}, submission.ErrNotFound
		}
		return submission.Submission{}, errors.Wrap(err, "selecting submission")
	}
	return row.toSubmission(), nil
}

func (repo *submissionRepository) DeleteSubmission(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM submission WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting submission")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return submission.ErrNotFound
	}
	return nil
}

func (repo *submissionRepository) BulkUpdateGrades(ctx context.Context, assignmentID int, gradedAt time.Time, updates []submission.GradeUpdate) (int, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "starting grade batch")
	}
	defer func() { _ = tx.Rollback() }()

	// the assignment_id predicate silently drops ids from other assignments
	query := `
		UPDATE submission
		SET grade    = coalesce($3, grade),
		    note     = coalesce($4, note),
		    graded_at = $5
		WHERE id = $1 AND assignment_id = $2`

	modified := 0
	for _, gu := range updates {
		res, err := tx.ExecContext(ctx, query, gu.ID, assignmentID, gu.Grade, gu.Note, gradedAt)
		if err != nil {
			return 0, errors.Wrap(err, "updating grade")
		}
		if n, _ := res.RowsAffected(); n > 0 {
			modified++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "committing grade batch")
	}
	return modified, nil
}

func submissionOrderClause(qf submission.QueryFilter) string {
	switch qf.Ordering.String() {
	case "grade ASC":
		return "s.grade ASC NULLS FIRST, s.id ASC"
	case "grade DESC":
		return "s.grade DESC NULLS LAST, s.id DESC"
	case "submitted_at ASC":
		return "s.submitted_at ASC, s.id ASC"
	default:
		return "s.submitted_at DESC, s.id DESC"
	}
}

func (repo *submissionRepository) QuerySubmissionsForAssignment(ctx context.Context, assignmentID, studentID int, qf submission.QueryFilter) ([]submission.Detail, int, error) {
	query := `
		SELECT s.*, u.name AS student_name, u.email AS student_email,
		       count(*) OVER () AS total
		FROM submission s
		JOIN "user" u ON u.id = s.student_id
		WHERE s.assignment_id = $1 AND ($2 = 0 OR s.student_id = $2)
		ORDER BY ` + submissionOrderClause(qf) + `
		LIMIT $3 OFFSET $4`

	var rows []struct {
		submissionRow
		StudentName  string `db:"student_name"`
		StudentEmail string `db:"student_email"`
		Total        int    `db:"total"`
	}
	err := repo.db.SelectContext(ctx, &rows, query, assignmentID, studentID, qf.Paging.Limit, qf.Paging.Offset())
	if err != nil {
		return nil, 0, errors.Wrap(err, "selecting submissions")
	}

	total := 0
	details := make([]submission.Detail, 0, len(rows))
	for _, row := range rows {
		total = row.Total
		details = append(details, submission.Detail{
			Submission:   row.toSubmission(),
			StudentName:  row.StudentName,
			StudentEmail: row.StudentEmail,
		})
	}
	return details, total, nil
}

func (repo *submissionRepository) GetAssignmentInfo(ctx context.Context, assignmentID int) (submission.AssignmentInfo, error) {
	var info submission.AssignmentInfo
	query := `SELECT id, course_id, due_date FROM assignment WHERE id = $1`
	err := repo.db.QueryRowContext(ctx, query, assignmentID).Scan(&info.ID, &info.CourseID, &info.DueDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return submission.AssignmentInfo{}, submission.ErrAssignmentNotFound
		}
		return submission.AssignmentInfo{}, errors.Wrap(err, "selecting assignment info")
	}
	return info, nil
}
