package sqlxdb

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assignment"
)

type assignmentRepository struct {
	db *sqlx.DB
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *sqlx.DB) assignment.Repository {
	return &assignmentRepository{db: db}
}

type assignmentRow struct {
	ID          int       `db:"id"`
	CourseID    int       `db:"course_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	DueDate     time.Time `db:"due_date"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r assignmentRow) toAssignment() assignment.Assignment {
	return assignment.Assignment{
		ID:          r.ID,
		CourseID:    r.CourseID,
		Title:       r.Title,
		Description: r.Description,
		DueDate:     r.DueDate,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func (repo *assignmentRepository) CreateAssignment(ctx context.Context, asg assignment.Assignment) (assignment.Assignment, error) {
	query := `
		INSERT INTO assignment (course_id, title, description, due_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err := repo.db.QueryRowContext(
		ctx, query, asg.CourseID, asg.Title, asg.Description, asg.DueDate, asg.CreatedAt, asg.UpdatedAt,
	).Scan(&asg.ID)
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return asg, nil
}

func (repo *assignmentRepository) GetAssignmentByID(ctx context.Context, id int) (assignment.Assignment, error) {
	var row assignmentRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM assignment WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return assignment.Assignment{}, assignment.ErrNotFound
		}
		return assignment.Assignment{}, errors.Wrap(err, "selecting assignment")
	}
	return row.toAssignment(), nil
}

func (repo *assignmentRepository) UpdateAssignment(ctx context.Context, asg assignment.Assignment) (assignment.Assignment, error) {
	query := `
		UPDATE assignment
		SET title = $2, description = $3, due_date = $4, updated_at = $5
		WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, asg.ID, asg.Title, asg.Description, asg.DueDate, asg.UpdatedAt)
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "updating assignment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	return asg, nil
}

func (repo *assignmentRepository) DeleteAssignment(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM assignment WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return assignment.ErrNotFound
	}
	return nil
}

func (repo *assignmentRepository) AssignmentHasSubmissions(ctx context.Context, id int) (bool, error) {
	var has bool
	query := `SELECT EXISTS (SELECT 1 FROM submission WHERE assignment_id = $1)`
	if err := repo.db.GetContext(ctx, &has, query, id); err != nil {
		return false, errors.Wrap(err, "checking submissions")
	}
	return has, nil
}

func (repo *assignmentRepository) GetCourseSummary(ctx context.Context, courseID int) (assignment.CourseSummary, error) {
	var sum assignment.CourseSummary
	err := repo.db.QueryRowContext(ctx, `SELECT id, title FROM course WHERE id = $1`, courseID).Scan(&sum.ID, &sum.Title)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return assignment.CourseSummary{}, core.ErrNotFound
		}
		return assignment.CourseSummary{}, errors.Wrap(err, "selecting course summary")
	}
	return sum, nil
}

func (repo *assignmentRepository) CountSubmissions(ctx context.Context, assignmentID int) (int, error) {
	var count int
	query := `SELECT count(*) FROM submission WHERE assignment_id = $1`
	if err := repo.db.GetContext(ctx, &count, query, assignmentID); err != nil {
		return 0, errors.Wrap(err, "counting submissions")
	}
	return count, nil
}

func assignmentOrderClause(qf assignment.QueryFilter) string {
	switch qf.Ordering.String() {
	case "title ASC":
		return "a.title ASC, a.id ASC"
	case "title DESC":
		return "a.title DESC, a.id DESC"
	case "due_date ASC":
		return "a.due_date ASC, a.id ASC"
	case "due_date DESC":
		return "a.due_date DESC, a.id DESC"
	case "created_at ASC":
		return "a.created_at ASC, a.id ASC"
	default:
		return "a.created_at DESC, a.id DESC"
	}
}

func (repo *assignmentRepository) QueryAssignmentsForCourse(ctx context.Context, courseID int, qf assignment.QueryFilter) ([]assignment.Info, int, error) {
	query := `
		SELECT a.*,
		       count(s.id)      AS submission_count,
		       count(*) OVER () AS total
		FROM assignment a
		LEFT JOIN submission s ON s.assignment_id = a.id
		WHERE a.course_id = $1
		GROUP BY a.id
		ORDER BY ` + assignmentOrderClause(qf) + `
		LIMIT $2 OFFSET $3`

	var rows []struct {
		assignmentRow
		SubmissionCount int `db:"submission_count"`
		Total           int `db:"total"`
	}
	err := repo.db.SelectContext(ctx, &rows, query, courseID, qf.Paging.Limit, qf.Paging.Offset())
	if err != nil {
		return nil, 0, errors.Wrap(err, "selecting assignments")
	}

	total := 0
	infos := make([]assignment.Info, 0, len(rows))
	for _, row := range rows {
		total = row.Total
		infos = append(infos, assignment.Info{Assignment: row.toAssignment(), SubmissionCount: row.SubmissionCount})
	}
	return infos, total, nil
}
