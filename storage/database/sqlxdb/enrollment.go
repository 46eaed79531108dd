package sqlxdb

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/enrollment"
)

type enrollmentRepository struct {
	db *sqlx.DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *sqlx.DB) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

type enrollmentRow struct {
	ID        int       `db:"id"`
	StudentID int       `db:"student_id"`
	CourseID  int       `db:"course_id"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
}

func (r enrollmentRow) toEnrollment() enrollment.Enrollment {
	return enrollment.Enrollment{
		ID:        r.ID,
		StudentID: r.StudentID,
		CourseID:  r.CourseID,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
	}
}

type enrollmentDetailRow struct {
	enrollmentRow
	StudentName  string `db:"student_name"`
	StudentEmail string `db:"student_email"`
	CourseTitle  string `db:"course_title"`
	Total        int    `db:"total"`
}

func (r enrollmentDetailRow) toDetail() enrollment.Detail {
	return enrollment.Detail{
		Enrollment:   r.toEnrollment(),
		StudentName:  r.StudentName,
		StudentEmail: r.StudentEmail,
		CourseTitle:  r.CourseTitle,
	}
}

func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	query := `
		INSERT INTO enrollment (student_id, course_id, status, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	err := repo.db.QueryRowContext(ctx, query, enr.StudentID, enr.CourseID, enr.Status, enr.CreatedAt).Scan(&enr.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return enrollment.Enrollment{}, enrollment.ErrAlreadyEnrolled
		}
		return enrollment.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return enr, nil
}

func (repo *enrollmentRepository) GetEnrollment(ctx context.Context, studentID, courseID int) (enrollment.Enrollment, error) {
	var row enrollmentRow
	query := `SELECT * FROM enrollment WHERE student_id = $1 AND course_id = $2`
	err := repo.db.GetContext(ctx, &row, query, studentID, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return enrollment.Enrollment{}, enrollment.ErrNotFound
		}
		return enrollment.Enrollment{}, errors.Wrap(err, "selecting enrollment")
	}
	return row.toEnrollment(), nil
}

func (repo *enrollmentRepository) GetEnrollmentByID(ctx context.Context, id int) (enrollment.Detail, error) {
	var row enrollmentDetailRow
	query := `
		SELECT e.*, u.name AS student_name, u.email AS student_email, c.title AS course_title, 0 AS total
		FROM enrollment e
		JOIN "user" u ON u.id = e.student_id
		JOIN course c ON c.id = e.course_id
		WHERE e.id = $1`
	err := repo.db.GetContext(ctx, &row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return enrollment.Detail{}, enrollment.ErrNotFound
		}
		return enrollment.Detail{}, errors.Wrap(err, "selecting enrollment")
	}
	return row.toDetail(), nil
}

func (repo *enrollmentRepository) UpdateEnrollmentStatus(ctx context.Context, id int, status string) (enrollment.Enrollment, error) {
	var row enrollmentRow
	query := `UPDATE enrollment SET status = $2 WHERE id = $1 RETURNING *`
	err := repo.db.GetContext(ctx, &row, query, id, status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return enrollment.Enrollment{}, enrollment.ErrNotFound
		}
		return enrollment.Enrollment{}, errors.Wrap(err, "updating enrollment")
	}
	return row.toEnrollment(), nil
}

func (repo *enrollmentRepository) DeleteEnrollment(ctx context.Context, studentID, courseID int) error {
	query := `DELETE FROM enrollment WHERE student_id = $1 AND course_id = $2`
	res, err := repo.db.ExecContext(ctx, query, studentID, courseID)
	if err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return enrollment.ErrNotFound
	}
	return nil
}

func (repo *enrollmentRepository) GetCoursePolicy(ctx context.Context, courseID int) (bool, error) {
	var open bool
	err := repo.db.GetContext(ctx, &open, `SELECT open_enrollment FROM course WHERE id = $1`, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, enrollment.ErrCourseNotFound
		}
		return false, errors.Wrap(err, "selecting course policy")
	}
	return open, nil
}

func (repo *enrollmentRepository) QueryEnrollmentsForCourse(ctx context.Context, courseID int, status string, pg core.Paging) ([]enrollment.Detail, int, error) {
	query := `
		SELECT e.*, u.name AS student_name, u.email AS student_email, c.title AS course_title,
		       count(*) OVER () AS total
		FROM enrollment e
		JOIN "user" u ON u.id = e.student_id
		JOIN course c ON c.id = e.course_id
		WHERE e.course_id = $1 AND ($2 = '' OR e.status = $2)
		ORDER BY e.created_at DESC, e.id DESC
		LIMIT $3 OFFSET $4`

	var rows []enrollmentDetailRow
	err := repo.db.SelectContext(ctx, &rows, query, courseID, status, pg.Limit, pg.Offset())
	if err != nil {
		return nil, 0, errors.Wrap(err, "selecting enrollments")
	}

	total := 0
	details := make([]enrollment.Detail, 0, len(rows))
	for _, row := range rows {
		total = row.Total
		details = append(details, row.toDetail())
	}
	return details, total, nil
}
