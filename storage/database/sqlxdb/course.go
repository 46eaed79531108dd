package sqlxdb

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/enrollment"
)

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{db: db}
}

type courseRow struct {
	ID             int       `db:"id"`
	Title          string    `db:"title"`
	Description    string    `db:"description"`
	OwnerID        int       `db:"owner_id"`
	OpenEnrollment bool      `db:"open_enrollment"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (r courseRow) toCourse() course.Course {
	return course.Course{
		ID:             r.ID,
		Title:          r.Title,
		Description:    r.Description,
		OwnerID:        r.OwnerID,
		OpenEnrollment: r.OpenEnrollment,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type courseInfoRow struct {
	courseRow
	AssignmentCount int `db:"assignment_count"`
	Total           int `db:"total"`
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	query := `
		INSERT INTO course (title, description, owner_id, open_enrollment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err := repo.db.QueryRowContext(
		ctx, query, crs.Title, crs.Description, crs.OwnerID, crs.OpenEnrollment, crs.CreatedAt, crs.UpdatedAt,
	).Scan(&crs.ID)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return crs, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id int) (course.Course, error) {
	var row courseRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM course WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "selecting course")
	}
	return row.toCourse(), nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	query := `
		UPDATE course
		SET title = $2, description = $3, open_enrollment = $4, updated_at = $5
		WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, crs.ID, crs.Title, crs.Description, crs.OpenEnrollment, crs.UpdatedAt)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return crs, nil
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM course WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.ErrNotFound
	}
	return nil
}

func (repo *courseRepository) CourseHasAssignments(ctx context.Context, id int) (bool, error) {
	var has bool
	query := `SELECT EXISTS (SELECT 1 FROM assignment WHERE course_id = $1)`
	if err := repo.db.GetContext(ctx, &has, query, id); err != nil {
		return false, errors.Wrap(err, "checking assignments")
	}
	return has, nil
}

func (repo *courseRepository) GetCourseStats(ctx context.Context, id int) (course.Stats, error) {
	var stats course.Stats
	query := `
		SELECT
			(SELECT count(*) FROM assignment WHERE course_id = $1) AS assignments,
			(SELECT count(*) FROM enrollment WHERE course_id = $1 AND status = $2) AS students`
	err := repo.db.QueryRowContext(ctx, query, id, enrollment.StatusApproved).Scan(&stats.Assignments, &stats.Students)
	if err != nil {
		return course.Stats{}, errors.Wrap(err, "selecting course stats")
	}
	return stats, nil
}

// orderClause whitelists the sortable columns; the filter is pre-cleaned
// but the SQL never interpolates a raw client value.
func courseOrderClause(qf course.QueryFilter) string {
	switch qf.Ordering.String() {
	case "title ASC":
		return "c.title ASC, c.id ASC"
	case "title DESC":
		return "c.title DESC, c.id DESC"
	case "created_at ASC":
		return "c.created_at ASC, c.id ASC"
	default:
		return "c.created_at DESC, c.id DESC"
	}
}

func (repo *courseRepository) queryInfos(ctx context.Context, where string, qf course.QueryFilter, args ...interface{}) ([]course.Info, int, error) {
	query := `
		SELECT c.*,
		       count(a.id)        AS assignment_count,
		       count(*) OVER ()   AS total
		FROM course c
		LEFT JOIN assignment a ON a.course_id = c.id
		WHERE ` + where + `
		GROUP BY c.id
		ORDER BY ` + courseOrderClause(qf) + `
		LIMIT $` + itoa(len(args)+1) + ` OFFSET $` + itoa(len(args)+2)
	args = append(args, qf.Paging.Limit, qf.Paging.Offset())

	var rows []courseInfoRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "selecting courses")
	}

	total := 0
	infos := make([]course.Info, 0, len(rows))
	for _, row := range rows {
		total = row.Total
		infos = append(infos, course.Info{Course: row.toCourse(), AssignmentCount: row.AssignmentCount})
	}
	if len(rows) == 0 {
		// the window total vanishes with the rows; count separately
		countQuery := `SELECT count(*) FROM course c WHERE ` + where
		if err := repo.db.GetContext(ctx, &total, countQuery, args[:len(args)-2]...); err != nil {
			return nil, 0, errors.Wrap(err, "counting courses")
		}
	}
	return infos, total, nil
}

func (repo *courseRepository) QueryCoursesByOwner(ctx context.Context, ownerID int, qf course.QueryFilter) ([]course.Info, int, error) {
	where := `c.owner_id = $1 AND (c.title ILIKE $2 OR c.description ILIKE $2)`
	return repo.queryInfos(ctx, where, qf, ownerID, like(qf.Search))
}

func (repo *courseRepository) QueryCoursesForStudent(ctx context.Context, studentID int, qf course.QueryFilter) ([]course.Info, int, error) {
	where := `c.id IN (SELECT course_id FROM enrollment WHERE student_id = $1 AND status = $2)
		AND (c.title ILIKE $3 OR c.description ILIKE $3)`
	return repo.queryInfos(ctx, where, qf, studentID, enrollment.StatusApproved, like(qf.Search))
}

func (repo *courseRepository) QueryCatalog(ctx context.Context, studentID int, qf course.QueryFilter) ([]course.CatalogEntry, int, error) {
	query := `
		SELECT c.*,
		       coalesce(e.status, '') AS enrollment_status,
		       count(*) OVER ()       AS total
		FROM course c
		LEFT JOIN enrollment e ON e.course_id = c.id AND e.student_id = $1
		WHERE coalesce(e.status, '') <> $2
		  AND (c.title ILIKE $3 OR c.description ILIKE $3)
		ORDER BY ` + courseOrderClause(qf) + `
		LIMIT $4 OFFSET $5`

	var rows []struct {
		courseRow
		EnrollmentStatus string `db:"enrollment_status"`
		Total            int    `db:"total"`
	}
	err := repo.db.SelectContext(ctx, &rows, query,
		studentID, enrollment.StatusApproved, like(qf.Search), qf.Paging.Limit, qf.Paging.Offset())
	if err != nil {
		return nil, 0, errors.Wrap(err, "selecting catalog")
	}

	total := 0
	entries := make([]course.CatalogEntry, 0, len(rows))
	for _, row := range rows {
		total = row.Total
		entries = append(entries, course.CatalogEntry{Course: row.toCourse(), EnrollmentStatus: row.EnrollmentStatus})
	}
	return entries, total, nil
}
