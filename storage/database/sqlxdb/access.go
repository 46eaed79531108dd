package sqlxdb

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/access"
)

type accessRepository struct {
	db *sqlx.DB
}

var _ access.Repository = (*accessRepository)(nil) // interface compliance check

func NewAccessRepository(db *sqlx.DB) access.Repository {
	return &accessRepository{db: db}
}

func (repo *accessRepository) GetCourseOwner(ctx context.Context, courseID int) (int, error) {
	var ownerID int
	err := repo.db.GetContext(ctx, &ownerID, `SELECT owner_id FROM course WHERE id = $1`, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, core.ErrNotFound
		}
		return 0, errors.Wrap(err, "selecting course owner")
	}
	return ownerID, nil
}

func (repo *accessRepository) GetAssignmentCourse(ctx context.Context, assignmentID int) (int, error) {
	var courseID int
	err := repo.db.GetContext(ctx, &courseID, `SELECT course_id FROM assignment WHERE id = $1`, assignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, core.ErrNotFound
		}
		return 0, errors.Wrap(err, "selecting assignment course")
	}
	return courseID, nil
}

func (repo *accessRepository) GetEnrollmentStatus(ctx context.Context, studentID, courseID int) (string, error) {
	var status string
	query := `SELECT status FROM enrollment WHERE student_id = $1 AND course_id = $2`
	err := repo.db.GetContext(ctx, &status, query, studentID, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", core.ErrNotFound
		}
		return "", errors.Wrap(err, "selecting enrollment status")
	}
	return status, nil
}
