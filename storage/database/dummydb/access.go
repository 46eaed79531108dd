package dummydb

import (
	"context"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/access"
)

type accessRepository struct {
	db *DB
}

var _ access.Repository = (*accessRepository)(nil) // interface compliance check

func NewAccessRepository(db *DB) access.Repository {
	return &accessRepository{db: db}
}

func (repo *accessRepository) GetCourseOwner(ctx context.Context, courseID int) (int, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	if crs, ok := repo.db.course.table[courseID]; ok {
		return crs.OwnerID, nil
	}
	return 0, core.ErrNotFound
}

func (repo *accessRepository) GetAssignmentCourse(ctx context.Context, assignmentID int) (int, error) {
	repo.db.assignment.RLock()
	defer repo.db.assignment.RUnlock()

	if asg, ok := repo.db.assignment.table[assignmentID]; ok {
		return asg.CourseID, nil
	}
	return 0, core.ErrNotFound
}

func (repo *accessRepository) GetEnrollmentStatus(ctx context.Context, studentID, courseID int) (string, error) {
	repo.db.enrollment.RLock()
	defer repo.db.enrollment.RUnlock()

	for _, enr := range repo.db.enrollment.table {
		if enr.StudentID == studentID && enr.CourseID == courseID {
			return enr.Status, nil
		}
	}
	return "", core.ErrNotFound
}
