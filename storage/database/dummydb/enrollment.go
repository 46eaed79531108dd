package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/enrollment"
)

type enrollmentRepository struct {
	db *DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *DB) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	repo.db.enrollment.Lock()
	defer repo.db.enrollment.Unlock()

	// the unique (student, course) constraint lives here, under the write
	// lock, so two concurrent creates cannot both pass
	for _, e := range repo.db.enrollment.table {
		if e.StudentID == enr.StudentID && e.CourseID == enr.CourseID {
			return enrollment.Enrollment{}, enrollment.ErrAlreadyEnrolled
		}
	}

	repo.db.enrollment.seq++
	enr.ID = repo.db.enrollment.seq
	repo.db.enrollment.table[enr.ID] = &enr
	return enr, nil
}

func (repo *enrollmentRepository) GetEnrollment(ctx context.Context, studentID, courseID int) (enrollment.Enrollment, error) {
	repo.db.enrollment.RLock()
	defer repo.db.enrollment.RUnlock()

	for _, enr := range repo.db.enrollment.table {
		if enr.StudentID == studentID && enr.CourseID == courseID {
			return *enr, nil
		}
	}
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) GetEnrollmentByID(ctx context.Context, id int) (enrollment.Detail, error) {
	repo.db.enrollment.RLock()
	enr, ok := repo.db.enrollment.table[id]
	if !ok {
		repo.db.enrollment.RUnlock()
		return enrollment.Detail{}, enrollment.ErrNotFound
	}
	det := enrollment.Detail{Enrollment: *enr}
	repo.db.enrollment.RUnlock()

	repo.db.user.RLock()
	if usr, ok := repo.db.user.table[det.StudentID]; ok {
		det.StudentName, det.StudentEmail = usr.Name, usr.Email
	}
	repo.db.user.RUnlock()

	repo.db.course.RLock()
	if crs, ok := repo.db.course.table[det.CourseID]; ok {
		det.CourseTitle = crs.Title
	}
	repo.db.course.RUnlock()

	return det, nil
}

func (repo *enrollmentRepository) UpdateEnrollmentStatus(ctx context.Context, id int, status string) (enrollment.Enrollment, error) {
	repo.db.enrollment.Lock()
	defer repo.db.enrollment.Unlock()

	enr, ok := repo.db.enrollment.table[id]
	if !ok {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	enr.Status = status
	return *enr, nil
}

func (repo *enrollmentRepository) DeleteEnrollment(ctx context.Context, studentID, courseID int) error {
	repo.db.enrollment.Lock()
	defer repo.db.enrollment.Unlock()

	for id, enr := range repo.db.enrollment.table {
		if enr.StudentID == studentID && enr.CourseID == courseID {
			delete(repo.db.enrollment.table, id)
			return nil
		}
	}
	return enrollment.ErrNotFound
}

func (repo *enrollmentRepository) GetCoursePolicy(ctx context.Context, courseID int) (bool, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	if crs, ok := repo.db.course.table[courseID]; ok {
		return crs.OpenEnrollment, nil
	}
	return false, enrollment.ErrCourseNotFound
}

func (repo *enrollmentRepository) QueryEnrollmentsForCourse(ctx context.Context, courseID int, status string, pg core.Paging) ([]enrollment.Detail, int, error) {
	repo.db.enrollment.RLock()
	rows := make([]enrollment.Enrollment, 0)
	for _, enr := range repo.db.enrollment.table {
		if enr.CourseID == courseID && (status == "" || enr.Status == status) {
			rows = append(rows, *enr)
		}
	}
	repo.db.enrollment.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].ID > rows[j].ID
	})
	total := len(rows)
	lo, hi := paginate(total, pg)

	repo.db.user.RLock()
	defer repo.db.user.RUnlock()
	details := make([]enrollment.Detail, 0, hi-lo)
	for _, enr := range rows[lo:hi] {
		det := enrollment.Detail{Enrollment: enr}
		if usr, ok := repo.db.user.table[enr.StudentID]; ok {
			det.StudentName, det.StudentEmail = usr.Name, usr.Email
		}
		details = append(details, det)
	}
	return details, total, nil
}
