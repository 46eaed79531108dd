package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/access"
	"github.com/trezcool/darasa/core/user"
)

var (
	// errors
	ErrNotFound       = errors.WithMessage(core.ErrNotFound, "course not found")
	ErrNotOwner       = errors.WithMessage(core.ErrForbidden, "not the course owner")
	ErrHasAssignments = errors.WithMessage(core.ErrConflict, "course has assignments")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		GetCourseByID(ctx context.Context, id int) (Course, error)
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
		DeleteCourse(ctx context.Context, id int) error
		CourseHasAssignments(ctx context.Context, id int) (bool, error)
		GetCourseStats(ctx context.Context, id int) (Stats, error)
		// QueryCoursesByOwner returns the teacher's courses with assignment
		// counts attached via one grouped aggregate, plus the total row count.
		QueryCoursesByOwner(ctx context.Context, ownerID int, qf QueryFilter) ([]Info, int, error)
		// QueryCoursesForStudent returns courses the student has an approved
		// enrollment in, same annotation rules as QueryCoursesByOwner.
		QueryCoursesForStudent(ctx context.Context, studentID int, qf QueryFilter) ([]Info, int, error)
		// QueryCatalog returns courses the student has no approved enrollment
		// in, annotated with the student's current enrollment status.
		QueryCatalog(ctx context.Context, studentID int, qf QueryFilter) ([]CatalogEntry, int, error)
	}

	Service struct {
		repo Repository
		acc  *access.Resolver
	}
)

func NewService(repo Repository, acc *access.Resolver) *Service {
	return &Service{repo: repo, acc: acc}
}

func (svc *Service) guardOwner(ctx context.Context, actor user.Actor, courseID int) error {
	teacher, ok := actor.(user.Teacher)
	if !ok {
		return ErrNotOwner
	}
	owns, err := svc.acc.OwnsCourse(ctx, teacher.ID, courseID)
	if err != nil {
		return err
	}
	if !owns {
		return ErrNotOwner
	}
	return nil
}

// Create registers a new course owned by the acting teacher.
func (svc *Service) Create(ctx context.Context, actor user.Actor, nc NewCourse) (Course, error) {
	teacher, ok := actor.(user.Teacher)
	if !ok {
		return Course{}, errors.WithMessage(core.ErrForbidden, "only teachers create courses")
	}

	now := time.Now().UTC()
	crs := Course{
		Title:          nc.Title,
		Description:    nc.Description,
		OwnerID:        teacher.ID,
		OpenEnrollment: true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if nc.OpenEnrollment != nil {
		crs.OpenEnrollment = *nc.OpenEnrollment
	}
	return svc.repo.CreateCourse(ctx, crs)
}

// Update applies a partial patch; owner only.
func (svc *Service) Update(ctx context.Context, actor user.Actor, id int, uc UpdateCourse) (Course, error) {
	if err := svc.guardOwner(ctx, actor, id); err != nil {
		return Course{}, err
	}

	crs, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if uc.Title != nil {
		crs.Title = *uc.Title
	}
	if uc.Description != nil {
		crs.Description = *uc.Description
	}
	if uc.OpenEnrollment != nil {
		crs.OpenEnrollment = *uc.OpenEnrollment
	}
	crs.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCourse(ctx, crs)
}

// Delete removes an owned course. Deletion is blocked while assignments
// reference the course (cascade-prevention, not cascade-delete).
func (svc *Service) Delete(ctx context.Context, actor user.Actor, id int) error {
	if err := svc.guardOwner(ctx, actor, id); err != nil {
		return err
	}

	has, err := svc.repo.CourseHasAssignments(ctx, id)
	if err != nil {
		return err
	}
	if has {
		return ErrHasAssignments
	}
	return svc.repo.DeleteCourse(ctx, id)
}

// GetByID loads one course. Teachers may only see their own courses;
// students may browse any (the catalog is the entry point).
func (svc *Service) GetByID(ctx context.Context, actor user.Actor, id int, withStats bool) (Course, *Stats, error) {
	crs, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return Course{}, nil, err
	}

	switch a := actor.(type) {
	case user.Teacher:
		if crs.OwnerID != a.ID {
			return Course{}, nil, ErrNotOwner
		}
	case user.Student:
		// browsable
	}

	if !withStats {
		return crs, nil, nil
	}
	stats, err := svc.repo.GetCourseStats(ctx, id)
	if err != nil {
		return Course{}, nil, err
	}
	return crs, &stats, nil
}

// ListForActor projects the actor's own courses: owned ones for a
// teacher, approved enrollments for a student.
func (svc *Service) ListForActor(ctx context.Context, actor user.Actor, qf QueryFilter) ([]Info, int, error) {
	qf.Clean()
	switch a := actor.(type) {
	case user.Teacher:
		return svc.repo.QueryCoursesByOwner(ctx, a.ID, qf)
	case user.Student:
		return svc.repo.QueryCoursesForStudent(ctx, a.ID, qf)
	}
	return nil, 0, errors.WithMessage(core.ErrForbidden, "unknown actor")
}

// Catalog lists courses the student may still enroll in (no approved
// enrollment yet), annotated with the current status so a client can
// distinguish "enroll" from "pending".
func (svc *Service) Catalog(ctx context.Context, actor user.Actor, qf QueryFilter) ([]CatalogEntry, int, error) {
	student, ok := actor.(user.Student)
	if !ok {
		return nil, 0, errors.WithMessage(core.ErrForbidden, "catalog is student-only")
	}
	qf.Clean()
	return svc.repo.QueryCatalog(ctx, student.ID, qf)
}
