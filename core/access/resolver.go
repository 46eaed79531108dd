package access

import (
	"context"
	"errors"

	"github.com/trezcool/darasa/core"
)

// Enrollment statuses as stored; mirrored here so the resolver does not
// depend on the enrollment package.
const statusApproved = "approved"

type (
	// Repository exposes the minimal reads needed to re-derive
	// authorization facts. Absent entities surface core.ErrNotFound.
	Repository interface {
		GetCourseOwner(ctx context.Context, courseID int) (ownerID int, err error)
		GetAssignmentCourse(ctx context.Context, assignmentID int) (courseID int, err error)
		GetEnrollmentStatus(ctx context.Context, studentID, courseID int) (status string, err error)
	}

	// Resolver answers ownership and membership questions. Every answer is
	// re-derived from current store state at call time; results are never
	// cached across a request boundary.
	Resolver struct {
		repo Repository
	}
)

func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// OwnsCourse reports whether teacherID owns the course. Fails with
// core.ErrNotFound if the course does not exist.
func (r *Resolver) OwnsCourse(ctx context.Context, teacherID, courseID int) (bool, error) {
	ownerID, err := r.repo.GetCourseOwner(ctx, courseID)
	if err != nil {
		return false, err
	}
	return ownerID == teacherID, nil
}

// OwnsAssignment resolves assignment→course→owner. Fails with
// core.ErrNotFound if the assignment (or its course) does not exist.
func (r *Resolver) OwnsAssignment(ctx context.Context, teacherID, assignmentID int) (bool, error) {
	courseID, err := r.repo.GetAssignmentCourse(ctx, assignmentID)
	if err != nil {
		return false, err
	}
	return r.OwnsCourse(ctx, teacherID, courseID)
}

// EnrolledApproved reports whether an approved enrollment links the
// student to the course. A missing enrollment is simply false.
func (r *Resolver) EnrolledApproved(ctx context.Context, studentID, courseID int) (bool, error) {
	status, err := r.repo.GetEnrollmentStatus(ctx, studentID, courseID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return status == statusApproved, nil
}
