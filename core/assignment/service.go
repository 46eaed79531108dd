package assignment

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
	ErrNotFound       = errors.WithMessage(core.ErrNotFound, "assignment not found")
	ErrNotOwner       = errors.WithMessage(core.ErrForbidden, "not the course owner")
	ErrHasSubmissions = errors.WithMessage(core.ErrConflict, "assignment has submissions")
)

// Include flags for GetByID.
const (
	IncludeCourse = "course"
	IncludeStats  = "stats"
)

type (
	// Detail is an assignment with optional course/stats summaries
	// attached per the requested includes.
	Detail struct {
		Assignment
		Course *CourseSummary `json:"course,omitempty"`
		Stats  *Stats         `json:"stats,omitempty"`
	}

	CourseSummary struct {
		ID    int    `json:"id"`
		Title string `json:"title"`
	}

	Repository interface {
		CreateAssignment(ctx context.Context, asg Assignment) (Assignment, error)
		GetAssignmentByID(ctx context.Context, id int) (Assignment, error)
		UpdateAssignment(ctx context.Context, asg Assignment) (Assignment, error)
		DeleteAssignment(ctx context.Context, id int) error
		// AssignmentHasSubmissions is an existence check, not a count.
		AssignmentHasSubmissions(ctx context.Context, id int) (bool, error)
		GetCourseSummary(ctx context.Context, courseID int) (CourseSummary, error)
		CountSubmissions(ctx context.Context, assignmentID int) (int, error)
		// QueryAssignmentsForCourse attaches submission counts via one
		// grouped aggregate, and returns the total row count.
		QueryAssignmentsForCourse(ctx context.Context, courseID int, qf QueryFilter) ([]Info, int, error)
	}

	Service struct {
		repo Repository
		acc  *access.Resolver
	}
)

func NewService(repo Repository, acc *access.Resolver) *Service {
	return &Service{repo: repo, acc: acc}
}

func (svc *Service) guardCourseOwner(ctx context.Context, actor user.Actor, courseID int) error {
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

func (svc *Service) guardAssignmentOwner(ctx context.Context, actor user.Actor, assignmentID int) error {
	teacher, ok := actor.(user.Teacher)
	if !ok {
		return ErrNotOwner
	}
	owns, err := svc.acc.OwnsAssignment(ctx, teacher.ID, assignmentID)
	if err != nil {
		return err
	}
	if !owns {
		return ErrNotOwner
	}
	return nil
}

// Create adds an assignment to an owned course.
func (svc *Service) Create(ctx context.Context, actor user.Actor, na NewAssignment) (Assignment, error) {
	if err := svc.guardCourseOwner(ctx, actor, na.CourseID); err != nil {
		return Assignment{}, err
	}

	now := time.Now().UTC()
	asg := Assignment{
		CourseID:    na.CourseID,
		Title:       na.Title,
		Description: na.Description,
		DueDate:     na.dueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateAssignment(ctx, asg)
}

// Update applies a partial patch; owning teacher only.
func (svc *Service) Update(ctx context.Context, actor user.Actor, id int, ua UpdateAssignment) (Assignment, error) {
	if err := svc.guardAssignmentOwner(ctx, actor, id); err != nil {
		return Assignment{}, err
	}

	asg, err := svc.repo.GetAssignmentByID(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	if ua.Title != nil {
		asg.Title = *ua.Title
	}
	if ua.Description != nil {
		asg.Description = *ua.Description
	}
	if ua.DueDate != nil {
		asg.DueDate = ua.dueDate
	}
	asg.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateAssignment(ctx, asg)
}

// Delete removes an owned assignment; blocked while submissions
// reference it.
func (svc *Service) Delete(ctx context.Context, actor user.Actor, id int) error {
	if err := svc.guardAssignmentOwner(ctx, actor, id); err != nil {
		return err
	}

	has, err := svc.repo.AssignmentHasSubmissions(ctx, id)
	if err != nil {
		return err
	}
	if has {
		return ErrHasSubmissions
	}
	return svc.repo.DeleteAssignment(ctx, id)
}

// ListForCourse lists a course's assignments with submission counts.
func (svc *Service) ListForCourse(ctx context.Context, courseID int, qf QueryFilter) ([]Info, int, error) {
	qf.Clean()
	return svc.repo.QueryAssignmentsForCourse(ctx, courseID, qf)
}

// GetByID loads one assignment with the requested summaries attached.
func (svc *Service) GetByID(ctx context.Context, id int, includes ...string) (Detail, error) {
	asg, err := svc.repo.GetAssignmentByID(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	det := Detail{Assignment: asg}

	for _, inc := range includes {
		switch inc {
		case IncludeCourse:
			crs, err := svc.repo.GetCourseSummary(ctx, asg.CourseID)
			if err != nil {
				return Detail{}, err
			}
			det.Course = &crs
		case IncludeStats:
			count, err := svc.repo.CountSubmissions(ctx, id)
			if err != nil {
				return Detail{}, err
			}
			det.Stats = &Stats{Submissions: count}
		}
	}
	return det, nil
}
