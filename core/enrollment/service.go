package enrollment

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/access"
	"github.com/trezcool/darasa/core/user"
)

var (
	// errors
	ErrNotFound        = errors.WithMessage(core.ErrNotFound, "enrollment not found")
	ErrCourseNotFound  = errors.WithMessage(core.ErrNotFound, "course not found")
	ErrNotOwner        = errors.WithMessage(core.ErrForbidden, "not the course owner")
	ErrStudentsOnly    = errors.WithMessage(core.ErrForbidden, "students only")
	ErrNotPending      = errors.WithMessage(core.ErrConflict, "enrollment is not pending")
	ErrAlreadyEnrolled = errors.WithMessage(core.ErrConflict, "enrollment already exists")
)

type (
	Repository interface {
		// CreateEnrollment fails with ErrAlreadyEnrolled when a record for
		// the (student, course) pair already exists; the store enforces the
		// unique constraint, not application logic.
		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		GetEnrollment(ctx context.Context, studentID, courseID int) (Enrollment, error)
		GetEnrollmentByID(ctx context.Context, id int) (Detail, error)
		UpdateEnrollmentStatus(ctx context.Context, id int, status string) (Enrollment, error)
		DeleteEnrollment(ctx context.Context, studentID, courseID int) error
		// GetCoursePolicy reports whether the course allows immediate join;
		// core.ErrNotFound when the course does not exist.
		GetCoursePolicy(ctx context.Context, courseID int) (openEnrollment bool, err error)
		// QueryEnrollmentsForCourse lists enrollments joined with student
		// info, optionally filtered by status ("" = all).
		QueryEnrollmentsForCourse(ctx context.Context, courseID int, status string, pg core.Paging) ([]Detail, int, error)
	}

	Service struct {
		repo    Repository
		acc     *access.Resolver
		mailSvc core.EmailService
	}
)

func NewService(repo Repository, acc *access.Resolver, mailSvc core.EmailService) *Service {
	return &Service{repo: repo, acc: acc, mailSvc: mailSvc}
}

func asStudent(actor user.Actor) (user.Student, error) {
	student, ok := actor.(user.Student)
	if !ok {
		return user.Student{}, ErrStudentsOnly
	}
	return student, nil
}

// EnrollNow enrolls the student immediately when the course permits it,
// otherwise files a pending request. Idempotent: an existing record is
// returned unchanged regardless of its state.
func (svc *Service) EnrollNow(ctx context.Context, actor user.Actor, courseID int) (Enrollment, error) {
	student, err := asStudent(actor)
	if err != nil {
		return Enrollment{}, err
	}

	if enr, err := svc.repo.GetEnrollment(ctx, student.ID, courseID); err == nil {
		return enr, nil
	} else if !errors.Is(err, core.ErrNotFound) {
		return Enrollment{}, err
	}

	open, err := svc.repo.GetCoursePolicy(ctx, courseID)
	if err != nil {
		return Enrollment{}, err
	}
	status := StatusPending
	if open {
		status = StatusApproved
	}
	return svc.create(ctx, student.ID, courseID, status)
}

// Request always produces or keeps a PENDING record, unless the student
// is already approved. A rejected record transitions back to pending.
func (svc *Service) Request(ctx context.Context, actor user.Actor, courseID int) (Enrollment, error) {
	student, err := asStudent(actor)
	if err != nil {
		return Enrollment{}, err
	}

	enr, err := svc.repo.GetEnrollment(ctx, student.ID, courseID)
	if err == nil {
		switch enr.Status {
		case StatusApproved, StatusPending:
			return enr, nil
		case StatusRejected:
			return svc.repo.UpdateEnrollmentStatus(ctx, enr.ID, StatusPending)
		}
	} else if !errors.Is(err, core.ErrNotFound) {
		return Enrollment{}, err
	}

	// no record yet; course must exist
	if _, err := svc.repo.GetCoursePolicy(ctx, courseID); err != nil {
		return Enrollment{}, err
	}
	return svc.create(ctx, student.ID, courseID, StatusPending)
}

// create inserts a new record, falling back to the concurrently created
// one when the store's unique constraint fires.
func (svc *Service) create(ctx context.Context, studentID, courseID int, status string) (Enrollment, error) {
	enr := Enrollment{
		StudentID: studentID,
		CourseID:  courseID,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
	created, err := svc.repo.CreateEnrollment(ctx, enr)
	if err != nil {
		if errors.Is(err, core.ErrConflict) {
			return svc.repo.GetEnrollment(ctx, studentID, courseID)
		}
		return Enrollment{}, err
	}
	return created, nil
}

// Approve transitions PENDING → APPROVED; owning teacher only.
func (svc *Service) Approve(ctx context.Context, actor user.Actor, enrollmentID int) (Enrollment, error) {
	return svc.decide(ctx, actor, enrollmentID, StatusApproved)
}

// Reject transitions PENDING → REJECTED; owning teacher only. The student
// may re-request afterwards.
func (svc *Service) Reject(ctx context.Context, actor user.Actor, enrollmentID int) (Enrollment, error) {
	return svc.decide(ctx, actor, enrollmentID, StatusRejected)
}

func (svc *Service) decide(ctx context.Context, actor user.Actor, enrollmentID int, status string) (Enrollment, error) {
	teacher, ok := actor.(user.Teacher)
	if !ok {
		return Enrollment{}, ErrNotOwner
	}

	det, err := svc.repo.GetEnrollmentByID(ctx, enrollmentID)
	if err != nil {
		return Enrollment{}, err
	}
	owns, err := svc.acc.OwnsCourse(ctx, teacher.ID, det.CourseID)
	if err != nil {
		return Enrollment{}, err
	}
	if !owns {
		return Enrollment{}, ErrNotOwner
	}

	if det.Status == status {
		return det.Enrollment, nil
	}
	if det.Status != StatusPending {
		return Enrollment{}, ErrNotPending
	}

	enr, err := svc.repo.UpdateEnrollmentStatus(ctx, enrollmentID, status)
	if err != nil {
		return Enrollment{}, err
	}
	svc.notifyDecision(det, status)
	return enr, nil
}

// Leave deletes the student's record for the course, whatever its state.
// Already gone means already NONE: not an error.
func (svc *Service) Leave(ctx context.Context, actor user.Actor, courseID int) error {
	student, err := asStudent(actor)
	if err != nil {
		return err
	}
	if err := svc.repo.DeleteEnrollment(ctx, student.ID, courseID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}

// ListPending lists a course's pending requests; owning teacher only.
func (svc *Service) ListPending(ctx context.Context, actor user.Actor, courseID int, pg core.Paging) ([]Detail, int, error) {
	return svc.listForOwner(ctx, actor, courseID, StatusPending, pg)
}

// ListForCourse lists all enrollments of a course; owning teacher only.
func (svc *Service) ListForCourse(ctx context.Context, actor user.Actor, courseID int, pg core.Paging) ([]Detail, int, error) {
	return svc.listForOwner(ctx, actor, courseID, "", pg)
}

// ListByStatus lists a course's enrollments in one status, e.g. the
// approved roster; owning teacher only.
func (svc *Service) ListByStatus(ctx context.Context, actor user.Actor, courseID int, status string, pg core.Paging) ([]Detail, int, error) {
	switch status {
	case StatusPending, StatusApproved, StatusRejected:
	default:
		return nil, 0, core.NewValidationError(nil, core.FieldError{Field: "status", Error: "unknown status"})
	}
	return svc.listForOwner(ctx, actor, courseID, status, pg)
}

func (svc *Service) listForOwner(ctx context.Context, actor user.Actor, courseID int, status string, pg core.Paging) ([]Detail, int, error) {
	teacher, ok := actor.(user.Teacher)
	if !ok {
		return nil, 0, ErrNotOwner
	}
	owns, err := svc.acc.OwnsCourse(ctx, teacher.ID, courseID)
	if err != nil {
		return nil, 0, err
	}
	if !owns {
		return nil, 0, ErrNotOwner
	}
	pg.Clean()
	return svc.repo.QueryEnrollmentsForCourse(ctx, courseID, status, pg)
}

func (svc *Service) notifyDecision(det Detail, status string) {
	if svc.mailSvc == nil || det.StudentEmail == "" {
		return
	}
	var subject, body string
	if status == StatusApproved {
		subject = "Enrollment approved"
		body = fmt.Sprintf("Hi %s,\n\nYour enrollment in %q was approved. Welcome aboard!", det.StudentName, det.CourseTitle)
	} else {
		subject = "Enrollment rejected"
		body = fmt.Sprintf("Hi %s,\n\nYour enrollment request for %q was rejected. You may request again.", det.StudentName, det.CourseTitle)
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: det.StudentName, Address: det.StudentEmail}},
		Subject: subject,
		BodyStr: body,
	})
}
