package submission

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/access"
	"github.com/trezcool/darasa/core/user"
)

var (
	// errors
	ErrNotFound           = errors.WithMessage(core.ErrNotFound, "submission not found")
	ErrFileMissing        = errors.WithMessage(core.ErrNotFound, "submission file missing on storage")
	ErrAssignmentNotFound = errors.WithMessage(core.ErrNotFound, "assignment not found")
	ErrNotEnrolled        = errors.WithMessage(core.ErrForbidden, "no approved enrollment for this course")
	ErrNotOwner           = errors.WithMessage(core.ErrForbidden, "not allowed for this submission")
	ErrDeadlinePassed     = errors.WithMessage(core.ErrConflict, "deadline passed")

	// NowFunc returns the current time; mockable in tests.
	NowFunc = time.Now
)

type (
	Repository interface {
		CreateSubmission(ctx context.Context, sub Submission) (Submission, error)
		GetSubmissionByID(ctx context.Context, id int) (Submission, error)
		DeleteSubmission(ctx context.Context, id int) error
		// BulkUpdateGrades applies each patch to the matching row, skipping
		// ids that do not belong to assignmentID, and returns the number of
		// rows actually modified. Not transactional across rows.
		BulkUpdateGrades(ctx context.Context, assignmentID int, gradedAt time.Time, updates []GradeUpdate) (int, error)
		// QuerySubmissionsForAssignment lists rows joined with student info;
		// studentID == 0 means all students.
		QuerySubmissionsForAssignment(ctx context.Context, assignmentID, studentID int, qf QueryFilter) ([]Detail, int, error)
		GetAssignmentInfo(ctx context.Context, assignmentID int) (AssignmentInfo, error)
	}

	Service struct {
		repo   Repository
		acc    *access.Resolver
		blobs  core.BlobStore
		logger core.Logger
	}
)

func NewService(repo Repository, acc *access.Resolver, blobs core.BlobStore, logger core.Logger) *Service {
	return &Service{repo: repo, acc: acc, blobs: blobs, logger: logger}
}

func (svc *Service) guardAssignmentOwner(ctx context.Context, teacherID, assignmentID int) error {
	owns, err := svc.acc.OwnsAssignment(ctx, teacherID, assignmentID)
	if err != nil {
		return err
	}
	if !owns {
		return ErrNotOwner
	}
	return nil
}

// Upload stores a new submission for the acting student. An approved
// enrollment in the assignment's course is required, and uploads are
// rejected once the due date has passed.
func (svc *Service) Upload(ctx context.Context, actor user.Actor, assignmentID int, file io.Reader, origName, note string) (Submission, error) {
	student, ok := actor.(user.Student)
	if !ok {
		return Submission{}, ErrNotOwner
	}

	asg, err := svc.repo.GetAssignmentInfo(ctx, assignmentID)
	if err != nil {
		return Submission{}, err
	}
	enrolled, err := svc.acc.EnrolledApproved(ctx, student.ID, asg.CourseID)
	if err != nil {
		return Submission{}, err
	}
	if !enrolled {
		return Submission{}, ErrNotEnrolled
	}
	if NowFunc().After(asg.DueDate) {
		return Submission{}, ErrDeadlinePassed
	}

	key, err := svc.blobs.Put(file, origName)
	if err != nil {
		return Submission{}, errors.Wrap(err, "storing submission file")
	}

	sub := Submission{
		AssignmentID: assignmentID,
		StudentID:    student.ID,
		SubmittedAt:  NowFunc().UTC(),
		FileKey:      key,
		FileName:     safeFileName(origName, key),
		FileURL:      svc.blobs.URL(key),
		Note:         core.CleanString(note),
	}
	created, err := svc.repo.CreateSubmission(ctx, sub)
	if err != nil {
		// do not leave an orphaned blob behind
		if delErr := svc.blobs.Delete(key); delErr != nil {
			svc.logger.Warn("deleting orphaned blob "+key, delErr)
		}
		return Submission{}, err
	}
	return created, nil
}

// BulkUpdateGrades patches grades/notes on an assignment's submissions;
// owning teacher only. Ids belonging to other assignments are silently
// skipped. Returns the number of rows modified; partial success is
// reported, not rolled back.
func (svc *Service) BulkUpdateGrades(ctx context.Context, actor user.Actor, assignmentID int, updates []GradeUpdate) (int, error) {
	teacher, ok := actor.(user.Teacher)
	if !ok {
		return 0, ErrNotOwner
	}
	if err := svc.guardAssignmentOwner(ctx, teacher.ID, assignmentID); err != nil {
		return 0, err
	}

	effective := make([]GradeUpdate, 0, len(updates))
	for _, gu := range updates {
		if gu.ID == 0 || gu.isEmpty() {
			continue
		}
		effective = append(effective, gu)
	}
	if len(effective) == 0 {
		return 0, nil
	}
	return svc.repo.BulkUpdateGrades(ctx, assignmentID, NowFunc().UTC(), effective)
}

// Delete removes the acting student's own submission before the
// assignment's due date. The row delete is authoritative; blob cleanup
// is best-effort and surfaced in the result.
func (svc *Service) Delete(ctx context.Context, actor user.Actor, submissionID int) (DeleteResult, error) {
	student, ok := actor.(user.Student)
	if !ok {
		return DeleteResult{}, ErrNotOwner
	}

	sub, err := svc.repo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return DeleteResult{}, err
	}
	if sub.StudentID != student.ID {
		return DeleteResult{}, ErrNotOwner
	}

	asg, err := svc.repo.GetAssignmentInfo(ctx, sub.AssignmentID)
	if err != nil {
		return DeleteResult{}, err
	}
	if NowFunc().After(asg.DueDate) {
		return DeleteResult{}, ErrDeadlinePassed
	}

	if err := svc.repo.DeleteSubmission(ctx, submissionID); err != nil {
		return DeleteResult{}, err
	}

	res := DeleteResult{BlobDeleted: true}
	if err := svc.blobs.Delete(sub.FileKey); err != nil {
		res.BlobDeleted = false
		svc.logger.Warn("deleting blob "+sub.FileKey, err)
	}
	return res, nil
}

// FilePath locates the stored file for serving: the owning student or
// the teacher owning the assignment's course. A row whose blob is gone
// from storage surfaces ErrFileMissing, never a crash.
func (svc *Service) FilePath(ctx context.Context, actor user.Actor, submissionID int) (FileRef, error) {
	sub, err := svc.repo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return FileRef{}, err
	}

	switch a := actor.(type) {
	case user.Student:
		if sub.StudentID != a.ID {
			return FileRef{}, ErrNotOwner
		}
	case user.Teacher:
		if err := svc.guardAssignmentOwner(ctx, a.ID, sub.AssignmentID); err != nil {
			return FileRef{}, err
		}
	default:
		return FileRef{}, errors.WithMessage(core.ErrForbidden, "unknown actor")
	}

	path, err := svc.blobs.Path(sub.FileKey)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return FileRef{}, ErrFileMissing
		}
		return FileRef{}, errors.Wrap(err, "locating blob")
	}
	return FileRef{Path: path, Name: sub.FileName}, nil
}

// ListForAssignment scopes rows by the acting identity: the owning
// teacher sees all, an enrolled student sees their own, anyone else is
// refused.
func (svc *Service) ListForAssignment(ctx context.Context, actor user.Actor, assignmentID int, qf QueryFilter) ([]Detail, int, error) {
	qf.Clean()

	switch a := actor.(type) {
	case user.Teacher:
		if err := svc.guardAssignmentOwner(ctx, a.ID, assignmentID); err != nil {
			return nil, 0, err
		}
		return svc.repo.QuerySubmissionsForAssignment(ctx, assignmentID, 0, qf)
	case user.Student:
		asg, err := svc.repo.GetAssignmentInfo(ctx, assignmentID)
		if err != nil {
			return nil, 0, err
		}
		enrolled, err := svc.acc.EnrolledApproved(ctx, a.ID, asg.CourseID)
		if err != nil {
			return nil, 0, err
		}
		if !enrolled {
			return nil, 0, ErrNotEnrolled
		}
		return svc.repo.QuerySubmissionsForAssignment(ctx, assignmentID, a.ID, qf)
	}
	return nil, 0, errors.WithMessage(core.ErrForbidden, "unknown actor")
}
