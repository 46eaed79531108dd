package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/submission"
)

type submissionRepository struct {
	db *DB
}

var _ submission.Repository = (*submissionRepository)(nil) // interface compliance check

func NewSubmissionRepository(db *DB) submission.Repository {
	return &submissionRepository{db: db}
}

func (repo *submissionRepository) CreateSubmission(ctx context.Context, sub submission.Submission) (submission.Submission, error) {
	repo.db.submission.Lock()
	defer repo.db.submission.Unlock()

	repo.db.submission.seq++
	sub.ID = repo.db.submission.seq
	repo.db.submission.table[sub.ID] = &sub
	return sub, nil
}

func (repo *submissionRepository) GetSubmissionByID(ctx context.Context, id int) (submission.Submission, error) {
	repo.db.submission.RLock()
	defer repo.db.submission.RUnlock()

	if sub, ok := repo.db.submission.table[id]; ok {
		return *sub, nil
	}
	return submission.Submission{}, submission.ErrNotFound
}

func (repo *submissionRepository) DeleteSubmission(ctx context.Context, id int) error {
	repo.db.submission.Lock()
	defer repo.db.submission.Unlock()

	if _, ok := repo.db.submission.table[id]; !ok {
		return submission.ErrNotFound
	}
	delete(repo.db.submission.table, id)
	return nil
}

func (repo *submissionRepository) BulkUpdateGrades(ctx context.Context, assignmentID int, gradedAt time.Time, updates []submission.GradeUpdate) (int, error) {
	repo.db.submission.Lock()
	defer repo.db.submission.Unlock()

	modified := 0
	for _, gu := range updates {
		sub, ok := repo.db.submission.table[gu.ID]
		if !ok || sub.AssignmentID != assignmentID {
			// ids outside the assignment are skipped, not failed
			continue
		}
		if gu.Grade != nil {
			sub.Grade = null.Float64From(*gu.Grade)
		}
		if gu.Note != nil {
			sub.Note = *gu.Note
		}
		sub.GradedAt = null.TimeFrom(gradedAt)
		modified++
	}
	return modified, nil
}

func (repo *submissionRepository) QuerySubmissionsForAssignment(ctx context.Context, assignmentID, studentID int, qf submission.QueryFilter) ([]submission.Detail, int, error) {
	repo.db.submission.RLock()
	subs := make([]submission.Submission, 0)
	for _, sub := range repo.db.submission.table {
		if sub.AssignmentID != assignmentID {
			continue
		}
		if studentID != 0 && sub.StudentID != studentID {
			continue
		}
		subs = append(subs, *sub)
	}
	repo.db.submission.RUnlock()

	sortSubmissions(subs, qf.Ordering)
	total := len(subs)
	lo, hi := paginate(total, qf.Paging)

	repo.db.user.RLock()
	defer repo.db.user.RUnlock()
	details := make([]submission.Detail, 0, hi-lo)
	for _, sub := range subs[lo:hi] {
		det := submission.Detail{Submission: sub}
		if usr, ok := repo.db.user.table[sub.StudentID]; ok {
			det.StudentName, det.StudentEmail = usr.Name, usr.Email
		}
		details = append(details, det)
	}
	return details, total, nil
}

func (repo *submissionRepository) GetAssignmentInfo(ctx context.Context, assignmentID int) (submission.AssignmentInfo, error) {
	repo.db.assignment.RLock()
	defer repo.db.assignment.RUnlock()

	if asg, ok := repo.db.assignment.table[assignmentID]; ok {
		return submission.AssignmentInfo{ID: asg.ID, CourseID: asg.CourseID, DueDate: asg.DueDate}, nil
	}
	return submission.AssignmentInfo{}, submission.ErrAssignmentNotFound
}

func sortSubmissions(subs []submission.Submission, ord core.DBOrdering) {
	sort.Slice(subs, func(i, j int) bool {
		a, b := subs[i], subs[j]
		if !ord.Ascending {
			a, b = b, a
		}
		switch ord.Field {
		case "grade":
			// ungraded rows sort before graded ones
			if a.Grade.Valid != b.Grade.Valid {
				return !a.Grade.Valid
			}
			if a.Grade.Valid && a.Grade.Float64 != b.Grade.Float64 {
				return a.Grade.Float64 < b.Grade.Float64
			}
		default: // submitted_at
			if !a.SubmittedAt.Equal(b.SubmittedAt) {
				return a.SubmittedAt.Before(b.SubmittedAt)
			}
		}
		return a.ID < b.ID
	})
}
