package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assignment"
)

type assignmentRepository struct {
	db *DB
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *DB) assignment.Repository {
	return &assignmentRepository{db: db}
}

func (repo *assignmentRepository) CreateAssignment(ctx context.Context, asg assignment.Assignment) (assignment.Assignment, error) {
	repo.db.assignment.Lock()
	defer repo.db.assignment.Unlock()

	repo.db.assignment.seq++
	asg.ID = repo.db.assignment.seq
	repo.db.assignment.table[asg.ID] = &asg
	return asg, nil
}

func (repo *assignmentRepository) GetAssignmentByID(ctx context.Context, id int) (assignment.Assignment, error) {
	repo.db.assignment.RLock()
	defer repo.db.assignment.RUnlock()

	if asg, ok := repo.db.assignment.table[id]; ok {
		return *asg, nil
	}
	return assignment.Assignment{}, assignment.ErrNotFound
}

func (repo *assignmentRepository) UpdateAssignment(ctx context.Context, asg assignment.Assignment) (assignment.Assignment, error) {
	repo.db.assignment.Lock()
	defer repo.db.assignment.Unlock()

	if _, ok := repo.db.assignment.table[asg.ID]; !ok {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	repo.db.assignment.table[asg.ID] = &asg
	return asg, nil
}

func (repo *assignmentRepository) DeleteAssignment(ctx context.Context, id int) error {
	repo.db.assignment.Lock()
	defer repo.db.assignment.Unlock()

	if _, ok := repo.db.assignment.table[id]; !ok {
		return assignment.ErrNotFound
	}
	delete(repo.db.assignment.table, id)
	return nil
}

func (repo *assignmentRepository) AssignmentHasSubmissions(ctx context.Context, id int) (bool, error) {
	repo.db.submission.RLock()
	defer repo.db.submission.RUnlock()

	for _, sub := range repo.db.submission.table {
		if sub.AssignmentID == id {
			return true, nil
		}
	}
	return false, nil
}

func (repo *assignmentRepository) GetCourseSummary(ctx context.Context, courseID int) (assignment.CourseSummary, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	if crs, ok := repo.db.course.table[courseID]; ok {
		return assignment.CourseSummary{ID: crs.ID, Title: crs.Title}, nil
	}
	return assignment.CourseSummary{}, core.ErrNotFound
}

func (repo *assignmentRepository) CountSubmissions(ctx context.Context, assignmentID int) (int, error) {
	repo.db.submission.RLock()
	defer repo.db.submission.RUnlock()

	count := 0
	for _, sub := range repo.db.submission.table {
		if sub.AssignmentID == assignmentID {
			count++
		}
	}
	return count, nil
}

func (repo *assignmentRepository) QueryAssignmentsForCourse(ctx context.Context, courseID int, qf assignment.QueryFilter) ([]assignment.Info, int, error) {
	repo.db.assignment.RLock()
	asgs := make([]assignment.Assignment, 0)
	for _, asg := range repo.db.assignment.table {
		if asg.CourseID == courseID {
			asgs = append(asgs, *asg)
		}
	}
	repo.db.assignment.RUnlock()

	sortAssignments(asgs, qf.Ordering)
	total := len(asgs)
	lo, hi := paginate(total, qf.Paging)
	page := asgs[lo:hi]

	counts := make(map[int]int, len(page))
	repo.db.submission.RLock()
	for _, sub := range repo.db.submission.table {
		counts[sub.AssignmentID]++
	}
	repo.db.submission.RUnlock()

	infos := make([]assignment.Info, 0, len(page))
	for _, asg := range page {
		infos = append(infos, assignment.Info{Assignment: asg, SubmissionCount: counts[asg.ID]})
	}
	return infos, total, nil
}

func sortAssignments(asgs []assignment.Assignment, ord core.DBOrdering) {
	sort.Slice(asgs, func(i, j int) bool {
		a, b := asgs[i], asgs[j]
		if !ord.Ascending {
			a, b = b, a
		}
		switch ord.Field {
		case "title":
			if a.Title != b.Title {
				return a.Title < b.Title
			}
		case "due_date":
			if !a.DueDate.Equal(b.DueDate) {
				return a.DueDate.Before(b.DueDate)
			}
		default: // created_at
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		}
		return a.ID < b.ID
	})
}
