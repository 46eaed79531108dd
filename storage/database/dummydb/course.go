package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/enrollment"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.db.course.Lock()
	defer repo.db.course.Unlock()

	repo.db.course.seq++
	crs.ID = repo.db.course.seq
	repo.db.course.table[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id int) (course.Course, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	if crs, ok := repo.db.course.table[id]; ok {
		return *crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.db.course.Lock()
	defer repo.db.course.Unlock()

	if _, ok := repo.db.course.table[crs.ID]; !ok {
		return course.Course{}, course.ErrNotFound
	}
	repo.db.course.table[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id int) error {
	repo.db.course.Lock()
	defer repo.db.course.Unlock()

	if _, ok := repo.db.course.table[id]; !ok {
		return course.ErrNotFound
	}
	delete(repo.db.course.table, id)
	return nil
}

func (repo *courseRepository) CourseHasAssignments(ctx context.Context, id int) (bool, error) {
	repo.db.assignment.RLock()
	defer repo.db.assignment.RUnlock()

	for _, asg := range repo.db.assignment.table {
		if asg.CourseID == id {
			return true, nil
		}
	}
	return false, nil
}

func (repo *courseRepository) GetCourseStats(ctx context.Context, id int) (course.Stats, error) {
	var stats course.Stats

	repo.db.assignment.RLock()
	for _, asg := range repo.db.assignment.table {
		if asg.CourseID == id {
			stats.Assignments++
		}
	}
	repo.db.assignment.RUnlock()

	repo.db.enrollment.RLock()
	for _, enr := range repo.db.enrollment.table {
		if enr.CourseID == id && enr.Status == enrollment.StatusApproved {
			stats.Students++
		}
	}
	repo.db.enrollment.RUnlock()

	return stats, nil
}

func (repo *courseRepository) QueryCoursesByOwner(ctx context.Context, ownerID int, qf course.QueryFilter) ([]course.Info, int, error) {
	repo.db.course.RLock()
	courses := make([]course.Course, 0)
	for _, crs := range repo.db.course.table {
		if crs.OwnerID == ownerID && matchSearch(*crs, qf.Search) {
			courses = append(courses, *crs)
		}
	}
	repo.db.course.RUnlock()

	return repo.annotate(courses, qf)
}

func (repo *courseRepository) QueryCoursesForStudent(ctx context.Context, studentID int, qf course.QueryFilter) ([]course.Info, int, error) {
	enrolled := make(map[int]bool)
	repo.db.enrollment.RLock()
	for _, enr := range repo.db.enrollment.table {
		if enr.StudentID == studentID && enr.Status == enrollment.StatusApproved {
			enrolled[enr.CourseID] = true
		}
	}
	repo.db.enrollment.RUnlock()

	repo.db.course.RLock()
	courses := make([]course.Course, 0)
	for _, crs := range repo.db.course.table {
		if enrolled[crs.ID] && matchSearch(*crs, qf.Search) {
			courses = append(courses, *crs)
		}
	}
	repo.db.course.RUnlock()

	return repo.annotate(courses, qf)
}

func (repo *courseRepository) QueryCatalog(ctx context.Context, studentID int, qf course.QueryFilter) ([]course.CatalogEntry, int, error) {
	statuses := make(map[int]string)
	repo.db.enrollment.RLock()
	for _, enr := range repo.db.enrollment.table {
		if enr.StudentID == studentID {
			statuses[enr.CourseID] = enr.Status
		}
	}
	repo.db.enrollment.RUnlock()

	repo.db.course.RLock()
	courses := make([]course.Course, 0)
	for _, crs := range repo.db.course.table {
		if statuses[crs.ID] != enrollment.StatusApproved && matchSearch(*crs, qf.Search) {
			courses = append(courses, *crs)
		}
	}
	repo.db.course.RUnlock()

	sortCourses(courses, qf.Ordering)
	total := len(courses)
	lo, hi := paginate(total, qf.Paging)

	entries := make([]course.CatalogEntry, 0, hi-lo)
	for _, crs := range courses[lo:hi] {
		entries = append(entries, course.CatalogEntry{Course: crs, EnrollmentStatus: statuses[crs.ID]})
	}
	return entries, total, nil
}

// annotate sorts, paginates and attaches assignment counts in one pass
// over the assignment table.
func (repo *courseRepository) annotate(courses []course.Course, qf course.QueryFilter) ([]course.Info, int, error) {
	sortCourses(courses, qf.Ordering)
	total := len(courses)
	lo, hi := paginate(total, qf.Paging)
	page := courses[lo:hi]

	counts := make(map[int]int, len(page))
	repo.db.assignment.RLock()
	for _, asg := range repo.db.assignment.table {
		counts[asg.CourseID]++
	}
	repo.db.assignment.RUnlock()

	infos := make([]course.Info, 0, len(page))
	for _, crs := range page {
		infos = append(infos, course.Info{Course: crs, AssignmentCount: counts[crs.ID]})
	}
	return infos, total, nil
}

func matchSearch(crs course.Course, q string) bool {
	if q == "" {
		return true
	}
	q = strings.ToLower(q)
	return strings.Contains(strings.ToLower(crs.Title), q) ||
		strings.Contains(strings.ToLower(crs.Description), q)
}

func sortCourses(courses []course.Course, ord core.DBOrdering) {
	sort.Slice(courses, func(i, j int) bool {
		a, b := courses[i], courses[j]
		if !ord.Ascending {
			a, b = b, a
		}
		switch ord.Field {
		case "title":
			if a.Title != b.Title {
				return a.Title < b.Title
			}
		default: // created_at
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		}
		return a.ID < b.ID
	})
}
