package dummydb

import (
	"sync"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/enrollment"
	"github.com/trezcool/darasa/core/submission"
	"github.com/trezcool/darasa/core/user"
)

type (
	DB struct {
		user       *userTable
		course     *courseTable
		enrollment *enrollmentTable
		assignment *assignmentTable
		submission *submissionTable
	}

	userTable struct {
		sync.RWMutex
		seq   int
		table map[int]*user.User
	}

	courseTable struct {
		sync.RWMutex
		seq   int
		table map[int]*course.Course
	}

	enrollmentTable struct {
		sync.RWMutex
		seq   int
		table map[int]*enrollment.Enrollment
	}

	assignmentTable struct {
		sync.RWMutex
		seq   int
		table map[int]*assignment.Assignment
	}

	submissionTable struct {
		sync.RWMutex
		seq   int
		table map[int]*submission.Submission
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:       &userTable{table: make(map[int]*user.User)},
		course:     &courseTable{table: make(map[int]*course.Course)},
		enrollment: &enrollmentTable{table: make(map[int]*enrollment.Enrollment)},
		assignment: &assignmentTable{table: make(map[int]*assignment.Assignment)},
		submission: &submissionTable{table: make(map[int]*submission.Submission)},
	}
	return db, nil
}

func (db *DB) Close() error { return nil }

// paginate returns the [lo, hi) window of a slice of length n.
func paginate(n int, pg core.Paging) (int, int) {
	lo := pg.Offset()
	if lo > n {
		lo = n
	}
	hi := lo + pg.Limit
	if hi > n {
		hi = n
	}
	return lo, hi
}
