package course_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/access"
	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/enrollment"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/storage/database/dummydb"
)

type courseFixture struct {
	svc     *course.Service
	usrRepo user.Repository
	asgRepo assignment.Repository
	enrRepo enrollment.Repository
}

func newCourseFixture(t *testing.T) *courseFixture {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)

	return &courseFixture{
		svc: course.NewService(
			dummydb.NewCourseRepository(db),
			access.NewResolver(dummydb.NewAccessRepository(db)),
		),
		usrRepo: dummydb.NewUserRepository(db),
		asgRepo: dummydb.NewAssignmentRepository(db),
		enrRepo: dummydb.NewEnrollmentRepository(db),
	}
}

func (f *courseFixture) createUser(t *testing.T, name, email, role string) user.User {
	t.Helper()
	usr, err := f.usrRepo.CreateUser(context.Background(), user.User{Name: name, Email: email, Role: role})
	require.NoError(t, err)
	return usr
}

func (f *courseFixture) createAssignment(t *testing.T, courseID int) assignment.Assignment {
	t.Helper()
	asg, err := f.asgRepo.CreateAssignment(context.Background(), assignment.Assignment{
		CourseID: courseID,
		Title:    "Homework 1",
		DueDate:  time.Now().Add(24 * time.Hour).UTC(),
	})
	require.NoError(t, err)
	return asg
}

func (f *courseFixture) enroll(t *testing.T, studentID, courseID int, status string) {
	t.Helper()
	_, err := f.enrRepo.CreateEnrollment(context.Background(), enrollment.Enrollment{
		StudentID: studentID,
		CourseID:  courseID,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	f := newCourseFixture(t)
	teacher := user.Teacher{ID: f.createUser(t, "Teacher", "teacher@test.cd", user.RoleTeacher).ID}
	student := user.Student{ID: f.createUser(t, "Hero", "hero@test.cd", user.RoleStudent).ID}

	t.Run("teacher owns the new course", func(t *testing.T) {
		crs, err := f.svc.Create(ctx, teacher, course.NewCourse{Title: "Algebra I"})
		require.NoError(t, err)
		assert.Equal(t, teacher.ID, crs.OwnerID)
		assert.True(t, crs.OpenEnrollment) // default policy
	})

	t.Run("policy can be closed at creation", func(t *testing.T) {
		closed := false
		crs, err := f.svc.Create(ctx, teacher, course.NewCourse{Title: "Geometry", OpenEnrollment: &closed})
		require.NoError(t, err)
		assert.False(t, crs.OpenEnrollment)
	})

	t.Run("students cannot create", func(t *testing.T) {
		_, err := f.svc.Create(ctx, student, course.NewCourse{Title: "Nope"})
		assert.ErrorIs(t, err, core.ErrForbidden)
	})
}

func TestService_UpdateDelete(t *testing.T) {
	ctx := context.Background()
	f := newCourseFixture(t)
	teacher := user.Teacher{ID: f.createUser(t, "Teacher", "teacher@test.cd", user.RoleTeacher).ID}
	other := user.Teacher{ID: f.createUser(t, "Other", "other@test.cd", user.RoleTeacher).ID}

	crs, err := f.svc.Create(ctx, teacher, course.NewCourse{Title: "Algebra I"})
	require.NoError(t, err)

	t.Run("owner updates", func(t *testing.T) {
		title := "Algebra II"
		got, err := f.svc.Update(ctx, teacher, crs.ID, course.UpdateCourse{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, "Algebra II", got.Title)
	})

	t.Run("non-owner cannot update", func(t *testing.T) {
		title := "Hijacked"
		_, err := f.svc.Update(ctx, other, crs.ID, course.UpdateCourse{Title: &title})
		assert.ErrorIs(t, err, core.ErrForbidden)
	})

	t.Run("delete blocked while assignments exist", func(t *testing.T) {
		f.createAssignment(t, crs.ID)
		err := f.svc.Delete(ctx, teacher, crs.ID)
		assert.ErrorIs(t, err, core.ErrConflict)
	})

	t.Run("unknown course", func(t *testing.T) {
		err := f.svc.Delete(ctx, teacher, 999)
		assert.ErrorIs(t, err, core.ErrNotFound)
	})
}

func TestService_GetByID(t *testing.T) {
	ctx := context.Background()
	f := newCourseFixture(t)
	teacher := user.Teacher{ID: f.createUser(t, "Teacher", "teacher@test.cd", user.RoleTeacher).ID}
	other := user.Teacher{ID: f.createUser(t, "Other", "other@test.cd", user.RoleTeacher).ID}
	student := user.Student{ID: f.createUser(t, "Hero", "hero@test.cd", user.RoleStudent).ID}

	crs, err := f.svc.Create(ctx, teacher, course.NewCourse{Title: "Algebra I"})
	require.NoError(t, err)
	f.createAssignment(t, crs.ID)
	f.enroll(t, student.ID, crs.ID, enrollment.StatusApproved)

	t.Run("owner with stats", func(t *testing.T) {
		got, stats, err := f.svc.GetByID(ctx, teacher, crs.ID, true)
		require.NoError(t, err)
		assert.Equal(t, crs.ID, got.ID)
		require.NotNil(t, stats)
		assert.Equal(t, 1, stats.Assignments)
		assert.Equal(t, 1, stats.Students)
	})

	t.Run("other teachers are refused", func(t *testing.T) {
		_, _, err := f.svc.GetByID(ctx, other, crs.ID, false)
		assert.ErrorIs(t, err, core.ErrForbidden)
	})

	t.Run("students may browse", func(t *testing.T) {
		got, stats, err := f.svc.GetByID(ctx, student, crs.ID, false)
		require.NoError(t, err)
		assert.Equal(t, crs.ID, got.ID)
		assert.Nil(t, stats)
	})
}

func TestService_ListForActor(t *testing.T) {
	ctx := context.Background()
	f := newCourseFixture(t)
	teacher := user.Teacher{ID: f.createUser(t, "Teacher", "teacher@test.cd", user.RoleTeacher).ID}
	other := user.Teacher{ID: f.createUser(t, "Other", "other@test.cd", user.RoleTeacher).ID}
	student := user.Student{ID: f.createUser(t, "Hero", "hero@test.cd", user.RoleStudent).ID}

	crs1, err := f.svc.Create(ctx, teacher, course.NewCourse{Title: "Algebra I"})
	require.NoError(t, err)
	crs2, err := f.svc.Create(ctx, teacher, course.NewCourse{Title: "Geometry"})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, other, course.NewCourse{Title: "History"})
	require.NoError(t, err)

	f.createAssignment(t, crs1.ID)
	f.createAssignment(t, crs1.ID)
	f.enroll(t, student.ID, crs1.ID, enrollment.StatusApproved)
	f.enroll(t, student.ID, crs2.ID, enrollment.StatusPending)

	t.Run("teacher sees owned courses with counts", func(t *testing.T) {
		infos, total, err := f.svc.ListForActor(ctx, teacher, course.QueryFilter{})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		counts := map[int]int{}
		for _, info := range infos {
			counts[info.ID] = info.AssignmentCount
		}
		assert.Equal(t, 2, counts[crs1.ID])
		assert.Equal(t, 0, counts[crs2.ID])
	})

	t.Run("student sees approved enrollments only", func(t *testing.T) {
		infos, total, err := f.svc.ListForActor(ctx, student, course.QueryFilter{})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, infos, 1)
		assert.Equal(t, crs1.ID, infos[0].ID)
	})

	t.Run("search filters by title", func(t *testing.T) {
		infos, total, err := f.svc.ListForActor(ctx, teacher, course.QueryFilter{Search: "geo"})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, infos, 1)
		assert.Equal(t, crs2.ID, infos[0].ID)
	})
}

func TestService_Catalog(t *testing.T) {
	ctx := context.Background()
	f := newCourseFixture(t)
	teacher := user.Teacher{ID: f.createUser(t, "Teacher", "teacher@test.cd", user.RoleTeacher).ID}
	student := user.Student{ID: f.createUser(t, "Hero", "hero@test.cd", user.RoleStudent).ID}

	enrolled, err := f.svc.Create(ctx, teacher, course.NewCourse{Title: "Algebra I"})
	require.NoError(t, err)
	pending, err := f.svc.Create(ctx, teacher, course.NewCourse{Title: "Geometry"})
	require.NoError(t, err)
	fresh, err := f.svc.Create(ctx, teacher, course.NewCourse{Title: "History"})
	require.NoError(t, err)

	f.enroll(t, student.ID, enrolled.ID, enrollment.StatusApproved)
	f.enroll(t, student.ID, pending.ID, enrollment.StatusPending)

	t.Run("approved courses are excluded, statuses annotated", func(t *testing.T) {
		entries, total, err := f.svc.Catalog(ctx, student, course.QueryFilter{})
		require.NoError(t, err)
		assert.Equal(t, 2, total)

		statuses := map[int]string{}
		for _, e := range entries {
			statuses[e.ID] = e.EnrollmentStatus
		}
		assert.Equal(t, enrollment.StatusPending, statuses[pending.ID])
		assert.Equal(t, "", statuses[fresh.ID])
		assert.NotContains(t, statuses, enrolled.ID)
	})

	t.Run("teachers have no catalog", func(t *testing.T) {
		_, _, err := f.svc.Catalog(ctx, teacher, course.QueryFilter{})
		assert.ErrorIs(t, err, core.ErrForbidden)
	})
}
