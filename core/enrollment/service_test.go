package enrollment_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/access"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/enrollment"
	"github.com/trezcool/darasa/core/user"
	emailsvc "github.com/trezcool/darasa/services/email"
	"github.com/trezcool/darasa/storage/database/dummydb"
)

type enrollmentFixture struct {
	svc     *enrollment.Service
	usrRepo user.Repository
	crsRepo course.Repository
}

func newEnrollmentFixture(t *testing.T) *enrollmentFixture {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)

	emailsvc.ClearSentMessages()
	return &enrollmentFixture{
		svc: enrollment.NewService(
			dummydb.NewEnrollmentRepository(db),
			access.NewResolver(dummydb.NewAccessRepository(db)),
			emailsvc.NewConsoleServiceMock(),
		),
		usrRepo: dummydb.NewUserRepository(db),
		crsRepo: dummydb.NewCourseRepository(db),
	}
}

func (f *enrollmentFixture) createUser(t *testing.T, name, email, role string) user.User {
	t.Helper()
	usr, err := f.usrRepo.CreateUser(context.Background(), user.User{Name: name, Email: email, Role: role})
	require.NoError(t, err)
	return usr
}

func (f *enrollmentFixture) createCourse(t *testing.T, ownerID int, open bool) course.Course {
	t.Helper()
	crs, err := f.crsRepo.CreateCourse(context.Background(), course.Course{
		Title:          "Algebra I",
		OwnerID:        ownerID,
		OpenEnrollment: open,
		CreatedAt:      time.Now().UTC(),
	})
	require.NoError(t, err)
	return crs
}

func TestService_EnrollNow(t *testing.T) {
	ctx := context.Background()
	f := newEnrollmentFixture(t)
	teacher := f.createUser(t, "Teacher", "teacher@test.cd", user.RoleTeacher)
	student := user.Student{ID: f.createUser(t, "Hero", "hero@test.cd", user.RoleStudent).ID}
	openCrs := f.createCourse(t, teacher.ID, true)
	closedCrs := f.createCourse(t, teacher.ID, false)

	t.Run("open course approves immediately", func(t *testing.T) {
		enr, err := f.svc.EnrollNow(ctx, student, openCrs.ID)
		require.NoError(t, err)
		assert.Equal(t, enrollment.StatusApproved, enr.Status)
	})

	t.Run("idempotent on existing record", func(t *testing.T) {
		first, err := f.svc.EnrollNow(ctx, student, openCrs.ID)
		require.NoError(t, err)
		again, err := f.svc.EnrollNow(ctx, student, openCrs.ID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)
	})

	t.Run("closed course files a pending request", func(t *testing.T) {
		enr, err := f.svc.EnrollNow(ctx, student, closedCrs.ID)
		require.NoError(t, err)
		assert.Equal(t, enrollment.StatusPending, enr.Status)
	})

	t.Run("unknown course", func(t *testing.T) {
		_, err := f.svc.EnrollNow(ctx, student, 999)
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("teachers cannot enroll", func(t *testing.T) {
		_, err := f.svc.EnrollNow(ctx, user.Teacher{ID: teacher.ID}, openCrs.ID)
		assert.ErrorIs(t, err, core.ErrForbidden)
	})
}

func TestService_Request(t *testing.T) {
	ctx := context.Background()
	f := newEnrollmentFixture(t)
	teacher := f.createUser(t, "Teacher", "teacher@test.cd", user.RoleTeacher)
	owner := user.Teacher{ID: teacher.ID}
	student := user.Student{ID: f.createUser(t, "Hero", "hero@test.cd", user.RoleStudent).ID}
	crs := f.createCourse(t, teacher.ID, false)

	enr, err := f.svc.Request(ctx, student, crs.ID)
	require.NoError(t, err)
	assert.Equal(t, enrollment.StatusPending, enr.Status)

	t.Run("request while pending keeps the record", func(t *testing.T) {
		again, err := f.svc.Request(ctx, student, crs.ID)
		require.NoError(t, err)
		assert.Equal(t, enr.ID, again.ID)
		assert.Equal(t, enrollment.StatusPending, again.Status)
	})

	t.Run("rejection is not a dead end", func(t *testing.T) {
		_, err := f.svc.Reject(ctx, owner, enr.ID)
		require.NoError(t, err)

		again, err := f.svc.Request(ctx, student, crs.ID)
		require.NoError(t, err)
		assert.Equal(t, enr.ID, again.ID)
		assert.Equal(t, enrollment.StatusPending, again.Status)
	})

	t.Run("request while approved keeps approval", func(t *testing.T) {
		_, err := f.svc.Approve(ctx, owner, enr.ID)
		require.NoError(t, err)

		again, err := f.svc.Request(ctx, student, crs.ID)
		require.NoError(t, err)
		assert.Equal(t, enrollment.StatusApproved, again.Status)
	})
}

func TestService_decisions(t *testing.T) {
	ctx := context.Background()
	f := newEnrollmentFixture(t)
	teacher := f.createUser(t, "Teacher", "teacher@test.cd", user.RoleTeacher)
	other := f.createUser(t, "Other", "other@test.cd", user.RoleTeacher)
	owner := user.Teacher{ID: teacher.ID}
	student := user.Student{ID: f.createUser(t, "Hero", "hero@test.cd", user.RoleStudent).ID}
	crs := f.createCourse(t, teacher.ID, false)

	enr, err := f.svc.Request(ctx, student, crs.ID)
	require.NoError(t, err)

	t.Run("only the course owner decides", func(t *testing.T) {
		_, err := f.svc.Approve(ctx, user.Teacher{ID: other.ID}, enr.ID)
		assert.ErrorIs(t, err, core.ErrForbidden)

		_, err = f.svc.Approve(ctx, student, enr.ID)
		assert.ErrorIs(t, err, core.ErrForbidden)
	})

	t.Run("approve notifies the student", func(t *testing.T) {
		got, err := f.svc.Approve(ctx, owner, enr.ID)
		require.NoError(t, err)
		assert.Equal(t, enrollment.StatusApproved, got.Status)

		require.Len(t, emailsvc.SentMessages, 1)
		msg := emailsvc.SentMessages[0]
		assert.Equal(t, "Enrollment approved", msg.Subject)
		assert.Equal(t, "hero@test.cd", msg.To[0].Address)
	})

	t.Run("approve is idempotent", func(t *testing.T) {
		got, err := f.svc.Approve(ctx, owner, enr.ID)
		require.NoError(t, err)
		assert.Equal(t, enrollment.StatusApproved, got.Status)
		assert.Len(t, emailsvc.SentMessages, 1) // no second email
	})

	t.Run("reject after approval conflicts", func(t *testing.T) {
		_, err := f.svc.Reject(ctx, owner, enr.ID)
		assert.ErrorIs(t, err, core.ErrConflict)
	})

	t.Run("unknown enrollment", func(t *testing.T) {
		_, err := f.svc.Approve(ctx, owner, 999)
		assert.ErrorIs(t, err, core.ErrNotFound)
	})
}

func TestService_concurrentEnrollment(t *testing.T) {
	ctx := context.Background()
	f := newEnrollmentFixture(t)
	teacher := f.createUser(t, "Teacher", "teacher@test.cd", user.RoleTeacher)
	owner := user.Teacher{ID: teacher.ID}
	student := user.Student{ID: f.createUser(t, "Hero", "hero@test.cd", user.RoleStudent).ID}
	crs := f.createCourse(t, teacher.ID, true)

	// racing EnrollNow and Request must still end with exactly one record
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.svc.EnrollNow(ctx, student, crs.ID)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := f.svc.Request(ctx, student, crs.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	details, total, err := f.svc.ListForCourse(ctx, owner, crs.ID, core.Paging{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, details, 1)
	assert.Equal(t, student.ID, details[0].StudentID)
}

func TestService_Leave(t *testing.T) {
	ctx := context.Background()
	f := newEnrollmentFixture(t)
	teacher := f.createUser(t, "Teacher", "teacher@test.cd", user.RoleTeacher)
	student := user.Student{ID: f.createUser(t, "Hero", "hero@test.cd", user.RoleStudent).ID}
	crs := f.createCourse(t, teacher.ID, true)

	_, err := f.svc.EnrollNow(ctx, student, crs.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.Leave(ctx, student, crs.ID))

	t.Run("leaving again is a no-op", func(t *testing.T) {
		assert.NoError(t, f.svc.Leave(ctx, student, crs.ID))
	})

	t.Run("re-enrollment starts fresh", func(t *testing.T) {
		enr, err := f.svc.EnrollNow(ctx, student, crs.ID)
		require.NoError(t, err)
		assert.Equal(t, enrollment.StatusApproved, enr.Status)
	})
}

func TestService_listings(t *testing.T) {
	ctx := context.Background()
	f := newEnrollmentFixture(t)
	teacher := f.createUser(t, "Teacher", "teacher@test.cd", user.RoleTeacher)
	owner := user.Teacher{ID: teacher.ID}
	s1 := user.Student{ID: f.createUser(t, "Hero", "hero@test.cd", user.RoleStudent).ID}
	s2 := user.Student{ID: f.createUser(t, "King", "king@test.cd", user.RoleStudent).ID}
	crs := f.createCourse(t, teacher.ID, false)

	_, err := f.svc.Request(ctx, s1, crs.ID)
	require.NoError(t, err)
	enr2, err := f.svc.Request(ctx, s2, crs.ID)
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, owner, enr2.ID)
	require.NoError(t, err)

	t.Run("pending only", func(t *testing.T) {
		details, total, err := f.svc.ListPending(ctx, owner, crs.ID, core.Paging{})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, details, 1)
		assert.Equal(t, s1.ID, details[0].StudentID)
		assert.Equal(t, "Hero", details[0].StudentName)
	})

	t.Run("all statuses", func(t *testing.T) {
		details, total, err := f.svc.ListForCourse(ctx, owner, crs.ID, core.Paging{})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Len(t, details, 2)
	})

	t.Run("approved roster", func(t *testing.T) {
		details, total, err := f.svc.ListByStatus(ctx, owner, crs.ID, enrollment.StatusApproved, core.Paging{})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, details, 1)
		assert.Equal(t, s2.ID, details[0].StudentID)
	})

	t.Run("unknown status", func(t *testing.T) {
		_, _, err := f.svc.ListByStatus(ctx, owner, crs.ID, "lol", core.Paging{})
		assert.ErrorIs(t, err, core.ErrInvalidInput)
	})

	t.Run("owner only", func(t *testing.T) {
		_, _, err := f.svc.ListPending(ctx, s1, crs.ID, core.Paging{})
		assert.ErrorIs(t, err, core.ErrForbidden)
	})
}
