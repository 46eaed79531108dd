package echoapi

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/enrollment"
	"github.com/trezcool/darasa/core/user"
)

func Test_courseApi_crud(t *testing.T) {
	app := newTestApp(t)
	teacher := app.createUser(t, "Teacher", "teacher@test.cd", "LordOfTheRings", user.RoleTeacher)
	other := app.createUser(t, "Other", "other@test.cd", "LordOfTheRings", user.RoleTeacher)
	student := app.createUser(t, "Hero", "hero@test.cd", "LordOfTheRings", user.RoleStudent)

	teacherToken := getToken(t, teacher)
	otherToken := getToken(t, other)
	studentToken := getToken(t, student)

	t.Run("auth required", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}
		req, rec := newRequest(http.MethodGet, "/v1/courses")
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("students cannot create", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}
		body := marchallObj(t, map[string]string{"title": "Nope"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses", studentToken, body)
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	var crs course.Course
	t.Run("teacher creates", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"title": "Algebra I", "description": "numbers and letters"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses", teacherToken, body)
		app.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decodeBody(t, rec, &crs)
		assert.Equal(t, teacher.ID, crs.OwnerID)
		assert.True(t, crs.OpenEnrollment)
	})

	t.Run("owner lists with counts", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses", teacherToken)
		app.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var page struct {
			Items []course.Info `json:"items"`
			Total int           `json:"total"`
		}
		decodeBody(t, rec, &page)
		assert.Equal(t, 1, page.Total)
		require.Len(t, page.Items, 1)
		assert.Equal(t, crs.ID, page.Items[0].ID)
	})

	t.Run("owner updates", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"title": "Algebra II"})
		req, rec := newAuthRequest(http.MethodPut, coursePath(crs.ID), teacherToken, body)
		app.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got course.Course
		decodeBody(t, rec, &got)
		assert.Equal(t, "Algebra II", got.Title)
	})

	t.Run("non-owner cannot update", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"title": "Hijacked"})
		req, rec := newAuthRequest(http.MethodPut, coursePath(crs.ID), otherToken, body)
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("retrieve with stats", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, coursePath(crs.ID)+"?stats=true", teacherToken)
		app.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp CourseDetailResponse
		decodeBody(t, rec, &resp)
		require.NotNil(t, resp.Stats)
		assert.Equal(t, 0, resp.Stats.Assignments)
	})

	t.Run("unknown course", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, coursePath(999), teacherToken)
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("owner deletes", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, coursePath(crs.ID), teacherToken)
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func Test_courseApi_enrollmentFlow(t *testing.T) {
	app := newTestApp(t)
	teacher := app.createUser(t, "Teacher", "teacher@test.cd", "LordOfTheRings", user.RoleTeacher)
	student := app.createUser(t, "Hero", "hero@test.cd", "LordOfTheRings", user.RoleStudent)
	openCrs := app.createCourse(t, teacher.ID, "Algebra I", true)
	closedCrs := app.createCourse(t, teacher.ID, "Geometry", false)

	teacherToken := getToken(t, teacher)
	studentToken := getToken(t, student)

	t.Run("open course approves immediately", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, coursePath(openCrs.ID)+"/enroll", studentToken)
		app.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var enr enrollment.Enrollment
		decodeBody(t, rec, &enr)
		assert.Equal(t, enrollment.StatusApproved, enr.Status)
	})

	t.Run("teachers cannot enroll", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, coursePath(openCrs.ID)+"/enroll", teacherToken)
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	var pending enrollment.Enrollment
	t.Run("closed course files a request", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, coursePath(closedCrs.ID)+"/enroll-request", studentToken)
		app.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decodeBody(t, rec, &pending)
		assert.Equal(t, enrollment.StatusPending, pending.Status)
	})

	t.Run("owner lists pending requests", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, coursePath(closedCrs.ID)+"/enrollments/pending", teacherToken)
		app.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var page struct {
			Items []enrollment.Detail `json:"items"`
			Total int                 `json:"total"`
		}
		decodeBody(t, rec, &page)
		assert.Equal(t, 1, page.Total)
		require.Len(t, page.Items, 1)
		assert.Equal(t, student.ID, page.Items[0].StudentID)
		assert.Equal(t, "Hero", page.Items[0].StudentName)
	})

	t.Run("students cannot list enrollments", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, coursePath(closedCrs.ID)+"/enrollments", studentToken)
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("owner approves", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/enrollments/%d/approve", pending.ID), teacherToken)
		app.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var enr enrollment.Enrollment
		decodeBody(t, rec, &enr)
		assert.Equal(t, enrollment.StatusApproved, enr.Status)
	})

	t.Run("reject after approval conflicts", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/enrollments/%d/reject", pending.ID), teacherToken)
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("student leaves", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, coursePath(openCrs.ID)+"/enrollment", studentToken)
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func Test_courseApi_catalog(t *testing.T) {
	app := newTestApp(t)
	teacher := app.createUser(t, "Teacher", "teacher@test.cd", "LordOfTheRings", user.RoleTeacher)
	student := app.createUser(t, "Hero", "hero@test.cd", "LordOfTheRings", user.RoleStudent)
	enrolled := app.createCourse(t, teacher.ID, "Algebra I", true)
	app.createCourse(t, teacher.ID, "Geometry", false)
	app.approve(t, student.ID, enrolled.ID)

	t.Run("teachers have no catalog", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses/catalog", getToken(t, teacher))
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("approved courses are excluded", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses/catalog", getToken(t, student))
		app.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var page struct {
			Items []course.CatalogEntry `json:"items"`
			Total int                   `json:"total"`
		}
		decodeBody(t, rec, &page)
		assert.Equal(t, 1, page.Total)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "Geometry", page.Items[0].Title)
	})
}

func coursePath(id int) string { return fmt.Sprintf("/v1/courses/%d", id) }
