package echoapi

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/submission"
	"github.com/trezcool/darasa/core/user"
)

func Test_assignmentApi_crud(t *testing.T) {
	app := newTestApp(t)
	teacher := app.createUser(t, "Teacher", "teacher@test.cd", "LordOfTheRings", user.RoleTeacher)
	other := app.createUser(t, "Other", "other@test.cd", "LordOfTheRings", user.RoleTeacher)
	student := app.createUser(t, "Hero", "hero@test.cd", "LordOfTheRings", user.RoleStudent)
	crs := app.createCourse(t, teacher.ID, "Algebra I", true)

	teacherToken := getToken(t, teacher)

	t.Run("students cannot create", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"course_id": crs.ID, "title": "Nope", "due_date": "2026-12-31"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/assignments", getToken(t, student), body)
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	var asg assignment.Assignment
	t.Run("owner creates", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{
			"course_id": crs.ID,
			"title":     "Homework 1",
			"due_date":  time.Now().Add(7 * 24 * time.Hour).UTC().Format(time.RFC3339),
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/assignments", teacherToken, body)
		app.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decodeBody(t, rec, &asg)
		assert.Equal(t, crs.ID, asg.CourseID)
	})

	t.Run("invalid due date reports the field", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"course_id": crs.ID, "title": "Homework 2", "due_date": "soon"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/assignments", teacherToken, body)
		app.server.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var fields map[string]string
		decodeBody(t, rec, &fields)
		assert.Contains(t, fields, "due_date")
	})

	t.Run("non-owner cannot update", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"title": "Hijacked"})
		req, rec := newAuthRequest(http.MethodPut, assignmentPath(asg.ID), getToken(t, other), body)
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("retrieve with includes", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, assignmentPath(asg.ID)+"?include=course,stats", teacherToken)
		app.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var det assignment.Detail
		decodeBody(t, rec, &det)
		require.NotNil(t, det.Course)
		assert.Equal(t, crs.Title, det.Course.Title)
		require.NotNil(t, det.Stats)
		assert.Equal(t, 0, det.Stats.Submissions)
	})

	t.Run("course assignments listing", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, coursePath(crs.ID)+"/assignments", teacherToken)
		app.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var page struct {
			Items []assignment.Info `json:"items"`
			Total int               `json:"total"`
		}
		decodeBody(t, rec, &page)
		assert.Equal(t, 1, page.Total)
	})

	t.Run("owner deletes", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, assignmentPath(asg.ID), teacherToken)
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func Test_assignmentApi_submissions(t *testing.T) {
	app := newTestApp(t)
	teacher := app.createUser(t, "Teacher", "teacher@test.cd", "LordOfTheRings", user.RoleTeacher)
	student := app.createUser(t, "Hero", "hero@test.cd", "LordOfTheRings", user.RoleStudent)
	outsider := app.createUser(t, "King", "king@test.cd", "LordOfTheRings", user.RoleStudent)
	crs := app.createCourse(t, teacher.ID, "Algebra I", true)
	asg := app.createAssignment(t, crs.ID, "Homework 1", time.Now().Add(7*24*time.Hour).UTC())
	app.approve(t, student.ID, crs.ID)

	teacherToken := getToken(t, teacher)
	studentToken := getToken(t, student)
	uploadPath := assignmentPath(asg.ID) + "/submissions"

	t.Run("teachers cannot upload", func(t *testing.T) {
		req, rec := newUploadRequest(t, uploadPath, teacherToken, "essay.txt", "x")
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unenrolled student is refused", func(t *testing.T) {
		req, rec := newUploadRequest(t, uploadPath, getToken(t, outsider), "essay.txt", "x")
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("disallowed file type", func(t *testing.T) {
		req, rec := newUploadRequest(t, uploadPath, studentToken, "evil.exe", "x")
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing file reports the field", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, uploadPath, studentToken)
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	var sub submission.Submission
	t.Run("enrolled student uploads", func(t *testing.T) {
		req, rec := newUploadRequest(t, uploadPath, studentToken, "essay.txt", "my essay")
		app.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decodeBody(t, rec, &sub)
		assert.Equal(t, student.ID, sub.StudentID)
		assert.Equal(t, "essay.txt", sub.FileName)
	})

	t.Run("owner lists submissions", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, uploadPath, teacherToken)
		app.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var page struct {
			Items []submission.Detail `json:"items"`
			Total int                 `json:"total"`
		}
		decodeBody(t, rec, &page)
		assert.Equal(t, 1, page.Total)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "Hero", page.Items[0].StudentName)
	})

	t.Run("owner grades in bulk", func(t *testing.T) {
		grade := 95.0
		note := "great work"
		body := marchallObj(t, BulkGradeRequest{Updates: []submission.GradeUpdate{
			{ID: sub.ID, Grade: &grade, Note: &note},
			{ID: 999, Grade: &grade}, // unknown, silently skipped
		}})
		req, rec := newAuthRequest(http.MethodPut, assignmentPath(asg.ID)+"/grades", teacherToken, body)
		app.server.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, BulkGradeResponse{Modified: 1})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("owner downloads the file", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/submissions/%d/file", sub.ID), teacherToken)
		app.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "my essay", rec.Body.String())
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "essay.txt")
	})

	t.Run("other students cannot download", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/submissions/%d/file", sub.ID), getToken(t, outsider))
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("other students cannot delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, fmt.Sprintf("/v1/submissions/%d", sub.ID), getToken(t, outsider))
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("owner deletes before the deadline", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, fmt.Sprintf("/v1/submissions/%d", sub.ID), studentToken)
		app.server.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, submission.DeleteResult{BlobDeleted: true})}
		checkCodeAndData(t, tt, rec)
	})
}

func assignmentPath(id int) string { return fmt.Sprintf("/v1/assignments/%d", id) }
