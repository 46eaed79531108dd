package submission

import (
	"path/filepath"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
)

// Submission is one upload event. A student may submit several times for
// the same assignment; each upload is its own row. The row owns the file
// blob referenced by FileKey.
type Submission struct {
	ID           int          `json:"id"`
	AssignmentID int          `json:"assignment_id"`
	StudentID    int          `json:"student_id"`
	SubmittedAt  time.Time    `json:"submitted_at"` // UTC
	FileKey      string       `json:"file_key"`
	FileName     string       `json:"file_name"`
	FileURL      string       `json:"file_url"`
	Grade        null.Float64 `json:"grade"`
	Note         string       `json:"note"`
	GradedAt     null.Time    `json:"graded_at"`
}

// Detail is a submission joined with its student, as grading views need.
type Detail struct {
	Submission
	StudentName  string `json:"student_name"`
	StudentEmail string `json:"student_email"`
}

// GradeUpdate patches one submission in a bulk grading batch. Nil fields
// are left untouched.
type GradeUpdate struct {
	ID    int      `json:"id" validate:"required"`
	Grade *float64 `json:"grade"`
	Note  *string  `json:"note"`
}

func (gu GradeUpdate) isEmpty() bool { return gu.Grade == nil && gu.Note == nil }

// DeleteResult reports a row deletion. The row delete is the
// authoritative action; BlobDeleted surfaces the best-effort file
// cleanup so callers can assert on it instead of it being swallowed.
type DeleteResult struct {
	BlobDeleted bool `json:"blob_deleted"`
}

// FileRef locates a stored submission file for serving.
type FileRef struct {
	Path string
	Name string // safe display filename
}

// AssignmentInfo is the slice of an assignment a submission op needs.
type AssignmentInfo struct {
	ID       int
	CourseID int
	DueDate  time.Time
}

// safeFileName reduces a client-supplied name to its base; falls back to
// the generated key when empty.
func safeFileName(origName, key string) string {
	name := filepath.Base(core.CleanString(origName))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return key
	}
	return name
}

var sortFields = map[string]string{
	"submitted_at": "submitted_at",
	"grade":        "grade",
}

type QueryFilter struct {
	Ordering core.DBOrdering
	Paging   core.Paging
}

func (qf *QueryFilter) Clean() {
	if fld, ok := sortFields[qf.Ordering.Field]; ok {
		qf.Ordering.Field = fld
	} else {
		qf.Ordering = core.DBOrdering{Field: "submitted_at", Ascending: false}
	}
	qf.Paging.Clean()
}
