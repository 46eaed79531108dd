package assignment

import (
	"time"

	"github.com/trezcool/darasa/core"
)

type Assignment struct {
	ID          int       `json:"id"`
	CourseID    int       `json:"course_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// Info is an assignment annotated with its submission count. The count is
// informational only; it plays no part in authorization.
type Info struct {
	Assignment
	SubmissionCount int `json:"submission_count"`
}

// Stats summarizes an assignment for detail views.
type Stats struct {
	Submissions int `json:"submissions"`
}

// NewAssignment contains information needed to create a new Assignment.
type NewAssignment struct {
	CourseID    int    `json:"course_id" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	DueDate     string `json:"due_date" validate:"required"`

	dueDate time.Time
}

func (na *NewAssignment) Validate() error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)

	if err := core.Validate.Struct(na); err != nil {
		return err
	}
	due, err := parseDueDate(na.DueDate)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "due_date", Error: "invalid date"})
	}
	na.dueDate = due
	return nil
}

// UpdateAssignment defines what may be modified on an existing
// Assignment. Only non-nil fields are applied.
type UpdateAssignment struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"due_date"`

	dueDate time.Time
}

func (ua *UpdateAssignment) Validate() error {
	if ua.Title != nil {
		title := core.CleanString(*ua.Title)
		if title == "" {
			return core.NewValidationError(nil, core.FieldError{Field: "title", Error: "this field is required"})
		}
		ua.Title = &title
	}
	if ua.Description != nil {
		desc := core.CleanString(*ua.Description)
		ua.Description = &desc
	}
	if ua.DueDate != nil {
		due, err := parseDueDate(*ua.DueDate)
		if err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "due_date", Error: "invalid date"})
		}
		ua.dueDate = due
	}
	return nil
}

// parseDueDate accepts RFC3339 or a bare date.
func parseDueDate(s string) (time.Time, error) {
	s = core.CleanString(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

type QueryFilter struct {
	Ordering core.DBOrdering
	Paging   core.Paging
}

var sortFields = map[string]string{
	"title":      "title",
	"due_date":   "due_date",
	"created_at": "created_at",
}

func (qf *QueryFilter) Clean() {
	if fld, ok := sortFields[qf.Ordering.Field]; ok {
		qf.Ordering.Field = fld
	} else {
		qf.Ordering = core.DBOrdering{Field: "created_at", Ascending: false}
	}
	qf.Paging.Clean()
}
