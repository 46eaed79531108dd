package course

import (
	"time"

	"github.com/trezcool/darasa/core"
)

type Course struct {
	ID             int       `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	OwnerID        int       `json:"owner_id"`
	OpenEnrollment bool      `json:"open_enrollment"`
	CreatedAt      time.Time `json:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at"` // UTC
}

// Info is a course annotated with its assignment count, as produced by a
// single grouped aggregate (never one count query per course).
type Info struct {
	Course
	AssignmentCount int `json:"assignment_count"`
}

// CatalogEntry is a browsable course annotated with the calling student's
// current enrollment status: "" (none), "pending" or "rejected".
type CatalogEntry struct {
	Course
	EnrollmentStatus string `json:"enrollment_status"`
}

// Stats summarizes a course for detail views.
type Stats struct {
	Assignments int `json:"assignments"`
	Students    int `json:"students"` // approved enrollments
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title          string `json:"title" validate:"required"`
	Description    string `json:"description"`
	OpenEnrollment *bool  `json:"open_enrollment"`
}

func (nc *NewCourse) Validate() error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	return core.Validate.Struct(nc)
}

// UpdateCourse defines what may be modified on an existing Course.
// Only non-nil fields are applied.
type UpdateCourse struct {
	Title          *string `json:"title"`
	Description    *string `json:"description"`
	OpenEnrollment *bool   `json:"open_enrollment"`
}

func (uc *UpdateCourse) Validate() error {
	if uc.Title != nil {
		title := core.CleanString(*uc.Title)
		if title == "" {
			return core.NewValidationError(nil, core.FieldError{Field: "title", Error: "this field is required"})
		}
		uc.Title = &title
	}
	if uc.Description != nil {
		desc := core.CleanString(*uc.Description)
		uc.Description = &desc
	}
	return nil
}

// Sortable fields for course listings.
var sortFields = map[string]string{
	"title":      "title",
	"created_at": "created_at",
}

type QueryFilter struct {
	Search   string `query:"search"`
	Ordering core.DBOrdering
	Paging   core.Paging
}

// Clean normalizes the filter: unknown sort fields fall back to
// created_at descending, paging is clamped.
func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	if fld, ok := sortFields[qf.Ordering.Field]; ok {
		qf.Ordering.Field = fld
	} else {
		qf.Ordering = core.DBOrdering{Field: "created_at", Ascending: false}
	}
	qf.Paging.Clean()
}
