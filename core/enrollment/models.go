package enrollment

import "time"

// Statuses. The lifecycle is NONE (no record) → PENDING → APPROVED or
// REJECTED; REJECTED → PENDING (re-request); APPROVED → NONE (leave).
// Rejection is never a dead end.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Enrollment links a student to a course. At most one record exists per
// (StudentID, CourseID) pair; the store enforces the uniqueness.
type Enrollment struct {
	ID        int       `json:"id"`
	StudentID int       `json:"student_id"`
	CourseID  int       `json:"course_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// Detail is an enrollment joined with its student and course, as listing
// and notification views need it.
type Detail struct {
	Enrollment
	StudentName  string `json:"student_name"`
	StudentEmail string `json:"student_email"`
	CourseTitle  string `json:"course_title"`
}
