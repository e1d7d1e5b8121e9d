package models

import "time"

// Enrollment is one membership edge between a student and a course. The
// (student_id, course_id) pair is unique and the edge carries no state
// beyond its own existence.
type Enrollment struct {
	StudentID  string    `db:"student_id" json:"student_id"`
	CourseID   string    `db:"course_id" json:"course_id"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
}
