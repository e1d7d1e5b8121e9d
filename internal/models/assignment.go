package models

import "time"

// Assignment is gradable work attached to a course.
type Assignment struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	Title     string    `db:"title" json:"title"`
	Points    int       `db:"points" json:"points"`
	Due       time.Time `db:"due" json:"due"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
