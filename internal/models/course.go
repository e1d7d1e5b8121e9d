package models

import "time"

// Course represents one offering of a class in a given term.
type Course struct {
	ID           string    `db:"id" json:"id"`
	Subject      string    `db:"subject" json:"subject"`
	Number       int       `db:"number" json:"number"`
	Title        string    `db:"title" json:"title"`
	Term         string    `db:"term" json:"term"`
	InstructorID string    `db:"instructor_id" json:"instructor_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// CourseFilter captures the equality filters and page for course listings.
// Zero-valued fields leave the corresponding column unconstrained.
type CourseFilter struct {
	Subject string
	Number  int
	Term    string
	Page    int
}
