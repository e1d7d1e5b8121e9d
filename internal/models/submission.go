package models

import "time"

// Submission is the metadata record for one uploaded piece of student work.
// The payload itself lives in the blob store under BlobToken; the record is
// written only after the blob is fully durable, so BlobToken never points at
// a partial write.
type Submission struct {
	ID           string    `db:"id" json:"id"`
	AssignmentID string    `db:"assignment_id" json:"assignment_id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	Timestamp    time.Time `db:"submitted_at" json:"timestamp"`
	ContentType  string    `db:"content_type" json:"content_type"`
	BlobToken    string    `db:"blob_token" json:"-"`
	SizeBytes    int64     `db:"size_bytes" json:"size_bytes"`
	FileURL      string    `db:"-" json:"file"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// SubmissionFilter scopes submission listings to an assignment and,
// optionally, a single student.
type SubmissionFilter struct {
	AssignmentID string
	StudentID    string
	Page         int
}
