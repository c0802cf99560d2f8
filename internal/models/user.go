package models

import "time"

// User is an account provisioned by the campus identity service. This service
// only ever reads users; registration and verification live elsewhere.
type User struct {
	ID            string    `db:"id" json:"id"`
	SchoolEmail   string    `db:"school_email" json:"school_email"`
	Name          string    `db:"name" json:"name"`
	StudentID     string    `db:"student_id" json:"student_id"`
	Major         string    `db:"major" json:"major"`
	EmailVerified bool      `db:"email_verified" json:"email_verified"`
	DateJoined    time.Time `db:"date_joined" json:"date_joined"`
}
