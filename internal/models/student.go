package models

import "time"

// Student represents an enrollable student record.
type Student struct {
	ID           string    `db:"id" json:"id"`
	FullName     string    `db:"full_name" json:"full_name"`
	RollNumber   string    `db:"roll_number" json:"roll_number"`
	ClassSection string    `db:"class_section" json:"class_section"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
