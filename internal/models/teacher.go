package models

import "time"

// Teacher is the directory record for a teaching staff member. The roster
// itself is managed elsewhere; this core only reads it for display
// enrichment and search.
type Teacher struct {
	ID        string    `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Email     string    `db:"email" json:"email"`
	Rating    float64   `db:"rating" json:"rating"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Ref projects the teacher into the shape embedded in slot listings.
func (t Teacher) Ref() TeacherRef {
	return TeacherRef{ID: t.ID, Name: t.FullName, Email: t.Email, Rating: t.Rating}
}
