package models

import (
	"fmt"
	"time"
)

// Weekday bounds for availability slots (0 = Sunday .. 6 = Saturday).
const (
	MinDayOfWeek = 0
	MaxDayOfWeek = 6
)

// Capacity bounds for a single availability slot.
const (
	MinSlotCapacity = 1
	MaxSlotCapacity = 50
)

// AvailabilitySlot is a recurring weekly availability window for one teacher.
type AvailabilitySlot struct {
	ID          string    `db:"id" json:"id"`
	TeacherID   string    `db:"teacher_id" json:"teacher_id"`
	DayOfWeek   int       `db:"day_of_week" json:"day_of_week"`
	StartTime   string    `db:"start_time" json:"start_time"`
	EndTime     string    `db:"end_time" json:"end_time"`
	MaxStudents int       `db:"max_students" json:"max_students"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Window returns the slot's time range as minutes since midnight.
func (s AvailabilitySlot) Window() (start, end int, err error) {
	start, err = MinuteOfDay(s.StartTime)
	if err != nil {
		return 0, 0, err
	}
	end, err = MinuteOfDay(s.EndTime)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// MinuteOfDay parses a strict "HH:MM" wall-clock value into minutes since
// midnight.
func MinuteOfDay(value string) (int, error) {
	if len(value) != 5 || value[2] != ':' {
		return 0, fmt.Errorf("time %q must be in HH:MM format", value)
	}
	var hh, mm int
	if _, err := fmt.Sscanf(value, "%2d:%2d", &hh, &mm); err != nil {
		return 0, fmt.Errorf("time %q must be in HH:MM format", value)
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("time %q out of range", value)
	}
	return hh*60 + mm, nil
}

// AvailabilityFilter captures listing criteria for availability slots.
type AvailabilityFilter struct {
	TeacherID string
	DayOfWeek *int
	IsActive  *bool
	Search    string
}

// ConflictPair holds two overlapping slots and the size of their overlap.
type ConflictPair struct {
	First          AvailabilitySlot `json:"first"`
	Second         AvailabilitySlot `json:"second"`
	OverlapMinutes int              `json:"overlap_minutes"`
}

// AvailabilityConflict groups the conflicting pairs found for one teacher.
type AvailabilityConflict struct {
	TeacherID string         `json:"teacher_id"`
	Pairs     []ConflictPair `json:"pairs"`
}

// TeacherRef is the directory projection embedded in enriched slot listings.
type TeacherRef struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Email  string  `json:"email"`
	Rating float64 `json:"rating"`
}

// AvailabilitySlotView decorates a slot with its teacher for presentation.
type AvailabilitySlotView struct {
	AvailabilitySlot
	Teacher *TeacherRef `json:"teacher,omitempty"`
}
