package models

import "time"

// AttendanceStatus is how a user attended an event.
type AttendanceStatus string

const (
	AttendanceStatusPresent   AttendanceStatus = "Present"
	AttendanceStatusAbsent    AttendanceStatus = "Absent"
	AttendanceStatusLate      AttendanceStatus = "Late"
	AttendanceStatusLeftEarly AttendanceStatus = "LeftEarly"
)

// Valid reports whether s is one of the known attendance statuses.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate, AttendanceStatusLeftEarly:
		return true
	}
	return false
}

// AttendanceRecord is one check-in (and optional check-out) of a user at an event.
// RegistrationID is captured at check-in and never revalidated.
type AttendanceRecord struct {
	ID             string           `json:"attendanceId"`
	RegistrationID string           `json:"registrationId"`
	EventID        string           `json:"eventId"`
	UserID         string           `json:"userId"`
	CheckInAt      time.Time        `json:"checkInAt"`
	CheckOutAt     *time.Time       `json:"checkOutAt,omitempty"`
	Status         AttendanceStatus `json:"status"`
	Notes          *string          `json:"notes,omitempty"`
}

// IsOpen is true while the record has not been checked out.
func (a AttendanceRecord) IsOpen() bool {
	return a.CheckOutAt == nil
}

// Matches reports whether a belongs to the given user/event pair.
func (a AttendanceRecord) Matches(eventID, userID string) bool {
	return a.EventID == eventID && a.UserID == userID
}
