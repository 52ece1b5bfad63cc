package models

import "time"

// RegistrationStatus is the lifecycle state of a registration.
type RegistrationStatus string

const (
	RegistrationStatusRegistered RegistrationStatus = "Registered"
	RegistrationStatusConfirmed  RegistrationStatus = "Confirmed"
	RegistrationStatusCancelled  RegistrationStatus = "Cancelled"
	RegistrationStatusWaitlisted RegistrationStatus = "Waitlisted"
)

// Valid reports whether s is one of the known registration statuses.
func (s RegistrationStatus) Valid() bool {
	switch s {
	case RegistrationStatusRegistered, RegistrationStatusConfirmed, RegistrationStatusCancelled, RegistrationStatusWaitlisted:
		return true
	}
	return false
}

// Registration is a user's registration for an event.
// (UserID, EventID) is the natural key; ID is an opaque surrogate, generated as a UUID
// but read back as any string.
type Registration struct {
	ID                 string             `json:"registrationId"`
	UserID             string             `json:"userId"`
	EventID            string             `json:"eventId"`
	UserName           string             `json:"userName"`
	UserEmail          string             `json:"userEmail"`
	UserPhone          string             `json:"userPhone"`
	RegisteredAt       time.Time          `json:"registeredAt"`
	Status             RegistrationStatus `json:"status"`
	SpecialRequests    *string            `json:"specialRequests,omitempty"`
	EmailNotifications bool               `json:"emailNotifications"`
}

// IsLive is true unless the registration was cancelled.
func (r Registration) IsLive() bool {
	return r.Status != RegistrationStatusCancelled
}

// Matches reports whether r belongs to the given user/event pair.
func (r Registration) Matches(eventID, userID string) bool {
	return r.EventID == eventID && r.UserID == userID
}
