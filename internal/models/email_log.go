package models

import "time"

// EmailLogStatus is the delivery outcome of one email.
type EmailLogStatus string

const (
	EmailLogStatusSent   EmailLogStatus = "sent"
	EmailLogStatusFailed EmailLogStatus = "failed"
)

// EmailLog records one delivery attempt of a notification email.
type EmailLog struct {
	ID             string         `json:"id"`
	JobID          string         `json:"jobId,omitempty"`
	EventID        string         `json:"eventId"`
	RegistrationID string         `json:"registrationId"`
	EmailType      string         `json:"emailType"`
	RecipientEmail string         `json:"recipientEmail"`
	Subject        string         `json:"subject,omitempty"`
	Status         EmailLogStatus `json:"status"`
	Attempt        int            `json:"attempt"`
	SentAt         *time.Time     `json:"sentAt,omitempty"`
	ErrorMessage   string         `json:"errorMessage,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}
