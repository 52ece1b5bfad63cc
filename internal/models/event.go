package models

import "time"

// Event is an entry of the static event catalog.
type Event struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Date     time.Time `json:"date"`
	Location string    `json:"location"`
}
