package models

import "time"

// Session is the locally stored identity of the interactive user.
type Session struct {
	UserID           string    `json:"userId"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	PhoneNumber      string    `json:"phoneNumber"`
	SessionStart     time.Time `json:"sessionStart"`
	LastActivity     time.Time `json:"lastActivity"`
	IsLoggedIn       bool      `json:"isLoggedIn"`
	RegisteredEvents []string  `json:"registeredEvents"`
}

// Preferences holds UI/notification preferences of the user.
type Preferences struct {
	Theme              string `json:"theme"`
	EmailNotifications bool   `json:"emailNotifications"`
	Language           string `json:"language"`
}

// DefaultPreferences returns preferences used when none are stored.
func DefaultPreferences() Preferences {
	return Preferences{Theme: "light", EmailNotifications: true, Language: "en"}
}
