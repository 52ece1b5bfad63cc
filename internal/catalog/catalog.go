// Package catalog is the fixed list of events users can register for.
package catalog

import (
	"time"

	"github.com/eventease/backend/internal/models"
)

// Catalog is a read-only event lookup.
type Catalog struct {
	events []models.Event
	byID   map[string]models.Event
}

// New builds a catalog from events.
func New(events []models.Event) *Catalog {
	c := &Catalog{byID: make(map[string]models.Event, len(events))}
	for _, e := range events {
		c.events = append(c.events, e)
		c.byID[e.ID] = e
	}
	return c
}

// Default returns the built-in event list.
func Default() *Catalog {
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }
	return New([]models.Event{
		{ID: "1", Name: "Corporate Gala", Date: day(2025, time.December, 1), Location: "New York City"},
		{ID: "2", Name: "Tech Conference", Date: day(2025, time.November, 15), Location: "San Francisco"},
		{ID: "3", Name: "Music Festival", Date: day(2025, time.October, 20), Location: "Los Angeles"},
		{ID: "4", Name: "DJ Festival", Date: day(2025, time.October, 20), Location: "Paris"},
		{ID: "5", Name: "Fête de la Musique", Date: day(2025, time.October, 20), Location: "Nice"},
		{ID: "6", Name: "Festival of Arts", Date: day(2025, time.October, 20), Location: "California"},
		{ID: "7", Name: "Music Festival", Date: day(2025, time.October, 20), Location: "Berlin"},
		{ID: "8", Name: "Music Festival", Date: day(2025, time.October, 20), Location: "Tokyo"},
		{ID: "9", Name: "Music Festival", Date: day(2025, time.October, 20), Location: "Osaka"},
	})
}

// All returns every event in catalog order.
func (c *Catalog) All() []models.Event {
	out := make([]models.Event, len(c.events))
	copy(out, c.events)
	return out
}

// Get returns the event with id.
func (c *Catalog) Get(id string) (models.Event, bool) {
	e, ok := c.byID[id]
	return e, ok
}
