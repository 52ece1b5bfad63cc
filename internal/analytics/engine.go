// Package analytics computes per-event registration and attendance figures on demand.
package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/eventease/backend/internal/models"
)

// RegistrationSource lists the registrations of an event.
type RegistrationSource interface {
	ListForEvent(ctx context.Context, eventID string) ([]models.Registration, error)
}

// AttendanceSource lists the attendance records of an event.
type AttendanceSource interface {
	ListForEvent(ctx context.Context, eventID string) ([]models.AttendanceRecord, error)
}

// Summary is the attendance picture of one event.
type Summary struct {
	EventID            string    `json:"eventId"`
	TotalRegistrations int       `json:"totalRegistrations"`
	Cancelled          int       `json:"cancelled"`
	Attended           int       `json:"attended"`
	OpenCheckIns       int       `json:"openCheckIns"`
	NoShow             int       `json:"noShow"`
	AttendanceRate     float64   `json:"attendanceRate"`
	AvgStaySeconds     int64     `json:"avgStaySeconds"`
	ComputedAt         time.Time `json:"computedAt"`
}

// Engine derives statistics from the two ledgers. Nothing is cached.
type Engine struct {
	regs       RegistrationSource
	attendance AttendanceSource
	now        func() time.Time
}

// NewEngine creates a statistics engine.
func NewEngine(regs RegistrationSource, attendance AttendanceSource) *Engine {
	return &Engine{regs: regs, attendance: attendance, now: time.Now}
}

// RegistrationCount returns the number of live registrations for eventID.
func (e *Engine) RegistrationCount(ctx context.Context, eventID string) (int, error) {
	regs, err := e.regs.ListForEvent(ctx, eventID)
	if err != nil {
		return 0, fmt.Errorf("list registrations: %w", err)
	}
	live, _ := countRegistrations(regs)
	return live, nil
}

// AttendanceCount returns the number of Present records for eventID.
func (e *Engine) AttendanceCount(ctx context.Context, eventID string) (int, error) {
	recs, err := e.attendance.ListForEvent(ctx, eventID)
	if err != nil {
		return 0, fmt.Errorf("list attendance: %w", err)
	}
	present, _, _ := countAttendance(recs)
	return present, nil
}

// AttendanceRate returns attendance as a percentage of live registrations, 0 without registrations.
func (e *Engine) AttendanceRate(ctx context.Context, eventID string) (float64, error) {
	s, err := e.Summary(ctx, eventID)
	if err != nil {
		return 0, err
	}
	return s.AttendanceRate, nil
}

// Summary computes every figure for eventID from one snapshot of each ledger.
func (e *Engine) Summary(ctx context.Context, eventID string) (Summary, error) {
	eventID = strings.TrimSpace(eventID)
	regs, err := e.regs.ListForEvent(ctx, eventID)
	if err != nil {
		return Summary{}, fmt.Errorf("list registrations: %w", err)
	}
	recs, err := e.attendance.ListForEvent(ctx, eventID)
	if err != nil {
		return Summary{}, fmt.Errorf("list attendance: %w", err)
	}

	live, cancelled := countRegistrations(regs)
	present, open, avgStay := countAttendance(recs)
	s := Summary{
		EventID:            eventID,
		TotalRegistrations: live,
		Cancelled:          cancelled,
		Attended:           present,
		OpenCheckIns:       open,
		NoShow:             max(live-present, 0),
		AvgStaySeconds:     avgStay,
		ComputedAt:         e.now().UTC(),
	}
	if live > 0 {
		s.AttendanceRate = float64(present) / float64(live) * 100
	}
	return s, nil
}

func countRegistrations(regs []models.Registration) (live, cancelled int) {
	for _, r := range regs {
		if r.IsLive() {
			live++
		} else {
			cancelled++
		}
	}
	return live, cancelled
}

// countAttendance returns Present records, open check-ins and the mean stay of closed records.
// A check-out stored before its check-in counts as a zero stay.
func countAttendance(recs []models.AttendanceRecord) (present, open int, avgStaySeconds int64) {
	var total time.Duration
	closed := 0
	for _, a := range recs {
		if a.Status == models.AttendanceStatusPresent {
			present++
		}
		if a.IsOpen() {
			open++
			continue
		}
		if stay := a.CheckOutAt.Sub(a.CheckInAt); stay > 0 {
			total += stay
		}
		closed++
	}
	if closed > 0 {
		avgStaySeconds = int64(total.Seconds()) / int64(closed)
	}
	return present, open, avgStaySeconds
}
