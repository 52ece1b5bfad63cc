package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eventease/backend/internal/models"
	"github.com/eventease/backend/pkg/queue"
)

const enqueueTimeout = 5 * time.Second

// EmailQueue accepts email jobs.
type EmailQueue interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) (string, error)
}

// RegistrationFeed publishes created registrations.
type RegistrationFeed interface {
	Subscribe(fn func(models.Registration)) (unsubscribe func())
	Find(ctx context.Context, eventID, userID string) (*models.Registration, error)
}

// AttendanceFeed publishes recorded check-ins.
type AttendanceFeed interface {
	Subscribe(fn func(models.AttendanceRecord)) (unsubscribe func())
}

// EventNames resolves event ids to catalog entries.
type EventNames interface {
	Get(id string) (models.Event, bool)
}

// EmailEnqueuer turns ledger notifications into email jobs for users who opted in.
// Enqueue failures are logged and dropped.
type EmailEnqueuer struct {
	queue  EmailQueue
	events EventNames
	logger *zap.Logger
}

// NewEmailEnqueuer creates an enqueuer. events may be nil.
func NewEmailEnqueuer(q EmailQueue, events EventNames, logger *zap.Logger) *EmailEnqueuer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailEnqueuer{queue: q, events: events, logger: logger.With(zap.String("component", "email_enqueuer"))}
}

// Attach subscribes to both ledgers. The returned func detaches.
func (e *EmailEnqueuer) Attach(regs RegistrationFeed, attendance AttendanceFeed) (detach func()) {
	unsubRegs := regs.Subscribe(e.OnRegistration)
	unsubAtt := attendance.Subscribe(func(rec models.AttendanceRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
		defer cancel()
		reg, err := regs.Find(ctx, rec.EventID, rec.UserID)
		if err != nil {
			e.logger.Warn("lookup registration for receipt failed", zap.Error(err), zap.String("event_id", rec.EventID))
			return
		}
		if reg == nil {
			return
		}
		e.OnCheckIn(*reg, rec)
	})
	return func() {
		unsubRegs()
		unsubAtt()
	}
}

// OnRegistration enqueues a confirmation email.
func (e *EmailEnqueuer) OnRegistration(reg models.Registration) {
	if !reg.EmailNotifications || reg.UserEmail == "" {
		return
	}
	name := e.eventName(reg.EventID)
	e.enqueue(queue.EmailPayload{
		EmailType:      queue.EmailTypeRegistrationConfirmation,
		EventID:        reg.EventID,
		EventName:      name,
		RegistrationID: reg.ID,
		RecipientName:  reg.UserName,
		RecipientEmail: reg.UserEmail,
		Subject:        fmt.Sprintf("You're registered for %s", name),
		Body: fmt.Sprintf("Hi %s,\n\nYour registration for %s is confirmed. Registration id: %s.\n",
			reg.UserName, name, reg.ID),
	})
}

// OnCheckIn enqueues a check-in receipt for rec, addressed to the owner of reg.
func (e *EmailEnqueuer) OnCheckIn(reg models.Registration, rec models.AttendanceRecord) {
	if !reg.EmailNotifications || reg.UserEmail == "" {
		return
	}
	name := e.eventName(rec.EventID)
	e.enqueue(queue.EmailPayload{
		EmailType:      queue.EmailTypeCheckInReceipt,
		EventID:        rec.EventID,
		EventName:      name,
		RegistrationID: rec.RegistrationID,
		RecipientName:  reg.UserName,
		RecipientEmail: reg.UserEmail,
		Subject:        fmt.Sprintf("Checked in to %s", name),
		Body: fmt.Sprintf("Hi %s,\n\nYou checked in to %s at %s.\n",
			reg.UserName, name, rec.CheckInAt.Format(time.RFC1123)),
	})
}

func (e *EmailEnqueuer) enqueue(p queue.EmailPayload) {
	ctx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
	defer cancel()
	if _, err := e.queue.EnqueueEmail(ctx, p); err != nil {
		e.logger.Error("enqueue email failed",
			zap.Error(err),
			zap.String("email_type", string(p.EmailType)),
			zap.String("event_id", p.EventID))
	}
}

func (e *EmailEnqueuer) eventName(id string) string {
	if e.events != nil {
		if ev, ok := e.events.Get(id); ok {
			return ev.Name
		}
	}
	return "event " + id
}
