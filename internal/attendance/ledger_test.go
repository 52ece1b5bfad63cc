package attendance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/eventease/backend/internal/attendance"
	"github.com/eventease/backend/internal/models"
	"github.com/eventease/backend/internal/registrations"
	"github.com/eventease/backend/internal/session"
	"github.com/eventease/backend/pkg/kvstore"
)

type LedgerSuite struct {
	suite.Suite
	ctx      context.Context
	store    *kvstore.Memory
	sessions *session.Provider
	regs     *registrations.Ledger
	ledger   *attendance.Ledger
	clock    time.Time
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = kvstore.NewMemory()
	s.clock = time.Date(2025, 10, 20, 18, 0, 0, 0, time.UTC)
	s.sessions = session.NewProvider(s.store, session.DefaultKeys(), nil)
	s.regs = registrations.NewLedger(s.store, s.sessions, registrations.Options{}, nil, nil)
	s.ledger = s.newLedger(attendance.Options{})
}

func (s *LedgerSuite) TearDownTest() {
	s.ledger.Close()
	s.regs.Close()
}

func (s *LedgerSuite) newLedger(opts attendance.Options) *attendance.Ledger {
	l := attendance.NewLedger(s.store, s.sessions, s.regs, opts, nil, nil)
	l.SetClock(func() time.Time { return s.clock })
	return l
}

func (s *LedgerSuite) loginAndRegister(eventID string) models.Registration {
	_, err := s.sessions.Login(s.ctx, "Ada", "ada@example.com", "")
	s.Require().NoError(err)
	reg, err := s.regs.Register(s.ctx, registrations.RegisterInput{EventID: eventID, UserName: "Ada"})
	s.Require().NoError(err)
	return reg
}

func ptr(s string) *string { return &s }

func (s *LedgerSuite) TestCheckInWithoutSession() {
	_, err := s.ledger.CheckIn(s.ctx, "1", nil)
	s.ErrorIs(err, attendance.ErrNotAuthenticated)
}

func (s *LedgerSuite) TestCheckInWithoutRegistrationCreatesNothing() {
	_, err := s.sessions.Login(s.ctx, "Ada", "ada@example.com", "")
	s.Require().NoError(err)

	_, err = s.ledger.CheckIn(s.ctx, "1", nil)
	s.ErrorIs(err, attendance.ErrNotRegistered)

	list, err := s.ledger.ListForEvent(s.ctx, "1")
	s.Require().NoError(err)
	s.Empty(list)
}

func (s *LedgerSuite) TestCheckInAfterCancelIsRejected() {
	s.loginAndRegister("1")
	ok, err := s.regs.Cancel(s.ctx, "1")
	s.Require().NoError(err)
	s.Require().True(ok)

	_, err = s.ledger.CheckIn(s.ctx, "1", nil)
	s.ErrorIs(err, attendance.ErrNotRegistered)
}

func (s *LedgerSuite) TestCheckIn() {
	reg := s.loginAndRegister("1")
	var notified []models.AttendanceRecord
	s.ledger.Subscribe(func(r models.AttendanceRecord) { notified = append(notified, r) })

	rec, err := s.ledger.CheckIn(s.ctx, "1", ptr(" front row "))
	s.Require().NoError(err)

	s.Equal(reg.ID, rec.RegistrationID)
	s.Equal(reg.UserID, rec.UserID)
	s.Equal(models.AttendanceStatusPresent, rec.Status)
	s.True(rec.CheckInAt.Equal(s.clock))
	s.Nil(rec.CheckOutAt)
	s.Require().NotNil(rec.Notes)
	s.Equal("front row", *rec.Notes)
	s.Require().Len(notified, 1)
	s.Equal(rec.ID, notified[0].ID)

	s.Run("second open check-in is rejected", func() {
		_, err := s.ledger.CheckIn(s.ctx, "1", nil)
		s.ErrorIs(err, attendance.ErrAlreadyCheckedIn)
		s.Len(notified, 1)
	})

	s.Run("check-in again after checkout", func() {
		ok, err := s.ledger.CheckOut(s.ctx, "1", nil)
		s.Require().NoError(err)
		s.Require().True(ok)

		_, err = s.ledger.CheckIn(s.ctx, "1", nil)
		s.Require().NoError(err)

		list, err := s.ledger.ListForEvent(s.ctx, "1")
		s.Require().NoError(err)
		s.Len(list, 2)
	})
}

func (s *LedgerSuite) TestAllowDuplicates() {
	s.ledger.Close()
	s.ledger = s.newLedger(attendance.Options{AllowDuplicates: true})
	s.loginAndRegister("1")

	_, err := s.ledger.CheckIn(s.ctx, "1", nil)
	s.Require().NoError(err)
	_, err = s.ledger.CheckIn(s.ctx, "1", nil)
	s.Require().NoError(err)

	list, err := s.ledger.ListForEvent(s.ctx, "1")
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.True(list[0].IsOpen())
	s.True(list[1].IsOpen())

	ok, err := s.ledger.CheckOut(s.ctx, "1", nil)
	s.Require().NoError(err)
	s.True(ok)

	list, err = s.ledger.ListForEvent(s.ctx, "1")
	s.Require().NoError(err)
	s.False(list[0].IsOpen(), "first open record is closed")
	s.True(list[1].IsOpen())
}

func (s *LedgerSuite) TestCheckOutTwice() {
	s.loginAndRegister("1")
	_, err := s.ledger.CheckIn(s.ctx, "1", nil)
	s.Require().NoError(err)

	s.clock = s.clock.Add(90 * time.Minute)
	ok, err := s.ledger.CheckOut(s.ctx, "1", nil)
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.ledger.CheckOut(s.ctx, "1", nil)
	s.Require().NoError(err)
	s.False(ok, "no open record remains")

	rec, err := s.ledger.FindForCurrentUser(s.ctx, "1")
	s.Require().NoError(err)
	s.Require().NotNil(rec)
	s.Require().NotNil(rec.CheckOutAt)
	s.Equal(90*time.Minute, rec.CheckOutAt.Sub(rec.CheckInAt))
}

func (s *LedgerSuite) TestCheckOutClampsToCheckIn() {
	s.loginAndRegister("1")
	rec, err := s.ledger.CheckIn(s.ctx, "1", nil)
	s.Require().NoError(err)

	s.clock = s.clock.Add(-time.Hour)
	ok, err := s.ledger.CheckOut(s.ctx, "1", nil)
	s.Require().NoError(err)
	s.Require().True(ok)

	got, err := s.ledger.FindForCurrentUser(s.ctx, "1")
	s.Require().NoError(err)
	s.Require().NotNil(got.CheckOutAt)
	s.True(got.CheckOutAt.Equal(rec.CheckInAt))
}

func (s *LedgerSuite) TestCheckOutNotes() {
	tests := []struct {
		name    string
		checkIn *string
		out     *string
		want    *string
	}{
		{"appended to existing", ptr("VIP"), ptr("left at break"), ptr("VIP | Checkout: left at break")},
		{"no existing notes", nil, ptr("left at break"), ptr("Checkout: left at break")},
		{"no checkout notes", ptr("VIP"), nil, ptr("VIP")},
		{"blank checkout notes", ptr("VIP"), ptr("  "), ptr("VIP")},
		{"none at all", nil, nil, nil},
	}
	for i, tt := range tests {
		s.Run(tt.name, func() {
			eventID := string(rune('1' + i))
			s.loginAndRegister(eventID)
			_, err := s.ledger.CheckIn(s.ctx, eventID, tt.checkIn)
			s.Require().NoError(err)
			ok, err := s.ledger.CheckOut(s.ctx, eventID, tt.out)
			s.Require().NoError(err)
			s.Require().True(ok)

			rec, err := s.ledger.FindForCurrentUser(s.ctx, eventID)
			s.Require().NoError(err)
			s.Equal(tt.want, rec.Notes)
		})
	}
}

func (s *LedgerSuite) TestCheckOutWithoutSession() {
	ok, err := s.ledger.CheckOut(s.ctx, "1", nil)
	s.Require().NoError(err)
	s.False(ok)

	rec, err := s.ledger.FindForCurrentUser(s.ctx, "1")
	s.Require().NoError(err)
	s.Nil(rec)
}

func (s *LedgerSuite) TestMalformedRecordsAreEmpty() {
	s.Require().NoError(s.store.Set(s.ctx, attendance.Key(""), []byte(`{"not":"an array"}`)))

	list, err := s.ledger.ListForEvent(s.ctx, "1")
	s.Require().NoError(err)
	s.Empty(list)
	s.Equal("eventease_attendance_records", attendance.Key(""))
}

func (s *LedgerSuite) TestRoundTripThroughStore() {
	reg := s.loginAndRegister("1")
	rec, err := s.ledger.CheckIn(s.ctx, "1", ptr("VIP"))
	s.Require().NoError(err)
	s.clock = s.clock.Add(90 * time.Minute)
	ok, err := s.ledger.CheckOut(s.ctx, "1", ptr("left at break"))
	s.Require().NoError(err)
	s.Require().True(ok)

	out := s.clock.UTC()
	want := models.AttendanceRecord{
		ID:             rec.ID,
		RegistrationID: reg.ID,
		EventID:        "1",
		UserID:         reg.UserID,
		CheckInAt:      rec.CheckInAt,
		CheckOutAt:     &out,
		Status:         models.AttendanceStatusPresent,
		Notes:          ptr("VIP | Checkout: left at break"),
	}

	other := attendance.NewLedger(s.store, s.sessions, s.regs, attendance.Options{}, nil, nil)
	defer other.Close()
	got, err := other.ListForEvent(s.ctx, "1")
	s.Require().NoError(err)
	s.Equal([]models.AttendanceRecord{want}, got)
}

func (s *LedgerSuite) TestNonUUIDIDsStillLoad() {
	blob := `[
		{"attendanceId":"a-1","registrationId":"r-1","eventId":"1","userId":"u-1","checkInAt":"2025-10-20T18:00:00Z","checkOutAt":"2025-10-20T19:00:00Z","status":"Present","notes":"imported"},
		{"attendanceId":"3f1c2e9a-5b4d-4c6e-8f7a-1b2c3d4e5f60","registrationId":"r-2","eventId":"1","userId":"u-2","checkInAt":"2025-10-20T18:10:00Z","status":"Late"}
	]`
	s.Require().NoError(s.store.Set(s.ctx, attendance.Key(""), []byte(blob)))

	list, err := s.ledger.ListForEvent(s.ctx, "1")
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal("a-1", list[0].ID)
	s.Equal("r-1", list[0].RegistrationID)
	s.Equal(models.AttendanceStatusLate, list[1].Status)
}

func (s *LedgerSuite) TestEventIDIsTrimmedEverywhere() {
	s.loginAndRegister("1")

	rec, err := s.ledger.CheckIn(s.ctx, " 1 ", nil)
	s.Require().NoError(err)
	s.Equal("1", rec.EventID)

	_, err = s.ledger.CheckIn(s.ctx, "1", nil)
	s.ErrorIs(err, attendance.ErrAlreadyCheckedIn)

	found, err := s.ledger.FindForCurrentUser(s.ctx, "1 ")
	s.Require().NoError(err)
	s.NotNil(found)

	list, err := s.ledger.ListForEvent(s.ctx, " 1")
	s.Require().NoError(err)
	s.Len(list, 1)

	ok, err := s.ledger.CheckOut(s.ctx, " 1", nil)
	s.Require().NoError(err)
	s.True(ok)
}

type stubRegistrations struct {
	mock.Mock
}

func (m *stubRegistrations) Live(ctx context.Context, eventID, userID string) (*models.Registration, error) {
	args := m.Called(ctx, eventID, userID)
	reg, _ := args.Get(0).(*models.Registration)
	return reg, args.Error(1)
}

type fixedSession string

func (f fixedSession) CurrentUserID(context.Context) (string, bool, error) {
	return string(f), true, nil
}

func TestCheckIn_RegistrationLookupError(t *testing.T) {
	boom := errors.New("store unavailable")
	regs := &stubRegistrations{}
	regs.On("Live", mock.Anything, "1", "u1").Return(nil, boom)

	l := attendance.NewLedger(kvstore.NewMemory(), fixedSession("u1"), regs, attendance.Options{}, nil, nil)
	defer l.Close()

	_, err := l.CheckIn(context.Background(), "1", nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
	regs.AssertExpectations(t)
}
