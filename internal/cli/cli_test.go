package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventease/backend/internal/analytics"
	"github.com/eventease/backend/pkg/kvstore"
)

// run executes one CLI invocation against store, like separate processes sharing a database.
func run(t *testing.T, store kvstore.Store, args ...string) (string, error) {
	t.Helper()
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JOBS_ENABLED", "false")
	root := NewRootCmd(Options{Store: store})
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestCLI_RegisterAndAttend(t *testing.T) {
	store := kvstore.NewMemory()

	out, err := run(t, store, "login", "--name", "Ada", "--email", "ada@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as Ada")

	out, err = run(t, store, "register", "2", "--requests", "aisle seat")
	require.NoError(t, err)
	assert.Contains(t, out, "Registered for event 2")

	_, err = run(t, store, "register", "2")
	assert.ErrorContains(t, err, "already registered")

	_, err = run(t, store, "checkin", "2", "--notes", "badge 12")
	require.NoError(t, err)
	_, err = run(t, store, "checkin", "2")
	assert.ErrorContains(t, err, "already checked in")

	_, err = run(t, store, "checkout", "2", "--notes", "left early")
	require.NoError(t, err)
	_, err = run(t, store, "checkout", "2")
	assert.ErrorContains(t, err, "no open check-in")

	out, err = run(t, store, "attendance", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "badge 12 | Checkout: left early")

	out, err = run(t, store, "stats", "2", "--json")
	require.NoError(t, err)
	var s analytics.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, 1, s.TotalRegistrations)
	assert.Equal(t, 1, s.Attended)
	assert.Equal(t, 100.0, s.AttendanceRate)
}

func TestCLI_CheckInRequiresLoginAndRegistration(t *testing.T) {
	store := kvstore.NewMemory()

	_, err := run(t, store, "checkin", "1")
	assert.ErrorContains(t, err, "not logged in")

	_, err = run(t, store, "login", "--name", "Bob", "--email", "bob@example.com")
	require.NoError(t, err)
	_, err = run(t, store, "checkin", "1")
	assert.ErrorContains(t, err, "not registered")
}

func TestCLI_CancelAndList(t *testing.T) {
	store := kvstore.NewMemory()
	_, err := run(t, store, "login", "--name", "Ada", "--email", "ada@example.com")
	require.NoError(t, err)
	_, err = run(t, store, "register", "3")
	require.NoError(t, err)

	out, err := run(t, store, "registrations")
	require.NoError(t, err)
	assert.Contains(t, out, "Registered")

	_, err = run(t, store, "cancel", "3")
	require.NoError(t, err)
	_, err = run(t, store, "cancel", "9")
	assert.ErrorContains(t, err, "no registration")

	out, err = run(t, store, "registrations", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled")
}

func TestCLI_UnknownEventAndLogout(t *testing.T) {
	store := kvstore.NewMemory()

	out, err := run(t, store, "events")
	require.NoError(t, err)
	assert.Contains(t, out, "Tech Conference")

	_, err = run(t, store, "register", "404")
	assert.ErrorContains(t, err, "unknown event")

	_, err = run(t, store, "login", "--name", "Ada", "--email", "ada@example.com")
	require.NoError(t, err)
	_, err = run(t, store, "logout")
	require.NoError(t, err)
	_, err = run(t, store, "whoami")
	assert.ErrorContains(t, err, "not logged in")
}

func TestCLI_ClosesAppWhenCommandFails(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JOBS_ENABLED", "false")
	store := kvstore.NewMemory()

	for _, args := range [][]string{
		{"checkout", "2"},
		{"register", "nope"},
		{"events"},
	} {
		root, e := newRootCmd(Options{Store: store})
		root.SetOut(new(bytes.Buffer))
		root.SetErr(new(bytes.Buffer))
		root.SetArgs(args)
		_ = root.Execute()
		assert.Nil(t, e.app, "app left open after %v", args)
	}
}

func TestCLI_RegisterNotifyDefault(t *testing.T) {
	store := kvstore.NewMemory()
	_, err := run(t, store, "login", "--name", "Ada", "--email", "ada@example.com")
	require.NoError(t, err)

	var reg struct {
		EmailNotifications bool `json:"emailNotifications"`
	}
	out, err := run(t, store, "register", "1", "--json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &reg))
	assert.True(t, reg.EmailNotifications)

	out, err = run(t, store, "register", "2", "--json", "--notify=false")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &reg))
	assert.False(t, reg.EmailNotifications)
}
