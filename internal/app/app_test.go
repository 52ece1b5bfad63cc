package app_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventease/backend/config"
	"github.com/eventease/backend/internal/app"
	"github.com/eventease/backend/internal/registrations"
)

func testConfig(driver string) *config.Config {
	return &config.Config{Store: config.StoreConfig{
		Driver:    driver,
		Namespace: "eventease_attendance",
	}}
}

func TestNew_MemoryWithMetrics(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	a, err := app.New(ctx, testConfig(config.DriverMemory), app.Options{Registerer: reg}, nil)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.Nil(t, a.Redis)
	assert.Nil(t, a.Queue)

	_, err = a.Sessions.Login(ctx, "Ada", "ada@example.com", "")
	require.NoError(t, err)
	_, err = a.Registrations.Register(ctx, registrations.RegisterInput{EventID: "1", UserName: "Ada"})
	require.NoError(t, err)
	_, err = a.Attendance.CheckIn(ctx, "1", nil)
	require.NoError(t, err)

	rate, err := a.Analytics.AttendanceRate(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, rate)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.Metrics.Mutations.WithLabelValues("registrations", "register", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.Metrics.Mutations.WithLabelValues("attendance", "checkin", "ok")))
}

func TestNew_SQLitePersists(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(config.DriverSQLite)
	cfg.Store.SQLitePath = filepath.Join(t.TempDir(), "ledger.db")

	a, err := app.New(ctx, cfg, app.Options{}, nil)
	require.NoError(t, err)
	_, err = a.Sessions.Login(ctx, "Ada", "ada@example.com", "")
	require.NoError(t, err)
	_, err = a.Registrations.Register(ctx, registrations.RegisterInput{EventID: "4", UserName: "Ada"})
	require.NoError(t, err)
	a.Close()

	b, err := app.New(ctx, cfg, app.Options{}, nil)
	require.NoError(t, err)
	t.Cleanup(b.Close)

	ok, err := b.Registrations.IsRegistered(ctx, "4")
	require.NoError(t, err)
	assert.True(t, ok, "session and registration survive a restart")
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := app.New(context.Background(), testConfig("etcd"), app.Options{}, nil)
	assert.ErrorContains(t, err, "unknown store driver")
}
