package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventease/backend/config"
	"github.com/eventease/backend/internal/app"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Server: config.ServerConfig{CORSAllowedOrigins: "*"},
		Store:  config.StoreConfig{Driver: config.DriverMemory, Namespace: "eventease_attendance"},
	}
	reg := prometheus.NewRegistry()
	a, err := app.New(context.Background(), cfg, app.Options{Registerer: reg}, nil)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return newRouter(a, cfg, reg, nil)
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_AttendanceFlow(t *testing.T) {
	r := newTestRouter(t)

	require.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", "").Code)
	require.Equal(t, http.StatusCreated,
		do(r, http.MethodPost, "/session/login", `{"name":"Ada","email":"ada@example.com"}`).Code)

	w := do(r, http.MethodPost, "/events/2/registrations", `{"userName":"Ada","userEmail":"ada@example.com"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, http.StatusConflict,
		do(r, http.MethodPost, "/events/2/registrations", `{"userName":"Ada","userEmail":"ada@example.com"}`).Code)

	w = do(r, http.MethodGet, "/events/2/registration", "")
	assert.JSONEq(t, `{"success":true,"data":{"eventId":"2","isRegistered":true}}`, w.Body.String())

	assert.Equal(t, http.StatusCreated, do(r, http.MethodPost, "/events/2/checkin", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/events/2/checkout", `{"notes":"left early"}`).Code)

	w = do(r, http.MethodGet, "/events/2/analytics", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data struct {
			TotalRegistrations int     `json:"totalRegistrations"`
			Attended           int     `json:"attended"`
			AttendanceRate     float64 `json:"attendanceRate"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Data.TotalRegistrations)
	assert.Equal(t, 1, body.Data.Attended)
	assert.Equal(t, 100.0, body.Data.AttendanceRate)

	assert.Equal(t, http.StatusOK, do(r, http.MethodDelete, "/events/2/registration", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/events/77/registrations", "").Code)
}

func TestRouter_JobsDisabled(t *testing.T) {
	r := newTestRouter(t)
	assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodPost, "/events/1/reports", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable,
		do(r, http.MethodPost, "/events/1/emails/resend", `{"registrationId":"00000000-0000-0000-0000-000000000001"}`).Code)
}

func TestRouter_Metrics(t *testing.T) {
	r := newTestRouter(t)
	do(r, http.MethodGet, "/events", "")

	w := do(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `route="/events"`)
}
