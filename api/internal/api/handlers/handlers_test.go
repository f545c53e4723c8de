package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irgordon/vigil/api/internal/api/handlers"
	"github.com/irgordon/vigil/api/internal/core/domain"
	"github.com/irgordon/vigil/api/internal/telemetry"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type countingSnapshots struct {
	refreshes atomic.Int64
	err       error
}

func (c *countingSnapshots) Refresh(ctx context.Context) (domain.SystemSnapshot, error) {
	n := c.refreshes.Add(1)
	return domain.SystemSnapshot{Generation: uint64(n)}, c.err
}

func (c *countingSnapshots) Current() domain.SystemSnapshot {
	return domain.SystemSnapshot{Hostname: "node-a", CPUCores: 8, Generation: uint64(c.refreshes.Load())}
}

type countingRecorder struct{ saves atomic.Int64 }

func (c *countingRecorder) ConfigSaved() { c.saves.Add(1) }

// ==============================================================================
// 1. Health
// ==============================================================================

func TestHealth_AlwaysHealthy(t *testing.T) {
	h := handlers.NewHealthHandler("orchestrator", quietLogger())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.Check(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Healthy", rec.Body.String())
	}
}

func TestHealth_AuditEntryAtDefaultLevel(t *testing.T) {
	hub := telemetry.NewHub(5)
	logger := slog.New(telemetry.NewTeeHandler(
		slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelInfo}), hub))

	rec := httptest.NewRecorder()
	handlers.NewHealthHandler("api", logger).Check(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	records := hub.Recent()
	require.Len(t, records, 1)
	assert.Equal(t, "INFO", records[0].Level)
	assert.Contains(t, records[0].Message, "Health probe")
	assert.Contains(t, records[0].Message, "listener=api")
}

// ==============================================================================
// 2. Metrics
// ==============================================================================

func TestMetrics_EmptyRegistry(t *testing.T) {
	h := handlers.NewMetricsHandler(prometheus.NewRegistry(), quietLogger())

	rec := httptest.NewRecorder()
	h.Serve(rec, httptest.NewRequest(http.MethodGet, "/api/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(rec.Body)
	require.NoError(t, err)
	assert.Empty(t, families)
}

func TestMetrics_PopulatedRegistryIsValidExposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	saves := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_saves_total", Help: "saves"})
	byPath := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "test_inflight", Help: "in flight"}, []string{"path"})
	reg.MustRegister(saves, byPath)
	saves.Add(3)
	byPath.WithLabelValues(`/weird "path"`).Set(2)

	rec := httptest.NewRecorder()
	handlers.NewMetricsHandler(reg, quietLogger()).Serve(rec, httptest.NewRequest(http.MethodGet, "/api/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(strings.NewReader(rec.Body.String()))
	require.NoError(t, err)

	require.Contains(t, families, "test_saves_total")
	assert.Equal(t, 3.0, families["test_saves_total"].GetMetric()[0].GetCounter().GetValue())
	require.Contains(t, families, "test_inflight")
	assert.Equal(t, `/weird "path"`, families["test_inflight"].GetMetric()[0].GetLabel()[0].GetValue())
}

func TestMetrics_GatherFailureIsHandled500(t *testing.T) {
	failing := prometheus.GathererFunc(func() ([]*dto.MetricFamily, error) {
		return nil, errors.New("collector exploded")
	})

	rec := httptest.NewRecorder()
	handlers.NewMetricsHandler(failing, quietLogger()).Serve(rec, httptest.NewRequest(http.MethodGet, "/api/metrics", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "exploded", "internal errors must not leak")
}

// ==============================================================================
// 3. Dashboard
// ==============================================================================

func TestDashboard_Page(t *testing.T) {
	h := handlers.NewDashboardHandler(&countingSnapshots{}, nil, quietLogger())

	rec := httptest.NewRecorder()
	h.Page(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `action="/dashboard/save"`)
	assert.Contains(t, rec.Body.String(), `name="name"`)
	assert.Contains(t, rec.Body.String(), `name="value"`)
}

func postForm(h http.HandlerFunc, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/dashboard/save", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestDashboard_SaveEchoesAndRefreshesOnce(t *testing.T) {
	pairs := []struct{ name, value string }{
		{"foo", "bar"},
		{"", ""},
		{"with space", "ünïcödé value"},
		{"<script>", "alert(1)&x=y"},
	}

	for _, p := range pairs {
		t.Run(p.name, func(t *testing.T) {
			snaps := &countingSnapshots{}
			recorder := &countingRecorder{}
			h := handlers.NewDashboardHandler(snaps, recorder, quietLogger())

			rec := postForm(h.Save, url.Values{"name": {p.name}, "value": {p.value}})

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "Saved "+p.name+": "+p.value, rec.Body.String())
			assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
			assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
			assert.Equal(t, int64(1), snaps.refreshes.Load())
			assert.Equal(t, int64(1), recorder.saves.Load())
		})
	}
}

func TestDashboard_SaveMissingFieldsRejected(t *testing.T) {
	tests := []struct {
		name    string
		form    url.Values
		missing string
	}{
		{"missing name", url.Values{"value": {"bar"}}, "name"},
		{"missing value", url.Values{"name": {"foo"}}, "value"},
		{"missing both", url.Values{}, "name, value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snaps := &countingSnapshots{}
			recorder := &countingRecorder{}
			h := handlers.NewDashboardHandler(snaps, recorder, quietLogger())

			rec := postForm(h.Save, tt.form)

			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Contains(t, rec.Body.String(), domain.ErrMissingField.Error()+": "+tt.missing)
			assert.Zero(t, snaps.refreshes.Load(), "invalid saves must not refresh")
			assert.Zero(t, recorder.saves.Load())
		})
	}
}

func TestDashboard_SaveIgnoresQueryString(t *testing.T) {
	snaps := &countingSnapshots{}
	h := handlers.NewDashboardHandler(snaps, nil, quietLogger())

	req := httptest.NewRequest(http.MethodPost, "/dashboard/save?name=foo&value=bar", nil)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.Save(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Zero(t, snaps.refreshes.Load())
}

func TestDashboard_SaveSurvivesRefreshError(t *testing.T) {
	snaps := &countingSnapshots{err: errors.New("swap: not supported")}
	h := handlers.NewDashboardHandler(snaps, nil, quietLogger())

	rec := postForm(h.Save, url.Values{"name": {"foo"}, "value": {"bar"}})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Saved foo: bar", rec.Body.String())
}

// ==============================================================================
// 4. Sysinfo & Logs
// ==============================================================================

func TestSysInfo_ReturnsSnapshot(t *testing.T) {
	rec := httptest.NewRecorder()
	handlers.NewSysInfoHandler(&countingSnapshots{}).Get(rec, httptest.NewRequest(http.MethodGet, "/api/sysinfo", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var snap domain.SystemSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "node-a", snap.Hostname)
	assert.Equal(t, 8, snap.CPUCores)
}

func TestLogs_ListEmptyIsArray(t *testing.T) {
	h := handlers.NewLogHandler(telemetry.NewHub(5), nil, nil, quietLogger())

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/logs", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestLogs_ListShape(t *testing.T) {
	hub := telemetry.NewHub(5)
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	hub.Publish(domain.LogRecord{ID: uuid.New(), Timestamp: ts, Level: "INFO", Message: "System started"})
	hub.Publish(domain.LogRecord{ID: uuid.New(), Timestamp: ts.Add(time.Minute), Level: "WARN", Message: "High CPU usage"})

	rec := httptest.NewRecorder()
	handlers.NewLogHandler(hub, nil, nil, quietLogger()).List(rec, httptest.NewRequest(http.MethodGet, "/api/logs", nil))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "System started", got[0]["message"])
	assert.Equal(t, "INFO", got[0]["level"])
	assert.Equal(t, "2024-01-01T12:00:00Z", got[0]["timestamp"])
	assert.Equal(t, "WARN", got[1]["level"])
}

type countingGauge struct{ open atomic.Int64 }

func (g *countingGauge) StreamOpened() { g.open.Add(1) }
func (g *countingGauge) StreamClosed() { g.open.Add(-1) }

func TestLogs_StreamBacklogThenLive(t *testing.T) {
	hub := telemetry.NewHub(5)
	hub.Publish(domain.LogRecord{ID: uuid.New(), Level: "INFO", Message: "backlog"})
	gauge := &countingGauge{}

	srv := httptest.NewServer(http.HandlerFunc(handlers.NewLogHandler(hub, gauge, nil, quietLogger()).Stream))
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer ws.Close()

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first domain.LogRecord
	require.NoError(t, ws.ReadJSON(&first))
	assert.Equal(t, "backlog", first.Message)

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(1), gauge.open.Load())

	hub.Publish(domain.LogRecord{ID: uuid.New(), Level: "ERROR", Message: "live"})
	var second domain.LogRecord
	require.NoError(t, ws.ReadJSON(&second))
	assert.Equal(t, "live", second.Message)
	assert.Equal(t, "ERROR", second.Level)

	ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	ws.Close()

	require.Eventually(t, func() bool { return hub.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(0), gauge.open.Load())
}

func TestLogs_StreamRejectsPlainHTTP(t *testing.T) {
	h := handlers.NewLogHandler(telemetry.NewHub(5), nil, nil, quietLogger())

	rec := httptest.NewRecorder()
	h.Stream(rec, httptest.NewRequest(http.MethodGet, "/api/logs/stream", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
