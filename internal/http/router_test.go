package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"chai-api/internal/config"
	"chai-api/internal/domain"
	"chai-api/internal/repository"
	"chai-api/internal/service"
)

const (
	testBearer = "shared-secret"
	testLabel  = "chai-test"
	testToken  = "home-secret"
)

type testAPI struct {
	store   *repository.MemoryStore
	handler http.Handler
	router  *Router
	home    *domain.Home
}

// apiOptions overrides for newTestAPIWith; zero values keep the defaults
type apiOptions struct {
	prices  service.PriceSource
	alerter service.Alerter
	timeout time.Duration
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	return newTestAPIWith(t, apiOptions{})
}

func newTestAPIWith(t *testing.T, opts apiOptions) *testAPI {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()
	store := repository.NewMemoryStore()
	r := store.Repos()

	relayID, err := r.Homes.CreateRelay(ctx, "refresh")
	require.NoError(t, err)
	home := &domain.Home{Label: testLabel, Token: testToken, Revision: time.Now().Add(-time.Hour), RelayID: relayID}
	home.ID, err = r.Homes.CreateHome(ctx, home)
	require.NoError(t, err)

	schedules := make([]*domain.Schedule, 0, 7)
	for _, day := range domain.Week {
		schedules = append(schedules, &domain.Schedule{HomeID: home.ID, Revision: home.Revision, Day: day,
			Entries: domain.ScheduleEntries{{Slot: 0, ProfileID: 1}}})
	}
	require.NoError(t, r.Schedules.CreateSchedules(ctx, schedules))
	_, err = r.Profiles.CreateProfile(ctx, &domain.Profile{ProfileID: 1, HomeID: home.ID, Mean1: 18, Mean2: 0.1})
	require.NoError(t, err)

	now := time.Now()
	store.AddReading(domain.Reading{Kind: domain.ReadingValvePercentage, RelayID: relayID, Start: now.Add(-5 * time.Minute), End: now, Value: 0})
	store.AddReading(domain.Reading{Kind: domain.ReadingValveTemperature, RelayID: relayID, Start: now.Add(-5 * time.Minute), End: now, Value: 18.5})

	reg := prometheus.NewRegistry()
	metrics := service.NewMetrics(reg)
	var alerter service.Alerter = service.NewLogAlerter(logger)
	if opts.alerter != nil {
		alerter = opts.alerter
	}
	var prices service.PriceSource = service.FixedPriceSource{Rate: 20}
	if opts.prices != nil {
		prices = opts.prices
	}
	if opts.timeout == 0 {
		opts.timeout = 5 * time.Second
	}
	resolver := service.NewHeatingResolver(prices, time.UTC, metrics)

	router := NewRouter(logger, alerter, metrics)
	router.RegisterHeatingRoutes(service.NewHeatingService(store, resolver, prices, service.NewLogDeviceController(logger), alerter, metrics, logger))
	router.RegisterScheduleRoutes(service.NewScheduleService(store, logger))
	router.RegisterProfileRoutes(service.NewProfileService(store, config.DefaultProfiles(), logger))
	router.RegisterLogRoutes(service.NewLogService(store, logger))
	router.RegisterPriceRoutes(service.NewPriceService(prices))
	router.RegisterOpsRoutes(reg)

	return &testAPI{
		store:   store,
		router:  router,
		handler: router.Handler(Options{Bearer: testBearer, RequestTimeout: opts.timeout}),
		home:    home,
	}
}

// writes counts the setpoint changes and log entries recorded for the test home
func (a *testAPI) writes(t *testing.T) (setpoints, logs int) {
	t.Helper()
	ctx := context.Background()
	r := a.store.Repos()
	if _, err := r.Setpoints.GetActiveSetpoint(ctx, a.home.ID, time.Now()); err == nil {
		setpoints = 1
	}
	entries, err := r.Logs.ListLogs(ctx, a.home.ID, repository.LogFilters{})
	require.NoError(t, err)
	return setpoints, len(entries)
}

type recordingAlerter struct {
	mu    sync.Mutex
	kinds []string
}

func (a *recordingAlerter) Alert(_ context.Context, alert service.Alert) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.kinds = append(a.kinds, alert.Kind)
	return nil
}

func (a *recordingAlerter) raised() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.kinds...)
}

type downPrices struct{}

func (downPrices) Range(context.Context, time.Time, *time.Time, int) ([]domain.PriceSlot, error) {
	return nil, errors.New("dial tcp 127.0.0.1:9: connect: connection refused")
}

// stalledPrices blocks until the request context ends
type stalledPrices struct {
	done chan struct{}
}

func (p *stalledPrices) Range(ctx context.Context, _ time.Time, _ *time.Time, _ int) ([]domain.PriceSlot, error) {
	defer close(p.done)
	<-ctx.Done()
	return nil, ctx.Err()
}

func (a *testAPI) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	return a.doAuth(t, method, target, body, "Bearer "+testBearer+","+testToken)
}

func (a *testAPI) doAuth(t *testing.T, method, target, body, authorization string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func TestHeatingMode_OnOverrideThenRead(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPut, "/heating/mode/?label=chai-test", `{"mode": "on", "timeout": 30}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/heating/mode/?label=chai-test", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "on", body["mode"])
	assert.NotContains(t, body, "target_temperature")
	assert.Equal(t, 18.5, body["temperature"])
	assert.Equal(t, false, body["valve_open"])

	expires, err := time.Parse(time.RFC3339Nano, body["expires_at"].(string))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), expires, 5*time.Second)
}

func TestHeatingMode_AutoReportsTarget(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/heating/mode?label=chai-test", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "auto", body["mode"])
	assert.InDelta(t, 20.0, body["target_temperature"], 1e-9)
	assert.NotContains(t, body, "expires_at")
}

func TestHeatingMode_RejectsOutOfRangeTarget(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPut, "/heating/mode/?label=chai-test&mode=auto&target=45", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "target temperature expected between 7 and 30", rec.Body.String())

	rec = api.do(t, http.MethodPut, "/heating/mode/", `{"label": "chai-test", "mode": "auto", "timeout": "soon"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "one or more of the parameters has an invalid value:"))
}

func TestAuth(t *testing.T) {
	api := newTestAPI(t)

	rec := api.doAuth(t, http.MethodGet, "/heating/valve/?label=chai-test", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "An authorization bearer is required.", rec.Body.String())

	rec = api.doAuth(t, http.MethodGet, "/heating/valve/?label=chai-test", "", "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "The bearer token is not valid.", rec.Body.String())

	rec = api.doAuth(t, http.MethodGet, "/heating/valve/?label=chai-test", "", "Basic abc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.doAuth(t, http.MethodGet, "/heating/valve/?label=chai-test", "", "Bearer "+testBearer+",wrong-home")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unknown home label, or invalid home token", rec.Body.String())

	// shared bearer alone means anonymous access
	rec = api.doAuth(t, http.MethodGet, "/heating/valve/?label=chai-test", "", "Bearer "+testBearer)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"open": false}`, rec.Body.String())

	rec = api.doAuth(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownEndpoint(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/battery/mode/", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, NotFoundText, rec.Body.String())

	rec = api.do(t, http.MethodDelete, "/heating/mode/", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRequestID(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/healthz/", "")
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	out := httptest.NewRecorder()
	api.handler.ServeHTTP(out, req)
	assert.Equal(t, "abc-123", out.Header().Get(RequestIDHeader))
}

func TestMissingReadingIsServerError(t *testing.T) {
	api := newTestAPI(t)
	ctx := context.Background()
	relayID, err := api.store.Repos().Homes.CreateRelay(ctx, "x")
	require.NoError(t, err)
	_, err = api.store.Repos().Homes.CreateHome(ctx, &domain.Home{Label: "bare", Revision: time.Now(), RelayID: relayID})
	require.NoError(t, err)

	rec := api.doAuth(t, http.MethodGet, "/heating/mode/?label=bare", "", "Bearer "+testBearer)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "no valve status available", rec.Body.String())
}

func TestSchedule_PutListThenGet(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPut, "/schedule/?label=chai-test&daymask=1", `[{"0": 2}, {"48": "3"}]`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/schedule/?label=chai-test&daymask=3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[
		{"day": 1, "schedule": {"0": 2, "48": 3}},
		{"day": 2, "schedule": {"0": 1}}
	]`, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/schedule/?label=chai-test&daymask=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "daymask must be a value in the range [1, 127]", rec.Body.String())

	rec = api.do(t, http.MethodPut, "/schedule/?label=chai-test&daymask=1", `{"94": 1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfilesAndXAI(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/heating/profile/?label=chai-test", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"profile": 1, "slope": 0.1, "bias": 18}]`, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/xai/region/?label=chai-test&profile=2", "")
	assert.Equal(t, http.StatusPartialContent, rec.Code)
	var region service.XAIRegion
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &region))
	assert.Equal(t, 2, region.Profile)

	rec = api.do(t, http.MethodGet, "/xai/band/?label=chai-test&profile=1&skip=0", "")
	assert.Equal(t, http.StatusPartialContent, rec.Code)

	rec = api.do(t, http.MethodGet, "/xai/scatter/?label=chai-test&profile=1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"entries": [], "count": 0}`, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/xai/region/?label=chai-test&profile=9", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid value for profile, expected a value between 1 and 5 (inclusive)", rec.Body.String())

	rec = api.do(t, http.MethodPut, "/profile/reset/?label=chai-test", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = api.do(t, http.MethodGet, "/heating/profile/?label=chai-test", "")
	var listed []service.ProfileEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed, 5)
}

func TestLogsAndExport(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPut, "/heating/mode/", `{"label": "chai-test", "mode": "off"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/logs/?label=chai-test&category=SETPOINT_CHANGE", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []service.LogEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.JSONEq(t, `["off", null, 60]`, string(entries[0].Parameters))

	rec = api.do(t, http.MethodGet, "/logs/?label=chai-test&limit=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodGet, "/logs/export/?label=chai-test", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "chai-logs-chai-test-")

	book, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer book.Close()
	rows, err := book.GetRows(logSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, LogExportHeader, rows[0])
	assert.Equal(t, domain.LogSetpointChange, rows[1][1])
}

func TestElectricityPrices(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/electricity/prices/?start=1704103200&limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var slots []domain.PriceSlot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &slots))
	require.Len(t, slots, 2)
	assert.Equal(t, int64(1704103200), slots[0].Start.Unix())
	assert.Equal(t, 20.0, slots[0].Price)

	rec = api.do(t, http.MethodGet, "/electricity/prices/?start=1704103200&end=1704103200", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "the end date should not be before the start date", rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	api := newTestAPI(t)
	api.do(t, http.MethodGet, "/heating/mode/?label=chai-test", "")

	rec := api.doAuth(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `chai_http_requests_total{method="GET",route="/heating/mode",status="200"} 1`)
	assert.Contains(t, rec.Body.String(), `chai_heating_resolutions_total{mode="auto"} 1`)
}

func TestPanicRecovery(t *testing.T) {
	api := newTestAPI(t)
	api.router.Handle("/boom", func(http.ResponseWriter, *http.Request) { panic("kaboom") }, http.MethodGet)

	rec := api.do(t, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestPriceSourceDown_IsAlertedUpstreamFailure(t *testing.T) {
	alerter := &recordingAlerter{}
	api := newTestAPIWith(t, apiOptions{prices: downPrices{}, alerter: alerter})

	rec := api.do(t, http.MethodGet, "/heating/mode?label=chai-test", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, service.ErrPriceSourceUnavailable.Error(), rec.Body.String())

	rec = api.do(t, http.MethodPut, "/heating/mode?label=chai-test", `{"mode": "on"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	assert.Equal(t, []string{service.AlertPriceSource, service.AlertPriceSource}, alerter.raised())
	setpoints, logs := api.writes(t)
	assert.Zero(t, setpoints)
	assert.Zero(t, logs)
}

func TestMissingPrice_IsDataUnavailableWithoutAlert(t *testing.T) {
	alerter := &recordingAlerter{}
	api := newTestAPIWith(t, apiOptions{prices: noSlots{}, alerter: alerter})

	rec := api.do(t, http.MethodGet, "/heating/mode?label=chai-test", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "no electricity price available", rec.Body.String())
	assert.Empty(t, alerter.raised())
}

// noSlots answers every lookup successfully but with nothing covering it
type noSlots struct{}

func (noSlots) Range(context.Context, time.Time, *time.Time, int) ([]domain.PriceSlot, error) {
	return []domain.PriceSlot{}, nil
}

func TestRequestTimeout_LeavesNoWrites(t *testing.T) {
	prices := &stalledPrices{done: make(chan struct{})}
	api := newTestAPIWith(t, apiOptions{prices: prices, timeout: 50 * time.Millisecond})

	rec := api.do(t, http.MethodPut, "/heating/mode?label=chai-test", `{"mode": "auto", "target": 21}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, TimeoutText, rec.Body.String())

	select {
	case <-prices.done:
	case <-time.After(2 * time.Second):
		t.Fatal("price lookup was not cancelled")
	}
	setpoints, logs := api.writes(t)
	assert.Zero(t, setpoints)
	assert.Zero(t, logs)
}
