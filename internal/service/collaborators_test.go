package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chai-api/internal/config"
	"chai-api/internal/domain"
	"chai-api/internal/repository"
	"chai-api/internal/store"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestPriceClient_Range(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		assert.Equal(t, "/prices", r.URL.Path)
		assert.Equal(t, "1704103200", r.URL.Query().Get("start"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]domain.PriceSlot{
			{Start: start, End: start.Add(30 * time.Minute), Price: 13.17},
			{Start: start.Add(30 * time.Minute), End: start.Add(time.Hour), Price: 7.82, Predicted: true},
		})
	}))
	defer srv.Close()

	client := NewPriceClient(config.PriceConfig{URL: srv.URL, Timeout: time.Second, Retries: 2}, zap.NewNop())
	slots, err := client.Range(context.Background(), start, nil, 2)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, 13.17, slots[0].Price)
	assert.True(t, slots[1].Predicted)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls), "5xx is retried")
}

func TestPriceClient_ErrorIsUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewPriceClient(config.PriceConfig{URL: srv.URL, Timeout: time.Second}, zap.NewNop())
	_, err := PriceAt(context.Background(), client, time.Now())
	assert.ErrorIs(t, err, ErrPriceSourceUnavailable)
	assert.NotErrorIs(t, err, ErrMissingPrice)
}

func TestPriceAt_SlotBoundary(t *testing.T) {
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	src := &fakePrices{slots: []domain.PriceSlot{
		{Start: at.Add(-30 * time.Minute), End: at, Price: 11},
		{Start: at, End: at.Add(30 * time.Minute), Price: 22},
	}}

	price, err := PriceAt(context.Background(), src, at)
	require.NoError(t, err)
	assert.Equal(t, 22.0, price)

	src.slots = src.slots[:1]
	_, err = PriceAt(context.Background(), src, at)
	assert.ErrorIs(t, err, ErrMissingPrice)
}

func TestFixedPriceSource(t *testing.T) {
	src := FixedPriceSource{Rate: 15}
	at := time.Date(2024, 1, 1, 10, 40, 0, 0, time.UTC)

	price, err := PriceAt(context.Background(), src, at)
	require.NoError(t, err)
	assert.Equal(t, 15.0, price)

	slots, err := src.Range(context.Background(), at, nil, 0)
	require.NoError(t, err)
	assert.Len(t, slots, 48)
	assert.True(t, slots[0].Covers(at))

	end := at.Add(2 * time.Hour)
	slots, err = src.Range(context.Background(), at, &end, 3)
	require.NoError(t, err)
	assert.Len(t, slots, 3)
}

func TestCachedPriceSource(t *testing.T) {
	mr, client := newRedis(t)
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	next := &fakePrices{price: 9.5}
	cached := NewCachedPriceSource(next, store.NewRedisKV(client), time.Minute, metrics, zap.NewNop())
	ctx := context.Background()
	at := time.Date(2024, 1, 1, 10, 5, 12, 0, time.UTC)

	first, err := cached.Range(ctx, at, &at, 1)
	require.NoError(t, err)
	// seconds are truncated, so this hits the same key
	again := at.Add(20 * time.Second)
	second, err := cached.Range(ctx, again, &again, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, first[0].Price, second[0].Price)
	assert.True(t, first[0].Start.Equal(second[0].Start))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.priceCache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.priceCache.WithLabelValues("miss")))

	mr.FastForward(2 * time.Minute)
	_, err = cached.Range(ctx, at, &at, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestCachedPriceSource_RedisDownStillServes(t *testing.T) {
	mr, client := newRedis(t)
	mr.Close()
	next := &fakePrices{price: 9.5}
	cached := NewCachedPriceSource(next, store.NewRedisKV(client), time.Minute, nil, zap.NewNop())

	at := time.Now()
	price, err := PriceAt(context.Background(), cached, at)
	require.NoError(t, err)
	assert.Equal(t, 9.5, price)
}

func TestCachedPriceSource_ErrorsAreNotCached(t *testing.T) {
	_, client := newRedis(t)
	next := &fakePrices{err: errors.New("down")}
	cached := NewCachedPriceSource(next, store.NewRedisKV(client), time.Minute, nil, zap.NewNop())

	at := time.Now()
	_, err := PriceAt(context.Background(), cached, at)
	require.ErrorIs(t, err, ErrPriceSourceUnavailable)
	next.err = nil
	next.price = 3
	price, err := PriceAt(context.Background(), cached, at)
	require.NoError(t, err)
	assert.Equal(t, 3.0, price)
}

func TestStreamAlerter(t *testing.T) {
	_, client := newRedis(t)
	alerter := NewStreamAlerter(client, "chai:alerts", zap.NewNop())
	metrics := NewMetrics(prometheus.NewRegistry())

	RaiseAlert(context.Background(), alerter, metrics, zap.NewNop(), Alert{
		Kind: AlertDevicePushFailed, Label: testLabel, Message: "relay offline",
	})

	entries, err := client.XRange(context.Background(), "chai:alerts", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	raw, ok := entries[0].Values["data"].(string)
	require.True(t, ok)
	var alert Alert
	require.NoError(t, json.Unmarshal([]byte(raw), &alert))
	assert.Equal(t, AlertDevicePushFailed, alert.Kind)
	assert.Equal(t, "relay offline", alert.Message)
	assert.False(t, alert.Time.IsZero())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.alerts.WithLabelValues(AlertDevicePushFailed)))
}

func TestRaiseAlert_CancelledRequestStillDelivers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	alerter := &ctxCheckingAlerter{}
	RaiseAlert(ctx, alerter, nil, zap.NewNop(), Alert{Kind: AlertInternalError})
	assert.NoError(t, alerter.seen)
}

type ctxCheckingAlerter struct {
	seen error
}

func (a *ctxCheckingAlerter) Alert(ctx context.Context, _ Alert) error {
	a.seen = ctx.Err()
	return nil
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("/heating/mode", http.MethodGet, 200, time.Millisecond)
		m.Resolution("auto")
		m.DevicePush(true)
		m.PriceCache("hit")
		m.AlertRaised("x")
	})
}

func TestMetrics_Resolution(t *testing.T) {
	f := newFixture(t)
	metrics := NewMetrics(prometheus.NewRegistry())
	resolver := NewHeatingResolver(f.prices, london(t), metrics)

	err := f.store.InTx(context.Background(), func(ctx context.Context, r repository.Repositories) error {
		_, err := resolver.Resolve(ctx, r, f.home, f.now)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.resolutions.WithLabelValues("auto")))
}

func TestDataUnavailableText(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), ErrMissingTemperature)
	assert.Equal(t, "no temperature available", DataUnavailableText(wrapped))
	assert.True(t, IsDataUnavailable(wrapped))
	assert.Equal(t, "no schedule available for today", DataUnavailableText(ErrMissingSchedule))
	assert.False(t, IsDataUnavailable(ErrUnknownHome))
	assert.Equal(t, "internal server error", DataUnavailableText(errors.New("boom")))
}
