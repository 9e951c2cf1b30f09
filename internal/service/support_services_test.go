package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chai-api/internal/config"
	"chai-api/internal/domain"
	"chai-api/internal/repository"
)

func TestLogService_ListLogs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	logs := f.store.Repos().Logs
	for i, cat := range []string{domain.LogSetpointChange, domain.LogScheduleChange, domain.LogSetpointChange} {
		_, err := logs.CreateLog(ctx, &domain.LogEntry{HomeID: f.home.ID, Timestamp: f.now.Add(-time.Duration(3-i) * time.Hour),
			Category: cat, Parameters: []byte(`[]`)})
		require.NoError(t, err)
	}
	_, err := logs.CreateLog(ctx, &domain.LogEntry{HomeID: f.home.ID, Timestamp: f.now.AddDate(0, 0, -10),
		Category: domain.LogProfileReset, Parameters: []byte(`[1]`)})
	require.NoError(t, err)

	svc := NewLogService(f.store, zap.NewNop())
	svc.SetClock(f.clock)

	got, err := svc.ListLogs(ctx, ListLogsRequest{Label: testLabel, User: testToken})
	require.NoError(t, err)
	assert.Len(t, got, 3, "the default window is one week")

	got, err = svc.ListLogs(ctx, ListLogsRequest{Label: testLabel, Category: domain.LogSetpointChange, Limit: intPtr(1)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Timestamp.Equal(f.now.Add(-3*time.Hour)))

	end := f.now.Add(-90 * time.Minute)
	got, err = svc.ListLogs(ctx, ListLogsRequest{Label: testLabel, End: &end})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	start := f.now.AddDate(0, 0, -30)
	got, err = svc.ListLogs(ctx, ListLogsRequest{Label: testLabel, Start: &start})
	require.NoError(t, err)
	assert.Len(t, got, 4)

	_, err = svc.ListLogs(ctx, ListLogsRequest{Label: testLabel, Limit: intPtr(0)})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "the limit should be 1 or more", verr.Message)
}

func TestPriceService_ListPrices(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 10, 0, 0, time.UTC)
	svc := NewPriceService(FixedPriceSource{Rate: 12})
	svc.SetClock(func() time.Time { return now })
	ctx := context.Background()

	slots, err := svc.ListPrices(ctx, ListPricesRequest{Limit: intPtr(2)})
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.True(t, slots[0].Covers(now), "start defaults to now")

	end := now
	_, err = svc.ListPrices(ctx, ListPricesRequest{End: &end})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "the end date should not be before the start date", verr.Message)

	_, err = svc.ListPrices(ctx, ListPricesRequest{Limit: intPtr(0)})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "the limit should be 1 or more", verr.Message)

	failing := NewPriceService(&fakePrices{err: errors.New("down")})
	_, err = failing.ListPrices(ctx, ListPricesRequest{})
	assert.ErrorIs(t, err, ErrPriceSourceUnavailable)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = failing.ListPrices(cancelled, ListPricesRequest{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrPriceSourceUnavailable)
}

func TestAdminService_CreateHome(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewAdminService(store, config.DefaultProfiles(), zap.NewNop())
	now := time.Date(2024, 3, 5, 14, 20, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return now })
	ctx := context.Background()

	res, err := svc.CreateHome(ctx, CreateHomeRequest{Label: "new-home", RefreshToken: "refresh"})
	require.NoError(t, err)
	assert.Len(t, res.Token, 32)

	r := store.Repos()
	home, err := r.Homes.GetCurrentHome(ctx, "new-home")
	require.NoError(t, err)
	assert.Equal(t, res.Token, home.Token)
	assert.Equal(t, res.RelayID, home.RelayID)
	assert.True(t, home.Revision.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)))

	relay, err := r.Homes.GetRelay(ctx, res.RelayID)
	require.NoError(t, err)
	assert.Equal(t, "refresh", relay.RefreshToken)

	schedules, err := r.Schedules.ListCurrentSchedules(ctx, home.ID, domain.AllDays)
	require.NoError(t, err)
	require.Len(t, schedules, 7)
	for _, sc := range schedules {
		assert.Equal(t, domain.ScheduleEntries{{Slot: 0, ProfileID: 1}}, sc.Entries)
	}

	profiles, err := r.Profiles.ListCurrentProfiles(ctx, home.ID)
	require.NoError(t, err)
	assert.Len(t, profiles, 5)

	resetLogs, err := r.Logs.ListLogs(ctx, home.ID, repository.LogFilters{Category: domain.LogProfileReset})
	require.NoError(t, err)
	assert.Len(t, resetLogs, 5)

	// the new home resolves straight away
	resolver := NewHeatingResolver(FixedPriceSource{Rate: 10}, time.UTC, nil)
	err = store.InTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		status, err := resolver.Resolve(ctx, r, home, now)
		if err == nil {
			def, _ := config.DefaultProfile(1)
			assert.InDelta(t, 10*def.Mean2+def.Mean1, status.Temperature, 1e-9)
		}
		return err
	})
	require.NoError(t, err)
}

func TestAdminService_CreateHomeValidation(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewAdminService(store, config.DefaultProfiles(), zap.NewNop())
	ctx := context.Background()

	_, err := svc.CreateHome(ctx, CreateHomeRequest{Label: " ", RefreshToken: "x"})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = svc.CreateHome(ctx, CreateHomeRequest{Label: "a"})
	assert.ErrorAs(t, err, &verr)

	_, err = svc.CreateHome(ctx, CreateHomeRequest{Label: "a", RefreshToken: "x"})
	require.NoError(t, err)
	_, err = svc.CreateHome(ctx, CreateHomeRequest{Label: "a", RefreshToken: "y"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, `a home with label "a" already exists`, verr.Message)
}
