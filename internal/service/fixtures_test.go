package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chai-api/internal/config"
	"chai-api/internal/domain"
	"chai-api/internal/repository"
)

type fakePrices struct {
	price float64
	slots []domain.PriceSlot // returned as-is when non-nil
	err   error
	calls int
}

func (f *fakePrices) Range(_ context.Context, start time.Time, end *time.Time, limit int) ([]domain.PriceSlot, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.slots != nil {
		return f.slots, nil
	}
	s := start.Truncate(30 * time.Minute)
	return []domain.PriceSlot{{Start: s, End: s.Add(30 * time.Minute), Price: f.price}}, nil
}

type fakeDevices struct {
	mu   sync.Mutex
	cmds []DeviceCommand
	err  error
}

func (f *fakeDevices) SetHeating(_ context.Context, cmd DeviceCommand) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.cmds = append(f.cmds, cmd)
	return nil
}

type fakeAlerter struct {
	mu     sync.Mutex
	alerts []Alert
}

func (f *fakeAlerter) Alert(_ context.Context, a Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, a)
	return nil
}

func (f *fakeAlerter) kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.alerts))
	for _, a := range f.alerts {
		out = append(out, a.Kind)
	}
	return out
}

const (
	testLabel = "chai-test"
	testToken = "home-secret"
)

func london(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)
	return loc
}

// mondayAt 2024-01-01 is a Monday; London is on GMT in January
func mondayAt(t *testing.T, hour, minute int) time.Time {
	return time.Date(2024, 1, 1, hour, minute, 0, 0, london(t))
}

type fixture struct {
	store   *repository.MemoryStore
	home    *domain.Home
	prices  *fakePrices
	devices *fakeDevices
	alerter *fakeAlerter
	now     time.Time
}

func (f *fixture) clock() time.Time { return f.now }

// newFixture the "chai-test" home: Monday {0:1, 48:2}, profile 1 = (18, 0.1),
// profile 2 = (15, 0.2), price 20.0 and fresh valve readings.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		store:   repository.NewMemoryStore(),
		prices:  &fakePrices{price: 20.0},
		devices: &fakeDevices{},
		alerter: &fakeAlerter{},
		now:     mondayAt(t, 10, 0),
	}
	r := f.store.Repos()

	relayID, err := r.Homes.CreateRelay(ctx, "refresh")
	require.NoError(t, err)
	home := &domain.Home{Label: testLabel, Token: testToken, Revision: f.now.Add(-24 * time.Hour), RelayID: relayID}
	home.ID, err = r.Homes.CreateHome(ctx, home)
	require.NoError(t, err)
	f.home = home

	require.NoError(t, r.Schedules.CreateSchedules(ctx, []*domain.Schedule{{
		HomeID:   home.ID,
		Revision: home.Revision,
		Day:      domain.Monday,
		Entries:  domain.ScheduleEntries{{Slot: 0, ProfileID: 1}, {Slot: 48, ProfileID: 2}},
	}}))
	_, err = r.Profiles.CreateProfile(ctx, &domain.Profile{ProfileID: 1, HomeID: home.ID, Mean1: 18, Mean2: 0.1})
	require.NoError(t, err)
	_, err = r.Profiles.CreateProfile(ctx, &domain.Profile{ProfileID: 2, HomeID: home.ID, Mean1: 15, Mean2: 0.2})
	require.NoError(t, err)

	f.store.AddReading(domain.Reading{Kind: domain.ReadingValvePercentage, RelayID: relayID,
		Start: f.now.Add(-10 * time.Minute), End: f.now.Add(-5 * time.Minute), Value: 40})
	f.store.AddReading(domain.Reading{Kind: domain.ReadingValveTemperature, RelayID: relayID,
		Start: f.now.Add(-10 * time.Minute), End: f.now.Add(-5 * time.Minute), Value: 19.5})
	return f
}

func (f *fixture) resolver(t *testing.T) *HeatingResolver {
	return NewHeatingResolver(f.prices, london(t), nil)
}

func (f *fixture) heatingService(t *testing.T) *HeatingService {
	svc := NewHeatingService(f.store, f.resolver(t), f.prices, f.devices, f.alerter, nil, zap.NewNop())
	svc.SetClock(f.clock)
	return svc
}

func (f *fixture) scheduleService() *ScheduleService {
	svc := NewScheduleService(f.store, zap.NewNop())
	svc.SetClock(f.clock)
	return svc
}

func (f *fixture) profileService() *ProfileService {
	svc := NewProfileService(f.store, config.DefaultProfiles(), zap.NewNop())
	svc.SetClock(f.clock)
	return svc
}

func (f *fixture) resolve(t *testing.T) (domain.HeatingStatus, error) {
	t.Helper()
	var status domain.HeatingStatus
	err := f.store.InTx(context.Background(), func(ctx context.Context, r repository.Repositories) error {
		var err error
		status, err = f.resolver(t).Resolve(ctx, r, f.home, f.now)
		return err
	})
	return status, err
}

func (f *fixture) addSetpoint(t *testing.T, sp domain.SetpointChange) {
	t.Helper()
	sp.HomeID = f.home.ID
	_, err := f.store.Repos().Setpoints.CreateSetpoint(context.Background(), &sp)
	require.NoError(t, err)
}

func (f *fixture) logs(t *testing.T) []*domain.LogEntry {
	t.Helper()
	logs, err := f.store.Repos().Logs.ListLogs(context.Background(), f.home.ID, repository.LogFilters{})
	require.NoError(t, err)
	return logs
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }
