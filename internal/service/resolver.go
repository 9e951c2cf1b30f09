package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chai-api/internal/domain"
	"chai-api/internal/repository"
)

// ResolveProfile 某天（1=周一..7=周日，0 视为周日）t 所在时段生效的 profile
func ResolveProfile(ctx context.Context, schedules repository.SchedulesRepository, homeID int64, dayOfWeek int, t time.Time) (int, error) {
	day := domain.DayOfWeek(dayOfWeek)
	slot := domain.SlotOf(t)

	schedule, err := schedules.GetCurrentSchedule(ctx, homeID, day)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrMissingSchedule
		}
		return 0, fmt.Errorf("failed to load schedule: %w", err)
	}

	profileID, ok := schedule.Entries.ProfileAt(slot)
	if !ok {
		// only possible for rows written without a slot 0 entry
		return 0, fmt.Errorf("%w: %s has no entry at or before slot %d", ErrMissingSchedule, day, slot)
	}
	return profileID, nil
}

// ResolveProfileModel 当前代中最新的 profile 行
func ResolveProfileModel(ctx context.Context, profiles repository.ProfilesRepository, homeID int64, profileID int) (*domain.Profile, error) {
	gen, err := profiles.GetGeneration(ctx, homeID, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile generation: %w", err)
	}
	profile, err := profiles.GetCurrentProfile(ctx, homeID, gen)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMissingProfile
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return profile, nil
}

// HeatingResolver 推导家庭当前的加热状态（不持久化，每次读取重新计算）
type HeatingResolver struct {
	prices  PriceSource
	loc     *time.Location
	metrics *Metrics
}

// NewHeatingResolver loc 为日程所在时区
func NewHeatingResolver(prices PriceSource, loc *time.Location, metrics *Metrics) *HeatingResolver {
	if loc == nil {
		loc = time.UTC
	}
	return &HeatingResolver{prices: prices, loc: loc, metrics: metrics}
}

// Resolve an unexpired override wins unless it is auto without a target, which
// means the user went back to automatic control. Otherwise the schedule picks
// the profile and the profile turns the current price into a temperature.
func (r *HeatingResolver) Resolve(ctx context.Context, repos repository.Repositories, home *domain.Home, now time.Time) (domain.HeatingStatus, error) {
	setpoint, err := repos.Setpoints.GetActiveSetpoint(ctx, home.ID, now)
	switch {
	case err == nil:
		if setpoint.Overrides() {
			status := setpoint.Status()
			r.metrics.Resolution(string(status.Mode))
			return status, nil
		}
	case !errors.Is(err, repository.ErrNotFound):
		return domain.HeatingStatus{}, fmt.Errorf("failed to load active setpoint: %w", err)
	}

	local := now.In(r.loc)
	profileID, err := ResolveProfile(ctx, repos.Schedules, home.ID, domain.DayOf(local).Index(), local)
	if err != nil {
		return domain.HeatingStatus{}, err
	}
	profile, err := ResolveProfileModel(ctx, repos.Profiles, home.ID, profileID)
	if err != nil {
		return domain.HeatingStatus{}, err
	}
	price, err := PriceAt(ctx, r.prices, now)
	if err != nil {
		return domain.HeatingStatus{}, err
	}

	r.metrics.Resolution(string(domain.ModeAuto))
	return domain.HeatingStatus{
		Mode:        domain.ModeAuto,
		Temperature: profile.CalculateTemperature(price),
	}, nil
}
