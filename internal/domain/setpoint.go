package domain

import "time"

// SetpointChange 手动覆盖记录（setpointchange 表），只插入不更新
type SetpointChange struct {
	ID          int64     `db:"id"`
	HomeID      int64     `db:"homeid"`
	ChangedAt   time.Time `db:"changedat"`
	ExpiresAt   time.Time `db:"expiresat"` // exclusive
	Duration    int       `db:"duration"`  // minutes
	Mode        int       `db:"mode"`
	Temperature *float64  `db:"temperature"` // only meaningful for auto
	Price       *float64  `db:"price"`
	Hidden      bool      `db:"hidden"`
}

// ActiveAt the override applies while expires_at > now
func (s *SetpointChange) ActiveAt(now time.Time) bool {
	return s.ExpiresAt.After(now)
}

// Overrides auto without a target is a revert to automatic control, not an override
func (s *SetpointChange) Overrides() bool {
	return s.Mode != ModeIDAuto || s.Temperature != nil
}

// Status heating status the override imposes
func (s *SetpointChange) Status() HeatingStatus {
	expires := s.ExpiresAt
	switch s.Mode {
	case ModeIDOn:
		return HeatingStatus{Mode: ModeOn, Temperature: OnTemperature, ExpiresAt: &expires}
	case ModeIDOff:
		return HeatingStatus{Mode: ModeOff, Temperature: OffTemperature, ExpiresAt: &expires}
	}
	var t float64
	if s.Temperature != nil {
		t = *s.Temperature
	}
	return HeatingStatus{Mode: ModeOverride, Temperature: t, ExpiresAt: &expires}
}
