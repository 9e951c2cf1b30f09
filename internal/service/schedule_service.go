package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"chai-api/internal/domain"
	"chai-api/internal/repository"
)

// ScheduleService 日程查询与编辑
type ScheduleService struct {
	store  repository.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewScheduleService 创建日程服务
func NewScheduleService(store repository.Store, logger *zap.Logger) *ScheduleService {
	return &ScheduleService{store: store, logger: logger, now: time.Now}
}

// SetClock replaces the time source (tests)
func (s *ScheduleService) SetClock(now func() time.Time) {
	s.now = now
}

// DaySchedule 某天的当前日程
type DaySchedule struct {
	Day      domain.Day             `json:"day"`
	Schedule domain.ScheduleEntries `json:"schedule"`
}

// GetSchedulesRequest GET /schedule
type GetSchedulesRequest struct {
	Label   string
	User    string
	Daymask int
}

func validateDaymask(mask int) error {
	if !domain.ValidDaymask(mask) {
		return invalid("daymask", "daymask must be a value in the range [1, %d]", domain.AllDays)
	}
	return nil
}

// GetSchedules mask 选中的各天当前日程，按周一到周日排列；没有日程的天不返回
func (s *ScheduleService) GetSchedules(ctx context.Context, req GetSchedulesRequest) ([]DaySchedule, error) {
	if err := validateDaymask(req.Daymask); err != nil {
		return nil, err
	}
	out := []DaySchedule{}
	err := s.store.InTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		home, err := lookupHome(ctx, r.Homes, req.Label, req.User)
		if err != nil {
			return err
		}
		schedules, err := r.Schedules.ListCurrentSchedules(ctx, home.ID, domain.Daymask(req.Daymask))
		if err != nil {
			return err
		}
		for _, sc := range schedules {
			out = append(out, DaySchedule{Day: sc.Day, Schedule: sc.Entries.Sorted()})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ApplyScheduleRequest PUT /schedule
type ApplyScheduleRequest struct {
	Label   string
	User    string
	Daymask int
	Entries domain.ScheduleEntries
	Hidden  bool
}

func validateScheduleEntries(entries domain.ScheduleEntries) error {
	if len(entries) == 0 {
		return invalid("schedule", "schedule must contain at least one entry")
	}
	seen := make(map[int]bool, len(entries))
	for _, e := range entries {
		if e.Slot < 0 || e.Slot > domain.MaxEditableSlot {
			return invalid("schedule", "slot %d expected between 0 and %d", e.Slot, domain.MaxEditableSlot)
		}
		if !domain.ValidProfileID(e.ProfileID) {
			return invalid("schedule", "profile %d for slot %d expected between %d and %d",
				e.ProfileID, e.Slot, domain.MinProfileID, domain.MaxProfileID)
		}
		if seen[e.Slot] {
			return invalid("schedule", "slot %d appears more than once", e.Slot)
		}
		seen[e.Slot] = true
	}
	return nil
}

// ApplySchedule 用新条目替换 mask 选中的天，每个被修改的天写入一个新版本（共用同一 revision）
func (s *ScheduleService) ApplySchedule(ctx context.Context, req ApplyScheduleRequest) ([]DaySchedule, error) {
	if err := validateDaymask(req.Daymask); err != nil {
		return nil, err
	}
	if err := validateScheduleEntries(req.Entries); err != nil {
		return nil, err
	}
	mask := domain.Daymask(req.Daymask)
	revision := s.now()

	var out []DaySchedule
	err := s.store.InTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		home, err := lookupHome(ctx, r.Homes, req.Label, req.User)
		if err != nil {
			return err
		}
		current, err := r.Schedules.ListCurrentSchedules(ctx, home.ID, domain.AllDays)
		if err != nil {
			return err
		}

		week := newScheduleWeek(current)
		days := week.apply(mask, req.Entries)

		rows := make([]*domain.Schedule, 0, len(days))
		for _, day := range days {
			rows = append(rows, &domain.Schedule{
				HomeID:   home.ID,
				Revision: revision,
				Day:      day,
				Entries:  week.day(day),
			})
			out = append(out, DaySchedule{Day: day, Schedule: week.day(day)})
		}
		if err := r.Schedules.CreateSchedules(ctx, rows); err != nil {
			return err
		}

		if req.Hidden {
			return nil
		}
		params, err := json.Marshal([]any{req.Daymask, req.Entries.Sorted()})
		if err != nil {
			return err
		}
		_, err = r.Logs.CreateLog(ctx, &domain.LogEntry{
			HomeID:     home.ID,
			Timestamp:  revision,
			Category:   domain.LogScheduleChange,
			Parameters: params,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Schedule updated",
		zap.String("label", req.Label),
		zap.Stringer("days", mask),
		zap.Int("entries", len(req.Entries)),
	)
	return out, nil
}
