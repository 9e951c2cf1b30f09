package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chai-api/internal/config"
	"chai-api/internal/domain"
	"chai-api/internal/repository"
)

// AdminService 运维操作（由 chai-admin 调用）
type AdminService struct {
	store    repository.Store
	defaults []config.ProfileDefaults
	logger   *zap.Logger
	now      func() time.Time
}

func NewAdminService(store repository.Store, defaults []config.ProfileDefaults, logger *zap.Logger) *AdminService {
	return &AdminService{store: store, defaults: defaults, logger: logger, now: time.Now}
}

// SetClock replaces the time source (tests)
func (s *AdminService) SetClock(now func() time.Time) {
	s.now = now
}

// CreateHomeRequest 新建家庭
type CreateHomeRequest struct {
	Label        string
	RefreshToken string
}

// CreateHomeResult 新家庭及其访问 token
type CreateHomeResult struct {
	HomeID  int64
	RelayID int64
	Token   string
}

// newHomeToken 随机的家庭访问 token
func newHomeToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// CreateHome 创建中继、家庭（revision 为当天零点）、七天的默认日程 {"0":1} 与默认 profile。
// label 已存在时拒绝。
func (s *AdminService) CreateHome(ctx context.Context, req CreateHomeRequest) (*CreateHomeResult, error) {
	label := strings.TrimSpace(req.Label)
	if label == "" {
		return nil, invalid("label", "the label for the home should be provided and should not be empty")
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		return nil, invalid("refresh_token", "the device refresh token should be provided and should not be empty")
	}
	if len(s.defaults) < domain.MaxProfileID {
		return nil, invalid("profile", "the profile %d cannot be reset as its default values are not known", len(s.defaults)+1)
	}

	now := s.now()
	revision := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	result := &CreateHomeResult{Token: newHomeToken()}

	err := s.store.InTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		_, err := r.Homes.GetCurrentHome(ctx, label)
		switch {
		case err == nil:
			return invalid("label", "a home with label %q already exists", label)
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}

		if result.RelayID, err = r.Homes.CreateRelay(ctx, req.RefreshToken); err != nil {
			return err
		}
		if result.HomeID, err = r.Homes.CreateHome(ctx, &domain.Home{
			Label:    label,
			Token:    result.Token,
			Revision: revision,
			RelayID:  result.RelayID,
		}); err != nil {
			return err
		}

		schedules := make([]*domain.Schedule, 0, len(domain.Week))
		for _, day := range domain.Week {
			schedules = append(schedules, &domain.Schedule{
				HomeID:   result.HomeID,
				Revision: revision,
				Day:      day,
				Entries:  domain.ScheduleEntries{{Slot: 0, ProfileID: domain.MinProfileID}},
			})
		}
		if err := r.Schedules.CreateSchedules(ctx, schedules); err != nil {
			return err
		}
		return resetProfiles(ctx, r, result.HomeID, s.defaults[:domain.MaxProfileID], now, false)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Home created",
		zap.String("label", label),
		zap.Int64("home_id", result.HomeID),
		zap.Int64("relay_id", result.RelayID),
	)
	return result, nil
}
