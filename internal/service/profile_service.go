package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"chai-api/internal/config"
	"chai-api/internal/domain"
	"chai-api/internal/repository"
)

// ProfileService profile 查询、重置与 XAI 解释数据
type ProfileService struct {
	store    repository.Store
	defaults []config.ProfileDefaults
	logger   *zap.Logger
	now      func() time.Time
}

// NewProfileService defaults[i] 为 profile i+1 的默认参数
func NewProfileService(store repository.Store, defaults []config.ProfileDefaults, logger *zap.Logger) *ProfileService {
	return &ProfileService{store: store, defaults: defaults, logger: logger, now: time.Now}
}

// SetClock replaces the time source (tests)
func (s *ProfileService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *ProfileService) defaultFor(profileID int) (config.ProfileDefaults, bool) {
	if profileID < 1 || profileID > len(s.defaults) {
		return config.ProfileDefaults{}, false
	}
	return s.defaults[profileID-1], true
}

// ProfileEntry GET /heating/profile 单项
type ProfileEntry struct {
	Profile int     `json:"profile"`
	Slope   float64 `json:"slope"`
	Bias    float64 `json:"bias"`
}

// ListProfilesRequest Profile 为空时返回全部
type ListProfilesRequest struct {
	Label   string
	User    string
	Profile *int
}

// ListProfiles 每个 profile 的最新行（不区分代），按 profile 排序
func (s *ProfileService) ListProfiles(ctx context.Context, req ListProfilesRequest) ([]ProfileEntry, error) {
	r := s.store.Repos()
	home, err := lookupHome(ctx, r.Homes, req.Label, req.User)
	if err != nil {
		return nil, err
	}
	if req.Profile != nil && (*req.Profile < 0 || *req.Profile > domain.MaxProfileID) {
		return nil, invalid("profile", "a profile ID is expected to be between 0 and %d", domain.MaxProfileID)
	}

	profiles, err := r.Profiles.ListCurrentProfiles(ctx, home.ID)
	if err != nil {
		return nil, err
	}
	out := make([]ProfileEntry, 0, len(profiles))
	for _, p := range profiles {
		if req.Profile != nil && p.ProfileID != *req.Profile {
			continue
		}
		out = append(out, ProfileEntry{Profile: p.ProfileID, Slope: p.Mean2, Bias: p.Mean1})
	}
	return out, nil
}

// ResetProfilesRequest Profile 为空时重置全部五个
type ResetProfilesRequest struct {
	Label   string
	User    string
	Profile *int
	Hidden  bool
}

func (s *ProfileService) validateReset(profile *int) ([]config.ProfileDefaults, error) {
	if profile == nil {
		out := make([]config.ProfileDefaults, 0, domain.MaxProfileID)
		for id := domain.MinProfileID; id <= domain.MaxProfileID; id++ {
			d, ok := s.defaultFor(id)
			if !ok {
				return nil, invalid("profile", "the profile %d cannot be reset as its default values are not known", id)
			}
			out = append(out, d)
		}
		return out, nil
	}
	if !domain.ValidProfileID(*profile) {
		return nil, invalid("profile", "invalid value for profile, expected a value between %d and %d (inclusive)",
			domain.MinProfileID, domain.MaxProfileID)
	}
	d, ok := s.defaultFor(*profile)
	if !ok {
		return nil, invalid("profile", "the profile %d cannot be reset as its default values are not known", *profile)
	}
	return []config.ProfileDefaults{d}, nil
}

// ResetProfiles 追加默认参数的 profile 行（无 confidence region，即开启新的一代）
func (s *ProfileService) ResetProfiles(ctx context.Context, req ResetProfilesRequest) ([]ProfileEntry, error) {
	defaults, err := s.validateReset(req.Profile)
	if err != nil {
		return nil, err
	}
	now := s.now()

	out := make([]ProfileEntry, 0, len(defaults))
	err = s.store.InTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		home, err := lookupHome(ctx, r.Homes, req.Label, req.User)
		if err != nil {
			return err
		}
		return resetProfiles(ctx, r, home.ID, defaults, now, req.Hidden)
	})
	if err != nil {
		return nil, err
	}
	for _, d := range defaults {
		out = append(out, ProfileEntry{Profile: d.ProfileID, Slope: d.Mean2, Bias: d.Mean1})
	}

	s.logger.Info("Profiles reset",
		zap.String("label", req.Label),
		zap.Int("count", len(defaults)),
		zap.Bool("hidden", req.Hidden),
	)
	return out, nil
}

// resetProfiles shared by the reset endpoint and home creation
func resetProfiles(ctx context.Context, r repository.Repositories, homeID int64, defaults []config.ProfileDefaults, now time.Time, hidden bool) error {
	for _, d := range defaults {
		if _, err := r.Profiles.CreateProfile(ctx, &domain.Profile{
			ProfileID: d.ProfileID,
			HomeID:    homeID,
			Mean1:     d.Mean1,
			Mean2:     d.Mean2,
		}); err != nil {
			return err
		}
		if hidden {
			continue
		}
		params, err := json.Marshal([]int{d.ProfileID})
		if err != nil {
			return err
		}
		if _, err := r.Logs.CreateLog(ctx, &domain.LogEntry{
			HomeID:     homeID,
			Timestamp:  now,
			Category:   domain.LogProfileReset,
			Parameters: params,
		}); err != nil {
			return err
		}
	}
	return nil
}

// XAIRequest 当前代中第 skip 个（从新到旧）未隐藏的观测
type XAIRequest struct {
	Label   string
	User    string
	Profile int
	Skip    int
}

// XAIRegion 置信椭圆
type XAIRegion struct {
	Profile int     `json:"profile"`
	CentreX float64 `json:"centre_x"`
	CentreY float64 `json:"centre_y"`
	Angle   float64 `json:"angle"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Skip    int     `json:"skip"`
}

// XAIBand 36 个价格点上的预测区间
type XAIBand struct {
	LowerConfidence []float64 `json:"lower_confidence"`
	Prediction      []float64 `json:"prediction"`
	UpperConfidence []float64 `json:"upper_confidence"`
	Skip            int       `json:"skip"`
}

// XAIScatterEntry 用户设定的 (价格, 温度) 点
type XAIScatterEntry struct {
	Price       *float64 `json:"price"`
	Temperature float64  `json:"temperature"`
}

// XAIScatter GET /xai/scatter
type XAIScatter struct {
	Entries []XAIScatterEntry `json:"entries"`
	Count   int               `json:"count"`
}

// XAIResult Fallback 为 true 时 Value 来自默认参数（HTTP 206）；Value 为 nil 表示无内容（204）
type XAIResult[T any] struct {
	Value    *T
	Fallback bool
}

func (s *ProfileService) observations(ctx context.Context, req XAIRequest, limit int) ([]repository.ProfileObservation, error) {
	if !domain.ValidProfileID(req.Profile) {
		return nil, invalid("profile", "invalid value for profile, expected a value between %d and %d (inclusive)",
			domain.MinProfileID, domain.MaxProfileID)
	}
	if req.Skip < 0 {
		return nil, invalid("skip", "skip must not be negative")
	}

	var obs []repository.ProfileObservation
	err := s.store.InTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		home, err := lookupHome(ctx, r.Homes, req.Label, req.User)
		if err != nil {
			return err
		}
		gen, err := r.Profiles.GetGeneration(ctx, home.ID, req.Profile)
		if err != nil {
			return err
		}
		obs, err = r.Profiles.ListObservations(ctx, home.ID, gen, req.Skip, limit)
		return err
	})
	return obs, err
}

// XAIRegion 置信区域；行缺失或缺少数据时退回默认参数
func (s *ProfileService) XAIRegion(ctx context.Context, req XAIRequest) (XAIResult[XAIRegion], error) {
	obs, err := s.observations(ctx, req, 1)
	if err != nil {
		return XAIResult[XAIRegion]{}, err
	}
	if len(obs) > 0 {
		p := obs[0].Profile
		if angle, width, height, ok := p.Region(); ok {
			return XAIResult[XAIRegion]{Value: &XAIRegion{
				Profile: p.ProfileID, CentreX: p.Mean1, CentreY: p.Mean2,
				Angle: angle, Width: width, Height: height, Skip: req.Skip,
			}}, nil
		}
	}
	d, ok := s.defaultFor(req.Profile)
	if !ok {
		return XAIResult[XAIRegion]{}, nil
	}
	return XAIResult[XAIRegion]{Fallback: true, Value: &XAIRegion{
		Profile: req.Profile, CentreX: d.Mean1, CentreY: d.Mean2,
		Angle: d.RegionAngle, Width: d.RegionWidth, Height: d.RegionHeight, Skip: req.Skip,
	}}, nil
}

// XAIBand 预测区间；行缺失或缺少数据时退回默认参数
func (s *ProfileService) XAIBand(ctx context.Context, req XAIRequest) (XAIResult[XAIBand], error) {
	obs, err := s.observations(ctx, req, 1)
	if err != nil {
		return XAIResult[XAIBand]{}, err
	}
	if len(obs) > 0 {
		if lower, prediction, upper, ok := obs[0].Profile.Bands(); ok {
			return XAIResult[XAIBand]{Value: &XAIBand{
				LowerConfidence: lower, Prediction: prediction, UpperConfidence: upper, Skip: req.Skip,
			}}, nil
		}
	}
	d, ok := s.defaultFor(req.Profile)
	if !ok {
		return XAIResult[XAIBand]{}, nil
	}
	lower, prediction, upper, ok := domain.TransposeBands(d.PredictionBanded)
	if !ok {
		return XAIResult[XAIBand]{}, nil
	}
	return XAIResult[XAIBand]{Fallback: true, Value: &XAIBand{
		LowerConfidence: lower, Prediction: prediction, UpperConfidence: upper, Skip: req.Skip,
	}}, nil
}

// XAIScatter 产生这些行的 setpoint 的 (价格, 目标温度)，没有目标温度的跳过
func (s *ProfileService) XAIScatter(ctx context.Context, req XAIRequest) (*XAIScatter, error) {
	obs, err := s.observations(ctx, req, 0)
	if err != nil {
		return nil, err
	}
	out := &XAIScatter{Entries: []XAIScatterEntry{}}
	for _, o := range obs {
		if o.Setpoint == nil || o.Setpoint.Temperature == nil {
			continue
		}
		out.Entries = append(out.Entries, XAIScatterEntry{Price: o.Setpoint.Price, Temperature: *o.Setpoint.Temperature})
	}
	out.Count = len(out.Entries)
	return out, nil
}
