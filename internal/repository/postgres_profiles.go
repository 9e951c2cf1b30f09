package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"chai-api/internal/domain"
)

// PostgresProfilesRepository profile Repository 实现
type PostgresProfilesRepository struct {
	db DBTX
}

// NewPostgresProfilesRepository 创建 profile Repository
func NewPostgresProfilesRepository(db DBTX) *PostgresProfilesRepository {
	return &PostgresProfilesRepository{db: db}
}

var _ ProfilesRepository = (*PostgresProfilesRepository)(nil)

var profileColumns = []string{"id", "profileid", "homeid", "setpointid", "mean1", "mean2", "confidence_region", "prediction_banded"}

func scanProfile(row rowScanner, extra ...any) (*domain.Profile, error) {
	var p domain.Profile
	var setpointID sql.NullInt64
	var region, banded sql.NullString
	dest := append([]any{&p.ID, &p.ProfileID, &p.HomeID, &setpointID, &p.Mean1, &p.Mean2, &region, &banded}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	p.SetpointID = nullInt(setpointID)
	if err := decodeNullJSON(region, &p.ConfidenceRegion); err != nil {
		return nil, fmt.Errorf("profile %d has an invalid confidence region: %w", p.ID, err)
	}
	if err := decodeNullJSON(banded, &p.PredictionBanded); err != nil {
		return nil, fmt.Errorf("profile %d has an invalid prediction band: %w", p.ID, err)
	}
	return &p, nil
}

// GetGeneration 最近一次重置标记
func (r *PostgresProfilesRepository) GetGeneration(ctx context.Context, homeID int64, profileID int) (domain.ProfileGeneration, error) {
	gen := domain.ProfileGeneration{ProfileID: profileID}
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(id), 0)
		FROM profile
		WHERE homeid = $1 AND profileid = $2 AND confidence_region IS NULL
	`, homeID, profileID).Scan(&gen.StartID)
	if err != nil {
		return gen, fmt.Errorf("failed to get profile generation: %w", err)
	}
	return gen, nil
}

// GetCurrentProfile 当前代中最新的行
func (r *PostgresProfilesRepository) GetCurrentProfile(ctx context.Context, homeID int64, gen domain.ProfileGeneration) (*domain.Profile, error) {
	query := `
		SELECT id, profileid, homeid, setpointid, mean1, mean2, confidence_region, prediction_banded
		FROM profile
		WHERE homeid = $1 AND profileid = $2 AND id >= $3
		ORDER BY id DESC
		LIMIT 1
	`
	p, err := scanProfile(r.db.QueryRowContext(ctx, query, homeID, gen.ProfileID, gen.StartID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// ListCurrentProfiles 每个 profile_id 的最新行
func (r *PostgresProfilesRepository) ListCurrentProfiles(ctx context.Context, homeID int64) ([]*domain.Profile, error) {
	query := profileLatest.Query(profileColumns, "t.homeid = $1") + " ORDER BY t.profileid"
	rows, err := r.db.QueryContext(ctx, query, homeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var out []*domain.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}
	return out, nil
}

// ListObservations 当前代、未隐藏 setpoint 关联的行
func (r *PostgresProfilesRepository) ListObservations(ctx context.Context, homeID int64, gen domain.ProfileGeneration, skip, limit int) ([]ProfileObservation, error) {
	query := `
		SELECT p.id, p.profileid, p.homeid, p.setpointid, p.mean1, p.mean2, p.confidence_region, p.prediction_banded,
			s.id, s.changedat, s.expiresat, COALESCE(s.duration, 0), s.mode, s.temperature, s.price
		FROM profile p
		JOIN setpointchange s ON s.id = p.setpointid AND s.hidden = FALSE
		WHERE p.homeid = $1 AND p.profileid = $2 AND p.id >= $3
		ORDER BY p.id DESC
		OFFSET $4
	`
	args := []any{homeID, gen.ProfileID, gen.StartID, skip}
	if limit > 0 {
		query += " LIMIT $5"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list profile observations: %w", err)
	}
	defer rows.Close()

	var out []ProfileObservation
	for rows.Next() {
		var s domain.SetpointChange
		var temperature, price sql.NullFloat64
		p, err := scanProfile(rows, &s.ID, &s.ChangedAt, &s.ExpiresAt, &s.Duration, &s.Mode, &temperature, &price)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile observation: %w", err)
		}
		s.HomeID = p.HomeID
		s.Temperature = nullFloat(temperature)
		s.Price = nullFloat(price)
		out = append(out, ProfileObservation{Profile: p, Setpoint: &s})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profile observations: %w", err)
	}
	return out, nil
}

// CreateProfile 插入新版本
func (r *PostgresProfilesRepository) CreateProfile(ctx context.Context, p *domain.Profile) (int64, error) {
	if !domain.ValidProfileID(p.ProfileID) {
		return 0, fmt.Errorf("profile id %d out of range", p.ProfileID)
	}
	region, err := jsonArg(p.ConfidenceRegion, p.ConfidenceRegion == nil)
	if err != nil {
		return 0, err
	}
	banded, err := jsonArg(p.PredictionBanded, p.PredictionBanded == nil)
	if err != nil {
		return 0, err
	}
	query := `
		INSERT INTO profile (profileid, homeid, setpointid, mean1, mean2, confidence_region, prediction_banded)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7::jsonb)
		RETURNING id
	`
	var id int64
	if err := r.db.QueryRowContext(ctx, query,
		p.ProfileID, p.HomeID, intArg(p.SetpointID), p.Mean1, p.Mean2, region, banded,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to create profile: %w", err)
	}
	p.ID = id
	return id, nil
}
