package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"chai-api/internal/domain"
)

// PostgresHomesRepository 家庭 Repository 实现
type PostgresHomesRepository struct {
	db DBTX
}

// NewPostgresHomesRepository 创建家庭 Repository
func NewPostgresHomesRepository(db DBTX) *PostgresHomesRepository {
	return &PostgresHomesRepository{db: db}
}

var _ HomesRepository = (*PostgresHomesRepository)(nil)

var homeColumns = []string{"id", "label", "token", "revision", "netatmoid", "heatgain", "heatloss", "latitude", "longitude"}

// GetCurrentHome 当前家庭
func (r *PostgresHomesRepository) GetCurrentHome(ctx context.Context, label string) (*domain.Home, error) {
	if label == "" {
		return nil, ErrNotFound
	}
	query := homeLatest.Query(homeColumns, "t.label = $1") + " LIMIT 1"

	var h domain.Home
	err := r.db.QueryRowContext(ctx, query, label).Scan(
		&h.ID,
		&h.Label,
		&h.Token,
		&h.Revision,
		&h.RelayID,
		&h.HeatGain,
		&h.HeatLoss,
		&h.Latitude,
		&h.Longitude,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get home: %w", err)
	}
	return &h, nil
}

// GetRelay 中继设备
func (r *PostgresHomesRepository) GetRelay(ctx context.Context, relayID int64) (*domain.Relay, error) {
	var relay domain.Relay
	err := r.db.QueryRowContext(ctx,
		`SELECT id, refreshtoken FROM netatmodevice WHERE id = $1`, relayID,
	).Scan(&relay.ID, &relay.RefreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get relay: %w", err)
	}
	return &relay, nil
}

// CreateRelay 创建中继设备
func (r *PostgresHomesRepository) CreateRelay(ctx context.Context, refreshToken string) (int64, error) {
	if refreshToken == "" {
		return 0, fmt.Errorf("refresh token is required")
	}
	var id int64
	if err := r.db.QueryRowContext(ctx,
		`INSERT INTO netatmodevice (refreshtoken) VALUES ($1) RETURNING id`, refreshToken,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to create relay: %w", err)
	}
	return id, nil
}

// CreateHome 插入新版本
func (r *PostgresHomesRepository) CreateHome(ctx context.Context, home *domain.Home) (int64, error) {
	if home.Label == "" {
		return 0, fmt.Errorf("label is required")
	}
	query := `
		INSERT INTO home (label, token, revision, netatmoid, heatgain, heatloss, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		home.Label, home.Token, home.Revision, home.RelayID,
		home.HeatGain, home.HeatLoss, home.Latitude, home.Longitude,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create home: %w", err)
	}
	home.ID = id
	return id, nil
}
