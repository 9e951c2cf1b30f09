package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chai-api/internal/domain"
	"chai-api/internal/repository"
)

// lookupHome 当前家庭，并校验调用方的 home token
func lookupHome(ctx context.Context, homes repository.HomesRepository, label, user string) (*domain.Home, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, invalid("label", "label is required")
	}
	if user == "" {
		user = domain.AnonymousUser
	}
	home, err := homes.GetCurrentHome(ctx, label)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnknownHome
		}
		return nil, fmt.Errorf("failed to load home: %w", err)
	}
	if !home.Authorize(user) {
		return nil, ErrUnknownHome
	}
	return home, nil
}
