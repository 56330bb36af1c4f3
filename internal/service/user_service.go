package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-bot/internal/domain"
	"github.com/spec-kit/helpdesk-bot/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-bot/pkg/util"
)

// Sender is the raw sender metadata extracted from an inbound update.
type Sender struct {
	ExternalID  string
	DisplayName string
	Username    string
}

// UserService resolves platform senders to internal identities.
type UserService struct {
	users  repository.UserRepository
	logger *zap.Logger
}

// NewUserService constructs the service.
func NewUserService(users repository.UserRepository, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, logger: logger}
}

// EnsureUser returns the internal user for the sender, creating it on first
// contact.
func (s *UserService) EnsureUser(ctx context.Context, sender Sender) (*domain.User, error) {
	user, err := s.users.GetByExternalID(ctx, sender.ExternalID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewPersistenceError("failed to look up user", err)
	}

	user = &domain.User{
		ExternalID:  sender.ExternalID,
		DisplayName: sender.DisplayName,
		Username:    sender.Username,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.NewPersistenceError("failed to create user", err)
	}
	s.logger.Info("registered user",
		zap.String("user_id", user.ID),
		zap.String("external_id", user.ExternalID))
	return user, nil
}

// FindByExternalID returns the user when known, nil otherwise.
func (s *UserService) FindByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	user, err := s.users.GetByExternalID(ctx, externalID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to look up user", err)
	}
	return user, nil
}
