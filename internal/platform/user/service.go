package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kislikjeka/agrovest/pkg/logger"
)

// Service handles user business logic
type Service struct {
	repo    Repository
	tx      Transactor
	wallets WalletCreator
	guard   DeletionGuard
	logger  *logger.Logger
}

// NewService creates a new user service
func NewService(repo Repository, tx Transactor, wallets WalletCreator, guard DeletionGuard, log *logger.Logger) *Service {
	return &Service{
		repo:    repo,
		tx:      tx,
		wallets: wallets,
		guard:   guard,
		logger:  log,
	}
}

// Register creates the user and their zero-balance wallet in one transaction
func (s *Service) Register(ctx context.Context, email, fullName, password string) (*User, error) {
	now := time.Now()
	user := &User{
		ID:        uuid.New(),
		Email:     NormalizeEmail(email),
		FullName:  fullName,
		Role:      RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := user.ValidateEmail(); err != nil {
		return nil, err
	}

	// Hash password
	if err := user.SetPassword(password); err != nil {
		return nil, err
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		exists, err := s.repo.Exists(ctx, user.Email)
		if err != nil {
			return fmt.Errorf("failed to check if user exists: %w", err)
		}
		if exists {
			return ErrUserAlreadyExists
		}

		if err := s.repo.Create(ctx, user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		if _, err := s.wallets.Create(ctx, user.ID); err != nil {
			return fmt.Errorf("failed to create wallet: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Login authenticates a user with email and password
func (s *Service) Login(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Don't reveal that the user doesn't exist
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user.IsDeleted() {
		return nil, ErrInvalidCredentials
	}

	if err := user.CheckPassword(password); err != nil {
		return nil, err
	}

	user.UpdateLastLogin()
	if err := s.repo.Update(ctx, user); err != nil {
		s.logger.WithError(err).Warn("failed to update last login", "user_id", user.ID)
	}

	return user, nil
}

// GetByID retrieves a user by ID
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByEmail retrieves a user by email
func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.GetByEmail(ctx, NormalizeEmail(email))
}

// SetRole changes the role of the user with the given email
func (s *Service) SetRole(ctx context.Context, email string, role Role) (*User, error) {
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}

	user, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user.IsDeleted() {
		return nil, ErrUserDeleted
	}

	user.Role = role
	user.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}
	return user, nil
}

// Delete anonymizes a user. It is refused while the user still has a
// non-zero balance, an active position or a pending ledger entry.
// Wallet, positions and ledger history are kept.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		user, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if user.IsDeleted() {
			return ErrUserDeleted
		}

		if err := s.guard.CheckDeletable(ctx, id); err != nil {
			return err
		}

		user.Anonymize(time.Now())
		if err := s.repo.Update(ctx, user); err != nil {
			return fmt.Errorf("failed to anonymize user: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("user deleted", "user_id", id)
	return nil
}
