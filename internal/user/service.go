package user

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"ms-booking/internal/apperror"
	"ms-booking/internal/auth"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"

	"github.com/google/uuid"
)

const minPasswordLength = 8

type Store interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	CreateUser(ctx context.Context, u *models.User) error
}

type TokenIssuer interface {
	Issue(user models.User) (string, time.Time, error)
}

type Service struct {
	store  Store
	tokens TokenIssuer
	logger *logger.Logger
}

func NewService(store Store, tokens TokenIssuer, log *logger.Logger) *Service {
	return &Service{store: store, tokens: tokens, logger: log}
}

// Register creates a local account with role USER.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if req.Username == "" {
		return nil, apperror.NewValidation("username is required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, apperror.NewValidation("a valid email is required")
	}
	if len(req.Password) < minPasswordLength {
		return nil, apperror.NewValidation(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	taken, err := s.store.ExistsByUsernameOrEmail(ctx, req.Username, req.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperror.NewValidation("username or email already registered")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperror.NewInternal("failed to hash password", err)
	}

	u := &models.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         models.RoleUser,
		AuthProvider: models.AuthProviderLocal,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.LogSecurity("REGISTER", fmt.Sprintf("user %s registered", u.ID))
	return u, nil
}

// Login checks local credentials and issues an access token.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.TokenResponse, error) {
	u, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, apperror.ErrUserNotFound) {
			s.logger.LogSecurity("LOGIN_FAILED", fmt.Sprintf("unknown username %q", req.Username))
			return nil, apperror.NewUnauthorized("invalid username or password")
		}
		return nil, err
	}

	if u.AuthProvider != models.AuthProviderLocal || !auth.CheckPasswordHash(req.Password, u.PasswordHash) {
		s.logger.LogSecurity("LOGIN_FAILED", fmt.Sprintf("bad credentials for user %s", u.ID))
		return nil, apperror.NewUnauthorized("invalid username or password")
	}

	token, expiresAt, err := s.tokens.Issue(*u)
	if err != nil {
		return nil, apperror.NewInternal("failed to issue token", err)
	}

	s.logger.LogSecurity("LOGIN", fmt.Sprintf("user %s logged in", u.ID))
	return &models.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		User:        *u,
	}, nil
}

// GetUser resolves a caller to a known user.
func (s *Service) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.store.GetUserByID(ctx, id)
}
