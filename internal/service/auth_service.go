package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"province_quota/internal/apperr"
	"province_quota/internal/logging"
	"province_quota/internal/metrics"
	"province_quota/internal/model"
	"province_quota/internal/repository"
	"province_quota/internal/utils"

	"github.com/pkg/errors"
)

const tokenTypeBearer = "Bearer"

// AuthService provides registration and token related services
type AuthService interface {
	Register(ctx context.Context, req model.RegisterUserRequest) (*model.User, error)
	Authenticate(ctx context.Context, username, password string) (*model.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*model.Token, error)
	// ResolveAccessToken returns the user an access token belongs to.
	ResolveAccessToken(ctx context.Context, accessToken string) (*model.User, error)
}

// AuthOptions carries registration settings from configuration.
type AuthOptions struct {
	InitialAdminPhone string
	BcryptCost        int
}

type authService struct {
	store      repository.Store
	accessJWT  *utils.JWTUtil
	refreshJWT *utils.JWTUtil
	opts       AuthOptions
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(store repository.Store, accessJWT, refreshJWT *utils.JWTUtil, opts AuthOptions, m *metrics.Metrics, logger *slog.Logger) AuthService {
	return &authService{
		store:      store,
		accessJWT:  accessJWT,
		refreshJWT: refreshJWT,
		opts:       opts,
		metrics:    m,
		logger:     logger,
	}
}

// Register creates a new user account
func (s *authService) Register(ctx context.Context, req model.RegisterUserRequest) (*model.User, error) {
	logger := logging.FromContext(ctx, s.logger)

	hashedPassword, err := utils.HashPasswordWithCost(req.Password, s.bcryptCost())
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password")
	}

	role := model.RoleUser
	if s.opts.InitialAdminPhone != "" && req.PhoneNumber == s.opts.InitialAdminPhone {
		role = model.RoleAdmin
		logger.Info("registering user as admin via INITIAL_ADMIN_PHONE")
	}

	now := time.Now()
	user := &model.User{
		CitizenID:      req.CitizenID,
		Email:          strings.TrimSpace(req.Email),
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		PhoneNumber:    req.PhoneNumber,
		CurrentAddress: req.CurrentAddress,
		PasswordHash:   hashedPassword,
		Role:           role,
		RegisterDate:   now,
		UpdatedDate:    now,
	}

	err = s.store.WithTx(ctx, func(repos repository.Repositories) error {
		if err := checkUserUnique(ctx, repos.Users, 0, user.CitizenID, user.PhoneNumber, user.Email); err != nil {
			return err
		}
		return uniqueViolation(repos.Users.Create(ctx, user))
	})
	if err != nil {
		if _, ok := apperr.From(err); ok {
			return nil, err
		}
		return nil, errors.Wrap(err, "failed to register user")
	}

	s.metrics.IncrementRegistration()
	logger.Info("user registered", slog.Int64("user_id", user.ID), slog.String("role", user.Role))
	return user, nil
}

// Authenticate looks the user up by citizen ID, then phone number, and issues a token pair
func (s *authService) Authenticate(ctx context.Context, username, password string) (*model.Token, error) {
	users := s.store.Repos().Users

	user, err := users.FindByCitizenID(ctx, username)
	if err != nil {
		return nil, errors.Wrap(err, "error finding user by citizen ID")
	}
	if user == nil {
		if user, err = users.FindByPhone(ctx, username); err != nil {
			return nil, errors.Wrap(err, "error finding user by phone")
		}
	}
	if user == nil || !utils.CheckPasswordHash(password, user.PasswordHash) {
		s.metrics.IncrementLogin(metrics.LoginFailure)
		return nil, apperr.ErrInvalidCredentials
	}

	now := time.Now()
	if err := users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, errors.Wrap(err, "failed to record login")
	}

	token, err := s.issueTokens(user, now)
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementLogin(metrics.LoginSuccess)
	logging.FromContext(ctx, s.logger).Info("user logged in", slog.Int64("user_id", user.ID))
	return token, nil
}

// Refresh exchanges a valid refresh token for a new token pair
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*model.Token, error) {
	claims, err := s.refreshJWT.ValidateToken(refreshToken)
	if err != nil {
		logging.FromContext(ctx, s.logger).Debug("refresh token rejected", slog.Any("error", err))
		return nil, apperr.ErrUnauthorized
	}
	user, err := s.store.Repos().Users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load user")
	}
	if user == nil {
		return nil, apperr.ErrUnauthorized
	}
	return s.issueTokens(user, time.Now())
}

func (s *authService) ResolveAccessToken(ctx context.Context, accessToken string) (*model.User, error) {
	claims, err := s.accessJWT.ValidateToken(accessToken)
	if err != nil {
		logging.FromContext(ctx, s.logger).Debug("access token rejected", slog.Any("error", err))
		return nil, apperr.ErrUnauthorized
	}
	user, err := s.store.Repos().Users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load user")
	}
	if user == nil {
		return nil, apperr.ErrUnauthorized
	}
	return user, nil
}

func (s *authService) issueTokens(user *model.User, issuedAt time.Time) (*model.Token, error) {
	access, accessClaims, err := s.accessJWT.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate access token")
	}
	refresh, _, err := s.refreshJWT.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate refresh token")
	}
	return &model.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    s.accessJWT.ExpirationMinutes(),
		ExpiresAt:    accessClaims.ExpiresAt.Time,
		Scope:        "",
		IssuedAt:     issuedAt,
		UserID:       user.ID,
	}, nil
}

func (s *authService) bcryptCost() int {
	if s.opts.BcryptCost == 0 {
		return utils.DefaultBcryptCost
	}
	return s.opts.BcryptCost
}
