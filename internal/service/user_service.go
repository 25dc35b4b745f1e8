package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"province_quota/internal/apperr"
	"province_quota/internal/logging"
	"province_quota/internal/model"
	"province_quota/internal/repository"
	"province_quota/internal/utils"

	"github.com/pkg/errors"
)

// UserService provides profile operations
type UserService interface {
	GetMe(ctx context.Context, actor Actor) (*model.User, error)
	GetUser(ctx context.Context, userID int64) (*model.User, error)
	ChangePassword(ctx context.Context, actor Actor, userID int64, req model.ChangePasswordRequest) error
	UpdateProfile(ctx context.Context, actor Actor, userID int64, req model.UpdateUserRequest) (*model.User, error)
}

type userService struct {
	store      repository.Store
	bcryptCost int
	logger     *slog.Logger
}

// NewUserService creates a new UserService
func NewUserService(store repository.Store, bcryptCost int, logger *slog.Logger) UserService {
	if bcryptCost == 0 {
		bcryptCost = utils.DefaultBcryptCost
	}
	return &userService{store: store, bcryptCost: bcryptCost, logger: logger}
}

func (s *userService) GetMe(ctx context.Context, actor Actor) (*model.User, error) {
	user, err := s.store.Repos().Users.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load user")
	}
	if user == nil {
		return nil, apperr.ErrUnauthorized
	}
	return user, nil
}

func (s *userService) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.store.Repos().Users.FindByID(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load user")
	}
	if user == nil {
		return nil, apperr.ErrUserNotFound
	}
	return user, nil
}

// ChangePassword verifies the current password and stores a new hash
func (s *userService) ChangePassword(ctx context.Context, actor Actor, userID int64, req model.ChangePasswordRequest) error {
	if !actor.CanManage(userID) {
		return apperr.ErrForbidden
	}

	newHash, err := utils.HashPasswordWithCost(req.NewPassword, s.bcryptCost)
	if err != nil {
		return errors.Wrap(err, "failed to hash password")
	}

	err = s.store.WithTx(ctx, func(repos repository.Repositories) error {
		user, err := repos.Users.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return apperr.ErrUserNotFound
		}
		if !utils.CheckPasswordHash(req.CurrentPassword, user.PasswordHash) {
			return apperr.ErrIncorrectPassword
		}
		return repos.Users.UpdatePassword(ctx, userID, newHash)
	})
	if err != nil {
		if _, ok := apperr.From(err); ok {
			return err
		}
		return errors.Wrap(err, "failed to change password")
	}

	logging.FromContext(ctx, s.logger).Info("password changed",
		slog.Int64("user_id", userID), slog.Int64("actor_id", actor.UserID))
	return nil
}

// UpdateProfile applies the non-nil fields of req. A new address may not
// match any province the user already targets.
func (s *userService) UpdateProfile(ctx context.Context, actor Actor, userID int64, req model.UpdateUserRequest) (*model.User, error) {
	if !actor.CanManage(userID) {
		return nil, apperr.ErrForbidden
	}

	var updated *model.User
	err := s.store.WithTx(ctx, func(repos repository.Repositories) error {
		// Same lock AddTargetProvince takes, so targets cannot change underneath the address check.
		found, err := repos.Users.LockByID(ctx, userID)
		if err != nil {
			return err
		}
		if !found {
			return apperr.ErrUserNotFound
		}
		user, err := repos.Users.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return apperr.ErrUserNotFound
		}

		addressChanged := false
		if req.CitizenID != nil {
			user.CitizenID = *req.CitizenID
		}
		if req.Email != nil {
			user.Email = strings.TrimSpace(*req.Email)
		}
		if req.FirstName != nil {
			user.FirstName = *req.FirstName
		}
		if req.LastName != nil {
			user.LastName = *req.LastName
		}
		if req.PhoneNumber != nil {
			user.PhoneNumber = *req.PhoneNumber
		}
		if req.CurrentAddress != nil && *req.CurrentAddress != user.CurrentAddress {
			user.CurrentAddress = *req.CurrentAddress
			addressChanged = true
		}

		if err := checkUserUnique(ctx, repos.Users, user.ID, user.CitizenID, user.PhoneNumber, user.Email); err != nil {
			return err
		}

		if addressChanged {
			targets, err := repos.UserProvinces.ListProvincesByUser(ctx, userID)
			if err != nil {
				return err
			}
			for _, p := range targets {
				if ClassifyAddressConflict(p.Name, user.CurrentAddress) {
					return apperr.ErrAddressConflict.WithMessage(fmt.Sprintf(
						"Cannot change address to '%s' as it matches your target province '%s'", user.CurrentAddress, p.Name))
				}
			}
		}

		user.UpdatedDate = time.Now()
		if err := repos.Users.Update(ctx, user); err != nil {
			return uniqueViolation(err)
		}
		updated = user
		return nil
	})
	if err != nil {
		if _, ok := apperr.From(err); ok {
			return nil, err
		}
		return nil, errors.Wrap(err, "failed to update user")
	}

	logging.FromContext(ctx, s.logger).Info("user profile updated",
		slog.Int64("user_id", userID), slog.Int64("actor_id", actor.UserID))
	return updated, nil
}
