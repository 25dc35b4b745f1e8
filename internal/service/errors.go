package service

import (
	"context"

	"province_quota/internal/apperr"
	"province_quota/internal/model"
	"province_quota/internal/repository"
)

// uniqueViolation maps a repository unique-constraint failure onto the
// matching conflict error. Other errors are returned unchanged.
func uniqueViolation(err error) error {
	constraint, ok := repository.DuplicateConstraint(err)
	if !ok {
		return err
	}
	switch constraint {
	case repository.ConstraintUserCitizenID:
		return apperr.ErrCitizenIDExists
	case repository.ConstraintUserPhoneNumber:
		return apperr.ErrPhoneNumberExists
	case repository.ConstraintUserEmail:
		return apperr.ErrEmailExists
	case repository.ConstraintProvinceName:
		return apperr.ErrProvinceNameExists
	case repository.ConstraintUserProvinceLink:
		return apperr.ErrDuplicateAssignment
	}
	return err
}

// checkUserUnique returns the first conflict in citizen ID, phone, email
// order. selfID is the user being updated, or 0 for a new account.
func checkUserUnique(ctx context.Context, users repository.UserRepository, selfID int64, citizenID, phone, email string) error {
	taken := func(u *model.User) bool {
		return u != nil && u.ID != selfID
	}

	u, err := users.FindByCitizenID(ctx, citizenID)
	if err != nil {
		return err
	}
	if taken(u) {
		return apperr.ErrCitizenIDExists
	}

	if u, err = users.FindByPhone(ctx, phone); err != nil {
		return err
	}
	if taken(u) {
		return apperr.ErrPhoneNumberExists
	}

	if u, err = users.FindByEmail(ctx, email); err != nil {
		return err
	}
	if taken(u) {
		return apperr.ErrEmailExists
	}
	return nil
}
