package handler

import (
	"strconv"

	"province_quota/internal/apperr"
	"province_quota/internal/middleware"
	"province_quota/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var errNoRoute = apperr.ErrNotFound.WithMessage("Not Found")

func respondError(c *gin.Context, err error) {
	middleware.AbortWithError(c, err)
}

// bindingError turns a gin binding failure into a VALIDATION_FAILED error that
// names the first offending field.
func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperr.ErrValidation.WithMessage("Invalid value for field '" + fe.Field() + "' (" + fe.Tag() + ")")
	}
	return apperr.ErrValidation.WithMessage("Invalid request body")
}

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.ErrValidation.WithMessage("Invalid " + name)
	}
	return id, nil
}

// actorFrom returns the caller loaded by the JWT middleware.
func actorFrom(c *gin.Context) (service.Actor, error) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return service.Actor{}, apperr.ErrUnauthorized
	}
	return service.Actor{UserID: user.ID, Role: user.Role}, nil
}
