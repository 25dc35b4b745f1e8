package service

import "province_quota/internal/model"

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID int64
	Role   string
}

func (a Actor) IsAdmin() bool {
	return a.Role == model.RoleAdmin
}

// CanManage reports whether the actor may modify the given user's account.
func (a Actor) CanManage(userID int64) bool {
	return a.UserID == userID || a.IsAdmin()
}
