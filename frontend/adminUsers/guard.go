package adminusers

import (
	"strings"

	"stockmaster/infrastructure/apperr"
	"stockmaster/models"
)

var (
	ErrAdminRequired        = apperr.Forbidden("only administrators can manage users")
	ErrProtectedDelete      = apperr.Forbidden("the protected administrator cannot be deleted")
	ErrProtectedEmail       = apperr.Forbidden("the protected administrator's email cannot be changed")
	ErrProtectedDemote      = apperr.Forbidden("the protected administrator cannot be demoted")
	ErrProtectedDeactivate  = apperr.Forbidden("the protected administrator cannot be deactivated")
	ErrProtectedPassword    = apperr.Forbidden("only the protected administrator can change their own password")
	ErrSelfDelete           = apperr.Forbidden("you cannot delete your own account")
	ErrSelfDeactivate       = apperr.Forbidden("you cannot deactivate your own account")
	ErrBatchIncludesBlocked = apperr.Forbidden("batch includes the protected administrator or your own account")
)

// CheckUpdate reports whether actor may apply in to target.
func CheckUpdate(actor models.Actor, target models.User, in UpdateInput) error {
	if actor.Role != models.RoleAdmin {
		return ErrAdminRequired
	}
	if in.Active != nil && !*in.Active && target.ID == actor.UserID {
		return ErrSelfDeactivate
	}
	if !target.Protected {
		return nil
	}
	if in.Email != nil && !strings.EqualFold(strings.TrimSpace(*in.Email), target.Email) {
		return ErrProtectedEmail
	}
	if in.Role != nil && *in.Role != models.RoleAdmin {
		return ErrProtectedDemote
	}
	if in.Active != nil && !*in.Active {
		return ErrProtectedDeactivate
	}
	if in.Password != nil && actor.UserID != target.ID {
		return ErrProtectedPassword
	}
	return nil
}

// CheckDelete reports whether actor may delete target.
func CheckDelete(actor models.Actor, target models.User) error {
	if actor.Role != models.RoleAdmin {
		return ErrAdminRequired
	}
	if target.Protected {
		return ErrProtectedDelete
	}
	if target.ID == actor.UserID {
		return ErrSelfDelete
	}
	return nil
}

// CheckBatchDelete rejects the whole batch when any target is blocked.
func CheckBatchDelete(actor models.Actor, targets []models.User) error {
	if actor.Role != models.RoleAdmin {
		return ErrAdminRequired
	}
	blocked := make([]int64, 0)
	for _, u := range targets {
		if u.Protected || u.ID == actor.UserID {
			blocked = append(blocked, u.ID)
		}
	}
	if len(blocked) > 0 {
		return &apperr.Error{
			Kind:    apperr.KindForbidden,
			Message: ErrBatchIncludesBlocked.Message,
			Details: map[string][]int64{"blocked_ids": blocked},
		}
	}
	return nil
}

// CanReset reports whether actor may trigger destructive resets.
func CanReset(actor models.Actor) bool {
	return actor.Protected && actor.Role == models.RoleAdmin
}
