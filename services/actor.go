package services

import "github.com/Govind-619/WalletDesk/models"

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID   uint
	Role models.Role
}

// IsAdmin reports whether the actor may review requests and adjust wallets.
func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

func requireAdmin(a Actor) error {
	if a.ID == 0 || !a.IsAdmin() {
		return ErrForbidden
	}
	return nil
}
