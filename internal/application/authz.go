package application

import "github.com/oksasatya/go-ddd-ecommerce/internal/domain/entity"

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID string
	Role   entity.Role
}

func (a Actor) IsAdmin() bool { return a.Role == entity.RoleAdmin }

// CanMutate is the single ownership rule: admins may change anything,
// everyone else only what they own.
func CanMutate(a Actor, ownerID string) bool {
	return a.IsAdmin() || (a.UserID != "" && a.UserID == ownerID)
}
