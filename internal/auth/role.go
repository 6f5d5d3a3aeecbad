package auth

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleBuyer, RoleSeller, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Authorization decisions live here and nowhere else.

func CanManageProduct(role Role, isOwner bool) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleSeller:
		return isOwner
	default:
		return false
	}
}

func CanCreateProduct(role Role) bool {
	return role == RoleSeller || role == RoleAdmin
}

func CanSetOrderStatus(role Role) bool {
	return role == RoleAdmin
}

func CanCancelOrder(role Role, isOwner bool) bool {
	return isOwner || role == RoleAdmin
}

func CanViewOrder(role Role, isOwner bool) bool {
	return isOwner || role == RoleAdmin
}

func CanListAllOrders(role Role) bool {
	return role == RoleAdmin
}

func CanManageInvoices(role Role) bool {
	return role == RoleAdmin
}

// CanSelfRegister reports whether a role may be chosen at sign-up.
func CanSelfRegister(role Role) bool {
	return role == RoleBuyer || role == RoleSeller
}

// Actor is the verified identity performing an operation.
type Actor struct {
	UserID int64
	Role   Role
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

func (a Actor) Owns(userID int64) bool { return a.UserID == userID }
