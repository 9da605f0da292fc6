package iam

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Migorithm/IAM/core/bus"
)

// CreateUser provisions a new user with the default permission set.
type CreateUser struct {
	bus.BaseCommand
	Name  string
	Email string
}

// MakePurchase records a paid upgrade and chains the permission grant it
// buys. With GroupPurchase set it targets the group, otherwise the user.
type MakePurchase struct {
	bus.BaseCommand
	UserID          uuid.UUID
	GroupID         uuid.UUID
	RequestedAccess []AccessPermission
	Amount          decimal.Decimal
	GroupPurchase   bool
}

// AssignPermission grants access bits to a user directly, without a
// purchase. Issued by admins or chained from MakePurchase.
type AssignPermission struct {
	bus.BaseCommand
	UserID          uuid.UUID
	RequestedAccess []AccessPermission
}

// ExpirePermission revokes previously granted access bits from a user.
type ExpirePermission struct {
	bus.BaseCommand
	UserID             uuid.UUID
	ExpiredPermissions []AccessPermission
}

// RequestCreateGroup asks on behalf of a user that a group be created.
// The group itself is a separate aggregate, so this only records the
// request; the group materializes through the internal backlog.
type RequestCreateGroup struct {
	bus.BaseCommand
	UserID uuid.UUID
	Name   string
}

// CreateGroup constructs the group aggregate. GroupID is supplied by the
// caller (normally carried over from the originating request event).
type CreateGroup struct {
	bus.BaseCommand
	Name    string
	UserID  uuid.UUID
	GroupID uuid.UUID
}

// CreateGroupRole adds a named role with group-management permissions.
type CreateGroupRole struct {
	bus.BaseCommand
	GroupID          uuid.UUID
	RoleName         string
	GroupPermissions []GroupPermission
}

// AddUser enrolls a user as a member of a group under the default role.
type AddUser struct {
	bus.BaseCommand
	UserID  uuid.UUID
	GroupID uuid.UUID
}

// AssignGroupRole moves an existing member onto a named role of the group.
type AssignGroupRole struct {
	bus.BaseCommand
	UserID   uuid.UUID
	GroupID  uuid.UUID
	RoleName string
}
