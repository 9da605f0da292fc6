package iam

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Migorithm/IAM/core/es"
)

// User is the per-person authorization aggregate: identity, contact fields,
// the held permission mask, and references to the groups the user created.
type User struct {
	es.AggregateRoot
	Name          string
	Email         string
	EmailVerified bool
	Permissions   AccessPermission
	Groups        []uuid.UUID
}

// NewUser builds the aggregate from a CreateUser command, pending its
// creation event.
func NewUser(cmd CreateUser) (*User, error) {
	agg, err := es.Create(&UserCreated{
		Name:        cmd.Name,
		Email:       cmd.Email,
		Permissions: AccessDefault,
	})
	if err != nil {
		return nil, err
	}
	return agg.(*User), nil
}

// MakePurchase records the purchase and, unless it is a group-level
// purchase, chains the permission grant it pays for.
func (u *User) MakePurchase(cmd MakePurchase) error {
	if err := es.Trigger(u, &UserPurchaseMade{
		RequestedAccess: cmd.RequestedAccess,
		Amount:          cmd.Amount,
	}); err != nil {
		return err
	}
	if cmd.GroupPurchase {
		return nil
	}
	return u.AssignPermission(AssignPermission{RequestedAccess: cmd.RequestedAccess})
}

// AssignPermission grants the requested bits if any are missing.
func (u *User) AssignPermission(cmd AssignPermission) error {
	return es.Trigger(u, &UserPermissionAssigned{RequestedAccess: cmd.RequestedAccess})
}

// ExpirePermission revokes the given bits.
func (u *User) ExpirePermission(cmd ExpirePermission) error {
	return es.Trigger(u, &UserPermissionExpired{ExpiredPermissions: cmd.ExpiredPermissions})
}

// RequestCreateGroup records that the user asked for a group. The group id
// is decided here so the eventual group aggregate and the user's reference
// to it agree.
func (u *User) RequestCreateGroup(cmd RequestCreateGroup) error {
	return es.Trigger(u, &GroupCreateRequested{
		Name:    cmd.Name,
		UserID:  u.ID,
		GroupID: uuid.New(),
	})
}

// UserCreated constructs a User at version 1.
type UserCreated struct {
	es.EventMeta
	Name        string           `json:"name"`
	Email       string           `json:"email"`
	Permissions AccessPermission `json:"permissions"`
}

func (*UserCreated) Topic() string              { return "user.created" }
func (*UserCreated) New() es.Aggregate          { return &User{} }
func (*UserCreated) ExternallyNotifiable() bool { return true }

func (e *UserCreated) Apply(agg es.Aggregate) error {
	u, err := asUser(agg)
	if err != nil {
		return err
	}
	u.Name = e.Name
	u.Email = e.Email
	u.Permissions = e.Permissions
	return nil
}

// UserPurchaseMade records the purchase itself; the grant it buys arrives
// as a separate UserPermissionAssigned event.
type UserPurchaseMade struct {
	es.EventMeta
	RequestedAccess []AccessPermission `json:"requested_access"`
	Amount          decimal.Decimal    `json:"amount"`
}

func (*UserPurchaseMade) Topic() string { return "user.purchase_made" }

func (e *UserPurchaseMade) Apply(agg es.Aggregate) error {
	_, err := asUser(agg)
	return err
}

type UserPermissionAssigned struct {
	es.EventMeta
	RequestedAccess []AccessPermission `json:"requested_access"`
}

func (*UserPermissionAssigned) Topic() string              { return "user.permission_assigned" }
func (*UserPermissionAssigned) ExternallyNotifiable() bool { return true }

func (e *UserPermissionAssigned) Apply(agg es.Aggregate) error {
	u, err := asUser(agg)
	if err != nil {
		return err
	}
	if !u.Permissions.Has(e.RequestedAccess...) {
		u.Permissions.Grant(e.RequestedAccess...)
	}
	return nil
}

type UserPermissionExpired struct {
	es.EventMeta
	ExpiredPermissions []AccessPermission `json:"expired_permissions"`
}

func (*UserPermissionExpired) Topic() string { return "user.permission_expired" }

func (e *UserPermissionExpired) Apply(agg es.Aggregate) error {
	u, err := asUser(agg)
	if err != nil {
		return err
	}
	u.Permissions.Revoke(e.ExpiredPermissions...)
	return nil
}

// GroupCreateRequested lives on the user's log because the group does not
// exist yet. It is internally notifiable: the bus requeues it after the
// user's transaction commits, and the group-creation handler picks it up.
type GroupCreateRequested struct {
	es.EventMeta
	Name    string    `json:"name"`
	UserID  uuid.UUID `json:"user_id"`
	GroupID uuid.UUID `json:"group_id"`
}

func (*GroupCreateRequested) Topic() string              { return "user.group_create_requested" }
func (*GroupCreateRequested) InternallyNotifiable() bool { return true }

func (e *GroupCreateRequested) Apply(agg es.Aggregate) error {
	u, err := asUser(agg)
	if err != nil {
		return err
	}
	u.Groups = append(u.Groups, e.GroupID)
	return nil
}

func asUser(agg es.Aggregate) (*User, error) {
	u, ok := agg.(*User)
	if !ok {
		return nil, fmt.Errorf("%w: want *iam.User, got %T", ErrWrongAggregateType, agg)
	}
	return u, nil
}
