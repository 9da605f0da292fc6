package iam

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Migorithm/IAM/core/es"
)

// Role is a named permission bundle inside a group. Role ids are derived
// deterministically from the group id and role name so that replaying the
// group's log reproduces them exactly.
type Role struct {
	ID               uuid.UUID
	Name             string
	GroupID          uuid.UUID
	Permissions      AccessPermission
	GroupPermissions GroupPermission
}

func roleID(groupID uuid.UUID, name string) uuid.UUID {
	return uuid.NewSHA1(groupID, []byte(name))
}

// Member links a user to the group through exactly one role.
type Member struct {
	UserID   uuid.UUID
	RoleName string
}

// Group is the shared authorization aggregate: permissions the whole group
// holds, plus roles scoping group-management capabilities per member class.
type Group struct {
	es.AggregateRoot
	Name             string
	CreatedBy        uuid.UUID
	Permissions      AccessPermission
	GroupPermissions GroupPermission
	Roles            []Role
	Members          []Member
}

// NewGroup builds the aggregate from a CreateGroup command, pending its
// creation event. The command supplies the group id so the requesting
// user's reference and the aggregate identity agree.
func NewGroup(cmd CreateGroup) (*Group, error) {
	agg, err := es.Create(&GroupCreated{
		EventMeta: es.EventMeta{AggregateID: cmd.GroupID},
		Name:      cmd.Name,
		CreatedBy: cmd.UserID,
	})
	if err != nil {
		return nil, err
	}
	return agg.(*Group), nil
}

// Role returns the named role, or false if the group has none by that name.
func (g *Group) Role(name string) (Role, bool) {
	for _, r := range g.Roles {
		if r.Name == name {
			return r, true
		}
	}
	return Role{}, false
}

// MakePurchase records a group-level purchase and chains the permission
// grant. Non-group purchases do not belong on this aggregate.
func (g *Group) MakePurchase(cmd MakePurchase) error {
	if !cmd.GroupPurchase {
		return fmt.Errorf("%w: user-level purchase on group %s", ErrInvalidOperation, g.ID)
	}
	if err := es.Trigger(g, &GroupPurchaseMade{
		RequestedAccess: cmd.RequestedAccess,
		Amount:          cmd.Amount,
	}); err != nil {
		return err
	}
	return g.AssignPermission(AssignPermission{RequestedAccess: cmd.RequestedAccess})
}

// AssignPermission grants the requested bits to the whole group.
func (g *Group) AssignPermission(cmd AssignPermission) error {
	return es.Trigger(g, &GroupPermissionAssigned{RequestedAccess: cmd.RequestedAccess})
}

// Member returns the membership of the given user, or false.
func (g *Group) Member(userID uuid.UUID) (Member, bool) {
	for _, m := range g.Members {
		if m.UserID == userID {
			return m, true
		}
	}
	return Member{}, false
}

// AddUser enrolls the user under the "default" role. Adding a user twice
// is a no-op.
func (g *Group) AddUser(cmd AddUser) error {
	if _, ok := g.Member(cmd.UserID); ok {
		return nil
	}
	return es.Trigger(g, &GroupUserAdded{UserID: cmd.UserID})
}

// AssignRole moves an existing member onto the named role. Both the member
// and the role must already exist on the group.
func (g *Group) AssignRole(cmd AssignGroupRole) error {
	if _, ok := g.Member(cmd.UserID); !ok {
		return fmt.Errorf("%w: user %s is not a member of group %s", ErrInvalidOperation, cmd.UserID, g.ID)
	}
	if _, ok := g.Role(cmd.RoleName); !ok {
		return fmt.Errorf("%w: group %s has no role %q", ErrInvalidOperation, g.ID, cmd.RoleName)
	}
	return es.Trigger(g, &GroupRoleAssigned{UserID: cmd.UserID, RoleName: cmd.RoleName})
}

// CreateRole adds a named role carrying the combined group permissions.
func (g *Group) CreateRole(cmd CreateGroupRole) error {
	return es.Trigger(g, &GroupRoleCreated{
		RoleName:         cmd.RoleName,
		GroupPermissions: CombineGroup(cmd.GroupPermissions...),
		GroupID:          g.ID,
	})
}

// GroupCreated constructs a Group at version 1 with the "default" and
// "owner" roles seeded.
type GroupCreated struct {
	es.EventMeta
	Name      string    `json:"name"`
	CreatedBy uuid.UUID `json:"created_by"`
}

func (*GroupCreated) Topic() string              { return "group.created" }
func (*GroupCreated) New() es.Aggregate          { return &Group{} }
func (*GroupCreated) ExternallyNotifiable() bool { return true }

func (e *GroupCreated) Apply(agg es.Aggregate) error {
	g, err := asGroup(agg)
	if err != nil {
		return err
	}
	g.Name = e.Name
	g.CreatedBy = e.CreatedBy
	g.Permissions = AccessDefault
	g.GroupPermissions = GroupDefault
	g.Roles = []Role{
		{ID: roleID(g.ID, "default"), Name: "default", GroupID: g.ID, GroupPermissions: GroupDefault},
		{ID: roleID(g.ID, "owner"), Name: "owner", GroupID: g.ID, GroupPermissions: CombineGroup(
			GroupDefault, GroupAddUser, GroupRemoveUser, GroupGrantAccess, GroupRevokeAccess, GroupAdmin,
		)},
	}
	return nil
}

type GroupPurchaseMade struct {
	es.EventMeta
	RequestedAccess []AccessPermission `json:"requested_access"`
	Amount          decimal.Decimal    `json:"amount"`
}

func (*GroupPurchaseMade) Topic() string { return "group.purchase_made" }

func (e *GroupPurchaseMade) Apply(agg es.Aggregate) error {
	_, err := asGroup(agg)
	return err
}

type GroupPermissionAssigned struct {
	es.EventMeta
	RequestedAccess []AccessPermission `json:"requested_access"`
}

func (*GroupPermissionAssigned) Topic() string              { return "group.permission_assigned" }
func (*GroupPermissionAssigned) ExternallyNotifiable() bool { return true }

func (e *GroupPermissionAssigned) Apply(agg es.Aggregate) error {
	g, err := asGroup(agg)
	if err != nil {
		return err
	}
	if !g.Permissions.Has(e.RequestedAccess...) {
		g.Permissions.Grant(e.RequestedAccess...)
	}
	return nil
}

// GroupRoleCreated appends a role. A role name already present is left
// untouched, keeping the event idempotent under replay.
type GroupRoleCreated struct {
	es.EventMeta
	RoleName         string          `json:"role_name"`
	GroupPermissions GroupPermission `json:"group_permissions"`
	GroupID          uuid.UUID       `json:"group_id"`
}

func (*GroupRoleCreated) Topic() string { return "group.role_created" }

func (e *GroupRoleCreated) Apply(agg es.Aggregate) error {
	g, err := asGroup(agg)
	if err != nil {
		return err
	}
	if _, ok := g.Role(e.RoleName); ok {
		return nil
	}
	g.Roles = append(g.Roles, Role{
		ID:               roleID(e.GroupID, e.RoleName),
		Name:             e.RoleName,
		GroupID:          e.GroupID,
		GroupPermissions: e.GroupPermissions,
	})
	return nil
}

// GroupUserAdded enrolls a member under the "default" role. A user already
// enrolled is left untouched.
type GroupUserAdded struct {
	es.EventMeta
	UserID uuid.UUID `json:"user_id"`
}

func (*GroupUserAdded) Topic() string              { return "group.user_added" }
func (*GroupUserAdded) ExternallyNotifiable() bool { return true }

func (e *GroupUserAdded) Apply(agg es.Aggregate) error {
	g, err := asGroup(agg)
	if err != nil {
		return err
	}
	if _, ok := g.Member(e.UserID); ok {
		return nil
	}
	g.Members = append(g.Members, Member{UserID: e.UserID, RoleName: "default"})
	return nil
}

// GroupRoleAssigned moves a member onto another role. A missing member is
// skipped so the event stays safe to replay.
type GroupRoleAssigned struct {
	es.EventMeta
	UserID   uuid.UUID `json:"user_id"`
	RoleName string    `json:"role_name"`
}

func (*GroupRoleAssigned) Topic() string { return "group.role_assigned" }

func (e *GroupRoleAssigned) Apply(agg es.Aggregate) error {
	g, err := asGroup(agg)
	if err != nil {
		return err
	}
	for i := range g.Members {
		if g.Members[i].UserID == e.UserID {
			g.Members[i].RoleName = e.RoleName
			break
		}
	}
	return nil
}

func asGroup(agg es.Aggregate) (*Group, error) {
	g, ok := agg.(*Group)
	if !ok {
		return nil, fmt.Errorf("%w: want *iam.Group, got %T", ErrWrongAggregateType, agg)
	}
	return g, nil
}
