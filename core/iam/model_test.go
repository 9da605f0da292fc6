package iam

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Migorithm/IAM/core/es"
)

func TestPermissionBits(t *testing.T) {
	p := AccessDefault
	require.False(t, p.Has(AccessAcademic))

	p.Grant(AccessAcademic, AccessPDF)
	require.True(t, p.Has(AccessAcademic))
	require.True(t, p.Has(AccessAcademic, AccessPDF))
	require.False(t, p.Has(AccessAcademic, AccessGPU))
	require.ElementsMatch(t, []AccessPermission{AccessAcademic, AccessPDF}, p.List())

	// granting a held bit is a no-op
	p.Grant(AccessAcademic)
	require.Len(t, p.List(), 2)

	p.Revoke(AccessAcademic)
	require.False(t, p.Has(AccessAcademic))
	require.True(t, p.Has(AccessPDF))

	// revoking an absent bit is a no-op
	p.Revoke(AccessGPU)
	require.Len(t, p.List(), 1)
}

func TestCreateUser(t *testing.T) {
	user, err := NewUser(CreateUser{Name: "Migo", Email: "whatsoever@mail.com"})
	require.NoError(t, err)

	require.Equal(t, "Migo", user.Name)
	require.Equal(t, "whatsoever@mail.com", user.Email)
	require.Equal(t, AccessDefault, user.Permissions)
	require.False(t, user.EmailVerified)
	require.Equal(t, es.Version(1), user.Version)
	require.Equal(t, 1, user.PendingCount())
}

func TestUser_MakePurchase(t *testing.T) {
	user, err := NewUser(CreateUser{Name: "Migo"})
	require.NoError(t, err)

	require.NoError(t, user.MakePurchase(MakePurchase{
		RequestedAccess: []AccessPermission{AccessAcademic},
		Amount:          decimal.NewFromInt(50),
	}))

	// creation + purchase + chained grant
	events := es.Collect(user)
	require.Len(t, events, 3)
	require.IsType(t, &UserPermissionAssigned{}, events[2])
	require.True(t, user.Permissions.Has(AccessAcademic))
}

func TestUser_GroupPurchaseDoesNotChain(t *testing.T) {
	user, err := NewUser(CreateUser{Name: "Migo"})
	require.NoError(t, err)

	require.NoError(t, user.MakePurchase(MakePurchase{
		RequestedAccess: []AccessPermission{AccessChemistry},
		GroupPurchase:   true,
	}))

	events := es.Collect(user)
	require.Len(t, events, 2)
	require.IsType(t, &UserPurchaseMade{}, events[1])
	require.False(t, user.Permissions.Has(AccessChemistry))
}

func TestUser_ExpirePermission(t *testing.T) {
	user, err := NewUser(CreateUser{Name: "Migo"})
	require.NoError(t, err)
	require.NoError(t, user.MakePurchase(MakePurchase{
		RequestedAccess: []AccessPermission{AccessAcademic},
	}))
	require.True(t, user.Permissions.Has(AccessAcademic))

	require.NoError(t, user.ExpirePermission(ExpirePermission{
		ExpiredPermissions: []AccessPermission{AccessAcademic},
	}))

	require.Equal(t, 4, user.PendingCount())
	require.False(t, user.Permissions.Has(AccessAcademic))
}

func TestUser_RequestCreateGroup(t *testing.T) {
	user, err := NewUser(CreateUser{Name: "Migo"})
	require.NoError(t, err)

	require.NoError(t, user.RequestCreateGroup(RequestCreateGroup{Name: "SVB"}))

	events := es.Collect(user)
	require.Len(t, events, 2)
	requested, ok := events[1].(*GroupCreateRequested)
	require.True(t, ok)
	require.Equal(t, "SVB", requested.Name)
	require.Equal(t, user.ID, requested.UserID)
	require.NotEqual(t, uuid.Nil, requested.GroupID)
	require.True(t, es.IsInternallyNotifiable(requested))

	// the user keeps a reference to the group it asked for
	require.Equal(t, []uuid.UUID{requested.GroupID}, user.Groups)
}

func TestCreateGroup(t *testing.T) {
	userID, groupID := uuid.New(), uuid.New()
	group, err := NewGroup(CreateGroup{Name: "Migos", UserID: userID, GroupID: groupID})
	require.NoError(t, err)

	require.Equal(t, groupID, group.ID)
	require.Equal(t, userID, group.CreatedBy)
	require.Equal(t, "Migos", group.Name)
	require.Equal(t, 1, group.PendingCount())

	// "default" and "owner" roles are seeded on creation
	require.Len(t, group.Roles, 2)
	def, ok := group.Role("default")
	require.True(t, ok)
	require.True(t, def.GroupPermissions.Has(GroupDefault))
	require.False(t, def.GroupPermissions.Has(GroupAdmin))

	owner, ok := group.Role("owner")
	require.True(t, ok)
	require.True(t, owner.GroupPermissions.Has(GroupAdmin, GroupAddUser, GroupRemoveUser))
}

func TestGroup_MakePurchase(t *testing.T) {
	group, err := NewGroup(CreateGroup{Name: "Migos", UserID: uuid.New(), GroupID: uuid.New()})
	require.NoError(t, err)

	require.NoError(t, group.MakePurchase(MakePurchase{
		GroupPurchase:   true,
		RequestedAccess: []AccessPermission{AccessChemistry},
	}))
	require.Equal(t, 3, group.PendingCount())
	require.True(t, group.Permissions.Has(AccessChemistry))

	// a user-level purchase does not belong on a group
	err = group.MakePurchase(MakePurchase{
		GroupPurchase:   false,
		RequestedAccess: []AccessPermission{AccessChemistry},
	})
	require.ErrorIs(t, err, ErrInvalidOperation)
}

func TestGroup_CreateRole(t *testing.T) {
	group, err := NewGroup(CreateGroup{Name: "Migos", UserID: uuid.New(), GroupID: uuid.New()})
	require.NoError(t, err)

	require.NoError(t, group.CreateRole(CreateGroupRole{
		RoleName:         "manager",
		GroupPermissions: []GroupPermission{GroupAddUser},
	}))
	require.Equal(t, 2, group.PendingCount())

	role, ok := group.Role("manager")
	require.True(t, ok)
	require.True(t, role.GroupPermissions.Has(GroupAddUser))
	require.False(t, role.GroupPermissions.Has(GroupAdmin))

	// creating an existing role leaves it untouched
	require.NoError(t, group.CreateRole(CreateGroupRole{
		RoleName:         "manager",
		GroupPermissions: []GroupPermission{GroupAdmin},
	}))
	role, _ = group.Role("manager")
	require.False(t, role.GroupPermissions.Has(GroupAdmin))
}

func TestGroup_AddUser(t *testing.T) {
	group, err := NewGroup(CreateGroup{Name: "Migos", UserID: uuid.New(), GroupID: uuid.New()})
	require.NoError(t, err)

	userID := uuid.New()
	require.NoError(t, group.AddUser(AddUser{UserID: userID}))
	require.Equal(t, 2, group.PendingCount())

	member, ok := group.Member(userID)
	require.True(t, ok)
	require.Equal(t, "default", member.RoleName)

	// enrolling twice is a no-op
	require.NoError(t, group.AddUser(AddUser{UserID: userID}))
	require.Equal(t, 2, group.PendingCount())
	require.Len(t, group.Members, 1)
}

func TestGroup_AssignRole(t *testing.T) {
	group, err := NewGroup(CreateGroup{Name: "Migos", UserID: uuid.New(), GroupID: uuid.New()})
	require.NoError(t, err)

	userID := uuid.New()
	require.NoError(t, group.AddUser(AddUser{UserID: userID}))

	// both the member and the role must exist
	err = group.AssignRole(AssignGroupRole{UserID: uuid.New(), RoleName: "owner"})
	require.ErrorIs(t, err, ErrInvalidOperation)
	err = group.AssignRole(AssignGroupRole{UserID: userID, RoleName: "nope"})
	require.ErrorIs(t, err, ErrInvalidOperation)

	require.NoError(t, group.AssignRole(AssignGroupRole{UserID: userID, RoleName: "owner"}))
	member, _ := group.Member(userID)
	require.Equal(t, "owner", member.RoleName)
}

// Role ids are deterministic, so a replayed group equals the live one.
func TestGroup_ReplayEquivalence(t *testing.T) {
	group, err := NewGroup(CreateGroup{Name: "Migos", UserID: uuid.New(), GroupID: uuid.New()})
	require.NoError(t, err)
	require.NoError(t, group.CreateRole(CreateGroupRole{
		RoleName:         "manager",
		GroupPermissions: []GroupPermission{GroupAddUser},
	}))

	var replayed es.Aggregate
	for _, ev := range es.Collect(group) {
		replayed, err = es.Mutate(ev, replayed)
		require.NoError(t, err)
	}

	require.Equal(t, group.Roles, replayed.(*Group).Roles)
	require.Equal(t, group.Name, replayed.(*Group).Name)
	require.Equal(t, group.Version, replayed.(*Group).Version)
}
