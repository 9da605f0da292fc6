package iam

// AccessPermission is an additive bitmask of feature-access grants. The
// zero value carries no grants.
type AccessPermission uint32

const (
	AccessPatent AccessPermission = 1 << iota
	AccessElectrical
	AccessClaims
	AccessLegal
	AccessChemistry
	AccessContract
	AccessAcademic
	AccessStatute
	AccessGeneral
	AccessDocs
	AccessPDF
	AccessProject
	AccessGPU
	AccessGPUForDoc
)

// AccessDefault is the permission set of a freshly created user or group.
const AccessDefault AccessPermission = 0

// Has reports whether every given permission bit is set.
func (p AccessPermission) Has(perms ...AccessPermission) bool {
	for _, q := range perms {
		if p&q != q {
			return false
		}
	}
	return true
}

// Grant sets the given permission bits. Already-held bits are a no-op.
func (p *AccessPermission) Grant(perms ...AccessPermission) {
	for _, q := range perms {
		*p |= q
	}
}

// Revoke clears the given permission bits. Absent bits are a no-op.
func (p *AccessPermission) Revoke(perms ...AccessPermission) {
	for _, q := range perms {
		*p &^= q
	}
}

// List returns the individual bits set in p, in ascending bit order.
func (p AccessPermission) List() []AccessPermission {
	var out []AccessPermission
	for q := AccessPatent; q <= AccessGPUForDoc; q <<= 1 {
		if p&q == q {
			out = append(out, q)
		}
	}
	return out
}

// CombineAccess folds the given bits into one mask.
func CombineAccess(perms ...AccessPermission) AccessPermission {
	var p AccessPermission
	p.Grant(perms...)
	return p
}

// GroupPermission is the bitmask of group-management capabilities a role
// carries within its group.
type GroupPermission uint32

const (
	GroupDefault GroupPermission = 1 << iota
	GroupAddUser
	GroupRemoveUser
	GroupGrantAccess
	GroupRevokeAccess
	GroupAdmin
)

func (p GroupPermission) Has(perms ...GroupPermission) bool {
	for _, q := range perms {
		if p&q != q {
			return false
		}
	}
	return true
}

func (p *GroupPermission) Grant(perms ...GroupPermission) {
	for _, q := range perms {
		*p |= q
	}
}

func (p *GroupPermission) Revoke(perms ...GroupPermission) {
	for _, q := range perms {
		*p &^= q
	}
}

func (p GroupPermission) List() []GroupPermission {
	var out []GroupPermission
	for q := GroupDefault; q <= GroupAdmin; q <<= 1 {
		if p&q == q {
			out = append(out, q)
		}
	}
	return out
}

// CombineGroup folds the given bits into one mask.
func CombineGroup(perms ...GroupPermission) GroupPermission {
	var p GroupPermission
	p.Grant(perms...)
	return p
}
