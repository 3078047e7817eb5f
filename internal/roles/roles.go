// Package roles is the closed set of role kinds the platform knows about and
// their canonical names as stored in the roles table.
package roles

import "strings"

type Kind int

const (
	Unknown Kind = iota
	TenantAdmin
	Contributor
	Authenticated
	Public
)

var canonical = map[Kind]string{
	TenantAdmin:   "Tenant Admin",
	Contributor:   "Contributor",
	Authenticated: "Authenticated",
	Public:        "Public",
}

// All lists the seeded kinds in display order.
func All() []Kind {
	return []Kind{TenantAdmin, Contributor, Authenticated, Public}
}

// Name is the canonical stored name, "" for Unknown.
func (k Kind) Name() string {
	return canonical[k]
}

func (k Kind) String() string {
	if n := k.Name(); n != "" {
		return n
	}
	return "Unknown"
}

// OwnsTenant reports whether registering with this role provisions a tenant.
func (k Kind) OwnsTenant() bool {
	return k == TenantAdmin
}

// Description is seeded alongside the role.
func (k Kind) Description() string {
	switch k {
	case TenantAdmin:
		return "Owns and administers a tenant blog"
	case Contributor:
		return "Writes posts for a tenant blog"
	case Authenticated:
		return "Default role given to authenticated users"
	case Public:
		return "Default role given to unauthenticated users"
	}
	return ""
}

// Parse maps a stored role name to its kind, ignoring case and surrounding
// whitespace. Unrecognized names yield Unknown.
func Parse(name string) Kind {
	name = strings.TrimSpace(name)
	for k, n := range canonical {
		if strings.EqualFold(n, name) {
			return k
		}
	}
	return Unknown
}
