package domain

import "time"

// Kind discriminates the two multi-member target flavours.
type Kind string

const (
	KindGroup   Kind = "group"
	KindChannel Kind = "channel"
)

// Role is the per-member role inside an Entity.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Entity is a group or channel. Names live in the same namespace as user
// names; the directory store refuses a name already owned by either kind.
// The member set always contains the creator (as admin) from creation on.
type Entity struct {
	Name      string          `json:"name"`
	Kind      Kind            `json:"type"`
	Creator   string          `json:"creator"`
	Members   map[string]Role `json:"members"`
	CreatedAt time.Time       `json:"created_at"`
}

// IsMember reports whether username belongs to the entity.
func (e Entity) IsMember(username string) bool {
	_, ok := e.Members[username]
	return ok
}

// MemberNames returns the member set as a slice, order unspecified.
func (e Entity) MemberNames() []string {
	names := make([]string, 0, len(e.Members))
	for name := range e.Members {
		names = append(names, name)
	}
	return names
}
