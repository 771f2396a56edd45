package models

// Group represents a recurring set of members whose bills are aggregated
// into per-member net balances.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string `json:"id"`

	// Name is the display name of the group (e.g. "Roommates").
	Name string `json:"name"`

	// Members is the list of member IDs, in insertion order.
	Members []string `json:"members"`

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64 `json:"created_at"`
}

// HasMember reports whether the given ID is a member of the group.
func (g *Group) HasMember(id string) bool {
	for _, m := range g.Members {
		if m == id {
			return true
		}
	}
	return false
}
