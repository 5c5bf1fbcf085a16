package rank

import "sort"

// RoleSet is an unordered set of Discord role IDs.
type RoleSet map[string]struct{}

// NewRoleSet builds a set from the given role IDs
func NewRoleSet(ids ...string) RoleSet {
	s := make(RoleSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts a role ID into the set
func (s RoleSet) Add(id string) {
	s[id] = struct{}{}
}

// Contains reports whether the set holds the role ID
func (s RoleSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Values returns the role IDs in sorted order for stable iteration
func (s RoleSet) Values() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
