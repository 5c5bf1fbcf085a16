package rank

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Bindings is the immutable tier-to-role mapping for every ladder,
// loaded once at startup and passed explicitly to the aggregator. The
// union of all bound role IDs is the managed role universe: the only
// roles the reconciler is allowed to touch.
type Bindings struct {
	byLadder map[Ladder]map[string]string
	managed  RoleSet
}

type bindingsFile struct {
	Ladders map[string]map[string]string `yaml:"ladders"`
}

// LoadBindings reads a bindings YAML file.
//
// Expected shape:
//
//	ladders:
//	  soloq:
//	    GOLD: "1370029647034581036"
//	    UNRANKED: "1370029646976122898"
//	  flex: ...
func LoadBindings(path string) (*Bindings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read role bindings: %w", err)
	}
	return ParseBindings(data)
}

// ParseBindings parses bindings from raw YAML
func ParseBindings(data []byte) (*Bindings, error) {
	var file bindingsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse role bindings: %w", err)
	}
	if len(file.Ladders) == 0 {
		return nil, fmt.Errorf("role bindings define no ladders")
	}

	b := &Bindings{
		byLadder: make(map[Ladder]map[string]string, len(file.Ladders)),
		managed:  NewRoleSet(),
	}

	known := map[Ladder]bool{}
	for _, l := range Ladders() {
		known[l] = true
	}

	for name, tiersToRoles := range file.Ladders {
		ladder := Ladder(name)
		if !known[ladder] {
			return nil, fmt.Errorf("role bindings reference unknown ladder %q", name)
		}
		m := make(map[string]string, len(tiersToRoles))
		for tier, roleID := range tiersToRoles {
			if roleID == "" {
				continue
			}
			m[CanonicalTier(tier)] = roleID
			b.managed.Add(roleID)
		}
		b.byLadder[ladder] = m
	}

	return b, nil
}

// Resolve maps a (ladder, tier) pair to a role ID. Tier lookup is on
// the canonical uppercase form. When the tier has no binding, the
// ladder's UNRANKED binding is used and fellBack is true; ok is false
// only when the ladder binds no role at all for either tier.
func (b *Bindings) Resolve(ladder Ladder, tier string) (roleID string, fellBack, ok bool) {
	m := b.byLadder[ladder]
	if m == nil {
		return "", false, false
	}
	canonical := CanonicalTier(tier)
	if id, found := m[canonical]; found {
		return id, false, true
	}
	if id, found := m[TierUnranked]; found {
		return id, true, true
	}
	return "", true, false
}

// ManagedRoles returns the full managed role universe
func (b *Bindings) ManagedRoles() RoleSet {
	out := make(RoleSet, len(b.managed))
	for id := range b.managed {
		out.Add(id)
	}
	return out
}
