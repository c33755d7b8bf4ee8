package channels

import (
	"guardcomms/pkg/models"
)

// Scope says who a required channel is keyed on.
type Scope int

const (
	// ScopeUser channels are private to one user, keyed on the user id.
	ScopeUser Scope = iota
	// ScopeShared channels are keyed on their name alone.
	ScopeShared
	// ScopeTeam channels are keyed on the user's team id.
	ScopeTeam
)

// ChannelSpec describes one channel a user must have after login.
type ChannelSpec struct {
	ID      string
	Subkind models.ChannelSubkind
	Name    string
	Scope   Scope
}

type rule func(u models.User) []ChannelSpec

var (
	supportRule rule = func(u models.User) []ChannelSpec {
		out := make([]ChannelSpec, 0, len(HierarchyLevels))
		for _, level := range HierarchyLevels {
			out = append(out, ChannelSpec{
				ID:      SupportChannelID(level, u.ID),
				Subkind: models.SubkindSupport,
				Name:    level,
				Scope:   ScopeUser,
			})
		}
		return out
	}

	companyRule rule = func(models.User) []ChannelSpec {
		out := make([]ChannelSpec, 0, len(CompanyChannels))
		for _, name := range CompanyChannels {
			out = append(out, ChannelSpec{
				ID:      CompanyChannelID(name),
				Subkind: models.SubkindCompany,
				Name:    name,
				Scope:   ScopeShared,
			})
		}
		return out
	}

	teamRule rule = func(u models.User) []ChannelSpec {
		if u.TeamID == "" {
			return nil
		}
		name := u.TeamName
		if name == "" {
			name = "Team " + u.TeamID
		}
		return []ChannelSpec{{
			ID:      PeerChannelID(u.TeamID),
			Subkind: models.SubkindPeer,
			Name:    name,
			Scope:   ScopeTeam,
		}}
	}
)

// roleChannels lists the rules and the roles each applies to, in creation
// order. Clients match only the team rule.
var roleChannels = []struct {
	applies func(models.Role) bool
	rule    rule
}{
	{func(r models.Role) bool { return r == models.RoleGuard }, supportRule},
	{models.Role.IsStaff, companyRule},
	{func(models.Role) bool { return true }, teamRule},
}

// RequiredChannels lists the channels u must have, in creation order.
func RequiredChannels(u models.User) []ChannelSpec {
	var out []ChannelSpec
	for _, rc := range roleChannels {
		if rc.applies(u.Role) {
			out = append(out, rc.rule(u)...)
		}
	}
	return out
}
