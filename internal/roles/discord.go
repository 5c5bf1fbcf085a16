package roles

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// DiscordGateway implements Gateway over a discordgo session. Batch
// mutations are issued as a single member edit carrying the full role
// list, which is one rate-limited call regardless of how many roles
// change.
type DiscordGateway struct {
	session *discordgo.Session
}

// NewDiscordGateway wraps a connected session
func NewDiscordGateway(session *discordgo.Session) *DiscordGateway {
	return &DiscordGateway{session: session}
}

// MemberRoles fetches the member's current role IDs from the API,
// bypassing the state cache.
func (g *DiscordGateway) MemberRoles(ctx context.Context, guildID, userID string) ([]string, error) {
	member, err := g.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch guild member: %w", err)
	}
	return member.Roles, nil
}

// AddRoles grants the batch in one member edit
func (g *DiscordGateway) AddRoles(ctx context.Context, guildID, userID string, roleIDs []string) error {
	return g.editRoles(ctx, guildID, userID, roleIDs, nil)
}

// RemoveRoles revokes the batch in one member edit
func (g *DiscordGateway) RemoveRoles(ctx context.Context, guildID, userID string, roleIDs []string) error {
	return g.editRoles(ctx, guildID, userID, nil, roleIDs)
}

func (g *DiscordGateway) editRoles(ctx context.Context, guildID, userID string, add, remove []string) error {
	member, err := g.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to fetch guild member: %w", err)
	}

	removing := make(map[string]bool, len(remove))
	for _, id := range remove {
		removing[id] = true
	}
	held := make(map[string]bool, len(member.Roles))

	updated := make([]string, 0, len(member.Roles)+len(add))
	for _, id := range member.Roles {
		held[id] = true
		if !removing[id] {
			updated = append(updated, id)
		}
	}
	for _, id := range add {
		if !held[id] {
			updated = append(updated, id)
		}
	}

	_, err = g.session.GuildMemberEdit(guildID, userID,
		&discordgo.GuildMemberParams{Roles: &updated},
		discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to edit member roles: %w", err)
	}
	return nil
}
