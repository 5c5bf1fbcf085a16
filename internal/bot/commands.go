package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/p-estor/ranksync-bot/internal/riot"
	"github.com/p-estor/ranksync-bot/internal/roles"
	"github.com/p-estor/ranksync-bot/internal/storage"
	"github.com/p-estor/ranksync-bot/internal/usersync"
)

// Slash command definitions
func (b *Bot) getCommandDefinitions() []*discordgo.ApplicationCommand {
	var adminOnly int64 = discordgo.PermissionManageServer

	return []*discordgo.ApplicationCommand{
		{
			Name:                     "setup-link",
			Description:              "Post the account-linking panel with its buttons",
			DefaultMemberPermissions: &adminOnly,
		},
		{
			Name:        "link",
			Description: "Link a League of Legends account to your Discord",
		},
		{
			Name:        "accounts",
			Description: "Show your linked accounts and their ranks",
		},
		{
			Name:        "refresh",
			Description: "Re-fetch your ranks and update your roles",
		},
		{
			Name:                     "roles-list",
			Description:              "Export all server roles with their IDs",
			DefaultMemberPermissions: &adminOnly,
		},
	}
}

// registerCommands registers all slash commands with Discord
func (b *Bot) registerCommands() error {
	slog.Info("Registering slash commands", "guild", b.config.GuildID)

	commandDefinitions := b.getCommandDefinitions()
	registeredCommands := make([]*discordgo.ApplicationCommand, 0, len(commandDefinitions))

	for _, cmd := range commandDefinitions {
		registered, err := b.session.ApplicationCommandCreate(
			b.session.State.User.ID,
			b.config.GuildID,
			cmd,
		)
		if err != nil {
			return fmt.Errorf("failed to register command %s: %w", cmd.Name, err)
		}
		registeredCommands = append(registeredCommands, registered)
		slog.Debug("Registered command", "name", cmd.Name)
	}

	b.commands = registeredCommands
	slog.Info("Slash commands registered", "count", len(registeredCommands))
	return nil
}

// handleSetup posts the persistent linking panel
func (b *Bot) handleSetup(s *discordgo.Session, i *discordgo.InteractionCreate) {
	embed := &discordgo.MessageEmbed{
		Title: "🔎 Link your League of Legends accounts",
		Description: "Link the accounts you play with so your rank roles stay in sync.\n\n" +
			"**FAQ**\n" +
			"• *How many accounts can I link?* Up to " + fmt.Sprint(storage.MaxAccounts) + ".\n" +
			"• *How do I remove a linked account?* Press **View accounts** and pick one from the menu.\n" +
			"• *My rank changed but my roles didn't.* Press **Refresh ranks** to update them manually.",
		Color: 0x3498DB,
	}

	row := discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.Button{
				CustomID: "link_account",
				Label:    "🔗 Link account",
				Style:    discordgo.PrimaryButton,
			},
			discordgo.Button{
				CustomID: "view_accounts",
				Label:    "View accounts",
				Style:    discordgo.SecondaryButton,
			},
			discordgo.Button{
				CustomID: "refresh_rank",
				Label:    "🔄 Refresh ranks",
				Style:    discordgo.SuccessButton,
			},
		},
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: []discordgo.MessageComponent{row},
		},
	})
	if err != nil {
		slog.Error("Failed to post linking panel", "error", err)
	}
}

// handleAccounts lists the user's linked accounts with their tiers
func (b *Bot) handleAccounts(s *discordgo.Session, i *discordgo.InteractionCreate) {
	deferEphemeral(s, i)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID := interactionUserID(i)
	accounts, err := b.repo.ListByUser(ctx, userID)
	if err != nil {
		slog.Error("Failed to list accounts", "userID", userID, "error", err)
		editResponse(s, i, "Could not load your linked accounts. Please try again.")
		return
	}

	if len(accounts) == 0 {
		editResponse(s, i, "You have no linked accounts yet. Use `/link` to add one.")
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Linked accounts",
		Description: "The League of Legends accounts linked to your Discord.",
		Color:       0x2ECC71,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("You can link up to %d accounts. (%d/%d)",
				storage.MaxAccounts, len(accounts), storage.MaxAccounts),
		},
	}

	for idx, account := range accounts {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: fmt.Sprintf("Account %d: %s", idx+1, account.RiotID()),
			Value: fmt.Sprintf("**SoloQ:** %s\n**Flex:** %s\n**TFT:** %s\n**Double Up:** %s",
				account.RankSoloQ, account.RankFlex, account.RankTFT, account.RankDoubleUp),
		})
	}

	row := discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.Button{
				CustomID: "unlink_account_prompt",
				Label:    "🗑️ Unlink account",
				Style:    discordgo.DangerButton,
			},
		},
	}

	content := ""
	_, err = s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content:    &content,
		Embeds:     &[]*discordgo.MessageEmbed{embed},
		Components: &[]discordgo.MessageComponent{row},
	})
	if err != nil {
		slog.Error("Failed to show accounts", "userID", userID, "error", err)
	}
}

// handleUnlinkPrompt shows the select menu of accounts to unlink
func (b *Bot) handleUnlinkPrompt(s *discordgo.Session, i *discordgo.InteractionCreate) {
	deferEphemeral(s, i)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID := interactionUserID(i)
	accounts, err := b.repo.ListByUser(ctx, userID)
	if err != nil {
		slog.Error("Failed to list accounts", "userID", userID, "error", err)
		editResponse(s, i, "Could not load your linked accounts. Please try again.")
		return
	}

	if len(accounts) == 0 {
		editResponse(s, i, "You have no linked accounts to unlink.")
		return
	}

	options := make([]discordgo.SelectMenuOption, 0, len(accounts))
	for _, account := range accounts {
		options = append(options, discordgo.SelectMenuOption{
			Label:       account.RiotID(),
			Description: fmt.Sprintf("SoloQ: %s, TFT: %s", account.RankSoloQ, account.RankTFT),
			Value:       account.PUUID,
		})
	}

	row := discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				CustomID:    "unlink_select",
				Placeholder: "Pick an account to unlink...",
				Options:     options,
			},
		},
	}

	content := "Select the account you want to unlink:"
	_, err = s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content:    &content,
		Components: &[]discordgo.MessageComponent{row},
	})
	if err != nil {
		slog.Error("Failed to show unlink menu", "userID", userID, "error", err)
	}
}

// handleUnlinkSelect deletes the chosen account and re-syncs roles
func (b *Bot) handleUnlinkSelect(s *discordgo.Session, i *discordgo.InteractionCreate) {
	deferUpdate(s, i)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	userID := interactionUserID(i)
	values := i.MessageComponentData().Values
	if len(values) == 0 {
		editResponse(s, i, "No account was selected.")
		return
	}
	puuid := values[0]

	account, err := b.repo.GetByPUUID(ctx, puuid)
	if err != nil || account.UserID != userID {
		editResponse(s, i, "That account is no longer in your linked list.")
		return
	}

	deleted, result, err := b.service.Unlink(ctx, i.GuildID, userID, puuid)
	if !deleted {
		if err != nil {
			slog.Error("Unlink failed", "userID", userID, "puuid", puuid, "error", err)
			editResponse(s, i, "Something went wrong unlinking the account. Please try again.")
			return
		}
		editResponse(s, i, "That account is no longer in your linked list.")
		return
	}

	msg := fmt.Sprintf("✅ **%s** has been unlinked.", account.RiotID())
	switch {
	case err != nil:
		slog.Error("Role update after unlink failed", "userID", userID, "error", err)
		msg += "\n⚠️ Your roles could not be fully updated; contact an administrator."
	case result != nil && len(result.Labels) == 0:
		msg += "\nYou have no linked accounts left, so all rank roles were removed."
	default:
		msg += "\nYour roles were updated from your remaining accounts."
	}

	clearComponents(s, i, msg)
}

// handleRefresh re-fetches all of the user's ranks and updates roles
func (b *Bot) handleRefresh(s *discordgo.Session, i *discordgo.InteractionCreate) {
	deferEphemeral(s, i)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	userID := interactionUserID(i)
	result, err := b.service.SyncUser(ctx, i.GuildID, userID)
	if err != nil && !errors.Is(err, roles.ErrPartial) {
		editResponse(s, i, refreshErrorMessage(err))
		return
	}

	msg := "✅ Your ranks were refreshed: **" + strings.Join(result.Labels, ", ") + "**."
	if errors.Is(err, roles.ErrPartial) {
		slog.Error("Role update partially failed on refresh", "userID", userID, "error", err)
		msg = "⚠️ Your ranks were refreshed, but your roles could not be fully updated. Contact an administrator."
	} else if result.Partial {
		msg += "\n⚠️ Some ranks could not be fetched right now; stale values were kept. Try again later."
	}

	editResponse(s, i, msg)
}

// refreshErrorMessage maps sync failures to user-facing text
func refreshErrorMessage(err error) string {
	switch {
	case errors.Is(err, usersync.ErrNoAccounts):
		return "You have no linked accounts. Use `/link` first."
	case errors.Is(err, riot.ErrUnauthorized):
		return "❌ The bot's Riot API credentials were rejected. Contact an administrator."
	case errors.Is(err, riot.ErrRateLimited), errors.Is(err, riot.ErrUnavailable):
		return "❌ Riot's API is unavailable right now. Please try again in a moment."
	default:
		return "❌ Something went wrong refreshing your ranks. Please try again."
	}
}

// handleRolesList attaches a text export of every guild role and ID,
// handy when filling in the role bindings file.
func (b *Bot) handleRolesList(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildRoles, err := s.GuildRoles(i.GuildID)
	if err != nil {
		slog.Error("Failed to fetch guild roles", "guild", i.GuildID, "error", err)
		respondEphemeral(s, i, "Could not fetch the server's roles.")
		return
	}

	var sb strings.Builder
	for _, role := range guildRoles {
		if role.Name == "@everyone" {
			continue
		}
		fmt.Fprintf(&sb, "%s - %s\n", role.Name, role.ID)
	}

	if sb.Len() == 0 {
		respondEphemeral(s, i, "No roles found in this server.")
		return
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "All server roles with their IDs:",
			Flags:   discordgo.MessageFlagsEphemeral,
			Files: []*discordgo.File{
				{
					Name:        "roles.txt",
					ContentType: "text/plain",
					Reader:      strings.NewReader(sb.String()),
				},
			},
		},
	})
	if err != nil {
		slog.Error("Failed to send roles list", "error", err)
	}
}

// Helper functions

func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

func deferEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
}

func deferUpdate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
}

func editResponse(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	_, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &content,
	})
	if err != nil {
		slog.Error("Failed to edit interaction response", "error", err)
	}
}

// clearComponents edits the response, dropping embeds and components
func clearComponents(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	_, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content:    &content,
		Embeds:     &[]*discordgo.MessageEmbed{},
		Components: &[]discordgo.MessageComponent{},
	})
	if err != nil {
		slog.Error("Failed to edit interaction response", "error", err)
	}
}
