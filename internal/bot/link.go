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
	"github.com/p-estor/ranksync-bot/internal/verify"
)

// ddragonVersion pins the CDN release the challenge icons are served from
const ddragonVersion = "14.9.1"

func iconURL(iconID int) string {
	return fmt.Sprintf("https://ddragon.leagueoflegends.com/cdn/%s/img/profileicon/%d.png",
		ddragonVersion, iconID)
}

// handleLinkStart opens the alias/tag modal, refusing up front when
// the user already sits at the account cap.
func (b *Bot) handleLinkStart(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID := interactionUserID(i)
	accounts, err := b.repo.ListByUser(ctx, userID)
	if err != nil {
		slog.Error("Failed to list accounts", "userID", userID, "error", err)
		respondEphemeral(s, i, "Could not check your linked accounts. Please try again.")
		return
	}

	if len(accounts) >= storage.MaxAccounts {
		respondEphemeral(s, i, fmt.Sprintf(
			"❌ You already have the maximum of **%d** linked accounts. Unlink one first.",
			storage.MaxAccounts))
		return
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: "link_modal",
			Title:    "Link LoL account",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:    "alias",
							Label:       "Alias (summoner name)",
							Style:       discordgo.TextInputShort,
							Placeholder: "e.g. Hide on bush",
							Required:    true,
						},
					},
				},
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:    "tag",
							Label:       "Tag without #",
							Style:       discordgo.TextInputShort,
							Placeholder: "e.g. EUW",
							Required:    true,
						},
					},
				},
			},
		},
	})
	if err != nil {
		slog.Error("Failed to open link modal", "userID", userID, "error", err)
	}
}

// handleLinkModal resolves the claimed Riot ID and issues an icon
// verification challenge for it.
func (b *Bot) handleLinkModal(s *discordgo.Session, i *discordgo.InteractionCreate) {
	deferEphemeral(s, i)

	data := i.ModalSubmitData()
	alias := strings.TrimSpace(modalValue(data, 0))
	tag := strings.TrimSpace(strings.TrimPrefix(modalValue(data, 1), "#"))

	if alias == "" || tag == "" {
		editResponse(s, i, "Both the alias and the tag are required.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	userID := interactionUserID(i)

	account, err := b.lol.GetAccountByRiotID(ctx, alias, tag)
	if err != nil {
		editResponse(s, i, resolveErrorMessage(err, alias, tag))
		return
	}

	// TFT keys its accounts separately; resolve best-effort so a TFT
	// outage never blocks linking.
	tftPUUID := ""
	if tftAccount, err := b.tft.GetAccountByRiotID(ctx, alias, tag); err == nil {
		tftPUUID = tftAccount.PUUID
	} else {
		slog.Warn("TFT account resolve failed", "riotID", alias+"#"+tag, "error", err)
	}

	linked, err := b.repo.ListByUser(ctx, userID)
	if err != nil {
		slog.Error("Failed to list accounts", "userID", userID, "error", err)
		editResponse(s, i, "Could not check your linked accounts. Please try again.")
		return
	}
	for _, existing := range linked {
		if existing.PUUID == account.PUUID || (tftPUUID != "" && existing.TFTPUUID == tftPUUID) {
			editResponse(s, i, fmt.Sprintf(
				"ℹ️ The account **%s#%s** is already linked to your Discord.", alias, tag))
			return
		}
	}

	challenge := b.verifier.Issue(userID, account.PUUID, tftPUUID, alias, tag,
		func(verify.Challenge) {
			// Expiry cleanup: replace the prompt so the stale confirm
			// button can't be clicked.
			clearComponents(s, i, fmt.Sprintf(
				"⏰ The icon verification for **%s#%s** timed out. Use `/link` to start over.",
				alias, tag))
		})

	embed := &discordgo.MessageEmbed{
		Title:       "Icon verification",
		Description: "Change your summoner icon in League of Legends to the one shown below, then press **Confirm**.",
		Color:       0x3498DB,
		Image:       &discordgo.MessageEmbedImage{URL: iconURL(challenge.IconID)},
	}

	row := discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.Button{
				CustomID: "confirm_icon:" + challenge.ID,
				Label:    "✅ Confirm",
				Style:    discordgo.PrimaryButton,
			},
		},
	}

	content := fmt.Sprintf("Alias: **%s** | Tag: **%s**", alias, tag)
	_, err = s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content:    &content,
		Embeds:     &[]*discordgo.MessageEmbed{embed},
		Components: &[]discordgo.MessageComponent{row},
	})
	if err != nil {
		slog.Error("Failed to show verification prompt", "userID", userID, "error", err)
	}
}

// handleConfirmIcon checks the icon and, on a match, stores the link
// and reconciles roles over every linked account.
func (b *Bot) handleConfirmIcon(s *discordgo.Session, i *discordgo.InteractionCreate) {
	deferUpdate(s, i)

	challengeID := strings.TrimPrefix(i.MessageComponentData().CustomID, "confirm_icon:")
	userID := interactionUserID(i)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	challenge, err := b.verifier.Confirm(ctx, challengeID, userID)
	switch {
	case errors.Is(err, verify.ErrIconMismatch):
		// Challenge stays open; the user can fix the icon and retry.
		editResponse(s, i, "❌ Wrong icon! Change your summoner icon to the one shown and press Confirm again.")
		return
	case errors.Is(err, verify.ErrChallengeExpired):
		clearComponents(s, i, "⏰ This verification is no longer active. Use `/link` to start over.")
		return
	case err != nil:
		slog.Error("Icon check failed", "userID", userID, "error", err)
		editResponse(s, i, "❌ Could not verify your icon with Riot right now. Please try again.")
		return
	}

	account := &storage.LinkedAccount{
		UserID:       userID,
		PUUID:        challenge.PUUID,
		TFTPUUID:     challenge.TFTPUUID,
		SummonerName: challenge.SummonerName,
		TagLine:      challenge.TagLine,
	}

	result, err := b.service.LinkVerified(ctx, i.GuildID, account)
	switch {
	case errors.Is(err, storage.ErrLimitExceeded):
		clearComponents(s, i, fmt.Sprintf(
			"❌ You already have the maximum of **%d** linked accounts. Unlink one first.",
			storage.MaxAccounts))
		return
	case errors.Is(err, roles.ErrPartial):
		slog.Error("Role update partially failed on link", "userID", userID, "error", err)
		clearComponents(s, i, fmt.Sprintf(
			"✅ Icon verified, **%s** is now linked.\n⚠️ Your roles could not be fully updated; contact an administrator.",
			account.RiotID()))
		return
	case err != nil:
		slog.Error("Failed to store verified link", "userID", userID, "error", err)
		clearComponents(s, i, "❌ Icon verified, but the account could not be saved. Please try linking again.")
		return
	}

	msg := fmt.Sprintf("✅ Icon verified! Your account **%s** is now linked.", account.RiotID())
	if len(result.Labels) > 0 {
		msg += fmt.Sprintf("\nYour roles now reflect all linked accounts: **%s**.",
			strings.Join(result.Labels, ", "))
	}
	if result.Partial {
		msg += "\n⚠️ Some ranks could not be fetched yet. Use `/refresh` later to pick them up."
	}

	clearComponents(s, i, msg)
}

// resolveErrorMessage maps account-resolve failures to user-facing text
func resolveErrorMessage(err error, alias, tag string) string {
	switch {
	case errors.Is(err, riot.ErrNotFound):
		return fmt.Sprintf(
			"❌ No account found for **%s#%s**. Check the alias and tag (e.g. Faker #EUW).", alias, tag)
	case errors.Is(err, riot.ErrUnauthorized):
		return "❌ The bot's Riot API credentials were rejected. Contact an administrator."
	default:
		return "❌ Could not reach Riot's API right now. Please try again in a moment."
	}
}

// modalValue extracts the nth text input from a modal submission
func modalValue(data discordgo.ModalSubmitInteractionData, idx int) string {
	if idx >= len(data.Components) {
		return ""
	}
	row, ok := data.Components[idx].(*discordgo.ActionsRow)
	if !ok || len(row.Components) == 0 {
		return ""
	}
	input, ok := row.Components[0].(*discordgo.TextInput)
	if !ok {
		return ""
	}
	return input.Value
}
