package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/p-estor/ranksync-bot/internal/config"
	"github.com/p-estor/ranksync-bot/internal/poller"
	"github.com/p-estor/ranksync-bot/internal/rank"
	"github.com/p-estor/ranksync-bot/internal/riot"
	"github.com/p-estor/ranksync-bot/internal/roles"
	"github.com/p-estor/ranksync-bot/internal/storage"
	"github.com/p-estor/ranksync-bot/internal/usersync"
	"github.com/p-estor/ranksync-bot/internal/verify"
)

// Bot represents the Discord bot instance
type Bot struct {
	config   *config.Config
	session  *discordgo.Session
	repo     *storage.Repository
	service  *usersync.Service
	verifier *verify.Manager
	lol      *riot.Client
	tft      *riot.Client
	poller   *poller.Poller
	commands []*discordgo.ApplicationCommand
}

// New creates a new Bot instance
func New(cfg *config.Config) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers

	repo, err := storage.NewRepository(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	bindings, err := rank.LoadBindings(cfg.RoleBindingsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load role bindings: %w", err)
	}

	lol := riot.NewClient(cfg.RiotAPIKey, cfg.Platform, cfg.Region)
	tft := riot.NewClient(cfg.RiotAPIKeyTFT, cfg.Platform, cfg.Region)

	fetcher := riot.NewFetcher(lol, tft)
	reconciler := roles.NewReconciler(roles.NewDiscordGateway(session), bindings.ManagedRoles())
	service := usersync.NewService(repo, fetcher, bindings, reconciler)

	b := &Bot{
		config:   cfg,
		session:  session,
		repo:     repo,
		service:  service,
		verifier: verify.NewManager(lol, verify.DefaultTTL),
		lol:      lol,
		tft:      tft,
	}

	b.registerHandlers()

	return b, nil
}

// Start opens the Discord connection and starts background tasks
func (b *Bot) Start(ctx context.Context) error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	slog.Info("Connected to Discord", "user", b.session.State.User.Username)

	if err := b.registerCommands(); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	b.poller = poller.New(b.repo, b.service, b.config.GuildID, b.config.RefreshIntervalSeconds)
	go b.poller.Start(ctx)

	return nil
}

// Stop gracefully shuts down the bot
func (b *Bot) Stop() error {
	if b.poller != nil {
		b.poller.Stop()
	}

	if b.verifier != nil {
		b.verifier.Close()
	}

	if b.repo != nil {
		b.repo.Close()
	}

	if b.session != nil {
		return b.session.Close()
	}

	return nil
}

// registerHandlers sets up Discord event handlers
func (b *Bot) registerHandlers() {
	b.session.AddHandler(b.handleInteraction)
	b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		slog.Info("Bot is ready", "guilds", len(r.Guilds))
	})
}

// handleInteraction routes slash commands, buttons, modals and select
// menus to their handlers. Every interaction is an independent task;
// failures are answered to the one user involved, never re-raised.
func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		slog.Debug("Received command", "command", data.Name, "guild", i.GuildID)

		switch data.Name {
		case "setup-link":
			b.handleSetup(s, i)
		case "link":
			b.handleLinkStart(s, i)
		case "accounts":
			b.handleAccounts(s, i)
		case "refresh":
			b.handleRefresh(s, i)
		case "roles-list":
			b.handleRolesList(s, i)
		default:
			slog.Warn("Unknown command", "command", data.Name)
		}

	case discordgo.InteractionMessageComponent:
		data := i.MessageComponentData()
		slog.Debug("Received component", "customID", data.CustomID, "guild", i.GuildID)

		switch {
		case data.CustomID == "link_account":
			b.handleLinkStart(s, i)
		case data.CustomID == "view_accounts":
			b.handleAccounts(s, i)
		case data.CustomID == "refresh_rank":
			b.handleRefresh(s, i)
		case data.CustomID == "unlink_account_prompt":
			b.handleUnlinkPrompt(s, i)
		case data.CustomID == "unlink_select":
			b.handleUnlinkSelect(s, i)
		case strings.HasPrefix(data.CustomID, "confirm_icon:"):
			b.handleConfirmIcon(s, i)
		default:
			slog.Warn("Unknown component", "customID", data.CustomID)
		}

	case discordgo.InteractionModalSubmit:
		if i.ModalSubmitData().CustomID == "link_modal" {
			b.handleLinkModal(s, i)
		}
	}
}

// interactionUserID returns the acting user for guild or DM interactions
func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
