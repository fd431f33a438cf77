package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/koumartin/mundo-bot/internal/config"
	"github.com/koumartin/mundo-bot/internal/election"
	"github.com/koumartin/mundo-bot/internal/notify"
	"github.com/koumartin/mundo-bot/internal/playback"
	"github.com/koumartin/mundo-bot/internal/poller"
	"github.com/koumartin/mundo-bot/internal/reconcile"
	"github.com/koumartin/mundo-bot/internal/riot"
	"github.com/koumartin/mundo-bot/internal/roster"
	"github.com/koumartin/mundo-bot/internal/storage"
)

// Bot represents the Discord bot instance
type Bot struct {
	config   *config.Config
	session  *discordgo.Session
	repo     *storage.Repository
	elector  *election.Elector
	roster   *roster.Service
	engine   *reconcile.Engine
	notifier *notify.Notifier
	playback *playback.Manager
	poller   *poller.Poller
	commands []*discordgo.ApplicationCommand
}

// New creates a new Bot instance
func New(cfg *config.Config) (*Bot, error) {
	// Create Discord session
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	// Set intents
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMembers

	// Initialize storage
	repo, err := storage.NewRepository(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	b := &Bot{
		config:  cfg,
		session: session,
		repo:    repo,
		elector: election.New(repo,
			time.Duration(cfg.LockRefreshSeconds)*time.Second,
			time.Duration(cfg.CheckIntervalSeconds)*time.Second),
	}

	adapter := newPlatform(session)
	b.roster = roster.NewService(repo, adapter)
	b.notifier = notify.New(repo, adapter)
	b.playback = playback.NewManager(newVoiceSink(session, cfg.SoundsDir))

	// The bot itself provisions the Discord side of clashes
	riotClient := riot.NewClient(cfg.RiotAPIKey, cfg.RiotRegion)
	b.engine = reconcile.NewEngine(repo, riotClient, b)

	// Register command handlers
	b.registerHandlers()

	return b, nil
}

// Start opens the Discord connection and starts background tasks
func (b *Bot) Start(ctx context.Context) error {
	// Open Discord connection
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	slog.Info("Connected to Discord", "user", b.session.State.User.Username)

	// Register slash commands
	if err := b.registerCommands(); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	// Start the periodic clash checker
	b.poller = poller.New(b.repo, b.elector, b.engine, b.notifier)
	go b.poller.Start(ctx)

	return nil
}

// Stop gracefully shuts down the bot
func (b *Bot) Stop() error {
	// Stop the poller and hand leadership over
	if b.poller != nil {
		b.poller.Stop()
	}
	b.elector.Resign()

	// Drain playback queues
	b.playback.Shutdown()

	// Close storage
	if b.repo != nil {
		b.repo.Close()
	}

	// Close Discord session
	if b.session != nil {
		return b.session.Close()
	}

	return nil
}

// registerHandlers sets up Discord event handlers
func (b *Bot) registerHandlers() {
	b.session.AddHandler(b.handleInteraction)
	b.session.AddHandler(b.handleReactionAdd)
	b.session.AddHandler(b.handleReactionRemove)
	b.session.AddHandler(b.handleVoiceStateUpdate)
	b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		slog.Info("Bot is ready", "guilds", len(r.Guilds))
	})
}

// handleInteraction processes slash command interactions
func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	// All commands act on a guild
	if i.GuildID == "" || i.Member == nil {
		return
	}

	data := i.ApplicationCommandData()
	slog.Debug("Received command", "command", data.Name, "guild", i.GuildID)

	switch data.Name {
	case "addclash":
		b.handleAddClash(s, i)
	case "removeclash":
		b.handleRemoveClash(s, i)
	case "loadclashes":
		b.handleLoadClashes(s, i)
	case "registerserver":
		b.handleRegisterServer(s, i)
	case "unregisterserver":
		b.handleUnregisterServer(s, i)
	case "regulars":
		b.handleRegulars(s, i)
	case "regularadd":
		b.handleRegularAdd(s, i)
	case "regularremove":
		b.handleRegularRemove(s, i)
	case "mundo":
		b.handleMundo(s, i)
	case "shutup":
		b.handleShutup(s, i)
	default:
		slog.Warn("Unknown command", "command", data.Name)
	}
}
