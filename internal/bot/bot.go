package bot

import (
	"context"
	"strings"

	"sentinel-toxicity/internal/analytics"
	"sentinel-toxicity/internal/config"
	"sentinel-toxicity/internal/events"
	"sentinel-toxicity/internal/modules/antitoxic"
	"sentinel-toxicity/internal/modules/audit"
	"sentinel-toxicity/internal/risk"
	"sentinel-toxicity/internal/storage"
	"sentinel-toxicity/internal/toxicity"
	"sentinel-toxicity/internal/trust"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Bot struct {
	cfg       config.Config
	logger    *zap.Logger
	store     *storage.Store
	pipeline  *toxicity.Pipeline
	risk      *risk.Engine
	trust     *trust.Engine
	audit     *audit.Logger
	analytics *analytics.Service
	session   *discordgo.Session
	antitoxic *antitoxic.Module
	hooks     *events.Hooks[*discordgo.MessageCreate]
}

// sessionDeleter lets the moderation module delete messages without
// depending on discordgo.
type sessionDeleter struct {
	session *discordgo.Session
}

func (d sessionDeleter) DeleteMessage(channelID, messageID string) error {
	return d.session.ChannelMessageDelete(channelID, messageID)
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store, pipeline *toxicity.Pipeline, riskEngine *risk.Engine, trustEngine *trust.Engine, auditLogger *audit.Logger, analyticsService *analytics.Service) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	b := &Bot{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		pipeline:  pipeline,
		risk:      riskEngine,
		trust:     trustEngine,
		audit:     auditLogger,
		analytics: analyticsService,
		session:   session,
		hooks:     events.New[*discordgo.MessageCreate](logger),
	}

	b.antitoxic = antitoxic.New(cfg.Toxicity, pipeline, store, sessionDeleter{session: session}, riskEngine, trustEngine, auditLogger, logger)
	b.hooks.Register("antitoxic", b.moderateMessage)

	if b.audit != nil {
		b.audit.SetNotifier(func(ctx context.Context, entry storage.AuditLog) {
			if !b.cfg.Notifications.AuditToChannel {
				return
			}
			b.notifyAudit(ctx, entry)
		})
	}

	return b, nil
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}
	return b.registerCommands()
}

func (b *Bot) Close() {
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready", zap.String("user", event.User.Username), zap.Int("guilds", len(event.Guilds)))
}

// onMessageCreate runs on its own goroutine per gateway event.
func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.Author.Bot || msg.GuildID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.Moderation.MessageTimeout())
	defer cancel()
	_ = b.hooks.Dispatch(ctx, msg)
}

func (b *Bot) moderateMessage(ctx context.Context, msg *discordgo.MessageCreate) error {
	if !b.cfg.Toxicity.Enabled {
		return nil
	}
	settings := b.guildSettings(ctx, msg.GuildID)
	if !settings.ToxicityEnabled {
		return nil
	}

	message := antitoxic.Message{
		GuildID:   msg.GuildID,
		ChannelID: msg.ChannelID,
		ID:        msg.ID,
		AuthorID:  msg.Author.ID,
		Content:   msg.Content,
	}
	outcome, err := b.antitoxic.HandleMessage(ctx, message, isAuditMode(settings))
	if outcome.Flagged() {
		lang := b.language(settings)
		if b.cfg.Notifications.ModLogEnabled {
			b.sendModLog(settings, flagEmbed(lang, b.cfg.Notifications.EmbedColors, message, outcome))
		}
		b.warnUser(message.AuthorID, warningEmbed(lang, b.cfg.Notifications.EmbedColors, message, outcome))
	}
	return err
}

func (b *Bot) sendModLog(settings storage.GuildSettings, embed *discordgo.MessageEmbed) {
	channelID := settings.ModLogChannel
	if channelID == "" {
		channelID = b.cfg.DefaultModLogChannel
	}
	if channelID == "" || embed == nil {
		return
	}
	if _, err := b.session.ChannelMessageSendEmbed(channelID, embed); err != nil {
		b.logger.Warn("mod log send failed", zap.String("guild_id", settings.GuildID), zap.String("channel_id", channelID), zap.Error(err))
	}
}

func (b *Bot) warnUser(userID string, embed *discordgo.MessageEmbed) {
	if userID == "" || embed == nil || !b.cfg.Notifications.DMWarnEnabled {
		return
	}
	channel, err := b.session.UserChannelCreate(userID)
	if err != nil {
		b.logger.Debug("dm channel failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if _, err := b.session.ChannelMessageSendEmbed(channel.ID, embed); err != nil {
		b.logger.Debug("dm warning failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// notifyAudit mirrors settings changes and other non-flag entries; flags
// already get their own embed.
func (b *Bot) notifyAudit(ctx context.Context, entry storage.AuditLog) {
	if strings.HasPrefix(entry.Event, "toxicity_") {
		return
	}
	settings := b.guildSettings(ctx, entry.GuildID)
	b.sendModLog(settings, auditEmbed(b.language(settings), b.cfg.Notifications.EmbedColors, entry))
}

func (b *Bot) guildSettings(ctx context.Context, guildID string) storage.GuildSettings {
	defaults := b.defaultSettings(guildID)
	settings, err := b.store.GetGuildSettings(ctx, guildID, defaults)
	if err != nil {
		b.logger.Warn("guild settings fallback", zap.String("guild_id", guildID), zap.Error(err))
		return defaults
	}
	return settings
}

func (b *Bot) defaultSettings(guildID string) storage.GuildSettings {
	return storage.GuildSettings{
		GuildID:         guildID,
		ModLogChannel:   b.cfg.DefaultModLogChannel,
		Language:        b.cfg.DefaultLanguage,
		Mode:            b.cfg.Mode,
		ToxicityEnabled: true,
	}
}

func (b *Bot) language(settings storage.GuildSettings) string {
	if settings.Language == "" {
		return b.cfg.DefaultLanguage
	}
	return settings.Language
}

func isAuditMode(settings storage.GuildSettings) bool {
	return settings.Mode == "audit"
}

func (b *Bot) respondEmbed(interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	err := b.session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  flags,
		},
	})
	if err != nil {
		b.logger.Warn("interaction respond failed", zap.Error(err))
	}
}

// deferResponse acknowledges an interaction whose answer may take longer than
// Discord's three second window; finish it with editResponse.
func (b *Bot) deferResponse(interaction *discordgo.InteractionCreate, ephemeral bool) error {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	return b.session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: flags},
	})
}

func (b *Bot) editResponse(interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	embeds := []*discordgo.MessageEmbed{embed}
	if _, err := b.session.InteractionResponseEdit(interaction.Interaction, &discordgo.WebhookEdit{Embeds: &embeds}); err != nil {
		b.logger.Warn("interaction edit failed", zap.Error(err))
	}
}
