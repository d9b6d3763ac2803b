package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sentinel-toxicity/internal/analytics"
	"sentinel-toxicity/internal/config"
	"sentinel-toxicity/internal/modules/audit"
	"sentinel-toxicity/internal/storage"
	"sentinel-toxicity/internal/toxicity"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	commandTimeout = 10 * time.Second
	statusTopRisk  = 3
)

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	data := interaction.ApplicationCommandData()
	if interaction.GuildID == "" {
		lang := b.cfg.DefaultLanguage
		b.respondEmbed(interaction, commandEmbed(lang, tr(lang, "error_title"), tr(lang, "error_only_guild"), b.cfg.Notifications.EmbedColors.Error, nil), true)
		return
	}

	settings := b.guildSettings(ctx, interaction.GuildID)
	lang := b.language(settings)
	colors := b.cfg.Notifications.EmbedColors

	switch data.Name {
	case "status":
		b.handleStatus(ctx, interaction, settings, lang)
	case "toxicity":
		enabled := optionString(data.Options, "value") == "on"
		b.updateSettings(ctx, interaction, settings, func(s *storage.GuildSettings) {
			s.ToxicityEnabled = enabled
		}, trf(lang, "toxicity_updated", onOff(lang, enabled)), fmt.Sprintf("toxicity=%t", enabled))
	case "logs":
		channelID := optionString(data.Options, "channel")
		b.updateSettings(ctx, interaction, settings, func(s *storage.GuildSettings) {
			s.ModLogChannel = channelID
		}, trf(lang, "logs_updated", "<#"+channelID+">"), "mod_log_channel="+channelID)
	case "language":
		value := config.NormalizeLanguage(optionString(data.Options, "value"))
		// confirm in the language just chosen
		b.updateSettings(ctx, interaction, settings, func(s *storage.GuildSettings) {
			s.Language = value
		}, trf(value, "language_updated", value), "language="+value)
	case "mode":
		value := config.NormalizeMode(optionString(data.Options, "value"))
		b.updateSettings(ctx, interaction, settings, func(s *storage.GuildSettings) {
			s.Mode = value
		}, trf(lang, "mode_updated", modeLabel(lang, value)), "mode="+value)
	case "check":
		b.handleCheck(ctx, interaction, lang, optionString(data.Options, "text"))
	case "report":
		b.handleReport(ctx, interaction, lang, optionString(data.Options, "period"))
	default:
		b.respondEmbed(interaction, commandEmbed(lang, tr(lang, "error_title"), tr(lang, "error_unknown"), colors.Error, nil), true)
	}
}

func (b *Bot) handleStatus(ctx context.Context, interaction *discordgo.InteractionCreate, settings storage.GuildSettings, lang string) {
	model := tr(lang, "model_ok")
	if err := b.pipeline.Probe(ctx); err != nil {
		model = tr(lang, "model_down")
	}

	logChannel := tr(lang, "none")
	if settings.ModLogChannel != "" {
		logChannel = "<#" + settings.ModLogChannel + ">"
	}

	var top []string
	for _, entry := range b.risk.Top(interaction.GuildID, statusTopRisk) {
		top = append(top, fmt.Sprintf("<@%s>: %.1f", entry.UserID, entry.Score))
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: tr(lang, "field_toxicity"), Value: onOff(lang, settings.ToxicityEnabled && b.cfg.Toxicity.Enabled), Inline: true},
		{Name: tr(lang, "field_mode"), Value: modeLabel(lang, settings.Mode), Inline: true},
		{Name: tr(lang, "field_language"), Value: lang, Inline: true},
		{Name: tr(lang, "field_log_channel"), Value: logChannel, Inline: true},
		{Name: tr(lang, "field_model"), Value: model, Inline: true},
		{Name: tr(lang, "field_categories"), Value: joinOrNone(lang, b.pipeline.Categories(), ", ")},
		{Name: tr(lang, "field_top_risk"), Value: joinOrNone(lang, top, "\n")},
	}
	b.respondEmbed(interaction, commandEmbed(lang, tr(lang, "status_title"), tr(lang, "status_desc"), b.cfg.Notifications.EmbedColors.Action, fields), true)
}

func (b *Bot) updateSettings(ctx context.Context, interaction *discordgo.InteractionCreate, settings storage.GuildSettings, mutate func(*storage.GuildSettings), confirmation, details string) {
	mutate(&settings)
	lang := b.language(settings)
	colors := b.cfg.Notifications.EmbedColors

	if err := b.store.UpsertGuildSettings(ctx, settings); err != nil {
		b.logger.Error("settings save failed", zap.String("guild_id", settings.GuildID), zap.Error(err))
		b.respondEmbed(interaction, commandEmbed(lang, tr(lang, "error_title"), tr(lang, "error_settings_save"), colors.Error, nil), true)
		return
	}
	b.audit.Log(ctx, audit.LevelInfo, settings.GuildID, interactionUserID(interaction), "settings_update", details)
	b.respondEmbed(interaction, commandEmbed(lang, tr(lang, "settings_title"), confirmation, colors.Action, nil), true)
}

func (b *Bot) handleCheck(ctx context.Context, interaction *discordgo.InteractionCreate, lang, text string) {
	if err := b.deferResponse(interaction, true); err != nil {
		b.logger.Warn("interaction defer failed", zap.Error(err))
		return
	}

	colors := b.cfg.Notifications.EmbedColors
	verdict, err := b.pipeline.Classify(ctx, text)
	switch {
	case err == nil:
		b.editResponse(interaction, verdictEmbed(lang, colors, verdict))
	case errors.Is(err, toxicity.ErrTooShort):
		b.editResponse(interaction, commandEmbed(lang, tr(lang, "check_title"), tr(lang, "check_too_short"), colors.Action, nil))
	default:
		b.logger.Warn("check unavailable", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		b.editResponse(interaction, commandEmbed(lang, tr(lang, "check_title"), tr(lang, "check_unavailable"), colors.Error, nil))
	}
}

func (b *Bot) handleReport(ctx context.Context, interaction *discordgo.InteractionCreate, lang, period string) {
	colors := b.cfg.Notifications.EmbedColors
	since, err := analytics.PeriodStart(period, time.Now())
	if err == nil {
		var report analytics.Report
		report, err = b.analytics.Report(ctx, interaction.GuildID, since)
		if err == nil {
			b.respondEmbed(interaction, reportEmbed(lang, colors, report), true)
			return
		}
	}
	b.logger.Error("report failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
	b.respondEmbed(interaction, commandEmbed(lang, tr(lang, "error_title"), tr(lang, "error_report"), colors.Error, nil), true)
}

// optionString returns the named option as a string; channel options yield
// the channel id. Missing options give "".
func optionString(options []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, opt := range options {
		if opt == nil || opt.Name != name {
			continue
		}
		switch opt.Type {
		case discordgo.ApplicationCommandOptionString:
			return strings.TrimSpace(opt.StringValue())
		case discordgo.ApplicationCommandOptionChannel:
			return opt.ChannelValue(nil).ID
		default:
			return fmt.Sprint(opt.Value)
		}
	}
	return ""
}

func interactionUserID(interaction *discordgo.InteractionCreate) string {
	if interaction.Member != nil && interaction.Member.User != nil {
		return interaction.Member.User.ID
	}
	if interaction.User != nil {
		return interaction.User.ID
	}
	return ""
}
