package bot

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"sentinel-toxicity/internal/analytics"
	"sentinel-toxicity/internal/config"
	"sentinel-toxicity/internal/modules/antitoxic"
	"sentinel-toxicity/internal/modules/audit"
	"sentinel-toxicity/internal/storage"
	"sentinel-toxicity/internal/toxicity"

	"github.com/bwmarrin/discordgo"
)

// Discord rejects embed field values longer than this.
const fieldLimit = 1024

func embedFooter(lang string) *discordgo.MessageEmbedFooter {
	return &discordgo.MessageEmbedFooter{Text: tr(lang, "footer")}
}

func commandEmbed(lang, title, description string, color int, fields []*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields:      fields,
		Footer:      embedFooter(lang),
	}
}

func flagEmbed(lang string, colors config.EmbedColors, msg antitoxic.Message, outcome antitoxic.Outcome) *discordgo.MessageEmbed {
	title := tr(lang, "flag_title")
	color := colors.Action
	if outcome.Level == audit.LevelCrit {
		title = tr(lang, "flag_title_crit")
		color = colors.Warning
	}

	verdict := outcome.Verdict
	fields := []*discordgo.MessageEmbedField{
		{Name: tr(lang, "field_user"), Value: "<@" + msg.AuthorID + ">", Inline: true},
		{Name: tr(lang, "field_channel"), Value: "<#" + msg.ChannelID + ">", Inline: true},
		{Name: tr(lang, "field_action"), Value: actionLabel(lang, outcome.Action), Inline: true},
		{Name: tr(lang, "field_labels"), Value: joinOrNone(lang, verdict.Labels, ", "), Inline: true},
		{Name: tr(lang, "field_score"), Value: fmt.Sprintf("%d", verdict.Score), Inline: true},
		{Name: tr(lang, "field_risk"), Value: fmt.Sprintf("%.1f", outcome.Risk), Inline: true},
	}
	if len(verdict.Matches) > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{Name: tr(lang, "field_matches"), Value: truncate(quoteAll(verdict.Matches), fieldLimit)})
	}
	if len(outcome.Infractions) > 0 {
		var counts []string
		for _, label := range sortedKeys(outcome.Infractions) {
			counts = append(counts, fmt.Sprintf("%s: %d", label, outcome.Infractions[label]))
		}
		fields = append(fields, &discordgo.MessageEmbedField{Name: tr(lang, "field_infractions"), Value: strings.Join(counts, "\n"), Inline: true})
	}
	if len(outcome.Flag.Links) > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{Name: tr(lang, "field_links"), Value: truncate(strings.Join(outcome.Flag.Links, "\n"), fieldLimit)})
	}
	fields = append(fields,
		&discordgo.MessageEmbedField{Name: tr(lang, "field_content"), Value: truncate(msg.Content, fieldLimit)},
		&discordgo.MessageEmbedField{Name: tr(lang, "field_processed"), Value: truncate(verdict.Text, fieldLimit)},
	)

	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: trf(lang, "flag_desc", "<@"+msg.AuthorID+">"),
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields:      fields,
		Footer:      embedFooter(lang),
	}
	if !outcome.Deleted {
		embed.URL = messageLink(msg.GuildID, msg.ChannelID, msg.ID)
	}
	return embed
}

func warningEmbed(lang string, colors config.EmbedColors, msg antitoxic.Message, outcome antitoxic.Outcome) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       tr(lang, "warn_title"),
		Description: trf(lang, "warn_desc", "<#"+msg.ChannelID+">", strings.Join(outcome.Verdict.Labels, ", ")),
		Color:       colors.Warning,
		Timestamp:   time.Now().Format(time.RFC3339),
		Footer:      embedFooter(lang),
	}
}

func verdictEmbed(lang string, colors config.EmbedColors, verdict toxicity.Verdict) *discordgo.MessageEmbed {
	description := tr(lang, "check_clean")
	color := colors.Action
	if verdict.Flagged() {
		description = tr(lang, "check_flagged")
		color = colors.Warning
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: tr(lang, "field_labels"), Value: joinOrNone(lang, verdict.Labels, ", "), Inline: true},
		{Name: tr(lang, "field_score"), Value: fmt.Sprintf("%d", verdict.Score), Inline: true},
		{Name: tr(lang, "field_matches"), Value: truncate(joinOrNone(lang, quoted(verdict.Matches), ", "), fieldLimit)},
		{Name: tr(lang, "field_processed"), Value: truncate(verdict.Text, fieldLimit)},
	}
	return commandEmbed(lang, tr(lang, "check_title"), description, color, fields)
}

func reportEmbed(lang string, colors config.EmbedColors, report analytics.Report) *discordgo.MessageEmbed {
	var labels []string
	for _, label := range report.Labels() {
		labels = append(labels, fmt.Sprintf("%s: %d", label, report.ByLabel[label]))
	}
	var users []string
	for _, user := range report.TopUsers {
		users = append(users, fmt.Sprintf("<@%s>: %d", user.UserID, user.Flags))
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: tr(lang, "field_total"), Value: fmt.Sprintf("%d", report.Total), Inline: true},
		{Name: tr(lang, "field_by_level"), Value: levelCounts(report.ByLevel), Inline: true},
		{Name: tr(lang, "field_audit"), Value: levelCounts(report.AuditByLevel), Inline: true},
		{Name: tr(lang, "field_labels"), Value: truncate(joinOrNone(lang, labels, "\n"), fieldLimit)},
		{Name: tr(lang, "field_top_users"), Value: truncate(joinOrNone(lang, users, "\n"), fieldLimit)},
	}
	since := fmt.Sprintf("<t:%d:R>", report.Since.Unix())
	return commandEmbed(lang, tr(lang, "report_title"), trf(lang, "report_desc", since), colors.Action, fields)
}

func auditEmbed(lang string, colors config.EmbedColors, entry storage.AuditLog) *discordgo.MessageEmbed {
	color := colors.Action
	if entry.Level == audit.LevelCrit {
		color = colors.Warning
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: "Event", Value: entry.Event, Inline: true},
		{Name: "Level", Value: entry.Level, Inline: true},
	}
	if entry.UserID != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: tr(lang, "field_user"), Value: "<@" + entry.UserID + ">", Inline: true})
	}
	return commandEmbed(lang, tr(lang, "audit_title"), truncate(entry.Details, 4096), color, fields)
}

func actionLabel(lang, action string) string {
	switch action {
	case antitoxic.ActionFlag, antitoxic.ActionEscalate, antitoxic.ActionDelete:
		return tr(lang, "action_"+action)
	default:
		return action
	}
}

func modeLabel(lang, mode string) string {
	if mode == "audit" {
		return tr(lang, "mode_audit")
	}
	return tr(lang, "mode_normal")
}

func onOff(lang string, value bool) string {
	if value {
		return tr(lang, "on")
	}
	return tr(lang, "off")
}

func levelCounts(counts map[string]int) string {
	return fmt.Sprintf("INFO %d | WARN %d | CRIT %d", counts[audit.LevelInfo], counts[audit.LevelWarn], counts[audit.LevelCrit])
}

func messageLink(guildID, channelID, messageID string) string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guildID, channelID, messageID)
}

func joinOrNone(lang string, values []string, sep string) string {
	if len(values) == 0 {
		return tr(lang, "none")
	}
	return strings.Join(values, sep)
}

func quoted(values []string) []string {
	out := make([]string, len(values))
	for i, value := range values {
		out[i] = "`" + value + "`"
	}
	return out
}

func quoteAll(values []string) string {
	return strings.Join(quoted(values), ", ")
}

func sortedKeys(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// truncate cuts on a rune boundary and marks the cut with an ellipsis.
func truncate(value string, limit int) string {
	if value == "" {
		return "-"
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
