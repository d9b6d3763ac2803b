package bot

import (
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

var manageGuild int64 = discordgo.PermissionManageServer

var dmAllowed = false

func commandList() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:                     "status",
			Description:              "Show toxicity moderation status",
			DefaultMemberPermissions: &manageGuild,
			DMPermission:             &dmAllowed,
			DescriptionLocalizations: &map[discordgo.Locale]string{
				discordgo.French:   "Afficher le statut de moderation",
				discordgo.Romanian: "Afiseaza starea moderarii",
			},
		},
		{
			Name:                     "toxicity",
			Description:              "Turn the toxicity filter on or off",
			DefaultMemberPermissions: &manageGuild,
			DMPermission:             &dmAllowed,
			DescriptionLocalizations: &map[discordgo.Locale]string{
				discordgo.French:   "Activer ou desactiver le filtre de toxicite",
				discordgo.Romanian: "Porneste sau opreste filtrul de toxicitate",
			},
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "value",
					Description: "on or off",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "on", Value: "on"},
						{Name: "off", Value: "off"},
					},
				},
			},
		},
		{
			Name:                     "logs",
			Description:              "Set the moderation log channel",
			DefaultMemberPermissions: &manageGuild,
			DMPermission:             &dmAllowed,
			DescriptionLocalizations: &map[discordgo.Locale]string{
				discordgo.French:   "Definir le salon du journal de moderation",
				discordgo.Romanian: "Seteaza canalul jurnalului de moderare",
			},
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionChannel,
					Name:         "channel",
					Description:  "Channel that receives flagged messages",
					Required:     true,
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
				},
			},
		},
		{
			Name:                     "language",
			Description:              "Set the bot language",
			DefaultMemberPermissions: &manageGuild,
			DMPermission:             &dmAllowed,
			DescriptionLocalizations: &map[discordgo.Locale]string{
				discordgo.French:   "Definir la langue du bot",
				discordgo.Romanian: "Seteaza limba botului",
			},
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "value",
					Description: "en, fr or ro",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "English", Value: "en"},
						{Name: "Francais", Value: "fr"},
						{Name: "Romana", Value: "ro"},
					},
				},
			},
		},
		{
			Name:                     "mode",
			Description:              "Set mode (audit or normal)",
			DefaultMemberPermissions: &manageGuild,
			DMPermission:             &dmAllowed,
			DescriptionLocalizations: &map[discordgo.Locale]string{
				discordgo.French:   "Definir le mode (audit ou normal)",
				discordgo.Romanian: "Seteaza modul (audit sau normal)",
			},
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "value",
					Description: "audit or normal",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "audit", Value: "audit"},
						{Name: "normal", Value: "normal"},
					},
				},
			},
		},
		{
			Name:                     "check",
			Description:              "Classify a text without posting it",
			DefaultMemberPermissions: &manageGuild,
			DMPermission:             &dmAllowed,
			DescriptionLocalizations: &map[discordgo.Locale]string{
				discordgo.French:   "Analyser un texte sans le publier",
				discordgo.Romanian: "Clasifica un text fara a-l publica",
			},
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "text",
					Description: "Text to classify",
					Required:    true,
					MaxLength:   2000,
				},
			},
		},
		{
			Name:                     "report",
			Description:              "Show flagged message statistics",
			DefaultMemberPermissions: &manageGuild,
			DMPermission:             &dmAllowed,
			DescriptionLocalizations: &map[discordgo.Locale]string{
				discordgo.French:   "Afficher les statistiques de signalement",
				discordgo.Romanian: "Afiseaza statisticile semnalarilor",
			},
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "period",
					Description: "day or week",
					Required:    false,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "day", Value: "day"},
						{Name: "week", Value: "week"},
					},
				},
			},
		},
	}
}

// registerCommands syncs global commands by name: edits the ones that
// exist, creates the missing ones and removes the ones no longer served.
func (b *Bot) registerCommands() error {
	commands := commandList()

	appID := b.session.State.User.ID
	existing, err := b.session.ApplicationCommands(appID, "")
	if err != nil {
		for _, cmd := range commands {
			if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
				return err
			}
		}
		return nil
	}

	existingByName := make(map[string]*discordgo.ApplicationCommand)
	for _, cmd := range existing {
		existingByName[cmd.Name] = cmd
	}

	desired := make(map[string]struct{})
	for _, cmd := range commands {
		desired[cmd.Name] = struct{}{}
		if current, ok := existingByName[cmd.Name]; ok {
			if _, err := b.session.ApplicationCommandEdit(appID, "", current.ID, cmd); err != nil {
				return err
			}
			continue
		}
		if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
			return err
		}
	}

	for _, cmd := range existing {
		if _, ok := desired[cmd.Name]; ok {
			continue
		}
		if err := b.session.ApplicationCommandDelete(appID, "", cmd.ID); err != nil {
			b.logger.Warn("stale command delete failed", zap.String("command", cmd.Name), zap.Error(err))
		}
	}
	return nil
}
