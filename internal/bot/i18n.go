package bot

import "fmt"

var translations = map[string]map[string]string{
	"en": {
		"bot_name":            "Sentinel",
		"footer":              "Sentinel toxicity moderation",
		"flag_title":          "Message flagged",
		"flag_title_crit":     "Message escalated",
		"flag_desc":           "%s posted a message that needs review.",
		"field_user":          "User",
		"field_channel":       "Channel",
		"field_labels":        "Labels",
		"field_score":         "Score",
		"field_risk":          "Risk",
		"field_matches":       "Matches",
		"field_infractions":   "Infractions",
		"field_links":         "Links",
		"field_action":        "Action",
		"field_content":       "Content",
		"field_processed":     "Processed text",
		"field_mode":          "Mode",
		"field_toxicity":      "Toxicity filter",
		"field_language":      "Language",
		"field_log_channel":   "Moderation log",
		"field_model":         "Moderation model",
		"field_categories":    "Categories",
		"field_top_risk":      "Highest risk",
		"field_total":         "Flags",
		"field_by_level":      "By level",
		"field_top_users":     "Top users",
		"field_audit":         "Audit entries",
		"jump":                "Jump to message",
		"action_flag":         "Flagged for review",
		"action_escalate":     "Escalated",
		"action_delete":       "Message deleted",
		"mode_audit":          "audit (no deletions)",
		"mode_normal":         "normal",
		"on":                  "on",
		"off":                 "off",
		"none":                "none",
		"model_ok":            "reachable",
		"model_down":          "unreachable",
		"status_title":        "Moderation status",
		"status_desc":         "Current toxicity moderation settings.",
		"settings_title":      "Settings updated",
		"toxicity_updated":    "Toxicity filter is now %s.",
		"logs_updated":        "Moderation log channel set to %s.",
		"language_updated":    "Language set to %s.",
		"mode_updated":        "Mode set to %s.",
		"check_title":         "Toxicity check",
		"check_clean":         "No toxicity detected.",
		"check_flagged":       "This text would be flagged.",
		"check_too_short":     "Text is too short to classify.",
		"check_unavailable":   "The moderation model is unavailable, try again later.",
		"report_title":        "Moderation report",
		"report_desc":         "Flags since %s.",
		"warn_title":          "Your message was flagged",
		"warn_desc":           "A message you posted in %s was flagged as %s. Please keep the conversation respectful.",
		"audit_title":         "Audit",
		"error_title":         "Error",
		"error_only_guild":    "This command only works in a server.",
		"error_unknown":       "Unknown command.",
		"error_settings_save": "Could not save settings.",
		"error_report":        "Could not build the report.",
	},
	"fr": {
		"bot_name":            "Sentinel",
		"footer":              "Moderation de toxicite Sentinel",
		"flag_title":          "Message signale",
		"flag_title_crit":     "Message escalade",
		"flag_desc":           "%s a publie un message a verifier.",
		"field_user":          "Utilisateur",
		"field_channel":       "Salon",
		"field_labels":        "Categories",
		"field_score":         "Score",
		"field_risk":          "Risque",
		"field_matches":       "Correspondances",
		"field_infractions":   "Infractions",
		"field_links":         "Liens",
		"field_action":        "Action",
		"field_content":       "Contenu",
		"field_processed":     "Texte traite",
		"field_mode":          "Mode",
		"field_toxicity":      "Filtre de toxicite",
		"field_language":      "Langue",
		"field_log_channel":   "Journal de moderation",
		"field_model":         "Modele de moderation",
		"field_categories":    "Categories",
		"field_top_risk":      "Risque le plus eleve",
		"field_total":         "Signalements",
		"field_by_level":      "Par niveau",
		"field_top_users":     "Utilisateurs",
		"field_audit":         "Entrees d'audit",
		"jump":                "Aller au message",
		"action_flag":         "Signale pour verification",
		"action_escalate":     "Escalade",
		"action_delete":       "Message supprime",
		"mode_audit":          "audit (aucune suppression)",
		"mode_normal":         "normal",
		"on":                  "active",
		"off":                 "desactive",
		"none":                "aucun",
		"model_ok":            "joignable",
		"model_down":          "injoignable",
		"status_title":        "Statut de moderation",
		"status_desc":         "Parametres actuels de moderation.",
		"settings_title":      "Parametres mis a jour",
		"toxicity_updated":    "Le filtre de toxicite est maintenant %s.",
		"logs_updated":        "Salon du journal de moderation : %s.",
		"language_updated":    "Langue definie sur %s.",
		"mode_updated":        "Mode defini sur %s.",
		"check_title":         "Verification de toxicite",
		"check_clean":         "Aucune toxicite detectee.",
		"check_flagged":       "Ce texte serait signale.",
		"check_too_short":     "Texte trop court pour etre analyse.",
		"check_unavailable":   "Le modele de moderation est indisponible, reessayez plus tard.",
		"report_title":        "Rapport de moderation",
		"report_desc":         "Signalements depuis %s.",
		"warn_title":          "Votre message a ete signale",
		"warn_desc":           "Un message publie dans %s a ete signale comme %s. Merci de rester respectueux.",
		"audit_title":         "Audit",
		"error_title":         "Erreur",
		"error_only_guild":    "Cette commande fonctionne uniquement sur un serveur.",
		"error_unknown":       "Commande inconnue.",
		"error_settings_save": "Impossible d'enregistrer les parametres.",
		"error_report":        "Impossible de generer le rapport.",
	},
	"ro": {
		"bot_name":            "Sentinel",
		"footer":              "Moderare toxicitate Sentinel",
		"flag_title":          "Mesaj semnalat",
		"flag_title_crit":     "Mesaj escaladat",
		"flag_desc":           "%s a trimis un mesaj care trebuie verificat.",
		"field_user":          "Utilizator",
		"field_channel":       "Canal",
		"field_labels":        "Categorii",
		"field_score":         "Scor",
		"field_risk":          "Risc",
		"field_matches":       "Potriviri",
		"field_infractions":   "Abateri",
		"field_links":         "Linkuri",
		"field_action":        "Actiune",
		"field_content":       "Continut",
		"field_processed":     "Text procesat",
		"field_mode":          "Mod",
		"field_toxicity":      "Filtru toxicitate",
		"field_language":      "Limba",
		"field_log_channel":   "Jurnal moderare",
		"field_model":         "Model moderare",
		"field_categories":    "Categorii",
		"field_top_risk":      "Risc maxim",
		"field_total":         "Semnalari",
		"field_by_level":      "Pe nivel",
		"field_top_users":     "Utilizatori",
		"field_audit":         "Intrari audit",
		"jump":                "Mergi la mesaj",
		"action_flag":         "Semnalat pentru verificare",
		"action_escalate":     "Escaladat",
		"action_delete":       "Mesaj sters",
		"mode_audit":          "audit (fara stergeri)",
		"mode_normal":         "normal",
		"on":                  "activ",
		"off":                 "inactiv",
		"none":                "niciunul",
		"model_ok":            "disponibil",
		"model_down":          "indisponibil",
		"status_title":        "Stare moderare",
		"status_desc":         "Setarile curente de moderare.",
		"settings_title":      "Setari actualizate",
		"toxicity_updated":    "Filtrul de toxicitate este acum %s.",
		"logs_updated":        "Canalul jurnalului de moderare: %s.",
		"language_updated":    "Limba setata la %s.",
		"mode_updated":        "Mod setat la %s.",
		"check_title":         "Verificare toxicitate",
		"check_clean":         "Nu a fost detectata toxicitate.",
		"check_flagged":       "Acest text ar fi semnalat.",
		"check_too_short":     "Textul este prea scurt pentru clasificare.",
		"check_unavailable":   "Modelul de moderare nu este disponibil, incearca mai tarziu.",
		"report_title":        "Raport moderare",
		"report_desc":         "Semnalari din %s.",
		"warn_title":          "Mesajul tau a fost semnalat",
		"warn_desc":           "Un mesaj trimis in %s a fost semnalat ca %s. Te rugam sa pastrezi o discutie respectuoasa.",
		"audit_title":         "Audit",
		"error_title":         "Eroare",
		"error_only_guild":    "Aceasta comanda functioneaza doar pe un server.",
		"error_unknown":       "Comanda necunoscuta.",
		"error_settings_save": "Setarile nu au putut fi salvate.",
		"error_report":        "Raportul nu a putut fi generat.",
	},
}

// tr falls back to English, then to the key itself.
func tr(lang, key string) string {
	if table, ok := translations[lang]; ok {
		if value, ok := table[key]; ok {
			return value
		}
	}
	if value, ok := translations["en"][key]; ok {
		return value
	}
	return key
}

func trf(lang, key string, args ...any) string {
	return fmt.Sprintf(tr(lang, key), args...)
}
