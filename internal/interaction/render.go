package interaction

import (
	"fmt"
	"html"

	"github.com/Proton-105/cuteforcute-bot/internal/domain"
	"github.com/Proton-105/cuteforcute-bot/internal/i18n"
)

// Mention renders an HTML link to the user's profile.
func Mention(u *domain.User) string {
	if u == nil {
		return ""
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, u.ID, html.EscapeString(u.DisplayName()))
}

// Renderer produces the message text that replaces a resolved proposal.
type Renderer struct {
	translations *i18n.Manager
}

func NewRenderer(translations *i18n.Manager) *Renderer {
	return &Renderer{translations: translations}
}

// Render builds the accept or decline sentence in lang.
func (r *Renderer) Render(lang string, sender, receiver *domain.User, action *domain.Action, d domain.Decision) string {
	tr := r.translations.Translator(lang)

	args := map[string]string{
		"sender":   Mention(sender),
		"receiver": Mention(receiver),
		"emoji":    action.Emoji,
		"past":     html.EscapeString(action.PastTense),
		"genitive": html.EscapeString(action.GenitiveNoun),
	}

	if d == domain.Accept {
		return tr.F("interaction.accepted", args)
	}
	return tr.F("interaction.declined", args)
}

// Proposal renders the text delivered with a fresh proposal.
func (r *Renderer) Proposal(lang string, sender *domain.User, action *domain.Action) string {
	return r.translations.Translator(lang).F("interaction.proposal", map[string]string{
		"emoji":      action.Emoji,
		"sender":     Mention(sender),
		"infinitive": html.EscapeString(action.Infinitive),
	})
}
