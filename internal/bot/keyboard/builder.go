package keyboard

import (
	"log/slog"
	"strconv"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/cuteforcute-bot/internal/domain"
	"github.com/Proton-105/cuteforcute-bot/internal/i18n"
)

// Callback uniques. The router matches them exactly.
const (
	UniqueInteraction     = "iact"
	UniqueNoop            = "noop"
	UniqueCancel          = "cancel"
	UniqueAdminMenu       = "adm"
	UniqueAdminList       = "adm_list"
	UniqueAdminAction     = "adm_act"
	UniqueAdminAdd        = "adm_add"
	UniqueAdminEdit       = "adm_edit"
	UniqueAdminField      = "adm_fld"
	UniqueAdminDelete     = "adm_del"
	UniqueAdminDeleteOK   = "adm_del_ok"
	UniqueAdminCache      = "adm_cache"
	UniqueAdminStats      = "adm_stats"
	UniqueAdminBroadcast  = "adm_bc"
	UniqueBroadcastSend   = "bc_send"
	UniqueBroadcastCancel = "bc_cancel"
)

// List modes of the admin action list.
const (
	ModeView   = "view"
	ModeEdit   = "edit"
	ModeDelete = "del"
)

// ActionsPerPage is the admin list page size.
const ActionsPerPage = 10

// Builder renders the bot's inline keyboards.
type Builder struct {
	log *slog.Logger
}

// NewBuilder returns a new Builder instance.
func NewBuilder(log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{log: log}
}

// StartMenu offers a button that opens the inline picker in another chat.
func (b *Builder) StartMenu(t i18n.Translator) *telebot.ReplyMarkup {
	// A blank query opens the picker with the default results.
	return b.mustBuild(NewInline().Row(SwitchButton(translated(t, "start.inline_button", "💌 Send an action"), " ")))
}

// Proposal renders the accept/decline buttons of an inline proposal message.
func (b *Builder) Proposal(t i18n.Translator, senderID, actionID int64) (*telebot.ReplyMarkup, error) {
	row := make([]telebot.InlineButton, 0, 2)
	for _, choice := range []struct {
		decision domain.Decision
		key      string
		fallback string
	}{
		{domain.Accept, "interaction.accept_button", "✅"},
		{domain.Decline, "interaction.decline_button", "❌"},
	} {
		data, err := EncodeProposal(Proposal{SenderID: senderID, ActionID: actionID, Decision: choice.decision})
		if err != nil {
			return nil, err
		}
		row = append(row, telebot.InlineButton{Text: translated(t, choice.key, choice.fallback), Data: data})
	}
	return &telebot.ReplyMarkup{InlineKeyboard: [][]telebot.InlineButton{row}}, nil
}

// AdminMenu is the root of the admin surface.
func (b *Builder) AdminMenu(t i18n.Translator) *telebot.ReplyMarkup {
	return b.mustBuild(NewInline().Grid(2, []Button{
		CallbackButton(t.T("admin.menu.list"), UniqueAdminList, ModeView, "1"),
		CallbackButton(t.T("admin.menu.add"), UniqueAdminAdd),
		CallbackButton(t.T("admin.menu.edit"), UniqueAdminList, ModeEdit, "1"),
		CallbackButton(t.T("admin.menu.delete"), UniqueAdminList, ModeDelete, "1"),
		CallbackButton(t.T("admin.menu.stats"), UniqueAdminStats),
		CallbackButton(t.T("admin.menu.cache"), UniqueAdminCache),
		CallbackButton(t.T("admin.menu.broadcast"), UniqueAdminBroadcast),
	}))
}

// ActionList renders one page of actions; picking an action opens it in mode.
func (b *Builder) ActionList(t i18n.Translator, actions []domain.Action, mode string, pager Pager) (*telebot.ReplyMarkup, error) {
	buttons := make([]Button, len(actions))
	for i, action := range actions {
		text := action.Emoji + " " + action.Name
		if !action.IsActive {
			text = "🗄 " + text
		}
		buttons[i] = CallbackButton(text, UniqueAdminAction, mode, strconv.FormatInt(action.ID, 10))
	}

	kb := NewInline().Grid(2, buttons)
	if pager.Pages > 1 {
		kb.Row(pager.Buttons(t, UniqueAdminList, mode)...)
	}
	return kb.Row(backButton(t)).Markup()
}

// ActionView offers edit and delete for one action.
func (b *Builder) ActionView(t i18n.Translator, actionID int64) *telebot.ReplyMarkup {
	id := strconv.FormatInt(actionID, 10)
	return b.mustBuild(NewInline().
		Row(
			CallbackButton(t.T("admin.menu.edit"), UniqueAdminEdit, id),
			CallbackButton(t.T("admin.menu.delete"), UniqueAdminDelete, id),
		).
		Row(CallbackButton(t.T("admin.back"), UniqueAdminList, ModeView, "1")))
}

// FieldPicker lists the editable fields of an action.
func (b *Builder) FieldPicker(t i18n.Translator, actionID int64) *telebot.ReplyMarkup {
	id := strconv.FormatInt(actionID, 10)

	fields := domain.EditableFields()
	buttons := make([]Button, len(fields))
	for i, field := range fields {
		buttons[i] = CallbackButton(t.T("admin.field."+string(field)), UniqueAdminField, id, string(field))
	}

	return b.mustBuild(NewInline().
		Grid(2, buttons).
		Row(CallbackButton(t.T("admin.back"), UniqueAdminList, ModeEdit, "1")))
}

// ConfirmDelete asks before deactivating an action.
func (b *Builder) ConfirmDelete(t i18n.Translator, actionID int64) *telebot.ReplyMarkup {
	return b.mustBuild(NewInline().Row(
		CallbackButton(t.T("admin.delete.confirm_button"), UniqueAdminDeleteOK, strconv.FormatInt(actionID, 10)),
		CallbackButton(t.T("common.cancel_button"), UniqueAdminList, ModeDelete, "1"),
	))
}

func (b *Builder) BroadcastConfirm(t i18n.Translator) *telebot.ReplyMarkup {
	return b.mustBuild(NewInline().Row(
		CallbackButton(t.T("admin.broadcast.send_button"), UniqueBroadcastSend),
		CallbackButton(t.T("common.cancel_button"), UniqueBroadcastCancel),
	))
}

// BackToMenu is a single button returning to the admin menu.
func (b *Builder) BackToMenu(t i18n.Translator) *telebot.ReplyMarkup {
	return b.mustBuild(NewInline().Row(backButton(t)))
}

func backButton(t i18n.Translator) Button {
	return CallbackButton(t.T("admin.back"), UniqueAdminMenu)
}

// mustBuild logs instead of failing; used for keyboards whose payloads are short and fixed.
func (b *Builder) mustBuild(kb *Inline) *telebot.ReplyMarkup {
	markup, err := kb.Markup()
	if err != nil {
		b.log.Error("failed to build keyboard", slog.Any("error", err))
		return nil
	}
	return markup
}
