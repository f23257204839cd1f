package handlers

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/cuteforcute-bot/internal/admin"
	"github.com/Proton-105/cuteforcute-bot/internal/bot/keyboard"
	"github.com/Proton-105/cuteforcute-bot/internal/catalogue"
	"github.com/Proton-105/cuteforcute-bot/internal/domain"
	"github.com/Proton-105/cuteforcute-bot/internal/i18n"
	"github.com/Proton-105/cuteforcute-bot/internal/jobs"
	"github.com/Proton-105/cuteforcute-bot/internal/state"
)

// ActionAdmin is the catalogue surface behind the admin menu.
type ActionAdmin interface {
	ListActions(ctx context.Context, page, perPage int) ([]domain.Action, int, error)
	GetActionByID(ctx context.Context, id int64) (*domain.Action, error)
	ValidateField(field domain.ActionField, value string) error
	CreateAction(ctx context.Context, draft domain.ActionDraft) (*domain.Action, error)
	UpdateAction(ctx context.Context, id int64, field domain.ActionField, value string) error
	DeleteAction(ctx context.Context, id int64) (bool, error)
	Invalidate(ctx context.Context)
}

// AdminRegistry decides and manages who is an admin.
type AdminRegistry interface {
	IsAdmin(ctx context.Context, userID int64) bool
	Add(ctx context.Context, by int64, target domain.User) error
	Remove(ctx context.Context, by, target int64) (bool, error)
}

// GlobalStatsReader feeds the admin stats screen.
type GlobalStatsReader interface {
	GetGlobalStats(ctx context.Context) (*domain.GlobalStats, error)
}

// Exempter keeps the throttling whitelist in sync with the admin list.
type Exempter interface {
	Exempt(ids ...int64)
	Revoke(ids ...int64)
}

// AdminHandler serves the admin menu, its wizards and the admin management commands.
type AdminHandler struct {
	catalogue    ActionAdmin
	admins       AdminRegistry
	stats        GlobalStatsReader
	users        UserReader
	queue        jobs.Enqueuer
	exempt       Exempter
	fsm          state.StateMachine
	kb           *keyboard.Builder
	translations *i18n.Manager
	log          *slog.Logger
}

// AdminDeps groups the collaborators of AdminHandler.
type AdminDeps struct {
	Catalogue    ActionAdmin
	Admins       AdminRegistry
	Stats        GlobalStatsReader
	Users        UserReader
	Queue        jobs.Enqueuer
	Exempt       Exempter
	FSM          state.StateMachine
	Keyboard     *keyboard.Builder
	Translations *i18n.Manager
	Log          *slog.Logger
}

func NewAdminHandler(deps AdminDeps) *AdminHandler {
	log := loggerOrDefault(deps.Log).With(slog.String("component", "admin_handler"))
	return &AdminHandler{
		catalogue:    deps.Catalogue,
		admins:       deps.Admins,
		stats:        deps.Stats,
		users:        deps.Users,
		queue:        deps.Queue,
		exempt:       deps.Exempt,
		fsm:          deps.FSM,
		kb:           deps.Keyboard,
		translations: deps.Translations,
		log:          log,
	}
}

// RequireAdmin rejects updates from non-admins before next runs.
func (h *AdminHandler) RequireAdmin(next Handler) Handler {
	return func(c telebot.Context) error {
		if h.isAdmin(c) {
			return next(c)
		}

		t := translatorFor(h.translations, c)
		if c.Callback() != nil {
			return c.Respond(&telebot.CallbackResponse{Text: t.T("admin.forbidden"), ShowAlert: true})
		}
		return c.Send(t.T("admin.forbidden"))
	}
}

func (h *AdminHandler) isAdmin(c telebot.Context) bool {
	id := senderID(c)
	return id != 0 && h.admins.IsAdmin(RequestContext(c), id)
}

// Menu serves /admin and the back button.
func (h *AdminHandler) Menu(c telebot.Context) error {
	t := translatorFor(h.translations, c)
	if c.Callback() != nil {
		_ = c.Respond()
		return c.Edit(t.T("admin.menu.title"), h.kb.AdminMenu(t))
	}
	return c.Send(t.T("admin.menu.title"), h.kb.AdminMenu(t))
}

// List serves adm_list with data mode|page.
func (h *AdminHandler) List(c telebot.Context) error {
	parts := callbackParts(c)
	mode := keyboard.ModeView
	page := 1
	if len(parts) > 0 && parts[0] != "" {
		mode = parts[0]
	}
	if len(parts) > 1 {
		if n, err := strconv.Atoi(parts[1]); err == nil && n > 0 {
			page = n
		}
	}
	return h.showList(c, mode, page)
}

func (h *AdminHandler) showList(c telebot.Context, mode string, page int) error {
	ctx := RequestContext(c)
	t := translatorFor(h.translations, c)

	actions, total, err := h.catalogue.ListActions(ctx, page-1, keyboard.ActionsPerPage)
	if err != nil {
		return err
	}

	pager := keyboard.NewPager(page, total, keyboard.ActionsPerPage)
	if pager.Page < page {
		return h.showList(c, mode, pager.Page)
	}

	markup, err := h.kb.ActionList(t, actions, mode, pager)
	if err != nil {
		return err
	}

	text := t.T("admin.list.title_" + mode)
	if total == 0 {
		text = t.T("admin.list.empty")
	}

	_ = c.Respond()
	return c.Edit(text, markup)
}

// Action serves adm_act with data mode|id.
func (h *AdminHandler) Action(c telebot.Context) error {
	parts := callbackParts(c)
	if len(parts) != 2 {
		return h.invalidCallback(c)
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return h.invalidCallback(c)
	}

	switch parts[0] {
	case keyboard.ModeEdit:
		return h.showFieldPicker(c, id)
	case keyboard.ModeDelete:
		return h.showConfirmDelete(c, id)
	default:
		return h.showAction(c, id)
	}
}

func (h *AdminHandler) showAction(c telebot.Context, id int64) error {
	t := translatorFor(h.translations, c)
	action, ok, err := h.loadAction(c, id)
	if !ok {
		return err
	}

	_ = c.Respond()
	return c.Edit(FormatAction(t, action), h.kb.ActionView(t, id), telebot.ModeHTML)
}

// Edit serves adm_edit with the action id as data.
func (h *AdminHandler) Edit(c telebot.Context) error {
	id, ok := callbackID(c)
	if !ok {
		return h.invalidCallback(c)
	}
	return h.showFieldPicker(c, id)
}

func (h *AdminHandler) showFieldPicker(c telebot.Context, id int64) error {
	t := translatorFor(h.translations, c)
	action, ok, err := h.loadAction(c, id)
	if !ok {
		return err
	}

	_ = c.Respond()
	return c.Edit(t.F("admin.edit.pick_field", map[string]string{"action": actionLabel(action)}), h.kb.FieldPicker(t, id), telebot.ModeHTML)
}

// Field serves adm_fld with data id|field and starts the edit wizard.
func (h *AdminHandler) Field(c telebot.Context) error {
	parts := callbackParts(c)
	if len(parts) != 2 {
		return h.invalidCallback(c)
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	field := domain.ActionField(parts[1])
	if err != nil || !field.Valid() {
		return h.invalidCallback(c)
	}

	ctx := RequestContext(c)
	t := translatorFor(h.translations, c)

	if err := h.fsm.SetState(ctx, senderID(c), state.StateActionEditValue, map[string]interface{}{
		state.KeyActionID: id,
		state.KeyField:    string(field),
	}); err != nil {
		return err
	}

	_ = c.Respond()
	return c.Send(t.F("admin.edit.prompt", map[string]string{"field": t.T("admin.field." + string(field))}), keyboard.CancelKeyboard(t))
}

// Delete serves adm_del with the action id as data.
func (h *AdminHandler) Delete(c telebot.Context) error {
	id, ok := callbackID(c)
	if !ok {
		return h.invalidCallback(c)
	}
	return h.showConfirmDelete(c, id)
}

func (h *AdminHandler) showConfirmDelete(c telebot.Context, id int64) error {
	t := translatorFor(h.translations, c)
	action, ok, err := h.loadAction(c, id)
	if !ok {
		return err
	}

	_ = c.Respond()
	return c.Edit(t.F("admin.delete.confirm", map[string]string{"action": actionLabel(action)}), h.kb.ConfirmDelete(t, id), telebot.ModeHTML)
}

// ConfirmDelete serves adm_del_ok and deactivates the action.
func (h *AdminHandler) ConfirmDelete(c telebot.Context) error {
	id, ok := callbackID(c)
	if !ok {
		return h.invalidCallback(c)
	}

	t := translatorFor(h.translations, c)
	deleted, err := h.catalogue.DeleteAction(RequestContext(c), id)
	if err != nil {
		return err
	}
	if !deleted {
		return c.Respond(&telebot.CallbackResponse{Text: t.T("admin.action_missing"), ShowAlert: true})
	}

	h.log.Info("action deactivated by admin", slog.Int64("admin_id", senderID(c)), slog.Int64("action_id", id))
	_ = c.Respond(&telebot.CallbackResponse{Text: t.T("admin.delete.done")})
	return c.Edit(t.T("admin.delete.done"), h.kb.BackToMenu(t))
}

// ClearCache serves adm_cache.
func (h *AdminHandler) ClearCache(c telebot.Context) error {
	t := translatorFor(h.translations, c)
	h.catalogue.Invalidate(RequestContext(c))
	h.log.Info("catalogue cache cleared by admin", slog.Int64("admin_id", senderID(c)))
	return c.Respond(&telebot.CallbackResponse{Text: t.T("admin.cache.cleared")})
}

// Stats serves adm_stats.
func (h *AdminHandler) Stats(c telebot.Context) error {
	t := translatorFor(h.translations, c)
	stats, err := h.stats.GetGlobalStats(RequestContext(c))
	if err != nil {
		return err
	}

	text := t.F("admin.stats.text", map[string]string{
		"users":    strconv.FormatInt(stats.TotalUsers, 10),
		"actions":  strconv.FormatInt(stats.TotalActions, 10),
		"accepted": strconv.FormatInt(stats.Accepted, 10),
		"declined": strconv.FormatInt(stats.Declined, 10),
	})

	_ = c.Respond()
	return c.Edit(text, h.kb.BackToMenu(t), telebot.ModeHTML)
}

// Noop acknowledges the page label button.
func (h *AdminHandler) Noop(c telebot.Context) error {
	return c.Respond()
}

// AddAdmin serves /addadmin. The target is the replied-to user or a numeric id argument.
func (h *AdminHandler) AddAdmin(c telebot.Context) error {
	ctx := RequestContext(c)
	t := translatorFor(h.translations, c)

	target, ok := h.commandTarget(ctx, c)
	if !ok {
		return c.Send(t.T("admin.manage.usage_add"))
	}

	if err := h.admins.Add(ctx, senderID(c), *target); err != nil {
		return h.manageError(c, t, err)
	}
	if h.exempt != nil {
		h.exempt.Exempt(target.ID)
	}

	return c.Send(t.F("admin.manage.added", map[string]string{"name": target.DisplayName()}))
}

// RemoveAdmin serves /deladmin.
func (h *AdminHandler) RemoveAdmin(c telebot.Context) error {
	ctx := RequestContext(c)
	t := translatorFor(h.translations, c)

	target, ok := h.commandTarget(ctx, c)
	if !ok {
		return c.Send(t.T("admin.manage.usage_remove"))
	}

	removed, err := h.admins.Remove(ctx, senderID(c), target.ID)
	if err != nil {
		return h.manageError(c, t, err)
	}
	if !removed {
		return c.Send(t.T("admin.manage.not_admin"))
	}
	if h.exempt != nil {
		h.exempt.Revoke(target.ID)
	}

	return c.Send(t.F("admin.manage.removed", map[string]string{"name": target.DisplayName()}))
}

func (h *AdminHandler) manageError(c telebot.Context, t i18n.Translator, err error) error {
	switch {
	case errors.Is(err, admin.ErrOwnerOnly):
		return c.Send(t.T("admin.manage.owner_only"))
	case errors.Is(err, admin.ErrOwnerImmutable):
		return c.Send(t.T("admin.manage.owner_immutable"))
	default:
		return err
	}
}

func (h *AdminHandler) commandTarget(ctx context.Context, c telebot.Context) (*domain.User, bool) {
	msg := c.Message()
	if msg == nil {
		return nil, false
	}
	if msg.ReplyTo != nil && msg.ReplyTo.Sender != nil && !msg.ReplyTo.Sender.IsBot {
		return FromTelebot(msg.ReplyTo.Sender), true
	}

	args := strings.Fields(msg.Payload)
	if len(args) == 0 {
		return nil, false
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return nil, false
	}

	if h.users != nil {
		if u, err := h.users.Get(ctx, id); err == nil {
			return u, true
		}
	}
	return &domain.User{ID: id}, true
}

// loadAction answers the callback itself when the action cannot be shown.
func (h *AdminHandler) loadAction(c telebot.Context, id int64) (*domain.Action, bool, error) {
	action, err := h.catalogue.GetActionByID(RequestContext(c), id)
	if err == nil {
		return action, true, nil
	}
	if errors.Is(err, catalogue.ErrNotFound) {
		t := translatorFor(h.translations, c)
		return nil, false, c.Respond(&telebot.CallbackResponse{Text: t.T("admin.action_missing"), ShowAlert: true})
	}
	return nil, false, err
}

func (h *AdminHandler) invalidCallback(c telebot.Context) error {
	h.log.Warn("malformed admin callback", slog.Int64("user_id", senderID(c)))
	return c.Respond()
}

// FormatAction renders the admin card of one action.
func FormatAction(t i18n.Translator, action *domain.Action) string {
	status := t.T("admin.action.active")
	if !action.IsActive {
		status = t.T("admin.action.archived")
	}

	return t.F("admin.action.card", map[string]string{
		"id":          strconv.FormatInt(action.ID, 10),
		"emoji":       action.Emoji,
		"name":        action.Name,
		"infinitive":  action.Infinitive,
		"past_tense":  action.PastTense,
		"noun":        action.GenitiveNoun,
		"description": action.Description,
		"usage":       strconv.FormatInt(action.UsageCount, 10),
		"status":      status,
	})
}

func actionLabel(action *domain.Action) string {
	return strings.TrimSpace(action.Emoji + " " + action.Name)
}

// callbackParts returns the |-separated data of the callback, without its unique.
func callbackParts(c telebot.Context) []string {
	cb := c.Callback()
	if cb == nil {
		return nil
	}
	_, data, err := keyboard.DecodeCallback(cb.Data)
	if err != nil || data == "" {
		return nil
	}
	return keyboard.SplitData(data)
}

func callbackID(c telebot.Context) (int64, bool) {
	parts := callbackParts(c)
	if len(parts) != 1 {
		return 0, false
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	return id, err == nil
}
