package handlers_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/cuteforcute-bot/internal/admin"
	"github.com/Proton-105/cuteforcute-bot/internal/bot/handlers"
	"github.com/Proton-105/cuteforcute-bot/internal/bot/keyboard"
	"github.com/Proton-105/cuteforcute-bot/internal/domain"
	apperrors "github.com/Proton-105/cuteforcute-bot/internal/errors"
	"github.com/Proton-105/cuteforcute-bot/internal/jobs"
	"github.com/Proton-105/cuteforcute-bot/internal/state"
	"github.com/Proton-105/cuteforcute-bot/internal/testutil"
)

type adminFixture struct {
	h       *handlers.AdminHandler
	cat     *mockCatalogue
	admins  *mockAdmins
	stats   *mockStats
	users   *mockUsers
	queue   *mockQueue
	exempt  *mockExempter
	fsm     state.StateMachine
	cancel  handlers.Handler
	adminID int64
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()

	f := &adminFixture{
		cat:     &mockCatalogue{},
		admins:  &mockAdmins{},
		stats:   &mockStats{},
		users:   &mockUsers{},
		queue:   &mockQueue{},
		exempt:  &mockExempter{},
		fsm:     newFSM(t),
		adminID: alice.ID,
	}
	f.admins.On("IsAdmin", mock.Anything, alice.ID).Return(true).Maybe()
	f.admins.On("IsAdmin", mock.Anything, bob.ID).Return(false).Maybe()

	translations := testTranslations(t)
	f.h = handlers.NewAdminHandler(handlers.AdminDeps{
		Catalogue:    f.cat,
		Admins:       f.admins,
		Stats:        f.stats,
		Users:        f.users,
		Queue:        f.queue,
		Exempt:       f.exempt,
		FSM:          f.fsm,
		Keyboard:     keyboard.NewBuilder(testLogger()),
		Translations: translations,
		Log:          testLogger(),
	})
	f.cancel = handlers.NewCancelHandler(f.fsm, translations, testLogger())
	return f
}

func (f *adminFixture) currentState(t *testing.T) *state.UserState {
	t.Helper()
	st, err := f.fsm.GetState(context.Background(), f.adminID)
	require.NoError(t, err)
	return st
}

func callback(user *telebot.User, data string) *testutil.FakeContext {
	return testutil.NewCallback(user, data, &telebot.Message{ID: 10, Chat: &telebot.Chat{ID: user.ID}})
}

func TestAdminHandler_RequireAdmin(t *testing.T) {
	f := newAdminFixture(t)
	called := false
	guarded := f.h.RequireAdmin(func(telebot.Context) error {
		called = true
		return nil
	})

	msg := testutil.NewMessage(bob, "/admin")
	require.NoError(t, guarded(msg))
	assert.False(t, called)
	assert.Equal(t, "⛔ Admins only", msg.LastSent())

	cb := callback(bob, "adm")
	require.NoError(t, guarded(cb))
	assert.True(t, cb.LastResponse().ShowAlert)

	require.NoError(t, guarded(testutil.NewMessage(alice, "/admin")))
	assert.True(t, called)
}

func TestAdminHandler_AddWizard(t *testing.T) {
	f := newAdminFixture(t)
	f.cat.On("ValidateField", mock.Anything, mock.Anything).Return(nil)

	created := &domain.Action{ID: 12, Name: "pat", Emoji: "🫳", Infinitive: "pat", PastTense: "patted", GenitiveNoun: "a pat", IsActive: true}
	f.cat.On("CreateAction", mock.Anything, domain.ActionDraft{
		Name: "pat", Emoji: "🫳", Infinitive: "pat", PastTense: "patted", GenitiveNoun: "a pat",
	}).Return(created, nil).Once()

	start := callback(alice, "adm_add")
	require.NoError(t, f.h.StartAdd(start))
	assert.Equal(t, "Send the name of the new action", start.LastSent())
	assert.Equal(t, state.StateActionAddName, f.currentState(t).CurrentState)

	steps := []struct {
		from   state.State
		answer string
		next   state.State
	}{
		{state.StateActionAddName, " pat ", state.StateActionAddEmoji},
		{state.StateActionAddEmoji, "🫳", state.StateActionAddInfinitive},
		{state.StateActionAddInfinitive, "pat", state.StateActionAddPast},
		{state.StateActionAddPast, "patted", state.StateActionAddNoun},
	}
	for _, step := range steps {
		require.NoError(t, f.h.AddStep(step.from)(testutil.NewMessage(alice, step.answer)))
		assert.Equal(t, step.next, f.currentState(t).CurrentState)
	}

	finish := testutil.NewMessage(alice, "a pat")
	require.NoError(t, f.h.AddFinish(finish))

	require.Len(t, finish.Sent, 2)
	assert.Equal(t, "✅ Action created", finish.Sent[0])
	assert.Contains(t, finish.Sent[1], "<b>pat</b> (#12)")

	_, err := f.fsm.GetState(context.Background(), f.adminID)
	assert.ErrorIs(t, err, state.ErrStateNotFound)
	f.cat.AssertExpectations(t)
}

func TestAdminHandler_AddWizardRejectsInvalidAnswer(t *testing.T) {
	f := newAdminFixture(t)
	f.cat.On("ValidateField", domain.FieldEmoji, "").Return(apperrors.NewValidationError("emoji is required"))

	require.NoError(t, f.fsm.SetState(context.Background(), f.adminID, state.StateActionAddEmoji, map[string]interface{}{state.KeyName: "pat"}))

	c := testutil.NewMessage(alice, "")
	require.NoError(t, f.h.AddStep(state.StateActionAddEmoji)(c))

	assert.Contains(t, c.LastSent(), "emoji is required")
	st := f.currentState(t)
	assert.Equal(t, state.StateActionAddEmoji, st.CurrentState)
	assert.Equal(t, "pat", st.String(state.KeyName))
}

func TestAdminHandler_AddWizardDuplicateName(t *testing.T) {
	f := newAdminFixture(t)
	f.cat.On("ValidateField", mock.Anything, mock.Anything).Return(nil)
	f.cat.On("CreateAction", mock.Anything, mock.Anything).Return(nil, apperrors.NewDuplicateNameError("hug", nil))

	require.NoError(t, f.fsm.SetState(context.Background(), f.adminID, state.StateActionAddNoun, map[string]interface{}{
		state.KeyName: "hug", state.KeyEmoji: "🤗", state.KeyInfinitive: "hug", state.KeyPastTense: "hugged",
	}))

	c := testutil.NewMessage(alice, "a hug")
	require.NoError(t, f.h.AddFinish(c))

	assert.Contains(t, c.LastSent(), "«hug» is already taken")
	_, err := f.fsm.GetState(context.Background(), f.adminID)
	assert.ErrorIs(t, err, state.ErrStateNotFound)

	again := testutil.NewMessage(alice, "/cancel")
	require.NoError(t, f.cancel(again))
	assert.Equal(t, "Nothing to cancel", again.LastSent())
}

func TestAdminHandler_EditWizard(t *testing.T) {
	f := newAdminFixture(t)
	f.cat.On("UpdateAction", mock.Anything, int64(7), domain.FieldPastTense, "cuddled").Return(nil)
	f.cat.On("GetActionByID", mock.Anything, int64(7)).Return(hug, nil)

	pick := callback(alice, "adm_fld|7|past_tense")
	require.NoError(t, f.h.Field(pick))
	assert.Equal(t, "Send the new value for «Past tense»", pick.LastSent())

	st := f.currentState(t)
	assert.Equal(t, state.StateActionEditValue, st.CurrentState)
	id, ok := st.Int64(state.KeyActionID)
	require.True(t, ok)
	assert.Equal(t, int64(7), id)

	answer := testutil.NewMessage(alice, "cuddled")
	require.NoError(t, f.h.EditValue(answer))
	assert.Equal(t, "✅ Action updated", answer.Sent[0])
	f.cat.AssertExpectations(t)
}

func TestAdminHandler_FieldRejectsUnknownField(t *testing.T) {
	f := newAdminFixture(t)

	c := callback(alice, "adm_fld|7|usage_count")
	require.NoError(t, f.h.Field(c))
	assert.Empty(t, c.Sent)

	_, err := f.fsm.GetState(context.Background(), f.adminID)
	assert.ErrorIs(t, err, state.ErrStateNotFound)
}

func TestAdminHandler_ListPaginates(t *testing.T) {
	f := newAdminFixture(t)
	f.cat.On("ListActions", mock.Anything, 1, keyboard.ActionsPerPage).Return([]domain.Action{*hug}, 11, nil)

	c := callback(alice, "adm_list|edit|2")
	require.NoError(t, f.h.List(c))

	require.Len(t, c.Edited, 1)
	assert.Equal(t, "✏️ Pick an action to edit", c.Edited[0])

	markup := c.EditOpts[0][0].(*telebot.ReplyMarkup)
	assert.Equal(t, "adm_act|edit|7", markup.InlineKeyboard[0][0].Data)
	assert.Equal(t, "adm_list|edit|1", markup.InlineKeyboard[1][0].Data)
}

func TestAdminHandler_ConfirmDelete(t *testing.T) {
	f := newAdminFixture(t)
	f.cat.On("DeleteAction", mock.Anything, int64(7)).Return(true, nil).Once()
	f.cat.On("DeleteAction", mock.Anything, int64(8)).Return(false, nil).Once()

	ok := callback(alice, "adm_del_ok|7")
	require.NoError(t, f.h.ConfirmDelete(ok))
	assert.Equal(t, "✅ Action archived", ok.Edited[0])

	missing := callback(alice, "adm_del_ok|8")
	require.NoError(t, f.h.ConfirmDelete(missing))
	assert.True(t, missing.LastResponse().ShowAlert)
	assert.Empty(t, missing.Edited)
}

func TestAdminHandler_ClearCacheAndStats(t *testing.T) {
	f := newAdminFixture(t)
	f.cat.On("Invalidate", mock.Anything).Once()
	f.stats.On("GetGlobalStats", mock.Anything).Return(&domain.GlobalStats{TotalUsers: 3, TotalActions: 10, Accepted: 6, Declined: 2}, nil)

	cache := callback(alice, "adm_cache")
	require.NoError(t, f.h.ClearCache(cache))
	assert.Equal(t, "♻️ Cache cleared", cache.LastResponse().Text)

	stats := callback(alice, "adm_stats")
	require.NoError(t, f.h.Stats(stats))
	assert.Contains(t, stats.Edited[0], "Users: 3")
	assert.Contains(t, stats.Edited[0], "Accepted: 6")
	f.cat.AssertExpectations(t)
}

func TestAdminHandler_Broadcast(t *testing.T) {
	f := newAdminFixture(t)
	f.queue.On("Enqueue", mock.Anything, mock.MatchedBy(func(task *asynq.Task) bool {
		var p jobs.BroadcastPayload
		return task.Type() == jobs.TaskTypeBroadcastStart &&
			json.Unmarshal(task.Payload(), &p) == nil && p.Text == "<b>News</b>" && p.AdminID == alice.ID
	})).Return(&asynq.TaskInfo{ID: "task-1"}, nil).Once()

	require.NoError(t, f.h.StartBroadcast(callback(alice, "adm_bc")))
	assert.Equal(t, state.StateBroadcastText, f.currentState(t).CurrentState)

	text := testutil.NewMessage(alice, "<b>News</b>")
	require.NoError(t, f.h.BroadcastText(text))
	assert.Equal(t, "<b>News</b>", text.LastSent())
	assert.Equal(t, state.StateBroadcastConfirm, f.currentState(t).CurrentState)

	send := callback(alice, "bc_send")
	require.NoError(t, f.h.SendBroadcast(send))
	assert.Equal(t, "📣 Broadcast queued", send.Edited[0])

	replay := callback(alice, "bc_send")
	require.NoError(t, f.h.SendBroadcast(replay))
	assert.True(t, replay.LastResponse().ShowAlert)
	f.queue.AssertExpectations(t)
}

func TestAdminHandler_ManageAdmins(t *testing.T) {
	f := newAdminFixture(t)
	f.admins.On("Add", mock.Anything, alice.ID, mock.MatchedBy(func(u domain.User) bool { return u.ID == bob.ID })).Return(nil)
	f.admins.On("Remove", mock.Anything, alice.ID, bob.ID).Return(true, nil)
	f.admins.On("Remove", mock.Anything, alice.ID, int64(99)).Return(false, admin.ErrOwnerImmutable)

	add := testutil.NewMessage(alice, "/addadmin")
	add.Msg.ReplyTo = &telebot.Message{Sender: bob}
	require.NoError(t, f.h.AddAdmin(add))
	assert.Equal(t, "✅ Bob is now an admin", add.LastSent())
	assert.Equal(t, []int64{bob.ID}, f.exempt.exempted)

	f.users.On("Get", mock.Anything, bob.ID).Return(&domain.User{ID: bob.ID, FullName: "Bob"}, nil)
	remove := testutil.NewMessage(alice, "/deladmin 2")
	remove.Msg.Payload = "2"
	require.NoError(t, f.h.RemoveAdmin(remove))
	assert.Equal(t, "✅ Bob is no longer an admin", remove.LastSent())
	assert.Equal(t, []int64{bob.ID}, f.exempt.revoked)

	f.users.On("Get", mock.Anything, int64(99)).Return(nil, assert.AnError)
	owner := testutil.NewMessage(alice, "/deladmin 99")
	owner.Msg.Payload = "99"
	require.NoError(t, f.h.RemoveAdmin(owner))
	assert.Equal(t, "The owner's rights cannot be changed", owner.LastSent())

	usage := testutil.NewMessage(alice, "/addadmin")
	require.NoError(t, f.h.AddAdmin(usage))
	assert.Contains(t, usage.LastSent(), "/addadmin 123")
}

func TestCancelHandler_ClearsWizard(t *testing.T) {
	f := newAdminFixture(t)
	require.NoError(t, f.fsm.SetState(context.Background(), f.adminID, state.StateActionAddName, nil))

	c := testutil.NewMessage(alice, "❌ Cancel")
	require.NoError(t, f.cancel(c))
	assert.Equal(t, "Cancelled", c.LastSent())

	_, err := f.fsm.GetState(context.Background(), f.adminID)
	assert.ErrorIs(t, err, state.ErrStateNotFound)
}
