package bot

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/cuteforcute-bot/internal/bot/handlers"
	"github.com/Proton-105/cuteforcute-bot/internal/state"
	"github.com/Proton-105/cuteforcute-bot/internal/testutil"
)

var rootUser = &telebot.User{ID: 10, FirstName: "Root", LanguageCode: "en"}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestFSM(t *testing.T) state.StateMachine {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return state.NewStateMachine(state.NewRedisStorage(client, testLogger(), time.Hour), testLogger(), client)
}

// record returns a handler that appends name to *hits.
func record(hits *[]string, name string) handlers.Handler {
	return func(telebot.Context) error {
		*hits = append(*hits, name)
		return nil
	}
}

func newTestRouter(t *testing.T, fsm state.StateMachine, hits *[]string) *Router {
	t.Helper()

	steps := NewDispatcher(fsm)
	steps.Handle(state.StateBroadcastText, record(hits, "broadcast_text"))

	r := NewRouter(steps, testLogger())
	r.RegisterCommand(CommandStart, record(hits, "start"))
	r.RegisterCallback(CallbackAdminMenu, handlers.CallbackHandler(record(hits, "admin_menu")))
	r.SetCancel(func(c telebot.Context) bool { return c.Text() == "Cancel" }, record(hits, "cancel"))
	r.SetDefault(record(hits, "default"))
	return r
}

func TestRouter_TextResolution(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		wizard state.State
		want   string
	}{
		{name: "command", text: "/start", want: "start"},
		{name: "command with bot name and args", text: "/START@cute_bot hi", want: "start"},
		{name: "unknown command falls through", text: "/nope", want: "default"},
		{name: "plain text without wizard", text: "hello", want: "default"},
		{name: "wizard step", text: "hello", wizard: state.StateBroadcastText, want: "broadcast_text"},
		{name: "command beats wizard", text: "/start", wizard: state.StateBroadcastText, want: "start"},
		{name: "cancel beats wizard", text: "Cancel", wizard: state.StateBroadcastText, want: "cancel"},
		{name: "step without handler", text: "pat", wizard: state.StateActionAddName, want: "default"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fsm := newTestFSM(t)
			if tc.wizard != "" {
				require.NoError(t, fsm.SetState(context.Background(), rootUser.ID, tc.wizard, nil))
			}

			var hits []string
			r := newTestRouter(t, fsm, &hits)

			require.NoError(t, r.Route(testutil.NewMessage(rootUser, tc.text)))
			assert.Equal(t, []string{tc.want}, hits)
		})
	}
}

func TestRouter_Callbacks(t *testing.T) {
	var hits []string
	r := newTestRouter(t, newTestFSM(t), &hits)

	known := testutil.NewCallback(rootUser, CallbackAdminMenu+"|", nil)
	require.NoError(t, r.Route(known))
	assert.Equal(t, []string{"admin_menu"}, hits)
	assert.Empty(t, known.Responses)

	unknown := testutil.NewCallback(rootUser, "mystery|1", nil)
	require.NoError(t, r.Route(unknown))
	assert.Equal(t, []string{"admin_menu"}, hits)
	assert.Len(t, unknown.Responses, 1)
}

func TestRouter_ChainRunsOncePerUpdate(t *testing.T) {
	var hits []string
	r := newTestRouter(t, newTestFSM(t), &hits)

	mw := func(name string) handlers.Middleware {
		return func(next handlers.Handler) handlers.Handler {
			return func(c telebot.Context) error {
				hits = append(hits, name)
				return next(c)
			}
		}
	}
	r.Use(mw("outer"))
	r.Use(mw("inner"))

	// Plain text walks the wizard lookup and then the fallback.
	require.NoError(t, r.Route(testutil.NewMessage(rootUser, "hello")))
	assert.Equal(t, []string{"outer", "inner", "default"}, hits)
}
