package handlers_test

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/cuteforcute-bot/internal/bot/handlers"
	"github.com/Proton-105/cuteforcute-bot/internal/catalogue"
	"github.com/Proton-105/cuteforcute-bot/internal/domain"
	apperrors "github.com/Proton-105/cuteforcute-bot/internal/errors"
	"github.com/Proton-105/cuteforcute-bot/internal/idempotency"
	"github.com/Proton-105/cuteforcute-bot/internal/interaction"
	"github.com/Proton-105/cuteforcute-bot/internal/testutil"
)

func newInteractionHandler(t *testing.T, cat *mockCatalogue, resolver *mockResolver) *handlers.InteractionHandler {
	t.Helper()
	guard := idempotency.NewManager(idempotency.NewRedisStore(newRedis(t), testLogger()), testLogger())
	return handlers.NewInteractionHandler(cat, resolver, guard, time.Hour, testTranslations(t), testLogger())
}

func TestInteractionHandler_AcceptIsResolvedOnce(t *testing.T) {
	cat := &mockCatalogue{}
	resolver := &mockResolver{}
	h := newInteractionHandler(t, cat, resolver)

	cat.On("GetActionByID", mock.Anything, int64(7)).Return(hug, nil)
	resolver.On("Resolve", mock.Anything, mock.MatchedBy(func(req interaction.Request) bool {
		return req.SenderID == 1 && req.Receiver.ID == 2 && req.ActionName == "hug" &&
			req.Decision == domain.Accept && req.MessageHandle == "inline-1"
	})).Return(&interaction.Resolution{Text: "🤗 Alice hugged Bob"}, nil).Once()

	first := testutil.NewInlineCallback(bob, "iact|1|7|1", "inline-1")
	require.NoError(t, h.Handle(first))

	replay := testutil.NewInlineCallback(bob, "iact|1|7|1", "inline-1")
	require.NoError(t, h.Handle(replay))

	for _, c := range []*testutil.FakeContext{first, replay} {
		require.Len(t, c.Edited, 1)
		assert.Equal(t, "🤗 Alice hugged Bob", c.Edited[0])
		assert.Equal(t, "✅ Accepted!", c.LastResponse().Text)
	}
	resolver.AssertNumberOfCalls(t, "Resolve", 1)
}

func TestInteractionHandler_FirstDecisionWins(t *testing.T) {
	cat := &mockCatalogue{}
	resolver := &mockResolver{}
	h := newInteractionHandler(t, cat, resolver)

	cat.On("GetActionByID", mock.Anything, int64(7)).Return(hug, nil)
	resolver.On("Resolve", mock.Anything, mock.Anything).
		Return(&interaction.Resolution{Text: "❌ Bob declined a hug from Alice"}, nil).Once()

	require.NoError(t, h.Handle(testutil.NewInlineCallback(bob, "iact|1|7|0", "inline-1")))

	late := testutil.NewInlineCallback(bob, "iact|1|7|1", "inline-1")
	require.NoError(t, h.Handle(late))

	assert.Equal(t, "❌ Declined", late.LastResponse().Text)
	assert.Equal(t, "❌ Bob declined a hug from Alice", late.Edited[0])
	resolver.AssertNumberOfCalls(t, "Resolve", 1)
}

func TestInteractionHandler_Failures(t *testing.T) {
	testCases := []struct {
		name        string
		data        string
		setup       func(cat *mockCatalogue, resolver *mockResolver)
		wantAlert   string
		wantDeleted bool
	}{
		{
			name:      "malformed payload",
			data:      "iact|x|7|1",
			setup:     func(*mockCatalogue, *mockResolver) {},
			wantAlert: "❌ This action is no longer available",
		},
		{
			name: "self interaction",
			data: "iact|2|7|1",
			setup: func(cat *mockCatalogue, resolver *mockResolver) {
				cat.On("GetActionByID", mock.Anything, int64(7)).Return(hug, nil)
				resolver.On("Resolve", mock.Anything, mock.Anything).Return(nil, apperrors.ErrSelfInteraction)
			},
			wantAlert: "You cannot answer your own action",
		},
		{
			name: "action archived",
			data: "iact|1|9|1",
			setup: func(cat *mockCatalogue, _ *mockResolver) {
				cat.On("GetActionByID", mock.Anything, int64(9)).Return(nil, catalogue.ErrNotFound)
			},
			wantAlert:   "❌ This action is no longer available",
			wantDeleted: true,
		},
		{
			name: "unknown sender",
			data: "iact|1|7|1",
			setup: func(cat *mockCatalogue, resolver *mockResolver) {
				cat.On("GetActionByID", mock.Anything, int64(7)).Return(hug, nil)
				resolver.On("Resolve", mock.Anything, mock.Anything).Return(nil, apperrors.ErrUnknownSender)
			},
			wantAlert: "❌ Sender not found",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cat := &mockCatalogue{}
			resolver := &mockResolver{}
			tc.setup(cat, resolver)
			h := newInteractionHandler(t, cat, resolver)

			c := testutil.NewInlineCallback(bob, tc.data, "inline-1")
			require.NoError(t, h.Handle(c))

			resp := c.LastResponse()
			require.NotNil(t, resp)
			assert.True(t, resp.ShowAlert)
			assert.Equal(t, tc.wantAlert, resp.Text)
			assert.Equal(t, tc.wantDeleted, c.Deleted)
			assert.Empty(t, c.Edited)
		})
	}
}

func TestInteractionHandler_FailedResolveCanBeRetried(t *testing.T) {
	cat := &mockCatalogue{}
	resolver := &mockResolver{}
	h := newInteractionHandler(t, cat, resolver)

	cat.On("GetActionByID", mock.Anything, int64(7)).Return(hug, nil)
	resolver.On("Resolve", mock.Anything, mock.Anything).Return(nil, assert.AnError).Once()
	resolver.On("Resolve", mock.Anything, mock.Anything).Return(&interaction.Resolution{Text: "ok"}, nil).Once()

	failed := testutil.NewInlineCallback(bob, "iact|1|7|1", "inline-1")
	require.NoError(t, h.Handle(failed))
	assert.True(t, failed.LastResponse().ShowAlert)

	retry := testutil.NewInlineCallback(bob, "iact|1|7|1", "inline-1")
	require.NoError(t, h.Handle(retry))
	assert.Equal(t, "ok", retry.Edited[0])
}

func TestInteractionHandler_RegularMessageHandle(t *testing.T) {
	cat := &mockCatalogue{}
	resolver := &mockResolver{}
	h := newInteractionHandler(t, cat, resolver)

	cat.On("GetActionByID", mock.Anything, int64(7)).Return(hug, nil)
	resolver.On("Resolve", mock.Anything, mock.MatchedBy(func(req interaction.Request) bool {
		return req.MessageHandle == "-100:55"
	})).Return(&interaction.Resolution{Text: "ok"}, nil)

	msg := &telebot.Message{ID: 55, Chat: &telebot.Chat{ID: -100}}
	c := testutil.NewCallback(bob, "iact|1|7|1", msg)
	require.NoError(t, h.Handle(c))
	resolver.AssertExpectations(t)
}

func TestInteractionHandler_RedisDownStillRecordsDecision(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	cat := &mockCatalogue{}
	resolver := &mockResolver{}
	guard := idempotency.NewManager(idempotency.NewRedisStore(client, testLogger()), testLogger())
	h := handlers.NewInteractionHandler(cat, resolver, guard, time.Hour, testTranslations(t), testLogger())

	cat.On("GetActionByID", mock.Anything, int64(7)).Return(hug, nil)
	resolver.On("Resolve", mock.Anything, mock.Anything).Return(&interaction.Resolution{Text: "🤗 Alice hugged Bob"}, nil)

	c := testutil.NewInlineCallback(bob, "iact|1|7|1", "inline-1")
	require.NoError(t, h.Handle(c))

	resolver.AssertNumberOfCalls(t, "Resolve", 1)
	require.Len(t, c.Edited, 1)
	assert.Equal(t, "🤗 Alice hugged Bob", c.Edited[0])
	assert.Equal(t, "✅ Accepted!", c.LastResponse().Text)
	assert.False(t, c.LastResponse().ShowAlert)
}
