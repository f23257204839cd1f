package handlers_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/cuteforcute-bot/internal/domain"
	"github.com/Proton-105/cuteforcute-bot/internal/i18n"
	"github.com/Proton-105/cuteforcute-bot/internal/interaction"
	"github.com/Proton-105/cuteforcute-bot/internal/state"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTranslations(t *testing.T) *i18n.Manager {
	t.Helper()
	m, err := i18n.Load("en")
	require.NoError(t, err)
	return m
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func newFSM(t *testing.T) state.StateMachine {
	t.Helper()
	client := newRedis(t)
	return state.NewStateMachine(state.NewRedisStorage(client, testLogger(), time.Hour), testLogger(), client)
}

var (
	alice = &telebot.User{ID: 1, FirstName: "Alice", Username: "alice", LanguageCode: "en"}
	bob   = &telebot.User{ID: 2, FirstName: "Bob", LanguageCode: "en"}
	hug   = &domain.Action{ID: 7, Name: "hug", Emoji: "🤗", Infinitive: "hug", PastTense: "hugged", GenitiveNoun: "a hug", IsActive: true}
)

type mockCatalogue struct{ mock.Mock }

func (m *mockCatalogue) GetAllActions(ctx context.Context) ([]domain.Action, error) {
	args := m.Called(ctx)
	actions, _ := args.Get(0).([]domain.Action)
	return actions, args.Error(1)
}

func (m *mockCatalogue) SearchActions(ctx context.Context, query string) ([]domain.Action, error) {
	args := m.Called(ctx, query)
	actions, _ := args.Get(0).([]domain.Action)
	return actions, args.Error(1)
}

func (m *mockCatalogue) GlobalTopCatalogue(ctx context.Context, limit int) ([]domain.Action, error) {
	args := m.Called(ctx, limit)
	actions, _ := args.Get(0).([]domain.Action)
	return actions, args.Error(1)
}

func (m *mockCatalogue) GetGlobalTopActions(ctx context.Context, limit int) ([]domain.ActionCount, error) {
	args := m.Called(ctx, limit)
	top, _ := args.Get(0).([]domain.ActionCount)
	return top, args.Error(1)
}

func (m *mockCatalogue) GetActionByID(ctx context.Context, id int64) (*domain.Action, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*domain.Action)
	return a, args.Error(1)
}

func (m *mockCatalogue) RecordProposal(ctx context.Context, senderID int64, actionName string) error {
	return m.Called(ctx, senderID, actionName).Error(0)
}

func (m *mockCatalogue) ListActions(ctx context.Context, page, perPage int) ([]domain.Action, int, error) {
	args := m.Called(ctx, page, perPage)
	actions, _ := args.Get(0).([]domain.Action)
	return actions, args.Int(1), args.Error(2)
}

func (m *mockCatalogue) ValidateField(field domain.ActionField, value string) error {
	return m.Called(field, value).Error(0)
}

func (m *mockCatalogue) CreateAction(ctx context.Context, draft domain.ActionDraft) (*domain.Action, error) {
	args := m.Called(ctx, draft)
	a, _ := args.Get(0).(*domain.Action)
	return a, args.Error(1)
}

func (m *mockCatalogue) UpdateAction(ctx context.Context, id int64, field domain.ActionField, value string) error {
	return m.Called(ctx, id, field, value).Error(0)
}

func (m *mockCatalogue) DeleteAction(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockCatalogue) Invalidate(ctx context.Context) {
	m.Called(ctx)
}

type mockResolver struct{ mock.Mock }

func (m *mockResolver) Resolve(ctx context.Context, req interaction.Request) (*interaction.Resolution, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*interaction.Resolution)
	return res, args.Error(1)
}

type mockAdmins struct{ mock.Mock }

func (m *mockAdmins) IsAdmin(ctx context.Context, userID int64) bool {
	return m.Called(ctx, userID).Bool(0)
}

func (m *mockAdmins) Add(ctx context.Context, by int64, target domain.User) error {
	return m.Called(ctx, by, target).Error(0)
}

func (m *mockAdmins) Remove(ctx context.Context, by, target int64) (bool, error) {
	args := m.Called(ctx, by, target)
	return args.Bool(0), args.Error(1)
}

type mockStats struct{ mock.Mock }

func (m *mockStats) GetUserStats(ctx context.Context, userID int64) (*domain.UserStats, error) {
	args := m.Called(ctx, userID)
	s, _ := args.Get(0).(*domain.UserStats)
	return s, args.Error(1)
}

func (m *mockStats) GetTopUsers(ctx context.Context, limit int) ([]domain.UserTotal, error) {
	args := m.Called(ctx, limit)
	top, _ := args.Get(0).([]domain.UserTotal)
	return top, args.Error(1)
}

func (m *mockStats) GetGlobalStats(ctx context.Context) (*domain.GlobalStats, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).(*domain.GlobalStats)
	return s, args.Error(1)
}

type mockUsers struct{ mock.Mock }

func (m *mockUsers) Get(ctx context.Context, userID int64) (*domain.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*domain.User)
	return u, args.Error(1)
}

type mockQueue struct{ mock.Mock }

func (m *mockQueue) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task)
	info, _ := args.Get(0).(*asynq.TaskInfo)
	return info, args.Error(1)
}

func (m *mockQueue) Close() error { return nil }

type mockExempter struct {
	exempted []int64
	revoked  []int64
}

func (m *mockExempter) Exempt(ids ...int64) { m.exempted = append(m.exempted, ids...) }
func (m *mockExempter) Revoke(ids ...int64) { m.revoked = append(m.revoked, ids...) }
