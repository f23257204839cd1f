package catalogue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/cuteforcute-bot/internal/actioncache"
	"github.com/Proton-105/cuteforcute-bot/internal/domain"
	apperrors "github.com/Proton-105/cuteforcute-bot/internal/errors"
	"github.com/Proton-105/cuteforcute-bot/internal/repository"
	appredis "github.com/Proton-105/cuteforcute-bot/pkg/redis"
)

// memoryActions is an in-memory ActionRepository that counts store reads.
type memoryActions struct {
	mu      sync.Mutex
	nextID  int64
	byID    map[int64]*domain.Action
	reads   int
	failAll error
}

func newMemoryActions(names ...string) *memoryActions {
	m := &memoryActions{byID: make(map[int64]*domain.Action)}
	for _, name := range names {
		_, _ = m.Create(context.Background(), domain.ActionDraft{
			Name: name, Emoji: "✨", Infinitive: name + "-inf", PastTense: name + "-past", GenitiveNoun: name + "-gen",
		})
	}
	return m
}

func (m *memoryActions) Create(_ context.Context, d domain.ActionDraft) (*domain.Action, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.byID {
		if a.Name == d.Name {
			return nil, apperrors.NewDuplicateNameError(d.Name, nil)
		}
	}
	m.nextID++
	a := &domain.Action{
		ID: m.nextID, Name: d.Name, Emoji: d.Emoji, Infinitive: d.Infinitive, PastTense: d.PastTense,
		GenitiveNoun: d.GenitiveNoun, Description: d.Description, DisplayOrder: int(m.nextID), IsActive: true,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	m.byID[a.ID] = a
	cp := *a
	return &cp, nil
}

func (m *memoryActions) GetByID(_ context.Context, id int64) (*domain.Action, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if a, ok := m.byID[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memoryActions) GetByName(_ context.Context, name string) (*domain.Action, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	for _, a := range m.byID {
		if a.Name == name {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryActions) Search(_ context.Context, query string) ([]domain.Action, error) {
	all, _ := m.GetAllActive(context.Background())
	result := make([]domain.Action, 0)
	for _, a := range all {
		if strings.Contains(strings.ToLower(a.Name), strings.ToLower(query)) {
			result = append(result, a)
		}
	}
	return result, nil
}

func (m *memoryActions) GetAllActive(_ context.Context) ([]domain.Action, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.failAll != nil {
		return nil, m.failAll
	}
	result := make([]domain.Action, 0, len(m.byID))
	for _, a := range m.byID {
		if a.IsActive {
			result = append(result, *a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DisplayOrder < result[j].DisplayOrder })
	return result, nil
}

func (m *memoryActions) IncrementUsage(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.Name == name {
			a.UsageCount++
		}
	}
	return nil
}

func (m *memoryActions) Update(_ context.Context, id int64, field domain.ActionField, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return false, nil
	}
	switch field {
	case domain.FieldName:
		a.Name = value
	case domain.FieldEmoji:
		a.Emoji = value
	case domain.FieldPastTense:
		a.PastTense = value
	}
	return true, nil
}

func (m *memoryActions) Delete(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return false, nil
	}
	a.IsActive = false
	return true, nil
}

func (m *memoryActions) List(_ context.Context, offset, limit int) ([]domain.Action, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]domain.Action, 0)
	for id := int64(1); id <= m.nextID; id++ {
		if a, ok := m.byID[id]; ok {
			result = append(result, *a)
		}
	}
	if offset >= len(result) {
		return []domain.Action{}, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], nil
}

func (m *memoryActions) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID), nil
}

func (m *memoryActions) readCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

type mockInteractions struct {
	mock.Mock
}

func (m *mockInteractions) Create(ctx context.Context, in *domain.Interaction) error {
	return m.Called(ctx, in).Error(0)
}

func (m *mockInteractions) GetByID(ctx context.Context, id int64) (*domain.Interaction, error) {
	args := m.Called(ctx, id)
	in, _ := args.Get(0).(*domain.Interaction)
	return in, args.Error(1)
}

func (m *mockInteractions) CompletePending(ctx context.Context, id int64, status domain.InteractionStatus) (bool, error) {
	args := m.Called(ctx, id, status)
	return args.Bool(0), args.Error(1)
}

func (m *mockInteractions) TopActions(ctx context.Context, senderID *int64, limit int) ([]domain.ActionCount, error) {
	args := m.Called(ctx, senderID, limit)
	top, _ := args.Get(0).([]domain.ActionCount)
	return top, args.Error(1)
}

func (m *mockInteractions) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type sentCounter struct {
	mu    sync.Mutex
	calls map[int64][]string
}

func (c *sentCounter) IncrementSent(_ context.Context, userID int64, actionName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = make(map[int64][]string)
	}
	c.calls[userID] = append(c.calls[userID], actionName)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCache(t *testing.T) *actioncache.Cache {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return actioncache.New(appredis.Wrap(client), testLogger(), actioncache.Options{})
}

func TestService_GetAllActionsReadsThroughCache(t *testing.T) {
	ctx := context.Background()
	store := newMemoryActions("hug", "kiss")
	svc := NewService(store, &mockInteractions{}, newTestCache(t), nil, testLogger())

	first, err := svc.GetAllActions(ctx)
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := svc.GetAllActions(ctx)
	require.NoError(t, err)
	assert.Equal(t, first[0].Name, second[0].Name)

	assert.Equal(t, 1, store.readCount())
}

func TestService_GetAllActionsStoreFailure(t *testing.T) {
	store := newMemoryActions()
	store.failAll = errors.New("db down")
	svc := NewService(store, &mockInteractions{}, nil, nil, testLogger())

	actions, err := svc.GetAllActions(context.Background())
	assert.Error(t, err)
	assert.NotNil(t, actions)
	assert.Empty(t, actions)
}

func TestService_CreateInvalidatesSnapshot(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryActions("hug"), &mockInteractions{}, newTestCache(t), nil, testLogger())

	before, err := svc.GetAllActions(ctx)
	require.NoError(t, err)
	require.Len(t, before, 1)

	_, err = svc.CreateAction(ctx, domain.ActionDraft{
		Name: " pat ", Emoji: "🤚", Infinitive: "погладить", PastTense: "погладил(а)", GenitiveNoun: "поглаживание",
	})
	require.NoError(t, err)

	after, err := svc.GetAllActions(ctx)
	require.NoError(t, err)
	require.Len(t, after, 2)
	assert.Equal(t, "pat", after[1].Name)
}

func TestService_DeleteHidesCachedAction(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryActions("hug"), &mockInteractions{}, newTestCache(t), nil, testLogger())

	action, err := svc.GetAction(ctx, "hug")
	require.NoError(t, err)

	ok, err := svc.DeleteAction(ctx, action.ID)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = svc.GetAction(ctx, "hug")
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := svc.GetAllActions(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	// The record is still reachable by id for history.
	byID, err := svc.GetActionByID(ctx, action.ID)
	require.NoError(t, err)
	assert.False(t, byID.IsActive)
}

func TestService_DeleteUnknownAction(t *testing.T) {
	svc := NewService(newMemoryActions(), &mockInteractions{}, nil, nil, testLogger())

	ok, err := svc.DeleteAction(context.Background(), 42)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestService_CreateDuplicateName(t *testing.T) {
	svc := NewService(newMemoryActions("hug"), &mockInteractions{}, nil, nil, testLogger())

	_, err := svc.CreateAction(context.Background(), domain.ActionDraft{
		Name: "hug", Emoji: "🤗", Infinitive: "обнять", PastTense: "обнял(а)", GenitiveNoun: "объятие",
	})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateName)
}

func TestService_CreateRejectsInvalidDraft(t *testing.T) {
	svc := NewService(newMemoryActions(), &mockInteractions{}, nil, nil, testLogger())

	_, err := svc.CreateAction(context.Background(), domain.ActionDraft{Name: "  ", Emoji: "🤗"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestService_UpdateActionRenames(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryActions("hug"), &mockInteractions{}, newTestCache(t), nil, testLogger())

	action, err := svc.GetAction(ctx, "hug")
	require.NoError(t, err)

	require.NoError(t, svc.UpdateAction(ctx, action.ID, domain.FieldName, "big hug"))

	_, err = svc.GetAction(ctx, "hug")
	assert.ErrorIs(t, err, ErrNotFound)

	renamed, err := svc.GetAction(ctx, "big hug")
	require.NoError(t, err)
	assert.Equal(t, action.ID, renamed.ID)

	assert.ErrorIs(t, svc.UpdateAction(ctx, 99, domain.FieldEmoji, "🔥"), ErrNotFound)
	assert.ErrorIs(t, svc.UpdateAction(ctx, action.ID, domain.ActionField("usage_count"), "5"), apperrors.ErrValidation)
}

func TestService_SearchActions(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryActions("Hug", "kiss", "bite"), &mockInteractions{}, nil, nil, testLogger())

	hits, err := svc.SearchActions(ctx, "  HU ")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Hug", hits[0].Name)

	all, err := svc.SearchActions(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestService_TopActions(t *testing.T) {
	ctx := context.Background()
	interactions := &mockInteractions{}
	userID := int64(5)
	interactions.On("TopActions", mock.Anything, &userID, 3).Return([]domain.ActionCount{{Action: "hug", Count: 4}}, nil)
	interactions.On("TopActions", mock.Anything, (*int64)(nil), 10).Return([]domain.ActionCount{
		{Action: "kiss", Count: 9},
		{Action: "gone", Count: 7},
		{Action: "hug", Count: 3},
	}, nil)

	svc := NewService(newMemoryActions("hug", "kiss"), interactions, nil, nil, testLogger())

	own, err := svc.GetTopActionsForUser(ctx, userID, 3)
	require.NoError(t, err)
	assert.Equal(t, []domain.ActionCount{{Action: "hug", Count: 4}}, own)

	catalogue, err := svc.GlobalTopCatalogue(ctx, 10)
	require.NoError(t, err)
	require.Len(t, catalogue, 2)
	assert.Equal(t, "kiss", catalogue[0].Name)
	assert.Equal(t, "hug", catalogue[1].Name)

	none, err := svc.GetGlobalTopActions(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestService_RecordProposal(t *testing.T) {
	ctx := context.Background()
	store := newMemoryActions("hug")
	counter := &sentCounter{}
	svc := NewService(store, &mockInteractions{}, nil, counter, testLogger())

	require.NoError(t, svc.RecordProposal(ctx, 1, "hug"))
	require.NoError(t, svc.RecordProposal(ctx, 1, "hug"))

	action, err := svc.GetAction(ctx, "hug")
	require.NoError(t, err)
	assert.Equal(t, int64(2), action.UsageCount)
	assert.Equal(t, []string{"hug", "hug"}, counter.calls[1])
}

func TestService_ListActions(t *testing.T) {
	svc := NewService(newMemoryActions("a", "b", "c"), &mockInteractions{}, nil, nil, testLogger())

	page, total, err := svc.ListActions(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, "c", page[0].Name)
}
