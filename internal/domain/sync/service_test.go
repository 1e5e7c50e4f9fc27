package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"daylog/internal/app/server/api/http/middleware/auth"
	"daylog/internal/domain/block"
	"daylog/internal/domain/device"
	"daylog/internal/domain/settings"
	"daylog/internal/domain/tomorrowtask"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/exp/slog"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetBlockByID(ctx context.Context, userID int, id string) (block.Block, bool, error) {
	args := m.Called(ctx, userID, id)
	return args.Get(0).(block.Block), args.Bool(1), args.Error(2)
}

func (m *MockRepository) GetTaskByID(ctx context.Context, userID int, id string) (tomorrowtask.TomorrowTask, bool, error) {
	args := m.Called(ctx, userID, id)
	return args.Get(0).(tomorrowtask.TomorrowTask), args.Bool(1), args.Error(2)
}

func (m *MockRepository) ApplyPushPlan(ctx context.Context, plan PushPlan) (PushOutcome, error) {
	args := m.Called(ctx, plan)
	return args.Get(0).(PushOutcome), args.Error(1)
}

func (m *MockRepository) PullBlocks(ctx context.Context, userID int, since time.Time) ([]block.Block, error) {
	args := m.Called(ctx, userID, since)
	return args.Get(0).([]block.Block), args.Error(1)
}

func (m *MockRepository) PullTasks(ctx context.Context, userID int, since time.Time) ([]tomorrowtask.TomorrowTask, error) {
	args := m.Called(ctx, userID, since)
	return args.Get(0).([]tomorrowtask.TomorrowTask), args.Error(1)
}

func (m *MockRepository) PullSettings(ctx context.Context, userID int, since time.Time) (*settings.Settings, error) {
	args := m.Called(ctx, userID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settings.Settings), args.Error(1)
}

func (m *MockRepository) FullBlocks(ctx context.Context, userID int) ([]block.Block, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]block.Block), args.Error(1)
}

func (m *MockRepository) FullTasks(ctx context.Context, userID int) ([]tomorrowtask.TomorrowTask, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]tomorrowtask.TomorrowTask), args.Error(1)
}

func (m *MockRepository) GetSettings(ctx context.Context, userID int) (*settings.Settings, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settings.Settings), args.Error(1)
}

func (m *MockRepository) GetConflictByID(ctx context.Context, id string) (Conflict, bool, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Conflict), args.Bool(1), args.Error(2)
}

func (m *MockRepository) ResolveConflict(ctx context.Context, id, resolution string) error {
	args := m.Called(ctx, id, resolution)
	return args.Error(0)
}

func (m *MockRepository) DeleteResolvedConflictsOlderThan(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) UpsertDevice(ctx context.Context, d device.Device) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockRepository) ListDevices(ctx context.Context, userID int) ([]device.Device, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]device.Device), args.Error(1)
}

func (m *MockRepository) DeleteDevice(ctx context.Context, userID int, deviceID string) error {
	args := m.Called(ctx, userID, deviceID)
	return args.Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyUserChanged(userID int, exceptClientID string) {
	m.Called(userID, exceptClientID)
}

func ctxWithUser(userID int) context.Context {
	return context.WithValue(context.Background(), auth.UserIDKey, userID)
}

// Scenario 1 (spec.md §8): a fresh block with no existing row is accepted
// and inserted at version 1.
func TestService_Push_FreshWrite(t *testing.T) {
	repo := new(MockRepository)
	notifier := new(MockNotifier)
	svc := NewService(repo, slog.Default(), DefaultServiceConfig(), notifier)

	userID := 1
	repo.On("GetBlockByID", mock.Anything, userID, "b1").Return(block.Block{}, false, nil)
	repo.On("ApplyPushPlan", mock.Anything, mock.MatchedBy(func(p PushPlan) bool {
		return len(p.AcceptedBlock) == 1 && p.AcceptedBlock[0].Version == 1 && p.AcceptedBlock[0].UserID == userID
	})).Return(PushOutcome{AppliedBlocks: []string{"b1"}, AppliedSettings: false}, nil)
	repo.On("UpsertDevice", mock.Anything, mock.Anything).Return(nil)
	notifier.On("NotifyUserChanged", userID, "client-a").Return()

	ctx := ctxWithUser(userID)
	resp, err := svc.Push(ctx, "client-a", PushPayload{
		ClientID: "client-a",
		Blocks: []BlockWire{
			{ID: "b1", Text: "hello", CreatedAt: time.Now(), Position: 0, Version: 0, UpdatedAt: time.Now(), ClientID: "client-a"},
		},
	}, DeviceMeta{Platform: device.PlatformWeb})

	assert.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, []string{"b1"}, resp.Applied.Blocks)
	assert.Empty(t, resp.Conflicts)
	repo.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

// Scenario 2 (spec.md §8): two clients race on the same block; the loser's
// push lands as a keep-both "[Conflict]" row rather than clobbering the row.
func TestService_Push_ConflictingUpdate(t *testing.T) {
	repo := new(MockRepository)
	notifier := new(MockNotifier)
	svc := NewService(repo, slog.Default(), DefaultServiceConfig(), notifier)

	userID := 1
	existing := block.Block{
		ID: "b1", UserID: userID, Text: "original", Position: 0,
		Version: 2, ClientID: "client-a", CreatedAt: time.Now().Add(-time.Hour), UpdatedAt: time.Now().Add(-time.Minute),
	}
	repo.On("GetBlockByID", mock.Anything, userID, "b1").Return(existing, true, nil)
	repo.On("ApplyPushPlan", mock.Anything, mock.MatchedBy(func(p PushPlan) bool {
		return len(p.ConflictBlock) == 1 &&
			p.ConflictBlock[0].Text == "[Conflict] stale edit" &&
			p.ConflictBlock[0].Version == 1 &&
			len(p.Conflicts) == 1 &&
			p.Conflicts[0].RecordID == "b1"
	})).Return(PushOutcome{}, nil)
	repo.On("UpsertDevice", mock.Anything, mock.Anything).Return(nil)
	notifier.On("NotifyUserChanged", userID, "client-b").Return()

	ctx := ctxWithUser(userID)
	resp, err := svc.Push(ctx, "client-b", PushPayload{
		ClientID: "client-b",
		Blocks: []BlockWire{
			{ID: "b1", Text: "stale edit", Position: 0, Version: 2, UpdatedAt: time.Now(), ClientID: "client-b", CreatedAt: time.Now()},
		},
	}, DeviceMeta{})

	assert.NoError(t, err)
	assert.Len(t, resp.Conflicts, 1)
	assert.Equal(t, "b1", resp.Conflicts[0].ID)
	assert.Equal(t, int64(2), resp.Conflicts[0].LocalVersion)
	assert.Equal(t, int64(2), resp.Conflicts[0].ServerVersion)
	repo.AssertExpectations(t)
}

// A push from the same clientId that originally wrote the row never
// conflicts with itself, even if the version looks stale.
func TestService_Push_SameClientNeverConflicts(t *testing.T) {
	repo := new(MockRepository)
	notifier := new(MockNotifier)
	svc := NewService(repo, slog.Default(), DefaultServiceConfig(), notifier)

	userID := 1
	existing := block.Block{ID: "b1", UserID: userID, Version: 3, ClientID: "client-a", CreatedAt: time.Now()}
	repo.On("GetBlockByID", mock.Anything, userID, "b1").Return(existing, true, nil)
	repo.On("ApplyPushPlan", mock.Anything, mock.MatchedBy(func(p PushPlan) bool {
		return len(p.AcceptedBlock) == 1 && p.AcceptedBlock[0].Version == 4 && len(p.ConflictBlock) == 0
	})).Return(PushOutcome{AppliedBlocks: []string{"b1"}}, nil)
	repo.On("UpsertDevice", mock.Anything, mock.Anything).Return(nil)
	notifier.On("NotifyUserChanged", userID, "client-a").Return()

	ctx := ctxWithUser(userID)
	resp, err := svc.Push(ctx, "client-a", PushPayload{
		ClientID: "client-a",
		Blocks:   []BlockWire{{ID: "b1", Text: "edit again", Version: 3, ClientID: "client-a"}},
	}, DeviceMeta{})

	assert.NoError(t, err)
	assert.Empty(t, resp.Conflicts)
	repo.AssertExpectations(t)
}

// spec.md §3 invariant 1: id is client-chosen and only unique per user, so
// two different users independently picking the same block id get two
// separate records — GetBlockByID is scoped to (userID, id), so user 2's
// lookup never sees user 1's row and the push is accepted as a fresh write,
// never silently dropped.
func TestService_Push_SameIDDifferentUsersAreIndependentRecords(t *testing.T) {
	repo := new(MockRepository)
	notifier := new(MockNotifier)
	svc := NewService(repo, slog.Default(), DefaultServiceConfig(), notifier)

	const otherUserID = 2
	repo.On("GetBlockByID", mock.Anything, otherUserID, "b1").Return(block.Block{}, false, nil)
	repo.On("ApplyPushPlan", mock.Anything, mock.MatchedBy(func(p PushPlan) bool {
		return len(p.AcceptedBlock) == 1 && p.AcceptedBlock[0].Version == 1 && p.AcceptedBlock[0].UserID == otherUserID
	})).Return(PushOutcome{AppliedBlocks: []string{"b1"}}, nil)
	repo.On("UpsertDevice", mock.Anything, mock.Anything).Return(nil)
	notifier.On("NotifyUserChanged", otherUserID, "client-a").Return()

	ctx := ctxWithUser(otherUserID)
	resp, err := svc.Push(ctx, "client-a", PushPayload{
		ClientID: "client-a",
		Blocks:   []BlockWire{{ID: "b1", Text: "a different user's own block", Version: 0, ClientID: "client-a", CreatedAt: time.Now(), UpdatedAt: time.Now()}},
	}, DeviceMeta{})

	assert.NoError(t, err)
	assert.Equal(t, []string{"b1"}, resp.Applied.Blocks)
	assert.Empty(t, resp.Conflicts)
	repo.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

// Scenario 6 (spec.md §8): settings are upserted unconditionally, no
// version check, last push wins.
func TestService_Push_SettingsLastWriteWins(t *testing.T) {
	repo := new(MockRepository)
	notifier := new(MockNotifier)
	svc := NewService(repo, slog.Default(), DefaultServiceConfig(), notifier)

	userID := 1
	repo.On("ApplyPushPlan", mock.Anything, mock.MatchedBy(func(p PushPlan) bool {
		return p.Settings != nil && p.Settings.Theme == settings.ThemeLight
	})).Return(PushOutcome{AppliedSettings: true}, nil)
	repo.On("UpsertDevice", mock.Anything, mock.Anything).Return(nil)
	notifier.On("NotifyUserChanged", userID, "client-b").Return()

	ctx := ctxWithUser(userID)
	resp, err := svc.Push(ctx, "client-b", PushPayload{
		ClientID: "client-b",
		Settings: &SettingsWire{Theme: "light", DayCutHour: 4, UpdatedAt: time.Now()},
	}, DeviceMeta{})

	assert.NoError(t, err)
	assert.True(t, resp.Applied.Settings)
	repo.AssertExpectations(t)
}

func TestService_Push_NotAuthenticated(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, slog.Default(), DefaultServiceConfig(), nil)

	_, err := svc.Push(context.Background(), "client-a", PushPayload{}, DeviceMeta{})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestService_Push_GetBlockError(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, slog.Default(), DefaultServiceConfig(), nil)

	repo.On("GetBlockByID", mock.Anything, 1, "b1").Return(block.Block{}, false, errors.New("db down"))

	ctx := ctxWithUser(1)
	_, err := svc.Push(ctx, "client-a", PushPayload{
		ClientID: "client-a",
		Blocks:   []BlockWire{{ID: "b1", ClientID: "client-a"}},
	}, DeviceMeta{})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	repo.AssertExpectations(t)
}

// Scenario 5 (spec.md §8): pull only returns rows strictly newer than the
// cursor, ordered by position within createdAt.
func TestService_Pull_IncrementalCursor(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, slog.Default(), DefaultServiceConfig(), nil)

	userID := 1
	since := time.Now().Add(-time.Hour)
	blocks := []block.Block{{ID: "b1", UserID: userID, Text: "x", Position: 0, Version: 1}}

	repo.On("PullBlocks", mock.Anything, userID, since).Return(blocks, nil)
	repo.On("PullTasks", mock.Anything, userID, since).Return([]tomorrowtask.TomorrowTask{}, nil)
	repo.On("PullSettings", mock.Anything, userID, since).Return((*settings.Settings)(nil), nil)

	resp, err := svc.Pull(ctxWithUser(userID), since)
	assert.NoError(t, err)
	assert.Len(t, resp.Blocks, 1)
	assert.Equal(t, "b1", resp.Blocks[0].ID)
	assert.Nil(t, resp.Settings)
	repo.AssertExpectations(t)
}

// Scenario 4 (spec.md §8): tombstones are included in pull responses so
// other replicas can apply the deletion, never silently dropped.
func TestService_Pull_IncludesTombstones(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, slog.Default(), DefaultServiceConfig(), nil)

	userID := 1
	since := time.Now().Add(-time.Hour)
	deletedAt := time.Now()
	blocks := []block.Block{{ID: "b1", UserID: userID, DeletedAt: &deletedAt, Version: 2}}

	repo.On("PullBlocks", mock.Anything, userID, since).Return(blocks, nil)
	repo.On("PullTasks", mock.Anything, userID, since).Return([]tomorrowtask.TomorrowTask{}, nil)
	repo.On("PullSettings", mock.Anything, userID, since).Return((*settings.Settings)(nil), nil)

	resp, err := svc.Pull(ctxWithUser(userID), since)
	assert.NoError(t, err)
	assert.Len(t, resp.Blocks, 1)
	assert.NotNil(t, resp.Blocks[0].DeletedAt)
	repo.AssertExpectations(t)
}

func TestService_ResolveConflict_WrongUser(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, slog.Default(), DefaultServiceConfig(), nil)

	conflict := Conflict{ID: "c1", UserID: 999}
	repo.On("GetConflictByID", mock.Anything, "c1").Return(conflict, true, nil)

	_, err := svc.ResolveConflict(ctxWithUser(1), ResolveConflictRequest{ConflictID: "c1", Resolution: "kept_server"})
	assert.ErrorIs(t, err, ErrConflictNotFound)
	repo.AssertExpectations(t)
}

func TestService_ResolveConflict_Success(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, slog.Default(), DefaultServiceConfig(), nil)

	conflict := Conflict{ID: "c1", UserID: 1}
	repo.On("GetConflictByID", mock.Anything, "c1").Return(conflict, true, nil)
	repo.On("ResolveConflict", mock.Anything, "c1", "kept_server").Return(nil)

	resp, err := svc.ResolveConflict(ctxWithUser(1), ResolveConflictRequest{ConflictID: "c1", Resolution: "kept_server"})
	assert.NoError(t, err)
	assert.True(t, resp.Success)
	repo.AssertExpectations(t)
}

func TestService_ListDevices(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, slog.Default(), DefaultServiceConfig(), nil)

	userID := 1
	devices := []device.Device{{ID: "d1", UserID: userID, ClientID: "client-a", Platform: device.PlatformDesktop}}
	repo.On("ListDevices", mock.Anything, userID).Return(devices, nil)

	result, err := svc.ListDevices(ctxWithUser(userID))
	assert.NoError(t, err)
	assert.Len(t, result, 1)
	assert.Equal(t, "d1", result[0].ID)
	repo.AssertExpectations(t)
}

func TestService_RemoveDevice(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, slog.Default(), DefaultServiceConfig(), nil)

	repo.On("DeleteDevice", mock.Anything, 1, "d1").Return(nil)

	err := svc.RemoveDevice(ctxWithUser(1), "d1")
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}
