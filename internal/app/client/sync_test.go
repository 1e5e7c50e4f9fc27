package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainsync "daylog/internal/domain/sync"
)

func newTestSyncService(t *testing.T) *SyncService {
	t.Helper()
	app := newTestApp(t)
	return app.syncService
}

func TestSyncService_SyncRequiresAuthentication(t *testing.T) {
	svc := newTestSyncService(t)

	_, err := svc.Sync(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not authenticated")
}

func TestSyncService_BuildPushPayloadCollectsDirtyRows(t *testing.T) {
	svc := newTestSyncService(t)

	require.NoError(t, svc.app.SaveBlock(Block{ID: "b1", Text: "hello"}))
	require.NoError(t, svc.app.SaveTomorrowTask(TomorrowTask{ID: "t1", Text: "buy milk"}))

	payload, blockVersions, taskVersions, hasSettings := svc.buildPushPayload()

	assert.Equal(t, svc.app.clientID, payload.ClientID)
	assert.Len(t, payload.Blocks, 1)
	assert.Equal(t, "b1", payload.Blocks[0].ID)
	assert.Equal(t, int64(1), blockVersions["b1"])
	assert.Len(t, payload.TomorrowTasks, 1)
	assert.Equal(t, int64(1), taskVersions["t1"])
	assert.False(t, hasSettings)
}

func TestMergeBlock_NoLocalRecordTakesServerCopyAsSynced(t *testing.T) {
	wire := domainsync.BlockWire{ID: "b1", Text: "server text", Version: 3}

	merged, conflicted := mergeBlock(nil, wire)

	assert.False(t, conflicted)
	assert.Equal(t, StatusSynced, merged.SyncStatus)
	assert.Equal(t, int64(3), merged.ServerVersion)
	assert.Equal(t, "server text", merged.Text)
}

func TestMergeBlock_PendingEditSurvivesStaleServerVersion(t *testing.T) {
	local := &Block{ID: "b1", Text: "local edit", Version: 2, SyncStatus: StatusPending, ServerVersion: 1}
	wire := domainsync.BlockWire{ID: "b1", Text: "server text", Version: 1}

	merged, conflicted := mergeBlock(local, wire)

	assert.False(t, conflicted)
	assert.Equal(t, StatusPending, merged.SyncStatus)
	assert.Equal(t, "local edit", merged.Text)
}

func TestMergeBlock_PendingEditFlaggedConflictWhenServerMovedOn(t *testing.T) {
	local := &Block{ID: "b1", Text: "local edit", Version: 2, SyncStatus: StatusPending, ServerVersion: 1}
	wire := domainsync.BlockWire{ID: "b1", Text: "other device's text", Version: 4}

	merged, conflicted := mergeBlock(local, wire)

	assert.True(t, conflicted)
	assert.Equal(t, StatusConflict, merged.SyncStatus)
	assert.Equal(t, int64(4), merged.ServerVersion)
	assert.Equal(t, "local edit", merged.Text, "the local edit is kept, never silently overwritten")
}

func TestMergeBlock_SyncedLocalCopyIsReplacedByServer(t *testing.T) {
	local := &Block{ID: "b1", Text: "old synced text", Version: 1, SyncStatus: StatusSynced, ServerVersion: 1}
	wire := domainsync.BlockWire{ID: "b1", Text: "newer server text", Version: 2}

	merged, conflicted := mergeBlock(local, wire)

	assert.False(t, conflicted)
	assert.Equal(t, StatusSynced, merged.SyncStatus)
	assert.Equal(t, "newer server text", merged.Text)
}

func TestSyncService_ConcurrentSyncRejected(t *testing.T) {
	svc := newTestSyncService(t)

	svc.mu.Lock()
	svc.isSyncing = true
	svc.mu.Unlock()

	_, err := svc.Sync(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already in progress")
}

func TestSyncService_StatsAccumulateAndReset(t *testing.T) {
	svc := newTestSyncService(t)

	result := &SyncResult{Success: true, Pushed: 2, Pulled: 3}
	svc.finish(result)

	stats := svc.GetStats()
	assert.Equal(t, 1, stats.TotalSyncs)
	assert.Equal(t, 2, stats.TotalPushed)
	assert.Equal(t, 3, stats.TotalPulled)

	svc.ResetStats()
	assert.Equal(t, 0, svc.GetStats().TotalSyncs)
}

func TestToWebsocketURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:8080/sync/ws", toWebsocketURL("http://localhost:8080"))
	assert.Equal(t, "wss://daylog.example/sync/ws", toWebsocketURL("https://daylog.example"))
}
