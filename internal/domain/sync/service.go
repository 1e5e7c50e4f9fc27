package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"daylog/internal/app/server/api/http/middleware/auth"
	"daylog/internal/domain/block"
	"daylog/internal/domain/device"
	"daylog/internal/domain/settings"
	"daylog/internal/domain/tomorrowtask"
)

// DeviceMeta is best-effort request metadata used for the device-bookkeeping
// upsert (SPEC_FULL.md §4.2.6); it never gates behavior.
type DeviceMeta struct {
	Platform device.Platform
	Label    string
}

type Servicer interface {
	Push(ctx context.Context, clientID string, payload PushPayload, meta DeviceMeta) (PushResponse, error)
	Pull(ctx context.Context, since time.Time) (PullResponse, error)
	Full(ctx context.Context) (FullResponse, error)
	ResolveConflict(ctx context.Context, req ResolveConflictRequest) (ResolveConflictResponse, error)
	ListDevices(ctx context.Context) ([]DeviceWire, error)
	RemoveDevice(ctx context.Context, deviceID string) error
}

type Service struct {
	repo     Repository
	log      *slog.Logger
	config   *ServiceConfig
	notifier Notifier
}

func NewService(repo Repository, log *slog.Logger, config *ServiceConfig, notifier Notifier) *Service {
	if config == nil {
		config = DefaultServiceConfig()
	}
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &Service{repo: repo, log: log, config: config, notifier: notifier}
}

// Push implements spec.md §4.2.1: ownership by scoping every lookup and
// write to the caller's userID, the version+clientId conflict rule, the
// keep-both augmented row, and an unconditional settings upsert, all applied
// in one PushPlan. A live block pushed over a server tombstone is also
// treated as a conflict, so a tombstone is never cleared.
func (s *Service) Push(ctx context.Context, clientID string, payload PushPayload, meta DeviceMeta) (PushResponse, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return PushResponse{}, ErrNotAuthenticated
	}

	plan := PushPlan{UserID: userID}
	resp := PushResponse{Applied: AppliedSet{Blocks: []string{}, TomorrowTasks: []string{}}}
	now := time.Now()

	for _, wire := range payload.Blocks {
		incoming := wireToIncomingBlock(wire)

		existing, found, err := s.repo.GetBlockByID(ctx, userID, incoming.ID)
		if err != nil {
			return PushResponse{}, fmt.Errorf("get block %s: %w", incoming.ID, err)
		}

		undelete := found && existing.IsTombstone() && incoming.DeletedAt == nil
		if found && (isConflict(existing.Version, existing.ClientID, incoming.Version, clientID) || undelete) {
			conflictBlock := block.Block{
				ID:        fmt.Sprintf("%s-conflict-%d", incoming.ID, now.UnixMilli()),
				UserID:    userID,
				Text:      "[Conflict] " + incoming.Text,
				CreatedAt: incoming.CreatedAt,
				Position:  incoming.Position + 1,
				Version:   1,
				UpdatedAt: now,
				ClientID:  clientID,
			}
			plan.ConflictBlock = append(plan.ConflictBlock, conflictBlock)
			plan.Conflicts = append(plan.Conflicts, Conflict{
				ID:             uuid.NewString(),
				UserID:         userID,
				Kind:           ConflictBlock,
				RecordID:       incoming.ID,
				LocalVersion:   incoming.Version,
				ServerVersion:  existing.Version,
				LocalClientID:  clientID,
				ServerClientID: existing.ClientID,
				CreatedAt:      now,
			})
			resp.Conflicts = append(resp.Conflicts, ConflictReport{
				Type:          string(ConflictBlock),
				ID:            incoming.ID,
				LocalVersion:  incoming.Version,
				ServerVersion: existing.Version,
			})
			continue
		}

		accepted := block.Block{
			ID:              incoming.ID,
			UserID:          userID,
			Text:            incoming.Text,
			Position:        incoming.Position,
			DeletedAt:       incoming.DeletedAt,
			ClientID:        clientID,
			CalendarEventID: incoming.CalendarEventID,
			UpdatedAt:       now,
		}
		if found {
			accepted.CreatedAt = existing.CreatedAt // invariant 6: server never mutates createdAt
			accepted.Version = incoming.Version + 1
		} else {
			accepted.CreatedAt = incoming.CreatedAt
			accepted.Version = 1
		}
		plan.AcceptedBlock = append(plan.AcceptedBlock, accepted)
		resp.Applied.Blocks = append(resp.Applied.Blocks, incoming.ID)
	}

	for _, wire := range payload.TomorrowTasks {
		incoming := wireToIncomingTask(wire)

		existing, found, err := s.repo.GetTaskByID(ctx, userID, incoming.ID)
		if err != nil {
			return PushResponse{}, fmt.Errorf("get task %s: %w", incoming.ID, err)
		}

		if found && isConflict(existing.Version, existing.ClientID, incoming.Version, clientID) {
			conflictTask := tomorrowtask.TomorrowTask{
				ID:        fmt.Sprintf("%s-conflict-%d", incoming.ID, now.UnixMilli()),
				UserID:    userID,
				Text:      "[Conflict] " + incoming.Text,
				Position:  incoming.Position + 1,
				Version:   1,
				UpdatedAt: now,
				ClientID:  clientID,
			}
			plan.ConflictTask = append(plan.ConflictTask, conflictTask)
			plan.Conflicts = append(plan.Conflicts, Conflict{
				ID:             uuid.NewString(),
				UserID:         userID,
				Kind:           ConflictTask,
				RecordID:       incoming.ID,
				LocalVersion:   incoming.Version,
				ServerVersion:  existing.Version,
				LocalClientID:  clientID,
				ServerClientID: existing.ClientID,
				CreatedAt:      now,
			})
			resp.Conflicts = append(resp.Conflicts, ConflictReport{
				Type:          string(ConflictTask),
				ID:            incoming.ID,
				LocalVersion:  incoming.Version,
				ServerVersion: existing.Version,
			})
			continue
		}

		accepted := tomorrowtask.TomorrowTask{
			ID:        incoming.ID,
			UserID:    userID,
			Text:      incoming.Text,
			Time:      incoming.Time,
			Position:  incoming.Position,
			DeletedAt: incoming.DeletedAt,
			ClientID:  clientID,
			UpdatedAt: now,
		}
		if found {
			accepted.Version = incoming.Version + 1
		} else {
			accepted.Version = 1
		}
		plan.AcceptedTask = append(plan.AcceptedTask, accepted)
		resp.Applied.TomorrowTasks = append(resp.Applied.TomorrowTasks, incoming.ID)
	}

	if payload.Settings != nil {
		theme := settings.Theme(payload.Settings.Theme)
		if !theme.Valid() {
			theme = settings.ThemeSystem
		}
		plan.Settings = &settings.Settings{
			UserID:     userID,
			Theme:      theme,
			DayCutHour: payload.Settings.DayCutHour,
			UpdatedAt:  now,
		}
		resp.Applied.Settings = true
	}

	outcome, err := s.repo.ApplyPushPlan(ctx, plan)
	if err != nil {
		return PushResponse{}, fmt.Errorf("apply push plan: %w", err)
	}
	resp.Applied.Blocks = outcome.AppliedBlocks
	resp.Applied.TomorrowTasks = outcome.AppliedTasks
	resp.Applied.Settings = outcome.AppliedSettings
	resp.Success = true

	if err := s.repo.UpsertDevice(ctx, device.Device{
		ID:         uuid.NewString(),
		UserID:     userID,
		ClientID:   clientID,
		Label:      meta.Label,
		Platform:   meta.Platform,
		LastSeenAt: now,
		CreatedAt:  now,
	}); err != nil {
		s.log.Warn("device upsert failed", "user_id", userID, "error", err)
	}

	s.notifier.NotifyUserChanged(userID, clientID)

	return resp, nil
}

// isConflict implements spec.md §4.2.1 step 3 verbatim.
func isConflict(existingVersion int64, existingClientID string, incomingVersion int64, incomingClientID string) bool {
	return existingVersion >= incomingVersion && existingClientID != incomingClientID
}

func (s *Service) Pull(ctx context.Context, since time.Time) (PullResponse, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return PullResponse{}, ErrNotAuthenticated
	}

	blocks, err := s.repo.PullBlocks(ctx, userID, since)
	if err != nil {
		return PullResponse{}, fmt.Errorf("pull blocks: %w", err)
	}
	tasks, err := s.repo.PullTasks(ctx, userID, since)
	if err != nil {
		return PullResponse{}, fmt.Errorf("pull tasks: %w", err)
	}
	st, err := s.repo.PullSettings(ctx, userID, since)
	if err != nil {
		return PullResponse{}, fmt.Errorf("pull settings: %w", err)
	}

	return PullResponse{
		Blocks:        blocksToWire(blocks),
		TomorrowTasks: tasksToWire(tasks),
		Settings:      settingsToWire(st),
		Conflicts:     []ConflictReport{},
		SyncedAt:      time.Now(),
	}, nil
}

func (s *Service) Full(ctx context.Context) (FullResponse, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return FullResponse{}, ErrNotAuthenticated
	}

	blocks, err := s.repo.FullBlocks(ctx, userID)
	if err != nil {
		return FullResponse{}, fmt.Errorf("full blocks: %w", err)
	}
	tasks, err := s.repo.FullTasks(ctx, userID)
	if err != nil {
		return FullResponse{}, fmt.Errorf("full tasks: %w", err)
	}
	st, err := s.repo.GetSettings(ctx, userID)
	if err != nil {
		return FullResponse{}, fmt.Errorf("full settings: %w", err)
	}

	return FullResponse{
		Blocks:        blocksToWire(blocks),
		TomorrowTasks: tasksToWire(tasks),
		Settings:      settingsToWire(st),
		SyncedAt:      time.Now(),
	}, nil
}

func (s *Service) ResolveConflict(ctx context.Context, req ResolveConflictRequest) (ResolveConflictResponse, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return ResolveConflictResponse{}, ErrNotAuthenticated
	}

	conflict, found, err := s.repo.GetConflictByID(ctx, req.ConflictID)
	if err != nil {
		return ResolveConflictResponse{}, fmt.Errorf("get conflict: %w", err)
	}
	if !found || conflict.UserID != userID {
		return ResolveConflictResponse{}, ErrConflictNotFound
	}

	if err := s.repo.ResolveConflict(ctx, req.ConflictID, req.Resolution); err != nil {
		return ResolveConflictResponse{}, fmt.Errorf("resolve conflict: %w", err)
	}

	return ResolveConflictResponse{Success: true}, nil
}

func (s *Service) ListDevices(ctx context.Context) ([]DeviceWire, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, ErrNotAuthenticated
	}

	devices, err := s.repo.ListDevices(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	wire := make([]DeviceWire, 0, len(devices))
	for _, d := range devices {
		wire = append(wire, DeviceWire{
			ID:         d.ID,
			ClientID:   d.ClientID,
			Label:      d.Label,
			Platform:   string(d.Platform),
			LastSeenAt: d.LastSeenAt,
			CreatedAt:  d.CreatedAt,
		})
	}
	return wire, nil
}

func (s *Service) RemoveDevice(ctx context.Context, deviceID string) error {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return ErrNotAuthenticated
	}

	if err := s.repo.DeleteDevice(ctx, userID, deviceID); err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	return nil
}

func wireToIncomingBlock(w BlockWire) block.Incoming {
	return block.Incoming{
		ID:              w.ID,
		Text:            w.Text,
		CreatedAt:       w.CreatedAt,
		Position:        w.Position,
		Version:         w.Version,
		UpdatedAt:       w.UpdatedAt,
		DeletedAt:       w.DeletedAt,
		ClientID:        w.ClientID,
		CalendarEventID: w.CalendarEventID,
	}
}

func wireToIncomingTask(w TomorrowTaskWire) tomorrowtask.Incoming {
	return tomorrowtask.Incoming{
		ID:        w.ID,
		Text:      w.Text,
		Time:      w.Time,
		Position:  w.Position,
		Version:   w.Version,
		UpdatedAt: w.UpdatedAt,
		DeletedAt: w.DeletedAt,
		ClientID:  w.ClientID,
	}
}

func blocksToWire(blocks []block.Block) []BlockWire {
	wire := make([]BlockWire, 0, len(blocks))
	for _, b := range blocks {
		wire = append(wire, BlockWire{
			ID:              b.ID,
			Text:            b.Text,
			CreatedAt:       b.CreatedAt,
			CalendarEventID: b.CalendarEventID,
			Position:        b.Position,
			Version:         b.Version,
			UpdatedAt:       b.UpdatedAt,
			DeletedAt:       b.DeletedAt,
			ClientID:        b.ClientID,
		})
	}
	return wire
}

func tasksToWire(tasks []tomorrowtask.TomorrowTask) []TomorrowTaskWire {
	wire := make([]TomorrowTaskWire, 0, len(tasks))
	for _, t := range tasks {
		wire = append(wire, TomorrowTaskWire{
			ID:        t.ID,
			Text:      t.Text,
			Time:      t.Time,
			Position:  t.Position,
			Version:   t.Version,
			UpdatedAt: t.UpdatedAt,
			DeletedAt: t.DeletedAt,
			ClientID:  t.ClientID,
		})
	}
	return wire
}

func settingsToWire(st *settings.Settings) *SettingsWire {
	if st == nil {
		return nil
	}
	return &SettingsWire{
		Theme:      string(st.Theme),
		DayCutHour: st.DayCutHour,
		UpdatedAt:  st.UpdatedAt,
	}
}
