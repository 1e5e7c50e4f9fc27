package client

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	gosync "sync"
	"syscall"
	"time"

	"golang.org/x/exp/slog"

	"daylog/internal/app/client/config"
	"daylog/internal/app/client/crypto"
)

// App wires together the local cache, the HTTP client and the sync service.
// There is no master-password vault: the only secret on disk is the bearer
// token, encrypted at rest with a per-installation key (internal/app/client/crypto).
type App struct {
	config      *config.Config
	log         *slog.Logger
	keys        *crypto.KeyManager
	tokenCipher *crypto.TokenCipher
	httpClient  *httpClient
	storage     *SQLiteStorage
	syncService *SyncService
	state       *AppState
	events      *Subject

	clientID string
	token    string

	authenticated bool
	status        Status
	wg            gosync.WaitGroup
	cancel        context.CancelFunc
	mu            gosync.RWMutex
}

// AppState persists small bits of install-local state across runs.
type AppState struct {
	Initialized bool      `json:"initialized"`
	UserEmail   string    `json:"user_email"`
	LastSync    time.Time `json:"last_sync"`
}

func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	state, err := loadAppState(cfg)
	if err != nil {
		log.Warn("failed to load app state", "error", err)
		state = &AppState{}
	}

	keys, err := crypto.NewKeyManager(cfg.DeviceKeyPath)
	if err != nil {
		return nil, fmt.Errorf("init device key: %w", err)
	}
	tokenCipher := crypto.NewTokenCipher(keys)

	httpCl, err := NewHTTPClient(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("init http client: %w", err)
	}

	storage, err := NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	clientID, err := loadOrCreateClientID(cfg.ClientIDPath)
	if err != nil {
		storage.Close()
		return nil, fmt.Errorf("init client id: %w", err)
	}

	app := &App{
		config:      cfg,
		log:         log,
		keys:        keys,
		tokenCipher: tokenCipher,
		httpClient:  httpCl,
		storage:     storage,
		state:       state,
		clientID:    clientID,
		events:      NewSubject(),
		status:      StatusIdle,
	}

	app.syncService = NewSyncService(app)

	if token, err := app.loadToken(); err == nil && token != "" {
		app.token = token
		httpCl.SetToken(token)
		app.mu.Lock()
		app.authenticated = true
		app.mu.Unlock()
		log.Debug("token loaded from disk")
	}

	config.WatchAPIURL(func(apiURL string) {
		app.log.Info("api_url changed, repointing client", "api_url", apiURL)
		app.httpClient.SetBaseURL(apiURL)
	})

	return app, nil
}

// loadOrCreateClientID returns the stable per-installation identifier the
// server uses to tell "my own other device" apart from "somebody else's
// device", per spec.md §4.2 (clientId on every wire record).
func loadOrCreateClientID(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return string(data), nil
	}
	if !os.IsNotExist(err) {
		return "", fmt.Errorf("read client id: %w", err)
	}

	id, err := crypto.GenerateRandomHex(16)
	if err != nil {
		return "", fmt.Errorf("generate client id: %w", err)
	}
	if err := os.WriteFile(path, []byte(id), 0600); err != nil {
		return "", fmt.Errorf("write client id: %w", err)
	}
	return id, nil
}

func loadAppState(cfg *config.Config) (*AppState, error) {
	statePath := cfg.ConfigDir + "/state.json"

	if _, err := os.Stat(statePath); os.IsNotExist(err) {
		return &AppState{}, nil
	}

	data, err := os.ReadFile(statePath)
	if err != nil {
		return nil, err
	}

	var state AppState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}

	return &state, nil
}

func (a *App) saveAppState() error {
	statePath := a.config.ConfigDir + "/state.json"
	data, err := json.MarshalIndent(a.state, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(statePath, data, 0600)
}

// Run starts the auto-sync loop and blocks until a termination signal
// arrives or the context is cancelled by something else.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	go a.handleSignals()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.syncService.StartAutoSync(ctx)
	}()

	a.log.Info("client started", "server", a.config.APIURL, "env", a.config.Env)

	a.wg.Wait()
	return nil
}

func (a *App) handleSignals() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	sig := <-sigChan
	a.log.Info("received termination signal", "signal", sig.String())

	if a.cancel != nil {
		a.cancel()
	}
}

func (a *App) Shutdown() {
	a.log.Info("shutting down client...")

	if a.cancel != nil {
		a.cancel()
	}

	a.wg.Wait()

	if err := a.storage.Close(); err != nil {
		a.log.Warn("failed to close storage", "error", err)
	}

	a.log.Info("client stopped")
}

// CheckConnection probes the server's health endpoint.
func (a *App) CheckConnection() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return a.httpClient.HealthCheck(ctx)
}

// IsAuthenticated reports whether a bearer token is loaded.
func (a *App) IsAuthenticated() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.authenticated
}

// Status returns the engine's current state (spec.md §4.1 State).
func (a *App) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status
}

// setStatus transitions the engine's state and fans the change out to every
// status-change subscriber (spec.md §9).
func (a *App) setStatus(st Status) {
	a.mu.Lock()
	a.status = st
	a.mu.Unlock()
	a.events.emit(EventStatusChange, st)
}

// Subscribe registers handler for event (one of the Event* constants) and
// returns a func that unregisters it. This is the engine's only pub/sub
// capability, per spec.md §9 Design Notes.
func (a *App) Subscribe(event string, handler Handler) (unsubscribe func()) {
	return a.events.Subscribe(event, handler)
}

func (a *App) deviceLabel() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown device"
	}
	return hostname
}

func (a *App) devicePlatform() string {
	switch runtime.GOOS {
	case "darwin", "windows", "linux":
		return "desktop"
	default:
		return "unknown"
	}
}

func (a *App) httpClientBaseURL() string {
	return a.httpClient.baseURL
}

// loadToken reads and decrypts the token file, if one exists.
func (a *App) loadToken() (string, error) {
	data, err := os.ReadFile(a.config.TokenPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read token: %w", err)
	}

	plaintext, err := a.tokenCipher.DecryptString(string(data))
	if err != nil {
		return "", fmt.Errorf("decrypt token: %w", err)
	}
	return plaintext, nil
}

// saveToken encrypts and persists the bearer token, and installs it on the
// HTTP client for subsequent requests.
func (a *App) saveToken(token string) error {
	encrypted, err := a.tokenCipher.EncryptString(token)
	if err != nil {
		return fmt.Errorf("encrypt token: %w", err)
	}
	if err := os.WriteFile(a.config.TokenPath, []byte(encrypted), 0600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}

	a.token = token
	a.httpClient.SetToken(token)
	return nil
}

// ClearToken logs the client out locally, without affecting the server.
func (a *App) ClearToken() error {
	a.mu.Lock()
	a.authenticated = false
	a.state.UserEmail = ""
	a.mu.Unlock()

	a.token = ""
	a.httpClient.SetToken("")

	if err := os.Remove(a.config.TokenPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token: %w", err)
	}

	return a.saveAppState()
}

// LoginGoogle exchanges a Google ID token for a daylog bearer token, per
// spec.md §3 (the primary auth path).
func (a *App) LoginGoogle(ctx context.Context, idToken string) error {
	token, err := a.httpClient.ExchangeGoogle(ctx, idToken)
	if err != nil {
		return fmt.Errorf("exchange google token: %w", err)
	}
	return a.completeLogin(token)
}

// LoginInternal exchanges a pre-shared internal secret for a bearer token,
// used by the seeded test/dev account that has no real Google identity.
func (a *App) LoginInternal(ctx context.Context, secret, providerID, email, name, image string) error {
	token, err := a.httpClient.ExchangeInternal(ctx, secret, providerID, email, name, image)
	if err != nil {
		return fmt.Errorf("exchange internal token: %w", err)
	}
	return a.completeLogin(token)
}

func (a *App) completeLogin(token string) error {
	if err := a.saveToken(token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}

	a.mu.Lock()
	a.authenticated = true
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, email, _, err := a.httpClient.Me(ctx); err == nil {
		a.mu.Lock()
		a.state.UserEmail = email
		a.mu.Unlock()
	}

	a.mu.Lock()
	err := a.saveAppState()
	a.mu.Unlock()
	if err != nil {
		a.log.Warn("failed to save app state", "error", err)
	}

	a.log.Info("login successful")
	return nil
}

// ==================== Block operations ====================

// ListBlocks returns every cached block that is not tombstoned, ordered by
// (createdAt, position).
func (a *App) ListBlocks() ([]Block, error) {
	return a.storage.ListBlocks(false)
}

// ListAllBlocks includes tombstones, for inspecting deletions pending
// propagation (the CLI's `--all` flag; presentation otherwise always
// filters deletedAt != null per spec.md §3 invariant 4).
func (a *App) ListAllBlocks() ([]Block, error) {
	return a.storage.ListBlocks(true)
}

// SaveBlock upserts a block locally, marks it dirty and pending, and bumps
// its version and updatedAt so the next push can detect a conflict if the
// server has a newer copy.
func (a *App) SaveBlock(b Block) error {
	b.UpdatedAt = time.Now().UTC()
	b.Version++
	b.Dirty = true
	b.SyncStatus = StatusPending
	if err := a.storage.UpsertBlock(b); err != nil {
		return err
	}
	a.events.emit(EventBlocksUpdated, []Block{b})
	return nil
}

// DeleteBlock soft-deletes a block locally (a tombstone), to be pushed and
// replicated to every other device on the next sync.
func (a *App) DeleteBlock(id string) error {
	blocks, err := a.storage.ListBlocks(true)
	if err != nil {
		return fmt.Errorf("list blocks: %w", err)
	}

	for _, b := range blocks {
		if b.ID != id {
			continue
		}
		now := time.Now().UTC()
		b.DeletedAt = &now
		b.UpdatedAt = now
		b.Version++
		b.Dirty = true
		b.SyncStatus = StatusPending
		if err := a.storage.UpsertBlock(b); err != nil {
			return err
		}
		a.events.emit(EventBlocksUpdated, []Block{b})
		return nil
	}

	return fmt.Errorf("block not found: %s", id)
}

// ==================== Tomorrow task operations ====================

func (a *App) ListTomorrowTasks() ([]TomorrowTask, error) {
	return a.storage.ListTasks(false)
}

// ListAllTomorrowTasks includes tombstones; see ListAllBlocks.
func (a *App) ListAllTomorrowTasks() ([]TomorrowTask, error) {
	return a.storage.ListTasks(true)
}

func (a *App) SaveTomorrowTask(t TomorrowTask) error {
	t.UpdatedAt = time.Now().UTC()
	t.Version++
	t.Dirty = true
	t.SyncStatus = StatusPending
	if err := a.storage.UpsertTask(t); err != nil {
		return err
	}
	a.events.emit(EventTomorrowTasksUpdated, []TomorrowTask{t})
	return nil
}

func (a *App) DeleteTomorrowTask(id string) error {
	tasks, err := a.storage.ListTasks(true)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	for _, t := range tasks {
		if t.ID != id {
			continue
		}
		now := time.Now().UTC()
		t.DeletedAt = &now
		t.UpdatedAt = now
		t.Version++
		t.Dirty = true
		t.SyncStatus = StatusPending
		if err := a.storage.UpsertTask(t); err != nil {
			return err
		}
		a.events.emit(EventTomorrowTasksUpdated, []TomorrowTask{t})
		return nil
	}

	return fmt.Errorf("task not found: %s", id)
}

// ==================== Settings operations ====================

func (a *App) GetSettings() (*Settings, error) {
	st, err := a.storage.GetSettings()
	if err != nil {
		return nil, err
	}
	if st == nil {
		return &Settings{Theme: "system", DayCutHour: 4}, nil
	}
	return st, nil
}

func (a *App) SaveSettings(st Settings) error {
	st.UpdatedAt = time.Now().UTC()
	st.Dirty = true
	if err := a.storage.PutSettings(st); err != nil {
		return err
	}
	a.events.emit(EventSettingsUpdated, st)
	return nil
}

// ==================== Sync / devices ====================

func (a *App) Sync(ctx context.Context) (*SyncResult, error) {
	return a.syncService.Sync(ctx)
}

func (a *App) GetSyncService() *SyncService {
	return a.syncService
}

func (a *App) ListDevices(ctx context.Context) ([]Device, error) {
	wires, err := a.httpClient.ListDevices(ctx)
	if err != nil {
		return nil, err
	}

	devices := make([]Device, 0, len(wires))
	for _, w := range wires {
		devices = append(devices, Device{
			ID: w.ID, ClientID: w.ClientID, Label: w.Label,
			Platform: w.Platform, LastSeenAt: w.LastSeenAt, CreatedAt: w.CreatedAt,
		})
	}
	return devices, nil
}

func (a *App) RemoveDevice(ctx context.Context, deviceID string) error {
	return a.httpClient.RemoveDevice(ctx, deviceID)
}

func (a *App) ResolveConflict(ctx context.Context, conflictID, resolution string) error {
	return a.httpClient.ResolveConflict(ctx, conflictID, resolution)
}

// Whoami asks the server for the identity behind the current bearer token,
// used by `daylog auth whoami` to confirm a persisted token is still valid
// (spec.md §4.4, GET /auth/me).
func (a *App) Whoami(ctx context.Context) (email, name string, err error) {
	if !a.IsAuthenticated() {
		return "", "", fmt.Errorf("not signed in")
	}
	_, email, name, err = a.httpClient.Me(ctx)
	return email, name, err
}

// ClientID returns this installation's stable sync identifier.
func (a *App) ClientID() string {
	return a.clientID
}
