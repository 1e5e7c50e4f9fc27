package client

import (
	"io"
	"path/filepath"
	"testing"

	"golang.org/x/exp/slog"

	"daylog/internal/app/client/config"
)

func newTestApp(t *testing.T) *App {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		Env:           "local",
		APIURL:        "http://127.0.0.1:0",
		DeviceKeyPath: filepath.Join(dir, "device.key"),
		ConfigDir:     dir,
		TokenPath:     filepath.Join(dir, "token"),
		DBPath:        filepath.Join(dir, "daylog.db"),
		ClientIDPath:  filepath.Join(dir, "client_id"),
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	app, err := New(cfg, log)
	if err != nil {
		t.Fatalf("init test app: %v", err)
	}
	t.Cleanup(func() { app.storage.Close() })

	return app
}
