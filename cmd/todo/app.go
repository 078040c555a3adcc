package main

import (
	"context"
	"fmt"
	"path/filepath"

	"todolist/internal/config"
	"todolist/internal/logging"
	"todolist/internal/store"
	"todolist/internal/tasks"

	"go.uber.org/zap"
)

// app wires configuration, logging, the task store and the controller for
// one command invocation.
type app struct {
	cfg      *config.Config
	dataDir  string
	provider *store.Provider
	store    *store.TaskStore
	ctrl     *tasks.Controller
}

// resolveDataDir applies the --data-dir flag over the XDG default.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	return config.DefaultDataDir()
}

// loadConfig reads the config named by --config, or the one in the data dir.
func loadConfig(dir string) (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath(dir)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// bootApp opens everything a command needs. The controller's lifetime is
// bounded by ctx as well as by close.
func bootApp(ctx context.Context) (*app, error) {
	dir := resolveDataDir()

	cfg, err := loadConfig(dir)
	if err != nil {
		return nil, err
	}

	if err := logging.Initialize(dir, logging.Options{
		DebugMode:  cfg.Logging.DebugMode,
		Level:      cfg.Logging.Level,
		JSONFormat: cfg.Logging.Format == "json",
		Categories: cfg.Logging.Categories,
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	logging.Boot("data dir %s, driver %s", dir, cfg.Store.Driver)
	logging.BootDebug("busy timeout %v, theme %s", cfg.GetBusyTimeout(), cfg.UI.Theme)
	if logging.IsDebugMode() {
		logger.Debug("debug logs enabled", zap.String("dir", filepath.Join(dir, "logs")))
	}

	provider := store.NewProvider(store.Options{
		Path:        cfg.DatabasePath(dir),
		Driver:      cfg.Store.Driver,
		BusyTimeout: cfg.GetBusyTimeout(),
	})
	st, err := provider.Get()
	if err != nil {
		logging.BootWarn("store open failed: %v", err)
		logging.CloseAll()
		return nil, err
	}
	logger.Debug("task store ready", zap.String("path", st.Path()), zap.String("driver", st.Driver()))

	return &app{
		cfg:      cfg,
		dataDir:  dir,
		provider: provider,
		store:    st,
		ctrl:     tasks.New(st, tasks.WithParent(ctx)),
	}, nil
}

func (a *app) close() {
	a.ctrl.Close()
	if err := a.provider.Close(); err != nil {
		logger.Warn("closing task store", zap.Error(err))
	}
	logging.CloseAll()
}
