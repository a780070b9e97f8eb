package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kingrea/taskboard/internal/activity"
	"github.com/kingrea/taskboard/internal/config"
	"github.com/kingrea/taskboard/internal/kanban"
	"github.com/kingrea/taskboard/internal/logging"
	"github.com/kingrea/taskboard/internal/store"
)

// runtime is everything one invocation needs, wired from the project config.
type runtime struct {
	cfg      *config.Config
	logger   *logging.Logger
	kv       store.KV
	activity *activity.Log
	service  *kanban.Service
}

func projectDir(cmd *cobra.Command) (string, error) {
	dir, _ := cmd.Flags().GetString("dir")
	if dir != "" {
		return dir, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	return cwd, nil
}

func openRuntime(ctx context.Context, cmd *cobra.Command) (*runtime, error) {
	dir, err := projectDir(cmd)
	if err != nil {
		return nil, err
	}
	if err := config.InitDir(dir); err != nil {
		return nil, err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg)
	if err != nil {
		return nil, err
	}

	settings := cfg.Settings
	kv, err := store.Open(ctx, store.Options{
		Driver:        store.Driver(settings.Storage.Driver),
		Dir:           cfg.StateDir(),
		RedisAddr:     settings.Redis.Addr,
		RedisPassword: settings.Redis.Password,
		RedisDB:       settings.Redis.DB,
	})
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	log := activity.New(kv, settings.Storage.ActivityKey,
		activity.WithLimit(settings.Storage.ActivityLimit),
		activity.WithLogger(logger.WithComponent("activity")),
	)
	svc := kanban.New(ctx, store.NewBoardRepository(kv, settings.Storage.BoardKey), log,
		kanban.WithMaxTasks(settings.Board.MaxTasks),
		kanban.WithMaxHistory(settings.Board.MaxHistory),
		kanban.WithStrictImport(settings.Board.StrictImport),
		kanban.WithLogger(logger.WithComponent("kanban")),
	)
	logger.Debugw("Runtime ready", "driver", settings.Storage.Driver, "tasks", svc.Board().TaskCount())

	return &runtime{
		cfg:      cfg,
		logger:   logger,
		kv:       kv,
		activity: log,
		service:  svc,
	}, nil
}

func (r *runtime) Close() {
	if err := r.kv.Close(); err != nil {
		r.logger.Warnw("Failed to close store", "error", err)
	}
	_ = r.logger.Close()
}

// withRuntime adapts a command body that needs the wired runtime.
func withRuntime(run func(cmd *cobra.Command, args []string, rt *runtime) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer rt.Close()
		return run(cmd, args, rt)
	}
}
