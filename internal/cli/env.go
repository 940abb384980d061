package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/codalotl/changereview/internal/config"
	"github.com/codalotl/changereview/internal/docstore"
	"github.com/codalotl/changereview/internal/health"
	"github.com/codalotl/changereview/internal/history"
	"github.com/codalotl/changereview/internal/logging"
	"github.com/codalotl/changereview/internal/review"
	"github.com/codalotl/changereview/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// env is what a command needs beyond its arguments: configuration and a logger.
type env struct {
	cfg    config.Config
	logger *slog.Logger
	health health.Ctx
}

// loadEnv reads the config file named by --config. The default path may be missing; a path given explicitly must exist.
func loadEnv(cmd *cobra.Command, g *globalFlags) (*env, error) {
	var cfg config.Config
	var err error
	if cmd.Flags().Changed("config") {
		cfg, err = config.Load(g.configPath)
	} else {
		cfg, err = config.LoadOrDefault(g.configPath)
	}
	if err != nil {
		return nil, err
	}

	logOpts := cfg.LogOptions()
	logOpts.Verbose = g.verbose
	logOpts.Stderr = cmd.ErrOrStderr()
	logger := logging.New(logOpts).With("cmd", cmd.Name())
	logger.Debug("loaded config", "path", g.configPath, "config", cfg)

	return &env{cfg: cfg, logger: logger, health: health.NewCtx(logger)}, nil
}

// openService builds a Service over the configured store and history backends. The returned close func releases the history backend.
func (e *env) openService(ctx context.Context) (*service.Service, func(), error) {
	store, err := e.openStore()
	if err != nil {
		return nil, nil, e.health.LogWrappedErr("open document store", err, "backend", e.cfg.Store.Backend)
	}
	hist, err := e.openHistory(ctx)
	if err != nil {
		return nil, nil, e.health.LogWrappedErr("open history", err, "backend", e.cfg.History.Backend)
	}

	registry := review.NewRegistry(review.Options{Diff: e.cfg.DiffOptions(), Hunks: e.cfg.HunkOptions()})
	registry.Subscribe(func(ev review.Event) {
		e.logger.Debug("review event", "type", ev.Type, "document", ev.DocumentID, "change", ev.ChangeID, "hunk", ev.HunkID, "remaining", ev.RemainingCount)
	})

	svc := service.New(store, hist, registry, service.Options{Exclude: e.cfg.Review.Exclude, Logger: e.logger})
	closeFn := func() {
		if err := hist.Close(); err != nil {
			_ = e.health.LogWrappedErr("close history", err)
		}
	}
	return svc, closeFn, nil
}

func (e *env) openStore() (docstore.Store, error) {
	switch e.cfg.Store.Backend {
	case config.StoreS3:
		s3cfg := e.cfg.Store.S3
		client := docstore.NewS3Client(docstore.S3Options{Region: s3cfg.Region, Endpoint: s3cfg.Endpoint, PathStyle: s3cfg.PathStyle})
		return docstore.NewS3(client, s3cfg.Bucket, s3cfg.Prefix), nil
	default:
		return docstore.NewFS(e.cfg.Store.Root)
	}
}

func (e *env) openHistory(ctx context.Context) (history.Store, error) {
	switch e.cfg.History.Backend {
	case config.HistorySQLite:
		return history.OpenSQLite(ctx, e.cfg.History.SQLitePath)
	case config.HistoryRedis:
		rdb := redis.NewClient(&redis.Options{Addr: e.cfg.History.RedisAddr})
		return history.NewRedis(rdb, e.cfg.History.RedisPrefix), nil
	default:
		return history.Nop{}, nil
	}
}

// useColor reports whether w is a terminal and NO_COLOR is unset.
func useColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
