package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/flatval"
	"github.com/aretw0/flatval/internal/config"
	"github.com/aretw0/flatval/pkg/adapters/expr"
	"github.com/aretw0/flatval/pkg/adapters/jq"
	redisstore "github.com/aretw0/flatval/pkg/adapters/redis"
	"github.com/aretw0/flatval/pkg/adapters/remote"
	"github.com/aretw0/flatval/pkg/domain"
	"github.com/aretw0/flatval/pkg/ports"
	goredis "github.com/redis/go-redis/v9"
)

// newEvaluator builds the evaluator selected by the configuration.
func newEvaluator(cfg config.Config, logger *slog.Logger) (ports.Evaluator, error) {
	switch cfg.Evaluator.Kind {
	case config.EvaluatorRemote:
		return remote.New(cfg.Evaluator.URL,
			remote.WithTimeout(cfg.Evaluator.Timeout),
			remote.WithLogger(logger),
		), nil
	case config.EvaluatorExpr:
		return expr.New(expr.WithLogger(logger)), nil
	case config.EvaluatorJQ:
		return jq.New(jq.WithLogger(logger)), nil
	}
	return nil, fmt.Errorf("unknown evaluator %q", cfg.Evaluator.Kind)
}

// newConsole wires a Console from the configuration. closeFn releases the
// Redis connection, if any.
func newConsole(ctx context.Context, cfg config.Config, logger *slog.Logger, hooks domain.LifecycleHooks) (c *flatval.Console, closeFn func() error, err error) {
	evaluator, err := newEvaluator(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	opts := []flatval.Option{
		flatval.WithLogger(logger),
		flatval.WithLocation(cfg.Location()),
		flatval.WithMaxDepth(cfg.Render.MaxDepth),
		flatval.WithMaxInputSize(cfg.MaxInputSize),
		flatval.WithLifecycleHooks(hooks),
	}
	closeFn = func() error { return nil }

	if cfg.Redis.Addr != "" {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}

		store := redisstore.NewFromClient(client,
			redisstore.WithPrefix(cfg.Redis.Prefix+"history:"),
			redisstore.WithTTL(cfg.Redis.TTL),
		)
		opts = append(opts,
			flatval.WithStore(store),
			flatval.WithLocker(redisstore.NewLocker(client, cfg.Redis.Prefix)),
			flatval.WithLockTTL(cfg.Redis.LockTTL),
		)
		closeFn = store.Close
		logger.Info("Using redis history store", "addr", cfg.Redis.Addr, "prefix", cfg.Redis.Prefix)
	}

	return flatval.New(evaluator, opts...), closeFn, nil
}

func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnEntryPending: func(ctx context.Context, e *domain.EntryEvent) {
			logger.DebugContext(ctx, "Evaluate", "input_size", len(e.Entry.Input))
		},
		OnEntryDone: func(ctx context.Context, e *domain.EntryEvent) {
			if e.Entry.Error != nil {
				logger.DebugContext(ctx, "Evaluation failed", "name", e.Entry.Error.Name, "duration", e.Duration)
				return
			}
			logger.DebugContext(ctx, "Evaluation done", "nodes", len(e.Entry.Heap), "duration", e.Duration)
		},
		OnClear: func(ctx context.Context, e *domain.ClearEvent) {
			logger.DebugContext(ctx, "History cleared", "next_session_id", e.NextSessionID)
		},
	}
}

// sweepViews periodically drops the display state of expired or idle
// sessions until ctx is done.
func sweepViews(ctx context.Context, c *flatval.Console, every, idle time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.Prune(ctx, idle); err != nil {
				logger.Warn("Failed to prune session views", "err", err)
			}
		}
	}
}
