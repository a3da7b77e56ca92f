package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/danielpatrickdp/handoff/internal/audit"
	"github.com/danielpatrickdp/handoff/internal/config"
	"github.com/danielpatrickdp/handoff/internal/history"
	"github.com/danielpatrickdp/handoff/internal/judge"
	"github.com/danielpatrickdp/handoff/internal/metrics"
)

// #region runtime

// Runtime owns everything Open created: the tools, the metrics registry and
// the resources that must be closed.
type Runtime struct {
	Tools      *Tools
	Collectors *metrics.Collectors
	Audit      *audit.Log // nil when audit.path is empty

	metricsCfg config.MetricsConfig
	closers    []func() error
	logger     zerolog.Logger
}

// Open builds a Runtime from cfg. On error every resource opened so far is
// closed again.
func Open(cfg *config.Config, logger zerolog.Logger) (_ *Runtime, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	rt := &Runtime{
		Collectors: metrics.New(),
		metricsCfg: cfg.Metrics,
		logger:     logger.With().Str("component", "runtime").Logger(),
	}
	defer func() {
		if err != nil {
			_ = rt.Close()
		}
	}()

	runner, err := rt.openRunner(cfg, logger)
	if err != nil {
		return nil, err
	}
	store, err := rt.openStore(cfg.History)
	if err != nil {
		return nil, err
	}
	if cfg.Audit.Path != "" {
		log, err := audit.Open(cfg.Audit.Path)
		if err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}
		rt.Audit = log
		rt.closers = append(rt.closers, log.Close)
	}

	temperature := cfg.Judge.Temperature
	rt.Tools, err = New(Deps{
		Runner:      runner,
		Store:       store,
		Audit:       rt.Audit,
		Metrics:     rt.Collectors,
		Logger:      logger,
		JudgeModel:  cfg.Judge.Model,
		Temperature: &temperature,
	})
	if err != nil {
		return nil, err
	}
	rt.logger.Debug().
		Str("history", cfg.History.Backend).
		Bool("audit", rt.Audit != nil).
		Bool("remote_judge", cfg.Judge.GRPCAddr != "").
		Msg("runtime ready")
	return rt, nil
}

func (rt *Runtime) openRunner(cfg *config.Config, logger zerolog.Logger) (judge.Runner, error) {
	if cfg.Judge.GRPCAddr != "" {
		r, err := judge.NewGRPCRunner(cfg.Judge.GRPCAddr, judge.GRPCOptions{
			Timeout:       cfg.Judge.Timeout,
			CredentialEnv: cfg.Judge.CredentialEnv,
		}, logger)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, r.Close)
		return r, nil
	}
	return judge.NewProcessRunner(judge.ProcessOptions{
		Candidates:    cfg.Judge.Paths,
		Entrypoint:    cfg.Judge.Entrypoint,
		Interpreter:   cfg.Judge.Interpreter,
		Timeout:       cfg.Judge.Timeout,
		CredentialEnv: cfg.Judge.CredentialEnv,
		ModelHost:     cfg.Ollama.Host,
	}, logger), nil
}

func (rt *Runtime) openStore(cfg config.HistoryConfig) (history.Store, error) {
	var (
		store history.Store
		err   error
	)
	switch cfg.Backend {
	case config.BackendMemory:
		store = history.NewMemoryStore()
	case config.BackendSQLite:
		store, err = history.NewSQLiteStore(cfg.SQLitePath)
	case config.BackendRedis:
		store, err = history.NewRedisStore(history.RedisConfig{Addr: cfg.RedisAddr, Key: cfg.RedisKey})
	default:
		err = fmt.Errorf("%w: %q", config.ErrUnknownBackend, cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	rt.closers = append(rt.closers, store.Close)
	return store, nil
}

// #endregion runtime

// #region lifecycle

// Flush pushes collected metrics when a pushgateway is configured.
func (rt *Runtime) Flush(ctx context.Context) error {
	if rt.metricsCfg.Pushgateway == "" {
		return nil
	}
	if err := rt.Collectors.Push(ctx, rt.metricsCfg.Pushgateway, rt.metricsCfg.Job); err != nil {
		rt.logger.Warn().Err(err).Str("url", rt.metricsCfg.Pushgateway).Msg("metrics push failed")
		return err
	}
	return nil
}

// Close releases resources in reverse open order.
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

// #endregion lifecycle
