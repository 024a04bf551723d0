package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/internal/config"
	httpadapter "github.com/aretw0/tendril/pkg/adapters/http"
	"github.com/aretw0/tendril/pkg/adapters/memory"
	"github.com/aretw0/tendril/pkg/adapters/process"
	redisadapter "github.com/aretw0/tendril/pkg/adapters/redis"
	"github.com/aretw0/tendril/pkg/definition"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/observability"
	"github.com/aretw0/tendril/pkg/persistence/middleware"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/workflows/codereview"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	backend "github.com/redis/go-redis/v9"
)

// Stack is an engine together with the infrastructure wired around it.
type Stack struct {
	Engine   *tendril.Engine
	Metrics  *observability.Metrics
	Registry *prometheus.Registry
	Streams  *httpadapter.StreamManager
	Logger   *slog.Logger

	redis backend.UniversalClient
}

// Close releases the engine and any Redis connection.
func (s *Stack) Close() error {
	var errs []error
	if s.Engine != nil {
		errs = append(errs, s.Engine.Close())
	}
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	return errors.Join(errs...)
}

// BuildEngine creates an engine from cfg with the code review workflow, the
// process tools of cfg.ToolsFile and the definitions of cfg.Workflows
// installed. Runs are kept in memory. With cfg.Redis.Addr set, lifecycle
// events are also published on cfg.Redis.Channel.
func BuildEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Stack, error) {
	st := &Stack{
		Registry: prometheus.NewRegistry(),
		Streams:  httpadapter.NewStreamManager(logger),
		Logger:   logger,
	}
	st.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	metrics, err := observability.NewMetrics(st.Registry)
	if err != nil {
		return nil, err
	}
	st.Metrics = metrics

	hooks := []domain.LifecycleHooks{metrics.Hooks(), observability.LogHooks(logger), st.Streams.Hooks()}
	var store ports.RunStore = memory.NewStore()

	if cfg.Redis.Addr != "" {
		client := backend.NewClient(&backend.Options{Addr: cfg.Redis.Addr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect to redis %s: %w", cfg.Redis.Addr, err)
		}
		st.redis = client

		pub := redisadapter.NewPublisher(client, cfg.Redis.Channel, logger)
		hooks = append(hooks, pub.Hooks())
		logger.Info("redis event publisher enabled", "addr", cfg.Redis.Addr, "channel", pub.Channel())
	}

	if len(cfg.Redact) > 0 {
		pii, err := middleware.NewPIIMiddleware(cfg.Redact)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		store = pii(store)
	}

	eng, err := tendril.New(
		tendril.WithLogger(logger),
		tendril.WithLifecycleHooks(observability.Combine(hooks...)),
		tendril.WithRunStore(store),
		tendril.WithMaxSteps(cfg.MaxSteps),
		tendril.WithPoolSize(cfg.Workers),
	)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	st.Engine = eng

	if err := install(ctx, st, cfg); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func install(ctx context.Context, st *Stack, cfg *config.Config) error {
	if err := codereview.Install(st.Engine); err != nil {
		return err
	}

	if cfg.ToolsFile != "" {
		tools, err := process.LoadTools(cfg.ToolsFile)
		if err != nil {
			return err
		}
		runner := process.NewRunner(process.WithTools(tools), process.WithLogger(st.Logger))
		if err := runner.Install(st.Engine.Tools()); err != nil {
			return fmt.Errorf("install process tools: %w", err)
		}
		if len(tools) > 0 {
			st.Logger.Info("process tools loaded", "file", cfg.ToolsFile, "count", len(tools))
		}
	}

	for _, path := range cfg.Workflows {
		if _, err := LoadWorkflow(ctx, st.Engine, path); err != nil {
			return err
		}
	}
	return nil
}

// LoadWorkflow registers the definition at path and returns its graph id.
func LoadWorkflow(ctx context.Context, eng *tendril.Engine, path string) (string, error) {
	def, err := definition.LoadFile(path)
	if err != nil {
		return "", err
	}
	if _, err := eng.CreateGraph(ctx, def); err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return def.ID, nil
}
