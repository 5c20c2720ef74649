package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/cleaner-scheduler/internal/application/assignment"
	"github.com/example/cleaner-scheduler/internal/infrastructure/config"
	"github.com/example/cleaner-scheduler/internal/infrastructure/logger"
	"github.com/example/cleaner-scheduler/internal/infrastructure/metrics"
	"github.com/example/cleaner-scheduler/internal/infrastructure/natsbus"
	"github.com/example/cleaner-scheduler/internal/infrastructure/postgres"
	"github.com/example/cleaner-scheduler/internal/infrastructure/rabbitmq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// app holds the wiring shared by the commands.
type app struct {
	cfg      config.Config
	log      *slog.Logger
	pool     *pgxpool.Pool
	repo     *postgres.Repo
	engine   *assignment.Engine
	registry *prometheus.Registry

	// checks back /healthz, one per external dependency.
	checks  map[string]func(context.Context) error
	closers []func()
}

func loadConfig(envFile string) (config.Config, *slog.Logger, error) {
	cfg, err := config.FromEnv(envFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	log := logger.New(logger.Config{Level: logger.ParseLevel(cfg.LogLevel), Format: cfg.LogFormat})
	return cfg, log, nil
}

// bootstrap opens the database and builds the engine with metrics and the
// configured event publisher.
func bootstrap(ctx context.Context, envFile string) (*app, error) {
	cfg, log, err := loadConfig(envFile)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, registry: prometheus.NewRegistry(), checks: map[string]func(context.Context) error{}}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a.pool, err = postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.pool.Close)
	a.checks["postgres"] = a.pool.Ping
	a.repo = postgres.NewRepo(a.pool)

	rec, err := metrics.NewPrometheus(a.registry, "cleanersched")
	if err != nil {
		a.Close()
		return nil, err
	}

	pub, err := a.publisher()
	if err != nil {
		a.Close()
		return nil, err
	}

	opts := []assignment.Option{assignment.WithRecorder(rec), assignment.WithLogger(log)}
	if pub != nil {
		opts = append(opts, assignment.WithPublisher(pub))
	}
	// ASSIGN_BUFFER_MINUTES=0 means no margin at all.
	buffer := cfg.Buffer
	if buffer == 0 {
		buffer = assignment.NoBuffer
	}
	a.engine = assignment.NewEngine(a.repo, assignment.Config{
		Buffer:    buffer,
		Lookahead: cfg.Lookahead,
		Timeout:   cfg.StoreTimeout,
	}, opts...)
	return a, nil
}

// publisher returns nil when events are disabled.
func (a *app) publisher() (assignment.EventPublisher, error) {
	ev := a.cfg.Events
	switch ev.Driver {
	case "rabbitmq":
		c, err := rabbitmq.Dial(ev.AMQPURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, c.Close)
		a.checks["rabbitmq"] = func(context.Context) error { return c.Ping() }
		if err := c.Declare(ev.AMQPExchange, ev.AMQPQueue); err != nil {
			return nil, err
		}
		a.log.Info("publishing assignment events", "driver", "rabbitmq", "exchange", ev.AMQPExchange)
		return rabbitmq.NewPublisher(c, ev.AMQPExchange), nil
	case "nats":
		nc, err := natsbus.Connect(ev.NATSURL, a.log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, nc.Close)
		a.checks["nats"] = func(context.Context) error {
			if !nc.IsConnected() {
				return fmt.Errorf("nats connection is %s", nc.Status())
			}
			return nil
		}
		p := natsbus.NewPublisher(nc, ev.NATSSubjectPrefix)
		a.log.Info("publishing assignment events", "driver", "nats", "subject", p.Subject())
		return p, nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown events driver %q", ev.Driver)
	}
}

func (a *app) retryPolicy() assignment.RetryPolicy {
	p := assignment.DefaultRetryPolicy()
	p.MaxAttempts = a.cfg.MaxAttempts
	return p
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
