package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/reimbursement-service/internal/api/http"
	"github.com/spec-kit/reimbursement-service/internal/api/http/handlers"
	"github.com/spec-kit/reimbursement-service/internal/auth"
	"github.com/spec-kit/reimbursement-service/internal/events"
	"github.com/spec-kit/reimbursement-service/internal/observability"
	"github.com/spec-kit/reimbursement-service/internal/persistence"
	"github.com/spec-kit/reimbursement-service/internal/service"
	"github.com/spec-kit/reimbursement-service/internal/worker"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (defaults to APP_HOST:APP_PORT)")
	return cmd
}

func runServe(parent context.Context, opts *ServeOptions) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	defer logger.Sync() //nolint:errcheck

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	rt, err := openRuntime(ctx, cfg, logger, cfg.Postgres.RunMigrations)
	if err != nil {
		return err
	}
	defer rt.Close()

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	var publisher service.Publisher
	if redis != nil {
		publisher = redis
	}
	notifier := service.NewNotificationService(dispatcher, publisher, logger, cfg.Notification)
	worker.StartNotificationWorker(notifier, logger)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketStore:  rt.tickets,
		Dispatcher:   dispatcher,
		Logger:       logger,
		Metrics:      metrics,
		StoreTimeout: cfg.Store.Timeout(),
	})
	authService := service.NewAuthService(*cfg, service.AuthDependencies{UserRepo: rt.users})
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager())

	deps := map[string]handlers.Pinger{"store": ticketService}
	if redis != nil {
		deps["redis"] = redis
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps),
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Metrics:        handlers.NewMetricsHandler(metrics),
		AuthMiddleware: authMiddleware,
	})

	addr := opts.Addr
	if addr == "" {
		addr = cfg.App.Addr()
	}

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", addr))
		listenErr <- app.Listen(addr)
	}()

	select {
	case err := <-listenErr:
		if err != nil {
			logger.Error("fiber listen", zap.Error(err))
		}
		return err
	case <-waitForShutdown(ctx, logger):
	}

	return app.Shutdown()
}

func waitForShutdown(ctx context.Context, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			logger.Info("shutting down", zap.String("signal", sig.String()))
		case <-ctx.Done():
			logger.Info("shutting down", zap.Error(ctx.Err()))
		}
	}()
	return done
}
