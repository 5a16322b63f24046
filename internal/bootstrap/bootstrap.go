package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	domainauth "boss-server-go/internal/domain/auth"
	authstore "boss-server-go/internal/domain/auth/store"
	domainfriend "boss-server-go/internal/domain/friend"
	domainnotify "boss-server-go/internal/domain/notify"
	platformconfig "boss-server-go/internal/platform/config"
	platformerrors "boss-server-go/internal/platform/errors"
	platformlogging "boss-server-go/internal/platform/logging"
	platformstorage "boss-server-go/internal/platform/storage"
	httptransport "boss-server-go/internal/transport/http"
	wstransport "boss-server-go/internal/transport/ws"

	evbus "github.com/asaskevich/EventBus"
	"gorm.io/gorm"
)

const logTag = "Bootstrap"

const shutdownGrace = 15 * time.Second

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

// appState accumulates the dependencies the init steps produce.
type appState struct {
	config     *platformconfig.Config
	configPath string
	logger     *platformlogging.Logger
	db         *gorm.DB
	migrations *platformstorage.MigrationManager
	repo       domainauth.Repository
	states     authstore.Store
	authority  *domainauth.Authority
	registry   *domainnotify.Registry
	bus        evbus.Bus
	notifier   *domainnotify.Service
	friends    *domainfriend.Service
}

// Run drives the whole server lifecycle: configuration, dependency wiring,
// transport startup and graceful shutdown on SIGINT/SIGTERM.
func Run(ctx context.Context) error {
	state := &appState{}

	steps := InitGraph()
	if err := executeInitSteps(ctx, steps, state); err != nil {
		return err
	}

	logger := state.logger
	logBootstrapGraph(steps, logger)

	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if state.registry != nil {
			state.registry.CloseAll()
		}
		if state.states != nil {
			if err := state.states.Close(closeCtx); err != nil {
				logger.WarnTag(logTag, "session state store close failed: %v", err)
			}
		}
	}()

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)

	if err := startHTTPServer(state, group, groupCtx); err != nil {
		cancel()
		return err
	}

	if err := waitForShutdown(signalCtx, cancel, logger, group); err != nil {
		return err
	}

	logger.InfoTag(logTag, "server stopped")
	logger.Close()
	return nil
}

func logBootstrapGraph(steps []initStep, logger *platformlogging.Logger) {
	if logger == nil {
		return
	}
	logger.InfoTag(logTag, "initialisation order")
	for _, step := range steps {
		logger.InfoTag(logTag, "  %s: %s", step.ID, step.Title)
	}
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(platformerrors.KindBootstrap, "execute init steps", "nil bootstrap state")
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					"dependency "+dep+" not satisfied",
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(platformerrors.KindBootstrap, step.ID, "missing execute function")
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}

			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

// InitGraph lists the init steps in dependency order.
func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init-provider",
			Title:     "Initialise logging provider",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initLoggingStep,
		},
		{
			ID:        "storage:open-database",
			Title:     "Open database and run migrations",
			DependsOn: []string{"config:load", "logging:init-provider"},
			Kind:      platformerrors.KindStorage,
			Execute:   openDatabaseStep,
		},
		{
			ID:        "auth:init-state-store",
			Title:     "Initialise session state store",
			DependsOn: []string{"config:load", "logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initStateStoreStep,
		},
		{
			ID:        "auth:init-authority",
			Title:     "Initialise session authority",
			DependsOn: []string{"storage:open-database", "auth:init-state-store"},
			Kind:      platformerrors.KindAuth,
			Execute:   initAuthorityStep,
		},
		{
			ID:        "notify:init-registry",
			Title:     "Initialise connection registry",
			DependsOn: []string{"auth:init-authority"},
			Kind:      platformerrors.KindNotify,
			Execute:   initRegistryStep,
		},
		{
			ID:        "services:init",
			Title:     "Initialise domain services",
			DependsOn: []string{"notify:init-registry"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initServicesStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	loader := platformconfig.NewLoader()
	if path := os.Getenv("BOSS_CONFIG"); path != "" {
		loader = loader.WithPath(path)
	}

	result, err := loader.Load()
	if err != nil {
		return err
	}

	state.config = result.Config
	state.configPath = result.Path
	if state.configPath == "" {
		state.configPath = "defaults+env"
	}
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	if state.config == nil {
		return platformerrors.New(platformerrors.KindBootstrap, "logging:init-provider", "config not loaded")
	}

	logger, err := platformlogging.New(platformlogging.Config{
		Level: state.config.Log.Level,
		Dir:   state.config.Log.Dir,
		File:  state.config.Log.File,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init-provider", "failed to initialise logging", err)
	}

	state.logger = logger
	logger.InfoTag(logTag, "logging ready [%s] %s", state.config.Log.Level, state.configPath)
	return nil
}

func openDatabaseStep(_ context.Context, state *appState) error {
	db, err := platformstorage.Open(state.config.Storage.DSN, state.config.Auth.AdminPassword)
	if err != nil {
		return err
	}

	state.db = db
	state.migrations = platformstorage.NewMigrationManager(db)
	state.repo = platformstorage.NewAuthRepository(db)
	state.logger.InfoTag(logTag, "database ready at %s", state.config.Storage.DSN)
	return nil
}

func initStateStoreStep(_ context.Context, state *appState) error {
	states, err := newStateStore(state.config)
	if err != nil {
		return err
	}

	state.states = states
	state.logger.InfoTag(logTag, "session state store ready [%s]", state.config.Auth.Store.Driver)
	return nil
}

// newStateStore translates the auth store configuration into a live store.
// The TTL is the session lifetime; staleness within that span is judged by
// the authority against its inactivity policy.
func newStateStore(cfg *platformconfig.Config) (authstore.Store, error) {
	storeCfg := authstore.Config{
		Driver: cfg.Auth.Store.Driver,
		TTL:    cfg.Auth.SessionTTL,
	}

	switch storeCfg.Driver {
	case authstore.DriverMemory:
		storeCfg.Memory = &authstore.MemoryConfig{
			GCInterval: cfg.Auth.Store.Memory.GCInterval,
		}
	case authstore.DriverRedis:
		storeCfg.Redis = &authstore.RedisConfig{
			Addr:     cfg.Auth.Store.Redis.Addr,
			Username: cfg.Auth.Store.Redis.Username,
			Password: cfg.Auth.Store.Redis.Password,
			DB:       cfg.Auth.Store.Redis.DB,
			Prefix:   cfg.Auth.Store.Redis.Prefix,
		}
	}

	return authstore.New(storeCfg)
}

func initAuthorityStep(_ context.Context, state *appState) error {
	codec := domainauth.NewTokenCodec(state.config.Auth.HMACSecret, state.config.Auth.SessionTTL)

	authority, err := domainauth.NewAuthority(domainauth.Options{
		Repo:   state.repo,
		States: state.states,
		Codec:  codec,
		Logger: state.logger,
		Policy: domainauth.Policy{
			SessionTTL:    state.config.Auth.SessionTTL,
			RefreshWindow: state.config.Auth.RefreshWindow,
			MaxInactivity: state.config.Auth.MaxInactivity,
			TOTP: domainauth.TOTPConfig{
				Issuer: "boss-server",
				Digits: state.config.Auth.OTP.Digits,
				Period: state.config.Auth.OTP.Period,
			},
		},
	})
	if err != nil {
		return err
	}

	state.authority = authority
	return nil
}

func initRegistryStep(_ context.Context, state *appState) error {
	state.registry = domainnotify.NewRegistry(domainnotify.Config{
		InactivityBudget: state.config.Notify.InactivityBudget,
		WarningLead:      state.config.Notify.WarningLead,
	}, state.authority, state.logger)
	return nil
}

func initServicesStep(_ context.Context, state *appState) error {
	state.bus = evbus.New()
	if err := domainnotify.SubscribePush(state.bus, state.registry, state.logger); err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "init_services", "subscribe push forwarder", err)
	}
	state.notifier = domainnotify.NewService(
		platformstorage.NewNotificationRepository(state.db),
		state.registry,
		state.bus,
		state.logger,
	)
	state.friends = domainfriend.NewService(
		platformstorage.NewFriendRepository(state.db),
		state.repo,
		state.notifier,
		state.logger,
	)
	return nil
}

func startHTTPServer(state *appState, g *errgroup.Group, groupCtx context.Context) error {
	cfg := state.config
	logger := state.logger

	router, err := httptransport.Build(httptransport.Options{
		Config:         cfg,
		Logger:         logger,
		AuthMiddleware: httptransport.AuthMiddleware(state.authority, state.registry),
	})
	if err != nil {
		return err
	}

	accountService, err := httptransport.NewAccountService(state.authority, logger)
	if err != nil {
		return err
	}
	notificationService, err := httptransport.NewNotificationService(state.notifier, logger)
	if err != nil {
		return err
	}
	friendService, err := httptransport.NewFriendService(state.friends, logger)
	if err != nil {
		return err
	}
	systemService, err := httptransport.NewSystemService(state.authority, state.states, state.registry, state.migrations, logger)
	if err != nil {
		return err
	}
	wsHandler, err := wstransport.NewHandler(state.authority, state.registry, logger)
	if err != nil {
		return err
	}

	accountService.Register(router.API, router.Secured)
	notificationService.Register(router.Secured)
	friendService.Register(router.Secured)
	systemService.Register(router.Secured)
	wsHandler.Register(router.Engine, cfg.Web.WebsocketPath)

	server := &http.Server{
		Addr:    cfg.Address(),
		Handler: router.Engine,
	}

	g.Go(func() error {
		logger.InfoTag("HTTP", "listening on http://%s", cfg.Address())

		go func() {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.ErrorTag("HTTP", "shutdown failed: %v", err)
			} else {
				logger.InfoTag("HTTP", "server shut down")
			}
		}()

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag("HTTP", "serve failed: %v", err)
			return err
		}
		return nil
	})

	return nil
}

func waitForShutdown(ctx context.Context, cancel context.CancelFunc, logger *platformlogging.Logger, g *errgroup.Group) error {
	<-ctx.Done()
	logger.InfoTag(logTag, "shutdown signal received, cleaning up")

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag(logTag, "error during shutdown: %v", err)
			return err
		}
		logger.InfoTag(logTag, "all services stopped")
	case <-time.After(shutdownGrace):
		logger.ErrorTag(logTag, "shutdown timed out, forcing exit")
		return errors.New("shutdown timed out")
	}
	return nil
}
