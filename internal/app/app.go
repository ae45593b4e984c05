// Package app wires the feedback collaborators from configuration. The HTTP
// server and the terminal client share it so both see the same store.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/feediq/internal/adapters/cache"
	"github.com/zatekoja/feediq/internal/adapters/database"
	"github.com/zatekoja/feediq/internal/adapters/events"
	"github.com/zatekoja/feediq/internal/adapters/storage"
	"github.com/zatekoja/feediq/internal/application/services"
	"github.com/zatekoja/feediq/internal/domain/entities"
	"github.com/zatekoja/feediq/internal/domain/providers"
	"github.com/zatekoja/feediq/internal/domain/repositories"
	"github.com/zatekoja/feediq/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/feediq/internal/infrastructure/clients/redis"
	"github.com/zatekoja/feediq/internal/infrastructure/notifications"
	"github.com/zatekoja/feediq/internal/infrastructure/observability"
	"github.com/zatekoja/feediq/internal/intake"
	"github.com/zatekoja/feediq/pkg/config"
)

// App holds the wired collaborators. Close releases them.
type App struct {
	Config   *config.Config
	Store    repositories.FeedbackRepository
	Bus      providers.EventBus
	Cache    providers.CacheProvider
	Notifier providers.AlertNotifier
	Service  *services.FeedbackService
	Business *observability.BusinessMetrics

	redisClient *redis.Client
	pgClient    *postgres.Client

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New connects the configured backends. Redis is optional unless it is the
// storage backend: a failed connection falls back to in-process bus and cache.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, err := cfg.Dashboard.Location()
	if err != nil {
		return nil, err
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	a := &App{
		Config:   cfg,
		Business: observability.NewBusinessMetrics(),
		cancel:   cancel,
	}

	if err := a.connectRedis(ctx); err != nil {
		a.Close()
		return nil, err
	}

	if a.redisClient != nil {
		a.Bus = events.NewRedisEventBus(a.redisClient)
		a.Cache = cache.NewRedisAdapter(a.redisClient)
	} else {
		a.Bus = events.NewLocalEventBus()
		local, err := cache.NewMemoryAdapter(cache.DefaultMemoryEntries)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create memory cache: %w", err)
		}
		a.Cache = local
	}

	if err := a.openStore(ctx, watchCtx); err != nil {
		a.Close()
		return nil, err
	}

	a.Notifier = newNotifier(cfg.Slack)

	a.Service = services.NewFeedbackService(a.Store)
	a.Service.SetEventBus(a.Bus)
	a.Service.SetCache(a.Cache, cfg.Dashboard.CacheTTLSeconds)
	a.Service.SetAlertNotifier(a.Notifier)
	a.Service.SetMetrics(nil, a.Business)
	a.Service.SetLocation(loc)

	log.Info().
		Str("storage", cfg.Storage.Backend).
		Bool("redis", a.redisClient != nil).
		Str("timezone", loc.String()).
		Msg("feedback backend ready")
	return a, nil
}

// NewRegistry creates an intake registry whose sessions save through the
// service and report their outcome to the business counters.
func (a *App) NewRegistry(opts ...intake.Option) *intake.Registry {
	base := []intake.Option{
		intake.WithAutoCloseDelay(a.Config.Intake.AutoCloseDelay),
		intake.WithIdleTimeout(a.Config.Intake.IdleTimeout),
		intake.WithOnClose(a.Service.ObserveIntakeClosed),
	}
	return intake.NewRegistry(a.Service, append(base, opts...)...)
}

// Close stops watchers and releases connections. It is safe to call more than once.
func (a *App) Close() error {
	a.cancel()
	a.wg.Wait()

	var errs []error
	if a.Bus != nil {
		if err := a.Bus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("event bus: %w", err))
		}
		a.Bus = nil
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
		a.redisClient = nil
	}
	if a.pgClient != nil {
		if err := a.pgClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("postgres: %w", err))
		}
		a.pgClient = nil
	}
	return errors.Join(errs...)
}

func (a *App) connectRedis(ctx context.Context) error {
	if !a.Config.Redis.Enabled() {
		return nil
	}
	client, err := redis.NewClient(ctx, &a.Config.Redis)
	if err != nil {
		if a.Config.Storage.Backend == config.StorageRedis {
			return err
		}
		log.Warn().Err(err).Msg("redis unavailable; using in-process event bus and cache")
		return nil
	}
	a.redisClient = client
	return nil
}

func (a *App) openStore(ctx, watchCtx context.Context) error {
	cfg := a.Config
	switch cfg.Storage.Backend {
	case config.StorageMemory:
		a.Store = storage.NewMemoryStore()

	case config.StorageFile:
		store, err := storage.NewFileStore(cfg.Storage.FilePath)
		if err != nil {
			return err
		}
		a.Store = store
		// with a shared bus the writing process already published the record
		if a.redisClient == nil {
			a.watchFile(watchCtx, store)
		}

	case config.StorageRedis:
		a.Store = storage.NewRedisStore(a.redisClient, cfg.Storage.RedisKey)

	case config.StoragePostgres:
		client, err := postgres.NewClient(ctx, &cfg.Database)
		if err != nil {
			return err
		}
		a.pgClient = client
		adapter := database.NewFeedbackAdapter(client)
		if err := adapter.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to prepare feedback table: %w", err)
		}
		a.Store = adapter

	default:
		return fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	return nil
}

// watchFile republishes records other processes append to the file.
func (a *App) watchFile(ctx context.Context, store *storage.FileStore) {
	bus := a.Bus
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		err := store.Watch(ctx, func(record *entities.Feedback) {
			event := entities.NewFeedbackCreatedEvent(record)
			if err := bus.Publish(ctx, providers.EventChannelFeedbackCreated, event); err != nil {
				log.Warn().Err(err).Str("feedback_id", record.ID).Msg("failed to publish external feedback")
			}
		})
		if err != nil {
			log.Error().Err(err).Msg("feedback file watcher stopped")
		}
	}()
}

func newNotifier(cfg config.SlackConfig) providers.AlertNotifier {
	if cfg.WebhookURL == "" {
		return notifications.LogNotifier{}
	}
	notifier, err := notifications.NewSlackNotifier(cfg.WebhookURL, cfg.Channel)
	if err != nil {
		log.Warn().Err(err).Msg("slack notifier disabled")
		return notifications.LogNotifier{}
	}
	return notifier
}
