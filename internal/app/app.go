// Package app builds every collaborator of the query service from
// configuration. Missing providers, an absent model key or an unreachable
// cache degrade the service; they never stop it from starting.
package app

import (
	"context"
	"errors"
	"strings"

	"cloudwise/internal/analyst"
	"cloudwise/internal/api"
	"cloudwise/internal/audit"
	awscommon "cloudwise/internal/common/aws"
	"cloudwise/internal/common/config"
	"cloudwise/internal/common/database"
	"cloudwise/internal/common/logger"
	"cloudwise/internal/common/observability"
	"cloudwise/internal/dispatcher"
	"cloudwise/internal/gateway"
	awsgw "cloudwise/internal/gateway/aws"
	azuregw "cloudwise/internal/gateway/azure"
	"cloudwise/internal/gateway/cache"
	"cloudwise/internal/interpreter"
	"cloudwise/internal/llm"
	"cloudwise/internal/optimizer"
	"cloudwise/internal/service"

	"github.com/redis/go-redis/v9"
)

// App owns the long-lived handles of one process.
type App struct {
	Config        *config.Config
	Logger        logger.Logger
	Service       *service.Service
	Optimizers    *optimizer.Registry
	Observability *observability.Observability

	ready   []api.ReadyCheck
	closers []func() error
}

// GatewayFactory builds one provider gateway. Tests replace the defaults.
type GatewayFactory func(ctx context.Context, cfg *config.Config, log logger.Logger) (gateway.Gateway, error)

type options struct {
	factories map[string]GatewayFactory
	redis     redis.Cmdable
}

type Option func(*options)

// WithGatewayFactory overrides how one platform's gateway is built.
func WithGatewayFactory(platform string, f GatewayFactory) Option {
	return func(o *options) { o.factories[platform] = f }
}

// WithRedis uses an existing redis handle for the gateway cache.
func WithRedis(rdb redis.Cmdable) Option {
	return func(o *options) { o.redis = rdb }
}

func defaultFactories() map[string]GatewayFactory {
	return map[string]GatewayFactory{
		gateway.PlatformAWS: func(ctx context.Context, cfg *config.Config, log logger.Logger) (gateway.Gateway, error) {
			if !cfg.Providers.AWS.Configured() {
				return nil, nil
			}
			return awsgw.New(ctx, cfg.Providers.AWS, log.With(map[string]interface{}{"platform": gateway.PlatformAWS}))
		},
		gateway.PlatformAzure: func(ctx context.Context, cfg *config.Config, log logger.Logger) (gateway.Gateway, error) {
			if !cfg.Providers.Azure.Configured() {
				return nil, nil
			}
			return azuregw.New(cfg.Providers.Azure, log.With(map[string]interface{}{"platform": gateway.PlatformAzure}))
		},
	}
}

// New wires the service. Only a context cancellation is fatal.
func New(ctx context.Context, cfg *config.Config, log logger.Logger, opts ...Option) (*App, error) {
	o := &options{factories: defaultFactories()}
	for _, opt := range opts {
		opt(o)
	}

	a := &App{Config: cfg, Logger: log}
	a.Observability = observability.New(cfg.Observability.ServiceName, cfg.Observability.JaegerEndpoint, log)
	a.closers = append(a.closers, func() error { a.Observability.Shutdown(); return nil })

	gateways, err := a.buildGateways(ctx, o)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.wrapWithCache(gateways, o)

	var completer llm.Completer
	if client, err := llm.New(cfg.LLM, log); err != nil {
		log.Warn("Language model unavailable", map[string]interface{}{"error": err.Error()})
	} else {
		completer = client
		log.Info("Language model configured", map[string]interface{}{
			"provider": client.Provider(),
			"mode":     cfg.LLM.Mode,
		})
	}

	a.Optimizers = optimizer.NewRegistry(completer, cfg.Optimizer.Strategy, log)

	d := dispatcher.New(log,
		dispatcher.WithObservers(a.buildObservers(ctx)...),
		dispatcher.WithCostAdvisor(a.Optimizers.Default()),
		dispatcher.WithRecorder(a.Observability),
	)

	deps := service.Deps{
		Gateways:   gateways,
		Dispatcher: d,
		Optimizers: a.Optimizers,
		Logger:     log,
	}
	if completer != nil {
		deps.Interpreter = interpreter.New(completer, cfg.LLM.Mode, log)
		deps.Analyst = analyst.New(completer, log)
	}
	a.Service = service.New(deps)

	log.Info("Service initialized", map[string]interface{}{
		"availableServices": a.Service.AvailableServices(),
		"optimizer":         a.Optimizers.Default().Name(),
	})
	return a, nil
}

func (a *App) buildGateways(ctx context.Context, o *options) (map[string]gateway.Gateway, error) {
	gateways := map[string]gateway.Gateway{}
	for _, platform := range []string{gateway.PlatformAWS, gateway.PlatformAzure} {
		factory, ok := o.factories[platform]
		if !ok {
			continue
		}
		gw, err := factory(ctx, a.Config, a.Logger)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			a.Logger.Warn("Provider unavailable", map[string]interface{}{
				"platform": platform,
				"error":    err.Error(),
			})
			continue
		}
		if gw == nil {
			a.Logger.Info("Provider not configured", map[string]interface{}{"platform": platform})
			continue
		}
		gateways[platform] = gw
	}
	return gateways, nil
}

func (a *App) wrapWithCache(gateways map[string]gateway.Gateway, o *options) {
	if !a.Config.Cache.Enabled {
		return
	}
	rdb := o.redis
	if rdb == nil {
		client := database.NewRedis(a.Config.Database.Redis)
		rdb = client.Client
		a.closers = append(a.closers, client.Close)
	}
	a.ready = append(a.ready, func(ctx context.Context) error { return rdb.Ping(ctx).Err() })

	ttl := config.GetDuration(a.Config.Cache.TTL)
	for platform, gw := range gateways {
		gateways[platform] = cache.New(gw, rdb, ttl, a.Config.Cache.Prefix, a.Logger)
	}
}

// buildObservers returns the audit store and the SNS and SES notifiers that
// are enabled and reachable.
func (a *App) buildObservers(ctx context.Context) []dispatcher.ActionObserver {
	var observers []dispatcher.ActionObserver

	if a.Config.Audit.Enabled {
		pg, err := database.NewPostgres(a.Config.Database.Postgres)
		if err != nil {
			a.Logger.Warn("Action audit disabled", map[string]interface{}{"error": err.Error()})
		} else {
			store := audit.NewPostgresStore(pg.DB, a.Logger)
			if err := store.EnsureSchema(ctx); err != nil {
				a.Logger.Warn("Action audit disabled", map[string]interface{}{"error": err.Error()})
				_ = pg.Close()
			} else {
				observers = append(observers, store)
				a.closers = append(a.closers, pg.Close)
				a.ready = append(a.ready, pg.Ping)
			}
		}
	}

	sns := a.Config.Notifications.SNS
	if sns.Enabled && strings.TrimSpace(sns.TopicARN) != "" {
		region := sns.Region
		if region == "" {
			region = a.Config.Providers.AWS.Region
		}
		notifier, err := awscommon.NewSNSNotifier(ctx, a.Config.Providers.AWS, region, sns.TopicARN)
		if err != nil {
			a.Logger.Warn("Action notifications disabled", map[string]interface{}{"error": err.Error()})
		} else {
			observers = append(observers, notifier)
		}
	}

	if email := a.Config.Notifications.Email; email.Enabled {
		region := email.Region
		if region == "" {
			region = a.Config.Providers.AWS.Region
		}
		notifier, err := awscommon.NewSESNotifier(ctx, a.Config.Providers.AWS, region, email.From, email.Recipients)
		if err != nil {
			a.Logger.Warn("Action emails disabled", map[string]interface{}{"error": err.Error()})
		} else {
			observers = append(observers, notifier)
		}
	}

	return observers
}

// ReadyChecks are the dependency probes behind /ready.
func (a *App) ReadyChecks() []api.ReadyCheck {
	return a.ready
}

// Close releases handles in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("Close failed", map[string]interface{}{"error": err.Error()})
		}
	}
	a.closers = nil
}
