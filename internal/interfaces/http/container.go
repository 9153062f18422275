package http

import (
	"context"
	"errors"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/repolens/gatekeeper/internal/application/handoff"
	"github.com/repolens/gatekeeper/internal/infrastructure/config"
	"github.com/repolens/gatekeeper/internal/infrastructure/pubsub"
	"github.com/repolens/gatekeeper/internal/interfaces/http/middleware"
	"github.com/repolens/gatekeeper/internal/shared/goroutine"
	"github.com/repolens/gatekeeper/internal/shared/id"
	"github.com/repolens/gatekeeper/internal/shared/logger"
)

// Container holds repositories, services, use cases and handlers, and wires
// them into a gin engine. Shutdown stops the background work it started.
type Container struct {
	engine *gin.Engine
	db     *gorm.DB
	cfg    *config.Config
	log    logger.Interface
	redis  *redis.Client

	repos *repositories
	svcs  *allServices
	ucs   *allUseCases
	hdlrs *allHandlers

	authMiddleware *middleware.AuthMiddleware
	rateLimiter    *middleware.RateLimiter

	handoffBus *pubsub.RedisHandoffBus
	cancel     context.CancelFunc
	done       []<-chan struct{}
}

// NewContainer wires the gateway. redisClient may be nil; caching, rate
// limiting and cross-instance handoff are then disabled.
func NewContainer(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, log logger.Interface) *Container {
	c := &Container{
		engine: gin.New(),
		db:     db,
		cfg:    cfg,
		log:    log,
		redis:  redisClient,
	}

	if redisClient != nil {
		c.handoffBus = pubsub.NewRedisHandoffBus(redisClient, instanceID(), log.Named("handoff_bus"))
	}

	c.repos = c.initRepositories()
	c.svcs = c.initServices()
	c.ucs = c.initUseCases()
	c.hdlrs = c.initHandlers()

	c.authMiddleware = middleware.NewAuthMiddleware(c.ucs.authenticate, log.Named("auth"))
	c.rateLimiter = middleware.NewRateLimiter(c.svcs.rateLimiter, cfg.RateLimit.RequestsPerMinute, log.Named("ratelimit"))

	return c
}

// Start launches background work: the handoff expiry sweep and, with Redis,
// the cross-instance handoff subscription.
func (c *Container) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)

	c.done = append(c.done, goroutine.SafeGoContext(ctx, c.log, "handoff-sweep", func(ctx context.Context) {
		c.svcs.broker.Run(ctx, handoffSweepInterval)
	}))

	if c.handoffBus != nil {
		c.done = append(c.done, goroutine.SafeGoContext(ctx, c.log, "handoff-bus", func(ctx context.Context) {
			if err := c.handoffBus.Subscribe(ctx, c.svcs.broker.HandleRemote); err != nil && ctx.Err() == nil {
				c.log.Errorw("handoff bus subscription ended", "error", err)
			}
		}))
	}
}

func (c *Container) Engine() *gin.Engine {
	return c.engine
}

func (c *Container) Broker() *handoff.Broker {
	return c.svcs.broker
}

// Shutdown stops background work and closes Redis. The database is owned by
// the caller.
func (c *Container) Shutdown() error {
	if c.cancel != nil {
		c.cancel()
	}
	for _, done := range c.done {
		<-done
	}
	var errs []error
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// instanceID tags handoff bus messages so an instance ignores its own.
func instanceID() string {
	host, _ := os.Hostname()
	suffix, err := id.Generate(8)
	if err != nil {
		return host
	}
	return host + "-" + suffix
}
