// Package reconcile runs the worker: scheduled billing replay so missed
// webhooks heal without operator action, plus usage event retention.
package reconcile

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	billingservices "github.com/repolens/gatekeeper/internal/application/billing/services"
	billingusecases "github.com/repolens/gatekeeper/internal/application/billing/usecases"
	subservices "github.com/repolens/gatekeeper/internal/application/subscription/services"
	"github.com/repolens/gatekeeper/internal/infrastructure/cache"
	"github.com/repolens/gatekeeper/internal/infrastructure/database"
	"github.com/repolens/gatekeeper/internal/infrastructure/payment/stripe"
	"github.com/repolens/gatekeeper/internal/infrastructure/repository"
	"github.com/repolens/gatekeeper/internal/infrastructure/scheduler"
	"github.com/repolens/gatekeeper/internal/interfaces/cli/bootstrap"
	"github.com/repolens/gatekeeper/internal/shared/db"
	"github.com/repolens/gatekeeper/internal/shared/logger"
)

var (
	env  string
	once bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Replay recent billing events",
		Long:  `Fetch recent billing events from Stripe and apply them. Already applied events change nothing.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().BoolVar(&once, "once", false, "Run a single pass and exit")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := bootstrap.Load(bootstrap.Environment(env))
	if err != nil {
		return err
	}

	log := logger.NewComponentLogger("reconcile")

	client := stripe.NewClient(cfg.Stripe, log.Named("stripe"))
	if !client.Enabled() {
		return fmt.Errorf("stripe.secret_key is required for reconciliation")
	}

	if err := bootstrap.OpenDatabase(cfg); err != nil {
		return err
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := bootstrap.OpenRedis(ctx, cfg)
	if err != nil {
		return err
	}
	// The worker invalidates cached snapshots the server reads.
	var snapshotCache cache.SubscriptionCache
	if redisClient != nil {
		defer redisClient.Close()
		snapshotCache = cache.NewRedisSubscriptionCache(redisClient, cfg.Redis.CacheTTL, log.Named("subscription_cache"))
	}

	gdb := database.Get()
	users := repository.NewUserRepository(gdb, log)
	plans := subservices.NewPlanRegistry(repository.NewPlanRepository(gdb, log), log)
	record := subservices.NewSubscriptionRecord(
		repository.NewSubscriptionRepository(gdb, log), users, plans, snapshotCache, db.NewTransactionManager(gdb), log)
	sync := billingservices.NewSynchronizer(
		stripe.NewWebhookVerifier(cfg.Stripe.WebhookSecret),
		record,
		billingservices.NewPlanResolver(cfg.Stripe.PricePlans, plans),
		cfg.Timeouts.Webhook,
		log.Named("billing_sync"),
	)
	uc := billingusecases.NewReconcileUseCase(client, sync, cfg.Reconcile.Lookback, log)
	reconcileJob := scheduler.BatchJobFunc(func(ctx context.Context) (int, error) {
		result, err := uc.Execute(ctx)
		if err == nil && result.Failed > 0 {
			log.Warnw("reconcile pass left failed events", "seen", result.Seen, "failed", result.Failed)
		}
		return result.Seen, err
	})

	if once {
		n, err := reconcileJob.Execute(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Reconciled %d event(s)\n", n)
		return nil
	}

	manager, err := scheduler.NewSchedulerManager(log.Named("scheduler"))
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	if err := manager.RegisterReconcileJob(reconcileJob, cfg.Reconcile.Interval, cfg.Reconcile.Interval); err != nil {
		return err
	}
	if days := cfg.Usage.EventRetentionDays; days > 0 {
		if err := manager.RegisterUsageRetentionJob(repository.NewUsageEventRepository(gdb, log), days); err != nil {
			return err
		}
	}

	manager.Start()
	<-ctx.Done()
	log.Infow("reconcile worker stopping")
	return manager.Stop()
}
