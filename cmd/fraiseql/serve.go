package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fraiseql/fraiseql-engine/internal/dbadapter"
	"github.com/fraiseql/fraiseql-engine/internal/saga"
	"github.com/fraiseql/fraiseql-engine/internal/subsbus"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Boot the database pool, saga store and subscription connection tracking",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cfgPath)
		},
	}
	return cmd
}

// runServe wires the ambient engine components (connection pool, saga
// store with recovery scheduler, subscription connection manager with
// heartbeat) and blocks until an interrupt. It does not create a
// subsbus.Bus. It deliberately does not implement an HTTP/GraphQL
// request surface: resolver-level GraphQL execution is out of this
// engine's scope.
func runServe(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	adapter, err := dbadapter.New(ctx, dbadapter.Config{
		ConnString: cfg.ConnString(),
		MinSize:    cfg.Database.PoolMin,
		MaxSize:    cfg.Database.PoolMax,
	}, log)
	if err != nil {
		return err
	}
	defer adapter.Close()

	store := saga.NewStore(adapter.Pool())
	if err := store.MigrateSchema(ctx); err != nil {
		return err
	}

	compensator := saga.NewCompensator(store, nil)
	orchestrator := saga.NewOrchestrator(store, compensator, log)
	recovery := saga.NewRecoveryScheduler(store, orchestrator, log)

	limits := subsbus.ResourceLimits{
		MaxSubscriptionsPerUser:       cfg.ResourceLimits.MaxSubscriptionsPerUser,
		MaxSubscriptionsPerConnection: cfg.ResourceLimits.MaxSubscriptionsPerConnection,
	}
	connMgr := subsbus.NewConnectionManager(limits, 5, 10)

	heartbeatCfg := subsbus.HeartbeatConfig{
		PingInterval: time.Duration(cfg.Heartbeat.PingIntervalSeconds) * time.Second,
		PongTimeout:  time.Duration(cfg.Heartbeat.PongTimeoutSeconds) * time.Second,
	}
	heartbeat := subsbus.NewHeartbeat(heartbeatCfg, func(connID string) {
		connMgr.Unregister(connID)
		log.Info("connection heartbeat timed out, draining subscriptions", zap.String("conn_id", connID))
	})

	log.Info("fraiseql engine started",
		zap.String("database", cfg.Database.Name),
		zap.Int32("pool_max", cfg.Database.PoolMax))

	ticker := time.NewTicker(heartbeatCfg.PingInterval)
	defer ticker.Stop()
	recoveryTicker := time.NewTicker(time.Minute)
	defer recoveryTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return nil
		case now := <-ticker.C:
			heartbeat.Tick(now)
		case <-recoveryTicker.C:
			recovered, abandoned, err := recovery.RunOnce(ctx)
			if err != nil {
				log.Warn("recovery pass error", zap.Error(err))
				continue
			}
			if recovered > 0 || abandoned > 0 {
				log.Info("saga recovery pass", zap.Int("recovered", recovered), zap.Int("abandoned", abandoned))
			}
		}
	}
}
