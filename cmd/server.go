package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/yeremiapane/table-reservation/config"
	"github.com/yeremiapane/table-reservation/kds"
	"github.com/yeremiapane/table-reservation/notify"
	"github.com/yeremiapane/table-reservation/queue"
	"github.com/yeremiapane/table-reservation/router"
	"github.com/yeremiapane/table-reservation/services"
	"github.com/yeremiapane/table-reservation/utils"
)

func newServerCmd() *cobra.Command {
	var (
		migrateUp bool
		noSweep   bool
	)

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the HTTP API and the expiry scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := openDB(migrateUp)
			if err != nil {
				return err
			}
			if cfg.GinMode == "release" {
				gin.SetMode(gin.ReleaseMode)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			log := utils.InfoLogger
			rdb := config.NewRedisClient(cfg)
			if rdb != nil {
				defer rdb.Close()
			}

			// Notification gate: websocket console + log + AMQP (opsional)
			hub := kds.NewHub(log)
			sinks := notify.Multi{hub, notify.Logger{Log: log}}
			if cfg.RabbitMQURL != "" {
				pub := queue.NewPublisher(cfg.RabbitMQURL, cfg.NotifyQueue, log)
				defer pub.Close()
				sinks = append(sinks, pub)
			}
			gate := notify.NewAsync(sinks, log, 256)
			defer gate.Close()

			deps := newDeps(cfg, db, gate)
			registry := services.NewRegistry(deps)
			booking := services.NewBookingService(deps)

			if !noSweep {
				scheduler := newScheduler(cfg, booking)
				if rdb != nil {
					scheduler.Lease = services.NewRedisLease(rdb, "tablebook")
				}
				go func() { _ = scheduler.Run(ctx) }()
			}

			r := router.SetupRouter(router.App{
				Registry: registry,
				Booking:  booking,
				Hub:      hub,
				Config:   cfg,
				Redis:    rdb,
				Log:      log,
			})

			srv := &http.Server{
				Addr:              ":" + cfg.Port,
				Handler:           r,
				ReadHeaderTimeout: 5 * time.Second,
			}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			log.Infof("Listening on port %s", cfg.Port)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
	cmd.Flags().BoolVar(&noSweep, "no-sweep", false, "do not run the expiry scheduler in this process")
	return cmd
}
