package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yeremiapane/table-reservation/notify"
	"github.com/yeremiapane/table-reservation/queue"
	"github.com/yeremiapane/table-reservation/utils"
)

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run a single expiry (and auto no-show) pass, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := openDB(false)
			if err != nil {
				return err
			}

			sinks := notify.Multi{notify.Logger{Log: utils.InfoLogger}}
			if cfg.RabbitMQURL != "" {
				pub := queue.NewPublisher(cfg.RabbitMQURL, cfg.NotifyQueue, utils.InfoLogger)
				defer pub.Close()
				sinks = append(sinks, pub)
			}

			booking := newBookingFrom(cfg, db, sinks)
			res, err := newScheduler(cfg, booking).Sweep(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "expired=%d no_shows=%d skipped=%d failures=%d\n",
				res.Expired, res.NoShows, res.Skipped, res.Failures)
			return nil
		},
	}
}
