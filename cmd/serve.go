package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grovetools/slotsync/cli"
	"github.com/grovetools/slotsync/internal/feed"
	"github.com/grovetools/slotsync/logging"
	"github.com/grovetools/slotsync/pkg/models"
	"github.com/spf13/cobra"
)

// NewServeCmd runs the local feed server.
func NewServeCmd() *cobra.Command {
	var (
		addr     string
		fixture  string
		interval time.Duration
		seed     uint64
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a local time slot feed",
		Long: `Serve time slots and push random capacity changes over SSE (/sse) and
WebSocket (/ws). Updates can also be injected with POST /updates.

Examples:
  slotsync serve
  slotsync serve --addr :8080 --interval 500ms
  slotsync serve --fixture ./slots.yml --interval 0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cli.GetLogger(cmd)
			logger := logging.NewLogger("feed")

			cfg, _, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			loc, err := cfg.Display.Location()
			if err != nil {
				return err
			}

			var slots []models.TimeSlot
			if fixture != "" {
				if slots, err = feed.LoadFixture(fixture, loc); err != nil {
					return err
				}
			} else {
				slots = feed.DefaultSlots(time.Now(), loc)
			}

			hub := feed.NewHub(slots, logger)
			srv := feed.NewServer(hub, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if interval > 0 {
				var opts []feed.GeneratorOption
				if cmd.Flags().Changed("seed") {
					opts = append(opts, feed.WithSeed(seed))
				}
				go feed.NewGenerator(hub, interval, logger, opts...).Run(ctx)
			}

			go func() {
				<-ctx.Done()
				logger.Info("Received stop signal")

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Errorf("Server shutdown error: %v", err)
				}
			}()

			logger.WithField("slots", len(slots)).Info("Starting feed")
			if err := srv.ListenAndServe(addr); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	cmd.Flags().StringVar(&fixture, "fixture", "", "YAML file with the slots to serve")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "Time between generated updates, 0 disables them")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Seed for reproducible updates")
	return cmd
}
