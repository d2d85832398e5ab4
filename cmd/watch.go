package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grovetools/slotsync/cli"
	"github.com/grovetools/slotsync/config"
	"github.com/grovetools/slotsync/logging"
	"github.com/grovetools/slotsync/pkg/configwatch"
	"github.com/grovetools/slotsync/pkg/metrics"
	"github.com/grovetools/slotsync/pkg/profiling"
	"github.com/grovetools/slotsync/pkg/realtime"
	"github.com/grovetools/slotsync/pkg/slotstore"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewWatchCmd loads all slots, then follows live updates until interrupted.
func NewWatchCmd() *cobra.Command {
	var metricsAddr string
	var noReload bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow live capacity updates",
		Long: `Load all time slots, open the push channel and print every change.
The view is regrouped whenever the collection is reloaded. Editing the
config file restarts the session with the new settings.

Examples:
  slotsync watch
  slotsync watch --metrics-addr :9090
  slotsync watch --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := cli.GetLogger(cmd)
			cfg, path, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runWatch(ctx, watchOptions{
				config:      cfg,
				configPath:  path,
				reload:      !noReload,
				metricsAddr: metricsAddr,
				json:        cli.GetOptions(cmd).JSONOutput,
				out:         cmd.OutOrStdout(),
				errOut:      cmd.ErrOrStderr(),
				logger:      logger,
			})
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().BoolVar(&noReload, "no-reload", false, "Do not restart when the config file changes")
	return cmd
}

type watchOptions struct {
	config      *config.Config
	configPath  string
	reload      bool
	metricsAddr string
	json        bool
	out         io.Writer
	errOut      io.Writer
	logger      *logrus.Entry
}

// session is one router with its subscriptions, rebuilt on config reload.
type session struct {
	router      *realtime.Router
	status      <-chan realtime.Status
	unsubscribe func()
	changes     chan slotstore.Change
	loc         *time.Location
}

// startSession fetches the slots and opens the push channel. Nothing is
// left running when it fails.
func startSession(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*session, error) {
	svc, loc, err := newService(cfg)
	if err != nil {
		return nil, err
	}
	opts, err := streamOptions(cfg)
	if err != nil {
		return nil, err
	}

	store := slotstore.New()
	router := realtime.New(store, svc,
		realtime.StreamFactory(cfg.Endpoint.ResolvedStreamURL(), opts...),
		realtime.WithMetrics(m))

	status, unsubscribe := router.Subscribe()
	s := &session{
		router:      router,
		status:      status,
		unsubscribe: unsubscribe,
		changes:     store.Subscribe(),
		loc:         loc,
	}

	span := profiling.Start("refresh")
	err = router.Refresh(ctx)
	span.Stop()
	if err != nil {
		s.close()
		return nil, err
	}
	router.StartRealtime()
	return s, nil
}

func (s *session) close() {
	s.unsubscribe()
	s.router.Store().Unsubscribe(s.changes)
	s.router.Close()
}

func runWatch(ctx context.Context, opts watchOptions) error {
	m := metrics.New()
	if opts.metricsAddr != "" {
		srv := &http.Server{Addr: opts.metricsAddr, Handler: metricsMux(m)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				opts.logger.WithError(err).Error("Metrics server failed")
			}
		}()
		defer srv.Close()
		opts.logger.WithField("addr", opts.metricsAddr).Info("Serving metrics")
	}

	c := &console{
		out:    opts.out,
		pretty: logging.NewPrettyLogger().WithWriter(opts.errOut),
		json:   opts.json,
	}

	s, err := startSession(ctx, opts.config, m)
	if err != nil {
		return err
	}
	c.loc = s.loc
	defer func() { s.close() }()

	var reloads chan string
	if opts.reload && opts.configPath != "" {
		reloads = make(chan string, 1)
		w, err := configwatch.New(opts.configPath, func(p string) {
			select {
			case reloads <- p:
			default:
			}
		})
		if err != nil {
			opts.logger.WithError(err).Warn("Config reload disabled")
		} else {
			defer w.Close()
			go w.Start(ctx)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case p := <-reloads:
			cfg, err := config.Load(p)
			if err != nil {
				c.pretty.ErrorPretty("Config reload failed, keeping current settings", err)
				continue
			}
			// The current session keeps running until its replacement is up
			next, err := startSession(ctx, cfg, m)
			if err != nil {
				c.pretty.ErrorPretty("Config reload failed, keeping current settings", err)
				continue
			}
			s.close()
			s = next
			c.loc = s.loc
			c.pretty.InfoPretty("Configuration reloaded")

		case st, ok := <-s.status:
			if !ok {
				return nil
			}
			c.status(st)

		case ch, ok := <-s.changes:
			if !ok {
				return nil
			}
			c.change(ch, s.router.Store())
		}
	}
}

func metricsMux(m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return mux
}

// console prints router status and store changes.
type console struct {
	out    io.Writer
	pretty *logging.PrettyLogger
	json   bool
	loc    *time.Location

	connection realtime.ConnectionStatus
	shown      *realtime.Notification
}

func (c *console) status(st realtime.Status) {
	if c.json {
		writeJSON(c.out, map[string]interface{}{"type": "status", "status": st})
		return
	}

	n := st.Notification
	switch {
	case n == nil:
		c.shown = nil
	case c.shown == nil || *c.shown != *n || st.UI.ConnectionStatus != c.connection:
		c.pretty.Kind(string(n.Kind), n.Message)
		c.shown = n
	}
	c.connection = st.UI.ConnectionStatus
}

func (c *console) change(ch slotstore.Change, store *slotstore.Store) {
	switch ch.Type {
	case slotstore.ChangeLoad:
		if c.json {
			writeJSON(c.out, map[string]interface{}{"type": "load", "groups": store.GroupedByDate()})
			return
		}
		renderGrouped(c.out, store.GroupedByDate(), c.loc)
		fmt.Fprintln(c.out)

	case slotstore.ChangeUpdate:
		slot, ok := store.Get(ch.SlotID)
		if !ok {
			return
		}
		if c.json {
			writeJSON(c.out, map[string]interface{}{"type": "update", "slot": slot})
			return
		}
		fmt.Fprintln(c.out, renderUpdate(slot, c.loc))
	}
}
