package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/focusflow/focusflow/internal/api"
	"github.com/focusflow/focusflow/internal/config"
	"github.com/focusflow/focusflow/internal/desktop"
	"github.com/focusflow/focusflow/internal/focus"
	"github.com/focusflow/focusflow/internal/journal"
	"github.com/focusflow/focusflow/internal/logging"
	"github.com/focusflow/focusflow/internal/metrics"
	"github.com/focusflow/focusflow/internal/notify"
	"github.com/focusflow/focusflow/internal/session"
	"github.com/focusflow/focusflow/internal/state"
	"github.com/focusflow/focusflow/internal/tray"
)

// options are the command line flags. set records which ones were given so
// only those override file and env values.
type options struct {
	configFile   string
	listen       string
	prompt       string
	logLevel     string
	tray         bool
	resetConsent bool
	set          map[string]bool
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("focusflow", flag.ContinueOnError)
	fs.StringVar(&o.configFile, "config", "", "Path to config file")
	fs.StringVar(&o.listen, "listen", "", "Control API address (host:port)")
	fs.StringVar(&o.prompt, "permission-prompt", "", "How consent is asked: desktop, grant or deny")
	fs.StringVar(&o.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.BoolVar(&o.tray, "tray", false, "Show the system tray menu")
	fs.BoolVar(&o.resetConsent, "reset-consent", false, "Forget the stored notification decision and exit")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	o.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	return o, nil
}

// loadConfig layers defaults, the config file, env overrides and flags.
func loadConfig(o options) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if o.configFile != "" {
		c, err := config.LoadConfigFromFile(o.configFile)
		if err != nil {
			return nil, fmt.Errorf("failed loading config: %w", err)
		}
		cfg = c
	}
	if err := config.ApplyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("invalid environment configuration: %w", err)
	}
	if o.set["listen"] {
		cfg.Listen = o.listen
	}
	if o.set["permission-prompt"] {
		cfg.PermissionPrompt = o.prompt
	}
	if o.set["log-level"] {
		cfg.LogLevel = o.logLevel
	}
	if o.set["tray"] {
		cfg.Tray = o.tray
	}
	return cfg, nil
}

func main() {
	o, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}
	cfg, err := loadConfig(o)
	if err != nil {
		log.Fatal(err)
	}

	cleanup, err := logging.Init(cfg.LogFile, cfg.LogLevel, cfg.LogConsole)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	if o.resetConsent {
		if err := state.ResetConsent(cfg.AppName); err != nil {
			logging.Get().Fatal().Err(err).Msg("failed to reset notification consent")
		}
		logging.Get().Info().Str("app", cfg.AppName).Msg("notification consent reset")
		return
	}

	for _, w := range cfg.Validate() {
		logging.Get().Warn().Str("warning", w).Msg("config validation")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	initInflux(ctx, cfg)
	if err := run(ctx, cfg); err != nil {
		logging.Get().Error().Err(err).Msg("focusflow stopped with error")
		cleanup()
		os.Exit(1)
	}
}

// initInflux starts the optional Influx pusher
func initInflux(ctx context.Context, cfg *config.Config) {
	if cfg.InfluxURL != "" {
		go metrics.StartInfluxPusher(ctx, cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket, cfg.InfluxInterval)
	}
}

// run wires the manager to the desktop, journal, session timer and control
// API, then blocks until ctx ends or the tray quits.
func run(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	platform, err := desktop.Open(cfg.AppName, cfg.PermissionPrompt)
	if err != nil {
		return err
	}
	defer platform.Close()

	opts := notify.Options{
		DefaultIcon:  cfg.DefaultIcon,
		DefaultBadge: cfg.DefaultBadge,
		DismissAfter: cfg.DismissAfter,
		Focuser:      focus.NewOpener(cfg.AppURL),
	}
	deps := api.Deps{BaseContext: ctx, Metrics: cfg.MetricsEnabled}
	if j := openJournal(ctx, cfg); j != nil {
		defer j.Close()
		opts.Recorder = j
		deps.History = j
	}

	mgr := notify.NewManager(platform, opts)
	mgr.Initialize()
	mgr.SetEnabled(cfg.NotificationsEnabled)

	sess := session.New(session.Config{
		Work:           cfg.WorkDuration,
		ShortBreak:     cfg.ShortBreakDuration,
		LongBreak:      cfg.LongBreakDuration,
		LongBreakEvery: cfg.LongBreakEvery,
	}, mgr, nil)
	defer sess.Stop()
	if cfg.AutoStartSession {
		if err := sess.Start(ctx); err != nil {
			logging.Get().Warn().Err(err).Msg("failed to start focus session")
		}
	}

	deps.Notifier = mgr
	deps.Session = sess
	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("control API listen on %s: %w", cfg.Listen, err)
	}
	srv := &http.Server{Handler: newHandler(cfg, deps), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logging.Get().Info().Str("addr", ln.Addr().String()).Msg("control API listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Get().Error().Err(err).Msg("control API stopped")
			cancel()
		}
	}()

	if cfg.Tray {
		runTray(ctx, cancel, mgr, opts.Focuser)
	} else {
		<-ctx.Done()
	}

	shutdown(srv, sess, mgr)
	return nil
}

// shutdown stops the API and the session, then closes the alerts still on
// screen while the platform and the journal are open.
func shutdown(srv *http.Server, sess *session.Session, mgr *notify.Manager) {
	logging.Get().Info().Msg("shutting down")
	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Get().Warn().Err(err).Msg("control API shutdown incomplete")
	}
	sess.Stop()
	if n := mgr.DismissAll(); n > 0 {
		logging.Get().Debug().Int("alerts", n).Msg("closed alerts on shutdown")
	}
}

// newHandler wraps the router with access logging and, when a valid key is
// configured, CSRF protection.
func newHandler(cfg *config.Config, deps api.Deps) http.Handler {
	mws := []func(http.Handler) http.Handler{}
	if len(cfg.CSRFKey) == 32 {
		mws = append(mws, api.CSRF([]byte(cfg.CSRFKey), cfg.TrustedOrigins))
	}
	mws = append(mws, api.CORS(api.AllowedOrigins(cfg.AppURL, cfg.TrustedOrigins)), api.AccessLog)
	return api.Chain(api.NewRouter(deps), mws...)
}

// openJournal opens the history database. Failure only disables history.
func openJournal(ctx context.Context, cfg *config.Config) *journal.Store {
	if cfg.JournalPath == "" {
		return nil
	}
	j, err := journal.Open(cfg.JournalPath)
	if err != nil {
		logging.Get().Warn().Err(err).Str("path", cfg.JournalPath).Msg("alert history disabled")
		return nil
	}
	if cfg.JournalRetention > 0 {
		go pruneLoop(ctx, j, cfg.JournalRetention, time.Hour)
	}
	return j
}

func pruneLoop(ctx context.Context, j *journal.Store, retention, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		n, err := j.Prune(ctx, time.Now().Add(-retention))
		if err != nil {
			logging.Get().Warn().Err(err).Msg("journal prune failed")
		} else if n > 0 {
			logging.Get().Debug().Int64("removed", n).Msg("journal pruned")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// runTray blocks on the tray loop. Quitting from the menu cancels ctx; a
// cancelled ctx closes the tray.
func runTray(ctx context.Context, cancel context.CancelFunc, mgr *notify.Manager, f notify.Focuser) {
	t := tray.New(mgr)
	t.SetOnTest(func() {
		go func() {
			if _, err := mgr.WorkComplete(ctx); err != nil {
				logging.Get().Warn().Err(err).Msg("test notification not shown")
			}
		}()
	})
	t.SetOnOpen(func() {
		if err := f.Focus(); err != nil {
			logging.Get().Warn().Err(err).Msg("failed to open app")
		}
	})
	t.SetOnQuit(cancel)
	go func() {
		<-ctx.Done()
		t.Quit()
	}()
	t.Run()
}
