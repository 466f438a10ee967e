package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sawa-platform/sawa/internal/browser"
	"github.com/sawa-platform/sawa/internal/config"
	"github.com/sawa-platform/sawa/internal/fetch"
	"github.com/sawa-platform/sawa/internal/guard"
	"github.com/sawa-platform/sawa/internal/logger"
	"github.com/sawa-platform/sawa/internal/session"
	"github.com/sawa-platform/sawa/internal/tui"
	"github.com/sawa-platform/sawa/pkg/api"
	"github.com/sawa-platform/sawa/pkg/client"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

var (
	jsonOutput bool
	logLevel   string
	profile    string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if errors.Is(err, guard.ErrNotAuthenticated) {
			printWelcome(os.Stderr)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if fetch.IsLoginRequired(err) {
			fmt.Fprintln(os.Stderr, "run `sawa login` to sign in again")
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sawa",
		Short: "SAWA marketplace client",
		Long: `sawa is a terminal client for the SAWA industrial-service marketplace.

Run it without arguments to open the interactive UI.

Environment Variables:
  SAWA_HOME             State directory (default: ~/.sawa)
  SAWA_PROFILE          Session profile name (default: default)
  SAWA_SESSION_STORE    file | memory | redis://host:port/db
  SAWA_REQUEST_TIMEOUT  Per-request timeout (default: 30s)
  SAWA_POLL_INTERVAL    Notification poll interval (default: 30s)
  SAWA_LOG_LEVEL        debug | info | warn | error
  SAWA_LOG_FORMAT       text | json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runTUI,
	}
	root.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-readable text")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (overrides SAWA_LOG_LEVEL)")
	root.PersistentFlags().StringVar(&profile, "profile", "", "Session profile (overrides SAWA_PROFILE)")

	root.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newRegisterCmd(),
		newWhoamiCmd(),
		newTokenCmd(),
		newDashboardCmd(),
		newRequestsCmd(),
		newApplicationsCmd(),
		newMessagesCmd(),
		newReviewsCmd(),
		newNotificationsCmd(),
		newSettingsCmd(),
		newOpenCmd(),
		newVersionCmd(),
	)
	return root
}

// loadConfig reads the environment and applies the global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if profile != "" {
		cfg.Profile = profile
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// app is the wired client stack shared by every command.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	session *session.Manager
	api     *client.Client
	out     io.Writer
	json    bool
	closers []func() error
}

// newApp opens the session store, restores the saved session and builds the
// authenticated API client on top of it.
func newApp(cfg *config.Config, ep api.Endpoints, l *slog.Logger, out io.Writer) (*app, error) {
	store, closeStore, err := session.OpenStore(cfg.SessionStore, cfg.SessionDir(), cfg.Profile)
	if err != nil {
		return nil, err
	}
	auth := client.New(ep, nil, client.WithTimeout(cfg.RequestTimeout), client.WithLogger(l))
	mgr := session.NewManager(store, auth, session.WithLogger(l))
	a := &app{
		cfg:     cfg,
		logger:  l,
		session: mgr,
		api:     client.New(ep, mgr, client.WithTimeout(cfg.RequestTimeout), client.WithLogger(l)),
		out:     out,
		json:    jsonOutput,
		closers: []func() error{closeStore},
	}
	if err := mgr.Restore(); err != nil {
		l.Warn("could not restore session", "error", err)
	}
	return a, nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Debug("close", "error", err)
		}
	}
}

// requireSession fails fast when nobody is logged in.
func (a *app) requireSession() error {
	return guard.Require(a.session.Status())
}

// openApp wires the stack for a CLI command. Tests replace it.
var openApp = func(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	l := logger.Init(cfg.LogLevel, cfg.LogFormat)
	return newApp(cfg, api.Default(), l, cmd.OutOrStdout())
}

// withApp runs fn with a wired app and a context cancelled on SIGINT/SIGTERM.
func withApp(fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		return fn(ctx, a, args)
	}
}

// protected is withApp for commands that need a logged-in session.
func protected(fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return withApp(func(ctx context.Context, a *app, args []string) error {
		if err := a.requireSession(); err != nil {
			return err
		}
		return fn(ctx, a, args)
	})
}

// printJSON writes v as indented JSON.
func (a *app) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(a.out, string(data))
	return err
}

func runTUI(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// The alternate screen owns the terminal, so logs go to a file.
	l, closeLog, err := logger.InitFile(cfg.DebugLogPath(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer closeLog() //nolint:errcheck

	store, closeStore, err := session.OpenStore(cfg.SessionStore, cfg.SessionDir(), cfg.Profile)
	if err != nil {
		return err
	}
	defer closeStore() //nolint:errcheck

	ep := api.Default()
	auth := client.New(ep, nil, client.WithTimeout(cfg.RequestTimeout), client.WithLogger(l))
	mgr := session.NewManager(store, auth, session.WithLogger(l))
	c := client.New(ep, mgr, client.WithTimeout(cfg.RequestTimeout), client.WithLogger(l))

	l.Info("starting tui", "version", version, "api", ep.Base, "profile", cfg.Profile)
	return tui.Run(tui.Options{
		Session:      mgr,
		Client:       c,
		PollInterval: cfg.PollInterval,
		Version:      version,
	})
}

func newOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "open <page>",
		Short:     "Open a page of the web app in the browser",
		Long:      "Open a page of the web app. Onboarding and request attachments (file uploads) are web-only.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: browser.PageNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := browser.OpenPage(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Opened "+url) //nolint:errcheck
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sawa %s (%s)\n", version, api.ResolveBaseURL()) //nolint:errcheck
		},
	}
}
