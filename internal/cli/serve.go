package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/recipedecider/internal/config"
	"github.com/roach88/recipedecider/internal/recipe"
	"github.com/roach88/recipedecider/internal/server"
	"github.com/roach88/recipedecider/internal/telemetry"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	ConfigPath string
	Addr       string
	Driver     string
	Database   string
	Seed       uint64

	// Getenv reads environment overrides; nil uses os.Getenv.
	Getenv func(string) string

	// Ready, if set, is called with the bound address once the server
	// accepts connections (for testing).
	Ready func(addr string)
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return newServeCommand(&ServeOptions{RootOptions: rootOpts})
}

func newServeCommand(opts *ServeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the recipe service",
		Long: `Run the recipe service until interrupted.

Configuration is read from defaults, then the --config file, then RECIPES_*
environment variables, then flags. The merged configuration is validated
before anything is opened.

Example:
  recipedecider serve
  recipedecider serve --config recipes.yaml --addr :9090
  recipedecider serve --driver file --db ./recipes.json -v`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default :8080)")
	cmd.Flags().StringVar(&opts.Driver, "driver", "", "storage driver (sqlite|postgres|file|s3|memory)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "database or snapshot file path")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "random seed for rolls (0 = entropy)")

	return cmd
}

// loadConfig merges defaults, file, environment and the flags that were set.
func loadConfig(path string, getenv func(string) string, overrides func(*config.Config)) (config.Config, error) {
	cfg, err := config.Load(path, getenv)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if overrides != nil {
		overrides(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	return cfg, nil
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	flags := cmd.Flags()
	cfg, err := loadConfig(opts.ConfigPath, opts.Getenv, func(c *config.Config) {
		if flags.Changed("addr") {
			c.Addr = opts.Addr
		}
		if flags.Changed("driver") {
			c.Storage.Driver = opts.Driver
		}
		if flags.Changed("db") {
			c.Storage.Path = opts.Database
		}
		if flags.Changed("seed") {
			c.Seed = opts.Seed
		}
		if opts.Verbose {
			c.LogLevel = "debug"
		}
	})
	if err != nil {
		return err
	}

	slog.SetDefault(newLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat))

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		Exporter: cfg.Trace,
		Writer:   cmd.ErrOrStderr(),
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to initialize tracing", err)
	}
	defer func() {
		if err := shutdownTracing(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("tracing shutdown", "error", err)
		}
	}()

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}

	srv, err := server.New(ctx, cfg)
	if err != nil {
		_ = ln.Close()
		return WrapExitError(ExitCommandError, "failed to start", err)
	}

	slog.Info("starting", "service", recipe.ServiceName, "version", recipe.ServiceVersion, "driver", cfg.Storage.Driver)
	fmt.Fprintf(cmd.OutOrStdout(), "Serving on %s. Press Ctrl-C to stop.\n", ln.Addr())
	if opts.Ready != nil {
		opts.Ready(ln.Addr().String())
	}

	if err := srv.Serve(ctx, ln); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "server error", err)
	}
	slog.Info("stopped gracefully")
	return nil
}

// newLogger builds the process logger. Unknown levels fall back to info.
func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	hopts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}
