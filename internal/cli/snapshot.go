package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/recipedecider/internal/config"
	"github.com/roach88/recipedecider/internal/persist"
	"github.com/roach88/recipedecider/internal/recipe"
	"github.com/roach88/recipedecider/internal/store"
)

// SnapshotOptions holds flags for the snapshot commands.
type SnapshotOptions struct {
	*RootOptions
	ConfigPath string
	Driver     string
	Database   string

	// Getenv reads environment overrides; nil uses os.Getenv.
	Getenv func(string) string
}

// SnapshotInfo is the JSON form of snapshot show.
type SnapshotInfo struct {
	Driver  string          `json:"driver"`
	Present bool            `json:"present"`
	Version string          `json:"version,omitempty"`
	Bytes   int             `json:"bytes"`
	Recipes []recipe.Recipe `json:"recipes"`
}

// NewSnapshotCommand creates the snapshot command group.
func NewSnapshotCommand(rootOpts *RootOptions) *cobra.Command {
	return newSnapshotCommand(&SnapshotOptions{RootOptions: rootOpts})
}

func newSnapshotCommand(opts *SnapshotOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect persisted state",
	}
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", "", "storage driver (sqlite|postgres|file|s3)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "database or snapshot file path")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the persisted recipe collection",
		Long: `Read the snapshot the service would restore on startup and print it.

The snapshot is only read; a running service is not affected.

Example:
  recipedecider snapshot show --db ./recipes.db
  recipedecider snapshot show --driver file --db ./recipes.json --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotShow(opts, cmd)
		},
	}
	cmd.AddCommand(show)
	return cmd
}

func runSnapshotShow(opts *SnapshotOptions, cmd *cobra.Command) error {
	flags := cmd.Flags()
	cfg, err := loadConfig(opts.ConfigPath, opts.Getenv, func(c *config.Config) {
		if flags.Changed("driver") {
			c.Storage.Driver = opts.Driver
		}
		if flags.Changed("db") {
			c.Storage.Path = opts.Database
		}
	})
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	gw, err := persist.Open(ctx, cfg.Persist())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open storage", err)
	}
	defer gw.Close()

	data, ok, err := gw.Read(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read snapshot", err)
	}

	info := SnapshotInfo{
		Driver:  string(gw.Driver()),
		Present: ok,
		Bytes:   len(data),
		Recipes: []recipe.Recipe{},
	}
	if ok {
		info.Version, _ = store.Version(data)
		info.Recipes = append(info.Recipes, store.Restore(data).List()...)
	}

	text := fmt.Sprintf("No snapshot in %s storage.", info.Driver)
	if ok {
		version := info.Version
		if version == "" {
			version = "unreadable"
		}
		p := message.NewPrinter(language.English)
		text = p.Sprintf("Snapshot (%s, %s, %d bytes)\n%s", info.Driver, version, info.Bytes, formatRecipes(info.Recipes))
	}
	return opts.formatter(cmd).Success(text, info)
}
