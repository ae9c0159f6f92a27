package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/recipedecider/internal/peer"
	"github.com/roach88/recipedecider/internal/recipe"
)

// DefaultPeerURL is the RPC endpoint of a locally running service.
const DefaultPeerURL = "http://localhost:8080/rpc"

// PeerOptions holds flags shared by the peer subcommands.
type PeerOptions struct {
	*RootOptions
	URL     string
	Timeout time.Duration
}

// NewPeerCommand creates the peer command group.
func NewPeerCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PeerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "peer",
		Short: "Act as a peer process against a running service",
		Long: `Call the recipe tools of a running service over its RPC endpoint.

Adds and rolls made here are announced to every WebSocket client, the same
as if they came from the web UI.

Example:
  recipedecider peer add --name Soup --instructions "Boil water."
  recipedecider peer list --format json
  recipedecider peer roll --url http://recipes.internal:8080/rpc`,
	}
	cmd.PersistentFlags().StringVar(&opts.URL, "url", DefaultPeerURL, "RPC endpoint")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 10*time.Second, "per-call timeout")

	cmd.AddCommand(newPeerAddCommand(opts))
	cmd.AddCommand(newPeerListCommand(opts))
	cmd.AddCommand(newPeerRollCommand(opts))
	return cmd
}

func newPeerAddCommand(opts *PeerOptions) *cobra.Command {
	var r recipe.Recipe
	cmd := &cobra.Command{
		Use:           "add",
		Short:         "Add a recipe",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPeer(cmd, opts, func(ctx context.Context, c *peer.Client) error {
				added, err := c.AddRecipe(ctx, r)
				if err != nil {
					return peerCallError(opts.formatter(cmd), err)
				}
				return opts.formatter(cmd).Success("Added "+formatRecipe(added), peer.RecipeAdded{Recipe: added})
			})
		},
	}
	cmd.Flags().StringVar(&r.Name, "name", "", "recipe name (required)")
	cmd.Flags().StringVar(&r.Instructions, "instructions", "", "recipe instructions (required)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("instructions")
	return cmd
}

func newPeerListCommand(opts *PeerOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List every recipe",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPeer(cmd, opts, func(ctx context.Context, c *peer.Client) error {
				list, err := c.GetRecipes(ctx)
				if err != nil {
					return peerCallError(opts.formatter(cmd), err)
				}
				return opts.formatter(cmd).Success(formatRecipes(list), peer.Recipes{Recipes: list})
			})
		},
	}
}

func newPeerRollCommand(opts *PeerOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "roll",
		Short:         "Pick a recipe at random",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPeer(cmd, opts, func(ctx context.Context, c *peer.Client) error {
				rolled, err := c.RollRecipe(ctx)
				if err != nil {
					return peerCallError(opts.formatter(cmd), err)
				}
				text := "No recipes."
				if rolled != nil {
					text = formatRecipe(*rolled)
				}
				return opts.formatter(cmd).Success(text, peer.RolledRecipe{Recipe: rolled})
			})
		},
	}
}

// withPeer dials the endpoint, runs fn and closes the session.
func withPeer(cmd *cobra.Command, opts *PeerOptions, fn func(context.Context, *peer.Client) error) error {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, opts.Timeout)
	defer cancel()

	opts.formatter(cmd).VerboseLog("connecting to %s", opts.URL)
	c, err := peer.Dial(ctx, opts.URL)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to connect to peer", err)
	}
	defer c.Close()

	return fn(ctx, c)
}

// peerCallError reports a failed tool call. Rejections by the service exit
// 1; transport problems exit 2.
func peerCallError(f *OutputFormatter, err error) error {
	var toolErr *peer.ToolError
	if errors.As(err, &toolErr) {
		code := string(toolErr.Code())
		if code == "" {
			code = "TOOL_ERROR"
		}
		_ = f.Error(code, toolErr.Message, nil)
		return WrapExitError(ExitFailure, "peer rejected the call", err)
	}
	return WrapExitError(ExitCommandError, "peer call failed", err)
}
