package peer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/roach88/recipedecider/internal/recipe"
)

// ToolError is a tool call the server answered with an error result.
type ToolError struct {
	Tool    string
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Tool, e.Message)
}

// Code returns the error code the server reported, or "" if the message
// does not carry one.
func (e *ToolError) Code() recipe.ErrorCode {
	code, _, ok := strings.Cut(e.Message, ":")
	if !ok {
		return ""
	}
	switch c := recipe.ErrorCode(code); c {
	case recipe.ErrCodeMalformedRequest, recipe.ErrCodeIndexOutOfRange, recipe.ErrCodeEmptyCollection,
		recipe.ErrCodePersistenceFailure, recipe.ErrCodeTransportFailure:
		return c
	default:
		return ""
	}
}

// Client calls the recipe tools of a remote peer.
type Client struct {
	session *mcp.ClientSession
}

// Dial connects to a peer's streamable HTTP endpoint, e.g.
// http://localhost:8080/rpc.
func Dial(ctx context.Context, endpoint string) (*Client, error) {
	return Connect(ctx, &mcp.StreamableClientTransport{
		Endpoint:   endpoint,
		HTTPClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	})
}

// Connect performs the MCP handshake over t.
func Connect(ctx context.Context, t mcp.Transport) (*Client, error) {
	c := mcp.NewClient(&mcp.Implementation{
		Name:    recipe.ServiceName + "-peer",
		Version: recipe.ServiceVersion,
	}, nil)
	session, err := c.Connect(ctx, t, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to peer: %w", err)
	}
	return &Client{session: session}, nil
}

// Close ends the session.
func (c *Client) Close() error {
	return c.session.Close()
}

// AddRecipe appends r on the peer and returns the stored recipe.
func (c *Client) AddRecipe(ctx context.Context, r recipe.Recipe) (recipe.Recipe, error) {
	var out RecipeAdded
	if err := c.call(ctx, ToolAddRecipe, r, &out); err != nil {
		return recipe.Recipe{}, err
	}
	return out.Recipe, nil
}

// GetRecipes lists the peer's recipes.
func (c *Client) GetRecipes(ctx context.Context) ([]recipe.Recipe, error) {
	var out Recipes
	if err := c.call(ctx, ToolGetRecipes, map[string]any{}, &out); err != nil {
		return nil, err
	}
	if out.Recipes == nil {
		out.Recipes = []recipe.Recipe{}
	}
	return out.Recipes, nil
}

// RollRecipe picks a random recipe on the peer. It returns nil when the
// peer has none.
func (c *Client) RollRecipe(ctx context.Context) (*recipe.Recipe, error) {
	var out RolledRecipe
	if err := c.call(ctx, ToolRollRecipe, map[string]any{}, &out); err != nil {
		return nil, err
	}
	return out.Recipe, nil
}

func (c *Client) call(ctx context.Context, tool string, args any, out any) error {
	res, err := c.session.CallTool(ctx, &mcp.CallToolParams{Name: tool, Arguments: args})
	if err != nil {
		return fmt.Errorf("call %s: %w", tool, err)
	}
	if res.IsError {
		return &ToolError{Tool: tool, Message: textOf(res)}
	}

	var raw []byte
	if res.StructuredContent != nil {
		raw, err = json.Marshal(res.StructuredContent)
		if err != nil {
			return fmt.Errorf("%s: encode structured content: %w", tool, err)
		}
	} else {
		raw = []byte(textOf(res))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode reply: %w", tool, err)
	}
	return nil
}

func textOf(res *mcp.CallToolResult) string {
	var parts []string
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}
