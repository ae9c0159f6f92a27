package peer

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/roach88/recipedecider/internal/command"
	"github.com/roach88/recipedecider/internal/recipe"
	"github.com/roach88/recipedecider/internal/router"
)

// Dispatcher submits commands to the router.
type Dispatcher interface {
	Dispatch(ctx context.Context, req router.Request) (recipe.Result, error)
}

// Server registers the recipe tools on an MCP server.
type Server struct {
	dispatcher Dispatcher
	mcp        *mcp.Server
}

// NewServer creates the MCP server and registers its tools.
func NewServer(d Dispatcher) *Server {
	s := &Server{
		dispatcher: d,
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    recipe.ServiceName,
			Version: recipe.ServiceVersion,
		}, nil),
	}

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolAddRecipe,
		Description: "Append a recipe to the shared collection.",
	}, s.addRecipe)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolGetRecipes,
		Description: "List every recipe in insertion order.",
	}, s.getRecipes)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolRollRecipe,
		Description: "Pick one recipe uniformly at random. Returns no recipe when the collection is empty.",
	}, s.rollRecipe)

	return s
}

// MCP returns the underlying MCP server, for in-process transports.
func (s *Server) MCP() *mcp.Server { return s.mcp }

// Handler serves the MCP streamable HTTP transport.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.mcp }, nil)
}

func (s *Server) addRecipe(ctx context.Context, _ *mcp.CallToolRequest, in command.RecipeFields) (*mcp.CallToolResult, RecipeAdded, error) {
	r, err := in.Recipe()
	if err != nil {
		return nil, RecipeAdded{}, err
	}
	res, err := s.dispatch(ctx, recipe.Add(r))
	if err != nil {
		return nil, RecipeAdded{}, err
	}
	return nil, RecipeAdded{Recipe: *res.Recipe}, nil
}

func (s *Server) getRecipes(ctx context.Context, _ *mcp.CallToolRequest, _ noInput) (*mcp.CallToolResult, Recipes, error) {
	res, err := s.dispatch(ctx, recipe.List())
	if err != nil {
		return nil, Recipes{}, err
	}
	list := res.Recipes
	if list == nil {
		list = []recipe.Recipe{}
	}
	return nil, Recipes{Recipes: list}, nil
}

func (s *Server) rollRecipe(ctx context.Context, _ *mcp.CallToolRequest, _ noInput) (*mcp.CallToolResult, RolledRecipe, error) {
	res, err := s.dispatch(ctx, recipe.Roll())
	if err != nil {
		return nil, RolledRecipe{}, err
	}
	return nil, RolledRecipe{Recipe: res.Recipe}, nil
}

func (s *Server) dispatch(ctx context.Context, cmd recipe.Command) (recipe.Result, error) {
	return s.dispatcher.Dispatch(ctx, router.Request{Command: cmd, Origin: recipe.ChannelRPC})
}
