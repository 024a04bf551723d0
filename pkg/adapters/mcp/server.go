package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/internal/logging"
	pgraph "github.com/aretw0/tendril/internal/presentation/graph"
	"github.com/aretw0/tendril/pkg/definition"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/graph"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/workflows/codereview"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server wraps the engine and exposes it as an MCP Server.
type Server struct {
	engine    ports.WorkflowService
	mcpServer *server.MCPServer
	logger    *slog.Logger
	builtins  map[string]bool
}

// NewServer creates a new MCP Server instance. Every tool registered on the
// engine at this point is also exposed as an MCP tool of the same name.
func NewServer(engine ports.WorkflowService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		engine:    engine,
		logger:    logger,
		builtins:  make(map[string]bool),
		mcpServer: server.NewMCPServer("tendril-mcp", tendril.Version, server.WithToolCapabilities(false)),
	}
	s.registerTools()
	s.registerEngineTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())
	httpServer := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

// RunArgs are the arguments of run_graph.
type RunArgs struct {
	GraphID      string         `json:"graph_id"`
	InitialState map[string]any `json:"initial_state"`
	Async        bool           `json:"async"`
}

// ReviewArgs are the arguments of review_code.
type ReviewArgs struct {
	Code             string   `json:"code"`
	QualityThreshold *float64 `json:"quality_threshold"`
	Gate             bool     `json:"gate"`
}

// GraphDescription is the result of describe_graph.
type GraphDescription struct {
	Graph   graph.Info `json:"graph"`
	Mermaid string     `json:"mermaid"`
}

func (s *Server) addTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.builtins[tool.Name] = true
	s.mcpServer.AddTool(tool, handler)
}

func (s *Server) registerTools() {
	s.addTool(mcp.NewTool("list_tools",
		mcp.WithDescription("List the tools registered on the engine."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(s.engine.ListTools())
	})

	s.addTool(mcp.NewTool("call_tool",
		mcp.WithDescription("Invoke a registered tool directly, outside any run."),
		mcp.WithString("tool_name", mcp.Required(), mcp.Description("Name of the tool")),
		mcp.WithObject("arguments", mcp.Description("Keyword arguments for the tool")),
	), s.handleCallTool)

	s.addTool(mcp.NewTool("list_graphs",
		mcp.WithDescription("List registered workflow graphs."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(s.engine.ListGraphs())
	})

	s.addTool(mcp.NewTool("describe_graph",
		mcp.WithDescription("Describe a graph's nodes and edges, with a Mermaid flowchart."),
		mcp.WithString("graph_id", mcp.Required(), mcp.Description("Graph id")),
		mcp.WithOutputSchema[GraphDescription](),
	), mcp.NewStructuredToolHandler(s.handleDescribeGraph))

	s.addTool(mcp.NewTool("create_graph",
		mcp.WithDescription("Register a graph from a YAML or JSON definition document."),
		mcp.WithString("definition", mcp.Required(), mcp.Description("Definition with graph_id, nodes and edges")),
	), s.handleCreateGraph)

	s.addTool(mcp.NewTool("run_graph",
		mcp.WithDescription("Run a graph. Synchronous runs return the terminal record; async runs return the pending record."),
		mcp.WithString("graph_id", mcp.Required(), mcp.Description("Graph to run")),
		mcp.WithObject("initial_state", mcp.Description("Starting state")),
		mcp.WithBoolean("async", mcp.Description("Start the run in the background")),
	), mcp.NewStructuredToolHandler(s.handleRunGraph))

	s.addTool(mcp.NewTool("get_run",
		mcp.WithDescription("Get the record of a run: status, final state and execution log."),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("Run id")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("run_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		run, err := s.engine.GetRun(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(run)
	})

	s.addTool(mcp.NewTool("list_runs",
		mcp.WithDescription("List runs, oldest first."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		runs, err := s.engine.ListRuns(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]domain.RunSummary, len(runs))
		for i, r := range runs {
			out[i] = r.Summary()
		}
		return jsonResult(out)
	})

	s.addTool(mcp.NewTool("review_code",
		mcp.WithDescription("Run the code review workflow on Python source."),
		mcp.WithString("code", mcp.Required(), mcp.Description("Python source to review")),
		mcp.WithNumber("quality_threshold", mcp.Description("Score needed to approve (default 7.0)")),
		mcp.WithBoolean("gate", mcp.Description("Use the quality gate variant")),
	), mcp.NewStructuredToolHandler(s.handleReview))
}

// registerEngineTools exposes engine tools by name. Names already taken by
// the management tools are skipped.
func (s *Server) registerEngineTools() {
	for _, t := range s.engine.ListTools() {
		if s.builtins[t.Name] {
			s.logger.Warn("MCP: tool name collides with a built-in, skipping", "tool_name", t.Name)
			continue
		}
		schema := t.Parameters
		if schema == nil {
			schema = map[string]any{"type": "object"}
		}
		raw, err := json.Marshal(schema)
		if err != nil {
			s.logger.Warn("MCP: invalid tool schema, skipping", "tool_name", t.Name, "error", err)
			continue
		}
		name := t.Name
		s.mcpServer.AddTool(mcp.NewToolWithRawSchema(name, t.Description, raw),
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return s.call(ctx, name, request.GetArguments())
			})
	}
}

func (s *Server) handleCallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("tool_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args, _ := request.GetArguments()["arguments"].(map[string]any)
	return s.call(ctx, name, args)
}

func (s *Server) call(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	result, err := s.engine.CallTool(ctx, name, args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

func (s *Server) handleDescribeGraph(ctx context.Context, request mcp.CallToolRequest, args struct {
	GraphID string `json:"graph_id"`
}) (GraphDescription, error) {
	info, err := s.engine.DescribeGraph(args.GraphID)
	if err != nil {
		return GraphDescription{}, err
	}
	return GraphDescription{Graph: info, Mermaid: pgraph.GenerateMermaid(info, nil)}, nil
}

func (s *Server) handleCreateGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := request.RequireString("definition")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	def, err := definition.Parse([]byte(doc))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	warnings, err := s.engine.CreateGraph(ctx, def)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"graph_id": def.ID, "status": "created", "warnings": warnings})
}

func (s *Server) handleRunGraph(ctx context.Context, request mcp.CallToolRequest, args RunArgs) (*domain.Run, error) {
	return s.run(ctx, args.GraphID, domain.StateFrom(args.InitialState), args.Async)
}

func (s *Server) handleReview(ctx context.Context, request mcp.CallToolRequest, args ReviewArgs) (*domain.Run, error) {
	if args.Code == "" {
		return nil, errors.New("code is required")
	}
	threshold := codereview.DefaultThreshold
	if args.QualityThreshold != nil {
		threshold = *args.QualityThreshold
	}
	id := codereview.WorkflowID
	if args.Gate {
		id = codereview.GateWorkflowID
	}
	return s.run(ctx, id, codereview.InitialState(args.Code, threshold), false)
}

func (s *Server) run(ctx context.Context, graphID string, initial *domain.State, async bool) (*domain.Run, error) {
	if async {
		return s.engine.StartRun(ctx, graphID, initial)
	}
	run, err := s.engine.RunGraph(ctx, graphID, initial)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "MCP run finished", "run_id", run.ID, "graph", graphID, "status", run.Status)
	return run, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("tendril://graphs", "Registered graphs",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return jsonResource(request.Params.URI, s.engine.ListGraphs())
	})

	s.mcpServer.AddResource(mcp.NewResource("tendril://tools", "Registered tools",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return jsonResource(request.Params.URI, s.engine.ListTools())
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: "application/json", Text: string(data)},
	}, nil
}
