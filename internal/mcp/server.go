package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lorekeep/lorekeep/internal/config"
	"github.com/lorekeep/lorekeep/internal/search"
	"github.com/lorekeep/lorekeep/internal/validation"
	"github.com/lorekeep/lorekeep/pkg/version"
)

// Server is the MCP server for Lorekeep. It bridges AI clients with the
// hybrid search coordinator.
type Server struct {
	mcp         *mcp.Server
	coordinator *search.Coordinator
	validator   *validation.Validator
	config      *config.Config
	logger      *slog.Logger
}

// NewServer creates the MCP server and registers its tools.
func NewServer(coordinator *search.Coordinator, validator *validation.Validator, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if coordinator == nil {
		return nil, errors.New("search coordinator is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		coordinator: coordinator,
		validator:   validator,
		config:      cfg,
		logger:      logger,
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "Lorekeep",
			Version: version.Version,
		},
		nil, // capabilities are inferred from registered tools
	)
	s.registerTools()

	return s, nil
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "vault_search",
		Description: "Search the knowledge vault. Combines semantic, keyword, and typo-tolerant matching into one ranked list, with linked notes boosted. Use for any content lookup in the vault.",
	}, s.vaultSearchHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_health",
		Description: "Check which search strategies are currently available and whether the backing collections are healthy. Use when searches come back degraded or empty.",
	}, s.searchHealthHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "cache_stats",
		Description: "Report result-cache hit rate, evictions, and memory footprint.",
	}, s.cacheStatsHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "query_metrics",
		Description: "Report search telemetry: latency distribution, strategy usage, failure rates, and zero-result queries.",
	}, s.queryMetricsHandler)

	s.logger.Info("MCP tools registered", "count", 4)
}

// vaultSearchHandler serves the vault_search tool.
func (s *Server) vaultSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, input VaultSearchInput) (
	*mcp.CallToolResult,
	VaultSearchOutput,
	error,
) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, VaultSearchOutput{}, NewInvalidParamsError("query parameter is required")
	}

	requestID := uuid.NewString()
	opts := search.Options{
		Limit:          10,
		ScoreThreshold: input.ScoreThreshold,
		SeedNotes:      input.SeedNotes,
		BypassCache:    input.BypassCache,
	}
	if input.Limit > 0 {
		opts.Limit = input.Limit
	}

	resp := s.coordinator.CoordinateSearch(ctx, input.Query, opts)
	s.logger.Debug("vault_search served",
		"request_id", requestID,
		"results", len(resp.Results),
		"degraded", resp.Degraded,
		"from_cache", resp.FromCache,
		"duration_ms", resp.Duration.Milliseconds())

	output := VaultSearchOutput{
		Results:   make([]VaultSearchResult, 0, len(resp.Results)),
		Degraded:  resp.Degraded,
		FromCache: resp.FromCache,
	}
	for _, r := range resp.Results {
		output.Results = append(output.Results, toVaultSearchResult(r))
	}
	return nil, output, nil
}

// searchHealthHandler serves the search_health tool.
func (s *Server) searchHealthHandler(ctx context.Context, _ *mcp.CallToolRequest, _ SearchHealthInput) (
	*mcp.CallToolResult,
	SearchHealthOutput,
	error,
) {
	health := s.coordinator.HealthStatus(ctx)
	output := SearchHealthOutput{
		Score:        health.Score,
		Healthy:      health.Healthy,
		Capabilities: health.Capabilities,
	}

	if s.validator != nil {
		deps, err := s.validator.ValidateSearchDependencies(ctx, validation.SearchHybrid)
		if err != nil {
			return nil, SearchHealthOutput{}, MapError(err)
		}
		output.Dependencies = deps
	}
	return nil, output, nil
}

// cacheStatsHandler serves the cache_stats tool.
func (s *Server) cacheStatsHandler(_ context.Context, _ *mcp.CallToolRequest, _ CacheStatsInput) (
	*mcp.CallToolResult,
	CacheStatsOutput,
	error,
) {
	stats := s.coordinator.CacheStats()
	return nil, CacheStatsOutput{
		Enabled: stats != nil,
		Stats:   stats,
	}, nil
}

// queryMetricsHandler serves the query_metrics tool.
func (s *Server) queryMetricsHandler(_ context.Context, _ *mcp.CallToolRequest, _ QueryMetricsInput) (
	*mcp.CallToolResult,
	QueryMetricsOutput,
	error,
) {
	metrics := s.coordinator.Metrics()
	if metrics == nil {
		return nil, QueryMetricsOutput{}, &MCPError{
			Code:    ErrCodeInternalError,
			Message: "metrics collection is not enabled",
		}
	}
	return nil, QueryMetricsOutput{Metrics: metrics.Snapshot()}, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Serve runs the server on the given transport until ctx is canceled.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("starting MCP server", "transport", transport)

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("MCP server stopped with error", "error", err)
			return err
		}
		s.logger.Info("MCP server stopped")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}
