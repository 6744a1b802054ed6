package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lorekeep/lorekeep/internal/output"
	"github.com/lorekeep/lorekeep/internal/search"
)

// searchOptions holds flags for the search command.
type searchOptions struct {
	limit       int
	threshold   float64
	seedNotes   []string
	bypassCache bool
	jsonOutput  bool
	explain     bool
}

// newSearchCmd creates the search command.
func newSearchCmd() *cobra.Command {
	opts := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the vault from the command line",
		Long: `Search the vault using the same hybrid pipeline the MCP server uses:
query analysis, strategy selection, concurrent execution, and rank fusion.

Examples:
  lorekeep search "spaced repetition"
  lorekeep search zettelkasten --limit 5
  lorekeep search "evergreen notes" --seed notes/writing.md --explain`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().Float64VarP(&opts.threshold, "threshold", "t", 0, "Minimum fused score (0 disables)")
	cmd.Flags().StringSliceVar(&opts.seedNotes, "seed", nil, "Seed note paths whose neighbors rank higher")
	cmd.Flags().BoolVar(&opts.bypassCache, "no-cache", false, "Bypass the result cache")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "Show per-strategy scores and fusion metadata")

	return cmd
}

// runSearch executes a hybrid search and renders the response.
func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts *searchOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogging(cfg, opts.jsonOutput)

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	resp := a.coordinator.CoordinateSearch(ctx, query, search.Options{
		Limit:          opts.limit,
		ScoreThreshold: opts.threshold,
		SeedNotes:      opts.seedNotes,
		BypassCache:    opts.bypassCache,
	})

	if opts.jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	out := output.New(cmd.OutOrStdout())
	renderResponse(out, query, resp, opts.explain)
	return nil
}

// renderResponse prints a search response in human-readable form.
func renderResponse(out *output.Writer, query string, resp *search.Response, explain bool) {
	if len(resp.Results) == 0 {
		out.Warning("No results for %q", query)
		if resp.Degraded {
			out.Detail("some search strategies failed; run 'lorekeep status' for details")
		}
		return
	}

	source := "fresh"
	if resp.FromCache {
		source = "cached"
	}
	out.Header("%d results for %q (%s, %s)",
		len(resp.Results), query, resp.Duration.Round(time.Millisecond), source)
	if resp.Degraded {
		out.Warning("degraded: at least one search strategy failed")
	}

	for _, r := range resp.Results {
		out.Result(r.FinalRank, r.Score, r.Title, r.FilePath)
		if r.Snippet != "" {
			out.Detail(r.Snippet)
		}
		if explain {
			parts := make([]string, 0, len(r.OriginalMethods))
			for _, m := range r.OriginalMethods {
				parts = append(parts, fmt.Sprintf("%s=%.3f", m, r.MethodScores[m]))
			}
			line := strings.Join(parts, " ")
			if r.GraphBoosted {
				line += fmt.Sprintf(" graph=%.2fx", r.GraphBoostFactor)
			}
			if len(r.MatchedTerms) > 0 {
				line += " matched=" + strings.Join(r.MatchedTerms, ",")
			}
			out.Detail(line)
		}
	}

	if explain {
		out.Blank()
		for _, o := range resp.Outcomes {
			status := "ok"
			if !o.Succeeded() {
				status = "failed: " + o.Error
			}
			out.Detail(fmt.Sprintf("%-8s %4d results  %8s  %s",
				o.Strategy.Type, len(o.Results), o.Duration.Round(time.Millisecond), status))
		}
	}
}
