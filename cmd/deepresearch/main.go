// Package main provides the deepresearch CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/richinex/deepresearch/cli"
	"github.com/richinex/deepresearch/research"
	"github.com/richinex/deepresearch/storage"
)

var (
	// Global flags
	provider string
	logLevel string
	asJSON   bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "deepresearch",
		Short: "One-pass web research with cited answers",
		Long: `Answer a research question by formulating one search query, searching the web
with Tavily, and synthesizing a structured answer with citations.

Answers have four sections: Executive Summary, Key Findings, Detailed Analysis,
and Sources and Citations, followed by the list of referenced URLs.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "LLM provider (openai, anthropic, deepseek, gemini); defaults to LLM_PROVIDER")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); defaults to LOG_LEVEL")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "Print JSON instead of text")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(clarifyCmd())
	rootCmd.AddCommand(memoryCmd())
	rootCmd.AddCommand(serveCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func options() cli.Options {
	return cli.Options{Provider: provider, LogLevel: logLevel, JSON: asJSON}
}

// runFlags binds the run configuration flags shared by run and clarify.
func runFlags(cmd *cobra.Command, req *research.RunRequest, depth *string) {
	cmd.Flags().StringVarP(&req.Context, "context", "c", "", "Additional context for the research")
	cmd.Flags().StringVarP(depth, "depth", "d", "", "Search depth (basic, advanced); defaults to RESEARCH_SEARCH_DEPTH")
	cmd.Flags().IntVarP(&req.MaxResults, "max-results", "n", 0, "Number of search results (1-20); defaults to RESEARCH_MAX_RESULTS")
	cmd.Flags().IntVar(&req.MaxTokens, "max-tokens", 0, "Answer token budget; defaults to RESEARCH_MAX_TOKENS")
}

func parseDepth(req *research.RunRequest, depth string) error {
	if depth == "" {
		return nil
	}
	d, err := research.ParseSearchDepth(depth)
	if err != nil {
		return err
	}
	req.SearchDepth = d
	return nil
}

func runCmd() *cobra.Command {
	var req cli.ResearchRequest
	var depth string

	cmd := &cobra.Command{
		Use:   "run [topic]",
		Short: "Research a topic and print a cited answer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Topic = args[0]
			if err := parseDepth(&req.RunRequest, depth); err != nil {
				return err
			}
			return cli.Run(cmd.Context(), cmd.OutOrStdout(), req, options())
		},
	}

	runFlags(cmd, &req.RunRequest, &depth)
	cmd.Flags().BoolVar(&req.Remember, "remember", false, "Store the results in research memory")

	return cmd
}

func clarifyCmd() *cobra.Command {
	var req research.RunRequest
	var depth string

	cmd := &cobra.Command{
		Use:   "clarify [topic]",
		Short: "Search a topic and suggest follow-up questions",
		Long: `Run the research stage only, then ask the model whether the results are
sufficient and which follow-up questions would improve them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Topic = args[0]
			if err := parseDepth(&req, depth); err != nil {
				return err
			}
			return cli.Clarify(cmd.Context(), cmd.OutOrStdout(), req, options())
		},
	}

	runFlags(cmd, &req, &depth)

	return cmd
}

func memoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Inspect research stored with --remember",
	}

	var n int
	similar := &cobra.Command{
		Use:   "similar [query]",
		Short: "Show stored research similar to a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.MemorySimilar(cmd.Context(), cmd.OutOrStdout(), args[0], n, options())
		},
	}
	similar.Flags().IntVarP(&n, "limit", "n", storage.DefaultSimilarResults, "Number of records to show")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all stored research",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.MemoryClear(cmd.Context(), cmd.OutOrStdout(), options())
		},
	}

	cmd.AddCommand(similar, clearCmd)
	return cmd
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the research API over HTTP",
		Long: `Serve the research API:
  POST   /v1/research        run one research pass
  POST   /v1/clarify         research stage plus follow-up questions
  GET    /v1/memory/similar  stored research similar to ?q=
  DELETE /v1/memory          clear stored research
  GET    /healthz
  GET    /metrics            Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Serve(cmd.Context(), addr, options())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")

	return cmd
}
