// Command execution for CLI commands.
//
// Information Hiding:
// - Provider, search, cache and memory construction from configuration
// - Output formatting hidden
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/richinex/deepresearch/config"
	"github.com/richinex/deepresearch/internal/logging"
	"github.com/richinex/deepresearch/llm"
	"github.com/richinex/deepresearch/research"
	"github.com/richinex/deepresearch/search"
	"github.com/richinex/deepresearch/storage"
)

// Options holds CLI execution options.
type Options struct {
	Provider string
	// LogLevel overrides LOG_LEVEL when set.
	LogLevel string
	JSON     bool
}

// App is a fully wired Service plus the resources it owns.
type App struct {
	Service  *Service
	Settings config.Settings
	Logger   *zap.Logger

	closers []func() error
}

// Close releases the memory database and Redis client.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	_ = a.Logger.Sync()
	return errors.Join(errs...)
}

// NewApp builds an App from environment configuration. withMemory opens the
// memory database; commands that never touch memory skip it.
func NewApp(ctx context.Context, opts Options, withMemory bool) (*App, error) {
	settings, err := config.New(opts.Provider)
	if err != nil {
		return nil, err
	}
	level := settings.Log.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	logger, err := logging.New(level, settings.Log.Development)
	if err != nil {
		return nil, err
	}
	app := &App{Settings: settings, Logger: logger}

	provider, err := createProvider(settings)
	if err != nil {
		return nil, err
	}

	var searcher research.SearchProvider = search.NewTavily(settings.Search.TavilyAPIKey,
		search.WithBaseURL(settings.Search.TavilyBaseURL),
		search.WithHTTPClient(&http.Client{Timeout: settings.Search.Timeout}),
		search.WithLogger(logger),
	)
	if settings.Search.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: settings.Search.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, search cache disabled",
				zap.String("addr", settings.Search.RedisAddr), zap.Error(err))
			_ = client.Close()
		} else {
			app.closers = append(app.closers, client.Close)
			searcher = search.NewCachedProvider(searcher, client, settings.Search.CacheTTL, logger)
		}
	}

	var memory storage.ResearchMemory
	if withMemory {
		memory, err = openMemory(settings)
		if err != nil {
			_ = app.Close()
			return nil, err
		}
		app.closers = append(app.closers, memory.Close)
	}

	svc, err := NewService(llm.NewClient(provider), searcher, memory, settings.Research, logger)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Service = svc
	return app, nil
}

func createProvider(settings config.Settings) (llm.Provider, error) {
	providerType, err := llm.ParseProviderType(settings.LLM.Provider)
	if err != nil {
		return nil, err
	}

	apiKey, err := config.APIKeyFor(settings.LLM.Provider)
	if err != nil {
		return nil, err
	}

	return providerType.
		Model(settings.LLM.Model).
		BaseURL(settings.LLM.BaseURL).
		MaxTokens(settings.LLM.MaxTokens).
		Temperature(float32(settings.LLM.Temperature)).
		APIKey(apiKey)
}

func openMemory(settings config.Settings) (storage.ResearchMemory, error) {
	var embedder storage.Embedder = storage.NewHashEmbedder(0)
	if settings.Memory.Embedder == "openai" {
		apiKey, err := config.APIKeyFor("openai")
		if err != nil {
			return nil, fmt.Errorf("openai embedder: %w", err)
		}
		embedder = llm.NewOpenAIEmbedder(apiKey, "", settings.Memory.EmbeddingModel)
	}
	return storage.OpenSqlite(settings.Memory.DBPath, embedder)
}

// Run executes one research run and prints the answer.
func Run(ctx context.Context, w io.Writer, req ResearchRequest, opts Options) error {
	app, err := NewApp(ctx, opts, req.Remember)
	if err != nil {
		return err
	}
	defer app.Close()

	resp, err := app.Service.Research(ctx, req)
	if err != nil {
		return err
	}
	return WriteResearch(w, resp, opts.JSON)
}

// Clarify runs the research stage and prints the advisor's judgement.
func Clarify(ctx context.Context, w io.Writer, req research.RunRequest, opts Options) error {
	app, err := NewApp(ctx, opts, false)
	if err != nil {
		return err
	}
	defer app.Close()

	resp, err := app.Service.Clarify(ctx, req)
	if err != nil {
		return err
	}
	return WriteClarify(w, resp, opts.JSON)
}

// MemorySimilar prints stored research similar to query.
func MemorySimilar(ctx context.Context, w io.Writer, query string, n int, opts Options) error {
	app, err := NewApp(ctx, opts, true)
	if err != nil {
		return err
	}
	defer app.Close()

	records, err := app.Service.Similar(ctx, query, n)
	if err != nil {
		return err
	}
	return WriteMemoryRecords(w, records, opts.JSON)
}

// MemoryClear removes all stored research.
func MemoryClear(ctx context.Context, w io.Writer, opts Options) error {
	app, err := NewApp(ctx, opts, true)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Service.ClearMemory(ctx); err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, "Research memory cleared.")
	return err
}

// WriteResearch prints a run's answer, or its JSON form.
func WriteResearch(w io.Writer, resp *ResearchResponse, asJSON bool) error {
	if asJSON {
		return writeJSON(w, resp)
	}
	if err := research.RenderAnswer(w, resp.Answer); err != nil {
		return err
	}
	if resp.MemoryID != "" {
		_, err := fmt.Fprintf(w, "\nStored in memory as %s\n", resp.MemoryID)
		return err
	}
	return nil
}

// WriteClarify prints the clarification text, or its JSON form.
func WriteClarify(w io.Writer, resp *ClarifyResponse, asJSON bool) error {
	if asJSON {
		return writeJSON(w, resp)
	}
	_, err := fmt.Fprintf(w, "Search query: %s\n\n%s\n", resp.SearchQuery, strings.TrimSpace(resp.Clarification))
	return err
}

const maxPreviewLen = 200

// WriteMemoryRecords prints memory records, or their JSON form.
func WriteMemoryRecords(w io.Writer, records []storage.MemoryRecord, asJSON bool) error {
	if asJSON {
		return writeJSON(w, records)
	}
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No similar research found.")
		return err
	}
	var b strings.Builder
	for i, rec := range records {
		fmt.Fprintf(&b, "%d. %s (score %.3f)\n", i+1, rec.ID, rec.Score)
		fmt.Fprintf(&b, "   Query: %s\n", rec.Query)
		fmt.Fprintf(&b, "   Stored: %s\n", rec.CreatedAt.UTC().Format(time.RFC3339))
		fmt.Fprintf(&b, "   %s\n", truncateString(rec.Content, maxPreviewLen))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
