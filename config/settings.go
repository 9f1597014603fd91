// Package config provides application settings loaded from environment variables.
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application
// - Provider-specific configuration lookup
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Settings holds all application configuration.
type Settings struct {
	LLM      LLMConfig
	Search   SearchConfig
	Research ResearchConfig
	Memory   MemoryConfig
	Log      LogConfig
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Provider    string
	Model       string
	BaseURL     string
	MaxTokens   uint32
	Temperature float64
}

// SearchConfig holds search provider and cache configuration.
type SearchConfig struct {
	TavilyAPIKey  string
	TavilyBaseURL string
	Timeout       time.Duration
	// RedisAddr enables the search cache when non-empty.
	RedisAddr string
	CacheTTL  time.Duration
}

// ResearchConfig holds the defaults applied to runs that leave them unset.
type ResearchConfig struct {
	SearchDepth string
	MaxResults  int
	MaxTokens   int
}

// MemoryConfig holds similarity memory configuration.
type MemoryConfig struct {
	DBPath string
	// Embedder is "hash" for the offline embedder or "openai".
	Embedder       string
	EmbeddingModel string
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level       string
	Development bool
}

// providerInfo holds configuration for a specific LLM provider.
type providerInfo struct {
	modelEnv     string
	defaultModel string
	apiKeyEnv    string
}

// Supported providers and their configuration.
var providers = map[string]providerInfo{
	"openai":    {"OPENAI_MODEL", "gpt-4o-mini", "OPENAI_API_KEY"},
	"anthropic": {"ANTHROPIC_MODEL", "claude-sonnet-4-20250514", "ANTHROPIC_API_KEY"},
	"deepseek":  {"DEEPSEEK_MODEL", "deepseek-chat", "DEEPSEEK_API_KEY"},
	"gemini":    {"GEMINI_MODEL", "gemini-2.5-flash", "GEMINI_API_KEY"},
}

// Provider aliases map to canonical names.
var providerAliases = map[string]string{
	"claude": "anthropic",
	"google": "gemini",
	"gpt":    "openai",
}

var embedders = map[string]bool{"hash": true, "openai": true}

const defaultProvider = "openai"

// New creates settings for the specified provider, loading values from environment variables.
// An empty provider falls back to LLM_PROVIDER, then openai.
// Returns an error if the provider is unknown or environment variables contain invalid values.
func New(provider string) (Settings, error) {
	if provider == "" {
		provider = getEnvString("LLM_PROVIDER", defaultProvider)
	}
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return Settings{}, err
	}

	maxTokens, err := getEnvUint32("LLM_MAX_TOKENS", 4096)
	if err != nil {
		return Settings{}, err
	}

	temperature, err := getEnvFloat64("LLM_TEMPERATURE", 0.7)
	if err != nil {
		return Settings{}, err
	}

	timeoutSeconds, err := getEnvInt("SEARCH_TIMEOUT_SECONDS", 30)
	if err != nil {
		return Settings{}, err
	}

	cacheTTLSeconds, err := getEnvInt("SEARCH_CACHE_TTL_SECONDS", 3600)
	if err != nil {
		return Settings{}, err
	}

	maxResults, err := getEnvInt("RESEARCH_MAX_RESULTS", 2)
	if err != nil {
		return Settings{}, err
	}

	researchTokens, err := getEnvInt("RESEARCH_MAX_TOKENS", 256)
	if err != nil {
		return Settings{}, err
	}

	development, err := getEnvBool("LOG_DEVELOPMENT", false)
	if err != nil {
		return Settings{}, err
	}

	embedder := strings.ToLower(getEnvString("MEMORY_EMBEDDER", "hash"))
	if !embedders[embedder] {
		return Settings{}, fmt.Errorf("invalid value for MEMORY_EMBEDDER: %q", embedder)
	}

	return Settings{
		LLM: LLMConfig{
			Provider:    provider,
			Model:       getEnvString(info.modelEnv, info.defaultModel),
			BaseURL:     os.Getenv("LLM_BASE_URL"),
			MaxTokens:   maxTokens,
			Temperature: temperature,
		},
		Search: SearchConfig{
			TavilyAPIKey:  os.Getenv("TAVILY_API_KEY"),
			TavilyBaseURL: getEnvString("TAVILY_BASE_URL", "https://api.tavily.com"),
			Timeout:       time.Duration(timeoutSeconds) * time.Second,
			RedisAddr:     os.Getenv("REDIS_ADDR"),
			CacheTTL:      time.Duration(cacheTTLSeconds) * time.Second,
		},
		Research: ResearchConfig{
			SearchDepth: getEnvString("RESEARCH_SEARCH_DEPTH", "basic"),
			MaxResults:  maxResults,
			MaxTokens:   researchTokens,
		},
		Memory: MemoryConfig{
			DBPath:         getEnvString("MEMORY_DB_PATH", ".deepresearch/memory.db"),
			Embedder:       embedder,
			EmbeddingModel: getEnvString("MEMORY_EMBEDDING_MODEL", "text-embedding-3-small"),
		},
		Log: LogConfig{
			Level:       getEnvString("LOG_LEVEL", "info"),
			Development: development,
		},
	}, nil
}

// MustNew creates settings for the specified provider.
// Panics if the provider is unknown or environment variables are invalid.
// Use this only when configuration errors should be fatal.
func MustNew(provider string) Settings {
	settings, err := New(provider)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return settings
}

// normalizeProvider converts provider aliases to canonical names.
func normalizeProvider(provider string) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if canonical, ok := providerAliases[provider]; ok {
		return canonical
	}
	return provider
}

// getProviderInfo returns configuration for a provider.
func getProviderInfo(provider string) (providerInfo, error) {
	info, ok := providers[provider]
	if !ok {
		return providerInfo{}, fmt.Errorf("unknown provider: %q", provider)
	}
	return info, nil
}

// APIKeyFor returns the API key for a provider from environment variables.
func APIKeyFor(provider string) (string, error) {
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return "", err
	}

	key := os.Getenv(info.apiKeyEnv)
	if key == "" {
		return "", fmt.Errorf("%s environment variable not set", info.apiKeyEnv)
	}
	return key, nil
}

// SupportedProviders returns the list of supported provider names.
func SupportedProviders() []string {
	result := make([]string, 0, len(providers))
	for name := range providers {
		result = append(result, name)
	}
	return result
}

// Environment variable helpers with proper error handling

func getEnvString(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvUint32(key string, defaultVal uint32) (uint32, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return uint32(i), nil
}

func getEnvFloat64(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return f, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return b, nil
}
