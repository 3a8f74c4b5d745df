package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the runtime's full layered configuration: LLM provider
// selection, memory tiers, skill sources, DAG bounds, agent loop limits,
// and telemetry — assembled from defaults, an optional YAML file, and
// environment overrides, in that order.
type Config struct {
	Log       LogConfig       `koanf:"log"`
	LLM       LLMConfig       `koanf:"llm"`
	ShortMem  ShortMemConfig  `koanf:"short_term_memory"`
	LongMem   LongMemConfig   `koanf:"long_term_memory"`
	Skills    SkillsConfig    `koanf:"skills"`
	DAG       DAGConfig       `koanf:"dag"`
	Agent     AgentConfig     `koanf:"agent"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type LLMConfig struct {
	Provider    string  `koanf:"provider"` // openai, anthropic, ollama
	Model       string  `koanf:"model"`
	BaseURL     string  `koanf:"base_url"`
	APIKey      string  `koanf:"api_key"`
	Temperature float64 `koanf:"temperature"`
	MaxTokens   int     `koanf:"max_tokens"`
}

// ShortMemConfig bounds the per-session key/value store and its LRU
// eviction. TTL and sweep interval are seconds, not time.Duration —
// koanf's plain Unmarshal has no duration decode hook wired in, so we
// keep config fields as the primitive koanf already knows how to decode.
type ShortMemConfig struct {
	MaxSessions       int `koanf:"max_sessions"`
	DefaultTTLSeconds int `koanf:"default_ttl_seconds"`
	SweepIntervalSecs int `koanf:"sweep_interval_seconds"`
}

type LongMemConfig struct {
	Enabled          bool   `koanf:"enabled"`
	Provider         string `koanf:"provider"` // inmemory, sqlite
	QdrantAddr       string `koanf:"qdrant_addr"`
	QdrantCollection string `koanf:"qdrant_collection"`
	EmbedderProvider string `koanf:"embedder_provider"` // ollama, none
	EmbedderBaseURL  string `koanf:"embedder_base_url"`
	EmbedderModel    string `koanf:"embedder_model"`
}

// MCPServerConfig declares one remote skill source.
type MCPServerConfig struct {
	Name    string   `koanf:"name"`
	Type    string   `koanf:"type"` // stdio, sse
	Command string   `koanf:"command"`
	Args    []string `koanf:"args"`
	URL     string   `koanf:"url"`
	Enabled bool     `koanf:"enabled"`
}

type SkillsConfig struct {
	LocalDirs  []string          `koanf:"local_dirs"`
	MCPServers []MCPServerConfig `koanf:"mcp_servers"`
}

type DAGConfig struct {
	MaxRounds int `koanf:"max_rounds"`
}

type AgentConfig struct {
	MaxIterations        int  `koanf:"max_iterations"`
	ToolTimeoutSeconds   int  `koanf:"tool_timeout_seconds"`
	ContextMaxTokens     int  `koanf:"context_max_tokens"`
	ContextReservedTokens int `koanf:"context_reserved_tokens"`
	EnableDAGTools       bool `koanf:"enable_dag_tools"`
}

type TelemetryConfig struct {
	Enabled            bool              `koanf:"enabled"`
	ServiceName        string            `koanf:"service_name"`
	Exporter           string            `koanf:"exporter"` // stdout, otlp
	OTLPEndpoint       string            `koanf:"otlp_endpoint"`
	OTLPHeaders        map[string]string `koanf:"otlp_headers"`
	OTLPUser           string            `koanf:"otlp_user"`
	OTLPToken          string            `koanf:"otlp_token"`
	OTLPTimeoutSeconds int               `koanf:"otlp_timeout_seconds"`
}

// koanfInstance is the concrete type behind the package-level k, aliased
// for use by resetDefaults.
type koanfInstance = koanf.Koanf

// Global k instance, matching the teacher's single-process-config idiom.
var k = koanf.New(".")

// resetDefaults replaces k with a fresh instance seeded with defaults,
// used by Load and by the CLI/profile loaders so repeated calls (as in
// tests) never see state left over from a previous call.
func resetDefaults() *koanfInstance {
	k = koanf.New(".")

	k.Set("log.level", "info")
	k.Set("log.format", "text")

	k.Set("llm.provider", "ollama")
	k.Set("llm.model", "qwen2.5-coder:7b-instruct-q5_K_M")
	k.Set("llm.base_url", "http://localhost:11434")
	k.Set("llm.max_tokens", 4096)

	k.Set("short_term_memory.max_sessions", 1000)
	k.Set("short_term_memory.default_ttl_seconds", 0)
	k.Set("short_term_memory.sweep_interval_seconds", 300)

	k.Set("long_term_memory.enabled", false)
	k.Set("long_term_memory.provider", "inmemory")
	k.Set("long_term_memory.qdrant_addr", "localhost:6334")
	k.Set("long_term_memory.qdrant_collection", "agentrt-memory")
	k.Set("long_term_memory.embedder_provider", "ollama")
	k.Set("long_term_memory.embedder_base_url", "http://localhost:11434")
	k.Set("long_term_memory.embedder_model", "nomic-embed-text")

	k.Set("dag.max_rounds", 50)

	k.Set("agent.max_iterations", 10)
	k.Set("agent.tool_timeout_seconds", 60)
	k.Set("agent.context_max_tokens", 8000)
	k.Set("agent.context_reserved_tokens", 1000)
	k.Set("agent.enable_dag_tools", true)

	k.Set("telemetry.enabled", false)
	k.Set("telemetry.service_name", "agentrt")

	return k
}

func fileProvider(path string) *file.File {
	return file.Provider(path)
}

func yamlParser() *yaml.YAML {
	return yaml.Parser()
}

// loadEnv layers AGENTRT_-prefixed environment overrides onto k. Double
// underscore separates nesting so single-underscore key names
// (short_term_memory, qdrant_addr, ...) survive:
// AGENTRT_LLM__PROVIDER -> llm.provider,
// AGENTRT_SHORT_TERM_MEMORY__MAX_SESSIONS -> short_term_memory.max_sessions.
func loadEnv() error {
	return k.Load(env.Provider("AGENTRT_", ".", func(s string) string {
		trimmed := strings.ToLower(strings.TrimPrefix(s, "AGENTRT_"))
		return strings.Replace(trimmed, "__", ".", -1)
	}), nil)
}

// finalize loads environment overrides and unmarshals k into a Config.
func finalize() (*Config, error) {
	if err := loadEnv(); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load builds a Config from defaults, an optional YAML file at path, and
// AGENTRT_-prefixed environment overrides (e.g. AGENTRT_LLM__PROVIDER
// maps to llm.provider).
func Load(path string) (*Config, error) {
	resetDefaults()

	if path != "" {
		if err := k.Load(fileProvider(path), yamlParser()); err != nil {
			return nil, err
		}
	}

	return finalize()
}
