// Copyright 2026 © The Agentrt Authors
// SPDX-License-Identifier: Apache-2.0

// Command orchestrator is the runnable demonstration of the wiring: it
// loads configuration, builds the LLM provider, skill registry, and
// memory tiers, and drives one agent turn per stdin line, streaming
// execution events to stdout.
package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	_ "modernc.org/sqlite"

	"github.com/orbitune/agentrt/pkg/agent"
	agentctx "github.com/orbitune/agentrt/pkg/context"
	"github.com/orbitune/agentrt/pkg/core"
	"github.com/orbitune/agentrt/pkg/dag"
	"github.com/orbitune/agentrt/pkg/llm"
	"github.com/orbitune/agentrt/pkg/longmem"
	longmemollama "github.com/orbitune/agentrt/pkg/longmem/ollama"
	"github.com/orbitune/agentrt/pkg/registry"
	"github.com/orbitune/agentrt/pkg/skills/local"
	"github.com/orbitune/agentrt/pkg/skills/mcp"
	"github.com/orbitune/agentrt/pkg/store"
	"github.com/orbitune/agentrt/pkg/telemetry"

	"github.com/orbitune/agentrt/pkg/config"
	"github.com/orbitune/agentrt/providers/anthropic"
	"github.com/orbitune/agentrt/providers/openai"
)

func main() {
	configPath := flag.String("config", "", "Path to config YAML")
	profile := flag.String("profile", "", "Config profile to overlay (dev, prod)")
	agentID := flag.String("agent", "orchestrator", "Agent ID")
	sessionID := flag.String("session", "cli-session", "Session ID for memory and task scoping")
	userID := flag.String("user", "", "User ID attached to each run")
	prompt := flag.String("prompt", "", "Single prompt to run, then exit (non-interactive)")
	jsonOutput := flag.Bool("json", false, "Emit newline-delimited JSON events instead of formatted text")
	noTelemetry := flag.Bool("no-telemetry", false, "Disable telemetry export")
	watch := flag.Bool("watch", false, "Watch the config file and hot-reload the default model and log level")
	flag.Parse()

	cfg, err := loadConfig(*configPath, *profile)
	if err != nil {
		fatal(fmt.Errorf("config: %w", err))
	}

	logger := newLogger(cfg.Log)

	exporter := cfg.Telemetry.Exporter
	if *noTelemetry || !cfg.Telemetry.Enabled {
		exporter = "none"
	}
	shutdown, err := telemetry.InitWithConfig(cfg.Telemetry.ServiceName, "v0.1.0", telemetry.Config{
		Exporter:     exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
	})
	if err != nil {
		fatal(fmt.Errorf("telemetry: %w", err))
	}
	defer func() { _ = shutdown(context.Background()) }()

	provider, err := newProvider(cfg.LLM)
	if err != nil {
		fatal(fmt.Errorf("llm provider: %w", err))
	}

	reg := registry.New(logger)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := wireSkillSources(ctx, reg, cfg.Skills, logger); err != nil {
		fatal(fmt.Errorf("skills: %w", err))
	}

	taskRepo := store.NewInMemoryTasks()
	var dagRunner *dag.Executor
	if cfg.Agent.EnableDAGTools {
		dagRunner = dag.New(taskRepo, reg, logger)
	}

	opts := []agent.Option{
		agent.WithToolRegistry(reg),
		agent.WithTaskStore(taskRepo),
		agent.WithContextManager(agentctx.New(cfg.Agent.ContextMaxTokens, cfg.Agent.ContextReservedTokens)),
		agent.WithMaxIterations(cfg.Agent.MaxIterations),
		agent.WithToolTimeout(time.Duration(cfg.Agent.ToolTimeoutSeconds) * time.Second),
		agent.WithLogger(logger),
	}
	if dagRunner != nil {
		opts = append(opts, agent.WithDAGExecutor(dagRunner))
	}
	if mem, err := newLongTermMemory(ctx, cfg.LongMem, logger); err != nil {
		fatal(fmt.Errorf("long-term memory: %w", err))
	} else if mem != nil {
		opts = append(opts, agent.WithLongTermMemory(mem))
	}

	ag := agent.New(*agentID, provider, cfg.LLM.Model, opts...)

	if *watch {
		if *configPath == "" {
			logger.Warn("--watch has no effect without --config")
		} else {
			watcher, _, err := config.WatchConfig(ctx, *configPath, config.WithWatchLogger(logger))
			if err != nil {
				fatal(fmt.Errorf("config watch: %w", err))
			}
			watcher.OnChange(func(newCfg *config.Config) {
				ag.SetModel(newCfg.LLM.Model)
				ag.SetLogger(newLogger(newCfg.Log))
				logger.Info("config reload applied", "model", newCfg.LLM.Model, "log_level", newCfg.Log.Level)
			})
			defer watcher.Stop()
		}
	}

	if !*jsonOutput {
		fmt.Printf("agentrt orchestrator: agent=%s model=%s provider=%s\n", *agentID, cfg.LLM.Model, cfg.LLM.Provider)
		fmt.Println("Type a prompt and press enter. Ctrl+D or 'exit' to quit.")
		fmt.Println()
	}

	if *prompt != "" {
		runTurn(ctx, ag, *sessionID, *userID, *prompt, *jsonOutput)
		return
	}

	interactive := isatty.IsTerminal(os.Stdin.Fd()) && !*jsonOutput
	scanner := bufio.NewScanner(os.Stdin)
	for {
		if interactive {
			fmt.Print("> ")
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		runTurn(ctx, ag, *sessionID, *userID, line, *jsonOutput)
	}
}

func loadConfig(path, profile string) (*config.Config, error) {
	if profile != "" {
		return config.LoadWithProfile(path, profile)
	}
	return config.Load(path)
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	return telemetry.ConfigureSlog(os.Stderr, cfg.Level, cfg.Format)
}

func newProvider(cfg config.LLMConfig) (llm.Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "ollama", "":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return llm.NewOllama(baseURL), nil
	case "openai":
		opts := []openai.Option{openai.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		if cfg.APIKey != "" {
			return openai.NewWithAPIKey(cfg.APIKey, opts...), nil
		}
		return openai.New(opts...), nil
	case "anthropic":
		opts := []anthropic.Option{anthropic.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		if cfg.MaxTokens > 0 {
			opts = append(opts, anthropic.WithMaxTokens(int64(cfg.MaxTokens)))
		}
		if cfg.APIKey != "" {
			return anthropic.NewWithAPIKey(cfg.APIKey, opts...), nil
		}
		return anthropic.New(opts...), nil
	case "mock":
		return &llm.MockProvider{Response: "This is a mock response."}, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

func wireSkillSources(ctx context.Context, reg *registry.Registry, cfg config.SkillsConfig, logger *slog.Logger) error {
	for _, dir := range cfg.LocalDirs {
		name := strings.TrimSuffix(dir[strings.LastIndex(dir, "/")+1:], "/")
		if name == "" {
			name = dir
		}
		src := local.New(name, dir, logger)
		if err := reg.RegisterSource(ctx, src); err != nil {
			logger.Warn("skills: failed to register local source, skipping", "dir", dir, "error", err)
		}
	}
	for _, srv := range cfg.MCPServers {
		if !srv.Enabled {
			continue
		}
		mcpCfg := mcp.Config{
			Name:    srv.Name,
			Type:    mcp.TransportType(srv.Type),
			Command: srv.Command,
			Args:    srv.Args,
			URL:     srv.URL,
			Enabled: srv.Enabled,
		}
		src := mcp.New(mcpCfg, logger)
		if err := reg.RegisterSource(ctx, src); err != nil {
			logger.Warn("skills: failed to register mcp source, skipping", "server", srv.Name, "error", err)
		}
	}
	return nil
}

func newLongTermMemory(ctx context.Context, cfg config.LongMemConfig, logger *slog.Logger) (*longmem.Memory, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	var repo store.MemoryRepo
	switch strings.ToLower(cfg.Provider) {
	case "sqlite":
		db, err := sql.Open("sqlite", "agentrt-memory.db")
		if err != nil {
			return nil, err
		}
		sqliteRepo, err := store.NewSQLiteMemory(db)
		if err != nil {
			return nil, err
		}
		repo = sqliteRepo
	case "inmemory", "":
		repo = store.NewInMemoryMemory()
	default:
		return nil, fmt.Errorf("unknown long-term memory provider %q", cfg.Provider)
	}

	var embedder longmem.Embedder
	if strings.ToLower(cfg.EmbedderProvider) == "ollama" {
		embedder = longmemollama.New(cfg.EmbedderBaseURL, cfg.EmbedderModel)
	}

	return longmem.New(repo, embedder, logger), nil
}

func runTurn(ctx context.Context, ag *agent.Agent, sessionID, userID, input string, jsonOutput bool) {
	turnCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := ag.Run(turnCtx, agent.RunInput{
		SessionID: sessionID,
		UserID:    userID,
		Input:     input,
	})
	for ev := range events {
		printEvent(ev, jsonOutput)
	}
}

func printEvent(ev core.Event, jsonOutput bool) {
	if jsonOutput {
		printJSONEvent(ev)
		return
	}
	switch ev.Kind {
	case core.EventContent:
		fmt.Print(ev.Text)
	case core.EventThought:
		fmt.Printf("\n[thought] %s\n", ev.Text)
	case core.EventPlan:
		fmt.Printf("[plan] %s\n", strings.Join(ev.Steps, " -> "))
	case core.EventAction:
		fmt.Printf("[action] %s %v\n", ev.ToolName, ev.Input)
	case core.EventObservation:
		fmt.Printf("[observation] %s\n", ev.Result)
	case core.EventTaskCreated:
		fmt.Printf("[task_created] %s deps=%v\n", ev.TaskID, ev.Dependencies)
	case core.EventTaskCompleted:
		fmt.Printf("[task_completed] %s result=%v\n", ev.TaskID, ev.TaskResult)
	case core.EventTaskFailed:
		fmt.Printf("[task_failed] %s error=%s\n", ev.TaskID, ev.TaskError)
	case core.EventAnswer:
		fmt.Printf("\n%s\n\n", ev.Text)
	case core.EventError:
		msg := ""
		if ev.Err != nil {
			msg = ev.Err.Error()
		}
		fmt.Fprintf(os.Stderr, "[error] %s\n", msg)
	}
}

var stdoutEncoder = json.NewEncoder(os.Stdout)

func printJSONEvent(ev core.Event) {
	if ev.Kind == core.EventError && ev.Err != nil {
		ev.Result = ev.Err.Error()
	}
	_ = stdoutEncoder.Encode(ev)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
