package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"cora/internal/config"
	"cora/internal/hook"
	"cora/internal/hook/handlers"
	"cora/internal/llm"
	"cora/internal/llm/ollama"
	"cora/internal/llm/openai"
	"cora/internal/logger"
	"cora/internal/mcp"
	"cora/internal/notes"
	"cora/internal/relay"
	"cora/internal/router"
	"cora/internal/tool"
	"cora/internal/tool/builtin"
	"cora/internal/voice"
)

// App holds the wired-up subsystems shared by every subcommand.
type App struct {
	Config   *config.Config
	Static   *config.Static
	Log      *logger.Logger
	Hooks    *hook.Manager
	Registry *tool.Registry
	Executor *tool.Executor
	Speaker  *voice.Speaker
	Router   *router.Router
	Relay    *relay.Relay
	Pairing  *relay.PairingManager
	Primary  llm.Client
	Local    *ollama.Client
	MCP      *mcp.Manager
}

// newApp loads configuration and builds the full tool stack. The MCP
// servers are only started when withMCP is set, since short commands
// like doctor should not spawn subprocesses.
func newApp(ctx context.Context, withMCP bool) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	static, err := config.LoadStaticWithDefaults()
	if err != nil {
		return nil, err
	}

	logLevel := logger.LevelInfo
	if verbose {
		logLevel = logger.LevelDebug
	}
	log := logger.NewLogger(os.Stdout, logLevel)
	if noColor {
		log.SetColorMode(false)
	}

	registry := tool.NewRegistry(log)
	executor := tool.NewExecutor(registry, log)

	hookManager := hook.NewManager()
	hookManager.Register(handlers.NewShellSafetyHandler(static.Safety.Blocked))
	if !quiet {
		hookManager.Register(handlers.NewShellConfirmHandler(static.Safety.Confirm))
	}
	executor.SetHookManager(hookManager)

	// AI backends: the local daemon is always wired, the primary client
	// follows the configured provider.
	local := ollama.NewClient(cfg.GetString("ai.ollama_url"), cfg.GetString("ai.ollama_model"))
	var primary llm.Client = local
	if cfg.GetString("ai.provider") == "openai" && cfg.GetString("ai.openai_key") != "" {
		primary = openai.NewClient(
			cfg.GetString("ai.openai_key"),
			cfg.GetString("ai.openai_model"),
			cfg.GetString("ai.openai_base_url"),
		)
	}

	speaker := voice.NewSpeaker(cfg.GetString("voice.engine"), cfg.GetInt("voice.rate"), log)

	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	noteStore, err := notes.Open(filepath.Join(dir, "notes.json"))
	if err != nil {
		return nil, err
	}

	builtin.RegisterSystem(registry)
	builtin.RegisterFiles(registry)
	builtin.RegisterShell(registry)
	builtin.RegisterWeb(registry)
	builtin.RegisterNotes(registry, noteStore)
	builtin.RegisterVoice(registry, speaker)
	builtin.RegisterAI(registry, primary, local)

	mcpManager := mcp.NewManager(registry)
	if withMCP && len(static.MCP.Servers) > 0 {
		if err := mcpManager.Initialize(ctx, static.MCP); err != nil {
			// Missing MCP servers degrade the tool set, not the process
			log.Warn("MCP initialization: %v", err)
		}
	}

	store := relay.NewStore(cfg.GetString("relay.url"), cfg.GetString("relay.anon_key"))
	anchorID := cfg.GetString("anchor.id")

	rel := relay.New(store, executor, anchorID, systemSnapshot(registry), log, relay.Options{
		PollInterval:      secondsOrDefault(cfg.GetInt("relay.poll_interval"), 2),
		HeartbeatInterval: secondsOrDefault(cfg.GetInt("relay.heartbeat_interval"), 30),
	})

	pairing := relay.NewPairingManager(store, anchorID, cfg.GetString("anchor.name"),
		cfg.GetString("web.pair_url"), log)

	return &App{
		Config:   cfg,
		Static:   static,
		Log:      log,
		Hooks:    hookManager,
		Registry: registry,
		Executor: executor,
		Speaker:  speaker,
		Router:   router.New(registry),
		Relay:    rel,
		Pairing:  pairing,
		Primary:  primary,
		Local:    local,
		MCP:      mcpManager,
	}, nil
}

// EnableToolConfirm adds the interactive confirmation prompt for the
// configured tool list. Only interactive surfaces call this: the relay
// daemon has no terminal to answer on.
func (a *App) EnableToolConfirm() {
	if quiet || len(a.Static.Safety.ConfirmTools) == 0 {
		return
	}
	a.Hooks.Register(handlers.NewToolConfirmHandler(a.Static.Safety.ConfirmTools...))
}

// Close shuts down the background workers.
func (a *App) Close() {
	a.Relay.Stop()
	a.Pairing.StopPoll()
	a.Speaker.Stop()
	if err := a.MCP.Close(); err != nil {
		a.Log.Debug("MCP shutdown: %v", err)
	}
}

// systemSnapshot builds the heartbeat payload from the system_info tool
// plus the live tool list.
func systemSnapshot(registry *tool.Registry) relay.SystemInfoFunc {
	return func(ctx context.Context) map[string]any {
		info := map[string]any{}
		// Call the handler directly so heartbeats don't flood the
		// tool-call log every 30 seconds.
		if spec, ok := registry.Get("system_info"); ok {
			if value, err := spec.Handler(ctx, tool.Args{}); err == nil {
				if m, ok := value.(map[string]any); ok {
					info = m
				}
			}
		}
		info["active_tools"] = registry.Names()
		return info
	}
}

func secondsOrDefault(secs, def int) time.Duration {
	if secs <= 0 {
		secs = def
	}
	return time.Duration(secs) * time.Second
}

// speakReply voices a reply when voice output is on.
func (a *App) speakReply(text string) {
	if quiet || !a.Config.GetBool("voice.enabled") || !a.Speaker.Available() {
		return
	}
	if len(text) > 500 {
		text = text[:500]
	}
	if err := a.Speaker.Speak(text); err != nil {
		a.Log.Debug("speech skipped: %v", err)
	}
}
