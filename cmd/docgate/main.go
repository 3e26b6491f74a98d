// ABOUTME: Entry point for the docgate document tool server
// ABOUTME: Exposes partitioned document containers to MCP clients

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/kestrelworks/docgate/internal/auth"
	"github.com/kestrelworks/docgate/internal/config"
	"github.com/kestrelworks/docgate/internal/docstore"
	"github.com/kestrelworks/docgate/internal/mcp"
	"github.com/kestrelworks/docgate/internal/tools"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
     _                       _
  __| | ___   ___ __ _  __ _| |_ ___
 / _' |/ _ \ / __/ _' |/ _' | __/ _ \
| (_| | (_) | (_| (_| | (_| | ||  __/
 \__,_|\___/ \___\__, |\__,_|\__\___|
                 |___/
`

// getConfigPath returns the path to the docgate config file.
// Priority: DOCGATE_CONFIG env var > XDG_CONFIG_HOME/docgate/config.yaml >
// ~/.config/docgate/config.yaml. A missing default file means env-only
// configuration, signalled to config.Load by an empty path.
func getConfigPath() string {
	if envPath := os.Getenv("DOCGATE_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	path := filepath.Join(configDir, "docgate", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: docgate <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve                   Start the MCP server")
		fmt.Println("  health                  Check server health")
		fmt.Println("  token --subject NAME    Mint a client token")
		fmt.Println("  version                 Print the version")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "health":
		err = runHealth(ctx)
	case "token":
		err = runToken()
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging, cfg.Server.Stdio)

	store, err := openStore(cfg.Store, logger)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	registry := tools.NewRegistry(logger)
	registry.Timeout = cfg.Store.RequestTimeout
	if err := registry.RegisterPack(tools.ContainerPack(store)); err != nil {
		return fmt.Errorf("registering tools: %w", err)
	}

	var verifier auth.TokenVerifier
	if cfg.Auth.JWTSecret != "" {
		verifier = auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	}

	server, err := mcp.NewServer(mcp.Config{
		Registry:      registry,
		Logger:        logger,
		TokenVerifier: verifier,
		RequireAuth:   cfg.Auth.RequireAuth,
		ServerName:    "docgate",
		ServerVersion: version,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	// Stdio mode serves a single client and exits with it. No banner: stdout
	// belongs to the protocol.
	if cfg.Server.Stdio {
		logger.Info("serving on stdio", "store", cfg.Store.Driver)
		return server.ServeStdio(ctx, os.Stdin, os.Stdout)
	}

	printBanner(cfg, configPath)

	logger.Info("starting docgate",
		"http_addr", cfg.Server.HTTPAddr,
		"store", cfg.Store.Driver,
		"auth_required", cfg.Auth.RequireAuth,
	)

	mux := http.NewServeMux()
	server.RegisterRoutes(mux)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintln(w, `{"status":"ok"}`)
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// openStore constructs the configured document store backend.
func openStore(cfg config.StoreConfig, logger *slog.Logger) (docstore.Store, error) {
	switch cfg.Driver {
	case config.DriverCosmos:
		logger.Info("using cosmos store",
			"endpoint", cfg.Endpoint,
			"database", cfg.Database,
			"managed_identity", cfg.Key == "",
		)
		return docstore.NewCosmosStore(docstore.CosmosConfig{
			Endpoint: cfg.Endpoint,
			Key:      cfg.Key,
			Database: cfg.Database,
		})
	case config.DriverSQLite:
		logger.Info("using sqlite store", "path", cfg.Path)
		return docstore.NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func printBanner(cfg *config.Config, configPath string) {
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	green := color.New(color.FgGreen)

	green.Print("    ▶ ")
	if configPath == "" {
		fmt.Println("Config:  (environment only)")
	} else {
		fmt.Printf("Config:  %s\n", configPath)
	}
	green.Print("    ▶ ")
	fmt.Printf("HTTP:    %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Store:   %s\n", cfg.Store.Driver)
	if cfg.Auth.RequireAuth {
		green.Print("    ▶ ")
		fmt.Println("Auth:    required")
	}

	fmt.Println()
}

func setupLogger(cfg config.LoggingConfig, stdio bool) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	// In stdio mode, stdout carries the protocol; logs go to stderr.
	out := os.Stdout
	if stdio {
		out = os.Stderr
	}

	var handler slog.Handler
	if cfg.Format == "json" || stdio {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	// Format timestamp
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	// Colorize level
	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	// Print message
	buf.WriteString(r.Message)

	// Print handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	// Print record attrs
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/healthz", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}

// runToken mints a JWT for an MCP client.
// Supports both "--subject value" and "--subject=value" formats.
func runToken() error {
	var subject string
	ttl := 30 * 24 * time.Hour

	args := os.Args[2:]
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--subject" || arg == "-s":
			if i+1 >= len(args) {
				return fmt.Errorf("--subject requires a value")
			}
			subject = args[i+1]
			i++
		case strings.HasPrefix(arg, "--subject="):
			subject = strings.TrimPrefix(arg, "--subject=")
		case arg == "--ttl":
			if i+1 >= len(args) {
				return fmt.Errorf("--ttl requires a value")
			}
			d, err := time.ParseDuration(args[i+1])
			if err != nil {
				return fmt.Errorf("parsing --ttl: %w", err)
			}
			ttl = d
			i++
		case strings.HasPrefix(arg, "--ttl="):
			d, err := time.ParseDuration(strings.TrimPrefix(arg, "--ttl="))
			if err != nil {
				return fmt.Errorf("parsing --ttl: %w", err)
			}
			ttl = d
		case strings.HasPrefix(arg, "-"):
			return fmt.Errorf("unknown flag: %s", arg)
		default:
			return fmt.Errorf("unexpected argument: %s", arg)
		}
	}

	subject = strings.TrimSpace(subject)
	if subject == "" {
		return fmt.Errorf("--subject flag is required")
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is not configured")
	}

	verifier := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	token, err := verifier.Generate(subject, ttl)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Printf("  ✓ Token for %s (expires %s)\n", subject, time.Now().Add(ttl).UTC().Format("Jan 02, 2006"))
	fmt.Println(token)
	return nil
}
