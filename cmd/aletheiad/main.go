// Aletheia daemon — hosts the metacognitive control plane over a loopback
// HTTP API. On start it binds the configured (or a dynamic) port, writes the
// port file for client discovery, and serves until a shutdown signal or
// POST /admin/shutdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/metaygn/aletheia/pkg/api"
	"github.com/metaygn/aletheia/pkg/config"
	"github.com/metaygn/aletheia/pkg/services"
	"github.com/metaygn/aletheia/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	if err := run(); err != nil {
		slog.Error("daemon failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configDir := flag.String("config-dir",
		getEnv("ALETHEIA_CONFIG_DIR", "."),
		"Path to configuration directory")
	host := flag.String("host", "", "Bind host (overrides config)")
	port := flag.Int("port", -1, "Bind port (overrides config; 0 = dynamic)")
	dbPath := flag.String("db-path", "", "SQLite database path (overrides config)")
	flag.Parse()

	// Load .env from the config directory; absence is fine.
	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err == nil {
		slog.Info("Loaded environment", "path", envPath)
	}

	cfg, err := config.Initialize(*configDir)
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port >= 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	setupLogging(cfg)
	slog.Info("Starting aletheiad", "version", version.Full())

	baseDir, err := config.BaseDir()
	if err != nil {
		return err
	}
	resolvedDB := cfg.ResolveDatabasePath(baseDir)
	slog.Info("Opening database", "path", resolvedDB)

	app, err := services.NewApp(cfg, resolvedDB)
	if err != nil {
		return err
	}

	server := api.NewServer(app)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", addr, err)
	}
	boundPort := listener.Addr().(*net.TCPAddr).Port
	slog.Info("aletheiad listening", "addr", listener.Addr().String())

	// Publish the bound port so clients can discover the daemon. A write
	// failure here is fatal: an undiscoverable daemon is useless.
	portFile := config.PortFilePath(baseDir)
	if err := os.WriteFile(portFile, []byte(fmt.Sprintf("%d\n", boundPort)), 0o644); err != nil {
		return fmt.Errorf("failed to write port file: %w", err)
	}
	slog.Info("Port file written", "path", portFile)

	serveErr := make(chan error, 1)
	go func() {
		if err := server.StartWithListener(listener); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		removePortFile(portFile)
		return err
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig.String())
	case <-server.ShutdownRequested():
		slog.Info("Shutdown requested via admin endpoint")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("Graceful shutdown failed", "error", err)
	}
	removePortFile(portFile)
	slog.Info("aletheiad stopped")
	return nil
}

func setupLogging(cfg *config.Config) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// removePortFile cleans up the discovery file on shutdown; a stale file is
// treated as "daemon not running" by clients, so failure is non-fatal.
func removePortFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to remove port file", "path", path, "error", err)
	}
}
