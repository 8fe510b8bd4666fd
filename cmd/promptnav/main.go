// Command promptnav opens a chat page in Chrome, injects a navigation menu
// listing every prompt the user sent, and keeps it current as the
// conversation grows.
//
// Usage:
//
//	promptnav -config promptnav.yaml               # page, sinks and control API from YAML
//	promptnav -url https://chatgpt.com/c/...       # quick single page (stdout sink)
//	promptnav -url ... -remote ws://127.0.0.1:9222/devtools/browser/...
//	promptnav -url ... -http :8080                 # with the control API and MCP at /mcp
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/promptnav/promptnav"
)

const version = "0.1.0"

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("PROMPTNAV_CONFIG"), "path to promptnav.yaml config file")
	pageURL := flag.String("url", os.Getenv("PROMPTNAV_URL"), "chat page URL (stdout sink unless -config adds more)")
	remote := flag.String("remote", os.Getenv("PROMPTNAV_REMOTE"), "WebSocket URL of a running Chrome to attach to")
	httpAddr := flag.String("http", os.Getenv("PROMPTNAV_HTTP"), "control API listen address, e.g. :8080")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(*configPath, *pageURL, *remote, *httpAddr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, "usage: promptnav -config <file> | -url <url> [-remote <ws>] [-http <addr>]")
		os.Exit(2)
	}

	if err := run(ctx, logger, cfg); err != nil {
		logger.Error("promptnav: fatal", "error", err)
		os.Exit(1)
	}
}

// loadConfig reads the YAML file when given; flags override it.
func loadConfig(path, pageURL, remote, httpAddr string) (*promptnav.Config, error) {
	cfg := promptnav.DefaultConfig()
	if path != "" {
		c, err := promptnav.LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = c
	}
	if pageURL != "" {
		cfg.Page.URL = pageURL
	}
	if remote != "" {
		cfg.Browser.Remote = remote
	}
	if httpAddr != "" {
		cfg.HTTP.Addr = httpAddr
	}
	if cfg.Page.URL == "" {
		return nil, errors.New("promptnav: no page url")
	}
	return cfg, nil
}

func run(ctx context.Context, logger *slog.Logger, cfg *promptnav.Config) error {
	sess := promptnav.NewSession(cfg, logger, promptnav.SinksFromConfig(cfg.Sinks, logger)...)
	if err := sess.Start(ctx); err != nil {
		sess.Stop()
		return fmt.Errorf("start: %w", err)
	}
	defer sess.Stop()

	var srv *http.Server
	if cfg.HTTP.Addr != "" {
		ctl := promptnav.NewControl(sess.Navigator, logger)
		mcpSrv := mcp.NewServer(&mcp.Implementation{Name: "promptnav", Version: version}, nil)
		ctl.RegisterMCP(mcpSrv)

		srv = &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           ctl.Routes(mcpSrv),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("promptnav: control API listening", "addr", cfg.HTTP.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("promptnav: control API", "error", err)
			}
		}()
	}

	<-ctx.Done()

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("promptnav: control API shutdown", "error", err)
		}
	}
	return nil
}
