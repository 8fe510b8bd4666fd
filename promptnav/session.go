package promptnav

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hazyhaar/promptnav/idgen"
	"github.com/hazyhaar/promptnav/promptnav/internal/browser"
	"github.com/hazyhaar/promptnav/promptnav/internal/config"
	"github.com/hazyhaar/promptnav/promptnav/internal/sink"
)

// Session is the top-level orchestrator. It owns the browser, the tab
// showing the chat page, the bridge into that page and the Navigator
// running on it.
type Session struct {
	cfg    *config.Config
	mgr    *browser.Manager
	sinkR  *sink.Router
	logger *slog.Logger

	mu     sync.Mutex
	tab    *browser.Tab
	bridge *browser.Bridge
	nav    *Navigator
}

// NewSession creates a Session from configuration. Events go to every sink.
func NewSession(cfg *Config, logger *slog.Logger, sinks ...Sink) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.ApplyDefaults()

	mgr := browser.NewManager(browser.Config{
		RemoteURL:        cfg.Browser.Remote,
		ResourceBlocking: cfg.Browser.ResourceBlocking,
		Stealth:          browser.ParseStealth(cfg.Browser.Stealth),
		XvfbDisplay:      cfg.Browser.XvfbDisplay,
		UserDataDir:      cfg.Browser.UserDataDir,
		Logger:           logger,
	})

	return &Session{
		cfg:    cfg,
		mgr:    mgr,
		sinkR:  sink.NewRouter(logger, sinks...),
		logger: logger,
	}
}

// Start launches the browser, opens the page and initialises the
// Navigator. A page that cannot host the navigator is logged and left
// alone; the session keeps running with an inactive Navigator.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nav != nil {
		return nil
	}
	if s.cfg.Page.URL == "" {
		return fmt.Errorf("promptnav: no page url configured")
	}
	if _, err := s.mgr.Start(ctx); err != nil {
		return fmt.Errorf("promptnav: start browser: %w", err)
	}

	pageID := s.cfg.Page.ID
	if pageID == "" {
		pageID = idgen.New()
	}
	tab, err := browser.OpenTab(ctx, s.mgr, s.cfg.Page.URL, pageID)
	if err != nil {
		return fmt.Errorf("promptnav: open tab: %w", err)
	}

	sessionID := idgen.New()
	bridge, err := browser.NewBridge(ctx, tab.Page, sessionID, s.logger)
	if err != nil {
		tab.Close()
		return fmt.Errorf("promptnav: bridge: %w", err)
	}

	nav := New(bridge, bridge, Options{
		Prompts:   s.cfg.Prompts,
		Sink:      s.sinkR,
		PageURL:   s.cfg.Page.URL,
		SessionID: sessionID,
		Logger:    s.logger.With("page", pageID),
	})
	if err := nav.Init(ctx); err != nil {
		s.logger.Error("promptnav: navigator inactive", "url", s.cfg.Page.URL, "error", err)
	}

	s.tab, s.bridge, s.nav = tab, bridge, nav
	s.logger.Info("promptnav: session started",
		"url", s.cfg.Page.URL, "page", pageID, "session", sessionID)
	return nil
}

// Navigator returns the running Navigator, or nil before Start.
func (s *Session) Navigator() *Navigator {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nav
}

// Stop tears down the Navigator and shuts down the browser.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nav != nil {
		s.nav.Teardown()
		s.nav = nil
	}
	if s.bridge != nil {
		if err := s.bridge.Close(); err != nil {
			s.logger.Debug("promptnav: close bridge", "error", err)
		}
		s.bridge = nil
	}
	if s.tab != nil {
		s.tab.Close()
		s.tab = nil
	}
	s.sinkR.Close()
	s.mgr.Close()
	s.logger.Info("promptnav: session stopped")
}
