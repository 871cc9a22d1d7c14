// Package preview serves the most recently compiled page on a local HTTP
// server and reloads connected browsers whenever it changes.
package preview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/a-h/templ"
	"github.com/conneroisu/pagecraft/internal/build"
	pcerrors "github.com/conneroisu/pagecraft/internal/errors"
	"github.com/conneroisu/pagecraft/internal/logging"
	"github.com/conneroisu/pagecraft/internal/middleware"
	"github.com/conneroisu/pagecraft/internal/version"
	"github.com/conneroisu/pagecraft/internal/websocket"
)

// Config holds the listen address and the browser origins allowed to open
// the live-reload socket.
type Config struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

// Addr returns host:port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

type snapshot struct {
	pageID    string
	html      string
	checksum  string
	warnings  []string
	err       string
	updatedAt time.Time
}

// Server is the preview HTTP server.
type Server struct {
	config Config
	hub    *websocket.Manager
	logger logging.Logger
	now    func() time.Time

	mu      sync.RWMutex
	current *snapshot

	serverMutex sync.Mutex
	httpServer  *http.Server
}

// New creates a preview server. Nothing listens until ListenAndServe.
func New(config Config, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Server{
		config: config,
		hub:    websocket.NewManager(config.AllowedOrigins, logger),
		logger: logger.WithComponent("preview"),
		now:    time.Now,
	}
}

// Handler returns the preview routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.hub.HandleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", s.handlePage)
	return middleware.Chain(mux,
		middleware.Recover(s.logger),
		middleware.Logging(s.logger),
		middleware.SecurityHeaders(),
	)
}

// Update replaces the served page and tells browsers to reload.
func (s *Server) Update(pageID string, out *build.Output) {
	s.mu.Lock()
	s.current = &snapshot{
		pageID:    pageID,
		html:      out.HTML,
		checksum:  out.Metadata.Checksum,
		warnings:  append([]string(nil), out.Warnings...),
		updatedAt: s.now(),
	}
	s.mu.Unlock()

	s.hub.Broadcast(websocket.Message{
		Type:     websocket.MessageReload,
		PageID:   pageID,
		Checksum: out.Metadata.Checksum,
	})
}

// Fail records a failed compilation. The error page replaces the document
// until the next successful Update.
func (s *Server) Fail(pageID string, err error) {
	s.mu.Lock()
	s.current = &snapshot{
		pageID:    pageID,
		err:       err.Error(),
		updatedAt: s.now(),
	}
	s.mu.Unlock()

	s.hub.Broadcast(websocket.Message{
		Type:   websocket.MessageError,
		PageID: pageID,
		Error:  err.Error(),
	})
}

func (s *Server) snapshot() *snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")

	snap := s.snapshot()
	switch {
	case snap == nil:
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, statusPage("Compiling", "The page is being compiled. This tab reloads when it is ready."))
	case snap.err != "":
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, statusPage("Compilation failed", snap.err))
	default:
		if snap.checksum != "" {
			w.Header().Set("ETag", strconv.Quote(snap.checksum))
		}
		fmt.Fprint(w, InjectReloadScript(snap.html))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": s.now().UTC(),
		"version":   version.GetShortVersion(),
		"clients":   s.hub.ConnectedClients(),
	}
	if snap := s.snapshot(); snap != nil {
		health["pageId"] = snap.pageID
		health["checksum"] = snap.checksum
		health["warnings"] = len(snap.warnings)
		health["updatedAt"] = snap.updatedAt.UTC()
		if snap.err != "" {
			health["status"] = "failing"
			health["error"] = snap.err
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if s.hub.IsShutdown() {
		health["status"] = "stopping"
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(health); err != nil {
		s.logger.Warn(r.Context(), err, "Failed to encode health response")
	}
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr(), err)
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is done.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	s.serverMutex.Lock()
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Preview server listening", "addr", listener.Addr().String())
		errCh <- server.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

// Shutdown closes browser sockets and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	hubErr := s.hub.Shutdown(ctx)

	s.serverMutex.Lock()
	server := s.httpServer
	s.serverMutex.Unlock()

	if server == nil {
		return hubErr
	}
	return pcerrors.CombineErrors(server.Shutdown(ctx), hubErr)
}

const reloadScript = `<script>
(function () {
  var scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
  var socket = new WebSocket(scheme + location.host + '/ws');
  socket.onmessage = function (event) {
    var message = JSON.parse(event.data);
    if (message.type === 'reload' || message.type === 'error') {
      location.reload();
    }
  };
  socket.onclose = function () {
    setTimeout(function () { location.reload(); }, 1000);
  };
})();
</script>`

// InjectReloadScript inserts the live-reload client before the last </body>,
// or appends it when the document has none.
func InjectReloadScript(doc string) string {
	at := lastIndexFold(doc, "</body>")
	if at < 0 {
		return doc + reloadScript
	}
	return doc[:at] + reloadScript + doc[at:]
}

func lastIndexFold(s, sub string) int {
	for i := len(s) - len(sub); i >= 0; i-- {
		if strings.EqualFold(s[i:i+len(sub)], sub) {
			return i
		}
	}
	return -1
}

func statusPage(title, detail string) string {
	return `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">` +
		`<meta name="viewport" content="width=device-width, initial-scale=1">` +
		`<title>` + templ.EscapeString(title) + `</title></head>` +
		`<body style="font-family:system-ui,sans-serif;margin:2rem">` +
		`<h1>` + templ.EscapeString(title) + `</h1>` +
		`<pre style="white-space:pre-wrap">` + templ.EscapeString(detail) + `</pre>` +
		reloadScript + `</body></html>`
}
