// api/internal/api/handlers/websocket.go
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/irgordon/vigil/api/internal/core/domain"
)

// ==============================================================================
// 1. WebSocket Configuration & Constants
// ==============================================================================

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. (We only stream OUT, so inbound is tiny).
	maxMessageSize = 512
)

// originChecker admits browser upgrades from the configured origins only.
// CORS headers do not stop a cross-site websocket handshake, so the upgrader
// enforces the list itself. An empty list or "*" admits every origin.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(r *http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// Non-browser clients send no Origin.
			return true
		}
		for _, o := range allowed {
			if strings.EqualFold(origin, o) {
				return true
			}
		}
		// The dashboard itself is served from this host.
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

// ==============================================================================
// 2. The Handler Struct (Dependency Injection)
// ==============================================================================

// LogSource is the backlog plus live feed behind the log endpoints.
type LogSource interface {
	Recent() []domain.LogRecord
	Subscribe() (chan domain.LogRecord, []domain.LogRecord)
	Unsubscribe(ch chan domain.LogRecord)
	Subscribers() int
}

// StreamGauge tracks live websocket clients.
type StreamGauge interface {
	StreamOpened()
	StreamClosed()
}

type LogHandler struct {
	Source   LogSource
	Gauge    StreamGauge
	Logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewLogHandler(source LogSource, gauge StreamGauge, allowedOrigins []string, logger *slog.Logger) *LogHandler {
	return &LogHandler{
		Source: source,
		Gauge:  gauge,
		Logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// ==============================================================================
// 3. HTTP Methods
// ==============================================================================

// List handles GET /api/logs
func (h *LogHandler) List(w http.ResponseWriter, r *http.Request) {
	records := h.Source.Recent()
	if records == nil {
		records = []domain.LogRecord{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

// Stream handles GET /api/logs/stream
func (h *LogHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written an HTTP error response.
		h.Logger.Warn("Failed to upgrade WebSocket connection", slog.String("error", err.Error()))
		return
	}

	logChannel, backlog := h.Source.Subscribe()
	if h.Gauge != nil {
		h.Gauge.StreamOpened()
	}
	h.Logger.Debug("Log stream client connected",
		slog.String("remote", r.RemoteAddr),
		slog.Int("subscribers", h.Source.Subscribers()),
	)

	// The Read Pump handles control frames and notices the client leaving.
	closed := make(chan struct{})
	go h.readPump(ws, closed)

	// The Write Pump blocks this handler until the client goes away.
	h.writePump(ws, logChannel, backlog, closed)

	h.Source.Unsubscribe(logChannel)
	if h.Gauge != nil {
		h.Gauge.StreamClosed()
	}
}

// ==============================================================================
// 4. The Write Pump (Streaming Logs to the Browser)
// ==============================================================================

func (h *LogHandler) writePump(ws *websocket.Conn, logChannel <-chan domain.LogRecord, backlog []domain.LogRecord, closed <-chan struct{}) {
	defer ws.Close()

	for _, rec := range backlog {
		ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := ws.WriteJSON(rec); err != nil {
			return
		}
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case rec, ok := <-logChannel:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "Log stream closed"))
				return
			}
			if err := ws.WriteJSON(rec); err != nil {
				return // Drop the connection if writing fails (e.g., broken pipe)
			}

		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-closed:
			return
		}
	}
}

// ==============================================================================
// 5. The Read Pump (Connection Keep-Alive)
// ==============================================================================

func (h *LogHandler) readPump(ws *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)

	ws.SetReadLimit(maxMessageSize)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.Logger.Debug("WebSocket closed unexpectedly", slog.String("error", err.Error()))
			}
			return
		}
	}
}
