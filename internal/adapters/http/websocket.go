package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/para-cebu/para/internal/core/domain"
	"github.com/para-cebu/para/internal/core/usecases"
	"github.com/para-cebu/para/internal/pkg/metrics"
)

const wsPingInterval = 30 * time.Second

// wsClientMessage is sent by the client to start or cancel a scan.
type wsClientMessage struct {
	Action           string            `json:"action"` // "scan" | "cancel"
	Origin           domain.Coordinate `json:"origin"`
	Destination      domain.Coordinate `json:"destination"`
	OriginLabel      string            `json:"origin_label"`
	DestinationLabel string            `json:"destination_label"`
	MaxDistance      float64           `json:"max_distance"`
}

// wsServerMessage is pushed to the client. Type is one of state, progress,
// result or error.
type wsServerMessage struct {
	Type     string               `json:"type"`
	ScanID   string               `json:"scan_id,omitempty"`
	State    domain.ScanState     `json:"state,omitempty"`
	Progress *int                 `json:"progress,omitempty"`
	Matches  []domain.MatchResult `json:"matches,omitempty"`
	Code     string               `json:"code,omitempty"`
	Message  string               `json:"message,omitempty"`
}

// wsConn is the part of *websocket.Conn a scan session needs.
type wsConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
}

// scanSession runs at most one scan at a time for a single socket.
type scanSession struct {
	scans *usecases.ScanService
	conn  wsConn
	log   *slog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup
}

func newScanSession(scans *usecases.ScanService, conn wsConn, log *slog.Logger) *scanSession {
	return &scanSession{scans: scans, conn: conn, log: log}
}

func (s *scanSession) write(msg wsServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *scanSession) ping() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.PingMessage, nil)
}

func (s *scanSession) sendError(code, message string) {
	_ = s.write(errorMessage("", code, message))
}

// serve reads client messages until the socket fails or ctx ends. Any scan
// still running is cancelled and awaited before serve returns.
func (s *scanSession) serve(ctx context.Context) {
	ctx, stop := context.WithCancel(ctx)
	defer func() {
		stop()
		s.wg.Wait()
	}()

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		var m wsClientMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			s.sendError("bad_request", "invalid JSON")
			continue
		}

		switch m.Action {
		case "scan":
			s.start(ctx, m)
		case "cancel":
			s.cancelScan()
		default:
			s.sendError("bad_request", "unknown action: "+m.Action)
		}
	}
}

func (s *scanSession) start(ctx context.Context, m wsClientMessage) {
	req := domain.ScanRequest{
		ScanID:            uuid.NewString(),
		Origin:            m.Origin,
		Destination:       m.Destination,
		OriginLabel:       m.OriginLabel,
		DestinationLabel:  m.DestinationLabel,
		MaxDistanceMeters: m.MaxDistance,
	}
	if err := validateScan(req); err != nil {
		s.sendError("bad_request", err.Error())
		return
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.sendError("scan_in_progress", "a scan is already running on this connection")
		return
	}
	scanCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	_ = s.write(wsServerMessage{Type: "state", ScanID: req.ScanID, State: domain.ScanScanning})

	go func() {
		defer s.wg.Done()
		final := s.run(scanCtx, req)

		// The session is idle again before the client sees the final
		// message, so a scan sent in response to it is accepted.
		cancel()
		s.mu.Lock()
		s.running = false
		s.cancel = nil
		s.mu.Unlock()

		_ = s.write(final)
	}()
}

// run executes the scan, streaming progress, and returns the message that
// ends it: a result or an error.
func (s *scanSession) run(ctx context.Context, req domain.ScanRequest) wsServerMessage {
	matches, err := s.scans.FindNearbyRoutes(ctx, req, func(p int) {
		_ = s.write(wsServerMessage{Type: "progress", ScanID: req.ScanID, Progress: &p})
	})

	var catalogErr *domain.CatalogFetchError
	switch {
	case errors.As(err, &catalogErr):
		return errorMessage(req.ScanID, "catalog_unavailable", "route catalog is unavailable")
	case err != nil:
		s.log.Error("ws scan failed", "scan_id", req.ScanID, "error", err)
		return errorMessage(req.ScanID, "internal_error", "scan failed")
	}

	state := domain.ScanCompleted
	if ctx.Err() != nil {
		state = domain.ScanCancelled
	}
	if matches == nil {
		matches = []domain.MatchResult{}
	}
	return wsServerMessage{Type: "result", ScanID: req.ScanID, State: state, Matches: matches}
}

func errorMessage(scanID, code, message string) wsServerMessage {
	return wsServerMessage{Type: "error", ScanID: scanID, Code: code, Message: message}
}

func (s *scanSession) cancelScan() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

func validateScan(req domain.ScanRequest) error {
	if err := req.Origin.Validate(); err != nil {
		return err
	}
	if err := req.Destination.Validate(); err != nil {
		return err
	}
	// Zero selects the configured default.
	if req.MaxDistanceMeters != 0 && !validMaxDistance(req.MaxDistanceMeters) {
		return errMaxDistance
	}
	return nil
}

// ScanWebSocketHandler serves interactive scans over a WebSocket.
// Clients send {"action":"scan",...} and {"action":"cancel"}; closing the
// socket cancels a running scan.
func ScanWebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		log := slog.Default().With("remote_addr", c.RemoteAddr().String())
		log.Debug("ws client connected")

		session := newScanSession(deps.Scans, c, log)

		// Keep-alive ping
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(wsPingInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := session.ping(); err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		session.serve(context.Background())
		close(done)
		log.Debug("ws client disconnected")
	}
}
