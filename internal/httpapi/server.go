// Package httpapi exposes the minimal HTTP admin surface: health, metrics,
// a per-session stats snapshot, and the websocket upgrade that hands a
// connection to the Session Supervisor.
package httpapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/fieldnotes-ai/interviewer/internal/config"
	"github.com/fieldnotes-ai/interviewer/internal/observability"
	"github.com/fieldnotes-ai/interviewer/internal/protocol"
	"github.com/fieldnotes-ai/interviewer/internal/session"
	"github.com/fieldnotes-ai/interviewer/internal/supervisor"
)

// Server wires HTTP routing around one Supervisor instance.
type Server struct {
	cfg        config.Config
	sessions   *session.Manager
	supervisor *supervisor.Supervisor
	metrics    *observability.Metrics
	upgrader   websocket.Upgrader
}

// New builds a Server. sv may be nil in tests that only exercise the
// non-websocket surface; handleSessionWS reports 501 in that case.
func New(cfg config.Config, sessions *session.Manager, sv *supervisor.Supervisor, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:        cfg,
		sessions:   sessions,
		supervisor: sv,
		metrics:    metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

// Router builds the chi router for the admin HTTP surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Get("/v1/interview/session/{id}", s.handleSessionStats)
	r.Get("/v1/interview/session/ws", s.handleSessionWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":         "ready",
		"active_sessions": s.sessions.ActiveCount(),
	})
}

func (s *Server) handleSessionStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	sess, err := s.sessions.Get(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}

	var turnStages observability.TurnStageSnapshot
	if s.metrics != nil {
		turnStages = s.metrics.SnapshotTurnStages()
	}

	respondJSON(w, http.StatusOK, session.StatsResponse{
		SessionID:      sess.ID,
		UserID:         sess.UserID,
		Status:         sess.Status,
		StartedAt:      sess.StartedAt,
		TopicsCovered:  sess.TopicsCovered,
		TotalFollowups: sess.TotalFollowups,
		TimeRemainingS: int64(sess.TimeRemaining(time.Now()).Seconds()),
		TurnStages:     turnStages,
	})
}

// handleSessionWS authenticates the bearer credential, upgrades to a
// websocket, and hands the connection to the Supervisor for the duration
// of one interview. The credential may arrive as an Authorization header
// or, since browser clients cannot set headers on the upgrade request, a
// token query parameter.
func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	if s.supervisor == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "supervisor not configured")
		return
	}

	token := bearerToken(r)
	userID, err := s.supervisor.Authenticate(token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.SessionEvents.WithLabelValues("ws_connected").Inc()

	inbound := make(chan any, 256)
	outbound := make(chan any, 256)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range outbound {
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(msg); err != nil {
				s.metrics.WSWriteErrors.WithLabelValues("write_json").Inc()
				return
			}
			if t, ok := messageTypeOf(msg); ok {
				s.metrics.WSMessages.WithLabelValues("outbound", string(t)).Inc()
			}
		}
	}()

	handleDone := make(chan struct{})
	go func() {
		defer close(handleDone)
		if err := s.supervisor.Handle(r.Context(), userID, inbound, outbound); err != nil {
			s.metrics.SessionEvents.WithLabelValues("handle_error").Inc()
		}
	}()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	// Once the Supervisor winds down (engine completion, terminate, a
	// cancelled heartbeat) there is nothing left to read for; force the
	// blocked ReadMessage below to return so the loop can exit instead of
	// waiting on the client to send another frame or time out.
	go func() {
		<-handleDone
		_ = conn.SetReadDeadline(time.Now())
	}()

readLoop:
	for {
		select {
		case <-handleDone:
			break readLoop
		default:
		}

		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			errEvent := protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				Code:      "invalid_client_message",
				Source:    "gateway",
				Retryable: false,
				Detail:    err.Error(),
			}
			select {
			case outbound <- errEvent:
			default:
			}
			continue
		}
		if t, ok := messageTypeOf(parsed); ok {
			s.metrics.WSMessages.WithLabelValues("inbound", string(t)).Inc()
		}
		select {
		case inbound <- parsed:
		case <-handleDone:
			break readLoop
		}
	}

	close(inbound)
	<-handleDone
	<-writerDone
	s.metrics.SessionEvents.WithLabelValues("ws_disconnected").Inc()
}

func bearerToken(r *http.Request) string {
	if auth := strings.TrimSpace(r.Header.Get("Authorization")); auth != "" {
		const prefix = "Bearer "
		if strings.HasPrefix(auth, prefix) {
			return strings.TrimSpace(auth[len(prefix):])
		}
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.System:
		return m.Type, true
	case protocol.Speech:
		return m.Type, true
	case protocol.Question:
		return m.Type, true
	case protocol.StartListening:
		return m.Type, true
	case protocol.Answer:
		return m.Type, true
	case protocol.Heartbeat:
		return m.Type, true
	case protocol.Terminate:
		return m.Type, true
	case protocol.Complete:
		return m.Type, true
	case protocol.ErrorEvent:
		return m.Type, true
	case protocol.AudioPlaybackCompleted:
		return m.Type, true
	case protocol.AudioPlaybackError:
		return m.Type, true
	case protocol.EndSession:
		return m.Type, true
	default:
		return "", false
	}
}
