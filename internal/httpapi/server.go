package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ent0n29/gadgetdesk/internal/catalog"
	"github.com/ent0n29/gadgetdesk/internal/config"
	"github.com/ent0n29/gadgetdesk/internal/memory"
	"github.com/ent0n29/gadgetdesk/internal/observability"
	"github.com/ent0n29/gadgetdesk/internal/protocol"
	"github.com/ent0n29/gadgetdesk/internal/session"
)

type Server struct {
	cfg       config.Config
	sessions  *session.Manager
	catalog   *catalog.Catalog
	metrics   *observability.Metrics
	log       zerolog.Logger
	storeMode string
	upgrader  websocket.Upgrader
	static    http.Handler
}

func New(cfg config.Config, sessions *session.Manager, cat *catalog.Catalog, metrics *observability.Metrics, log zerolog.Logger, storeMode string) *Server {
	return &Server{
		cfg:       cfg,
		sessions:  sessions,
		catalog:   cat,
		metrics:   metrics,
		log:       log,
		storeMode: storeMode,
		static:    newStaticHandler(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Browsers may only connect from the page's own origin.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
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

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui/", http.StatusTemporaryRedirect)
	})
	r.Get("/ui", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui/", http.StatusTemporaryRedirect)
	})
	r.Handle("/ui/*", http.StripPrefix("/ui/", s.static))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", s.metrics.Handler())

	r.Post("/chat", s.handleChat)
	r.Get("/history/{user_id}", s.handleHistory)
	r.Post("/reset", s.handleReset)
	r.Get("/v1/chat/ws", s.handleChatWS)
	r.Get("/v1/perf/latency", s.handlePerfLatency)
	r.Delete("/v1/perf/latency", s.handlePerfLatencyReset)
	r.Get("/v1/catalog/products", s.handleListProducts)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":      "ready",
		"store_mode":  s.storeMode,
		"known_users": s.sessions.KnownUsers(),
	})
}

type chatRequest struct {
	UserID string  `json:"user_id"`
	Query  *string `json:"query"`
}

type chatResponse struct {
	UserID    string    `json:"user_id"`
	TurnID    string    `json:"turn_id"`
	Response  string    `json:"response"`
	Intents   []string  `json:"intents"`
	Product   *string   `json:"product"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil || req.Query == nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid request format")
		return
	}
	if strings.TrimSpace(*req.Query) == "" {
		respondError(w, http.StatusBadRequest, "empty_query", "Empty query")
		return
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = uuid.NewString()
	}

	res, err := s.sessions.HandleTurn(r.Context(), userID, *req.Query)
	switch {
	case errors.Is(err, session.ErrEmptyInput):
		respondError(w, http.StatusBadRequest, "empty_query", "Empty query")
		return
	case err != nil:
		s.log.Error().Err(err).Str("user_id", userID).Msg("chat turn failed")
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	out := chatResponse{
		UserID:    res.UserID,
		TurnID:    res.TurnID,
		Response:  res.Response,
		Intents:   intentStrings(res),
		Timestamp: res.Timestamp,
	}
	if res.Product != "" {
		product := res.Product
		out.Product = &product
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	turns, err := s.sessions.History(r.Context(), userID)
	switch {
	case errors.Is(err, memory.ErrUserNotFound):
		respondError(w, http.StatusNotFound, "user_not_found", "User not found")
		return
	case err != nil:
		s.log.Error().Err(err).Str("user_id", userID).Msg("history lookup failed")
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"history": turns,
	})
}

type resetRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		respondError(w, http.StatusBadRequest, "missing_user_id", "User ID required")
		return
	}
	if err := s.sessions.Reset(r.Context(), userID); err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("reset failed")
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Conversation reset",
		"user_id": userID,
	})
}

func (s *Server) handleListProducts(w http.ResponseWriter, _ *http.Request) {
	type item struct {
		Key  string `json:"key"`
		Name string `json:"name"`
	}
	products := s.catalog.Products()
	out := make([]item, 0, len(products))
	for _, p := range products {
		out = append(out, item{Key: p.Key, Name: p.Name})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"default_product": s.catalog.DefaultProductKey(),
		"products":        out,
	})
}

func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		userID = uuid.NewString()
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	outbound := make(chan any, 64)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-outbound:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteJSON(msg); err != nil {
					cancel()
					return
				}
				if t, ok := messageTypeOf(msg); ok {
					s.metrics.WSMessages.WithLabelValues("outbound", string(t)).Inc()
				}
			}
		}
	}()

	send := func(msg any) {
		select {
		case <-ctx.Done():
		case outbound <- msg:
		}
	}

	send(protocol.SystemEvent{Type: protocol.TypeSystemEvent, UserID: userID, Code: protocol.CodeSessionReady})

	conn.SetReadLimit(64 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	for ctx.Err() == nil {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			send(protocol.ErrorEvent{
				Type:   protocol.TypeErrorEvent,
				UserID: userID,
				Code:   "invalid_client_message",
				Source: "gateway",
				Detail: err.Error(),
			})
			continue
		}
		if t, ok := messageTypeOf(parsed); ok {
			s.metrics.WSMessages.WithLabelValues("inbound", string(t)).Inc()
		}
		send(s.handleClientMessage(ctx, userID, parsed))
	}

	cancel()
	<-writerDone
}

func (s *Server) handleClientMessage(ctx context.Context, userID string, msg any) any {
	switch m := msg.(type) {
	case protocol.ClientQuery:
		res, err := s.sessions.HandleTurn(ctx, userID, m.Query)
		if err != nil {
			code, retryable := "turn_failed", true
			if errors.Is(err, session.ErrEmptyInput) {
				code, retryable = "empty_query", false
			}
			return protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				UserID:    userID,
				Code:      code,
				Source:    "session",
				Retryable: retryable,
				Detail:    err.Error(),
			}
		}
		return protocol.AssistantReply{
			Type:      protocol.TypeAssistantReply,
			UserID:    userID,
			TurnID:    res.TurnID,
			Text:      res.Response,
			Intents:   intentStrings(res),
			Product:   res.Product,
			Timestamp: res.Timestamp.Format(time.RFC3339Nano),
		}
	case protocol.ClientReset:
		if err := s.sessions.Reset(ctx, userID); err != nil {
			return protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				UserID:    userID,
				Code:      "reset_failed",
				Source:    "session",
				Retryable: true,
				Detail:    err.Error(),
			}
		}
		return protocol.SystemEvent{Type: protocol.TypeSystemEvent, UserID: userID, Code: protocol.CodeConversationReset}
	default:
		return protocol.ErrorEvent{
			Type:   protocol.TypeErrorEvent,
			UserID: userID,
			Code:   "unsupported_message",
			Source: "gateway",
		}
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

func intentStrings(res session.TurnResult) []string {
	out := make([]string, 0, len(res.Intents))
	for _, in := range res.Intents {
		out = append(out, string(in))
	}
	return out
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.ClientQuery:
		return m.Type, true
	case protocol.ClientReset:
		return m.Type, true
	case protocol.AssistantReply:
		return m.Type, true
	case protocol.SystemEvent:
		return m.Type, true
	case protocol.ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}
