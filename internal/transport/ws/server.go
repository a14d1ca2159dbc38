package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"goa.design/clue/log"

	"github.com/emrenamli69/regnum-presentation/internal/domain"
	"github.com/emrenamli69/regnum-presentation/internal/service"
)

// Config holds the websocket connection settings.
type Config struct {
	APIKey         string
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	MaxMessageSize int64
}

// Server handles WebSocket connections.
type Server struct {
	cfg      Config
	hub      *Hub
	service  *service.Service
	upgrader websocket.Upgrader
}

// NewServer creates a new WebSocket server. Zero durations and sizes in cfg
// fall back to defaults.
func NewServer(cfg Config, h *Hub, svc *service.Service) *Server {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 60 * time.Second
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 64 * 1024
	}
	return &Server{
		cfg:     cfg,
		hub:     h,
		service: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// RegisterRoutes mounts the websocket endpoint.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/chat", s.HandleWebSocket)
}

// HandleWebSocket handles WebSocket upgrade and connection lifecycle.
func (s *Server) HandleWebSocket(c echo.Context) error {
	if s.cfg.APIKey != "" && c.QueryParam("api_key") != s.cfg.APIKey {
		return c.JSON(http.StatusUnauthorized, domain.ErrorResponse{Error: "invalid api_key"})
	}

	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Error(c.Request().Context(), err, log.KV{K: "msg", V: "failed to upgrade websocket"})
		return err
	}

	conn := s.hub.NewConnection(ws)
	s.hub.Register(conn)

	ws.SetReadLimit(s.cfg.MaxMessageSize)

	// Turns started on this connection are canceled when it goes away.
	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request().Context()))
	go s.writePump(conn)
	go s.readPump(ctx, cancel, conn)

	return nil
}

// readPump reads messages from the WebSocket connection.
func (s *Server) readPump(ctx context.Context, cancel context.CancelFunc, conn *Connection) {
	defer func() {
		cancel()
		s.hub.Unregister(conn)
		conn.Conn.Close()
	}()

	conn.Conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.Conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn(ctx, log.KV{K: "msg", V: "websocket read failed"}, log.KV{K: "err", V: err.Error()})
			}
			return
		}

		s.handleMessage(ctx, conn, message)
	}
}

// writePump writes messages to the WebSocket connection.
func (s *Server) writePump(conn *Connection) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.Conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if !ok {
				// Hub closed the channel
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			conn.Conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage dispatches incoming frames.
func (s *Server) handleMessage(ctx context.Context, conn *Connection, data []byte) {
	var base BaseFrame
	if err := json.Unmarshal(data, &base); err != nil {
		s.sendError(conn, "", ErrorCodeInvalidMessage, "invalid JSON message")
		return
	}

	switch base.Type {
	case TypeChatSend:
		s.handleChatSend(ctx, conn, data)
	case TypeChatSubscribe:
		s.handleSubscribe(conn, base)
	default:
		s.sendError(conn, base.RequestID, ErrorCodeInvalidMessage, "unknown message type: "+base.Type)
	}
}

func (s *Server) handleSubscribe(conn *Connection, base BaseFrame) {
	if base.ConversationID == "" {
		s.sendError(conn, base.RequestID, ErrorCodeInvalidMessage, "conversation_id is required")
		return
	}
	s.hub.BindConversation(conn, base.ConversationID)
	s.hub.SendJSONToConnection(conn, BaseFrame{
		Type:           TypeChatSubscribed,
		Ts:             time.Now().UnixMilli(),
		RequestID:      base.RequestID,
		ConversationID: base.ConversationID,
	})
}

// handleChatSend runs a turn in the background. The connection is bound to
// the turn's conversation on the first event, so events, completion and
// failure all reach it through the hub in order.
func (s *Server) handleChatSend(ctx context.Context, conn *Connection, data []byte) {
	var frame ChatSendFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		s.sendError(conn, "", ErrorCodeInvalidMessage, "invalid chat.send message")
		return
	}
	input := frame.Message
	input.ResponseMode = domain.ResponseModeStreaming
	if input.ConversationID == "" {
		input.ConversationID = frame.ConversationID
	}

	go func() {
		var conversationID string
		res, err := s.service.SendMessage(ctx, input, func(event domain.StreamEvent) error {
			if conversationID == "" {
				conversationID = event.ConversationID
				s.hub.BindConversation(conn, conversationID)
			}
			return nil
		})

		if err != nil {
			log.Error(ctx, err, log.KV{K: "msg", V: "websocket chat turn failed"}, log.KV{K: "conn", V: conn.ID})
			errFrame := ErrorFrame{
				BaseFrame: BaseFrame{Type: TypeChatError, Ts: time.Now().UnixMilli(), RequestID: frame.RequestID, ConversationID: conversationID},
				Code:      errorCode(err),
				Message:   err.Error(),
			}
			if conversationID != "" {
				s.hub.BroadcastJSON(conversationID, errFrame)
			} else {
				s.hub.SendJSONToConnection(conn, errFrame)
			}
			return
		}

		done := ChatDoneFrame{
			BaseFrame: BaseFrame{Type: TypeChatDone, Ts: time.Now().UnixMilli(), RequestID: frame.RequestID, ConversationID: res.ConversationID},
			MessageID: res.MessageID,
			Answer:    res.Answer,
		}
		if conversationID == "" {
			// No events were streamed; bind now so completion is delivered.
			s.hub.BindConversation(conn, res.ConversationID)
		}
		s.hub.BroadcastJSON(res.ConversationID, done)
	}()
}

func errorCode(err error) string {
	var upstream *domain.UpstreamError
	if errors.As(err, &upstream) && upstream.Code != "" {
		return upstream.Code
	}
	if errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrUnknownAgent) || errors.Is(err, domain.ErrNotFound) {
		return ErrorCodeInvalidMessage
	}
	return ErrorCodeTurnFailed
}

// sendError sends an error frame to a connection.
func (s *Server) sendError(conn *Connection, requestID, code, message string) {
	s.hub.SendJSONToConnection(conn, ErrorFrame{
		BaseFrame: BaseFrame{
			Type:      TypeChatError,
			Ts:        time.Now().UnixMilli(),
			RequestID: requestID,
		},
		Code:    code,
		Message: message,
	})
}
