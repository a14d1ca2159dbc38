package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emrenamli69/regnum-presentation/internal/adapter/chat"
	"github.com/emrenamli69/regnum-presentation/internal/adapter/crm"
	"github.com/emrenamli69/regnum-presentation/internal/adapter/httpretry"
	"github.com/emrenamli69/regnum-presentation/internal/config"
	"github.com/emrenamli69/regnum-presentation/internal/domain"
	"github.com/emrenamli69/regnum-presentation/internal/service"
	"github.com/emrenamli69/regnum-presentation/tests/helpers"
)

func newTestServer(t *testing.T, apiKey string) (*httptest.Server, *Hub, *service.Service) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := &config.Config{Agents: []domain.AgentConfig{
		{ID: "employee-assistant", Kind: domain.AgentKindChat, APIURL: "https://dify.example.com/v1"},
	}}
	svc := service.New(helpers.NewTestSQLiteStore(t), chat.NewMockClient(), crm.NewClient(httpretry.NewClient(), crm.Options{}), cfg, nil)

	hub := NewHub(ctx)
	go hub.Run(ctx)
	svc.SetPublisher(hub)

	e := echo.New()
	NewServer(Config{
		APIKey:         apiKey,
		PingInterval:   time.Minute,
		WriteTimeout:   time.Second,
		ReadTimeout:    time.Minute,
		MaxMessageSize: 65536,
	}, hub, svc).RegisterRoutes(e)

	server := httptest.NewServer(e)
	t.Cleanup(server.Close)
	return server, hub, svc
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/chat" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

type anyFrame struct {
	BaseFrame
	Event   domain.StreamEvent `json:"event"`
	Answer  string             `json:"answer"`
	Code    string             `json:"code"`
	Message string             `json:"message"`
}

func readFrame(t *testing.T, conn *websocket.Conn) anyFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var f anyFrame
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

// readUntil reads frames until one of type typ arrives and returns all of
// them in order.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) []anyFrame {
	t.Helper()
	var frames []anyFrame
	for {
		f := readFrame(t, conn)
		frames = append(frames, f)
		if f.Type == typ || f.Type == TypeChatError {
			return frames
		}
	}
}

func TestChatSendStreamsEvents(t *testing.T) {
	server, _, _ := newTestServer(t, "")
	conn := dial(t, server, "")

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":       TypeChatSend,
		"request_id": "r1",
		"message":    map[string]any{"query": "hello ws"},
	}))

	frames := readUntil(t, conn, TypeChatDone)
	done := frames[len(frames)-1]
	require.Equal(t, TypeChatDone, done.Type)
	assert.Equal(t, "r1", done.RequestID)
	assert.Equal(t, "This is a mock response to: hello ws", done.Answer)

	var answer strings.Builder
	for _, f := range frames[:len(frames)-1] {
		require.Equal(t, TypeChatEvent, f.Type)
		assert.Equal(t, done.ConversationID, f.ConversationID)
		if f.Event.IsFragment() {
			answer.WriteString(f.Event.Answer)
		}
	}
	assert.Equal(t, done.Answer, answer.String())
}

func TestSubscriberReceivesOtherTurns(t *testing.T) {
	server, hub, svc := newTestServer(t, "")

	res, err := svc.SendMessage(context.Background(), domain.SendMessageInput{Query: "first"}, nil)
	require.NoError(t, err)

	watcher := dial(t, server, "")
	require.NoError(t, watcher.WriteJSON(map[string]any{
		"type":            TypeChatSubscribe,
		"conversation_id": res.ConversationID,
	}))
	ack := readFrame(t, watcher)
	require.Equal(t, TypeChatSubscribed, ack.Type)
	require.True(t, hub.HasSubscribers(res.ConversationID))

	_, err = svc.SendMessage(context.Background(), domain.SendMessageInput{Query: "second", ConversationID: res.ConversationID}, nil)
	require.NoError(t, err)

	f := readFrame(t, watcher)
	assert.Equal(t, TypeChatEvent, f.Type)
	assert.Equal(t, res.ConversationID, f.ConversationID)
}

func TestChatSendInvalidInput(t *testing.T) {
	server, _, _ := newTestServer(t, "")
	conn := dial(t, server, "")

	require.NoError(t, conn.WriteJSON(map[string]any{"type": TypeChatSend, "request_id": "r2", "message": map[string]any{"query": ""}}))
	f := readFrame(t, conn)
	assert.Equal(t, TypeChatError, f.Type)
	assert.Equal(t, "r2", f.RequestID)
	assert.Equal(t, ErrorCodeInvalidMessage, f.Code)
}

func TestUnknownFrameType(t *testing.T) {
	server, _, _ := newTestServer(t, "")
	conn := dial(t, server, "")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"bogus"}`)))
	f := readFrame(t, conn)
	assert.Equal(t, TypeChatError, f.Type)
	assert.Contains(t, f.Message, "bogus")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	f = readFrame(t, conn)
	assert.Equal(t, "invalid JSON message", f.Message)
}

func TestAPIKeyRequired(t *testing.T) {
	server, _, _ := newTestServer(t, "s3cret")
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/chat"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)

	dial(t, server, "?api_key=s3cret")
}
