package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/emrenamli69/regnum-presentation/internal/adapter/chat"
	"github.com/emrenamli69/regnum-presentation/internal/adapter/crm"
	"github.com/emrenamli69/regnum-presentation/internal/adapter/httpretry"
	"github.com/emrenamli69/regnum-presentation/internal/config"
	"github.com/emrenamli69/regnum-presentation/internal/domain"
	"github.com/emrenamli69/regnum-presentation/internal/repository"
	"github.com/emrenamli69/regnum-presentation/internal/service"
	"github.com/emrenamli69/regnum-presentation/internal/sse"
	"github.com/emrenamli69/regnum-presentation/policy"
	"github.com/emrenamli69/regnum-presentation/tests/helpers"
)

func newTestHandler(t *testing.T, crmURL string, production bool) (*Handler, repository.Store) {
	t.Helper()
	cfg := &config.Config{
		Agents: []domain.AgentConfig{
			{ID: "employee-assistant", Name: "Employee Assistant", Kind: domain.AgentKindChat, APIURL: "https://dify.example.com/v1", APIKey: "secret-key"},
			{ID: "crm-assistant", Name: "CRM Assistant", Kind: domain.AgentKindCRM, APIURL: crmURL, Password: "secret-pw"},
		},
	}
	db := helpers.NewTestSQLiteStore(t)
	policyEngine, err := policy.NewEngine(context.Background(), policy.AllowAllPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	crmClient := crm.NewClient(httpretry.NewClient(), crm.Options{
		Timeout:     time.Second,
		MaxAttempts: 2,
		BackoffBase: time.Millisecond,
	})
	svc := service.New(db, chat.NewMockClient(), crmClient, cfg, policyEngine)
	return NewHandler(svc, production), db
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestChatStreaming(t *testing.T) {
	e := echo.New()
	h, db := newTestHandler(t, "", false)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/chat", `{"query":"hello there"}`), rec)
	if err := h.Chat(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	var events []domain.StreamEvent
	term := sse.Consume(context.Background(), rec.Body, func(e domain.StreamEvent) error {
		events = append(events, e)
		return nil
	}, func(err error) { t.Fatalf("unexpected stream error: %v", err) })
	if term != sse.EndOfMessage {
		t.Fatalf("expected end_of_message, got %s", term)
	}

	var answer strings.Builder
	for _, e := range events {
		if e.IsFragment() {
			answer.WriteString(e.Answer)
		}
	}
	if answer.String() != "This is a mock response to: hello there" {
		t.Fatalf("unexpected answer %q", answer.String())
	}

	conv, err := db.GetConversation(context.Background(), events[0].ConversationID)
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("expected 2 stored messages, got %d", len(conv.Messages))
	}
}

func TestChatBlocking(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t, "", false)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/chat", `{"query":"hi","response_mode":"blocking"}`), rec)
	if err := h.Chat(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var res service.SendResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Answer != "This is a mock response to: hi" || res.ConversationID == "" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestChatValidation(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t, "", false)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/chat", `{"query":""}`), rec)
	if err := h.Chat(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("expected json error, got %q", ct)
	}
}

func TestQueryCRM(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"response":"2 arrivals"}`)
	}))
	defer upstream.Close()

	e := echo.New()
	h, _ := newTestHandler(t, upstream.URL, false)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/crm", `{"question":"arrivals?"}`), rec)
	if err := h.QueryCRM(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp domain.CRMQueryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Response != "2 arrivals" || resp.Attempts != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestQueryCRMUpstreamStatus(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer upstream.Close()

	e := echo.New()
	h, _ := newTestHandler(t, upstream.URL, false)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/crm", `{"question":"q"}`), rec)
	if err := h.QueryCRM(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	var resp domain.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error != "Failed to process CRM request" || resp.Details == nil || resp.Details.Type != "http_error" {
		t.Fatalf("unexpected error body: %+v", resp)
	}
}

func TestQueryCRMUnreachableHidesDetailsInProduction(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := upstream.URL
	upstream.Close()

	e := echo.New()
	h, _ := newTestHandler(t, url, true)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/crm", `{"question":"q"}`), rec)
	if err := h.QueryCRM(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var resp domain.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Details != nil {
		t.Fatalf("details leaked in production: %+v", resp.Details)
	}
}

func TestCRMHealthRequiresURL(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t, "", false)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/health/crm", nil), rec)
	if err := h.CRMHealth(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCRMHealthPost(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer upstream.Close()

	e := echo.New()
	h, _ := newTestHandler(t, "", false)

	rec := httptest.NewRecorder()
	body := fmt.Sprintf(`{"url":%q}`, upstream.URL)
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/health/crm", body), rec)
	if err := h.CRMHealth(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var report domain.HealthReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Status != domain.CheckOK {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestListAgentsHidesSecrets(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t, "", false)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/agents", nil), rec)
	if err := h.ListAgents(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "employee-assistant") {
		t.Fatalf("agent missing: %s", body)
	}
	if strings.Contains(body, "secret") || strings.Contains(body, "dify.example.com") {
		t.Fatalf("secrets leaked: %s", body)
	}
}

func TestConversationRoutes(t *testing.T) {
	e := echo.New()
	h, db := newTestHandler(t, "", false)
	ctx := context.Background()
	now := time.Now().UTC()
	if err := db.CreateConversation(ctx, &domain.Conversation{ID: "c1", AgentID: "employee-assistant", Title: "t", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/conversations?agent_id=employee-assistant", nil), rec)
	if err := h.ListConversations(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"id":"c1"`) {
		t.Fatalf("conversation missing: %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/api/conversations?limit=x", nil), rec)
	if err := h.ListConversations(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodDelete, "/api/conversations/c1", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("c1")
	if err := h.DeleteConversation(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/api/conversations/c1", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("c1")
	if err := h.GetConversation(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestStopChat(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t, "", false)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/chat/stop/t1", `{"user":"u1"}`), rec)
	c.SetParamNames("task_id")
	c.SetParamValues("t1")
	if err := h.StopChat(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
