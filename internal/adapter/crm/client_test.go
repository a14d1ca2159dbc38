package crm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emrenamli69/regnum-presentation/internal/adapter/httpretry"
	"github.com/emrenamli69/regnum-presentation/internal/domain"
)

func newTestClient() *Client {
	return NewClient(httpretry.NewClient(), Options{
		Timeout:       time.Second,
		MaxAttempts:   2,
		BackoffBase:   time.Millisecond,
		HealthTimeout: time.Second,
	})
}

func TestQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "who arrives today?", r.URL.Query().Get("question"))
		assert.Equal(t, "1", r.URL.Query().Get("v"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "bot", user)
		assert.Equal(t, "pw", pass)
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"response":"Three guests"}`)
	}))
	defer server.Close()

	agent := domain.AgentConfig{ID: "crm", Kind: domain.AgentKindCRM, APIURL: server.URL + "/webhook?v=1", Username: "bot", Password: "pw"}
	res, err := newTestClient().Query(context.Background(), agent, "who arrives today?")
	require.NoError(t, err)
	assert.Equal(t, "Three guests", res.Answer)
	assert.Equal(t, 1, res.Response.Attempts)
	assert.True(t, res.Response.IsJSON)
}

func TestQueryHTTPErrorFailsFast(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "workflow missing", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestClient().Query(context.Background(), domain.AgentConfig{APIURL: server.URL}, "q")
	var reqErr *domain.RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, domain.FailureHTTPError, reqErr.Kind)
	assert.Equal(t, http.StatusNotFound, reqErr.StatusCode())
	assert.Equal(t, 1, calls)
}

func TestQueryURL(t *testing.T) {
	u, err := QueryURL("https://n8n.example.com/webhook/crm", "a b&c")
	require.NoError(t, err)
	assert.Equal(t, "https://n8n.example.com/webhook/crm?question=a+b%26c", u)

	_, err = QueryURL("", "q")
	assert.Error(t, err)
}

func TestExtractAnswer(t *testing.T) {
	tests := []struct {
		name string
		resp domain.Response
		want string
	}{
		{"response field", domain.Response{IsJSON: true, Body: []byte(`{"response":"r","message":"m"}`)}, "r"},
		{"message field", domain.Response{IsJSON: true, Body: []byte(`{"message":"m"}`)}, "m"},
		{"json string", domain.Response{IsJSON: true, Body: []byte(`"plain"`)}, "plain"},
		{"other json", domain.Response{IsJSON: true, Body: []byte(`{"rows":[1,2]}`)}, `{"rows":[1,2]}`},
		{"text", domain.Response{Body: []byte("  hello \n")}, "hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractAnswer(&tt.resp))
		})
	}
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(httpretry.NewClient(), Options{})
	assert.Equal(t, DefaultTimeout, c.opts.Timeout)
	assert.Equal(t, DefaultMaxAttempts, c.opts.MaxAttempts)
	assert.Equal(t, DefaultBackoffBase, c.opts.BackoffBase)
	assert.Equal(t, DefaultHealthTimeout, c.opts.HealthTimeout)
}
