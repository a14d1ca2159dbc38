// Package crm queries the CRM webhook through the resilient request client.
package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/emrenamli69/regnum-presentation/internal/adapter/httpretry"
	"github.com/emrenamli69/regnum-presentation/internal/domain"
)

// UserAgent identifies the gateway to the CRM webhook.
const UserAgent = "Regnum-Employee-Assistant/1.0"

// Defaults used when Options leaves a field zero.
const (
	DefaultTimeout       = 60 * time.Second
	DefaultMaxAttempts   = 3
	DefaultBackoffBase   = time.Second
	DefaultHealthTimeout = 10 * time.Second
)

// Options configures the retry policy of CRM lookups.
type Options struct {
	Timeout       time.Duration
	MaxAttempts   int
	BackoffBase   time.Duration
	HealthTimeout time.Duration
}

// Result is a successful CRM lookup.
type Result struct {
	Answer   string
	Response *domain.Response
}

// Client performs CRM lookups and health probes.
type Client struct {
	requests   *httpretry.Client
	httpClient *http.Client
	opts       Options
}

// NewClient creates a CRM client on top of a resilient request client.
func NewClient(requests *httpretry.Client, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = DefaultBackoffBase
	}
	if opts.HealthTimeout <= 0 {
		opts.HealthTimeout = DefaultHealthTimeout
	}
	return &Client{
		requests:   requests,
		httpClient: &http.Client{},
		opts:       opts,
	}
}

// Query asks the CRM webhook of agent the given question.
func (c *Client) Query(ctx context.Context, agent domain.AgentConfig, question string) (*Result, error) {
	endpoint, err := QueryURL(agent.APIURL, question)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Accept", "application/json")
	header.Set("User-Agent", UserAgent)
	if agent.Username != "" || agent.Password != "" {
		header.Set("Authorization", "Basic "+BasicCredentials(agent.Username, agent.Password))
	}

	resp, err := c.requests.Do(ctx, domain.RetryableRequest{
		URL:         endpoint,
		Method:      http.MethodGet,
		Header:      header,
		Timeout:     c.opts.Timeout,
		MaxAttempts: c.opts.MaxAttempts,
		BackoffBase: c.opts.BackoffBase,
	})
	if err != nil {
		return nil, err
	}
	return &Result{Answer: ExtractAnswer(resp), Response: resp}, nil
}

// QueryURL appends the question to the webhook URL as the question
// parameter, keeping any parameters already present.
func QueryURL(base, question string) (string, error) {
	if base == "" {
		return "", fmt.Errorf("crm api url is not configured")
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid crm api url: %w", err)
	}
	q := u.Query()
	q.Set("question", question)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ExtractAnswer returns the response field of a JSON object reply, else its
// message field, else the reply text as is.
func ExtractAnswer(resp *domain.Response) string {
	if resp.IsJSON {
		var obj map[string]any
		if err := json.Unmarshal(resp.Body, &obj); err == nil {
			for _, key := range []string{"response", "message"} {
				if s, ok := obj[key].(string); ok && s != "" {
					return s
				}
			}
		}
		var s string
		if err := json.Unmarshal(resp.Body, &s); err == nil {
			return s
		}
	}
	return strings.TrimSpace(string(resp.Body))
}
