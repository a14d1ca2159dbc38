package crm

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"goa.design/clue/log"

	"github.com/emrenamli69/regnum-presentation/internal/domain"
)

// BasicCredentials encodes username and password for a Basic auth header.
func BasicCredentials(username, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}

// Health probes the CRM endpoint at rawURL. The probe never fails as a
// call; every problem is reported as a check in the returned report.
func (c *Client) Health(ctx context.Context, rawURL, username, password string) *domain.HealthReport {
	report := domain.NewHealthReport(time.Now().UTC().Format(time.RFC3339))
	target, err := url.Parse(rawURL)
	if err != nil || target.Host == "" {
		report.Checks.Network = domain.Check{Status: domain.CheckError, Message: "Invalid URL"}
		report.Finalize()
		return report
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.HealthTimeout)
	defer cancel()

	log.Info(ctx, log.KV{K: "msg", V: "crm health check"}, log.KV{K: "host", V: target.Hostname()})

	resp, err := c.probe(ctx, http.MethodHead, rawURL, "")
	if err != nil && ctx.Err() == nil {
		resp, err = c.probe(ctx, http.MethodGet, rawURL, "")
	}
	if err != nil {
		report.Checks.Network = classifyConnError(err, c.opts.HealthTimeout)
		report.Finalize()
		return report
	}

	report.Checks.Network = domain.Check{
		Status:  domain.CheckOK,
		Message: "Successfully connected to " + target.Hostname(),
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		report.Checks.APIEndpoint = domain.Check{Status: domain.CheckInfo, Message: "Endpoint requires authentication"}
		if username == "" || password == "" {
			report.Checks.Auth = domain.Check{Status: domain.CheckWarning, Message: "No credentials provided for testing"}
			break
		}
		authResp, err := c.probe(ctx, http.MethodGet, rawURL, BasicCredentials(username, password))
		switch {
		case err != nil:
			report.Checks.Auth = domain.Check{Status: domain.CheckError, Message: "Authentication request failed: " + err.Error()}
		case authResp.StatusCode >= 200 && authResp.StatusCode < 300:
			report.Checks.Auth = domain.Check{Status: domain.CheckOK, Message: "Authentication successful"}
			report.Checks.APIEndpoint = domain.Check{
				Status:  domain.CheckOK,
				Message: fmt.Sprintf("Endpoint responding with status %d", authResp.StatusCode),
			}
		default:
			report.Checks.Auth = domain.Check{
				Status:  domain.CheckError,
				Message: fmt.Sprintf("Authentication failed with status %d", authResp.StatusCode),
			}
		}
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		report.Checks.APIEndpoint = domain.Check{
			Status:  domain.CheckOK,
			Message: fmt.Sprintf("Endpoint responding with status %d", resp.StatusCode),
		}
		report.Checks.Auth = domain.Check{Status: domain.CheckInfo, Message: "No authentication required or already authenticated"}
	default:
		report.Checks.APIEndpoint = domain.Check{
			Status:  domain.CheckError,
			Message: fmt.Sprintf("Endpoint returned status %d", resp.StatusCode),
		}
	}

	report.Finalize()
	return report
}

type probeResult struct {
	StatusCode int
}

func (c *Client) probe(ctx context.Context, method, rawURL, credentials string) (*probeResult, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", UserAgent)
	if credentials != "" {
		req.Header.Set("Authorization", "Basic "+credentials)
		req.Header.Set("Accept", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	resp.Body.Close()
	return &probeResult{StatusCode: resp.StatusCode}, nil
}

func classifyConnError(err error, timeout time.Duration) domain.Check {
	var (
		dnsErr      *net.DNSError
		certErr     *tls.CertificateVerificationError
		unknownAuth x509.UnknownAuthorityError
		hostErr     x509.HostnameError
		invalidCert x509.CertificateInvalidError
	)
	switch {
	case domain.IsTimeout(err):
		return domain.Check{Status: domain.CheckError, Message: fmt.Sprintf("Connection timeout (%d seconds)", int(timeout.Seconds()))}
	case errors.Is(err, syscall.ECONNREFUSED):
		return domain.Check{Status: domain.CheckError, Message: "Connection refused - endpoint may be down or blocked"}
	case errors.As(err, &dnsErr):
		return domain.Check{Status: domain.CheckError, Message: "DNS resolution failed - hostname not found"}
	case errors.Is(err, syscall.ENETUNREACH):
		return domain.Check{Status: domain.CheckError, Message: "Network unreachable - check network connectivity"}
	case errors.As(err, &certErr), errors.As(err, &unknownAuth), errors.As(err, &hostErr), errors.As(err, &invalidCert):
		return domain.Check{Status: domain.CheckWarning, Message: "SSL/TLS certificate issue detected"}
	default:
		return domain.Check{Status: domain.CheckError, Message: err.Error()}
	}
}
