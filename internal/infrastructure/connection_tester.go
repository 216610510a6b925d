package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/yourusername/mediafetch-go/internal/domain"
)

// Connection test outcomes
const (
	ConnectionOK        = "ok"
	Connection403       = "403_error"
	ConnectionHTTPError = "http_error"
	ConnectionFailed    = "failed"
)

// ConnectionTester checks that the probe site answers with the rotated User-Agent
type ConnectionTester struct {
	client *http.Client
	url    string
	agents *UserAgentPool
}

// NewConnectionTester creates a tester; timeout bounds the whole request
func NewConnectionTester(config *domain.DiagnosticsConfig, agents *UserAgentPool) *ConnectionTester {
	return &ConnectionTester{
		client: &http.Client{Timeout: config.Timeout},
		url:    config.ProbeURL,
		agents: agents,
	}
}

// Test sends a HEAD request to the probe URL
func (c *ConnectionTester) Test(ctx context.Context) domain.ConnectionResult {
	result := domain.ConnectionResult{URL: c.url, UserAgent: c.agents.Pick()}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.url, nil)
	if err != nil {
		result.Status = ConnectionFailed
		result.Message = fmt.Sprintf("invalid probe url: %v", err)
		return result
	}
	if result.UserAgent != "" {
		req.Header.Set("User-Agent", result.UserAgent)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	result.Latency = time.Since(start)
	result.LatencyMS = result.Latency.Milliseconds()
	if err != nil {
		result.Status = ConnectionFailed
		result.Message = fmt.Sprintf("request failed: %v", err)
		return result
	}
	resp.Body.Close()

	result.StatusCode = resp.StatusCode
	switch {
	case resp.StatusCode == http.StatusForbidden:
		result.Status = Connection403
		result.Message = "403 detected: update the extractor, clear its cache, then restart the service"
	case resp.StatusCode >= 400:
		result.Status = ConnectionHTTPError
		result.Message = fmt.Sprintf("probe answered %s", resp.Status)
	default:
		result.Status = ConnectionOK
		result.Message = "connection ok"
	}
	return result
}
