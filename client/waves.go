package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	natspkg "github.com/brojonat/waveportal/service/nats"
	"github.com/brojonat/waveportal/service/wave"
)

// Order selects how the server orders the returned waves.
type Order string

const (
	// OrderCanonical is insertion order, oldest first.
	OrderCanonical Order = "canonical"
	// OrderDisplay is most recent first, as shown on the page.
	OrderDisplay Order = "display"
)

// Portal is the wave portal state as reported by the server.
type Portal struct {
	Account    string      `json:"account,omitempty"`
	Connected  bool        `json:"connected"`
	Subscribed bool        `json:"subscribed"`
	Draft      string      `json:"draft"`
	Count      int         `json:"count"`
	Waves      []wave.Wave `json:"waves"`
}

// ListOptions narrows a List call.
type ListOptions struct {
	Order Order
	// Filters are jq expressions evaluated server side; a wave must match all of them.
	Filters []string
}

// maxEventSize bounds one SSE line. Wave messages are unbounded on chain and
// JSON escaping can grow them sixfold.
const maxEventSize = 4 << 20

// Client is the HTTP client for the waveportal server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new waveportal client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// List returns the waves currently held by the server.
func (c *Client) List(ctx context.Context, opts ListOptions) (*Portal, error) {
	params := url.Values{}
	if opts.Order != "" {
		params.Set("order", string(opts.Order))
	}
	for _, f := range opts.Filters {
		params.Add("filter", f)
	}

	endpoint := c.baseURL + "/api/v1/waves"
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	portal, err := c.doPortal(req, http.StatusOK)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("waves listed", "count", len(portal.Waves))
	return portal, nil
}

// Submit asks the server to send a wave. The server answers as soon as the
// submission has started; the wave appears in List once the contract emits it.
// An empty message sends the server's current draft.
func (c *Client) Submit(ctx context.Context, message string) error {
	reqBody := map[string]interface{}{}
	if message != "" {
		reqBody["message"] = message
	}

	req, err := c.newJSONRequest(ctx, "POST", "/api/v1/waves", reqBody)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return c.parseErrorResponse(resp)
	}

	c.logger.Debug("wave submitted", "length", len(message))
	return nil
}

// Connect asks the server to connect its wallet. When the server has no
// wallet configured the returned error carries the alert text.
func (c *Client) Connect(ctx context.Context) (*Portal, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/v1/connect", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.doPortal(req, http.StatusOK)
}

// Refresh asks the server to refetch every wave from the contract.
func (c *Client) Refresh(ctx context.Context) (*Portal, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/v1/waves/refresh", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.doPortal(req, http.StatusOK)
}

// SetDraft replaces the server's draft message.
func (c *Client) SetDraft(ctx context.Context, draft string) (*Portal, error) {
	req, err := c.newJSONRequest(ctx, "PUT", "/api/v1/draft", map[string]string{"draft": draft})
	if err != nil {
		return nil, err
	}
	return c.doPortal(req, http.StatusOK)
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server unhealthy (status %d): %s", resp.StatusCode, string(body))
	}
	return nil
}

// StreamWaves connects to the server's SSE endpoint and calls handler for
// every wave appended while the stream is open. It returns nil when ctx is
// cancelled, and the handler's error if it returns one.
func (c *Client) StreamWaves(ctx context.Context, handler func(*natspkg.WaveEvent) error) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/v1/stream/waves", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	// The configured client may carry a timeout, which would cut the stream.
	streamClient := &http.Client{Transport: c.httpClient.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to connect to SSE endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseErrorResponse(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)
	var currentEvent, currentData string

	for scanner.Scan() {
		line := scanner.Text()

		// Empty line indicates end of event
		if line == "" {
			if currentEvent != "" && currentData != "" {
				if err := c.dispatchEvent(currentEvent, currentData, handler); err != nil {
					return err
				}
			}
			currentEvent = ""
			currentData = ""
			continue
		}

		if strings.HasPrefix(line, "event:") {
			currentEvent = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		} else if strings.HasPrefix(line, "data:") {
			currentData = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("error reading SSE stream: %w", err)
	}
	return nil
}

func (c *Client) dispatchEvent(eventType, data string, handler func(*natspkg.WaveEvent) error) error {
	switch eventType {
	case "connected":
		c.logger.Debug("stream connected", "data", data)
		return nil

	case "wave":
		var event natspkg.WaveEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			c.logger.Warn("failed to decode wave event", "error", err)
			return nil
		}
		return handler(&event)

	case "error":
		var errResp struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal([]byte(data), &errResp); err != nil {
			return fmt.Errorf("server error: %s", data)
		}
		return fmt.Errorf("server error: %s", errResp.Error)

	default:
		return nil
	}
}

func (c *Client) newJSONRequest(ctx context.Context, method, path string, payload interface{}) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) doPortal(req *http.Request, wantStatus int) (*Portal, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return nil, c.parseErrorResponse(resp)
	}

	var portal Portal
	if err := json.NewDecoder(resp.Body).Decode(&portal); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if portal.Waves == nil {
		portal.Waves = []wave.Wave{}
	}
	return &portal, nil
}

// parseErrorResponse extracts an error message from an HTTP error response.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	var errResp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return fmt.Errorf("request failed: %s", errResp.Error)
}
