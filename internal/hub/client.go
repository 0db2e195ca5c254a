// Package hub implements the HTTP+JSON client for the remote answering
// service ("hub"), its liveness pinger, and the optional websocket push feed
// for emergency status updates.
//
// The hub owns search, translation, and rating aggregation; this package
// only speaks its wire protocol and classifies transport failures into the
// kiosk error taxonomy ([ErrUnreachable], [ErrTimeout], generic).
package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/keithruezyl1/ResKiosk--sub000/internal/config"
)

// Sentinel errors for transport-failure classification. Callers match with
// errors.Is; anything else returned from a client method is a generic hub
// failure.
var (
	// ErrUnreachable means the hub could not be connected to at all.
	ErrUnreachable = errors.New("hub: unreachable")

	// ErrTimeout means the hub accepted the connection but did not answer
	// within the request deadline.
	ErrTimeout = errors.New("hub: request timed out")
)

// Client talks to the hub. The base URL is read from the preference store on
// every request, so a runtime endpoint change takes effect immediately.
//
// All methods are safe for concurrent use.
type Client struct {
	prefs      *config.Store
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient creates a hub client reading its endpoint from prefs.
// requestTimeout bounds every call; zero means 10 seconds.
func NewClient(prefs *config.Store, requestTimeout time.Duration) *Client {
	if requestTimeout <= 0 {
		requestTimeout = 10 * time.Second
	}
	return &Client{
		prefs:      prefs,
		httpClient: &http.Client{},
		timeout:    requestTimeout,
	}
}

// Ping probes GET /admin/ping. A nil error means the hub is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/admin/ping", nil, nil)
}

// Query submits a query payload and decodes the hub's answer.
func (c *Client) Query(ctx context.Context, req QueryRequest) (QueryResponse, error) {
	var resp QueryResponse
	if err := c.do(ctx, http.MethodPost, "/query", req, &resp); err != nil {
		return QueryResponse{}, err
	}
	return resp, nil
}

// Emergency delivers an emergency alert and returns the server-assigned
// alert id.
func (c *Client) Emergency(ctx context.Context, req EmergencyRequest) (int64, error) {
	var resp EmergencyResponse
	if err := c.do(ctx, http.MethodPost, "/emergency", req, &resp); err != nil {
		return 0, err
	}
	return resp.AlertID, nil
}

// EmergencyStatus fetches the current status string for alertID.
func (c *Client) EmergencyStatus(ctx context.Context, alertID int64) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	path := fmt.Sprintf("/emergency/%d/status", alertID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// DismissEmergency notifies the hub that the kiosk user dismissed alertID.
func (c *Client) DismissEmergency(ctx context.Context, alertID int64) error {
	path := fmt.Sprintf("/emergency/%d/dismiss", alertID)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// Feedback submits a rating record.
func (c *Client) Feedback(ctx context.Context, req FeedbackRequest) error {
	return c.do(ctx, http.MethodPost, "/feedback", req, nil)
}

// EndSession tells the hub to release the server-side memory for sessionID.
func (c *Client) EndSession(ctx context.Context, sessionID string) error {
	path := "/query/session/" + url.PathEscape(sessionID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// BaseURL returns the hub endpoint currently in effect.
func (c *Client) BaseURL() string {
	return c.prefs.Get().HubURL
}

// do performs one JSON request/response round trip. body and out may be nil.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("hub: marshal %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL()+path, reader)
	if err != nil {
		return fmt.Errorf("hub: build request %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classify(err, method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain a little of the body for the log line, then discard.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("hub: %s %s: status %d: %s", method, path, resp.StatusCode, snippet)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("hub: decode %s %s response: %w", method, path, err)
		}
	}
	return nil
}

// classify maps a transport error onto the sentinel taxonomy.
func classify(err error, method, path string) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("hub: %s %s: %w", method, path, ErrTimeout)
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("hub: %s %s: %w", method, path, ErrTimeout)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return fmt.Errorf("hub: %s %s: %w", method, path, ErrUnreachable)
	}
	return fmt.Errorf("hub: %s %s: %w", method, path, err)
}
