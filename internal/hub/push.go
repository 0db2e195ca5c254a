package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/coder/websocket"
)

// pushReconnectDelay is the backoff between websocket reconnect attempts.
const pushReconnectDelay = 10 * time.Second

// PushFeed subscribes to the hub's websocket emergency stream and forwards
// status events to a handler. It is strictly additive to status polling:
// events feed the same transition path the poller uses, they just arrive
// sooner.
//
// The feed reconnects forever until ctx is cancelled; a hub that does not
// expose the stream simply results in periodic reconnect attempts at debug
// log level.
type PushFeed struct {
	client  *Client
	handler func(StatusEvent)
}

// NewPushFeed creates a feed delivering events to handler. The handler is
// called from the feed's goroutine and must not block.
func NewPushFeed(client *Client, handler func(StatusEvent)) *PushFeed {
	return &PushFeed{client: client, handler: handler}
}

// Run connects and reads events until ctx is cancelled.
func (f *PushFeed) Run(ctx context.Context) {
	for {
		if err := f.connectAndRead(ctx); err != nil && ctx.Err() == nil {
			slog.Debug("hub push: stream closed, reconnecting", "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(pushReconnectDelay):
		}
	}
}

func (f *PushFeed) connectAndRead(ctx context.Context) error {
	wsURL := strings.Replace(f.client.BaseURL(), "http", "ws", 1) + "/emergency/stream"

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "feed closed")

	slog.Debug("hub push: connected", "url", wsURL)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var ev struct {
			Type    string `json:"type"`
			AlertID int64  `json:"alert_id"`
			Status  string `json:"status"`
		}
		if err := json.Unmarshal(data, &ev); err != nil {
			slog.Debug("hub push: malformed event", "err", err)
			continue
		}

		switch ev.Type {
		case "CONNECTED", "HEARTBEAT":
			// Stream bookkeeping frames.
		case "EMERGENCY_STATUS":
			f.handler(StatusEvent{AlertID: ev.AlertID, Status: ev.Status})
		default:
			slog.Debug("hub push: ignoring event", "type", ev.Type)
		}
	}
}
