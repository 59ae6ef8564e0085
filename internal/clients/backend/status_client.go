// Package backend provides the client for the remote quantum backend
// status feed.
package backend

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/qvarlab/qvar/internal/events"
)

const (
	writeWait   = 10 * time.Second
	dialTimeout = 30 * time.Second

	baseReconnectDelay   = 5 * time.Second
	maxReconnectDelay    = 5 * time.Minute
	maxReconnectAttempts = 10

	statusStaleThreshold = 5 * time.Minute
)

// Status is the last known state of the remote backend fleet.
type Status struct {
	Online     bool      `json:"online"`
	Backends   int       `json:"backends"`
	QueueDepth int       `json:"queue_depth"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// statusMessage is the wire form of one status push.
type statusMessage struct {
	Online     bool   `json:"online"`
	Backends   int    `json:"backends"`
	QueueDepth int    `json:"queue_depth"`
	Timestamp  string `json:"timestamp"`
}

// StatusClient maintains a WebSocket subscription to the backend status
// feed, caching the latest status and emitting events on change.
type StatusClient struct {
	url        string
	httpClient *http.Client
	conn       *websocket.Conn
	connCtx    context.Context
	cancelFunc context.CancelFunc
	mu         sync.RWMutex

	eventBus *events.Bus
	log      zerolog.Logger

	connected    bool
	reconnecting bool
	stopChan     chan struct{}
	stopped      bool

	status   Status
	statusMu sync.RWMutex
}

// createHTTP1Client creates an HTTP client that forces HTTP/1.1.
// WebSocket requires HTTP/1.1 for the upgrade handshake, but proxies in
// front of the backend negotiate HTTP/2 via TLS ALPN.
func createHTTP1Client() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSClientConfig: &tls.Config{
				NextProtos: []string{"http/1.1"},
			},
			ForceAttemptHTTP2: false,
		},
	}
}

// NewStatusClient creates a new backend status client
func NewStatusClient(url string, eventBus *events.Bus, log zerolog.Logger) *StatusClient {
	return &StatusClient{
		url:        url,
		httpClient: createHTTP1Client(),
		eventBus:   eventBus,
		log:        log.With().Str("component", "backend_status").Logger(),
		stopChan:   make(chan struct{}),
	}
}

// Start initializes the WebSocket connection and starts the read loop
func (c *StatusClient) Start() error {
	c.log.Info().Msg("Starting backend status client")

	if err := c.Connect(); err != nil {
		c.log.Warn().Err(err).Msg("Initial connection failed, will retry in background")
		go c.reconnectLoop()
		return err
	}

	c.mu.RLock()
	ctx := c.connCtx
	c.mu.RUnlock()
	go c.readMessages(ctx)

	return nil
}

// Stop gracefully shuts down the WebSocket connection
func (c *StatusClient) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	c.mu.Unlock()

	c.log.Info().Msg("Stopping backend status client")
	close(c.stopChan)
	return c.Disconnect()
}

// Connect establishes the WebSocket connection and subscribes to the
// status channel.
func (c *StatusClient) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.log.Info().Str("url", c.url).Msg("Connecting to backend status feed")

	dialCtx, dialCancel := context.WithTimeout(context.Background(), dialTimeout)
	defer dialCancel()

	conn, _, err := websocket.Dial(dialCtx, c.url, &websocket.DialOptions{
		HTTPClient: c.httpClient,
	})
	if err != nil {
		return fmt.Errorf("failed to dial WebSocket: %w", err)
	}

	connCtx, connCancel := context.WithCancel(context.Background())
	c.conn = conn
	c.connCtx = connCtx
	c.cancelFunc = connCancel
	c.connected = true

	if err := c.subscribe(connCtx); err != nil {
		connCancel()
		conn.Close(websocket.StatusNormalClosure, "subscribe failed")
		c.conn = nil
		c.connCtx = nil
		c.cancelFunc = nil
		c.connected = false
		return fmt.Errorf("failed to subscribe to status channel: %w", err)
	}

	c.log.Info().Msg("Connected to backend status feed")
	return nil
}

// Disconnect closes the WebSocket connection
func (c *StatusClient) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}

	if c.cancelFunc != nil {
		c.cancelFunc()
		c.cancelFunc = nil
	}

	err := c.conn.Close(websocket.StatusNormalClosure, "")
	c.conn = nil
	c.connCtx = nil
	c.connected = false

	if err != nil {
		return fmt.Errorf("error closing WebSocket: %w", err)
	}
	return nil
}

// Connected reports whether the client currently holds a live connection.
func (c *StatusClient) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// LastStatus returns the cached backend status and whether it is still
// fresh enough to trust.
func (c *StatusClient) LastStatus() (Status, bool) {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	fresh := !c.status.UpdatedAt.IsZero() && time.Since(c.status.UpdatedAt) < statusStaleThreshold
	return c.status, fresh
}

// subscribe sends the subscription message for the status channel
func (c *StatusClient) subscribe(ctx context.Context) error {
	data, err := json.Marshal([]string{"status"})
	if err != nil {
		return fmt.Errorf("failed to marshal subscription message: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()

	if err := c.conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("failed to send subscription message: %w", err)
	}
	return nil
}

// readMessages continuously reads messages from the WebSocket
func (c *StatusClient) readMessages(ctx context.Context) {
	defer func() {
		c.log.Info().Msg("Read loop stopped")
		c.mu.RLock()
		stopped := c.stopped
		c.mu.RUnlock()
		if !stopped {
			go c.reconnectLoop()
		}
	}()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()
		if conn == nil {
			return
		}

		msgType, message, err := conn.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				c.log.Info().Int("status", int(closeStatus)).Msg("WebSocket closed normally")
			} else if ctx.Err() != nil {
				c.log.Debug().Msg("Read cancelled by context")
			} else {
				c.log.Error().Err(err).Msg("Unexpected WebSocket read error")
			}
			return
		}

		if msgType != websocket.MessageText {
			continue
		}

		if err := c.handleMessage(message); err != nil {
			c.log.Error().Err(err).Str("message", string(message)).Msg("Failed to handle message")
		}
	}
}

// handleMessage parses a ["channel", data] frame and applies status
// updates.
func (c *StatusClient) handleMessage(message []byte) error {
	var frame []json.RawMessage
	if err := json.Unmarshal(message, &frame); err != nil {
		return fmt.Errorf("failed to parse message array: %w", err)
	}
	if len(frame) < 2 {
		return fmt.Errorf("message array too short: expected 2 elements, got %d", len(frame))
	}

	var channel string
	if err := json.Unmarshal(frame[0], &channel); err != nil {
		return fmt.Errorf("failed to parse channel: %w", err)
	}
	if channel != "status" {
		return nil
	}

	var msg statusMessage
	if err := json.Unmarshal(frame[1], &msg); err != nil {
		return fmt.Errorf("failed to parse status data: %w", err)
	}

	c.statusMu.Lock()
	c.status = Status{
		Online:     msg.Online,
		Backends:   msg.Backends,
		QueueDepth: msg.QueueDepth,
		UpdatedAt:  time.Now(),
	}
	c.statusMu.Unlock()

	if c.eventBus != nil {
		c.eventBus.EmitTyped("backend_status", &events.BackendStatusChangedData{
			Connected: msg.Online,
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}
	return nil
}

// reconnectLoop handles automatic reconnection with exponential backoff
func (c *StatusClient) reconnectLoop() {
	c.mu.Lock()
	if c.reconnecting || c.stopped {
		c.mu.Unlock()
		return
	}
	c.reconnecting = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.reconnecting = false
		c.mu.Unlock()
	}()

	attempt := 0
	for {
		select {
		case <-c.stopChan:
			return
		default:
		}

		c.mu.RLock()
		stopped := c.stopped
		c.mu.RUnlock()
		if stopped {
			return
		}

		attempt++
		if attempt > maxReconnectAttempts {
			c.log.Error().
				Int("attempts", attempt-1).
				Msg("Giving up on backend status reconnection")
			return
		}

		delay := c.calculateBackoff(attempt)
		c.log.Info().
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("Reconnecting to backend status feed")

		select {
		case <-c.stopChan:
			return
		case <-time.After(delay):
		}

		if err := c.Connect(); err != nil {
			c.log.Warn().Err(err).Int("attempt", attempt).Msg("Reconnection failed")
			continue
		}

		c.mu.RLock()
		ctx := c.connCtx
		c.mu.RUnlock()
		go c.readMessages(ctx)
		return
	}
}

// calculateBackoff returns the delay before the given reconnect attempt.
func (c *StatusClient) calculateBackoff(attempt int) time.Duration {
	delay := time.Duration(float64(baseReconnectDelay) * math.Pow(2, float64(attempt-1)))
	if delay > maxReconnectDelay {
		delay = maxReconnectDelay
	}
	return delay
}
