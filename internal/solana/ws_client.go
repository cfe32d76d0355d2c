package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// SubscribeTimeout bounds the wait for a subscription id.
	SubscribeTimeout time.Duration
	// Logger receives connection-level errors.
	Logger zerolog.Logger
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		SubscribeTimeout:  30 * time.Second,
		Logger:            zerolog.Nop(),
	}
}

// signatureSub is an outstanding signature subscription.
type signatureSub struct {
	signature  string
	commitment Commitment
	ch         chan SignatureNotification
	delivered  bool // guarded by subsMu
}

// pendingSub is a signatureSubscribe request awaiting the node's reply.
type pendingSub struct {
	sub    *signatureSub
	result chan subResult
}

type subResult struct {
	id  int64
	err error
}

// WSClientImpl implements WSClient using gorilla/websocket.
type WSClientImpl struct {
	endpoint string
	config   WSClientConfig

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// subs maps subscription ID to its outstanding subscription
	subs   map[int64]*signatureSub
	subsMu sync.Mutex

	// pendingSubs maps request ID to the subscription waiting for its ID
	pendingSubs   map[uint64]*pendingSub
	pendingSubsMu sync.Mutex

	// done signals shutdown
	done chan struct{}
	wg   sync.WaitGroup

	// reconnecting indicates reconnection in progress
	reconnecting atomic.Bool
}

// Compile-time interface check.
var _ WSClient = (*WSClientImpl)(nil)

// NewWSClient creates a new WebSocket client and connects to the endpoint.
func NewWSClient(ctx context.Context, endpoint string, config *WSClientConfig) (*WSClientImpl, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		def := cfg
		cfg = *config
		if cfg.PingInterval <= 0 {
			cfg.PingInterval = def.PingInterval
		}
		if cfg.SubscribeTimeout <= 0 {
			cfg.SubscribeTimeout = def.SubscribeTimeout
		}
		if cfg.WriteTimeout <= 0 {
			cfg.WriteTimeout = def.WriteTimeout
		}
		if cfg.ReadTimeout <= 0 {
			cfg.ReadTimeout = def.ReadTimeout
		}
	}

	c := &WSClientImpl{
		endpoint:    endpoint,
		config:      cfg,
		subs:        make(map[int64]*signatureSub),
		pendingSubs: make(map[uint64]*pendingSub),
		done:        make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	// Start reader goroutine
	c.wg.Add(1)
	go c.readLoop()

	// Start ping goroutine
	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

// connect establishes WebSocket connection.
func (c *WSClientImpl) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	return nil
}

// SubscribeSignature subscribes to the result of a single transaction signature.
func (c *WSClientImpl) SubscribeSignature(ctx context.Context, signature string, commitment Commitment) (<-chan SignatureNotification, error) {
	// Buffer of one: the node sends exactly one notification per subscription.
	sub := &signatureSub{
		signature:  signature,
		commitment: commitment,
		ch:         make(chan SignatureNotification, 1),
	}
	if err := c.subscribe(ctx, sub); err != nil {
		// The reply may have registered the subscription after we gave up on it.
		c.unsubscribe(sub)
		return nil, err
	}

	go func() {
		select {
		case <-ctx.Done():
			c.unsubscribe(sub)
		case <-c.done:
		}
	}()

	return sub.ch, nil
}

// subscribe sends signatureSubscribe for sub and waits until the node either
// acknowledges it, at which point sub is registered, or rejects it.
func (c *WSClientImpl) subscribe(ctx context.Context, sub *signatureSub) error {
	if c.closed.Load() {
		return fmt.Errorf("client closed")
	}

	reqID := c.requestID.Add(1)

	cfg := map[string]interface{}{}
	if sub.commitment != "" {
		cfg["commitment"] = string(sub.commitment)
	}

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "signatureSubscribe",
		Params:  []interface{}{sub.signature, cfg},
	}

	pending := &pendingSub{sub: sub, result: make(chan subResult, 1)}
	c.pendingSubsMu.Lock()
	c.pendingSubs[reqID] = pending
	c.pendingSubsMu.Unlock()

	if err := c.write(req); err != nil {
		c.dropPending(reqID)
		return err
	}

	select {
	case res, ok := <-pending.result:
		if !ok {
			return fmt.Errorf("client closed")
		}
		return res.err
	case <-time.After(c.config.SubscribeTimeout):
		c.dropPending(reqID)
		return fmt.Errorf("subscription timeout after %s", c.config.SubscribeTimeout)
	case <-c.done:
		return fmt.Errorf("client closed")
	case <-ctx.Done():
		c.dropPending(reqID)
		return ctx.Err()
	}
}

// unsubscribe removes a subscription abandoned by its caller and tells the node.
func (c *WSClientImpl) unsubscribe(sub *signatureSub) {
	var (
		subID int64
		found bool
	)
	c.subsMu.Lock()
	for id, s := range c.subs {
		if s == sub {
			subID, found = id, true
			delete(c.subs, id)
			break
		}
	}
	c.subsMu.Unlock()

	if !found {
		return
	}

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  "signatureUnsubscribe",
		Params:  []interface{}{subID},
	}
	if err := c.write(req); err != nil {
		c.config.Logger.Debug().Err(err).Int64("subscription", subID).Msg("signatureUnsubscribe failed")
	}
}

// takePending removes and returns the pending subscription for reqID.
func (c *WSClientImpl) takePending(reqID uint64) (*pendingSub, bool) {
	c.pendingSubsMu.Lock()
	defer c.pendingSubsMu.Unlock()
	p, ok := c.pendingSubs[reqID]
	if ok {
		delete(c.pendingSubs, reqID)
	}
	return p, ok
}

// write sends a JSON message on the current connection.
func (c *WSClientImpl) write(req wsRequest) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("not connected")
	}

	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := c.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write %s: %w", req.Method, err)
	}
	return nil
}

func (c *WSClientImpl) dropPending(reqID uint64) {
	c.pendingSubsMu.Lock()
	delete(c.pendingSubs, reqID)
	c.pendingSubsMu.Unlock()
}

// Close closes the WebSocket connection.
func (c *WSClientImpl) Close() error {
	if c.closed.Swap(true) {
		return nil // Already closed
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	// Close all subscription channels
	c.subsMu.Lock()
	for id, sub := range c.subs {
		close(sub.ch)
		delete(c.subs, id)
	}
	c.subsMu.Unlock()

	// Close pending subscription channels
	c.pendingSubsMu.Lock()
	for id, p := range c.pendingSubs {
		close(p.result)
		delete(c.pendingSubs, id)
	}
	c.pendingSubsMu.Unlock()

	c.wg.Wait()
	return nil
}

// readLoop reads messages from WebSocket and dispatches to subscribers.
func (c *WSClientImpl) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}

			// Connection error - attempt reconnect with exponential backoff
			if !c.reconnecting.Swap(true) {
				go c.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > c.config.MaxReconnectDelay {
				reconnectDelay = c.config.MaxReconnectDelay
			}

			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		// Reset delay on successful read
		reconnectDelay = c.config.ReconnectDelay

		c.handleMessage(message)
	}
}

// reconnect attempts to reconnect and resubscribe.
func (c *WSClientImpl) reconnect(delay time.Duration) {
	defer c.reconnecting.Store(false)

	if c.closed.Load() {
		return
	}

	select {
	case <-c.done:
		return
	case <-time.After(delay):
	}

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.connect(ctx); err != nil {
		c.config.Logger.Warn().Err(err).Msg("websocket reconnect failed")
		return
	}

	c.resubscribeAll()
}

// resubscribeAll re-registers outstanding signature subscriptions after reconnect.
// A signature already processed while disconnected is notified immediately by the node.
func (c *WSClientImpl) resubscribeAll() {
	c.subsMu.Lock()
	outstanding := make([]*signatureSub, 0, len(c.subs))
	for _, sub := range c.subs {
		outstanding = append(outstanding, sub)
	}
	c.subsMu.Unlock()

	for _, sub := range outstanding {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := c.subscribe(ctx, sub)
		cancel()

		if err != nil {
			// Keep old mapping; callers fall back to status polling.
			c.config.Logger.Debug().Err(err).Str("signature", sub.signature).Msg("resubscribe failed")
		}
	}
}

// handleMessage processes incoming WebSocket message.
func (c *WSClientImpl) handleMessage(message []byte) {
	// Try to parse as subscription response first
	var resp wsSubscribeResponse
	if err := json.Unmarshal(message, &resp); err == nil && resp.Result != nil && resp.ID > 0 {
		c.handleSubscribeResponse(&resp)
		return
	}

	// Try to parse as notification
	var notif wsNotification
	if err := json.Unmarshal(message, &notif); err == nil && notif.Method == "signatureNotification" {
		c.handleSignatureNotification(&notif)
		return
	}

	var errResp struct {
		JSONRPC string `json:"jsonrpc"`
		ID      uint64 `json:"id"`
		Error   *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(message, &errResp); err == nil && errResp.Error != nil {
		if p, ok := c.takePending(errResp.ID); ok {
			p.result <- subResult{err: fmt.Errorf("signatureSubscribe rejected: %d %s",
				errResp.Error.Code, errResp.Error.Message)}
			return
		}
		c.config.Logger.Warn().
			Int("code", errResp.Error.Code).
			Str("message", errResp.Error.Message).
			Uint64("request_id", errResp.ID).
			Msg("websocket error response")
	}
}

// handleSubscribeResponse registers the acknowledged subscription before the
// reader moves on, so a notification sent right behind the ack finds it.
func (c *WSClientImpl) handleSubscribeResponse(resp *wsSubscribeResponse) {
	p, ok := c.takePending(resp.ID)
	if !ok {
		return
	}
	subID := *resp.Result

	c.subsMu.Lock()
	closed := c.closed.Load()
	if !closed && !p.sub.delivered {
		// A resubscribe replaces the id the subscription was known under.
		for id, s := range c.subs {
			if s == p.sub {
				delete(c.subs, id)
			}
		}
		c.subs[subID] = p.sub
	}
	c.subsMu.Unlock()

	if closed {
		p.result <- subResult{err: fmt.Errorf("client closed")}
		return
	}
	p.result <- subResult{id: subID}
}

// handleSignatureNotification delivers the result and retires the subscription.
func (c *WSClientImpl) handleSignatureNotification(notif *wsNotification) {
	if notif.Params == nil {
		return
	}

	subID := notif.Params.Subscription

	c.subsMu.Lock()
	sub, ok := c.subs[subID]
	if ok {
		delete(c.subs, subID)
		sub.delivered = true
	}
	c.subsMu.Unlock()

	if !ok {
		return
	}

	result := SignatureNotification{
		Signature: sub.signature,
		Err:       notif.Params.Result.Value.Err,
	}
	if notif.Params.Result.Context != nil {
		result.Slot = notif.Params.Result.Context.Slot
	}

	sub.ch <- result
	close(sub.ch)
}

// pingLoop sends periodic ping frames to keep connection alive.
func (c *WSClientImpl) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				// A failed ping is picked up by the reader as a read error.
				_ = c.conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.connMu.Unlock()
		}
	}
}

// WebSocket message types

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsSubscribeResponse struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Result  *int64 `json:"result"` // subscription ID; zero is valid
}

type wsNotification struct {
	JSONRPC string                `json:"jsonrpc"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64                `json:"subscription"`
	Result       wsNotificationResult `json:"result"`
}

type wsNotificationResult struct {
	Context *wsContext       `json:"context"`
	Value   wsSignatureValue `json:"value"`
}

type wsContext struct {
	Slot uint64 `json:"slot"`
}

type wsSignatureValue struct {
	Err interface{} `json:"err"`
}
