package finnhub

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

	"github.com/aristath/papertrade/internal/domain"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
)

const (
	writeWait   = 10 * time.Second
	dialTimeout = 30 * time.Second

	baseReconnectDelay   = 5 * time.Second
	maxReconnectDelay    = 5 * time.Minute
	maxReconnectAttempts = 10
)

// QuoteSink receives live quotes from the websocket feed
type QuoteSink interface {
	PutLive(quote domain.Quote)
}

// WebSocket streams real-time trades from Finnhub and pushes them into a
// QuoteSink. Subscriptions survive reconnects.
type WebSocket struct {
	url        string
	token      string
	httpClient *http.Client
	conn       *websocket.Conn
	connCtx    context.Context
	cancelFunc context.CancelFunc
	mu         sync.RWMutex

	sink QuoteSink
	log  zerolog.Logger

	connected    bool
	reconnecting bool
	stopChan     chan struct{}
	stopped      bool

	// Desired subscriptions, replayed after every (re)connect
	subscribed map[string]bool
	subMu      sync.Mutex
}

// createHTTP1Client creates an HTTP client that forces HTTP/1.1.
// Proxies negotiate HTTP/2 via TLS ALPN, but the websocket upgrade
// handshake requires HTTP/1.1.
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

// NewWebSocket creates a new Finnhub websocket client
func NewWebSocket(url, token string, sink QuoteSink, log zerolog.Logger) *WebSocket {
	return &WebSocket{
		url:        url,
		token:      token,
		httpClient: createHTTP1Client(),
		sink:       sink,
		log:        log.With().Str("component", "finnhub_websocket").Logger(),
		stopChan:   make(chan struct{}),
		subscribed: make(map[string]bool),
	}
}

// Start initializes the websocket connection and starts the read loop
func (ws *WebSocket) Start() error {
	ws.log.Info().Msg("Starting Finnhub websocket client")

	if err := ws.connect(); err != nil {
		ws.log.Warn().Err(err).Msg("Initial websocket connection failed, will retry in background")
		go ws.reconnectLoop()
		return err
	}

	ws.mu.RLock()
	ctx := ws.connCtx
	ws.mu.RUnlock()
	go ws.readMessages(ctx)

	return nil
}

// Stop gracefully shuts down the websocket connection
func (ws *WebSocket) Stop() error {
	ws.mu.Lock()
	if ws.stopped {
		ws.mu.Unlock()
		return nil
	}
	ws.stopped = true
	ws.mu.Unlock()

	ws.log.Info().Msg("Stopping Finnhub websocket client")
	close(ws.stopChan)
	return ws.disconnect()
}

// IsConnected reports whether the feed is currently connected
func (ws *WebSocket) IsConnected() bool {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.connected
}

// Subscribe starts streaming trades for a symbol
func (ws *WebSocket) Subscribe(symbol string) {
	ws.subMu.Lock()
	ws.subscribed[symbol] = true
	ws.subMu.Unlock()

	if err := ws.sendControl("subscribe", symbol); err != nil {
		ws.log.Debug().Err(err).Str("symbol", symbol).Msg("Subscribe deferred until connected")
	}
}

// Unsubscribe stops streaming trades for a symbol
func (ws *WebSocket) Unsubscribe(symbol string) {
	ws.subMu.Lock()
	delete(ws.subscribed, symbol)
	ws.subMu.Unlock()

	if err := ws.sendControl("unsubscribe", symbol); err != nil {
		ws.log.Debug().Err(err).Str("symbol", symbol).Msg("Unsubscribe skipped, not connected")
	}
}

// connect establishes the websocket connection and replays subscriptions
func (ws *WebSocket) connect() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	wsURL := ws.url + "?token=" + ws.token

	ws.log.Info().Msg("Connecting to Finnhub websocket")

	dialCtx, dialCancel := context.WithTimeout(context.Background(), dialTimeout)
	defer dialCancel()

	conn, _, err := websocket.Dial(dialCtx, wsURL, &websocket.DialOptions{
		HTTPClient: ws.httpClient,
	})
	if err != nil {
		return fmt.Errorf("failed to dial websocket: %w", err)
	}

	connCtx, connCancel := context.WithCancel(context.Background())
	ws.conn = conn
	ws.connCtx = connCtx
	ws.cancelFunc = connCancel
	ws.connected = true

	// Replay desired subscriptions on the fresh connection
	ws.subMu.Lock()
	symbols := make([]string, 0, len(ws.subscribed))
	for symbol := range ws.subscribed {
		symbols = append(symbols, symbol)
	}
	ws.subMu.Unlock()

	for _, symbol := range symbols {
		if err := ws.writeControl(connCtx, conn, "subscribe", symbol); err != nil {
			ws.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to replay subscription")
		}
	}

	ws.log.Info().Int("subscriptions", len(symbols)).Msg("Connected to Finnhub websocket")
	return nil
}

// disconnect closes the websocket connection
func (ws *WebSocket) disconnect() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.conn == nil {
		return nil
	}

	if ws.cancelFunc != nil {
		ws.cancelFunc()
		ws.cancelFunc = nil
	}

	err := ws.conn.Close(websocket.StatusNormalClosure, "")
	ws.conn = nil
	ws.connCtx = nil
	ws.connected = false

	if err != nil {
		return fmt.Errorf("error closing websocket: %w", err)
	}
	return nil
}

// sendControl sends a subscribe/unsubscribe message on the live connection
func (ws *WebSocket) sendControl(msgType, symbol string) error {
	ws.mu.RLock()
	conn := ws.conn
	ctx := ws.connCtx
	ws.mu.RUnlock()

	if conn == nil || ctx == nil {
		return fmt.Errorf("not connected")
	}
	return ws.writeControl(ctx, conn, msgType, symbol)
}

func (ws *WebSocket) writeControl(ctx context.Context, conn *websocket.Conn, msgType, symbol string) error {
	msg := map[string]string{"type": msgType, "symbol": symbol}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %w", msgType, err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()

	if err := conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("failed to send %s message: %w", msgType, err)
	}
	return nil
}

// readMessages continuously reads messages from the websocket
func (ws *WebSocket) readMessages(ctx context.Context) {
	defer func() {
		ws.log.Info().Msg("Read loop stopped")
		ws.mu.RLock()
		stopped := ws.stopped
		ws.mu.RUnlock()
		if !stopped {
			go ws.reconnectLoop()
		}
	}()

	for {
		select {
		case <-ws.stopChan:
			return
		case <-ctx.Done():
			ws.log.Debug().Msg("Read loop context cancelled")
			return
		default:
		}

		ws.mu.RLock()
		conn := ws.conn
		ws.mu.RUnlock()

		if conn == nil {
			ws.log.Warn().Msg("Connection is nil, stopping read loop")
			return
		}

		msgType, message, err := conn.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				ws.log.Info().Int("status", int(closeStatus)).Msg("Websocket closed normally")
			} else if ctx.Err() != nil {
				ws.log.Debug().Msg("Read cancelled by context")
			} else {
				ws.log.Error().Err(err).Msg("Unexpected websocket read error")
			}
			return
		}

		if msgType != websocket.MessageText {
			continue
		}

		if err := ws.handleMessage(message); err != nil {
			ws.log.Error().Err(err).Str("message", string(message)).Msg("Failed to handle websocket message")
			// Continue reading despite parse errors
		}
	}
}

// tradeMessage mirrors Finnhub's websocket trade payload
type tradeMessage struct {
	Type string `json:"type"`
	Data []struct {
		Symbol    string  `json:"s"`
		Price     float64 `json:"p"`
		Timestamp int64   `json:"t"` // unix milliseconds
		Volume    float64 `json:"v"`
	} `json:"data"`
}

// handleMessage parses and processes websocket messages
func (ws *WebSocket) handleMessage(message []byte) error {
	var msg tradeMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return fmt.Errorf("failed to parse message: %w", err)
	}

	switch msg.Type {
	case "trade":
		for _, trade := range msg.Data {
			ws.sink.PutLive(domain.Quote{
				Symbol:    trade.Symbol,
				Price:     trade.Price,
				Timestamp: trade.Timestamp / 1000,
			})
		}
	case "ping":
		// Keepalive, nothing to do
	case "error":
		ws.log.Warn().Str("message", string(message)).Msg("Finnhub websocket reported an error")
	}

	return nil
}

// reconnectLoop handles automatic reconnection with exponential backoff
func (ws *WebSocket) reconnectLoop() {
	ws.mu.Lock()
	if ws.reconnecting || ws.stopped {
		ws.mu.Unlock()
		return
	}
	ws.reconnecting = true
	ws.mu.Unlock()

	defer func() {
		ws.mu.Lock()
		ws.reconnecting = false
		ws.mu.Unlock()
	}()

	for attempt := 1; attempt <= maxReconnectAttempts; attempt++ {
		delay := time.Duration(math.Min(
			float64(baseReconnectDelay)*math.Pow(2, float64(attempt-1)),
			float64(maxReconnectDelay),
		))

		ws.log.Info().
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("Scheduling websocket reconnect")

		select {
		case <-ws.stopChan:
			return
		case <-time.After(delay):
		}

		if err := ws.connect(); err != nil {
			ws.log.Warn().Err(err).Int("attempt", attempt).Msg("Reconnect attempt failed")
			continue
		}

		ws.mu.RLock()
		ctx := ws.connCtx
		ws.mu.RUnlock()
		go ws.readMessages(ctx)
		return
	}

	ws.log.Error().Int("attempts", maxReconnectAttempts).Msg("Giving up on websocket reconnection")
}
