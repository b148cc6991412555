package livetable

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
)

const (
	actionInfo    = "info"
	actionRequest = "request"
	// requestPlease asks the sidecar for a full snapshot of a category.
	requestPlease = "PLEASE"
)

// SidecarSettings tunes the sidecar connection.
type SidecarSettings struct {
	ReconnectTimeout time.Duration
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	// ReadTimeout of zero waits forever; the sidecar is quiet when nothing changes.
	ReadTimeout time.Duration
}

// DefaultSidecarSettings returns the settings used when none are given.
func DefaultSidecarSettings() *SidecarSettings {
	return &SidecarSettings{
		ReconnectTimeout: 5 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
	}
}

// sidecarMessage is the frame exchanged with the sidecar.
type sidecarMessage struct {
	Category string          `json:"category"`
	Action   string          `json:"action"`
	Message  json.RawMessage `json:"message"`
}

// SidecarChannel is a PushChannel reading the testbed sidecar over a websocket.
// After every (re)connect it requests a full snapshot of each registered category.
type SidecarChannel struct {
	url      string
	settings *SidecarSettings
	dialer   *websocket.Dialer

	mu         sync.Mutex
	categories []string
	handlers   map[string][]BatchHandler
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewSidecarChannel creates a channel for the sidecar at url (ws:// or wss://).
// A nil settings means DefaultSidecarSettings.
func NewSidecarChannel(url string, settings *SidecarSettings) *SidecarChannel {
	if settings == nil {
		settings = DefaultSidecarSettings()
	}
	return &SidecarChannel{
		url:      url,
		settings: settings,
		dialer: &websocket.Dialer{
			HandshakeTimeout: settings.HandshakeTimeout,
		},
		handlers: make(map[string][]BatchHandler),
	}
}

// RegisterCategories implements PushChannel.
func (c *SidecarChannel) RegisterCategories(categories ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.categories = append(c.categories, categories...)
}

// RegisterCallback implements PushChannel.
func (c *SidecarChannel) RegisterCallback(category string, handler BatchHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[category] = append(c.handlers[category], handler)
}

// Open implements PushChannel. The connection is made in the background and
// retried until Close.
func (c *SidecarChannel) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return fmt.Errorf("sidecar %s: %w", c.url, ErrAlreadyStarted)
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	go c.run()
	return nil
}

// Close implements PushChannel.
func (c *SidecarChannel) Close() error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel = nil
	c.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

func (c *SidecarChannel) run() {
	defer close(c.done)
	for {
		ws, err := c.connect()
		if err != nil {
			glog.Infof("sidecar %s: connect error = %s", c.url, err)
		} else {
			glog.Infof("sidecar %s: connected", c.url)
			c.serve(ws)
		}
		select {
		case <-c.ctx.Done():
			return
		case <-time.After(c.settings.ReconnectTimeout):
		}
	}
}

func (c *SidecarChannel) connect() (*websocket.Conn, error) {
	ws, _, err := c.dialer.DialContext(c.ctx, c.url, nil)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	categories := append([]string(nil), c.categories...)
	c.mu.Unlock()

	for _, category := range categories {
		request := sidecarMessage{
			Category: category,
			Action:   actionRequest,
			Message:  json.RawMessage(`"` + requestPlease + `"`),
		}
		if c.settings.WriteTimeout > 0 {
			ws.SetWriteDeadline(time.Now().Add(c.settings.WriteTimeout))
		}
		if err := ws.WriteJSON(request); err != nil {
			ws.Close()
			return nil, fmt.Errorf("request %s: %w", category, err)
		}
	}
	return ws, nil
}

func (c *SidecarChannel) serve(ws *websocket.Conn) {
	defer ws.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-c.ctx.Done():
			ws.Close()
		case <-stop:
		}
	}()

	for {
		if c.settings.ReadTimeout > 0 {
			ws.SetReadDeadline(time.Now().Add(c.settings.ReadTimeout))
		}
		messageType, data, err := ws.ReadMessage()
		if err != nil {
			if c.ctx.Err() == nil {
				glog.Infof("sidecar %s: read error = %s", c.url, err)
			}
			return
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}
		c.deliver(data)
	}
}

func (c *SidecarChannel) deliver(data []byte) {
	category, batch, err := DecodeSidecarMessage(data)
	if err != nil {
		glog.Warningf("sidecar %s: %v", c.url, err)
		return
	}
	if batch == nil {
		return
	}

	c.mu.Lock()
	handlers := append([]BatchHandler(nil), c.handlers[category]...)
	c.mu.Unlock()

	if len(handlers) == 0 {
		glog.V(2).Infof("sidecar %s: no handler for %s", c.url, category)
		return
	}
	for _, handler := range handlers {
		handler(batch)
	}
}

// DecodeSidecarMessage returns the category and batch carried by an info
// frame, or a nil batch for any other action. The payload is either a JSON
// array or a string holding one.
func DecodeSidecarMessage(data []byte) (string, Batch, error) {
	var msg sidecarMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return "", nil, fmt.Errorf("decode frame: %w", err)
	}
	if msg.Action != actionInfo {
		glog.V(2).Infof("sidecar: skipping %s/%s frame", msg.Category, msg.Action)
		return msg.Category, nil, nil
	}

	payload := []byte(msg.Message)
	if len(payload) > 0 && payload[0] == '"' {
		var inner string
		if err := json.Unmarshal(payload, &inner); err != nil {
			return "", nil, fmt.Errorf("decode %s payload: %w", msg.Category, err)
		}
		payload = []byte(inner)
	}
	batch, err := DecodeBatch(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", msg.Category, err)
	}
	return msg.Category, batch, nil
}
