// ABOUTME: Client for the drum kit export service
// ABOUTME: Session and slot requests over HTTP plus the session's WebSocket event stream
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/op1kit/op1drum/internal/server"
	"github.com/op1kit/op1drum/pkg/bridge"
)

// Config holds client configuration
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// ExportError is a failed export as reported by the service
type ExportError struct {
	StatusCode int
	Message    string
	Stage      string
	File       string
}

func (e *ExportError) Error() string {
	switch {
	case e.File != "":
		return fmt.Sprintf("%s %s: %s", e.Stage, e.File, e.Message)
	case e.Stage != "":
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
}

// Client talks to one export service
type Client struct {
	config Config
	http   *http.Client

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool

	// Events carries slot events of the connected session
	Events chan server.SlotEvent

	ctx    context.Context
	cancel context.CancelFunc
}

// NewClient creates a client for the service at config.BaseURL
func NewClient(config Config) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 2 * time.Minute
	}
	config.BaseURL = strings.TrimSuffix(config.BaseURL, "/")

	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
		Events: make(chan server.SlotEvent, 64),
		ctx:    ctx,
		cancel: cancel,
	}
}

// do sends a request and decodes a JSON answer into out when it is non-nil
func (c *Client) do(req *http.Request, want int, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != want {
		return responseError(resp.StatusCode, data)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

func responseError(status int, body []byte) error {
	var e struct {
		Error string `json:"error"`
		Stage string `json:"stage"`
		File  string `json:"file"`
	}
	if json.Unmarshal(body, &e) != nil || e.Error == "" {
		e.Error = http.StatusText(status)
	}
	return &ExportError{StatusCode: status, Message: e.Error, Stage: e.Stage, File: e.File}
}

// CreateSession opens a new editor session and returns its id
func (c *Client) CreateSession(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/sessions", nil)
	if err != nil {
		return "", err
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(req, http.StatusCreated, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// DeleteSession closes a session
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.config.BaseURL+"/api/sessions/"+id, nil)
	if err != nil {
		return err
	}
	return c.do(req, http.StatusNoContent, nil)
}

// PutSlot uploads data into slot n and returns the slot's new generation
func (c *Client) PutSlot(ctx context.Context, id string, n int, name string, data []byte) (uint64, error) {
	u := c.config.BaseURL + "/api/sessions/" + id + "/slots/" + strconv.Itoa(n)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	req.Header.Set("X-Filename", name)
	req.Header.Set("Content-Type", "application/octet-stream")

	var out struct {
		Generation uint64 `json:"generation"`
	}
	if err := c.do(req, http.StatusAccepted, &out); err != nil {
		return 0, err
	}
	return out.Generation, nil
}

// ClearSlot empties slot n
func (c *Client) ClearSlot(ctx context.Context, id string, n int) error {
	u := c.config.BaseURL + "/api/sessions/" + id + "/slots/" + strconv.Itoa(n)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, http.StatusNoContent, nil)
}

// ExportSession exports the filled slots of a session
func (c *Client) ExportSession(ctx context.Context, id string, opts bridge.KitOptions) ([]byte, error) {
	body, err := json.Marshal(opts)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/sessions/"+id+"/export", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.download(req)
}

// Export runs a one-shot export of files
func (c *Client) Export(ctx context.Context, files []bridge.File, opts bridge.KitOptions) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := mw.CreateFormFile("files", filepath.Base(f.Name))
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, err
		}
	}
	kit, err := json.Marshal(opts)
	if err != nil {
		return nil, err
	}
	if err := mw.WriteField("kit", string(kit)); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/export", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.download(req)
}

// download returns the body of a successful export
func (c *Client) download(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("export request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read export: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, responseError(resp.StatusCode, data)
	}
	return data, nil
}

// Connect subscribes to a session's events and returns its current state.
// Later slot events arrive on Events until Close.
func (c *Client) Connect(id string) (*server.SessionState, error) {
	u, err := url.Parse(c.config.BaseURL + "/api/sessions/" + id + "/events")
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.DialContext(c.ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	// The first message is the session snapshot
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to read session state: %w", err)
	}
	conn.SetReadDeadline(time.Time{})

	if msg.Type != "session" {
		conn.Close()
		return nil, fmt.Errorf("expected session, got %s", msg.Type)
	}
	var state server.SessionState
	if err := json.Unmarshal(msg.Payload, &state); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to parse session state: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readMessages(conn)
	return &state, nil
}

// readMessages reads and routes incoming events
func (c *Client) readMessages(conn *websocket.Conn) {
	defer c.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.ctx.Err() == nil && websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("Read error: %v", err)
			}
			return
		}
		c.handleJSONMessage(data)
	}
}

// handleJSONMessage routes one event
func (c *Client) handleJSONMessage(data []byte) {
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Failed to parse JSON message: %v", err)
		return
	}

	switch msg.Type {
	case "slot":
		var ev server.SlotEvent
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			log.Printf("Failed to parse slot event: %v", err)
			return
		}
		select {
		case c.Events <- ev:
		case <-c.ctx.Done():
		}

	default:
		log.Printf("Unknown message type: %s", msg.Type)
	}
}

// WaitForPreviews collects the finished preview of each slot in gens,
// keyed by slot. Events for other generations are skipped.
func (c *Client) WaitForPreviews(ctx context.Context, gens map[int]uint64) (map[int]server.SlotEvent, error) {
	done := make(map[int]server.SlotEvent, len(gens))
	for len(done) < len(gens) {
		select {
		case ev := <-c.Events:
			if gen, ok := gens[ev.Slot]; ok && ev.Generation == gen && !ev.Pending {
				done[ev.Slot] = ev
			}
		case <-ctx.Done():
			return done, fmt.Errorf("waiting for previews: %w", ctx.Err())
		case <-c.ctx.Done():
			return done, fmt.Errorf("connection closed with %d of %d previews", len(done), len(gens))
		}
	}
	return done, nil
}

// Close closes the event connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancel()
	if c.connected {
		c.connected = false
		c.conn.Close()
		log.Printf("Connection closed")
	}
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
