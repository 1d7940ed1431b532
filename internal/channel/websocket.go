package channel

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ErrNotConnected reports that the conversation has no open socket.
var ErrNotConnected = errors.New("conversation has no open connection")

// Gateway is the WebSocket implementation of Channel. Each conversation
// connects to /ws/{conversationID}; frames are JSON in both directions.
type Gateway struct {
	upgrader websocket.Upgrader
	events   chan Event

	mu    sync.RWMutex
	conns map[string]*gatewayConn
}

type gatewayConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// NewGateway creates the WebSocket gateway.
func NewGateway() *Gateway {
	return &Gateway{
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		events: make(chan Event, 64),
		conns:  make(map[string]*gatewayConn),
	}
}

// RegisterRoutes mounts the websocket endpoint.
func (g *Gateway) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{conversationID}", g.handleWebSocket)
}

// Events returns the inbound event stream.
func (g *Gateway) Events() <-chan Event { return g.events }

type inboundFrame struct {
	Type    string `json:"type"`
	Payload string `json:"payload"`
}

type outboundFrame struct {
	Type      string     `json:"type"`
	MessageID string     `json:"messageId"`
	Text      string     `json:"text,omitempty"`
	Options   [][]Option `json:"options,omitempty"`
	Timestamp int64      `json:"timestamp"`
}

func (g *Gateway) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")
	if conversationID == "" {
		http.Error(w, "conversationID is required", http.StatusBadRequest)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed for %s: %v", conversationID, err)
		return
	}

	gc := &gatewayConn{conn: conn}
	g.mu.Lock()
	if old, ok := g.conns[conversationID]; ok {
		old.conn.Close()
	}
	g.conns[conversationID] = gc
	g.mu.Unlock()

	log.Printf("[ws] conversation %s connected", conversationID)
	g.readLoop(conversationID, gc)
}

func (g *Gateway) readLoop(conversationID string, gc *gatewayConn) {
	defer func() {
		gc.conn.Close()
		g.mu.Lock()
		if g.conns[conversationID] == gc {
			delete(g.conns, conversationID)
		}
		g.mu.Unlock()
		log.Printf("[ws] conversation %s disconnected", conversationID)
	}()

	for {
		var frame inboundFrame
		if err := gc.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] read error for %s: %v", conversationID, err)
			}
			return
		}

		kind := EventText
		if frame.Type == "selection" {
			kind = EventSelection
		}
		g.events <- Event{ConversationID: conversationID, Kind: kind, Payload: frame.Payload}
	}
}

// SendText delivers a plain text message.
func (g *Gateway) SendText(_ context.Context, conversationID, text string) (string, error) {
	return g.send(conversationID, outboundFrame{
		Type:      "text",
		MessageID: uuid.NewString(),
		Text:      text,
		Timestamp: time.Now().Unix(),
	})
}

// SendMenu delivers a prompt with selectable options.
func (g *Gateway) SendMenu(_ context.Context, conversationID, prompt string, rows [][]Option) (string, error) {
	return g.send(conversationID, outboundFrame{
		Type:      "menu",
		MessageID: uuid.NewString(),
		Text:      prompt,
		Options:   rows,
		Timestamp: time.Now().Unix(),
	})
}

// EditMenu replaces a previously sent menu in place.
func (g *Gateway) EditMenu(_ context.Context, conversationID, messageID, prompt string, rows [][]Option) error {
	_, err := g.send(conversationID, outboundFrame{
		Type:      "menu_edit",
		MessageID: messageID,
		Text:      prompt,
		Options:   rows,
		Timestamp: time.Now().Unix(),
	})
	return err
}

func (g *Gateway) send(conversationID string, frame outboundFrame) (string, error) {
	g.mu.RLock()
	gc, ok := g.conns[conversationID]
	g.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotConnected, conversationID)
	}

	gc.mu.Lock()
	defer gc.mu.Unlock()
	if err := gc.conn.WriteJSON(frame); err != nil {
		return "", fmt.Errorf("write frame: %w", err)
	}
	return frame.MessageID, nil
}
