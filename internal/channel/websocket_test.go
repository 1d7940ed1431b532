package channel_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/chainvalet/chainvalet/internal/channel"
)

func dialGateway(t *testing.T, g *channel.Gateway, conversationID string) *websocket.Conn {
	t.Helper()

	r := chi.NewRouter()
	g.RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + conversationID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestInboundFramesBecomeEvents(t *testing.T) {
	g := channel.NewGateway()
	conn := dialGateway(t, g, "conv-1")

	frames := []map[string]string{
		{"type": "text", "payload": "/start"},
		{"type": "selection", "payload": "wallet_menu"},
	}
	for _, f := range frames {
		if err := conn.WriteJSON(f); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	wantKinds := []channel.EventKind{channel.EventText, channel.EventSelection}
	for i, want := range wantKinds {
		select {
		case ev := <-g.Events():
			if ev.ConversationID != "conv-1" || ev.Kind != want || ev.Payload != frames[i]["payload"] {
				t.Fatalf("event %d = %+v", i, ev)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("no event %d received", i)
		}
	}
}

func TestSendTextReachesClient(t *testing.T) {
	g := channel.NewGateway()
	conn := dialGateway(t, g, "conv-1")

	// The connection registers asynchronously with the HTTP handler.
	waitConnected(t, g, "conv-1")

	id, err := g.SendText(context.Background(), "conv-1", "hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if id == "" {
		t.Fatal("empty message id")
	}

	var frame struct {
		Type      string `json:"type"`
		MessageID string `json:"messageId"`
		Text      string `json:"text"`
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	// Skip the probe frames waitConnected left behind.
	for frame.Text != "hello" {
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("read: %v", err)
		}
	}
	if frame.Type != "text" || frame.MessageID != id {
		t.Fatalf("got frame %+v", frame)
	}
}

func TestSendMenuCarriesOptions(t *testing.T) {
	g := channel.NewGateway()
	conn := dialGateway(t, g, "conv-1")
	waitConnected(t, g, "conv-1")

	rows := [][]channel.Option{
		channel.Row(channel.Option{Label: "Yes", Data: "yes"}, channel.Option{Label: "No", Data: "no"}),
	}
	if _, err := g.SendMenu(context.Background(), "conv-1", "Proceed?", rows); err != nil {
		t.Fatalf("send menu: %v", err)
	}

	var frame struct {
		Type    string             `json:"type"`
		Text    string             `json:"text"`
		Options [][]channel.Option `json:"options"`
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	// Skip the probe frames waitConnected left behind.
	for frame.Type != "menu" {
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("read: %v", err)
		}
	}
	if len(frame.Options) != 1 || len(frame.Options[0]) != 2 {
		raw, _ := json.Marshal(frame)
		t.Fatalf("got frame %s", raw)
	}
	if frame.Options[0][1].Data != "no" {
		t.Fatalf("got options %+v", frame.Options)
	}
}

func TestSendToDisconnectedConversation(t *testing.T) {
	g := channel.NewGateway()

	_, err := g.SendText(context.Background(), "nobody", "hello")
	if !errors.Is(err, channel.ErrNotConnected) {
		t.Fatalf("got %v, want ErrNotConnected", err)
	}
}

// waitConnected polls until the gateway accepts sends for the conversation.
func waitConnected(t *testing.T, g *channel.Gateway, conversationID string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := g.SendText(context.Background(), conversationID, "ping"); err == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("conversation never connected")
}
