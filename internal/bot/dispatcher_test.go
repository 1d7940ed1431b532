package bot_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chainvalet/chainvalet/internal/bot"
	"github.com/chainvalet/chainvalet/internal/channel"
	"github.com/chainvalet/chainvalet/internal/router"
	"github.com/chainvalet/chainvalet/internal/service/dialog"
)

type stubChannel struct {
	mu     sync.Mutex
	texts  []string
	notify chan string
	events chan channel.Event
}

func newStubChannel() *stubChannel {
	return &stubChannel{
		notify: make(chan string, 32),
		events: make(chan channel.Event, 32),
	}
}

func (c *stubChannel) SendText(_ context.Context, _, text string) (string, error) {
	c.mu.Lock()
	c.texts = append(c.texts, text)
	c.mu.Unlock()
	c.notify <- text
	return "m1", nil
}

func (c *stubChannel) SendMenu(_ context.Context, _, prompt string, _ [][]channel.Option) (string, error) {
	c.mu.Lock()
	c.texts = append(c.texts, prompt)
	c.mu.Unlock()
	c.notify <- prompt
	return "m2", nil
}

func (c *stubChannel) EditMenu(context.Context, string, string, string, [][]channel.Option) error {
	return nil
}

func (c *stubChannel) Events() <-chan channel.Event { return c.events }

func (c *stubChannel) wait(t *testing.T) string {
	t.Helper()
	select {
	case text := <-c.notify:
		return text
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an outbound message")
		return ""
	}
}

func newTestDispatcher(ch *stubChannel, dialogs *dialog.Registry) *bot.Dispatcher {
	r := router.New(router.Deps{Channel: ch})
	return bot.NewDispatcher(ch, dialogs, r, nil)
}

func TestTextCommandIsRouted(t *testing.T) {
	ch := newStubChannel()
	dialogs := dialog.NewRegistry(0)
	d := newTestDispatcher(ch, dialogs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	ch.events <- channel.Event{ConversationID: "conv", Kind: channel.EventText, Payload: "/help"}

	if text := ch.wait(t); !strings.Contains(text, "Commands") {
		t.Fatalf("got %q, want the command list", text)
	}
}

func TestPendingStepConsumesReplyBeforeRouting(t *testing.T) {
	ch := newStubChannel()
	dialogs := dialog.NewRegistry(0)
	d := newTestDispatcher(ch, dialogs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	result := dialogs.Begin("conv", dialog.KindText)
	ch.events <- channel.Event{ConversationID: "conv", Kind: channel.EventText, Payload: "/help"}

	select {
	case res := <-result:
		if res.Err != nil || res.Payload != "/help" {
			t.Fatalf("waiter got %+v", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pending step never resolved")
	}

	// The reply fed the step; the router must not also answer it.
	select {
	case text := <-ch.notify:
		t.Fatalf("unexpected router reply %q", text)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventsHandledInArrivalOrder(t *testing.T) {
	ch := newStubChannel()
	dialogs := dialog.NewRegistry(0)
	d := newTestDispatcher(ch, dialogs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	result := dialogs.Begin("conv", dialog.KindText)
	ch.events <- channel.Event{ConversationID: "conv", Kind: channel.EventText, Payload: "step reply"}
	ch.events <- channel.Event{ConversationID: "conv", Kind: channel.EventText, Payload: "/help"}

	res := <-result
	if res.Payload != "step reply" {
		t.Fatalf("the first event must feed the step, got %q", res.Payload)
	}
	if text := ch.wait(t); !strings.Contains(text, "Commands") {
		t.Fatalf("the second event should route as a command, got %q", text)
	}
}

func TestUnrecognizedTextGetsHelpHint(t *testing.T) {
	ch := newStubChannel()
	dialogs := dialog.NewRegistry(0)
	d := newTestDispatcher(ch, dialogs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	ch.events <- channel.Event{ConversationID: "conv", Kind: channel.EventText, Payload: "what is a wallet"}

	if text := ch.wait(t); !strings.Contains(text, "/help") {
		t.Fatalf("got %q, want a help hint", text)
	}
}

func TestUnknownCallbackIsIgnored(t *testing.T) {
	ch := newStubChannel()
	dialogs := dialog.NewRegistry(0)
	d := newTestDispatcher(ch, dialogs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	ch.events <- channel.Event{ConversationID: "conv", Kind: channel.EventSelection, Payload: "bogus_button"}

	select {
	case text := <-ch.notify:
		t.Fatalf("unexpected reply %q to an unknown callback", text)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSelectionFeedsSelectionStepOnly(t *testing.T) {
	ch := newStubChannel()
	dialogs := dialog.NewRegistry(0)
	d := newTestDispatcher(ch, dialogs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	result := dialogs.Begin("conv", dialog.KindSelection)
	// Free text must not resolve a selection step; it routes instead.
	ch.events <- channel.Event{ConversationID: "conv", Kind: channel.EventText, Payload: "/help"}
	if text := ch.wait(t); !strings.Contains(text, "Commands") {
		t.Fatalf("got %q", text)
	}

	ch.events <- channel.Event{ConversationID: "conv", Kind: channel.EventSelection, Payload: "gnosis"}
	select {
	case res := <-result:
		if res.Payload != "gnosis" {
			t.Fatalf("waiter got %+v", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("selection step never resolved")
	}
}
