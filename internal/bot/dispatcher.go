// Package bot pumps inbound chat events into the dialog registry and the
// command router.
package bot

import (
	"context"
	"log"
	"sync"

	"github.com/chainvalet/chainvalet/internal/channel"
	"github.com/chainvalet/chainvalet/internal/router"
	"github.com/chainvalet/chainvalet/internal/service/ai"
	"github.com/chainvalet/chainvalet/internal/service/dialog"
)

// Dispatcher consumes the channel's event stream. Events from the same
// conversation are handled strictly in arrival order; different conversations
// proceed independently.
type Dispatcher struct {
	ch          channel.Channel
	dialogs     *dialog.Registry
	router      *router.Router
	interpreter *ai.Interpreter

	mu     sync.Mutex
	queues map[string]chan channel.Event
	wg     sync.WaitGroup
}

// NewDispatcher creates the dispatcher. interpreter may be nil, in which case
// unrecognized free text gets a help hint instead of an LLM pass.
func NewDispatcher(ch channel.Channel, dialogs *dialog.Registry, r *router.Router, interpreter *ai.Interpreter) *Dispatcher {
	return &Dispatcher{
		ch:          ch,
		dialogs:     dialogs,
		router:      r,
		interpreter: interpreter,
		queues:      make(map[string]chan channel.Event),
	}
}

// Run consumes events until ctx is cancelled, then waits for the
// per-conversation workers to drain.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.wg.Wait()
			return
		case ev, ok := <-d.ch.Events():
			if !ok {
				d.wg.Wait()
				return
			}
			d.enqueue(ctx, ev)
		}
	}
}

// enqueue hands the event to the conversation's worker, creating it on first
// contact. One worker per conversation keeps handling sequential.
func (d *Dispatcher) enqueue(ctx context.Context, ev channel.Event) {
	d.mu.Lock()
	queue, ok := d.queues[ev.ConversationID]
	if !ok {
		queue = make(chan channel.Event, 16)
		d.queues[ev.ConversationID] = queue
		d.wg.Add(1)
		go d.worker(ctx, queue)
	}
	d.mu.Unlock()

	select {
	case queue <- ev:
	default:
		log.Printf("[dispatch] conversation=%s queue full, dropping event", ev.ConversationID)
	}
}

func (d *Dispatcher) worker(ctx context.Context, queue <-chan channel.Event) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-queue:
			d.handle(ctx, ev)
		}
	}
}

// handle delivers one event: an outstanding dialog step of the matching kind
// consumes it first, otherwise it is decoded as a command.
func (d *Dispatcher) handle(ctx context.Context, ev channel.Event) {
	kind := dialog.KindText
	if ev.Kind == channel.EventSelection {
		kind = dialog.KindSelection
	}
	if d.dialogs.Resolve(ev.ConversationID, kind, ev.Payload) {
		return
	}

	if ev.Kind == channel.EventSelection {
		cmd, ok := router.ParseCallback(ev.Payload)
		if !ok {
			log.Printf("[dispatch] conversation=%s unknown callback %q", ev.ConversationID, ev.Payload)
			return
		}
		d.router.Dispatch(ctx, ev.ConversationID, cmd)
		return
	}

	cmd, ok := router.ParseText(ev.Payload)
	if !ok && d.interpreter != nil {
		if interpreted, matched, err := d.interpreter.Interpret(ctx, ev.Payload); err != nil {
			log.Printf("[dispatch] interpret failed: %v", err)
		} else if matched {
			cmd, ok = router.ParseText(interpreted)
		}
	}
	if !ok {
		d.sendText(ctx, ev.ConversationID, "❓ I didn't catch that. Send /help for the command list.")
		return
	}
	d.router.Dispatch(ctx, ev.ConversationID, cmd)
}

func (d *Dispatcher) sendText(ctx context.Context, conversationID, text string) {
	if _, err := d.ch.SendText(ctx, conversationID, text); err != nil {
		log.Printf("[dispatch] send to conversation=%s failed: %v", conversationID, err)
	}
}
