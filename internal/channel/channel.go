// Package channel abstracts the chat transport the assistant speaks through.
package channel

import "context"

// EventKind classifies an inbound event.
type EventKind int

const (
	// EventText is a free-text reply or command from the user.
	EventText EventKind = iota
	// EventSelection is a menu button press carrying its callback data.
	EventSelection
)

// Event is one inbound message from a conversation.
type Event struct {
	ConversationID string
	Kind           EventKind
	Payload        string
}

// Option is one selectable menu button.
type Option struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

// Row builds one menu row; menus are laid out as rows of options.
func Row(options ...Option) []Option { return options }

// Channel sends messages and menus to conversations and exposes the inbound
// event stream the dispatcher consumes.
type Channel interface {
	SendText(ctx context.Context, conversationID, text string) (string, error)
	SendMenu(ctx context.Context, conversationID, prompt string, rows [][]Option) (string, error)
	EditMenu(ctx context.Context, conversationID, messageID, prompt string, rows [][]Option) error
	Events() <-chan Event
}
