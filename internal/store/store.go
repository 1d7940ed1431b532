// Package store persists records that outlive a chat session, such as the
// registry of tokens a conversation has deployed.
package store

import (
	"context"
	"time"
)

// Token is one deployed token contract owned by a conversation.
type Token struct {
	ConversationID string
	Name           string
	Symbol         string
	Supply         string
	Address        string
	TxHash         string
	ChainName      string
	CreatedAt      time.Time
}

// TokenRegistry records deployed tokens and lists them per conversation.
type TokenRegistry interface {
	RecordToken(ctx context.Context, token Token) error
	TokensByConversation(ctx context.Context, conversationID string) ([]Token, error)
	Close() error
}
