package wallet

import (
	"time"

	"github.com/chainvalet/chainvalet/internal/ledger"
)

// Session is one conversation's connected wallet. It exists iff a wallet has
// been created or imported and not yet disconnected.
type Session struct {
	Handle    *ledger.Handle
	NetworkID string
	CreatedAt time.Time
}

// NewSession binds a freshly derived handle to a conversation.
func NewSession(handle *ledger.Handle) Session {
	return Session{
		Handle:    handle,
		NetworkID: handle.Chain().Name,
		CreatedAt: time.Now().UTC(),
	}
}
