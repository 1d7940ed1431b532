package flow

import "errors"

var (
	// ErrNotConnected rejects wallet-dependent flows for conversations
	// without a session.
	ErrNotConnected = errors.New("wallet not connected")
	// ErrUnknownFlow rejects starts for unregistered flow ids.
	ErrUnknownFlow = errors.New("unknown flow")
	// ErrFlowAlreadyActive rejects a start while another flow is running for
	// the same conversation.
	ErrFlowAlreadyActive = errors.New("another operation is already in progress")
	// ErrInsufficientBalance aborts deploy flows below the minimum balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrNoTokens aborts the token-transfer flow when the conversation has
	// deployed nothing yet.
	ErrNoTokens = errors.New("no deployed tokens")
)

// errUserCancelled terminates a flow whose confirm gate received anything
// other than "confirm". The gate has already messaged the user.
var errUserCancelled = errors.New("cancelled by user")

// errHandled terminates a flow after a step already sent its own terminal
// message; the engine must not send a second one.
var errHandled = errors.New("flow terminated, user notified")
