// ABOUTME: Session identity for one widget mount.
// ABOUTME: SessionID is minted locally; ConversationID is assigned by the backend.

package widget

import "github.com/google/uuid"

// Session tracks the identifiers for one widget mount. SessionID is
// generated client-side at mount and may be replaced by a server-issued
// value from the first successful exchange. ConversationID stays empty
// until the backend creates a conversation record; a non-empty value gates
// the realtime subscription.
type Session struct {
	SessionID      string
	ConversationID string
}

// NewSession mints a locally-unique session identifier.
func NewSession() Session {
	return Session{SessionID: uuid.NewString()}
}
