// Package widget implements the chat-session lifecycle core of the
// embeddable botdesk widget: an ordered, deduplicating message log, the
// client-side session identity, and a controller state machine that
// coordinates optimistic sends, the realtime subscription, and reliable
// session-close delivery.
//
// The controller is transport-agnostic. It talks to the backend through
// three small ports (Transport, Subscriber, CloseNotifier) so the
// reconciliation rules — in particular the duplicate-suppression policy for
// the race between REST responses and socket pushes — are testable without
// any network or UI.
//
// Failure philosophy: nothing in this package is fatal to the embedding
// host. Precondition violations and transport failures degrade to inline
// error messages in the log; panics never cross the package boundary.
package widget
