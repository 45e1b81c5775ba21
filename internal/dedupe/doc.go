// Package dedupe provides a small TTL window for suppressing replayed
// realtime push events. The socket subscriber records each event id it has
// delivered; after a reconnect the backend may replay recent events, and the
// window drops anything already seen.
package dedupe
