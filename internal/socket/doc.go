// Package socket implements the widget's realtime Subscriber port over a
// websocket connection to the bot backend. Each subscription joins the room
// for one conversation, delivers message:new pushes to the widget, reconnects
// with backoff, and suppresses replays across reconnects.
package socket
