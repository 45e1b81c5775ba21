// Package hub is the server side of the widget's realtime channel: a
// websocket endpoint where clients join per-conversation rooms and receive
// message:new pushes published by the backend.
package hub
