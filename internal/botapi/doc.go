// Package botapi is the HTTP client for the hosted bot backend. It
// implements the widget's Transport and CloseNotifier ports: Ask posts a
// visitor turn to /bot/run and maps the response onto widget types, and
// NotifyClose fires the best-effort session-close call.
package botapi
