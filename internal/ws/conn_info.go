package ws

import "time"

// ConnInfo carries per-connection metadata for events and diagnostics.
type ConnInfo struct {
	ConnID      string
	UserID      string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
