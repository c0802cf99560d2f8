package observability

// RoutingKeyRoomEvents is the topic routing key for chat-room websocket
// lifecycle events (ws_connect, ws_disconnect, ws_error).
const RoutingKeyRoomEvents = "ws_events.rooms"

// EventEnvelope wraps every payload published to the marketplace exchange.
// EventType groups a stream (e.g. "ws_events"), EventName names the specific
// occurrence within it.
type EventEnvelope struct {
	EventType string      `json:"event_type"`
	EventName string      `json:"event_name"`
	Payload   interface{} `json:"payload"`
}

// BuildHeaders carries request correlation onto the AMQP message so consumers
// can join events back to traces and HTTP logs. Empty values are left out.
func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}
