package models

import "time"

// TimeLayout is the wall-clock format used on the wire for message and room
// timestamps.
const TimeLayout = "2006-01-02 15:04:05"

// Message is one immutable chat message inside a room.
type Message struct {
	ID        int64     `db:"id" json:"id"`
	RoomID    int64     `db:"room_id" json:"chatroom_id"`
	SenderID  string    `db:"sender_id" json:"sender_id"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// InboundFrame is what a websocket client sends. The sender identity always
// comes from the authenticated connection, never from the payload.
type InboundFrame struct {
	Message string `json:"message"`
}

// ChatFrame is broadcast to every connection in a room's group.
type ChatFrame struct {
	SenderID string `json:"sender_id"`
	Message  string `json:"message"`
	Time     string `json:"time"`
}

// ErrorFrame is sent back to the originating connection only.
type ErrorFrame struct {
	Error string `json:"error"`
}
