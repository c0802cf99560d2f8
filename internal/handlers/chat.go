package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"bookmarket/internal/middleware"
	"bookmarket/internal/models"
	"bookmarket/internal/repositories"
	"bookmarket/internal/telemetry"
)

// ChatHandler manages the chat-room HTTP endpoints.
type ChatHandler struct {
	roomRepo repositories.RoomRepository
	msgRepo  repositories.MessageRepository
	bookRepo repositories.BookRepository
	userRepo repositories.UserRepository
	audit    *telemetry.AuditEmitter
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(roomRepo repositories.RoomRepository, msgRepo repositories.MessageRepository, bookRepo repositories.BookRepository, userRepo repositories.UserRepository, audit *telemetry.AuditEmitter) *ChatHandler {
	return &ChatHandler{
		roomRepo: roomRepo,
		msgRepo:  msgRepo,
		bookRepo: bookRepo,
		userRepo: userRepo,
		audit:    audit,
	}
}

// CreateRoom creates or returns the chat room between the caller and a
// listing. 201 on first contact, 200 when the room already existed.
func (h *ChatHandler) CreateRoom(c *gin.Context) {
	var req struct {
		BookID int64 `json:"book_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	buyerID := c.GetString(middleware.UserIDKey)
	if _, err := h.userRepo.GetUser(c.Request.Context(), buyerID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrUserNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "buyer not found"})
		return
	}

	book, err := h.bookRepo.GetBook(c.Request.Context(), req.BookID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrBookNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "book not found"})
		return
	}

	room, created, err := h.roomRepo.CreateOrGetRoom(c.Request.Context(), buyerID, book.SellerID, book.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create chatroom"})
		return
	}

	status := http.StatusOK
	message := "chatroom already exists"
	if created {
		status = http.StatusCreated
		message = "chatroom created"
		h.audit.Emit(c.Request.Context(), "info",
			fmt.Sprintf("chatroom %d created for book %d", room.ID, book.ID),
			requestIDFromContext(c), userIDFromContext(c))
	}
	c.JSON(status, gin.H{"chatroom_id": room.ID, "message": message})
}

// ListRooms returns the caller's rooms, most recently updated first.
func (h *ChatHandler) ListRooms(c *gin.Context) {
	userID := c.GetString(middleware.UserIDKey)

	entries, err := h.roomRepo.ListRoomsForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chatrooms"})
		return
	}

	opponentIDs := make([]string, 0, len(entries))
	seen := map[string]struct{}{}
	for _, entry := range entries {
		id := entry.OpponentOf(userID)
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			opponentIDs = append(opponentIDs, id)
		}
	}

	names, err := h.userRepo.NamesByIDs(c.Request.Context(), opponentIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user info"})
		return
	}

	summaries := make([]models.RoomSummary, 0, len(entries))
	for _, entry := range entries {
		summaries = append(summaries, models.RoomSummary{
			RoomID:       entry.ID,
			OpponentName: names[entry.OpponentOf(userID)],
			BookTitle:    entry.BookTitle,
			LastMessage:  entry.LastMessage.String,
			UpdatedAt:    entry.UpdatedAt.Format(models.TimeLayout),
		})
	}

	c.JSON(http.StatusOK, gin.H{"chatrooms": summaries})
}

// ListMessages returns a room's messages in ascending time order, labeling
// each sender "me" or the counterpart's name. Participants only.
func (h *ChatHandler) ListMessages(c *gin.Context) {
	roomID, err := strconv.ParseInt(c.Param("chatroom_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chatroom id"})
		return
	}

	userID := c.GetString(middleware.UserIDKey)
	room, err := h.roomRepo.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRoomNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "chatroom not found"})
		return
	}
	if !room.IsParticipant(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for chatroom"})
		return
	}

	msgs, err := h.msgRepo.ListMessages(c.Request.Context(), roomID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	opponentID := room.OpponentOf(userID)
	names, err := h.userRepo.NamesByIDs(c.Request.Context(), []string{opponentID})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user info"})
		return
	}
	opponentName := names[opponentID]

	type messageResponse struct {
		Sender  string `json:"sender"`
		Content string `json:"content"`
		Time    string `json:"time"`
	}
	resp := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		sender := opponentName
		if m.SenderID == userID {
			sender = "me"
		}
		resp = append(resp, messageResponse{
			Sender:  sender,
			Content: m.Content,
			Time:    m.CreatedAt.Format(models.TimeLayout),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"chatroom_id":   room.ID,
		"opponent_name": opponentName,
		"messages":      resp,
	})
}
