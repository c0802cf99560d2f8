package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bookmarket/internal/middleware"
	"bookmarket/internal/mocks"
	"bookmarket/internal/models"
	"bookmarket/internal/repositories"
)

const testBuyerID = "11111111-1111-1111-1111-111111111111"
const testSellerID = "22222222-2222-2222-2222-222222222222"

func setupChatRouter(handler *ChatHandler, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Next()
	})
	r.POST("/chatroom", handler.CreateRoom)
	r.GET("/chatrooms", handler.ListRooms)
	r.GET("/chatroom/:chatroom_id/messages", handler.ListMessages)
	return r
}

func TestCreateRoomFirstContact(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	bookRepo := new(mocks.BookRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewChatHandler(roomRepo, nil, bookRepo, userRepo, nil)
	router := setupChatRouter(handler, testBuyerID)

	userRepo.On("GetUser", mock.Anything, testBuyerID).Return(models.User{ID: testBuyerID}, nil).Once()
	bookRepo.On("GetBook", mock.Anything, int64(7)).Return(models.Book{ID: 7, SellerID: testSellerID}, nil).Once()
	roomRepo.On("CreateOrGetRoom", mock.Anything, testBuyerID, testSellerID, int64(7)).
		Return(models.ChatRoom{ID: 42, BuyerID: testBuyerID, SellerID: testSellerID, BookID: 7}, true, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/chatroom", bytes.NewBufferString(`{"book_id":7}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, float64(42), resp["chatroom_id"])
	assert.Equal(t, "chatroom created", resp["message"])
	roomRepo.AssertExpectations(t)
	bookRepo.AssertExpectations(t)
	userRepo.AssertExpectations(t)
}

func TestCreateRoomAlreadyExists(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	bookRepo := new(mocks.BookRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewChatHandler(roomRepo, nil, bookRepo, userRepo, nil)
	router := setupChatRouter(handler, testBuyerID)

	userRepo.On("GetUser", mock.Anything, testBuyerID).Return(models.User{ID: testBuyerID}, nil).Once()
	bookRepo.On("GetBook", mock.Anything, int64(7)).Return(models.Book{ID: 7, SellerID: testSellerID}, nil).Once()
	roomRepo.On("CreateOrGetRoom", mock.Anything, testBuyerID, testSellerID, int64(7)).
		Return(models.ChatRoom{ID: 42, BuyerID: testBuyerID, SellerID: testSellerID, BookID: 7}, false, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/chatroom", bytes.NewBufferString(`{"book_id":7}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "chatroom already exists", resp["message"])
	roomRepo.AssertExpectations(t)
}

func TestCreateRoomBookNotFound(t *testing.T) {
	bookRepo := new(mocks.BookRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewChatHandler(new(mocks.RoomRepositoryMock), nil, bookRepo, userRepo, nil)
	router := setupChatRouter(handler, testBuyerID)

	userRepo.On("GetUser", mock.Anything, testBuyerID).Return(models.User{ID: testBuyerID}, nil).Once()
	bookRepo.On("GetBook", mock.Anything, int64(99)).Return(models.Book{}, repositories.ErrBookNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/chatroom", bytes.NewBufferString(`{"book_id":99}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	bookRepo.AssertExpectations(t)
}

func TestCreateRoomMissingBookID(t *testing.T) {
	handler := NewChatHandler(new(mocks.RoomRepositoryMock), nil, new(mocks.BookRepositoryMock), new(mocks.UserRepositoryMock), nil)
	router := setupChatRouter(handler, testBuyerID)

	req := httptest.NewRequest(http.MethodPost, "/chatroom", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListRooms(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewChatHandler(roomRepo, nil, new(mocks.BookRepositoryMock), userRepo, nil)
	router := setupChatRouter(handler, testBuyerID)

	updated := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	roomRepo.On("ListRoomsForUser", mock.Anything, testBuyerID).Return([]repositories.RoomListEntry{
		{
			ChatRoom: models.ChatRoom{
				ID:          42,
				BuyerID:     testBuyerID,
				SellerID:    testSellerID,
				BookID:      7,
				LastMessage: sql.NullString{String: "is it still available?", Valid: true},
				UpdatedAt:   updated,
			},
			BookTitle: "Linear Algebra",
		},
	}, nil).Once()
	userRepo.On("NamesByIDs", mock.Anything, []string{testSellerID}).
		Return(map[string]string{testSellerID: "Dana"}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chatrooms", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Chatrooms []models.RoomSummary `json:"chatrooms"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Chatrooms, 1)
	assert.Equal(t, int64(42), resp.Chatrooms[0].RoomID)
	assert.Equal(t, "Dana", resp.Chatrooms[0].OpponentName)
	assert.Equal(t, "Linear Algebra", resp.Chatrooms[0].BookTitle)
	assert.Equal(t, "is it still available?", resp.Chatrooms[0].LastMessage)
	assert.Equal(t, "2026-03-01 09:30:00", resp.Chatrooms[0].UpdatedAt)
	roomRepo.AssertExpectations(t)
	userRepo.AssertExpectations(t)
}

func TestListRoomsRepoError(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	handler := NewChatHandler(roomRepo, nil, new(mocks.BookRepositoryMock), new(mocks.UserRepositoryMock), nil)
	router := setupChatRouter(handler, testBuyerID)

	roomRepo.On("ListRoomsForUser", mock.Anything, testBuyerID).
		Return(([]repositories.RoomListEntry)(nil), assert.AnError).Once()

	req := httptest.NewRequest(http.MethodGet, "/chatrooms", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	roomRepo.AssertExpectations(t)
}

func TestListMessagesLabelsSenders(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	msgRepo := new(mocks.MessageRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewChatHandler(roomRepo, msgRepo, new(mocks.BookRepositoryMock), userRepo, nil)
	router := setupChatRouter(handler, testBuyerID)

	roomRepo.On("GetRoom", mock.Anything, int64(42)).
		Return(models.ChatRoom{ID: 42, BuyerID: testBuyerID, SellerID: testSellerID, BookID: 7}, nil).Once()
	sent := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	msgRepo.On("ListMessages", mock.Anything, int64(42)).Return([]models.Message{
		{ID: 1, RoomID: 42, SenderID: testBuyerID, Content: "hi", CreatedAt: sent},
		{ID: 2, RoomID: 42, SenderID: testSellerID, Content: "hello", CreatedAt: sent.Add(time.Minute)},
	}, nil).Once()
	userRepo.On("NamesByIDs", mock.Anything, []string{testSellerID}).
		Return(map[string]string{testSellerID: "Dana"}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chatroom/42/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		ChatroomID   int64  `json:"chatroom_id"`
		OpponentName string `json:"opponent_name"`
		Messages     []struct {
			Sender  string `json:"sender"`
			Content string `json:"content"`
			Time    string `json:"time"`
		} `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, int64(42), resp.ChatroomID)
	assert.Equal(t, "Dana", resp.OpponentName)
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "me", resp.Messages[0].Sender)
	assert.Equal(t, "Dana", resp.Messages[1].Sender)
	assert.Equal(t, "2026-03-01 09:30:00", resp.Messages[0].Time)
	roomRepo.AssertExpectations(t)
	msgRepo.AssertExpectations(t)
	userRepo.AssertExpectations(t)
}

func TestListMessagesNotParticipant(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	handler := NewChatHandler(roomRepo, new(mocks.MessageRepositoryMock), new(mocks.BookRepositoryMock), new(mocks.UserRepositoryMock), nil)
	router := setupChatRouter(handler, "33333333-3333-3333-3333-333333333333")

	roomRepo.On("GetRoom", mock.Anything, int64(42)).
		Return(models.ChatRoom{ID: 42, BuyerID: testBuyerID, SellerID: testSellerID, BookID: 7}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chatroom/42/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	roomRepo.AssertExpectations(t)
}

func TestListMessagesRoomNotFound(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	handler := NewChatHandler(roomRepo, new(mocks.MessageRepositoryMock), new(mocks.BookRepositoryMock), new(mocks.UserRepositoryMock), nil)
	router := setupChatRouter(handler, testBuyerID)

	roomRepo.On("GetRoom", mock.Anything, int64(404)).
		Return(models.ChatRoom{}, repositories.ErrRoomNotFound).Once()

	req := httptest.NewRequest(http.MethodGet, "/chatroom/404/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	roomRepo.AssertExpectations(t)
}
