package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"bookmarket/internal/models"
	"bookmarket/internal/repositories"
	"bookmarket/internal/search"
)

type RoomRepositoryMock struct {
	mock.Mock
}

func (m *RoomRepositoryMock) CreateOrGetRoom(ctx context.Context, buyerID string, sellerID string, bookID int64) (models.ChatRoom, bool, error) {
	args := m.Called(ctx, buyerID, sellerID, bookID)
	var room models.ChatRoom
	if val := args.Get(0); val != nil {
		room = val.(models.ChatRoom)
	}
	return room, args.Bool(1), args.Error(2)
}

func (m *RoomRepositoryMock) GetRoom(ctx context.Context, roomID int64) (models.ChatRoom, error) {
	args := m.Called(ctx, roomID)
	var room models.ChatRoom
	if val := args.Get(0); val != nil {
		room = val.(models.ChatRoom)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) ListRoomsForUser(ctx context.Context, userID string) ([]repositories.RoomListEntry, error) {
	args := m.Called(ctx, userID)
	var list []repositories.RoomListEntry
	if val := args.Get(0); val != nil {
		list = val.([]repositories.RoomListEntry)
	}
	return list, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, roomID int64, senderID string, content string) (models.Message, error) {
	args := m.Called(ctx, roomID, senderID, content)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListMessages(ctx context.Context, roomID int64) ([]models.Message, error) {
	args := m.Called(ctx, roomID)
	var list []models.Message
	if val := args.Get(0); val != nil {
		list = val.([]models.Message)
	}
	return list, args.Error(1)
}

type BookRepositoryMock struct {
	mock.Mock
}

func (m *BookRepositoryMock) CreateBook(ctx context.Context, book models.Book, imageURLs []string) (models.Book, error) {
	args := m.Called(ctx, book, imageURLs)
	var created models.Book
	if val := args.Get(0); val != nil {
		created = val.(models.Book)
	}
	return created, args.Error(1)
}

func (m *BookRepositoryMock) GetBook(ctx context.Context, bookID int64) (models.Book, error) {
	args := m.Called(ctx, bookID)
	var book models.Book
	if val := args.Get(0); val != nil {
		book = val.(models.Book)
	}
	return book, args.Error(1)
}

func (m *BookRepositoryMock) GetBooksByIDs(ctx context.Context, bookIDs []int64) ([]models.Book, error) {
	args := m.Called(ctx, bookIDs)
	var list []models.Book
	if val := args.Get(0); val != nil {
		list = val.([]models.Book)
	}
	return list, args.Error(1)
}

func (m *BookRepositoryMock) ListBooks(ctx context.Context) ([]models.Book, error) {
	args := m.Called(ctx)
	var list []models.Book
	if val := args.Get(0); val != nil {
		list = val.([]models.Book)
	}
	return list, args.Error(1)
}

func (m *BookRepositoryMock) ListBooksBySeller(ctx context.Context, sellerID string) ([]models.Book, error) {
	args := m.Called(ctx, sellerID)
	var list []models.Book
	if val := args.Get(0); val != nil {
		list = val.([]models.Book)
	}
	return list, args.Error(1)
}

func (m *BookRepositoryMock) UpdateBook(ctx context.Context, bookID int64, patch models.BookPatch) (models.Book, error) {
	args := m.Called(ctx, bookID, patch)
	var book models.Book
	if val := args.Get(0); val != nil {
		book = val.(models.Book)
	}
	return book, args.Error(1)
}

func (m *BookRepositoryMock) DeleteBook(ctx context.Context, bookID int64) error {
	args := m.Called(ctx, bookID)
	return args.Error(0)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) GetUser(ctx context.Context, userID string) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) NamesByIDs(ctx context.Context, userIDs []string) (map[string]string, error) {
	args := m.Called(ctx, userIDs)
	var names map[string]string
	if val := args.Get(0); val != nil {
		names = val.(map[string]string)
	}
	return names, args.Error(1)
}

type OutboxRepositoryMock struct {
	mock.Mock
}

func (m *OutboxRepositoryMock) PendingEntries(ctx context.Context, limit int) ([]models.SearchOutboxEntry, error) {
	args := m.Called(ctx, limit)
	var list []models.SearchOutboxEntry
	if val := args.Get(0); val != nil {
		list = val.([]models.SearchOutboxEntry)
	}
	return list, args.Error(1)
}

func (m *OutboxRepositoryMock) MarkProcessed(ctx context.Context, entryID int64) error {
	args := m.Called(ctx, entryID)
	return args.Error(0)
}

func (m *OutboxRepositoryMock) MarkFailed(ctx context.Context, entryID int64) error {
	args := m.Called(ctx, entryID)
	return args.Error(0)
}

type SearchIndexMock struct {
	mock.Mock
}

func (m *SearchIndexMock) IndexBook(book models.Book) error {
	args := m.Called(book)
	return args.Error(0)
}

func (m *SearchIndexMock) DeleteBook(bookID int64) error {
	args := m.Called(bookID)
	return args.Error(0)
}

func (m *SearchIndexMock) Search(ctx context.Context, q string, limit int) ([]int64, error) {
	args := m.Called(ctx, q, limit)
	var ids []int64
	if val := args.Get(0); val != nil {
		ids = val.([]int64)
	}
	return ids, args.Error(1)
}

func (m *SearchIndexMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

var _ repositories.RoomRepository = (*RoomRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.BookRepository = (*BookRepositoryMock)(nil)
var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
var _ repositories.OutboxRepository = (*OutboxRepositoryMock)(nil)
var _ search.Index = (*SearchIndexMock)(nil)
