// File: internal/domain/ports/adapter/telegram.go
package adapter

import (
	"context"
	"io"
)

type Button struct {
	Text string
	Data string
	URL  string
}

type ReplyMarkup struct {
	Buttons [][]Button
}

// File describes an attachment; only the id is needed to download it.
type File struct {
	ID       string
	Name     string
	MimeType string
	Size     int64
}

// Message is the transport-neutral view of a chat message.
type Message struct {
	ID             int
	ChatID         int64
	SenderID       int64
	SenderName     string
	SenderUsername string
	Text           string
	Caption        string
	Photo          *File
	Document       *File
	ReplyToID      int
	ReplyMarkup    *ReplyMarkup
}

// Callback is an inline button press.
type Callback struct {
	ID       string
	FromID   int64
	FromName string
	FromUser string
	Message  *Message
	Data     string
}

type (
	Filter  func(msg *Message) bool
	Handler func(ctx context.Context, msg *Message)
)

// Subscription is an opaque handle returned by Subscribe.
type Subscription uint64

// MessageStream lets callers intercept incoming messages ahead of normal routing.
type MessageStream interface {
	Subscribe(filter Filter, handler Handler) Subscription
	// Unsubscribe is a no-op for unknown or already released handles.
	Unsubscribe(sub Subscription)
}

type Messenger interface {
	MessageStream
	SendMessage(ctx context.Context, chatID int64, text string, markup *ReplyMarkup) (*Message, error)
	EditMessage(ctx context.Context, msg *Message, text string, markup *ReplyMarkup) (*Message, error)
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	FetchMessage(ctx context.Context, chatID int64, messageID int) (*Message, error)
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
	SendDocument(ctx context.Context, chatID int64, name string, data []byte, caption string) error
	SendPhotoFile(ctx context.Context, chatID int64, path, caption string) error
	DownloadFile(ctx context.Context, fileID string, w io.Writer) error
}
