package conversation

import "telegram-usersettings/internal/domain/ports/adapter"

// Mode selects which message contents satisfy a session.
type Mode int

const (
	ModeText Mode = iota
	ModePhotoOrDocument
	ModeDocument
)

func (m Mode) String() string {
	switch m {
	case ModeText:
		return "text"
	case ModePhotoOrDocument:
		return "photo_or_document"
	case ModeDocument:
		return "document"
	}
	return "unknown"
}

func (m Mode) Accepts(msg *adapter.Message) bool {
	if msg == nil {
		return false
	}
	switch m {
	case ModeText:
		return msg.Text != ""
	case ModePhotoOrDocument:
		return msg.Photo != nil || msg.Document != nil
	case ModeDocument:
		return msg.Document != nil
	}
	return false
}

// Filter matches messages from user, in chat, whose content fits mode.
func Filter(user, chat int64, mode Mode) adapter.Filter {
	return func(msg *adapter.Message) bool {
		return msg != nil && msg.SenderID == user && msg.ChatID == chat && mode.Accepts(msg)
	}
}
