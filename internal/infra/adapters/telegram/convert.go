package telegram

import (
	"strings"

	"telegram-usersettings/internal/domain/ports/adapter"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func toMessage(m *tgbotapi.Message) *adapter.Message {
	if m == nil {
		return nil
	}
	out := &adapter.Message{ID: m.MessageID, Text: m.Text, Caption: m.Caption}
	if m.Chat != nil {
		out.ChatID = m.Chat.ID
	}
	switch {
	case m.From != nil:
		out.SenderID = m.From.ID
		out.SenderName = strings.TrimSpace(m.From.FirstName + " " + m.From.LastName)
		out.SenderUsername = m.From.UserName
	case m.SenderChat != nil:
		out.SenderID = m.SenderChat.ID
		out.SenderName = m.SenderChat.Title
	}
	if n := len(m.Photo); n > 0 {
		// the last size is the largest
		p := m.Photo[n-1]
		out.Photo = &adapter.File{ID: p.FileID, Size: int64(p.FileSize)}
	}
	if d := m.Document; d != nil {
		out.Document = &adapter.File{ID: d.FileID, Name: d.FileName, MimeType: d.MimeType, Size: int64(d.FileSize)}
	}
	if m.ReplyToMessage != nil {
		out.ReplyToID = m.ReplyToMessage.MessageID
	}
	if m.ReplyMarkup != nil {
		out.ReplyMarkup = fromKeyboard(m.ReplyMarkup)
	}
	return out
}

func toCallback(q *tgbotapi.CallbackQuery) *adapter.Callback {
	cb := &adapter.Callback{ID: q.ID, Data: strings.TrimSpace(q.Data), Message: toMessage(q.Message)}
	if q.From != nil {
		cb.FromID = q.From.ID
		cb.FromName = strings.TrimSpace(q.From.FirstName + " " + q.From.LastName)
		cb.FromUser = q.From.UserName
	}
	return cb
}

// toKeyboard builds the inline keyboard. Buttons with a URL open a link,
// the rest send their Data (or their label when Data is empty).
func toKeyboard(m *adapter.ReplyMarkup) *tgbotapi.InlineKeyboardMarkup {
	if m == nil {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(m.Buttons))
	for _, row := range m.Buttons {
		if len(row) == 0 {
			continue
		}
		r := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			label := strings.TrimSpace(btn.Text)
			if label == "" {
				label = "•"
			}
			switch {
			case btn.URL != "":
				r = append(r, tgbotapi.NewInlineKeyboardButtonURL(label, btn.URL))
			case btn.Data != "":
				r = append(r, tgbotapi.NewInlineKeyboardButtonData(label, btn.Data))
			default:
				r = append(r, tgbotapi.NewInlineKeyboardButtonData(label, label))
			}
		}
		rows = append(rows, r)
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func fromKeyboard(kb *tgbotapi.InlineKeyboardMarkup) *adapter.ReplyMarkup {
	out := &adapter.ReplyMarkup{Buttons: make([][]adapter.Button, 0, len(kb.InlineKeyboard))}
	for _, row := range kb.InlineKeyboard {
		r := make([]adapter.Button, 0, len(row))
		for _, btn := range row {
			b := adapter.Button{Text: btn.Text}
			if btn.CallbackData != nil {
				b.Data = *btn.CallbackData
			}
			if btn.URL != nil {
				b.URL = *btn.URL
			}
			r = append(r, b)
		}
		out.Buttons = append(out.Buttons, r)
	}
	return out
}

// commandName extracts "usetting" from "/usetting@MyBot args".
func commandName(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	name := strings.TrimPrefix(fields[0], "/")
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}
