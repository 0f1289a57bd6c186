//go:build !integration

package conversation

import (
	"testing"

	"telegram-usersettings/internal/domain/ports/adapter"
)

func TestFilter_Matrix(t *testing.T) {
	const user, chat = int64(42), int64(100)

	text := func(u, c int64) *adapter.Message {
		return &adapter.Message{ChatID: c, SenderID: u, Text: "value"}
	}
	photo := func(u, c int64) *adapter.Message {
		return &adapter.Message{ChatID: c, SenderID: u, Photo: &adapter.File{ID: "p"}}
	}
	doc := func(u, c int64) *adapter.Message {
		return &adapter.Message{ChatID: c, SenderID: u, Document: &adapter.File{ID: "d", Name: "rclone.conf"}}
	}

	type kind struct {
		name string
		mk   func(u, c int64) *adapter.Message
	}
	kinds := []kind{{"text", text}, {"photo", photo}, {"document", doc}}

	accepts := map[Mode]map[string]bool{
		ModeText:            {"text": true},
		ModePhotoOrDocument: {"photo": true, "document": true},
		ModeDocument:        {"document": true},
	}
	origins := []struct {
		name  string
		u, c  int64
		right bool
	}{
		{"right user and chat", user, chat, true},
		{"wrong user", 43, chat, false},
		{"wrong chat", user, 101, false},
	}

	for mode, ok := range accepts {
		f := Filter(user, chat, mode)
		for _, o := range origins {
			for _, k := range kinds {
				want := o.right && ok[k.name]
				t.Run(mode.String()+"/"+o.name+"/"+k.name, func(t *testing.T) {
					if got := f(k.mk(o.u, o.c)); got != want {
						t.Errorf("got %v, want %v", got, want)
					}
				})
			}
		}
		if f(nil) {
			t.Errorf("%s: nil message matched", mode)
		}
	}
}

func TestMode_CaptionedPhotoIsNotText(t *testing.T) {
	msg := &adapter.Message{ChatID: 1, SenderID: 1, Caption: "@x", Photo: &adapter.File{ID: "p"}}
	if ModeText.Accepts(msg) {
		t.Fatal("captioned photo accepted in text mode")
	}
	if Filter(1, 1, ModeText)(&adapter.Message{ChatID: 1, SenderID: 1, Caption: "@x", Document: &adapter.File{ID: "d"}}) {
		t.Fatal("captioned document accepted in text mode")
	}
	if Mode(99).Accepts(msg) || Mode(99).String() != "unknown" {
		t.Fatal("unknown mode should reject everything")
	}
}
