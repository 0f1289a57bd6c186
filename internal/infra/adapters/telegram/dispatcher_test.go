//go:build !integration

package telegram

import (
	"context"
	"testing"

	"telegram-usersettings/internal/domain/ports/adapter"
)

func TestDispatcher(t *testing.T) {
	ctx := context.Background()
	fromUser := func(id int64) adapter.Filter {
		return func(m *adapter.Message) bool { return m.SenderID == id }
	}

	t.Run("unmatched message falls through", func(t *testing.T) {
		d := newDispatcher()
		d.Subscribe(fromUser(1), func(context.Context, *adapter.Message) { t.Fatal("handler called") })
		if d.Dispatch(ctx, &adapter.Message{SenderID: 2}) {
			t.Fatal("message from another user was consumed")
		}
	})

	t.Run("first subscriber wins", func(t *testing.T) {
		d := newDispatcher()
		var got []string
		d.Subscribe(fromUser(1), func(context.Context, *adapter.Message) { got = append(got, "first") })
		d.Subscribe(fromUser(1), func(context.Context, *adapter.Message) { got = append(got, "second") })
		if !d.Dispatch(ctx, &adapter.Message{SenderID: 1}) {
			t.Fatal("message not consumed")
		}
		if len(got) != 1 || got[0] != "first" {
			t.Fatalf("handlers run = %v", got)
		}
	})

	t.Run("unsubscribe is idempotent", func(t *testing.T) {
		d := newDispatcher()
		sub := d.Subscribe(fromUser(1), func(context.Context, *adapter.Message) {})
		d.Unsubscribe(sub)
		d.Unsubscribe(sub)
		d.Unsubscribe(adapter.Subscription(999))
		if d.Len() != 0 {
			t.Fatalf("Len = %d", d.Len())
		}
		if d.Dispatch(ctx, &adapter.Message{SenderID: 1}) {
			t.Fatal("released subscription still consumed")
		}
	})

	t.Run("handler may unsubscribe itself", func(t *testing.T) {
		d := newDispatcher()
		var sub adapter.Subscription
		sub = d.Subscribe(fromUser(1), func(context.Context, *adapter.Message) { d.Unsubscribe(sub) })
		if !d.Dispatch(ctx, &adapter.Message{SenderID: 1}) {
			t.Fatal("message not consumed")
		}
		if d.Len() != 0 {
			t.Fatal("self-unsubscribe failed")
		}
	})
}
