package telegram

import (
	"context"
	"sort"
	"sync"

	"telegram-usersettings/internal/domain/ports/adapter"
)

// dispatcher runs incoming messages past the subscribed filters before
// normal routing. Subscribers are tried in subscription order.
type dispatcher struct {
	mu   sync.RWMutex
	next adapter.Subscription
	subs map[adapter.Subscription]subscriber
}

type subscriber struct {
	filter  adapter.Filter
	handler adapter.Handler
}

func newDispatcher() *dispatcher {
	return &dispatcher{subs: make(map[adapter.Subscription]subscriber)}
}

func (d *dispatcher) Subscribe(filter adapter.Filter, handler adapter.Handler) adapter.Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	d.subs[d.next] = subscriber{filter: filter, handler: handler}
	return d.next
}

func (d *dispatcher) Unsubscribe(sub adapter.Subscription) {
	d.mu.Lock()
	delete(d.subs, sub)
	d.mu.Unlock()
}

// Dispatch hands msg to the first subscriber whose filter accepts it and
// reports whether one did. Handlers run without the lock held so they may
// unsubscribe.
func (d *dispatcher) Dispatch(ctx context.Context, msg *adapter.Message) bool {
	d.mu.RLock()
	ids := make([]adapter.Subscription, 0, len(d.subs))
	for id := range d.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var hit *subscriber
	for _, id := range ids {
		s := d.subs[id]
		if s.filter(msg) {
			hit = &s
			break
		}
	}
	d.mu.RUnlock()

	if hit == nil {
		return false
	}
	hit.handler(ctx, msg)
	return true
}

func (d *dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs)
}
