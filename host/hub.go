package host

import "sync"

// Subscription identifies one registered change callback.
type Subscription uint64

// Hub is a registry of per-record change callbacks.
// It is safe for concurrent use.
type Hub struct {
	mu    sync.Mutex
	next  Subscription
	byID  map[string]map[Subscription]func(id string)
	owner map[Subscription]string
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		byID:  make(map[string]map[Subscription]func(id string)),
		owner: make(map[Subscription]string),
	}
}

// Subscribe registers fn to run whenever the record with the given ID changes
// or is deleted.
func (h *Hub) Subscribe(id string, fn func(id string)) Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.next++
	sub := h.next
	subs, ok := h.byID[id]
	if !ok {
		subs = make(map[Subscription]func(id string))
		h.byID[id] = subs
	}
	subs[sub] = fn
	h.owner[sub] = id
	return sub
}

// Unsubscribe removes a subscription. Unknown subscriptions are ignored.
func (h *Hub) Unsubscribe(sub Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id, ok := h.owner[sub]
	if !ok {
		return
	}
	delete(h.owner, sub)
	delete(h.byID[id], sub)
	if len(h.byID[id]) == 0 {
		delete(h.byID, id)
	}
}

// Notify runs every callback registered for id on the caller's goroutine and
// returns how many ran. Callbacks run outside the hub lock and may subscribe
// or unsubscribe.
func (h *Hub) Notify(id string) int {
	h.mu.Lock()
	subs := make([]Subscription, 0, len(h.byID[id]))
	for sub := range h.byID[id] {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	fired := 0
	for _, sub := range subs {
		h.mu.Lock()
		fn, live := h.byID[id][sub]
		h.mu.Unlock()
		// Skip callbacks removed by an earlier callback in this round.
		if !live {
			continue
		}
		fn(id)
		fired++
	}
	return fired
}

// Len returns the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.owner)
}

// Subscribed reports whether any callback is registered for id.
func (h *Hub) Subscribed(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.byID[id]) > 0
}
