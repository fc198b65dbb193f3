package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/NobleVision/MUSIC-sub000/internal/model"
)

// Sink is one live subscriber connection as the broadcaster sees it: a place
// to write discrete frames, and a way to tear it down. An upstream idle
// timeout or peer close surfaces here as a write error, never as an explicit
// cancellation signal.
type Sink interface {
	Write(p []byte) error
	Close() error
}

// Subscriber states. Transition to Closed or Errored always removes the
// subscriber from the registry, idempotently.
const (
	stateConnecting int32 = iota
	stateOpen
	stateClosed
	stateErrored
)

// sendBufferSize bounds the per-subscriber frame queue. A subscriber that
// cannot drain this many frames is treated as failed; its removal must not
// stall delivery to the others.
const sendBufferSize = 16

type subscriber struct {
	id    string
	sink  Sink
	send  chan []byte
	state atomic.Int32
}

// Broadcaster keeps the registry of live subscribers and fans engagement
// events out to all of them. Explicitly constructed and owned, never a
// module-level global: tests run isolated instances side by side.
//
// The mutex guards registry mutation and the fan-out enqueue pass. Enqueues
// are non-blocking sends onto bounded channels; the actual sink write
// happens on one goroutine per subscriber, so a slow peer cannot stall the
// event producer or its neighbors, and the lock is never held across a
// network write. Closing a subscriber's channel also happens under the
// mutex, which is what makes the non-blocking sends safe.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[string]*subscriber

	heartbeatInterval time.Duration

	// heartbeatFrame is a comment-only SSE frame, distinguishable from
	// data frames by every client.
	heartbeatFrame []byte
}

func NewBroadcaster(heartbeatInterval time.Duration) *Broadcaster {
	return &Broadcaster{
		subscribers:       make(map[string]*subscriber),
		heartbeatInterval: heartbeatInterval,
		heartbeatFrame:    []byte(": ping\n\n"),
	}
}

// AddSubscriber registers a live sink and returns its opaque handle. The
// subscriber count is unbounded except by host resources.
func (b *Broadcaster) AddSubscriber(sink Sink) string {
	sub := &subscriber{
		id:   uuid.NewString(),
		sink: sink,
		send: make(chan []byte, sendBufferSize),
	}
	sub.state.Store(stateConnecting)

	b.mu.Lock()
	b.subscribers[sub.id] = sub
	sub.state.Store(stateOpen)
	total := len(b.subscribers)
	b.mu.Unlock()

	go b.writeLoop(sub)

	log.Info().Str("subscriber_id", sub.id).Int("total", total).
		Msg("broadcast: subscriber connected")
	return sub.id
}

// writeLoop drains the subscriber's frame queue into its sink. A failed
// write marks the subscriber errored and triggers its removal; the event
// producer never hears about it and the event is not retried.
func (b *Broadcaster) writeLoop(sub *subscriber) {
	for frame := range sub.send {
		if err := sub.sink.Write(frame); err != nil {
			log.Debug().Err(err).Str("subscriber_id", sub.id).
				Msg("broadcast: subscriber write failed")
			sub.state.Store(stateErrored)
			b.RemoveSubscriber(sub.id)
			// Channel is closed by removal; drain whatever was queued.
			for range sub.send {
			}
			return
		}
	}
}

// RemoveSubscriber removes one subscriber. Idempotent: removing an unknown
// or already-removed id is a no-op.
func (b *Broadcaster) RemoveSubscriber(id string) {
	b.mu.Lock()
	sub, ok := b.subscribers[id]
	if ok {
		delete(b.subscribers, id)
		sub.state.CompareAndSwap(stateOpen, stateClosed)
		close(sub.send)
	}
	total := len(b.subscribers)
	b.mu.Unlock()

	if !ok {
		return
	}

	_ = sub.sink.Close()

	log.Info().Str("subscriber_id", id).Int("total", total).
		Msg("broadcast: subscriber removed")
}

// Broadcast serializes the event once and queues it to every currently open
// subscriber. Subscribers whose queues are full (peer too slow or half-open)
// are collected during the pass and removed after it completes — the
// registry is never mutated mid-iteration.
func (b *Broadcaster) Broadcast(event model.ActivityEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("broadcast: event marshal failed")
		return
	}
	frame := make([]byte, 0, len(payload)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, payload...)
	frame = append(frame, "\n\n"...)

	b.fanOut(frame)
}

// SendHeartbeat writes a no-op keepalive frame to every subscriber, using
// the same failure-collection-then-removal pattern. Detects half-open
// connections and keeps idle intermediaries from dropping the stream.
func (b *Broadcaster) SendHeartbeat() {
	b.fanOut(b.heartbeatFrame)
}

func (b *Broadcaster) fanOut(frame []byte) {
	b.mu.Lock()
	var failed []string
	for _, sub := range b.subscribers {
		if sub.state.Load() != stateOpen {
			continue
		}
		select {
		case sub.send <- frame:
		default:
			// Queue full: the subscriber is not keeping up.
			failed = append(failed, sub.id)
		}
	}
	b.mu.Unlock()

	for _, id := range failed {
		b.RemoveSubscriber(id)
	}
}

// SubscriberCount returns the number of registered subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

// DisconnectAll closes every subscriber's sink, swallowing per-subscriber
// errors, and clears the registry. Process shutdown path.
func (b *Broadcaster) DisconnectAll() {
	b.mu.Lock()
	subs := make([]*subscriber, 0, len(b.subscribers))
	for _, sub := range b.subscribers {
		sub.state.CompareAndSwap(stateOpen, stateClosed)
		close(sub.send)
		subs = append(subs, sub)
	}
	b.subscribers = make(map[string]*subscriber)
	b.mu.Unlock()

	for _, sub := range subs {
		_ = sub.sink.Close()
	}

	log.Info().Int("closed", len(subs)).Msg("broadcast: disconnected all subscribers")
}

// RunHeartbeat sends keepalives on the configured interval until the context
// is cancelled. Startup owns this goroutine.
func (b *Broadcaster) RunHeartbeat(ctx context.Context) {
	ticker := time.NewTicker(b.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.SendHeartbeat()
		case <-ctx.Done():
			return
		}
	}
}
