// Package pubsub implements channel subscription and message fan-out,
// grounded on tinydb_pubsub.c. Subscribers are abstracted behind a small
// interface instead of the source's raw socket_fd so the package works
// against any connection type (net.Conn, an in-process test sink, ...).
// Delivery runs on the shared workerpool.Pool, the same decoupling
// Publish achieves in the source via Thread_Pool_Add_Task.
package pubsub

import (
	"context"
	"sync"

	"github.com/dreamware/tinydb/internal/tlog"
	"github.com/dreamware/tinydb/internal/workerpool"
)

// Subscriber receives published messages. Send must be safe to call from
// any goroutine.
type Subscriber interface {
	ID() string
	Send(message string) error
}

// channel is one named topic and its live subscriber set, mirroring
// Channel/Subscriber.
type channel struct {
	subscribers map[string]Subscriber
}

// System is the process-wide pub/sub registry, mirroring PubSubSystem.
type System struct {
	mu       sync.Mutex
	channels map[string]*channel
	pool     *workerpool.Pool
}

// New creates an empty System that dispatches deliveries on pool.
func New(pool *workerpool.Pool) *System {
	return &System{channels: make(map[string]*channel), pool: pool}
}

// Subscribe adds sub to channelName, creating the channel if needed,
// mirroring Subscribe.
func (s *System) Subscribe(channelName string, sub Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.channels[channelName]
	if !ok {
		ch = &channel{subscribers: make(map[string]Subscriber)}
		s.channels[channelName] = ch
	}
	ch.subscribers[sub.ID()] = sub
}

// Unsubscribe removes subID from channelName, dropping the channel once
// empty, mirroring Unsubscribe/Remove_Empty_Channel.
func (s *System) Unsubscribe(channelName, subID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.channels[channelName]
	if !ok {
		return
	}
	delete(ch.subscribers, subID)
	if len(ch.subscribers) == 0 {
		delete(s.channels, channelName)
	}
}

// UnsubscribeAll removes subID from every channel it's a member of,
// mirroring Unsubscribe_All. Called when a connection closes.
func (s *System) UnsubscribeAll(subID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, ch := range s.channels {
		delete(ch.subscribers, subID)
		if len(ch.subscribers) == 0 {
			delete(s.channels, name)
		}
	}
}

// Publish fans message out to every subscriber of channelName via the
// worker pool and returns how many subscribers it was queued for,
// mirroring Publish's subscriber loop (webhook fan-out is a separate call
// from the command layer, since triggering it needs the active database).
func (s *System) Publish(ctx context.Context, channelName, message string) int {
	s.mu.Lock()
	ch, ok := s.channels[channelName]
	if !ok {
		s.mu.Unlock()
		return 0
	}
	subs := make([]Subscriber, 0, len(ch.subscribers))
	for _, sub := range ch.subscribers {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	log := tlog.WithComponent("pubsub")
	queued := 0
	for _, sub := range subs {
		sub := sub
		if s.pool.Submit(ctx, func() {
			if err := sub.Send(message); err != nil {
				log.Warn().Err(err).Str("subscriber", sub.ID()).Msg("failed to deliver message")
			}
		}) {
			queued++
		}
	}
	return queued
}

// SubscriberCount reports how many subscribers channelName currently has.
func (s *System) SubscriberCount(channelName string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[channelName]
	if !ok {
		return 0
	}
	return len(ch.subscribers)
}
