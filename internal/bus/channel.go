package bus

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/opensource-finance/claimdesk/internal/domain"
)

// ErrClosed is returned when publishing to or subscribing on a closed bus.
var ErrClosed = errors.New("bus is closed")

const defaultBufferSize = 1000

// ChannelBus delivers messages to in-process subscribers, each with its own
// buffered channel and goroutine. Claim events must not be lost, so Publish
// blocks while a subscriber's buffer is full.
type ChannelBus struct {
	mu         sync.RWMutex
	bufferSize int
	topics     map[string][]*channelSubscription
	handlers   sync.WaitGroup
	closed     bool
}

type channelSubscription struct {
	bus     *ChannelBus
	topic   string
	handler domain.MessageHandler
	inbox   chan *domain.Message
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewChannelBus creates a channel bus whose subscribers buffer up to
// bufferSize messages each.
func NewChannelBus(bufferSize int) *ChannelBus {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &ChannelBus{
		bufferSize: bufferSize,
		topics:     make(map[string][]*channelSubscription),
	}
}

// Publish hands the message to every current subscriber of topic, waiting for
// buffer space until ctx ends.
func (b *ChannelBus) Publish(ctx context.Context, topic string, payload []byte) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	subs := append([]*channelSubscription(nil), b.topics[topic]...)
	b.mu.RUnlock()

	msg := newMessage(backendChannel, topic, payload)
	for _, sub := range subs {
		if err := sub.deliver(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe starts a goroutine that runs handler for each message on topic
// until the subscription, ctx or the bus ends.
func (b *ChannelBus) Subscribe(ctx context.Context, topic string, handler domain.MessageHandler) (domain.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &channelSubscription{
		bus:     b,
		topic:   topic,
		handler: handler,
		inbox:   make(chan *domain.Message, b.bufferSize),
		ctx:     subCtx,
		cancel:  cancel,
	}
	b.topics[topic] = append(b.topics[topic], sub)

	b.handlers.Add(1)
	go func() {
		defer b.handlers.Done()
		sub.run()
	}()
	return sub, nil
}

// Ping fails once the bus is closed.
func (b *ChannelBus) Ping(ctx context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	return nil
}

// Close cancels every subscription and waits for running handlers to return.
// Buffered messages that were not yet handled are discarded.
func (b *ChannelBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for _, subs := range b.topics {
		for _, sub := range subs {
			sub.cancel()
		}
	}
	b.topics = make(map[string][]*channelSubscription)
	b.mu.Unlock()

	b.handlers.Wait()
	return nil
}

func (s *channelSubscription) deliver(ctx context.Context, msg *domain.Message) error {
	select {
	case s.inbox <- msg:
		return nil
	case <-s.ctx.Done():
		// Unsubscribed while waiting for room.
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *channelSubscription) run() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case msg := <-s.inbox:
			if err := s.handler(s.ctx, msg); err != nil {
				slog.Debug("event handler returned error",
					"topic", msg.Topic,
					"message_id", msg.ID,
					"error", err,
				)
			}
		}
	}
}

// Unsubscribe stops delivery and detaches the subscription from the bus.
func (s *channelSubscription) Unsubscribe() error {
	s.cancel()

	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.topics[s.topic]
	for i, other := range subs {
		if other == s {
			b.topics[s.topic] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	return nil
}

// Topic returns the subscribed topic.
func (s *channelSubscription) Topic() string {
	return s.topic
}
