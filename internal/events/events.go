// Package events carries push-style "account changed" notifications between
// the identity gateway and its subscribers over an in-process pub/sub.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// TopicAccountChanged receives an event on sign-up, sign-in, sign-out,
// session expiry, and approval changes.
const TopicAccountChanged = "account.changed"

// AccountEventType classifies an account change.
type AccountEventType string

const (
	AccountSignedUp       AccountEventType = "signed_up"
	AccountSignedIn       AccountEventType = "signed_in"
	AccountSignedOut      AccountEventType = "signed_out"
	AccountApprovalChange AccountEventType = "approval_changed"
)

// AccountEvent is the payload published on TopicAccountChanged.
type AccountEvent struct {
	Type      AccountEventType `json:"type"`
	AccountID string           `json:"accountId"`
}

// Bus is an in-process publish/subscribe channel for account events.
type Bus struct {
	pubsub *gochannel.GoChannel
}

func NewBus() *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{}, watermill.NewSlogLogger(slog.Default())),
	}
}

func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// PublishAccountChanged emits one account event to all current subscribers.
func (b *Bus) PublishAccountChanged(ev AccountEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode account event: %w", err)
	}
	return b.pubsub.Publish(TopicAccountChanged, message.NewMessage(watermill.NewUUID(), payload))
}

// SubscribeAccountChanged returns a channel of decoded account events. The
// channel closes when ctx is cancelled; undecodable messages are dropped
// with a warning.
func (b *Bus) SubscribeAccountChanged(ctx context.Context) (<-chan AccountEvent, error) {
	msgs, err := b.pubsub.Subscribe(ctx, TopicAccountChanged)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", TopicAccountChanged, err)
	}

	out := make(chan AccountEvent)
	go func() {
		defer close(out)
		for msg := range msgs {
			var ev AccountEvent
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				slog.Warn("dropping malformed account event", "error", err)
				msg.Ack()
				continue
			}
			msg.Ack()
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
