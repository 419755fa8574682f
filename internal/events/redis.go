package events

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultChannel = "pongboard:events"

type envelope struct {
	Origin  string          `json:"origin"`
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

type relayedKey struct{}

// Relay mirrors the local bus onto a redis channel so every instance sees
// language and game events. Events received from redis are re-published
// locally and never forwarded again.
type Relay struct {
	client  *redis.Client
	bus     *Bus
	channel string
	origin  string
	log     *zap.Logger
}

func NewRelay(client *redis.Client, bus *Bus, channel string, log *zap.Logger) *Relay {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Relay{
		client:  client,
		bus:     bus,
		channel: channel,
		origin:  uuid.NewString(),
		log:     log,
	}
}

// Run blocks until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}

	ids := []SubscriptionID{
		r.bus.Subscribe(LanguageChanged, r.forward),
		r.bus.Subscribe(GamesRecorded, r.forward),
	}
	defer func() {
		for _, id := range ids {
			r.bus.Unsubscribe(id)
		}
	}()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			e, origin, err := decodeEnvelope([]byte(msg.Payload))
			if err != nil {
				r.log.Warn("drop relay message", zap.Error(err))
				continue
			}
			if origin == r.origin {
				continue
			}
			if err := r.bus.Publish(context.WithValue(ctx, relayedKey{}, true), e); err != nil {
				r.log.Warn("relay publish", zap.String("event", e.Name), zap.Error(err))
			}
		}
	}
}

func (r *Relay) forward(ctx context.Context, e Event) error {
	if relayed, _ := ctx.Value(relayedKey{}).(bool); relayed {
		return nil
	}
	data, err := encodeEnvelope(r.origin, e)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		r.log.Warn("relay forward", zap.String("event", e.Name), zap.Error(err))
	}
	return nil
}

func encodeEnvelope(origin string, e Event) ([]byte, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Origin: origin, Name: e.Name, Payload: payload})
}

func decodeEnvelope(data []byte) (Event, string, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Event{}, "", err
	}
	e := Event{Name: env.Name}
	switch env.Name {
	case LanguageChanged:
		var p LanguagePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return Event{}, "", err
		}
		e.Payload = p
	case GamesRecorded:
		var p GamesPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return Event{}, "", err
		}
		e.Payload = p
	default:
		return Event{}, "", fmt.Errorf("unknown event %q", env.Name)
	}
	return e, env.Origin, nil
}
