package events

import (
	"context"
	"errors"
	"testing"
)

func TestBusPublishCallsHandlersInOrder(t *testing.T) {
	bus := NewBus()
	calls := make([]int, 0, 2)

	bus.Subscribe(GamesRecorded, func(_ context.Context, _ Event) error {
		calls = append(calls, 1)
		return nil
	})
	bus.Subscribe(GamesRecorded, func(_ context.Context, _ Event) error {
		calls = append(calls, 2)
		return nil
	})

	if err := bus.Publish(context.Background(), Event{Name: GamesRecorded}); err != nil {
		t.Fatalf("publish returned error: %v", err)
	}

	if len(calls) != 2 || calls[0] != 1 || calls[1] != 2 {
		t.Fatalf("unexpected handler call sequence: %+v", calls)
	}
}

func TestBusPublishStopsOnFirstError(t *testing.T) {
	bus := NewBus()
	var calledSecond bool
	expectedErr := errors.New("handler failed")

	bus.Subscribe(LanguageChanged, func(_ context.Context, _ Event) error {
		return expectedErr
	})
	bus.Subscribe(LanguageChanged, func(_ context.Context, _ Event) error {
		calledSecond = true
		return nil
	})

	err := bus.Publish(context.Background(), Event{Name: LanguageChanged})
	if !errors.Is(err, expectedErr) {
		t.Fatalf("expected %v, got %v", expectedErr, err)
	}
	if calledSecond {
		t.Fatalf("expected second handler not to run")
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()
	var first, second int

	id := bus.Subscribe(LanguageChanged, func(_ context.Context, _ Event) error {
		first++
		return nil
	})
	bus.Subscribe(LanguageChanged, func(_ context.Context, _ Event) error {
		second++
		return nil
	})

	bus.Unsubscribe(id)
	bus.Unsubscribe(id)
	if got := bus.Count(LanguageChanged); got != 1 {
		t.Fatalf("expected 1 handler left, got %d", got)
	}

	if err := bus.Publish(context.Background(), Event{Name: LanguageChanged}); err != nil {
		t.Fatalf("publish returned error: %v", err)
	}
	if first != 0 || second != 1 {
		t.Fatalf("unexpected calls first=%d second=%d", first, second)
	}
}
