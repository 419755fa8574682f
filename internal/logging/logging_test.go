package logging

import (
	"testing"

	"github.com/lutefd/pongboard/internal/config"
)

func TestNew(t *testing.T) {
	log, err := New(config.LogConfig{Level: "debug", Development: true})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if !log.Core().Enabled(-1) {
		t.Fatalf("expected debug level to be enabled")
	}
	if _, err := New(config.LogConfig{Level: "loud"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
