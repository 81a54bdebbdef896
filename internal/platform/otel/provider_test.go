package otel_test

import (
	"context"
	"testing"

	"github.com/louisbranch/bloomy/internal/platform/otel"
)

func TestSetup_NoopWhenEndpointEmpty(t *testing.T) {
	shutdown, err := otel.Setup(context.Background(), "test-service", otel.Config{Enabled: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_NoopWhenExplicitlyDisabled(t *testing.T) {
	shutdown, err := otel.Setup(context.Background(), "test-service", otel.Config{
		Endpoint: "http://localhost:4318",
		Enabled:  false,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_CreatesProviderWhenEndpointSet(t *testing.T) {
	// Non-routable address so no export happens.
	shutdown, err := otel.Setup(context.Background(), "test-service", otel.Config{
		Endpoint: "http://192.0.2.1:4318",
		Enabled:  true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestTracerStartsSpans(t *testing.T) {
	_, span := otel.Tracer("test").Start(context.Background(), "op")
	defer span.End()
	if span == nil {
		t.Fatal("expected span")
	}
}
