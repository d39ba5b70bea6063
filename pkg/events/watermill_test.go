package events

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/autoflex-io/inventory/pkg/logger"
)

func setupTracer() *sdktrace.TracerProvider {
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return tp
}

func nopLogger() logger.Logger {
	return logger.Nop()
}

func newMemoryBus(t *testing.T, opts Options) (*EventBus, *gochannel.GoChannel) {
	t.Helper()
	gc := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	bus, err := newBus(nil, gc, gc, nopLogger(), opts)
	if err != nil {
		t.Fatalf("newBus: %v", err)
	}
	bus.retryInterval = time.Millisecond
	t.Cleanup(func() { _ = bus.Close() })
	return bus, gc
}

func TestEventBus_DeliversWithPublisherTrace(t *testing.T) {
	tp := setupTracer()
	defer tp.Shutdown(context.Background()) //nolint:errcheck

	bus, _ := newMemoryBus(t, Options{})
	got := make(chan trace.SpanContext, 1)
	bus.Handle("stock.test", func(ctx context.Context, _ *message.Message) error {
		got <- trace.SpanContextFromContext(ctx)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := bus.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	spanCtx, span := otel.Tracer("test").Start(ctx, "confirm")
	defer span.End()
	msg, err := NewMessage(spanCtx, "evt-1", 1, stockEvent{Code: "RM001", Count: 1})
	if err != nil {
		t.Fatal(err)
	}
	if err := bus.Publish(ctx, "stock.test", msg); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case sc := <-got:
		if sc.TraceID() != span.SpanContext().TraceID() {
			t.Fatalf("trace ID mismatch: want %s, got %s", span.SpanContext().TraceID(), sc.TraceID())
		}
	case <-ctx.Done():
		t.Fatal("handler never ran")
	}
}

func TestEventBus_ExhaustedMessagesArePoisoned(t *testing.T) {
	tests := []struct {
		name    string
		handler func(*atomic.Int32) Handler
		reason  string
	}{
		{
			name: "handler keeps failing",
			handler: func(calls *atomic.Int32) Handler {
				return func(context.Context, *message.Message) error {
					calls.Add(1)
					return errors.New("redis down")
				}
			},
			reason: "redis down",
		},
		{
			name: "handler panics",
			handler: func(calls *atomic.Int32) Handler {
				return func(context.Context, *message.Message) error {
					calls.Add(1)
					panic("nil cache")
				}
			},
			reason: "nil cache",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failed := make(chan string, 1)
			bus, gc := newMemoryBus(t, Options{
				OnFailure: func(_ context.Context, topic string, _ *message.Message, _ error) { failed <- topic },
			})

			var calls atomic.Int32
			bus.Handle("stock.fail", tt.handler(&calls))

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			poisoned, err := gc.Subscribe(ctx, PoisonTopic)
			if err != nil {
				t.Fatal(err)
			}
			if err := bus.Start(ctx); err != nil {
				t.Fatalf("start: %v", err)
			}

			msg, _ := NewMessage(ctx, "evt-2", 1, stockEvent{Code: "RM002"})
			if err := bus.Publish(ctx, "stock.fail", msg); err != nil {
				t.Fatalf("publish: %v", err)
			}

			select {
			case m := <-poisoned:
				m.Ack()
				if got := m.Metadata.Get(middleware.PoisonedTopicKey); got != "stock.fail" {
					t.Errorf("poisoned topic = %q", got)
				}
				if got := m.Metadata.Get(middleware.ReasonForPoisonedKey); !strings.Contains(got, tt.reason) {
					t.Errorf("poison reason = %q, want it to mention %q", got, tt.reason)
				}
				if m.Metadata.Get(MetaEventID) != "evt-2" {
					t.Errorf("event metadata lost: %v", m.Metadata)
				}
			case <-ctx.Done():
				t.Fatal("message never reached the poison topic")
			}

			if got := calls.Load(); got != handlerRetries+1 {
				t.Errorf("handler ran %d times, want %d", got, handlerRetries+1)
			}
			select {
			case topic := <-failed:
				if topic != "stock.fail" {
					t.Errorf("failure hook topic = %q", topic)
				}
			default:
				t.Error("failure hook was not called")
			}
		})
	}
}

func TestEventBus_OutboxNeedsDatabase(t *testing.T) {
	bus, _ := newMemoryBus(t, Options{Outbox: true})
	if err := bus.Start(context.Background()); err == nil {
		t.Fatal("expected an error starting an outbox bus without a database")
	}
}

type stockEvent struct {
	Code  string `json:"code"`
	Count int    `json:"count"`
}

// TestNewMessage_CarriesMetadataAndTrace verifies event metadata and trace
// context travel with the message and the payload decodes back.
func TestNewMessage_CarriesMetadataAndTrace(t *testing.T) {
	tp := setupTracer()
	defer tp.Shutdown(context.Background()) //nolint:errcheck

	ctx, span := otel.Tracer("test").Start(context.Background(), "confirm")
	defer span.End()

	msg, err := NewMessage(ctx, "evt-1", 2, stockEvent{Code: "RM001", Count: 3})
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	if msg.Metadata.Get(MetaEventID) != "evt-1" || msg.Metadata.Get(MetaEventVersion) != "2" {
		t.Errorf("unexpected metadata: %v", msg.Metadata)
	}
	if msg.Metadata.Get("traceparent") == "" {
		t.Error("expected traceparent metadata")
	}

	got, err := Decode[stockEvent](msg)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Code != "RM001" || got.Count != 3 {
		t.Errorf("unexpected payload: %+v", got)
	}
}

func TestDecode_InvalidPayload(t *testing.T) {
	msg := message.NewMessage("id", []byte("{not json"))
	if _, err := Decode[stockEvent](msg); err == nil {
		t.Fatal("expected decode error")
	}
}

// TestOTelPropagation_InjectExtract verifies that trace context injected via
// the same propagation path used by Publish/Subscribe round-trips correctly.
func TestOTelPropagation_InjectExtract(t *testing.T) {
	tp := setupTracer()
	defer tp.Shutdown(context.Background()) //nolint:errcheck

	ctx, span := otel.Tracer("test").Start(context.Background(), "publish-span")
	defer span.End()
	wantTraceID := span.SpanContext().TraceID()

	// Simulate Publish: inject trace context into message metadata.
	msg := message.NewMessage("id", nil)
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for k, v := range carrier {
		msg.Metadata.Set(k, v)
	}

	// Simulate Subscribe: extract trace context from message metadata.
	extractCarrier := propagation.MapCarrier{}
	for k, v := range msg.Metadata {
		extractCarrier[k] = v
	}
	msgCtx := otel.GetTextMapPropagator().Extract(context.Background(), extractCarrier)

	gotSpan := trace.SpanFromContext(msgCtx)
	if !gotSpan.SpanContext().IsValid() {
		t.Fatal("extracted span context is not valid")
	}
	if gotSpan.SpanContext().TraceID() != wantTraceID {
		t.Errorf("trace ID mismatch: want %s, got %s", wantTraceID, gotSpan.SpanContext().TraceID())
	}
}
