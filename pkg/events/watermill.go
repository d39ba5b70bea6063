// Package events carries inventory domain events over PostgreSQL with Watermill.
//
// The API publishes through a transactional outbox: PublishTx writes the event
// in the caller's transaction and a forwarder later moves it to its topic.
// The worker consumes topics through a Watermill router that retries failing
// handlers, restores the publisher's trace context and parks messages that
// never succeed on PoisonTopic so they stop blocking the topic.
//
// Subscribers share one consumer group per service, so each message is
// handled by one worker instance. Handlers must be idempotent.
package events

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	watermillsql "github.com/ThreeDotsLabs/watermill-sql/v3/pkg/sql"
	"github.com/ThreeDotsLabs/watermill/components/forwarder"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/autoflex-io/inventory/pkg/config"
	"github.com/autoflex-io/inventory/pkg/logger"
)

// PoisonTopic receives messages whose handler failed on every attempt.
const PoisonTopic = "inventory.poison"

const (
	forwarderTopic = "inventory.outbox"
	handlerRetries = 2 // three attempts in total
	retryInterval  = time.Second
	closeTimeout   = 30 * time.Second
)

// Handler processes one event message. Returning an error retries it.
type Handler func(context.Context, *message.Message) error

// FailureHook is told about a message that exhausted its retries, just
// before it is moved to PoisonTopic.
type FailureHook func(ctx context.Context, topic string, msg *message.Message, err error)

// Options select how a process uses the bus.
type Options struct {
	// Outbox routes every publish through the forwarder queue. The API sets it.
	Outbox bool
	// OnFailure is optional.
	OnFailure FailureHook
}

// EventBus publishes and consumes inventory events.
type EventBus struct {
	db         *sql.DB // nil for in-memory buses in tests
	publisher  message.Publisher
	subscriber message.Subscriber
	router     *message.Router
	fwd        *forwarder.Forwarder
	log        logger.Logger
	wlog       watermill.LoggerAdapter

	outbox        bool
	onFailure     FailureHook
	retryInterval time.Duration
	handlers      int
	wg            sync.WaitGroup
}

// New opens the bus on cfg.DatabaseURL. Watermill's tables are created on
// first use. Call Start once handlers are registered.
func New(cfg *config.Config, log logger.Logger, opts Options) (*EventBus, error) {
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("events: open db: %w", err)
	}
	wlog := &slogAdapter{log: log}

	pub, err := newSQLPublisher(db, true, wlog)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	sub, err := newSQLSubscriber(db, cfg.ServiceName+"-consumer", wlog)
	if err != nil {
		_ = pub.Close()
		_ = db.Close()
		return nil, err
	}

	bus, err := newBus(db, pub, sub, log, opts)
	if err != nil {
		_ = sub.Close()
		_ = pub.Close()
		_ = db.Close()
		return nil, err
	}
	return bus, nil
}

func newBus(db *sql.DB, pub message.Publisher, sub message.Subscriber, log logger.Logger, opts Options) (*EventBus, error) {
	wlog := &slogAdapter{log: log}
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: closeTimeout}, wlog)
	if err != nil {
		return nil, fmt.Errorf("events: new router: %w", err)
	}
	// Poisoned messages are written directly, never through the outbox.
	poison, err := middleware.PoisonQueue(pub, PoisonTopic)
	if err != nil {
		return nil, fmt.Errorf("events: poison queue: %w", err)
	}

	b := &EventBus{
		db:            db,
		publisher:     pub,
		subscriber:    sub,
		router:        router,
		log:           log,
		wlog:          wlog,
		outbox:        opts.Outbox,
		onFailure:     opts.OnFailure,
		retryInterval: retryInterval,
	}
	if opts.Outbox {
		b.publisher = forwarder.NewPublisher(pub, forwarder.PublisherConfig{ForwarderTopic: forwarderTopic})
	}

	// Outermost first.
	router.AddMiddleware(
		restoreTrace,
		poison,
		b.reportExhausted,
		b.retry,
		middleware.Recoverer,
	)
	return b, nil
}

func newSQLPublisher(db watermillsql.ContextExecutor, initSchema bool, wlog watermill.LoggerAdapter) (*watermillsql.Publisher, error) {
	pub, err := watermillsql.NewPublisher(db, watermillsql.PublisherConfig{
		SchemaAdapter:        watermillsql.DefaultPostgreSQLSchema{},
		AutoInitializeSchema: initSchema,
	}, wlog)
	if err != nil {
		return nil, fmt.Errorf("events: new publisher: %w", err)
	}
	return pub, nil
}

func newSQLSubscriber(db *sql.DB, group string, wlog watermill.LoggerAdapter) (*watermillsql.Subscriber, error) {
	sub, err := watermillsql.NewSubscriber(db, watermillsql.SubscriberConfig{
		SchemaAdapter:    watermillsql.DefaultPostgreSQLSchema{},
		OffsetsAdapter:   watermillsql.DefaultPostgreSQLOffsetsAdapter{},
		InitializeSchema: true,
		ConsumerGroup:    group,
	}, wlog)
	if err != nil {
		return nil, fmt.Errorf("events: new subscriber %s: %w", group, err)
	}
	return sub, nil
}

// Handle registers h for topic. Register every handler before Start.
func (b *EventBus) Handle(topic string, h Handler) {
	b.router.AddConsumerHandler(topic, topic, b.subscriber, func(msg *message.Message) error {
		return h(msg.Context(), msg)
	})
	b.handlers++
}

// Start runs the outbox forwarder (outbox buses) and the handler router
// (when handlers are registered), returning once both are consuming.
func (b *EventBus) Start(ctx context.Context) error {
	if b.outbox {
		if err := b.startForwarder(ctx); err != nil {
			return err
		}
	}
	if b.handlers == 0 {
		return nil
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if err := b.router.Run(ctx); err != nil {
			b.log.ErrorContext(ctx, "events: router stopped with error", "error", err)
		}
	}()
	select {
	case <-b.router.Running():
		b.log.InfoContext(ctx, "events: consuming", "handlers", b.handlers)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("events: waiting for router: %w", ctx.Err())
	}
}

func (b *EventBus) startForwarder(ctx context.Context) error {
	if b.fwd != nil {
		return errors.New("events: forwarder already started")
	}
	if b.db == nil {
		return errors.New("events: outbox needs a database")
	}

	fwdSub, err := newSQLSubscriber(b.db, "inventory-forwarder", b.wlog)
	if err != nil {
		return err
	}
	targetPub, err := newSQLPublisher(b.db, true, b.wlog)
	if err != nil {
		_ = fwdSub.Close()
		return err
	}
	fwd, err := forwarder.NewForwarder(fwdSub, targetPub, b.wlog, forwarder.Config{ForwarderTopic: forwarderTopic})
	if err != nil {
		_ = targetPub.Close()
		_ = fwdSub.Close()
		return fmt.Errorf("events: create forwarder: %w", err)
	}
	b.fwd = fwd

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if err := fwd.Run(ctx); err != nil {
			b.log.ErrorContext(ctx, "events: forwarder stopped with error", "error", err)
		}
	}()
	select {
	case <-fwd.Running():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("events: waiting for forwarder: %w", ctx.Err())
	}
}

// NewTxPublisher returns a publisher whose writes join tx. Outbox buses wrap
// it so the forwarder delivers the events after tx commits.
func (b *EventBus) NewTxPublisher(tx *sql.Tx) (message.Publisher, error) {
	pub, err := newSQLPublisher(tx, false, b.wlog)
	if err != nil {
		return nil, err
	}
	if b.outbox {
		return forwarder.NewPublisher(pub, forwarder.PublisherConfig{ForwarderTopic: forwarderTopic}), nil
	}
	return pub, nil
}

// Publish sends msgs to topic outside any business transaction. Messages not
// built by NewMessage get the trace context of ctx here.
func (b *EventBus) Publish(ctx context.Context, topic string, msgs ...*message.Message) error {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for _, msg := range msgs {
		for k, v := range carrier {
			if msg.Metadata.Get(k) == "" {
				msg.Metadata.Set(k, v)
			}
		}
	}
	if err := b.publisher.Publish(topic, msgs...); err != nil { //nolint:contextcheck
		return fmt.Errorf("events: publish to %s: %w", topic, err)
	}
	return nil
}

// Ping checks the bus database.
func (b *EventBus) Ping(ctx context.Context) error {
	if b.db == nil {
		return nil
	}
	if err := b.db.PingContext(ctx); err != nil {
		return fmt.Errorf("events: ping db: %w", err)
	}
	return nil
}

// Close stops consuming, waits for in-flight handlers and closes the
// publisher and the database.
func (b *EventBus) Close() error {
	var errs []error
	if b.router.IsRunning() {
		errs = append(errs, b.router.Close())
	}
	if b.fwd != nil {
		errs = append(errs, b.fwd.Close())
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(closeTimeout):
		b.log.Error("events: timed out waiting for handlers to stop")
	}

	errs = append(errs, b.subscriber.Close(), b.publisher.Close())
	if b.db != nil {
		errs = append(errs, b.db.Close())
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("events: close: %w", err)
	}
	return nil
}

// restoreTrace continues the publisher's trace in the handler context.
func restoreTrace(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		carrier := propagation.MapCarrier{}
		for k, v := range msg.Metadata {
			carrier[k] = v
		}
		msg.SetContext(otel.GetTextMapPropagator().Extract(msg.Context(), carrier))
		return h(msg)
	}
}

func (b *EventBus) retry(h message.HandlerFunc) message.HandlerFunc {
	return middleware.Retry{
		MaxRetries:      handlerRetries,
		InitialInterval: b.retryInterval,
		MaxInterval:     4 * b.retryInterval,
		Multiplier:      2,
		Logger:          b.wlog,
	}.Middleware(h)
}

func (b *EventBus) reportExhausted(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		out, err := h(msg)
		if err == nil {
			return out, nil
		}
		ctx := msg.Context()
		topic := message.SubscribeTopicFromCtx(ctx)
		b.log.ErrorContext(ctx, "events: handler gave up, moving message to poison topic",
			"topic", topic,
			"message_uuid", msg.UUID,
			"event_id", msg.Metadata.Get(MetaEventID),
			"error", err,
		)
		if b.onFailure != nil {
			b.onFailure(ctx, topic, msg, err)
		}
		return out, err
	}
}

// slogAdapter bridges logger.Logger to watermill.LoggerAdapter.
type slogAdapter struct{ log logger.Logger }

func (a *slogAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.log.Error(msg, append(fieldsToArgs(fields), "error", err)...)
}
func (a *slogAdapter) Info(msg string, fields watermill.LogFields) {
	a.log.Info(msg, fieldsToArgs(fields)...)
}
func (a *slogAdapter) Debug(msg string, fields watermill.LogFields) {
	a.log.Debug(msg, fieldsToArgs(fields)...)
}
func (a *slogAdapter) Trace(msg string, fields watermill.LogFields) {
	a.log.Debug(msg, fieldsToArgs(fields)...)
}
func (a *slogAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &slogAdapter{log: a.log.With(fieldsToArgs(fields)...)}
}

func fieldsToArgs(fields watermill.LogFields) []any {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return args
}
