package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/asemyonov/searchcore/internal/core/domain"
	"github.com/asemyonov/searchcore/internal/core/ports"
	"github.com/asemyonov/searchcore/internal/infrastructure/resilience"
)

const publishTimeout = 2 * time.Second

// EventSink mirrors pipeline events onto a NATS subject so that
// dashboards and audit consumers can observe searches without holding
// an HTTP stream open. One sink is shared by all requests; PublisherFor
// derives a per-mode publisher from it.
type EventSink struct {
	conn          *nats.Conn
	subjectPrefix string
	executor      *resilience.Executor
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func New(url, subjectPrefix string) (*EventSink, error) {
	return NewWithOptions(url, subjectPrefix, Options{})
}

func NewWithOptions(url, subjectPrefix string, options Options) (*EventSink, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("searchcore"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("nats disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("nats reconnected: %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &EventSink{
		conn:          conn,
		subjectPrefix: subjectPrefix,
		executor:      options.ResilienceExecutor,
	}, nil
}

func (s *EventSink) Close() {
	if s.conn != nil {
		s.conn.Close()
	}
}

// PublisherFor returns an EventPublisher bound to the subject for one
// search mode, e.g. "search.events.pro".
func (s *EventSink) PublisherFor(mode domain.Mode) ports.EventPublisher {
	return &modePublisher{sink: s, subject: subjectFor(s.subjectPrefix, mode)}
}

func subjectFor(prefix string, mode domain.Mode) string {
	return fmt.Sprintf("%s.%s", prefix, mode)
}

// PublishEvent sends one event to the given subject. It is retried by
// the resilience executor when one is configured.
func (s *EventSink) PublishEvent(ctx context.Context, subject string, event domain.StreamEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal stream event: %w", err)
	}

	call := func(_ context.Context) error {
		if err := s.conn.Publish(subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if s.executor != nil {
		err = s.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// modePublisher adapts EventSink to ports.EventPublisher. Publish is
// fire-and-forget: a broker outage must never fail a search.
type modePublisher struct {
	sink    *EventSink
	subject string
}

func (p *modePublisher) Publish(event domain.StreamEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.sink.PublishEvent(ctx, p.subject, event); err != nil {
		log.Printf("nats event publish failed on %s: %v", p.subject, err)
	}
}
