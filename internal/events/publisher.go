// Package events publishes row change notifications to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/gestaopro/gestaopro-server/internal/config"
	"github.com/gestaopro/gestaopro-server/internal/observability"
)

// Change operations
const (
	OperationCreated = "created"
	OperationUpdated = "updated"
	OperationDeleted = "deleted"
)

// Event describes a committed row change
type Event struct {
	Table      string    `json:"table"`
	Operation  string    `json:"operation"`
	ID         string    `json:"id"`
	CompanyID  string    `json:"company_id"`
	ActorID    string    `json:"actor_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher delivers change events. Publishing is best effort.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Conn is the subset of *nats.Conn used for publishing
type Conn interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher publishes events as JSON on
// "<prefix>.<company_id>.<table>.<operation>"
type NATSPublisher struct {
	conn   Conn
	prefix string
}

// NewNATSPublisher creates a publisher on an established connection
func NewNATSPublisher(conn Conn, prefix string) *NATSPublisher {
	return &NATSPublisher{conn: conn, prefix: prefix}
}

// Subject returns the subject an event is published on
func (p *NATSPublisher) Subject(event Event) string {
	return fmt.Sprintf("%s.%s.%s.%s", p.prefix, event.CompanyID, event.Table, event.Operation)
}

// Publish sends the event. Failures are logged and counted only.
func (p *NATSPublisher) Publish(ctx context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		observability.EventsPublishedTotal.WithLabelValues(observability.OutcomeError).Inc()
		log.Error().Err(err).Str("table", event.Table).Msg("Failed to encode change event")
		return
	}

	subject := p.Subject(event)
	if err := p.conn.Publish(subject, data); err != nil {
		observability.EventsPublishedTotal.WithLabelValues(observability.OutcomeError).Inc()
		log.Warn().Err(err).Str("subject", subject).Msg("Failed to publish change event")
		return
	}

	observability.EventsPublishedTotal.WithLabelValues(observability.OutcomeOK).Inc()
	log.Debug().Str("subject", subject).Str("id", event.ID).Msg("Published change event")
}

// NopPublisher discards events. Used when no broker is configured.
type NopPublisher struct{}

// Publish does nothing
func (NopPublisher) Publish(ctx context.Context, event Event) {}

// Connect dials the configured NATS server
func Connect(cfg *config.NATSConfig, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name(name),
		nats.UserInfo(cfg.Username, cfg.Password),
		nats.ReconnectWait(cfg.ReconnectInterval),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}
