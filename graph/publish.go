// Package graph publishes recorded fact groups to the knowledge graph over
// NATS JetStream.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/c360studio/semrec/fact"
	"github.com/c360studio/semrec/storage"
)

// Subject prefix for fact ingestion. Groups are published on
// <prefix>.<session-key>.
const FactIngestSubject = "semrec.facts"

// StreamPublisher is the part of natsclient.Client the publisher needs.
type StreamPublisher interface {
	PublishToStream(ctx context.Context, subject string, data []byte) error
}

// Publisher is a fact sink that publishes every group as one message.
type Publisher struct {
	client StreamPublisher
	prefix string
	logger *slog.Logger
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithSubjectPrefix overrides FactIngestSubject.
func WithSubjectPrefix(prefix string) PublisherOption {
	return func(p *Publisher) {
		p.prefix = strings.TrimSuffix(prefix, ".")
	}
}

// WithLogger sets the publisher logger.
func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher creates a publisher over client.
func NewPublisher(client StreamPublisher, opts ...PublisherOption) *Publisher {
	p := &Publisher{client: client, prefix: FactIngestSubject, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Subject returns the subject a session's groups are published on.
func (p *Publisher) Subject(session string) string {
	return p.prefix + "." + storage.SessionKey(session)
}

// Append publishes one group. Failures to reach NATS are TransportErrors;
// nothing is retried.
func (p *Publisher) Append(ctx context.Context, g fact.Group) error {
	if p.client == nil {
		return fmt.Errorf("publish %s: %w", g.Subject, storage.ErrNotConfigured)
	}

	payload := NewFactGroupPayload(g)
	if err := payload.Validate(); err != nil {
		return fmt.Errorf("validate fact group %s: %w", g.Subject, err)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal fact group: %w", err)
	}

	subject := p.Subject(g.Session)
	if err := p.client.PublishToStream(ctx, subject, data); err != nil {
		return &fact.TransportError{Op: "publish " + subject, Err: err}
	}
	p.logger.Debug("Published fact group", "subject", subject, "entity", g.Subject, "triples", len(g.Triples))
	return nil
}
