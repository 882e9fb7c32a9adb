package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/c360studio/semrec/config"
	"github.com/c360studio/semrec/fact"
	"github.com/c360studio/semrec/graph"
	"github.com/c360studio/semrec/recorder"
	"github.com/c360studio/semrec/replay"
	"github.com/c360studio/semrec/storage"
	"github.com/c360studio/semrec/storage/sqlite"
	vocab "github.com/c360studio/semrec/vocabulary/scene"
	"github.com/c360studio/semstreams/natsclient"
)

// sessionStore is a store a recording writes into and a replay reads from.
type sessionStore interface {
	fact.Sink
	replay.Store
	Sessions(ctx context.Context) ([]string, error)
}

// backend holds the configured store and, when needed, the NATS connection.
type backend struct {
	store  sessionStore
	nats   *natsclient.Client
	closer func() error
}

// openBackend opens the configured store. NATS is dialed when the store
// lives in KV or when publish is set and a NATS URL is configured.
func openBackend(ctx context.Context, cfg *config.Config, publish bool, logger *slog.Logger) (*backend, error) {
	b := &backend{}

	needNATS := cfg.Store.Backend == config.StoreKV || (publish && cfg.NATS.URL != "")
	if needNATS {
		client, err := graph.Connect(ctx, cfg.NATS.URL, appName, logger)
		if err != nil {
			return nil, err
		}
		b.nats = client
	}

	switch cfg.Store.Backend {
	case config.StoreKV:
		js, err := b.nats.JetStream()
		if err != nil {
			b.Close(ctx)
			return nil, fmt.Errorf("get jetstream: %w", err)
		}
		kv, err := storage.NewKVStore(ctx, js)
		if err != nil {
			b.Close(ctx)
			return nil, fmt.Errorf("open kv store: %w", err)
		}
		b.store = kv
		logger.Info("Using NATS KV store")
	default:
		db, err := sqlite.Open(cfg.Store.Path)
		if err != nil {
			b.Close(ctx)
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		b.store = db
		b.closer = db.Close
		logger.Info("Using SQLite store", "path", cfg.Store.Path)
	}
	return b, nil
}

// sink returns the store, teed with a NATS publisher when connected.
func (b *backend) sink(ctx context.Context, cfg *config.Config, logger *slog.Logger) (fact.Sink, error) {
	if b.nats == nil || cfg.NATS.URL == "" {
		return b.store, nil
	}
	js, err := b.nats.JetStream()
	if err != nil {
		return nil, fmt.Errorf("get jetstream: %w", err)
	}
	if err := graph.EnsureStream(ctx, js, cfg.NATS.SubjectPrefix, cfg.NATS.StreamMaxAge); err != nil {
		return nil, err
	}
	publisher := graph.NewPublisher(b.nats,
		graph.WithSubjectPrefix(cfg.NATS.SubjectPrefix),
		graph.WithLogger(logger))
	return fact.Tee{b.store, publisher}, nil
}

// Close releases the store and the NATS connection.
func (b *backend) Close(ctx context.Context) {
	if b.closer != nil {
		if err := b.closer(); err != nil {
			slog.Warn("Failed to close store", "error", err)
		}
	}
	if b.nats != nil {
		b.nats.Close(ctx)
	}
}

// sessionFacts returns every group of a session in append order.
func sessionFacts(ctx context.Context, store replay.Store, session string) ([]fact.Group, error) {
	if s, ok := store.(interface {
		SessionFacts(ctx context.Context, session string) ([]fact.Group, error)
	}); ok {
		return s.SessionFacts(ctx, session)
	}

	instants, err := store.Instants(ctx, session)
	if err != nil {
		return nil, err
	}
	var out []fact.Group
	for _, inst := range instants {
		groups, err := store.FactsAt(ctx, session, inst)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, groups...)
	}
	return out, nil
}

// resolveSession picks the session to read: the named one, or the only one
// recorded.
func resolveSession(ctx context.Context, store sessionStore, name string) (string, error) {
	if name != "" {
		return sessionIRI(name), nil
	}
	sessions, err := store.Sessions(ctx)
	if err != nil {
		return "", fmt.Errorf("list sessions: %w", err)
	}
	switch len(sessions) {
	case 0:
		return "", fmt.Errorf("no recorded sessions")
	case 1:
		return sessions[0], nil
	}
	return "", fmt.Errorf("%d sessions recorded; choose one with --session", len(sessions))
}

// sessionIRI accepts a session name or a full session IRI.
func sessionIRI(name string) string {
	if strings.HasPrefix(name, vocab.EntityNamespace) {
		return name
	}
	return recorder.SessionIRI(name)
}
