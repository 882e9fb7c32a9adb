package graph

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/c360studio/semrec/fact"
	"github.com/c360studio/semstreams/natsclient"
	"github.com/nats-io/nats.go/jetstream"
)

// DefaultURL is used when no valid endpoint is configured.
const DefaultURL = "nats://localhost:4222"

// StreamName is the JetStream stream capturing published fact groups.
const StreamName = "SEMREC_FACTS"

// ResolveURL returns endpoint when it is a usable NATS URL and DefaultURL
// otherwise. Credentials, if any, travel in the URL user info and are never
// logged.
func ResolveURL(endpoint string, logger *slog.Logger) string {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return DefaultURL
	}
	for _, candidate := range strings.Split(endpoint, ",") {
		u, err := url.Parse(strings.TrimSpace(candidate))
		if err != nil || u.Host == "" || (u.Scheme != "nats" && u.Scheme != "tls" && u.Scheme != "ws" && u.Scheme != "wss") {
			logger.Warn("Invalid NATS endpoint, using default", "endpoint", Redact(candidate), "default", DefaultURL)
			return DefaultURL
		}
	}
	return endpoint
}

// Redact strips user info from a URL list for logging.
func Redact(endpoint string) string {
	parts := strings.Split(endpoint, ",")
	for i, p := range parts {
		u, err := url.Parse(strings.TrimSpace(p))
		if err != nil {
			parts[i] = "<invalid>"
			continue
		}
		if u.User != nil {
			u.User = url.User("redacted")
		}
		parts[i] = u.String()
	}
	return strings.Join(parts, ",")
}

// Connect dials NATS and waits for the connection.
func Connect(ctx context.Context, endpoint, name string, logger *slog.Logger) (*natsclient.Client, error) {
	natsURLs := ResolveURL(endpoint, logger)
	logger.Info("Connecting to NATS", "url", Redact(natsURLs))

	client, err := natsclient.NewClient(natsURLs,
		natsclient.WithName(name),
		natsclient.WithMaxReconnects(-1),
		natsclient.WithReconnectWait(time.Second),
		natsclient.WithCircuitBreakerThreshold(20),
		natsclient.WithHealthInterval(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}

	if err := dial(ctx, client, logger); err != nil {
		return nil, wrapNATSError(err, natsURLs)
	}

	logger.Info("Connected to NATS", "url", Redact(natsURLs))
	return client, nil
}

// conn is the part of natsclient.Client that dial drives.
type conn interface {
	Connect(ctx context.Context) error
	WaitForConnection(ctx context.Context) error
	Close(ctx context.Context) error
}

// dial connects c and waits up to ten seconds for the connection. A client
// that fails either step is closed.
func dial(ctx context.Context, c conn, logger *slog.Logger) error {
	err := c.Connect(ctx)
	if err == nil {
		connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = c.WaitForConnection(connCtx)
		cancel()
	}
	if err == nil {
		return nil
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if cerr := c.Close(closeCtx); cerr != nil {
		logger.Debug("Close failed NATS client", "error", cerr)
	}
	return err
}

// EnsureStream creates or updates the fact stream for the given subject prefix.
func EnsureStream(ctx context.Context, js jetstream.JetStream, prefix string, maxAge time.Duration) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Description: "Recorded scene fact groups",
		Subjects:    []string{prefix + ".>"},
		Storage:     jetstream.FileStorage,
		MaxAge:      maxAge,
	})
	if err != nil {
		return fmt.Errorf("ensure stream %s: %w", StreamName, err)
	}
	return nil
}

// wrapNATSError provides helpful guidance when NATS connection fails.
func wrapNATSError(err error, natsURL string) error {
	errStr := err.Error()

	// Check for common connection errors
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no servers available") ||
		strings.Contains(errStr, "timeout") {
		return &fact.TransportError{Op: "connect", Err: fmt.Errorf(`NATS connection failed: %w

NATS is not running at %s.

To start NATS:
  docker compose up -d nats

Or set SEMREC_NATS_URL to point to your NATS server.`, err, Redact(natsURL))}
	}

	return &fact.TransportError{Op: "connect", Err: fmt.Errorf("NATS connection failed: %w", err)}
}
