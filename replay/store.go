// Package replay navigates a recorded session as a continuous timeline.
package replay

import (
	"context"

	"github.com/c360studio/semrec/fact"
	"github.com/c360studio/semrec/temporal"
)

// Store answers the fact-subset queries of a replay.
type Store interface {
	// Instants returns the recorded instants of a session in ascending order.
	Instants(ctx context.Context, session string) ([]temporal.Instant, error)

	// FactsAt returns the groups recorded at one instant of a session, in
	// emission order.
	FactsAt(ctx context.Context, session string, instant temporal.Instant) ([]fact.Group, error)
}
