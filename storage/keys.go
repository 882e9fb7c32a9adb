// Package storage persists recorded fact groups so a session can be replayed.
package storage

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// sessionNamespace seeds the key of session IRIs, which are not valid KV keys.
var sessionNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://semrec.dev/session"))

// SessionKey returns the key segment of a session IRI.
func SessionKey(session string) string {
	return uuid.NewSHA1(sessionNamespace, []byte(session)).String()
}

// InstantKey addresses one recorded instant of a session.
// Format: <session-key>.<instant-uuid>
func InstantKey(session string, instant uuid.UUID) string {
	return fmt.Sprintf("%s.%s", SessionKey(session), instant)
}

// GroupKey addresses one fact group of an instant. seq orders the groups of
// the instant lexically.
// Format: <session-key>.<instant-uuid>.<seq>
func GroupKey(session string, instant uuid.UUID, seq uint64) string {
	return fmt.Sprintf("%s.%020d", InstantKey(session, instant), seq)
}

// ParseGroupKey splits a group key into its parts.
func ParseGroupKey(key string) (sessionKey string, instant uuid.UUID, seq uint64, err error) {
	parts := strings.Split(key, ".")
	if len(parts) != 3 {
		return "", uuid.Nil, 0, fmt.Errorf("invalid group key format: %s", key)
	}
	instant, err = uuid.Parse(parts[1])
	if err != nil {
		return "", uuid.Nil, 0, fmt.Errorf("invalid group key instant: %w", err)
	}
	if _, err := fmt.Sscanf(parts[2], "%d", &seq); err != nil {
		return "", uuid.Nil, 0, fmt.Errorf("invalid group key sequence: %w", err)
	}
	return parts[0], instant, seq, nil
}

// InstantID returns the UUID at the end of an instant IRI.
func InstantID(iri string) (uuid.UUID, error) {
	i := strings.LastIndexByte(iri, '/')
	id, err := uuid.Parse(iri[i+1:])
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid instant IRI %q: %w", iri, err)
	}
	return id, nil
}
