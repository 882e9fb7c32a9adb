package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/c360studio/semrec/fact"
	"github.com/c360studio/semrec/temporal"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
)

// Bucket names.
const (
	BucketInstants = "SEMREC_INSTANTS"
	BucketFacts    = "SEMREC_FACTS"
)

// instantRecord is the value stored per recorded instant.
type instantRecord struct {
	Session   string    `json:"session"`
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// KVStore keeps recorded fact groups in NATS KV buckets. It is both the
// sink of a recording and the query side of a replay.
type KVStore struct {
	instants jetstream.KeyValue
	facts    jetstream.KeyValue
	seq      atomic.Uint64
}

// NewKVStore creates a KVStore with the given JetStream context.
// It creates the necessary KV buckets if they don't exist.
func NewKVStore(ctx context.Context, js jetstream.JetStream) (*KVStore, error) {
	instants, err := getOrCreateBucket(ctx, js, BucketInstants)
	if err != nil {
		return nil, fmt.Errorf("create instants bucket: %w", err)
	}

	facts, err := getOrCreateBucket(ctx, js, BucketFacts)
	if err != nil {
		return nil, fmt.Errorf("create facts bucket: %w", err)
	}

	s := &KVStore{instants: instants, facts: facts}
	// Sequence numbers must keep growing across process restarts.
	s.seq.Store(uint64(time.Now().UnixNano()))
	return s, nil
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	// Bucket doesn't exist, create it
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: fmt.Sprintf("Semrec %s storage", strings.ToLower(name)),
		History:     1,
	})
}

// Append stores one fact group and records its instant.
func (s *KVStore) Append(ctx context.Context, g fact.Group) error {
	instant := uuid.Nil
	if g.Instant != "" {
		id, err := InstantID(g.Instant)
		if err != nil {
			return err
		}
		instant = id
		if err := s.recordInstant(ctx, g.Session, id, g.At); err != nil {
			return err
		}
	}

	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshal fact group: %w", err)
	}
	key := GroupKey(g.Session, instant, s.seq.Add(1))
	if _, err := s.facts.Put(ctx, key, data); err != nil {
		return &fact.TransportError{Op: "store fact group", Err: err}
	}
	return nil
}

func (s *KVStore) recordInstant(ctx context.Context, session string, id uuid.UUID, at time.Time) error {
	data, err := json.Marshal(instantRecord{Session: session, ID: id, Timestamp: at.UTC()})
	if err != nil {
		return fmt.Errorf("marshal instant: %w", err)
	}
	_, err = s.instants.Create(ctx, InstantKey(session, id), data)
	if err != nil && !errors.Is(err, jetstream.ErrKeyExists) {
		return &fact.TransportError{Op: "store instant", Err: err}
	}
	return nil
}

// Instants returns the recorded instants of a session in ascending order.
func (s *KVStore) Instants(ctx context.Context, session string) ([]temporal.Instant, error) {
	records, err := s.instantRecords(ctx, SessionKey(session)+".")
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	out := make([]temporal.Instant, len(records))
	for i, r := range records {
		out[i] = temporal.Instant{ID: r.ID, Timestamp: r.Timestamp}
	}
	return out, nil
}

// Sessions returns the IRIs of every recorded session.
func (s *KVStore) Sessions(ctx context.Context) ([]string, error) {
	records, err := s.instantRecords(ctx, "")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []string
	for _, r := range records {
		if !seen[r.Session] {
			seen[r.Session] = true
			out = append(out, r.Session)
		}
	}
	return out, nil
}

func (s *KVStore) instantRecords(ctx context.Context, prefix string) ([]instantRecord, error) {
	keys, err := s.instants.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, &fact.TransportError{Op: "list instant keys", Err: err}
	}

	var records []instantRecord
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		entry, err := s.instants.Get(ctx, key)
		if err != nil {
			continue // Skip entries that fail to load
		}
		var r instantRecord
		if err := json.Unmarshal(entry.Value(), &r); err != nil {
			continue
		}
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Timestamp.Before(records[j].Timestamp) })
	return records, nil
}

// FactsAt returns the groups recorded at an instant, in append order.
func (s *KVStore) FactsAt(ctx context.Context, session string, instant temporal.Instant) ([]fact.Group, error) {
	keys, err := s.facts.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, ErrNotFound
		}
		return nil, &fact.TransportError{Op: "list fact keys", Err: err}
	}

	prefix := InstantKey(session, instant.ID) + "."
	var matched []string
	for _, key := range keys {
		if strings.HasPrefix(key, prefix) {
			matched = append(matched, key)
		}
	}
	if len(matched) == 0 {
		return nil, ErrNotFound
	}
	sort.Strings(matched)

	groups := make([]fact.Group, 0, len(matched))
	for _, key := range matched {
		entry, err := s.facts.Get(ctx, key)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, &fact.TransportError{Op: "get fact group", Err: err}
		}
		g, err := fact.UnmarshalGroup(entry.Value())
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// isNotFound checks if an error indicates a key was not found.
func isNotFound(err error) bool {
	return err != nil && (errors.Is(err, jetstream.ErrKeyNotFound) || strings.Contains(err.Error(), "key not found"))
}
