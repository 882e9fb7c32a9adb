package graph

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/c360studio/semrec/fact"
	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/message"
)

func init() {
	err := component.RegisterPayload(&component.PayloadRegistration{
		Domain:      "semrec",
		Category:    "facts",
		Version:     "v1",
		Description: "Ordered fact group recorded at one scene instant",
		Factory:     func() any { return &FactGroupPayload{} },
	})
	if err != nil {
		panic("failed to register FactGroupPayload: " + err.Error())
	}
}

// FactGroupType is the message type for recorded fact groups.
var FactGroupType = message.Type{Domain: "semrec", Category: "facts", Version: "v1"}

// FactGroupPayload implements message.Payload and graph.Graphable for one
// fact group. Triple order is the emission order.
type FactGroupPayload struct {
	EntityID_  string           `json:"id"`
	Session    string           `json:"session,omitempty"`
	Instant    string           `json:"instant,omitempty"`
	TripleData []message.Triple `json:"triples"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// NewFactGroupPayload wraps a group.
func NewFactGroupPayload(g fact.Group) *FactGroupPayload {
	return &FactGroupPayload{
		EntityID_:  g.Subject,
		Session:    g.Session,
		Instant:    g.Instant,
		TripleData: g.Triples,
		UpdatedAt:  g.At,
	}
}

// Group returns the fact group carried by the payload.
func (e *FactGroupPayload) Group() fact.Group {
	triples := make([]message.Triple, len(e.TripleData))
	for i, t := range e.TripleData {
		t.Object = fact.Object(t.Object)
		triples[i] = t
	}
	return fact.Group{
		Session: e.Session,
		Instant: e.Instant,
		At:      e.UpdatedAt,
		Subject: e.EntityID_,
		Triples: triples,
	}
}

func (e *FactGroupPayload) EntityID() string          { return e.EntityID_ }
func (e *FactGroupPayload) Triples() []message.Triple { return e.TripleData }
func (e *FactGroupPayload) Schema() message.Type      { return FactGroupType }

func (e *FactGroupPayload) Validate() error {
	if e.EntityID_ == "" {
		return errors.New("entity ID is required")
	}
	if len(e.TripleData) == 0 {
		return errors.New("at least one triple is required")
	}
	return nil
}

func (e *FactGroupPayload) MarshalJSON() ([]byte, error) {
	type Alias FactGroupPayload
	return json.Marshal((*Alias)(e))
}

func (e *FactGroupPayload) UnmarshalJSON(data []byte) error {
	type Alias FactGroupPayload
	return json.Unmarshal(data, (*Alias)(e))
}
