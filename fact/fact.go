// Package fact defines the fact groups emitted by the recorder and the sinks
// that receive them.
package fact

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/c360studio/semrec/vocabulary/scene"
	"github.com/c360studio/semstreams/message"
	"github.com/google/uuid"
)

// Source is the provenance tag written on every emitted triple.
const Source = "semrec.recorder"

// Datatype tags a literal object.
type Datatype string

const (
	Plain    Datatype = ""
	DateTime Datatype = "dateTime"
	Date     Datatype = "date"
	Duration Datatype = "duration"
	Integer  Datatype = "integer"
	Decimal  Datatype = "decimal"
	Boolean  Datatype = "boolean"
)

// XSD returns the full XML Schema IRI of the datatype, empty for plain literals.
func (d Datatype) XSD() string {
	if d == Plain {
		return ""
	}
	return "http://www.w3.org/2001/XMLSchema#" + string(d)
}

// Literal is a typed literal object. Any other triple object is a reference.
type Literal struct {
	Lexical  string   `json:"value"`
	Datatype Datatype `json:"datatype,omitempty"`
}

// String returns a plain literal.
func String(s string) Literal { return Literal{Lexical: s} }

// Int returns an xsd:integer literal.
func Int(i int) Literal { return Literal{Lexical: strconv.Itoa(i), Datatype: Integer} }

// Bool returns an xsd:boolean literal.
func Bool(b bool) Literal { return Literal{Lexical: strconv.FormatBool(b), Datatype: Boolean} }

// Time returns an xsd:dateTime literal in UTC with nanosecond precision.
func Time(t time.Time) Literal {
	return Literal{Lexical: t.UTC().Format(time.RFC3339Nano), Datatype: DateTime}
}

// Day returns an xsd:date literal.
func Day(t time.Time) Literal {
	return Literal{Lexical: t.UTC().Format(time.DateOnly), Datatype: Date}
}

// Ref returns the IRI that addresses a recorded thing.
// Format: <EntityNamespace><prefix>/<uuid>
func Ref(prefix string, id uuid.UUID) string {
	return scene.EntityNamespace + prefix + "/" + id.String()
}

// Triple builds a triple with the recorder's provenance.
func Triple(subject, predicate string, object any, at time.Time) message.Triple {
	return message.Triple{
		Subject:    subject,
		Predicate:  predicate,
		Object:     object,
		Source:     Source,
		Timestamp:  at,
		Confidence: 1.0,
	}
}

// Group is an ordered set of triples about one subject, emitted together.
// Triple order within a group is preserved by every sink.
type Group struct {
	Session string           `json:"session"`
	Instant string           `json:"instant"`
	At      time.Time        `json:"at"`
	Subject string           `json:"subject"`
	Triples []message.Triple `json:"triples"`
}

// Add appends a triple about the group's subject.
func (g *Group) Add(predicate string, object any) {
	g.Triples = append(g.Triples, Triple(g.Subject, predicate, object, g.At))
}

// AddFor appends a triple about another subject, kept with this group.
func (g *Group) AddFor(subject, predicate string, object any) {
	g.Triples = append(g.Triples, Triple(subject, predicate, object, g.At))
}

// Object restores a triple object that went through JSON: literal objects
// come back as maps and are turned into Literal again.
func Object(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	lexical, ok := m["value"].(string)
	if !ok {
		return v
	}
	datatype, _ := m["datatype"].(string)
	return Literal{Lexical: lexical, Datatype: Datatype(datatype)}
}

// IsRef reports whether a triple object is a reference rather than a literal.
func IsRef(v any) bool {
	_, ok := v.(string)
	return ok
}

// UnmarshalGroup decodes a group stored as JSON and restores its literal
// objects.
func UnmarshalGroup(data []byte) (Group, error) {
	var g Group
	if err := json.Unmarshal(data, &g); err != nil {
		return Group{}, fmt.Errorf("unmarshal fact group: %w", err)
	}
	for i := range g.Triples {
		g.Triples[i].Object = Object(g.Triples[i].Object)
	}
	return g, nil
}
