package scene

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/c360studio/semrec/fact"
	"github.com/c360studio/semrec/temporal"
	vocab "github.com/c360studio/semrec/vocabulary/scene"
	"github.com/c360studio/semstreams/message"
	"github.com/google/uuid"
)

// IRI prefixes of described things.
const (
	SnapshotPrefix  = string(vocab.EntityTypeSnapshot)
	EntityPrefix    = string(vocab.EntityTypeEntity)
	ComponentPrefix = string(vocab.EntityTypeComponent)
	PropertyPrefix  = string(vocab.EntityTypeProperty)
)

// IRI returns the snapshot subject.
func (s *SceneContent) IRI() string { return fact.Ref(SnapshotPrefix, s.ID) }

// IRI returns the entity subject.
func (g *GameObjectDescription) IRI() string { return fact.Ref(EntityPrefix, g.ID) }

// IRI returns the component subject.
func (c *ComponentDescription) IRI() string { return fact.Ref(ComponentPrefix, c.ID) }

// IRI returns the property subject.
func (p *PropertyDescription) IRI() string { return fact.Ref(PropertyPrefix, p.ID) }

// Groups renders the snapshot as fact groups: the snapshot group first, then
// one group per entity ordered by ID. Components follow ascending sort order
// with ties broken by ID; properties keep insertion order. The same content
// always renders to the same groups.
func (s *SceneContent) Groups() []fact.Group {
	objects := s.SortedGameObjects()
	groups := make([]fact.Group, 0, len(objects)+1)

	snap := s.group(s.IRI())
	snap.Add(vocab.Type, vocab.ClassSnapshot)
	snap.Add(vocab.SnapshotInstant, s.Instant.IRI())
	if s.Session != "" {
		snap.Add(vocab.SnapshotSession, s.Session)
	}
	s.Instant.Describe(&snap)
	for _, g := range objects {
		snap.Add(vocab.SnapshotEntity, g.IRI())
	}
	groups = append(groups, snap)

	for _, g := range objects {
		eg := s.group(g.IRI())
		eg.Add(vocab.Type, vocab.ClassEntity)
		eg.Add(vocab.EntityName, fact.String(g.Name))
		eg.Add(vocab.EntityActive, fact.Bool(g.Active))
		eg.Add(vocab.EntityLayer, fact.Int(g.Layer))
		eg.Add(vocab.EntityTag, fact.String(g.Tag))

		for _, c := range g.SortedComponents() {
			cIRI := c.IRI()
			eg.Add(vocab.EntityComponent, cIRI)
			eg.AddFor(cIRI, vocab.Type, vocab.ClassComponent)
			eg.AddFor(cIRI, vocab.ComponentType, fact.String(c.Type))
			eg.AddFor(cIRI, vocab.ComponentOrder, fact.Int(c.SortOrder))

			for _, p := range c.properties {
				pIRI := p.IRI()
				eg.AddFor(cIRI, vocab.ComponentProperty, pIRI)
				eg.AddFor(pIRI, vocab.Type, vocab.ClassProperty)
				eg.AddFor(pIRI, vocab.PropertyName, fact.String(p.Name))
				eg.AddFor(pIRI, vocab.PropertyType, fact.String(p.Type))
				eg.AddFor(pIRI, vocab.PropertyValue, fact.String(p.lexical))
			}
		}
		groups = append(groups, eg)
	}
	return groups
}

func (s *SceneContent) group(subject string) fact.Group {
	return fact.Group{
		Session: s.Session,
		Instant: s.Instant.IRI(),
		At:      s.Instant.Timestamp,
		Subject: subject,
	}
}

// Rebuild restores a snapshot from the groups Groups produced. Property
// values are rehydrated lazily through PropertyDescription.Value.
func Rebuild(groups []fact.Group) (*SceneContent, error) {
	subjects := make(map[string][]message.Triple)
	var snapshot string
	for _, g := range groups {
		for _, t := range g.Triples {
			t.Object = fact.Object(t.Object)
			subjects[t.Subject] = append(subjects[t.Subject], t)
			if t.Predicate == vocab.Type && t.Object == vocab.ClassSnapshot {
				snapshot = t.Subject
			}
		}
	}
	if snapshot == "" {
		return nil, ErrNoSnapshot
	}

	id, err := idOf(snapshot)
	if err != nil {
		return nil, err
	}
	content := &SceneContent{ID: id, GameObjects: make(map[uuid.UUID]*GameObjectDescription)}

	var entities []string
	for _, t := range subjects[snapshot] {
		switch t.Predicate {
		case vocab.SnapshotSession:
			content.Session, _ = t.Object.(string)
		case vocab.SnapshotInstant:
			iri, _ := t.Object.(string)
			instant, err := rebuildInstant(iri, subjects[iri])
			if err != nil {
				return nil, err
			}
			content.Instant = instant
		case vocab.SnapshotEntity:
			if iri, ok := t.Object.(string); ok {
				entities = append(entities, iri)
			}
		}
	}

	for _, iri := range entities {
		g, err := rebuildEntity(iri, subjects)
		if err != nil {
			return nil, err
		}
		content.GameObjects[g.ID] = g
	}
	return content, nil
}

func rebuildInstant(iri string, triples []message.Triple) (temporal.Instant, error) {
	for _, t := range triples {
		if t.Predicate != vocab.InstantTimestamp {
			continue
		}
		ts, err := time.Parse(time.RFC3339Nano, lexical(t.Object))
		if err != nil {
			return temporal.Instant{}, fmt.Errorf("rebuild instant %s: %w", iri, err)
		}
		return temporal.NewInstant(ts), nil
	}
	return temporal.Instant{}, fmt.Errorf("rebuild instant %s: no timestamp", iri)
}

func rebuildEntity(iri string, subjects map[string][]message.Triple) (*GameObjectDescription, error) {
	id, err := idOf(iri)
	if err != nil {
		return nil, err
	}
	g := &GameObjectDescription{ID: id, Components: make(map[uuid.UUID]*ComponentDescription)}
	for _, t := range subjects[iri] {
		switch t.Predicate {
		case vocab.EntityName:
			g.Name = lexical(t.Object)
		case vocab.EntityActive:
			g.Active, _ = strconv.ParseBool(lexical(t.Object))
		case vocab.EntityLayer:
			g.Layer, _ = strconv.Atoi(lexical(t.Object))
		case vocab.EntityTag:
			g.Tag = lexical(t.Object)
		case vocab.EntityComponent:
			cIRI, _ := t.Object.(string)
			c, err := rebuildComponent(cIRI, subjects)
			if err != nil {
				return nil, err
			}
			g.Components[c.ID] = c
		}
	}
	return g, nil
}

func rebuildComponent(iri string, subjects map[string][]message.Triple) (*ComponentDescription, error) {
	id, err := idOf(iri)
	if err != nil {
		return nil, err
	}
	c := NewComponentDescription(id, "", 0)
	for _, t := range subjects[iri] {
		switch t.Predicate {
		case vocab.ComponentType:
			c.Type = lexical(t.Object)
		case vocab.ComponentOrder:
			c.SortOrder, _ = strconv.Atoi(lexical(t.Object))
		case vocab.ComponentProperty:
			pIRI, _ := t.Object.(string)
			p, err := rebuildProperty(pIRI, subjects[pIRI])
			if err != nil {
				return nil, err
			}
			c.Add(p)
		}
	}
	return c, nil
}

func rebuildProperty(iri string, triples []message.Triple) (*PropertyDescription, error) {
	id, err := idOf(iri)
	if err != nil {
		return nil, err
	}
	p := &PropertyDescription{ID: id}
	for _, t := range triples {
		switch t.Predicate {
		case vocab.PropertyName:
			p.Name = lexical(t.Object)
		case vocab.PropertyType:
			p.Type = lexical(t.Object)
		case vocab.PropertyValue:
			p.lexical = lexical(t.Object)
			dec := json.NewDecoder(strings.NewReader(p.lexical))
			dec.UseNumber()
			if err := dec.Decode(&p.Values); err != nil {
				return nil, fmt.Errorf("rebuild property %s: %w", iri, err)
			}
		}
	}
	return p, nil
}

func lexical(v any) string {
	if l, ok := v.(fact.Literal); ok {
		return l.Lexical
	}
	s, _ := v.(string)
	return s
}

func idOf(iri string) (uuid.UUID, error) {
	i := strings.LastIndexByte(iri, '/')
	id, err := uuid.Parse(iri[i+1:])
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse id of %q: %w", iri, err)
	}
	return id, nil
}
