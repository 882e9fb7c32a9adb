package scene

import (
	"sort"

	"github.com/c360studio/semstreams/vocabulary"
	"github.com/c360studio/semstreams/vocabulary/bfo"
	"github.com/c360studio/semstreams/vocabulary/cco"
)

// EntityType represents the kind of a recorded thing for mapping purposes.
type EntityType string

// Entity type constants.
const (
	EntityTypeSession        EntityType = "session"
	EntityTypeSnapshot       EntityType = "snapshot"
	EntityTypeEntity         EntityType = "entity"
	EntityTypeComponent      EntityType = "component"
	EntityTypeProperty       EntityType = "property"
	EntityTypeInstant        EntityType = "instant"
	EntityTypeInterval       EntityType = "interval"
	EntityTypeTemporalEntity EntityType = "temporal"
	EntityTypeEvent          EntityType = "event"
	EntityTypeCollision      EntityType = "collision"
	EntityTypeInput          EntityType = "input"
	EntityTypeUser           EntityType = "user"
)

// ClassMap maps entity types to scene/OWL-Time class IRIs.
var ClassMap = map[EntityType]string{
	EntityTypeSession:        ClassSession,
	EntityTypeSnapshot:       ClassSnapshot,
	EntityTypeEntity:         ClassEntity,
	EntityTypeComponent:      ClassComponent,
	EntityTypeProperty:       ClassProperty,
	EntityTypeInstant:        ClassInstant,
	EntityTypeInterval:       ClassInterval,
	EntityTypeTemporalEntity: ClassTemporalEntity,
	EntityTypeEvent:          ClassEvent,
	EntityTypeCollision:      ClassCollisionEvent,
	EntityTypeInput:          ClassInputEvent,
	EntityTypeUser:           ClassUser,
}

// BFOClassMap maps entity types to BFO class IRIs for the bfo export profile.
var BFOClassMap = map[EntityType]string{
	EntityTypeSnapshot:  bfo.GenericallyDependentContinuant,
	EntityTypeEntity:    bfo.IndependentContinuant,
	EntityTypeComponent: bfo.GenericallyDependentContinuant,
	EntityTypeProperty:  bfo.Quality,
	EntityTypeSession:   bfo.Process,
	EntityTypeEvent:     bfo.Process,
	EntityTypeCollision: bfo.Process,
	EntityTypeInput:     bfo.Process,
	EntityTypeUser:      bfo.IndependentContinuant,
}

// CCOClassMap maps entity types to CCO class IRIs for the cco export profile.
var CCOClassMap = map[EntityType]string{
	EntityTypeSnapshot:  cco.InformationContentEntity,
	EntityTypeSession:   cco.ActOfArtifactProcessing,
	EntityTypeEvent:     cco.Act,
	EntityTypeCollision: cco.Act,
	EntityTypeInput:     cco.ActOfCommunication,
	EntityTypeUser:      cco.Person,
}

// PROVClassMap maps entity types to PROV-O class IRIs.
var PROVClassMap = map[EntityType]string{
	EntityTypeSnapshot:  vocabulary.ProvEntity,
	EntityTypeSession:   vocabulary.ProvActivity,
	EntityTypeEvent:     vocabulary.ProvActivity,
	EntityTypeCollision: vocabulary.ProvActivity,
	EntityTypeInput:     vocabulary.ProvActivity,
	EntityTypeUser:      vocabulary.ProvPerson,
}

// TypeForClass returns the entity type asserted by a scene class IRI.
func TypeForClass(classIRI string) (EntityType, bool) {
	for t, iri := range ClassMap {
		if iri == classIRI {
			return t, true
		}
	}
	return "", false
}

// PredicateIRI returns the standard IRI registered for a dotted predicate,
// falling back to the scene namespace.
func PredicateIRI(predicate string) string {
	if meta := vocabulary.GetPredicateMetadata(predicate); meta != nil && meta.StandardIRI != "" {
		return meta.StandardIRI
	}
	return Namespace + predicate
}

// PredicateForIRI is the inverse of PredicateIRI. When several predicates
// share a standard IRI the lexically first one wins.
func PredicateForIRI(iri string) string {
	names := vocabulary.ListRegisteredPredicates()
	sort.Strings(names)
	for _, name := range names {
		if meta := vocabulary.GetPredicateMetadata(name); meta != nil && meta.StandardIRI == iri {
			return name
		}
	}
	if len(iri) > len(Namespace) && iri[:len(Namespace)] == Namespace {
		return iri[len(Namespace):]
	}
	return iri
}
