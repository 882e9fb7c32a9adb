// Package scene provides domain vocabulary predicates for recorded scenes.
//
// The vocabulary covers three families of facts:
//   - Description tree: entities, their components and component properties
//     (scene.entity.*, scene.component.*, scene.property.*)
//   - Time: instants, temporal entities and intervals, aligned with OWL-Time
//     (time.instant.*, time.entity.*, time.interval.*)
//   - Events: bounded occurrences such as collisions and user input
//     (event.*)
//
// # Semstreams Integration
//
// Predicates use three-level dotted notation and are registered in init()
// with vocabulary.Register. Every predicate carries an IRI mapping so the
// export package can translate to standard vocabularies at the boundary:
//
//	meta := vocabulary.GetPredicateMetadata(scene.EntityComponent)
//	meta.StandardIRI // https://semrec.dev/ontology/hasComponent
//
// # Usage
//
//	triples := []message.Triple{
//	    {Subject: entityIRI, Predicate: scene.Type, Object: scene.ClassEntity},
//	    {Subject: entityIRI, Predicate: scene.EntityName, Object: fact.String("Player")},
//	}
package scene
