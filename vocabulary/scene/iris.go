package scene

// Namespace is the base IRI prefix for all scene ontology terms.
const Namespace = "https://semrec.dev/ontology/"

// EntityNamespace is the base IRI for recorded instances.
const EntityNamespace = "https://semrec.dev/entity/"

// TimeNamespace is the OWL-Time namespace.
const TimeNamespace = "http://www.w3.org/2006/time#"

// RDFType is the IRI of rdf:type.
const RDFType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

// Class IRIs for recorded things.
const (
	// ClassSession is one recording session.
	// Extends: time:Interval, prov:Activity
	ClassSession = Namespace + "Session"

	// ClassSnapshot is the description of the whole scene at one instant.
	ClassSnapshot = Namespace + "SceneContent"

	// ClassEntity is one entity (game object) of the scene graph.
	// Extends: bfo:IndependentContinuant
	ClassEntity = Namespace + "GameObject"

	// ClassComponent is a behavior component attached to an entity.
	ClassComponent = Namespace + "Component"

	// ClassProperty is one property of a component.
	// Extends: bfo:Quality
	ClassProperty = Namespace + "Property"

	// ClassEvent is a bounded occurrence.
	// Extends: bfo:Process, prov:Activity
	ClassEvent = Namespace + "Event"

	// ClassCollisionEvent is two entities being co-located.
	ClassCollisionEvent = Namespace + "CollisionEvent"

	// ClassInputEvent is a user input.
	ClassInputEvent = Namespace + "InputEvent"

	// ClassUser is a human participant.
	ClassUser = Namespace + "User"
)

// OWL-Time classes.
const (
	ClassInstant        = TimeNamespace + "Instant"
	ClassInterval       = TimeNamespace + "Interval"
	ClassTemporalEntity = TimeNamespace + "TemporalEntity"
)
