package scene

import "github.com/c360studio/semstreams/vocabulary"

// Type is the rdf:type predicate in dotted notation.
const Type = "rdf.syntax.type"

// Snapshot predicates link a scene snapshot to its instant and contents.
const (
	// SnapshotInstant links a snapshot to the instant it describes.
	SnapshotInstant = "scene.snapshot.instant"

	// SnapshotSession links a snapshot to its recording session.
	SnapshotSession = "scene.snapshot.session"

	// SnapshotEntity links a snapshot to an entity it contains.
	SnapshotEntity = "scene.snapshot.entity"
)

// Entity predicates describe one entity of the scene graph.
const (
	EntityName   = "scene.entity.name"
	EntityActive = "scene.entity.active"
	EntityLayer  = "scene.entity.layer"
	EntityTag    = "scene.entity.tag"

	// EntityComponent links an entity to an attached component.
	EntityComponent = "scene.entity.component"
)

// Component predicates.
const (
	// ComponentType is the registered component type name.
	ComponentType = "scene.component.type"

	// ComponentOrder is the externally assigned emission priority.
	ComponentOrder = "scene.component.order"

	// ComponentProperty links a component to one of its properties.
	ComponentProperty = "scene.component.property"
)

// Property predicates.
const (
	PropertyName = "scene.property.name"

	// PropertyType is the codec tag used to rehydrate the value.
	PropertyType = "scene.property.type"

	// PropertyValue is the canonical JSON of the property's field map.
	PropertyValue = "scene.property.value"
)

// Time predicates, aligned with OWL-Time.
const (
	InstantTimestamp = "time.instant.timestamp"
	EntityBeginning  = "time.entity.beginning"
	EntityEnd        = "time.entity.end"
	EntityBefore     = "time.entity.before"
	EntityAfter      = "time.entity.after"
	EntityDuration   = "time.entity.duration"
	IntervalInside   = "time.interval.inside"
	InstantInSession = "time.instant.session"
	SessionStartedAt = "time.session.started"
	SessionInstants  = "time.session.instants"
)

// Event predicates.
const (
	// EventExtent links an event to its bounding interval.
	EventExtent = "event.extent.interval"

	// UserPerforms links a user to an event they triggered.
	UserPerforms = "event.agent.performs"

	CollisionSender   = "event.collision.sender"
	CollisionReceiver = "event.collision.receiver"
	InputPayload      = "event.input.payload"
	UserName          = "event.agent.name"
)

func registerScenePredicates() {
	vocabulary.Register(Type,
		vocabulary.WithDescription("Type assertion"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(RDFType))

	vocabulary.Register(SnapshotInstant,
		vocabulary.WithDescription("Instant described by the snapshot"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(Namespace+"atInstant"))

	vocabulary.Register(SnapshotSession,
		vocabulary.WithDescription("Recording session of the snapshot"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(Namespace+"inSession"))

	vocabulary.Register(SnapshotEntity,
		vocabulary.WithDescription("Entity contained in the snapshot"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(Namespace+"containsEntity"))

	vocabulary.Register(EntityName,
		vocabulary.WithDescription("Entity name"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"name"))

	vocabulary.Register(EntityActive,
		vocabulary.WithDescription("Whether the entity is active"),
		vocabulary.WithDataType("bool"),
		vocabulary.WithIRI(Namespace+"active"))

	vocabulary.Register(EntityLayer,
		vocabulary.WithDescription("Render/physics layer"),
		vocabulary.WithDataType("int"),
		vocabulary.WithIRI(Namespace+"layer"))

	vocabulary.Register(EntityTag,
		vocabulary.WithDescription("Entity tag"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"tag"))

	vocabulary.Register(EntityComponent,
		vocabulary.WithDescription("Attached component"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(Namespace+"hasComponent"))

	vocabulary.Register(ComponentType,
		vocabulary.WithDescription("Component type name"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"componentType"))

	vocabulary.Register(ComponentOrder,
		vocabulary.WithDescription("Emission priority"),
		vocabulary.WithDataType("int"),
		vocabulary.WithIRI(Namespace+"sortOrder"))

	vocabulary.Register(ComponentProperty,
		vocabulary.WithDescription("Component property"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(Namespace+"hasProperty"))

	vocabulary.Register(PropertyName,
		vocabulary.WithDescription("Property name"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"propertyName"))

	vocabulary.Register(PropertyType,
		vocabulary.WithDescription("Codec tag of the property value"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"valueType"))

	vocabulary.Register(PropertyValue,
		vocabulary.WithDescription("Property field map as canonical JSON"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"hasValue"))
}

func registerTimePredicates() {
	vocabulary.Register(InstantTimestamp,
		vocabulary.WithDescription("Quantized timestamp of the instant"),
		vocabulary.WithDataType("datetime"),
		vocabulary.WithIRI(TimeNamespace+"inXSDDateTimeStamp"))

	vocabulary.Register(EntityBeginning,
		vocabulary.WithDescription("Beginning instant"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(TimeNamespace+"hasBeginning"))

	vocabulary.Register(EntityEnd,
		vocabulary.WithDescription("End instant"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(TimeNamespace+"hasEnd"))

	vocabulary.Register(EntityBefore,
		vocabulary.WithDescription("Temporal entity that follows"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(TimeNamespace+"before"))

	vocabulary.Register(EntityAfter,
		vocabulary.WithDescription("Temporal entity that precedes"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(TimeNamespace+"after"))

	vocabulary.Register(EntityDuration,
		vocabulary.WithDescription("Calendar duration between beginning and end"),
		vocabulary.WithDataType("duration"),
		vocabulary.WithIRI(TimeNamespace+"hasXSDDuration"))

	vocabulary.Register(IntervalInside,
		vocabulary.WithDescription("Instant inside the interval"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(TimeNamespace+"inside"))

	vocabulary.Register(InstantInSession,
		vocabulary.WithDescription("Session the instant was recorded in"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(Namespace+"recordedIn"))

	vocabulary.Register(SessionStartedAt,
		vocabulary.WithDescription("Session start date"),
		vocabulary.WithDataType("date"),
		vocabulary.WithIRI(Namespace+"startedOn"))

	vocabulary.Register(SessionInstants,
		vocabulary.WithDescription("Number of instants recorded in the session"),
		vocabulary.WithDataType("int"),
		vocabulary.WithIRI(Namespace+"instantCount"))
}

func registerEventPredicates() {
	vocabulary.Register(EventExtent,
		vocabulary.WithDescription("Interval bounding the event"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(Namespace+"hasTemporalExtent"))

	vocabulary.Register(UserPerforms,
		vocabulary.WithDescription("Event triggered by the user"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(Namespace+"performs"))

	vocabulary.Register(CollisionSender,
		vocabulary.WithDescription("Entity that initiated the collision"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(Namespace+"sender"))

	vocabulary.Register(CollisionReceiver,
		vocabulary.WithDescription("Entity that received the collision"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(Namespace+"receiver"))

	vocabulary.Register(InputPayload,
		vocabulary.WithDescription("Raw input payload"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"input"))

	vocabulary.Register(UserName,
		vocabulary.WithDescription("User display name"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"userName"))
}

func init() {
	registerScenePredicates()
	registerTimePredicates()
	registerEventPredicates()
}
