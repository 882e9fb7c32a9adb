package scene_test

import (
	"testing"

	"github.com/c360studio/semrec/vocabulary/scene"
	"github.com/c360studio/semstreams/vocabulary"
	"github.com/c360studio/semstreams/vocabulary/bfo"
)

func TestPredicatesRegistered(t *testing.T) {
	predicates := []string{
		scene.Type,
		scene.SnapshotInstant,
		scene.SnapshotEntity,
		scene.EntityName,
		scene.EntityComponent,
		scene.ComponentProperty,
		scene.PropertyValue,
		scene.InstantTimestamp,
		scene.EntityBeginning,
		scene.EntityEnd,
		scene.EntityDuration,
		scene.IntervalInside,
		scene.EventExtent,
		scene.UserPerforms,
		scene.CollisionSender,
		scene.InputPayload,
	}

	for _, predicate := range predicates {
		t.Run(predicate, func(t *testing.T) {
			meta := vocabulary.GetPredicateMetadata(predicate)
			if meta == nil {
				t.Fatalf("predicate %q not registered", predicate)
			}
			if meta.Description == "" {
				t.Errorf("predicate %q has no description", predicate)
			}
			if meta.StandardIRI == "" {
				t.Errorf("predicate %q has no IRI", predicate)
			}
		})
	}
}

func TestTimePredicatesUseOWLTime(t *testing.T) {
	tests := []struct {
		predicate string
		want      string
	}{
		{scene.EntityBeginning, scene.TimeNamespace + "hasBeginning"},
		{scene.EntityEnd, scene.TimeNamespace + "hasEnd"},
		{scene.EntityBefore, scene.TimeNamespace + "before"},
		{scene.EntityAfter, scene.TimeNamespace + "after"},
		{scene.IntervalInside, scene.TimeNamespace + "inside"},
		{scene.EntityDuration, scene.TimeNamespace + "hasXSDDuration"},
	}

	for _, tc := range tests {
		t.Run(tc.predicate, func(t *testing.T) {
			if got := scene.PredicateIRI(tc.predicate); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
			if back := scene.PredicateForIRI(tc.want); back != tc.predicate {
				t.Errorf("PredicateForIRI(%q) = %q, want %q", tc.want, back, tc.predicate)
			}
		})
	}
}

func TestPredicateIRIFallback(t *testing.T) {
	got := scene.PredicateIRI("scene.unknown.thing")
	if got != scene.Namespace+"scene.unknown.thing" {
		t.Errorf("unexpected fallback IRI %q", got)
	}
	if back := scene.PredicateForIRI(got); back != "scene.unknown.thing" {
		t.Errorf("round trip = %q", back)
	}
}

func TestTypeForClass(t *testing.T) {
	got, ok := scene.TypeForClass(scene.ClassCollisionEvent)
	if !ok || got != scene.EntityTypeCollision {
		t.Errorf("TypeForClass = %q, %v", got, ok)
	}
	if _, ok := scene.TypeForClass("urn:nothing"); ok {
		t.Error("expected unknown class")
	}
	if scene.BFOClassMap[scene.EntityTypeProperty] != bfo.Quality {
		t.Error("properties should map to bfo:Quality")
	}
}
