package export

import (
	vocab "github.com/c360studio/semrec/vocabulary/scene"
)

// Profile determines which ontology type assertions are included in the export.
type Profile string

const (
	// ProfileMinimal includes the scene/OWL-Time classes plus PROV-O types.
	ProfileMinimal Profile = "minimal"

	// ProfileBFO includes BFO type assertions plus minimal profile.
	ProfileBFO Profile = "bfo"

	// ProfileCCO includes CCO type assertions plus BFO profile.
	ProfileCCO Profile = "cco"
)

// ProfileConfig contains configuration for an export profile.
type ProfileConfig struct {
	// Name is the profile identifier.
	Name Profile

	// Description describes the profile.
	Description string

	// IncludeBFO indicates whether to include BFO type assertions.
	IncludeBFO bool

	// IncludeCCO indicates whether to include CCO type assertions.
	IncludeCCO bool

	// IncludePROV indicates whether to include PROV-O type assertions.
	IncludePROV bool
}

// Profiles contains the configuration for all available export profiles.
var Profiles = map[Profile]ProfileConfig{
	ProfileMinimal: {
		Name:        ProfileMinimal,
		Description: "Scene, OWL-Time and PROV-O classes",
		IncludePROV: true,
	},
	ProfileBFO: {
		Name:        ProfileBFO,
		Description: "BFO type assertions plus minimal profile",
		IncludeBFO:  true,
		IncludePROV: true,
	},
	ProfileCCO: {
		Name:        ProfileCCO,
		Description: "Full CCO/BFO/PROV-O alignment",
		IncludeBFO:  true,
		IncludeCCO:  true,
		IncludePROV: true,
	},
}

// GetProfileConfig returns the configuration for a profile. Unknown profiles
// fall back to minimal.
func GetProfileConfig(profile Profile) ProfileConfig {
	if config, ok := Profiles[profile]; ok {
		return config
	}
	return Profiles[ProfileMinimal]
}

// TypeAsserter derives the additional type assertions a profile adds to a
// recorded class.
type TypeAsserter struct {
	profile ProfileConfig
}

// NewTypeAsserter creates a new type asserter for the given profile.
func NewTypeAsserter(profile Profile) *TypeAsserter {
	return &TypeAsserter{profile: GetProfileConfig(profile)}
}

// Profile returns the resolved profile configuration.
func (t *TypeAsserter) Profile() ProfileConfig {
	return t.profile
}

// GetTypeIRIs returns the aligned type IRIs for an entity type, in
// PROV, BFO, CCO order.
func (t *TypeAsserter) GetTypeIRIs(entityType vocab.EntityType) []string {
	types := make([]string, 0, 3)

	if t.profile.IncludePROV {
		if provClass, ok := vocab.PROVClassMap[entityType]; ok {
			types = append(types, provClass)
		}
	}
	if t.profile.IncludeBFO {
		if bfoClass, ok := vocab.BFOClassMap[entityType]; ok {
			types = append(types, bfoClass)
		}
	}
	if t.profile.IncludeCCO {
		if ccoClass, ok := vocab.CCOClassMap[entityType]; ok {
			types = append(types, ccoClass)
		}
	}

	return types
}

// AlignedTypes returns the extra types for a recorded class IRI. Classes
// outside the scene vocabulary get none.
func (t *TypeAsserter) AlignedTypes(classIRI string) []string {
	entityType, ok := vocab.TypeForClass(classIRI)
	if !ok {
		return nil
	}
	return t.GetTypeIRIs(entityType)
}
