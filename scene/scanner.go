package scene

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/c360studio/semrec/codec"
	"github.com/c360studio/semrec/temporal"
	"github.com/google/uuid"
)

// ErrInvalidPattern is returned for a malformed include or exclude glob.
var ErrInvalidPattern = errors.New("invalid entity pattern")

// Scanner walks a host once per tick and describes what it finds.
type Scanner struct {
	registry *codec.Registry
	include  []string
	exclude  []string
	session  string
	logger   *slog.Logger
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithInclude limits scanning to entities whose name matches one of patterns.
func WithInclude(patterns ...string) ScannerOption {
	return func(s *Scanner) {
		s.include = append(s.include, patterns...)
	}
}

// WithExclude skips entities whose name matches one of patterns.
func WithExclude(patterns ...string) ScannerOption {
	return func(s *Scanner) {
		s.exclude = append(s.exclude, patterns...)
	}
}

// WithSession tags snapshots with the session IRI.
func WithSession(iri string) ScannerOption {
	return func(s *Scanner) {
		s.session = iri
	}
}

// WithLogger sets the scanner logger.
func WithLogger(logger *slog.Logger) ScannerOption {
	return func(s *Scanner) {
		s.logger = logger
	}
}

// NewScanner creates a scanner describing values through registry.
func NewScanner(registry *codec.Registry, opts ...ScannerOption) (*Scanner, error) {
	s := &Scanner{registry: registry, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	for _, p := range append(append([]string(nil), s.include...), s.exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, p)
		}
	}
	return s, nil
}

// Matches reports whether an entity name passes the include and exclude filters.
func (s *Scanner) Matches(name string) bool {
	if len(s.include) > 0 && !matchAny(s.include, name) {
		return false
	}
	return !matchAny(s.exclude, name)
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

// Scan describes every matching entity at instant. A component that cannot be
// described is left out and reported; the returned content is always usable
// and the error, if any, joins every DescribeError.
func (s *Scanner) Scan(host Host, instant temporal.Instant) (*SceneContent, error) {
	content := &SceneContent{
		ID:          uuid.NewSHA1(instant.ID, []byte(s.session)),
		Session:     s.session,
		Instant:     instant,
		GameObjects: make(map[uuid.UUID]*GameObjectDescription),
	}

	var errs []error
	for _, e := range host.Entities() {
		if !s.Matches(e.Name()) {
			continue
		}
		g := &GameObjectDescription{
			ID:         e.ID(),
			Name:       e.Name(),
			Active:     e.Active(),
			Layer:      e.Layer(),
			Tag:        e.Tag(),
			Components: make(map[uuid.UUID]*ComponentDescription),
		}
		for _, c := range e.Components() {
			desc, err := s.describe(g.ID, c)
			if err != nil {
				s.logger.Warn("Skipping component",
					"entity", g.Name,
					"component", c.Type(),
					"error", err)
				errs = append(errs, err)
				continue
			}
			g.Components[desc.ID] = desc
		}
		content.GameObjects[g.ID] = g
	}
	return content, errors.Join(errs...)
}

func (s *Scanner) describe(entity uuid.UUID, c Component) (*ComponentDescription, error) {
	order := 0
	if o, ok := c.(Ordered); ok {
		order = o.SortOrder()
	}
	desc := NewComponentDescription(c.ID(), c.Type(), order)
	for _, p := range c.Properties() {
		pd, err := NewPropertyDescription(c.ID(), p.Name, p.Value, s.registry)
		if err != nil {
			return nil, &DescribeError{Entity: entity, Component: c.ID(), Property: p.Name, Err: err}
		}
		desc.Add(pd)
	}
	return desc, nil
}
