// Package export serializes recorded fact groups to RDF with BFO/CCO/PROV-O
// alignment.
package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/c360studio/semrec/fact"
	vocab "github.com/c360studio/semrec/vocabulary/scene"
)

// Triple is a statement with IRI subject and predicate. Object is either an
// IRI string or a fact.Literal.
type Triple struct {
	Subject   string
	Predicate string
	Object    any
}

type node struct {
	iri     string
	types   []string
	triples []Triple
}

// Exporter collects fact groups and serializes them. Subjects keep the order
// in which they were first seen; duplicate statements are written once.
type Exporter struct {
	asserter *TypeAsserter
	prefixes map[string]string
	nodes    []*node
	index    map[string]*node
	seen     map[string]struct{}
}

// NewExporter creates an exporter with the specified profile.
func NewExporter(profile Profile) *Exporter {
	return &Exporter{
		asserter: NewTypeAsserter(profile),
		prefixes: defaultPrefixes(),
		index:    make(map[string]*node),
		seen:     make(map[string]struct{}),
	}
}

func defaultPrefixes() map[string]string {
	return map[string]string{
		"rdf":    "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
		"rdfs":   "http://www.w3.org/2000/01/rdf-schema#",
		"owl":    "http://www.w3.org/2002/07/owl#",
		"xsd":    "http://www.w3.org/2001/XMLSchema#",
		"time":   vocab.TimeNamespace,
		"prov":   "http://www.w3.org/ns/prov#",
		"bfo":    "http://purl.obolibrary.org/obo/",
		"cco":    "http://www.ontologyrepository.com/CommonCoreOntologies/",
		"scene":  vocab.Namespace,
		"entity": vocab.EntityNamespace,
	}
}

// Add appends the triples of each group.
func (e *Exporter) Add(groups ...fact.Group) {
	for _, g := range groups {
		for _, t := range g.Triples {
			e.add(t.Subject, t.Predicate, fact.Object(t.Object))
		}
	}
}

func (e *Exporter) add(subject, predicate string, object any) {
	n := e.node(subject)

	if predicate == vocab.Type {
		class, ok := object.(string)
		if !ok {
			return
		}
		e.addType(n, class)
		for _, aligned := range e.asserter.AlignedTypes(class) {
			e.addType(n, aligned)
		}
		return
	}

	t := Triple{Subject: subject, Predicate: vocab.PredicateIRI(predicate), Object: object}
	key := t.Subject + " " + t.Predicate + " " + formatObjectNTriples(t.Object)
	if _, dup := e.seen[key]; dup {
		return
	}
	e.seen[key] = struct{}{}
	n.triples = append(n.triples, t)
}

func (e *Exporter) addType(n *node, class string) {
	for _, existing := range n.types {
		if existing == class {
			return
		}
	}
	n.types = append(n.types, class)
}

func (e *Exporter) node(subject string) *node {
	if n, ok := e.index[subject]; ok {
		return n
	}
	n := &node{iri: subject}
	e.index[subject] = n
	e.nodes = append(e.nodes, n)
	return n
}

// Len returns the number of distinct subjects.
func (e *Exporter) Len() int {
	return len(e.nodes)
}

// Triples returns every statement, type assertions included, in output order.
func (e *Exporter) Triples() []Triple {
	var out []Triple
	for _, n := range e.nodes {
		for _, class := range n.types {
			out = append(out, Triple{Subject: n.iri, Predicate: vocab.RDFType, Object: class})
		}
		out = append(out, n.triples...)
	}
	return out
}

// Export serializes all collected statements to the specified format.
func (e *Exporter) Export(format Format) (string, error) {
	var sb strings.Builder
	if err := e.Write(&sb, format); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Write serializes all collected statements to w.
func (e *Exporter) Write(w io.Writer, format Format) error {
	bw := bufio.NewWriter(w)
	switch format {
	case FormatTurtle:
		e.writeTurtle(bw)
	case FormatNTriples:
		e.writeNTriples(bw)
	case FormatJSONLD:
		if err := e.writeJSONLD(bw); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
	return bw.Flush()
}

// writeTurtle writes one block per subject, rdf:type first. Write errors
// stick in bw and surface on Flush.
func (e *Exporter) writeTurtle(bw *bufio.Writer) {
	for _, prefix := range sortedKeys(e.prefixes) {
		fmt.Fprintf(bw, "@prefix %s: <%s> .\n", prefix, e.prefixes[prefix])
	}
	bw.WriteString("\n")

	for _, n := range e.nodes {
		total := len(n.types) + len(n.triples)
		if total == 0 {
			continue
		}
		fmt.Fprintf(bw, "<%s>\n", n.iri)
		written := 0
		for _, class := range n.types {
			written++
			fmt.Fprintf(bw, "    a <%s>%s\n", class, terminator(written == total))
		}
		for _, t := range n.triples {
			written++
			fmt.Fprintf(bw, "    <%s> %s%s\n", t.Predicate, formatObject(t.Object), terminator(written == total))
		}
		bw.WriteString("\n")
	}
}

func terminator(last bool) string {
	if last {
		return " ."
	}
	return " ;"
}

func (e *Exporter) writeNTriples(bw *bufio.Writer) {
	for _, t := range e.Triples() {
		fmt.Fprintf(bw, "<%s> <%s> %s .\n", t.Subject, t.Predicate, formatObjectNTriples(t.Object))
	}
}

// writeJSONLD writes one node per subject. Repeated predicates collect into
// an array in statement order.
func (e *Exporter) writeJSONLD(bw *bufio.Writer) error {
	doc := JSONLDDocument{
		Context: make(map[string]any, len(e.prefixes)),
		Graph:   make([]JSONLDNode, 0, len(e.nodes)),
	}
	for k, v := range e.prefixes {
		doc.Context[k] = v
	}
	for _, n := range e.nodes {
		props := make(map[string]any, len(n.triples))
		for _, t := range n.triples {
			v := formatObjectJSONLD(t.Object)
			switch existing := props[t.Predicate].(type) {
			case nil:
				props[t.Predicate] = v
			case []any:
				props[t.Predicate] = append(existing, v)
			default:
				props[t.Predicate] = []any{existing, v}
			}
		}
		doc.Graph = append(doc.Graph, JSONLDNode{
			ID:         n.iri,
			Type:       append([]string(nil), n.types...),
			Properties: props,
		})
	}
	enc := json.NewEncoder(bw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode json-ld: %w", err)
	}
	return nil
}

// formatObject formats an object value for Turtle output.
func formatObject(obj any) string {
	switch v := obj.(type) {
	case fact.Literal:
		if v.Datatype == fact.Plain {
			return fmt.Sprintf("\"%s\"", escapeString(v.Lexical))
		}
		return fmt.Sprintf("\"%s\"^^xsd:%s", escapeString(v.Lexical), v.Datatype)
	case string:
		return fmt.Sprintf("<%s>", v)
	default:
		return fmt.Sprintf("\"%s\"", escapeString(fmt.Sprint(v)))
	}
}

// formatObjectNTriples formats an object value for N-Triples output.
func formatObjectNTriples(obj any) string {
	switch v := obj.(type) {
	case fact.Literal:
		if v.Datatype == fact.Plain {
			return fmt.Sprintf("\"%s\"", escapeString(v.Lexical))
		}
		return fmt.Sprintf("\"%s\"^^<%s>", escapeString(v.Lexical), v.Datatype.XSD())
	case string:
		return fmt.Sprintf("<%s>", v)
	default:
		return fmt.Sprintf("\"%s\"", escapeString(fmt.Sprint(v)))
	}
}

// formatObjectJSONLD returns the JSON-LD value object for an object.
func formatObjectJSONLD(obj any) any {
	switch v := obj.(type) {
	case fact.Literal:
		if v.Datatype == fact.Plain {
			return v.Lexical
		}
		return map[string]string{"@value": v.Lexical, "@type": "xsd:" + string(v.Datatype)}
	case string:
		return map[string]string{"@id": v}
	default:
		return fmt.Sprint(v)
	}
}

// escapeString escapes special characters in strings for RDF serialization.
func escapeString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return s
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
