package export

import (
	"encoding/json"
	"fmt"
)

// JSONLDDocument represents a JSON-LD document structure.
type JSONLDDocument struct {
	Context map[string]any `json:"@context"`
	Graph   []JSONLDNode   `json:"@graph"`
}

// JSONLDNode represents a node in a JSON-LD graph.
type JSONLDNode struct {
	ID         string         `json:"@id"`
	Type       []string       `json:"@type,omitempty"`
	Properties map[string]any `json:"-"`
}

// MarshalJSON flattens Properties next to @id and @type.
func (n JSONLDNode) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(n.Properties)+2)
	m["@id"] = n.ID
	if len(n.Type) > 0 {
		m["@type"] = n.Type
	}
	for k, v := range n.Properties {
		m[k] = v
	}
	return json.Marshal(m)
}

// UnmarshalJSON collects every key other than @id and @type into Properties.
func (n *JSONLDNode) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*n = JSONLDNode{Properties: make(map[string]any)}
	for k, raw := range m {
		switch k {
		case "@id":
			if err := json.Unmarshal(raw, &n.ID); err != nil {
				return fmt.Errorf("decode @id: %w", err)
			}
		case "@type":
			if err := json.Unmarshal(raw, &n.Type); err != nil {
				return fmt.Errorf("decode @type: %w", err)
			}
		default:
			var v any
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("decode %s: %w", k, err)
			}
			n.Properties[k] = v
		}
	}
	return nil
}

// ReadJSONLD decodes a document written by Exporter.
func ReadJSONLD(data []byte) (*JSONLDDocument, error) {
	var doc JSONLDDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode json-ld: %w", err)
	}
	return &doc, nil
}
