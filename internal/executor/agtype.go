package executor

import (
	"encoding/json"
	"fmt"
)

// decodeAgtypeValue normalizes one raw column value coming back from a
// cypher(...) AS (col agtype) projection. agtype's wire text is a JSON
// value optionally suffixed with "::typename" (vertex, edge, path,
// numeric, ...); objects decode to maps, arrays to slices, and scalars
// keep their JSON type, matching the glossary's description of agtype
// decoding.
func decodeAgtypeValue(raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	text, ok := asText(raw)
	if !ok {
		// Already a native Go value (pgx decoded a known type, e.g.
		// a plain numeric/text column mixed into the same query).
		return raw, nil
	}
	return decodeAgtypeText(text)
}

func asText(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	default:
		return "", false
	}
}

func decodeAgtypeText(text string) (any, error) {
	body, suffix := splitTypeSuffix(text)

	var value any
	if err := json.Unmarshal([]byte(body), &value); err != nil {
		return nil, fmt.Errorf("decode agtype value %q: %w", text, err)
	}

	switch suffix {
	case "vertex":
		return decodeVertex(value)
	case "edge":
		return decodeEdge(value)
	case "path":
		return decodePath(value)
	default:
		return value, nil
	}
}

// splitTypeSuffix separates a trailing "::identifier" type hint from
// the JSON body that precedes it. agtype only ever appends this suffix
// once, after the complete, balanced JSON text, so scanning from the
// end for the last "::" followed by nothing but identifier characters
// is unambiguous.
func splitTypeSuffix(text string) (body, suffix string) {
	for i := len(text) - 2; i >= 0; i-- {
		if text[i] == ':' && i+1 < len(text) && text[i+1] == ':' {
			candidate := text[i+2:]
			if isIdentifier(candidate) {
				return text[:i], candidate
			}
		}
	}
	return text, ""
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}

func decodeVertex(value any) (*Vertex, error) {
	m, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("vertex payload is not an object")
	}
	v := &Vertex{}
	if id, ok := m["id"].(float64); ok {
		v.ID = int64(id)
	}
	if label, ok := m["label"].(string); ok {
		v.Label = label
	}
	if props, ok := m["properties"].(map[string]any); ok {
		v.Properties = props
	}
	return v, nil
}

func decodeEdge(value any) (*Edge, error) {
	m, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("edge payload is not an object")
	}
	e := &Edge{}
	if id, ok := m["id"].(float64); ok {
		e.ID = int64(id)
	}
	if label, ok := m["label"].(string); ok {
		e.Label = label
	}
	if start, ok := m["start_id"].(float64); ok {
		e.StartID = int64(start)
	}
	if end, ok := m["end_id"].(float64); ok {
		e.EndID = int64(end)
	}
	if props, ok := m["properties"].(map[string]any); ok {
		e.Properties = props
	}
	return e, nil
}

func decodePath(value any) (*Path, error) {
	elems, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("path payload is not an array")
	}
	return &Path{Elements: elems}, nil
}
