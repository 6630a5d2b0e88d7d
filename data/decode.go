package data

import (
	"bytes"
	"encoding/json"
	"io"
)

// Decode walks a parsed tree and rebuilds live entities from tagged
// mappings. Untagged mappings and sequences pass through with their values
// decoded recursively; scalars pass through unchanged. The top level may be
// a single entity, a sequence, or a plain mapping — the same rule applies
// at every depth.
//
// Any malformed tagged mapping fails the whole call; there is no partial
// result.
func Decode(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		return decodeMap(t)
	case []any:
		if t == nil {
			return t, nil
		}
		out := make([]any, len(t))
		for i, e := range t {
			dv, err := Decode(e)
			if err != nil {
				return nil, err
			}
			out[i] = dv
		}
		return out, nil
	default:
		return v, nil
	}
}

func decodeMap(m map[string]any) (any, error) {
	if m == nil {
		return m, nil
	}
	tag, tagged := m[ClassKey]
	if !tagged {
		out := make(map[string]any, len(m))
		for k, e := range m {
			dv, err := Decode(e)
			if err != nil {
				return nil, err
			}
			out[k] = dv
		}
		return out, nil
	}

	class, ok := tag.(string)
	if !ok {
		return nil, errf(ErrUnknownType, "tag %q must be a string, got %T", ClassKey, tag)
	}
	build, ok := Lookup(class)
	if !ok {
		return nil, errf(ErrUnknownType, "unknown entity type %q", class)
	}

	// Nested values decode first, so a builder sees live entities rather
	// than tagged mappings.
	fields := make(map[string]any, len(m)-1)
	for k, e := range m {
		if k == ClassKey {
			continue
		}
		dv, err := Decode(e)
		if err != nil {
			return nil, err
		}
		fields[k] = dv
	}
	return build(fields)
}

// Unmarshal parses a JSON document and decodes it. Numbers are kept as
// json.Number so 64-bit values survive without float rounding.
func Unmarshal(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, errf(ErrConstruct, "invalid document: %v", err)
	}
	// Reject trailing garbage after the document.
	if err := dec.Decode(new(any)); err != io.EOF {
		return nil, errf(ErrConstruct, "invalid document: trailing data")
	}
	return Decode(v)
}
