package data

import (
	"encoding/json"
)

// Encode converts v into a tagged tree of maps, slices, and scalars ready
// for JSON serialization. Entities become mappings carrying ClassKey plus
// one entry per schema field; entity-valued fields recurse so the tree is
// fully self-describing. The input is never mutated.
func Encode(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case Entity:
		return encodeEntity(t)
	case bool, string, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return t, nil
	case []any:
		return encodeList(t)
	case []string:
		if t == nil {
			return nil, nil
		}
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, nil
	case map[string]any:
		if t == nil {
			return nil, nil
		}
		out := make(map[string]any, len(t))
		for k, e := range t {
			ev, err := Encode(e)
			if err != nil {
				return nil, err
			}
			out[k] = ev
		}
		return out, nil
	default:
		return nil, errf(ErrEncode, "cannot encode value of type %T", v)
	}
}

func encodeEntity(e Entity) (map[string]any, error) {
	fields := e.fields()
	out := make(map[string]any, len(fields)+1)
	out[ClassKey] = e.Class()
	for _, f := range fields {
		v, err := Encode(f.value)
		if err != nil {
			return nil, err
		}
		out[f.name] = v
	}
	return out, nil
}

func encodeList(list []any) (any, error) {
	if list == nil {
		return nil, nil
	}
	out := make([]any, len(list))
	for i, e := range list {
		v, err := Encode(e)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Marshal encodes v and serializes the resulting tree as JSON.
func Marshal(v any) ([]byte, error) {
	tree, err := Encode(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(tree)
}
