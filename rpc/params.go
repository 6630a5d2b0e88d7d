package rpc

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/sanlink/sanlink/data"
)

// Params is the decoded parameter mapping handed to a server handler.
// Values coming off the wire are strings, json.Number, bools, lists, plain
// maps, or live entities rebuilt by the data decoder.
type Params map[string]any

func (p Params) Str(key string) (string, error) {
	v, ok := p[key]
	if !ok {
		return "", callErrorf(CodeInvalidArgument, "missing parameter %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", callErrorf(CodeInvalidArgument, "parameter %q: expected string, got %T", key, v)
	}
	return s, nil
}

// OptStr returns def when key is absent or null.
func (p Params) OptStr(key, def string) (string, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", callErrorf(CodeInvalidArgument, "parameter %q: expected string, got %T", key, v)
	}
	return s, nil
}

func (p Params) Uint64(key string) (uint64, error) {
	v, ok := p[key]
	if !ok {
		return 0, callErrorf(CodeInvalidArgument, "missing parameter %q", key)
	}
	n, ok := asUint64(v)
	if !ok {
		return 0, callErrorf(CodeInvalidArgument, "parameter %q: expected unsigned integer, got %v", key, v)
	}
	return n, nil
}

func (p Params) Int64(key string) (int64, error) {
	v, ok := p[key]
	if !ok {
		return 0, callErrorf(CodeInvalidArgument, "missing parameter %q", key)
	}
	n, ok := asInt64(v)
	if !ok {
		return 0, callErrorf(CodeInvalidArgument, "parameter %q: expected integer, got %v", key, v)
	}
	return n, nil
}

func (p Params) StrList(key string) ([]string, error) {
	v, ok := p[key]
	if !ok {
		return nil, callErrorf(CodeInvalidArgument, "missing parameter %q", key)
	}
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, callErrorf(CodeInvalidArgument, "parameter %q: expected string list, got %T", key, v)
	}
	out := make([]string, len(list))
	for i, e := range list {
		s, ok := e.(string)
		if !ok {
			return nil, callErrorf(CodeInvalidArgument, "parameter %q[%d]: expected string, got %T", key, i, e)
		}
		out[i] = s
	}
	return out, nil
}

// BlockRanges reads a list of decoded BlockRange entities.
func (p Params) BlockRanges(key string) ([]*data.BlockRange, error) {
	v, ok := p[key]
	if !ok {
		return nil, callErrorf(CodeInvalidArgument, "missing parameter %q", key)
	}
	list, ok := v.([]any)
	if !ok {
		return nil, callErrorf(CodeInvalidArgument, "parameter %q: expected block range list, got %T", key, v)
	}
	out := make([]*data.BlockRange, len(list))
	for i, e := range list {
		br, ok := e.(*data.BlockRange)
		if !ok {
			return nil, callErrorf(CodeInvalidArgument, "parameter %q[%d]: expected BlockRange, got %T", key, i, e)
		}
		out[i] = br
	}
	return out, nil
}

func asInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case json.Number:
		n, err := t.Int64()
		return n, err == nil
	case int:
		return int64(t), true
	case int64:
		return t, true
	case uint64:
		if t > math.MaxInt64 {
			return 0, false
		}
		return int64(t), true
	case float64:
		if t != math.Trunc(t) {
			return 0, false
		}
		return int64(t), true
	default:
		return 0, false
	}
}

func asUint64(v any) (uint64, bool) {
	switch t := v.(type) {
	case json.Number:
		n, err := strconv.ParseUint(t.String(), 10, 64)
		return n, err == nil
	case int:
		if t < 0 {
			return 0, false
		}
		return uint64(t), true
	case int64:
		if t < 0 {
			return 0, false
		}
		return uint64(t), true
	case uint64:
		return t, true
	case float64:
		if t != math.Trunc(t) || t < 0 {
			return 0, false
		}
		return uint64(t), true
	default:
		return 0, false
	}
}
