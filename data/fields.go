package data

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// fieldSet consumes a decoded field mapping key by key so a builder can
// enforce the exact constructor field set: a missing required field or a
// leftover unknown key is a construction error. The first failure sticks;
// later accessors return zero values and done() reports it.
//
// The mapping is consumed destructively. Decode always hands builders a
// fresh map, so this never touches caller-owned data.
type fieldSet struct {
	class string
	m     map[string]any
	err   *Error
}

func newFieldSet(class string, m map[string]any) *fieldSet {
	return &fieldSet{class: class, m: m}
}

func (f *fieldSet) fail(format string, args ...any) {
	if f.err == nil {
		f.err = errf(ErrConstruct, f.class+": "+format, args...)
	}
}

func (f *fieldSet) take(key string) (any, bool) {
	v, ok := f.m[key]
	if ok {
		delete(f.m, key)
	}
	return v, ok
}

func (f *fieldSet) str(key string) string {
	v, ok := f.take(key)
	if !ok {
		f.fail("missing field %q", key)
		return ""
	}
	if v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		f.fail("field %q: expected string, got %T", key, v)
		return ""
	}
	return s
}

// optStr reads an optional field, substituting def when it is absent.
func (f *fieldSet) optStr(key, def string) string {
	v, ok := f.take(key)
	if !ok || v == nil {
		return def
	}
	s, ok := v.(string)
	if !ok {
		f.fail("field %q: expected string, got %T", key, v)
		return def
	}
	return s
}

func (f *fieldSet) uint64(key string) uint64 {
	v, ok := f.take(key)
	if !ok {
		f.fail("missing field %q", key)
		return 0
	}
	n, ok := toUint64(v)
	if !ok {
		f.fail("field %q: expected unsigned integer, got %v (%T)", key, v, v)
		return 0
	}
	return n
}

func (f *fieldSet) int64(key string) int64 {
	v, ok := f.take(key)
	if !ok {
		f.fail("missing field %q", key)
		return 0
	}
	n, ok := toInt64(v)
	if !ok {
		f.fail("field %q: expected integer, got %v (%T)", key, v, v)
		return 0
	}
	return n
}

func (f *fieldSet) strList(key string) []string {
	v, ok := f.take(key)
	if !ok {
		f.fail("missing field %q", key)
		return nil
	}
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case []any:
		out := make([]string, len(t))
		for i, e := range t {
			s, ok := e.(string)
			if !ok {
				f.fail("field %q[%d]: expected string, got %T", key, i, e)
				return nil
			}
			out[i] = s
		}
		return out
	default:
		f.fail("field %q: expected string list, got %T", key, v)
		return nil
	}
}

func (f *fieldSet) initiators(key string) []*Initiator {
	v, ok := f.take(key)
	if !ok {
		f.fail("missing field %q", key)
		return nil
	}
	switch t := v.(type) {
	case nil:
		return nil
	case []*Initiator:
		out := make([]*Initiator, len(t))
		copy(out, t)
		return out
	case []any:
		out := make([]*Initiator, len(t))
		for i, e := range t {
			ini, ok := e.(*Initiator)
			if !ok {
				f.fail("field %q[%d]: expected Initiator, got %T", key, i, e)
				return nil
			}
			out[i] = ini
		}
		return out
	default:
		f.fail("field %q: expected initiator list, got %T", key, v)
		return nil
	}
}

// done reports the first accessor failure, or flags any unconsumed keys as
// unexpected extra fields.
func (f *fieldSet) done() error {
	if f.err != nil {
		return f.err
	}
	if len(f.m) > 0 {
		extra := make([]string, 0, len(f.m))
		for k := range f.m {
			extra = append(extra, k)
		}
		sort.Strings(extra)
		return errf(ErrConstruct, "%s: unexpected fields: %s", f.class, strings.Join(extra, ", "))
	}
	return nil
}

func toInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return 0, false
		}
		return n, true
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case uint:
		if uint64(t) > math.MaxInt64 {
			return 0, false
		}
		return int64(t), true
	case uint32:
		return int64(t), true
	case uint64:
		if t > math.MaxInt64 {
			return 0, false
		}
		return int64(t), true
	case float64:
		if t != math.Trunc(t) || t < math.MinInt64 || t >= math.MaxInt64 {
			return 0, false
		}
		return int64(t), true
	default:
		return 0, false
	}
}

func toUint64(v any) (uint64, bool) {
	switch t := v.(type) {
	case json.Number:
		n, err := strconv.ParseUint(t.String(), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	case int:
		if t < 0 {
			return 0, false
		}
		return uint64(t), true
	case int32:
		if t < 0 {
			return 0, false
		}
		return uint64(t), true
	case int64:
		if t < 0 {
			return 0, false
		}
		return uint64(t), true
	case uint:
		return uint64(t), true
	case uint32:
		return uint64(t), true
	case uint64:
		return t, true
	case float64:
		if t != math.Trunc(t) || t < 0 || t >= math.MaxUint64 {
			return 0, false
		}
		return uint64(t), true
	default:
		return 0, false
	}
}
