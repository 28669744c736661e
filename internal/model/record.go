package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/emirpasic/gods/maps/linkedhashmap"
)

// Record keys produced by the Rundeck API or added by the client
const (
	KeyID              = "id"
	KeyName            = "name"
	KeyGroup           = "group"
	KeyProject         = "project"
	KeyJob             = "job"
	KeyStatus          = "status"
	KeyDateStarted     = "date-started"
	KeyDateEnded       = "date-ended"
	KeyFailedNodes     = "failedNodes"
	KeyAverageDuration = "averageDuration"

	KeyPercentOnAverageDuration = "percentCompletedOnAverageDuration"
	KeyPercentOnOutputAnalysis  = "percentCompletedOnOutputAnalysis"
	KeyTail                     = "tail"

	// AttributesKey and TextKey are the reserved keys of the generic tree shape
	AttributesKey = "@attributes"
	TextKey       = "@text"
)

// Record is a flattened job or execution as returned by the Rundeck API.
// Values are strings, []any for repeated children, map[string]any for nested
// elements, a nested Record under KeyJob, or ints for computed progress.
type Record map[string]any

// Text returns the textual value stored under key.
// Single-element lists and attribute-bearing elements are unwrapped.
func (r Record) Text(key string) string {
	v, ok := r[key]
	if !ok {
		return ""
	}
	return textOf(v)
}

// Has reports whether key holds a non-empty value
func (r Record) Has(key string) bool {
	v, ok := r[key]
	if !ok || v == nil {
		return false
	}

	switch val := v.(type) {
	case string:
		return val != ""
	case []any:
		for _, item := range val {
			if !isEmpty(item) {
				return true
			}
		}
		return false
	case map[string]any:
		return !isEmpty(val)
	case Record:
		return len(val) > 0
	}

	return true
}

// Nested returns the record stored under key, or nil
func (r Record) Nested(key string) Record {
	switch v := r[key].(type) {
	case Record:
		return v
	case map[string]any:
		return Record(v)
	}
	return nil
}

// Attribute returns an attribute of the element stored under key,
// e.g. the unixtime attribute of date-started
func (r Record) Attribute(key, attr string) string {
	v := r[key]
	if list, ok := v.([]any); ok && len(list) > 0 {
		v = list[0]
	}

	el, ok := v.(map[string]any)
	if !ok {
		return ""
	}

	switch attrs := el[AttributesKey].(type) {
	case map[string]string:
		return attrs[attr]
	case map[string]any:
		s, _ := attrs[attr].(string)
		return s
	}

	return ""
}

func textOf(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []any:
		if len(val) == 0 {
			return ""
		}
		return textOf(val[0])
	case map[string]any:
		s, _ := val[TextKey].(string)
		return s
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case map[string]any:
		for k, item := range val {
			if k == AttributesKey {
				continue
			}
			if !isEmpty(item) {
				return false
			}
		}
		_, hasAttrs := val[AttributesKey]
		return !hasAttrs
	case []any:
		for _, item := range val {
			if !isEmpty(item) {
				return false
			}
		}
		return true
	}
	return false
}

// RecordSet is an insertion-ordered collection of records keyed by id.
// Putting an existing id replaces the record and keeps its position.
type RecordSet struct {
	m *linkedhashmap.Map
}

// NewRecordSet creates an empty record set
func NewRecordSet() *RecordSet {
	return &RecordSet{m: linkedhashmap.New()}
}

// Put stores a record under id
func (s *RecordSet) Put(id string, record Record) {
	s.m.Put(id, record)
}

// Get returns the record stored under id
func (s *RecordSet) Get(id string) (Record, bool) {
	v, ok := s.m.Get(id)
	if !ok {
		return nil, false
	}
	return v.(Record), true
}

// Keys returns ids in insertion order
func (s *RecordSet) Keys() []string {
	keys := make([]string, 0, s.m.Size())
	for _, k := range s.m.Keys() {
		keys = append(keys, k.(string))
	}
	return keys
}

// Len returns the number of records
func (s *RecordSet) Len() int {
	return s.m.Size()
}

// Each calls fn for every record in order until fn returns false
func (s *RecordSet) Each(fn func(id string, record Record) bool) {
	it := s.m.Iterator()
	for it.Next() {
		if !fn(it.Key().(string), it.Value().(Record)) {
			return
		}
	}
}

// MarshalJSON encodes the set as a JSON object keeping insertion order
func (s *RecordSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	var err error
	first := true
	s.Each(func(id string, record Record) bool {
		var key, value []byte
		if key, err = json.Marshal(id); err != nil {
			return false
		}
		if value, err = json.Marshal(record); err != nil {
			return false
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
		return true
	})
	if err != nil {
		return nil, err
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
