package metadata

import (
	"encoding/json"
	"fmt"
	"time"
)

// JSON form of a Value is a tagged object, e.g.
//
//	{"type": "int", "value": 42}
//	{"type": "datetime", "value": "2024-05-01T10:30:00Z"}
//
// Timestamps use RFC 3339 text. Entries marshal as {"key": ..., "value": ...}.

type jsonValue struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	var payload any
	switch v.Kind {
	case KindInt:
		payload = v.I
	case KindFloat:
		payload = v.F
	case KindString:
		payload = v.S
	case KindBool:
		payload = v.B
	case KindTime:
		payload = v.T.UTC().Format(time.RFC3339Nano)
	default:
		return nil, fmt.Errorf("cannot marshal metadata kind %d", v.Kind)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonValue{Type: v.Kind.String(), Value: raw})
}

// UnmarshalJSON implements json.Unmarshaler. Unknown type tags are rejected.
func (v *Value) UnmarshalJSON(data []byte) error {
	var aux jsonValue
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	switch aux.Type {
	case "int":
		var i int32
		if err := json.Unmarshal(aux.Value, &i); err != nil {
			return err
		}
		*v = Int(i)
	case "float":
		var f float32
		if err := json.Unmarshal(aux.Value, &f); err != nil {
			return err
		}
		*v = Float(f)
	case "string":
		var s string
		if err := json.Unmarshal(aux.Value, &s); err != nil {
			return err
		}
		*v = String(s)
	case "bool":
		var b bool
		if err := json.Unmarshal(aux.Value, &b); err != nil {
			return err
		}
		*v = Bool(b)
	case "datetime":
		var s string
		if err := json.Unmarshal(aux.Value, &s); err != nil {
			return err
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return err
		}
		*v = Time(t)
	default:
		return fmt.Errorf("unknown metadata type %q", aux.Type)
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key   string `json:"key"`
		Value Value  `json:"value"`
	}{Key: e.Key, Value: e.Value})
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var aux struct {
		Key   string `json:"key"`
		Value Value  `json:"value"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	e.Key = aux.Key
	e.Value = aux.Value
	return nil
}
