package model

import (
	"bytes"
	"encoding/json"
)

// ItemKind classifies a raw collection item.
type ItemKind int

const (
	KindOther ItemKind = iota
	KindString
	KindObject
)

// KindOf reports whether raw is a JSON string, an object, or something else.
func KindOf(raw json.RawMessage) ItemKind {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return KindOther
	}
	switch trimmed[0] {
	case '"':
		return KindString
	case '{':
		return KindObject
	default:
		return KindOther
	}
}

// ItemKey returns the identity of a collection item as a string.
//
// With an empty idField the item is its own identity, which is how string
// collections (workers, taxonomy lists) are addressed. Otherwise the item
// must be an object and idField one of its keys; string and number values
// are accepted. ok is false when the item has no usable identity.
func ItemKey(raw json.RawMessage, idField string) (key string, ok bool) {
	value, _, ok := itemIdentity(raw, idField)
	return value, ok
}

// IdentityKey is ItemKey qualified by the JSON kind of the identity, so a
// numeric id 1 and a string id "1" stay distinct. Merges dedupe on it.
func IdentityKey(raw json.RawMessage, idField string) (key string, ok bool) {
	value, kind, ok := itemIdentity(raw, idField)
	if !ok {
		return "", false
	}
	return kind + ":" + value, true
}

func itemIdentity(raw json.RawMessage, idField string) (value, kind string, ok bool) {
	if idField == "" {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", "", false
		}
		return s, "s", true
	}

	if KindOf(raw) != KindObject {
		return "", "", false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", "", false
	}
	field, present := obj[idField]
	if !present {
		return "", "", false
	}
	return scalarKey(field)
}

func scalarKey(raw json.RawMessage) (value, kind string, ok bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", "", false
	}
	switch t := v.(type) {
	case string:
		if t == "" {
			return "", "", false
		}
		return t, "s", true
	case json.Number:
		return t.String(), "n", true
	default:
		return "", "", false
	}
}

// MergeObject shallow-merges patch into the object item raw, the way an
// object spread does: keys in patch replace keys in raw.
func MergeObject(raw json.RawMessage, patch map[string]any) (json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		obj = make(map[string]json.RawMessage, len(patch))
	}
	for k, v := range patch {
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		obj[k] = encoded
	}
	return json.Marshal(obj)
}
