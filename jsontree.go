// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gnmi

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// jsonObject is a JSON object that keeps its fields in insertion order.
// Values are *jsonObject, *jsonArray or jsonRaw.
type jsonObject struct {
	keys []string
	vals map[string]any
}

// jsonArray is a JSON array. keyNames records the list keys seen in path
// predicates addressing it.
type jsonArray struct {
	items    []any
	keyNames []string
}

// jsonRaw is the raw JSON text of a scalar
type jsonRaw string

func newObject() *jsonObject {
	return &jsonObject{vals: map[string]any{}}
}

func (o *jsonObject) get(k string) (any, bool) {
	v, ok := o.vals[k]
	return v, ok
}

func (o *jsonObject) set(k string, v any) {
	if _, ok := o.vals[k]; !ok {
		o.keys = append(o.keys, k)
	}
	o.vals[k] = v
}

func (a *jsonArray) addKeyNames(keys []Key) {
	for _, k := range keys {
		if !slices.Contains(a.keyNames, k.Name) {
			a.keyNames = append(a.keyNames, k.Name)
		}
	}
}

// loadJSON converts a parsed gjson value into the tree representation
func loadJSON(r gjson.Result) any {
	switch {
	case r.IsObject():
		obj := newObject()
		r.ForEach(func(k, v gjson.Result) bool {
			obj.set(k.String(), loadJSON(v))
			return true
		})
		return obj
	case r.IsArray():
		arr := &jsonArray{}
		r.ForEach(func(_, v gjson.Result) bool {
			arr.items = append(arr.items, loadJSON(v))
			return true
		})
		return arr
	default:
		return jsonRaw(r.Raw)
	}
}

// loadBody parses a Body that must hold a JSON object. An empty Body is an
// empty object.
func loadBody(b Body) (*jsonObject, error) {
	s, err := b.String()
	if err != nil {
		return nil, err
	}
	if s == "" {
		return newObject(), nil
	}
	if !gjson.Valid(s) {
		return nil, fmt.Errorf("payload is not valid JSON: %w", ErrUnhandledValueType)
	}
	obj, ok := loadJSON(gjson.Parse(s)).(*jsonObject)
	if !ok {
		return nil, fmt.Errorf("payload is not a JSON object: %w", ErrUnhandledValueType)
	}
	return obj, nil
}

// mergeObject deep merges src into dst. Objects merge field by field,
// arrays are concatenated and anything else is overwritten by src.
func mergeObject(dst, src *jsonObject) {
	for _, k := range src.keys {
		sv := src.vals[k]
		dv, ok := dst.get(k)
		if !ok {
			dst.set(k, sv)
			continue
		}
		switch d := dv.(type) {
		case *jsonObject:
			if s, ok := sv.(*jsonObject); ok {
				mergeObject(d, s)
				continue
			}
		case *jsonArray:
			if s, ok := sv.(*jsonArray); ok {
				d.items = append(d.items, s.items...)
				continue
			}
		}
		dst.set(k, sv)
	}
}

// stringRaw encodes s as a JSON string
func stringRaw(s string) jsonRaw {
	doc, _ := sjson.Set("{}", "v", s)
	return jsonRaw(gjson.Get(doc, "v").Raw)
}

// scalarString returns the string form of a scalar for key comparison
func scalarString(v any) (string, bool) {
	raw, ok := v.(jsonRaw)
	if !ok {
		return "", false
	}
	return gjson.Parse(string(raw)).String(), true
}

// renderJSON serializes a tree node
func renderJSON(v any) (string, error) {
	switch n := v.(type) {
	case *jsonObject:
		members := make([]string, 0, len(n.keys))
		for _, k := range n.keys {
			child, err := renderJSON(n.vals[k])
			if err != nil {
				return "", err
			}
			members = append(members, string(stringRaw(k))+":"+child)
		}
		return "{" + strings.Join(members, ",") + "}", nil
	case *jsonArray:
		items := make([]string, 0, len(n.items))
		for _, item := range n.items {
			child, err := renderJSON(item)
			if err != nil {
				return "", err
			}
			items = append(items, child)
		}
		return "[" + strings.Join(items, ",") + "]", nil
	case jsonRaw:
		return string(n), nil
	default:
		return "", fmt.Errorf("unexpected node %T: %w", v, ErrUnhandledValueType)
	}
}
