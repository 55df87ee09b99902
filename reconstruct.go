// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gnmi

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ConfigFragment is a partial configuration addressed by an XPath-like
// path, the unit passed from Consolidate to Reconstruct.
type ConfigFragment struct {
	// Path addresses the node the payload belongs to. An empty path or "/"
	// addresses the root.
	Path string

	// Payload is a JSON object merged into the addressed node
	Payload Body

	// IsKey marks a payload that carries list keys for a bare list name as
	// last path element, e.g. {"sequence-id": 10} at .../acl-entry. Such a
	// payload selects or appends a list entry instead of setting a container.
	IsKey bool
}

// NewFragment builds a fragment setting a single leaf below path
func NewFragment(path, leaf string, value any) ConfigFragment {
	return ConfigFragment{Path: path, Payload: Body{}.Set(gjson.Escape(leaf), value)}
}

// Reconstruct merges fragments into one nested JSON document.
//
// Each fragment path is walked from the root. A keyed element such as
// acl-entry[sequence-id=10] selects the list entry whose key leaves match,
// creating it with the key leaves when missing, so fragments sharing a
// keyed ancestor land in the same entry. A bare element is a container,
// unless the fragment is an IsKey fragment ending in it. Payloads are deep
// merged into the node their path addresses.
//
// Consecutive fragments share the walk up to the first differing element,
// compared element by element. A list addressed as a container (or the
// reverse) wraps ErrMalformedPath.
func Reconstruct(fragments []ConfigFragment) (Body, error) {
	items := make([]treeFragment, 0, len(fragments))
	for _, f := range fragments {
		elems, err := fragmentElements(f.Path)
		if err != nil {
			return Body{}, err
		}
		payload, err := loadBody(f.Payload)
		if err != nil {
			return Body{}, fmt.Errorf("fragment %s: %w", f.Path, err)
		}
		items = append(items, treeFragment{path: f.Path, elems: elems, payload: payload, isKey: f.IsKey})
	}
	return reconstruct(items)
}

// treeFragment is a ConfigFragment with its path and payload parsed
type treeFragment struct {
	path    string
	elems   []PathElement
	payload *jsonObject
	isKey   bool
}

func reconstruct(items []treeFragment) (Body, error) {
	root := newObject()

	// nodes[i] is the object reached after the first i elements of prev
	nodes := []*jsonObject{root}
	var prev []PathElement
	prevIsKey := false

	for _, f := range items {
		branch := commonElements(prev, f.elems)
		if prevIsKey && branch == len(prev) && branch > 0 {
			// an IsKey element resolves by payload, never reuse it
			branch--
		}
		nodes = nodes[:branch+1]
		node := nodes[branch]
		for i := branch; i < len(f.elems); i++ {
			last := i == len(f.elems)-1
			var err error
			node, err = descend(node, f.elems[i], last && f.isKey, f.payload)
			if err != nil {
				return Body{}, fmt.Errorf("fragment %s: %w", f.path, err)
			}
			nodes = append(nodes, node)
		}
		mergeObject(node, f.payload)
		prev, prevIsKey = f.elems, f.isKey
	}

	out, err := renderJSON(root)
	if err != nil {
		return Body{}, err
	}
	return Body{str: out}, nil
}

// fragmentElements parses a fragment path, the root being empty
func fragmentElements(path string) ([]PathElement, error) {
	if strings.Trim(path, "/") == "" {
		return nil, nil
	}
	p, err := ParseXPath(path, "")
	if err != nil {
		return nil, err
	}
	return p.Elements, nil
}

// commonElements returns the length of the common element prefix
func commonElements(a, b []PathElement) int {
	n := 0
	for n < len(a) && n < len(b) && a[n].Equal(b[n]) {
		n++
	}
	return n
}

// descend returns the child object of node addressed by elem
func descend(node *jsonObject, elem PathElement, isKey bool, payload *jsonObject) (*jsonObject, error) {
	existing, ok := node.get(elem.Name)

	switch {
	case len(elem.Keys) > 0:
		var list *jsonArray
		switch e := existing.(type) {
		case nil:
			list = &jsonArray{}
			node.set(elem.Name, list)
		case *jsonArray:
			list = e
		default:
			return nil, fmt.Errorf("%w: %s is not a list", ErrMalformedPath, elem.Name)
		}
		list.addKeyNames(elem.Keys)
		if entry := findEntry(list, elem.Keys); entry != nil {
			return entry, nil
		}
		entry := newObject()
		for _, k := range elem.Keys {
			entry.set(k.Name, stringRaw(k.Value))
		}
		list.items = append(list.items, entry)
		return entry, nil

	case isKey:
		switch e := existing.(type) {
		case nil:
			entry := newObject()
			node.set(elem.Name, &jsonArray{items: []any{entry}})
			return entry, nil
		case *jsonObject:
			return e, nil
		case *jsonArray:
			if entry := findEntry(e, payloadKeys(e, payload)); entry != nil {
				return entry, nil
			}
			entry := newObject()
			e.items = append(e.items, entry)
			return entry, nil
		default:
			return nil, fmt.Errorf("%w: %s is a leaf", ErrMalformedPath, elem.Name)
		}

	default:
		if !ok {
			child := newObject()
			node.set(elem.Name, child)
			return child, nil
		}
		switch e := existing.(type) {
		case *jsonObject:
			return e, nil
		case *jsonArray:
			return nil, fmt.Errorf("%w: list %s addressed without keys", ErrMalformedPath, elem.Name)
		default:
			return nil, fmt.Errorf("%w: %s is a leaf", ErrMalformedPath, elem.Name)
		}
	}
}

// payloadKeys picks the scalar payload fields used to match a list entry:
// the list's known key names when any are present, all scalar fields
// otherwise
func payloadKeys(list *jsonArray, payload *jsonObject) []Key {
	var keys []Key
	for _, name := range list.keyNames {
		if s, ok := scalarString(payload.vals[name]); ok {
			keys = append(keys, Key{Name: name, Value: s})
		}
	}
	if len(keys) > 0 {
		return keys
	}
	for _, name := range payload.keys {
		if s, ok := scalarString(payload.vals[name]); ok {
			keys = append(keys, Key{Name: name, Value: s})
		}
	}
	return keys
}

// findEntry returns the list entry whose leaves match all keys
func findEntry(list *jsonArray, keys []Key) *jsonObject {
	if len(keys) == 0 {
		return nil
	}
	for _, item := range list.items {
		entry, ok := item.(*jsonObject)
		if !ok {
			continue
		}
		match := true
		for _, k := range keys {
			s, ok := scalarString(entry.vals[k.Name])
			if !ok || s != k.Value {
				match = false
				break
			}
		}
		if match {
			return entry
		}
	}
	return nil
}
