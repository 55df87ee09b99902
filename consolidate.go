// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gnmi

import (
	"fmt"
	"strings"

	gnmipb "github.com/openconfig/gnmi/proto/gnmi"
)

// UpdatePayload is one consolidated update: a path and the JSON document
// to set at that path
type UpdatePayload struct {
	Path  string
	Value []byte
}

// Consolidate combines per-leaf fragments into as few updates as possible.
//
// Fragments below the first keyed element seen (e.g.
// acl-set[name=testacl][type=ACL_IPV4]) form one group. Fragments that only
// set that element's keys at the bare list path are dropped since the keys
// are carried by the predicate. All other fragments form a second group.
// Within a group, fragments with equal paths are merged, the longest common
// element prefix becomes the update path, and the remainders are
// reconstructed into one JSON document.
//
// Any malformed fragment fails the whole call.
func Consolidate(fragments []ConfigFragment) ([]UpdatePayload, error) {
	parsed := make([]consolidateItem, 0, len(fragments))
	for _, f := range fragments {
		item, err := newConsolidateItem(f)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, item)
	}

	var out []UpdatePayload
	for _, group := range groupByFirstKey(parsed) {
		upd, err := consolidateGroup(group)
		if err != nil {
			return nil, err
		}
		out = append(out, upd)
	}
	return out, nil
}

type consolidateItem struct {
	path    Path
	raw     string
	payload *jsonObject
}

func newConsolidateItem(f ConfigFragment) (consolidateItem, error) {
	item := consolidateItem{raw: f.Path}
	if strings.Trim(f.Path, "/") != "" {
		p, err := ParseXPath(f.Path, "")
		if err != nil {
			return item, err
		}
		item.path = p
	}
	payload, err := loadBody(f.Payload)
	if err != nil {
		return item, fmt.Errorf("fragment %s: %w", f.Path, err)
	}
	item.payload = payload
	return item, nil
}

// groupByFirstKey splits fragments into the group below the first keyed
// element and the rest
func groupByFirstKey(items []consolidateItem) [][]consolidateItem {
	var anchor []PathElement
	for _, it := range items {
		for i, e := range it.path.Elements {
			if len(e.Keys) > 0 {
				anchor = it.path.Elements[:i+1]
				break
			}
		}
		if anchor != nil {
			break
		}
	}
	if anchor == nil {
		if len(items) == 0 {
			return nil
		}
		return [][]consolidateItem{items}
	}

	var keyed, rest []consolidateItem
	for _, it := range items {
		switch {
		case hasElementPrefix(it.path.Elements, anchor):
			keyed = append(keyed, it)
		case restatesKeys(it, anchor):
		default:
			rest = append(rest, it)
		}
	}
	groups := [][]consolidateItem{keyed}
	if len(rest) > 0 {
		groups = append(groups, rest)
	}
	return groups
}

func hasElementPrefix(elems, prefix []PathElement) bool {
	return len(elems) >= len(prefix) && commonElements(elems, prefix) == len(prefix)
}

// restatesKeys reports a fragment at the bare list path of anchor whose
// leaves all equal the anchor's key values
func restatesKeys(it consolidateItem, anchor []PathElement) bool {
	elems := it.path.Elements
	n := len(anchor)
	if len(elems) != n || len(it.payload.keys) == 0 {
		return false
	}
	last := elems[n-1]
	if len(last.Keys) > 0 || last.Name != anchor[n-1].Name || commonElements(elems, anchor) != n-1 {
		return false
	}
	for _, name := range it.payload.keys {
		s, ok := scalarString(it.payload.vals[name])
		if !ok {
			return false
		}
		if v, ok := anchor[n-1].Key(name); !ok || v != s {
			return false
		}
	}
	return true
}

func consolidateGroup(group []consolidateItem) (UpdatePayload, error) {
	// merge fragments with equal paths, first appearance wins the position
	var merged []consolidateItem
	for _, it := range group {
		found := false
		for i := range merged {
			if merged[i].path.Equal(it.path) {
				mergeObject(merged[i].payload, it.payload)
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, it)
		}
	}

	common := merged[0].path.Elements
	for _, it := range merged[1:] {
		common = common[:commonElements(common, it.path.Elements)]
	}

	// list name -> key names seen in predicates of the group
	lists := map[string][]string{}
	for _, it := range merged {
		for _, e := range it.path.Elements {
			for _, k := range e.Keys {
				lists[e.Name] = append(lists[e.Name], k.Name)
			}
		}
	}

	items := make([]treeFragment, 0, len(merged))
	for _, it := range merged {
		rel := it.path.Elements[len(common):]
		items = append(items, treeFragment{
			path:    it.raw,
			elems:   rel,
			payload: it.payload,
			isKey:   setsListKey(rel, it.payload, lists),
		})
	}

	body, err := reconstruct(items)
	if err != nil {
		return UpdatePayload{}, err
	}
	value, err := body.Bytes()
	if err != nil {
		return UpdatePayload{}, err
	}
	prefix := Path{Origin: merged[0].path.Origin, Elements: common}
	return UpdatePayload{Path: prefix.String(), Value: value}, nil
}

// setsListKey reports a fragment ending in a bare list name whose payload
// sets one of the keys used for that list elsewhere in the group
func setsListKey(rel []PathElement, payload *jsonObject, lists map[string][]string) bool {
	if len(rel) == 0 {
		return false
	}
	last := rel[len(rel)-1]
	if len(last.Keys) > 0 {
		return false
	}
	for _, name := range lists[last.Name] {
		if _, ok := payload.get(name); ok {
			return true
		}
	}
	return false
}

// BuildUpdates converts consolidated payloads into gNMI updates. origin
// overrides the origin of the payload paths when set; ietf selects
// json_ietf_val over json_val.
func BuildUpdates(payloads []UpdatePayload, origin string, ietf bool) ([]*gnmipb.Update, error) {
	updates := make([]*gnmipb.Update, 0, len(payloads))
	for _, p := range payloads {
		path, err := parseUpdatePath(p.Path, origin)
		if err != nil {
			return nil, err
		}
		val := &gnmipb.TypedValue{Value: &gnmipb.TypedValue_JsonVal{JsonVal: p.Value}}
		if ietf {
			val = &gnmipb.TypedValue{Value: &gnmipb.TypedValue_JsonIetfVal{JsonIetfVal: p.Value}}
		}
		updates = append(updates, &gnmipb.Update{Path: path.Proto(), Val: val})
	}
	return updates, nil
}

// parseUpdatePath parses a consolidated path. The root path is allowed here
// since a group may share no common element.
func parseUpdatePath(text, origin string) (Path, error) {
	o, rest := splitOrigin(text)
	if origin == "" {
		origin = o
	}
	if rest == "" || rest == "/" {
		return Path{Origin: origin}, nil
	}
	return ParseXPath(rest, origin)
}
