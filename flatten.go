// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gnmi

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	gnmipb "github.com/openconfig/gnmi/proto/gnmi"
	"github.com/openconfig/gnmi/value"
	"github.com/tidwall/gjson"
)

// Flattened maps fully keyed leaf paths to their values.
//
// Values are int64, uint64, float64, string, bool, []any for leaf-lists,
// or nil for deleted paths.
type Flattened map[string]any

// FlatEntry is one path/value pair of a Flattened mapping
type FlatEntry struct {
	Path  string
	Value any
}

// Entries returns the mapping as a slice sorted by path
func (f Flattened) Entries() []FlatEntry {
	entries := make([]FlatEntry, 0, len(f))
	for p, v := range f {
		entries = append(entries, FlatEntry{Path: p, Value: v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries
}

// Fragments converts every leaf into a ConfigFragment addressed at the
// leaf's parent, ready for Reconstruct. Deleted paths are skipped.
func (f Flattened) Fragments() ([]ConfigFragment, error) {
	frags := make([]ConfigFragment, 0, len(f))
	for _, e := range f.Entries() {
		if e.Value == nil {
			continue
		}
		p, err := ParseXPath(e.Path, "")
		if err != nil {
			return nil, err
		}
		parent := Path{Elements: p.Parent().Elements}
		frag := NewFragment(parent.String(), p.Last().Name, e.Value)
		if err := frag.Payload.Err(); err != nil {
			return nil, err
		}
		frags = append(frags, frag)
	}
	return frags, nil
}

// FlattenJSON flattens a YANG-JSON document below prefix.
//
// Arrays reuse the prefix of their parent. Within an object, fields holding
// objects or arrays are traversed, booleans and numbers are leaf values, and
// strings are converted to int64, uint64 or float64 when they parse as such.
// Strings that do not parse, or every string when convertStrings is false,
// are treated as list keys: they render as one [k=v] predicate suffix per
// object, and sibling leaves and children are emitted below that suffix.
// An object with only key fields emits nothing.
//
// A null value, or a member name that is empty or contains "/", wraps
// ErrUnhandledValueType.
func FlattenJSON(prefix string, data []byte, convertStrings bool) (Flattened, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("flatten %s: invalid JSON document: %w", prefix, ErrUnhandledValueType)
	}
	out := Flattened{}
	if err := flattenValue(out, prefix, gjson.ParseBytes(data), convertStrings); err != nil {
		return nil, err
	}
	return out, nil
}

func flattenValue(out Flattened, prefix string, v gjson.Result, convert bool) error {
	switch {
	case v.IsArray():
		var err error
		v.ForEach(func(_, elem gjson.Result) bool {
			if elem.IsObject() || elem.IsArray() {
				err = flattenValue(out, prefix, elem, convert)
			}
			return err == nil
		})
		return err
	case v.IsObject():
		return flattenObject(out, prefix, v, convert)
	default:
		val, _, err := classifyScalar(prefix, v, convert)
		if err != nil {
			return err
		}
		out[prefix] = val
		return nil
	}
}

type flatField struct {
	name  string
	value any
	node  gjson.Result
}

func flattenObject(out Flattened, prefix string, obj gjson.Result, convert bool) error {
	var (
		keys     []Key
		values   []flatField
		traverse []flatField
		err      error
	)
	obj.ForEach(func(k, v gjson.Result) bool {
		name := k.String()
		if name == "" || strings.Contains(name, "/") {
			err = fmt.Errorf("flatten %s: member name %q is not a path element: %w", prefix, name, ErrUnhandledValueType)
			return false
		}
		switch {
		case isLeafList(v):
			var list []any
			list, err = leafListValues(prefix+"/"+name, v, convert)
			values = append(values, flatField{name: name, value: list})
		case v.IsObject() || v.IsArray():
			traverse = append(traverse, flatField{name: name, node: v})
		default:
			var val any
			var isKey bool
			val, isKey, err = classifyScalar(prefix+"/"+name, v, convert)
			if isKey {
				keys = append(keys, Key{Name: name, Value: v.String()})
			} else {
				values = append(values, flatField{name: name, value: val})
			}
		}
		return err == nil
	})
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString(prefix)
	for _, k := range keys {
		writeKey(&b, k.Name, k.Value)
	}
	keyed := b.String()

	for _, f := range traverse {
		if err := flattenValue(out, keyed+"/"+f.name, f.node, convert); err != nil {
			return err
		}
	}
	for _, f := range values {
		out[keyed+"/"+f.name] = f.value
	}
	return nil
}

// classifyScalar returns the leaf value of v, or reports it as a key
func classifyScalar(path string, v gjson.Result, convert bool) (any, bool, error) {
	switch v.Type {
	case gjson.True, gjson.False:
		return v.Bool(), false, nil
	case gjson.Number:
		return numberValue(v.Raw), false, nil
	case gjson.String:
		if !convert {
			return v.Str, true, nil
		}
		if n, ok := parseNumeric(v.Str); ok {
			return n, false, nil
		}
		return v.Str, true, nil
	default:
		return nil, false, fmt.Errorf("flatten %s: %s value: %w", path, v.Type, ErrUnhandledValueType)
	}
}

// numberValue keeps integers exact and falls back to float64
func numberValue(raw string) any {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if n, err := strconv.ParseUint(raw, 10, 64); err == nil {
		return n
	}
	f, _ := strconv.ParseFloat(raw, 64)
	return f
}

// parseNumeric tries integer then float conversion of a string leaf.
// uint64 counters are encoded as strings in YANG-JSON.
func parseNumeric(s string) (any, bool) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, false
	}
	return f, true
}

func isLeafList(v gjson.Result) bool {
	if !v.IsArray() {
		return false
	}
	arr := v.Array()
	if len(arr) == 0 {
		return false
	}
	for _, e := range arr {
		if e.IsObject() || e.IsArray() {
			return false
		}
	}
	return true
}

func leafListValues(path string, v gjson.Result, convert bool) ([]any, error) {
	var list []any
	for _, e := range v.Array() {
		val, isKey, err := classifyScalar(path, e, convert)
		if err != nil {
			return nil, err
		}
		if isKey {
			val = e.Str
		}
		list = append(list, val)
	}
	return list, nil
}

// FlattenOptions controls notification flattening
type FlattenOptions struct {
	// ConvertStrings converts numeric strings to numbers
	ConvertStrings bool

	// IgnoreDelete skips the delete paths of a notification
	IgnoreDelete bool

	// OriginAsModule renders the origin as a module prefix of the first
	// element, e.g. /Cisco-IOS-XR-ifmgr-oper:interfaces. Used by devices
	// that report the YANG module as origin.
	OriginAsModule bool
}

// DefaultFlattenOptions converts numeric strings and ignores deletes
func DefaultFlattenOptions() FlattenOptions {
	return FlattenOptions{ConvertStrings: true, IgnoreDelete: true}
}

// FlattenNotification flattens every update of a notification below its
// prefix. JSON values are flattened with FlattenJSON; scalar values are
// decoded as is. Unless IgnoreDelete is set, delete paths are recorded
// with a nil value.
//
// A prefix and an update path that both carry an origin wrap
// ErrBranchAmbiguity. A deleted path that is also updated returns a
// *ConflictError.
func FlattenNotification(n *gnmipb.Notification, opts FlattenOptions) (Flattened, error) {
	out := Flattened{}
	if n == nil {
		return out, nil
	}

	origin, prefix := xpathOf(n.GetPrefix())
	if opts.OriginAsModule && origin != "" {
		prefix = "/" + origin + ":" + strings.Trim(prefix, "/")
	}

	resolve := func(p *gnmipb.Path) (string, error) {
		o, x := xpathOf(p)
		if origin != "" && o != "" {
			return "", fmt.Errorf("flatten: prefix origin %q and path origin %q: %w", origin, o, ErrBranchAmbiguity)
		}
		if origin == "" && opts.OriginAsModule && o != "" {
			x = "/" + o + ":" + strings.Trim(x, "/")
		}
		return joinXPath(prefix, x), nil
	}

	for _, u := range n.GetUpdate() {
		xpath, err := resolve(u.GetPath())
		if err != nil {
			return nil, err
		}
		if err := flattenTypedValue(out, xpath, u.GetVal(), opts.ConvertStrings); err != nil {
			return nil, err
		}
	}

	if opts.IgnoreDelete {
		return out, nil
	}
	for _, d := range n.GetDelete() {
		xpath, err := resolve(d)
		if err != nil {
			return nil, err
		}
		if _, ok := out[xpath]; ok {
			return nil, &ConflictError{Path: xpath}
		}
		out[xpath] = nil
	}
	return out, nil
}

// FlattenGetResponse merges the flattened notifications of a GetResponse
func FlattenGetResponse(r *gnmipb.GetResponse, opts FlattenOptions) (Flattened, error) {
	out := Flattened{}
	for _, n := range r.GetNotification() {
		f, err := FlattenNotification(n, opts)
		if err != nil {
			return nil, err
		}
		for k, v := range f {
			out[k] = v
		}
	}
	return out, nil
}

// FlattenSubscribeResponse flattens the update of a SubscribeResponse. A
// sync response flattens to an empty mapping.
func FlattenSubscribeResponse(r *gnmipb.SubscribeResponse, opts FlattenOptions) (Flattened, error) {
	return FlattenNotification(r.GetUpdate(), opts)
}

func flattenTypedValue(out Flattened, xpath string, tv *gnmipb.TypedValue, convert bool) error {
	var raw []byte
	switch v := tv.GetValue().(type) {
	case *gnmipb.TypedValue_JsonVal:
		raw = v.JsonVal
	case *gnmipb.TypedValue_JsonIetfVal:
		raw = v.JsonIetfVal
	case nil:
		return fmt.Errorf("flatten %s: empty value: %w", xpath, ErrUnhandledValueType)
	default:
		val, err := value.ToScalar(tv)
		if err != nil {
			return fmt.Errorf("flatten %s: %v: %w", xpath, err, ErrUnhandledValueType)
		}
		out[xpath] = val
		return nil
	}
	f, err := FlattenJSON(xpath, raw, convert)
	if err != nil {
		return err
	}
	for k, v := range f {
		out[k] = v
	}
	return nil
}

// xpathOf renders a proto path without its origin. The root path renders
// as the empty string.
func xpathOf(p *gnmipb.Path) (string, string) {
	path := PathFromProto(p)
	if len(path.Elements) == 0 {
		return path.Origin, ""
	}
	origin := path.Origin
	path.Origin = ""
	return origin, path.String()
}

// joinXPath concatenates prefix and suffix with exactly one separator
func joinXPath(prefix, suffix string) string {
	switch {
	case prefix == "":
		return suffix
	case suffix == "":
		return prefix
	default:
		return strings.TrimRight(prefix, "/") + "/" + strings.TrimLeft(suffix, "/")
	}
}
