// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gnmi

import (
	"sort"
	"strings"

	gnmipb "github.com/openconfig/gnmi/proto/gnmi"
)

// Well-known path origins
const (
	// OriginDME selects the NX-OS distinguished-name path dialect
	OriginDME = "DME"

	// OriginOpenConfig is the origin for OpenConfig models
	OriginOpenConfig = "openconfig"

	// OriginDevice is the origin for native device models
	OriginDevice = "device"

	// OriginCLI is the origin for CLI command paths
	OriginCLI = "cli"
)

// Key is one key/value predicate of a path element
type Key struct {
	Name  string
	Value string
}

// PathElement is one named node of a Path with its list keys in the order
// they were written
type PathElement struct {
	Name string
	Keys []Key
}

// Key returns the value of the named key
func (e PathElement) Key(name string) (string, bool) {
	for _, k := range e.Keys {
		if k.Name == name {
			return k.Value, true
		}
	}
	return "", false
}

// KeyMap returns the keys as a map
func (e PathElement) KeyMap() map[string]string {
	if len(e.Keys) == 0 {
		return nil
	}
	m := make(map[string]string, len(e.Keys))
	for _, k := range e.Keys {
		m[k.Name] = k.Value
	}
	return m
}

// Equal reports whether both elements have the same name and the same key
// set. Key order is not significant.
func (e PathElement) Equal(o PathElement) bool {
	if e.Name != o.Name || len(e.Keys) != len(o.Keys) {
		return false
	}
	for _, k := range e.Keys {
		if v, ok := o.Key(k.Name); !ok || v != k.Value {
			return false
		}
	}
	return true
}

// String renders the element as name[k=v]...
func (e PathElement) String() string {
	var b strings.Builder
	b.WriteString(e.Name)
	for _, k := range e.Keys {
		writeKey(&b, k.Name, k.Value)
	}
	return b.String()
}

// Path is a parsed, structured gNMI path
//
// Paths are built fresh by ParsePath and friends and are not mutated
// afterwards; the helper methods return new values.
type Path struct {
	Origin   string
	Elements []PathElement
}

// String renders the path as an XPath-like string. Key values are quoted
// only when they would not survive re-parsing as a bareword, so
// ParseXPath(p.String()) yields an equal path. A non-empty origin is
// rendered as "origin:/...".
func (p Path) String() string {
	var b strings.Builder
	if p.Origin != "" {
		b.WriteString(p.Origin)
		b.WriteByte(':')
	}
	if len(p.Elements) == 0 {
		b.WriteByte('/')
		return b.String()
	}
	for _, e := range p.Elements {
		b.WriteByte('/')
		b.WriteString(e.String())
	}
	return b.String()
}

// Equal compares origin and elements
func (p Path) Equal(o Path) bool {
	if p.Origin != o.Origin || len(p.Elements) != len(o.Elements) {
		return false
	}
	for i := range p.Elements {
		if !p.Elements[i].Equal(o.Elements[i]) {
			return false
		}
	}
	return true
}

// Last returns the final element, or the zero element for the root path
func (p Path) Last() PathElement {
	if len(p.Elements) == 0 {
		return PathElement{}
	}
	return p.Elements[len(p.Elements)-1]
}

// Parent returns the path without its final element
func (p Path) Parent() Path {
	if len(p.Elements) == 0 {
		return p
	}
	return Path{Origin: p.Origin, Elements: p.Elements[:len(p.Elements)-1]}
}

// Join appends the elements of suffix to p. The origin of p wins; the
// suffix origin is used when p has none.
func (p Path) Join(suffix Path) Path {
	origin := p.Origin
	if origin == "" {
		origin = suffix.Origin
	}
	elems := make([]PathElement, 0, len(p.Elements)+len(suffix.Elements))
	elems = append(elems, p.Elements...)
	elems = append(elems, suffix.Elements...)
	return Path{Origin: origin, Elements: elems}
}

// Proto converts the path into a gNMI Path message
func (p Path) Proto() *gnmipb.Path {
	gp := &gnmipb.Path{Origin: p.Origin}
	for _, e := range p.Elements {
		gp.Elem = append(gp.Elem, &gnmipb.PathElem{Name: e.Name, Key: e.KeyMap()})
	}
	return gp
}

// PathFromProto converts a gNMI Path message into a Path. Keys are sorted
// by name since protobuf maps carry no order.
func PathFromProto(gp *gnmipb.Path) Path {
	if gp == nil {
		return Path{}
	}
	p := Path{Origin: gp.GetOrigin()}
	for _, e := range gp.GetElem() {
		elem := PathElement{Name: e.GetName()}
		names := make([]string, 0, len(e.GetKey()))
		for k := range e.GetKey() {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			elem.Keys = append(elem.Keys, Key{Name: k, Value: e.GetKey()[k]})
		}
		p.Elements = append(p.Elements, elem)
	}
	return p
}

// CLIPath builds the single element path used to run a CLI command over
// Get. The command itself is the element name.
func CLIPath(command string) Path {
	return Path{Origin: OriginCLI, Elements: []PathElement{{Name: command}}}
}

// writeKey renders one [name=value] predicate
func writeKey(b *strings.Builder, name, value string) {
	b.WriteByte('[')
	b.WriteString(name)
	b.WriteByte('=')
	b.WriteString(quoteKeyValue(value))
	b.WriteByte(']')
}

// quoteKeyValue returns value unchanged when it tokenizes as a single
// bareword, and quoted otherwise
func quoteKeyValue(value string) string {
	if isBareValue(value) {
		return value
	}
	if strings.ContainsRune(value, '"') {
		return "'" + value + "'"
	}
	return `"` + value + `"`
}

func isBareValue(value string) bool {
	if value == "" {
		return false
	}
	switch value[0] {
	case '\'', '"', '{':
		return false
	}
	if isOperatorChar(value[0]) {
		return false
	}
	for i := 0; i < len(value); i++ {
		if isBarewordStop(value[i]) {
			return false
		}
	}
	return true
}
