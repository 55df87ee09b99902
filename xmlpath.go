// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gnmi

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// NETCONF style edit operations of an XMLPathNode
const (
	EditOpCreate  = "create"
	EditOpMerge   = "merge"
	EditOpReplace = "replace"
	EditOpDelete  = "delete"
	EditOpRemove  = "remove"
)

// XMLPathRequest is a set of XML Path Language 1.0 edits modeled after
// YANG/NETCONF xpaths, e.g. /oc-acl:acl/oc-acl:acl-sets/oc-acl:acl-set/name
type XMLPathRequest struct {
	// Namespace maps xpath prefixes to namespace URIs
	Namespace map[string]string

	Nodes []XMLPathNode
}

// XMLPathNode is one edit of an XMLPathRequest
type XMLPathNode struct {
	// XPath addresses the resource
	XPath string

	// Value is the value to set; strings have namespace prefixes removed
	Value any

	// EditOp is the NETCONF edit-config operation. Empty means get.
	EditOp string
}

// XMLPathMessage is the gNMI view of an XMLPathRequest
type XMLPathMessage struct {
	// Modules maps xpath prefixes to YANG module names
	Modules map[string]string

	// Update and Replace hold one single-leaf fragment per edit, addressed
	// at the leaf's parent; feed them to Consolidate
	Update  []ConfigFragment
	Replace []ConfigFragment

	// Delete holds the deleted xpaths without duplicates
	Delete []string

	// Get holds the xpaths of nodes without an edit operation
	Get []string

	// Origin is DME unless an openconfig or device module prefix was used
	Origin string
}

// TranslateXMLPath converts an XML Path Language request into gNMI edits.
//
// Namespaces map to modules: Cisco-IOS-* namespaces to their last segment,
// cisco-nx namespaces to Cisco-NX-OS-device, openconfig.net namespaces to
// openconfig-<last segment> and urn:ietf:params:xml:ns:yang:<module> to
// <module>. Prefixes of openconfig and device modules are removed from
// xpaths and string values and select the message origin.
//
// A node without xpath wraps ErrMalformedPath.
func TranslateXMLPath(req XMLPathRequest) (XMLPathMessage, error) {
	msg := XMLPathMessage{
		Modules: map[string]string{},
		Origin:  OriginDME,
	}

	for pfx, ns := range req.Namespace {
		if module, ok := namespaceModule(ns); ok {
			msg.Modules[pfx] = module
		}
	}
	prefixes := make([]string, 0, len(msg.Modules))
	for pfx := range msg.Modules {
		prefixes = append(prefixes, pfx)
	}
	sort.Strings(prefixes)

	for i, node := range req.Nodes {
		if node.XPath == "" {
			return XMLPathMessage{}, &PathError{Path: "", Offset: -1, Reason: fmt.Sprintf("node %d has no xpath", i)}
		}
		xpath, val := node.XPath, node.Value

		for _, pfx := range prefixes {
			module := msg.Modules[pfx]
			if !hasNamespacePrefix(xpath, pfx) {
				continue
			}
			switch {
			case strings.Contains(module, "openconfig"):
				msg.Origin = OriginOpenConfig
			case strings.Contains(module, "device"):
				msg.Origin = OriginDevice
			default:
				continue
			}
			xpath = stripNamespacePrefix(xpath, pfx)
			if s, ok := val.(string); ok {
				val = stripNamespacePrefix(s, pfx)
			}
		}

		if _, err := ParseXPath(xpath, ""); err != nil {
			return XMLPathMessage{}, err
		}

		switch node.EditOp {
		case EditOpCreate, EditOpMerge, EditOpReplace:
			frag, err := leafFragment(xpath, val)
			if err != nil {
				return XMLPathMessage{}, err
			}
			if node.EditOp == EditOpReplace {
				msg.Replace = append(msg.Replace, frag)
			} else {
				msg.Update = append(msg.Update, frag)
			}
		case EditOpDelete, EditOpRemove:
			if !slices.Contains(msg.Delete, xpath) {
				msg.Delete = append(msg.Delete, xpath)
			}
		case "":
			msg.Get = append(msg.Get, xpath)
		default:
			return XMLPathMessage{}, fmt.Errorf("node %d: unsupported edit-op %q", i, node.EditOp)
		}
	}
	return msg, nil
}

// namespaceModule maps a namespace URI to its YANG module name
func namespaceModule(ns string) (string, bool) {
	last := ns[strings.LastIndexByte(ns, '/')+1:]
	switch {
	case strings.Contains(ns, "/Cisco-IOS-"):
		return last, true
	case strings.Contains(ns, "/cisco-nx"):
		return "Cisco-NX-OS-device", true
	case strings.Contains(ns, "/openconfig.net"):
		return "openconfig-" + last, true
	case strings.HasPrefix(ns, "urn:ietf:params:xml:ns:yang:"):
		return strings.TrimPrefix(ns, "urn:ietf:params:xml:ns:yang:"), true
	}
	return "", false
}

// prefixIndexes returns the offsets of "pfx:" occurrences that start a
// qualified name
func prefixIndexes(s, pfx string) []int {
	var idx []int
	needle := pfx + ":"
	for from := 0; ; {
		i := strings.Index(s[from:], needle)
		if i < 0 {
			return idx
		}
		i += from
		if i == 0 || !isNameChar(s[i-1]) {
			idx = append(idx, i)
		}
		from = i + len(needle)
	}
}

func hasNamespacePrefix(s, pfx string) bool {
	return len(prefixIndexes(s, pfx)) > 0
}

func stripNamespacePrefix(s, pfx string) string {
	idx := prefixIndexes(s, pfx)
	if len(idx) == 0 {
		return s
	}
	var b strings.Builder
	last := 0
	for _, i := range idx {
		b.WriteString(s[last:i])
		last = i + len(pfx) + 1
	}
	b.WriteString(s[last:])
	return b.String()
}

func isNameChar(ch byte) bool {
	return ch == '-' || ch == '_' || ch == '.' ||
		(ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}

// leafFragment splits the last element off xpath and sets it as leaf of
// the parent. An xpath ending in a keyed element addresses the list entry
// itself and takes no value.
func leafFragment(xpath string, val any) (ConfigFragment, error) {
	xpath = strings.TrimRight(xpath, "/")
	cut := lastSeparator(xpath)
	parent, leaf := xpath[:max(cut, 0)], xpath[cut+1:]
	if strings.ContainsRune(leaf, '[') {
		if val != nil && val != "" {
			return ConfigFragment{}, &PathError{Path: xpath, Offset: cut + 1, Reason: "value set on a list entry"}
		}
		return ConfigFragment{Path: xpath, Payload: Body{str: "{}"}}, nil
	}
	frag := NewFragment(parent, leaf, val)
	return frag, frag.Payload.Err()
}

// lastSeparator returns the offset of the last "/" outside predicates and
// quotes, or -1
func lastSeparator(s string) int {
	depth := 0
	var quote byte
	last := -1
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == '[':
			depth++
		case ch == ']':
			depth--
		case ch == '/' && depth == 0:
			last = i
		}
	}
	return last
}
