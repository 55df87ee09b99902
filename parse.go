// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gnmi

import (
	"fmt"
	"strings"
)

// parseState is the position of the path builder within the grammar
type parseState int

const (
	// stateOutside expects the name of the next element
	stateOutside parseState = iota

	// stateInElementName has a named element that may take predicates
	stateInElementName

	// stateAwaitingKey is inside "[" and expects a key name
	stateAwaitingKey

	// stateAwaitingOperator has a key name and expects "="
	stateAwaitingOperator

	// stateAwaitingValue has seen "=" and expects the key value
	stateAwaitingValue

	// stateAfterValue completed a key/value pair inside a predicate
	stateAfterValue
)

func (s parseState) String() string {
	switch s {
	case stateOutside:
		return "outside"
	case stateInElementName:
		return "element"
	case stateAwaitingKey:
		return "awaiting-key"
	case stateAwaitingOperator:
		return "awaiting-operator"
	case stateAwaitingValue:
		return "awaiting-value"
	case stateAfterValue:
		return "after-value"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// pathBuilder accumulates elements while a token stream is consumed
type pathBuilder struct {
	input  string
	offset int // offset of the tokenized text within input
	state  parseState
	elems  []PathElement
	curr   PathElement
	key    string
	value  strings.Builder
}

func (b *pathBuilder) fail(pos int, format string, args ...any) error {
	if pos >= 0 {
		pos += b.offset
	}
	return &PathError{Path: b.input, Offset: pos, Reason: fmt.Sprintf(format, args...)}
}

// commitElement pushes the current element onto the path
func (b *pathBuilder) commitElement() {
	b.elems = append(b.elems, b.curr)
	b.curr = PathElement{}
}

// commitKey stores the pending key with the given value
func (b *pathBuilder) commitKey(pos int, value string) error {
	if _, dup := b.curr.Key(b.key); dup {
		return b.fail(pos, "duplicate key %q in element %q", b.key, b.curr.Name)
	}
	b.curr.Keys = append(b.curr.Keys, Key{Name: b.key, Value: value})
	b.key = ""
	return nil
}

// splitOrigin separates an "origin:/path" prefix. The prefix must not
// contain path syntax, so module-qualified element names are left alone.
func splitOrigin(text string) (string, string) {
	idx := strings.Index(text, ":/")
	if idx <= 0 {
		return "", text
	}
	if strings.ContainsAny(text[:idx], "/[]'\" \t") {
		return "", text
	}
	return text[:idx], text[idx+1:]
}

// prepare strips an origin prefix and the surrounding "/" characters and
// tokenizes what remains
func prepare(text, origin string) (*pathBuilder, []token, string, error) {
	b := &pathBuilder{input: text}
	if origin == "" {
		origin, text = splitOrigin(text)
	}
	b.offset = len(b.input) - len(text)
	trimmed := strings.TrimPrefix(text, "/")
	b.offset += len(text) - len(trimmed)
	trimmed = strings.TrimSuffix(trimmed, "/")
	if trimmed == "" {
		return nil, nil, "", b.fail(-1, "path has no elements")
	}
	tokens, bad := tokenize(trimmed)
	if bad >= 0 {
		return nil, nil, "", b.fail(bad, "unterminated quoted string")
	}
	return b, tokens, origin, nil
}

// ParseXPath parses an XPath-like string such as
// /interfaces/interface[name="Hu0/0/0"]/state into a Path.
//
// Predicates only support equality: [k=v], [k1=v1][k2=v2] and
// [k1=v1 and k2=v2] are accepted. Values may be quoted with ' or " and must
// be quoted when they contain "/", "[", "]", "=" or whitespace. A leading
// "origin:/" is split into the Origin field when origin is empty.
//
// Errors wrap ErrMalformedPath.
func ParseXPath(text, origin string) (Path, error) {
	b, tokens, origin, err := prepare(text, origin)
	if err != nil {
		return Path{}, err
	}

	for _, tok := range tokens {
		if tok.kind == tokSpace {
			continue
		}
		switch b.state {
		case stateOutside:
			if !isNameToken(tok) {
				if tok.text == "/" || tok.text == "//" {
					return Path{}, b.fail(tok.pos, "empty path element")
				}
				return Path{}, b.fail(tok.pos, "expected element name, got %q", tok.text)
			}
			b.curr.Name = tok.text
			b.state = stateInElementName

		case stateInElementName:
			switch {
			case tok.text == "/":
				b.commitElement()
				b.state = stateOutside
			case tok.text == "[":
				b.state = stateAwaitingKey
			case tok.text == "//":
				return Path{}, b.fail(tok.pos, "empty path element")
			case isNameToken(tok):
				return Path{}, b.fail(tok.pos, "element %q already named, got %q", b.curr.Name, tok.text)
			default:
				return Path{}, b.fail(tok.pos, "unexpected %q after element %q", tok.text, b.curr.Name)
			}

		case stateAwaitingKey:
			if tok.text == "]" {
				return Path{}, b.fail(tok.pos, "predicate without key in element %q", b.curr.Name)
			}
			if tok.kind != tokText {
				return Path{}, b.fail(tok.pos, "expected key name, got %q", tok.text)
			}
			b.key = tok.text
			b.state = stateAwaitingOperator

		case stateAwaitingOperator:
			switch tok.text {
			case "=":
				b.state = stateAwaitingValue
			case "!=", "<", ">", "<=", ">=":
				return Path{}, b.fail(tok.pos, "only = supported as filter operator, got %q", tok.text)
			case "]":
				return Path{}, b.fail(tok.pos, "key %q has no value", b.key)
			default:
				return Path{}, b.fail(tok.pos, "expected = after key %q, got %q", b.key, tok.text)
			}

		case stateAwaitingValue:
			var value string
			switch {
			case tok.kind == tokQuoted:
				value = unquote(tok.text)
			case tok.kind == tokText, tok.text == "*":
				value = tok.text
			default:
				return Path{}, b.fail(tok.pos, "expected value for key %q, got %q", b.key, tok.text)
			}
			if err := b.commitKey(tok.pos, value); err != nil {
				return Path{}, err
			}
			b.state = stateAfterValue

		case stateAfterValue:
			switch {
			case tok.text == "]":
				b.state = stateInElementName
			case tok.kind == tokText && tok.text == "and":
				b.state = stateAwaitingKey
			case tok.kind == tokText:
				b.key = tok.text
				b.state = stateAwaitingOperator
			default:
				return Path{}, b.fail(tok.pos, "unexpected %q in predicate of %q", tok.text, b.curr.Name)
			}
		}
	}

	return b.finish(origin)
}

// ParseDN parses a distinguished-name style path such as
// sys/intf/phys[id=eth1/1] into a Path with origin DME (unless another
// origin is given).
//
// Unlike ParseXPath a key value is the raw text between "=" and the
// closing "]", so values may contain "/", whitespace and other special
// characters. The key/value pair is committed on "]".
//
// Errors wrap ErrMalformedPath.
func ParseDN(text, origin string) (Path, error) {
	if origin == "" {
		origin = OriginDME
	}
	b, tokens, origin, err := prepare(text, origin)
	if err != nil {
		return Path{}, err
	}

	for _, tok := range tokens {
		if tok.kind == tokSpace && b.state != stateAwaitingValue {
			continue
		}
		switch b.state {
		case stateOutside:
			if !isNameToken(tok) {
				return Path{}, b.fail(tok.pos, "expected element name, got %q", tok.text)
			}
			b.curr.Name = tok.text
			b.state = stateInElementName

		case stateInElementName:
			switch {
			case tok.text == "/":
				b.commitElement()
				b.state = stateOutside
			case tok.text == "[":
				b.state = stateAwaitingKey
			default:
				return Path{}, b.fail(tok.pos, "unexpected %q after element %q", tok.text, b.curr.Name)
			}

		case stateAwaitingKey:
			if tok.text == "]" {
				return Path{}, b.fail(tok.pos, "predicate without key in element %q", b.curr.Name)
			}
			if tok.kind != tokText {
				return Path{}, b.fail(tok.pos, "expected key name, got %q", tok.text)
			}
			b.key = tok.text
			b.state = stateAwaitingOperator

		case stateAwaitingOperator:
			if tok.text != "=" {
				return Path{}, b.fail(tok.pos, "expected = after key %q, got %q", b.key, tok.text)
			}
			b.value.Reset()
			b.state = stateAwaitingValue

		case stateAwaitingValue:
			if tok.text != "]" {
				b.value.WriteString(tok.text)
				continue
			}
			if b.value.Len() == 0 {
				return Path{}, b.fail(tok.pos, "key %q has no value", b.key)
			}
			if err := b.commitKey(tok.pos, b.value.String()); err != nil {
				return Path{}, err
			}
			b.state = stateInElementName
		}
	}

	return b.finish(origin)
}

// finish validates the end state and returns the built path
func (b *pathBuilder) finish(origin string) (Path, error) {
	switch b.state {
	case stateInElementName:
		b.commitElement()
	case stateOutside:
		return Path{}, b.fail(-1, "path ends with an empty element")
	case stateAwaitingOperator, stateAwaitingValue:
		return Path{}, b.fail(-1, "hanging key %q, incomplete path", b.key)
	default:
		return Path{}, b.fail(-1, "unterminated predicate in element %q", b.curr.Name)
	}
	return Path{Origin: origin, Elements: b.elems}, nil
}

// ParsePath parses text with the dialect selected by origin: the
// distinguished-name dialect for OriginDME and the XPath dialect otherwise.
func ParsePath(text, origin string) (Path, error) {
	if origin == OriginDME {
		return ParseDN(text, origin)
	}
	return ParseXPath(text, origin)
}

// isNameToken reports tokens usable as an element name. "*" and "..." style
// wildcards are kept as names.
func isNameToken(tok token) bool {
	switch tok.kind {
	case tokText:
		return true
	case tokOperator:
		return tok.text == "*" || tok.text == "." || tok.text == ".."
	}
	return false
}
