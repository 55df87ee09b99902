// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gnmi

import "strings"

// tokenKind classifies a lexical token of a path string
type tokenKind int

const (
	// tokOperator is a structural token such as "/", "[", "]" or "="
	tokOperator tokenKind = iota

	// tokQuoted is a single- or double-quoted string, quotes included
	tokQuoted

	// tokText is a bareword (element name, key name or bare value)
	tokText

	// tokSpace is a run of whitespace
	tokSpace
)

// token is one lexical unit of a path string. text is the raw source text
// and pos the byte offset in the tokenized input.
type token struct {
	kind tokenKind
	text string
	pos  int
}

// multi-character operators, longest first
var multiCharOperators = []string{"::", "//", "..", "()", "!=", "<=", ">="}

// isOperatorChar reports single characters that form an operator on their own
func isOperatorChar(ch byte) bool {
	switch ch {
	case '/', '.', '*', ':', '[', ']', '(', ')', '@', '=', '<', '>', '!':
		return true
	}
	return false
}

// isBarewordStop reports characters that terminate a bareword
func isBarewordStop(ch byte) bool {
	switch ch {
	case '/', '[', ']', '(', ')', '@', '!', '=', '<', '>':
		return true
	}
	return isSpace(ch)
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f' || ch == '\v'
}

// tokenize splits a path string into tokens following the XPath attribute
// tokenizer conventions: quoted strings and operators take precedence over
// barewords, and a bareword may carry a leading "{namespace}" qualifier.
// An unterminated quote is reported through the returned offset (>= 0);
// otherwise the offset is -1.
func tokenize(s string) ([]token, int) {
	var tokens []token
	i := 0
	for i < len(s) {
		ch := s[i]
		switch {
		case ch == '\'' || ch == '"':
			end := strings.IndexByte(s[i+1:], ch)
			if end < 0 {
				return tokens, i
			}
			tokens = append(tokens, token{kind: tokQuoted, text: s[i : i+end+2], pos: i})
			i += end + 2
			continue
		case isSpace(ch):
			j := i + 1
			for j < len(s) && isSpace(s[j]) {
				j++
			}
			tokens = append(tokens, token{kind: tokSpace, text: s[i:j], pos: i})
			i = j
			continue
		}

		if op := matchOperator(s[i:]); op != "" {
			tokens = append(tokens, token{kind: tokOperator, text: op, pos: i})
			i += len(op)
			continue
		}

		j := i
		if ch == '{' {
			if end := strings.IndexByte(s[i:], '}'); end > 1 {
				j = i + end + 1
			}
		}
		for j < len(s) && !isBarewordStop(s[j]) {
			j++
		}
		if j == i {
			// "{" with nothing usable after it
			j = i + 1
		}
		tokens = append(tokens, token{kind: tokText, text: s[i:j], pos: i})
		i = j
	}
	return tokens, -1
}

func matchOperator(s string) string {
	for _, op := range multiCharOperators {
		if strings.HasPrefix(s, op) {
			return op
		}
	}
	if isOperatorChar(s[0]) {
		return s[:1]
	}
	return ""
}

// unquote strips a single layer of matching quotes
func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
