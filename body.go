// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gnmi

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Body is an immutable JSON document built with sjson paths. It is the
// payload of a ConfigFragment and the result of Reconstruct.
//
// The first error is kept and turns all later calls into no-ops, so calls
// can be chained and checked once.
//
// Example:
//
//	body := gnmi.Body{}.
//	    Set("config.name", "GigabitEthernet0/0/0/0").
//	    Set("config.enabled", true).
//	    Set("config.mtu", 9000)
//	value, err := body.String()
type Body struct {
	str string
	err error
}

// Set stores value at an sjson path such as "config.name". Use
// gjson.Escape for member names containing dots or wildcards.
func (b Body) Set(path string, value any) Body {
	if b.err != nil {
		return b
	}
	result, err := sjson.Set(b.str, path, value)
	if err != nil {
		return Body{str: b.str, err: fmt.Errorf("Set(%q): %w", path, err)}
	}
	return Body{str: result}
}

// SetRaw stores already encoded JSON at path
func (b Body) SetRaw(path, raw string) Body {
	if b.err != nil {
		return b
	}
	if !gjson.Valid(raw) {
		return Body{str: b.str, err: fmt.Errorf("SetRaw(%q): invalid JSON", path)}
	}
	result, err := sjson.SetRaw(b.str, path, raw)
	if err != nil {
		return Body{str: b.str, err: fmt.Errorf("SetRaw(%q): %w", path, err)}
	}
	return Body{str: result}
}

// Delete removes the value at path
func (b Body) Delete(path string) Body {
	if b.err != nil {
		return b
	}
	result, err := sjson.Delete(b.str, path)
	if err != nil {
		return Body{str: b.str, err: fmt.Errorf("Delete(%q): %w", path, err)}
	}
	return Body{str: result}
}

// Get queries the document with a gjson path
func (b Body) Get(path string) gjson.Result {
	if b.err != nil {
		return gjson.Result{}
	}
	return gjson.Get(b.str, path)
}

// String returns the document and the first build error
func (b Body) String() (string, error) {
	return b.str, b.err
}

// Err returns the first build error
func (b Body) Err() error {
	return b.err
}

// Res returns the document, or "" after a build error
func (b Body) Res() string {
	if b.err != nil {
		return ""
	}
	return b.str
}

// Bytes returns the document as bytes and the first build error
func (b Body) Bytes() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	return []byte(b.str), nil
}
