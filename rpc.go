// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gnmi

import (
	"context"
	"fmt"
	"slices"
	"strings"

	gnmipb "github.com/openconfig/gnmi/proto/gnmi"
	"github.com/tidwall/gjson"
)

// GetCLI runs CLI commands through Get. Each command becomes a single
// element path with the cli origin; replies are ASCII encoded.
//
// Example:
//
//	res, err := client.GetCLI(ctx, "show version")
func (c *Client) GetCLI(ctx context.Context, commands ...string) (GetRes, error) {
	if len(commands) == 0 {
		err := fmt.Errorf("commands cannot be empty")
		return GetRes{Errors: []ErrorModel{{Message: err.Error()}}}, fmt.Errorf("get cli: %w", err)
	}
	paths := make([]Path, 0, len(commands))
	for _, cmd := range commands {
		paths = append(paths, CLIPath(cmd))
	}
	return c.get(ctx, paths, &Req{Encoding: EncodingASCII})
}

// SetJSON applies full JSON configurations as updates and replaces.
//
// Every config is a JSON object with exactly one top level member. Without
// an Origin modifier or client default origin the member name must be
// module qualified, "module:element", and the module becomes the origin
// of the element path. The member value is sent json_ietf encoded unless
// GetEncoding selects json.
//
// Example:
//
//	res, err := client.SetJSON(ctx, []string{
//	    `{"openconfig-system:system": {"config": {"hostname": "r1"}}}`,
//	}, nil)
func (c *Client) SetJSON(ctx context.Context, updates, replaces []string, mods ...func(*Req)) (SetRes, error) {
	req := &Req{Encoding: EncodingJSONIETF}
	for _, mod := range mods {
		mod(req)
	}

	setReq, err := buildJSONSetRequest(updates, replaces, c.origin(req), req.Encoding)
	if err != nil {
		return SetRes{Errors: []ErrorModel{{Message: err.Error()}}}, fmt.Errorf("set json: %w", err)
	}
	for _, u := range slices.Concat(setReq.GetUpdate(), setReq.GetReplace()) {
		c.logger.Debug(ctx, "gNMI SetJSON config",
			"path", PathFromProto(u.GetPath()).String(),
			"value", c.prepareJSONForLogging(string(jsonBytes(u.GetVal()))))
	}
	return c.set(ctx, setReq, req)
}

// SetEdits translates an XML Path Language request and applies its edits.
//
// Update and replace fragments are consolidated into one update per list
// entry; deletes are sent as paths. The Origin modifier overrides the
// origin chosen by the translation.
//
// Example:
//
//	res, err := client.SetEdits(ctx, gnmi.XMLPathRequest{
//	    Namespace: map[string]string{"oc-sys": "http://openconfig.net/yang/system"},
//	    Nodes: []gnmi.XMLPathNode{
//	        {XPath: "/oc-sys:system/oc-sys:config/oc-sys:hostname", Value: "r1", EditOp: gnmi.EditOpMerge},
//	    },
//	})
func (c *Client) SetEdits(ctx context.Context, edits XMLPathRequest, mods ...func(*Req)) (SetRes, error) {
	req := &Req{Encoding: EncodingJSONIETF}
	for _, mod := range mods {
		mod(req)
	}

	msg, err := TranslateXMLPath(edits)
	if err != nil {
		return SetRes{Errors: []ErrorModel{{Message: err.Error()}}}, fmt.Errorf("set edits: %w", err)
	}
	if req.Origin != "" {
		msg.Origin = req.Origin
	}
	c.logger.Debug(ctx, "XML path edits translated",
		"origin", msg.Origin,
		"updates", len(msg.Update),
		"replaces", len(msg.Replace),
		"deletes", len(msg.Delete))

	setReq, err := buildEditsSetRequest(msg, req.Encoding != EncodingJSON)
	if err != nil {
		return SetRes{Errors: []ErrorModel{{Message: err.Error()}}}, fmt.Errorf("set edits: %w", err)
	}
	return c.set(ctx, setReq, req)
}

// DeleteXPaths deletes xpaths, each joined to prefix when one is given.
//
// Example:
//
//	res, err := client.DeleteXPaths(ctx, []string{"config/description"},
//	    "/interfaces/interface[name=eth0]")
func (c *Client) DeleteXPaths(ctx context.Context, xpaths []string, prefix string, mods ...func(*Req)) (SetRes, error) {
	req := &Req{}
	for _, mod := range mods {
		mod(req)
	}

	paths, err := deletePaths(xpaths, prefix, c.origin(req))
	if err != nil {
		return SetRes{Errors: []ErrorModel{{Message: err.Error()}}}, fmt.Errorf("delete xpaths: %w", err)
	}
	for _, p := range paths {
		c.logger.Debug(ctx, "gNMI delete path", "path", PathFromProto(p).String())
	}
	return c.set(ctx, &gnmipb.SetRequest{Delete: paths}, req)
}

// buildJSONSetRequest converts JSON configurations into a SetRequest
func buildJSONSetRequest(updates, replaces []string, origin, encoding string) (*gnmipb.SetRequest, error) {
	if len(updates) == 0 && len(replaces) == 0 {
		return nil, fmt.Errorf("at least one update or replace config is required")
	}
	setReq := &gnmipb.SetRequest{}
	for i, config := range updates {
		u, err := jsonConfigUpdate(config, origin, encoding)
		if err != nil {
			return nil, fmt.Errorf("update config %d: %w", i, err)
		}
		setReq.Update = append(setReq.Update, u)
	}
	for i, config := range replaces {
		u, err := jsonConfigUpdate(config, origin, encoding)
		if err != nil {
			return nil, fmt.Errorf("replace config %d: %w", i, err)
		}
		setReq.Replace = append(setReq.Replace, u)
	}
	return setReq, nil
}

// jsonConfigUpdate turns {"module:element": value} into an update of
// element with origin module
func jsonConfigUpdate(config, origin, encoding string) (*gnmipb.Update, error) {
	if encoding != EncodingJSON && encoding != EncodingJSONIETF {
		return nil, fmt.Errorf("encoding %s is not a JSON encoding", encoding)
	}
	if !gjson.Valid(config) {
		return nil, fmt.Errorf("config is invalid JSON")
	}
	doc := gjson.Parse(config)
	if !doc.IsObject() {
		return nil, fmt.Errorf("config must be a JSON object")
	}

	var top string
	var val gjson.Result
	members := 0
	doc.ForEach(func(k, v gjson.Result) bool {
		top, val = k.String(), v
		members++
		return true
	})
	if members != 1 {
		return nil, fmt.Errorf("config must target exactly one top level element, got %d", members)
	}

	module, element, qualified := strings.Cut(top, ":")
	switch {
	case !qualified && origin == "":
		return nil, fmt.Errorf("top level config element %s should be module prefixed", top)
	case !qualified:
		element = top
	case strings.Contains(element, ":") || module == "" || element == "":
		return nil, fmt.Errorf("top level config element %s appears malformed", top)
	case origin == "":
		origin = module
	}

	path, err := ParseXPath(element, origin)
	if err != nil {
		return nil, err
	}
	tv, err := typedValue([]byte(val.Raw), encoding)
	if err != nil {
		return nil, err
	}
	return &gnmipb.Update{Path: path.Proto(), Val: tv}, nil
}

// buildEditsSetRequest consolidates translated edits into a SetRequest
func buildEditsSetRequest(msg XMLPathMessage, ietf bool) (*gnmipb.SetRequest, error) {
	if len(msg.Update) == 0 && len(msg.Replace) == 0 && len(msg.Delete) == 0 {
		return nil, fmt.Errorf("request contains no edits")
	}

	setReq := &gnmipb.SetRequest{}
	var err error
	if setReq.Update, err = consolidateUpdates(msg.Update, msg.Origin, ietf); err != nil {
		return nil, err
	}
	if setReq.Replace, err = consolidateUpdates(msg.Replace, msg.Origin, ietf); err != nil {
		return nil, err
	}
	for _, xpath := range msg.Delete {
		p, err := ParseXPath(xpath, msg.Origin)
		if err != nil {
			return nil, err
		}
		setReq.Delete = append(setReq.Delete, p.Proto())
	}
	return setReq, nil
}

func consolidateUpdates(fragments []ConfigFragment, origin string, ietf bool) ([]*gnmipb.Update, error) {
	if len(fragments) == 0 {
		return nil, nil
	}
	payloads, err := Consolidate(fragments)
	if err != nil {
		return nil, err
	}
	return BuildUpdates(payloads, origin, ietf)
}

// deletePaths joins xpaths to prefix and parses them
func deletePaths(xpaths []string, prefix, origin string) ([]*gnmipb.Path, error) {
	if len(xpaths) == 0 {
		return nil, fmt.Errorf("xpaths cannot be empty")
	}
	paths := make([]*gnmipb.Path, 0, len(xpaths))
	for i, xpath := range xpaths {
		full := joinXPath(prefix, xpath)
		if err := checkPathSecurity(full); err != nil {
			return nil, fmt.Errorf("xpath at index %d: %w", i, err)
		}
		p, err := ParsePath(full, origin)
		if err != nil {
			return nil, fmt.Errorf("xpath at index %d: %w", i, err)
		}
		paths = append(paths, p.Proto())
	}
	return paths, nil
}

// jsonBytes returns the JSON payload of a typed value, if any
func jsonBytes(tv *gnmipb.TypedValue) []byte {
	if b := tv.GetJsonIetfVal(); b != nil {
		return b
	}
	return tv.GetJsonVal()
}
