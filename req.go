// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gnmi

import "time"

// Req holds the per-request settings applied by request modifiers.
// Paths and operations are passed to the client methods directly.
//
// Example:
//
//	res, err := client.Get(ctx, []string{"sys/intf/phys[id=eth1/1]"},
//	    gnmi.Origin(gnmi.OriginDME),
//	    gnmi.DataType(gnmi.DataTypeConfig),
//	    gnmi.Timeout(30*time.Second))
type Req struct {
	// Encoding is the data encoding: json, json_ietf (default), proto,
	// ascii or bytes
	Encoding string

	// Timeout overrides the client operation timeout for one attempt
	Timeout time.Duration

	// Origin is the path origin. It also selects the path dialect: DME
	// paths are parsed as distinguished names, all others as XPath.
	Origin string

	// DataType restricts Get to all (default), config, state or operational
	DataType string

	// SubscriptionMode is on_change, sample or target_defined (default),
	// used by SubscribeStream
	SubscriptionMode string

	// SampleInterval is the sample period of sample subscriptions
	SampleInterval time.Duration
}

// Get data types
const (
	DataTypeAll         = "all"
	DataTypeConfig      = "config"
	DataTypeState       = "state"
	DataTypeOperational = "operational"
)

// Stream subscription modes
const (
	SubscriptionModeTargetDefined = "target_defined"
	SubscriptionModeOnChange      = "on_change"
	SubscriptionModeSample        = "sample"
)

// SetOperationType is the kind of a Set operation
type SetOperationType string

const (
	// OperationUpdate merges the value into existing configuration
	OperationUpdate SetOperationType = "update"

	// OperationReplace replaces the configuration at the path
	OperationReplace SetOperationType = "replace"

	// OperationDelete removes the configuration at the path
	OperationDelete SetOperationType = "delete"
)

// SetOperation is one update, replace or delete of a Set request
type SetOperation struct {
	OperationType SetOperationType

	// Path is parsed with ParsePath using the request origin
	Path string

	// Value is the encoded value, empty for deletes
	Value string

	// Encoding of Value: json, json_ietf (default), proto, ascii or bytes
	Encoding string
}
