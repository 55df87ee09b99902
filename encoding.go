// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gnmi

import (
	"fmt"
	"strings"

	gnmipb "github.com/openconfig/gnmi/proto/gnmi"
)

// Encoding constants for gNMI operations
const (
	// EncodingJSON uses standard JSON encoding
	EncodingJSON = "json"

	// EncodingJSONIETF uses JSON encoding with IETF conventions (default)
	EncodingJSONIETF = "json_ietf"

	// EncodingProto uses Protocol Buffer encoding
	EncodingProto = "proto"

	// EncodingASCII uses ASCII encoding
	EncodingASCII = "ascii"

	// EncodingBytes uses raw byte encoding
	EncodingBytes = "bytes"
)

// ValidEncodings contains the list of valid encoding values
var ValidEncodings = []string{
	EncodingJSON,
	EncodingJSONIETF,
	EncodingProto,
	EncodingASCII,
	EncodingBytes,
}

// ValidateEncoding checks if the encoding is valid
func ValidateEncoding(enc string) error {
	if _, err := encodingEnum(enc); err != nil {
		return err
	}
	return nil
}

// encodingEnum maps an encoding name to its gNMI enum value
func encodingEnum(enc string) (gnmipb.Encoding, error) {
	if v, ok := gnmipb.Encoding_value[strings.ToUpper(enc)]; ok && enc != "" {
		return gnmipb.Encoding(v), nil
	}
	return 0, fmt.Errorf("invalid encoding: %s (valid values: %s)", enc, strings.Join(ValidEncodings, ", "))
}

// dataTypeEnum maps a Get data type to its gNMI enum value, empty being all
func dataTypeEnum(dt string) (gnmipb.GetRequest_DataType, error) {
	if dt == "" {
		return gnmipb.GetRequest_ALL, nil
	}
	if v, ok := gnmipb.GetRequest_DataType_value[strings.ToUpper(dt)]; ok {
		return gnmipb.GetRequest_DataType(v), nil
	}
	return 0, fmt.Errorf("invalid data type: %s (valid values: all, config, state, operational)", dt)
}

// subscriptionModeEnum maps a stream subscription mode to its gNMI enum value
func subscriptionModeEnum(mode string) (gnmipb.SubscriptionMode, error) {
	if mode == "" {
		return gnmipb.SubscriptionMode_TARGET_DEFINED, nil
	}
	if v, ok := gnmipb.SubscriptionMode_value[strings.ToUpper(mode)]; ok {
		return gnmipb.SubscriptionMode(v), nil
	}
	return 0, fmt.Errorf("invalid subscription mode: %s (valid values: target_defined, on_change, sample)", mode)
}

// typedValue wraps an encoded value in the TypedValue field matching enc
func typedValue(value []byte, enc string) (*gnmipb.TypedValue, error) {
	switch enc {
	case EncodingJSON:
		return &gnmipb.TypedValue{Value: &gnmipb.TypedValue_JsonVal{JsonVal: value}}, nil
	case EncodingJSONIETF, "":
		return &gnmipb.TypedValue{Value: &gnmipb.TypedValue_JsonIetfVal{JsonIetfVal: value}}, nil
	case EncodingProto:
		return &gnmipb.TypedValue{Value: &gnmipb.TypedValue_ProtoBytes{ProtoBytes: value}}, nil
	case EncodingASCII:
		return &gnmipb.TypedValue{Value: &gnmipb.TypedValue_AsciiVal{AsciiVal: string(value)}}, nil
	case EncodingBytes:
		return &gnmipb.TypedValue{Value: &gnmipb.TypedValue_BytesVal{BytesVal: value}}, nil
	}
	return nil, fmt.Errorf("invalid encoding: %s", enc)
}
