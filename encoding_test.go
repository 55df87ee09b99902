// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gnmi

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	gnmipb "github.com/openconfig/gnmi/proto/gnmi"
	"google.golang.org/protobuf/testing/protocmp"
)

func TestValidateEncoding(t *testing.T) {
	for _, enc := range ValidEncodings {
		if err := ValidateEncoding(enc); err != nil {
			t.Errorf("ValidateEncoding(%q) error = %v", enc, err)
		}
	}
	for _, enc := range []string{"", "xml", "JSON-IETF"} {
		err := ValidateEncoding(enc)
		if err == nil {
			t.Errorf("ValidateEncoding(%q) expected error", enc)
			continue
		}
		if !strings.Contains(err.Error(), "valid values: json, json_ietf, proto, ascii, bytes") {
			t.Errorf("ValidateEncoding(%q) error = %q, want list of valid values", enc, err)
		}
	}
}

func TestEncodingEnum(t *testing.T) {
	tests := map[string]gnmipb.Encoding{
		EncodingJSON:     gnmipb.Encoding_JSON,
		EncodingJSONIETF: gnmipb.Encoding_JSON_IETF,
		EncodingProto:    gnmipb.Encoding_PROTO,
		EncodingASCII:    gnmipb.Encoding_ASCII,
		EncodingBytes:    gnmipb.Encoding_BYTES,
	}
	for in, want := range tests {
		got, err := encodingEnum(in)
		if err != nil || got != want {
			t.Errorf("encodingEnum(%q) = (%v, %v), want %v", in, got, err, want)
		}
	}
}

func TestDataTypeEnum(t *testing.T) {
	tests := map[string]gnmipb.GetRequest_DataType{
		"":                  gnmipb.GetRequest_ALL,
		DataTypeAll:         gnmipb.GetRequest_ALL,
		DataTypeConfig:      gnmipb.GetRequest_CONFIG,
		DataTypeState:       gnmipb.GetRequest_STATE,
		DataTypeOperational: gnmipb.GetRequest_OPERATIONAL,
	}
	for in, want := range tests {
		got, err := dataTypeEnum(in)
		if err != nil || got != want {
			t.Errorf("dataTypeEnum(%q) = (%v, %v), want %v", in, got, err, want)
		}
	}
	if _, err := dataTypeEnum("running"); err == nil {
		t.Error("dataTypeEnum(running) expected error")
	}
}

func TestSubscriptionModeEnum(t *testing.T) {
	tests := map[string]gnmipb.SubscriptionMode{
		"":                            gnmipb.SubscriptionMode_TARGET_DEFINED,
		SubscriptionModeTargetDefined: gnmipb.SubscriptionMode_TARGET_DEFINED,
		SubscriptionModeOnChange:      gnmipb.SubscriptionMode_ON_CHANGE,
		SubscriptionModeSample:        gnmipb.SubscriptionMode_SAMPLE,
	}
	for in, want := range tests {
		got, err := subscriptionModeEnum(in)
		if err != nil || got != want {
			t.Errorf("subscriptionModeEnum(%q) = (%v, %v), want %v", in, got, err, want)
		}
	}
	if _, err := subscriptionModeEnum("poll"); err == nil {
		t.Error("subscriptionModeEnum(poll) expected error")
	}
}

func TestTypedValue(t *testing.T) {
	tests := []struct {
		enc  string
		want *gnmipb.TypedValue
	}{
		{EncodingJSON, &gnmipb.TypedValue{Value: &gnmipb.TypedValue_JsonVal{JsonVal: []byte(`{"a":1}`)}}},
		{EncodingJSONIETF, &gnmipb.TypedValue{Value: &gnmipb.TypedValue_JsonIetfVal{JsonIetfVal: []byte(`{"a":1}`)}}},
		{"", &gnmipb.TypedValue{Value: &gnmipb.TypedValue_JsonIetfVal{JsonIetfVal: []byte(`{"a":1}`)}}},
		{EncodingProto, &gnmipb.TypedValue{Value: &gnmipb.TypedValue_ProtoBytes{ProtoBytes: []byte(`{"a":1}`)}}},
		{EncodingASCII, &gnmipb.TypedValue{Value: &gnmipb.TypedValue_AsciiVal{AsciiVal: `{"a":1}`}}},
		{EncodingBytes, &gnmipb.TypedValue{Value: &gnmipb.TypedValue_BytesVal{BytesVal: []byte(`{"a":1}`)}}},
	}
	for _, tt := range tests {
		t.Run(tt.enc, func(t *testing.T) {
			got, err := typedValue([]byte(`{"a":1}`), tt.enc)
			if err != nil {
				t.Fatalf("typedValue() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got, protocmp.Transform()); diff != "" {
				t.Errorf("typedValue() mismatch (-want +got):\n%s", diff)
			}
		})
	}
	if _, err := typedValue(nil, "xml"); err == nil {
		t.Error("typedValue(xml) expected error")
	}
}
