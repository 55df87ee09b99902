// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gnmi

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestRequestModifiers(t *testing.T) {
	tests := []struct {
		name string
		mods []func(*Req)
		want Req
	}{
		{name: "none", want: Req{}},
		{name: "timeout", mods: []func(*Req){Timeout(30 * time.Second)}, want: Req{Timeout: 30 * time.Second}},
		{name: "encoding", mods: []func(*Req){GetEncoding(EncodingJSON)}, want: Req{Encoding: EncodingJSON}},
		{name: "origin", mods: []func(*Req){Origin(OriginDME)}, want: Req{Origin: OriginDME}},
		{name: "data type", mods: []func(*Req){DataType(DataTypeConfig)}, want: Req{DataType: DataTypeConfig}},
		{
			name: "subscription",
			mods: []func(*Req){SubscriptionMode(SubscriptionModeSample), SampleInterval(5 * time.Second)},
			want: Req{SubscriptionMode: SubscriptionModeSample, SampleInterval: 5 * time.Second},
		},
		{
			name: "later modifier wins",
			mods: []func(*Req){GetEncoding(EncodingJSON), GetEncoding(EncodingProto), Origin("a"), Origin("b")},
			want: Req{Encoding: EncodingProto, Origin: "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Req
			for _, mod := range tt.mods {
				mod(&got)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Req mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSetEncodingModifier(t *testing.T) {
	op := SetOperation{Encoding: EncodingJSONIETF}
	SetEncoding(EncodingASCII)(&op)
	if op.Encoding != EncodingASCII {
		t.Errorf("Encoding = %q, want %q", op.Encoding, EncodingASCII)
	}
	SetEncoding("")(&op)
	if op.Encoding != EncodingASCII {
		t.Errorf("empty SetEncoding changed Encoding to %q", op.Encoding)
	}
}
