// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gnmi

import (
	"strings"
	"testing"
)

func TestBodySet(t *testing.T) {
	tests := []struct {
		name string
		body Body
		want string
	}{
		{
			name: "nested members",
			body: Body{}.Set("config.name", "eth0").Set("config.mtu", 9000).Set("config.enabled", true),
			want: `{"config":{"name":"eth0","mtu":9000,"enabled":true}}`,
		},
		{
			name: "overwrite",
			body: Body{}.Set("hostname", "r1").Set("hostname", "r2"),
			want: `{"hostname":"r2"}`,
		},
		{
			name: "array append",
			body: Body{}.SetRaw("servers", `["10.0.0.1"]`).Set("servers.-1", "10.0.0.2"),
			want: `{"servers":["10.0.0.1","10.0.0.2"]}`,
		},
		{
			name: "raw value",
			body: Body{}.SetRaw("config", `{"mtu":1500}`),
			want: `{"config":{"mtu":1500}}`,
		},
		{
			name: "delete",
			body: Body{}.Set("a", 1).Set("b", 2).Delete("a"),
			want: `{"b":2}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.body.String()
			if err != nil {
				t.Fatalf("String() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("String() = %s, want %s", got, tt.want)
			}
			if tt.body.Res() != tt.want {
				t.Errorf("Res() = %s, want %s", tt.body.Res(), tt.want)
			}
		})
	}
}

func TestBodyGet(t *testing.T) {
	body := Body{}.Set("config.mtu", 9000).Set("config.name", "eth0")
	if got := body.Get("config.mtu").Int(); got != 9000 {
		t.Errorf("Get(config.mtu) = %d", got)
	}
	if got := body.Get("config.name").String(); got != "eth0" {
		t.Errorf("Get(config.name) = %q", got)
	}
	if body.Get("config.missing").Exists() {
		t.Error("Get(config.missing) exists")
	}
}

func TestBodyImmutability(t *testing.T) {
	base := Body{}.Set("a", 1)
	derived := base.Set("b", 2)

	if got := base.Res(); got != `{"a":1}` {
		t.Errorf("base = %s, want unchanged", got)
	}
	if got := derived.Res(); got != `{"a":1,"b":2}` {
		t.Errorf("derived = %s", got)
	}
}

func TestBodyErrorPropagation(t *testing.T) {
	tests := []struct {
		name    string
		body    Body
		wantErr string
	}{
		{name: "invalid raw", body: Body{}.SetRaw("a", `{"x":`), wantErr: `SetRaw("a"): invalid JSON`},
		{name: "empty set path", body: Body{}.Set("", 1), wantErr: `Set("")`},
		{name: "error kept through chain", body: Body{}.SetRaw("a", "not json").Set("b", 1).Delete("b"), wantErr: `SetRaw("a")`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.body.Err()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Err() = %v, want it to contain %q", err, tt.wantErr)
			}
			if tt.body.Res() != "" {
				t.Errorf("Res() = %q, want empty after error", tt.body.Res())
			}
			if b, err := tt.body.Bytes(); b != nil || err == nil {
				t.Errorf("Bytes() = (%q, %v), want (nil, error)", b, err)
			}
			if tt.body.Get("b").Exists() {
				t.Error("Get() after error returned a value")
			}
		})
	}
}

func TestBodyBytes(t *testing.T) {
	got, err := Body{}.Set("hostname", "r1").Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	if string(got) != `{"hostname":"r1"}` {
		t.Errorf("Bytes() = %s", got)
	}

	empty, err := Body{}.Bytes()
	if err != nil || len(empty) != 0 {
		t.Errorf("empty Bytes() = (%q, %v)", empty, err)
	}
}
