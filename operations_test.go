// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gnmi

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	gnmipb "github.com/openconfig/gnmi/proto/gnmi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/testing/protocmp"
)

func TestSetOperationHelpers(t *testing.T) {
	tests := []struct {
		name string
		got  SetOperation
		want SetOperation
	}{
		{
			name: "update default encoding",
			got:  Update("/system/config", `{"hostname": "r1"}`),
			want: SetOperation{OperationType: OperationUpdate, Path: "/system/config", Value: `{"hostname": "r1"}`, Encoding: EncodingJSONIETF},
		},
		{
			name: "update explicit encoding",
			got:  Update("/system/config", `{"hostname": "r1"}`, SetEncoding(EncodingJSON)),
			want: SetOperation{OperationType: OperationUpdate, Path: "/system/config", Value: `{"hostname": "r1"}`, Encoding: EncodingJSON},
		},
		{
			name: "update empty encoding keeps default",
			got:  Update("/system/config", `{}`, SetEncoding("")),
			want: SetOperation{OperationType: OperationUpdate, Path: "/system/config", Value: `{}`, Encoding: EncodingJSONIETF},
		},
		{
			name: "replace",
			got:  Replace("/interfaces/interface[name=Gi0]/config", `{"mtu": 9000}`),
			want: SetOperation{OperationType: OperationReplace, Path: "/interfaces/interface[name=Gi0]/config", Value: `{"mtu": 9000}`, Encoding: EncodingJSONIETF},
		},
		{
			name: "delete",
			got:  Delete("/interfaces/interface[name=Gi0/0/0/1]/config"),
			want: SetOperation{OperationType: OperationDelete, Path: "/interfaces/interface[name=Gi0/0/0/1]/config"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.got); diff != "" {
				t.Errorf("operation mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseRequestPaths(t *testing.T) {
	paths, err := parseRequestPaths([]string{
		"/system/config",
		"openconfig:/interfaces/interface[name=eth0]",
	}, "")
	if err != nil {
		t.Fatalf("parseRequestPaths() error = %v", err)
	}
	if got := paths[0].String(); got != "/system/config" {
		t.Errorf("paths[0] = %q", got)
	}
	if paths[1].Origin != OriginOpenConfig {
		t.Errorf("paths[1].Origin = %q, want %q", paths[1].Origin, OriginOpenConfig)
	}

	dn, err := parseRequestPaths([]string{"sys/intf/phys[id=eth1/1]"}, OriginDME)
	if err != nil {
		t.Fatalf("parseRequestPaths() DN error = %v", err)
	}
	if dn[0].Origin != OriginDME {
		t.Errorf("DN origin = %q, want %q", dn[0].Origin, OriginDME)
	}
}

func TestParseRequestPathsErrors(t *testing.T) {
	tests := []struct {
		name    string
		paths   []string
		wantErr string
	}{
		{name: "nil paths", paths: nil, wantErr: "paths cannot be empty"},
		{name: "empty path", paths: []string{"/a", ""}, wantErr: "path at index 1: path cannot be empty"},
		{name: "relative path", paths: []string{"system/config"}, wantErr: "must start with '/'"},
		{name: "null byte", paths: []string{"/system\x00/config"}, wantErr: "null byte at position 7"},
		{name: "traversal", paths: []string{"/system/../etc"}, wantErr: "traversal pattern '/../' at position 7"},
		{name: "too long", paths: []string{"/" + strings.Repeat("a", MaxPathLength)}, wantErr: "exceeds maximum length"},
		{name: "malformed", paths: []string{"/a[k"}, wantErr: "malformed path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseRequestPaths(tt.paths, "")
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("parseRequestPaths() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseRequestPathsMalformedIsClassified(t *testing.T) {
	_, err := parseRequestPaths([]string{"/a//b"}, "")
	if !errors.Is(err, ErrMalformedPath) {
		t.Errorf("error = %v, want ErrMalformedPath", err)
	}
	var pathErr *PathError
	if !errors.As(err, &pathErr) || pathErr.Path != "/a//b" {
		t.Errorf("errors.As(*PathError) = %v", pathErr)
	}
}

func TestIsValidGNMIPath(t *testing.T) {
	tests := map[string]bool{
		"":                         false,
		"/":                        true,
		"/system/config":           true,
		"openconfig:/system":       true,
		"openconfig-system:system": false,
		"system/config":            false,
		":/system":                 false,
	}
	for path, want := range tests {
		if got := isValidGNMIPath(path); got != want {
			t.Errorf("isValidGNMIPath(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestTruncatePath(t *testing.T) {
	short := "/system/config"
	if got := truncatePath(short); got != short {
		t.Errorf("truncatePath(short) = %q", got)
	}
	long := "/" + strings.Repeat("x", 150)
	got := truncatePath(long)
	if len(got) != 103 || !strings.HasSuffix(got, "...") {
		t.Errorf("truncatePath(long) = %q (len %d)", got, len(got))
	}
}

func TestValidateValue(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		encoding string
		wantErr  string
	}{
		{name: "valid json", value: `{"a": 1}`, encoding: EncodingJSON},
		{name: "valid scalar", value: `"up"`, encoding: EncodingJSONIETF},
		{name: "empty value", value: "", encoding: EncodingJSONIETF},
		{name: "invalid json", value: `{"a": }`, encoding: EncodingJSONIETF, wantErr: "invalid JSON syntax"},
		{name: "default encoding checks json", value: `{`, encoding: "", wantErr: "invalid JSON syntax"},
		{name: "ascii is not json", value: `hostname r1`, encoding: EncodingASCII},
		{name: "too large", value: strings.Repeat("a", MaxValueSize+1), encoding: EncodingBytes, wantErr: "value size exceeds maximum"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateValue(tt.value, tt.encoding)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("validateValue() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("validateValue() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestBuildSetRequest(t *testing.T) {
	got, err := buildSetRequest([]SetOperation{
		Update("/system/config", `{"hostname": "r1"}`),
		Replace("/interfaces/interface[name=eth0]/config", `{"mtu": 9000}`, SetEncoding(EncodingJSON)),
		Delete("/interfaces/interface[name=eth1]"),
	}, OriginOpenConfig)
	if err != nil {
		t.Fatalf("buildSetRequest() error = %v", err)
	}

	want := &gnmipb.SetRequest{
		Update: []*gnmipb.Update{{
			Path: &gnmipb.Path{Origin: OriginOpenConfig, Elem: []*gnmipb.PathElem{{Name: "system"}, {Name: "config"}}},
			Val:  &gnmipb.TypedValue{Value: &gnmipb.TypedValue_JsonIetfVal{JsonIetfVal: []byte(`{"hostname": "r1"}`)}},
		}},
		Replace: []*gnmipb.Update{{
			Path: &gnmipb.Path{Origin: OriginOpenConfig, Elem: []*gnmipb.PathElem{
				{Name: "interfaces"},
				{Name: "interface", Key: map[string]string{"name": "eth0"}},
				{Name: "config"},
			}},
			Val: &gnmipb.TypedValue{Value: &gnmipb.TypedValue_JsonVal{JsonVal: []byte(`{"mtu": 9000}`)}},
		}},
		Delete: []*gnmipb.Path{{Origin: OriginOpenConfig, Elem: []*gnmipb.PathElem{
			{Name: "interfaces"},
			{Name: "interface", Key: map[string]string{"name": "eth1"}},
		}}},
	}
	if diff := cmp.Diff(want, got, protocmp.Transform()); diff != "" {
		t.Errorf("buildSetRequest() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildSetRequestErrors(t *testing.T) {
	tests := []struct {
		name    string
		ops     []SetOperation
		wantErr string
	}{
		{name: "no operations", ops: nil, wantErr: "operations cannot be empty"},
		{
			name:    "empty type",
			ops:     []SetOperation{{Path: "/system", Value: "{}"}},
			wantErr: "operation type cannot be empty (at index 0)",
		},
		{
			name:    "invalid type",
			ops:     []SetOperation{Delete("/a"), {OperationType: "merge", Path: "/system", Value: "{}"}},
			wantErr: "operation type invalid: merge",
		},
		{
			name:    "invalid encoding",
			ops:     []SetOperation{Update("/system", "{}", SetEncoding("xml"))},
			wantErr: "operation at index 0: invalid encoding",
		},
		{
			name:    "invalid json",
			ops:     []SetOperation{Update("/system", `{"a":`)},
			wantErr: "operation at index 0: invalid JSON syntax",
		},
		{
			name:    "relative path",
			ops:     []SetOperation{Update("system", `{}`)},
			wantErr: "operation at index 0: path must start with '/'",
		},
		{
			name:    "traversal",
			ops:     []SetOperation{Delete("/a/../b")},
			wantErr: "traversal pattern",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildSetRequest(tt.ops, "")
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("buildSetRequest() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestBuildGetRequest(t *testing.T) {
	paths, err := parseRequestPaths([]string{"/system/state"}, OriginOpenConfig)
	if err != nil {
		t.Fatal(err)
	}
	got, err := buildGetRequest(paths, &Req{Encoding: EncodingJSON, DataType: DataTypeState})
	if err != nil {
		t.Fatalf("buildGetRequest() error = %v", err)
	}
	want := &gnmipb.GetRequest{
		Path: []*gnmipb.Path{{
			Origin: OriginOpenConfig,
			Elem:   []*gnmipb.PathElem{{Name: "system"}, {Name: "state"}},
		}},
		Type:     gnmipb.GetRequest_STATE,
		Encoding: gnmipb.Encoding_JSON,
	}
	if diff := cmp.Diff(want, got, protocmp.Transform()); diff != "" {
		t.Errorf("buildGetRequest() mismatch (-want +got):\n%s", diff)
	}

	if _, err := buildGetRequest(paths, &Req{Encoding: "xml"}); err == nil {
		t.Error("buildGetRequest() with invalid encoding expected error")
	}
	if _, err := buildGetRequest(paths, &Req{Encoding: EncodingJSON, DataType: "running"}); err == nil {
		t.Error("buildGetRequest() with invalid data type expected error")
	}
}

func TestGetValidation(t *testing.T) {
	client := newOfflineClient()

	tests := []struct {
		name    string
		paths   []string
		mods    []func(*Req)
		wantErr string
	}{
		{name: "nil paths", paths: nil, wantErr: "get: paths cannot be empty"},
		{name: "invalid encoding", paths: []string{"/system"}, mods: []func(*Req){GetEncoding("xml")}, wantErr: "invalid encoding"},
		{name: "invalid data type", paths: []string{"/system"}, mods: []func(*Req){DataType("running")}, wantErr: "invalid data type"},
		{name: "not connected", paths: []string{"/system"}, wantErr: "get: connection failed: client not connected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := client.Get(context.Background(), tt.paths, tt.mods...)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Get() error = %v, want it to contain %q", err, tt.wantErr)
			}
			if res.OK {
				t.Error("Get() res.OK = true, want false")
			}
			if len(res.Errors) == 0 {
				t.Error("Get() res.Errors is empty")
			}
		})
	}
}

func TestSetValidation(t *testing.T) {
	client := newOfflineClient()

	tests := []struct {
		name    string
		ops     []SetOperation
		wantErr string
	}{
		{name: "no operations", ops: nil, wantErr: "set: operations cannot be empty"},
		{name: "invalid json", ops: []SetOperation{Update("/system", `{`)}, wantErr: "invalid JSON syntax"},
		{name: "not connected", ops: []SetOperation{Delete("/system/config/motd")}, wantErr: "set: connection failed: client not connected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := client.Set(context.Background(), tt.ops)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Set() error = %v, want it to contain %q", err, tt.wantErr)
			}
			if res.OK {
				t.Error("Set() res.OK = true, want false")
			}
		})
	}
}

func TestOperationsCanceledContext(t *testing.T) {
	client := newOfflineClient()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.Get(ctx, []string{"/system"}); !errors.Is(err, context.Canceled) {
		t.Errorf("Get() error = %v, want context.Canceled", err)
	}
	if _, err := client.Set(ctx, []SetOperation{Delete("/system")}); !errors.Is(err, context.Canceled) {
		t.Errorf("Set() error = %v, want context.Canceled", err)
	}
	if _, err := client.Capabilities(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Capabilities() error = %v, want context.Canceled", err)
	}
}

func TestCheckContextCancellation(t *testing.T) {
	if err := checkContextCancellation(context.Background()); err != nil {
		t.Errorf("checkContextCancellation() = %v, want nil", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := checkContextCancellation(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("checkContextCancellation() = %v, want context.Canceled", err)
	}

	ctx, cancel = context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	if err := checkContextCancellation(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("checkContextCancellation() = %v, want context.DeadlineExceeded", err)
	}
}

func TestCreateAttemptContext(t *testing.T) {
	client := newOfflineClient()
	client.OperationTimeout = 5 * time.Second

	tests := []struct {
		name           string
		req            *Req
		ctxTimeout     time.Duration
		callerDeadline bool
		want           time.Duration
	}{
		{name: "request timeout", req: &Req{Timeout: 10 * time.Second}, want: 10 * time.Second},
		{name: "request timeout overrides deadline", req: &Req{Timeout: 2 * time.Second}, ctxTimeout: 30 * time.Second, callerDeadline: true, want: 2 * time.Second},
		{name: "caller deadline", req: &Req{}, ctxTimeout: 30 * time.Second, callerDeadline: true, want: 30 * time.Second},
		{name: "budget deadline uses operation timeout", req: &Req{}, ctxTimeout: 30 * time.Second, want: 5 * time.Second},
		{name: "client default", req: &Req{}, want: 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.ctxTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, tt.ctxTimeout)
				t.Cleanup(cancel)
			}

			attemptCtx, cancel := client.createAttemptContext(ctx, tt.req, tt.callerDeadline)
			t.Cleanup(cancel)

			deadline, ok := attemptCtx.Deadline()
			if !ok {
				t.Fatal("createAttemptContext() has no deadline")
			}
			remaining := time.Until(deadline)
			if remaining < tt.want-200*time.Millisecond || remaining > tt.want {
				t.Errorf("remaining = %v, want ~%v", remaining, tt.want)
			}
		})
	}
}

func TestCalculateTotalTimeout(t *testing.T) {
	tests := []struct {
		name       string
		maxRetries int
		min        time.Duration
		max        time.Duration
	}{
		// OperationTimeout 10s plus the backoffs 1s, 2s, 4s with up to 10% jitter each
		{name: "no retries", maxRetries: 0, min: 11 * time.Second, max: 11100 * time.Millisecond},
		{name: "two retries", maxRetries: 2, min: 17 * time.Second, max: 17700 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &Client{
				OperationTimeout:   10 * time.Second,
				MaxRetries:         tt.maxRetries,
				BackoffMinDelay:    time.Second,
				BackoffMaxDelay:    time.Minute,
				BackoffDelayFactor: 2,
				logger:             &NoOpLogger{},
			}
			got := client.calculateTotalTimeout()
			if got < tt.min || got > tt.max {
				t.Errorf("calculateTotalTimeout() = %v, want within [%v, %v]", got, tt.min, tt.max)
			}
		})
	}
}

func TestExtractErrorDetails(t *testing.T) {
	client := newOfflineClient()

	tests := []struct {
		name string
		err  error
		want []ErrorModel
	}{
		{name: "nil", err: nil, want: nil},
		{
			name: "grpc status",
			err:  status.Error(codes.Unavailable, "device unreachable"),
			want: []ErrorModel{{
				Code:    uint32(codes.Unavailable),
				Message: "device unreachable",
				Details: "rpc error: code = Unavailable desc = device unreachable",
			}},
		},
		{
			name: "plain error",
			err:  fmt.Errorf("dial failed"),
			want: []ErrorModel{{Message: "dial failed"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, client.extractErrorDetails(tt.err)); diff != "" {
				t.Errorf("extractErrorDetails() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCheckPathSecurity(t *testing.T) {
	tests := []struct {
		path    string
		wantErr bool
	}{
		{path: "/interfaces/interface[name=Gi0/0/0/0]/config", wantErr: false},
		{path: "/a/..b/c", wantErr: false},
		{path: "/a/../b", wantErr: true},
		{path: "/a\x00", wantErr: true},
	}
	for _, tt := range tests {
		if err := checkPathSecurity(tt.path); (err != nil) != tt.wantErr {
			t.Errorf("checkPathSecurity(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
		}
	}
}

func TestGetNoGoroutineLeak(t *testing.T) {
	client := newOfflineClient()

	before := runtime.NumGoroutine()
	for range 10 {
		_, _ = client.Get(context.Background(), []string{"/interfaces"})                   //nolint:errcheck // fails offline
		_, _ = client.Set(context.Background(), []SetOperation{Delete("/interfaces/x")}) //nolint:errcheck // fails offline
	}
	time.Sleep(100 * time.Millisecond)
	runtime.GC()

	if after := runtime.NumGoroutine(); after > before+2 {
		t.Errorf("goroutine leak detected: before=%d, after=%d", before, after)
	}
}
