// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gnmi

import (
	gnmipb "github.com/openconfig/gnmi/proto/gnmi"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// GetRes is the result of a Get or GetCLI call
type GetRes struct {
	Notifications []*gnmipb.Notification

	// Timestamp is the first notification timestamp (ns since the epoch)
	Timestamp int64

	OK     bool
	Errors []ErrorModel
}

// Flatten reduces all notifications to leaf xpaths and their values.
//
// Example:
//
//	res, _ := client.Get(ctx, []string{"/interfaces/interface[name=eth0]/config"})
//	flat, err := res.Flatten(gnmi.DefaultFlattenOptions())
//	for _, e := range flat.Entries() {
//	    fmt.Println(e.Path, e.Value)
//	}
func (r GetRes) Flatten(opts FlattenOptions) (Flattened, error) {
	return flattenNotifications(r.Notifications, opts)
}

// GetValue queries the protobuf JSON of the response with a gjson path,
// e.g. "notification.0.update.0.path.elem.0.name"
func (r GetRes) GetValue(path string) gjson.Result {
	return gjsonQuery(r.JSON(), path)
}

// JSON renders the response as protobuf JSON, empty without notifications
func (r GetRes) JSON() string {
	if r.Notifications == nil {
		return ""
	}
	return protoListJSON("notification", notificationsAsProto(r.Notifications), r.Timestamp, r.OK)
}

// SetRes is the result of a Set call
type SetRes struct {
	Response *gnmipb.SetResponse

	// Timestamp is the response timestamp (ns since the epoch)
	Timestamp int64

	OK     bool
	Errors []ErrorModel
}

// GetValue queries the protobuf JSON of the response with a gjson path,
// e.g. "response.0.response.0.op"
func (r SetRes) GetValue(path string) gjson.Result {
	return gjsonQuery(r.JSON(), path)
}

// JSON renders the response as protobuf JSON, empty without response
func (r SetRes) JSON() string {
	if r.Response == nil {
		return ""
	}
	return protoListJSON("response", []proto.Message{r.Response}, r.Timestamp, r.OK)
}

// SubscribeRes is the result of a SubscribeOnce call: every response
// received up to sync_response
type SubscribeRes struct {
	Responses []*gnmipb.SubscribeResponse

	OK     bool
	Errors []ErrorModel
}

// Notifications returns the notifications of all update responses
func (r SubscribeRes) Notifications() []*gnmipb.Notification {
	var out []*gnmipb.Notification
	for _, resp := range r.Responses {
		if n := resp.GetUpdate(); n != nil {
			out = append(out, n)
		}
	}
	return out
}

// Flatten reduces all update responses to leaf xpaths and their values
func (r SubscribeRes) Flatten(opts FlattenOptions) (Flattened, error) {
	return flattenNotifications(r.Notifications(), opts)
}

// GetValue queries the protobuf JSON of the responses with a gjson path,
// e.g. "response.0.update.update.0.path"
func (r SubscribeRes) GetValue(path string) gjson.Result {
	return gjsonQuery(r.JSON(), path)
}

// JSON renders the responses as protobuf JSON, empty without responses
func (r SubscribeRes) JSON() string {
	if r.Responses == nil {
		return ""
	}
	msgs := make([]proto.Message, len(r.Responses))
	for i, resp := range r.Responses {
		msgs[i] = resp
	}
	return protoListJSON("response", msgs, 0, r.OK)
}

// CapabilitiesRes is the result of a Capabilities call
type CapabilitiesRes struct {
	Version string

	// Capabilities lists the supported encodings
	Capabilities []string

	Models []*gnmipb.ModelData

	OK     bool
	Errors []ErrorModel
}

func flattenNotifications(ns []*gnmipb.Notification, opts FlattenOptions) (Flattened, error) {
	out := Flattened{}
	for _, n := range ns {
		flat, err := FlattenNotification(n, opts)
		if err != nil {
			return nil, err
		}
		for k, v := range flat {
			out[k] = v
		}
	}
	return out, nil
}

func notificationsAsProto(ns []*gnmipb.Notification) []proto.Message {
	msgs := make([]proto.Message, len(ns))
	for i, n := range ns {
		msgs[i] = n
	}
	return msgs
}

// protoListJSON builds {"<field>":[...],"timestamp":n,"ok":b}; it returns
// an empty string if a message cannot be marshaled
func protoListJSON(field string, msgs []proto.Message, ts int64, ok bool) string {
	out := `{"` + field + `":[]}`
	for _, m := range msgs {
		raw, err := protojson.Marshal(m)
		if err != nil {
			return ""
		}
		if out, err = sjson.SetRaw(out, field+".-1", string(raw)); err != nil {
			return ""
		}
	}
	out, _ = sjson.Set(out, "timestamp", ts) //nolint:errcheck // static path
	out, _ = sjson.Set(out, "ok", ok)        //nolint:errcheck // static path
	return out
}

func gjsonQuery(doc, path string) gjson.Result {
	if doc == "" {
		return gjson.Result{}
	}
	return gjson.Get(doc, path)
}
