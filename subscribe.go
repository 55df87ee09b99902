// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gnmi

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	gnmipb "github.com/openconfig/gnmi/proto/gnmi"
	target "github.com/openconfig/gnmic/pkg/api/target"
)

// DefaultSampleInterval applies to sample subscriptions without a
// SampleInterval modifier
const DefaultSampleInterval = 10 * time.Second

// streamSeq numbers stream subscriptions so each registers under its own
// name on the target
var streamSeq atomic.Uint64

func streamName(addr string) string {
	return fmt.Sprintf("%s/stream-%d", addr, streamSeq.Add(1))
}

// buildSubscribeRequest creates a subscription list for paths. Stream
// subscriptions carry the mode and sample interval of req.
func buildSubscribeRequest(paths []Path, req *Req, listMode gnmipb.SubscriptionList_Mode) (*gnmipb.SubscribeRequest, error) {
	enc, err := encodingEnum(req.Encoding)
	if err != nil {
		return nil, err
	}
	mode, err := subscriptionModeEnum(req.SubscriptionMode)
	if err != nil {
		return nil, err
	}
	if req.SampleInterval < 0 {
		return nil, fmt.Errorf("sample interval must not be negative, got: %v", req.SampleInterval)
	}

	list := &gnmipb.SubscriptionList{Mode: listMode, Encoding: enc}
	for _, p := range paths {
		sub := &gnmipb.Subscription{Path: p.Proto()}
		if listMode == gnmipb.SubscriptionList_STREAM {
			sub.Mode = mode
			if mode == gnmipb.SubscriptionMode_SAMPLE {
				interval := req.SampleInterval
				if interval == 0 {
					interval = DefaultSampleInterval
				}
				sub.SampleInterval = uint64(interval.Nanoseconds()) //nolint:gosec // G115: checked non-negative
			}
		}
		list.Subscription = append(list.Subscription, sub)
	}
	return &gnmipb.SubscribeRequest{
		Request: &gnmipb.SubscribeRequest_Subscribe{Subscribe: list},
	}, nil
}

// SubscribeOnce runs a ONCE subscription and collects every response up to
// sync_response. It retries like Get.
//
// Example:
//
//	res, err := client.SubscribeOnce(ctx, []string{"/system/state"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	flat, _ := res.Flatten(gnmi.DefaultFlattenOptions())
func (c *Client) SubscribeOnce(ctx context.Context, paths []string, mods ...func(*Req)) (SubscribeRes, error) {
	req := &Req{Encoding: EncodingJSONIETF}
	for _, mod := range mods {
		mod(req)
	}

	subReq, err := c.subscribeRequest(paths, req, gnmipb.SubscriptionList_ONCE)
	if err != nil {
		return SubscribeRes{Errors: []ErrorModel{{Message: err.Error()}}}, fmt.Errorf("subscribe once: %w", err)
	}
	c.logger.Debug(ctx, "gNMI SubscribeOnce request",
		"target", c.Target,
		"paths", len(paths),
		"encoding", req.Encoding)

	var responses []*gnmipb.SubscribeResponse
	errs, err := c.execute(ctx, "subscribe once", req, false, func(ctx context.Context, t *target.Target) error {
		rs, err := t.SubscribeOnce(ctx, subReq)
		responses = rs
		return err
	})
	if err != nil {
		return SubscribeRes{Errors: errs}, err
	}

	c.logger.Debug(ctx, "gNMI SubscribeOnce response",
		"target", c.Target,
		"responses", len(responses))
	return SubscribeRes{Responses: responses, OK: true}, nil
}

// SubscribeStream opens a STREAM subscription. Responses and the terminal
// error arrive on the returned channels until ctx is canceled. The stream
// is not retried.
//
// Example:
//
//	rspCh, errCh, err := client.SubscribeStream(ctx,
//	    []string{"/interfaces/interface/state/counters"},
//	    gnmi.SubscriptionMode(gnmi.SubscriptionModeSample),
//	    gnmi.SampleInterval(30*time.Second))
func (c *Client) SubscribeStream(ctx context.Context, paths []string, mods ...func(*Req)) (<-chan *gnmipb.SubscribeResponse, <-chan error, error) {
	req := &Req{Encoding: EncodingJSONIETF}
	for _, mod := range mods {
		mod(req)
	}

	subReq, err := c.subscribeRequest(paths, req, gnmipb.SubscriptionList_STREAM)
	if err != nil {
		return nil, nil, fmt.Errorf("subscribe stream: %w", err)
	}
	if err := checkContextCancellation(ctx); err != nil {
		return nil, nil, fmt.Errorf("subscribe stream: %w", err)
	}
	if err := c.ensureConnected(ctx); err != nil {
		return nil, nil, fmt.Errorf("subscribe stream: connection failed: %w", err)
	}

	c.mu.RLock()
	t := c.target
	c.mu.RUnlock()
	if t == nil {
		return nil, nil, fmt.Errorf("subscribe stream: client not connected")
	}

	name := streamName(c.Target)
	c.logger.Info(ctx, "gNMI subscription started",
		"target", c.Target,
		"subscription", name,
		"paths", len(paths),
		"mode", req.SubscriptionMode)
	rspCh, errCh := t.SubscribeStreamChan(ctx, subReq, name)
	return rspCh, errCh, nil
}

func (c *Client) subscribeRequest(paths []string, req *Req, listMode gnmipb.SubscriptionList_Mode) (*gnmipb.SubscribeRequest, error) {
	parsed, err := parseRequestPaths(paths, c.origin(req))
	if err != nil {
		return nil, err
	}
	return buildSubscribeRequest(parsed, req, listMode)
}
