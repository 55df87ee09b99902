// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gnmi

import (
	"context"
	"fmt"
	"strings"
	"time"

	gnmipb "github.com/openconfig/gnmi/proto/gnmi"
	"github.com/openconfig/gnmic/pkg/api"
	target "github.com/openconfig/gnmic/pkg/api/target"
	"github.com/tidwall/gjson"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/encoding/prototext"
)

// Input limits
const (
	// MaxValueSize is the maximum size of a single Set value (10MB)
	MaxValueSize = 10 * 1024 * 1024

	// MaxPathLength is the maximum length of a path string
	MaxPathLength = 1024
)

// parseRequestPaths validates and parses the paths of a request.
//
// XPath paths must be absolute or origin qualified ("module:/path"); DN
// paths of the DME origin are relative by nature and exempt.
func parseRequestPaths(paths []string, origin string) ([]Path, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("paths cannot be empty")
	}
	parsed := make([]Path, 0, len(paths))
	for i, path := range paths {
		p, err := parseRequestPath(path, origin)
		if err != nil {
			return nil, fmt.Errorf("path at index %d: %w", i, err)
		}
		parsed = append(parsed, p)
	}
	return parsed, nil
}

func parseRequestPath(path, origin string) (Path, error) {
	if path == "" {
		return Path{}, fmt.Errorf("path cannot be empty")
	}
	if len(path) > MaxPathLength {
		return Path{}, fmt.Errorf("path exceeds maximum length of %d characters: %s", MaxPathLength, truncatePath(path))
	}
	if err := checkPathSecurity(path); err != nil {
		return Path{}, err
	}
	if origin != OriginDME && !isValidGNMIPath(path) {
		return Path{}, fmt.Errorf("path must start with '/' or be origin qualified (origin:/path): %s", truncatePath(path))
	}
	return ParsePath(path, origin)
}

// validateValue checks the size of a value and, for JSON encodings, its syntax
func validateValue(value string, encoding string) error {
	if len(value) > MaxValueSize {
		return fmt.Errorf("value size exceeds maximum of %d bytes (got %d bytes)", MaxValueSize, len(value))
	}
	switch encoding {
	case EncodingJSON, EncodingJSONIETF, "":
		if strings.TrimSpace(value) != "" && !gjson.Valid(value) {
			return fmt.Errorf("invalid JSON syntax")
		}
	}
	return nil
}

// buildSetRequest validates ops and converts them into a SetRequest
func buildSetRequest(ops []SetOperation, origin string) (*gnmipb.SetRequest, error) {
	if len(ops) == 0 {
		return nil, fmt.Errorf("operations cannot be empty")
	}

	setReq := &gnmipb.SetRequest{}
	for i, op := range ops {
		path, err := parseRequestPath(op.Path, origin)
		if err != nil {
			return nil, fmt.Errorf("operation at index %d: %w", i, err)
		}

		switch op.OperationType {
		case OperationDelete:
			setReq.Delete = append(setReq.Delete, path.Proto())
			continue
		case OperationUpdate, OperationReplace:
		case "":
			return nil, fmt.Errorf("operation type cannot be empty (at index %d)", i)
		default:
			return nil, fmt.Errorf("operation type invalid: %s (must be 'update', 'replace', or 'delete', at index %d)", op.OperationType, i)
		}

		encoding := op.Encoding
		if encoding == "" {
			encoding = EncodingJSONIETF
		}
		if err := ValidateEncoding(encoding); err != nil {
			return nil, fmt.Errorf("operation at index %d: %w", i, err)
		}
		if err := validateValue(op.Value, encoding); err != nil {
			return nil, fmt.Errorf("operation at index %d: %w", i, err)
		}
		val, err := typedValue([]byte(op.Value), encoding)
		if err != nil {
			return nil, fmt.Errorf("operation at index %d: %w", i, err)
		}

		upd := &gnmipb.Update{Path: path.Proto(), Val: val}
		if op.OperationType == OperationReplace {
			setReq.Replace = append(setReq.Replace, upd)
		} else {
			setReq.Update = append(setReq.Update, upd)
		}
	}
	return setReq, nil
}

// buildGetRequest converts parsed paths and the request modifiers into a
// GetRequest
func buildGetRequest(paths []Path, req *Req) (*gnmipb.GetRequest, error) {
	if err := ValidateEncoding(req.Encoding); err != nil {
		return nil, err
	}
	dataType, err := dataTypeEnum(req.DataType)
	if err != nil {
		return nil, err
	}
	getReq, err := api.NewGetRequest(api.Encoding(req.Encoding))
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		getReq.Path = append(getReq.Path, p.Proto())
	}
	getReq.Type = dataType
	return getReq, nil
}

// checkPathSecurity rejects null bytes and "/../" traversal sequences
func checkPathSecurity(path string) error {
	if i := strings.IndexByte(path, 0); i >= 0 {
		return fmt.Errorf("path contains null byte at position %d", i)
	}
	if i := strings.Index(path, "/../"); i >= 0 {
		return fmt.Errorf("path contains suspicious traversal pattern '/../' at position %d", i)
	}
	return nil
}

func truncatePath(path string) string {
	if len(path) <= 100 {
		return path
	}
	return path[:100] + "..."
}

// isValidGNMIPath accepts "/path" and "origin:/path"
func isValidGNMIPath(path string) bool {
	if path == "" {
		return false
	}
	if path[0] == '/' {
		return true
	}
	origin, rest := splitOrigin(path)
	return origin != "" && strings.HasPrefix(rest, "/")
}

// Get retrieves data for paths.
//
// Paths are parsed with ParsePath using the Origin modifier or the client
// default origin. Reads share the client lock, so Gets run in parallel.
// Each attempt is bounded by, in order of precedence, the Timeout
// modifier, the context deadline or Client.OperationTimeout.
//
// Example:
//
//	res, err := client.Get(ctx, []string{
//	    "/interfaces/interface[name=GigabitEthernet0/0/0/0]/state",
//	    "/system/config/hostname",
//	}, gnmi.DataType(gnmi.DataTypeState))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	flat, _ := res.Flatten(gnmi.DefaultFlattenOptions())
func (c *Client) Get(ctx context.Context, paths []string, mods ...func(*Req)) (GetRes, error) {
	req := &Req{Encoding: EncodingJSONIETF}
	for _, mod := range mods {
		mod(req)
	}

	parsed, err := parseRequestPaths(paths, c.origin(req))
	if err != nil {
		return GetRes{Errors: []ErrorModel{{Message: err.Error()}}}, fmt.Errorf("get: %w", err)
	}
	return c.get(ctx, parsed, req)
}

// get runs a GetRequest for already parsed paths
func (c *Client) get(ctx context.Context, paths []Path, req *Req) (GetRes, error) {
	getReq, err := buildGetRequest(paths, req)
	if err != nil {
		return GetRes{Errors: []ErrorModel{{Message: err.Error()}}}, fmt.Errorf("get: %w", err)
	}

	c.logger.Debug(ctx, "gNMI Get request",
		"target", c.Target,
		"paths", len(paths),
		"encoding", req.Encoding,
		"type", getReq.GetType().String(),
		"request", prototext.MarshalOptions{}.Format(getReq))
	for i, p := range paths {
		c.logger.Debug(ctx, "gNMI Get path",
			"index", i,
			"path", p.String())
	}

	var resp *gnmipb.GetResponse
	errs, err := c.execute(ctx, "get", req, false, func(ctx context.Context, t *target.Target) error {
		r, err := t.Get(ctx, getReq)
		resp = r
		return err
	})
	if err != nil {
		return GetRes{Errors: errs}, err
	}

	c.logger.Debug(ctx, "gNMI Get response",
		"target", c.Target,
		"notifications", len(resp.GetNotification()))
	for i, n := range resp.GetNotification() {
		c.logger.Debug(ctx, "gNMI Get notification",
			"index", i,
			"timestamp", n.GetTimestamp(),
			"updates", len(n.GetUpdate()),
			"deletes", len(n.GetDelete()),
			"notification", c.prepareJSONForLogging(c.notificationJSON(n)))
	}

	res := GetRes{Notifications: resp.GetNotification(), Timestamp: time.Now().UnixNano(), OK: true}
	if len(res.Notifications) > 0 && res.Notifications[0].GetTimestamp() != 0 {
		res.Timestamp = res.Notifications[0].GetTimestamp()
	}
	return res, nil
}

// Set applies update, replace and delete operations in one transaction.
//
// Set holds the client lock exclusively, so concurrent Sets are
// serialized. Paths are parsed like Get paths.
//
// Example:
//
//	res, err := client.Set(ctx, []gnmi.SetOperation{
//	    gnmi.Update("/system/config/hostname", `"router1"`),
//	    gnmi.Delete("/interfaces/interface[name=Gi0/0/0/1]/config/description"),
//	})
func (c *Client) Set(ctx context.Context, ops []SetOperation, mods ...func(*Req)) (SetRes, error) {
	req := &Req{}
	for _, mod := range mods {
		mod(req)
	}

	setReq, err := buildSetRequest(ops, c.origin(req))
	if err != nil {
		return SetRes{Errors: []ErrorModel{{Message: err.Error()}}}, fmt.Errorf("set: %w", err)
	}

	for i, op := range ops {
		c.logger.Debug(ctx, "gNMI Set operation",
			"index", i,
			"type", op.OperationType,
			"path", op.Path,
			"encoding", op.Encoding,
			"value", c.prepareJSONForLogging(op.Value))
	}
	return c.set(ctx, setReq, req)
}

// set sends a prepared SetRequest
func (c *Client) set(ctx context.Context, setReq *gnmipb.SetRequest, req *Req) (SetRes, error) {
	c.logger.Debug(ctx, "gNMI Set request",
		"target", c.Target,
		"updates", len(setReq.GetUpdate()),
		"replaces", len(setReq.GetReplace()),
		"deletes", len(setReq.GetDelete()))

	var resp *gnmipb.SetResponse
	errs, err := c.execute(ctx, "set", req, true, func(ctx context.Context, t *target.Target) error {
		r, err := t.Set(ctx, setReq)
		resp = r
		return err
	})
	if err != nil {
		return SetRes{Errors: errs}, err
	}

	c.logger.Debug(ctx, "gNMI Set response",
		"target", c.Target,
		"results", len(resp.GetResponse()))

	ts := resp.GetTimestamp()
	if ts == 0 {
		ts = time.Now().UnixNano()
	}
	return SetRes{Response: resp, Timestamp: ts, OK: true}, nil
}

// Update creates an update operation. The value is encoded as json_ietf
// unless SetEncoding says otherwise.
//
// Example:
//
//	op := gnmi.Update("/system/config", `{"hostname": "router1"}`)
func Update(path, value string, opts ...func(*SetOperation)) SetOperation {
	op := SetOperation{
		OperationType: OperationUpdate,
		Path:          path,
		Value:         value,
		Encoding:      EncodingJSONIETF,
	}
	for _, opt := range opts {
		opt(&op)
	}
	return op
}

// Replace creates a replace operation
func Replace(path, value string, opts ...func(*SetOperation)) SetOperation {
	op := SetOperation{
		OperationType: OperationReplace,
		Path:          path,
		Value:         value,
		Encoding:      EncodingJSONIETF,
	}
	for _, opt := range opts {
		opt(&op)
	}
	return op
}

// Delete creates a delete operation
func Delete(path string) SetOperation {
	return SetOperation{
		OperationType: OperationDelete,
		Path:          path,
	}
}

// execute runs call with retries on transient gRPC errors.
//
// exclusive selects the write lock; otherwise the read lock is held and
// upgraded for a reconnect. call receives the per-attempt context and the
// connected target. On failure the gRPC error details are returned along
// with an error prefixed by op.
func (c *Client) execute(ctx context.Context, op string, req *Req, exclusive bool,
	call func(context.Context, *target.Target) error) ([]ErrorModel, error) {
	if err := checkContextCancellation(ctx); err != nil {
		return []ErrorModel{{Message: err.Error()}}, fmt.Errorf("%s: %w", op, err)
	}
	if err := c.ensureConnected(ctx); err != nil {
		return []ErrorModel{{Message: err.Error()}}, fmt.Errorf("%s: connection failed: %w", op, err)
	}

	lock, unlock := c.mu.RLock, c.mu.RUnlock
	if exclusive {
		lock, unlock = c.mu.Lock, c.mu.Unlock
	}
	lock()
	defer unlock()

	if c.target == nil {
		return []ErrorModel{{Message: "client not connected"}}, fmt.Errorf("%s: client not connected", op)
	}

	_, callerDeadline := ctx.Deadline()
	totalTimeout := c.calculateTotalTimeout()
	c.logger.Debug(ctx, "applying total timeout budget",
		"operation", op,
		"totalTimeout", totalTimeout.String(),
		"maxRetries", c.MaxRetries)
	ctx, cancel := context.WithTimeout(ctx, totalTimeout)
	defer cancel()

	var lastErr error
	attempt := 0
	for ; attempt <= c.MaxRetries; attempt++ {
		if err := checkContextCancellation(ctx); err != nil {
			c.logger.Debug(ctx, "operation canceled",
				"operation", op,
				"attempt", attempt)
			return []ErrorModel{{Message: fmt.Sprintf("context canceled: %s", err.Error())}}, fmt.Errorf("%s: %w", op, err)
		}

		attemptCtx, attemptCancel := c.createAttemptContext(ctx, req, callerDeadline)
		lastErr = call(attemptCtx, c.target)
		attemptCancel()
		if lastErr == nil {
			return nil, nil
		}
		if attempt == c.MaxRetries || !c.checkTransientError(lastErr) {
			break
		}

		if c.isTransportError(lastErr) {
			if err := c.reconnectHeld(ctx, exclusive); err != nil {
				c.logger.Error(ctx, "gNMI reconnection failed",
					"operation", op,
					"error", err.Error())
				return []ErrorModel{{Message: fmt.Sprintf("operation failed and reconnection failed: %s", err.Error())}},
					fmt.Errorf("%s: reconnection failed: %w", op, err)
			}
		}

		backoff := c.Backoff(attempt)
		c.logger.Warn(ctx, "transient error, retrying",
			"operation", op,
			"attempt", attempt+1,
			"max_retries", c.MaxRetries,
			"backoff", backoff,
			"error", lastErr.Error())

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return []ErrorModel{{Message: fmt.Sprintf("context canceled during backoff: %s", ctx.Err().Error())}},
				fmt.Errorf("%s: context canceled during backoff: %w", op, ctx.Err())
		}
	}

	c.logger.Error(ctx, "gNMI request failed",
		"operation", op,
		"target", c.Target,
		"error", lastErr.Error())
	details := c.extractErrorDetails(lastErr)
	return details, &GnmiError{
		Operation:   op,
		Errors:      details,
		Message:     details[0].Message,
		InternalMsg: lastErr.Error(),
		Retries:     min(attempt, c.MaxRetries),
		IsTransient: c.checkTransientErrorModels(details),
		Err:         lastErr,
	}
}

// reconnectHeld reconnects while the caller holds c.mu, upgrading a read
// lock for the duration
func (c *Client) reconnectHeld(ctx context.Context, exclusive bool) error {
	if exclusive {
		return c.reconnect(ctx)
	}
	c.mu.RUnlock()
	c.mu.Lock()
	err := c.reconnect(ctx)
	c.mu.Unlock()
	c.mu.RLock()
	return err
}

// calculateTotalTimeout is the budget for all attempts:
// OperationTimeout + sum(Backoff(0..MaxRetries))
func (c *Client) calculateTotalTimeout() time.Duration {
	total := c.OperationTimeout
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		total += c.Backoff(attempt)
	}
	return total
}

func checkContextCancellation(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// createAttemptContext bounds one attempt by the Timeout modifier, else the
// caller's context deadline, else Client.OperationTimeout. callerDeadline
// reports whether the caller set a deadline, as ctx itself always carries
// the total budget. The caller must cancel the returned context.
func (c *Client) createAttemptContext(ctx context.Context, req *Req, callerDeadline bool) (context.Context, context.CancelFunc) {
	if req.Timeout > 0 {
		if req.Timeout < time.Second {
			c.logger.Warn(ctx, "request timeout is very short (may not complete)",
				"timeout", req.Timeout.String(),
				"target", c.Target)
		} else if req.Timeout > 5*time.Minute {
			c.logger.Warn(ctx, "request timeout is very long (may delay error detection)",
				"timeout", req.Timeout.String(),
				"target", c.Target)
		}
		return context.WithTimeout(ctx, req.Timeout)
	}
	if deadline, ok := ctx.Deadline(); ok && callerDeadline {
		c.logger.Debug(ctx, "using existing context deadline",
			"remaining", time.Until(deadline).String(),
			"target", c.Target)
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.OperationTimeout)
}

// extractErrorDetails converts an error into ErrorModels, keeping the gRPC
// status code when there is one
func (c *Client) extractErrorDetails(err error) []ErrorModel {
	if err == nil {
		return nil
	}
	if st, ok := status.FromError(err); ok {
		return []ErrorModel{{
			Code:    uint32(st.Code()),
			Message: st.Message(),
			Details: st.String(),
		}}
	}
	return []ErrorModel{{Message: err.Error()}}
}

// notificationJSON renders a notification as protobuf JSON for the
// redacting debug log
func (c *Client) notificationJSON(n *gnmipb.Notification) string {
	raw, err := protojson.Marshal(n)
	if err != nil {
		return ""
	}
	return string(raw)
}
