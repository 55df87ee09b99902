// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gnmi

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/openconfig/gnmic/pkg/api"
	target "github.com/openconfig/gnmic/pkg/api/target"
	"github.com/tidwall/gjson"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Default client configuration values
const (
	DefaultPort               = 57400
	DefaultMaxRetries         = 3
	DefaultBackoffMinDelay    = 1 * time.Second
	DefaultBackoffMaxDelay    = 60 * time.Second
	DefaultBackoffDelayFactor = 2
	DefaultConnectTimeout     = 30 * time.Second
	DefaultOperationTimeout   = 15 * time.Second
	DefaultUseTLS             = true
	DefaultVerifyCertificate  = true
	DefaultPrettyPrintLogs    = true
)

// Limits for JSON handled by the debug log redaction
const (
	MaxJSONSizeForLogging = 1 * 1024 * 1024
	MaxSensitiveFields    = 1000
)

// Placeholders logged instead of JSON that exceeds the limits
const (
	JSONTooLargeMessage     = "[JSON TOO LARGE FOR LOGGING]"
	JSONTooManySensitiveMsg = "[JSON CONTAINS TOO MANY SENSITIVE FIELDS]"
)

// sensitiveFields are JSON fields whose string values never reach the logs
var sensitiveFields = []string{"password", "secret", "key", "community", "token", "auth"}

// defaultRedactionPatterns match "<field>": "<value>" for every sensitive field
var defaultRedactionPatterns = func() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(sensitiveFields))
	for _, f := range sensitiveFields {
		patterns = append(patterns, regexp.MustCompile(`"`+f+`"\s*:\s*"[^"]*"`))
	}
	return patterns
}()

// Client is a gNMI client for one network device.
//
// Paths handed to the client are XPath-like strings parsed with ParsePath,
// so DN paths work with the DME origin. The gRPC connection is opened
// lazily on the first RPC.
type Client struct {
	target    *target.Target
	connected bool

	// mu guards target, connected and capabilities. Set holds it
	// exclusively, reads share it.
	mu sync.RWMutex

	Target   string
	Port     int
	username string
	password string

	tlsCert string
	tlsKey  string
	tlsCA   string

	UseTLS             bool
	VerifyCertificate  bool
	InsecureSkipVerify bool

	ConnectTimeout   time.Duration
	OperationTimeout time.Duration

	MaxRetries         int
	BackoffMinDelay    time.Duration
	BackoffMaxDelay    time.Duration
	BackoffDelayFactor float64

	// defaultOrigin applies to requests without an Origin modifier
	defaultOrigin string

	// encodings reported by the last Capabilities call
	capabilities []string

	logger            Logger
	prettyPrintLogs   bool
	redactionPatterns []*regexp.Regexp
}

// NewClient validates the configuration and prepares the gnmic target for
// addr. No connection is made until the first RPC or Ping.
//
// Example:
//
//	client, err := gnmi.NewClient("192.168.1.1:57400",
//	    gnmi.Username("admin"),
//	    gnmi.Password("secret"),
//	    gnmi.VerifyCertificate(false),
//	    gnmi.DefaultOrigin(gnmi.OriginOpenConfig))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
func NewClient(addr string, opts ...func(*Client)) (*Client, error) {
	client := &Client{
		Target:             addr,
		Port:               DefaultPort,
		UseTLS:             DefaultUseTLS,
		VerifyCertificate:  DefaultVerifyCertificate,
		ConnectTimeout:     DefaultConnectTimeout,
		OperationTimeout:   DefaultOperationTimeout,
		MaxRetries:         DefaultMaxRetries,
		BackoffMinDelay:    DefaultBackoffMinDelay,
		BackoffMaxDelay:    DefaultBackoffMaxDelay,
		BackoffDelayFactor: DefaultBackoffDelayFactor,
		logger:             &NoOpLogger{},
		prettyPrintLogs:    DefaultPrettyPrintLogs,
		redactionPatterns:  defaultRedactionPatterns,
	}
	for _, opt := range opts {
		opt(client)
	}
	client.InsecureSkipVerify = !client.VerifyCertificate

	if err := client.validateConfig(); err != nil {
		return nil, err
	}
	if err := client.createTarget(); err != nil {
		return nil, err
	}

	client.logger.Info(context.Background(), "gNMI client created",
		"target", client.Target,
		"port", client.Port,
		"origin", client.defaultOrigin)
	return client, nil
}

// Disconnect closes the gRPC connection but keeps the client usable; the
// next RPC reconnects.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.target == nil {
		return nil
	}
	if err := c.target.Close(); err != nil {
		c.logger.Warn(context.Background(), "gNMI connection close returned error during disconnect",
			"target", c.Target,
			"error", err.Error())
	}
	c.connected = false

	c.logger.Info(context.Background(), "gNMI connection disconnected",
		"target", c.Target,
		"reusable", true)
	return nil
}

// Close releases the connection and the target. The client cannot be used
// afterwards; further calls to Close are no-ops.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.target == nil {
		return nil
	}
	t := c.target
	c.target = nil
	c.connected = false

	if err := t.Close(); err != nil {
		return err
	}
	c.logger.Info(context.Background(), "gNMI connection closed",
		"target", c.Target,
		"reusable", false)
	return nil
}

// HasCapability reports whether the last Capabilities call listed the
// given encoding
func (c *Client) HasCapability(capability string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Contains(c.capabilities, capability)
}

// ServerCapabilities returns a copy of the encodings reported by the
// last Capabilities call
func (c *Client) ServerCapabilities() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.capabilities)
}

// HasCredentials reports whether a username, password or client
// certificate is configured
func (c *Client) HasCredentials() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hasCredentials()
}

func (c *Client) hasCredentials() bool {
	return c.username != "" || c.password != "" || c.tlsCert != ""
}

// Backoff returns the delay before retry attempt (0-based):
// min(BackoffMinDelay * BackoffDelayFactor^attempt, BackoffMaxDelay) plus
// up to 10% jitter.
func (c *Client) Backoff(attempt int) time.Duration {
	delay := float64(c.BackoffMinDelay) * math.Pow(c.BackoffDelayFactor, float64(attempt))
	if math.IsInf(delay, 1) || delay > float64(c.BackoffMaxDelay) {
		delay = float64(c.BackoffMaxDelay)
	}

	var jitter int64
	if jitterMax := int64(delay * 0.1); jitterMax > 0 {
		var b [8]byte
		if _, err := rand.Read(b[:]); err == nil {
			//nolint:gosec // G115: sign bit masked off
			jitter = int64(binary.BigEndian.Uint64(b[:])&0x7FFFFFFFFFFFFFFF) % jitterMax
		} else {
			jitter = (time.Now().UnixNano()%jitterMax + jitterMax) % jitterMax
			c.logger.Warn(context.Background(), "crypto/rand failed, using timestamp-based jitter",
				"error", err.Error(),
				"attempt", attempt)
		}
	}

	final := time.Duration(delay) + time.Duration(jitter)
	c.logger.Debug(context.Background(), "backoff calculated",
		"attempt", attempt,
		"base_delay_ms", time.Duration(delay).Milliseconds(),
		"jitter_ms", time.Duration(jitter).Milliseconds(),
		"final_delay_ms", final.Milliseconds())
	return final
}

// prepareJSONForLogging redacts sensitive fields and optionally indents
// JSON for debug logs. Oversized input is replaced by a placeholder.
func (c *Client) prepareJSONForLogging(doc string) string {
	if len(doc) > MaxJSONSizeForLogging {
		return JSONTooLargeMessage
	}

	count := 0
	for _, f := range sensitiveFields {
		count += strings.Count(doc, `"`+f+`"`)
	}
	if count > MaxSensitiveFields {
		c.logger.Warn(context.Background(), "too many sensitive fields detected",
			"count", count,
			"max", MaxSensitiveFields)
		return JSONTooManySensitiveMsg
	}

	redacted := c.redactSensitiveData(doc)
	if c.prettyPrintLogs && gjson.Valid(redacted) {
		return strings.TrimRight(gjson.Get(redacted, "@pretty").Raw, "\n")
	}
	return redacted
}

// redactSensitiveData replaces the values of sensitive fields with
// [REDACTED]
func (c *Client) redactSensitiveData(doc string) string {
	for i, pattern := range c.redactionPatterns {
		field := sensitiveFields[i%len(sensitiveFields)]
		doc = pattern.ReplaceAllString(doc, `"`+field+`":"[REDACTED]"`)
	}
	return doc
}

// checkTransientError reports whether err carries a gRPC code listed in
// TransientErrors
func (c *Client) checkTransientError(err error) bool {
	if err == nil {
		return false
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	transient := c.checkTransientErrorModels([]ErrorModel{{Code: uint32(st.Code())}})
	c.logger.Debug(context.Background(), "classified error",
		"code", st.Code().String(),
		"transient", transient)
	return transient
}

// isTransportError reports errors after which the connection is rebuilt
// before retrying
func (c *Client) isTransportError(err error) bool {
	if err == nil {
		return false
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	return st.Code() == codes.Unavailable || st.Code() == codes.DeadlineExceeded
}

// checkTransientErrorModels reports whether any error has a transient code
func (c *Client) checkTransientErrorModels(errs []ErrorModel) bool {
	for _, err := range errs {
		for _, pattern := range TransientErrors {
			if pattern.Code == err.Code {
				return true
			}
		}
	}
	return false
}

// validateConfig checks the client settings and the TLS files
func (c *Client) validateConfig() error {
	if strings.TrimSpace(c.Target) == "" {
		return fmt.Errorf("target address cannot be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Port)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect timeout must be positive, got: %v", c.ConnectTimeout)
	}
	if c.OperationTimeout <= 0 {
		return fmt.Errorf("operation timeout must be positive, got: %v", c.OperationTimeout)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must be non-negative, got: %d", c.MaxRetries)
	}
	if c.BackoffMinDelay <= 0 {
		return fmt.Errorf("backoff min delay must be positive, got: %v", c.BackoffMinDelay)
	}
	if c.BackoffMaxDelay <= c.BackoffMinDelay {
		return fmt.Errorf("backoff max delay (%v) must be greater than min delay (%v)",
			c.BackoffMaxDelay, c.BackoffMinDelay)
	}
	if c.BackoffDelayFactor < 1.0 {
		return fmt.Errorf("backoff delay factor must be >= 1.0, got: %f", c.BackoffDelayFactor)
	}

	if c.UseTLS && c.InsecureSkipVerify {
		c.logger.Warn(context.Background(), "TLS certificate verification disabled",
			"target", c.Target)
	}
	if !c.UseTLS {
		c.logger.Warn(context.Background(), "TLS disabled, connection is not encrypted",
			"target", c.Target)
	}

	files := []struct{ kind, path string }{
		{"certificate", c.tlsCert},
		{"key", c.tlsKey},
		{"CA", c.tlsCA},
	}
	for _, f := range files {
		if f.path == "" {
			continue
		}
		if _, err := os.Stat(f.path); err != nil {
			c.logger.Debug(context.Background(), "TLS file validation failed",
				"kind", f.kind,
				"path", f.path,
				"error", err.Error())
			// only the file name, the directory layout stays private
			return fmt.Errorf("TLS %s file not found: %s", f.kind, filepath.Base(f.path))
		}
	}

	if !c.hasCredentials() {
		c.logger.Warn(context.Background(), "no credentials configured",
			"target", c.Target)
	}
	return nil
}

// createTarget builds the gnmic target without connecting
func (c *Client) createTarget() error {
	address := c.Target
	if !strings.Contains(address, ":") {
		address = fmt.Sprintf("%s:%d", address, c.Port)
	}

	opts := []api.TargetOption{
		api.Name(c.Target),
		api.Address(address),
		api.Timeout(c.ConnectTimeout),
		api.Insecure(!c.UseTLS),
		api.SkipVerify(c.InsecureSkipVerify),
	}
	if c.username != "" {
		opts = append(opts, api.Username(c.username))
	}
	if c.password != "" {
		opts = append(opts, api.Password(c.password))
	}
	if c.tlsCert != "" {
		opts = append(opts, api.TLSCert(c.tlsCert))
	}
	if c.tlsKey != "" {
		opts = append(opts, api.TLSKey(c.tlsKey))
	}
	if c.tlsCA != "" {
		opts = append(opts, api.TLSCA(c.tlsCA))
	}

	t, err := api.NewTarget(opts...)
	if err != nil {
		return fmt.Errorf("failed to create gnmic target: %w", err)
	}
	c.target = t
	return nil
}

// ensureConnected opens the gRPC connection on first use
func (c *Client) ensureConnected(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.target == nil {
		return fmt.Errorf("client not connected")
	}
	if c.connected {
		return nil
	}

	c.logger.Debug(ctx, "establishing gNMI connection",
		"target", c.Target,
		"port", c.Port)
	if err := c.target.CreateGNMIClient(ctx); err != nil {
		return fmt.Errorf("failed to establish connection: %w", err)
	}
	c.connected = true

	c.logger.Info(ctx, "gNMI connection established",
		"target", c.Target)
	return nil
}

// Capabilities runs the Capabilities RPC and records the supported
// encodings for HasCapability.
func (c *Client) Capabilities(ctx context.Context) (CapabilitiesRes, error) {
	fail := func(err error) (CapabilitiesRes, error) {
		return CapabilitiesRes{Errors: []ErrorModel{{Message: err.Error()}}}, err
	}
	if err := checkContextCancellation(ctx); err != nil {
		return fail(err)
	}
	if err := c.ensureConnected(ctx); err != nil {
		return fail(err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.OperationTimeout)
	defer cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.target == nil {
		return fail(fmt.Errorf("capabilities: client not connected"))
	}

	c.logger.Debug(ctx, "gNMI Capabilities request", "target", c.Target)
	resp, err := c.target.Capabilities(ctx)
	if err != nil {
		c.logger.Error(ctx, "gNMI Capabilities failed",
			"target", c.Target,
			"error", err.Error())
		return CapabilitiesRes{Errors: c.extractErrorDetails(err)},
			fmt.Errorf("capabilities request failed: %w", err)
	}

	encodings := make([]string, 0, len(resp.GetSupportedEncodings()))
	for _, enc := range resp.GetSupportedEncodings() {
		encodings = append(encodings, enc.String())
	}
	c.capabilities = encodings

	c.logger.Debug(ctx, "gNMI Capabilities response",
		"version", resp.GetGNMIVersion(),
		"encodings", len(encodings),
		"models", len(resp.GetSupportedModels()))

	return CapabilitiesRes{
		Version:      resp.GetGNMIVersion(),
		Capabilities: encodings,
		Models:       resp.GetSupportedModels(),
		OK:           true,
	}, nil
}

// Ping connects if needed and runs a Capabilities RPC
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Capabilities(ctx)
	return err
}

// reconnect replaces a broken connection. The caller holds c.mu exclusively.
func (c *Client) reconnect(ctx context.Context) error {
	c.logger.Warn(ctx, "gNMI reconnecting",
		"target", c.Target,
		"reason", "transport error")

	if c.target != nil {
		_ = c.target.Close() //nolint:errcheck // connection is already broken
	}
	c.connected = false

	if err := c.createTarget(); err != nil {
		return fmt.Errorf("failed to recreate target: %w", err)
	}
	if err := c.target.CreateGNMIClient(ctx); err != nil {
		return fmt.Errorf("failed to reconnect: %w", err)
	}
	c.connected = true

	c.logger.Info(ctx, "gNMI reconnected", "target", c.Target)
	return nil
}

// origin returns the request origin, falling back to the client default
func (c *Client) origin(req *Req) string {
	if req.Origin != "" {
		return req.Origin
	}
	return c.defaultOrigin
}
