// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gnmi

import "time"

// Client options

// Username sets the username for gNMI authentication
func Username(username string) func(*Client) {
	return func(c *Client) {
		c.username = username
	}
}

// Password sets the password for gNMI authentication
func Password(password string) func(*Client) {
	return func(c *Client) {
		c.password = password
	}
}

// TLSCert sets the client certificate file. The file is checked by
// NewClient and loaded when the connection is established.
func TLSCert(certPath string) func(*Client) {
	return func(c *Client) {
		c.tlsCert = certPath
	}
}

// TLSKey sets the client private key file
func TLSKey(keyPath string) func(*Client) {
	return func(c *Client) {
		c.tlsKey = keyPath
	}
}

// TLSCA sets the CA certificate file used to verify the target
func TLSCA(caPath string) func(*Client) {
	return func(c *Client) {
		c.tlsCA = caPath
	}
}

// Port sets the gNMI port used when the target has none (default: 57400)
func Port(port int) func(*Client) {
	return func(c *Client) {
		c.Port = port
	}
}

// TLS enables or disables TLS (default: true)
func TLS(enabled bool) func(*Client) {
	return func(c *Client) {
		c.UseTLS = enabled
	}
}

// VerifyCertificate enables or disables certificate verification (default: true)
//
// Example:
//
//	client, _ := gnmi.NewClient("192.168.1.1:57400",
//	    gnmi.Username("admin"),
//	    gnmi.Password("secret"),
//	    gnmi.VerifyCertificate(false))
func VerifyCertificate(verify bool) func(*Client) {
	return func(c *Client) {
		c.VerifyCertificate = verify
	}
}

// ConnectTimeout sets the connection timeout (default: 30s)
func ConnectTimeout(duration time.Duration) func(*Client) {
	return func(c *Client) {
		c.ConnectTimeout = duration
	}
}

// OperationTimeout sets the per-attempt operation timeout (default: 15s)
func OperationTimeout(duration time.Duration) func(*Client) {
	return func(c *Client) {
		c.OperationTimeout = duration
	}
}

// MaxRetries sets the number of retries on transient errors (default: 3)
func MaxRetries(retries int) func(*Client) {
	return func(c *Client) {
		c.MaxRetries = retries
	}
}

// BackoffMinDelay sets the first retry delay (default: 1s)
func BackoffMinDelay(duration time.Duration) func(*Client) {
	return func(c *Client) {
		c.BackoffMinDelay = duration
	}
}

// BackoffMaxDelay caps the retry delay (default: 60s)
func BackoffMaxDelay(duration time.Duration) func(*Client) {
	return func(c *Client) {
		c.BackoffMaxDelay = duration
	}
}

// BackoffDelayFactor sets the growth factor between retries (default: 2.0)
func BackoffDelayFactor(factor float64) func(*Client) {
	return func(c *Client) {
		c.BackoffDelayFactor = factor
	}
}

// DefaultOrigin sets the origin used when a request has no Origin
// modifier. With OriginDME all paths are parsed as distinguished names.
func DefaultOrigin(origin string) func(*Client) {
	return func(c *Client) {
		c.defaultOrigin = origin
	}
}

// WithLogger sets the client logger. The default NoOpLogger discards
// everything. JSON logged at Debug level is redacted.
//
// Example:
//
//	client, _ := gnmi.NewClient("192.168.1.1:57400",
//	    gnmi.WithLogger(gnmi.NewDefaultLogger(gnmi.LogLevelDebug)))
func WithLogger(logger Logger) func(*Client) {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPrettyPrintLogs indents JSON in debug logs (default: true)
func WithPrettyPrintLogs(enabled bool) func(*Client) {
	return func(c *Client) {
		c.prettyPrintLogs = enabled
	}
}

// Request modifiers

// Timeout sets the timeout of each attempt of one request. It takes
// precedence over the context deadline and the client OperationTimeout.
//
// Example:
//
//	res, err := client.Set(ctx, ops, gnmi.Timeout(2*time.Minute))
func Timeout(duration time.Duration) func(*Req) {
	return func(req *Req) {
		req.Timeout = duration
	}
}

// GetEncoding sets the encoding of Get and Subscribe responses
// (default: json_ietf)
func GetEncoding(encoding string) func(*Req) {
	return func(req *Req) {
		req.Encoding = encoding
	}
}

// Origin sets the origin of all paths of a request and selects their
// dialect.
//
// Example:
//
//	res, err := client.Get(ctx, []string{"sys/intf/phys[id=eth1/1]"},
//	    gnmi.Origin(gnmi.OriginDME))
func Origin(origin string) func(*Req) {
	return func(req *Req) {
		req.Origin = origin
	}
}

// DataType restricts Get to all, config, state or operational data
func DataType(dataType string) func(*Req) {
	return func(req *Req) {
		req.DataType = dataType
	}
}

// SubscriptionMode sets the mode of stream subscriptions
func SubscriptionMode(mode string) func(*Req) {
	return func(req *Req) {
		req.SubscriptionMode = mode
	}
}

// SampleInterval sets the sample period of sample subscriptions
func SampleInterval(interval time.Duration) func(*Req) {
	return func(req *Req) {
		req.SampleInterval = interval
	}
}

// SetEncoding sets the encoding of one Update or Replace operation
//
// Example:
//
//	op := gnmi.Replace("/system/config", jsonData, gnmi.SetEncoding("json"))
func SetEncoding(encoding string) func(*SetOperation) {
	return func(op *SetOperation) {
		if encoding != "" {
			op.Encoding = encoding
		}
	}
}
