// Package relay carries outbound HTTP calls made on behalf of nodes.
//
// Nodes never talk to remote endpoints directly; they describe the call as a
// Request and hand it to a Relay. Direct performs the call in process, Client
// forwards it to a remote relay server and Handler serves the contract over
// HTTP so that several engines can share one egress point.
package relay

import (
	"context"
	"encoding/json"
	"time"
)

// DefaultTimeout applies when a Request sets no timeout.
const DefaultTimeout = 30 * time.Second

// Request describes one outbound HTTP call.
type Request struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers,omitempty"`

	// Params are added to the URL query string.
	Params map[string]any `json:"params,omitempty"`

	// Data is the request body. Strings and byte slices are sent as-is,
	// anything else is JSON-encoded.
	Data any `json:"data,omitempty"`

	Timeout time.Duration `json:"-"`
}

// Response is the outcome of a relayed call.
//
// Status is the remote HTTP status, or 0 when the call never got an answer,
// in which case Error explains why. Data holds the decoded JSON body, or the
// raw body text when it is not JSON.
type Response struct {
	Status     int    `json:"status"`
	StatusText string `json:"statusText"`
	Data       any    `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
}

// OK reports whether the remote answered with a 2xx status.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status <= 299
}

// Relay performs outbound calls. Transport failures are reported in
// Response.Error; the returned error is reserved for problems with the
// request itself or the relay.
type Relay interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// MarshalJSON encodes the timeout as milliseconds.
func (r Request) MarshalJSON() ([]byte, error) {
	type plain Request
	return json.Marshal(struct {
		plain
		TimeoutMs int64 `json:"timeout,omitempty"`
	}{plain: plain(r), TimeoutMs: r.Timeout.Milliseconds()})
}

// UnmarshalJSON decodes the millisecond timeout.
func (r *Request) UnmarshalJSON(b []byte) error {
	type plain Request
	var w struct {
		plain
		TimeoutMs int64 `json:"timeout,omitempty"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*r = Request(w.plain)
	r.Timeout = time.Duration(w.TimeoutMs) * time.Millisecond
	return nil
}
