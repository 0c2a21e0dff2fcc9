package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cast"
)

// Supported HTTP methods.
var methods = map[string]bool{
	http.MethodGet:     true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodHead:    true,
	http.MethodOptions: true,
}

// maxBodyBytes caps how much of a remote answer is read.
const maxBodyBytes = 10 << 20

// ErrInvalidRequest is returned for requests that cannot be sent at all.
var ErrInvalidRequest = errors.New("invalid relay request")

// Direct performs relayed calls in process with net/http.
//
// Features:
//   - Query parameters from Request.Params
//   - JSON bodies for structured Data
//   - Per-request timeout (DefaultTimeout when unset)
//   - JSON response decoding with raw-text fallback
//
// Example:
//
//	r := relay.NewDirect()
//	resp, err := r.Do(ctx, relay.Request{URL: "https://api.example.com/items", Method: "GET"})
type Direct struct {
	client *http.Client
}

// NewDirect creates a Direct relay with a default HTTP client.
func NewDirect() *Direct {
	return &Direct{client: &http.Client{}}
}

// NewDirectWithClient creates a Direct relay using client.
func NewDirectWithClient(client *http.Client) *Direct {
	if client == nil {
		client = &http.Client{}
	}
	return &Direct{client: client}
}

// Do implements Relay.
func (d *Direct) Do(ctx context.Context, r Request) (*Response, error) {
	method := strings.ToUpper(r.Method)
	if method == "" {
		method = http.MethodGet
	}
	if !methods[method] {
		return nil, fmt.Errorf("%w: unsupported HTTP method %s", ErrInvalidRequest, r.Method)
	}

	target, err := buildURL(r.URL, r.Params)
	if err != nil {
		return nil, err
	}

	body, contentType, err := encodeBody(r.Data)
	if err != nil {
		return nil, err
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for key, value := range r.Headers {
		req.Header.Set(key, value)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return &Response{Error: fmt.Sprintf("request timed out after %s", timeout)}, nil
		}
		return &Response{Error: err.Error()}, nil
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &Response{
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			Error:      "failed to read response body: " + err.Error(),
		}, nil
	}

	return &Response{
		Status:     resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
		Data:       decodeBody(raw),
	}, nil
}

func buildURL(raw string, params map[string]any) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("%w: url is required", ErrInvalidRequest)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported URL scheme %q", ErrInvalidRequest, u.Scheme)
	}
	if len(params) == 0 {
		return u.String(), nil
	}

	q := u.Query()
	for key, value := range params {
		switch v := value.(type) {
		case []any:
			for _, item := range v {
				q.Add(key, cast.ToString(item))
			}
		case []string:
			for _, item := range v {
				q.Add(key, item)
			}
		default:
			q.Set(key, cast.ToString(v))
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func encodeBody(data any) (io.Reader, string, error) {
	switch v := data.(type) {
	case nil:
		return nil, "", nil
	case string:
		if v == "" {
			return nil, "", nil
		}
		if json.Valid([]byte(v)) {
			return strings.NewReader(v), "application/json", nil
		}
		return strings.NewReader(v), "text/plain; charset=utf-8", nil
	case []byte:
		return bytes.NewReader(v), "application/octet-stream", nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, "", fmt.Errorf("%w: failed to encode body: %v", ErrInvalidRequest, err)
	}
	return bytes.NewReader(b), "application/json", nil
}

// decodeBody returns the parsed JSON value of raw, or raw as a string.
func decodeBody(raw []byte) any {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err == nil {
		return v
	}
	return string(raw)
}
