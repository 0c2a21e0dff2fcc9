package nodes

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dshills/agentgraph-go/graph"
	"github.com/dshills/agentgraph-go/graph/relay"
	"github.com/spf13/cast"
)

// Authentication schemes of the api node.
const (
	AuthNone   = "none"
	AuthBasic  = "basic"
	AuthBearer = "bearer"
	AuthAPIKey = "api_key"
)

const defaultAPITimeout = 30 * time.Second

func apiDescriptor(s Services) graph.Descriptor {
	return graph.Descriptor{
		Type:        TypeAPI,
		Title:       "API Call",
		Category:    CategoryTools,
		Description: "Calls an HTTP endpoint through the relay.",
		Create: func(*graph.Graph) *graph.Node {
			n := graph.NewNode(graph.NewNodeID(), TypeAPI,
				graph.In("body", graph.TypeUnknown).AsOptional(),
				graph.In("endpointUrlInput", graph.TypeString).AsOptional(),
				graph.In("condition", graph.TypeBoolean).AsCondition(),
				graph.Out("response", graph.TypeString),
				graph.Out("error", graph.TypeString))
			n.SetParam("endpoint", "")
			n.SetParam("method", http.MethodGet)
			n.SetParam("params", "{}")
			n.SetParam("headers", "{}")
			n.SetParam("timeout", int(defaultAPITimeout/time.Millisecond))
			n.SetParam("authType", AuthNone)
			return n
		},
		Behavior: &apiBehavior{relay: s.Relay},
	}
}

type apiBehavior struct {
	relay relay.Relay
}

// Execute implements graph.Behavior. Every failure is reported on the
// "error" output; the run always continues.
func (b *apiBehavior) Execute(ctx context.Context, n *graph.Node, params *graph.GlobalParameters) error {
	req, msg := buildAPIRequest(n, params)
	if msg != "" {
		n.Set("error", msg)
		return nil
	}

	resp, err := b.relay.Do(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		n.Set("error", err.Error())
		return nil
	}
	if resp.Error != "" {
		n.Set("error", resp.Error)
		return nil
	}
	if !resp.OK() {
		n.Set("error", fmt.Sprintf("request failed with status %d %s: %s", resp.Status, resp.StatusText, stringify(resp.Data)))
		return nil
	}
	n.Set("response", stringify(resp.Data))
	return nil
}

// buildAPIRequest assembles the relay request, or returns a node-scoped
// error message.
func buildAPIRequest(n *graph.Node, params *graph.GlobalParameters) (relay.Request, string) {
	endpoint := strings.TrimSpace(firstString(n.String("endpointUrlInput"), n.StringParam("endpoint", "")))
	if endpoint == "" {
		return relay.Request{}, "endpoint URL is required"
	}

	query, err := jsonObject(n.Param("params"))
	if err != nil {
		return relay.Request{}, "invalid params JSON: " + err.Error()
	}
	rawHeaders, err := jsonObject(n.Param("headers"))
	if err != nil {
		return relay.Request{}, "invalid headers JSON: " + err.Error()
	}

	headers := make(map[string]string, len(rawHeaders)+1)
	for k, v := range rawHeaders {
		if strings.EqualFold(k, "Authorization") || strings.EqualFold(k, "X-API-Key") {
			continue
		}
		headers[k] = cast.ToString(v)
	}
	if msg := applyAuth(n, params, headers); msg != "" {
		return relay.Request{}, msg
	}

	return relay.Request{
		URL:     endpoint,
		Method:  strings.ToUpper(n.StringParam("method", http.MethodGet)),
		Headers: headers,
		Params:  query,
		Data:    n.Value("body"),
		Timeout: time.Duration(n.IntParam("timeout", int(defaultAPITimeout/time.Millisecond))) * time.Millisecond,
	}, ""
}

func applyAuth(n *graph.Node, params *graph.GlobalParameters, headers map[string]string) string {
	authType := strings.ToLower(n.StringParam("authType", AuthNone))
	if authType == AuthNone {
		return ""
	}

	keyName := n.StringParam("selectedKeyName", "")
	secret, ok := params.APIKey(keyName)
	if !ok {
		return fmt.Sprintf("no credential found for key %q", keyName)
	}

	switch authType {
	case AuthBasic:
		user := n.StringParam("username", "")
		headers["Authorization"] = "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+secret))
	case AuthBearer:
		headers["Authorization"] = "Bearer " + secret
	case AuthAPIKey:
		headers["X-API-Key"] = secret
	default:
		return "unsupported auth type: " + authType
	}
	return ""
}

// jsonObject accepts a JSON object given as text or as an already decoded map.
func jsonObject(v any) (map[string]any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return x, nil
	case string:
		if strings.TrimSpace(x) == "" {
			return nil, nil
		}
		var out map[string]any
		if err := json.Unmarshal([]byte(x), &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	m, err := cast.ToStringMapE(v)
	if err != nil {
		return nil, fmt.Errorf("expected a JSON object, got %T", v)
	}
	return m, nil
}

// stringify renders relay data as text, JSON-encoding structured values.
func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
