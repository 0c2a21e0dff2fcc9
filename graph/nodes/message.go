package nodes

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/dshills/agentgraph-go/graph"
	"github.com/dshills/agentgraph-go/graph/relay"
)

// Message defaults.
const (
	DefaultBreakMarker = "<break>"
	defaultDelayMs     = 1000
)

var (
	markdownImage = regexp.MustCompile(`!\[[^\]]*\]\(([^)\s]+)(?:\s+"[^"]*")?\)`)
	markupTokens  = strings.NewReplacer("**", "", "__", "", "*", "", "_", "", "[", "", "]", "")
)

// OutboundMessage is the payload posted to the messaging gateway for each
// message part.
type OutboundMessage struct {
	To           string   `json:"to"`
	Text         string   `json:"text"`
	RouteID      string   `json:"routeId,omitempty"`
	MediaURLs    []string `json:"mediaUrls,omitempty"`
	QuickReplies []string `json:"quickReplies,omitempty"`
}

func messageDescriptor(s Services) graph.Descriptor {
	return graph.Descriptor{
		Type:        TypeMessage,
		Title:       "Send Message",
		Category:    CategoryTools,
		Description: "Sends text to a chat recipient, split into timed parts.",
		Create: func(*graph.Graph) *graph.Node {
			n := graph.NewNode(graph.NewNodeID(), TypeMessage,
				graph.In("content", graph.TypeString),
				graph.In("toNumber", graph.TypeString).AsOptional(),
				graph.In("quickReplies", graph.TypeStringList).AsOptional(),
				graph.In("routeId", graph.TypeString).AsOptional(),
				graph.Out("output", graph.TypeString))
			n.SetParam("toNumber", "")
			n.SetParam("routeId", "")
			n.SetParam("gatewayUrl", "")
			n.SetParam("breakMarker", DefaultBreakMarker)
			n.SetParam("delayMs", defaultDelayMs)
			return n
		},
		Behavior: &messageBehavior{relay: s.Relay},
	}
}

type messageBehavior struct {
	relay relay.Relay
}

// Execute implements graph.Behavior. Problems are written to "output"; the
// run continues.
func (b *messageBehavior) Execute(ctx context.Context, n *graph.Node, params *graph.GlobalParameters) error {
	content := n.String("content")
	if strings.TrimSpace(content) == "" {
		n.Set("output", "Error: no content to send")
		return nil
	}
	to := strings.TrimSpace(firstString(n.String("toNumber"), n.StringParam("toNumber", "")))
	if to == "" {
		n.Set("output", "Error: no recipient number")
		return nil
	}
	gateway := n.StringParam("gatewayUrl", "")
	if gateway == "" {
		n.Set("output", "Error: messaging gateway URL is not configured")
		return nil
	}

	headers := map[string]string{}
	if keyName := n.StringParam("selectedKeyName", ""); keyName != "" {
		secret, ok := params.APIKey(keyName)
		if !ok {
			n.Set("output", fmt.Sprintf("Error: no credential found for key %q", keyName))
			return nil
		}
		headers["Authorization"] = "Bearer " + secret
	}

	routeID := firstString(n.String("routeId"), n.StringParam("routeId", ""))
	marker := n.StringParam("breakMarker", DefaultBreakMarker)
	delay := time.Duration(n.IntParam("delayMs", defaultDelayMs)) * time.Millisecond
	media, parts := splitMessage(content, marker)

	msgs := make([]OutboundMessage, len(parts))
	for i, text := range parts {
		msgs[i] = OutboundMessage{To: to, Text: text, RouteID: routeID}
	}
	msgs[0].MediaURLs = media
	msgs[len(msgs)-1].QuickReplies = n.Strings("quickReplies")

	for i, msg := range msgs {
		if i > 0 && delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		resp, err := b.relay.Do(ctx, relay.Request{
			URL:     gateway,
			Method:  http.MethodPost,
			Headers: headers,
			Data:    msg,
		})
		if err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		if failure := sendFailure(resp, err); failure != "" {
			n.Set("output", fmt.Sprintf("Error: failed to send part %d of %d: %s", i+1, len(msgs), failure))
			return nil
		}
	}

	n.Set("output", fmt.Sprintf("Sent %d message(s) to %s", len(msgs), to))
	return nil
}

func sendFailure(resp *relay.Response, err error) string {
	switch {
	case err != nil:
		return err.Error()
	case resp.Error != "":
		return resp.Error
	case !resp.OK():
		return fmt.Sprintf("gateway answered %d %s", resp.Status, resp.StatusText)
	}
	return ""
}

// splitMessage pulls Markdown images out as media URLs, splits the rest on
// marker and strips emphasis and link markup from every part. It always
// returns at least one part.
func splitMessage(content, marker string) ([]string, []string) {
	var media []string
	for _, m := range markdownImage.FindAllStringSubmatch(content, -1) {
		media = append(media, m[1])
	}
	text := markdownImage.ReplaceAllString(content, "")

	var chunks []string
	if marker == "" {
		chunks = []string{text}
	} else {
		chunks = strings.Split(text, marker)
	}

	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		c = strings.TrimSpace(markupTokens.Replace(c))
		if c != "" {
			parts = append(parts, c)
		}
	}
	if len(parts) == 0 {
		parts = []string{""}
	}
	return media, parts
}
