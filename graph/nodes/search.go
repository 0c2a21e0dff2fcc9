package nodes

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dshills/agentgraph-go/graph"
	"github.com/dshills/agentgraph-go/graph/knowledge"
	"github.com/dshills/agentgraph-go/graph/search"
	"golang.org/x/sync/errgroup"
)

// EngineLocal searches the knowledge base instead of the web.
const EngineLocal = "local"

// Search defaults.
const (
	defaultMaxResults = 5
	defaultDistance   = 0.5
)

func searchDescriptor(s Services) graph.Descriptor {
	return graph.Descriptor{
		Type:        TypeSearch,
		Title:       "Search",
		Category:    CategoryTools,
		Description: "Finds documents in the knowledge base or on the web.",
		Create: func(*graph.Graph) *graph.Node {
			return graph.NewNode(graph.NewNodeID(), TypeSearch,
				graph.In("input", graph.TypeString),
				graph.In("engine", graph.TypeString).AsPersistent(EngineLocal),
				graph.In("domain", graph.TypeString).AsPersistent(""),
				graph.In("distance", graph.TypeNumber).AsPersistent(defaultDistance),
				graph.In("maxResults", graph.TypeNumber).AsPersistent(defaultMaxResults),
				graph.In("collections", graph.TypeStringList).AsPersistent([]string{}),
				graph.Out("output", graph.TypeDoc),
				graph.Out("references", graph.TypeReferences))
		},
		Behavior: &searchBehavior{services: s},
	}
}

type searchBehavior struct {
	services Services
}

// Execute implements graph.Behavior. Search problems never abort the run:
// they are logged and leave the outputs empty.
func (b *searchBehavior) Execute(ctx context.Context, n *graph.Node, params *graph.GlobalParameters) error {
	query := strings.TrimSpace(n.String("input"))
	if query == "" {
		n.Clear("output")
		n.Clear("references")
		return nil
	}

	log := runLogger(ctx, n)
	engine := strings.ToLower(firstString(n.String("engine"), EngineLocal))
	maxResults := intValue(n, "maxResults", defaultMaxResults)
	distance := floatValue(n, "distance", defaultDistance)

	var docs []graph.Document
	if engine == EngineLocal {
		docs = b.searchLocal(ctx, log, params, query, n.Strings("collections"), distance, maxResults)
	} else {
		docs = b.searchWeb(ctx, log, params, engine, query, n.String("domain"), distance, maxResults)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	docs = dedupDocuments(docs)
	n.Set("output", docs)
	n.Set("references", referencesFor(docs))
	return nil
}

// searchLocal embeds the query once and looks it up in every collection
// concurrently. Distance is the minimum similarity. A failing collection
// contributes no documents; results keep the collections' order.
func (b *searchBehavior) searchLocal(ctx context.Context, log *slog.Logger, params *graph.GlobalParameters,
	query string, collections []string, distance float64, maxResults int) []graph.Document {
	if b.services.Knowledge == nil {
		log.Warn("local search requested but no knowledge store is configured")
		return nil
	}
	if len(collections) == 0 {
		log.Warn("local search without collections")
		return nil
	}

	provider := b.services.EmbeddingProvider
	key, ok := params.APIKey(provider)
	if !ok {
		log.Warn("no API key for embedding provider", "provider", provider)
		return nil
	}
	embedder, err := b.services.Embedders(provider, key)
	if err != nil {
		log.Warn("embedder unavailable", "provider", provider, "error", err)
		return nil
	}
	vector, err := embedder.Embed(ctx, query)
	if err != nil {
		log.Warn("query embedding failed", "provider", provider, "error", err)
		return nil
	}

	found := make([][]knowledge.Match, len(collections))
	g, gctx := errgroup.WithContext(ctx)
	for i, collection := range collections {
		g.Go(func() error {
			matches, err := b.services.Knowledge.Match(gctx, collection, vector, distance, maxResults)
			if err != nil {
				log.Warn("collection lookup failed", "collection", collection, "error", err)
				return nil
			}
			found[i] = matches
			return nil
		})
	}
	_ = g.Wait()

	var docs []graph.Document
	for _, matches := range found {
		for _, m := range matches {
			docs = append(docs, m.Document)
		}
	}
	return docs
}

// searchWeb runs one remote search. Distance is the maximum allowed
// 1-score; results without a score are kept.
func (b *searchBehavior) searchWeb(ctx context.Context, log *slog.Logger, params *graph.GlobalParameters,
	engineName, query, domain string, distance float64, maxResults int) []graph.Document {
	key, ok := params.APIKey(engineName)
	if !ok {
		log.Warn("no API key for search engine", "engine", engineName)
		return nil
	}
	engine, err := b.services.Search(engineName, key)
	if err != nil {
		log.Warn("search engine unavailable", "engine", engineName, "error", err)
		return nil
	}

	results, err := engine.Search(ctx, search.Query{Text: query, Domain: domain, MaxResults: maxResults})
	if err != nil {
		log.Warn("web search failed", "engine", engineName, "error", err)
		return nil
	}

	docs := make([]graph.Document, 0, len(results))
	for _, r := range results {
		if r.Score != nil && 1-*r.Score > distance {
			log.Debug("search result filtered by distance", "engine", engineName, "url", r.URL, "score", *r.Score, "distance", distance)
			continue
		}
		docs = append(docs, graph.Document{
			Title:  r.Title,
			Body:   r.Content,
			Ref:    r.URL,
			Source: engineName,
			Domain: domain,
		})
	}
	return docs
}

// dedupDocuments drops repeated documents, keyed by source and reference,
// keeping the first occurrence.
func dedupDocuments(docs []graph.Document) []graph.Document {
	seen := make(map[string]bool, len(docs))
	out := make([]graph.Document, 0, len(docs))
	for _, d := range docs {
		key := firstString(d.Source, "unknown") + "-" + firstString(d.Ref, d.Title)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	return out
}

func referencesFor(docs []graph.Document) []graph.Reference {
	refs := make([]graph.Reference, 0, len(docs))
	for _, d := range docs {
		refs = append(refs, graph.Reference{
			Link:  firstString(d.Ref, d.Source),
			Title: firstString(d.Title, "Search Result"),
		})
	}
	return refs
}
