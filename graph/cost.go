package graph

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// ModelPricing defines input and output token costs for a model.
// Prices are in USD per 1M tokens.
type ModelPricing struct {
	InputPer1M  float64
	OutputPer1M float64
}

// Static pricing keyed by model ID, without the provider prefix.
// Prices change; override with SetCustomPricing.
var defaultModelPricing = map[string]ModelPricing{
	// OpenAI
	"gpt-4o":        {InputPer1M: 2.50, OutputPer1M: 10.00},
	"gpt-4o-mini":   {InputPer1M: 0.15, OutputPer1M: 0.60},
	"gpt-4.1":       {InputPer1M: 2.00, OutputPer1M: 8.00},
	"gpt-4.1-mini":  {InputPer1M: 0.40, OutputPer1M: 1.60},
	"gpt-4-turbo":   {InputPer1M: 10.00, OutputPer1M: 30.00},
	"gpt-3.5-turbo": {InputPer1M: 0.50, OutputPer1M: 1.50},

	// Anthropic
	"claude-3-5-sonnet-latest": {InputPer1M: 3.00, OutputPer1M: 15.00},
	"claude-3-5-haiku-latest":  {InputPer1M: 0.80, OutputPer1M: 4.00},
	"claude-3-opus-latest":     {InputPer1M: 15.00, OutputPer1M: 75.00},
	"claude-3-haiku-20240307":  {InputPer1M: 0.25, OutputPer1M: 1.25},

	// Google
	"gemini-1.5-pro":   {InputPer1M: 1.25, OutputPer1M: 5.00},
	"gemini-1.5-flash": {InputPer1M: 0.075, OutputPer1M: 0.30},
	"gemini-2.0-flash": {InputPer1M: 0.10, OutputPer1M: 0.40},

	// OpenAI-compatible providers
	"deepseek-chat":           {InputPer1M: 0.27, OutputPer1M: 1.10},
	"deepseek-reasoner":       {InputPer1M: 0.55, OutputPer1M: 2.19},
	"llama-3.3-70b-versatile": {InputPer1M: 0.59, OutputPer1M: 0.79},
	"grok-2-latest":           {InputPer1M: 2.00, OutputPer1M: 10.00},
}

// LLMCall represents a single model invocation with token usage and cost.
type LLMCall struct {
	Model        string    // Model selector, e.g. "openai/gpt-4o"
	InputTokens  int       // Number of input tokens consumed
	OutputTokens int       // Number of output tokens generated
	CostUSD      float64   // Calculated cost in USD
	Timestamp    time.Time // When the call was made
	NodeID       string    // Node that made the call (optional)
	RunID        string    // Run the call belongs to
}

// CostTracker tracks token usage and cost of model calls.
//
// The engine gives every run its own tracker through the run context and,
// when configured with WithCostTracker, merges it into a long-lived tracker
// once the run settles.
//
// Usage:
//
//	tracker := graph.NewCostTracker("", "USD")
//	engine, _ := graph.NewEngine(registry, graph.WithCostTracker(tracker))
//	...
//	fmt.Println(tracker.GetTotalCost(), tracker.GetCostByModel())
//
// Thread-safe: all methods use mutex protection.
type CostTracker struct {
	// RunID associates costs with a run; empty for cross-run trackers.
	RunID string

	// Currency is the cost unit (e.g., "USD")
	Currency string

	// Pricing maps model IDs to their input/output token costs
	Pricing map[string]ModelPricing

	// Calls records all invocations with full details
	Calls []LLMCall

	// TotalCost accumulates all costs in the specified currency
	TotalCost float64

	// ModelCosts tracks costs per model selector for attribution
	ModelCosts map[string]float64

	InputTokens  int64
	OutputTokens int64

	CreatedAt time.Time

	mu      sync.RWMutex
	enabled bool
}

// NewCostTracker creates a cost tracker with the default pricing table.
func NewCostTracker(runID, currency string) *CostTracker {
	pricing := make(map[string]ModelPricing, len(defaultModelPricing))
	for k, v := range defaultModelPricing {
		pricing[k] = v
	}
	return &CostTracker{
		RunID:      runID,
		Currency:   currency,
		Pricing:    pricing,
		ModelCosts: make(map[string]float64),
		CreatedAt:  time.Now(),
		enabled:    true,
	}
}

// lookupPricing resolves a selector ("provider/model") or a bare model ID.
// Unknown models price at zero.
func (ct *CostTracker) lookupPricing(model string) ModelPricing {
	if p, ok := ct.Pricing[model]; ok {
		return p
	}
	if _, id, found := strings.Cut(model, "/"); found {
		if p, ok := ct.Pricing[id]; ok {
			return p
		}
	}
	return ModelPricing{}
}

// RecordLLMCall records one model invocation and returns its cost.
// Models missing from the pricing table are recorded at zero cost.
func (ct *CostTracker) RecordLLMCall(model string, inputTokens, outputTokens int, nodeID string) float64 {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	if !ct.enabled {
		return 0
	}

	pricing := ct.lookupPricing(model)
	inputCost := (float64(inputTokens) / 1_000_000.0) * pricing.InputPer1M
	outputCost := (float64(outputTokens) / 1_000_000.0) * pricing.OutputPer1M
	cost := inputCost + outputCost

	ct.Calls = append(ct.Calls, LLMCall{
		Model:        model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		CostUSD:      cost,
		Timestamp:    time.Now(),
		NodeID:       nodeID,
		RunID:        ct.RunID,
	})
	ct.TotalCost += cost
	ct.ModelCosts[model] += cost
	ct.InputTokens += int64(inputTokens)
	ct.OutputTokens += int64(outputTokens)
	return cost
}

// Merge folds the calls of another tracker into this one, keeping the
// already-computed costs.
func (ct *CostTracker) Merge(other *CostTracker) {
	if other == nil || other == ct {
		return
	}
	calls := other.GetCallHistory()

	ct.mu.Lock()
	defer ct.mu.Unlock()
	if !ct.enabled {
		return
	}
	for _, c := range calls {
		ct.Calls = append(ct.Calls, c)
		ct.TotalCost += c.CostUSD
		ct.ModelCosts[c.Model] += c.CostUSD
		ct.InputTokens += int64(c.InputTokens)
		ct.OutputTokens += int64(c.OutputTokens)
	}
}

// GetTotalCost returns the cumulative cost across all recorded calls.
func (ct *CostTracker) GetTotalCost() float64 {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.TotalCost
}

// GetCostByModel returns a copy of the per-model cost breakdown.
func (ct *CostTracker) GetCostByModel() map[string]float64 {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	costs := make(map[string]float64, len(ct.ModelCosts))
	for model, cost := range ct.ModelCosts {
		costs[model] = cost
	}
	return costs
}

// GetCallHistory returns a copy of all recorded calls in order.
func (ct *CostTracker) GetCallHistory() []LLMCall {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	calls := make([]LLMCall, len(ct.Calls))
	copy(calls, ct.Calls)
	return calls
}

// GetTokenUsage returns total input and output token counts.
func (ct *CostTracker) GetTokenUsage() (inputTokens, outputTokens int64) {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.InputTokens, ct.OutputTokens
}

// SetCustomPricing overrides pricing for one model ID or selector.
func (ct *CostTracker) SetCustomPricing(model string, inputPer1M, outputPer1M float64) {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	if ct.Pricing == nil {
		ct.Pricing = make(map[string]ModelPricing)
	}
	ct.Pricing[model] = ModelPricing{InputPer1M: inputPer1M, OutputPer1M: outputPer1M}
}

// pricingCopy returns a copy of the pricing table.
func (ct *CostTracker) pricingCopy() map[string]ModelPricing {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	out := make(map[string]ModelPricing, len(ct.Pricing))
	for k, v := range ct.Pricing {
		out[k] = v
	}
	return out
}

// Disable temporarily disables cost tracking.
func (ct *CostTracker) Disable() {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.enabled = false
}

// Enable re-enables cost tracking after Disable.
func (ct *CostTracker) Enable() {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.enabled = true
}

// Reset clears recorded data but keeps the pricing configuration.
func (ct *CostTracker) Reset() {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	ct.Calls = nil
	ct.TotalCost = 0
	ct.ModelCosts = make(map[string]float64)
	ct.InputTokens = 0
	ct.OutputTokens = 0
}

// String returns a human-readable summary.
func (ct *CostTracker) String() string {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	return fmt.Sprintf(
		"CostTracker{RunID: %s, Calls: %d, TotalCost: $%.4f %s, InputTokens: %d, OutputTokens: %d}",
		ct.RunID, len(ct.Calls), ct.TotalCost, ct.Currency, ct.InputTokens, ct.OutputTokens,
	)
}
