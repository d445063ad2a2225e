package embedding

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/time/rate"
)

// generateTimeout bounds one adapter call so a hanging provider costs
// at most this much before the orchestrator moves down the try-order.
const generateTimeout = 10 * time.Second

// Urgency selects the try-order policy.
type Urgency int

const (
	// UrgencyLow tries the cheapest provider first.
	UrgencyLow Urgency = iota
	// UrgencyHigh tries the fastest provider first, ignoring any
	// preferred provider.
	UrgencyHigh
)

func (u Urgency) String() string {
	if u == UrgencyHigh {
		return "high"
	}
	return "low"
}

// Options steer provider selection for one Embed call.
type Options struct {
	// PreferredProvider moves the named provider to the front of the
	// try-order. Ignored under UrgencyHigh.
	PreferredProvider string
	Urgency           Urgency
}

// Orchestrator resolves text to a vector through a provider try-order
// with cache-first lookup, per-provider call budgets and circuit
// breakers, and a deterministic hash fallback once the chain is
// exhausted. Embed fails only on context cancellation, never for
// generation reasons.
type Orchestrator struct {
	adapters []Adapter // registration order breaks sort ties
	cache    *Cache
	fallback *HashAdapter
	limiters map[string]*rate.Limiter
	breakers map[string]*breaker
	logger   *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the orchestrator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRateLimit caps one provider's calls per second. This is the
// shared provider-call budget; user-level rate limiting lives upstream.
func WithRateLimit(providerID string, rps float64) Option {
	return func(o *Orchestrator) {
		if rps <= 0 {
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		o.limiters[providerID] = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewOrchestrator creates an orchestrator over the given adapters.
// dimensions sets the width of fallback vectors and must match what
// the adapters are configured to emit.
func NewOrchestrator(adapters []Adapter, cache *Cache, dimensions int, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		adapters: slices.Clone(adapters),
		cache:    cache,
		fallback: NewHashAdapter(dimensions),
		limiters: make(map[string]*rate.Limiter),
		breakers: make(map[string]*breaker),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.cache == nil {
		o.cache = NewCache(DefaultCacheCapacity)
	}
	for _, a := range o.adapters {
		o.breakers[a.ProviderID()] = newBreaker()
	}
	return o
}

// Embed resolves text to a vector. The text is normalized once, then:
//
//  1. every provider in the try-order is checked against the cache; a
//     hit under any of them returns without an adapter call,
//  2. adapters are tried sequentially, logging and moving on at each
//     failure,
//  3. an exhausted chain degrades to the deterministic hash embedding
//     tagged with provider "fallback-hash".
//
// The only returned error is the context's, when cancellation hits
// before a vector was resolved.
func (o *Orchestrator) Embed(ctx context.Context, text string, opts Options) (Vector, error) {
	normalized := NormalizeText(text)
	if normalized == "" {
		// Nothing for a provider to embed.
		return o.fallback.Generate(ctx, normalized)
	}
	hash := TextHash(normalized)
	order := o.tryOrder(opts)

	for _, a := range order {
		if v, ok := o.cache.Get(a.ProviderID(), hash); ok {
			o.logger.Debug("embedding cache hit", "provider", a.ProviderID())
			return v, nil
		}
	}

	for _, a := range order {
		if err := ctx.Err(); err != nil {
			return Vector{}, err
		}

		id := a.ProviderID()
		br := o.breakers[id]
		if !br.allow() {
			o.logger.Debug("provider circuit open, skipping",
				"provider", id, "state", br.current().String())
			continue
		}
		if lim := o.limiters[id]; lim != nil && !lim.Allow() {
			o.logger.Debug("provider call budget exhausted, skipping", "provider", id)
			continue
		}

		genCtx, cancel := context.WithTimeout(ctx, generateTimeout)
		v, err := a.Generate(genCtx, normalized)
		cancel()
		if err != nil {
			br.failure()
			o.logger.Warn("embedding provider failed",
				"provider", id, "urgency", opts.Urgency.String(), "error", err)
			continue
		}

		br.success()
		o.cache.Put(id, hash, v)
		return v, nil
	}

	if err := ctx.Err(); err != nil {
		return Vector{}, err
	}

	o.logger.Warn("degrading to deterministic hash embedding",
		"providers", len(order), "error", ErrAllProvidersFailed)
	return o.fallback.Generate(ctx, normalized)
}

// tryOrder computes the provider order for one call. High urgency
// sorts by typical latency regardless of preference; everything else
// sorts by cost with the preferred provider, when registered, moved to
// the front. Ties keep registration order.
func (o *Orchestrator) tryOrder(opts Options) []Adapter {
	order := slices.Clone(o.adapters)

	if opts.Urgency == UrgencyHigh {
		slices.SortStableFunc(order, func(a, b Adapter) int {
			return cmp.Compare(a.Capabilities().TypicalLatency, b.Capabilities().TypicalLatency)
		})
		return order
	}

	slices.SortStableFunc(order, func(a, b Adapter) int {
		return cmp.Compare(a.Capabilities().CostPerKTokens, b.Capabilities().CostPerKTokens)
	})

	if opts.PreferredProvider == "" {
		return order
	}
	for i, a := range order {
		if a.ProviderID() == opts.PreferredProvider {
			preferred := order[i]
			copy(order[1:i+1], order[:i])
			order[0] = preferred
			return order
		}
	}
	o.logger.Warn("preferred embedding provider not registered",
		"provider", opts.PreferredProvider)
	return order
}
