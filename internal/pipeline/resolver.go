package pipeline

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"nutricoach/internal/fatsecret"
	"nutricoach/internal/logging"
)

// CompositionSource is the food-composition lookup surface the resolver
// depends on. *fatsecret.Client satisfies it, as does the caching
// decorator in internal/store.
type CompositionSource interface {
	Search(ctx context.Context, term string) (*fatsecret.Food, error)
	GetFood(ctx context.Context, foodID string) (*fatsecret.FoodDetail, error)
}

// NutrientEstimator is the last-resort tier. Implementations do not
// fail: a broken estimate is zero values plus a reason.
type NutrientEstimator interface {
	Estimate(ctx context.Context, name string, weightGrams float64) (Nutrients, string)
}

// Resolver drives the tier chain for each food mention.
type Resolver struct {
	source      CompositionSource
	estimator   NutrientEstimator
	concurrency int
}

// NewResolver creates a resolver. concurrency caps how many mentions
// resolve in flight at once; values below 2 mean strictly sequential.
func NewResolver(source CompositionSource, estimator NutrientEstimator, concurrency int) *Resolver {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Resolver{source: source, estimator: estimator, concurrency: concurrency}
}

// Resolve runs the tier chain for one mention: specific lookup, then
// generic lookup, then estimation. Each tier is attempted at most once
// and a tier that produces nutrients stops the chain. Lookup errors
// count as no data; estimation cannot fail, so Resolve always returns a
// complete record.
func (r *Resolver) Resolve(ctx context.Context, m FoodMention) ResolvedNutrients {
	if hit, ok := r.lookup(ctx, m.SearchTermSpecific, m.WeightGrams); ok {
		logging.Pipeline("[Resolver] %q resolved via specific lookup: %s", m.Name, hit.foodName)
		return ResolvedNutrients{
			Name:        m.Name,
			WeightGrams: m.WeightGrams,
			Nutrients:   hit.nutrients,
			Method:      MethodSpecific,
			Detail:      hit.servingDesc,
		}
	}

	if hit, ok := r.lookup(ctx, m.SearchTermGeneric, m.WeightGrams); ok {
		logging.Pipeline("[Resolver] %q resolved via generic lookup: %s", m.Name, hit.foodName)
		return ResolvedNutrients{
			Name:        m.Name,
			WeightGrams: m.WeightGrams,
			Nutrients:   hit.nutrients,
			Method:      MethodGeneric,
			Detail:      fmt.Sprintf("generic match: %s (%s)", m.SearchTermGeneric, hit.servingDesc),
		}
	}

	name := m.Name
	if name == "" {
		name = m.SearchTermSpecific
	}
	nutrients, reason := r.estimator.Estimate(ctx, name, m.WeightGrams)
	logging.Pipeline("[Resolver] %q estimated: %s", m.Name, reason)
	return ResolvedNutrients{
		Name:        m.Name,
		WeightGrams: m.WeightGrams,
		Nutrients:   nutrients,
		Method:      MethodEstimated,
		Detail:      reason,
	}
}

type lookupHit struct {
	nutrients   Nutrients
	foodName    string
	servingDesc string
}

// lookup is one search-then-detail-then-normalize pass. Every failure
// along the way, including a blank term, reports no data so the caller
// falls through to the next tier.
func (r *Resolver) lookup(ctx context.Context, term string, weightGrams float64) (lookupHit, bool) {
	if strings.TrimSpace(term) == "" {
		return lookupHit{}, false
	}

	food, err := r.source.Search(ctx, term)
	if err != nil {
		logging.PipelineWarn("[Resolver] search %q: %v", term, err)
		return lookupHit{}, false
	}
	if food == nil {
		return lookupHit{}, false
	}

	detail, err := r.source.GetFood(ctx, food.FoodID)
	if err != nil {
		logging.PipelineWarn("[Resolver] detail %s (%q): %v", food.FoodID, term, err)
		return lookupHit{}, false
	}

	nutrients, servingDesc, ok := NormalizeServings(detail, weightGrams)
	if !ok {
		return lookupHit{}, false
	}

	return lookupHit{nutrients: nutrients, foodName: detail.FoodName, servingDesc: servingDesc}, true
}

// ResolveAll resolves every mention, preserving input order in the
// output. With concurrency above 1 mentions resolve in parallel under a
// bounded worker limit; one mention's slow or failed lookups never
// block another's result.
func (r *Resolver) ResolveAll(ctx context.Context, mentions []FoodMention) []ResolvedNutrients {
	if len(mentions) == 0 {
		return nil
	}

	results := make([]ResolvedNutrients, len(mentions))

	if r.concurrency <= 1 || len(mentions) == 1 {
		for i, m := range mentions {
			results[i] = r.Resolve(ctx, m)
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, m := range mentions {
		i, m := i, m
		g.Go(func() error {
			results[i] = r.Resolve(ctx, m)
			return nil
		})
	}
	// Workers write disjoint indices and never return errors.
	_ = g.Wait()

	return results
}
