package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"nutricoach/internal/fatsecret"
)

// fakeSource is a scripted CompositionSource that records every call.
type fakeSource struct {
	mu          sync.Mutex
	foods       map[string]*fatsecret.Food       // search term -> top hit
	searchErrs  map[string]error                 // search term -> error
	details     map[string]*fatsecret.FoodDetail // food id -> detail
	detailErrs  map[string]error                 // food id -> error
	delays      map[string]time.Duration         // search term -> artificial latency
	searchCalls []string
	getCalls    []string
}

func (f *fakeSource) Search(ctx context.Context, term string) (*fatsecret.Food, error) {
	f.mu.Lock()
	f.searchCalls = append(f.searchCalls, term)
	delay := f.delays[term]
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err := f.searchErrs[term]; err != nil {
		return nil, err
	}
	return f.foods[term], nil
}

func (f *fakeSource) GetFood(ctx context.Context, foodID string) (*fatsecret.FoodDetail, error) {
	f.mu.Lock()
	f.getCalls = append(f.getCalls, foodID)
	f.mu.Unlock()

	if err := f.detailErrs[foodID]; err != nil {
		return nil, err
	}
	return f.details[foodID], nil
}

func (f *fakeSource) searched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.searchCalls...)
}

// fakeEstimator records estimate calls and returns fixed values.
type fakeEstimator struct {
	mu     sync.Mutex
	calls  []string
	result Nutrients
	reason string
}

func (f *fakeEstimator) Estimate(ctx context.Context, name string, weightGrams float64) (Nutrients, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return f.result, f.reason
}

func (f *fakeEstimator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func chickenMention() FoodMention {
	return FoodMention{
		Name:               "닭가슴살",
		SearchTermSpecific: "grilled chicken breast",
		SearchTermGeneric:  "chicken breast",
		WeightGrams:        100,
	}
}

func TestResolve_SpecificShortCircuit(t *testing.T) {
	source := &fakeSource{
		foods:   map[string]*fatsecret.Food{"grilled chicken breast": {FoodID: "10", FoodName: "Grilled Chicken Breast"}},
		details: map[string]*fatsecret.FoodDetail{"10": detailWithServings("Grilled Chicken Breast", gramServing("100 g", 100, 165))},
	}
	est := &fakeEstimator{}
	r := NewResolver(source, est, 1)

	got := r.Resolve(context.Background(), chickenMention())
	if got.Method != MethodSpecific {
		t.Fatalf("Expected specific-lookup, got %s", got.Method)
	}
	if got.Detail != "100 g" {
		t.Errorf("Expected serving description in Detail, got %q", got.Detail)
	}
	if got.Nutrients.Calories != 165 {
		t.Errorf("Expected 165 kcal, got %v", got.Nutrients.Calories)
	}

	searches := source.searched()
	if len(searches) != 1 || searches[0] != "grilled chicken breast" {
		t.Errorf("Generic term must never be searched after a specific hit, got %v", searches)
	}
	if est.callCount() != 0 {
		t.Errorf("Estimator must not run, got %d calls", est.callCount())
	}
}

func TestResolve_GenericFallback(t *testing.T) {
	source := &fakeSource{
		foods:   map[string]*fatsecret.Food{"chicken breast": {FoodID: "11", FoodName: "Chicken Breast"}},
		details: map[string]*fatsecret.FoodDetail{"11": detailWithServings("Chicken Breast", gramServing("100 g", 100, 165))},
	}
	est := &fakeEstimator{}
	r := NewResolver(source, est, 1)

	got := r.Resolve(context.Background(), chickenMention())
	if got.Method != MethodGeneric {
		t.Fatalf("Expected generic-lookup, got %s", got.Method)
	}
	if !strings.HasPrefix(got.Detail, "generic match: chicken breast") {
		t.Errorf("Detail must note the generic term, got %q", got.Detail)
	}

	searches := source.searched()
	if len(searches) != 2 || searches[0] != "grilled chicken breast" || searches[1] != "chicken breast" {
		t.Errorf("Expected specific then generic search, got %v", searches)
	}
	if est.callCount() != 0 {
		t.Errorf("Estimator must not run, got %d calls", est.callCount())
	}
}

func TestResolve_EstimationFallback(t *testing.T) {
	source := &fakeSource{}
	est := &fakeEstimator{
		result: Nutrients{Calories: 165, Protein: 31},
		reason: "typical grilled chicken breast per 100 g",
	}
	r := NewResolver(source, est, 1)

	got := r.Resolve(context.Background(), chickenMention())
	if got.Method != MethodEstimated {
		t.Fatalf("Expected estimated, got %s", got.Method)
	}
	if got.Detail != "typical grilled chicken breast per 100 g" {
		t.Errorf("Detail must carry the rationale, got %q", got.Detail)
	}
	if got.Nutrients.Calories != 165 {
		t.Errorf("Expected 165 kcal, got %v", got.Nutrients.Calories)
	}

	if len(source.searched()) != 2 {
		t.Errorf("Both lookup tiers must be attempted first, got %v", source.searched())
	}
	if est.callCount() != 1 {
		t.Fatalf("Expected exactly one estimate call, got %d", est.callCount())
	}
	if est.calls[0] != "닭가슴살" {
		t.Errorf("Estimator must receive the user's name for the food, got %q", est.calls[0])
	}
}

func TestResolve_LookupErrorsFallThrough(t *testing.T) {
	source := &fakeSource{
		searchErrs: map[string]error{"grilled chicken breast": errors.New("http 500")},
		foods:      map[string]*fatsecret.Food{"chicken breast": {FoodID: "11", FoodName: "Chicken Breast"}},
		details:    map[string]*fatsecret.FoodDetail{"11": detailWithServings("Chicken Breast", gramServing("100 g", 100, 165))},
	}
	r := NewResolver(source, &fakeEstimator{}, 1)

	got := r.Resolve(context.Background(), chickenMention())
	if got.Method != MethodGeneric {
		t.Errorf("Search error must fall through to generic, got %s", got.Method)
	}
}

func TestResolve_DetailErrorFallsThrough(t *testing.T) {
	source := &fakeSource{
		foods: map[string]*fatsecret.Food{
			"grilled chicken breast": {FoodID: "10", FoodName: "Grilled Chicken Breast"},
		},
		detailErrs: map[string]error{"10": errors.New("timeout")},
	}
	est := &fakeEstimator{reason: "estimated"}
	r := NewResolver(source, est, 1)

	got := r.Resolve(context.Background(), chickenMention())
	if got.Method != MethodEstimated {
		t.Errorf("Detail error with no generic match must estimate, got %s", got.Method)
	}
}

func TestResolve_NoGramServingFallsThrough(t *testing.T) {
	source := &fakeSource{
		foods: map[string]*fatsecret.Food{
			"grilled chicken breast": {FoodID: "10", FoodName: "Grilled Chicken Breast"},
		},
		details: map[string]*fatsecret.FoodDetail{
			"10": detailWithServings("Grilled Chicken Breast",
				fatsecret.Serving{ServingDescription: "1 fillet", MetricServingAmount: 1, MetricServingUnit: "fillet", Calories: 165}),
		},
	}
	est := &fakeEstimator{reason: "estimated"}
	r := NewResolver(source, est, 1)

	got := r.Resolve(context.Background(), chickenMention())
	if got.Method != MethodEstimated {
		t.Errorf("No gram serving anywhere must estimate, got %s", got.Method)
	}
}

func TestResolve_BlankTermsSkipLookups(t *testing.T) {
	source := &fakeSource{}
	est := &fakeEstimator{reason: "estimated"}
	r := NewResolver(source, est, 1)

	got := r.Resolve(context.Background(), FoodMention{Name: "정체불명 떡", WeightGrams: 120})
	if got.Method != MethodEstimated {
		t.Fatalf("Expected estimated, got %s", got.Method)
	}
	if len(source.searched()) != 0 {
		t.Errorf("Blank terms must not hit the composition source, got %v", source.searched())
	}
}

func TestResolveAll_SequentialOrder(t *testing.T) {
	source := &fakeSource{
		foods:   map[string]*fatsecret.Food{"cooked white rice": {FoodID: "20", FoodName: "White Rice"}},
		details: map[string]*fatsecret.FoodDetail{"20": detailWithServings("White Rice", gramServing("100 g", 100, 130))},
	}
	est := &fakeEstimator{result: Nutrients{Calories: 165}, reason: "estimated"}
	r := NewResolver(source, est, 1)

	mentions := []FoodMention{
		{Name: "밥", SearchTermSpecific: "cooked white rice", SearchTermGeneric: "rice", WeightGrams: 200},
		{Name: "닭가슴살", SearchTermSpecific: "mystery specific", SearchTermGeneric: "mystery generic", WeightGrams: 100},
	}

	results := r.ResolveAll(context.Background(), mentions)
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].Name != "밥" || results[0].Method != MethodSpecific {
		t.Errorf("Unexpected first result: %+v", results[0])
	}
	if results[0].Nutrients.Calories != 260 {
		t.Errorf("Expected 260 kcal for 200 g rice, got %v", results[0].Nutrients.Calories)
	}
	if results[1].Name != "닭가슴살" || results[1].Method != MethodEstimated {
		t.Errorf("Unexpected second result: %+v", results[1])
	}

	total := Sum(results)
	if total.Total.Calories != 425 {
		t.Errorf("Expected 425 kcal total, got %v", total.Total.Calories)
	}
}

func TestResolveAll_ConcurrentPreservesOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	source := &fakeSource{
		foods: map[string]*fatsecret.Food{
			"slow food":   {FoodID: "30", FoodName: "Slow Food"},
			"medium food": {FoodID: "31", FoodName: "Medium Food"},
			"fast food":   {FoodID: "32", FoodName: "Fast Food"},
		},
		details: map[string]*fatsecret.FoodDetail{
			"30": detailWithServings("Slow Food", gramServing("100 g", 100, 100)),
			"31": detailWithServings("Medium Food", gramServing("100 g", 100, 200)),
			"32": detailWithServings("Fast Food", gramServing("100 g", 100, 300)),
		},
		delays: map[string]time.Duration{
			"slow food":   60 * time.Millisecond,
			"medium food": 30 * time.Millisecond,
		},
	}
	est := &fakeEstimator{reason: "estimated"}
	r := NewResolver(source, est, 4)

	mentions := []FoodMention{
		{Name: "first", SearchTermSpecific: "slow food", WeightGrams: 100},
		{Name: "second", SearchTermSpecific: "medium food", WeightGrams: 100},
		{Name: "third", SearchTermSpecific: "fast food", WeightGrams: 100},
		{Name: "fourth", SearchTermSpecific: "no such food", WeightGrams: 100},
	}

	results := r.ResolveAll(context.Background(), mentions)
	if len(results) != 4 {
		t.Fatalf("Expected 4 results, got %d", len(results))
	}
	for i, m := range mentions {
		if results[i].Name != m.Name {
			t.Errorf("Result %d out of order: got %q, want %q", i, results[i].Name, m.Name)
		}
	}
	if results[0].Nutrients.Calories != 100 || results[2].Nutrients.Calories != 300 {
		t.Errorf("Results paired with wrong mentions: %+v", results)
	}
	if results[3].Method != MethodEstimated {
		t.Errorf("Unmatched mention must estimate, got %s", results[3].Method)
	}
}

func TestResolveAll_FailureIsolation(t *testing.T) {
	defer goleak.VerifyNone(t)

	source := &fakeSource{
		searchErrs: map[string]error{
			"broken specific": errors.New("http 500"),
			"broken generic":  errors.New("http 500"),
		},
		foods:   map[string]*fatsecret.Food{"cooked white rice": {FoodID: "20", FoodName: "White Rice"}},
		details: map[string]*fatsecret.FoodDetail{"20": detailWithServings("White Rice", gramServing("100 g", 100, 130))},
	}
	est := &fakeEstimator{result: Nutrients{Calories: 50}, reason: "estimated"}
	r := NewResolver(source, est, 2)

	mentions := []FoodMention{
		{Name: "broken", SearchTermSpecific: "broken specific", SearchTermGeneric: "broken generic", WeightGrams: 100},
		{Name: "rice", SearchTermSpecific: "cooked white rice", WeightGrams: 100},
	}

	results := r.ResolveAll(context.Background(), mentions)
	if results[0].Method != MethodEstimated {
		t.Errorf("Broken mention must degrade to estimation, got %s", results[0].Method)
	}
	if results[1].Method != MethodSpecific || results[1].Nutrients.Calories != 130 {
		t.Errorf("Healthy mention must be unaffected: %+v", results[1])
	}
}

func TestResolveAll_Empty(t *testing.T) {
	r := NewResolver(&fakeSource{}, &fakeEstimator{}, 1)
	if results := r.ResolveAll(context.Background(), nil); results != nil {
		t.Errorf("Expected nil for no mentions, got %v", results)
	}
}
