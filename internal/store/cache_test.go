package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"nutricoach/internal/fatsecret"
)

type countingSource struct {
	mu          sync.Mutex
	searchCalls int
	getCalls    int
	food        *fatsecret.Food
	detail      *fatsecret.FoodDetail
	err         error
}

func (s *countingSource) Search(ctx context.Context, term string) (*fatsecret.Food, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchCalls++
	if s.err != nil {
		return nil, s.err
	}
	return s.food, nil
}

func (s *countingSource) GetFood(ctx context.Context, foodID string) (*fatsecret.FoodDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	if s.err != nil {
		return nil, s.err
	}
	return s.detail, nil
}

func riceDetail() *fatsecret.FoodDetail {
	d := &fatsecret.FoodDetail{FoodID: "20", FoodName: "White Rice"}
	d.Servings.Serving = fatsecret.ServingList{{
		ServingDescription:  "100 g",
		MetricServingAmount: 100,
		MetricServingUnit:   "g",
		Calories:            130,
		Carbohydrate:        28.2,
		Protein:             2.7,
	}}
	return d
}

func newTestCache(t *testing.T, source Source, ttl time.Duration) *LookupCache {
	t.Helper()
	c, err := NewLookupCache(source, filepath.Join(t.TempDir(), "cache.db"), ttl)
	if err != nil {
		t.Fatalf("NewLookupCache failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestLookupCache_SearchHitAvoidsSecondCall(t *testing.T) {
	source := &countingSource{food: &fatsecret.Food{FoodID: "20", FoodName: "White Rice"}}
	c := newTestCache(t, source, time.Hour)

	first, err := c.Search(context.Background(), "rice")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	second, err := c.Search(context.Background(), "rice")
	if err != nil {
		t.Fatalf("Cached search failed: %v", err)
	}

	if source.searchCalls != 1 {
		t.Errorf("Expected exactly one live call, got %d", source.searchCalls)
	}
	if first.FoodID != second.FoodID || second.FoodName != "White Rice" {
		t.Errorf("Cached result differs: %+v vs %+v", first, second)
	}
}

func TestLookupCache_NegativeResultNotCached(t *testing.T) {
	source := &countingSource{food: nil}
	c := newTestCache(t, source, time.Hour)

	for i := 0; i < 2; i++ {
		food, err := c.Search(context.Background(), "nothing")
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if food != nil {
			t.Fatalf("Expected no match, got %+v", food)
		}
	}
	if source.searchCalls != 2 {
		t.Errorf("No-match results must not be cached, got %d calls", source.searchCalls)
	}
}

func TestLookupCache_TTLExpiry(t *testing.T) {
	source := &countingSource{food: &fatsecret.Food{FoodID: "20", FoodName: "White Rice"}}
	c := newTestCache(t, source, time.Hour)

	base := time.Now()
	c.now = func() time.Time { return base }

	if _, err := c.Search(context.Background(), "rice"); err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	c.now = func() time.Time { return base.Add(2 * time.Hour) }
	if _, err := c.Search(context.Background(), "rice"); err != nil {
		t.Fatalf("Search after expiry failed: %v", err)
	}

	if source.searchCalls != 2 {
		t.Errorf("Expired entry must refetch, got %d calls", source.searchCalls)
	}
}

func TestLookupCache_GetFoodRoundTrip(t *testing.T) {
	source := &countingSource{detail: riceDetail()}
	c := newTestCache(t, source, time.Hour)

	if _, err := c.GetFood(context.Background(), "20"); err != nil {
		t.Fatalf("GetFood failed: %v", err)
	}
	cached, err := c.GetFood(context.Background(), "20")
	if err != nil {
		t.Fatalf("Cached GetFood failed: %v", err)
	}

	if source.getCalls != 1 {
		t.Errorf("Expected exactly one live call, got %d", source.getCalls)
	}
	if cached.FoodName != "White Rice" {
		t.Errorf("Unexpected cached name: %s", cached.FoodName)
	}
	servings := cached.Servings.Serving
	if len(servings) != 1 {
		t.Fatalf("Expected 1 serving, got %d", len(servings))
	}
	if servings[0].MetricServingUnit != "g" || servings[0].Calories.Float64() != 130 {
		t.Errorf("Cached serving corrupted: %+v", servings[0])
	}
}

func TestLookupCache_ErrorPassesThroughUncached(t *testing.T) {
	source := &countingSource{err: errors.New("http 500")}
	c := newTestCache(t, source, time.Hour)

	if _, err := c.Search(context.Background(), "rice"); err == nil {
		t.Fatal("Expected source error to propagate")
	}

	source.mu.Lock()
	source.err = nil
	source.food = &fatsecret.Food{FoodID: "20", FoodName: "White Rice"}
	source.mu.Unlock()

	food, err := c.Search(context.Background(), "rice")
	if err != nil {
		t.Fatalf("Search after recovery failed: %v", err)
	}
	if food == nil || food.FoodID != "20" {
		t.Errorf("Expected live result after recovery, got %+v", food)
	}
	if source.searchCalls != 2 {
		t.Errorf("Errors must not be cached, got %d calls", source.searchCalls)
	}
}

func TestLookupCache_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	source := &countingSource{food: &fatsecret.Food{FoodID: "20", FoodName: "White Rice"}}

	c1, err := NewLookupCache(source, path, time.Hour)
	if err != nil {
		t.Fatalf("NewLookupCache failed: %v", err)
	}
	if _, err := c1.Search(context.Background(), "rice"); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	c1.Close()

	c2, err := NewLookupCache(source, path, time.Hour)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer c2.Close()

	food, err := c2.Search(context.Background(), "rice")
	if err != nil {
		t.Fatalf("Search after reopen failed: %v", err)
	}
	if food == nil || food.FoodID != "20" {
		t.Errorf("Expected persisted hit, got %+v", food)
	}
	if source.searchCalls != 1 {
		t.Errorf("Persisted entry must not refetch, got %d calls", source.searchCalls)
	}
}
