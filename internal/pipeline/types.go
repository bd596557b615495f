// Package pipeline turns free-text meal descriptions into nutrient
// totals. A meal is extracted into food mentions, each mention runs
// through a three-tier resolution chain (specific lookup, generic
// lookup, model estimation), and the resolved records sum into one
// MealTotal.
package pipeline

import "math"

// Method tags which resolution tier produced a mention's nutrients.
type Method string

const (
	MethodSpecific  Method = "specific-lookup"
	MethodGeneric   Method = "generic-lookup"
	MethodEstimated Method = "estimated"
)

// FoodMention is one food item extracted from a meal description.
// Name keeps the user's own wording; the search terms are English
// because the composition source indexes English food names.
type FoodMention struct {
	Name               string  `json:"name"`
	SearchTermSpecific string  `json:"search_term_specific"`
	SearchTermGeneric  string  `json:"search_term_generic"`
	WeightGrams        float64 `json:"weight_g"`
}

// Nutrients holds one portion's nutrient values. Calories are kcal,
// sodium is mg, everything else is grams.
type Nutrients struct {
	Calories     float64 `json:"calories"`
	Carbohydrate float64 `json:"carbohydrate"`
	Protein      float64 `json:"protein"`
	Fat          float64 `json:"fat"`
	Sugar        float64 `json:"sugar"`
	Sodium       float64 `json:"sodium"`
}

// Add returns the elementwise sum of two nutrient records.
func (n Nutrients) Add(o Nutrients) Nutrients {
	return Nutrients{
		Calories:     n.Calories + o.Calories,
		Carbohydrate: n.Carbohydrate + o.Carbohydrate,
		Protein:      n.Protein + o.Protein,
		Fat:          n.Fat + o.Fat,
		Sugar:        n.Sugar + o.Sugar,
		Sodium:       n.Sodium + o.Sodium,
	}
}

// Scale returns the record multiplied by ratio. Stored nutrient values
// are never negative or NaN; out-of-range inputs clamp to zero.
func (n Nutrients) Scale(ratio float64) Nutrients {
	return Nutrients{
		Calories:     clampNonNegative(n.Calories * ratio),
		Carbohydrate: clampNonNegative(n.Carbohydrate * ratio),
		Protein:      clampNonNegative(n.Protein * ratio),
		Fat:          clampNonNegative(n.Fat * ratio),
		Sugar:        clampNonNegative(n.Sugar * ratio),
		Sodium:       clampNonNegative(n.Sodium * ratio),
	}
}

func clampNonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}

// ResolvedNutrients is the outcome of resolving one mention. Detail
// carries the audit trail: the matched serving description for lookups,
// or the model's rationale for estimates.
type ResolvedNutrients struct {
	Name        string    `json:"name"`
	WeightGrams float64   `json:"weight_g"`
	Nutrients   Nutrients `json:"nutrients"`
	Method      Method    `json:"method"`
	Detail      string    `json:"detail,omitempty"`
}

// MealTotal aggregates one meal's resolved items.
type MealTotal struct {
	Items []ResolvedNutrients `json:"items"`
	Total Nutrients           `json:"total"`
}

// Sum builds the MealTotal for a list of resolved items. Zero items is
// a valid meal with an all-zero total.
func Sum(items []ResolvedNutrients) MealTotal {
	var total Nutrients
	for _, item := range items {
		total = total.Add(item.Nutrients)
	}
	return MealTotal{Items: items, Total: total}
}
