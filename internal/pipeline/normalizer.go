package pipeline

import (
	"nutricoach/internal/fatsecret"
	"nutricoach/internal/logging"
)

// NormalizeServings finds a gram-based serving in a food record and
// scales its nutrients to the eaten weight. It returns the scaled
// nutrients, the serving description for the audit trail, and whether
// an eligible serving existed.
//
// Selection is first-match: the scan stops at the first serving whose
// metric unit is "g" with a positive reference amount. Later gram
// servings are ignored even when one sits closer to the eaten weight.
// Servings with a missing or non-positive metric amount are skipped and
// the scan continues.
func NormalizeServings(detail *fatsecret.FoodDetail, weightGrams float64) (Nutrients, string, bool) {
	if detail == nil {
		return Nutrients{}, "", false
	}

	for _, s := range detail.Servings.Serving {
		if s.MetricServingUnit != "g" {
			continue
		}
		referenceMass := s.MetricServingAmount.Float64()
		if referenceMass <= 0 {
			continue
		}

		ratio := weightGrams / referenceMass
		scaled := Nutrients{
			Calories:     s.Calories.Float64(),
			Carbohydrate: s.Carbohydrate.Float64(),
			Protein:      s.Protein.Float64(),
			Fat:          s.Fat.Float64(),
			Sugar:        s.Sugar.Float64(),
			Sodium:       s.Sodium.Float64(),
		}.Scale(ratio)

		logging.PipelineDebug("[Normalizer] %s: serving %q (%.0f g reference), ratio %.3f",
			detail.FoodName, s.ServingDescription, referenceMass, ratio)
		return scaled, s.ServingDescription, true
	}

	logging.PipelineDebug("[Normalizer] %s: no gram-based serving", detail.FoodName)
	return Nutrients{}, "", false
}
