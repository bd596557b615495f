package pipeline

import (
	"testing"

	"nutricoach/internal/fatsecret"
)

func detailWithServings(name string, servings ...fatsecret.Serving) *fatsecret.FoodDetail {
	d := &fatsecret.FoodDetail{FoodID: "1", FoodName: name}
	d.Servings.Serving = servings
	return d
}

func gramServing(desc string, amount, calories float64) fatsecret.Serving {
	return fatsecret.Serving{
		ServingDescription:  desc,
		MetricServingAmount: fatsecret.FlexFloat(amount),
		MetricServingUnit:   "g",
		Calories:            fatsecret.FlexFloat(calories),
		Carbohydrate:        fatsecret.FlexFloat(calories / 10),
		Protein:             fatsecret.FlexFloat(calories / 20),
		Fat:                 fatsecret.FlexFloat(calories / 40),
		Sugar:               fatsecret.FlexFloat(calories / 100),
		Sodium:              fatsecret.FlexFloat(calories * 2),
	}
}

func TestNormalizeServings_Scaling(t *testing.T) {
	d := detailWithServings("White Rice", fatsecret.Serving{
		ServingDescription:  "100 g",
		MetricServingAmount: 100,
		MetricServingUnit:   "g",
		Calories:            200,
		Carbohydrate:        40,
		Protein:             10,
		Fat:                 5,
		Sugar:               2,
		Sodium:              300,
	})

	n, desc, ok := NormalizeServings(d, 250)
	if !ok {
		t.Fatal("Expected an eligible serving")
	}
	if desc != "100 g" {
		t.Errorf("Expected serving description, got %q", desc)
	}

	want := Nutrients{Calories: 500, Carbohydrate: 100, Protein: 25, Fat: 12.5, Sugar: 5, Sodium: 750}
	if n != want {
		t.Errorf("Scaled nutrients = %+v, want %+v", n, want)
	}
}

func TestNormalizeServings_FirstMatchWins(t *testing.T) {
	d := detailWithServings("Chicken Breast",
		gramServing("small fillet", 80, 132),
		gramServing("100 g", 100, 165),
	)

	n, desc, ok := NormalizeServings(d, 80)
	if !ok {
		t.Fatal("Expected an eligible serving")
	}
	if desc != "small fillet" {
		t.Errorf("First gram serving must win, got %q", desc)
	}
	if n.Calories != 132 {
		t.Errorf("Expected 132 kcal (ratio 1.0 against first serving), got %v", n.Calories)
	}
}

func TestNormalizeServings_SkipsIneligible(t *testing.T) {
	d := detailWithServings("Milk",
		fatsecret.Serving{ServingDescription: "1 cup", MetricServingAmount: 244, MetricServingUnit: "ml", Calories: 122},
		fatsecret.Serving{ServingDescription: "broken", MetricServingAmount: 0, MetricServingUnit: "g", Calories: 50},
		gramServing("100 g", 100, 42),
	)

	n, desc, ok := NormalizeServings(d, 200)
	if !ok {
		t.Fatal("Expected the gram serving to be found")
	}
	if desc != "100 g" {
		t.Errorf("Expected the 100 g serving, got %q", desc)
	}
	if n.Calories != 84 {
		t.Errorf("Expected 84 kcal, got %v", n.Calories)
	}
}

func TestNormalizeServings_NoEligibleServing(t *testing.T) {
	d := detailWithServings("Espresso",
		fatsecret.Serving{ServingDescription: "1 shot", MetricServingAmount: 30, MetricServingUnit: "ml", Calories: 3},
	)

	if _, _, ok := NormalizeServings(d, 60); ok {
		t.Error("Expected no eligible serving")
	}
	if _, _, ok := NormalizeServings(nil, 60); ok {
		t.Error("Expected no data for nil detail")
	}
	if _, _, ok := NormalizeServings(detailWithServings("Empty"), 60); ok {
		t.Error("Expected no data for empty serving list")
	}
}

func TestNormalizeServings_ClampsNegative(t *testing.T) {
	d := detailWithServings("Odd Data", fatsecret.Serving{
		ServingDescription:  "100 g",
		MetricServingAmount: 100,
		MetricServingUnit:   "g",
		Calories:            -50,
		Protein:             10,
	})

	n, _, ok := NormalizeServings(d, 100)
	if !ok {
		t.Fatal("Expected an eligible serving")
	}
	if n.Calories != 0 {
		t.Errorf("Negative source value must clamp to 0, got %v", n.Calories)
	}
	if n.Protein != 10 {
		t.Errorf("Expected protein 10, got %v", n.Protein)
	}
}
