// Package profile holds the user's body profile and derives daily
// calorie and macro targets from it. The math is Mifflin-St Jeor BMR,
// an activity multiplier, a goal adjustment with a sex-specific floor,
// and bodyweight-based protein/fat splits with carbohydrate taking the
// remaining calories.
package profile

import (
	"fmt"
	"math"
)

type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

type ActivityLevel string

const (
	ActivitySedentary  ActivityLevel = "sedentary"
	ActivityLight      ActivityLevel = "light"
	ActivityModerate   ActivityLevel = "moderate"
	ActivityActive     ActivityLevel = "active"
	ActivityVeryActive ActivityLevel = "very_active"
)

type Goal string

const (
	GoalLose     Goal = "lose"
	GoalGain     Goal = "gain"
	GoalMaintain Goal = "maintain"
)

type ExerciseLevel string

const (
	ExerciseNone    ExerciseLevel = "none"
	ExerciseLight   ExerciseLevel = "light"
	ExerciseRegular ExerciseLevel = "regular"
)

// Profile is the user's body data and goals.
type Profile struct {
	Age            int           `json:"age"`
	Sex            Sex           `json:"sex"`
	HeightCm       float64       `json:"height_cm"`
	WeightKg       float64       `json:"weight_kg"`
	ActivityLevel  ActivityLevel `json:"activity_level"`
	Goal           Goal          `json:"goal"`
	ExerciseLevel  ExerciseLevel `json:"exercise_level"`
	DietPreference string        `json:"diet_preference,omitempty"`
	HealthNote     string        `json:"health_note,omitempty"`
}

// Validate checks the fields a target computation depends on. An empty
// exercise level is allowed and treated as none.
func (p Profile) Validate() error {
	if p.Age <= 0 || p.Age > 120 {
		return fmt.Errorf("age must be between 1 and 120, got %d", p.Age)
	}
	if p.Sex != SexMale && p.Sex != SexFemale {
		return fmt.Errorf("sex must be %q or %q, got %q", SexMale, SexFemale, p.Sex)
	}
	if p.HeightCm <= 0 {
		return fmt.Errorf("height must be positive, got %v", p.HeightCm)
	}
	if p.WeightKg <= 0 {
		return fmt.Errorf("weight must be positive, got %v", p.WeightKg)
	}
	if _, ok := activityFactors[p.ActivityLevel]; !ok {
		return fmt.Errorf("unknown activity level %q", p.ActivityLevel)
	}
	switch p.Goal {
	case GoalLose, GoalGain, GoalMaintain:
	default:
		return fmt.Errorf("unknown goal %q", p.Goal)
	}
	switch p.ExerciseLevel {
	case ExerciseNone, ExerciseLight, ExerciseRegular, "":
	default:
		return fmt.Errorf("unknown exercise level %q", p.ExerciseLevel)
	}
	return nil
}

// MacroTargets is the derived daily budget. Gram fields are rounded to
// whole grams; the percent fields record each macro's share of the
// calorie target to one decimal, for audit.
type MacroTargets struct {
	BMR        float64 `json:"bmr"`
	TDEE       float64 `json:"tdee"`
	TargetKcal int     `json:"target_kcal"`
	ProteinG   int     `json:"protein_g"`
	FatG       int     `json:"fat_g"`
	CarbG      int     `json:"carb_g"`
	ProteinPct float64 `json:"protein_pct"`
	FatPct     float64 `json:"fat_pct"`
	CarbPct    float64 `json:"carb_pct"`
}

var activityFactors = map[ActivityLevel]float64{
	ActivitySedentary:  1.2,
	ActivityLight:      1.375,
	ActivityModerate:   1.55,
	ActivityActive:     1.725,
	ActivityVeryActive: 1.9,
}

var proteinPerKg = map[ExerciseLevel]float64{
	ExerciseNone:    1.2,
	ExerciseLight:   1.6,
	ExerciseRegular: 2.0,
}

func (a ActivityLevel) factor() float64 {
	if f, ok := activityFactors[a]; ok {
		return f
	}
	return 1.2
}

func (e ExerciseLevel) proteinFactor() float64 {
	if f, ok := proteinPerKg[e]; ok {
		return f
	}
	return 1.2
}

// BMR computes basal metabolic rate by the Mifflin-St Jeor equation.
func BMR(p Profile) float64 {
	base := 10*p.WeightKg + 6.25*p.HeightCm - 5*float64(p.Age)
	if p.Sex == SexMale {
		return base + 5
	}
	return base - 161
}

// ComputeTargets derives the daily targets from a profile:
//
//	TDEE   = BMR x activity factor
//	target = TDEE - 500 (lose) / + 300 (gain) / + 0 (maintain),
//	         floored at 1200 kcal (male) / 1000 kcal (female)
//	protein = weight x 1.2/1.6/2.0 g per kg by exercise level
//	fat     = weight x 0.8 g per kg, trimmed first when the protein+fat
//	          calories already exceed the target (never below 0)
//	carbs   = remaining calories / 4, floored at 0
func ComputeTargets(p Profile) MacroTargets {
	bmr := BMR(p)
	tdee := bmr * p.ActivityLevel.factor()

	target := tdee
	switch p.Goal {
	case GoalLose:
		target -= 500
	case GoalGain:
		target += 300
	}

	floor := 1200.0
	if p.Sex == SexFemale {
		floor = 1000.0
	}
	if target < floor {
		target = floor
	}

	proteinG := p.WeightKg * p.ExerciseLevel.proteinFactor()
	fatG := p.WeightKg * 0.8

	proteinKcal := proteinG * 4
	if proteinKcal+fatG*9 > target {
		fatG = (target - proteinKcal) / 9
		if fatG < 0 {
			fatG = 0
		}
	}
	fatKcal := fatG * 9

	carbKcal := target - proteinKcal - fatKcal
	if carbKcal < 0 {
		carbKcal = 0
	}
	carbG := carbKcal / 4

	return MacroTargets{
		BMR:        round1(bmr),
		TDEE:       round1(tdee),
		TargetKcal: int(math.Round(target)),
		ProteinG:   int(math.Round(proteinG)),
		FatG:       int(math.Round(fatG)),
		CarbG:      int(math.Round(carbG)),
		ProteinPct: round1(proteinKcal / target * 100),
		FatPct:     round1(fatKcal / target * 100),
		CarbPct:    round1(carbKcal / target * 100),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
