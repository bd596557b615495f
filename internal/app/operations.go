package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nutricoach/internal/logging"
	"nutricoach/internal/pipeline"
	"nutricoach/internal/profile"
	"nutricoach/internal/report"
)

// MealResult is one logged meal: the per-item resolutions and their
// six-key sum, already written to the journal.
type MealResult struct {
	Items []pipeline.ResolvedNutrients
	Total pipeline.Nutrients
}

// LogMeal runs the full pipeline over free text and journals the total.
// No identified food means no journal write and pipeline.ErrNoFood.
func (a *App) LogMeal(ctx context.Context, text string) (*MealResult, error) {
	mentions, err := a.extractor.Extract(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(mentions) == 0 {
		return nil, pipeline.ErrNoFood
	}

	items := a.resolver.ResolveAll(ctx, mentions)
	total := pipeline.Sum(items)

	if err := a.journal.Append(total.Total); err != nil {
		return nil, err
	}

	return &MealResult{Items: items, Total: total.Total}, nil
}

// RenderMeal formats a logged meal for display: one line per item, then
// the totals in the journal's block shape.
func RenderMeal(r *MealResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Logged %d item(s):\n", len(r.Items))
	for _, it := range r.Items {
		fmt.Fprintf(&b, "- %s (%.0f g): %.1f kcal, carb %.1f g, protein %.1f g, fat %.1f g [%s]\n",
			it.Name, it.WeightGrams,
			it.Nutrients.Calories, it.Nutrients.Carbohydrate, it.Nutrients.Protein, it.Nutrients.Fat,
			it.Method)
	}

	b.WriteString("\nMeal total:\n")
	n := r.Total
	fmt.Fprintf(&b, "  calories: %.1f kcal\n  carbohydrate: %.1f g\n  protein: %.1f g\n  fat: %.1f g\n  sugar: %.1f g\n  sodium: %.0f mg\n",
		n.Calories, n.Carbohydrate, n.Protein, n.Fat, n.Sugar, n.Sodium)
	return b.String()
}

// SaveProfile validates and persists the profile, then recomputes and
// persists the macro targets derived from it.
func (a *App) SaveProfile(p profile.Profile) (profile.MacroTargets, error) {
	if err := a.profiles.SaveProfile(p); err != nil {
		return profile.MacroTargets{}, err
	}
	targets := profile.ComputeTargets(p)
	if err := a.profiles.SaveTargets(targets); err != nil {
		return profile.MacroTargets{}, err
	}
	return targets, nil
}

// RecomputeTargets rebuilds targets from the saved profile, for use
// after the formula inputs change out of band.
func (a *App) RecomputeTargets() (profile.MacroTargets, error) {
	p, err := a.profiles.LoadProfile()
	if err != nil {
		return profile.MacroTargets{}, err
	}
	targets := profile.ComputeTargets(*p)
	if err := a.profiles.SaveTargets(targets); err != nil {
		return profile.MacroTargets{}, err
	}
	return targets, nil
}

// ShowProfile renders the saved profile and, when present, the targets.
func (a *App) ShowProfile() (string, error) {
	p, err := a.profiles.LoadProfile()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(RenderProfile(*p))
	if targets, terr := a.profiles.LoadTargets(); terr == nil {
		b.WriteString("\n")
		b.WriteString(RenderTargets(*targets))
	}
	return b.String(), nil
}

// RenderProfile formats the body profile.
func RenderProfile(p profile.Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Profile:\n")
	fmt.Fprintf(&b, "  age: %d\n  sex: %s\n  height: %.0f cm\n  weight: %.1f kg\n", p.Age, p.Sex, p.HeightCm, p.WeightKg)
	fmt.Fprintf(&b, "  activity: %s\n  goal: %s\n", p.ActivityLevel, p.Goal)
	if p.ExerciseLevel != "" {
		fmt.Fprintf(&b, "  exercise: %s\n", p.ExerciseLevel)
	}
	if p.DietPreference != "" {
		fmt.Fprintf(&b, "  diet preference: %s\n", p.DietPreference)
	}
	if p.HealthNote != "" {
		fmt.Fprintf(&b, "  health note: %s\n", p.HealthNote)
	}
	return b.String()
}

// RenderTargets formats the daily budget.
func RenderTargets(t profile.MacroTargets) string {
	var b strings.Builder
	fmt.Fprintf(&b, "BMR: %.1f kcal\nTDEE: %.1f kcal\nDaily target: %d kcal\n", t.BMR, t.TDEE, t.TargetKcal)
	fmt.Fprintf(&b, "  protein: %d g (%.1f%%)\n", t.ProteinG, t.ProteinPct)
	fmt.Fprintf(&b, "  fat: %d g (%.1f%%)\n", t.FatG, t.FatPct)
	fmt.Fprintf(&b, "  carbohydrate: %d g (%.1f%%)\n", t.CarbG, t.CarbPct)
	return b.String()
}

// DailyReportFor builds, persists and renders the daily report.
func (a *App) DailyReportFor(ctx context.Context, date time.Time) (string, error) {
	rep, err := a.reports.Daily(ctx, date)
	if err != nil {
		return "", err
	}
	return renderDaily(rep), nil
}

// WeeklyReportFor builds, persists and renders the weekly report.
func (a *App) WeeklyReportFor(ctx context.Context, date time.Time) (string, error) {
	rep, err := a.reports.Weekly(ctx, date)
	if err != nil {
		return "", err
	}
	return renderWeekly(rep), nil
}

func renderDaily(rep report.DailyReport) string {
	s := rep.Summary

	var b strings.Builder
	fmt.Fprintf(&b, "[Daily Report] %s\n", s.Date)
	if !s.HasData {
		b.WriteString("No meals journaled on this date.\n")
		return b.String()
	}

	if s.TargetKcal > 0 {
		fmt.Fprintf(&b, "  calories: %.1f / %d kcal (%.1f%%)\n", s.Intake.Calories, s.TargetKcal, s.RatioPct)
		fmt.Fprintf(&b, "  carbohydrate: %.1f / %d g\n", s.Intake.Carbohydrate, s.TargetCarbG)
		fmt.Fprintf(&b, "  protein: %.1f / %d g\n", s.Intake.Protein, s.TargetProteinG)
		fmt.Fprintf(&b, "  fat: %.1f / %d g\n", s.Intake.Fat, s.TargetFatG)
	} else {
		b.WriteString("(no targets set; run profile setup for a daily budget)\n")
		fmt.Fprintf(&b, "  calories: %.1f kcal\n", s.Intake.Calories)
		fmt.Fprintf(&b, "  carbohydrate: %.1f g\n", s.Intake.Carbohydrate)
		fmt.Fprintf(&b, "  protein: %.1f g\n", s.Intake.Protein)
		fmt.Fprintf(&b, "  fat: %.1f g\n", s.Intake.Fat)
	}
	fmt.Fprintf(&b, "  sugar: %.1f g\n", s.Intake.Sugar)
	fmt.Fprintf(&b, "  sodium: %.0f mg\n", s.Intake.Sodium)

	renderCommentary(&b, rep.Coach)
	return b.String()
}

func renderWeekly(rep report.WeeklyReport) string {
	s := rep.Summary

	var b strings.Builder
	fmt.Fprintf(&b, "[Weekly Report] %s to %s\n", s.StartDate, s.EndDate)
	if s.DaysWithData == 0 {
		b.WriteString("No meals journaled in this window.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Days with data: %d of 7\n", s.DaysWithData)
	if s.TargetKcal > 0 {
		fmt.Fprintf(&b, "Daily average: %.1f kcal (target %d, %+.1f)\n", s.Average.Calories, s.TargetKcal, s.AvgDeltaKcal)
		fmt.Fprintf(&b, "  carbohydrate: %.1f g (%+.1f)\n", s.Average.Carbohydrate, s.AvgDeltaCarb)
		fmt.Fprintf(&b, "  protein: %.1f g (%+.1f)\n", s.Average.Protein, s.AvgDeltaProtein)
		fmt.Fprintf(&b, "  fat: %.1f g (%+.1f)\n", s.Average.Fat, s.AvgDeltaFat)
	} else {
		fmt.Fprintf(&b, "Daily average: %.1f kcal\n", s.Average.Calories)
		fmt.Fprintf(&b, "  carbohydrate: %.1f g\n", s.Average.Carbohydrate)
		fmt.Fprintf(&b, "  protein: %.1f g\n", s.Average.Protein)
		fmt.Fprintf(&b, "  fat: %.1f g\n", s.Average.Fat)
	}
	fmt.Fprintf(&b, "  sugar: %.1f g avg, sodium: %.0f mg avg\n", s.Average.Sugar, s.Average.Sodium)

	renderCommentary(&b, rep.Coach)
	return b.String()
}

func renderCommentary(b *strings.Builder, c *report.Commentary) {
	if c == nil {
		return
	}
	fmt.Fprintf(b, "\nCoach: %s\n", c.Assessment)
	if len(c.Positives) > 0 {
		b.WriteString("Going well:\n")
		for _, p := range c.Positives {
			fmt.Fprintf(b, "- %s\n", p)
		}
	}
	if len(c.Problems) > 0 {
		b.WriteString("Watch out for:\n")
		for _, p := range c.Problems {
			fmt.Fprintf(b, "- %s\n", p)
		}
	}
	if len(c.Strategy) > 0 {
		b.WriteString("Try next:\n")
		for _, s := range c.Strategy {
			fmt.Fprintf(b, "- %s\n", s)
		}
	}
}

// SuggestMeal recommends what to eat next given the day's remaining
// budget. Requires a saved profile and targets plus a Tavily key.
func (a *App) SuggestMeal(ctx context.Context, date time.Time) (string, error) {
	p, err := a.profiles.LoadProfile()
	if err != nil {
		return "", err
	}
	targets, err := a.profiles.LoadTargets()
	if err != nil {
		return "", err
	}
	intake, _, err := a.journal.TotalFor(date)
	if err != nil {
		return "", err
	}

	logging.Recommend("Suggesting a meal for %s", date.Format("2006-01-02"))
	return a.advisor.Suggest(ctx, *p, *targets, intake)
}
