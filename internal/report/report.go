// Package report summarizes journal intake against the profile's macro
// targets, daily and over a trailing 7-day window, and layers optional
// LLM coaching commentary on top. Generated reports are persisted as
// JSON next to the journal so the latest report survives restarts.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"nutricoach/internal/journal"
	"nutricoach/internal/logging"
	"nutricoach/internal/pipeline"
	"nutricoach/internal/profile"
)

const (
	dailyReportFile  = "report_daily.json"
	weeklyReportFile = "report_weekly.json"
	windowDays       = 7
)

// DailySummary compares one date's accumulated intake with the daily
// targets. Deltas are intake minus target; RatioPct is the share of the
// calorie target consumed, 0 when no target is set.
type DailySummary struct {
	Date    string             `json:"date"`
	HasData bool               `json:"has_data"`
	Intake  pipeline.Nutrients `json:"intake"`

	TargetKcal     int `json:"target_kcal"`
	TargetCarbG    int `json:"target_carb_g"`
	TargetProteinG int `json:"target_protein_g"`
	TargetFatG     int `json:"target_fat_g"`

	DeltaKcal    float64 `json:"delta_kcal"`
	DeltaCarb    float64 `json:"delta_carb_g"`
	DeltaProtein float64 `json:"delta_protein_g"`
	DeltaFat     float64 `json:"delta_fat_g"`

	RatioPct float64 `json:"ratio_pct"`
}

// DayIntake is one journaled date inside a weekly window.
type DayIntake struct {
	Date   string             `json:"date"`
	Intake pipeline.Nutrients `json:"intake"`
}

// WeeklySummary covers the 7-day window ending at Date (inclusive).
// Average and the deltas are per journaled day, not per calendar day.
type WeeklySummary struct {
	StartDate    string      `json:"start_date"`
	EndDate      string      `json:"end_date"`
	DaysWithData int         `json:"days_with_data"`
	Days         []DayIntake `json:"days"`

	Total   pipeline.Nutrients `json:"total"`
	Average pipeline.Nutrients `json:"average"`

	TargetKcal     int `json:"target_kcal"`
	TargetCarbG    int `json:"target_carb_g"`
	TargetProteinG int `json:"target_protein_g"`
	TargetFatG     int `json:"target_fat_g"`

	AvgDeltaKcal    float64 `json:"avg_delta_kcal"`
	AvgDeltaCarb    float64 `json:"avg_delta_carb_g"`
	AvgDeltaProtein float64 `json:"avg_delta_protein_g"`
	AvgDeltaFat     float64 `json:"avg_delta_fat_g"`
}

// DailyReport is the persisted daily report envelope.
type DailyReport struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Date        string       `json:"date"`
	Summary     DailySummary `json:"summary"`
	Coach       *Commentary  `json:"coach,omitempty"`
}

// WeeklyReport is the persisted weekly report envelope.
type WeeklyReport struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Date        string        `json:"date"`
	Summary     WeeklySummary `json:"summary"`
	Coach       *Commentary   `json:"coach,omitempty"`
}

// TargetSource loads the current macro targets. profile.Store satisfies
// it; a missing targets file is treated as all-zero targets rather than
// an error so reports still work before profile setup.
type TargetSource interface {
	LoadTargets() (*profile.MacroTargets, error)
}

// Generator builds and persists reports. A nil coach skips commentary.
type Generator struct {
	journal *journal.Journal
	targets TargetSource
	coach   *Coach
	dataDir string

	now func() time.Time
}

func NewGenerator(j *journal.Journal, targets TargetSource, coach *Coach, dataDir string) *Generator {
	return &Generator{
		journal: j,
		targets: targets,
		coach:   coach,
		dataDir: dataDir,
		now:     time.Now,
	}
}

// Daily builds the report for one date, asks the coach for commentary
// when one is configured, and persists the result.
func (g *Generator) Daily(ctx context.Context, date time.Time) (DailyReport, error) {
	intake, hasData, err := g.journal.TotalFor(date)
	if err != nil {
		return DailyReport{}, err
	}
	targets, err := g.loadTargets()
	if err != nil {
		return DailyReport{}, err
	}

	summary := NewDailySummary(date, intake, hasData, targets)
	rep := DailyReport{
		GeneratedAt: g.now(),
		Date:        summary.Date,
		Summary:     summary,
	}

	if g.coach != nil && hasData {
		commentary, cerr := g.coach.Daily(ctx, summary)
		if cerr != nil {
			logging.Report("Coach commentary unavailable for %s: %v", summary.Date, cerr)
		} else {
			rep.Coach = &commentary
		}
	}

	g.persist(dailyReportFile, rep)
	logging.Report("Daily report for %s: %.1f kcal of %d target", summary.Date, summary.Intake.Calories, summary.TargetKcal)
	return rep, nil
}

// Weekly builds the report for the 7-day window ending at date.
func (g *Generator) Weekly(ctx context.Context, date time.Time) (WeeklyReport, error) {
	totals, err := g.journal.DayTotals()
	if err != nil {
		return WeeklyReport{}, err
	}
	targets, err := g.loadTargets()
	if err != nil {
		return WeeklyReport{}, err
	}

	summary := NewWeeklySummary(date, totals, targets)
	rep := WeeklyReport{
		GeneratedAt: g.now(),
		Date:        summary.EndDate,
		Summary:     summary,
	}

	if g.coach != nil && summary.DaysWithData > 0 {
		commentary, cerr := g.coach.Weekly(ctx, summary)
		if cerr != nil {
			logging.Report("Coach commentary unavailable for week ending %s: %v", summary.EndDate, cerr)
		} else {
			rep.Coach = &commentary
		}
	}

	g.persist(weeklyReportFile, rep)
	logging.Report("Weekly report %s to %s: %d days journaled", summary.StartDate, summary.EndDate, summary.DaysWithData)
	return rep, nil
}

func (g *Generator) loadTargets() (profile.MacroTargets, error) {
	targets, err := g.targets.LoadTargets()
	if err != nil {
		if errors.Is(err, profile.ErrNoTargets) {
			return profile.MacroTargets{}, nil
		}
		return profile.MacroTargets{}, err
	}
	return *targets, nil
}

// persist is best-effort: a report that cannot be written is still
// returned to the caller.
func (g *Generator) persist(name string, v interface{}) {
	if g.dataDir == "" {
		return
	}
	if err := os.MkdirAll(g.dataDir, 0755); err != nil {
		logging.Report("Failed to persist %s: %v", name, err)
		return
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logging.Report("Failed to persist %s: %v", name, err)
		return
	}
	path := filepath.Join(g.dataDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		logging.Report("Failed to persist %s: %v", name, err)
		return
	}
	logging.ReportDebug("Report persisted: %s", path)
}

// NewDailySummary computes the summary numbers for one date.
func NewDailySummary(date time.Time, intake pipeline.Nutrients, hasData bool, t profile.MacroTargets) DailySummary {
	s := DailySummary{
		Date:           date.Format("2006-01-02"),
		HasData:        hasData,
		Intake:         roundNutrients(intake),
		TargetKcal:     t.TargetKcal,
		TargetCarbG:    t.CarbG,
		TargetProteinG: t.ProteinG,
		TargetFatG:     t.FatG,
		DeltaKcal:      round1(intake.Calories - float64(t.TargetKcal)),
		DeltaCarb:      round1(intake.Carbohydrate - float64(t.CarbG)),
		DeltaProtein:   round1(intake.Protein - float64(t.ProteinG)),
		DeltaFat:       round1(intake.Fat - float64(t.FatG)),
	}
	if t.TargetKcal > 0 {
		s.RatioPct = round1(intake.Calories / float64(t.TargetKcal) * 100)
	}
	return s
}

// NewWeeklySummary computes the summary for the window ending at date.
// totals is the journal's per-date map keyed by "2006-01-02".
func NewWeeklySummary(date time.Time, totals map[string]pipeline.Nutrients, t profile.MacroTargets) WeeklySummary {
	end := date
	start := date.AddDate(0, 0, -(windowDays - 1))

	s := WeeklySummary{
		StartDate:      start.Format("2006-01-02"),
		EndDate:        end.Format("2006-01-02"),
		TargetKcal:     t.TargetKcal,
		TargetCarbG:    t.CarbG,
		TargetProteinG: t.ProteinG,
		TargetFatG:     t.FatG,
	}

	var total pipeline.Nutrients
	for d := 0; d < windowDays; d++ {
		key := start.AddDate(0, 0, d).Format("2006-01-02")
		intake, ok := totals[key]
		if !ok {
			continue
		}
		s.Days = append(s.Days, DayIntake{Date: key, Intake: roundNutrients(intake)})
		total = total.Add(intake)
	}
	sort.Slice(s.Days, func(i, j int) bool { return s.Days[i].Date < s.Days[j].Date })

	s.DaysWithData = len(s.Days)
	s.Total = roundNutrients(total)
	if s.DaysWithData == 0 {
		return s
	}

	n := float64(s.DaysWithData)
	avg := pipeline.Nutrients{
		Calories:     total.Calories / n,
		Carbohydrate: total.Carbohydrate / n,
		Protein:      total.Protein / n,
		Fat:          total.Fat / n,
		Sugar:        total.Sugar / n,
		Sodium:       total.Sodium / n,
	}
	s.Average = roundNutrients(avg)
	s.AvgDeltaKcal = round1(avg.Calories - float64(t.TargetKcal))
	s.AvgDeltaCarb = round1(avg.Carbohydrate - float64(t.CarbG))
	s.AvgDeltaProtein = round1(avg.Protein - float64(t.ProteinG))
	s.AvgDeltaFat = round1(avg.Fat - float64(t.FatG))
	return s
}

// OverBudget reports whether the day's calories exceed the target.
func (s DailySummary) OverBudget() bool {
	return s.TargetKcal > 0 && s.Intake.Calories > float64(s.TargetKcal)
}

func roundNutrients(n pipeline.Nutrients) pipeline.Nutrients {
	return pipeline.Nutrients{
		Calories:     round1(n.Calories),
		Carbohydrate: round1(n.Carbohydrate),
		Protein:      round1(n.Protein),
		Fat:          round1(n.Fat),
		Sugar:        round1(n.Sugar),
		Sodium:       round1(n.Sodium),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
