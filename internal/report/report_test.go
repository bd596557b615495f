package report

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"nutricoach/internal/journal"
	"nutricoach/internal/llm"
	"nutricoach/internal/pipeline"
	"nutricoach/internal/profile"
)

type fakeChat struct {
	reply    string
	err      error
	calls    int
	lastMsgs []llm.Message
	lastOpts llm.Options
}

func (f *fakeChat) Chat(ctx context.Context, msgs []llm.Message, opts llm.Options) (string, error) {
	f.calls++
	f.lastMsgs = msgs
	f.lastOpts = opts
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeChat) Model() string { return "fake-model" }

type fakeTargets struct {
	targets profile.MacroTargets
	err     error
}

func (f fakeTargets) LoadTargets() (*profile.MacroTargets, error) {
	if f.err != nil {
		return nil, f.err
	}
	t := f.targets
	return &t, nil
}

var testTargets = profile.MacroTargets{
	TargetKcal: 2000,
	ProteinG:   120,
	FatG:       60,
	CarbG:      250,
}

func TestNewDailySummary(t *testing.T) {
	date := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	intake := pipeline.Nutrients{
		Calories:     1850,
		Carbohydrate: 210.2,
		Protein:      95.5,
		Fat:          61.1,
		Sugar:        30,
		Sodium:       2900,
	}

	s := NewDailySummary(date, intake, true, testTargets)

	want := DailySummary{
		Date:           "2026-08-24",
		HasData:        true,
		Intake:         intake,
		TargetKcal:     2000,
		TargetCarbG:    250,
		TargetProteinG: 120,
		TargetFatG:     60,
		DeltaKcal:      -150,
		DeltaCarb:      -39.8,
		DeltaProtein:   -24.5,
		DeltaFat:       1.1,
		RatioPct:       92.5,
	}
	if s != want {
		t.Errorf("NewDailySummary() = %+v, want %+v", s, want)
	}
	if s.OverBudget() {
		t.Error("OverBudget() = true for intake below target")
	}
}

func TestNewDailySummary_NoTargets(t *testing.T) {
	date := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	intake := pipeline.Nutrients{Calories: 700}

	s := NewDailySummary(date, intake, true, profile.MacroTargets{})

	if s.RatioPct != 0 {
		t.Errorf("RatioPct = %v with no target, want 0", s.RatioPct)
	}
	if s.DeltaKcal != 700 {
		t.Errorf("DeltaKcal = %v, want 700", s.DeltaKcal)
	}
	if s.OverBudget() {
		t.Error("OverBudget() must be false when no target is set")
	}
}

func TestNewWeeklySummary(t *testing.T) {
	date := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	totals := map[string]pipeline.Nutrients{
		"2026-08-17": {Calories: 9999},
		"2026-08-18": {Calories: 1800, Carbohydrate: 200, Protein: 90, Fat: 50, Sugar: 20, Sodium: 1500},
		"2026-08-24": {Calories: 2400, Carbohydrate: 300, Protein: 110, Fat: 70, Sugar: 40, Sodium: 2100},
		"2026-08-20": {Calories: 2100, Carbohydrate: 250, Protein: 100, Fat: 60, Sugar: 30, Sodium: 1800},
	}

	s := NewWeeklySummary(date, totals, testTargets)

	if s.StartDate != "2026-08-18" || s.EndDate != "2026-08-24" {
		t.Errorf("window = %s..%s, want 2026-08-18..2026-08-24", s.StartDate, s.EndDate)
	}
	if s.DaysWithData != 3 {
		t.Fatalf("DaysWithData = %d, want 3 (2026-08-17 is outside the window)", s.DaysWithData)
	}

	gotDates := []string{s.Days[0].Date, s.Days[1].Date, s.Days[2].Date}
	wantDates := []string{"2026-08-18", "2026-08-20", "2026-08-24"}
	for i := range wantDates {
		if gotDates[i] != wantDates[i] {
			t.Errorf("Days[%d].Date = %s, want %s", i, gotDates[i], wantDates[i])
		}
	}

	wantTotal := pipeline.Nutrients{Calories: 6300, Carbohydrate: 750, Protein: 300, Fat: 180, Sugar: 90, Sodium: 5400}
	if s.Total != wantTotal {
		t.Errorf("Total = %+v, want %+v", s.Total, wantTotal)
	}
	wantAvg := pipeline.Nutrients{Calories: 2100, Carbohydrate: 250, Protein: 100, Fat: 60, Sugar: 30, Sodium: 1800}
	if s.Average != wantAvg {
		t.Errorf("Average = %+v, want %+v", s.Average, wantAvg)
	}

	if s.AvgDeltaKcal != 100 {
		t.Errorf("AvgDeltaKcal = %v, want 100", s.AvgDeltaKcal)
	}
	if s.AvgDeltaCarb != 0 {
		t.Errorf("AvgDeltaCarb = %v, want 0", s.AvgDeltaCarb)
	}
	if s.AvgDeltaProtein != -20 {
		t.Errorf("AvgDeltaProtein = %v, want -20", s.AvgDeltaProtein)
	}
	if s.AvgDeltaFat != 0 {
		t.Errorf("AvgDeltaFat = %v, want 0", s.AvgDeltaFat)
	}
}

func TestNewWeeklySummary_EmptyWindow(t *testing.T) {
	date := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

	s := NewWeeklySummary(date, map[string]pipeline.Nutrients{}, testTargets)

	if s.DaysWithData != 0 {
		t.Errorf("DaysWithData = %d, want 0", s.DaysWithData)
	}
	if len(s.Days) != 0 {
		t.Errorf("Days = %v, want empty", s.Days)
	}
	if s.Average != (pipeline.Nutrients{}) {
		t.Errorf("Average = %+v, want zero", s.Average)
	}
	if s.AvgDeltaKcal != 0 {
		t.Errorf("AvgDeltaKcal = %v, want 0", s.AvgDeltaKcal)
	}
}

const journalFixture = "[2026-08-24 12:30:00]\n" +
	"  calories: 1850.0 kcal\n" +
	"  carbohydrate: 210.2 g\n" +
	"  protein: 95.5 g\n" +
	"  fat: 61.1 g\n" +
	"  sugar: 30.0 g\n" +
	"  sodium: 2900 mg\n\n"

func newFixtureJournal(t *testing.T, dir string) *journal.Journal {
	t.Helper()
	path := filepath.Join(dir, "nutrition.txt")
	if err := os.WriteFile(path, []byte(journalFixture), 0644); err != nil {
		t.Fatalf("writing fixture journal: %v", err)
	}
	return journal.New(path)
}

func TestGenerator_DailyPersists(t *testing.T) {
	dir := t.TempDir()
	j := newFixtureJournal(t, dir)

	g := NewGenerator(j, fakeTargets{targets: testTargets}, nil, dir)
	generated := time.Date(2026, 8, 24, 21, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return generated }

	rep, err := g.Daily(context.Background(), time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Daily() error = %v", err)
	}
	if !rep.Summary.HasData {
		t.Fatal("Summary.HasData = false, want true")
	}
	if rep.Summary.Intake.Calories != 1850 {
		t.Errorf("Intake.Calories = %v, want 1850", rep.Summary.Intake.Calories)
	}
	if rep.Coach != nil {
		t.Error("Coach commentary present with no coach configured")
	}

	data, err := os.ReadFile(filepath.Join(dir, "report_daily.json"))
	if err != nil {
		t.Fatalf("reading persisted report: %v", err)
	}
	var saved DailyReport
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatalf("decoding persisted report: %v", err)
	}
	if saved.Date != "2026-08-24" {
		t.Errorf("persisted Date = %s, want 2026-08-24", saved.Date)
	}
	if !saved.GeneratedAt.Equal(generated) {
		t.Errorf("persisted GeneratedAt = %v, want %v", saved.GeneratedAt, generated)
	}
	if saved.Summary != rep.Summary {
		t.Errorf("persisted summary = %+v, want %+v", saved.Summary, rep.Summary)
	}
}

func TestGenerator_DailyWithCoach(t *testing.T) {
	dir := t.TempDir()
	j := newFixtureJournal(t, dir)

	chat := &fakeChat{reply: `{"assessment": "Solid day overall", "problems": ["sodium is high"], "strategy": ["halve the soup at dinner"]}`}
	g := NewGenerator(j, fakeTargets{targets: testTargets}, NewCoach(chat), dir)

	rep, err := g.Daily(context.Background(), time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Daily() error = %v", err)
	}
	if rep.Coach == nil {
		t.Fatal("Coach commentary missing")
	}
	if rep.Coach.Assessment != "Solid day overall" {
		t.Errorf("Assessment = %q", rep.Coach.Assessment)
	}
	if chat.lastOpts.Temperature != 0.4 {
		t.Errorf("daily coach temperature = %v, want 0.4", chat.lastOpts.Temperature)
	}
	if !chat.lastOpts.JSON {
		t.Error("daily coach must request JSON replies")
	}
}

func TestGenerator_DailyCoachErrorDegrades(t *testing.T) {
	dir := t.TempDir()
	j := newFixtureJournal(t, dir)

	chat := &fakeChat{err: errors.New("model unavailable")}
	g := NewGenerator(j, fakeTargets{targets: testTargets}, NewCoach(chat), dir)

	rep, err := g.Daily(context.Background(), time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Daily() error = %v, want nil when only commentary fails", err)
	}
	if rep.Coach != nil {
		t.Error("Coach commentary present despite model failure")
	}
}

func TestGenerator_DailySkipsCoachWithoutData(t *testing.T) {
	dir := t.TempDir()
	j := journal.New(filepath.Join(dir, "nutrition.txt"))

	chat := &fakeChat{reply: `{"assessment": "ignored"}`}
	g := NewGenerator(j, fakeTargets{targets: testTargets}, NewCoach(chat), dir)

	rep, err := g.Daily(context.Background(), time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Daily() error = %v", err)
	}
	if rep.Summary.HasData {
		t.Error("HasData = true for empty journal")
	}
	if chat.calls != 0 {
		t.Errorf("coach called %d times for a day with no data, want 0", chat.calls)
	}
}

func TestGenerator_MissingTargetsFile(t *testing.T) {
	dir := t.TempDir()
	j := newFixtureJournal(t, dir)

	g := NewGenerator(j, fakeTargets{err: profile.ErrNoTargets}, nil, dir)

	rep, err := g.Daily(context.Background(), time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Daily() error = %v, want nil when targets are not set yet", err)
	}
	if rep.Summary.TargetKcal != 0 {
		t.Errorf("TargetKcal = %d, want 0", rep.Summary.TargetKcal)
	}
	if rep.Summary.RatioPct != 0 {
		t.Errorf("RatioPct = %v, want 0", rep.Summary.RatioPct)
	}
}

func TestGenerator_WeeklyPersists(t *testing.T) {
	dir := t.TempDir()
	j := newFixtureJournal(t, dir)

	chat := &fakeChat{reply: `{"assessment": "Consistent week", "positives": ["protein on target"], "problems": ["only 1 day journaled"], "strategy": ["log every dinner"]}`}
	g := NewGenerator(j, fakeTargets{targets: testTargets}, NewCoach(chat), dir)

	rep, err := g.Weekly(context.Background(), time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Weekly() error = %v", err)
	}
	if rep.Summary.DaysWithData != 1 {
		t.Errorf("DaysWithData = %d, want 1", rep.Summary.DaysWithData)
	}
	if rep.Coach == nil || len(rep.Coach.Positives) != 1 {
		t.Fatalf("Coach = %+v, want commentary with positives", rep.Coach)
	}
	if chat.lastOpts.Temperature != 0.5 {
		t.Errorf("weekly coach temperature = %v, want 0.5", chat.lastOpts.Temperature)
	}

	if _, err := os.Stat(filepath.Join(dir, "report_weekly.json")); err != nil {
		t.Errorf("persisted weekly report missing: %v", err)
	}
}
