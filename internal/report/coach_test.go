package report

import (
	"context"
	"strings"
	"testing"
)

func TestCoach_DailyPromptAndParse(t *testing.T) {
	chat := &fakeChat{reply: `{"assessment": "Balanced day", "problems": ["sugar crept up"], "strategy": ["swap the afternoon snack for fruit"]}`}
	coach := NewCoach(chat)

	s := DailySummary{
		Date:       "2026-08-24",
		HasData:    true,
		TargetKcal: 2000,
	}
	s.Intake.Calories = 1900

	got, err := coach.Daily(context.Background(), s)
	if err != nil {
		t.Fatalf("Daily() error = %v", err)
	}

	if got.Assessment != "Balanced day" {
		t.Errorf("Assessment = %q", got.Assessment)
	}
	if len(got.Problems) != 1 || len(got.Strategy) != 1 {
		t.Errorf("Problems/Strategy = %v / %v", got.Problems, got.Strategy)
	}
	if len(got.Positives) != 0 {
		t.Errorf("daily commentary should not carry positives, got %v", got.Positives)
	}

	if len(chat.lastMsgs) != 2 {
		t.Fatalf("got %d messages, want system + user", len(chat.lastMsgs))
	}
	if chat.lastMsgs[0].Content != coachSystemPrompt {
		t.Errorf("system prompt = %q", chat.lastMsgs[0].Content)
	}
	user := chat.lastMsgs[1].Content
	if !strings.Contains(user, "2026-08-24") || !strings.Contains(user, "target 2000") {
		t.Errorf("user prompt missing date or target: %q", user)
	}
	if chat.lastOpts.Temperature != 0.4 || !chat.lastOpts.JSON {
		t.Errorf("opts = %+v, want temperature 0.4 and JSON", chat.lastOpts)
	}
}

func TestCoach_WeeklyPromptIncludesDays(t *testing.T) {
	chat := &fakeChat{reply: `{"assessment": "Up and down week", "positives": ["weekday lunches"], "problems": ["weekend spikes"], "strategy": ["plan one weekend meal ahead"]}`}
	coach := NewCoach(chat)

	s := WeeklySummary{
		StartDate:    "2026-08-18",
		EndDate:      "2026-08-24",
		DaysWithData: 2,
		Days: []DayIntake{
			{Date: "2026-08-19"},
			{Date: "2026-08-22"},
		},
		TargetKcal: 2000,
	}

	got, err := coach.Weekly(context.Background(), s)
	if err != nil {
		t.Fatalf("Weekly() error = %v", err)
	}
	if len(got.Positives) != 1 {
		t.Errorf("Positives = %v", got.Positives)
	}

	user := chat.lastMsgs[1].Content
	for _, want := range []string{"2026-08-18", "2026-08-24", "2026-08-19", "2 of 7 days"} {
		if !strings.Contains(user, want) {
			t.Errorf("user prompt missing %q", want)
		}
	}
	if chat.lastOpts.Temperature != 0.5 {
		t.Errorf("weekly temperature = %v, want 0.5", chat.lastOpts.Temperature)
	}
}

func TestParseCommentary_Fenced(t *testing.T) {
	raw := "```json\n{\"assessment\": \"Good\", \"problems\": [], \"strategy\": [\"keep going\"]}\n```"

	got := parseCommentary(raw)

	if got.Assessment != "Good" {
		t.Errorf("Assessment = %q, want Good", got.Assessment)
	}
	if len(got.Strategy) != 1 {
		t.Errorf("Strategy = %v", got.Strategy)
	}
}

func TestParseCommentary_EmbeddedObject(t *testing.T) {
	raw := `Sure, here is the review: {"assessment": "Steady", "strategy": ["more water"]} Hope it helps!`

	got := parseCommentary(raw)

	if got.Assessment != "Steady" {
		t.Errorf("Assessment = %q, want Steady", got.Assessment)
	}
}

func TestParseCommentary_GarbageBecomesAssessment(t *testing.T) {
	raw := "  I could not structure this as JSON, sorry.  "

	got := parseCommentary(raw)

	if got.Assessment != "I could not structure this as JSON, sorry." {
		t.Errorf("Assessment = %q, want the raw text trimmed", got.Assessment)
	}
	if len(got.Problems) != 0 || len(got.Strategy) != 0 {
		t.Errorf("unexpected structured fields: %+v", got)
	}
}
