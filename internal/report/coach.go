package report

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"nutricoach/internal/llm"
	"nutricoach/internal/logging"
)

const coachSystemPrompt = "You are a supportive nutrition coach. You reply with strict JSON only: no prose, no markdown fences."

// Commentary is the coach's structured note. Positives is only filled
// for weekly reviews.
type Commentary struct {
	Assessment string   `json:"assessment"`
	Positives  []string `json:"positives,omitempty"`
	Problems   []string `json:"problems,omitempty"`
	Strategy   []string `json:"strategy,omitempty"`
}

func (c Commentary) isZero() bool {
	return c.Assessment == "" && len(c.Positives) == 0 && len(c.Problems) == 0 && len(c.Strategy) == 0
}

// Coach turns summaries into coaching notes via the LLM.
type Coach struct {
	client llm.Client
}

func NewCoach(client llm.Client) *Coach {
	return &Coach{client: client}
}

// Daily reviews one day's summary.
func (c *Coach) Daily(ctx context.Context, s DailySummary) (Commentary, error) {
	prompt := fmt.Sprintf(`Here is a user's intake for %s against their daily targets:

- calories: %.1f kcal (target %d)
- carbohydrate: %.1f g (target %d)
- protein: %.1f g (target %d)
- fat: %.1f g (target %d)
- sugar: %.1f g
- sodium: %.0f mg

Write a short coaching note for the day. Stay encouraging and
realistic: never suggest extreme dieting, fasting, or supplements, and
never diagnose a condition. Strategies must be small concrete actions
the user could take tomorrow, like swapping a snack or halving the
soup.

Reply with a JSON object:
{"assessment": "one-line read of the day", "problems": ["..."], "strategy": ["..."]}`,
		s.Date,
		s.Intake.Calories, s.TargetKcal,
		s.Intake.Carbohydrate, s.TargetCarbG,
		s.Intake.Protein, s.TargetProteinG,
		s.Intake.Fat, s.TargetFatG,
		s.Intake.Sugar,
		s.Intake.Sodium)

	return c.ask(ctx, prompt, 0.4)
}

// Weekly reviews the trailing window. The per-day breakdown goes to the
// model as JSON so it can spot patterns across days.
func (c *Coach) Weekly(ctx context.Context, s WeeklySummary) (Commentary, error) {
	days, err := json.MarshalIndent(s.Days, "", "  ")
	if err != nil {
		return Commentary{}, fmt.Errorf("failed to encode weekly intake: %w", err)
	}

	prompt := fmt.Sprintf(`Here is a user's journaled intake for the week %s to %s
(%d of 7 days recorded), as JSON:

%s

Per-day averages: %.1f kcal, carbohydrate %.1f g, protein %.1f g, fat %.1f g.
Daily targets: %d kcal, carbohydrate %d g, protein %d g, fat %d g.

Review the week's pattern, not single meals. Name what went well, then
the recurring problems, then up to three small realistic changes for
next week. Never suggest extreme dieting, fasting, or supplements, and
never diagnose a condition.

Reply with a JSON object:
{"assessment": "one-line read of the week", "positives": ["..."], "problems": ["..."], "strategy": ["..."]}`,
		s.StartDate, s.EndDate,
		s.DaysWithData,
		string(days),
		s.Average.Calories, s.Average.Carbohydrate, s.Average.Protein, s.Average.Fat,
		s.TargetKcal, s.TargetCarbG, s.TargetProteinG, s.TargetFatG)

	return c.ask(ctx, prompt, 0.5)
}

func (c *Coach) ask(ctx context.Context, prompt string, temperature float64) (Commentary, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: coachSystemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	}
	raw, err := c.client.Chat(ctx, messages, llm.Options{Temperature: temperature, JSON: true})
	if err != nil {
		return Commentary{}, fmt.Errorf("coach commentary failed: %w", err)
	}
	logging.ReportDebug("Coach reply: %d bytes", len(raw))
	return parseCommentary(raw), nil
}

// parseCommentary keeps the report usable whatever the model sends
// back: fenced JSON is unwrapped, and anything unparseable becomes the
// assessment verbatim.
func parseCommentary(raw string) Commentary {
	cleaned := llm.StripFences(raw)

	var c Commentary
	if err := json.Unmarshal([]byte(cleaned), &c); err == nil && !c.isZero() {
		return c
	}

	if obj := llm.ExtractObject(cleaned); obj != "" {
		var c Commentary
		if err := json.Unmarshal([]byte(obj), &c); err == nil && !c.isZero() {
			return c
		}
	}

	return Commentary{Assessment: strings.TrimSpace(raw)}
}
