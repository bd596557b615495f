// Package recommend suggests meals that fit what is left of the day's
// macro budget. It searches the web for candidate meals via Tavily and
// has the LLM compose a grounded suggestion from the hits, so the
// advice cites real pages instead of invented dishes.
package recommend

import (
	"context"
	"fmt"
	"math"
	"strings"

	"nutricoach/internal/llm"
	"nutricoach/internal/logging"
	"nutricoach/internal/pipeline"
	"nutricoach/internal/profile"
	"nutricoach/internal/tavily"
)

const advisorSystemPrompt = "You are a nutritionist. Ground every suggestion in the provided web search results; never invent dishes or numbers that cannot reasonably be read from them."

// Remaining is the unspent part of the daily budget, one decimal.
// Values go negative when the user is already over.
type Remaining struct {
	Kcal     float64 `json:"kcal"`
	CarbG    float64 `json:"carb_g"`
	ProteinG float64 `json:"protein_g"`
	FatG     float64 `json:"fat_g"`
}

// RemainingFor subtracts today's intake from the targets.
func RemainingFor(t profile.MacroTargets, intake pipeline.Nutrients) Remaining {
	return Remaining{
		Kcal:     round1(float64(t.TargetKcal) - intake.Calories),
		CarbG:    round1(float64(t.CarbG) - intake.Carbohydrate),
		ProteinG: round1(float64(t.ProteinG) - intake.Protein),
		FatG:     round1(float64(t.FatG) - intake.Fat),
	}
}

// BuildQuery turns the macro gap into a directional search query. The
// diet preference, when set, leads the query as a cuisine hint.
func BuildQuery(p profile.Profile, r Remaining) string {
	var direction []string
	if r.ProteinG >= 20 {
		direction = append(direction, "high-protein")
	}
	if r.FatG < 0 {
		direction = append(direction, "low-fat")
	}
	if r.Kcal < 0 {
		direction = append(direction, "light low-calorie")
	} else if r.Kcal >= 300 {
		direction = append(direction, "hearty")
	}
	if len(direction) == 0 {
		direction = append(direction, "balanced")
	}

	cuisine := strings.ToLower(strings.TrimSpace(p.DietPreference))
	if cuisine == "" {
		cuisine = "healthy"
	}

	return fmt.Sprintf("%s %s meal ideas with calorie and macro breakdown",
		cuisine, strings.Join(direction, " "))
}

// Searcher is the web search dependency. tavily.Client satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string) ([]tavily.Result, error)
}

// Advisor composes meal suggestions from search results.
type Advisor struct {
	search Searcher
	client llm.Client
}

func NewAdvisor(search Searcher, client llm.Client) *Advisor {
	return &Advisor{search: search, client: client}
}

// Suggest recommends one to three meals for the remaining budget. A
// failed search is terminal for this operation: without hits there is
// nothing to ground the suggestion in.
func (a *Advisor) Suggest(ctx context.Context, p profile.Profile, t profile.MacroTargets, intake pipeline.Nutrients) (string, error) {
	remaining := RemainingFor(t, intake)
	query := BuildQuery(p, remaining)
	logging.Recommend("Searching meals: %q (remaining %.0f kcal, protein %.0f g)", query, remaining.Kcal, remaining.ProteinG)

	results, err := a.search.Search(ctx, query)
	if err != nil {
		return "", fmt.Errorf("meal search failed: %w", err)
	}

	prompt := buildPrompt(p, t, intake, remaining, results)
	reply, err := a.client.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: advisorSystemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	}, llm.Options{Temperature: 0.4})
	if err != nil {
		return "", fmt.Errorf("meal suggestion failed: %w", err)
	}

	return strings.TrimSpace(reply), nil
}

func buildPrompt(p profile.Profile, t profile.MacroTargets, intake pipeline.Nutrients, r Remaining, results []tavily.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "User:\n")
	fmt.Fprintf(&b, "- age %d, sex %s\n", p.Age, p.Sex)
	fmt.Fprintf(&b, "- height %.0f cm, weight %.1f kg\n", p.HeightCm, p.WeightKg)
	fmt.Fprintf(&b, "- goal: %s (target %d kcal)\n", p.Goal, t.TargetKcal)
	fmt.Fprintf(&b, "- eaten so far today: %.1f kcal, carbohydrate %.1f g, protein %.1f g, fat %.1f g\n",
		intake.Calories, intake.Carbohydrate, intake.Protein, intake.Fat)
	fmt.Fprintf(&b, "- remaining budget: %.1f kcal, carbohydrate %.1f g, protein %.1f g, fat %.1f g\n",
		r.Kcal, r.CarbG, r.ProteinG, r.FatG)
	if p.DietPreference != "" {
		fmt.Fprintf(&b, "- diet preference: %s\n", p.DietPreference)
	}
	if p.HealthNote != "" {
		fmt.Fprintf(&b, "- health note: %s\n", p.HealthNote)
	}

	b.WriteString(`
Suggest one to three meals that fit the remaining budget. For each
meal, give the approximate calories, say whether it leans carbohydrate,
protein, or fat, and explain how it fills what is left of the day. Be
clear about whether a protein top-up or calorie restraint matters most
right now. Exact grams are not required.

[web search results]
`)

	if len(results) == 0 {
		b.WriteString("(no results)\n")
		return b.String()
	}
	for i, r := range results {
		fmt.Fprintf(&b, "[%d] %s\nURL: %s\n%s\n\n", i+1, r.Title, r.URL, r.Content)
	}
	return b.String()
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
