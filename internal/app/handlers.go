package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"nutricoach/internal/llm"
	"nutricoach/internal/logging"
	"nutricoach/internal/pipeline"
	"nutricoach/internal/profile"
	"nutricoach/internal/tavily"
)

// The methods in this file implement router.Handler. They translate
// expected failures (nothing to log, missing profile, missing search
// key) into friendly replies so the chat loop never surfaces raw
// errors for ordinary situations.

const noFoodReply = `I couldn't find any food to log in that message. Tell me what you ate, like "I had kimchi stew and a bowl of rice".`

// RecordMeal logs the described meal and renders the result.
func (a *App) RecordMeal(ctx context.Context, description string) (string, error) {
	result, err := a.LogMeal(ctx, description)
	if err != nil {
		if errors.Is(err, pipeline.ErrNoFood) {
			return noFoodReply, nil
		}
		return "", err
	}
	return RenderMeal(result), nil
}

// Report renders today's daily or weekly report.
func (a *App) Report(ctx context.Context, reportType string) (string, error) {
	if reportType == "weekly" {
		return a.WeeklyReportFor(ctx, a.now())
	}
	return a.DailyReportFor(ctx, a.now())
}

// Recommend suggests the next meal for today.
func (a *App) Recommend(ctx context.Context) (string, error) {
	reply, err := a.SuggestMeal(ctx, a.now())
	if err != nil {
		switch {
		case errors.Is(err, profile.ErrNoProfile), errors.Is(err, profile.ErrNoTargets):
			return "I need your profile before I can recommend meals. Tell me your age, sex, height, weight and goal first.", nil
		case errors.Is(err, tavily.ErrNoAPIKey):
			return "Meal recommendations need web search, which isn't configured. Set TAVILY_API_KEY and try again.", nil
		}
		return "", err
	}
	return reply, nil
}

// profilePatch is what the model extracts from a profile-setup message.
// Pointer fields distinguish "not mentioned" from zero values so a
// partial message updates only what it mentions.
type profilePatch struct {
	Age            *int     `json:"age"`
	Sex            *string  `json:"sex"`
	HeightCm       *float64 `json:"height_cm"`
	WeightKg       *float64 `json:"weight_kg"`
	ActivityLevel  *string  `json:"activity_level"`
	Goal           *string  `json:"goal"`
	ExerciseLevel  *string  `json:"exercise_level"`
	DietPreference *string  `json:"diet_preference"`
	HealthNote     *string  `json:"health_note"`
}

func (p profilePatch) empty() bool {
	return p.Age == nil && p.Sex == nil && p.HeightCm == nil && p.WeightKg == nil &&
		p.ActivityLevel == nil && p.Goal == nil && p.ExerciseLevel == nil &&
		p.DietPreference == nil && p.HealthNote == nil
}

const profileExtractPrompt = `Extract the user's body profile from the message. Reply with a JSON
object; use null for anything the message does not state:

{"age": 30, "sex": "male or female", "height_cm": 178.0, "weight_kg": 75.0,
 "activity_level": "sedentary | light | moderate | active | very_active",
 "goal": "lose | maintain | gain",
 "exercise_level": "none | light | regular",
 "diet_preference": "e.g. korean", "health_note": "anything health related"}

Normalize heights to centimeters and weights to kilograms. Map phrases
like "desk job" to sedentary and "want to slim down" to lose. Do not
guess values the message does not support.`

const profileHelpReply = `To set up your profile, tell me your age, sex, height, weight, how
active your days are, and whether you want to lose, maintain or gain
weight. For example: "I'm 30, male, 178 cm, 75 kg, desk job, I work out
twice a week and want to lose some weight".`

// SetupProfile extracts profile fields from the message, merges them
// over the saved profile, and recomputes targets once the result is
// complete. Incomplete input gets guidance, not an error.
func (a *App) SetupProfile(ctx context.Context, message string) (string, error) {
	patch, err := a.extractProfile(ctx, message)
	if err != nil {
		return "", err
	}

	current := profile.Profile{}
	if saved, perr := a.profiles.LoadProfile(); perr == nil {
		current = *saved
	} else if !errors.Is(perr, profile.ErrNoProfile) {
		return "", perr
	}

	if patch.empty() {
		// Nothing to update; show what we have, or explain how to start.
		if current.Age != 0 {
			return a.ShowProfile()
		}
		return profileHelpReply, nil
	}

	merged := applyPatch(current, patch)
	if err := merged.Validate(); err != nil {
		logging.SessionDebug("Profile still incomplete after update: %v", err)
		return fmt.Sprintf("Almost there: %v.\n\n%s", err, profileHelpReply), nil
	}

	targets, err := a.SaveProfile(merged)
	if err != nil {
		return "", err
	}
	return "Profile saved.\n\n" + RenderTargets(targets), nil
}

func (a *App) extractProfile(ctx context.Context, message string) (profilePatch, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: profileExtractPrompt},
		{Role: llm.RoleUser, Content: message},
	}
	raw, err := a.llmClient.Chat(ctx, messages, llm.Options{Temperature: 0, JSON: true})
	if err != nil {
		return profilePatch{}, fmt.Errorf("profile extraction failed: %w", err)
	}

	cleaned := llm.StripFences(raw)
	var patch profilePatch
	if uerr := json.Unmarshal([]byte(cleaned), &patch); uerr != nil {
		if obj := llm.ExtractObject(cleaned); obj != "" {
			uerr = json.Unmarshal([]byte(obj), &patch)
		}
		if uerr != nil {
			logging.SessionDebug("Unparseable profile extraction: %.80s", raw)
			return profilePatch{}, nil
		}
	}
	return patch, nil
}

func applyPatch(p profile.Profile, patch profilePatch) profile.Profile {
	if patch.Age != nil {
		p.Age = *patch.Age
	}
	if patch.Sex != nil {
		p.Sex = profile.Sex(strings.ToLower(*patch.Sex))
	}
	if patch.HeightCm != nil {
		p.HeightCm = *patch.HeightCm
	}
	if patch.WeightKg != nil {
		p.WeightKg = *patch.WeightKg
	}
	if patch.ActivityLevel != nil {
		p.ActivityLevel = profile.ActivityLevel(strings.ToLower(*patch.ActivityLevel))
	}
	if patch.Goal != nil {
		p.Goal = profile.Goal(strings.ToLower(*patch.Goal))
	}
	if patch.ExerciseLevel != nil {
		p.ExerciseLevel = profile.ExerciseLevel(strings.ToLower(*patch.ExerciseLevel))
	}
	if patch.DietPreference != nil {
		p.DietPreference = *patch.DietPreference
	}
	if patch.HealthNote != nil {
		p.HealthNote = *patch.HealthNote
	}
	return p
}
