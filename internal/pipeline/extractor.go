package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"nutricoach/internal/llm"
	"nutricoach/internal/logging"
)

// ErrNoFood reports that a meal description contained nothing the
// extractor could identify as food. Callers must not write a journal
// entry for such input.
var ErrNoFood = errors.New("no food identified in input")

const extractorSystemPrompt = `You are a nutritionist's data extractor. You reply with strict JSON only: no prose, no markdown fences.`

// Extractor converts free-text meal descriptions into food mentions
// through a deterministic model call.
type Extractor struct {
	client llm.Client
}

// NewExtractor creates an extractor backed by the given chat client.
func NewExtractor(client llm.Client) *Extractor {
	return &Extractor{client: client}
}

// Extract returns the foods mentioned in text. The model is asked for a
// strict JSON array; fenced or wrapped replies are tolerated. Mentions
// without a name or with a non-positive weight are dropped. A blank
// description returns no mentions without a model call.
func (e *Extractor) Extract(ctx context.Context, text string) ([]FoodMention, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	timer := logging.StartTimer(logging.CategoryPipeline, "extract")
	defer timer.Stop()

	prompt := fmt.Sprintf(`Extract every food the user ate from the meal description below.

Return ONLY a JSON array. One element per food:
[{"name": "...", "search_term_specific": "...", "search_term_generic": "...", "weight_g": 0}]

Rules:
- name: the food exactly as the user wrote it, in the user's language.
- search_term_specific: a precise English food-database search term. Keep the brand or dish qualifier when one is given ("shin ramyun", "starbucks caffe latte").
- search_term_generic: a broad English fallback term for the same food ("instant noodles", "latte").
- weight_g: grams eaten, as a number. When the user gives no amount, estimate from common servings (a bowl of cooked rice is about 210 g, one egg about 50 g).

Meal description:
%s`, text)

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: extractorSystemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	}

	resp, err := e.client.Chat(ctx, messages, llm.Options{Temperature: 0})
	if err != nil {
		logging.PipelineError("[Extractor] model call failed: %v", err)
		return nil, fmt.Errorf("extraction call failed: %w", err)
	}

	mentions, err := parseMentions(resp)
	if err != nil {
		logging.PipelineError("[Extractor] unparsable reply: %v", err)
		return nil, err
	}

	logging.PipelineDebug("[Extractor] %d mention(s) extracted", len(mentions))
	return mentions, nil
}

// parseMentions accepts the documented bare-array reply, a {"foods":
// [...]} wrapper some models produce in JSON mode, or an array embedded
// in surrounding prose.
func parseMentions(raw string) ([]FoodMention, error) {
	cleaned := llm.StripFences(raw)

	var list []FoodMention
	if err := json.Unmarshal([]byte(cleaned), &list); err == nil {
		return keepValidMentions(list), nil
	}

	var wrapped struct {
		Foods []FoodMention `json:"foods"`
	}
	if err := json.Unmarshal([]byte(cleaned), &wrapped); err == nil && wrapped.Foods != nil {
		return keepValidMentions(wrapped.Foods), nil
	}

	if arr := llm.ExtractArray(cleaned); arr != "" {
		if err := json.Unmarshal([]byte(arr), &list); err == nil {
			return keepValidMentions(list), nil
		}
	}

	return nil, fmt.Errorf("no parsable food list in extractor reply")
}

// keepValidMentions drops entries without a usable name or weight.
func keepValidMentions(in []FoodMention) []FoodMention {
	out := make([]FoodMention, 0, len(in))
	for _, m := range in {
		m.Name = strings.TrimSpace(m.Name)
		if m.Name == "" || m.WeightGrams <= 0 {
			continue
		}
		out = append(out, m)
	}
	return out
}
