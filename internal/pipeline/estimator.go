package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"nutricoach/internal/llm"
	"nutricoach/internal/logging"
)

// Estimator produces last-resort nutrient estimates from the model. It
// is the bottom of the tier chain, so it never fails: broken calls and
// unparsable replies degrade to zero values with an explanatory reason.
type Estimator struct {
	client llm.Client
}

// NewEstimator creates an estimator backed by the given chat client.
func NewEstimator(client llm.Client) *Estimator {
	return &Estimator{client: client}
}

// Estimate returns nutrient values for weightGrams of the named food,
// plus a one-line rationale.
func (e *Estimator) Estimate(ctx context.Context, name string, weightGrams float64) (Nutrients, string) {
	timer := logging.StartTimer(logging.CategoryPipeline, "estimate")
	defer timer.Stop()

	prompt := fmt.Sprintf(`Estimate the nutrients in %.0f g of "%s".

Return ONLY JSON with exactly these keys:
{"calories": 0, "carbohydrate": 0, "protein": 0, "fat": 0, "sugar": 0, "sodium": 0, "reason": "one short sentence on how you estimated"}

Units: calories in kcal, sodium in mg, everything else in grams.`, weightGrams, name)

	messages := []llm.Message{{Role: llm.RoleUser, Content: prompt}}

	resp, err := e.client.Chat(ctx, messages, llm.Options{Temperature: 0.5, JSON: true})
	if err != nil {
		logging.PipelineWarn("[Estimator] model call failed for %q: %v", name, err)
		return Nutrients{}, "estimation failed: model call error"
	}

	parsed, ok := parseEstimate(resp)
	if !ok {
		logging.PipelineWarn("[Estimator] unparsable reply for %q", name)
		return Nutrients{}, "estimation failed: unparsable model reply"
	}

	reason := strings.TrimSpace(parsed.Reason)
	if reason == "" {
		reason = "model estimate"
	}

	nutrients := Nutrients{
		Calories:     parsed.Calories,
		Carbohydrate: parsed.Carbohydrate,
		Protein:      parsed.Protein,
		Fat:          parsed.Fat,
		Sugar:        parsed.Sugar,
		Sodium:       parsed.Sodium,
	}.Scale(1) // clamp stray negatives from the model

	logging.PipelineDebug("[Estimator] %q (%.0f g): %.0f kcal (%s)", name, weightGrams, nutrients.Calories, reason)
	return nutrients, reason
}

type estimateReply struct {
	Calories     float64 `json:"calories"`
	Carbohydrate float64 `json:"carbohydrate"`
	Protein      float64 `json:"protein"`
	Fat          float64 `json:"fat"`
	Sugar        float64 `json:"sugar"`
	Sodium       float64 `json:"sodium"`
	Reason       string  `json:"reason"`
}

func parseEstimate(raw string) (estimateReply, bool) {
	cleaned := llm.StripFences(raw)

	var reply estimateReply
	if err := json.Unmarshal([]byte(cleaned), &reply); err == nil {
		return reply, true
	}

	if obj := llm.ExtractObject(cleaned); obj != "" {
		if err := json.Unmarshal([]byte(obj), &reply); err == nil {
			return reply, true
		}
	}

	return estimateReply{}, false
}
