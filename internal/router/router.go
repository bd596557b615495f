// Package router classifies free-text chat messages into intents and
// dispatches them to the matching operation. Classification is the
// LLM's job; the router only validates the result and picks a handler,
// so a confused model degrades to a help message instead of a wrong
// action.
package router

import (
	"context"
	"encoding/json"

	"nutricoach/internal/llm"
	"nutricoach/internal/logging"
)

// Category is a recognized user intent.
type Category string

const (
	CategoryProfileSetup  Category = "profile_setup"
	CategoryMealRecord    Category = "meal_record"
	CategoryDietRecommend Category = "diet_recommend"
	CategoryReport        Category = "report"
	CategoryUnknown       Category = "unknown"
)

// Params carries the category-specific extras the classifier pulls out
// of the message.
type Params struct {
	ReportType      string `json:"report_type,omitempty"`
	MealDescription string `json:"meal_description,omitempty"`
}

// Intent is the classifier's verdict for one message.
type Intent struct {
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning,omitempty"`
	Params     Params   `json:"params"`
}

const classifierSystemPrompt = `You are an intent classifier for a nutrition assistant. Classify the
user's message into exactly one category:

1. profile_setup: setting up the profile, goals, or calorie targets
   Examples: "set my target calories", "calculate my BMR", "update my profile"

2. meal_record: logging food that was eaten
   Examples: "I had 200 g of brown rice", "log 100 g of chicken breast", "record today's lunch"

3. diet_recommend: asking what to eat
   Examples: "what should I eat?", "recommend dinner", "suggest a meal for tonight"

4. report: asking for an intake report or analysis
   Examples: "show today's report", "analyze this week", "how did I eat today?"

Use "unknown" when none of these fit.

Reply with a JSON object:
{
  "category": "profile_setup | meal_record | diet_recommend | report | unknown",
  "confidence": 0.0-1.0,
  "reasoning": "one line on why",
  "params": {
    "report_type": "daily or weekly (report only)",
    "meal_description": "the food text (meal_record only)"
  }
}`

// Classifier turns messages into intents.
type Classifier struct {
	client llm.Client
}

func NewClassifier(client llm.Client) *Classifier {
	return &Classifier{client: client}
}

// Classify never fails: model errors and unparseable replies become
// CategoryUnknown with zero confidence so the chat loop stays up.
func (c *Classifier) Classify(ctx context.Context, message string) Intent {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: classifierSystemPrompt},
		{Role: llm.RoleUser, Content: "User message: " + message},
	}

	raw, err := c.client.Chat(ctx, messages, llm.Options{Temperature: 0.3, JSON: true})
	if err != nil {
		logging.RouterWarn("Intent classification failed: %v", err)
		return Intent{Category: CategoryUnknown}
	}

	intent := parseIntent(raw)
	logging.Router("Intent: %s (confidence %.2f) %s", intent.Category, intent.Confidence, intent.Reasoning)
	return intent
}

func parseIntent(raw string) Intent {
	cleaned := llm.StripFences(raw)

	var intent Intent
	if err := json.Unmarshal([]byte(cleaned), &intent); err != nil {
		if obj := llm.ExtractObject(cleaned); obj != "" {
			err = json.Unmarshal([]byte(obj), &intent)
		}
		if err != nil {
			logging.RouterWarn("Unparseable classifier reply: %.80s", raw)
			return Intent{Category: CategoryUnknown}
		}
	}

	switch intent.Category {
	case CategoryProfileSetup, CategoryMealRecord, CategoryDietRecommend, CategoryReport, CategoryUnknown:
	default:
		logging.RouterDebug("Unrecognized category %q, treating as unknown", intent.Category)
		intent.Category = CategoryUnknown
	}
	return intent
}

// Handler executes the operations behind chat intents.
type Handler interface {
	SetupProfile(ctx context.Context, message string) (string, error)
	RecordMeal(ctx context.Context, description string) (string, error)
	Recommend(ctx context.Context) (string, error)
	Report(ctx context.Context, reportType string) (string, error)
}

const unknownReply = `I didn't catch that. I can:
- record a meal ("I had kimchi stew and a bowl of rice")
- set up your profile and calorie targets
- recommend what to eat next
- build a daily or weekly report`

// Router binds a classifier to a handler.
type Router struct {
	classifier *Classifier
	handler    Handler
}

func New(classifier *Classifier, handler Handler) *Router {
	return &Router{classifier: classifier, handler: handler}
}

// Route classifies the message and runs the matching operation,
// returning the reply text for the user.
func (r *Router) Route(ctx context.Context, message string) (string, error) {
	intent := r.classifier.Classify(ctx, message)

	switch intent.Category {
	case CategoryProfileSetup:
		return r.handler.SetupProfile(ctx, message)

	case CategoryMealRecord:
		description := intent.Params.MealDescription
		if description == "" {
			description = message
		}
		return r.handler.RecordMeal(ctx, description)

	case CategoryDietRecommend:
		return r.handler.Recommend(ctx)

	case CategoryReport:
		reportType := intent.Params.ReportType
		if reportType != "weekly" {
			reportType = "daily"
		}
		return r.handler.Report(ctx, reportType)

	default:
		return unknownReply, nil
	}
}
